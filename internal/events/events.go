package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chappie1998/jetson/internal/ledger"
	"github.com/chappie1998/jetson/internal/models"
)

// Event is the published form of a committed LedgerEvent row.
type Event struct {
	ID        uint64          `json:"id"`
	UID       string          `json:"uid"`
	Kind      string          `json:"kind"`
	Treasury  string          `json:"treasury,omitempty"`
	Strategy  string          `json:"strategy,omitempty"`
	Actor     string          `json:"actor,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	EmittedAt time.Time       `json:"emitted_at"`
}

func FromModel(item models.LedgerEvent) Event {
	e := Event{
		ID:        item.ID,
		UID:       item.UID,
		Kind:      item.Kind,
		Treasury:  item.Treasury,
		Actor:     item.Actor,
		Payload:   json.RawMessage(item.Payload),
		EmittedAt: item.EmittedAt,
	}
	if item.Strategy != nil {
		e.Strategy = *item.Strategy
	}
	return e
}

func FromModels(items []models.LedgerEvent) []Event {
	out := make([]Event, 0, len(items))
	for _, item := range items {
		out = append(out, FromModel(item))
	}
	return out
}

type SwapPayload struct {
	Direction     string          `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	StableMint    string          `json:"stable_mint"`
	SyntheticMint string          `json:"synthetic_mint"`
	Caller        string          `json:"caller"`
}

type StrategyInitializedPayload struct {
	Seed          string `json:"seed"`
	StrategyType  string `json:"strategy_type"`
	Authority     string `json:"authority"`
	AllocationPct int    `json:"allocation_pct"`
	TargetAPYBps  int64  `json:"target_apy_bps"`
	RiskScore     int    `json:"risk_score"`
}

type StateChangePayload struct {
	OldState string `json:"old_state"`
	NewState string `json:"new_state"`
}

type RebalancePayload struct {
	OldAllocationPct int `json:"old_allocation_pct"`
	NewAllocationPct int `json:"new_allocation_pct"`
}

type YieldReportPayload struct {
	PreviousAPYBps int64 `json:"previous_apy_bps"`
	CurrentAPYBps  int64 `json:"current_apy_bps"`
}

type YieldGeneratedPayload struct {
	YieldAmount         decimal.Decimal `json:"yield_amount"`
	NewPortfolioValue   decimal.Decimal `json:"new_portfolio_value"`
	TotalYieldGenerated decimal.Decimal `json:"total_yield_generated"`
}

func NewSwap(treasury, actor string, p SwapPayload, at time.Time) models.LedgerEvent {
	return newEvent(ledger.EventSwap, treasury, "", actor, p, at)
}

func NewStrategyInitialized(treasury, strategy, actor string, p StrategyInitializedPayload, at time.Time) models.LedgerEvent {
	return newEvent(ledger.EventStrategyInitialized, treasury, strategy, actor, p, at)
}

func NewStateChange(treasury, strategy, actor string, p StateChangePayload, at time.Time) models.LedgerEvent {
	return newEvent(ledger.EventStrategyStateChange, treasury, strategy, actor, p, at)
}

func NewRebalance(treasury, strategy, actor string, p RebalancePayload, at time.Time) models.LedgerEvent {
	return newEvent(ledger.EventRebalance, treasury, strategy, actor, p, at)
}

func NewYieldReport(treasury, strategy, actor string, p YieldReportPayload, at time.Time) models.LedgerEvent {
	return newEvent(ledger.EventYieldReport, treasury, strategy, actor, p, at)
}

func NewYieldGenerated(treasury, actor string, p YieldGeneratedPayload, at time.Time) models.LedgerEvent {
	return newEvent(ledger.EventYieldGenerated, treasury, "", actor, p, at)
}

func newEvent(kind, treasury, strategy, actor string, payload any, at time.Time) models.LedgerEvent {
	body, _ := json.Marshal(payload)
	item := models.LedgerEvent{
		UID:       uuid.NewString(),
		Kind:      kind,
		Treasury:  treasury,
		Actor:     actor,
		Payload:   body,
		EmittedAt: at,
	}
	if strategy != "" {
		item.Strategy = &strategy
	}
	return item
}
