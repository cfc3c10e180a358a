package ledger

import (
	"strings"
	"time"
)

// StrategyState is the lifecycle state of a registered strategy.
// Terminated is absorbing: no transition leaves it.
type StrategyState string

const (
	StatePaused     StrategyState = "paused"
	StateActive     StrategyState = "active"
	StateTerminated StrategyState = "terminated"
)

func (s StrategyState) Valid() bool {
	switch s {
	case StatePaused, StateActive, StateTerminated:
		return true
	}
	return false
}

// StrategyType is informational only; the core never dispatches on it.
type StrategyType string

const (
	TypeLiquidStaking      StrategyType = "liquid_staking"
	TypeLending            StrategyType = "lending"
	TypeLiquidityProvision StrategyType = "liquidity_provision"
)

func (t StrategyType) Valid() bool {
	switch t {
	case TypeLiquidStaking, TypeLending, TypeLiquidityProvision:
		return true
	}
	return false
}

func ParseStrategyType(raw string) (StrategyType, bool) {
	t := StrategyType(strings.ToLower(strings.TrimSpace(raw)))
	return t, t.Valid()
}

// Event kinds, one per committed transition. Stable wire values.
const (
	EventSwap                = "swap"
	EventStrategyInitialized = "strategy_initialized"
	EventStrategyStateChange = "strategy_state_changed"
	EventRebalance           = "rebalance"
	EventYieldReport         = "yield_report"
	EventYieldGenerated      = "yield_generated"
)

// Swap directions recorded on swap events.
const (
	SwapStableToSynthetic = "stable_to_synthetic"
	SwapSyntheticToStable = "synthetic_to_stable"
)

const (
	MaxAllocationPct          = 100
	MaxRiskScore              = 100
	MaxStrategyTokenAccounts  = 5
	StrategyDataSchemaVersion = 1
)

// Clock abstracts wall-clock reads so services stay deterministic in tests.
// A nil Clock means time.Now.
type Clock func() time.Time

func NowUTC(c Clock) time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
