package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chappie1998/jetson/internal/auth"
	"github.com/chappie1998/jetson/internal/events"
	"github.com/chappie1998/jetson/internal/ledger"
	"github.com/chappie1998/jetson/internal/metrics"
	"github.com/chappie1998/jetson/internal/models"
	"github.com/chappie1998/jetson/internal/repository"
	"github.com/chappie1998/jetson/internal/risk"
)

// StrategyService owns the strategy registry: registration, the lifecycle
// state machine and the two mutable knobs (allocation, reported APY). Every
// mutation locks the strategy row and the treasury stats row in that order
// and commits both together.
type StrategyService struct {
	Repo    repository.Repository
	Hub     *events.Hub
	Deriver auth.Deriver
	Flags   *SystemSettingsService
	Risk    *risk.Advisor
	Logger  *zap.Logger
	Clock   ledger.Clock
}

// StrategyParams registers one strategy under the treasury.
type StrategyParams struct {
	Seed          string
	Type          string
	AllocationPct int
	TargetAPYBps  int64
	RiskScore     int
	TokenAccounts []string
	Data          json.RawMessage
}

// InitializeStrategy registers a new strategy in the Paused state and bumps
// the treasury's strategy count. The strategy address derives from
// (treasury, seed), so re-registering the same seed fails.
func (s *StrategyService) InitializeStrategy(ctx context.Context, authority string, p StrategyParams) (*models.Strategy, error) {
	strat, err := s.initializeStrategy(ctx, authority, p)
	observe("initialize_strategy", err)
	return strat, err
}

func (s *StrategyService) initializeStrategy(ctx context.Context, authority string, p StrategyParams) (*models.Strategy, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("strategy service is not configured")
	}
	authority = strings.TrimSpace(authority)
	if authority == "" {
		return nil, ledger.ErrUnauthorized
	}
	if err := s.gate(ctx); err != nil {
		return nil, err
	}

	seed := strings.TrimSpace(p.Seed)
	if seed == "" || len(seed) > 32 {
		return nil, ledger.ErrInvalidSeed
	}
	typ, ok := ledger.ParseStrategyType(p.Type)
	if !ok {
		return nil, ledger.ErrInvalidType
	}
	if p.AllocationPct < 0 || p.AllocationPct > ledger.MaxAllocationPct {
		return nil, ledger.ErrInvalidAllocation
	}
	if p.TargetAPYBps <= 0 {
		return nil, ledger.ErrInvalidTargetAPY
	}
	if p.RiskScore < 0 || p.RiskScore > ledger.MaxRiskScore {
		return nil, ledger.ErrInvalidRiskScore
	}
	accounts := cleanAccounts(p.TokenAccounts)
	if len(accounts) > ledger.MaxStrategyTokenAccounts {
		return nil, ledger.ErrTooManyAccounts
	}

	var (
		strat *models.Strategy
		rows  []models.LedgerEvent
	)
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		cfg, err := s.Repo.GetConfigTx(ctx, tx)
		if err != nil {
			return err
		}
		if cfg == nil {
			return ledger.ErrConfigNotFound
		}

		derived, err := s.Deriver.Derive(auth.DomainStrategy, cfg.Treasury, seed)
		if err != nil {
			return err
		}

		now := ledger.NowUTC(s.Clock)
		if err := s.bumpStrategiesCount(ctx, tx, cfg.Treasury, authority, now); err != nil {
			return err
		}

		accountsJSON, err := json.Marshal(accounts)
		if err != nil {
			return err
		}
		data := p.Data
		if len(data) == 0 {
			data = json.RawMessage(`{}`)
		}

		strat = &models.Strategy{
			Address:              derived.Address,
			Seed:                 seed,
			Authority:            authority,
			Type:                 typ,
			State:                ledger.StatePaused,
			AllocationPct:        p.AllocationPct,
			TargetAPYBps:         p.TargetAPYBps,
			CurrentAPYBps:        0,
			RiskScore:            p.RiskScore,
			Treasury:             cfg.Treasury,
			TreasuryTokenAccount: cfg.TreasuryTokenAccount,
			TokenAccounts:        datatypes.JSON(accountsJSON),
			DataVersion:          ledger.StrategyDataSchemaVersion,
			Data:                 datatypes.JSON(data),
			LastRebalanceAt:      &now,
			Bump:                 derived.Bump,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := s.Repo.CreateStrategyTx(ctx, tx, strat); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ledger.ErrStrategyExists
			}
			return err
		}

		rows = []models.LedgerEvent{events.NewStrategyInitialized(cfg.Treasury, strat.Address, authority, events.StrategyInitializedPayload{
			Seed:          seed,
			StrategyType:  string(typ),
			Authority:     authority,
			AllocationPct: p.AllocationPct,
			TargetAPYBps:  p.TargetAPYBps,
			RiskScore:     p.RiskScore,
		}, now)}
		return s.Repo.InsertLedgerEventsTx(ctx, tx, rows)
	})
	if err != nil {
		return nil, err
	}

	publish(s.Hub, rows)
	if s.Logger != nil {
		s.Logger.Info("strategy registered",
			zap.String("address", strat.Address),
			zap.String("type", string(strat.Type)),
			zap.String("authority", authority),
			zap.Int("allocation_pct", strat.AllocationPct))
	}
	return strat, nil
}

// bumpStrategiesCount counts the new strategy on the treasury stats row,
// creating the row on first registration. A stats row with no deposit
// history re-adopts the registering authority, mirroring account
// re-initialization before any funds moved.
func (s *StrategyService) bumpStrategiesCount(ctx context.Context, tx *gorm.DB, treasury, authority string, now time.Time) error {
	stats, err := s.Repo.GetTreasuryStatsForUpdateTx(ctx, tx, treasury)
	if err != nil {
		return err
	}
	if stats == nil {
		derived, err := s.Deriver.Derive(auth.DomainTreasuryStats, treasury)
		if err != nil {
			return err
		}
		stats = &models.TreasuryStats{
			Treasury:          treasury,
			TreasuryAuthority: authority,
			StrategiesCount:   1,
			LastUpdatedAt:     now,
			Bump:              derived.Bump,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		return s.Repo.CreateTreasuryStatsTx(ctx, tx, stats)
	}
	if stats.TotalStableDeposited.IsZero() {
		stats.Treasury = treasury
		stats.TreasuryAuthority = authority
	}
	stats.StrategiesCount++
	stats.LastUpdatedAt = now
	return s.Repo.SaveTreasuryStatsTx(ctx, tx, stats)
}

// Activate moves a paused strategy into the Active state.
func (s *StrategyService) Activate(ctx context.Context, caller, address string) (*models.Strategy, error) {
	strat, err := s.transition(ctx, caller, address, "activate_strategy", func(strat *models.Strategy, stats *models.TreasuryStats, now time.Time) error {
		switch strat.State {
		case ledger.StateTerminated:
			return ledger.ErrStrategyTerminated
		case ledger.StateActive:
			return ledger.ErrStrategyAlreadyActive
		}
		strat.State = ledger.StateActive
		strat.LastRebalanceAt = &now
		stats.ActiveStrategiesCount++
		return nil
	})
	if err == nil && s.Risk != nil && strat != nil {
		s.Risk.LogWarnings(ctx, strat.Treasury)
	}
	return strat, err
}

// Pause moves an active strategy back to Paused.
func (s *StrategyService) Pause(ctx context.Context, caller, address string) (*models.Strategy, error) {
	return s.transition(ctx, caller, address, "pause_strategy", func(strat *models.Strategy, stats *models.TreasuryStats, now time.Time) error {
		if strat.State != ledger.StateActive {
			return ledger.ErrStrategyNotActive
		}
		strat.State = ledger.StatePaused
		stats.ActiveStrategiesCount = ledger.SatDec(stats.ActiveStrategiesCount)
		return nil
	})
}

// Terminate retires a strategy for good. Terminated is absorbing; no
// transition leads out of it.
func (s *StrategyService) Terminate(ctx context.Context, caller, address string) (*models.Strategy, error) {
	return s.transition(ctx, caller, address, "terminate_strategy", func(strat *models.Strategy, stats *models.TreasuryStats, now time.Time) error {
		if strat.State == ledger.StateTerminated {
			return ledger.ErrStrategyTerminated
		}
		if strat.State == ledger.StateActive {
			stats.ActiveStrategiesCount = ledger.SatDec(stats.ActiveStrategiesCount)
		}
		strat.State = ledger.StateTerminated
		return nil
	})
}

// transition runs one state-machine step: lock strategy and stats, check the
// caller, apply the step, write both rows and the state-change event.
func (s *StrategyService) transition(ctx context.Context, caller, address, op string, step func(*models.Strategy, *models.TreasuryStats, time.Time) error) (*models.Strategy, error) {
	strat, rows, err := s.runTransition(ctx, caller, address, step)
	observe(op, err)
	if err != nil {
		return nil, err
	}

	publish(s.Hub, rows)
	metrics.StateTransitionsTotal.WithLabelValues(string(strat.State)).Inc()
	if s.Logger != nil {
		s.Logger.Info("strategy state changed",
			zap.String("address", strat.Address),
			zap.String("state", string(strat.State)))
	}
	return strat, nil
}

func (s *StrategyService) runTransition(ctx context.Context, caller, address string, step func(*models.Strategy, *models.TreasuryStats, time.Time) error) (*models.Strategy, []models.LedgerEvent, error) {
	if s == nil || s.Repo == nil {
		return nil, nil, errors.New("strategy service is not configured")
	}
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, nil, ledger.ErrUnauthorized
	}
	if err := s.gate(ctx); err != nil {
		return nil, nil, err
	}

	var (
		strat *models.Strategy
		rows  []models.LedgerEvent
	)
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		var err error
		strat, err = s.lockStrategy(ctx, tx, caller, address)
		if err != nil {
			return err
		}
		stats, err := s.lockStats(ctx, tx, strat.Treasury)
		if err != nil {
			return err
		}

		now := ledger.NowUTC(s.Clock)
		oldState := strat.State
		if err := step(strat, stats, now); err != nil {
			return err
		}
		strat.UpdatedAt = now
		stats.LastUpdatedAt = now
		stats.UpdatedAt = now
		if err := s.Repo.SaveStrategyTx(ctx, tx, strat); err != nil {
			return err
		}
		if err := s.Repo.SaveTreasuryStatsTx(ctx, tx, stats); err != nil {
			return err
		}

		rows = []models.LedgerEvent{events.NewStateChange(strat.Treasury, strat.Address, caller, events.StateChangePayload{
			OldState: string(oldState),
			NewState: string(strat.State),
		}, now)}
		return s.Repo.InsertLedgerEventsTx(ctx, tx, rows)
	})
	if err != nil {
		return nil, nil, err
	}
	return strat, rows, nil
}

// UpdateAllocation rebalances the strategy's share of the treasury. The
// change is recorded as a rebalance event; the rebalance timestamp itself
// only moves on registration and activation.
func (s *StrategyService) UpdateAllocation(ctx context.Context, caller, address string, newPct int) (*models.Strategy, error) {
	strat, err := s.updateAllocation(ctx, caller, address, newPct)
	observe("update_allocation", err)
	if err != nil {
		return nil, err
	}
	if s.Risk != nil && strat.State == ledger.StateActive {
		s.Risk.LogWarnings(ctx, strat.Treasury)
	}
	return strat, nil
}

func (s *StrategyService) updateAllocation(ctx context.Context, caller, address string, newPct int) (*models.Strategy, error) {
	if newPct < 0 || newPct > ledger.MaxAllocationPct {
		return nil, ledger.ErrInvalidAllocation
	}

	var rows []models.LedgerEvent
	strat, err := s.mutate(ctx, caller, address, func(tx *gorm.DB, strat *models.Strategy, stats *models.TreasuryStats, now time.Time) error {
		oldPct := strat.AllocationPct
		strat.AllocationPct = newPct
		rows = []models.LedgerEvent{events.NewRebalance(strat.Treasury, strat.Address, caller, events.RebalancePayload{
			OldAllocationPct: oldPct,
			NewAllocationPct: newPct,
		}, now)}
		return s.Repo.InsertLedgerEventsTx(ctx, tx, rows)
	})
	if err != nil {
		return nil, err
	}

	publish(s.Hub, rows)
	if s.Logger != nil {
		s.Logger.Info("strategy allocation updated",
			zap.String("address", strat.Address),
			zap.Int("allocation_pct", strat.AllocationPct))
	}
	return strat, nil
}

// UpdateAPY records the strategy's currently realized APY in basis points.
func (s *StrategyService) UpdateAPY(ctx context.Context, caller, address string, apyBps int64) (*models.Strategy, error) {
	strat, err := s.updateAPY(ctx, caller, address, apyBps)
	observe("update_apy", err)
	return strat, err
}

func (s *StrategyService) updateAPY(ctx context.Context, caller, address string, apyBps int64) (*models.Strategy, error) {
	if apyBps < 0 {
		return nil, ledger.Validationf("invalid_apy", "apy must not be negative")
	}

	var rows []models.LedgerEvent
	strat, err := s.mutate(ctx, caller, address, func(tx *gorm.DB, strat *models.Strategy, stats *models.TreasuryStats, now time.Time) error {
		previous := strat.CurrentAPYBps
		strat.CurrentAPYBps = apyBps
		rows = []models.LedgerEvent{events.NewYieldReport(strat.Treasury, strat.Address, caller, events.YieldReportPayload{
			PreviousAPYBps: previous,
			CurrentAPYBps:  apyBps,
		}, now)}
		return s.Repo.InsertLedgerEventsTx(ctx, tx, rows)
	})
	if err != nil {
		return nil, err
	}

	publish(s.Hub, rows)
	if s.Logger != nil {
		s.Logger.Info("strategy apy updated",
			zap.String("address", strat.Address),
			zap.Int64("current_apy_bps", strat.CurrentAPYBps))
	}
	return strat, nil
}

// mutate runs one knob update under the same locking discipline as a state
// transition: strategy row, then stats row, both written with the shared
// timestamp.
func (s *StrategyService) mutate(ctx context.Context, caller, address string, apply func(tx *gorm.DB, strat *models.Strategy, stats *models.TreasuryStats, now time.Time) error) (*models.Strategy, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("strategy service is not configured")
	}
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, ledger.ErrUnauthorized
	}
	if err := s.gate(ctx); err != nil {
		return nil, err
	}

	var strat *models.Strategy
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		var err error
		strat, err = s.lockStrategy(ctx, tx, caller, address)
		if err != nil {
			return err
		}
		stats, err := s.lockStats(ctx, tx, strat.Treasury)
		if err != nil {
			return err
		}

		now := ledger.NowUTC(s.Clock)
		if err := apply(tx, strat, stats, now); err != nil {
			return err
		}
		strat.UpdatedAt = now
		stats.LastUpdatedAt = now
		stats.UpdatedAt = now
		if err := s.Repo.SaveStrategyTx(ctx, tx, strat); err != nil {
			return err
		}
		return s.Repo.SaveTreasuryStatsTx(ctx, tx, stats)
	})
	if err != nil {
		return nil, err
	}
	return strat, nil
}

func (s *StrategyService) lockStrategy(ctx context.Context, tx *gorm.DB, caller, address string) (*models.Strategy, error) {
	strat, err := s.Repo.GetStrategyForUpdateTx(ctx, tx, strings.TrimSpace(address))
	if err != nil {
		return nil, err
	}
	if strat == nil {
		return nil, ledger.ErrStrategyNotFound
	}
	if strat.Authority != caller {
		return nil, ledger.ErrUnauthorized
	}
	return strat, nil
}

func (s *StrategyService) lockStats(ctx context.Context, tx *gorm.DB, treasury string) (*models.TreasuryStats, error) {
	stats, err := s.Repo.GetTreasuryStatsForUpdateTx(ctx, tx, treasury)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, ledger.ErrStatsNotFound
	}
	return stats, nil
}

func (s *StrategyService) gate(ctx context.Context) error {
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureStrategyOps, true) {
		return ledger.FeatureDisabled(FeatureStrategyOps)
	}
	return nil
}

func cleanAccounts(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
