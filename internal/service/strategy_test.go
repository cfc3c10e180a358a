package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chappie1998/jetson/internal/auth"
	"github.com/chappie1998/jetson/internal/events"
	"github.com/chappie1998/jetson/internal/ledger"
)

func TestInitializeStrategy_RegistersPaused(t *testing.T) {
	f := newFixture()
	cfg := f.initialize(t)

	strat, err := f.strats.InitializeStrategy(context.Background(), "manager", StrategyParams{
		Seed:          "alpha",
		Type:          "Liquid_Staking",
		AllocationPct: 40,
		TargetAPYBps:  650,
		RiskScore:     55,
		TokenAccounts: []string{"venue-1", " venue-2 "},
		Data:          json.RawMessage(`{"venue":"marinade"}`),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	derived, _ := f.deriver.Derive(auth.DomainStrategy, cfg.Treasury, "alpha")
	if strat.Address != derived.Address || strat.Bump != derived.Bump {
		t.Fatalf("address=%s bump=%d want %s/%d", strat.Address, strat.Bump, derived.Address, derived.Bump)
	}
	if strat.State != ledger.StatePaused {
		t.Fatalf("state=%s want paused", strat.State)
	}
	if strat.Type != ledger.TypeLiquidStaking {
		t.Fatalf("type=%s", strat.Type)
	}
	if strat.CurrentAPYBps != 0 {
		t.Fatalf("current apy=%d want 0", strat.CurrentAPYBps)
	}
	if strat.LastRebalanceAt == nil || !strat.LastRebalanceAt.Equal(f.now) {
		t.Fatalf("last rebalance=%v want %s", strat.LastRebalanceAt, f.now)
	}
	if strat.DataVersion != ledger.StrategyDataSchemaVersion {
		t.Fatalf("data version=%d", strat.DataVersion)
	}
	var accounts []string
	if err := json.Unmarshal(strat.TokenAccounts, &accounts); err != nil {
		t.Fatalf("token accounts: %v", err)
	}
	if len(accounts) != 2 || accounts[1] != "venue-2" {
		t.Fatalf("accounts=%v", accounts)
	}

	stats, err := f.repo.GetTreasuryStats(context.Background(), cfg.Treasury)
	if err != nil || stats == nil {
		t.Fatalf("stats missing (err=%v)", err)
	}
	if stats.StrategiesCount != 1 || stats.ActiveStrategiesCount != 0 {
		t.Fatalf("counts=%d/%d want 1/0", stats.StrategiesCount, stats.ActiveStrategiesCount)
	}
	if stats.TreasuryAuthority != "manager" {
		t.Fatalf("stats authority=%s", stats.TreasuryAuthority)
	}

	row := f.lastEvent(t)
	if row.Kind != ledger.EventStrategyInitialized {
		t.Fatalf("event kind=%s", row.Kind)
	}
	var payload events.StrategyInitializedPayload
	if err := json.Unmarshal(row.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Seed != "alpha" || payload.StrategyType != "liquid_staking" || payload.AllocationPct != 40 {
		t.Fatalf("payload=%+v", payload)
	}
}

func TestInitializeStrategy_Validation(t *testing.T) {
	f := newFixture()
	f.initialize(t)

	base := StrategyParams{Seed: "ok", Type: "lending", AllocationPct: 10, TargetAPYBps: 500, RiskScore: 10}
	cases := []struct {
		name   string
		mutate func(p *StrategyParams)
		want   error
	}{
		{"empty seed", func(p *StrategyParams) { p.Seed = " " }, ledger.ErrInvalidSeed},
		{"long seed", func(p *StrategyParams) { p.Seed = "012345678901234567890123456789012" }, ledger.ErrInvalidSeed},
		{"bad type", func(p *StrategyParams) { p.Type = "arbitrage" }, ledger.ErrInvalidType},
		{"allocation above cap", func(p *StrategyParams) { p.AllocationPct = 101 }, ledger.ErrInvalidAllocation},
		{"negative allocation", func(p *StrategyParams) { p.AllocationPct = -1 }, ledger.ErrInvalidAllocation},
		{"zero target apy", func(p *StrategyParams) { p.TargetAPYBps = 0 }, ledger.ErrInvalidTargetAPY},
		{"risk above cap", func(p *StrategyParams) { p.RiskScore = 101 }, ledger.ErrInvalidRiskScore},
		{"too many accounts", func(p *StrategyParams) {
			p.TokenAccounts = []string{"a", "b", "c", "d", "e", "f"}
		}, ledger.ErrTooManyAccounts},
	}
	for _, tc := range cases {
		p := base
		tc.mutate(&p)
		if _, err := f.strats.InitializeStrategy(context.Background(), "manager", p); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err=%v want %v", tc.name, err, tc.want)
		}
	}
}

func TestInitializeStrategy_DuplicateSeed(t *testing.T) {
	f := newFixture()
	f.initialize(t)
	f.registerStrategy(t, "manager", "alpha")

	_, err := f.strats.InitializeStrategy(context.Background(), "manager", StrategyParams{
		Seed: "alpha", Type: "lending", AllocationPct: 5, TargetAPYBps: 100, RiskScore: 5,
	})
	if !errors.Is(err, ledger.ErrStrategyExists) {
		t.Fatalf("err=%v want ErrStrategyExists", err)
	}
}

func TestInitializeStrategy_RequiresConfig(t *testing.T) {
	f := newFixture()
	_, err := f.strats.InitializeStrategy(context.Background(), "manager", StrategyParams{
		Seed: "alpha", Type: "lending", AllocationPct: 5, TargetAPYBps: 100, RiskScore: 5,
	})
	if !errors.Is(err, ledger.ErrConfigNotFound) {
		t.Fatalf("err=%v want ErrConfigNotFound", err)
	}
}

func TestStatsAuthority_ReadoptedUntilDeposits(t *testing.T) {
	f := newFixture()
	cfg := f.initialize(t)

	f.registerStrategy(t, "first", "alpha")
	f.registerStrategy(t, "second", "beta")

	stats, _ := f.repo.GetTreasuryStats(context.Background(), cfg.Treasury)
	if stats.TreasuryAuthority != "second" {
		t.Fatalf("authority=%s want second (no deposit history yet)", stats.TreasuryAuthority)
	}
	if stats.StrategiesCount != 2 {
		t.Fatalf("count=%d want 2", stats.StrategiesCount)
	}

	// Once funds moved, registration stops rewriting the authority.
	stats.TotalStableDeposited = decimal.RequireFromString("10")
	f.repo.stats[cfg.Treasury] = *stats

	f.registerStrategy(t, "third", "gamma")
	stats, _ = f.repo.GetTreasuryStats(context.Background(), cfg.Treasury)
	if stats.TreasuryAuthority != "second" {
		t.Fatalf("authority=%s want second after deposits", stats.TreasuryAuthority)
	}
	if stats.StrategiesCount != 3 {
		t.Fatalf("count=%d want 3", stats.StrategiesCount)
	}
}

func TestLifecycle_Transitions(t *testing.T) {
	f := newFixture()
	cfg := f.initialize(t)
	strat := f.registerStrategy(t, "manager", "alpha")
	ctx := context.Background()

	f.advance(time.Minute)
	got, err := f.strats.Activate(ctx, "manager", strat.Address)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if got.State != ledger.StateActive {
		t.Fatalf("state=%s want active", got.State)
	}
	if got.LastRebalanceAt == nil || !got.LastRebalanceAt.Equal(f.now) {
		t.Fatalf("rebalance at=%v want %s", got.LastRebalanceAt, f.now)
	}
	stats, _ := f.repo.GetTreasuryStats(ctx, cfg.Treasury)
	if stats.ActiveStrategiesCount != 1 {
		t.Fatalf("active count=%d want 1", stats.ActiveStrategiesCount)
	}
	row := f.lastEvent(t)
	if row.Kind != ledger.EventStrategyStateChange {
		t.Fatalf("event kind=%s", row.Kind)
	}
	var payload events.StateChangePayload
	_ = json.Unmarshal(row.Payload, &payload)
	if payload.OldState != "paused" || payload.NewState != "active" {
		t.Fatalf("payload=%+v", payload)
	}

	if _, err := f.strats.Activate(ctx, "manager", strat.Address); !errors.Is(err, ledger.ErrStrategyAlreadyActive) {
		t.Fatalf("second activate err=%v", err)
	}

	if _, err := f.strats.Pause(ctx, "manager", strat.Address); err != nil {
		t.Fatalf("pause: %v", err)
	}
	stats, _ = f.repo.GetTreasuryStats(ctx, cfg.Treasury)
	if stats.ActiveStrategiesCount != 0 {
		t.Fatalf("active count=%d want 0", stats.ActiveStrategiesCount)
	}
	if _, err := f.strats.Pause(ctx, "manager", strat.Address); !errors.Is(err, ledger.ErrStrategyNotActive) {
		t.Fatalf("second pause err=%v", err)
	}

	if _, err := f.strats.Activate(ctx, "manager", strat.Address); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	got, err = f.strats.Terminate(ctx, "manager", strat.Address)
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if got.State != ledger.StateTerminated {
		t.Fatalf("state=%s want terminated", got.State)
	}
	stats, _ = f.repo.GetTreasuryStats(ctx, cfg.Treasury)
	if stats.ActiveStrategiesCount != 0 {
		t.Fatalf("active count=%d want 0 after terminate", stats.ActiveStrategiesCount)
	}

	// Terminated is absorbing.
	if _, err := f.strats.Terminate(ctx, "manager", strat.Address); !errors.Is(err, ledger.ErrStrategyTerminated) {
		t.Fatalf("second terminate err=%v", err)
	}
	if _, err := f.strats.Activate(ctx, "manager", strat.Address); !errors.Is(err, ledger.ErrStrategyTerminated) {
		t.Fatalf("activate after terminate err=%v", err)
	}
	if _, err := f.strats.Pause(ctx, "manager", strat.Address); !errors.Is(err, ledger.ErrStrategyNotActive) {
		t.Fatalf("pause after terminate err=%v", err)
	}
}

func TestTerminate_PausedKeepsActiveCount(t *testing.T) {
	f := newFixture()
	cfg := f.initialize(t)
	a := f.registerStrategy(t, "manager", "alpha")
	b := f.registerStrategy(t, "manager", "beta")
	ctx := context.Background()

	if _, err := f.strats.Activate(ctx, "manager", b.Address); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := f.strats.Terminate(ctx, "manager", a.Address); err != nil {
		t.Fatalf("terminate paused: %v", err)
	}
	stats, _ := f.repo.GetTreasuryStats(ctx, cfg.Treasury)
	if stats.ActiveStrategiesCount != 1 {
		t.Fatalf("active count=%d want 1", stats.ActiveStrategiesCount)
	}
}

func TestTransition_WrongCaller(t *testing.T) {
	f := newFixture()
	f.initialize(t)
	strat := f.registerStrategy(t, "manager", "alpha")

	if _, err := f.strats.Activate(context.Background(), "intruder", strat.Address); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("err=%v want ErrUnauthorized", err)
	}
}

func TestTransition_UnknownStrategy(t *testing.T) {
	f := newFixture()
	f.initialize(t)
	if _, err := f.strats.Activate(context.Background(), "manager", "nope"); !errors.Is(err, ledger.ErrStrategyNotFound) {
		t.Fatalf("err=%v want ErrStrategyNotFound", err)
	}
}

func TestActiveCount_NeverGoesNegative(t *testing.T) {
	f := newFixture()
	cfg := f.initialize(t)
	strat := f.registerStrategy(t, "manager", "alpha")
	ctx := context.Background()

	if _, err := f.strats.Activate(ctx, "manager", strat.Address); err != nil {
		t.Fatalf("activate: %v", err)
	}
	// Simulate drifted stats (count already zero) and make sure pausing
	// clamps instead of underflowing.
	stats, _ := f.repo.GetTreasuryStats(ctx, cfg.Treasury)
	stats.ActiveStrategiesCount = 0
	f.repo.stats[cfg.Treasury] = *stats

	if _, err := f.strats.Pause(ctx, "manager", strat.Address); err != nil {
		t.Fatalf("pause: %v", err)
	}
	stats, _ = f.repo.GetTreasuryStats(ctx, cfg.Treasury)
	if stats.ActiveStrategiesCount != 0 {
		t.Fatalf("active count=%d want 0", stats.ActiveStrategiesCount)
	}
}

func TestUpdateAllocation_RecordsRebalance(t *testing.T) {
	f := newFixture()
	cfg := f.initialize(t)
	strat := f.registerStrategy(t, "manager", "alpha")
	registeredAt := f.now

	f.advance(time.Hour)
	got, err := f.strats.UpdateAllocation(context.Background(), "manager", strat.Address, 60)
	if err != nil {
		t.Fatalf("update allocation: %v", err)
	}
	if got.AllocationPct != 60 {
		t.Fatalf("allocation=%d want 60", got.AllocationPct)
	}
	// The rebalance timestamp tracks activation, not allocation edits.
	if got.LastRebalanceAt == nil || !got.LastRebalanceAt.Equal(registeredAt) {
		t.Fatalf("rebalance at=%v want %s", got.LastRebalanceAt, registeredAt)
	}

	stats, _ := f.repo.GetTreasuryStats(context.Background(), cfg.Treasury)
	if !stats.LastUpdatedAt.Equal(f.now) {
		t.Fatalf("stats last updated=%s want %s", stats.LastUpdatedAt, f.now)
	}

	row := f.lastEvent(t)
	if row.Kind != ledger.EventRebalance {
		t.Fatalf("event kind=%s", row.Kind)
	}
	var payload events.RebalancePayload
	_ = json.Unmarshal(row.Payload, &payload)
	if payload.OldAllocationPct != 25 || payload.NewAllocationPct != 60 {
		t.Fatalf("payload=%+v", payload)
	}
}

func TestUpdateAllocation_Invalid(t *testing.T) {
	f := newFixture()
	f.initialize(t)
	strat := f.registerStrategy(t, "manager", "alpha")

	if _, err := f.strats.UpdateAllocation(context.Background(), "manager", strat.Address, 101); !errors.Is(err, ledger.ErrInvalidAllocation) {
		t.Fatalf("err=%v want ErrInvalidAllocation", err)
	}
	if _, err := f.strats.UpdateAllocation(context.Background(), "intruder", strat.Address, 10); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("err=%v want ErrUnauthorized", err)
	}
}

func TestUpdateAPY_RecordsReport(t *testing.T) {
	f := newFixture()
	f.initialize(t)
	strat := f.registerStrategy(t, "manager", "alpha")

	got, err := f.strats.UpdateAPY(context.Background(), "manager", strat.Address, 750)
	if err != nil {
		t.Fatalf("update apy: %v", err)
	}
	if got.CurrentAPYBps != 750 {
		t.Fatalf("apy=%d want 750", got.CurrentAPYBps)
	}
	row := f.lastEvent(t)
	if row.Kind != ledger.EventYieldReport {
		t.Fatalf("event kind=%s", row.Kind)
	}
	var payload events.YieldReportPayload
	_ = json.Unmarshal(row.Payload, &payload)
	if payload.PreviousAPYBps != 0 || payload.CurrentAPYBps != 750 {
		t.Fatalf("payload=%+v", payload)
	}

	if _, err := f.strats.UpdateAPY(context.Background(), "manager", strat.Address, -1); ledger.KindOf(err) != ledger.KindValidation {
		t.Fatalf("negative apy err=%v", err)
	}
}

func TestStrategyOps_FeatureDisabled(t *testing.T) {
	f := newFixture()
	f.initialize(t)
	strat := f.registerStrategy(t, "manager", "alpha")

	if err := f.flags.SetEnabled(context.Background(), FeatureStrategyOps, false); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	want := ledger.FeatureDisabled(FeatureStrategyOps)
	if _, err := f.strats.InitializeStrategy(context.Background(), "manager", StrategyParams{Seed: "beta", Type: "lending", AllocationPct: 1, TargetAPYBps: 1, RiskScore: 1}); !errors.Is(err, want) {
		t.Fatalf("register err=%v", err)
	}
	if _, err := f.strats.Activate(context.Background(), "manager", strat.Address); !errors.Is(err, want) {
		t.Fatalf("activate err=%v", err)
	}
}
