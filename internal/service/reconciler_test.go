package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestReconciler_CleanStats(t *testing.T) {
	f := newFixture()
	f.initialize(t)
	strat := f.registerStrategy(t, "manager", "alpha")
	ctx := context.Background()
	if _, err := f.strats.Activate(ctx, "manager", strat.Address); err != nil {
		t.Fatalf("activate: %v", err)
	}

	rec := &StatsReconciler{Repo: f.repo, Flags: f.flags, Logger: zap.NewNop()}
	drifted, err := rec.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if drifted != 0 {
		t.Fatalf("drifted=%d want 0", drifted)
	}
}

func TestReconciler_DetectsDrift(t *testing.T) {
	f := newFixture()
	cfg := f.initialize(t)
	f.registerStrategy(t, "manager", "alpha")
	ctx := context.Background()

	stats, _ := f.repo.GetTreasuryStats(ctx, cfg.Treasury)
	stats.StrategiesCount = 5
	f.repo.stats[cfg.Treasury] = *stats

	rec := &StatsReconciler{Repo: f.repo, Flags: f.flags, Logger: zap.NewNop()}
	drifted, err := rec.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if drifted != 1 {
		t.Fatalf("drifted=%d want 1", drifted)
	}

	// Report-only: the stored counters stay as they were.
	stats, _ = f.repo.GetTreasuryStats(ctx, cfg.Treasury)
	if stats.StrategiesCount != 5 {
		t.Fatalf("count=%d, reconciler must not rewrite stats", stats.StrategiesCount)
	}
}

func TestReconciler_FeatureDisabled(t *testing.T) {
	f := newFixture()
	cfg := f.initialize(t)
	f.registerStrategy(t, "manager", "alpha")
	ctx := context.Background()

	stats, _ := f.repo.GetTreasuryStats(ctx, cfg.Treasury)
	stats.StrategiesCount = 5
	f.repo.stats[cfg.Treasury] = *stats

	if err := f.flags.SetEnabled(ctx, FeatureReconcile, false); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	rec := &StatsReconciler{Repo: f.repo, Flags: f.flags, Logger: zap.NewNop()}
	drifted, err := rec.RunOnce(ctx)
	if err != nil || drifted != 0 {
		t.Fatalf("drifted=%d err=%v want 0/nil", drifted, err)
	}
}
