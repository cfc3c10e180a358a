package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chappie1998/jetson/internal/repository"
)

func TestSnapshotRunOnce_CapturesStats(t *testing.T) {
	f := newFixture()
	cfg := f.initialize(t)
	f.registerStrategy(t, "manager", "alpha")
	src, dst := f.fundedAccounts(t, cfg, "alice", decimal.RequireFromString("100"))
	ctx := context.Background()

	if _, err := f.swaps.StableToSynthetic(ctx, "alice", SwapParams{SourceAccount: src, DestAccount: dst, Amount: decimal.RequireFromString("40")}); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if _, err := f.treasury.ReportYield(ctx, "manager", YieldReport{Treasury: cfg.Treasury, YieldAmount: decimal.RequireFromString("3"), PortfolioValue: decimal.RequireFromString("43")}); err != nil {
		t.Fatalf("report: %v", err)
	}

	svc := &SnapshotService{Repo: f.repo, Flags: f.flags, Logger: zap.NewNop(), Clock: func() time.Time { return f.now }}
	written, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if written != 1 {
		t.Fatalf("written=%d want 1", written)
	}

	snaps, _ := f.repo.ListTreasurySnapshots(ctx, repository.ListTreasurySnapshotsParams{})
	if len(snaps) != 1 {
		t.Fatalf("snapshots=%d want 1", len(snaps))
	}
	snap := snaps[0]
	if snap.Treasury != cfg.Treasury {
		t.Fatalf("treasury=%s", snap.Treasury)
	}
	decEq(t, snap.CustodyBalance, "40")
	decEq(t, snap.TotalDeposited, "40")
	decEq(t, snap.TotalYield, "3")
	decEq(t, snap.PortfolioValue, "43")
	if snap.StrategiesCount != 1 {
		t.Fatalf("strategies=%d want 1", snap.StrategiesCount)
	}
}

func TestSnapshotRunOnce_NoStats(t *testing.T) {
	f := newFixture()
	f.initialize(t)

	svc := &SnapshotService{Repo: f.repo, Flags: f.flags, Logger: zap.NewNop(), Clock: func() time.Time { return f.now }}
	written, err := svc.RunOnce(context.Background())
	if err != nil || written != 0 {
		t.Fatalf("written=%d err=%v want 0/nil", written, err)
	}
}

func TestSnapshotRunOnce_FeatureDisabled(t *testing.T) {
	f := newFixture()
	cfg := f.initialize(t)
	f.registerStrategy(t, "manager", "alpha")
	_ = cfg

	if err := f.flags.SetEnabled(context.Background(), FeatureSnapshots, false); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	svc := &SnapshotService{Repo: f.repo, Flags: f.flags, Logger: zap.NewNop(), Clock: func() time.Time { return f.now }}
	written, err := svc.RunOnce(context.Background())
	if err != nil || written != 0 {
		t.Fatalf("written=%d err=%v want 0/nil", written, err)
	}
}
