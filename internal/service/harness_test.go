package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chappie1998/jetson/internal/auth"
	"github.com/chappie1998/jetson/internal/bank"
	"github.com/chappie1998/jetson/internal/events"
	"github.com/chappie1998/jetson/internal/models"
	"github.com/chappie1998/jetson/internal/token"
)

const testAdmin = "admin"

// fixture wires the services over one shared in-memory repo and a real bank,
// with a clock the test can move.
type fixture struct {
	repo    *stubRepo
	hub     *events.Hub
	deriver auth.Deriver
	flags   *SystemSettingsService
	bank    *bank.Bank

	swaps    *SwapService
	strats   *StrategyService
	treasury *TreasuryService

	now time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newStubRepo(),
		deriver: auth.Deriver{Secret: []byte("test-derivation-secret")},
		now:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	logger := zap.NewNop()

	f.hub = events.NewHub(logger, 16)
	f.flags = &SystemSettingsService{Repo: f.repo}
	f.bank = &bank.Bank{Repo: f.repo, Logger: logger, Clock: clock}

	f.swaps = &SwapService{
		Repo: f.repo, Engine: f.bank, Registrar: f.bank,
		Hub: f.hub, Deriver: f.deriver, Flags: f.flags,
		Logger: logger, Clock: clock,
	}
	f.strats = &StrategyService{
		Repo: f.repo, Hub: f.hub, Deriver: f.deriver, Flags: f.flags,
		Logger: logger, Clock: clock,
	}
	f.treasury = &TreasuryService{
		Repo: f.repo, Hub: f.hub, Flags: f.flags,
		Logger: logger, Clock: clock,
	}
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) initialize(t *testing.T) *models.Config {
	t.Helper()
	cfg, err := f.swaps.Initialize(context.Background(), InitializeParams{Admin: testAdmin})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return cfg
}

// fundedAccounts creates a stable and a synthetic account for owner and
// credits the stable one by minting from the admin mint authority.
func (f *fixture) fundedAccounts(t *testing.T, cfg *models.Config, owner string, stable decimal.Decimal) (stableAcct, syntheticAcct string) {
	t.Helper()
	ctx := context.Background()
	sa, err := f.bank.CreateAccount(ctx, nil, cfg.StableMint, owner)
	if err != nil {
		t.Fatalf("create stable account: %v", err)
	}
	ya, err := f.bank.CreateAccount(ctx, nil, cfg.SyntheticMint, owner)
	if err != nil {
		t.Fatalf("create synthetic account: %v", err)
	}
	if stable.IsPositive() {
		if err := f.bank.MintTo(ctx, nil, cfg.StableMint, sa.Address, token.Authority{Address: testAdmin}, stable); err != nil {
			t.Fatalf("fund stable account: %v", err)
		}
	}
	return sa.Address, ya.Address
}

func (f *fixture) balance(t *testing.T, address string) decimal.Decimal {
	t.Helper()
	acct, err := f.repo.GetTokenAccount(context.Background(), address)
	if err != nil || acct == nil {
		t.Fatalf("account %s not found (err=%v)", address, err)
	}
	return acct.Balance
}

func (f *fixture) registerStrategy(t *testing.T, authority, seed string) *models.Strategy {
	t.Helper()
	strat, err := f.strats.InitializeStrategy(context.Background(), authority, StrategyParams{
		Seed:          seed,
		Type:          "lending",
		AllocationPct: 25,
		TargetAPYBps:  800,
		RiskScore:     30,
	})
	if err != nil {
		t.Fatalf("register strategy: %v", err)
	}
	return strat
}

func (f *fixture) lastEvent(t *testing.T) models.LedgerEvent {
	t.Helper()
	if len(f.repo.events) == 0 {
		t.Fatalf("no ledger events recorded")
	}
	return f.repo.events[len(f.repo.events)-1]
}

func decEq(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("got %s want %s", got.String(), want)
	}
}
