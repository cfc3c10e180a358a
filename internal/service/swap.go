package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chappie1998/jetson/internal/auth"
	"github.com/chappie1998/jetson/internal/events"
	"github.com/chappie1998/jetson/internal/ledger"
	"github.com/chappie1998/jetson/internal/metrics"
	"github.com/chappie1998/jetson/internal/models"
	"github.com/chappie1998/jetson/internal/repository"
	"github.com/chappie1998/jetson/internal/token"
)

// SwapService owns the stable/synthetic exchange: one-time ledger
// initialization and the two 1:1 swap directions. Deposited stable tokens sit
// in the treasury custody account; synthetic supply is minted and burned to
// mirror it.
type SwapService struct {
	Repo      repository.Repository
	Engine    token.Engine
	Registrar token.Registrar
	Hub       *events.Hub
	Deriver   auth.Deriver
	Flags     *SystemSettingsService
	Logger    *zap.Logger
	Clock     ledger.Clock
}

// InitializeParams seeds the one-row ledger config. Symbols default to
// USDC/USDS when left empty.
type InitializeParams struct {
	Admin           string
	StableSymbol    string
	SyntheticSymbol string
}

// SwapParams carries one swap leg. Source is debited, destination credited;
// both must be owned by the caller.
type SwapParams struct {
	SourceAccount string
	DestAccount   string
	Amount        decimal.Decimal
}

// Initialize derives the treasury and mint-authority addresses, creates the
// two mints plus the treasury custody account, and persists the config row.
// It is a one-shot operation; a second call fails with ErrConfigExists.
func (s *SwapService) Initialize(ctx context.Context, p InitializeParams) (*models.Config, error) {
	if s == nil || s.Repo == nil || s.Registrar == nil {
		return nil, errors.New("swap service is not configured")
	}
	admin := strings.TrimSpace(p.Admin)
	if admin == "" {
		return nil, ledger.Validationf("invalid_admin", "admin address is required")
	}
	stableSymbol := strings.TrimSpace(p.StableSymbol)
	if stableSymbol == "" {
		stableSymbol = "USDC"
	}
	syntheticSymbol := strings.TrimSpace(p.SyntheticSymbol)
	if syntheticSymbol == "" {
		syntheticSymbol = "USDS"
	}

	treasury, err := s.Deriver.Derive(auth.DomainTreasury)
	if err != nil {
		return nil, err
	}
	mintAuthority, err := s.Deriver.Derive(auth.DomainMintAuthority)
	if err != nil {
		return nil, err
	}

	var cfg *models.Config
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		existing, err := s.Repo.GetConfigTx(ctx, tx)
		if err != nil {
			return err
		}
		if existing != nil {
			return ledger.ErrConfigExists
		}

		stable, err := s.Registrar.CreateMint(ctx, tx, stableSymbol, admin, 6)
		if err != nil {
			return err
		}
		synthetic, err := s.Registrar.CreateMint(ctx, tx, syntheticSymbol, mintAuthority.Address, 6)
		if err != nil {
			return err
		}
		custody, err := s.Registrar.CreateAccount(ctx, tx, stable.Address, treasury.Address)
		if err != nil {
			return err
		}

		now := ledger.NowUTC(s.Clock)
		cfg = &models.Config{
			StableMint:           stable.Address,
			SyntheticMint:        synthetic.Address,
			Treasury:             treasury.Address,
			TreasuryTokenAccount: custody.Address,
			MintAuthority:        mintAuthority.Address,
			TreasuryBump:         treasury.Bump,
			MintAuthorityBump:    mintAuthority.Bump,
			Admin:                admin,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := s.Repo.CreateConfigTx(ctx, tx, cfg); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ledger.ErrConfigExists
			}
			return err
		}
		return nil
	})
	observe("initialize", err)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("ledger initialized",
			zap.String("treasury", cfg.Treasury),
			zap.String("stable_mint", cfg.StableMint),
			zap.String("synthetic_mint", cfg.SyntheticMint),
			zap.String("admin", cfg.Admin))
	}
	return cfg, nil
}

// StableToSynthetic deposits stable tokens into the treasury custody account
// and mints the same amount of synthetic tokens to the caller. Both legs run
// in one transaction.
func (s *SwapService) StableToSynthetic(ctx context.Context, caller string, p SwapParams) (*models.LedgerEvent, error) {
	return s.swap(ctx, caller, p, true)
}

// SyntheticToStable burns synthetic tokens from the caller and releases the
// same amount of stable tokens from the treasury custody account.
func (s *SwapService) SyntheticToStable(ctx context.Context, caller string, p SwapParams) (*models.LedgerEvent, error) {
	return s.swap(ctx, caller, p, false)
}

func (s *SwapService) swap(ctx context.Context, caller string, p SwapParams, toSynthetic bool) (*models.LedgerEvent, error) {
	direction := ledger.SwapSyntheticToStable
	op := "swap_synthetic_to_stable"
	if toSynthetic {
		direction = ledger.SwapStableToSynthetic
		op = "swap_stable_to_synthetic"
	}

	rows, err := s.runSwap(ctx, caller, p, toSynthetic, direction)
	observe(op, err)
	if err != nil {
		return nil, err
	}

	publish(s.Hub, rows)
	metrics.SwapsTotal.WithLabelValues(direction).Inc()
	metrics.SwapVolume.WithLabelValues(direction).Add(p.Amount.InexactFloat64())
	if s.Logger != nil {
		s.Logger.Info("swap executed",
			zap.String("direction", direction),
			zap.String("caller", caller),
			zap.String("amount", p.Amount.String()))
	}
	return &rows[0], nil
}

func (s *SwapService) runSwap(ctx context.Context, caller string, p SwapParams, toSynthetic bool, direction string) ([]models.LedgerEvent, error) {
	if s == nil || s.Repo == nil || s.Engine == nil {
		return nil, errors.New("swap service is not configured")
	}
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, ledger.ErrUnauthorized
	}
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureSwaps, true) {
		return nil, ledger.FeatureDisabled(FeatureSwaps)
	}
	if !p.Amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}
	src := strings.TrimSpace(p.SourceAccount)
	dst := strings.TrimSpace(p.DestAccount)
	if src == "" || dst == "" {
		return nil, ledger.Validationf("invalid_account", "source and destination accounts are required")
	}

	var rows []models.LedgerEvent
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		// The config row lock serializes swaps. Without it two swaps in
		// opposite directions can lock the shared custody account and mint
		// rows in conflicting orders.
		cfg, err := s.Repo.GetConfigForUpdateTx(ctx, tx)
		if err != nil {
			return err
		}
		if cfg == nil {
			return ledger.ErrConfigNotFound
		}

		if err := s.checkOwnership(ctx, tx, dst, caller); err != nil {
			return err
		}

		if toSynthetic {
			err = s.depositAndMint(ctx, tx, cfg, caller, src, dst, p.Amount)
		} else {
			err = s.burnAndRelease(ctx, tx, cfg, caller, src, dst, p.Amount)
		}
		if err != nil {
			return err
		}

		now := ledger.NowUTC(s.Clock)
		if err := s.noteSwap(ctx, tx, cfg.Treasury, p.Amount, toSynthetic, now); err != nil {
			return err
		}

		rows = []models.LedgerEvent{events.NewSwap(cfg.Treasury, caller, events.SwapPayload{
			Direction:     direction,
			Amount:        p.Amount,
			StableMint:    cfg.StableMint,
			SyntheticMint: cfg.SyntheticMint,
			Caller:        caller,
		}, now)}
		return s.Repo.InsertLedgerEventsTx(ctx, tx, rows)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SwapService) depositAndMint(ctx context.Context, tx *gorm.DB, cfg *models.Config, caller, src, dst string, amount decimal.Decimal) error {
	if err := s.Engine.Transfer(ctx, tx, cfg.StableMint, src, cfg.TreasuryTokenAccount, token.Authority{Address: caller}, amount); err != nil {
		return ledger.Collaborator("transfer", err)
	}
	minter, err := s.mintAuthority(cfg)
	if err != nil {
		return err
	}
	if err := s.Engine.MintTo(ctx, tx, cfg.SyntheticMint, dst, minter, amount); err != nil {
		return ledger.Collaborator("mint", err)
	}
	return nil
}

func (s *SwapService) burnAndRelease(ctx context.Context, tx *gorm.DB, cfg *models.Config, caller, src, dst string, amount decimal.Decimal) error {
	if err := s.Engine.Burn(ctx, tx, cfg.SyntheticMint, src, token.Authority{Address: caller}, amount); err != nil {
		return ledger.Collaborator("burn", err)
	}
	treasurer, err := s.treasuryAuthority(cfg)
	if err != nil {
		return err
	}
	if err := s.Engine.Transfer(ctx, tx, cfg.StableMint, cfg.TreasuryTokenAccount, dst, treasurer, amount); err != nil {
		return ledger.Collaborator("transfer", err)
	}
	return nil
}

// checkOwnership rejects swaps whose credited account belongs to someone
// else. The debited side is already covered by the engine's authority checks.
func (s *SwapService) checkOwnership(ctx context.Context, tx *gorm.DB, address, caller string) error {
	accounts, err := s.Repo.GetTokenAccountsForUpdateTx(ctx, tx, []string{address})
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return ledger.Validationf("unknown_account", "token account %s does not exist", address)
	}
	if accounts[0].Owner != caller {
		return ledger.ErrUnauthorized
	}
	return nil
}

// noteSwap tracks lifetime deposit/withdraw totals. The stats row only exists
// once the first strategy registered, so swaps before that point move tokens
// without touching stats.
func (s *SwapService) noteSwap(ctx context.Context, tx *gorm.DB, treasury string, amount decimal.Decimal, deposit bool, now time.Time) error {
	stats, err := s.Repo.GetTreasuryStatsForUpdateTx(ctx, tx, treasury)
	if err != nil || stats == nil {
		return err
	}
	if deposit {
		stats.TotalStableDeposited = ledger.SatAdd(stats.TotalStableDeposited, amount)
	} else {
		stats.TotalStableWithdrawn = ledger.SatAdd(stats.TotalStableWithdrawn, amount)
	}
	stats.LastUpdatedAt = now
	return s.Repo.SaveTreasuryStatsTx(ctx, tx, stats)
}

func (s *SwapService) mintAuthority(cfg *models.Config) (token.Authority, error) {
	d, err := s.Deriver.Derive(auth.DomainMintAuthority)
	if err != nil {
		return token.Authority{}, err
	}
	if d.Address != cfg.MintAuthority {
		return token.Authority{}, fmt.Errorf("derived mint authority %s does not match config %s, derivation secret changed since initialization", d.Address, cfg.MintAuthority)
	}
	return token.Authority{Address: d.Address, Credential: d.Credential}, nil
}

func (s *SwapService) treasuryAuthority(cfg *models.Config) (token.Authority, error) {
	d, err := s.Deriver.Derive(auth.DomainTreasury)
	if err != nil {
		return token.Authority{}, err
	}
	if d.Address != cfg.Treasury {
		return token.Authority{}, fmt.Errorf("derived treasury %s does not match config %s, derivation secret changed since initialization", d.Address, cfg.Treasury)
	}
	return token.Authority{Address: d.Address, Credential: d.Credential}, nil
}
