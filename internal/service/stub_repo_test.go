package service

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/chappie1998/jetson/internal/ledger"
	"github.com/chappie1998/jetson/internal/models"
	"github.com/chappie1998/jetson/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Unlike the usual no-op stub it keeps real state for everything the
// services write, so one stub backs swap, strategy, treasury and cron tests.
type stubRepo struct {
	config     *models.Config
	strategies map[string]models.Strategy
	stats      map[string]models.TreasuryStats
	events     []models.LedgerEvent
	mints      map[string]models.TokenMint
	accounts   map[string]models.TokenAccount
	snapshots  []models.TreasurySnapshot
	settings   map[string]models.SystemSetting

	nextEventID    uint64
	nextStrategyID uint64
	nextStatsID    uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		strategies: map[string]models.Strategy{},
		stats:      map[string]models.TreasuryStats{},
		mints:      map[string]models.TokenMint{},
		accounts:   map[string]models.TokenAccount{},
		settings:   map[string]models.SystemSetting{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

// --- Config ---

func (s *stubRepo) CreateConfigTx(ctx context.Context, tx *gorm.DB, item *models.Config) error {
	if s.config != nil {
		return repository.ErrDuplicate
	}
	item.ID = models.ConfigID
	cp := *item
	s.config = &cp
	return nil
}

func (s *stubRepo) GetConfig(ctx context.Context) (*models.Config, error) {
	if s.config == nil {
		return nil, nil
	}
	cp := *s.config
	return &cp, nil
}

func (s *stubRepo) GetConfigTx(ctx context.Context, tx *gorm.DB) (*models.Config, error) {
	return s.GetConfig(ctx)
}

func (s *stubRepo) GetConfigForUpdateTx(ctx context.Context, tx *gorm.DB) (*models.Config, error) {
	return s.GetConfig(ctx)
}

// --- Strategies ---

func (s *stubRepo) CreateStrategyTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error {
	if _, ok := s.strategies[item.Address]; ok {
		return repository.ErrDuplicate
	}
	s.nextStrategyID++
	item.ID = s.nextStrategyID
	s.strategies[item.Address] = *item
	return nil
}

func (s *stubRepo) SaveStrategyTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error {
	s.strategies[item.Address] = *item
	return nil
}

func (s *stubRepo) GetStrategyByAddress(ctx context.Context, address string) (*models.Strategy, error) {
	item, ok := s.strategies[strings.TrimSpace(address)]
	if !ok {
		return nil, nil
	}
	cp := item
	return &cp, nil
}

func (s *stubRepo) GetStrategyForUpdateTx(ctx context.Context, tx *gorm.DB, address string) (*models.Strategy, error) {
	return s.GetStrategyByAddress(ctx, address)
}

func (s *stubRepo) ListStrategies(ctx context.Context, params repository.ListStrategiesParams) ([]models.Strategy, error) {
	var out []models.Strategy
	for _, item := range s.strategies {
		if params.State != nil && string(item.State) != *params.State {
			continue
		}
		if params.Type != nil && string(item.Type) != *params.Type {
			continue
		}
		if params.Authority != nil && item.Authority != *params.Authority {
			continue
		}
		if params.Treasury != nil && item.Treasury != *params.Treasury {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) CountStrategies(ctx context.Context, params repository.ListStrategiesParams) (int64, error) {
	items, _ := s.ListStrategies(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) StrategyCounts(ctx context.Context, treasury string) (repository.StrategyCounts, error) {
	var out repository.StrategyCounts
	for _, item := range s.strategies {
		if treasury != "" && item.Treasury != treasury {
			continue
		}
		out.Total++
		if item.State == ledger.StateActive {
			out.Active++
		}
	}
	return out, nil
}

// --- Treasury stats ---

func (s *stubRepo) CreateTreasuryStatsTx(ctx context.Context, tx *gorm.DB, item *models.TreasuryStats) error {
	if _, ok := s.stats[item.Treasury]; ok {
		return repository.ErrDuplicate
	}
	s.nextStatsID++
	item.ID = s.nextStatsID
	s.stats[item.Treasury] = *item
	return nil
}

func (s *stubRepo) SaveTreasuryStatsTx(ctx context.Context, tx *gorm.DB, item *models.TreasuryStats) error {
	s.stats[item.Treasury] = *item
	return nil
}

func (s *stubRepo) GetTreasuryStats(ctx context.Context, treasury string) (*models.TreasuryStats, error) {
	item, ok := s.stats[strings.TrimSpace(treasury)]
	if !ok {
		return nil, nil
	}
	cp := item
	return &cp, nil
}

func (s *stubRepo) GetTreasuryStatsForUpdateTx(ctx context.Context, tx *gorm.DB, treasury string) (*models.TreasuryStats, error) {
	return s.GetTreasuryStats(ctx, treasury)
}

func (s *stubRepo) ListTreasuryStats(ctx context.Context) ([]models.TreasuryStats, error) {
	var out []models.TreasuryStats
	for _, item := range s.stats {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Ledger events ---

func (s *stubRepo) InsertLedgerEventsTx(ctx context.Context, tx *gorm.DB, items []models.LedgerEvent) error {
	for i := range items {
		s.nextEventID++
		items[i].ID = s.nextEventID
		s.events = append(s.events, items[i])
	}
	return nil
}

func (s *stubRepo) ListLedgerEvents(ctx context.Context, params repository.ListLedgerEventsParams) ([]models.LedgerEvent, error) {
	var out []models.LedgerEvent
	for _, item := range s.events {
		if params.Kind != nil && item.Kind != *params.Kind {
			continue
		}
		if params.Treasury != nil && item.Treasury != *params.Treasury {
			continue
		}
		if params.AfterID != nil && item.ID <= *params.AfterID {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *stubRepo) CountLedgerEvents(ctx context.Context, params repository.ListLedgerEventsParams) (int64, error) {
	items, _ := s.ListLedgerEvents(ctx, params)
	return int64(len(items)), nil
}

// --- Token ledger ---

func (s *stubRepo) CreateTokenMintTx(ctx context.Context, tx *gorm.DB, item *models.TokenMint) error {
	if _, ok := s.mints[item.Address]; ok {
		return repository.ErrDuplicate
	}
	for _, existing := range s.mints {
		if existing.Symbol == item.Symbol {
			return repository.ErrDuplicate
		}
	}
	s.mints[item.Address] = *item
	return nil
}

func (s *stubRepo) SaveTokenMintTx(ctx context.Context, tx *gorm.DB, item *models.TokenMint) error {
	s.mints[item.Address] = *item
	return nil
}

func (s *stubRepo) GetTokenMint(ctx context.Context, address string) (*models.TokenMint, error) {
	item, ok := s.mints[strings.TrimSpace(address)]
	if !ok {
		return nil, nil
	}
	cp := item
	return &cp, nil
}

func (s *stubRepo) GetTokenMintForUpdateTx(ctx context.Context, tx *gorm.DB, address string) (*models.TokenMint, error) {
	return s.GetTokenMint(ctx, address)
}

func (s *stubRepo) CreateTokenAccountTx(ctx context.Context, tx *gorm.DB, item *models.TokenAccount) error {
	if _, ok := s.accounts[item.Address]; ok {
		return repository.ErrDuplicate
	}
	s.accounts[item.Address] = *item
	return nil
}

func (s *stubRepo) SaveTokenAccountTx(ctx context.Context, tx *gorm.DB, item *models.TokenAccount) error {
	s.accounts[item.Address] = *item
	return nil
}

func (s *stubRepo) GetTokenAccount(ctx context.Context, address string) (*models.TokenAccount, error) {
	item, ok := s.accounts[strings.TrimSpace(address)]
	if !ok {
		return nil, nil
	}
	cp := item
	return &cp, nil
}

func (s *stubRepo) GetTokenAccountsForUpdateTx(ctx context.Context, tx *gorm.DB, addresses []string) ([]models.TokenAccount, error) {
	seen := map[string]struct{}{}
	var addrs []string
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	var out []models.TokenAccount
	for _, a := range addrs {
		if item, ok := s.accounts[a]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubRepo) ListTokenAccounts(ctx context.Context, params repository.ListTokenAccountsParams) ([]models.TokenAccount, error) {
	var out []models.TokenAccount
	for _, item := range s.accounts {
		if params.Mint != nil && item.Mint != *params.Mint {
			continue
		}
		if params.Owner != nil && item.Owner != *params.Owner {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// --- Snapshots ---

func (s *stubRepo) InsertTreasurySnapshot(ctx context.Context, item *models.TreasurySnapshot) error {
	item.ID = uint64(len(s.snapshots) + 1)
	s.snapshots = append(s.snapshots, *item)
	return nil
}

func (s *stubRepo) ListTreasurySnapshots(ctx context.Context, params repository.ListTreasurySnapshotsParams) ([]models.TreasurySnapshot, error) {
	var out []models.TreasurySnapshot
	for _, item := range s.snapshots {
		if params.Treasury != nil && item.Treasury != *params.Treasury {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// --- System settings ---

func (s *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	s.settings[item.Key] = *item
	return nil
}

func (s *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	item, ok := s.settings[strings.TrimSpace(key)]
	if !ok {
		return nil, nil
	}
	cp := item
	return &cp, nil
}

func (s *stubRepo) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	var out []models.SystemSetting
	for _, item := range s.settings {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *stubRepo) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	return int64(len(s.settings)), nil
}

var _ repository.Repository = (*stubRepo)(nil)
