package bank

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/chappie1998/jetson/internal/models"
	"github.com/chappie1998/jetson/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Only the token-ledger methods carry real behavior; the rest are no-ops.
type stubRepo struct {
	mints    map[string]models.TokenMint
	accounts map[string]models.TokenAccount
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		mints:    map[string]models.TokenMint{},
		accounts: map[string]models.TokenAccount{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) CreateTokenMintTx(ctx context.Context, tx *gorm.DB, item *models.TokenMint) error {
	if _, ok := s.mints[item.Address]; ok {
		return repository.ErrDuplicate
	}
	for _, m := range s.mints {
		if m.Symbol == item.Symbol {
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
	if m, ok := s.mints[strings.TrimSpace(address)]; ok {
		return &m, nil
	}
	return nil, nil
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
	if a, ok := s.accounts[strings.TrimSpace(address)]; ok {
		return &a, nil
	}
	return nil, nil
}

func (s *stubRepo) GetTokenAccountsForUpdateTx(ctx context.Context, tx *gorm.DB, addresses []string) ([]models.TokenAccount, error) {
	uniq := map[string]struct{}{}
	var out []models.TokenAccount
	for _, raw := range addresses {
		addr := strings.TrimSpace(raw)
		if addr == "" {
			continue
		}
		if _, ok := uniq[addr]; ok {
			continue
		}
		uniq[addr] = struct{}{}
		if a, ok := s.accounts[addr]; ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (s *stubRepo) ListTokenAccounts(ctx context.Context, params repository.ListTokenAccountsParams) ([]models.TokenAccount, error) {
	return nil, nil
}

func (s *stubRepo) CreateConfigTx(ctx context.Context, tx *gorm.DB, item *models.Config) error {
	return nil
}
func (s *stubRepo) GetConfig(ctx context.Context) (*models.Config, error) { return nil, nil }
func (s *stubRepo) GetConfigTx(ctx context.Context, tx *gorm.DB) (*models.Config, error) {
	return nil, nil
}
func (s *stubRepo) GetConfigForUpdateTx(ctx context.Context, tx *gorm.DB) (*models.Config, error) {
	return nil, nil
}
func (s *stubRepo) CreateStrategyTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error {
	return nil
}
func (s *stubRepo) SaveStrategyTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error {
	return nil
}
func (s *stubRepo) GetStrategyByAddress(ctx context.Context, address string) (*models.Strategy, error) {
	return nil, nil
}
func (s *stubRepo) GetStrategyForUpdateTx(ctx context.Context, tx *gorm.DB, address string) (*models.Strategy, error) {
	return nil, nil
}
func (s *stubRepo) ListStrategies(ctx context.Context, params repository.ListStrategiesParams) ([]models.Strategy, error) {
	return nil, nil
}
func (s *stubRepo) CountStrategies(ctx context.Context, params repository.ListStrategiesParams) (int64, error) {
	return 0, nil
}
func (s *stubRepo) StrategyCounts(ctx context.Context, treasury string) (repository.StrategyCounts, error) {
	return repository.StrategyCounts{}, nil
}
func (s *stubRepo) CreateTreasuryStatsTx(ctx context.Context, tx *gorm.DB, item *models.TreasuryStats) error {
	return nil
}
func (s *stubRepo) SaveTreasuryStatsTx(ctx context.Context, tx *gorm.DB, item *models.TreasuryStats) error {
	return nil
}
func (s *stubRepo) GetTreasuryStats(ctx context.Context, treasury string) (*models.TreasuryStats, error) {
	return nil, nil
}
func (s *stubRepo) GetTreasuryStatsForUpdateTx(ctx context.Context, tx *gorm.DB, treasury string) (*models.TreasuryStats, error) {
	return nil, nil
}
func (s *stubRepo) ListTreasuryStats(ctx context.Context) ([]models.TreasuryStats, error) {
	return nil, nil
}
func (s *stubRepo) InsertLedgerEventsTx(ctx context.Context, tx *gorm.DB, items []models.LedgerEvent) error {
	return nil
}
func (s *stubRepo) ListLedgerEvents(ctx context.Context, params repository.ListLedgerEventsParams) ([]models.LedgerEvent, error) {
	return nil, nil
}
func (s *stubRepo) CountLedgerEvents(ctx context.Context, params repository.ListLedgerEventsParams) (int64, error) {
	return 0, nil
}
func (s *stubRepo) InsertTreasurySnapshot(ctx context.Context, item *models.TreasurySnapshot) error {
	return nil
}
func (s *stubRepo) ListTreasurySnapshots(ctx context.Context, params repository.ListTreasurySnapshotsParams) ([]models.TreasurySnapshot, error) {
	return nil, nil
}
func (s *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	return nil
}
func (s *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	return nil, nil
}
func (s *stubRepo) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	return nil, nil
}
func (s *stubRepo) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	return 0, nil
}

var _ repository.Repository = (*stubRepo)(nil)
