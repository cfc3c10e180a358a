package gormrepository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chappie1998/jetson/internal/ledger"
	"github.com/chappie1998/jetson/internal/models"
	"github.com/chappie1998/jetson/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Swap config -------------------------------------------------------------

func (s *Store) CreateConfigTx(ctx context.Context, tx *gorm.DB, item *models.Config) error {
	if item == nil {
		return nil
	}
	item.ID = models.ConfigID
	return mapDuplicate(tx.WithContext(ctx).Create(item).Error)
}

func (s *Store) GetConfig(ctx context.Context) (*models.Config, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return getConfig(s.db.WithContext(ctx))
}

func (s *Store) GetConfigTx(ctx context.Context, tx *gorm.DB) (*models.Config, error) {
	return getConfig(tx.WithContext(ctx))
}

// GetConfigForUpdateTx locks the config row. Swaps take this lock first so
// that concurrent mint and burn legs touching the same accounts cannot
// deadlock each other.
func (s *Store) GetConfigForUpdateTx(ctx context.Context, tx *gorm.DB) (*models.Config, error) {
	return getConfig(tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}))
}

func getConfig(db *gorm.DB) (*models.Config, error) {
	var item models.Config
	err := db.Model(&models.Config{}).Where("id = ?", models.ConfigID).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Strategies --------------------------------------------------------------

func (s *Store) CreateStrategyTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error {
	if item == nil {
		return nil
	}
	return mapDuplicate(tx.WithContext(ctx).Create(item).Error)
}

func (s *Store) SaveStrategyTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error {
	if item == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(item).Error
}

func (s *Store) GetStrategyByAddress(ctx context.Context, address string) (*models.Strategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return getStrategy(s.db.WithContext(ctx), address)
}

func (s *Store) GetStrategyForUpdateTx(ctx context.Context, tx *gorm.DB, address string) (*models.Strategy, error) {
	return getStrategy(tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), address)
}

func getStrategy(db *gorm.DB, address string) (*models.Strategy, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}
	var item models.Strategy
	err := db.Model(&models.Strategy{}).Where("address = ?", address).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListStrategies(ctx context.Context, params repository.ListStrategiesParams) ([]models.Strategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := strategyFilters(s.db.WithContext(ctx).Model(&models.Strategy{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Strategy
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountStrategies(ctx context.Context, params repository.ListStrategiesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := strategyFilters(s.db.WithContext(ctx).Model(&models.Strategy{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func strategyFilters(query *gorm.DB, params repository.ListStrategiesParams) *gorm.DB {
	if params.State != nil && strings.TrimSpace(*params.State) != "" {
		query = query.Where("state = ?", strings.TrimSpace(*params.State))
	}
	if params.Type != nil && strings.TrimSpace(*params.Type) != "" {
		query = query.Where("type = ?", strings.TrimSpace(*params.Type))
	}
	if params.Authority != nil && strings.TrimSpace(*params.Authority) != "" {
		query = query.Where("authority = ?", strings.TrimSpace(*params.Authority))
	}
	if params.Treasury != nil && strings.TrimSpace(*params.Treasury) != "" {
		query = query.Where("treasury = ?", strings.TrimSpace(*params.Treasury))
	}
	return query
}

func (s *Store) StrategyCounts(ctx context.Context, treasury string) (repository.StrategyCounts, error) {
	if s == nil || s.db == nil {
		return repository.StrategyCounts{}, nil
	}
	treasury = strings.TrimSpace(treasury)
	if treasury == "" {
		return repository.StrategyCounts{}, nil
	}
	var row struct {
		Total  int64
		Active int64
	}
	err := s.db.WithContext(ctx).
		Table("strategies").
		Select(`
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END),0) AS active
		`, string(ledger.StateActive)).
		Where("treasury = ?", treasury).
		Scan(&row).Error
	if err != nil {
		return repository.StrategyCounts{}, err
	}
	return repository.StrategyCounts{Total: row.Total, Active: row.Active}, nil
}

// --- Treasury stats ----------------------------------------------------------

func (s *Store) CreateTreasuryStatsTx(ctx context.Context, tx *gorm.DB, item *models.TreasuryStats) error {
	if item == nil {
		return nil
	}
	return mapDuplicate(tx.WithContext(ctx).Create(item).Error)
}

func (s *Store) SaveTreasuryStatsTx(ctx context.Context, tx *gorm.DB, item *models.TreasuryStats) error {
	if item == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(item).Error
}

func (s *Store) GetTreasuryStats(ctx context.Context, treasury string) (*models.TreasuryStats, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return getTreasuryStats(s.db.WithContext(ctx), treasury)
}

func (s *Store) GetTreasuryStatsForUpdateTx(ctx context.Context, tx *gorm.DB, treasury string) (*models.TreasuryStats, error) {
	return getTreasuryStats(tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), treasury)
}

func getTreasuryStats(db *gorm.DB, treasury string) (*models.TreasuryStats, error) {
	treasury = strings.TrimSpace(treasury)
	if treasury == "" {
		return nil, nil
	}
	var item models.TreasuryStats
	err := db.Model(&models.TreasuryStats{}).Where("treasury = ?", treasury).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTreasuryStats(ctx context.Context) ([]models.TreasuryStats, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TreasuryStats
	if err := s.db.WithContext(ctx).
		Model(&models.TreasuryStats{}).
		Order("treasury asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Ledger events -----------------------------------------------------------

func (s *Store) InsertLedgerEventsTx(ctx context.Context, tx *gorm.DB, items []models.LedgerEvent) error {
	if len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (s *Store) ListLedgerEvents(ctx context.Context, params repository.ListLedgerEventsParams) ([]models.LedgerEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := ledgerEventFilters(s.db.WithContext(ctx).Model(&models.LedgerEvent{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "id")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.LedgerEvent
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountLedgerEvents(ctx context.Context, params repository.ListLedgerEventsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := ledgerEventFilters(s.db.WithContext(ctx).Model(&models.LedgerEvent{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func ledgerEventFilters(query *gorm.DB, params repository.ListLedgerEventsParams) *gorm.DB {
	if params.Kind != nil && strings.TrimSpace(*params.Kind) != "" {
		query = query.Where("kind = ?", strings.TrimSpace(*params.Kind))
	}
	if params.Treasury != nil && strings.TrimSpace(*params.Treasury) != "" {
		query = query.Where("treasury = ?", strings.TrimSpace(*params.Treasury))
	}
	if params.Strategy != nil && strings.TrimSpace(*params.Strategy) != "" {
		query = query.Where("strategy = ?", strings.TrimSpace(*params.Strategy))
	}
	if params.Actor != nil && strings.TrimSpace(*params.Actor) != "" {
		query = query.Where("actor = ?", strings.TrimSpace(*params.Actor))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("emitted_at >= ?", *params.Since)
	}
	if params.AfterID != nil {
		query = query.Where("id > ?", *params.AfterID)
	}
	return query
}

// --- Token ledger ------------------------------------------------------------

func (s *Store) CreateTokenMintTx(ctx context.Context, tx *gorm.DB, item *models.TokenMint) error {
	if item == nil {
		return nil
	}
	return mapDuplicate(tx.WithContext(ctx).Create(item).Error)
}

func (s *Store) SaveTokenMintTx(ctx context.Context, tx *gorm.DB, item *models.TokenMint) error {
	if item == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(item).Error
}

func (s *Store) GetTokenMint(ctx context.Context, address string) (*models.TokenMint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return getTokenMint(s.db.WithContext(ctx), address)
}

func (s *Store) GetTokenMintForUpdateTx(ctx context.Context, tx *gorm.DB, address string) (*models.TokenMint, error) {
	return getTokenMint(tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), address)
}

func getTokenMint(db *gorm.DB, address string) (*models.TokenMint, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}
	var item models.TokenMint
	err := db.Model(&models.TokenMint{}).Where("address = ?", address).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateTokenAccountTx(ctx context.Context, tx *gorm.DB, item *models.TokenAccount) error {
	if item == nil {
		return nil
	}
	return mapDuplicate(tx.WithContext(ctx).Create(item).Error)
}

func (s *Store) SaveTokenAccountTx(ctx context.Context, tx *gorm.DB, item *models.TokenAccount) error {
	if item == nil {
		return nil
	}
	return tx.WithContext(ctx).Save(item).Error
}

func (s *Store) GetTokenAccount(ctx context.Context, address string) (*models.TokenAccount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}
	var item models.TokenAccount
	err := s.db.WithContext(ctx).Model(&models.TokenAccount{}).Where("address = ?", address).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetTokenAccountsForUpdateTx locks the rows in ascending address order, the
// one global order every writer uses, so concurrent swaps cannot deadlock.
func (s *Store) GetTokenAccountsForUpdateTx(ctx context.Context, tx *gorm.DB, addresses []string) ([]models.TokenAccount, error) {
	addrs := cleanStrings(addresses)
	if len(addrs) == 0 {
		return nil, nil
	}
	sort.Strings(addrs)
	var items []models.TokenAccount
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address IN ?", addrs).
		Order("address asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListTokenAccounts(ctx context.Context, params repository.ListTokenAccountsParams) ([]models.TokenAccount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TokenAccount{})
	if params.Mint != nil && strings.TrimSpace(*params.Mint) != "" {
		query = query.Where("mint = ?", strings.TrimSpace(*params.Mint))
	}
	if params.Owner != nil && strings.TrimSpace(*params.Owner) != "" {
		query = query.Where("owner = ?", strings.TrimSpace(*params.Owner))
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.TokenAccount
	if err := query.Order("address asc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Snapshots ---------------------------------------------------------------

func (s *Store) InsertTreasurySnapshot(ctx context.Context, item *models.TreasurySnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListTreasurySnapshots(ctx context.Context, params repository.ListTreasurySnapshotsParams) ([]models.TreasurySnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TreasurySnapshot{})
	if params.Treasury != nil && strings.TrimSpace(*params.Treasury) != "" {
		query = query.Where("treasury = ?", strings.TrimSpace(*params.Treasury))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("snapshot_at >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("snapshot_at <= ?", *params.Until)
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.TreasurySnapshot
	if err := query.Order("snapshot_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- System settings ---------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key ILIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.SystemSetting
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key ILIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- helpers -----------------------------------------------------------------

// mapDuplicate relies on the driver's TranslateError option being on so that
// unique violations surface as gorm.ErrDuplicatedKey.
func mapDuplicate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repository.ErrDuplicate
	}
	return err
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}

var _ repository.Repository = (*Store)(nil)
