package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/chappie1998/jetson/internal/models"
)

// ErrDuplicate is returned by Create* methods when a uniqueness rule is hit
// (config already initialized, strategy address taken, account exists).
// Services translate it into the matching domain conflict error.
var ErrDuplicate = errors.New("repository: duplicate key")

// Repository is the single persistence surface. Methods with a Tx suffix
// participate in a caller-owned transaction (opened via InTx) so that one
// ledger operation commits or aborts as a whole; the rest run standalone.
// Get* methods return (nil, nil) when the record does not exist.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Swap config (singleton)
	CreateConfigTx(ctx context.Context, tx *gorm.DB, item *models.Config) error
	GetConfig(ctx context.Context) (*models.Config, error)
	GetConfigTx(ctx context.Context, tx *gorm.DB) (*models.Config, error)
	GetConfigForUpdateTx(ctx context.Context, tx *gorm.DB) (*models.Config, error)

	// Strategies
	CreateStrategyTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error
	SaveStrategyTx(ctx context.Context, tx *gorm.DB, item *models.Strategy) error
	GetStrategyByAddress(ctx context.Context, address string) (*models.Strategy, error)
	GetStrategyForUpdateTx(ctx context.Context, tx *gorm.DB, address string) (*models.Strategy, error)
	ListStrategies(ctx context.Context, params ListStrategiesParams) ([]models.Strategy, error)
	CountStrategies(ctx context.Context, params ListStrategiesParams) (int64, error)
	StrategyCounts(ctx context.Context, treasury string) (StrategyCounts, error)

	// Treasury stats
	CreateTreasuryStatsTx(ctx context.Context, tx *gorm.DB, item *models.TreasuryStats) error
	SaveTreasuryStatsTx(ctx context.Context, tx *gorm.DB, item *models.TreasuryStats) error
	GetTreasuryStats(ctx context.Context, treasury string) (*models.TreasuryStats, error)
	GetTreasuryStatsForUpdateTx(ctx context.Context, tx *gorm.DB, treasury string) (*models.TreasuryStats, error)
	ListTreasuryStats(ctx context.Context) ([]models.TreasuryStats, error)

	// Ledger events (append-only outbox)
	InsertLedgerEventsTx(ctx context.Context, tx *gorm.DB, items []models.LedgerEvent) error
	ListLedgerEvents(ctx context.Context, params ListLedgerEventsParams) ([]models.LedgerEvent, error)
	CountLedgerEvents(ctx context.Context, params ListLedgerEventsParams) (int64, error)

	// Token ledger
	CreateTokenMintTx(ctx context.Context, tx *gorm.DB, item *models.TokenMint) error
	SaveTokenMintTx(ctx context.Context, tx *gorm.DB, item *models.TokenMint) error
	GetTokenMint(ctx context.Context, address string) (*models.TokenMint, error)
	GetTokenMintForUpdateTx(ctx context.Context, tx *gorm.DB, address string) (*models.TokenMint, error)
	CreateTokenAccountTx(ctx context.Context, tx *gorm.DB, item *models.TokenAccount) error
	SaveTokenAccountTx(ctx context.Context, tx *gorm.DB, item *models.TokenAccount) error
	GetTokenAccount(ctx context.Context, address string) (*models.TokenAccount, error)
	GetTokenAccountsForUpdateTx(ctx context.Context, tx *gorm.DB, addresses []string) ([]models.TokenAccount, error)
	ListTokenAccounts(ctx context.Context, params ListTokenAccountsParams) ([]models.TokenAccount, error)

	// Snapshots
	InsertTreasurySnapshot(ctx context.Context, item *models.TreasurySnapshot) error
	ListTreasurySnapshots(ctx context.Context, params ListTreasurySnapshotsParams) ([]models.TreasurySnapshot, error)

	// System settings
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
	CountSystemSettings(ctx context.Context, params ListSystemSettingsParams) (int64, error)
}

// StrategyCounts is the recount the reconciler compares against TreasuryStats.
type StrategyCounts struct {
	Total  int64
	Active int64
}

type ListStrategiesParams struct {
	Limit     int
	Offset    int
	State     *string
	Type      *string
	Authority *string
	Treasury  *string
	OrderBy   string
	Asc       *bool
}

type ListLedgerEventsParams struct {
	Limit    int
	Offset   int
	Kind     *string
	Treasury *string
	Strategy *string
	Actor    *string
	Since    *time.Time
	AfterID  *uint64
	OrderBy  string
	Asc      *bool
}

type ListTokenAccountsParams struct {
	Limit  int
	Offset int
	Mint   *string
	Owner  *string
}

type ListTreasurySnapshotsParams struct {
	Limit    int
	Offset   int
	Treasury *string
	Since    *time.Time
	Until    *time.Time
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}
