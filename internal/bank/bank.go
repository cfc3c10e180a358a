package bank

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chappie1998/jetson/internal/auth"
	"github.com/chappie1998/jetson/internal/ledger"
	"github.com/chappie1998/jetson/internal/models"
	"github.com/chappie1998/jetson/internal/repository"
	"github.com/chappie1998/jetson/internal/token"
)

// Bank is the database-backed token ledger. It implements token.Engine and
// additionally creates mints and accounts. All balance mutations go through
// rows locked in ascending address order inside the caller's transaction.
type Bank struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Clock  ledger.Clock
}

func (b *Bank) Transfer(ctx context.Context, tx *gorm.DB, mint, from, to string, authority token.Authority, amount decimal.Decimal) error {
	if b == nil || b.Repo == nil {
		return nil
	}
	if !amount.IsPositive() {
		return token.ErrNonPositiveAmount
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == to {
		return token.ErrSameAccount
	}
	accounts, err := b.lockAccounts(ctx, tx, mint, from, to)
	if err != nil {
		return err
	}
	src, dst := accounts[from], accounts[to]
	if err := authorize(src.Owner, authority); err != nil {
		return err
	}
	if src.Balance.LessThan(amount) {
		return token.ErrInsufficientBalance
	}
	src.Balance = src.Balance.Sub(amount)
	dst.Balance = dst.Balance.Add(amount)
	if err := b.Repo.SaveTokenAccountTx(ctx, tx, src); err != nil {
		return err
	}
	return b.Repo.SaveTokenAccountTx(ctx, tx, dst)
}

func (b *Bank) MintTo(ctx context.Context, tx *gorm.DB, mint, to string, authority token.Authority, amount decimal.Decimal) error {
	if b == nil || b.Repo == nil {
		return nil
	}
	if !amount.IsPositive() {
		return token.ErrNonPositiveAmount
	}
	m, err := b.lockMint(ctx, tx, mint)
	if err != nil {
		return err
	}
	if err := authorizeMint(m.Authority, authority); err != nil {
		return err
	}
	accounts, err := b.lockAccounts(ctx, tx, mint, to)
	if err != nil {
		return err
	}
	dst := accounts[strings.TrimSpace(to)]
	dst.Balance = dst.Balance.Add(amount)
	m.Supply = m.Supply.Add(amount)
	if err := b.Repo.SaveTokenAccountTx(ctx, tx, dst); err != nil {
		return err
	}
	return b.Repo.SaveTokenMintTx(ctx, tx, m)
}

func (b *Bank) Burn(ctx context.Context, tx *gorm.DB, mint, from string, authority token.Authority, amount decimal.Decimal) error {
	if b == nil || b.Repo == nil {
		return nil
	}
	if !amount.IsPositive() {
		return token.ErrNonPositiveAmount
	}
	m, err := b.lockMint(ctx, tx, mint)
	if err != nil {
		return err
	}
	accounts, err := b.lockAccounts(ctx, tx, mint, from)
	if err != nil {
		return err
	}
	src := accounts[strings.TrimSpace(from)]
	if err := authorize(src.Owner, authority); err != nil {
		return err
	}
	if src.Balance.LessThan(amount) {
		return token.ErrInsufficientBalance
	}
	src.Balance = src.Balance.Sub(amount)
	m.Supply = ledger.SatAdd(m.Supply, amount.Neg())
	if err := b.Repo.SaveTokenAccountTx(ctx, tx, src); err != nil {
		return err
	}
	return b.Repo.SaveTokenMintTx(ctx, tx, m)
}

// CreateMint registers a new currency under the given authority address.
func (b *Bank) CreateMint(ctx context.Context, tx *gorm.DB, symbol, authority string, decimals int) (*models.TokenMint, error) {
	if b == nil || b.Repo == nil {
		return nil, nil
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	authority = strings.TrimSpace(authority)
	if symbol == "" || authority == "" {
		return nil, ledger.Validationf("invalid_mint", "symbol and authority are required")
	}
	if decimals < 0 || decimals > 18 {
		return nil, ledger.Validationf("invalid_mint", "decimals out of range: %d", decimals)
	}
	item := &models.TokenMint{
		Address:   newAddress(),
		Symbol:    symbol,
		Authority: authority,
		Supply:    decimal.Zero,
		Decimals:  decimals,
	}
	if err := b.Repo.CreateTokenMintTx(ctx, tx, item); err != nil {
		if err == repository.ErrDuplicate {
			return nil, ledger.Validationf("mint_exists", "mint symbol %s already registered", symbol)
		}
		return nil, err
	}
	if b.Logger != nil {
		b.Logger.Info("mint created", zap.String("symbol", symbol), zap.String("address", item.Address))
	}
	return item, nil
}

// CreateAccount opens a zero-balance account for owner in mint.
func (b *Bank) CreateAccount(ctx context.Context, tx *gorm.DB, mint, owner string) (*models.TokenAccount, error) {
	if b == nil || b.Repo == nil {
		return nil, nil
	}
	mint = strings.TrimSpace(mint)
	owner = strings.TrimSpace(owner)
	if mint == "" || owner == "" {
		return nil, ledger.Validationf("invalid_account", "mint and owner are required")
	}
	m, err := b.Repo.GetTokenMintForUpdateTx(ctx, tx, mint)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, token.ErrUnknownMint
	}
	item := &models.TokenAccount{
		Address: newAddress(),
		Mint:    mint,
		Owner:   owner,
		Balance: decimal.Zero,
	}
	if err := b.Repo.CreateTokenAccountTx(ctx, tx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (b *Bank) lockMint(ctx context.Context, tx *gorm.DB, mint string) (*models.TokenMint, error) {
	m, err := b.Repo.GetTokenMintForUpdateTx(ctx, tx, mint)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, token.ErrUnknownMint
	}
	return m, nil
}

// lockAccounts loads the requested accounts for update and checks every one
// belongs to mint and is live.
func (b *Bank) lockAccounts(ctx context.Context, tx *gorm.DB, mint string, addresses ...string) (map[string]*models.TokenAccount, error) {
	items, err := b.Repo.GetTokenAccountsForUpdateTx(ctx, tx, addresses)
	if err != nil {
		return nil, err
	}
	byAddr := make(map[string]*models.TokenAccount, len(items))
	for i := range items {
		byAddr[items[i].Address] = &items[i]
	}
	for _, raw := range addresses {
		addr := strings.TrimSpace(raw)
		acct, ok := byAddr[addr]
		if !ok {
			return nil, token.ErrUnknownAccount
		}
		if acct.Mint != mint {
			return nil, token.ErrMintMismatch
		}
		if acct.Frozen {
			return nil, token.ErrFrozenAccount
		}
	}
	return byAddr, nil
}

func authorize(owner string, a token.Authority) error {
	if len(a.Credential) > 0 && !auth.VerifyCredential(a.Credential, a.Address) {
		return token.ErrBadCredential
	}
	if a.Address != owner {
		return token.ErrNotOwner
	}
	return nil
}

func authorizeMint(mintAuthority string, a token.Authority) error {
	if len(a.Credential) > 0 && !auth.VerifyCredential(a.Credential, a.Address) {
		return token.ErrBadCredential
	}
	if a.Address != mintAuthority {
		return token.ErrNotMintAuthority
	}
	return nil
}

func newAddress() string {
	sum := sha256.Sum256([]byte(uuid.NewString()))
	return hex.EncodeToString(sum[:])
}

var _ token.Engine = (*Bank)(nil)
