package token

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/chappie1998/jetson/internal/models"
)

// Authority identifies who signs a token operation. For end-user calls the
// credential is empty and Address is the identity already proven by the HTTP
// layer; for service-controlled accounts Credential is the derived capability
// and must hash to Address.
type Authority struct {
	Address    string
	Credential []byte
}

var (
	ErrUnknownMint         = errors.New("token: unknown mint")
	ErrUnknownAccount      = errors.New("token: unknown account")
	ErrMintMismatch        = errors.New("token: account not in expected mint")
	ErrFrozenAccount       = errors.New("token: account frozen")
	ErrNotOwner            = errors.New("token: authority does not own account")
	ErrNotMintAuthority    = errors.New("token: authority cannot mint")
	ErrBadCredential       = errors.New("token: credential does not match authority")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrNonPositiveAmount   = errors.New("token: amount must be positive")
	ErrSameAccount         = errors.New("token: source and destination are the same account")
)

// Engine moves balances on behalf of the ledger operations. Every method
// joins the caller's transaction, so a failed leg aborts the surrounding
// operation as a whole.
type Engine interface {
	Transfer(ctx context.Context, tx *gorm.DB, mint, from, to string, authority Authority, amount decimal.Decimal) error
	MintTo(ctx context.Context, tx *gorm.DB, mint, to string, authority Authority, amount decimal.Decimal) error
	Burn(ctx context.Context, tx *gorm.DB, mint, from string, authority Authority, amount decimal.Decimal) error
}

// Registrar creates mints and accounts. Split from Engine so read-mostly
// callers do not gain creation powers by accident.
type Registrar interface {
	CreateMint(ctx context.Context, tx *gorm.DB, symbol, authority string, decimals int) (*models.TokenMint, error)
	CreateAccount(ctx context.Context, tx *gorm.DB, mint, owner string) (*models.TokenAccount, error)
}
