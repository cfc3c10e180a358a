package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/chappie1998/jetson/internal/audit"
	"github.com/chappie1998/jetson/internal/auth"
	"github.com/chappie1998/jetson/internal/bank"
	"github.com/chappie1998/jetson/internal/models"
	"github.com/chappie1998/jetson/internal/repository"
	"github.com/chappie1998/jetson/internal/token"
)

// AccountHandler manages token accounts and test-mint issuance. Mint
// authority checks live in the bank, the handler only shapes requests.
type AccountHandler struct {
	Repo repository.Repository
	Bank *bank.Bank
}

func (h *AccountHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.POST("/accounts", h.create)
	group.GET("/accounts", h.list)
	group.GET("/accounts/:address", h.get)
	group.POST("/tokens/mint", h.mint)
}

type createAccountRequest struct {
	Mint string `json:"mint"`
}

func (h *AccountHandler) create(c *gin.Context) {
	if h.Repo == nil || h.Bank == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "principal required", nil)
		return
	}
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	mint := strings.TrimSpace(req.Mint)
	if mint == "" {
		Error(c, http.StatusBadRequest, "mint required", nil)
		return
	}

	var account *models.TokenAccount
	err := h.Repo.InTx(c.Request.Context(), func(tx *gorm.DB) error {
		var err error
		account, err = h.Bank.CreateAccount(c.Request.Context(), tx, mint, principal.Address)
		return err
	})
	if err != nil {
		if errors.Is(err, token.ErrUnknownMint) {
			Error(c, http.StatusBadRequest, "unknown mint", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	audit.RecordBestEffort(c, "account_created", principal.Address, map[string]any{
		"account": account.Address,
		"mint":    mint,
	})
	Ok(c, account, nil)
}

func (h *AccountHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListTokenAccounts(c.Request.Context(), repository.ListTokenAccountsParams{
		Limit:  limit,
		Offset: offset,
		Mint:   strQueryPtr(c, "mint"),
		Owner:  strQueryPtr(c, "owner"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, gin.H{"limit": limit, "offset": offset})
}

func (h *AccountHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	if address == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	account, err := h.Repo.GetTokenAccount(c.Request.Context(), address)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if account == nil {
		Error(c, http.StatusNotFound, "account not found", nil)
		return
	}
	Ok(c, account, nil)
}

type mintRequest struct {
	Mint      string          `json:"mint"`
	ToAccount string          `json:"to_account"`
	Amount    decimal.Decimal `json:"amount"`
}

// mint issues tokens to an account. The bank rejects callers that do not
// hold the mint authority, so on a live ledger this only works for the
// stable admin mint.
func (h *AccountHandler) mint(c *gin.Context) {
	if h.Repo == nil || h.Bank == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "principal required", nil)
		return
	}
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	mint := strings.TrimSpace(req.Mint)
	to := strings.TrimSpace(req.ToAccount)
	if mint == "" || to == "" {
		Error(c, http.StatusBadRequest, "mint and to_account required", nil)
		return
	}
	if !req.Amount.IsPositive() {
		Error(c, http.StatusBadRequest, "amount must be positive", nil)
		return
	}

	err := h.Repo.InTx(c.Request.Context(), func(tx *gorm.DB) error {
		return h.Bank.MintTo(c.Request.Context(), tx, mint, to, token.Authority{Address: principal.Address}, req.Amount)
	})
	if err != nil {
		switch {
		case errors.Is(err, token.ErrNotMintAuthority):
			Error(c, http.StatusForbidden, "not the mint authority", nil)
		case errors.Is(err, token.ErrUnknownMint), errors.Is(err, token.ErrUnknownAccount), errors.Is(err, token.ErrMintMismatch):
			Error(c, http.StatusBadRequest, err.Error(), nil)
		default:
			Error(c, http.StatusBadGateway, err.Error(), nil)
		}
		return
	}
	audit.RecordBestEffort(c, "tokens_minted", principal.Address, map[string]any{
		"mint":   mint,
		"to":     to,
		"amount": req.Amount.String(),
	})
	Ok(c, gin.H{"mint": mint, "to_account": to, "amount": req.Amount}, nil)
}
