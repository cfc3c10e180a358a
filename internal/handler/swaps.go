package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/chappie1998/jetson/internal/audit"
	"github.com/chappie1998/jetson/internal/auth"
	"github.com/chappie1998/jetson/internal/models"
	"github.com/chappie1998/jetson/internal/service"
)

// SwapHandler exposes the two swap legs. The caller is always the
// authenticated principal, never a body field.
type SwapHandler struct {
	Swaps *service.SwapService
}

func (h *SwapHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/swaps")
	group.POST("/stable-to-synthetic", h.stableToSynthetic)
	group.POST("/synthetic-to-stable", h.syntheticToStable)
}

type swapRequest struct {
	SourceAccount string          `json:"source_account"`
	DestAccount   string          `json:"dest_account"`
	Amount        decimal.Decimal `json:"amount"`
}

// stableToSynthetic swaps stable into synthetic at 1:1.
// @Summary Swap stable for synthetic
// @Tags swaps
// @Accept json
// @Produce json
// @Param body body swapRequest true "swap request"
// @Success 200 {object} apiResponse
// @Router /api/v1/swaps/stable-to-synthetic [post]
func (h *SwapHandler) stableToSynthetic(c *gin.Context) {
	h.swap(c, "swap_stable_to_synthetic", h.Swaps.StableToSynthetic)
}

// syntheticToStable swaps synthetic back into stable at 1:1.
// @Summary Swap synthetic for stable
// @Tags swaps
// @Accept json
// @Produce json
// @Param body body swapRequest true "swap request"
// @Success 200 {object} apiResponse
// @Router /api/v1/swaps/synthetic-to-stable [post]
func (h *SwapHandler) syntheticToStable(c *gin.Context) {
	h.swap(c, "swap_synthetic_to_stable", h.Swaps.SyntheticToStable)
}

func (h *SwapHandler) swap(c *gin.Context, action string, run swapFunc) {
	if h.Swaps == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "principal required", nil)
		return
	}
	var req swapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	event, err := run(c.Request.Context(), principal.Address, service.SwapParams{
		SourceAccount: strings.TrimSpace(req.SourceAccount),
		DestAccount:   strings.TrimSpace(req.DestAccount),
		Amount:        req.Amount,
	})
	if err != nil {
		DomainError(c, err)
		return
	}
	audit.RecordBestEffort(c, action, principal.Address, map[string]any{
		"event_id": event.ID,
		"amount":   req.Amount.String(),
	})
	Ok(c, event, nil)
}

type swapFunc func(ctx context.Context, caller string, p service.SwapParams) (*models.LedgerEvent, error)
