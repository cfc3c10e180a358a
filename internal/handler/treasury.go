package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/chappie1998/jetson/internal/audit"
	"github.com/chappie1998/jetson/internal/auth"
	"github.com/chappie1998/jetson/internal/repository"
	"github.com/chappie1998/jetson/internal/risk"
	"github.com/chappie1998/jetson/internal/service"
)

var errNoConfig = errors.New("ledger not initialized")

// TreasuryHandler serves the portfolio side: yield reports, aggregate
// stats, the risk read-out, historical snapshots and the two operator
// triggers for jobs that normally run on the cron schedule.
type TreasuryHandler struct {
	Repo       repository.Repository
	Treasury   *service.TreasuryService
	Risk       *risk.Advisor
	Snapshots  *service.SnapshotService
	Reconciler *service.StatsReconciler
}

func (h *TreasuryHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/treasury")
	group.POST("/yield", h.reportYield)
	group.GET("/stats", h.stats)
	group.GET("/risk", h.riskReport)
	group.GET("/snapshots", h.listSnapshots)
	group.POST("/snapshots/run", h.runSnapshots)
	group.POST("/reconcile/run", h.runReconcile)
}

type yieldRequest struct {
	Treasury       string          `json:"treasury"`
	YieldAmount    decimal.Decimal `json:"yield_amount"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
}

// reportYield records realized yield and the marked portfolio value.
// @Summary Report strategy yield
// @Tags treasury
// @Accept json
// @Produce json
// @Param body body yieldRequest true "yield report"
// @Success 200 {object} apiResponse
// @Router /api/v1/treasury/yield [post]
func (h *TreasuryHandler) reportYield(c *gin.Context) {
	if h.Treasury == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "principal required", nil)
		return
	}
	var req yieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	treasury := strings.TrimSpace(req.Treasury)
	if treasury == "" {
		cfg, err := h.configTreasury(c)
		if err != nil {
			return
		}
		treasury = cfg
	}
	stats, err := h.Treasury.ReportYield(c.Request.Context(), principal.Address, service.YieldReport{
		Treasury:       treasury,
		YieldAmount:    req.YieldAmount,
		PortfolioValue: req.PortfolioValue,
	})
	if err != nil {
		DomainError(c, err)
		return
	}
	audit.RecordBestEffort(c, "yield_reported", principal.Address, map[string]any{
		"treasury": treasury,
		"amount":   req.YieldAmount.String(),
	})
	Ok(c, stats, nil)
}

func (h *TreasuryHandler) stats(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	treasury := strings.TrimSpace(c.Query("treasury"))
	if treasury == "" {
		cfg, err := h.configTreasury(c)
		if err != nil {
			return
		}
		treasury = cfg
	}
	stats, err := h.Repo.GetTreasuryStats(c.Request.Context(), treasury)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if stats == nil {
		Error(c, http.StatusNotFound, "treasury stats not found", nil)
		return
	}
	Ok(c, stats, nil)
}

func (h *TreasuryHandler) riskReport(c *gin.Context) {
	if h.Risk == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	treasury := strings.TrimSpace(c.Query("treasury"))
	if treasury == "" {
		cfg, err := h.configTreasury(c)
		if err != nil {
			return
		}
		treasury = cfg
	}
	assessment, err := h.Risk.Assess(c.Request.Context(), treasury)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, assessment, nil)
}

func (h *TreasuryHandler) listSnapshots(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListTreasurySnapshots(c.Request.Context(), repository.ListTreasurySnapshotsParams{
		Limit:    limit,
		Offset:   offset,
		Treasury: strQueryPtr(c, "treasury"),
		Since:    timeQueryPtr(c, "since"),
		Until:    timeQueryPtr(c, "until"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, gin.H{"limit": limit, "offset": offset})
}

func (h *TreasuryHandler) runSnapshots(c *gin.Context) {
	if h.Snapshots == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "principal required", nil)
		return
	}
	if !principal.IsAdmin() {
		Error(c, http.StatusForbidden, "admin role required", nil)
		return
	}
	n, err := h.Snapshots.RunOnce(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"snapshots": n}, nil)
}

func (h *TreasuryHandler) runReconcile(c *gin.Context) {
	if h.Reconciler == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "principal required", nil)
		return
	}
	if !principal.IsAdmin() {
		Error(c, http.StatusForbidden, "admin role required", nil)
		return
	}
	drift, err := h.Reconciler.RunOnce(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"drift": drift}, nil)
}

// configTreasury resolves the default treasury from the ledger config.
// Writes the error response itself so callers just return on error.
func (h *TreasuryHandler) configTreasury(c *gin.Context) (string, error) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return "", errNoConfig
	}
	cfg, err := h.Repo.GetConfig(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return "", err
	}
	if cfg == nil {
		Error(c, http.StatusNotFound, "ledger not initialized", nil)
		return "", errNoConfig
	}
	return cfg.Treasury, nil
}
