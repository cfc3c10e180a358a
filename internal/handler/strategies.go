package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chappie1998/jetson/internal/audit"
	"github.com/chappie1998/jetson/internal/auth"
	"github.com/chappie1998/jetson/internal/models"
	"github.com/chappie1998/jetson/internal/repository"
	"github.com/chappie1998/jetson/internal/service"
)

// StrategyHandler exposes the strategy registry: registration, lifecycle
// transitions and the allocation / APY knobs.
type StrategyHandler struct {
	Repo       repository.Repository
	Strategies *service.StrategyService
}

func (h *StrategyHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/strategies")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:address", h.get)
	group.POST("/:address/activate", h.activate)
	group.POST("/:address/pause", h.pause)
	group.POST("/:address/terminate", h.terminate)
	group.PUT("/:address/allocation", h.putAllocation)
	group.PUT("/:address/apy", h.putAPY)
}

type createStrategyRequest struct {
	Seed          string          `json:"seed"`
	Type          string          `json:"type"`
	AllocationPct int             `json:"allocation_pct"`
	TargetAPYBps  int64           `json:"target_apy_bps"`
	RiskScore     int             `json:"risk_score"`
	TokenAccounts []string        `json:"token_accounts"`
	Data          json.RawMessage `json:"data"`
}

// create registers a strategy for the caller's authority.
// @Summary Register a strategy
// @Tags strategies
// @Accept json
// @Produce json
// @Param body body createStrategyRequest true "strategy"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies [post]
func (h *StrategyHandler) create(c *gin.Context) {
	if h.Strategies == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "principal required", nil)
		return
	}
	var req createStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	strat, err := h.Strategies.InitializeStrategy(c.Request.Context(), principal.Address, service.StrategyParams{
		Seed:          req.Seed,
		Type:          req.Type,
		AllocationPct: req.AllocationPct,
		TargetAPYBps:  req.TargetAPYBps,
		RiskScore:     req.RiskScore,
		TokenAccounts: req.TokenAccounts,
		Data:          req.Data,
	})
	if err != nil {
		DomainError(c, err)
		return
	}
	audit.RecordBestEffort(c, "strategy_registered", principal.Address, map[string]any{
		"strategy": strat.Address,
		"type":     strat.Type,
	})
	Ok(c, strat, nil)
}

func (h *StrategyHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListStrategiesParams{
		Limit:     limit,
		Offset:    offset,
		State:     strQueryPtr(c, "state"),
		Type:      strQueryPtr(c, "type"),
		Authority: strQueryPtr(c, "authority"),
		Treasury:  strQueryPtr(c, "treasury"),
		OrderBy:   strings.TrimSpace(c.Query("order_by")),
	}
	if asc := strings.TrimSpace(c.Query("asc")); asc != "" {
		params.Asc = boolPtr(asc == "true" || asc == "1")
	}
	items, err := h.Repo.ListStrategies(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountStrategies(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *StrategyHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	if address == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	strat, err := h.Repo.GetStrategyByAddress(c.Request.Context(), address)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if strat == nil {
		Error(c, http.StatusNotFound, "strategy not found", nil)
		return
	}
	Ok(c, strat, nil)
}

func (h *StrategyHandler) activate(c *gin.Context) {
	h.transition(c, "strategy_activated", h.Strategies.Activate)
}

func (h *StrategyHandler) pause(c *gin.Context) {
	h.transition(c, "strategy_paused", h.Strategies.Pause)
}

func (h *StrategyHandler) terminate(c *gin.Context) {
	h.transition(c, "strategy_terminated", h.Strategies.Terminate)
}

type transitionFunc func(ctx context.Context, caller, address string) (*models.Strategy, error)

func (h *StrategyHandler) transition(c *gin.Context, action string, run transitionFunc) {
	if h.Strategies == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "principal required", nil)
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	if address == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	strat, err := run(c.Request.Context(), principal.Address, address)
	if err != nil {
		DomainError(c, err)
		return
	}
	audit.RecordBestEffort(c, action, principal.Address, map[string]any{
		"strategy": strat.Address,
		"state":    strat.State,
	})
	Ok(c, strat, nil)
}

type putAllocationRequest struct {
	AllocationPct *int `json:"allocation_pct"`
}

func (h *StrategyHandler) putAllocation(c *gin.Context) {
	if h.Strategies == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "principal required", nil)
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	if address == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	var req putAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AllocationPct == nil {
		Error(c, http.StatusBadRequest, "allocation_pct required", nil)
		return
	}
	strat, err := h.Strategies.UpdateAllocation(c.Request.Context(), principal.Address, address, *req.AllocationPct)
	if err != nil {
		DomainError(c, err)
		return
	}
	audit.RecordBestEffort(c, "strategy_rebalanced", principal.Address, map[string]any{
		"strategy":       strat.Address,
		"allocation_pct": strat.AllocationPct,
	})
	Ok(c, strat, nil)
}

type putAPYRequest struct {
	CurrentAPYBps *int64 `json:"current_apy_bps"`
}

func (h *StrategyHandler) putAPY(c *gin.Context) {
	if h.Strategies == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "principal required", nil)
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	if address == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	var req putAPYRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CurrentAPYBps == nil {
		Error(c, http.StatusBadRequest, "current_apy_bps required", nil)
		return
	}
	strat, err := h.Strategies.UpdateAPY(c.Request.Context(), principal.Address, address, *req.CurrentAPYBps)
	if err != nil {
		DomainError(c, err)
		return
	}
	Ok(c, strat, nil)
}
