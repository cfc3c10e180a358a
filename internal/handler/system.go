package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chappie1998/jetson/internal/audit"
	"github.com/chappie1998/jetson/internal/auth"
	"github.com/chappie1998/jetson/internal/repository"
	"github.com/chappie1998/jetson/internal/service"
)

// SystemHandler exposes one-time ledger initialization, the config record
// and the operator feature switches.
type SystemHandler struct {
	Repo     repository.Repository
	Swaps    *service.SwapService
	Settings *service.SystemSettingsService
	JWT      auth.JWT
	DevToken bool
}

func (h *SystemHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/auth/token", h.token)

	group := r.Group("/api/v1/system")
	group.POST("/initialize", h.initialize)
	group.GET("/config", h.config)
	group.GET("/settings", h.listSettings)
	group.PUT("/settings/:key", h.putSetting)
}

type tokenRequest struct {
	Address string `json:"address"`
	Role    string `json:"role"`
}

// token issues a signed bearer token for local and staging use. Production
// deployments run with dev tokens off and take tokens from the identity
// provider in front of the service.
func (h *SystemHandler) token(c *gin.Context) {
	if !h.DevToken {
		Error(c, http.StatusNotFound, "token endpoint disabled", nil)
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	req.Address = strings.TrimSpace(req.Address)
	if req.Address == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	token, expiresAt, err := h.JWT.Sign(auth.Claims{Address: req.Address, Role: strings.TrimSpace(req.Role)})
	if err != nil {
		Error(c, http.StatusInternalServerError, "token signing failed", nil)
		return
	}
	Ok(c, gin.H{"token": token, "expires_at": expiresAt}, nil)
}

type initializeRequest struct {
	StableSymbol    string `json:"stable_symbol"`
	SyntheticSymbol string `json:"synthetic_symbol"`
}

// initialize creates the one-row ledger config. Whoever calls first
// becomes the admin; a second call fails on the existing config row, so
// no role gate is needed here.
func (h *SystemHandler) initialize(c *gin.Context) {
	if h.Swaps == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "principal required", nil)
		return
	}

	var req initializeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid body", nil)
			return
		}
	}
	cfg, err := h.Swaps.Initialize(c.Request.Context(), service.InitializeParams{
		Admin:           principal.Address,
		StableSymbol:    req.StableSymbol,
		SyntheticSymbol: req.SyntheticSymbol,
	})
	if err != nil {
		DomainError(c, err)
		return
	}
	audit.RecordBestEffort(c, "ledger_initialized", principal.Address, map[string]any{
		"treasury": cfg.Treasury,
	})
	Ok(c, cfg, nil)
}

func (h *SystemHandler) config(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	cfg, err := h.Repo.GetConfig(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if cfg == nil {
		Error(c, http.StatusNotFound, "ledger not initialized", nil)
		return
	}
	Ok(c, cfg, nil)
}

func (h *SystemHandler) listSettings(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 200)
	offset := intQuery(c, "offset", 0)
	params := repository.ListSystemSettingsParams{
		Limit:   limit,
		Offset:  offset,
		Prefix:  strQueryPtr(c, "prefix"),
		OrderBy: "key",
		Asc:     boolPtr(true),
	}
	items, err := h.Repo.ListSystemSettings(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountSystemSettings(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

type putSettingRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *SystemHandler) putSetting(c *gin.Context) {
	if h.Settings == nil {
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
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		Error(c, http.StatusBadRequest, "key required", nil)
		return
	}
	var req putSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		Error(c, http.StatusBadRequest, "enabled required", nil)
		return
	}
	if err := h.Settings.SetEnabled(c.Request.Context(), key, *req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	audit.RecordBestEffort(c, "feature_switch_set", principal.Address, map[string]any{
		"key":     key,
		"enabled": *req.Enabled,
	})
	Ok(c, gin.H{"key": key, "enabled": *req.Enabled}, nil)
}
