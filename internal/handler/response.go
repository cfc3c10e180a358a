package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chappie1998/jetson/internal/ledger"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// DomainError maps a ledger error onto an HTTP status. Errors without a
// ledger kind are internal and deliberately unspecific in the response.
func DomainError(c *gin.Context, err error) {
	kind := ledger.KindOf(err)
	if kind == "" {
		Error(c, http.StatusInternalServerError, "internal error", nil)
		return
	}
	meta := map[string]any{"kind": string(kind)}
	if code := ledger.CodeOf(err); code != "" {
		meta["code"] = code
	}
	Error(c, statusForKind(kind), err.Error(), meta)
}

func statusForKind(kind ledger.Kind) int {
	switch kind {
	case ledger.KindValidation:
		return http.StatusBadRequest
	case ledger.KindAuthorization:
		return http.StatusForbidden
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindConflict, ledger.KindState:
		return http.StatusConflict
	case ledger.KindCollaborator:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
