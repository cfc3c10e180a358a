package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/chappie1998/jetson/internal/events"
	"github.com/chappie1998/jetson/internal/repository"
)

// EventsHandler serves the ledger event history and a websocket feed of
// live events. History comes from the events table, the feed from the
// in-process hub, so a reconnecting client can backfill by id.
type EventsHandler struct {
	Repo   repository.Repository
	Hub    *events.Hub
	Logger *zap.Logger
}

func (h *EventsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/events")
	group.GET("", h.list)
	group.GET("/stream", h.stream)
}

// list returns committed ledger events, oldest first.
// @Summary List ledger events
// @Tags events
// @Produce json
// @Param kind query string false "event kind"
// @Param after_id query int false "return events with id greater than this"
// @Success 200 {object} apiResponse
// @Router /api/v1/events [get]
func (h *EventsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	params := repository.ListLedgerEventsParams{
		Limit:    limit,
		Offset:   offset,
		Kind:     strQueryPtr(c, "kind"),
		Treasury: strQueryPtr(c, "treasury"),
		Strategy: strQueryPtr(c, "strategy"),
		Actor:    strQueryPtr(c, "actor"),
		Since:    timeQueryPtr(c, "since"),
		AfterID:  uint64QueryPtr(c, "after_id"),
	}
	items, err := h.Repo.ListLedgerEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountLedgerEvents(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// stream upgrades to a websocket and forwards hub events as JSON text
// frames. An optional kind query narrows the feed to one event kind.
func (h *EventsHandler) stream(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	kind := strings.TrimSpace(c.Query("kind"))

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("events stream accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	id, ch := h.Hub.Subscribe(kind)
	defer h.Hub.Unsubscribe(id)

	// CloseRead surfaces client disconnects through ctx; the feed is
	// write-only so inbound frames are discarded.
	ctx := conn.CloseRead(c.Request.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "bye")
			return
		case event, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "bye")
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
