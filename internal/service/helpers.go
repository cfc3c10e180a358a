package service

import (
	"github.com/chappie1998/jetson/internal/events"
	"github.com/chappie1998/jetson/internal/ledger"
	"github.com/chappie1998/jetson/internal/metrics"
	"github.com/chappie1998/jetson/internal/models"
)

// observe feeds the per-operation counters after an operation settles.
func observe(op string, err error) {
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues(op, kindLabel(err)).Inc()
		return
	}
	metrics.OperationsTotal.WithLabelValues(op).Inc()
}

func kindLabel(err error) string {
	if k := ledger.KindOf(err); k != "" {
		return string(k)
	}
	return "internal"
}

// publish hands committed event rows to the hub. Callers must only invoke it
// after the surrounding transaction committed; subscribers never see rows
// that were rolled back.
func publish(hub *events.Hub, rows []models.LedgerEvent) {
	if hub == nil || len(rows) == 0 {
		return
	}
	items := events.FromModels(rows)
	hub.Publish(items...)
	for i := range items {
		metrics.EventsPublishedTotal.WithLabelValues(items[i].Kind).Inc()
	}
}
