package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jetson_operations_total", Help: "Committed ledger operations by name"},
		[]string{"operation"},
	)
	OperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jetson_operation_errors_total", Help: "Failed ledger operations by name and error kind"},
		[]string{"operation", "kind"},
	)
	SwapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jetson_swaps_total", Help: "Committed swaps by direction"},
		[]string{"direction"},
	)
	SwapVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jetson_swap_volume", Help: "Swapped amount by direction"},
		[]string{"direction"},
	)
	StateTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jetson_state_transitions_total", Help: "Strategy state transitions by target state"},
		[]string{"to"},
	)
	YieldReportsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "jetson_yield_reports_total", Help: "Committed treasury yield reports"},
	)
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jetson_events_published_total", Help: "Events published to the hub by kind"},
		[]string{"kind"},
	)
	SnapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "jetson_snapshots_total", Help: "Treasury snapshots written"},
	)
	ReconcileDriftTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "jetson_reconcile_drift_total", Help: "Stats drift occurrences found by the reconciler"},
	)
	CronJobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jetson_cron_job_runs_total", Help: "Cron job runs by job name and outcome"},
		[]string{"job", "status"},
	)
)

func Init(logger *zap.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		OperationsTotal, OperationErrorsTotal,
		SwapsTotal, SwapVolume, StateTransitionsTotal, YieldReportsTotal,
		EventsPublishedTotal, SnapshotsTotal, ReconcileDriftTotal, CronJobRunsTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	if logger != nil {
		logger.Info("prometheus metrics initialized")
	}
	return reg
}

// RegisterHubDepth exposes the event hub's drop counter as a gauge without
// coupling the hub to prometheus.
func RegisterHubDepth(reg *prometheus.Registry, dropped func() float64) {
	if reg == nil || dropped == nil {
		return
	}
	_ = reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: "jetson_events_dropped", Help: "Events dropped by slow hub subscribers"},
		dropped,
	))
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
