package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/chappie1998/jetson/internal/metrics"
	"github.com/chappie1998/jetson/internal/repository"
)

// StatsReconciler cross-checks the denormalized counters on each treasury
// stats row against the strategy table. It only reports; counters are owned
// by the operations that move them, so a drift here means a bug worth
// surfacing, not a value worth silently patching.
type StatsReconciler struct {
	Repo   repository.Repository
	Flags  *SystemSettingsService
	Logger *zap.Logger
}

// RunOnce compares stored counts with counted rows and returns how many
// stats rows drifted.
func (r *StatsReconciler) RunOnce(ctx context.Context) (int, error) {
	if r == nil || r.Repo == nil {
		return 0, errors.New("stats reconciler is not configured")
	}
	if r.Flags != nil && !r.Flags.IsEnabled(ctx, FeatureReconcile, true) {
		return 0, nil
	}

	rows, err := r.Repo.ListTreasuryStats(ctx)
	if err != nil {
		return 0, err
	}

	drifted := 0
	for _, stats := range rows {
		counts, err := r.Repo.StrategyCounts(ctx, stats.Treasury)
		if err != nil {
			return drifted, err
		}
		if counts.Total == int64(stats.StrategiesCount) && counts.Active == int64(stats.ActiveStrategiesCount) {
			continue
		}
		drifted++
		metrics.ReconcileDriftTotal.Inc()
		if r.Logger != nil {
			r.Logger.Warn("treasury stats drifted from strategy table",
				zap.String("treasury", stats.Treasury),
				zap.Int("stored_total", stats.StrategiesCount),
				zap.Int64("counted_total", counts.Total),
				zap.Int("stored_active", stats.ActiveStrategiesCount),
				zap.Int64("counted_active", counts.Active),
			)
		}
	}
	return drifted, nil
}
