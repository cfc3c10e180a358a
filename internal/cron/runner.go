package cronrunner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/chappie1998/jetson/internal/metrics"
)

// Runner schedules the background jobs. Jobs are named so logs and the
// run counter can tell the snapshot writer from the reconciler.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add registers a named job. The job's error is logged and counted, a
// failing job never stops the schedule.
func (r *Runner) Add(name, spec string, job func(context.Context) error) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		ctx := r.baseCtx
		if ctx == nil {
			ctx = context.Background()
		}
		start := time.Now()
		err := job(ctx)
		elapsed := time.Since(start)
		if err != nil {
			metrics.CronJobRunsTotal.WithLabelValues(name, "error").Inc()
			if r.logger != nil {
				r.logger.Error("cron job failed",
					zap.String("job", name),
					zap.Duration("elapsed", elapsed),
					zap.Error(err))
			}
			return
		}
		metrics.CronJobRunsTotal.WithLabelValues(name, "ok").Inc()
		if r.logger != nil {
			r.logger.Debug("cron job finished",
				zap.String("job", name),
				zap.Duration("elapsed", elapsed))
		}
	})
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started")
	}
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}
