package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chappie1998/jetson/internal/ledger"
	"github.com/chappie1998/jetson/internal/metrics"
	"github.com/chappie1998/jetson/internal/models"
	"github.com/chappie1998/jetson/internal/repository"
)

// SnapshotService captures periodic roll-ups of the treasury stats so the
// API can serve history without replaying the event stream.
type SnapshotService struct {
	Repo   repository.Repository
	Flags  *SystemSettingsService
	Logger *zap.Logger
	Clock  ledger.Clock
}

// RunOnce snapshots every treasury stats row. Returns how many snapshots it
// wrote; a disabled feature switch writes none and is not an error.
func (s *SnapshotService) RunOnce(ctx context.Context) (int, error) {
	if s == nil || s.Repo == nil {
		return 0, errors.New("snapshot service is not configured")
	}
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureSnapshots, true) {
		return 0, nil
	}

	rows, err := s.Repo.ListTreasuryStats(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	cfg, err := s.Repo.GetConfig(ctx)
	if err != nil {
		return 0, err
	}

	now := ledger.NowUTC(s.Clock)
	written := 0
	for _, stats := range rows {
		custody := decimal.Zero
		if cfg != nil && cfg.Treasury == stats.Treasury {
			acct, err := s.Repo.GetTokenAccount(ctx, cfg.TreasuryTokenAccount)
			if err != nil {
				return written, err
			}
			if acct != nil {
				custody = acct.Balance
			}
		}

		snap := &models.TreasurySnapshot{
			Treasury:              stats.Treasury,
			SnapshotAt:            now,
			PortfolioValue:        stats.CurrentPortfolioValue,
			TotalYield:            stats.TotalYieldGenerated,
			TotalDeposited:        stats.TotalStableDeposited,
			TotalWithdrawn:        stats.TotalStableWithdrawn,
			CustodyBalance:        custody,
			StrategiesCount:       stats.StrategiesCount,
			ActiveStrategiesCount: stats.ActiveStrategiesCount,
		}
		if err := s.Repo.InsertTreasurySnapshot(ctx, snap); err != nil {
			return written, err
		}
		written++
		metrics.SnapshotsTotal.Inc()
	}

	if s.Logger != nil {
		s.Logger.Info("treasury snapshots captured", zap.Int("count", written))
	}
	return written, nil
}
