package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chappie1998/jetson/internal/events"
	"github.com/chappie1998/jetson/internal/ledger"
	"github.com/chappie1998/jetson/internal/metrics"
	"github.com/chappie1998/jetson/internal/models"
	"github.com/chappie1998/jetson/internal/repository"
)

// TreasuryService accepts yield reports from the treasury authority and
// folds them into the lifetime stats.
type TreasuryService struct {
	Repo   repository.Repository
	Hub    *events.Hub
	Flags  *SystemSettingsService
	Logger *zap.Logger
	Clock  ledger.Clock
}

// YieldReport is one observation from off-ledger strategy accounting: how
// much yield accrued since the last report and what the whole portfolio is
// worth now.
type YieldReport struct {
	Treasury       string
	YieldAmount    decimal.Decimal
	PortfolioValue decimal.Decimal
}

// ReportYield adds the reported yield to the lifetime total and overwrites
// the current portfolio value. Only the treasury authority recorded on the
// stats row may report.
func (s *TreasuryService) ReportYield(ctx context.Context, caller string, p YieldReport) (*models.TreasuryStats, error) {
	stats, rows, err := s.reportYield(ctx, caller, p)
	observe("report_yield", err)
	if err != nil {
		return nil, err
	}

	publish(s.Hub, rows)
	metrics.YieldReportsTotal.Inc()
	if s.Logger != nil {
		s.Logger.Info("yield reported",
			zap.String("treasury", stats.Treasury),
			zap.String("yield_amount", p.YieldAmount.String()),
			zap.String("portfolio_value", stats.CurrentPortfolioValue.String()))
	}
	return stats, nil
}

func (s *TreasuryService) reportYield(ctx context.Context, caller string, p YieldReport) (*models.TreasuryStats, []models.LedgerEvent, error) {
	if s == nil || s.Repo == nil {
		return nil, nil, errors.New("treasury service is not configured")
	}
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return nil, nil, ledger.ErrUnauthorized
	}
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureYieldReports, true) {
		return nil, nil, ledger.FeatureDisabled(FeatureYieldReports)
	}
	if p.YieldAmount.IsNegative() {
		return nil, nil, ledger.ErrInvalidYield
	}
	if p.PortfolioValue.IsNegative() {
		return nil, nil, ledger.ErrInvalidPortfolio
	}

	var (
		stats *models.TreasuryStats
		rows  []models.LedgerEvent
	)
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		var err error
		stats, err = s.Repo.GetTreasuryStatsForUpdateTx(ctx, tx, strings.TrimSpace(p.Treasury))
		if err != nil {
			return err
		}
		if stats == nil {
			return ledger.ErrStatsNotFound
		}
		if stats.TreasuryAuthority != caller {
			return ledger.ErrUnauthorized
		}

		now := ledger.NowUTC(s.Clock)
		stats.TotalYieldGenerated = ledger.SatAdd(stats.TotalYieldGenerated, p.YieldAmount)
		stats.CurrentPortfolioValue = p.PortfolioValue
		stats.LastUpdatedAt = now
		stats.UpdatedAt = now
		if err := s.Repo.SaveTreasuryStatsTx(ctx, tx, stats); err != nil {
			return err
		}

		rows = []models.LedgerEvent{events.NewYieldGenerated(stats.Treasury, caller, events.YieldGeneratedPayload{
			YieldAmount:         p.YieldAmount,
			NewPortfolioValue:   stats.CurrentPortfolioValue,
			TotalYieldGenerated: stats.TotalYieldGenerated,
		}, now)}
		return s.Repo.InsertLedgerEventsTx(ctx, tx, rows)
	})
	if err != nil {
		return nil, nil, err
	}
	return stats, rows, nil
}
