package risk

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chappie1998/jetson/internal/config"
	"github.com/chappie1998/jetson/internal/ledger"
	"github.com/chappie1998/jetson/internal/models"
	"github.com/chappie1998/jetson/internal/repository"
)

// Advisor computes treasury-level risk readings from the strategy registry:
// how much of the treasury active strategies claim in total, how risky the
// active book is on an allocation-weighted basis, and which strategies run
// behind their APY target. It never blocks an operation; callers decide what
// to do with the findings.
type Advisor struct {
	Config config.RiskConfig
	Repo   repository.Repository
	Logger *zap.Logger

	mu           sync.Mutex
	lastAssessAt time.Time
	lastTreasury string
	assessCache  Assessment
}

type Assessment struct {
	Treasury                 string    `json:"treasury"`
	ActiveStrategies         int       `json:"active_strategies"`
	TotalActiveAllocationPct int       `json:"total_active_allocation_pct"`
	WeightedRiskScore        float64   `json:"weighted_risk_score"`
	Findings                 []Finding `json:"findings"`
	ComputedAt               time.Time `json:"computed_at"`
}

type Finding struct {
	Check    string `json:"check"`
	Severity string `json:"severity"` // ok|warn
	Value    string `json:"value,omitempty"`
	Msg      string `json:"msg,omitempty"`
}

// Warnings filters an assessment down to its warn findings.
func (a Assessment) Warnings() []Finding {
	var out []Finding
	for _, f := range a.Findings {
		if f.Severity == "warn" {
			out = append(out, f)
		}
	}
	return out
}

// Assess loads the treasury's active strategies and scores the book. Results
// are cached for a short window to keep repeated reads cheap.
func (m *Advisor) Assess(ctx context.Context, treasury string) (*Assessment, error) {
	if m == nil || m.Repo == nil {
		return nil, nil
	}
	treasury = strings.TrimSpace(treasury)
	now := time.Now().UTC()

	m.mu.Lock()
	if m.lastTreasury == treasury && !m.lastAssessAt.IsZero() && now.Sub(m.lastAssessAt) < 10*time.Second {
		c := m.assessCache
		m.mu.Unlock()
		return &c, nil
	}
	m.mu.Unlock()

	state := string(ledger.StateActive)
	params := repository.ListStrategiesParams{Limit: 500, State: &state}
	if treasury != "" {
		params.Treasury = &treasury
	}
	items, err := m.Repo.ListStrategies(ctx, params)
	if err != nil {
		return nil, err
	}

	out := assess(m.Config, treasury, items, now)

	m.mu.Lock()
	m.lastAssessAt = now
	m.lastTreasury = treasury
	m.assessCache = out
	m.mu.Unlock()
	return &out, nil
}

// LogWarnings runs an assessment and logs the warn findings. Failures to
// assess are logged and swallowed; advisory reads must not fail the
// operation that triggered them.
func (m *Advisor) LogWarnings(ctx context.Context, treasury string) {
	if m == nil {
		return
	}
	assessment, err := m.Assess(ctx, treasury)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("risk: assessment failed", zap.Error(err))
		}
		return
	}
	if assessment == nil {
		return
	}
	for _, f := range assessment.Warnings() {
		if m.Logger != nil {
			m.Logger.Warn("risk: "+f.Check,
				zap.String("treasury", treasury),
				zap.String("value", f.Value),
				zap.String("msg", f.Msg),
			)
		}
	}
}

// assess is a pure helper so the scoring is testable without a repo.
func assess(cfg config.RiskConfig, treasury string, active []models.Strategy, now time.Time) Assessment {
	out := Assessment{Treasury: treasury, ActiveStrategies: len(active), ComputedAt: now}

	totalAlloc := 0
	weighted := 0.0
	for _, s := range active {
		totalAlloc += s.AllocationPct
		weighted += float64(s.AllocationPct) * float64(s.RiskScore)
	}
	out.TotalActiveAllocationPct = totalAlloc
	if totalAlloc > 0 {
		out.WeightedRiskScore = weighted / float64(totalAlloc)
	}

	allocCap := cfg.MaxTotalAllocationPct
	if allocCap <= 0 {
		allocCap = ledger.MaxAllocationPct
	}
	if totalAlloc > allocCap {
		out.Findings = append(out.Findings, Finding{
			Check:    "total_allocation",
			Severity: "warn",
			Value:    itoa(totalAlloc),
			Msg:      "active strategies claim more than " + itoa(allocCap) + "% of the treasury",
		})
	} else {
		out.Findings = append(out.Findings, Finding{Check: "total_allocation", Severity: "ok", Value: itoa(totalAlloc)})
	}

	if cfg.MaxWeightedRiskScore > 0 && out.WeightedRiskScore > cfg.MaxWeightedRiskScore {
		out.Findings = append(out.Findings, Finding{
			Check:    "weighted_risk_score",
			Severity: "warn",
			Value:    ftoa(out.WeightedRiskScore),
			Msg:      "allocation-weighted risk score above configured limit",
		})
	} else {
		out.Findings = append(out.Findings, Finding{Check: "weighted_risk_score", Severity: "ok", Value: ftoa(out.WeightedRiskScore)})
	}

	if cfg.APYShortfallWarnBps > 0 {
		lagging := 0
		for _, s := range active {
			if s.TargetAPYBps-s.CurrentAPYBps > cfg.APYShortfallWarnBps {
				lagging++
				out.Findings = append(out.Findings, Finding{
					Check:    "apy_shortfall",
					Severity: "warn",
					Value:    itoa64(s.TargetAPYBps - s.CurrentAPYBps),
					Msg:      "strategy " + s.Address + " runs behind its APY target",
				})
			}
		}
		if lagging == 0 {
			out.Findings = append(out.Findings, Finding{Check: "apy_shortfall", Severity: "ok"})
		}
	}

	return out
}

func itoa(v int) string     { return strconv.Itoa(v) }
func itoa64(v int64) string { return strconv.FormatInt(v, 10) }
func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
