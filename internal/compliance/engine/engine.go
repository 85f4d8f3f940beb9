// Package engine orchestrates the full risk pipeline: profiling, GAFI
// classification, red-flag evaluation, anomaly detection, scoring,
// alerting and the risk matrix, collapsed into one verdict per client.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adamopay/txrisk/internal/compliance/alerts"
	"github.com/adamopay/txrisk/internal/compliance/anomaly"
	"github.com/adamopay/txrisk/internal/compliance/gafi"
	"github.com/adamopay/txrisk/internal/compliance/profile"
	"github.com/adamopay/txrisk/internal/compliance/redflags"
	"github.com/adamopay/txrisk/internal/compliance/riskmatrix"
	"github.com/adamopay/txrisk/internal/compliance/scoring"
	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/pkg/metrics"
	"github.com/adamopay/txrisk/pkg/models"
)

const recommendationNoData = "Insufficient data for analysis"

// Analysis is the full engine output: the verdict contract plus the
// intermediate detector results for consumers that want the detail.
type Analysis struct {
	Verdict   models.RiskVerdict  `json:"verdict"`
	Behavior  profile.Result      `json:"behavior"`
	GAFI      gafi.Profile        `json:"gafi"`
	GAFITrend gafi.Trend          `json:"gafi_trend"`
	RedFlags  redflags.Evaluation `json:"red_flags"`
	Anomalies anomaly.Report      `json:"anomalies"`
}

// Engine runs analyses. It is stateless between calls and safe for
// concurrent use.
type Engine struct {
	thresholds config.Thresholds
	log        *zap.Logger
}

// New builds an engine. A nil logger disables logging.
func New(th config.Thresholds, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{thresholds: th, log: log}
}

// Analyze runs the full pipeline over one client's transactions. The
// caller supplies the reference instant; identical inputs with the same
// instant produce byte-identical output.
func (e *Engine) Analyze(set models.ClientTransactionSet, now time.Time) Analysis {
	start := time.Now()
	th := e.thresholds

	if set.Empty() {
		a := e.emptyAnalysis(set.ClientID, now)
		metrics.AnalysesTotal.WithLabelValues(string(a.Verdict.Score.Level)).Inc()
		e.log.Info("analysis completed",
			zap.String("client_id", set.ClientID),
			zap.String("level", string(a.Verdict.Score.Level)),
			zap.Int("records", 0),
		)
		return a
	}

	behavior := profile.Analyze(set, th)
	gafiProfile := gafi.Classify(set, th)
	trend := gafi.TrendOf(set, th)
	evaluation := redflags.Evaluate(set, behavior.Metrics, th)
	anomalies := anomaly.Detect(set, behavior.Metrics, th)

	operational := scoring.Operational(behavior.Metrics, th)
	score := scoring.Aggregate(gafiProfile.Score, evaluation.Score, operational, th)

	alertList := alerts.Generate(set.ClientID, behavior.Metrics, score, th, now)
	matrix := riskmatrix.Build(behavior.Metrics, score, th)

	flags := make([]models.RedFlag, 0, len(behavior.Flags)+len(evaluation.Flags))
	flags = append(flags, behavior.Flags...)
	flags = append(flags, evaluation.Flags...)

	escalate := false
	for _, a := range alertList {
		if a.Priority == models.PriorityHigh || a.Priority == models.PriorityCritical {
			escalate = true
			break
		}
	}

	verdict := models.RiskVerdict{
		ClientID:             set.ClientID,
		AnalyzedAt:           now,
		Score:                score,
		Flags:                flags,
		Alerts:               alertList,
		Anomalies:            anomalies.Summary(),
		Matrix:               matrix,
		Recommendations:      recommendations(score.Level, alertList),
		EnhancedDueDiligence: score.Total >= th.DueDiligenceScore,
		Escalate:             escalate,
		NextReview:           now.AddDate(0, 0, reviewDays(score.Level, th)),
	}

	e.observe(verdict, len(set.Records), start)
	return Analysis{
		Verdict:   verdict,
		Behavior:  behavior,
		GAFI:      gafiProfile,
		GAFITrend: trend,
		RedFlags:  evaluation,
		Anomalies: anomalies,
	}
}

func (e *Engine) emptyAnalysis(clientID string, now time.Time) Analysis {
	th := e.thresholds
	verdict := models.RiskVerdict{
		ClientID:        clientID,
		AnalyzedAt:      now,
		Score:           scoring.Empty(th),
		Flags:           []models.RedFlag{},
		Alerts:          []models.Alert{},
		Anomalies:       models.AnomalySummary{Level: models.RiskLevelNotEvaluated},
		Matrix:          riskmatrix.Empty(th),
		Recommendations: []string{recommendationNoData},
	}
	return Analysis{
		Verdict:  verdict,
		Behavior: profile.Analyze(models.ClientTransactionSet{ClientID: clientID}, th),
		GAFI:     gafi.Classify(models.ClientTransactionSet{ClientID: clientID}, th),
		GAFITrend: gafi.Trend{
			Direction: gafi.TrendInsufficientData,
		},
		RedFlags:  redflags.Evaluate(models.ClientTransactionSet{ClientID: clientID}, profile.Metrics{}, th),
		Anomalies: anomaly.Detect(models.ClientTransactionSet{ClientID: clientID}, profile.Metrics{}, th),
	}
}

func (e *Engine) observe(v models.RiskVerdict, records int, start time.Time) {
	metrics.AnalysesTotal.WithLabelValues(string(v.Score.Level)).Inc()
	for _, a := range v.Alerts {
		metrics.AlertsGenerated.WithLabelValues(string(a.Priority)).Inc()
	}
	for _, f := range v.Flags {
		metrics.RedFlagsDetected.WithLabelValues(string(f.Type)).Inc()
	}
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	e.log.Info("analysis completed",
		zap.String("client_id", v.ClientID),
		zap.Int("records", records),
		zap.Int("score", v.Score.Total),
		zap.String("level", string(v.Score.Level)),
		zap.Int("flags", len(v.Flags)),
		zap.Int("alerts", len(v.Alerts)),
		zap.Bool("escalate", v.Escalate),
	)
}

func recommendations(level models.RiskLevel, alertList []models.Alert) []string {
	var recs []string
	switch level {
	case models.RiskLevelCritical:
		recs = []string{
			"IMMEDIATE ACTION: suspend operations and run a deep investigation",
			"Prepare a UIAF report within the next 24 hours",
			"Escalate to the compliance officer",
		}
	case models.RiskLevelHigh:
		recs = []string{
			"Implement enhanced due diligence (DDR)",
			"Biweekly review of transactional activity",
			"Validate the origin of funds within 72 hours",
		}
	case models.RiskLevelMedium:
		recs = []string{
			"Monthly activity monitoring",
			"Keep automatic alerts active",
			"Update KYC documentation if older than one year",
		}
	default:
		recs = []string{
			"Maintain standard monitoring",
			"Annual review is sufficient",
		}
	}

	critical := 0
	for _, a := range alertList {
		if a.Priority == models.PriorityCritical {
			critical++
		}
	}
	if critical > 0 {
		recs = append(recs, fmt.Sprintf("%d critical alerts require immediate attention", critical))
	}
	return recs
}

func reviewDays(level models.RiskLevel, th config.Thresholds) int {
	switch level {
	case models.RiskLevelCritical:
		return th.ReviewDaysCritical
	case models.RiskLevelHigh:
		return th.ReviewDaysHigh
	case models.RiskLevelMedium:
		return th.ReviewDaysMedium
	default:
		return th.ReviewDaysLow
	}
}

// AnalyzePortfolio analyzes several clients concurrently. Results keep
// the input order regardless of completion order. A non-positive worker
// count falls back to a small default.
func (e *Engine) AnalyzePortfolio(ctx context.Context, sets []models.ClientTransactionSet, now time.Time, workers int) []Analysis {
	if workers <= 0 {
		workers = 4
	}
	if workers > len(sets) {
		workers = len(sets)
	}

	results := make([]Analysis, len(sets))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = e.Analyze(sets[idx], now)
			}
		}()
	}

	for i := range sets {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return results[:i]
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return results
}
