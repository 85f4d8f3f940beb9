package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/pkg/models"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newEngine() *Engine {
	return New(config.DefaultThresholds(), nil)
}

func rec(ts string, amount int64, status models.TransactionStatus) models.TransactionRecord {
	t, err := time.Parse("2006-01-02 15:04:05", ts)
	if err != nil {
		panic(err)
	}
	return models.TransactionRecord{
		Timestamp: &t,
		Amount:    decimal.NewFromInt(amount),
		Status:    status,
		Type:      "PSE",
	}
}

func workedExampleSet() models.ClientTransactionSet {
	var records []models.TransactionRecord
	for i := 0; i < 8; i++ {
		records = append(records, rec("2026-03-02 10:00:00", 15_000_000, models.StatusPaid))
	}
	for i := 0; i < 2; i++ {
		records = append(records, rec("2026-03-02 11:00:00", 15_000_000, models.StatusRejected))
	}
	return models.ClientTransactionSet{ClientID: "CL-001", Records: records}
}

func TestAnalyzeWorkedExample(t *testing.T) {
	a := newEngine().Analyze(workedExampleSet(), testNow)
	v := a.Verdict

	// GAFI 55 (volume 20, avg 15, rejection 20), compliance 87
	// (high-value 25, daily volume 20, structuring 30, rejection 12),
	// operational 25 (rejection rate) -> round(22 + 30.45 + 6.25) = 59.
	assert.Equal(t, 55, v.Score.GAFI)
	assert.Equal(t, 87, v.Score.Compliance)
	assert.Equal(t, 25, v.Score.Operational)
	assert.Equal(t, 59, v.Score.Total)
	assert.Equal(t, models.RiskLevelHigh, v.Score.Level)

	types := map[models.FlagType]models.RedFlag{}
	for _, f := range v.Flags {
		types[f.Type] = f
	}
	rejection, ok := types[models.FlagHighRejectionRate]
	require.True(t, ok)
	assert.Equal(t, 12, rejection.Points)
	assert.Contains(t, types, models.FlagStructuring)
	assert.Contains(t, types, models.FlagHighValueTransactions)

	// the 20% rejection rate is the only signal over a reporting threshold
	require.Len(t, v.Alerts, 1)
	assert.Equal(t, "RECH", v.Alerts[0].ID[:4])
	assert.Equal(t, models.PriorityMedium, v.Alerts[0].Priority)
	assert.False(t, v.Escalate)
	assert.False(t, v.EnhancedDueDiligence)
	assert.Equal(t, testNow.AddDate(0, 0, 15), v.NextReview)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	e := newEngine()
	first, err := json.Marshal(e.Analyze(workedExampleSet(), testNow))
	require.NoError(t, err)
	second, err := json.Marshal(e.Analyze(workedExampleSet(), testNow))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnalyzeEmptySet(t *testing.T) {
	a := newEngine().Analyze(models.ClientTransactionSet{ClientID: "CL-009"}, testNow)
	v := a.Verdict

	assert.Equal(t, "CL-009", v.ClientID)
	assert.Zero(t, v.Score.Total)
	assert.Equal(t, models.RiskLevelNotEvaluated, v.Score.Level)
	assert.Empty(t, v.Flags)
	assert.Empty(t, v.Alerts)
	assert.Equal(t, []string{recommendationNoData}, v.Recommendations)
	assert.False(t, v.EnhancedDueDiligence)
	assert.False(t, v.Escalate)
	assert.True(t, v.NextReview.IsZero())
	assert.Equal(t, models.RiskLevelNotEvaluated, v.Anomalies.Level)
	assert.Equal(t, 50, v.Matrix.Inherent.Geography)
}

func TestAnalyzeSingleZeroAmount(t *testing.T) {
	set := models.ClientTransactionSet{ClientID: "CL-002", Records: []models.TransactionRecord{
		rec("2026-03-02 10:00:00", 0, models.StatusPaid),
	}}
	a := newEngine().Analyze(set, testNow)
	v := a.Verdict

	found := false
	for _, f := range v.Flags {
		if f.Type == models.FlagDataInconsistency {
			found = true
		}
	}
	assert.True(t, found)
	assert.Equal(t, models.RiskLevelLow, v.Score.Level)
	assert.LessOrEqual(t, v.Score.Total, 5)
	assert.Equal(t, testNow.AddDate(0, 0, 90), v.NextReview)
}

func TestAnalyzeHeavyClientEscalates(t *testing.T) {
	var records []models.TransactionRecord
	// heavy structured activity: 30 days x 12 similar high transactions,
	// a quarter of them rejected
	for day := 1; day <= 30; day++ {
		for i := 0; i < 12; i++ {
			status := models.StatusPaid
			if i < 3 {
				status = models.StatusRejected
			}
			records = append(records, rec(fmt.Sprintf("2026-03-%02d %02d:00:00", day, 8+i), 11_000_000, status))
		}
	}
	set := models.ClientTransactionSet{ClientID: "CL-003", Records: records}

	a := newEngine().Analyze(set, testNow)
	v := a.Verdict

	// GAFI 70, compliance capped at 100, operational 25 -> 69.
	assert.Equal(t, 69, v.Score.Total)
	assert.Equal(t, models.RiskLevelHigh, v.Score.Level)
	assert.True(t, v.Escalate)
	require.NotEmpty(t, v.Alerts)
	assert.Equal(t, models.PriorityCritical, v.Alerts[0].Priority)
	assert.Equal(t, testNow.AddDate(0, 0, 15), v.NextReview)

	// ordering contract: priorities never decrease in urgency down the list
	for i := 1; i < len(v.Alerts); i++ {
		prev, cur := v.Alerts[i-1], v.Alerts[i]
		assert.LessOrEqual(t, prev.Priority.Rank(), cur.Priority.Rank())
		if prev.Priority.Rank() == cur.Priority.Rank() {
			assert.LessOrEqual(t, prev.DaysToAct, cur.DaysToAct)
		}
	}
}

func TestAnalyzePortfolioKeepsOrder(t *testing.T) {
	sets := []models.ClientTransactionSet{
		{ClientID: "CL-A"},
		workedExampleSet(),
		{ClientID: "CL-C", Records: []models.TransactionRecord{rec("2026-03-02 10:00:00", 500_000, models.StatusPaid)}},
	}
	results := newEngine().AnalyzePortfolio(context.Background(), sets, testNow, 2)

	require.Len(t, results, 3)
	assert.Equal(t, "CL-A", results[0].Verdict.ClientID)
	assert.Equal(t, "CL-001", results[1].Verdict.ClientID)
	assert.Equal(t, "CL-C", results[2].Verdict.ClientID)
}

func TestAnalyzePortfolioCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sets := []models.ClientTransactionSet{{ClientID: "CL-A"}, {ClientID: "CL-B"}}
	results := newEngine().AnalyzePortfolio(ctx, sets, testNow, 1)
	assert.LessOrEqual(t, len(results), len(sets))
}

func TestSummarize(t *testing.T) {
	e := newEngine()
	analyses := []Analysis{
		e.Analyze(workedExampleSet(), testNow),
		e.Analyze(models.ClientTransactionSet{ClientID: "CL-B"}, testNow),
	}
	s := Summarize(analyses, testNow)

	assert.Equal(t, 2, s.TotalClients)
	assert.Equal(t, 1, s.ByLevel.High)
	assert.Equal(t, 1, s.ByLevel.NotEvaluated)
	require.NotEmpty(t, s.TopRisks)
	assert.Equal(t, "CL-001", s.TopRisks[0].ClientID)
	assert.Equal(t, testNow, s.GeneratedAt)
	// one of two clients at High level is a 50% concentration
	assert.NotEmpty(t, s.StrategicRecommendations)
}
