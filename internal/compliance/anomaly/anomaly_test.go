package anomaly

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/internal/compliance/profile"
	"github.com/adamopay/txrisk/pkg/models"
)

func rec(ts string, amount int64) models.TransactionRecord {
	t, err := time.Parse("2006-01-02 15:04:05", ts)
	if err != nil {
		panic(err)
	}
	return models.TransactionRecord{
		Timestamp: &t,
		Amount:    decimal.NewFromInt(amount),
		Status:    models.StatusPaid,
		Type:      "PSE",
	}
}

func detect(records ...models.TransactionRecord) Report {
	set := models.ClientTransactionSet{ClientID: "CL-001", Records: records}
	return Detect(set, profile.Compute(set), config.DefaultThresholds())
}

func TestDetectEmptySet(t *testing.T) {
	r := Detect(models.ClientTransactionSet{}, profile.Metrics{}, config.DefaultThresholds())
	assert.Equal(t, 0, r.Total)
	assert.Equal(t, models.RiskLevelNotEvaluated, r.Level)
}

func TestDetectInsufficientData(t *testing.T) {
	r := detect(
		rec("2026-03-02 10:00:00", 1_000_000),
		rec("2026-03-02 11:00:00", 99_000_000),
		rec("2026-03-03 10:00:00", 1_000_000),
	)
	assert.Equal(t, 0, r.Total)
	assert.Equal(t, models.RiskLevelLow, r.Level)
}

func TestAmountOutlierDetected(t *testing.T) {
	records := []models.TransactionRecord{}
	for i := 0; i < 20; i++ {
		records = append(records, rec(fmt.Sprintf("2026-03-%02d 10:00:00", i+1), 1_000_000))
	}
	records = append(records, rec("2026-03-25 10:00:00", 80_000_000))

	r := detect(records...)

	require.Len(t, r.AmountOutliers, 1)
	out := r.AmountOutliers[0]
	assert.Equal(t, DirectionHigh, out.Direction)
	assert.True(t, out.Amount.Equal(decimal.NewFromInt(80_000_000)))
	assert.Greater(t, out.Deviation, 2.5)
}

func TestNoAmountOutlierWithZeroDispersion(t *testing.T) {
	records := []models.TransactionRecord{}
	for i := 0; i < 10; i++ {
		records = append(records, rec(fmt.Sprintf("2026-03-%02d 10:00:00", i+1), 5_000_000))
	}
	r := detect(records...)
	assert.Empty(t, r.AmountOutliers)
}

func TestFrequencyOutlierDetected(t *testing.T) {
	records := []models.TransactionRecord{}
	// one transaction per day for nine days, then a 15-transaction spike
	for i := 0; i < 9; i++ {
		records = append(records, rec(fmt.Sprintf("2026-03-%02d 10:00:00", i+1), 1_000_000))
	}
	for i := 0; i < 15; i++ {
		records = append(records, rec(fmt.Sprintf("2026-03-10 %02d:10:00", 8+(i%10)), 1_000_000))
	}

	r := detect(records...)

	require.Len(t, r.FrequencyOutliers, 1)
	assert.Equal(t, "2026-03-10", r.FrequencyOutliers[0].Date)
	assert.Equal(t, 15, r.FrequencyOutliers[0].Count)
}

func TestUnusualHoursAnomaly(t *testing.T) {
	records := []models.TransactionRecord{}
	for i := 0; i < 6; i++ {
		records = append(records, rec(fmt.Sprintf("2026-03-%02d 14:00:00", i+1), 1_000_000))
	}
	for i := 0; i < 4; i++ {
		records = append(records, rec(fmt.Sprintf("2026-03-%02d 02:30:00", i+10), 1_000_000))
	}

	r := detect(records...)

	require.Len(t, r.Temporal, 1)
	assert.Equal(t, KindUnusualHours, r.Temporal[0].Kind)
	assert.Equal(t, 4, r.Temporal[0].Count)
	assert.InDelta(t, 40.0, r.Temporal[0].SharePct, 0.001)
}

func TestBurstAnomaly(t *testing.T) {
	records := []models.TransactionRecord{}
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		records = append(records, models.TransactionRecord{
			Timestamp: &ts,
			Amount:    decimal.NewFromInt(1_000_000),
			Status:    models.StatusPaid,
			Type:      "PSE",
		})
	}

	r := detect(records...)

	require.Len(t, r.Temporal, 1)
	assert.Equal(t, KindBurst, r.Temporal[0].Kind)
	assert.Equal(t, 7, r.Temporal[0].Count)
}

func TestLevelEscalatesWithTotal(t *testing.T) {
	r := Report{Total: 4, Level: models.RiskLevelLow}
	assert.Equal(t, models.RiskLevelLow, r.Level)

	records := []models.TransactionRecord{}
	// five off-hour spikes spread over distinct anomaly classes is hard to
	// stage naturally; assert the mapping through Detect with many amount
	// outliers instead
	for i := 0; i < 40; i++ {
		records = append(records, rec(fmt.Sprintf("2026-03-%02d 10:00:00", (i%28)+1), 1_000_000))
	}
	for i := 0; i < 5; i++ {
		records = append(records, rec(fmt.Sprintf("2026-04-%02d 10:00:00", i+1), 200_000_000))
	}

	got := detect(records...)
	assert.GreaterOrEqual(t, got.Total, 5)
	assert.Contains(t, []models.RiskLevel{models.RiskLevelMedium, models.RiskLevelHigh}, got.Level)
}

func TestSummaryCountsClasses(t *testing.T) {
	r := Report{
		AmountOutliers:    []AmountOutlier{{}, {}},
		FrequencyOutliers: []FrequencyOutlier{{}},
		Temporal:          []TemporalAnomaly{{Kind: KindBurst}},
		Total:             4,
		Level:             models.RiskLevelLow,
	}
	s := r.Summary()
	assert.Equal(t, 2, s.AmountOutliers)
	assert.Equal(t, 1, s.FrequencyOutliers)
	assert.Equal(t, 1, s.TemporalAnomalies)
	assert.Equal(t, 4, s.Total)
}
