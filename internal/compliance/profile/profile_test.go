package profile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/pkg/models"
)

func rec(ts string, amount int64, status models.TransactionStatus, typ string) models.TransactionRecord {
	r := models.TransactionRecord{
		Amount: decimal.NewFromInt(amount),
		Status: status,
		Type:   typ,
	}
	if ts != "" {
		t, err := time.Parse("2006-01-02 15:04:05", ts)
		if err != nil {
			panic(err)
		}
		r.Timestamp = &t
	}
	return r
}

func setOf(records ...models.TransactionRecord) models.ClientTransactionSet {
	return models.ClientTransactionSet{ClientID: "CL-001", Records: records}
}

func TestComputeBasics(t *testing.T) {
	records := make([]models.TransactionRecord, 0, 10)
	for i := 0; i < 8; i++ {
		records = append(records, rec("2026-03-02 10:00:00", 15_000_000, models.StatusPaid, "PSE"))
	}
	for i := 0; i < 2; i++ {
		records = append(records, rec("2026-03-02 11:00:00", 15_000_000, models.StatusRejected, "PSE"))
	}

	m := Compute(setOf(records...))

	assert.Equal(t, 10, m.TotalCount)
	assert.Equal(t, 10, m.TimedCount)
	assert.Equal(t, 8, m.SuccessfulCount)
	assert.Equal(t, 2, m.RejectedCount)
	assert.InDelta(t, 20.0, m.RejectionRate, 0.001)
	assert.True(t, m.TotalVolume.Equal(decimal.NewFromInt(150_000_000)))
	assert.True(t, m.AvgTicket.Equal(decimal.NewFromInt(15_000_000)))
	assert.True(t, m.MedianAmount.Equal(decimal.NewFromInt(15_000_000)))
	assert.Zero(t, m.StdDev)
	assert.Equal(t, 1, m.ActiveDays)
	assert.Equal(t, 1, m.DaysWithActivity)
	assert.InDelta(t, 10.0, m.DailyFrequency, 0.001)
	assert.Equal(t, 1, m.TypeDiversity)
	assert.Equal(t, "PSE", m.PredominantType)

	require.Len(t, m.Days, 1)
	assert.Equal(t, "2026-03-02", m.Days[0].Date)
	assert.Equal(t, 10, m.Days[0].Count)
}

func TestComputeUntimedRecordsCountOnlyTowardTotals(t *testing.T) {
	m := Compute(setOf(
		rec("2026-03-02 10:00:00", 1_000_000, models.StatusPaid, "PSE"),
		rec("", 2_000_000, models.StatusPaid, "PSE"),
	))

	assert.Equal(t, 2, m.TotalCount)
	assert.Equal(t, 1, m.TimedCount)
	assert.True(t, m.TotalVolume.Equal(decimal.NewFromInt(3_000_000)))
	assert.Equal(t, 1, m.DaysWithActivity)
}

func TestComputeDaysSortedAndRolledUp(t *testing.T) {
	m := Compute(setOf(
		rec("2026-03-05 09:00:00", 100, models.StatusPaid, "PSE"),
		rec("2026-03-01 09:00:00", 200, models.StatusPaid, "NEQUI"),
		rec("2026-03-01 17:00:00", 400, models.StatusPaid, "NEQUI"),
	))

	require.Len(t, m.Days, 2)
	assert.Equal(t, "2026-03-01", m.Days[0].Date)
	assert.Equal(t, 2, m.Days[0].Count)
	assert.True(t, m.Days[0].Mean.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, "2026-03-05", m.Days[1].Date)
	assert.Equal(t, 5, m.ActiveDays)

	require.Len(t, m.Months, 1)
	assert.Equal(t, "2026-03", m.Months[0].Key)
	assert.Equal(t, 3, m.Months[0].Count)
}

func TestScoreWorkedExample(t *testing.T) {
	// 150M volume (+15), 10 tx/day (+5), 15M avg ticket (+12),
	// single type (+0), 20% rejection (+20) = 52, Medium.
	records := make([]models.TransactionRecord, 0, 10)
	for i := 0; i < 8; i++ {
		records = append(records, rec("2026-03-02 10:00:00", 15_000_000, models.StatusPaid, "PSE"))
	}
	for i := 0; i < 2; i++ {
		records = append(records, rec("2026-03-02 11:00:00", 15_000_000, models.StatusRejected, "PSE"))
	}

	res := Analyze(setOf(records...), config.DefaultThresholds())

	assert.Equal(t, 52, res.Score)
	assert.Equal(t, models.RiskLevelMedium, res.Level)

	types := map[models.FlagType]bool{}
	for _, f := range res.Flags {
		types[f.Type] = true
	}
	assert.True(t, types[models.FlagHighVolume])
	assert.True(t, types[models.FlagHighFrequency])
	assert.True(t, types[models.FlagHighTicket])
	assert.True(t, types[models.FlagHighRejection])
}

func TestScoreCappedAt100(t *testing.T) {
	m := Metrics{
		TotalCount:     100,
		TimedCount:     100,
		TotalVolume:    decimal.NewFromInt(600_000_000),
		AvgTicket:      decimal.NewFromInt(25_000_000),
		DailyFrequency: 25,
		RejectionRate:  20,
		TypeDiversity:  5,
	}
	score, level, _ := Score(m, config.DefaultThresholds())
	assert.Equal(t, 100, score)
	assert.Equal(t, models.RiskLevelHigh, level)
}

func TestAnalyzeEmptySet(t *testing.T) {
	res := Analyze(models.ClientTransactionSet{ClientID: "CL-001"}, config.DefaultThresholds())
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, models.RiskLevelNotEvaluated, res.Level)
	assert.Empty(t, res.Flags)
}

func TestConsistencyIndexPenalties(t *testing.T) {
	m := Metrics{TimedCount: 10, CVPercent: 150, RejectionRate: 15, DailyFrequency: 0.05}
	assert.Equal(t, 40, consistencyIndex(m))

	m = Metrics{TimedCount: 10, CVPercent: 20, RejectionRate: 2, DailyFrequency: 3}
	assert.Equal(t, 100, consistencyIndex(m))
}

func TestMedian(t *testing.T) {
	odd := []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(3), decimal.NewFromInt(9)}
	assert.True(t, median(odd).Equal(decimal.NewFromInt(3)))

	even := []decimal.Decimal{decimal.NewFromInt(2), decimal.NewFromInt(4)}
	assert.True(t, median(even).Equal(decimal.NewFromInt(3)))
}
