package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/internal/compliance/profile"
	"github.com/adamopay/txrisk/pkg/models"
)

func TestAggregateWeighting(t *testing.T) {
	th := config.DefaultThresholds()

	b := Aggregate(80, 60, 40, th)
	// 80*0.40 + 60*0.35 + 40*0.25 = 32 + 21 + 10 = 63
	assert.Equal(t, 63, b.Total)
	assert.Equal(t, models.RiskLevelHigh, b.Level)
	assert.Equal(t, []string{criticalGAFI}, b.CriticalFactors)
}

func TestAggregateRoundsTotal(t *testing.T) {
	th := config.DefaultThresholds()
	// 50*0.40 + 51*0.35 + 50*0.25 = 20 + 17.85 + 12.5 = 50.35 -> 50
	assert.Equal(t, 50, Aggregate(50, 51, 50, th).Total)
	// 51*0.40 + 51*0.35 + 51*0.25 = 51.0 -> 51
	assert.Equal(t, 51, Aggregate(51, 51, 51, th).Total)
	// 49*0.40 + 52*0.35 + 55*0.25 = 19.6 + 18.2 + 13.75 = 51.55 -> 52
	assert.Equal(t, 52, Aggregate(49, 52, 55, th).Total)
}

func TestAggregateClampsSubScores(t *testing.T) {
	b := Aggregate(150, -10, 100, config.DefaultThresholds())
	assert.Equal(t, 100, b.GAFI)
	assert.Equal(t, 0, b.Compliance)
	assert.Equal(t, 100, b.Operational)
	assert.LessOrEqual(t, b.Total, 100)
}

func TestAggregateLevelBreakpoints(t *testing.T) {
	th := config.DefaultThresholds()
	cases := []struct {
		total int
		level models.RiskLevel
	}{
		{0, models.RiskLevelLow},
		{30, models.RiskLevelLow},
		{31, models.RiskLevelMedium},
		{50, models.RiskLevelMedium},
		{51, models.RiskLevelHigh},
		{75, models.RiskLevelHigh},
		{76, models.RiskLevelCritical},
		{100, models.RiskLevelCritical},
	}
	for _, tc := range cases {
		b := Aggregate(tc.total, tc.total, tc.total, th)
		assert.Equal(t, tc.total, b.Total)
		assert.Equal(t, tc.level, b.Level, "total %d", tc.total)
	}
}

func TestAggregateAllCriticalFactors(t *testing.T) {
	b := Aggregate(71, 85, 90, config.DefaultThresholds())
	assert.Equal(t, []string{criticalGAFI, criticalCompliance, criticalOperational}, b.CriticalFactors)
}

func TestEmptyBreakdown(t *testing.T) {
	b := Empty(config.DefaultThresholds())
	assert.Zero(t, b.Total)
	assert.Equal(t, models.RiskLevelNotEvaluated, b.Level)
	assert.Empty(t, b.CriticalFactors)
	assert.Equal(t, 0.40, b.Weights.GAFI)
}

func TestOperationalFactors(t *testing.T) {
	th := config.DefaultThresholds()

	assert.Zero(t, Operational(profile.Metrics{}, th))

	m := profile.Metrics{
		TotalCount:    10,
		TypeDiversity: 5,
		CVPercent:     160, // ratio 1.6
		RejectionRate: 16,
		Weeks: []profile.PeriodStats{
			{Key: "2026-W01", Count: 1},
			{Key: "2026-W02", Count: 1},
			{Key: "2026-W03", Count: 1},
			{Key: "2026-W04", Count: 1},
			{Key: "2026-W05", Count: 1},
			{Key: "2026-W06", Count: 1},
			{Key: "2026-W07", Count: 6},
		},
	}
	// 20 + 15 + 25 + 15 (max week 6 > mean 1.71 * 3)
	assert.Equal(t, 75, Operational(m, th))

	mild := profile.Metrics{
		TotalCount:    10,
		TypeDiversity: 3,
		CVPercent:     120,
		RejectionRate: 12,
	}
	// 10 + 8 + 15
	assert.Equal(t, 33, Operational(mild, th))
}
