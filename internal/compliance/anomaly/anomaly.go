// Package anomaly detects statistical outliers in transaction amounts,
// daily frequency and timing using dispersion-based thresholds.
package anomaly

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/internal/compliance/profile"
	"github.com/adamopay/txrisk/pkg/models"
)

// Direction of an amount outlier relative to the mean.
const (
	DirectionHigh = "HIGH"
	DirectionLow  = "LOW"
)

// Temporal anomaly kinds.
const (
	KindUnusualHours = "UNUSUAL_HOURS"
	KindBurst        = "TRANSACTION_BURST"
)

// AmountOutlier is a single transaction whose amount deviates from the
// mean by more than the configured number of standard deviations.
type AmountOutlier struct {
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Deviation float64         `json:"deviation"` // in standard deviations
	Direction string          `json:"direction"`
}

// FrequencyOutlier is a day whose transaction count exceeds the daily
// mean by more than the configured number of standard deviations.
type FrequencyOutlier struct {
	Date      string  `json:"date"`
	Count     int     `json:"count"`
	DailyMean float64 `json:"daily_mean"`
	Deviation float64 `json:"deviation"`
}

// TemporalAnomaly reports an unusual timing pattern.
type TemporalAnomaly struct {
	Kind     string  `json:"kind"`
	Count    int     `json:"count"`
	SharePct float64 `json:"share_pct,omitempty"`
}

// Report is the full anomaly detector output.
type Report struct {
	AmountOutliers    []AmountOutlier    `json:"amount_outliers"`
	FrequencyOutliers []FrequencyOutlier `json:"frequency_outliers"`
	Temporal          []TemporalAnomaly  `json:"temporal"`
	Total             int                `json:"total"`
	Level             models.RiskLevel   `json:"level"`
}

// Summary condenses the report for the verdict.
func (r Report) Summary() models.AnomalySummary {
	return models.AnomalySummary{
		AmountOutliers:    len(r.AmountOutliers),
		FrequencyOutliers: len(r.FrequencyOutliers),
		TemporalAnomalies: len(r.Temporal),
		Total:             r.Total,
		Level:             r.Level,
	}
}

// Detect runs the three anomaly classes over the set. Fewer data points
// than the configured minimum yields an empty report, not an error.
func Detect(set models.ClientTransactionSet, m profile.Metrics, th config.Thresholds) Report {
	r := Report{
		AmountOutliers:    []AmountOutlier{},
		FrequencyOutliers: []FrequencyOutlier{},
		Temporal:          []TemporalAnomaly{},
		Level:             models.RiskLevelNotEvaluated,
	}
	if set.Empty() {
		return r
	}
	r.Level = models.RiskLevelLow
	if m.TotalCount < th.MinAnomalyPoints {
		return r
	}

	r.AmountOutliers = amountOutliers(set, m, th)
	r.FrequencyOutliers = frequencyOutliers(m, th)
	r.Temporal = temporalAnomalies(m, th)

	r.Total = len(r.AmountOutliers) + len(r.FrequencyOutliers) + len(r.Temporal)
	switch {
	case r.Total >= 10:
		r.Level = models.RiskLevelHigh
	case r.Total >= 5:
		r.Level = models.RiskLevelMedium
	}
	return r
}

func amountOutliers(set models.ClientTransactionSet, m profile.Metrics, th config.Thresholds) []AmountOutlier {
	out := []AmountOutlier{}
	if m.StdDev <= 0 {
		return out
	}
	mean, _ := m.AvgTicket.Float64()
	limit := th.OutlierStdDevs * m.StdDev
	for _, rec := range set.Records {
		a, _ := rec.Amount.Float64()
		diff := a - mean
		if math.Abs(diff) <= limit {
			continue
		}
		dir := DirectionHigh
		if diff < 0 {
			dir = DirectionLow
		}
		out = append(out, AmountOutlier{
			Timestamp: rec.Timestamp,
			Amount:    rec.Amount,
			Deviation: math.Abs(diff) / m.StdDev,
			Direction: dir,
		})
	}
	return out
}

func frequencyOutliers(m profile.Metrics, th config.Thresholds) []FrequencyOutlier {
	out := []FrequencyOutlier{}
	if len(m.Days) < th.MinAnomalyPoints {
		return out
	}
	var sum float64
	for _, d := range m.Days {
		sum += float64(d.Count)
	}
	mean := sum / float64(len(m.Days))
	var sq float64
	for _, d := range m.Days {
		diff := float64(d.Count) - mean
		sq += diff * diff
	}
	std := math.Sqrt(sq / float64(len(m.Days)-1))
	if std <= 0 {
		return out
	}
	limit := mean + th.OutlierStdDevs*std
	for _, d := range m.Days {
		if float64(d.Count) > limit {
			out = append(out, FrequencyOutlier{
				Date:      d.Date,
				Count:     d.Count,
				DailyMean: mean,
				Deviation: (float64(d.Count) - mean) / std,
			})
		}
	}
	return out
}

func temporalAnomalies(m profile.Metrics, th config.Thresholds) []TemporalAnomaly {
	out := []TemporalAnomaly{}
	if m.TimedCount == 0 {
		return out
	}

	// Off-hours concentration: 00:00-04:59 and 22:00-23:59.
	offHours := 0
	for h := 0; h < 5; h++ {
		offHours += m.HourCounts[h]
	}
	offHours += m.HourCounts[22] + m.HourCounts[23]
	share := float64(offHours) / float64(m.TimedCount)
	if share > th.OffHoursShare {
		out = append(out, TemporalAnomaly{
			Kind:     KindUnusualHours,
			Count:    offHours,
			SharePct: share * 100,
		})
	}

	// Burst detection: short inter-arrival gaps.
	shortGaps := 0
	for i := 1; i < len(m.SortedTimes); i++ {
		gap := m.SortedTimes[i].Sub(m.SortedTimes[i-1]).Minutes()
		if gap < th.BurstGapMinutes {
			shortGaps++
		}
	}
	if shortGaps > th.BurstMinCount {
		out = append(out, TemporalAnomaly{Kind: KindBurst, Count: shortGaps})
	}
	return out
}
