// Package redflags evaluates the rule-based risk indicators watched by
// the financial-intelligence unit: high-value activity, unusual volume,
// structuring, suspicious timing, rejections, behavioral shifts and
// data-quality issues. The summed flag points become the
// compliance-signal component of the total score.
package redflags

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/internal/compliance/profile"
	"github.com/adamopay/txrisk/pkg/models"
)

// Evaluation is the red-flag engine output for one client.
type Evaluation struct {
	Flags                 []models.RedFlag `json:"flags"`
	Score                 int              `json:"score"`
	Level                 models.RiskLevel `json:"level"`
	RequiresUIAFReport    bool             `json:"requires_uiaf_report"`
	RequiresInvestigation bool             `json:"requires_investigation"`
}

// Evaluate runs every detector over the set. Detectors that lack the
// fields they need abstain; none of them fails the evaluation.
func Evaluate(set models.ClientTransactionSet, m profile.Metrics, th config.Thresholds) Evaluation {
	if set.Empty() {
		return Evaluation{Flags: []models.RedFlag{}, Level: models.RiskLevelNotEvaluated}
	}

	flags := []models.RedFlag{}
	flags = append(flags, highValueTransactions(set, th)...)
	flags = append(flags, unusualVolume(m, th)...)
	flags = append(flags, structuring(m, th)...)
	flags = append(flags, temporalPatterns(m, th)...)
	flags = append(flags, highRejectionRate(m, th)...)
	flags = append(flags, behavioralShift(set, th)...)
	// Jurisdiction risk is a reserved extension point; transaction
	// records carry no geography fields yet.
	flags = append(flags, dataInconsistencies(set)...)

	score := 0
	for _, f := range flags {
		score += f.Points
	}
	if score > 100 {
		score = 100
	}

	return Evaluation{
		Flags:                 flags,
		Score:                 score,
		Level:                 alertLevel(score, len(flags)),
		RequiresUIAFReport:    score >= 70,
		RequiresInvestigation: score >= 50,
	}
}

func alertLevel(score, count int) models.RiskLevel {
	switch {
	case score >= 70 || count >= 5:
		return models.RiskLevelCritical
	case score >= 50 || count >= 3:
		return models.RiskLevelHigh
	case score >= 30 || count >= 1:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

func highValueTransactions(set models.ClientTransactionSet, th config.Thresholds) []models.RedFlag {
	threshold := decimal.NewFromInt(th.HighValueTransaction)
	count := 0
	total := decimal.Zero
	max := decimal.Zero
	for _, r := range set.Records {
		if r.Amount.GreaterThanOrEqual(threshold) {
			count++
			total = total.Add(r.Amount)
			if r.Amount.GreaterThan(max) {
				max = r.Amount
			}
		}
	}
	if count == 0 {
		return nil
	}
	sev := models.RiskLevelMedium
	pts := 15
	if count >= 5 {
		sev = models.RiskLevelHigh
		pts = 25
	}
	return []models.RedFlag{{
		Type:        models.FlagHighValueTransactions,
		Severity:    sev,
		Description: fmt.Sprintf("%d transactions at or above %s COP", count, threshold.StringFixed(0)),
		Details: map[string]string{
			"count":        fmt.Sprintf("%d", count),
			"total_amount": total.StringFixed(0),
			"max_amount":   max.StringFixed(0),
		},
		Action: "Verify the origin and destination of funds",
		Points: pts,
	}}
}

func unusualVolume(m profile.Metrics, th config.Thresholds) []models.RedFlag {
	var flags []models.RedFlag

	dailyLimit := decimal.NewFromInt(th.DailyVolumeAlert)
	var hotDays []string
	maxDay := decimal.Zero
	for _, d := range m.Days {
		if d.Volume.GreaterThanOrEqual(dailyLimit) {
			hotDays = append(hotDays, d.Date)
			if d.Volume.GreaterThan(maxDay) {
				maxDay = d.Volume
			}
		}
	}
	if len(hotDays) > 0 {
		sample := hotDays
		if len(sample) > 5 {
			sample = sample[:5]
		}
		flags = append(flags, models.RedFlag{
			Type:        models.FlagUnusualDailyVolume,
			Severity:    models.RiskLevelHigh,
			Description: fmt.Sprintf("%d days with volume at or above %s COP", len(hotDays), dailyLimit.StringFixed(0)),
			Details: map[string]string{
				"affected_days":  fmt.Sprintf("%d", len(hotDays)),
				"max_day_volume": maxDay.StringFixed(0),
				"dates":          strings.Join(sample, ","),
			},
			Action: "Analyze the justification for the high-volume days",
			Points: 20,
		})
	}

	monthlyLimit := decimal.NewFromInt(th.MonthlyVolumeAlert)
	hotMonths := 0
	maxMonth := decimal.Zero
	for _, p := range m.Months {
		if p.Volume.GreaterThanOrEqual(monthlyLimit) {
			hotMonths++
			if p.Volume.GreaterThan(maxMonth) {
				maxMonth = p.Volume
			}
		}
	}
	if hotMonths > 0 {
		flags = append(flags, models.RedFlag{
			Type:        models.FlagUnusualMonthlyVolume,
			Severity:    models.RiskLevelMedium,
			Description: fmt.Sprintf("%d months with volume at or above %s COP", hotMonths, monthlyLimit.StringFixed(0)),
			Details: map[string]string{
				"affected_months":  fmt.Sprintf("%d", hotMonths),
				"max_month_volume": maxMonth.StringFixed(0),
			},
			Action: "Review the commercial and operating activity",
			Points: 15,
		})
	}
	return flags
}

// structuring reports the first day with enough same-sized transactions
// to suggest deliberate fragmentation below reporting thresholds. Only
// one occurrence is reported per evaluation.
func structuring(m profile.Metrics, th config.Thresholds) []models.RedFlag {
	tol := decimal.NewFromFloat(th.StructuringTolerance)
	for _, d := range m.Days {
		if d.Count < th.StructuringMinCount {
			continue
		}
		lower := d.Mean.Mul(decimal.NewFromInt(1).Sub(tol))
		upper := d.Mean.Mul(decimal.NewFromInt(1).Add(tol))
		similar := 0
		for _, a := range d.Amounts {
			if a.GreaterThanOrEqual(lower) && a.LessThanOrEqual(upper) {
				similar++
			}
		}
		if similar < th.StructuringMinCount {
			continue
		}
		return []models.RedFlag{{
			Type:        models.FlagStructuring,
			Severity:    models.RiskLevelHigh,
			Description: fmt.Sprintf("%d similarly sized transactions on %s", similar, d.Date),
			Details: map[string]string{
				"date":         d.Date,
				"count":        fmt.Sprintf("%d", similar),
				"mean_amount":  d.Mean.StringFixed(0),
				"day_volume":   d.Volume.StringFixed(0),
			},
			Action: "Investigate the fragmentation motive, possible evasion of controls",
			Points: 30,
		}}
	}
	return nil
}

func temporalPatterns(m profile.Metrics, th config.Thresholds) []models.RedFlag {
	var flags []models.RedFlag
	if m.TimedCount == 0 {
		return flags
	}

	busyDays := 0
	maxCount := 0
	for _, d := range m.Days {
		if d.Count >= th.DailyCountAlert {
			busyDays++
			if d.Count > maxCount {
				maxCount = d.Count
			}
		}
	}
	if busyDays > 0 {
		flags = append(flags, models.RedFlag{
			Type:        models.FlagExcessiveDailyCount,
			Severity:    models.RiskLevelMedium,
			Description: fmt.Sprintf("%d days with %d or more transactions", busyDays, th.DailyCountAlert),
			Details: map[string]string{
				"affected_days": fmt.Sprintf("%d", busyDays),
				"max_day_count": fmt.Sprintf("%d", maxCount),
			},
			Action: "Verify the nature of the commercial activity",
			Points: 15,
		})
	}

	early := 0
	for h := 0; h < 6; h++ {
		early += m.HourCounts[h]
	}
	if float64(early) > float64(m.TimedCount)*th.EarlyHoursShare {
		flags = append(flags, models.RedFlag{
			Type:        models.FlagUnusualHours,
			Severity:    models.RiskLevelLow,
			Description: fmt.Sprintf("%d transactions between 00:00 and 06:00", early),
			Details: map[string]string{
				"count":   fmt.Sprintf("%d", early),
				"percent": fmt.Sprintf("%.1f", float64(early)/float64(m.TimedCount)*100),
			},
			Action: "Validate the reason for overnight operations",
			Points: 10,
		})
	}

	weekend := m.WeekdayCounts[5] + m.WeekdayCounts[6]
	if float64(weekend) > float64(m.TimedCount)*th.WeekendShare {
		flags = append(flags, models.RedFlag{
			Type:        models.FlagWeekendActivity,
			Severity:    models.RiskLevelLow,
			Description: fmt.Sprintf("%d transactions on Saturday or Sunday", weekend),
			Details: map[string]string{
				"count":   fmt.Sprintf("%d", weekend),
				"percent": fmt.Sprintf("%.1f", float64(weekend)/float64(m.TimedCount)*100),
			},
			Action: "Verify the business type and its justification",
			Points: 8,
		})
	}
	return flags
}

func highRejectionRate(m profile.Metrics, th config.Thresholds) []models.RedFlag {
	if m.TotalCount == 0 || m.RejectionRate < th.RejectionFlagRate {
		return nil
	}
	return []models.RedFlag{{
		Type:        models.FlagHighRejectionRate,
		Severity:    models.RiskLevelMedium,
		Description: fmt.Sprintf("%.1f%% of transactions rejected (%d of %d)", m.RejectionRate, m.RejectedCount, m.TotalCount),
		Details: map[string]string{
			"rejection_rate_pct": fmt.Sprintf("%.2f", m.RejectionRate),
			"rejected_count":     fmt.Sprintf("%d", m.RejectedCount),
			"total_count":        fmt.Sprintf("%d", m.TotalCount),
		},
		Action: "Investigate the cause of frequent rejections, possible failed attempts",
		Points: 12,
	}}
}

// behavioralShift splits the time-ordered set at its midpoint and
// compares the halves. Percentage variation is computed against the
// first half.
func behavioralShift(set models.ClientTransactionSet, th config.Thresholds) []models.RedFlag {
	type timed struct {
		at     time.Time
		amount decimal.Decimal
	}
	recs := make([]timed, 0, len(set.Records))
	for _, r := range set.Records {
		if r.Timestamp != nil {
			recs = append(recs, timed{at: *r.Timestamp, amount: r.Amount})
		}
	}
	if len(recs) < th.ShiftMinRecords {
		return nil
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].at.Before(recs[j].at) })

	mid := len(recs) / 2
	volFirst, volSecond := decimal.Zero, decimal.Zero
	for i, r := range recs {
		if i < mid {
			volFirst = volFirst.Add(r.amount)
		} else {
			volSecond = volSecond.Add(r.amount)
		}
	}

	var flags []models.RedFlag
	if volFirst.IsPositive() {
		variation, _ := volSecond.Sub(volFirst).Div(volFirst).Mul(decimal.NewFromInt(100)).Float64()
		if variation >= th.VolumeShiftPct || variation <= -th.VolumeShiftPct {
			flags = append(flags, models.RedFlag{
				Type:        models.FlagVolumeShift,
				Severity:    models.RiskLevelHigh,
				Description: fmt.Sprintf("Transaction volume shifted %+.1f%% between period halves", variation),
				Details: map[string]string{
					"variation_pct": fmt.Sprintf("%.1f", variation),
					"first_half":    volFirst.StringFixed(0),
					"second_half":   volSecond.StringFixed(0),
				},
				Action: "Request justification for the change in activity",
				Points: 20,
			})
		}
	}

	countFirst, countSecond := mid, len(recs)-mid
	if countFirst > 0 {
		variation := float64(countSecond-countFirst) / float64(countFirst) * 100
		if variation >= th.FrequencyShiftPct || variation <= -th.FrequencyShiftPct {
			flags = append(flags, models.RedFlag{
				Type:        models.FlagFrequencyShift,
				Severity:    models.RiskLevelMedium,
				Description: fmt.Sprintf("Transaction frequency shifted %+.1f%% between period halves", variation),
				Details: map[string]string{
					"variation_pct": fmt.Sprintf("%.1f", variation),
					"first_half":    fmt.Sprintf("%d", countFirst),
					"second_half":   fmt.Sprintf("%d", countSecond),
				},
				Action: "Verify changes in the business operation",
				Points: 15,
			})
		}
	}
	return flags
}

func dataInconsistencies(set models.ClientTransactionSet) []models.RedFlag {
	invalid := 0
	for _, r := range set.Records {
		if !r.Amount.IsPositive() {
			invalid++
		}
	}
	if invalid == 0 {
		return nil
	}
	return []models.RedFlag{{
		Type:        models.FlagDataInconsistency,
		Severity:    models.RiskLevelLow,
		Description: fmt.Sprintf("%d transactions with non-positive amounts", invalid),
		Details: map[string]string{
			"count": fmt.Sprintf("%d", invalid),
		},
		Action: "Review data quality with the source system",
		Points: 5,
	}}
}
