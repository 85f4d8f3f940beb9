// Package profile computes the consolidated behavioral metrics of one
// client's transaction set and the behavior sub-score derived from them.
// Metrics are computed once per analysis and shared by every downstream
// detector.
package profile

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/pkg/models"
)

// DayStats aggregates one calendar day of activity.
type DayStats struct {
	Date    string          `json:"date"` // 2006-01-02
	Count   int             `json:"count"`
	Volume  decimal.Decimal `json:"volume"`
	Mean    decimal.Decimal `json:"mean"`
	Amounts []decimal.Decimal `json:"-"`
}

// PeriodStats aggregates a month (2006-01) or ISO week (2006-W02).
type PeriodStats struct {
	Key    string          `json:"key"`
	Count  int             `json:"count"`
	Volume decimal.Decimal `json:"volume"`
}

// TypeCount is one transaction-type bucket, ordered by frequency.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Metrics is the consolidated snapshot of a transaction set. Slices are
// sorted so that equal inputs produce identical values.
type Metrics struct {
	TotalCount      int             `json:"total_count"`
	TimedCount      int             `json:"timed_count"`
	SuccessfulCount int             `json:"successful_count"`
	RejectedCount   int             `json:"rejected_count"`
	SuccessRate     float64         `json:"success_rate_pct"`
	RejectionRate   float64         `json:"rejection_rate_pct"`

	TotalVolume  decimal.Decimal `json:"total_volume"`
	AvgTicket    decimal.Decimal `json:"avg_ticket"`
	MedianAmount decimal.Decimal `json:"median_amount"`
	MinAmount    decimal.Decimal `json:"min_amount"`
	MaxAmount    decimal.Decimal `json:"max_amount"`
	StdDev       float64         `json:"std_dev"`
	CVPercent    float64         `json:"cv_pct"`

	FirstSeen        time.Time `json:"first_seen,omitempty"`
	LastSeen         time.Time `json:"last_seen,omitempty"`
	ActiveDays       int       `json:"active_days"`
	DaysWithActivity int       `json:"days_with_activity"`
	DailyFrequency   float64   `json:"daily_frequency"`

	TypeCounts      []TypeCount `json:"type_counts,omitempty"`
	PredominantType string      `json:"predominant_type,omitempty"`
	TypeDiversity   int         `json:"type_diversity"`

	NaturalShare   float64 `json:"natural_share_pct"`
	JuridicalShare float64 `json:"juridical_share_pct"`

	WeekdayCounts [7]int  `json:"weekday_counts"` // Monday first
	HourCounts    [24]int `json:"hour_counts"`
	MeanHour      float64 `json:"mean_hour"`

	Days   []DayStats    `json:"days,omitempty"`
	Months []PeriodStats `json:"months,omitempty"`
	Weeks  []PeriodStats `json:"weeks,omitempty"`

	SortedTimes []time.Time `json:"-"`

	ConsistencyIndex int `json:"consistency_index"`
}

// Result is the profiler output: the metrics plus the behavior
// sub-score, its level, and the flags raised at the same thresholds.
type Result struct {
	Metrics Metrics          `json:"metrics"`
	Score   int              `json:"score"`
	Level   models.RiskLevel `json:"level"`
	Flags   []models.RedFlag `json:"flags"`
}

// Analyze profiles the set and scores it. An empty set yields a zeroed
// result at level NOT_EVALUATED rather than an error.
func Analyze(set models.ClientTransactionSet, th config.Thresholds) Result {
	if set.Empty() {
		return Result{
			Metrics: Metrics{TotalVolume: decimal.Zero, AvgTicket: decimal.Zero},
			Level:   models.RiskLevelNotEvaluated,
			Flags:   []models.RedFlag{},
		}
	}
	m := Compute(set)
	score, level, flags := Score(m, th)
	return Result{Metrics: m, Score: score, Level: level, Flags: flags}
}

// Compute derives the consolidated metrics from the raw records. Records
// without a timestamp still count toward totals and amount statistics
// but are excluded from every time-based aggregate.
func Compute(set models.ClientTransactionSet) Metrics {
	m := Metrics{
		TotalCount:  len(set.Records),
		TotalVolume: decimal.Zero,
		AvgTicket:   decimal.Zero,
	}
	if m.TotalCount == 0 {
		return m
	}

	amounts := make([]decimal.Decimal, 0, m.TotalCount)
	days := map[string][]decimal.Decimal{}
	months := map[string]*PeriodStats{}
	weeks := map[string]*PeriodStats{}
	types := map[string]int{}
	var naturals, juridicals int
	var hourSum int

	for _, r := range set.Records {
		amounts = append(amounts, r.Amount)
		m.TotalVolume = m.TotalVolume.Add(r.Amount)

		if r.Status.Successful() {
			m.SuccessfulCount++
		}
		if r.Status.Rejected() {
			m.RejectedCount++
		}
		if r.Type != "" {
			types[r.Type]++
		}
		switch r.PersonType {
		case models.PersonNatural:
			naturals++
		case models.PersonJuridical:
			juridicals++
		}

		if r.Timestamp == nil {
			continue
		}
		t := *r.Timestamp
		m.TimedCount++
		m.SortedTimes = append(m.SortedTimes, t)

		day := t.Format("2006-01-02")
		days[day] = append(days[day], r.Amount)

		month := t.Format("2006-01")
		if _, ok := months[month]; !ok {
			months[month] = &PeriodStats{Key: month, Volume: decimal.Zero}
		}
		months[month].Count++
		months[month].Volume = months[month].Volume.Add(r.Amount)

		y, wk := t.ISOWeek()
		week := fmt.Sprintf("%04d-W%02d", y, wk)
		if _, ok := weeks[week]; !ok {
			weeks[week] = &PeriodStats{Key: week, Volume: decimal.Zero}
		}
		weeks[week].Count++
		weeks[week].Volume = weeks[week].Volume.Add(r.Amount)

		m.WeekdayCounts[(int(t.Weekday())+6)%7]++
		m.HourCounts[t.Hour()]++
		hourSum += t.Hour()
	}

	total := decimal.NewFromInt(int64(m.TotalCount))
	m.AvgTicket = m.TotalVolume.Div(total)
	m.SuccessRate = rate(m.SuccessfulCount, m.TotalCount)
	m.RejectionRate = rate(m.RejectedCount, m.TotalCount)

	sorted := make([]decimal.Decimal, len(amounts))
	copy(sorted, amounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	m.MinAmount = sorted[0]
	m.MaxAmount = sorted[len(sorted)-1]
	m.MedianAmount = median(sorted)
	m.StdDev = sampleStdDev(amounts, m.AvgTicket)
	if mean, _ := m.AvgTicket.Float64(); mean > 0 {
		m.CVPercent = m.StdDev / mean * 100
	}

	if m.TimedCount > 0 {
		sort.Slice(m.SortedTimes, func(i, j int) bool { return m.SortedTimes[i].Before(m.SortedTimes[j]) })
		m.FirstSeen = m.SortedTimes[0]
		m.LastSeen = m.SortedTimes[len(m.SortedTimes)-1]
		first, _ := time.Parse("2006-01-02", m.FirstSeen.Format("2006-01-02"))
		last, _ := time.Parse("2006-01-02", m.LastSeen.Format("2006-01-02"))
		m.ActiveDays = int(last.Sub(first).Hours()/24) + 1
		m.DailyFrequency = float64(m.TimedCount) / float64(m.ActiveDays)
		m.MeanHour = float64(hourSum) / float64(m.TimedCount)
	}

	for day, amts := range days {
		vol := decimal.Zero
		for _, a := range amts {
			vol = vol.Add(a)
		}
		m.Days = append(m.Days, DayStats{
			Date:    day,
			Count:   len(amts),
			Volume:  vol,
			Mean:    vol.Div(decimal.NewFromInt(int64(len(amts)))),
			Amounts: amts,
		})
	}
	sort.Slice(m.Days, func(i, j int) bool { return m.Days[i].Date < m.Days[j].Date })
	m.DaysWithActivity = len(m.Days)

	m.Months = flattenPeriods(months)
	m.Weeks = flattenPeriods(weeks)

	for typ, n := range types {
		m.TypeCounts = append(m.TypeCounts, TypeCount{Type: typ, Count: n})
	}
	sort.Slice(m.TypeCounts, func(i, j int) bool {
		if m.TypeCounts[i].Count != m.TypeCounts[j].Count {
			return m.TypeCounts[i].Count > m.TypeCounts[j].Count
		}
		return m.TypeCounts[i].Type < m.TypeCounts[j].Type
	})
	m.TypeDiversity = len(m.TypeCounts)
	if m.TypeDiversity > 0 {
		m.PredominantType = m.TypeCounts[0].Type
	}

	m.NaturalShare = rate(naturals, m.TotalCount)
	m.JuridicalShare = rate(juridicals, m.TotalCount)

	m.ConsistencyIndex = consistencyIndex(m)
	return m
}

// Score applies the five weighted behavior factors and raises a flag at
// each crossed threshold. The sub-score is capped at 100.
func Score(m Metrics, th config.Thresholds) (int, models.RiskLevel, []models.RedFlag) {
	score := 0
	flags := []models.RedFlag{}

	if pts, sev := tierInt64(m.TotalVolume, th.VolumeCritical, th.VolumeHigh, th.VolumeModerate, 25, 15, 5); pts > 0 {
		score += pts
		flags = append(flags, models.RedFlag{
			Type:        models.FlagHighVolume,
			Severity:    sev,
			Description: fmt.Sprintf("Total volume %s COP exceeds the %s COP monitoring threshold", m.TotalVolume.StringFixed(0), thresholdFor(sev, th.VolumeCritical, th.VolumeHigh, th.VolumeModerate)),
			Details: map[string]string{
				"total_volume": m.TotalVolume.StringFixed(0),
			},
			Action: "Review the origin of funds for the accumulated volume",
			Points: pts,
		})
	}

	if pts, sev := tierFloat(m.DailyFrequency, th.FrequencyCritical, th.FrequencyHigh, th.FrequencyModerate, 20, 12, 5); pts > 0 {
		score += pts
		flags = append(flags, models.RedFlag{
			Type:        models.FlagHighFrequency,
			Severity:    sev,
			Description: fmt.Sprintf("Average daily frequency %.1f tx/day exceeds %.0f tx/day", m.DailyFrequency, floatThresholdFor(sev, th.FrequencyCritical, th.FrequencyHigh, th.FrequencyModerate)),
			Details: map[string]string{
				"daily_frequency": fmt.Sprintf("%.2f", m.DailyFrequency),
			},
			Action: "Verify the business justification for the operation tempo",
			Points: pts,
		})
	}

	if pts, sev := tierInt64(m.AvgTicket, th.TicketCritical, th.TicketHigh, th.TicketModerate, 20, 12, 5); pts > 0 {
		score += pts
		flags = append(flags, models.RedFlag{
			Type:        models.FlagHighTicket,
			Severity:    sev,
			Description: fmt.Sprintf("Average ticket %s COP exceeds the %s COP threshold", m.AvgTicket.StringFixed(0), thresholdFor(sev, th.TicketCritical, th.TicketHigh, th.TicketModerate)),
			Details: map[string]string{
				"avg_ticket": m.AvgTicket.StringFixed(0),
			},
			Action: "Confirm the declared economic activity supports the ticket size",
			Points: pts,
		})
	}

	switch {
	case m.TypeDiversity >= 4:
		score += 15
		flags = append(flags, diversityFlag(m.TypeDiversity, models.RiskLevelMedium, 15))
	case m.TypeDiversity >= 3:
		score += 10
	case m.TypeDiversity >= 2:
		score += 5
	}

	if pts, sev := tierFloat(m.RejectionRate, th.RejectionCritical, th.RejectionHigh, th.RejectionModerate, 20, 12, 5); pts > 0 {
		score += pts
		flags = append(flags, models.RedFlag{
			Type:        models.FlagHighRejection,
			Severity:    sev,
			Description: fmt.Sprintf("Rejection rate %.1f%% exceeds %.0f%%", m.RejectionRate, floatThresholdFor(sev, th.RejectionCritical, th.RejectionHigh, th.RejectionModerate)),
			Details: map[string]string{
				"rejection_rate_pct": fmt.Sprintf("%.2f", m.RejectionRate),
				"rejected_count":     fmt.Sprintf("%d", m.RejectedCount),
			},
			Action: "Review the causes of rejected and returned operations",
			Points: pts,
		})
	}

	if m.DaysWithActivity > 0 {
		perActiveDay := float64(m.TimedCount) / float64(m.DaysWithActivity)
		if perActiveDay > th.ConcentrationPerDay {
			flags = append(flags, models.RedFlag{
				Type:        models.FlagConcentratedActivity,
				Severity:    models.RiskLevelHigh,
				Description: fmt.Sprintf("Activity is concentrated at %.1f tx per active day (threshold %.0f)", perActiveDay, th.ConcentrationPerDay),
				Details: map[string]string{
					"tx_per_active_day": fmt.Sprintf("%.2f", perActiveDay),
				},
				Action: "Inspect the concentrated operation days individually",
				Points: 0,
			})
		}
	}

	if score > 100 {
		score = 100
	}
	return score, subLevel(score), flags
}

func diversityFlag(diversity int, sev models.RiskLevel, pts int) models.RedFlag {
	return models.RedFlag{
		Type:        models.FlagOperationDiversity,
		Severity:    sev,
		Description: fmt.Sprintf("Client operates %d distinct transaction types", diversity),
		Details: map[string]string{
			"type_diversity": fmt.Sprintf("%d", diversity),
		},
		Action: "Validate that the product mix matches the client profile",
		Points: pts,
	}
}

func subLevel(score int) models.RiskLevel {
	switch {
	case score >= 70:
		return models.RiskLevelHigh
	case score >= 40:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

func consistencyIndex(m Metrics) int {
	idx := 100
	if m.CVPercent > 100 {
		idx -= 20
	}
	if m.RejectionRate > 10 {
		idx -= 30
	}
	if m.TimedCount > 0 && m.DailyFrequency < 0.1 {
		idx -= 10
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

func tierInt64(v decimal.Decimal, critical, high, moderate int64, pc, ph, pm int) (int, models.RiskLevel) {
	switch {
	case v.GreaterThan(decimal.NewFromInt(critical)):
		return pc, models.RiskLevelCritical
	case v.GreaterThan(decimal.NewFromInt(high)):
		return ph, models.RiskLevelHigh
	case v.GreaterThan(decimal.NewFromInt(moderate)):
		return pm, models.RiskLevelMedium
	default:
		return 0, models.RiskLevelLow
	}
}

func tierFloat(v, critical, high, moderate float64, pc, ph, pm int) (int, models.RiskLevel) {
	switch {
	case v > critical:
		return pc, models.RiskLevelCritical
	case v > high:
		return ph, models.RiskLevelHigh
	case v > moderate:
		return pm, models.RiskLevelMedium
	default:
		return 0, models.RiskLevelLow
	}
}

func thresholdFor(sev models.RiskLevel, critical, high, moderate int64) string {
	switch sev {
	case models.RiskLevelCritical:
		return decimal.NewFromInt(critical).StringFixed(0)
	case models.RiskLevelHigh:
		return decimal.NewFromInt(high).StringFixed(0)
	default:
		return decimal.NewFromInt(moderate).StringFixed(0)
	}
}

func floatThresholdFor(sev models.RiskLevel, critical, high, moderate float64) float64 {
	switch sev {
	case models.RiskLevelCritical:
		return critical
	case models.RiskLevelHigh:
		return high
	default:
		return moderate
	}
}

func flattenPeriods(in map[string]*PeriodStats) []PeriodStats {
	out := make([]PeriodStats, 0, len(in))
	for _, p := range in {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func median(sorted []decimal.Decimal) decimal.Decimal {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
}

// sampleStdDev uses the n-1 denominator; a single observation has no
// dispersion.
func sampleStdDev(amounts []decimal.Decimal, mean decimal.Decimal) float64 {
	n := len(amounts)
	if n < 2 {
		return 0
	}
	mf, _ := mean.Float64()
	var sum float64
	for _, a := range amounts {
		af, _ := a.Float64()
		d := af - mf
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
