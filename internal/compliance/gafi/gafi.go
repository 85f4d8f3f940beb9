// Package gafi classifies a client against the GAFI-inspired risk
// factors (volume, ticket size, frequency, diversity, rejections,
// counterparty mix) and computes the risk trend between two adjacent
// time windows. The classifier is independent of the red-flag engine
// and usable standalone for a GAFI-only view.
package gafi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/pkg/models"
)

// Factor codes.
const (
	FactorHighVolume     = "HIGH_VOLUME"
	FactorHighAvgAmount  = "HIGH_AVG_AMOUNT"
	FactorHighFrequency  = "HIGH_FREQUENCY"
	FactorTypeDiversity  = "TYPE_DIVERSITY"
	FactorHighRejection  = "HIGH_REJECTION"
	FactorJuridicalShare = "JURIDICAL_SHARE"
)

// Trend directions.
const (
	TrendIncreasing       = "INCREASING"
	TrendDecreasing       = "DECREASING"
	TrendStable           = "STABLE"
	TrendInsufficientData = "INSUFFICIENT_DATA"
)

// Factor is one fired risk factor with its narrative.
type Factor struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Profile is the GAFI classification of one client.
type Profile struct {
	Score          int              `json:"score"`
	Level          models.RiskLevel `json:"level"`
	Narrative      string           `json:"narrative"`
	Factors        []Factor         `json:"factors"`
	TotalCount     int              `json:"total_count"`
	TotalVolume    decimal.Decimal  `json:"total_volume"`
	AvgTicket      decimal.Decimal  `json:"avg_ticket"`
	DailyFrequency float64          `json:"daily_frequency"`
}

// Trend compares the profile score of two adjacent windows ending at
// the latest transaction date.
type Trend struct {
	Direction    string `json:"direction"`
	Delta        int    `json:"delta"`
	CurrentScore int    `json:"current_score"`
	PriorScore   int    `json:"prior_score"`
}

// Classify scores the set against the six GAFI factors. An empty set
// yields score 0 at level NOT_EVALUATED.
func Classify(set models.ClientTransactionSet, th config.Thresholds) Profile {
	if set.Empty() {
		return Profile{
			Level:       models.RiskLevelNotEvaluated,
			Narrative:   "No data available for classification",
			Factors:     []Factor{},
			TotalVolume: decimal.Zero,
			AvgTicket:   decimal.Zero,
		}
	}

	p := Profile{Factors: []Factor{}, TotalVolume: decimal.Zero, AvgTicket: decimal.Zero}
	p.TotalCount = len(set.Records)

	var rejected, juridical int
	types := map[string]struct{}{}
	var first, last time.Time
	for _, r := range set.Records {
		p.TotalVolume = p.TotalVolume.Add(r.Amount)
		if r.Status.Rejected() {
			rejected++
		}
		if r.PersonType == models.PersonJuridical {
			juridical++
		}
		if r.Type != "" {
			types[r.Type] = struct{}{}
		}
		if r.Timestamp == nil {
			continue
		}
		if first.IsZero() || r.Timestamp.Before(first) {
			first = *r.Timestamp
		}
		if last.IsZero() || r.Timestamp.After(last) {
			last = *r.Timestamp
		}
	}
	p.AvgTicket = p.TotalVolume.Div(decimal.NewFromInt(int64(p.TotalCount)))
	if !first.IsZero() {
		activeDays := int(last.Sub(first).Hours() / 24)
		if activeDays < 1 {
			activeDays = 1
		}
		p.DailyFrequency = float64(p.TotalCount) / float64(activeDays)
	}

	if p.TotalVolume.GreaterThan(decimal.NewFromInt(th.GAFIVolume)) {
		p.Score += 20
		p.addFactor(FactorHighVolume, fmt.Sprintf("High volume: %s COP", p.TotalVolume.StringFixed(0)))
	}
	if p.AvgTicket.GreaterThan(decimal.NewFromInt(th.GAFIAvgTicket)) {
		p.Score += 15
		p.addFactor(FactorHighAvgAmount, fmt.Sprintf("High average amount: %s COP", p.AvgTicket.StringFixed(0)))
	}
	if p.DailyFrequency > th.GAFIDailyFrequency {
		p.Score += 15
		p.addFactor(FactorHighFrequency, fmt.Sprintf("High frequency: %.1f tx/day", p.DailyFrequency))
	}
	if len(types) >= th.GAFIDiversity {
		p.Score += 10
		p.addFactor(FactorTypeDiversity, fmt.Sprintf("Transaction diversity: %d types", len(types)))
	}
	rejectionRate := float64(rejected) / float64(p.TotalCount) * 100
	if rejectionRate > th.GAFIRejectionRate {
		p.Score += 20
		p.addFactor(FactorHighRejection, fmt.Sprintf("High rejection rate: %.1f%%", rejectionRate))
	}
	juridicalShare := float64(juridical) / float64(p.TotalCount) * 100
	if juridicalShare > th.GAFIJuridicalShare {
		p.Score += 10
		p.addFactor(FactorJuridicalShare, fmt.Sprintf("High juridical-counterparty share: %.1f%%", juridicalShare))
	}

	if p.Score > 100 {
		p.Score = 100
	}
	switch {
	case p.Score >= 60:
		p.Level = models.RiskLevelHigh
		p.Narrative = "High-risk client, requires reinforced monitoring"
	case p.Score >= 30:
		p.Level = models.RiskLevelMedium
		p.Narrative = "Medium-risk client, standard monitoring"
	default:
		p.Level = models.RiskLevelLow
		p.Narrative = "Low-risk client, normal monitoring"
	}
	return p
}

func (p *Profile) addFactor(code, description string) {
	p.Factors = append(p.Factors, Factor{Code: code, Description: description})
}

// HasFactor reports whether the given factor code fired.
func (p Profile) HasFactor(code string) bool {
	for _, f := range p.Factors {
		if f.Code == code {
			return true
		}
	}
	return false
}

// TrendOf classifies the last window and the one before it and compares
// scores. Windows with no records yield an insufficient-data trend.
func TrendOf(set models.ClientTransactionSet, th config.Thresholds) Trend {
	windowDays := th.TrendWindowDays
	if windowDays <= 0 {
		windowDays = 30
	}

	var latest time.Time
	for _, r := range set.Records {
		if r.Timestamp != nil && r.Timestamp.After(latest) {
			latest = *r.Timestamp
		}
	}
	if latest.IsZero() {
		return Trend{Direction: TrendInsufficientData}
	}

	cutoff := latest.AddDate(0, 0, -windowDays)
	priorCutoff := cutoff.AddDate(0, 0, -windowDays)

	recent := models.ClientTransactionSet{ClientID: set.ClientID}
	prior := models.ClientTransactionSet{ClientID: set.ClientID}
	for _, r := range set.Records {
		if r.Timestamp == nil {
			continue
		}
		switch {
		case r.Timestamp.After(cutoff):
			recent.Records = append(recent.Records, r)
		case r.Timestamp.After(priorCutoff):
			prior.Records = append(prior.Records, r)
		}
	}
	if recent.Empty() || prior.Empty() {
		return Trend{Direction: TrendInsufficientData}
	}

	current := Classify(recent, th).Score
	previous := Classify(prior, th).Score
	delta := current - previous

	t := Trend{Direction: TrendStable, Delta: delta, CurrentScore: current, PriorScore: previous}
	if delta > th.TrendDelta {
		t.Direction = TrendIncreasing
	} else if delta < -th.TrendDelta {
		t.Direction = TrendDecreasing
	}
	return t
}

// Recommendations translates a profile into the monitoring actions for
// its level plus factor-specific follow-ups.
func Recommendations(p Profile) []string {
	var recs []string
	switch p.Level {
	case models.RiskLevelHigh, models.RiskLevelCritical:
		recs = []string{
			"Implement enhanced due diligence (DDR)",
			"Request additional supporting documentation",
			"Review the origin and destination of funds",
			"Monitor transactions continuously",
			"Report to the compliance officer",
			"Consider temporary transaction limits",
		}
	case models.RiskLevelMedium:
		recs = []string{
			"Apply standard due diligence",
			"Review the transactional profile periodically",
			"Document unusual activity",
			"Monitor patterns monthly",
			"Validate beneficial-owner information",
		}
	default:
		recs = []string{
			"Maintain simplified due diligence",
			"Monitor activity quarterly",
			"Update client information annually",
			"Validate significant behavior changes",
		}
	}

	if p.HasFactor(FactorHighRejection) {
		recs = append(recs, "Investigate the causes of frequent rejections")
	}
	if p.HasFactor(FactorHighFrequency) {
		recs = append(recs, "Analyze the hourly pattern of transactions")
	}
	if p.HasFactor(FactorJuridicalShare) {
		recs = append(recs, "Verify the corporate structure of beneficiaries")
	}
	return recs
}
