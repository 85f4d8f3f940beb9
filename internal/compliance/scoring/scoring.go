// Package scoring combines the GAFI, compliance-signal and operational
// sub-scores into the weighted total and derives the operational
// sub-score from the consolidated metrics.
package scoring

import (
	"math"

	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/internal/compliance/profile"
	"github.com/adamopay/txrisk/pkg/models"
)

// Critical-factor narratives, attached when a sub-score crosses the
// configured critical threshold.
const (
	criticalGAFI        = "High-risk GAFI profile"
	criticalCompliance  = "Compliance alert signals detected"
	criticalOperational = "Elevated operational risk"
)

// Operational derives the operational sub-score from complexity,
// amount volatility, error rate and temporal concentration. The
// distinct-counterparty factor abstains while records carry no
// counterparty identifier.
func Operational(m profile.Metrics, th config.Thresholds) int {
	if m.TotalCount == 0 {
		return 0
	}
	score := 0

	switch {
	case m.TypeDiversity >= 5:
		score += 20
	case m.TypeDiversity >= 3:
		score += 10
	}

	cv := m.CVPercent / 100
	switch {
	case cv > 1.5:
		score += 15
	case cv > 1.0:
		score += 8
	}

	switch {
	case m.RejectionRate > 15:
		score += 25
	case m.RejectionRate > 10:
		score += 15
	}

	if len(m.Weeks) > 0 {
		sum := 0
		max := 0
		for _, w := range m.Weeks {
			sum += w.Count
			if w.Count > max {
				max = w.Count
			}
		}
		mean := float64(sum) / float64(len(m.Weeks))
		if mean > 0 && float64(max) > mean*3 {
			score += 15
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// Aggregate weights the three sub-scores into the total and maps it to
// a level. Sub-scores are clamped to [0,100] before weighting.
func Aggregate(gafiScore, complianceScore, operationalScore int, th config.Thresholds) models.ScoreBreakdown {
	g := clamp(gafiScore)
	c := clamp(complianceScore)
	o := clamp(operationalScore)

	weights := models.ScoreWeights{
		GAFI:        th.WeightGAFI,
		Compliance:  th.WeightCompliance,
		Operational: th.WeightOperational,
	}
	total := int(math.Round(float64(g)*weights.GAFI + float64(c)*weights.Compliance + float64(o)*weights.Operational))
	total = clamp(total)

	factors := []string{}
	if g > th.CriticalFactorScore {
		factors = append(factors, criticalGAFI)
	}
	if c > th.CriticalFactorScore {
		factors = append(factors, criticalCompliance)
	}
	if o > th.CriticalFactorScore {
		factors = append(factors, criticalOperational)
	}

	return models.ScoreBreakdown{
		Total:           total,
		GAFI:            g,
		Compliance:      c,
		Operational:     o,
		Level:           models.LevelFromScore(total),
		CriticalFactors: factors,
		Weights:         weights,
	}
}

// Empty is the canonical breakdown for a client with no records.
func Empty(th config.Thresholds) models.ScoreBreakdown {
	return models.ScoreBreakdown{
		Level:           models.RiskLevelNotEvaluated,
		CriticalFactors: []string{},
		Weights: models.ScoreWeights{
			GAFI:        th.WeightGAFI,
			Compliance:  th.WeightCompliance,
			Operational: th.WeightOperational,
		},
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
