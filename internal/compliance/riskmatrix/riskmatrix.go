// Package riskmatrix derives the inherent-versus-residual risk view
// per category. Residual risk applies a fixed reduction factor that
// represents the always-applied monitoring controls.
package riskmatrix

import (
	"github.com/shopspring/decimal"

	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/internal/compliance/profile"
	"github.com/adamopay/txrisk/pkg/models"
)

var appliedControls = []string{
	"Continuous transaction monitoring",
	"Beneficiary validation",
	"GAFI pattern analysis",
	"Automatic alerting",
}

// Build produces the matrix for one client. Geography stays at a fixed
// baseline until records carry jurisdiction data.
func Build(m profile.Metrics, score models.ScoreBreakdown, th config.Thresholds) models.RiskMatrix {
	inherent := models.RiskCategories{
		Volume:     volumeRisk(m.TotalVolume),
		Frequency:  capAt100(m.TotalCount * 2),
		Complexity: score.Operational,
		Geography:  th.GeographyBaseline,
	}

	residual := models.RiskCategories{
		Volume:     reduce(inherent.Volume, th.ResidualReduction),
		Frequency:  reduce(inherent.Frequency, th.ResidualReduction),
		Complexity: reduce(inherent.Complexity, th.ResidualReduction),
		Geography:  reduce(inherent.Geography, th.ResidualReduction),
	}

	gaps := []string{}
	if score.Total > th.DueDiligenceScore {
		gaps = append(gaps, "Enhanced due diligence required")
	}
	if m.TotalCount > th.ManualReviewCount {
		gaps = append(gaps, "High volume requires periodic manual review")
	}

	controls := make([]string, len(appliedControls))
	copy(controls, appliedControls)

	return models.RiskMatrix{
		Inherent:         inherent,
		Residual:         residual,
		Controls:         controls,
		Gaps:             gaps,
		AppetiteExceeded: score.Total > th.AppetiteScore,
	}
}

// Empty is the matrix for a client with no records.
func Empty(th config.Thresholds) models.RiskMatrix {
	controls := make([]string, len(appliedControls))
	copy(controls, appliedControls)
	return models.RiskMatrix{
		Inherent:  models.RiskCategories{Geography: th.GeographyBaseline},
		Residual:  models.RiskCategories{Geography: reduce(th.GeographyBaseline, th.ResidualReduction)},
		Controls:  controls,
		Gaps:      []string{},
	}
}

// volumeRisk scales total volume to [0,100] at one point per million.
func volumeRisk(total decimal.Decimal) int {
	if !total.IsPositive() {
		return 0
	}
	millions := total.Div(decimal.NewFromInt(1_000_000)).IntPart()
	return capAt100(int(millions))
}

func reduce(v int, factor float64) int {
	return int(float64(v) * factor)
}

func capAt100(v int) int {
	if v > 100 {
		return 100
	}
	return v
}
