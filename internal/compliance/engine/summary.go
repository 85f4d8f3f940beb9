package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/adamopay/txrisk/pkg/models"
)

// LevelCounts tallies clients per risk level.
type LevelCounts struct {
	Critical     int `json:"critical"`
	High         int `json:"high"`
	Medium       int `json:"medium"`
	Low          int `json:"low"`
	NotEvaluated int `json:"not_evaluated"`
}

// TopRisk is one entry of the riskiest-clients ranking.
type TopRisk struct {
	ClientID string           `json:"client_id"`
	Score    int              `json:"score"`
	Level    models.RiskLevel `json:"level"`
	Alerts   int              `json:"alerts"`
}

// ExecutiveSummary condenses a portfolio run for management review.
type ExecutiveSummary struct {
	TotalClients             int         `json:"total_clients"`
	ByLevel                  LevelCounts `json:"by_level"`
	CriticalAlerts           int         `json:"critical_alerts"`
	PendingAlerts            int         `json:"pending_alerts"`
	UIAFReportsRequired      int         `json:"uiaf_reports_required"`
	TopRisks                 []TopRisk   `json:"top_risks"`
	StrategicRecommendations []string    `json:"strategic_recommendations"`
	GeneratedAt              time.Time   `json:"generated_at"`
}

// Summarize aggregates a portfolio of analyses. The top-risk ranking is
// ordered by score descending with the client id as tie breaker.
func Summarize(analyses []Analysis, now time.Time) ExecutiveSummary {
	s := ExecutiveSummary{
		TotalClients: len(analyses),
		TopRisks:     []TopRisk{},
		GeneratedAt:  now,
	}

	for _, a := range analyses {
		v := a.Verdict
		switch v.Score.Level {
		case models.RiskLevelCritical:
			s.ByLevel.Critical++
		case models.RiskLevelHigh:
			s.ByLevel.High++
		case models.RiskLevelMedium:
			s.ByLevel.Medium++
		case models.RiskLevelLow:
			s.ByLevel.Low++
		default:
			s.ByLevel.NotEvaluated++
		}

		needsReport := false
		for _, al := range v.Alerts {
			s.PendingAlerts++
			if al.Priority == models.PriorityCritical {
				s.CriticalAlerts++
			}
			if al.RegulatoryReport {
				needsReport = true
			}
		}
		if needsReport {
			s.UIAFReportsRequired++
		}

		s.TopRisks = append(s.TopRisks, TopRisk{
			ClientID: v.ClientID,
			Score:    v.Score.Total,
			Level:    v.Score.Level,
			Alerts:   len(v.Alerts),
		})
	}

	sort.Slice(s.TopRisks, func(i, j int) bool {
		if s.TopRisks[i].Score != s.TopRisks[j].Score {
			return s.TopRisks[i].Score > s.TopRisks[j].Score
		}
		return s.TopRisks[i].ClientID < s.TopRisks[j].ClientID
	})
	if len(s.TopRisks) > 10 {
		s.TopRisks = s.TopRisks[:10]
	}

	s.StrategicRecommendations = strategicRecommendations(s)
	return s
}

func strategicRecommendations(s ExecutiveSummary) []string {
	recs := []string{}
	if s.ByLevel.Critical > 0 {
		recs = append(recs, fmt.Sprintf("URGENT: %d client(s) at CRITICAL level require immediate action", s.ByLevel.Critical))
	}
	if s.UIAFReportsRequired > 0 {
		recs = append(recs, fmt.Sprintf("%d client(s) require a UIAF report", s.UIAFReportsRequired))
	}
	if s.ByLevel.High > 5 {
		recs = append(recs, fmt.Sprintf("Risk concentration: %d clients at HIGH level", s.ByLevel.High))
	}
	if s.TotalClients > 0 {
		rate := float64(s.ByLevel.Critical+s.ByLevel.High) / float64(s.TotalClients) * 100
		if rate > 20 {
			recs = append(recs, fmt.Sprintf("%.1f%% of the portfolio at High/Critical risk exceeds the risk appetite", rate))
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "Portfolio within normal risk parameters")
	}
	return recs
}
