// Package report renders analysis results for human and spreadsheet
// consumption. It is pure formatting over the verdict types and never
// changes a score or decision.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/adamopay/txrisk/internal/compliance/engine"
	"github.com/adamopay/txrisk/pkg/models"
)

const maxAlertsInText = 5

// Text writes a plain-text analyst report for one verdict.
func Text(w io.Writer, v models.RiskVerdict) error {
	var b strings.Builder

	section(&b, fmt.Sprintf("RISK ANALYSIS - CLIENT %s", v.ClientID))
	fmt.Fprintf(&b, "Analyzed at:     %s\n", v.AnalyzedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Risk level:      %s\n", v.Score.Level)
	fmt.Fprintf(&b, "Total score:     %d / 100\n", v.Score.Total)
	fmt.Fprintf(&b, "  GAFI:          %d (weight %.0f%%)\n", v.Score.GAFI, v.Score.Weights.GAFI*100)
	fmt.Fprintf(&b, "  Compliance:    %d (weight %.0f%%)\n", v.Score.Compliance, v.Score.Weights.Compliance*100)
	fmt.Fprintf(&b, "  Operational:   %d (weight %.0f%%)\n", v.Score.Operational, v.Score.Weights.Operational*100)
	for _, f := range v.Score.CriticalFactors {
		fmt.Fprintf(&b, "  Critical factor: %s\n", f)
	}

	if len(v.Flags) > 0 {
		section(&b, fmt.Sprintf("RED FLAGS (%d)", len(v.Flags)))
		for _, f := range v.Flags {
			fmt.Fprintf(&b, "[%s] %s (+%d)\n", f.Severity, f.Description, f.Points)
			if f.Action != "" {
				fmt.Fprintf(&b, "    Action: %s\n", f.Action)
			}
		}
	}

	if len(v.Alerts) > 0 {
		shown := v.Alerts
		if len(shown) > maxAlertsInText {
			shown = shown[:maxAlertsInText]
		}
		section(&b, fmt.Sprintf("ALERTS (%d, top %d shown)", len(v.Alerts), len(shown)))
		for _, a := range shown {
			fmt.Fprintf(&b, "[%s] %s  %s\n", a.Priority, a.ID, a.Title)
			fmt.Fprintf(&b, "    %s\n", a.Description)
			fmt.Fprintf(&b, "    Act within %d day(s)", a.DaysToAct)
			if a.RegulatoryReport {
				b.WriteString("  [regulatory report]")
			}
			b.WriteString("\n")
		}
	}

	section(&b, "RISK MATRIX (inherent / residual)")
	fmt.Fprintf(&b, "Volume:       %3d / %3d\n", v.Matrix.Inherent.Volume, v.Matrix.Residual.Volume)
	fmt.Fprintf(&b, "Frequency:    %3d / %3d\n", v.Matrix.Inherent.Frequency, v.Matrix.Residual.Frequency)
	fmt.Fprintf(&b, "Complexity:   %3d / %3d\n", v.Matrix.Inherent.Complexity, v.Matrix.Residual.Complexity)
	fmt.Fprintf(&b, "Geography:    %3d / %3d\n", v.Matrix.Inherent.Geography, v.Matrix.Residual.Geography)
	for _, g := range v.Matrix.Gaps {
		fmt.Fprintf(&b, "Gap: %s\n", g)
	}
	if v.Matrix.AppetiteExceeded {
		b.WriteString("RISK APPETITE EXCEEDED\n")
	}

	section(&b, "ANOMALIES")
	fmt.Fprintf(&b, "Level: %s  (amount %d, frequency %d, temporal %d)\n",
		v.Anomalies.Level, v.Anomalies.AmountOutliers, v.Anomalies.FrequencyOutliers, v.Anomalies.TemporalAnomalies)

	section(&b, "RECOMMENDATIONS")
	for _, r := range v.Recommendations {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	if v.EnhancedDueDiligence {
		b.WriteString("Enhanced due diligence required.\n")
	}
	if v.Escalate {
		b.WriteString("Escalation to compliance officer required.\n")
	}
	if !v.NextReview.IsZero() {
		fmt.Fprintf(&b, "Next review: %s\n", v.NextReview.Format("2006-01-02"))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Summary writes a plain-text executive summary for a portfolio run.
func Summary(w io.Writer, s engine.ExecutiveSummary) error {
	var b strings.Builder

	section(&b, "PORTFOLIO EXECUTIVE SUMMARY")
	fmt.Fprintf(&b, "Generated at:        %s\n", s.GeneratedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Clients analyzed:    %d\n", s.TotalClients)
	fmt.Fprintf(&b, "By level:            critical %d, high %d, medium %d, low %d, not evaluated %d\n",
		s.ByLevel.Critical, s.ByLevel.High, s.ByLevel.Medium, s.ByLevel.Low, s.ByLevel.NotEvaluated)
	fmt.Fprintf(&b, "Pending alerts:      %d (%d critical)\n", s.PendingAlerts, s.CriticalAlerts)
	fmt.Fprintf(&b, "UIAF reports needed: %d\n", s.UIAFReportsRequired)

	if len(s.TopRisks) > 0 {
		section(&b, "TOP RISK CLIENTS")
		for i, tr := range s.TopRisks {
			fmt.Fprintf(&b, "%2d. %-20s score %3d  %-8s  alerts %d\n", i+1, tr.ClientID, tr.Score, tr.Level, tr.Alerts)
		}
	}

	section(&b, "STRATEGIC RECOMMENDATIONS")
	for _, r := range s.StrategicRecommendations {
		fmt.Fprintf(&b, "- %s\n", r)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

var portfolioHeader = []string{
	"client_id", "level", "score_total", "score_gafi", "score_compliance",
	"score_operational", "flags", "alerts", "critical_alerts", "regulatory_report",
	"enhanced_due_diligence", "escalate", "next_review",
}

// PortfolioCSV writes one row per verdict, suitable for spreadsheet review.
func PortfolioCSV(w io.Writer, verdicts []models.RiskVerdict) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(portfolioHeader); err != nil {
		return fmt.Errorf("writing portfolio header: %w", err)
	}
	for _, v := range verdicts {
		critical := 0
		regulatory := false
		for _, a := range v.Alerts {
			if a.Priority == models.PriorityCritical {
				critical++
			}
			if a.RegulatoryReport {
				regulatory = true
			}
		}
		nextReview := ""
		if !v.NextReview.IsZero() {
			nextReview = v.NextReview.Format("2006-01-02")
		}
		row := []string{
			v.ClientID,
			string(v.Score.Level),
			strconv.Itoa(v.Score.Total),
			strconv.Itoa(v.Score.GAFI),
			strconv.Itoa(v.Score.Compliance),
			strconv.Itoa(v.Score.Operational),
			strconv.Itoa(len(v.Flags)),
			strconv.Itoa(len(v.Alerts)),
			strconv.Itoa(critical),
			strconv.FormatBool(regulatory),
			strconv.FormatBool(v.EnhancedDueDiligence),
			strconv.FormatBool(v.Escalate),
			nextReview,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing portfolio row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var alertsHeader = []string{
	"client_id", "alert_id", "priority", "category", "title",
	"measured", "threshold", "days_to_act", "regulatory_report", "detected_at",
}

// AlertsCSV writes every alert across the given verdicts, one per row.
func AlertsCSV(w io.Writer, verdicts []models.RiskVerdict) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(alertsHeader); err != nil {
		return fmt.Errorf("writing alerts header: %w", err)
	}
	for _, v := range verdicts {
		for _, a := range v.Alerts {
			row := []string{
				v.ClientID,
				a.ID,
				string(a.Priority),
				string(a.Category),
				a.Title,
				strconv.FormatFloat(a.Measured, 'f', -1, 64),
				strconv.FormatFloat(a.Threshold, 'f', -1, 64),
				strconv.Itoa(a.DaysToAct),
				strconv.FormatBool(a.RegulatoryReport),
				a.DetectedAt.Format(time.RFC3339),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing alert row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func section(b *strings.Builder, title string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n")
}
