// Package alerts converts detected signals into prioritized,
// actionable alerts. Priority derives from how far the measured value
// exceeds its reporting threshold, so the same magnitude of excess
// always produces the same urgency.
package alerts

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adamopay/txrisk/internal/config"
	"github.com/adamopay/txrisk/internal/compliance/profile"
	"github.com/adamopay/txrisk/pkg/models"
)

// Generate builds the alert list for one analysis. The caller supplies
// the reference instant so that identical inputs produce identical
// alerts, timestamps and identifiers included.
func Generate(clientID string, m profile.Metrics, score models.ScoreBreakdown, th config.Thresholds, now time.Time) []models.Alert {
	out := []models.Alert{}
	if m.TotalCount == 0 {
		return out
	}

	totalVolume, _ := m.TotalVolume.Float64()
	if totalVolume > float64(th.TotalVolumeAlert) {
		out = append(out, signal(clientID, "VOL", models.AlertComplianceSignal, now,
			"Extremely high transaction volume",
			fmt.Sprintf("Total volume of %s COP is far above normal thresholds", m.TotalVolume.StringFixed(0)),
			totalVolume, float64(th.TotalVolumeAlert), th,
			"Validate the origin of funds and the economic justification", false))
	}

	avgTicket, _ := m.AvgTicket.Float64()
	if avgTicket > float64(th.AvgTicketAlert) {
		out = append(out, signal(clientID, "TKT", models.AlertComplianceSignal, now,
			"Unusually high average ticket",
			fmt.Sprintf("Average amount of %s COP per transaction is atypical", m.AvgTicket.StringFixed(0)),
			avgTicket, float64(th.AvgTicketAlert), th,
			"Review the transactional profile and the nature of the business", false))
	}

	fragDays := 0
	for _, d := range m.Days {
		if d.Count > th.FragmentationDayCount && d.Volume.GreaterThan(decimal.NewFromInt(th.FragmentationDayVolume)) {
			fragDays++
		}
	}
	if fragDays > th.FragmentationDays {
		// Structuring is regulatory by nature regardless of priority.
		out = append(out, signal(clientID, "FRAG", models.AlertComplianceSignal, now,
			"Possible fragmentation (smurfing)",
			fmt.Sprintf("%d days with many transactions adding up to high amounts", fragDays),
			float64(fragDays), float64(th.FragmentationDays), th,
			"Investigate the fragmentation pattern and report to the UIAF if confirmed", true))
	}

	if m.RejectionRate > th.RejectionAlertRate {
		out = append(out, signal(clientID, "RECH", models.AlertFraud, now,
			"Extremely high rejection rate",
			fmt.Sprintf("Rejection rate of %.1f%% suggests repeated failed attempts", m.RejectionRate),
			m.RejectionRate, th.RejectionAlertRate, th,
			"Investigate the rejection causes and possible fraud attempts", false))
	}

	if m.TotalCount > th.RecordCountAlert {
		out = append(out, signal(clientID, "FREQ", models.AlertOperational, now,
			"Very high transaction count",
			fmt.Sprintf("%d transactions require periodic review", m.TotalCount),
			float64(m.TotalCount), float64(th.RecordCountAlert), th,
			"Implement periodic manual sampling reviews", false))
	}

	if m.TypeDiversity >= th.DiversityAlert {
		out = append(out, signal(clientID, "DIV", models.AlertComplianceProcess, now,
			"High diversity of transaction types",
			fmt.Sprintf("%d distinct transaction types detected", m.TypeDiversity),
			float64(m.TypeDiversity), float64(th.DiversityAlert), th,
			"Validate coherence with the client's economic activity", false))
	}

	if score.Total >= th.ScoreCriticalAlert {
		out = append(out, models.Alert{
			ID:               alertID(clientID, "SCORE", "Critical risk score"),
			Category:         models.AlertComplianceProcess,
			Priority:         models.PriorityCritical,
			Title:            "Critical risk score",
			Description:      fmt.Sprintf("Total score of %d exceeds the critical threshold of %d", score.Total, th.AppetiteScore),
			Measured:         float64(score.Total),
			Threshold:        float64(th.AppetiteScore),
			Action:           "Suspend operations and start an immediate investigation",
			DetectedAt:       now,
			RegulatoryReport: true,
			DaysToAct:        1,
		})
	}

	Sort(out)
	return out
}

// Sort orders alerts most urgent first: by priority, then by fewer days
// to act.
func Sort(alerts []models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Priority.Rank() != alerts[j].Priority.Rank() {
			return alerts[i].Priority.Rank() < alerts[j].Priority.Rank()
		}
		return alerts[i].DaysToAct < alerts[j].DaysToAct
	})
}

// Classify maps the relative deviation of a measured value over its
// threshold to a priority and a response window.
func Classify(measured, threshold float64) (models.AlertPriority, int) {
	if threshold <= 0 {
		return models.PriorityLow, 30
	}
	d := (measured - threshold) / threshold
	switch {
	case d > 1.0:
		return models.PriorityCritical, 2
	case d > 0.5:
		return models.PriorityHigh, 5
	case d > 0.2:
		return models.PriorityMedium, 10
	default:
		return models.PriorityLow, 30
	}
}

func signal(clientID, prefix string, category models.AlertCategory, now time.Time, title, description string, measured, threshold float64, th config.Thresholds, action string, regulatory bool) models.Alert {
	priority, days := Classify(measured, threshold)
	return models.Alert{
		ID:               alertID(clientID, prefix, title),
		Category:         category,
		Priority:         priority,
		Title:            title,
		Description:      description,
		Measured:         measured,
		Threshold:        threshold,
		Action:           action,
		DetectedAt:       now,
		RegulatoryReport: regulatory || priority == models.PriorityHigh || priority == models.PriorityCritical,
		DaysToAct:        days,
	}
}

// alertID derives a stable identifier from the client and signal so
// that re-running an analysis yields byte-identical output.
func alertID(clientID, prefix, title string) string {
	u := uuid.NewSHA1(uuid.NameSpaceOID, []byte(clientID+"|"+prefix+"|"+title))
	return prefix + "-" + strings.ToUpper(hex.EncodeToString(u[:4]))
}
