package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel represents the discrete risk classification of a client,
// a flag or an individual sub-score.
type RiskLevel string

const (
	RiskLevelLow          RiskLevel = "LOW"
	RiskLevelMedium       RiskLevel = "MEDIUM"
	RiskLevelHigh         RiskLevel = "HIGH"
	RiskLevelCritical     RiskLevel = "CRITICAL"
	RiskLevelNotEvaluated RiskLevel = "NOT_EVALUATED"
)

// LevelFromScore maps a total risk score to its discrete level.
// Breakpoints: <=30 low, <=50 medium, <=75 high, above critical.
func LevelFromScore(score int) RiskLevel {
	switch {
	case score < 0 || score > 100:
		return RiskLevelNotEvaluated
	case score <= 30:
		return RiskLevelLow
	case score <= 50:
		return RiskLevelMedium
	case score <= 75:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// TransactionStatus is the settlement state of a transaction as reported
// by the payment rail.
type TransactionStatus string

const (
	StatusPaid      TransactionStatus = "PAID"
	StatusValidated TransactionStatus = "VALIDATED"
	StatusApproved  TransactionStatus = "APPROVED"
	StatusRejected  TransactionStatus = "REJECTED"
	StatusReturned  TransactionStatus = "RETURNED"
	StatusUnknown   TransactionStatus = "UNKNOWN"
)

// Successful reports whether the transaction settled.
func (s TransactionStatus) Successful() bool {
	return s == StatusPaid || s == StatusValidated || s == StatusApproved
}

// Rejected reports whether the transaction was rejected or returned by
// the rail; both count toward the rejection rate.
func (s TransactionStatus) Rejected() bool {
	return s == StatusRejected || s == StatusReturned
}

// PersonType classifies the counterparty of a transaction.
type PersonType string

const (
	PersonNatural   PersonType = "NATURAL"
	PersonJuridical PersonType = "JURIDICAL"
	PersonUnknown   PersonType = "UNKNOWN"
)

// TransactionRecord is a single transaction of one client. Records are
// immutable once built; a nil Timestamp means the source date could not
// be parsed and excludes the record from time-based aggregates only.
type TransactionRecord struct {
	Timestamp  *time.Time        `json:"timestamp,omitempty"`
	Amount     decimal.Decimal   `json:"amount"`
	Status     TransactionStatus `json:"status"`
	Type       string            `json:"type"`
	PersonType PersonType        `json:"person_type"`
	Commission decimal.Decimal   `json:"commission"`
}

// ClientTransactionSet is the full transaction history of exactly one
// client submitted for analysis. The set is treated as immutable for the
// duration of one analysis call.
type ClientTransactionSet struct {
	ClientID string              `json:"client_id"`
	Records  []TransactionRecord `json:"records"`
}

// Empty reports whether the set has no records at all.
func (s ClientTransactionSet) Empty() bool { return len(s.Records) == 0 }

// FlagType identifies a red-flag rule.
type FlagType string

const (
	// Profiler flags.
	FlagHighVolume           FlagType = "HIGH_VOLUME"
	FlagHighTicket           FlagType = "HIGH_AVERAGE_TICKET"
	FlagHighFrequency        FlagType = "HIGH_DAILY_FREQUENCY"
	FlagHighRejection        FlagType = "ELEVATED_REJECTIONS"
	FlagConcentratedActivity FlagType = "CONCENTRATED_ACTIVITY"
	FlagOperationDiversity   FlagType = "OPERATION_DIVERSITY"

	// Red-flag engine detectors.
	FlagHighValueTransactions FlagType = "HIGH_VALUE_TRANSACTIONS"
	FlagUnusualDailyVolume    FlagType = "UNUSUAL_DAILY_VOLUME"
	FlagUnusualMonthlyVolume  FlagType = "UNUSUAL_MONTHLY_VOLUME"
	FlagStructuring           FlagType = "STRUCTURING"
	FlagExcessiveDailyCount   FlagType = "EXCESSIVE_DAILY_FREQUENCY"
	FlagUnusualHours          FlagType = "UNUSUAL_HOURS"
	FlagWeekendActivity       FlagType = "WEEKEND_ACTIVITY"
	FlagHighRejectionRate     FlagType = "HIGH_REJECTION_RATE"
	FlagVolumeShift           FlagType = "VOLUME_SHIFT"
	FlagFrequencyShift        FlagType = "FREQUENCY_SHIFT"
	FlagDataInconsistency     FlagType = "DATA_INCONSISTENCY"
)

// RedFlag is an individual rule-detected risk indicator. Flags are
// independent; the same underlying behavior may be flagged by more than
// one detector and each occurrence contributes its own points.
type RedFlag struct {
	Type        FlagType          `json:"type"`
	Severity    RiskLevel         `json:"severity"`
	Description string            `json:"description"`
	Details     map[string]string `json:"details,omitempty"`
	Action      string            `json:"action"`
	Points      int               `json:"points"`
}

// AlertCategory groups alerts by the concern they notify.
type AlertCategory string

const (
	AlertOperational       AlertCategory = "OPERATIONAL"
	AlertComplianceSignal  AlertCategory = "COMPLIANCE_SIGNAL"
	AlertComplianceProcess AlertCategory = "COMPLIANCE_PROCESS"
	AlertFraud             AlertCategory = "FRAUD"
	AlertReputational      AlertCategory = "REPUTATIONAL"
)

// AlertPriority orders alerts by urgency.
type AlertPriority string

const (
	PriorityLow      AlertPriority = "LOW"
	PriorityMedium   AlertPriority = "MEDIUM"
	PriorityHigh     AlertPriority = "HIGH"
	PriorityCritical AlertPriority = "CRITICAL"
)

// Rank returns the sort rank of the priority, most urgent first.
func (p AlertPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Alert is an actionable notification derived from one or more detected
// signals. Alerts are generated fresh on every analysis; there is no
// persisted alert state.
type Alert struct {
	ID               string        `json:"id"`
	Category         AlertCategory `json:"category"`
	Priority         AlertPriority `json:"priority"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Measured         float64       `json:"measured"`
	Threshold        float64       `json:"threshold"`
	Action           string        `json:"action"`
	DetectedAt       time.Time     `json:"detected_at"`
	RegulatoryReport bool          `json:"regulatory_report"`
	DaysToAct        int           `json:"days_to_act"`
}

// ScoreWeights is the fixed weighting of the three sub-scores.
type ScoreWeights struct {
	GAFI        float64 `json:"gafi"`
	Compliance  float64 `json:"compliance"`
	Operational float64 `json:"operational"`
}

// ScoreBreakdown is the aggregated risk score with its components.
// Every component and the total are within [0,100]; Level is a pure
// function of Total.
type ScoreBreakdown struct {
	Total           int          `json:"total"`
	GAFI            int          `json:"gafi"`
	Compliance      int          `json:"compliance"`
	Operational     int          `json:"operational"`
	Level           RiskLevel    `json:"level"`
	CriticalFactors []string     `json:"critical_factors"`
	Weights         ScoreWeights `json:"weights"`
}

// RiskCategories holds one value per assessed risk category.
type RiskCategories struct {
	Volume     int `json:"volume"`
	Frequency  int `json:"frequency"`
	Complexity int `json:"complexity"`
	Geography  int `json:"geography"`
}

// RiskMatrix is the inherent-versus-residual risk view per category.
type RiskMatrix struct {
	Inherent         RiskCategories `json:"inherent"`
	Residual         RiskCategories `json:"residual"`
	Controls         []string       `json:"controls"`
	Gaps             []string       `json:"gaps"`
	AppetiteExceeded bool           `json:"appetite_exceeded"`
}

// AnomalySummary condenses the anomaly detector output for the verdict.
type AnomalySummary struct {
	AmountOutliers    int       `json:"amount_outliers"`
	FrequencyOutliers int       `json:"frequency_outliers"`
	TemporalAnomalies int       `json:"temporal_anomalies"`
	Total             int       `json:"total"`
	Level             RiskLevel `json:"level"`
}

// RiskVerdict is the complete output of one analysis. It is constructed
// fresh per call, never mutated after return and owned by the caller.
type RiskVerdict struct {
	ClientID             string         `json:"client_id"`
	AnalyzedAt           time.Time      `json:"analyzed_at"`
	Score                ScoreBreakdown `json:"score"`
	Flags                []RedFlag      `json:"flags"`
	Alerts               []Alert        `json:"alerts"`
	Anomalies            AnomalySummary `json:"anomalies"`
	Matrix               RiskMatrix     `json:"matrix"`
	Recommendations      []string       `json:"recommendations"`
	EnhancedDueDiligence bool           `json:"enhanced_due_diligence"`
	Escalate             bool           `json:"escalate"`
	NextReview           time.Time      `json:"next_review"`
}
