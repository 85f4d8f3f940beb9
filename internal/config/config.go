package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Thresholds carries every tunable constant of the risk engine. Values
// are currency-specific (COP); amounts are whole pesos, rates are
// percentages unless noted. DefaultThresholds matches the monitoring
// policy the engine was calibrated for.
type Thresholds struct {
	// Behavior / GAFI score factors.
	VolumeCritical    int64   `mapstructure:"volume_critical_cop" yaml:"volume_critical_cop"`         // > => +25
	VolumeHigh        int64   `mapstructure:"volume_high_cop" yaml:"volume_high_cop"`                 // > => +15
	VolumeModerate    int64   `mapstructure:"volume_moderate_cop" yaml:"volume_moderate_cop"`         // > => +5
	FrequencyCritical float64 `mapstructure:"frequency_critical_day" yaml:"frequency_critical_day"`   // tx/day
	FrequencyHigh     float64 `mapstructure:"frequency_high_day" yaml:"frequency_high_day"`
	FrequencyModerate float64 `mapstructure:"frequency_moderate_day" yaml:"frequency_moderate_day"`
	TicketCritical    int64   `mapstructure:"ticket_critical_cop" yaml:"ticket_critical_cop"`
	TicketHigh        int64   `mapstructure:"ticket_high_cop" yaml:"ticket_high_cop"`
	TicketModerate    int64   `mapstructure:"ticket_moderate_cop" yaml:"ticket_moderate_cop"`
	RejectionCritical float64 `mapstructure:"rejection_critical_pct" yaml:"rejection_critical_pct"`
	RejectionHigh     float64 `mapstructure:"rejection_high_pct" yaml:"rejection_high_pct"`
	RejectionModerate float64 `mapstructure:"rejection_moderate_pct" yaml:"rejection_moderate_pct"`
	ConcentrationPerDay float64 `mapstructure:"concentration_per_day" yaml:"concentration_per_day"`   // tx per active day

	// GAFI classifier.
	GAFIVolume         int64   `mapstructure:"gafi_volume_cop" yaml:"gafi_volume_cop"`
	GAFIAvgTicket      int64   `mapstructure:"gafi_avg_ticket_cop" yaml:"gafi_avg_ticket_cop"`
	GAFIDailyFrequency float64 `mapstructure:"gafi_daily_frequency" yaml:"gafi_daily_frequency"`
	GAFIDiversity      int     `mapstructure:"gafi_diversity" yaml:"gafi_diversity"`
	GAFIRejectionRate  float64 `mapstructure:"gafi_rejection_rate_pct" yaml:"gafi_rejection_rate_pct"`
	GAFIJuridicalShare float64 `mapstructure:"gafi_juridical_share_pct" yaml:"gafi_juridical_share_pct"`

	// Red-flag engine.
	HighValueTransaction int64   `mapstructure:"high_value_transaction_cop" yaml:"high_value_transaction_cop"`
	DailyVolumeAlert     int64   `mapstructure:"daily_volume_alert_cop" yaml:"daily_volume_alert_cop"`
	MonthlyVolumeAlert   int64   `mapstructure:"monthly_volume_alert_cop" yaml:"monthly_volume_alert_cop"`
	DailyCountAlert      int     `mapstructure:"daily_count_alert" yaml:"daily_count_alert"`
	StructuringMinCount  int     `mapstructure:"structuring_min_count" yaml:"structuring_min_count"`
	StructuringTolerance float64 `mapstructure:"structuring_tolerance" yaml:"structuring_tolerance"` // fraction of day mean
	EarlyHoursShare      float64 `mapstructure:"early_hours_share" yaml:"early_hours_share"`         // fraction 0-1
	WeekendShare         float64 `mapstructure:"weekend_share" yaml:"weekend_share"`                 // fraction 0-1
	RejectionFlagRate    float64 `mapstructure:"rejection_flag_rate_pct" yaml:"rejection_flag_rate_pct"`
	ShiftMinRecords      int     `mapstructure:"shift_min_records" yaml:"shift_min_records"`
	VolumeShiftPct       float64 `mapstructure:"volume_shift_pct" yaml:"volume_shift_pct"`
	FrequencyShiftPct    float64 `mapstructure:"frequency_shift_pct" yaml:"frequency_shift_pct"`

	// Anomaly detector.
	OutlierStdDevs   float64 `mapstructure:"outlier_std_devs" yaml:"outlier_std_devs"`
	MinAnomalyPoints int     `mapstructure:"min_anomaly_points" yaml:"min_anomaly_points"`
	BurstGapMinutes  float64 `mapstructure:"burst_gap_minutes" yaml:"burst_gap_minutes"`
	BurstMinCount    int     `mapstructure:"burst_min_count" yaml:"burst_min_count"`
	OffHoursShare    float64 `mapstructure:"off_hours_share" yaml:"off_hours_share"` // fraction 0-1

	// Score aggregation.
	WeightGAFI          float64 `mapstructure:"weight_gafi" yaml:"weight_gafi"`
	WeightCompliance    float64 `mapstructure:"weight_compliance" yaml:"weight_compliance"`
	WeightOperational   float64 `mapstructure:"weight_operational" yaml:"weight_operational"`
	CriticalFactorScore int     `mapstructure:"critical_factor_score" yaml:"critical_factor_score"`
	ScoreCriticalAlert  int     `mapstructure:"score_critical_alert" yaml:"score_critical_alert"`

	// Risk matrix.
	ResidualReduction float64 `mapstructure:"residual_reduction" yaml:"residual_reduction"` // multiplier on inherent risk
	GeographyBaseline int     `mapstructure:"geography_baseline" yaml:"geography_baseline"`
	DueDiligenceScore int     `mapstructure:"due_diligence_score" yaml:"due_diligence_score"`
	AppetiteScore     int     `mapstructure:"appetite_score" yaml:"appetite_score"`
	ManualReviewCount int     `mapstructure:"manual_review_count" yaml:"manual_review_count"`

	// Review schedule (days).
	ReviewDaysCritical int `mapstructure:"review_days_critical" yaml:"review_days_critical"`
	ReviewDaysHigh     int `mapstructure:"review_days_high" yaml:"review_days_high"`
	ReviewDaysMedium   int `mapstructure:"review_days_medium" yaml:"review_days_medium"`
	ReviewDaysLow      int `mapstructure:"review_days_low" yaml:"review_days_low"`

	// GAFI trend.
	TrendWindowDays int `mapstructure:"trend_window_days" yaml:"trend_window_days"`
	TrendDelta      int `mapstructure:"trend_delta" yaml:"trend_delta"`

	// Alert generator.
	TotalVolumeAlert       int64   `mapstructure:"total_volume_alert_cop" yaml:"total_volume_alert_cop"`
	AvgTicketAlert         int64   `mapstructure:"avg_ticket_alert_cop" yaml:"avg_ticket_alert_cop"`
	FragmentationDayCount  int     `mapstructure:"fragmentation_day_count" yaml:"fragmentation_day_count"`
	FragmentationDayVolume int64   `mapstructure:"fragmentation_day_volume_cop" yaml:"fragmentation_day_volume_cop"`
	FragmentationDays      int     `mapstructure:"fragmentation_days" yaml:"fragmentation_days"`
	RejectionAlertRate     float64 `mapstructure:"rejection_alert_rate_pct" yaml:"rejection_alert_rate_pct"`
	RecordCountAlert       int     `mapstructure:"record_count_alert" yaml:"record_count_alert"`
	DiversityAlert         int     `mapstructure:"diversity_alert" yaml:"diversity_alert"`
}

// DefaultThresholds returns the calibrated COP thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VolumeCritical:      500_000_000,
		VolumeHigh:          100_000_000,
		VolumeModerate:      10_000_000,
		FrequencyCritical:   20,
		FrequencyHigh:       10,
		FrequencyModerate:   5,
		TicketCritical:      20_000_000,
		TicketHigh:          5_000_000,
		TicketModerate:      1_000_000,
		RejectionCritical:   15,
		RejectionHigh:       10,
		RejectionModerate:   5,
		ConcentrationPerDay: 50,

		GAFIVolume:         100_000_000,
		GAFIAvgTicket:      10_000_000,
		GAFIDailyFrequency: 10,
		GAFIDiversity:      3,
		GAFIRejectionRate:  15,
		GAFIJuridicalShare: 50,

		HighValueTransaction: 10_000_000,
		DailyVolumeAlert:     50_000_000,
		MonthlyVolumeAlert:   500_000_000,
		DailyCountAlert:      20,
		StructuringMinCount:  5,
		StructuringTolerance: 0.20,
		EarlyHoursShare:      0.20,
		WeekendShare:         0.40,
		RejectionFlagRate:    20,
		ShiftMinRecords:      20,
		VolumeShiftPct:       200,
		FrequencyShiftPct:    150,

		OutlierStdDevs:   2.5,
		MinAnomalyPoints: 4,
		BurstGapMinutes:  5,
		BurstMinCount:    5,
		OffHoursShare:    0.20,

		WeightGAFI:          0.40,
		WeightCompliance:    0.35,
		WeightOperational:   0.25,
		CriticalFactorScore: 70,
		ScoreCriticalAlert:  76,

		ResidualReduction: 0.70,
		GeographyBaseline: 50,
		DueDiligenceScore: 70,
		AppetiteScore:     75,
		ManualReviewCount: 1000,

		ReviewDaysCritical: 7,
		ReviewDaysHigh:     15,
		ReviewDaysMedium:   30,
		ReviewDaysLow:      90,

		TrendWindowDays: 30,
		TrendDelta:      10,

		TotalVolumeAlert:       1_000_000_000,
		AvgTicketAlert:         50_000_000,
		FragmentationDayCount:  10,
		FragmentationDayVolume: 100_000_000,
		FragmentationDays:      2,
		RejectionAlertRate:     15,
		RecordCountAlert:       1000,
		DiversityAlert:         6,
	}
}

// ServerConfig holds the HTTP adapter settings.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Config is the application configuration.
type Config struct {
	LogLevel   string       `mapstructure:"log_level" yaml:"log_level"`
	Server     ServerConfig `mapstructure:"server" yaml:"server"`
	Thresholds Thresholds   `mapstructure:"thresholds" yaml:"thresholds"`
}

// Load reads configuration from the YAML file at path, then overlays
// TXRISK_-prefixed environment variables on top of the defaults. An
// empty path skips the file entirely; a path that does not exist is an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TXRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Thresholds: DefaultThresholds(),
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// YAML renders the effective configuration, defaults and overlays
// applied, in the same schema Load reads.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

func validate(cfg *Config) error {
	th := cfg.Thresholds
	sum := th.WeightGAFI + th.WeightCompliance + th.WeightOperational
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("score weights must sum to 1.0, got %.3f", sum)
	}
	if th.ResidualReduction <= 0 || th.ResidualReduction > 1 {
		return fmt.Errorf("residual reduction must be in (0,1], got %.2f", th.ResidualReduction)
	}
	if th.OutlierStdDevs <= 0 {
		return fmt.Errorf("outlier std-dev multiplier must be positive, got %.2f", th.OutlierStdDevs)
	}
	return nil
}
