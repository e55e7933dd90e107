package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Concord configuration
type Config struct {
	Selector    SelectorConfig    `mapstructure:"selector"`
	Negotiation NegotiationConfig `mapstructure:"negotiation"`
	Breaker     BreakerConfig     `mapstructure:"breaker"`
	Checker     CheckerConfig     `mapstructure:"checker"`
	Gaps        GapsConfig        `mapstructure:"gaps"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// SelectorConfig controls candidate selection
type SelectorConfig struct {
	// MaxCandidates is the upper bound on candidates selected per demand
	MaxCandidates int `mapstructure:"max_candidates"`
	// FallbackCount is how many random pool members to select when the
	// gate and ranking produce an empty result
	FallbackCount int `mapstructure:"fallback_count"`
	// GateFalsePositiveRate is the acceptable false-positive rate for the
	// per-member keyword filters. False negatives are never acceptable.
	GateFalsePositiveRate float64 `mapstructure:"gate_false_positive_rate"`
}

// NegotiationConfig controls the round coordinator
type NegotiationConfig struct {
	// MaxRounds is the hard cap on negotiation rounds per session
	MaxRounds int `mapstructure:"max_rounds"`
	// CollectTimeoutSeconds is the barrier timeout for response collection
	CollectTimeoutSeconds int `mapstructure:"collect_timeout_seconds"`
	// FeedbackTimeoutSeconds is the barrier timeout for feedback collection
	FeedbackTimeoutSeconds int `mapstructure:"feedback_timeout_seconds"`
	// AgentTimeoutSeconds is the per-agent timeout for a single offer or
	// feedback task, independent of the collection-wide barrier timeout
	AgentTimeoutSeconds int `mapstructure:"agent_timeout_seconds"`
	// InboxBuffer is the session inbox channel capacity
	InboxBuffer int `mapstructure:"inbox_buffer"`
}

// BreakerConfig controls the circuit breaker around reasoner calls
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker
	FailureThreshold int `mapstructure:"failure_threshold"`
	// RecoveryTimeoutSeconds is how long the breaker stays open before
	// allowing a probe call
	RecoveryTimeoutSeconds int `mapstructure:"recovery_timeout_seconds"`
}

// CheckerConfig controls the background state checker
type CheckerConfig struct {
	// IntervalSeconds is how often the checker sweeps non-terminal sessions
	IntervalSeconds int `mapstructure:"interval_seconds"`
	// MaxStuckSeconds is how long a session may sit in a collecting or
	// negotiating state without progress before recovery is requested
	MaxStuckSeconds int `mapstructure:"max_stuck_seconds"`
	// MaxRecoveryAttempts bounds recovery per session; beyond it the
	// session is failed
	MaxRecoveryAttempts int `mapstructure:"max_recovery_attempts"`
}

// GapsConfig controls gap recursion after finalization
type GapsConfig struct {
	// ImportanceThreshold is the minimum gap importance (0-100) considered
	// for recursion
	ImportanceThreshold int `mapstructure:"importance_threshold"`
	// ApprovalScore is the minimum weighted signal score that approves
	// spawning a child negotiation
	ApprovalScore float64 `mapstructure:"approval_score"`
	// UpliftWeight weights the expected satisfaction uplift signal
	UpliftWeight float64 `mapstructure:"uplift_weight"`
	// SupportWeight weights the stakeholder support signal
	SupportWeight float64 `mapstructure:"support_weight"`
	// CostBenefitWeight weights the cost/benefit signal
	CostBenefitWeight float64 `mapstructure:"cost_benefit_weight"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Dir is the log directory; empty means stderr
	Dir string `mapstructure:"dir"`
}

// Default returns a Config populated with default values
func Default() *Config {
	return &Config{
		Selector: SelectorConfig{
			MaxCandidates:         10,
			FallbackCount:         3,
			GateFalsePositiveRate: 0.01,
		},
		Negotiation: NegotiationConfig{
			MaxRounds:              5,
			CollectTimeoutSeconds:  300,
			FeedbackTimeoutSeconds: 120,
			AgentTimeoutSeconds:    60,
			InboxBuffer:            64,
		},
		Breaker: BreakerConfig{
			FailureThreshold:       3,
			RecoveryTimeoutSeconds: 30,
		},
		Checker: CheckerConfig{
			IntervalSeconds:     5,
			MaxStuckSeconds:     120,
			MaxRecoveryAttempts: 3,
		},
		Gaps: GapsConfig{
			ImportanceThreshold: 60,
			ApprovalScore:       0.6,
			UpliftWeight:        0.4,
			SupportWeight:       0.35,
			CostBenefitWeight:   0.25,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// CollectTimeout returns the response collection barrier timeout as a Duration
func (c *NegotiationConfig) CollectTimeout() time.Duration {
	return time.Duration(c.CollectTimeoutSeconds) * time.Second
}

// FeedbackTimeout returns the feedback collection barrier timeout as a Duration
func (c *NegotiationConfig) FeedbackTimeout() time.Duration {
	return time.Duration(c.FeedbackTimeoutSeconds) * time.Second
}

// AgentTimeout returns the per-agent task timeout as a Duration
func (c *NegotiationConfig) AgentTimeout() time.Duration {
	return time.Duration(c.AgentTimeoutSeconds) * time.Second
}

// RecoveryTimeout returns the breaker open-state duration as a Duration
func (c *BreakerConfig) RecoveryTimeout() time.Duration {
	return time.Duration(c.RecoveryTimeoutSeconds) * time.Second
}

// Interval returns the checker sweep interval as a Duration
func (c *CheckerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// MaxStuck returns the stuck-session threshold as a Duration
func (c *CheckerConfig) MaxStuck() time.Duration {
	return time.Duration(c.MaxStuckSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Selector defaults
	viper.SetDefault("selector.max_candidates", defaults.Selector.MaxCandidates)
	viper.SetDefault("selector.fallback_count", defaults.Selector.FallbackCount)
	viper.SetDefault("selector.gate_false_positive_rate", defaults.Selector.GateFalsePositiveRate)

	// Negotiation defaults
	viper.SetDefault("negotiation.max_rounds", defaults.Negotiation.MaxRounds)
	viper.SetDefault("negotiation.collect_timeout_seconds", defaults.Negotiation.CollectTimeoutSeconds)
	viper.SetDefault("negotiation.feedback_timeout_seconds", defaults.Negotiation.FeedbackTimeoutSeconds)
	viper.SetDefault("negotiation.agent_timeout_seconds", defaults.Negotiation.AgentTimeoutSeconds)
	viper.SetDefault("negotiation.inbox_buffer", defaults.Negotiation.InboxBuffer)

	// Breaker defaults
	viper.SetDefault("breaker.failure_threshold", defaults.Breaker.FailureThreshold)
	viper.SetDefault("breaker.recovery_timeout_seconds", defaults.Breaker.RecoveryTimeoutSeconds)

	// Checker defaults
	viper.SetDefault("checker.interval_seconds", defaults.Checker.IntervalSeconds)
	viper.SetDefault("checker.max_stuck_seconds", defaults.Checker.MaxStuckSeconds)
	viper.SetDefault("checker.max_recovery_attempts", defaults.Checker.MaxRecoveryAttempts)

	// Gaps defaults
	viper.SetDefault("gaps.importance_threshold", defaults.Gaps.ImportanceThreshold)
	viper.SetDefault("gaps.approval_score", defaults.Gaps.ApprovalScore)
	viper.SetDefault("gaps.uplift_weight", defaults.Gaps.UpliftWeight)
	viper.SetDefault("gaps.support_weight", defaults.Gaps.SupportWeight)
	viper.SetDefault("gaps.cost_benefit_weight", defaults.Gaps.CostBenefitWeight)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper and validates it.
// SetDefaults should be called before Load so unset keys fall back
// to defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// loading fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the directory where the user config file lives
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "concord")
	}
	// Fall back to ~/.config/concord
	home, err := os.UserHomeDir()
	if err != nil {
		return ".concord"
	}
	return filepath.Join(home, ".config", "concord")
}

// ConfigFile returns the path to the user config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
