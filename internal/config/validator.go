package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "selector.max_candidates")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Selector.MaxCandidates < 1 {
		errs = append(errs, ValidationError{
			Field:   "selector.max_candidates",
			Value:   c.Selector.MaxCandidates,
			Message: "must be at least 1",
		})
	}
	if c.Selector.FallbackCount < 1 {
		errs = append(errs, ValidationError{
			Field:   "selector.fallback_count",
			Value:   c.Selector.FallbackCount,
			Message: "must be at least 1",
		})
	}
	if c.Selector.GateFalsePositiveRate <= 0 || c.Selector.GateFalsePositiveRate >= 1 {
		errs = append(errs, ValidationError{
			Field:   "selector.gate_false_positive_rate",
			Value:   c.Selector.GateFalsePositiveRate,
			Message: "must be between 0 and 1 exclusive",
		})
	}

	if c.Negotiation.MaxRounds < 1 {
		errs = append(errs, ValidationError{
			Field:   "negotiation.max_rounds",
			Value:   c.Negotiation.MaxRounds,
			Message: "must be at least 1",
		})
	}
	if c.Negotiation.CollectTimeoutSeconds < 1 {
		errs = append(errs, ValidationError{
			Field:   "negotiation.collect_timeout_seconds",
			Value:   c.Negotiation.CollectTimeoutSeconds,
			Message: "must be at least 1",
		})
	}
	if c.Negotiation.FeedbackTimeoutSeconds < 1 {
		errs = append(errs, ValidationError{
			Field:   "negotiation.feedback_timeout_seconds",
			Value:   c.Negotiation.FeedbackTimeoutSeconds,
			Message: "must be at least 1",
		})
	}
	if c.Negotiation.AgentTimeoutSeconds < 1 {
		errs = append(errs, ValidationError{
			Field:   "negotiation.agent_timeout_seconds",
			Value:   c.Negotiation.AgentTimeoutSeconds,
			Message: "must be at least 1",
		})
	}

	if c.Breaker.FailureThreshold < 1 {
		errs = append(errs, ValidationError{
			Field:   "breaker.failure_threshold",
			Value:   c.Breaker.FailureThreshold,
			Message: "must be at least 1",
		})
	}
	if c.Breaker.RecoveryTimeoutSeconds < 1 {
		errs = append(errs, ValidationError{
			Field:   "breaker.recovery_timeout_seconds",
			Value:   c.Breaker.RecoveryTimeoutSeconds,
			Message: "must be at least 1",
		})
	}

	if c.Checker.IntervalSeconds < 1 {
		errs = append(errs, ValidationError{
			Field:   "checker.interval_seconds",
			Value:   c.Checker.IntervalSeconds,
			Message: "must be at least 1",
		})
	}
	if c.Checker.MaxRecoveryAttempts < 1 {
		errs = append(errs, ValidationError{
			Field:   "checker.max_recovery_attempts",
			Value:   c.Checker.MaxRecoveryAttempts,
			Message: "must be at least 1",
		})
	}

	if c.Gaps.ImportanceThreshold < 0 || c.Gaps.ImportanceThreshold > 100 {
		errs = append(errs, ValidationError{
			Field:   "gaps.importance_threshold",
			Value:   c.Gaps.ImportanceThreshold,
			Message: "must be between 0 and 100",
		})
	}
	if c.Gaps.ApprovalScore < 0 || c.Gaps.ApprovalScore > 1 {
		errs = append(errs, ValidationError{
			Field:   "gaps.approval_score",
			Value:   c.Gaps.ApprovalScore,
			Message: "must be between 0 and 1",
		})
	}

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errs
}
