package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/concord-hq/concord/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify Concord configuration",
	Long: `View or modify Concord configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  concord config set negotiation.max_rounds 7
  concord config set breaker.failure_threshold 5
  concord config set gaps.importance_threshold 50

Valid keys:
  selector.max_candidates          - Candidates kept after ranking
  selector.fallback_count          - Random draws when the gate yields nothing
  negotiation.max_rounds           - Hard cap on rounds per session
  negotiation.collect_timeout_seconds  - Response collection barrier timeout
  negotiation.feedback_timeout_seconds - Feedback collection barrier timeout
  negotiation.agent_timeout_seconds    - Per-agent offer/feedback timeout
  breaker.failure_threshold        - Consecutive failures that open the breaker
  breaker.recovery_timeout_seconds - Open period before a probe call
  checker.interval_seconds         - Stuck-session sweep interval
  checker.max_stuck_seconds        - Idle time before recovery is requested
  checker.max_recovery_attempts    - Recovery attempts before failing a session
  gaps.importance_threshold        - Minimum gap importance for recursion
  gaps.approval_score              - Weighted signal score that approves recursion
  logging.level                    - Log level (debug, info, warn, error)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/concord/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	fmt.Println("Current configuration:")
	fmt.Println()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("selector:")
	fmt.Printf("  max_candidates: %d\n", cfg.Selector.MaxCandidates)
	fmt.Printf("  fallback_count: %d\n", cfg.Selector.FallbackCount)
	fmt.Printf("  gate_false_positive_rate: %g\n", cfg.Selector.GateFalsePositiveRate)

	fmt.Println("negotiation:")
	fmt.Printf("  max_rounds: %d\n", cfg.Negotiation.MaxRounds)
	fmt.Printf("  collect_timeout_seconds: %d\n", cfg.Negotiation.CollectTimeoutSeconds)
	fmt.Printf("  feedback_timeout_seconds: %d\n", cfg.Negotiation.FeedbackTimeoutSeconds)
	fmt.Printf("  agent_timeout_seconds: %d\n", cfg.Negotiation.AgentTimeoutSeconds)

	fmt.Println("breaker:")
	fmt.Printf("  failure_threshold: %d\n", cfg.Breaker.FailureThreshold)
	fmt.Printf("  recovery_timeout_seconds: %d\n", cfg.Breaker.RecoveryTimeoutSeconds)

	fmt.Println("checker:")
	fmt.Printf("  interval_seconds: %d\n", cfg.Checker.IntervalSeconds)
	fmt.Printf("  max_stuck_seconds: %d\n", cfg.Checker.MaxStuckSeconds)
	fmt.Printf("  max_recovery_attempts: %d\n", cfg.Checker.MaxRecoveryAttempts)

	fmt.Println("gaps:")
	fmt.Printf("  importance_threshold: %d\n", cfg.Gaps.ImportanceThreshold)
	fmt.Printf("  approval_score: %g\n", cfg.Gaps.ApprovalScore)

	fmt.Println("logging:")
	fmt.Printf("  level: %s\n", cfg.Logging.Level)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key exists
	validKeys := map[string]string{
		"selector.max_candidates":              "int",
		"selector.fallback_count":              "int",
		"selector.gate_false_positive_rate":    "float",
		"negotiation.max_rounds":               "int",
		"negotiation.collect_timeout_seconds":  "int",
		"negotiation.feedback_timeout_seconds": "int",
		"negotiation.agent_timeout_seconds":    "int",
		"breaker.failure_threshold":            "int",
		"breaker.recovery_timeout_seconds":     "int",
		"checker.interval_seconds":             "int",
		"checker.max_stuck_seconds":            "int",
		"checker.max_recovery_attempts":        "int",
		"gaps.importance_threshold":            "int",
		"gaps.approval_score":                  "float",
		"logging.level":                        "string",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'concord config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue interface{}
	switch keyType {
	case "string":
		typedValue = value
	case "float":
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected number", key)
		}
		typedValue = floatVal
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set the value in viper and reject combinations the core cannot run
	viper.Set(key, typedValue)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", errs[0].Error())
	}

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'concord config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# Concord Configuration

# Candidate selection funnel
selector:
  # Candidates kept after similarity ranking
  max_candidates: 10
  # Members drawn at random when the keyword gate yields nothing
  fallback_count: 3
  # False positive rate for the per-member keyword gate
  gate_false_positive_rate: 0.01

# Negotiation rounds
negotiation:
  # Hard cap on rounds; the cap imposes a forced finalization
  max_rounds: 5
  # Barrier timeout while collecting responses
  collect_timeout_seconds: 300
  # Barrier timeout while collecting feedback
  feedback_timeout_seconds: 120
  # Per-agent timeout for one offer or evaluation
  agent_timeout_seconds: 60

# Circuit breaker around the reasoner
breaker:
  failure_threshold: 3
  recovery_timeout_seconds: 30

# Stuck-session checker
checker:
  interval_seconds: 5
  max_stuck_seconds: 120
  max_recovery_attempts: 3

# Gap recursion
gaps:
  importance_threshold: 60
  approval_score: 0.6
  uplift_weight: 0.4
  support_weight: 0.35
  cost_benefit_weight: 0.25

# Logging
logging:
  # debug, info, warn, error
  level: info
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println(config.ConfigFile())
	return nil
}
