package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all invocation configuration.
type Config struct {
	AWS        AWSConfig        `mapstructure:"aws"`
	Deploy     DeployConfig     `mapstructure:"deploy"`
	CodeDeploy CodeDeployConfig `mapstructure:"codedeploy"`
	Log        LogConfig        `mapstructure:"log"`
}

// AWSConfig holds region and credential configuration. When the key
// pair is empty the SDK's default credential chain applies.
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// DeployConfig holds the rollout inputs.
type DeployConfig struct {
	TaskDefinition string `mapstructure:"task_definition"`
	// Service is optional; without it the run stops after registering
	// the task definition.
	Service string `mapstructure:"service"`
	Cluster string `mapstructure:"cluster"`

	WaitForStability bool `mapstructure:"wait_for_stability"`
	// WaitForMinutes is kept as text: an unparsable value falls back to
	// the default instead of failing the run.
	WaitForMinutes     string `mapstructure:"wait_for_minutes"`
	ForceNewDeployment bool   `mapstructure:"force_new_deployment"`
	// DesiredCount is kept as text: when absent or unparsable the
	// update request carries no scaling change.
	DesiredCount string `mapstructure:"desired_count"`

	// WorkspaceRoot is the base for relative task-definition and
	// AppSpec paths.
	WorkspaceRoot string `mapstructure:"workspace_root"`
}

// DesiredCountValue parses the optional desired count. Nil means the
// update request must not carry one.
func (c DeployConfig) DesiredCountValue() *int32 {
	n, err := strconv.ParseInt(c.DesiredCount, 10, 32)
	if err != nil {
		return nil
	}
	v := int32(n)
	return &v
}

// CodeDeployConfig holds the staged-deployment knobs, each optional.
type CodeDeployConfig struct {
	AppSpec          string `mapstructure:"appspec"`
	Application      string `mapstructure:"application"`
	DeploymentGroup  string `mapstructure:"deployment_group"`
	Description      string `mapstructure:"description"`
	DeploymentConfig string `mapstructure:"deployment_config"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from an optional file with environment
// overrides (prefix ECSDEPLOY, dots replaced by underscores).
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("aws.region", "")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")

	v.SetDefault("deploy.task_definition", "")
	v.SetDefault("deploy.service", "")
	v.SetDefault("deploy.cluster", "default")
	v.SetDefault("deploy.wait_for_stability", false)
	v.SetDefault("deploy.wait_for_minutes", "30")
	v.SetDefault("deploy.force_new_deployment", false)
	v.SetDefault("deploy.desired_count", "")
	v.SetDefault("deploy.workspace_root", ".")

	v.SetDefault("codedeploy.appspec", "")
	v.SetDefault("codedeploy.application", "")
	v.SetDefault("codedeploy.deployment_group", "")
	v.SetDefault("codedeploy.description", "")
	v.SetDefault("codedeploy.deployment_config", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	v.SetEnvPrefix("ECSDEPLOY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger builds the structured logger. Diagnostics go to stderr;
// stdout is reserved for operator-facing rollout output.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
