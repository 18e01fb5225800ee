package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for gridbot.
type Config struct {
	General GeneralConfig `json:"general"`
	Discord DiscordConfig `json:"discord"`
	Backend BackendConfig `json:"backend"`
	Router  RouterConfig  `json:"router"`
	Health  HealthConfig  `json:"health"`
	Jobs    JobsConfig    `json:"jobs"`
	Audit   AuditConfig   `json:"audit"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"` // optional log file path
}

// DiscordConfig holds the gateway credentials and the guild role mapping.
type DiscordConfig struct {
	Token               string   `json:"token"`
	GuildID             string   `json:"guildId"`
	AdminRoleIDs        []string `json:"adminRoleIds,omitempty"`
	CommissionerRoleIDs []string `json:"commissionerRoleIds,omitempty"`
	PermissionsFile     string   `json:"permissionsFile,omitempty"` // optional YAML permission table
}

// BackendConfig points at the game engine's REST API.
type BackendConfig struct {
	BaseURL               string      `json:"baseUrl"`
	ConnectTimeoutSeconds int         `json:"connectTimeoutSeconds"`
	RequestTimeoutSeconds int         `json:"requestTimeoutSeconds"`
	Retry                 RetryConfig `json:"retry"`
}

// RetryConfig shapes the submission pipeline's backoff.
type RetryConfig struct {
	MaxAttempts    int `json:"maxAttempts"`
	InitialDelayMs int `json:"initialDelayMs"`
	MaxDelayMs     int `json:"maxDelayMs"`
}

type RouterConfig struct {
	MaxConcurrentEvents int `json:"maxConcurrentEvents"`
	BusBuffer           int `json:"busBuffer"`
}

type HealthConfig struct {
	Addr              string  `json:"addr"`
	IntervalSeconds   int     `json:"intervalSeconds"`
	MemFreeThreshold  float64 `json:"memFreeThreshold"`
	DiskFreeThreshold float64 `json:"diskFreeThreshold"`
}

type JobsConfig struct {
	HeartbeatIntervalSeconds int `json:"heartbeatIntervalSeconds"`
	WatchdogIntervalSeconds  int `json:"watchdogIntervalSeconds"`
	WatchdogTolerance        int `json:"watchdogTolerance"`
}

type AuditConfig struct {
	Enabled       bool   `json:"enabled"`
	DBPath        string `json:"dbPath"`
	RetentionDays int    `json:"retentionDays"`
}

// DefaultConfigDir returns the default config directory (~/.gridbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gridbot"
	}
	return filepath.Join(home, ".gridbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Audit.DBPath = ExpandPath(cfg.Audit.DBPath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Discord.PermissionsFile = ExpandPath(cfg.Discord.PermissionsFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Backend.BaseURL == "" {
		errs = append(errs, "backend.baseUrl is required")
	}
	if cfg.Backend.ConnectTimeoutSeconds < 1 {
		errs = append(errs, "backend.connectTimeoutSeconds must be >= 1")
	}
	if cfg.Backend.RequestTimeoutSeconds < 1 {
		errs = append(errs, "backend.requestTimeoutSeconds must be >= 1")
	}
	if cfg.Backend.Retry.MaxAttempts < 1 || cfg.Backend.Retry.MaxAttempts > 10 {
		errs = append(errs, "backend.retry.maxAttempts must be between 1 and 10")
	}
	if cfg.Backend.Retry.InitialDelayMs < 1 {
		errs = append(errs, "backend.retry.initialDelayMs must be >= 1")
	}
	if cfg.Backend.Retry.MaxDelayMs < cfg.Backend.Retry.InitialDelayMs {
		errs = append(errs, "backend.retry.maxDelayMs must be >= initialDelayMs")
	}

	if cfg.Router.MaxConcurrentEvents < 1 || cfg.Router.MaxConcurrentEvents > 100 {
		errs = append(errs, "router.maxConcurrentEvents must be between 1 and 100")
	}
	if cfg.Router.BusBuffer < 1 {
		errs = append(errs, "router.busBuffer must be >= 1")
	}

	if cfg.Health.IntervalSeconds < 1 {
		errs = append(errs, "health.intervalSeconds must be >= 1")
	}
	if cfg.Health.MemFreeThreshold <= 0 || cfg.Health.MemFreeThreshold >= 1 {
		errs = append(errs, "health.memFreeThreshold must be between 0 and 1")
	}
	if cfg.Health.DiskFreeThreshold <= 0 || cfg.Health.DiskFreeThreshold >= 1 {
		errs = append(errs, "health.diskFreeThreshold must be between 0 and 1")
	}

	if cfg.Jobs.HeartbeatIntervalSeconds < 1 {
		errs = append(errs, "jobs.heartbeatIntervalSeconds must be >= 1")
	}
	if cfg.Jobs.WatchdogIntervalSeconds < 1 {
		errs = append(errs, "jobs.watchdogIntervalSeconds must be >= 1")
	}
	if cfg.Jobs.WatchdogTolerance < 1 {
		errs = append(errs, "jobs.watchdogTolerance must be >= 1")
	}

	if cfg.Audit.Enabled && cfg.Audit.DBPath == "" {
		errs = append(errs, "audit.dbPath is required when audit is enabled")
	}
	if cfg.Audit.RetentionDays < 1 {
		errs = append(errs, "audit.retentionDays must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
