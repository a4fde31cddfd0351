package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the unified server configuration. Values come from environment
// variables with defaults; an optional YAML file (CONFIG_FILE) is applied
// on top for deployments that prefer file-based configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Session       SessionConfig       `yaml:"session"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Summarization SummarizationConfig `yaml:"summarization"`
	Distribution  DistributionConfig  `yaml:"distribution"`
	Security      SecurityConfig      `yaml:"security"`
	Audit         AuditConfig         `yaml:"audit"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Env  string `yaml:"env"` // dev, staging, production
	Port string `yaml:"port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // optional rotated log file
}

// SessionConfig controls session retention.
type SessionConfig struct {
	// RetentionDelay is how long a summarized session stays in memory
	// before its deferred clear fires.
	RetentionDelay time.Duration `yaml:"retention_delay"`
	// SweepSchedule is a 5-field cron expression for the backstop sweep
	// that removes summarized sessions whose clear timer was lost.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// TranscriptionConfig configures the transcription collaborator.
type TranscriptionConfig struct {
	ServiceURL    string        `yaml:"service_url"` // empty enables the degraded mock
	Model         string        `yaml:"model"`
	Language      string        `yaml:"language"` // default language hint
	Timeout       time.Duration `yaml:"timeout"`
	MaxConcurrent int64         `yaml:"max_concurrent"` // cap on in-flight collaborator calls
}

// SummarizationConfig configures the summarization collaborator.
type SummarizationConfig struct {
	ServiceURL string        `yaml:"service_url"` // empty enables the mechanical fallback
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
}

// DistributionConfig configures summary delivery.
type DistributionConfig struct {
	SlackBotToken string `yaml:"slack_bot_token"` // empty enables the log-only distributor
}

// SecurityConfig holds the CORS allowlist for the query surface.
type SecurityConfig struct {
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// AuditConfig configures the rotating session event log.
type AuditConfig struct {
	LogPath string `yaml:"log_path"` // empty disables event auditing
}

// LoadConfig builds the configuration from environment variables and, if
// CONFIG_FILE is set, applies the YAML file on top.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Env:  getEnv("ENV", "dev"),
			Port: getEnv("PORT", "8000"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Session: SessionConfig{
			RetentionDelay: getEnvDuration("SESSION_RETENTION_DELAY", 10*time.Minute),
			SweepSchedule:  getEnv("SESSION_SWEEP_SCHEDULE", "0 * * * *"),
		},
		Transcription: TranscriptionConfig{
			ServiceURL:    getEnv("TRANSCRIPTION_URL", ""),
			Model:         getEnv("TRANSCRIPTION_MODEL", "ggml-base"),
			Language:      getEnv("TRANSCRIPTION_LANGUAGE", ""),
			Timeout:       getEnvDuration("TRANSCRIPTION_TIMEOUT", 60*time.Second),
			MaxConcurrent: int64(getEnvInt("TRANSCRIPTION_MAX_CONCURRENT", 8)),
		},
		Summarization: SummarizationConfig{
			ServiceURL: getEnv("SUMMARIZATION_URL", ""),
			Model:      getEnv("SUMMARIZATION_MODEL", ""),
			Timeout:    getEnvDuration("SUMMARIZATION_TIMEOUT", 120*time.Second),
		},
		Distribution: DistributionConfig{
			SlackBotToken: getEnv("SLACK_BOT_TOKEN", ""),
		},
		Security: SecurityConfig{
			CORSAllowedOrigins: parseStringList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		},
		Audit: AuditConfig{
			LogPath: getEnv("AUDIT_LOG_PATH", ""),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyConfigFile(cfg, path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyConfigFile overlays a YAML configuration file onto cfg.
func applyConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// ValidateConfig checks the configuration and aggregates all problems into
// a single error so operators see everything at once.
func ValidateConfig(cfg *Config) error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid PORT value: %s (must be 1-65535)", cfg.Server.Port))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %s (must be: debug, info, warn, error)", cfg.Log.Level))
	}

	validEnvs := map[string]bool{"dev": true, "development": true, "staging": true, "production": true, "prod": true}
	if !validEnvs[cfg.Server.Env] {
		errors = append(errors, fmt.Sprintf("invalid ENV: %s (must be: dev, development, staging, production)", cfg.Server.Env))
	}

	if cfg.Session.RetentionDelay <= 0 {
		errors = append(errors, "SESSION_RETENTION_DELAY must be positive")
	}

	if cfg.Transcription.MaxConcurrent < 1 {
		errors = append(errors, "TRANSCRIPTION_MAX_CONCURRENT must be at least 1")
	}
	if cfg.Transcription.Timeout <= 0 {
		errors = append(errors, "TRANSCRIPTION_TIMEOUT must be positive")
	}
	if cfg.Summarization.Timeout <= 0 {
		errors = append(errors, "SUMMARIZATION_TIMEOUT must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetServerAddr returns the listen address.
func (c *Config) GetServerAddr() string {
	return ":" + c.Server.Port
}

// PrintConfig renders the configuration with secrets masked.
func (c *Config) PrintConfig() string {
	return fmt.Sprintf(`Configuration Loaded:
  Environment: %s
  Server Port: %s
  Logging:
    - Level: %s
    - File: %s
  Session:
    - Retention Delay: %s
    - Sweep Schedule: %s
  Transcription:
    - Service URL: %s
    - Model: %s
    - Max Concurrent: %d
  Summarization:
    - Service URL: %s
  Distribution:
    - Slack Token: %s
  Audit:
    - Log Path: %s`,
		c.Server.Env,
		c.Server.Port,
		c.Log.Level,
		orUnset(c.Log.File),
		c.Session.RetentionDelay,
		c.Session.SweepSchedule,
		orUnset(c.Transcription.ServiceURL),
		c.Transcription.Model,
		c.Transcription.MaxConcurrent,
		orUnset(c.Summarization.ServiceURL),
		maskSecret(c.Distribution.SlackBotToken),
		orUnset(c.Audit.LogPath),
	)
}

// helpers

// getEnv returns the environment variable value or the default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// parseStringList splits a comma-separated list, trimming blanks.
func parseStringList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func orUnset(v string) string {
	if v == "" {
		return "<not set>"
	}
	return v
}

// maskSecret hides most of a sensitive value.
func maskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}
