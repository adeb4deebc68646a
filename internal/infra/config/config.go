// Package config loads the bot configuration from YAML with OPTIONSMAGIC_*
// environment overrides for secrets, so deployments can keep credentials out
// of the config file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"optionsmagic-ai/internal/domain"
)

// Config is the top-level application configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	LLM      LLMConfig      `yaml:"llm"`
	Sheet    SheetConfig    `yaml:"sheet"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Limits   LimitsConfig   `yaml:"limits"`
	Logger   LoggerConfig   `yaml:"logger"`
	Tracer   TracerConfig   `yaml:"tracer"`
	AdminIDs []string       `yaml:"admin_ids,omitempty"` // empty = /alert open to everyone
}

// TelegramConfig holds chat transport settings.
type TelegramConfig struct {
	Token     string  `yaml:"token"`
	SendRate  float64 `yaml:"send_rate"`  // outbound messages per second, default 25
	SendBurst int     `yaml:"send_burst"` // token bucket burst, default 5
}

// LLMConfig holds completion service settings.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Timeout string `yaml:"timeout"` // duration string, default "60s"
}

// SheetConfig holds the trade log sink settings.
type SheetConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	Range           string `yaml:"range,omitempty"` // default "Sheet1"
}

// AlertsConfig holds /alert pipeline settings.
type AlertsConfig struct {
	Source           string   `yaml:"source"` // "static" or "chartink"
	ScanURL          string   `yaml:"scan_url,omitempty"`
	StopLossPct      float64  `yaml:"stop_loss_pct,omitempty"`
	TargetPct        float64  `yaml:"target_pct,omitempty"`
	Schedule         string   `yaml:"schedule,omitempty"` // cron spec, empty = manual /alert only
	BroadcastChatIDs []string `yaml:"broadcast_chat_ids,omitempty"`
}

// LimitsConfig holds rate limiting and message sizing settings.
type LimitsConfig struct {
	AskInterval   string `yaml:"ask_interval"`   // duration string, default "30s"
	MaxMessageLen int    `yaml:"max_message_len"` // default 4096
	SweepEvery    string `yaml:"sweep_every"`    // duration string, default "10m"
	MaxIdle       string `yaml:"max_idle"`       // duration string, default "1h"
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// Defaults returns a Config with all optional knobs filled in.
func Defaults() Config {
	return Config{
		Telegram: TelegramConfig{SendRate: 25, SendBurst: 5},
		LLM:      LLMConfig{Model: "gpt-4", Timeout: "60s"},
		Sheet:    SheetConfig{CredentialsFile: "credentials.json", Range: "Sheet1"},
		Alerts:   AlertsConfig{Source: "static"},
		Limits: LimitsConfig{
			AskInterval:   "30s",
			MaxMessageLen: 4096,
			SweepEvery:    "10m",
			MaxIdle:       "1h",
		},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Exporter: "noop"},
	}
}

// Load reads the YAML file at path (if it exists), applies environment
// overrides, and validates the result. A missing file is not an error; fully
// env-driven deployments are supported.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfigLoad, path, err)
		}
	case os.IsNotExist(err):
		// fall through to env-only config
	default:
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrConfigLoad, path, err)
	}

	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides maps OPTIONSMAGIC_* variables over the loaded config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPTIONSMAGIC_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("OPTIONSMAGIC_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPTIONSMAGIC_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("OPTIONSMAGIC_SHEET_ID"); v != "" {
		cfg.Sheet.SpreadsheetID = v
	}
	if v := os.Getenv("OPTIONSMAGIC_SHEET_CREDENTIALS"); v != "" {
		cfg.Sheet.CredentialsFile = v
	}
	if v := os.Getenv("OPTIONSMAGIC_SCAN_URL"); v != "" {
		cfg.Alerts.ScanURL = v
		cfg.Alerts.Source = "chartink"
	}
	if v := os.Getenv("OPTIONSMAGIC_ADMIN_IDS"); v != "" {
		cfg.AdminIDs = splitCommaList(v)
	}
	if v := os.Getenv("OPTIONSMAGIC_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("OPTIONSMAGIC_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
		if cfg.Tracer.Exporter == "" || cfg.Tracer.Exporter == "noop" {
			cfg.Tracer.Exporter = "stdout"
		}
	}
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AskIntervalDuration returns the parsed per-user /ask admission interval.
func (l LimitsConfig) AskIntervalDuration() time.Duration {
	return parseDuration(l.AskInterval, 30*time.Second)
}

// SweepEveryDuration returns the parsed janitor tick period.
func (l LimitsConfig) SweepEveryDuration() time.Duration {
	return parseDuration(l.SweepEvery, 10*time.Minute)
}

// MaxIdleDuration returns the parsed idle-entry eviction horizon.
func (l LimitsConfig) MaxIdleDuration() time.Duration {
	return parseDuration(l.MaxIdle, time.Hour)
}

// TimeoutDuration returns the parsed completion call timeout.
func (l LLMConfig) TimeoutDuration() time.Duration {
	return parseDuration(l.Timeout, 60*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
