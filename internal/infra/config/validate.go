package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"optionsmagic-ai/internal/domain"
)

// ValidationError accumulates configuration problems so a misconfigured
// deployment reports everything wrong at once instead of failing field by
// field.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return domain.ErrConfigLoad }

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Validate checks the configuration for deploy-time faults. Errors here are
// configuration faults: the process should refuse to serve rather than limp
// along with a broken credential or an unparseable interval.
func Validate(cfg *Config) error {
	verr := &ValidationError{}

	if cfg.Telegram.Token == "" {
		verr.add("telegram.token is required (or OPTIONSMAGIC_TELEGRAM_TOKEN)")
	}
	if cfg.Telegram.SendRate <= 0 {
		verr.add("telegram.send_rate must be positive, got %v", cfg.Telegram.SendRate)
	}
	if cfg.Telegram.SendBurst <= 0 {
		verr.add("telegram.send_burst must be positive, got %d", cfg.Telegram.SendBurst)
	}

	if cfg.LLM.APIKey == "" {
		verr.add("llm.api_key is required (or OPTIONSMAGIC_LLM_API_KEY)")
	}
	if cfg.LLM.Model == "" {
		verr.add("llm.model is required")
	}
	checkDuration(verr, "llm.timeout", cfg.LLM.Timeout)

	if cfg.Sheet.SpreadsheetID == "" {
		verr.add("sheet.spreadsheet_id is required (or OPTIONSMAGIC_SHEET_ID)")
	}
	if cfg.Sheet.CredentialsFile == "" {
		verr.add("sheet.credentials_file is required")
	}

	switch cfg.Alerts.Source {
	case "static":
	case "chartink":
		if cfg.Alerts.ScanURL == "" {
			verr.add("alerts.scan_url is required when alerts.source is chartink")
		}
	default:
		verr.add("alerts.source must be static or chartink, got %q", cfg.Alerts.Source)
	}
	if pct := cfg.Alerts.StopLossPct; pct < 0 || pct >= 1 {
		verr.add("alerts.stop_loss_pct must be in [0, 1), got %v", pct)
	}
	if pct := cfg.Alerts.TargetPct; pct < 0 {
		verr.add("alerts.target_pct must be non-negative, got %v", pct)
	}
	if cfg.Alerts.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Alerts.Schedule); err != nil {
			verr.add("alerts.schedule %q is not a valid cron spec: %v", cfg.Alerts.Schedule, err)
		}
		if len(cfg.Alerts.BroadcastChatIDs) == 0 {
			verr.add("alerts.broadcast_chat_ids is required when alerts.schedule is set")
		}
	}

	checkDuration(verr, "limits.ask_interval", cfg.Limits.AskInterval)
	checkDuration(verr, "limits.sweep_every", cfg.Limits.SweepEvery)
	checkDuration(verr, "limits.max_idle", cfg.Limits.MaxIdle)
	if cfg.Limits.MaxMessageLen <= 0 {
		verr.add("limits.max_message_len must be positive, got %d", cfg.Limits.MaxMessageLen)
	}

	switch cfg.Logger.Level {
	case "", "debug", "info", "warn", "error":
	default:
		verr.add("logger.level must be debug, info, warn or error, got %q", cfg.Logger.Level)
	}
	switch cfg.Logger.Format {
	case "", "text", "json":
	default:
		verr.add("logger.format must be text or json, got %q", cfg.Logger.Format)
	}

	switch cfg.Tracer.Exporter {
	case "", "stdout", "noop":
	default:
		verr.add("tracer.exporter must be stdout or noop, got %q", cfg.Tracer.Exporter)
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

func checkDuration(verr *ValidationError, field, value string) {
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		verr.add("%s %q is not a valid duration: %v", field, value, err)
		return
	}
	if d <= 0 {
		verr.add("%s must be positive, got %s", field, value)
	}
}
