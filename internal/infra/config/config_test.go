package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"optionsmagic-ai/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
llm:
  api_key: "sk-test"
  model: "gpt-4"
  timeout: "45s"
sheet:
  spreadsheet_id: "1xyz"
  credentials_file: "creds.json"
  range: "Trades"
alerts:
  source: chartink
  scan_url: "https://chartink.example/scan"
  schedule: "0 16 * * 1-5"
  broadcast_chat_ids: ["-1001"]
limits:
  ask_interval: "30s"
  max_message_len: 4096
admin_ids: ["42"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if got := cfg.LLM.TimeoutDuration(); got != 45*time.Second {
		t.Errorf("llm timeout = %s, want 45s", got)
	}
	if cfg.Sheet.Range != "Trades" {
		t.Errorf("sheet range = %q", cfg.Sheet.Range)
	}
	if cfg.Alerts.Source != "chartink" {
		t.Errorf("alerts source = %q", cfg.Alerts.Source)
	}
	if got := cfg.Limits.AskIntervalDuration(); got != 30*time.Second {
		t.Errorf("ask interval = %s, want 30s", got)
	}
	// defaults still filled for fields the file omits
	if cfg.Telegram.SendRate != 25 {
		t.Errorf("send rate default = %v, want 25", cfg.Telegram.SendRate)
	}
	if got := cfg.Limits.MaxIdleDuration(); got != time.Hour {
		t.Errorf("max idle default = %s, want 1h", got)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("OPTIONSMAGIC_TELEGRAM_TOKEN", "env-token")
	t.Setenv("OPTIONSMAGIC_LLM_API_KEY", "env-key")
	t.Setenv("OPTIONSMAGIC_SHEET_ID", "env-sheet")
	t.Setenv("OPTIONSMAGIC_ADMIN_IDS", "7, 8 ,9")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if got := strings.Join(cfg.AdminIDs, ","); got != "7,8,9" {
		t.Errorf("admin ids = %q, want 7,8,9", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "file-token"
llm:
  api_key: "file-key"
sheet:
  spreadsheet_id: "file-sheet"
`)
	t.Setenv("OPTIONSMAGIC_TELEGRAM_TOKEN", "env-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Errorf("token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Errorf("api key = %q, want file value kept", cfg.LLM.APIKey)
	}
}

func TestValidateAccumulatesProblems(t *testing.T) {
	cfg := Defaults()
	// no token, no api key, no sheet id
	cfg.Limits.AskInterval = "soon"
	cfg.Alerts.Source = "tarot"

	err := Validate(&cfg)
	if err == nil {
		t.Fatal("Validate: expected error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !errors.Is(err, domain.ErrConfigLoad) {
		t.Error("ValidationError should unwrap to ErrConfigLoad")
	}
	if len(verr.Problems) < 5 {
		t.Errorf("expected at least 5 problems, got %d: %v", len(verr.Problems), verr.Problems)
	}
	for _, want := range []string{"telegram.token", "llm.api_key", "sheet.spreadsheet_id", "limits.ask_interval", "alerts.source"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestValidateScheduleNeedsChatIDs(t *testing.T) {
	cfg := Defaults()
	cfg.Telegram.Token = "t"
	cfg.LLM.APIKey = "k"
	cfg.Sheet.SpreadsheetID = "s"
	cfg.Alerts.Schedule = "0 16 * * 1-5"

	err := Validate(&cfg)
	if err == nil || !strings.Contains(err.Error(), "broadcast_chat_ids") {
		t.Fatalf("expected broadcast_chat_ids problem, got %v", err)
	}

	cfg.Alerts.BroadcastChatIDs = []string{"-1001"}
	if err := Validate(&cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsBadCronSpec(t *testing.T) {
	cfg := Defaults()
	cfg.Telegram.Token = "t"
	cfg.LLM.APIKey = "k"
	cfg.Sheet.SpreadsheetID = "s"
	cfg.Alerts.Schedule = "every day at four"
	cfg.Alerts.BroadcastChatIDs = []string{"-1001"}

	err := Validate(&cfg)
	if err == nil || !strings.Contains(err.Error(), "alerts.schedule") {
		t.Fatalf("expected schedule problem, got %v", err)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "telegram: [not a map")
	_, err := Load(path)
	if !errors.Is(err, domain.ErrConfigLoad) {
		t.Fatalf("expected ErrConfigLoad, got %v", err)
	}
}

func TestDurationFallbacks(t *testing.T) {
	l := LimitsConfig{AskInterval: "garbage", SweepEvery: "", MaxIdle: "-5m"}
	if got := l.AskIntervalDuration(); got != 30*time.Second {
		t.Errorf("garbage interval = %s, want 30s fallback", got)
	}
	if got := l.SweepEveryDuration(); got != 10*time.Minute {
		t.Errorf("empty sweep = %s, want 10m fallback", got)
	}
	if got := l.MaxIdleDuration(); got != time.Hour {
		t.Errorf("negative idle = %s, want 1h fallback", got)
	}
}
