package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"optionsmagic-ai/internal/adapter/channel"
	"optionsmagic-ai/internal/adapter/llm"
	"optionsmagic-ai/internal/adapter/scan"
	"optionsmagic-ai/internal/adapter/sheets"
	"optionsmagic-ai/internal/domain"
	"optionsmagic-ai/internal/infra/config"
	"optionsmagic-ai/internal/infra/logger"
	"optionsmagic-ai/internal/infra/tracer"
	"optionsmagic-ai/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Config. Refuse to serve on any configuration fault.
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 3. Completion service, wrapped in a circuit breaker.
	openai := llm.NewOpenAIClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.TimeoutDuration(),
	}, log)
	completer := llm.NewBreakerCompleter(openai, llm.BreakerConfig{}, log)

	// 4. Trade log sink.
	sink, err := sheets.NewClient(ctx, sheets.Config{
		CredentialsFile: cfg.Sheet.CredentialsFile,
		SpreadsheetID:   cfg.Sheet.SpreadsheetID,
		Range:           cfg.Sheet.Range,
	}, log)
	if err != nil {
		return fmt.Errorf("sheets: %w", err)
	}

	// 5. Trade idea source.
	source := buildIdeaSource(cfg, log)

	// 6. Chat transport.
	tg := channel.NewTelegramChannel(cfg.Telegram.Token, log,
		channel.WithSendPacing(cfg.Telegram.SendRate, cfg.Telegram.SendBurst))

	// 7. Use cases.
	limiter := usecase.NewRateLimiter(cfg.Limits.AskIntervalDuration())
	go limiter.Janitor(ctx, cfg.Limits.SweepEveryDuration(), cfg.Limits.MaxIdleDuration(), log)

	handlers := usecase.NewHandlers(tg, completer, sink, source, time.Now, log, usecase.HandlersConfig{
		MaxMessageLen: cfg.Limits.MaxMessageLen,
		AskTimeout:    cfg.LLM.TimeoutDuration(),
		AdminIDs:      cfg.AdminIDs,
	})

	disp := usecase.NewDispatcher(tg, log)
	disp.Register("start", handlers.Welcome)
	disp.Register("ask", usecase.Gated(limiter, time.Now, tg, log, handlers.Ask))
	disp.Register("alert", handlers.Alert)

	// 8. Scheduled alert broadcasts, when configured.
	var sched *usecase.AlertScheduler
	if cfg.Alerts.Schedule != "" {
		sched = usecase.NewAlertScheduler(log)
		if err := sched.Schedule(ctx, cfg.Alerts.Schedule, cfg.Alerts.BroadcastChatIDs, handlers); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		sched.Start()
	}

	// 9. Serve.
	if err := tg.Start(ctx, disp); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	log.Info("bot is up and running",
		"model", cfg.LLM.Model,
		"ideas", source.Name(),
		"ask_interval", cfg.Limits.AskIntervalDuration().String(),
		"schedule", cfg.Alerts.Schedule,
	)

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := tg.Stop(shutdownCtx); err != nil {
		log.Error("telegram shutdown", "error", err)
	}
	if sched != nil {
		sched.Stop()
	}
	disp.Wait()

	log.Info("bot stopped")
	return nil
}

// buildIdeaSource picks the configured screener, with the static picks as a
// fallback so /alert keeps working when the screener is down.
func buildIdeaSource(cfg *config.Config, log *slog.Logger) domain.IdeaSource {
	static := scan.NewStaticSource()
	if cfg.Alerts.Source != "chartink" {
		return static
	}
	return scan.NewChartinkSource(scan.ChartinkConfig{
		ScanURL:     cfg.Alerts.ScanURL,
		StopLossPct: cfg.Alerts.StopLossPct,
		TargetPct:   cfg.Alerts.TargetPct,
	}, static, log)
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("OPTIONSMAGIC_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}
