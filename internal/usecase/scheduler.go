package usecase

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// AlertScheduler runs the alert pipeline on a cron schedule, broadcasting to a
// fixed set of chats. It exists so the daily picks go out without anyone
// typing /alert.
type AlertScheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewAlertScheduler creates an idle scheduler.
func NewAlertScheduler(logger *slog.Logger) *AlertScheduler {
	return &AlertScheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Schedule registers spec (standard 5-field cron) to broadcast to each chat ID.
// ctx bounds the work each run performs.
func (s *AlertScheduler) Schedule(ctx context.Context, spec string, chatIDs []string, handlers *Handlers) error {
	_, err := s.cron.AddFunc(spec, func() {
		for _, chatID := range chatIDs {
			if err := handlers.Broadcast(ctx, chatID); err != nil {
				s.logger.Error("scheduled alert failed", "chat_id", chatID, "error", err)
				continue
			}
			s.logger.Info("scheduled alert sent", "chat_id", chatID)
		}
	})
	return err
}

// Start begins running scheduled jobs in their own goroutine.
func (s *AlertScheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for a running job to finish.
func (s *AlertScheduler) Stop() {
	<-s.cron.Stop().Done()
}
