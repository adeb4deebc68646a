package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"optionsmagic-ai/internal/domain"
)

// User-facing replies owned by the dispatch layer.
const (
	internalErrorReply = "Something went wrong on our side. Please try again later."
	slowDownReply      = "You're sending requests too quickly. Please wait a bit."
)

// Dispatcher maps command names to handlers and runs every invocation as an
// independent unit of work, so the transport's receive loop never blocks on an
// external call. The table is populated once at startup and read-only after.
type Dispatcher struct {
	handlers map[string]domain.CommandHandler
	replier  domain.Replier
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates an empty dispatcher. Replies produced at the dispatch
// boundary (internal errors) go through replier.
func NewDispatcher(replier domain.Replier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]domain.CommandHandler),
		replier:  replier,
		logger:   logger,
	}
}

// Register binds handler to a command name. Registering the same name again
// replaces the earlier handler.
func (d *Dispatcher) Register(name string, handler domain.CommandHandler) {
	d.handlers[name] = handler
}

// Dispatch resolves the invocation's handler and runs it in its own goroutine.
// Unknown commands are dropped; the transport owns what its users see for
// those. Handler failures and panics are contained here and converted into a
// generic error reply, so one bad invocation can never take down the loop.
func (d *Dispatcher) Dispatch(ctx context.Context, inv domain.Invocation) {
	handler, ok := d.handlers[inv.Command]
	if !ok {
		d.logger.Debug("no handler bound", "command", inv.Command)
		return
	}

	if inv.ID == "" {
		inv.ID = ulid.Make().String()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx, handler, inv)
	}()
}

func (d *Dispatcher) run(ctx context.Context, handler domain.CommandHandler, inv domain.Invocation) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("handler panicked",
				"command", inv.Command,
				"invocation", inv.ID,
				"panic", rec,
			)
			d.replyInternalError(ctx, inv)
		}
	}()

	start := time.Now()
	if err := handler(ctx, inv); err != nil {
		d.logger.Error("handler failed",
			"command", inv.Command,
			"invocation", inv.ID,
			"sender", inv.SenderID,
			"error", err,
			"code", domain.ErrorCodeOf(err),
		)
		d.replyInternalError(ctx, inv)
		return
	}

	d.logger.Debug("command handled",
		"command", inv.Command,
		"invocation", inv.ID,
		"duration", time.Since(start),
	)
}

func (d *Dispatcher) replyInternalError(ctx context.Context, inv domain.Invocation) {
	if err := d.replier.Reply(ctx, inv.ChatID, internalErrorReply); err != nil {
		d.logger.Error("internal error reply failed", "invocation", inv.ID, "error", err)
	}
}

// Wait blocks until all in-flight invocations finish. Call during shutdown.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Clock supplies the current instant; injectable for tests.
type Clock func() time.Time

// Gated composes a rate-limit admission check in front of handler. On denial
// the caller receives a slow-down reply rather than a silent drop. The check
// runs before the wrapped handler's own argument validation, so a request the
// handler later rejects as empty has still consumed its window.
func Gated(limiter *RateLimiter, clock Clock, replier domain.Replier, logger *slog.Logger, handler domain.CommandHandler) domain.CommandHandler {
	return func(ctx context.Context, inv domain.Invocation) error {
		if !limiter.Allow(inv.SenderID, clock()) {
			logger.Info("rate limited",
				"command", inv.Command,
				"sender", inv.SenderID,
				"interval", limiter.Interval(),
			)
			return replier.Reply(ctx, inv.ChatID, slowDownReply)
		}
		return handler(ctx, inv)
	}
}
