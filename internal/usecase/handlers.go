package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"optionsmagic-ai/internal/domain"
)

// User-facing replies owned by the handler set.
const (
	welcomeReply = "Welcome to OPTIONSmagicAI\n\n" +
		"From Signal to Success—Automated.\n\n" +
		"Use /ask to analyze options or /alert to get today's picks."

	askUsageReply = "Please enter a query after /ask (e.g., /ask What are good BANKNIFTY options today?)"

	askUpstreamReply = "Sorry, I couldn't reach the analysis service right now. Please try again later."

	alertFailedReply = "Failed to send alerts due to an internal error. Please try again later."

	notAdminReply = "Sorry, /alert is restricted to bot admins."

	alertHeader = "\U0001F9E0 *OPTIONSmagicAI 4PM Swing Breakout Alerts* \U0001F4A1\n\n"
	alertFooter = "From Signal to Success—Automated."
)

// HandlersConfig carries the tunables for the handler set.
type HandlersConfig struct {
	MaxMessageLen int           // chunk size for long replies
	AskTimeout    time.Duration // upper bound on one completion call
	AdminIDs      []string      // empty list disables the /alert restriction
}

// Handlers is the bot's concrete command handler set. Each handler is a single
// request/response cycle with no state of its own; the rate-limit gate is
// composed around Ask at registration (see Gated), not here.
type Handlers struct {
	replier    domain.Replier
	completer  domain.Completer
	sink       domain.RowSink
	source     domain.IdeaSource
	clock      Clock
	logger     *slog.Logger
	maxLen     int
	askTimeout time.Duration
	admins     map[string]struct{}
}

// NewHandlers wires the handler set to its collaborators.
func NewHandlers(replier domain.Replier, completer domain.Completer, sink domain.RowSink,
	source domain.IdeaSource, clock Clock, logger *slog.Logger, cfg HandlersConfig) *Handlers {

	maxLen := cfg.MaxMessageLen
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLen
	}
	askTimeout := cfg.AskTimeout
	if askTimeout <= 0 {
		askTimeout = 60 * time.Second
	}

	var admins map[string]struct{}
	if len(cfg.AdminIDs) > 0 {
		admins = make(map[string]struct{}, len(cfg.AdminIDs))
		for _, id := range cfg.AdminIDs {
			if id = strings.TrimSpace(id); id != "" {
				admins[id] = struct{}{}
			}
		}
	}

	return &Handlers{
		replier:    replier,
		completer:  completer,
		sink:       sink,
		source:     source,
		clock:      clock,
		logger:     logger,
		maxLen:     maxLen,
		askTimeout: askTimeout,
		admins:     admins,
	}
}

// Welcome handles /start with a fixed introduction.
func (h *Handlers) Welcome(ctx context.Context, inv domain.Invocation) error {
	return h.replier.Reply(ctx, inv.ChatID, welcomeReply)
}

// Ask handles /ask: forwards the query to the completion service and streams
// the answer back in order, chunked to the transport's message limit. An empty
// query gets a usage hint and never reaches the completion service. Upstream
// failures (including timeout) become one generic retry-later reply and are
// never surfaced raw to the user.
func (h *Handlers) Ask(ctx context.Context, inv domain.Invocation) error {
	query := inv.Query()
	if query == "" {
		return h.replier.Reply(ctx, inv.ChatID, askUsageReply)
	}

	callCtx, cancel := context.WithTimeout(ctx, h.askTimeout)
	defer cancel()

	answer, err := h.completer.Complete(callCtx, query)
	if err != nil {
		h.logger.Error("completion failed",
			"invocation", inv.ID,
			"provider", h.completer.Name(),
			"error", err,
			"code", domain.ErrorCodeOf(err),
		)
		return h.replier.Reply(ctx, inv.ChatID, askUpstreamReply)
	}

	chunks, err := SplitMessage(answer, h.maxLen)
	if err != nil {
		return domain.WrapOp("ask split", err)
	}
	for _, part := range chunks {
		if err := h.replier.Reply(ctx, inv.ChatID, part); err != nil {
			return domain.WrapOp("ask reply", err)
		}
	}
	return nil
}

// Alert handles /alert: fetches today's picks, sends them as one formatted
// message, then logs each pick to the trade sheet. When an admin list is
// configured, only listed senders may trigger it.
func (h *Handlers) Alert(ctx context.Context, inv domain.Invocation) error {
	if h.admins != nil {
		if _, ok := h.admins[inv.SenderID]; !ok {
			h.logger.Info("alert denied", "sender", inv.SenderID, "invocation", inv.ID)
			return h.replier.Reply(ctx, inv.ChatID, notAdminReply)
		}
	}
	if err := h.Broadcast(ctx, inv.ChatID); err != nil {
		h.logger.Error("alert failed",
			"invocation", inv.ID,
			"error", err,
			"code", domain.ErrorCodeOf(err),
		)
		return h.replier.Reply(ctx, inv.ChatID, alertFailedReply)
	}
	return nil
}

// Broadcast runs the alert pipeline for one chat: fetch ideas, send the
// formatted message, append the sheet rows. Used by the /alert handler and by
// the cron scheduler.
func (h *Handlers) Broadcast(ctx context.Context, chatID string) error {
	ideas, err := h.source.Ideas(ctx)
	if err != nil {
		return domain.WrapOp("alert source", err)
	}

	chunks, err := SplitMessage(FormatAlert(ideas), h.maxLen)
	if err != nil {
		return domain.WrapOp("alert split", err)
	}
	for _, part := range chunks {
		if err := h.replier.ReplyMarkdown(ctx, chatID, part); err != nil {
			return domain.WrapOp("alert send", err)
		}
	}

	// The user-facing reply is out; logging is best effort from here on.
	h.logIdeas(ctx, ideas)
	return nil
}

// FormatAlert renders the picks as one human-readable block per idea.
func FormatAlert(ideas []domain.TradeIdea) string {
	var b strings.Builder
	b.WriteString(alertHeader)
	for _, t := range ideas {
		fmt.Fprintf(&b, "• %s (%s)\n  %s | %s | %s\n\n",
			t.SymbolStrike, t.Sector, t.Entry, t.StopLoss, t.Target)
	}
	b.WriteString(alertFooter)
	return b.String()
}

// logIdeas appends one sheet row per idea: date, symbol, entry, stop, target,
// sector. Every row is attempted exactly once; a failed append is logged and
// never aborts the remaining rows or surfaces to the user.
func (h *Handlers) logIdeas(ctx context.Context, ideas []domain.TradeIdea) {
	date := h.clock().Format("2006-01-02")
	for _, t := range ideas {
		row := []string{date, t.SymbolStrike, t.Entry, t.StopLoss, t.Target, t.Sector}
		if err := h.sink.AppendRow(ctx, row); err != nil {
			h.logger.Error("trade log append failed",
				"symbol", t.SymbolStrike,
				"error", err,
				"code", domain.ErrorCodeOf(err),
			)
		}
	}
}
