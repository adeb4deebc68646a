package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"optionsmagic-ai/internal/domain"
)

// Telegram caps bots at roughly 30 outbound messages per second overall.
const (
	defaultSendRate  = 25.0
	defaultSendBurst = 5
)

// CommandDispatcher receives parsed command invocations from the transport.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, inv domain.Invocation)
}

// TelegramOption configures the Telegram channel.
type TelegramOption func(*TelegramChannel)

// WithSendPacing overrides the outbound messages-per-second budget.
func WithSendPacing(perSecond float64, burst int) TelegramOption {
	return func(t *TelegramChannel) {
		t.pacer = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// TelegramChannel talks to the Telegram Bot API via long-polling. Inbound
// messages starting with "/" are parsed into Invocations and handed to the
// dispatcher; everything else is ignored. It also implements domain.Replier
// for outbound text, pacing sends with a token bucket so a long chunked answer
// cannot trip Telegram's flood control.
type TelegramChannel struct {
	token       string
	dispatcher  CommandDispatcher
	logger      *slog.Logger
	client      *http.Client
	pacer       *rate.Limiter
	baseURL     string
	offset      int64
	done        chan struct{}
	botUsername string
}

// NewTelegramChannel creates a Telegram bot channel.
func NewTelegramChannel(token string, logger *slog.Logger, opts ...TelegramOption) *TelegramChannel {
	t := &TelegramChannel{
		token:   token,
		logger:  logger,
		baseURL: "https://api.telegram.org",
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		pacer: rate.NewLimiter(rate.Limit(defaultSendRate), defaultSendBurst),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start begins long-polling for updates. Non-blocking (starts in goroutine).
func (t *TelegramChannel) Start(ctx context.Context, dispatcher CommandDispatcher) error {
	t.dispatcher = dispatcher

	// Fetch bot username so "/ask@MyBot" in groups resolves to "ask".
	if me, err := t.getMe(ctx); err == nil {
		t.botUsername = me
		t.logger.Info("telegram bot identified", "username", me)
	} else {
		t.logger.Warn("telegram getMe failed, command mention stripping disabled", "error", err)
	}

	go t.pollLoop(ctx)
	t.logger.Info("telegram channel started")
	return nil
}

// Stop signals the polling loop to stop.
func (t *TelegramChannel) Stop(_ context.Context) error {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	return nil
}

// Reply implements domain.Replier with plain text.
func (t *TelegramChannel) Reply(ctx context.Context, chatID, text string) error {
	return t.sendMessage(ctx, chatID, text, "")
}

// ReplyMarkdown implements domain.Replier with Markdown styling.
func (t *TelegramChannel) ReplyMarkdown(ctx context.Context, chatID, text string) error {
	return t.sendMessage(ctx, chatID, text, "Markdown")
}

// Name identifies the transport.
func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) pollLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
			updates, err := t.getUpdates(ctx)
			if err != nil {
				t.logger.Warn("telegram getUpdates failed", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}

			for _, u := range updates {
				if u.UpdateID >= t.offset {
					t.offset = u.UpdateID + 1
				}
				if u.Message == nil {
					continue
				}

				inv, ok := t.parseInvocation(u.Message)
				if !ok {
					continue
				}
				t.dispatcher.Dispatch(ctx, inv)
			}
		}
	}
}

// parseInvocation turns a "/command arg arg" message into an Invocation.
// Non-command messages and commands addressed to a different bot are skipped.
func (t *TelegramChannel) parseInvocation(msg *telegramMessage) (domain.Invocation, bool) {
	text := msg.Text
	if !strings.HasPrefix(text, "/") {
		return domain.Invocation{}, false
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return domain.Invocation{}, false
	}

	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		target := name[at+1:]
		if t.botUsername != "" && !strings.EqualFold(target, t.botUsername) {
			return domain.Invocation{}, false
		}
		name = name[:at]
	}
	if name == "" {
		return domain.Invocation{}, false
	}

	inv := domain.Invocation{
		Command:  name,
		Args:     fields[1:],
		ChatID:   strconv.FormatInt(msg.Chat.ID, 10),
		Received: time.Unix(msg.Date, 0),
	}
	if msg.From != nil {
		inv.SenderID = strconv.FormatInt(msg.From.ID, 10)
		name := msg.From.FirstName
		if msg.From.LastName != "" {
			name += " " + msg.From.LastName
		}
		inv.SenderName = name
	}
	return inv, true
}

// --- Telegram Bot API types ---

type telegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type telegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message"`
}

type telegramMessage struct {
	MessageID int64         `json:"message_id"`
	From      *telegramUser `json:"from,omitempty"`
	Chat      telegramChat  `json:"chat"`
	Date      int64         `json:"date"`
	Text      string        `json:"text"`
}

type telegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type telegramUpdateResponse struct {
	OK     bool             `json:"ok"`
	Result []telegramUpdate `json:"result"`
}

type telegramSendRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type telegramSendResponse struct {
	OK bool `json:"ok"`
}

type telegramGetMeResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		Username string `json:"username"`
	} `json:"result"`
}

func (t *TelegramChannel) getMe(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/bot%s/getMe", t.baseURL, t.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var result telegramGetMeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}

	if !result.OK || result.Result.Username == "" {
		return "", fmt.Errorf("getMe returned ok=%v username=%q", result.OK, result.Result.Username)
	}

	return result.Result.Username, nil
}

func (t *TelegramChannel) getUpdates(ctx context.Context) ([]telegramUpdate, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=30", t.baseURL, t.token, t.offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram API error %d: %s", resp.StatusCode, string(body))
	}

	var result telegramUpdateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if !result.OK {
		return nil, fmt.Errorf("telegram API returned ok=false")
	}

	return result.Result, nil
}

func (t *TelegramChannel) sendMessage(ctx context.Context, chatID, text, parseMode string) error {
	if err := t.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("send pacing: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	payload, err := json.Marshal(telegramSendRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: parseMode,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram sendMessage error %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
