package domain

import (
	"context"
	"strings"
	"time"
)

// Invocation is a single inbound command event: the command name, its raw
// arguments, and the caller's identity. Built fresh for every update and not
// retained after the handler returns.
type Invocation struct {
	ID         string // ULID assigned at dispatch, for log correlation
	Command    string // command name without the leading slash
	Args       []string
	ChatID     string
	SenderID   string
	SenderName string
	Received   time.Time
}

// Query joins the raw arguments into a single free-text query string.
func (i Invocation) Query() string {
	return strings.TrimSpace(strings.Join(i.Args, " "))
}

// Replier sends text back to the chat an invocation came from.
type Replier interface {
	Reply(ctx context.Context, chatID, text string) error
	ReplyMarkdown(ctx context.Context, chatID, text string) error
}

// CommandHandler processes one invocation. Errors escaping a handler are
// caught at the dispatcher boundary and turned into a generic error reply;
// user-facing failures (usage hints, upstream trouble) are replied to inside
// the handler and return nil.
type CommandHandler func(ctx context.Context, inv Invocation) error
