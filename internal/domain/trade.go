package domain

import "context"

// TradeIdea is one options trade pick surfaced by /alert.
// Entry, StopLoss and Target carry their display labels ("Entry: 123.45") so
// the chat message and the logged sheet row show identical text.
type TradeIdea struct {
	SymbolStrike string
	Entry        string
	StopLoss     string
	Target       string
	Sector       string
}

// Completer is the language-model boundary: one prompt in, one answer out.
// Implementations must treat the upstream as slow, fallible and rate-limited,
// and honor ctx cancellation.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// RowSink appends a single row to the external trade log. Appends are not
// idempotent; callers attempt each row exactly once.
type RowSink interface {
	AppendRow(ctx context.Context, fields []string) error
}

// IdeaSource produces the trade ideas for one alert run.
type IdeaSource interface {
	Ideas(ctx context.Context) ([]TradeIdea, error)
	Name() string
}
