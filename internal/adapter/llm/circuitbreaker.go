package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"optionsmagic-ai/internal/domain"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the circuit breaker behavior.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure counts.
	// If 0, failures never reset until the circuit opens.
	Interval time.Duration `yaml:"interval"`
}

// BreakerCompleter wraps a domain.Completer with circuit breaker protection.
// When the completion API fails repeatedly, the circuit opens and subsequent
// calls fail fast without reaching the provider, preventing retry storms while
// users keep getting the generic retry-later reply.
type BreakerCompleter struct {
	inner   domain.Completer
	breaker *gobreaker.CircuitBreaker[string]
	logger  *slog.Logger
}

// NewBreakerCompleter wraps inner with a circuit breaker.
// Zero-valued cfg fields fall back to defaults.
func NewBreakerCompleter(inner domain.Completer, cfg BreakerConfig, logger *slog.Logger) *BreakerCompleter {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	name := inner.Name()
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "llm:" + name,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &BreakerCompleter{
		inner:   inner,
		breaker: cb,
		logger:  logger,
	}
}

// Complete implements domain.Completer. Calls are routed through the breaker.
func (b *BreakerCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	answer, err := b.breaker.Execute(func() (string, error) {
		return b.inner.Complete(ctx, prompt)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", fmt.Errorf("provider %q circuit open: %w", b.inner.Name(), domain.ErrUpstream)
		}
		return "", err
	}
	return answer, nil
}

// Name implements domain.Completer.
func (b *BreakerCompleter) Name() string { return b.inner.Name() }
