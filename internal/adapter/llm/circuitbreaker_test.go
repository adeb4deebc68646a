package llm

import (
	"context"
	"fmt"
	"testing"

	"optionsmagic-ai/internal/domain"
)

// scriptedCompleter fails a fixed number of times, then succeeds.
type scriptedCompleter struct {
	failures int
	calls    int
}

func (s *scriptedCompleter) Complete(context.Context, string) (string, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", fmt.Errorf("transient: %w", domain.ErrUpstream)
	}
	return "answer", nil
}

func (s *scriptedCompleter) Name() string { return "scripted" }

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &scriptedCompleter{}
	b := NewBreakerCompleter(inner, BreakerConfig{}, newLLMTestLogger())

	answer, err := b.Complete(context.Background(), "q")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if answer != "answer" {
		t.Errorf("answer = %q", answer)
	}
	if b.Name() != "scripted" {
		t.Errorf("Name = %q", b.Name())
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &scriptedCompleter{failures: 100}
	b := NewBreakerCompleter(inner, BreakerConfig{MaxFailures: 3}, newLLMTestLogger())

	for i := 0; i < 3; i++ {
		if _, err := b.Complete(context.Background(), "q"); err == nil {
			t.Fatalf("call %d: expected failure", i)
		}
	}
	if inner.calls != 3 {
		t.Fatalf("inner calls = %d, want 3", inner.calls)
	}

	// Circuit is open: the provider is no longer reached and callers get an
	// upstream-classified error.
	_, err := b.Complete(context.Background(), "q")
	if err == nil {
		t.Fatal("expected fail-fast error with open circuit")
	}
	if domain.ErrorCodeOf(err) != domain.CodeUpstream {
		t.Errorf("error code = %q, want %q", domain.ErrorCodeOf(err), domain.CodeUpstream)
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d after open circuit, want 3", inner.calls)
	}
}
