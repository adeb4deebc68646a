// Package scan provides the trade idea sources behind /alert: a fixed list of
// curated picks and a Chartink screener fetcher.
package scan

import (
	"context"

	"optionsmagic-ai/internal/domain"
)

// StaticSource returns a fixed set of curated picks.
type StaticSource struct {
	ideas []domain.TradeIdea
}

// NewStaticSource creates a source with the curated swing-breakout picks.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		ideas: []domain.TradeIdea{
			{SymbolStrike: "PAGEIND 51000 CE", Entry: "Entry: 123.45", StopLoss: "SL: 112", Target: "Target: 145", Sector: "Auto"},
			{SymbolStrike: "ASTRAL 1600 CE", Entry: "Entry: 98.70", StopLoss: "SL: 87", Target: "Target: 125", Sector: "Pipes"},
			{SymbolStrike: "DIVISLAB 4500 CE", Entry: "Entry: 156.20", StopLoss: "SL: 140", Target: "Target: 180", Sector: "Pharma"},
		},
	}
}

// Ideas implements domain.IdeaSource.
func (s *StaticSource) Ideas(context.Context) ([]domain.TradeIdea, error) {
	out := make([]domain.TradeIdea, len(s.ideas))
	copy(out, s.ideas)
	return out, nil
}

// Name implements domain.IdeaSource.
func (s *StaticSource) Name() string { return "static" }
