package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"optionsmagic-ai/internal/domain"
)

const (
	defaultScanTimeout = 15 * time.Second
	maxScanBody        = 4 * 1024 * 1024

	defaultStopLossPct = 0.08
	defaultTargetPct   = 0.18
)

// ChartinkConfig configures the screener source.
type ChartinkConfig struct {
	ScanURL     string
	StopLossPct float64 // fraction below entry, default 0.08
	TargetPct   float64 // fraction above entry, default 0.18
	Timeout     time.Duration
}

// ChartinkSource fetches scan results from a Chartink screener URL and maps
// them to trade ideas. Stop loss and target are derived from the close price
// with configured percentages; the screener only supplies price and symbol.
// When the fetch fails and a fallback source is configured, its ideas are
// served instead so /alert degrades to the curated list rather than erroring.
type ChartinkSource struct {
	scanURL     string
	stopLossPct float64
	targetPct   float64
	client      *http.Client
	fallback    domain.IdeaSource
	logger      *slog.Logger
}

// NewChartinkSource creates a screener-backed source. fallback may be nil.
func NewChartinkSource(cfg ChartinkConfig, fallback domain.IdeaSource, logger *slog.Logger) *ChartinkSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultScanTimeout
	}
	stopLossPct := cfg.StopLossPct
	if stopLossPct <= 0 {
		stopLossPct = defaultStopLossPct
	}
	targetPct := cfg.TargetPct
	if targetPct <= 0 {
		targetPct = defaultTargetPct
	}

	return &ChartinkSource{
		scanURL:     cfg.ScanURL,
		stopLossPct: stopLossPct,
		targetPct:   targetPct,
		client:      &http.Client{Timeout: timeout},
		fallback:    fallback,
		logger:      logger,
	}
}

// Ideas implements domain.IdeaSource.
func (s *ChartinkSource) Ideas(ctx context.Context) ([]domain.TradeIdea, error) {
	ideas, err := s.fetch(ctx)
	if err == nil {
		return ideas, nil
	}
	if s.fallback == nil {
		return nil, domain.WrapOp("chartink", err)
	}
	s.logger.Warn("chartink scan failed, serving fallback picks",
		"fallback", s.fallback.Name(),
		"error", err,
	)
	return s.fallback.Ideas(ctx)
}

// Name implements domain.IdeaSource.
func (s *ChartinkSource) Name() string { return "chartink" }

func (s *ChartinkSource) fetch(ctx context.Context) ([]domain.TradeIdea, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.scanURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScanBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewDomainError("chartink.fetch", domain.ErrUpstream,
			fmt.Sprintf("status %d", resp.StatusCode))
	}

	var result chartinkResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(result.Data) == 0 {
		return nil, domain.NewDomainError("chartink.fetch", domain.ErrUpstream, "scan returned no rows")
	}

	ideas := make([]domain.TradeIdea, 0, len(result.Data))
	for _, row := range result.Data {
		if row.Symbol == "" || row.Close <= 0 {
			continue
		}
		sector := row.Sector
		if sector == "" {
			sector = "NSE"
		}
		ideas = append(ideas, domain.TradeIdea{
			SymbolStrike: row.Symbol,
			Entry:        fmt.Sprintf("Entry: %.2f", row.Close),
			StopLoss:     fmt.Sprintf("SL: %.2f", row.Close*(1-s.stopLossPct)),
			Target:       fmt.Sprintf("Target: %.2f", row.Close*(1+s.targetPct)),
			Sector:       sector,
		})
	}
	if len(ideas) == 0 {
		return nil, domain.NewDomainError("chartink.fetch", domain.ErrUpstream, "scan rows all unusable")
	}
	return ideas, nil
}

// --- Chartink wire types ---

type chartinkResponse struct {
	Data []chartinkRow `json:"data"`
}

type chartinkRow struct {
	Symbol    string  `json:"nsecode"`
	Name      string  `json:"name"`
	Close     float64 `json:"close"`
	PerChange float64 `json:"per_chg"`
	Sector    string  `json:"sector"`
}
