// Package sheets appends trade rows to a Google spreadsheet through the
// Sheets v4 values:append endpoint, authenticated with a service account.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/oauth2/google"

	"optionsmagic-ai/internal/domain"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com"
	defaultRange   = "Sheet1"
	sheetsScope    = "https://www.googleapis.com/auth/spreadsheets"

	maxResponseBody = 1 * 1024 * 1024
)

// Config configures the sheet client.
type Config struct {
	CredentialsFile string // service account JSON key
	SpreadsheetID   string
	Range           string // A1-notation target, default "Sheet1"
	Timeout         time.Duration
}

// Client implements domain.RowSink for a single spreadsheet.
type Client struct {
	spreadsheetID string
	rangeRef      string
	baseURL       string
	client        *http.Client
	logger        *slog.Logger
}

// NewClient reads the service account key and builds an authenticated client.
// The token source refreshes itself; the client is good for the process life.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	key, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(key, sheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	httpClient := jwtCfg.Client(ctx)
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	} else {
		httpClient.Timeout = 30 * time.Second
	}

	rangeRef := cfg.Range
	if rangeRef == "" {
		rangeRef = defaultRange
	}

	return &Client{
		spreadsheetID: cfg.SpreadsheetID,
		rangeRef:      rangeRef,
		baseURL:       defaultBaseURL,
		client:        httpClient,
		logger:        logger,
	}, nil
}

// AppendRow implements domain.RowSink. Each call issues one values:append
// request; the API is not idempotent, so callers must not blindly retry.
func (c *Client) AppendRow(ctx context.Context, fields []string) error {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(c.rangeRef))

	payload, err := json.Marshal(appendRequest{Values: [][]string{fields}})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.NewDomainError("sheets.append", domain.ErrUpstream,
			fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)))
	}

	var result appendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	c.logger.Debug("sheet row appended",
		"spreadsheet", c.spreadsheetID,
		"updated_range", result.Updates.UpdatedRange,
	)
	return nil
}

// --- Sheets v4 wire types ---

type appendRequest struct {
	Values [][]string `json:"values"`
}

type appendResponse struct {
	SpreadsheetID string `json:"spreadsheetId"`
	Updates       struct {
		UpdatedRange string `json:"updatedRange"`
		UpdatedRows  int    `json:"updatedRows"`
	} `json:"updates"`
}
