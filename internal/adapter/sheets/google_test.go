package sheets

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"optionsmagic-ai/internal/domain"
)

func newSheetsTestLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// newTestClient builds a Client pointed at a test server, skipping the
// service account handshake.
func newTestClient(baseURL string) *Client {
	return &Client{
		spreadsheetID: "sheet-123",
		rangeRef:      "Sheet1",
		baseURL:       baseURL,
		client:        http.DefaultClient,
		logger:        newSheetsTestLogger(),
	}
}

func TestAppendRowRequest(t *testing.T) {
	var gotPath, gotQuery string
	var gotBody appendRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(appendResponse{SpreadsheetID: "sheet-123"})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	row := []string{"2026-04-01", "PAGEIND 51000 CE", "Entry: 123.45", "SL: 112", "Target: 145", "Auto"}

	if err := c.AppendRow(context.Background(), row); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}

	if gotPath != "/v4/spreadsheets/sheet-123/values/Sheet1:append" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "valueInputOption=USER_ENTERED" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(gotBody.Values) != 1 || len(gotBody.Values[0]) != 6 {
		t.Fatalf("body values = %+v", gotBody.Values)
	}
	if gotBody.Values[0][1] != "PAGEIND 51000 CE" {
		t.Errorf("symbol cell = %q", gotBody.Values[0][1])
	}
}

func TestAppendRowUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":"PERMISSION_DENIED"}}`, http.StatusForbidden)
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	err := c.AppendRow(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error on 403")
	}
	if domain.ErrorCodeOf(err) != domain.CodeUpstream {
		t.Errorf("error code = %q, want %q", domain.ErrorCodeOf(err), domain.CodeUpstream)
	}
}

func TestNewClientMissingCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), Config{
		CredentialsFile: "/nonexistent/credentials.json",
		SpreadsheetID:   "sheet-123",
	}, newSheetsTestLogger())
	if err == nil {
		t.Fatal("expected error for missing credentials file")
	}
}
