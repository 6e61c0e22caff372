package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ytharvest/internal/config"
	"ytharvest/internal/ledger"
	"ytharvest/internal/models"
	"ytharvest/internal/processor"
	"ytharvest/internal/store"
)

type noopSearch struct{}

func (noopSearch) Search(context.Context, string, int) ([]models.SearchResult, error) {
	return nil, nil
}

type noopStore struct{}

func (noopStore) Write(string, []models.SearchResult) (*store.Dataset, error) { return nil, nil }

func newTestServer(t *testing.T) (*Server, ledger.Ledger) {
	t.Helper()

	led, err := ledger.OpenFile(filepath.Join(t.TempDir(), "ledger.txt"))
	if err != nil {
		t.Fatalf("open ledger failed: %v", err)
	}
	t.Cleanup(func() { led.Close() })

	cfg := config.Config{CheckInterval: time.Hour}
	proc := processor.New(cfg, led, noopStore{}, noopSearch{}, nil, zerolog.Nop())

	return New(proc, led), led
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if body["status"] != "ok" || body["version"] == "" {
		t.Fatalf("body = %v", body)
	}
}

func TestStats(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var stats processor.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if stats.CyclesRun != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestQueries(t *testing.T) {
	s, led := newTestServer(t)
	ctx := context.Background()

	led.Admit(ctx, "done")
	led.Complete(ctx, "done", models.StatusCompleted, "")
	led.Admit(ctx, "waiting")

	rec := get(t, s, "/queries")
	var entries []models.LedgerEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}

	rec = get(t, s, "/queries?status=pending")
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(entries) != 1 || entries[0].Query != "waiting" {
		t.Fatalf("pending entries = %+v", entries)
	}
}
