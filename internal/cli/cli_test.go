package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fortuna/hoopsdaily/internal/ledger"
	"github.com/fortuna/hoopsdaily/internal/store"
)

// espnStub serves the espn package fixtures for every date.
func espnStub(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	fixtures := filepath.Join("..", "ingest", "espn", "testdata")
	scoreboard, err := os.ReadFile(filepath.Join(fixtures, "scoreboard.json"))
	if err != nil {
		t.Fatal(err)
	}
	summary, err := os.ReadFile(filepath.Join(fixtures, "summary.json"))
	if err != nil {
		t.Fatal(err)
	}

	var scoreboards int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/scoreboard"):
			atomic.AddInt32(&scoreboards, 1)
			w.Write(scoreboard)
		case strings.HasSuffix(r.URL.Path, "/summary") && r.URL.Query().Get("event") == "401810001":
			w.Write(summary)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &scoreboards
}

// setup points config at a temp data dir and the stub.
func setup(t *testing.T) (dataDir string, scoreboards *int32) {
	t.Helper()
	srv, hits := espnStub(t)
	dataDir = t.TempDir()
	t.Setenv("HOOPS_DATA_DIR", dataDir)
	t.Setenv("HOOPS_ESPN_BASE_URL", srv.URL)
	t.Setenv("HOOPS_REQUEST_DELAY", "0s")
	t.Setenv("HOOPS_DAY_PAUSE", "0s")
	t.Setenv("HOOPS_LEDGER_BACKEND", "file")
	t.Setenv("HOOPS_REDIS_URL", "")
	return dataDir, hits
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestScrapeCommand(t *testing.T) {
	dataDir, _ := setup(t)

	out, err := run(t, "scrape", "2025-11-01")
	if err != nil {
		t.Fatalf("scrape: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2025-11-01: 2 game(s)") || !strings.Contains(out, "GSW @ OKC") {
		t.Errorf("output = %q", out)
	}

	docs := store.NewDocumentStore(dataDir)
	doc, err := docs.ReadDay("2025-11-01")
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}
	if len(doc.Games) != 2 {
		t.Errorf("games = %d", len(doc.Games))
	}
	idx, _ := docs.ReadIndex()
	if len(idx.Dates) != 1 {
		t.Errorf("index = %v", idx.Dates)
	}

	l, err := ledger.NewFileStore(filepath.Join(dataDir, store.LedgerFile)).Load(context.Background())
	if err != nil {
		t.Fatalf("ledger Load: %v", err)
	}
	if _, ok := l.Get("3975"); !ok || l.Len() != 2 {
		t.Errorf("ledger ids = %v", l.IDs())
	}
}

func TestScrapeCommand_SkipsExistingUnlessForced(t *testing.T) {
	_, hits := setup(t)

	if _, err := run(t, "scrape", "2025-11-01"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "scrape", "2025-11-01"); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(hits); got != 1 {
		t.Errorf("scoreboard fetched %d times, want 1", got)
	}

	if _, err := run(t, "scrape", "2025-11-01", "--force"); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(hits); got != 2 {
		t.Errorf("scoreboard fetched %d times after --force, want 2", got)
	}
}

func TestScrapeCommand_BadDate(t *testing.T) {
	setup(t)
	if _, err := run(t, "scrape", "Nov 1"); err == nil || !strings.Contains(err.Error(), "YYYY-MM-DD") {
		t.Errorf("err = %v", err)
	}
}

func TestBackfillCommand(t *testing.T) {
	dataDir, hits := setup(t)

	out, err := run(t, "backfill", "2025-11-03", "2025-11-01")
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if !strings.Contains(out, "wrote 3 date(s)") {
		t.Errorf("output = %q", out)
	}
	if got := atomic.LoadInt32(hits); got != 3 {
		t.Errorf("scoreboard fetched %d times, want 3", got)
	}

	// Three days of the same fixture: the OKC starter has three starts.
	l, err := ledger.NewFileStore(filepath.Join(dataDir, store.LedgerFile)).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	e, _ := l.Get("4278073")
	if e.Starts != 3 || e.DatesStarted[0] != "2025-11-01" || e.DatesStarted[2] != "2025-11-03" {
		t.Errorf("entry = %+v", e)
	}
}

func TestBackfillCommand_DryRun(t *testing.T) {
	dataDir, _ := setup(t)

	out, err := run(t, "backfill", "2025-11-01", "2025-11-02", "--dry-run")
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if !strings.Contains(out, "dry run") {
		t.Errorf("output = %q", out)
	}
	entries, _ := os.ReadDir(dataDir)
	if len(entries) != 0 {
		t.Errorf("dry run wrote %d file(s)", len(entries))
	}
}

func TestBackfillCommand_Args(t *testing.T) {
	setup(t)
	if _, err := run(t, "backfill", "2025-11-01"); err == nil {
		t.Error("single date accepted")
	}
	if _, err := run(t, "backfill", "2025-11-01", "tomorrow"); err == nil {
		t.Error("bad end date accepted")
	}
}

func TestPlayerCommand(t *testing.T) {
	dataDir, _ := setup(t)

	l := ledger.New()
	l.Update([]store.PlayerStatLine{{ID: "p1", Name: "Ty Reed", Team: "OKC", Starter: true, Minutes: 30}}, "2025-11-01")
	l.Update([]store.PlayerStatLine{{ID: "p1", Name: "Ty Reed", Team: "OKC", Minutes: 20}}, "2025-11-02")
	if err := ledger.NewFileStore(filepath.Join(dataDir, store.LedgerFile)).Save(context.Background(), l); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "player", "p1")
	if err != nil {
		t.Fatalf("player: %v", err)
	}
	for _, want := range []string{`"avg_minutes": 25`, `"starts": 1`, `"2025-11-01"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}

	if _, err := run(t, "player", "nobody"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v", err)
	}
}

func TestPlayerCommand_MalformedLedger(t *testing.T) {
	dataDir, _ := setup(t)
	if err := os.WriteFile(filepath.Join(dataDir, store.LedgerFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "player", "p1"); err == nil {
		t.Error("malformed ledger accepted")
	}
}

func TestToday(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	got := today(time.Date(2025, 11, 2, 3, 0, 0, 0, time.UTC), ny)
	if got.Format(store.DateLayout) != "2025-11-01" {
		t.Errorf("today = %s", got)
	}
}
