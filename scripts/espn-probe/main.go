// espn-probe checks the live ESPN endpoints and the parsers against them
// without touching the ledger or any document.
//
//	go run ./scripts/espn-probe 2025-11-13
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/fortuna/hoopsdaily/internal/ingest/espn"
	"github.com/fortuna/hoopsdaily/internal/store"
)

func main() {
	dateStr := time.Now().Format(store.DateLayout)
	if len(os.Args) > 1 {
		dateStr = os.Args[1]
	}
	date, err := time.Parse(store.DateLayout, dateStr)
	if err != nil {
		log.Fatalf("❌ invalid date %q: %v", dateStr, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := espn.NewClient()

	log.Printf("Fetching scoreboard for %s...", dateStr)
	raw, err := client.FetchScoreboard(ctx, date)
	if err != nil {
		log.Fatalf("❌ ERROR: %v", err)
	}

	games := espn.ParseScoreboard(raw)
	log.Printf("✅ %d game(s)", len(games))

	for _, g := range games {
		log.Printf("  %s  %s @ %s  %d-%d  %s (completed=%v)",
			g.EventID, g.Away.Tricode, g.Home.Tricode, g.Away.Score, g.Home.Score, g.Status, g.Completed)
		if !g.Completed {
			continue
		}

		summary, err := client.FetchSummary(ctx, g.EventID)
		if err != nil {
			log.Printf("    ❌ summary: %v", err)
			continue
		}
		home, away := espn.ParseBoxScore(summary, g)
		log.Printf("    box score: %d home / %d away line(s), %d home starter(s)",
			len(home), len(away), countStarters(home))
		time.Sleep(500 * time.Millisecond)
	}
}

func countStarters(lines []store.PlayerStatLine) int {
	n := 0
	for _, p := range lines {
		if p.Starter {
			n++
		}
	}
	return n
}
