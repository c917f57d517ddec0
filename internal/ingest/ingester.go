// Package ingest turns one calendar date of ESPN data into a day document,
// folding completed games into the player ledger as it goes.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fortuna/hoopsdaily/internal/blurb"
	"github.com/fortuna/hoopsdaily/internal/ingest/espn"
	"github.com/fortuna/hoopsdaily/internal/ledger"
	"github.com/fortuna/hoopsdaily/internal/store"
)

// Source is the ESPN surface the ingester reads. *espn.Client satisfies it.
type Source interface {
	FetchScoreboard(ctx context.Context, date time.Time) (map[string]interface{}, error)
	FetchSummary(ctx context.Context, eventID string) (map[string]interface{}, error)
}

// Ingester handles per-date ingestion.
type Ingester struct {
	source Source
	delay  time.Duration
}

// NewIngester creates an ingester that pauses delay between ESPN requests.
func NewIngester(source Source, delay time.Duration) *Ingester {
	return &Ingester{source: source, delay: delay}
}

type fetchedGame struct {
	meta       espn.GameMeta
	home, away []store.PlayerStatLine
}

// IngestDate builds the document for date. Every network request happens
// before the ledger is touched, so a cancelled or failed fetch leaves l as
// it was. Only completed games update the ledger and produce blurbs.
func (i *Ingester) IngestDate(ctx context.Context, date string, l *ledger.Ledger) (*store.DayDocument, error) {
	day, err := time.Parse(store.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	log.Printf("[ingest] Fetching ESPN scoreboard for %s", date)
	raw, err := i.source.FetchScoreboard(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("fetch scoreboard %s: %w", date, err)
	}
	games := espn.ParseScoreboard(raw)
	log.Printf("[ingest] Found %d game(s) on %s", len(games), date)

	fetched := make([]fetchedGame, 0, len(games))
	for _, meta := range games {
		if err := sleep(ctx, i.delay); err != nil {
			return nil, err
		}

		fg := fetchedGame{meta: meta, home: []store.PlayerStatLine{}, away: []store.PlayerStatLine{}}
		summary, err := i.source.FetchSummary(ctx, meta.EventID)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			log.Printf("[ingest] ⚠️  summary %s: %v (continuing without box score)", meta.EventID, err)
		default:
			fg.home, fg.away = espn.ParseBoxScore(summary, meta)
		}
		fetched = append(fetched, fg)
	}

	doc := &store.DayDocument{Date: date, Games: make([]store.GameResult, 0, len(fetched))}
	for _, fg := range fetched {
		game := store.GameResult{
			GameID:    fg.meta.EventID,
			Status:    fg.meta.Status,
			Completed: fg.meta.Completed,
			Home:      teamResult(fg.meta.Home, fg.home),
			Away:      teamResult(fg.meta.Away, fg.away),
			Blurbs:    []string{},
		}
		game.Summary = ScoreSummary(game)

		if fg.meta.Completed {
			players := make([]store.PlayerStatLine, 0, len(fg.home)+len(fg.away))
			players = append(players, fg.home...)
			players = append(players, fg.away...)

			l.Update(players, date)
			game.Blurbs = append(game.Blurbs, blurb.Detect(l, players)...)
			for _, b := range game.Blurbs {
				log.Printf("[ingest] %s: %s", game.Matchup(), b)
			}
		}
		doc.Games = append(doc.Games, game)
	}

	return doc, nil
}

func teamResult(meta espn.TeamMeta, players []store.PlayerStatLine) store.TeamResult {
	return store.TeamResult{
		Name:    meta.Name,
		Tricode: meta.Tricode,
		Score:   meta.Score,
		Players: players,
	}
}

// ScoreSummary describes a result from the score alone. It returns "" before
// either side has scored.
func ScoreSummary(g store.GameResult) string {
	hs, as := g.Home.Score, g.Away.Score
	if hs == 0 && as == 0 {
		return ""
	}

	winner, loser := g.Away.Name, g.Home.Name
	if hs > as {
		winner, loser = g.Home.Name, g.Away.Name
	}
	hi, lo := max(hs, as), min(hs, as)

	switch margin := hi - lo; {
	case margin >= 20:
		return fmt.Sprintf("%s blowout, %d-%d.", winner, hi, lo)
	case margin <= 5:
		return fmt.Sprintf("%s edges %s, %d-%d.", winner, loser, hi, lo)
	default:
		return fmt.Sprintf("%s def. %s, %d-%d.", winner, loser, hi, lo)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
