package publisher

import (
	"context"
	"errors"
	"time"

	"github.com/fortuna/hoopsdaily/internal/store"
)

// BlurbEvent announces the blurbs produced for one game.
type BlurbEvent struct {
	RunID     string    `json:"run_id"`
	Date      string    `json:"date"`
	GameID    string    `json:"game_id"`
	Matchup   string    `json:"matchup"`
	Blurbs    []string  `json:"blurbs"`
	Published time.Time `json:"published_at"`
}

// Publisher delivers blurb events to subscribers.
type Publisher interface {
	PublishBlurbs(ctx context.Context, event BlurbEvent) error
}

// EventsFromDay builds one event per game that has blurbs.
func EventsFromDay(runID string, doc *store.DayDocument) []BlurbEvent {
	var events []BlurbEvent
	now := time.Now().UTC()
	for _, g := range doc.Games {
		if len(g.Blurbs) == 0 {
			continue
		}
		events = append(events, BlurbEvent{
			RunID:     runID,
			Date:      doc.Date,
			GameID:    g.GameID,
			Matchup:   g.Matchup(),
			Blurbs:    append([]string(nil), g.Blurbs...),
			Published: now,
		})
	}
	return events
}

// Fanout publishes to every wrapped publisher, attempting all of them even
// when some fail.
type Fanout []Publisher

// PublishBlurbs implements Publisher.
func (f Fanout) PublishBlurbs(ctx context.Context, event BlurbEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.PublishBlurbs(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
