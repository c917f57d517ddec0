// Package blurb flags unusual single-game performances against a player's
// season history.
package blurb

import (
	"fmt"
	"math"

	"github.com/fortuna/hoopsdaily/internal/ledger"
	"github.com/fortuna/hoopsdaily/internal/store"
)

// Detection thresholds.
const (
	// A new-starter note needs this many earlier games...
	MinGamesBeforeStart = 5
	// ...and applies only to a player's first few starts of the season.
	MaxNotableStarts = 5

	MinGamesBeforeSurge = 10
	SurgeRatio          = 1.5
	SurgeMinutes        = 10.0
)

// Kind identifies which rule produced a blurb.
type Kind string

const (
	KindFirstStart Kind = "first_start"
	KindNthStart   Kind = "nth_start"
	KindMinutes    Kind = "minutes_surge"
)

// Blurb is one flagged performance.
type Blurb struct {
	PlayerID string
	Kind     Kind
	Text     string
}

// Prior is a player's history before the game under evaluation.
type Prior struct {
	Games        int
	TotalMinutes float64
}

// AvgMinutes is undefined (ok=false) without earlier games.
func (p Prior) AvgMinutes() (avg float64, ok bool) {
	if p.Games <= 0 {
		return 0, false
	}
	return p.TotalMinutes / float64(p.Games), true
}

// PriorOf reconstructs pre-game history from an entry that already includes
// the current game.
func PriorOf(e ledger.Entry, current store.PlayerStatLine) Prior {
	return Prior{
		Games:        e.Games - 1,
		TotalMinutes: e.TotalMinutes - current.Minutes,
	}
}

// Detect returns blurb text for one game. It must run after l.Update has
// applied the same players; input order is preserved.
func Detect(l *ledger.Ledger, players []store.PlayerStatLine) []string {
	found := DetectAll(l, players)
	texts := make([]string, 0, len(found))
	for _, b := range found {
		texts = append(texts, b.Text)
	}
	return texts
}

// DetectAll is Detect with rule attribution.
func DetectAll(l *ledger.Ledger, players []store.PlayerStatLine) []Blurb {
	var out []Blurb
	for _, p := range players {
		if !p.Trackable() {
			continue
		}
		e, ok := l.Get(p.ID)
		if !ok {
			continue
		}
		if b, ok := Evaluate(e, p); ok {
			out = append(out, b)
		}
	}
	return out
}

// Evaluate applies the new-starter rule, then the minutes-surge rule. At most
// one blurb is produced.
func Evaluate(e ledger.Entry, p store.PlayerStatLine) (Blurb, bool) {
	prior := PriorOf(e, p)
	starts := e.Starts

	if p.Starter && prior.Games >= MinGamesBeforeStart && starts <= MaxNotableStarts {
		if starts == 1 {
			return Blurb{
				PlayerID: p.ID,
				Kind:     KindFirstStart,
				Text: fmt.Sprintf("%s (%s) first start of the season: %d min, %d pts.",
					p.Name, p.Team, roundMinutes(p.Minutes), p.Points),
			}, true
		}
		return Blurb{
			PlayerID: p.ID,
			Kind:     KindNthStart,
			Text: fmt.Sprintf("%s (%s) %s start this season: %d pts, %d reb.",
				p.Name, p.Team, Ordinal(starts), p.Points, p.Rebounds),
		}, true
	}

	if isMinutesSurge(prior, p.Minutes) {
		avg, _ := prior.AvgMinutes()
		return Blurb{
			PlayerID: p.ID,
			Kind:     KindMinutes,
			Text: fmt.Sprintf("%s (%s) played %d min (season avg: %d): %d pts, %d reb, %d ast.",
				p.Name, p.Team, roundMinutes(p.Minutes), roundMinutes(avg), p.Points, p.Rebounds, p.Assists),
		}, true
	}

	return Blurb{}, false
}

// isMinutesSurge requires both a relative and an absolute jump so that tiny
// baselines (2 -> 4 minutes) do not qualify.
func isMinutesSurge(prior Prior, minutes float64) bool {
	if prior.Games < MinGamesBeforeSurge || minutes <= 0 {
		return false
	}
	avg, ok := prior.AvgMinutes()
	if !ok || avg <= 0 {
		return false
	}
	return minutes >= avg*SurgeRatio && minutes-avg >= SurgeMinutes
}

// roundMinutes renders minutes for blurb text. Halves go to the even
// neighbour: 32.5 -> 32, 33.5 -> 34.
func roundMinutes(m float64) int {
	return int(math.RoundToEven(m))
}

// Ordinal renders 1st, 2nd, 3rd, 4th, 11th, 12th, 21st...
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
