// Package ledger keeps the season-long participation record for every
// player seen in a processed box score.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/fortuna/hoopsdaily/internal/store"
)

// ErrMalformed marks a ledger document that cannot be trusted. Callers must
// abort rather than fall back to an empty ledger.
var ErrMalformed = errors.New("malformed player ledger")

// Entry is one player's cumulative record. Average minutes is derived from
// TotalMinutes and Games and never stored.
type Entry struct {
	Name         string   `json:"name"`
	Team         string   `json:"team"`
	Games        int      `json:"games"`
	Starts       int      `json:"starts"`
	TotalMinutes float64  `json:"total_min"`
	DatesStarted []string `json:"dates_started"`
}

// AvgMinutes returns TotalMinutes / Games, or 0 before the first game.
func (e Entry) AvgMinutes() float64 {
	if e.Games == 0 {
		return 0
	}
	return e.TotalMinutes / float64(e.Games)
}

func (e Entry) clone() *Entry {
	cpy := e
	cpy.DatesStarted = append(make([]string, 0, len(e.DatesStarted)), e.DatesStarted...)
	return &cpy
}

func (e Entry) validate(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: entry with empty player id", ErrMalformed)
	case e.Games < 0 || e.Starts < 0:
		return fmt.Errorf("%w: player %s has negative counters (games=%d starts=%d)", ErrMalformed, id, e.Games, e.Starts)
	case e.Starts > e.Games:
		return fmt.Errorf("%w: player %s has %d starts in %d games", ErrMalformed, id, e.Starts, e.Games)
	case math.IsNaN(e.TotalMinutes) || math.IsInf(e.TotalMinutes, 0) || e.TotalMinutes < 0:
		return fmt.Errorf("%w: player %s has invalid total_min %v", ErrMalformed, id, e.TotalMinutes)
	case len(e.DatesStarted) != e.Starts:
		return fmt.Errorf("%w: player %s has %d dates_started for %d starts", ErrMalformed, id, len(e.DatesStarted), e.Starts)
	}
	return nil
}

// Ledger maps player id to Entry. It is not safe for concurrent mutation;
// a run owns exactly one ledger and mutates it in sequence.
type Ledger struct {
	entries map[string]*Entry
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]*Entry)}
}

// FromEntries builds a validated ledger from decoded entries.
func FromEntries(entries map[string]Entry) (*Ledger, error) {
	l := New()
	for id, e := range entries {
		if err := e.validate(id); err != nil {
			return nil, err
		}
		l.entries[id] = e.clone()
	}
	return l, nil
}

// Len returns the number of tracked players.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Get returns a copy of the entry for id.
func (l *Ledger) Get(id string) (Entry, bool) {
	e, ok := l.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e.clone(), true
}

// IDs returns every player id in ascending order.
func (l *Ledger) IDs() []string {
	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entries returns a deep copy of the whole mapping.
func (l *Ledger) Entries() map[string]Entry {
	out := make(map[string]Entry, len(l.entries))
	for id, e := range l.entries {
		out[id] = *e.clone()
	}
	return out
}

// Clone returns an independent deep copy.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{entries: make(map[string]*Entry, len(l.entries))}
	for id, e := range l.entries {
		c.entries[id] = e.clone()
	}
	return c
}

// Update folds one game's player lines into the ledger. Lines without an id
// and did-not-play lines are ignored entirely; no entry is created for them.
func (l *Ledger) Update(players []store.PlayerStatLine, date string) {
	for _, p := range players {
		if !p.Trackable() {
			continue
		}

		e, ok := l.entries[p.ID]
		if !ok {
			e = &Entry{DatesStarted: []string{}}
			l.entries[p.ID] = e
		}

		// Trades and name corrections: latest game wins.
		e.Name = p.Name
		e.Team = p.Team

		e.Games++
		e.TotalMinutes += p.Minutes
		if p.Starter {
			e.Starts++
			e.DatesStarted = append(e.DatesStarted, date)
		}
	}
}

// MarshalJSON encodes the ledger as {"<player id>": {...}} with keys sorted.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Entries())
}

// UnmarshalJSON decodes and validates a ledger document. On any error the
// receiver is left untouched.
func (l *Ledger) UnmarshalJSON(b []byte) error {
	var raw map[string]Entry
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: document is not an object", ErrMalformed)
	}
	for id, e := range raw {
		if e.DatesStarted == nil {
			e.DatesStarted = []string{}
			raw[id] = e
		}
	}

	parsed, err := FromEntries(raw)
	if err != nil {
		return err
	}
	l.entries = parsed.entries
	return nil
}
