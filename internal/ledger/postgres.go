package ledger

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/fortuna/hoopsdaily/internal/store"
)

// PostgresStore keeps the ledger in the player_ledger table.
type PostgresStore struct {
	db *store.Database
}

// NewPostgresStore constructs a PostgresStore. Call db.RunMigrations first.
func NewPostgresStore(db *store.Database) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load reads every row. Rows that violate the ledger invariants fail the
// whole load with ErrMalformed.
func (s *PostgresStore) Load(ctx context.Context) (*Ledger, error) {
	query := `
		SELECT player_id, name, team, games, starts, total_min, dates_started
		FROM player_ledger
		ORDER BY player_id
	`

	rows, err := s.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying player ledger: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]Entry)
	for rows.Next() {
		var (
			id    string
			e     Entry
			dates pq.StringArray
		)
		if err := rows.Scan(&id, &e.Name, &e.Team, &e.Games, &e.Starts, &e.TotalMinutes, &dates); err != nil {
			return nil, fmt.Errorf("%w: scanning ledger row: %v", ErrMalformed, err)
		}
		e.DatesStarted = []string(dates)
		if e.DatesStarted == nil {
			e.DatesStarted = []string{}
		}
		entries[id] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger rows: %w", err)
	}

	return FromEntries(entries)
}

// Save replaces the table contents in one transaction.
func (s *PostgresStore) Save(ctx context.Context, l *Ledger) error {
	tx, err := s.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM player_ledger`); err != nil {
		return fmt.Errorf("clear player ledger: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO player_ledger (player_id, name, team, games, starts, total_min, dates_started, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`)
	if err != nil {
		return fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range l.IDs() {
		e := l.entries[id]
		if _, err := stmt.ExecContext(ctx, id, e.Name, e.Team, e.Games, e.Starts, e.TotalMinutes, pq.StringArray(e.DatesStarted)); err != nil {
			return fmt.Errorf("insert ledger row %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger save: %w", err)
	}
	return nil
}
