// Package store persists evolution runs: serialized populations and
// per-generation summaries, keyed by run id, in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sunn-e/carrot/carrot"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed archive of evolution runs. Safe for use from a
// single evolutionary loop; it is not a concurrent store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store '%s': %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping store '%s': %w", path, err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// SavePopulation stores the given generation's genomes under runID,
// replacing any previous snapshot of the same generation.
func (s *Store) SavePopulation(ctx context.Context, runID string, generation int, population []*carrot.Network) error {
	payloads := make([]json.RawMessage, len(population))
	for i, genome := range population {
		payloads[i] = genome.ToJSON()
	}
	payload, err := json.Marshal(payloads)
	if err != nil {
		return fmt.Errorf("failed to encode population: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO populations (run_id, generation, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			payload = excluded.payload
	`, runID, generation, payload)
	return err
}

// LoadPopulation restores the genomes stored for runID at the given
// generation. The second result is false when no snapshot exists.
func (s *Store) LoadPopulation(ctx context.Context, runID string, generation int) ([]*carrot.Network, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM populations WHERE run_id = ? AND generation = ?`,
		runID, generation).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var payloads []json.RawMessage
	if err := json.Unmarshal(payload, &payloads); err != nil {
		return nil, false, fmt.Errorf("failed to decode population for run %s: %w", runID, err)
	}
	population := make([]*carrot.Network, len(payloads))
	for i, raw := range payloads {
		genome, err := carrot.FromJSON(raw)
		if err != nil {
			return nil, false, fmt.Errorf("failed to decode genome %d for run %s: %w", i, runID, err)
		}
		population[i] = genome
	}
	return population, true, nil
}

// SaveSummary records one finished generation's summary for runID.
func (s *Store) SaveSummary(ctx context.Context, runID string, summary *carrot.Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries (run_id, generation, best, mean, stdev)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			best = excluded.best,
			mean = excluded.mean,
			stdev = excluded.stdev
	`, runID, summary.Generation, summary.Best, summary.Mean, summary.Stdev)
	return err
}

// SummaryRow is one stored generation summary.
type SummaryRow struct {
	Generation int
	Best       float64
	Mean       float64
	Stdev      float64
}

// Summaries returns every stored summary for runID in generation order.
func (s *Store) Summaries(ctx context.Context, runID string) ([]SummaryRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT generation, best, mean, stdev FROM summaries WHERE run_id = ? ORDER BY generation`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var row SummaryRow
		if err := rows.Scan(&row.Generation, &row.Best, &row.Mean, &row.Stdev); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS populations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
		CREATE TABLE IF NOT EXISTS summaries (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			best REAL NOT NULL,
			mean REAL NOT NULL,
			stdev REAL NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create store schema: %w", err)
	}
	return nil
}
