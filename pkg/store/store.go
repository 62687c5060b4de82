package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Result is one finished game.
type Result struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"sessionId"`
	Name       string    `json:"name"`
	Score      int       `json:"score"`
	Length     int       `json:"length"`
	Ticks      int       `json:"ticks"`
	Cause      string    `json:"cause"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Store keeps finished games in SQLite. Live sessions are never stored.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite serializes writers anyway and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS game_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			name TEXT NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			length INTEGER NOT NULL DEFAULT 0,
			ticks INTEGER NOT NULL DEFAULT 0,
			cause TEXT,
			finished_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_results_score ON game_results (score DESC)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_game_results_session ON game_results (session_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SaveResult stores a finished game. Saving the same session twice keeps the first row.
func (s *Store) SaveResult(ctx context.Context, r Result) (int64, error) {
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO game_results (session_id, name, score, length, ticks, cause, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.Name, r.Score, r.Length, r.Ticks, r.Cause, r.FinishedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("save result for %s: %w", r.SessionID, err)
	}
	return res.LastInsertId()
}

// TopScores returns the best results, highest score first, earliest first on ties.
func (s *Store) TopScores(ctx context.Context, limit int) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, name, score, length, ticks, cause, finished_at
		 FROM game_results ORDER BY score DESC, finished_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top scores: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0, limit)
	for rows.Next() {
		var r Result
		var cause sql.NullString
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Name, &r.Score, &r.Length, &r.Ticks, &cause, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Cause = cause.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// BestScore returns a player's highest score, or 0 if they never finished a game.
func (s *Store) BestScore(ctx context.Context, name string) (int, error) {
	var best sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(score) FROM game_results WHERE name = ?`, name).Scan(&best)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query best score for %s: %w", name, err)
	}
	return int(best.Int64), nil
}
