// Package history keeps a local log of the tracks crate has played.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a play log backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Play is one row of the log.
type Play struct {
	ID       int64
	Title    string
	Artist   string
	Album    string
	URL      string
	Duration time.Duration
	PlayedAt time.Time
	Counted  bool
}

// Open opens (or creates) the play log at dbPath. ":memory:" gives a
// private in-memory log.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps :memory: databases shared across calls.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS plays (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			artist TEXT NOT NULL DEFAULT '',
			album TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			duration INTEGER NOT NULL DEFAULT 0,
			played_at INTEGER NOT NULL,
			counted BOOLEAN NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_plays_played_at ON plays(played_at);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Add logs a play and returns its id. A zero PlayedAt means now.
func (s *Store) Add(ctx context.Context, p Play) (int64, error) {
	if p.PlayedAt.IsZero() {
		p.PlayedAt = s.now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO plays (title, artist, album, url, duration, played_at, counted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		p.Title,
		p.Artist,
		p.Album,
		p.URL,
		int64(p.Duration.Seconds()),
		p.PlayedAt.Unix(),
		p.Counted,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert play: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get insert id: %w", err)
	}
	return id, nil
}

// MarkCounted flags a play as listened to.
func (s *Store) MarkCounted(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "UPDATE plays SET counted = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to mark play counted: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("play with id %d not found", id)
	}
	return nil
}

// Recent returns the latest plays, newest first. A limit of zero or
// less returns every play.
func (s *Store) Recent(ctx context.Context, limit int) ([]Play, error) {
	query := `
		SELECT id, title, artist, album, url, duration, played_at, counted
		FROM plays
		ORDER BY played_at DESC, id DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var plays []Play
	for rows.Next() {
		var p Play
		var durationSecs, playedAt int64

		err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Artist,
			&p.Album,
			&p.URL,
			&durationSecs,
			&playedAt,
			&p.Counted,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}

		p.Duration = time.Duration(durationSecs) * time.Second
		p.PlayedAt = time.Unix(playedAt, 0)
		plays = append(plays, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plays: %w", err)
	}
	return plays, nil
}

// Count returns the number of logged plays, or only the counted ones.
func (s *Store) Count(ctx context.Context, countedOnly bool) (int, error) {
	query := "SELECT COUNT(*) FROM plays"
	if countedOnly {
		query += " WHERE counted = 1"
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return count, nil
}

// Cleanup deletes plays older than maxAge and returns how many went.
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).Unix()

	result, err := s.db.ExecContext(ctx, "DELETE FROM plays WHERE played_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old plays: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
