package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB wraps the SQL database holding review history and sync bookkeeping.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Review is one grading event as recorded in the log.
type Review struct {
	DeckID         string
	ItemID         string
	Grade          string
	Quality        int
	IntervalBefore int
	IntervalAfter  int
	EaseAfter      float64
	HintUsed       bool
	ReviewedAt     time.Time
}

// InsertReview appends a grading event to the log.
func (db *DB) InsertReview(r Review) error {
	_, err := db.conn.Exec(`
		INSERT INTO reviews (deck_id, item_id, grade, quality, interval_before, interval_after, ease_after, hint_used, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.DeckID,
		r.ItemID,
		r.Grade,
		r.Quality,
		r.IntervalBefore,
		r.IntervalAfter,
		r.EaseAfter,
		r.HintUsed,
		r.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review for item %s: %w", r.ItemID, err)
	}
	return nil
}

// ReviewStats summarizes the review log for display.
type ReviewStats struct {
	Total     int
	LastWeek  int
	Lapses    int
	HintsUsed int
}

// Stats aggregates the review log at the given time.
func (db *DB) Stats(now time.Time) (*ReviewStats, error) {
	var s ReviewStats
	row := db.conn.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN reviewed_at >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN quality < 3 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN hint_used THEN 1 ELSE 0 END), 0)
		FROM reviews
	`, now.Add(-7*24*time.Hour))
	if err := row.Scan(&s.Total, &s.LastWeek, &s.Lapses, &s.HintsUsed); err != nil {
		return nil, fmt.Errorf("failed to aggregate review stats: %w", err)
	}
	return &s, nil
}

// InsertSolve logs an essay milestone: a locked sentence or a completed
// ordering.
func (db *DB) InsertSolve(stage string, position int, at time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO solves (stage, position, solved_at)
		VALUES (?, ?, ?)
	`, stage, position, at)
	if err != nil {
		return fmt.Errorf("failed to insert solve: %w", err)
	}
	return nil
}

// Source is a deck source, either a local directory or a git URL.
type Source struct {
	ID         int64
	Path       string
	Type       string // "local" or "git"
	LastSynced sql.NullTime
}

// InsertSource registers a new deck source and returns its ID.
func (db *DB) InsertSource(path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// GetAllSources retrieves all registered deck sources.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, type, last_synced
		FROM sources
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastSynced); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// DeleteSource removes a deck source by ID.
func (db *DB) DeleteSource(id int64) error {
	_, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	return nil
}

// UpdateSourceLastSynced stamps a source after a sync pass.
func (db *DB) UpdateSourceLastSynced(id int64, at time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_synced = ?
		WHERE id = ?
	`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last synced for source %d: %w", id, err)
	}
	return nil
}

// SeenFile reports whether a deck file with this content hash was
// already imported.
func (db *DB) SeenFile(hash string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM imported_files WHERE hash = ?`, hash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check imported file %s: %w", hash, err)
	}
	return true, nil
}

// MarkFile records a deck file as imported.
func (db *DB) MarkFile(hash, path string, at time.Time) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO imported_files (hash, path, imported_at)
		VALUES (?, ?, ?)
	`, hash, path, at)
	if err != nil {
		return fmt.Errorf("failed to mark file %s as imported: %w", path, err)
	}
	return nil
}
