package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/calvinwijaya/blackjack-wallet/internal/game"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names
const (
	DriverSQLite3  = "sqlite3"  // mattn/go-sqlite3 (cgo)
	DriverSQLite   = "sqlite"   // modernc.org/sqlite (pure Go)
	DriverPostgres = "postgres" // lib/pq
)

// ErrNotFound is returned when an identity has no stored score
var ErrNotFound = errors.New("not found")

type Database struct {
	db     *sql.DB
	driver string
}

type PlayerStats struct {
	Identity     string    `json:"identity"`
	Score        int       `json:"score"`
	RoundsPlayed int       `json:"roundsPlayed"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Pushes       int       `json:"pushes"`
	LastPlayed   time.Time `json:"lastPlayed"`
}

// NewDatabase opens a database connection and makes sure the tables exist
func NewDatabase(driver, dsn string) (*Database, error) {
	switch driver {
	case DriverSQLite3, DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if driver == DriverPostgres {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	} else {
		// SQLite allows a single writer, and :memory: databases live per connection
		db.SetMaxOpenConns(1)
	}

	if err := initTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db, driver: driver}, nil
}

// initTables creates the necessary tables if they don't exist
func initTables(db *sql.DB) error {
	// Scores table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS scores (
			identity TEXT PRIMARY KEY,
			score INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("error creating scores table: %w", err)
	}

	// Round results table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			identity TEXT NOT NULL,
			status TEXT NOT NULL,
			delta INTEGER NOT NULL,
			score INTEGER NOT NULL,
			player_value INTEGER NOT NULL,
			dealer_value INTEGER NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("error creating rounds table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_rounds_identity ON rounds (identity)`)
	if err != nil {
		return fmt.Errorf("error creating rounds index: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Driver returns the driver name the database was opened with
func (d *Database) Driver() string {
	return d.driver
}

// rebind rewrites ? placeholders into $n for postgres
func (d *Database) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GetScore returns the stored score for an identity
func (d *Database) GetScore(ctx context.Context, identity string) (int, error) {
	var score int
	err := d.db.QueryRowContext(ctx, d.rebind("SELECT score FROM scores WHERE identity = ?"), identity).Scan(&score)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("error getting score: %w", err)
	}
	return score, nil
}

// PutScore inserts or replaces the score for an identity
func (d *Database) PutScore(ctx context.Context, identity string, score int) error {
	_, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO scores (identity, score, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (identity) DO UPDATE
		SET score = excluded.score, updated_at = excluded.updated_at
	`), identity, score, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error writing score: %w", err)
	}
	return nil
}

// SaveRoundResult records a finished round
func (d *Database) SaveRoundResult(ctx context.Context, r game.RoundResult) error {
	_, err := d.db.ExecContext(ctx, d.rebind(`
		INSERT INTO rounds (id, identity, status, delta, score, player_value, dealer_value, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), r.RoundID, r.Identity, string(r.Status), r.Delta, r.Score, r.PlayerValue, r.DealerValue, r.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("error saving round result: %w", err)
	}
	return nil
}

// GetPlayerStats aggregates the round history of an identity
func (d *Database) GetPlayerStats(ctx context.Context, identity string) (*PlayerStats, error) {
	stats := PlayerStats{Identity: identity}

	score, err := d.GetScore(ctx, identity)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	stats.Score = score

	err = d.db.QueryRowContext(ctx, d.rebind(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN delta > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN delta < 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN delta = 0 THEN 1 ELSE 0 END), 0)
		FROM rounds WHERE identity = ?
	`), identity).Scan(&stats.RoundsPlayed, &stats.Wins, &stats.Losses, &stats.Pushes)
	if err != nil {
		return nil, fmt.Errorf("error counting rounds: %w", err)
	}

	if stats.RoundsPlayed == 0 {
		return &stats, nil
	}

	// Get last played timestamp
	var last sql.NullTime
	err = d.db.QueryRowContext(ctx, d.rebind(`
		SELECT finished_at FROM rounds WHERE identity = ?
		ORDER BY finished_at DESC LIMIT 1
	`), identity).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error getting last played: %w", err)
	}
	if last.Valid {
		stats.LastPlayed = last.Time
	}

	return &stats, nil
}
