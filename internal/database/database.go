package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB represents the database connection.
type DB struct {
	*sql.DB
	path string
}

var (
	ErrNotFound          = errors.New("not found")
	ErrCancelled         = errors.New("reservation is cancelled")
	ErrAlreadyCheckedIn  = errors.New("already checked in")
	ErrNotCheckedIn      = errors.New("not checked in")
	ErrAlreadyCheckedOut = errors.New("already checked out")
)

// NewDB opens the SQLite database at path and creates tables if they don't exist.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode and busy timeout; concurrent writers rely on SQLite locking.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: db, path: path}

	if err := instance.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) createTables() error {
	queries := []string{
		// Reservations; dates are stored as YYYY-MM-DD text
		`CREATE TABLE IF NOT EXISTS reservations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hrs_id INTEGER NOT NULL DEFAULT 0,
			code TEXT UNIQUE NOT NULL,
			guest_name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			arrival TEXT NOT NULL,
			departure TEXT NOT NULL,
			sonder INTEGER NOT NULL DEFAULT 0,
			lager INTEGER NOT NULL DEFAULT 0,
			betten INTEGER NOT NULL DEFAULT 0,
			dz INTEGER NOT NULL DEFAULT 0,
			cancelled BOOLEAN NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT 'local',
			comment TEXT,
			checked_in_at DATETIME,
			checked_out_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// HRS daily capacity snapshots
		`CREATE TABLE IF NOT EXISTS daily_summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			day TEXT UNIQUE NOT NULL,
			hrs_id INTEGER NOT NULL DEFAULT 0,
			total_guests INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS daily_summary_categories (
			summary_id INTEGER NOT NULL,
			type_code TEXT NOT NULL,
			assigned INTEGER NOT NULL DEFAULT 0,
			free INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (summary_id, type_code),
			FOREIGN KEY (summary_id) REFERENCES daily_summaries(id)
		)`,

		// Quotas; both window ends inclusive
		`CREATE TABLE IF NOT EXISTS quotas (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hrs_id INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL,
			mode TEXT NOT NULL DEFAULT 'SERVICED',
			date_from TEXT NOT NULL,
			date_to TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS quota_categories (
			quota_id INTEGER NOT NULL,
			type_code TEXT NOT NULL,
			capacity INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (quota_id, type_code),
			FOREIGN KEY (quota_id) REFERENCES quotas(id)
		)`,

		`CREATE TABLE IF NOT EXISTS import_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			range_from TEXT NOT NULL,
			range_to TEXT NOT NULL,
			status TEXT NOT NULL,
			summaries INTEGER NOT NULL DEFAULT 0,
			quotas INTEGER NOT NULL DEFAULT 0,
			reservations INTEGER NOT NULL DEFAULT 0,
			error TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_stay ON reservations(arrival, departure)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_hrs ON reservations(hrs_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_cancelled ON reservations(cancelled)`,
		`CREATE INDEX IF NOT EXISTS idx_quotas_window ON quotas(date_from, date_to)`,
		`CREATE INDEX IF NOT EXISTS idx_quotas_hrs ON quotas(hrs_id)`,
		`CREATE INDEX IF NOT EXISTS idx_import_runs_started ON import_runs(started_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(query), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

func (db *DB) Close() error {
	return db.DB.Close()
}
