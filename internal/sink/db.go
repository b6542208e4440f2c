// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sink

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/relabs-tech/rmc_logger/internal/gps"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB stores every commit of one session in SQLite. The (session, order)
// primary key rejects a second commit for the same order index.
type DB struct {
	db        *sql.DB
	sessionID string
	insert    *sql.Stmt
	closed    bool
}

// StoredCommit is one row of the commits table.
type StoredCommit struct {
	Order      uint64
	Time       string
	Lat, Lon   gps.Coordinate
	SkipReason string // empty for fixes
}

// OpenDB opens (or creates) the database at path, migrates it to the latest
// schema and registers a new session.
func OpenDB(path, sessionID, sentenceID string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared across statements
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(`INSERT INTO sessions (session_id, sentence_id) VALUES (?, ?)`, sessionID, sentenceID); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to register session: %w", err)
	}

	insert, err := db.Prepare(`
		INSERT INTO commits (
			session_id, order_index, utc_time,
			lat_mantissa, lat_scale, lon_mantissa, lon_scale,
			skip_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}

	return &DB{db: db, sessionID: sessionID, insert: insert}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: that would close db as well.
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("db: [migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

func (d *DB) WriteFix(order uint64, fix gps.Fix) error {
	if d.closed {
		return ErrClosed
	}
	_, err := d.insert.Exec(d.sessionID, int64(order), fix.Time(),
		fix.Latitude.Mantissa, int(fix.Latitude.Scale),
		fix.Longitude.Mantissa, int(fix.Longitude.Scale),
		nil)
	if err != nil {
		return fmt.Errorf("db: insert fix %d: %w", order, err)
	}
	return nil
}

func (d *DB) Skip(order uint64, reason error) error {
	if d.closed {
		return ErrClosed
	}
	_, err := d.insert.Exec(d.sessionID, int64(order), nil, nil, nil, nil, nil, gps.Reason(reason))
	if err != nil {
		return fmt.Errorf("db: insert skip %d: %w", order, err)
	}
	return nil
}

// Close stamps the session end time and closes the database.
func (d *DB) Close() error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	_, err := d.db.Exec(`UPDATE sessions SET ended_at = CURRENT_TIMESTAMP WHERE session_id = ?`, d.sessionID)
	return errors.Join(err, d.insert.Close(), d.db.Close())
}

// Commits returns the stored rows of a session in order. It is intended for
// tools and tests reading a database that is still open.
func (d *DB) Commits(sessionID string) ([]StoredCommit, error) {
	rows, err := d.db.Query(`
		SELECT order_index, utc_time, lat_mantissa, lat_scale, lon_mantissa, lon_scale, skip_reason
		FROM commits WHERE session_id = ? ORDER BY order_index`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredCommit
	for rows.Next() {
		var (
			c                  StoredCommit
			order              int64
			utc, reason        sql.NullString
			latM, lonM         sql.NullInt64
			latScale, lonScale sql.NullInt64
		)
		if err := rows.Scan(&order, &utc, &latM, &latScale, &lonM, &lonScale, &reason); err != nil {
			return nil, err
		}
		c.Order = uint64(order)
		c.Time = utc.String
		c.Lat = gps.Coordinate{Mantissa: latM.Int64, Scale: uint8(latScale.Int64)}
		c.Lon = gps.Coordinate{Mantissa: lonM.Int64, Scale: uint8(lonScale.Int64)}
		c.SkipReason = reason.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// SchemaVersion reports the applied migration version.
func (d *DB) SchemaVersion() (uint, error) {
	var v uint
	err := d.db.QueryRow(`SELECT version FROM schema_migrations LIMIT 1`).Scan(&v)
	return v, err
}
