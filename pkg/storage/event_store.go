package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/audioctl/volumed/pkg/protocol"
	_ "github.com/mattn/go-sqlite3"
)

// EventStore handles persistent storage of volume/mute/device change
// events observed on the default output device
type EventStore struct {
	db        *sql.DB
	dbPath    string
	maxEvents int
}

// NewEventStore creates a new event store with SQLite backend
func NewEventStore(dbPath string, maxEvents int) (*EventStore, error) {
	store := &EventStore{
		dbPath:    dbPath,
		maxEvents: maxEvents,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize event store: %w", err)
	}

	return store, nil
}

// initialize sets up the database connection and creates tables
func (es *EventStore) initialize() error {
	if es.dbPath == "" {
		es.dbPath = "./volumed.db"
	}

	if err := os.MkdirAll(filepath.Dir(es.dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	connectionString := es.dbPath + "?_busy_timeout=10000&_journal_mode=WAL"

	db, err := sql.Open("sqlite3", connectionString)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	es.db = db

	if err := es.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("Event store initialized: %s (max %d events)", es.dbPath, es.maxEvents)
	return nil
}

// createTables creates the database schema
func (es *EventStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		kind TEXT NOT NULL CHECK (kind IN ('volume', 'mute', 'device')),
		volume INTEGER NOT NULL DEFAULT 0,
		muted BOOLEAN NOT NULL DEFAULT FALSE,
		device_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`

	_, err := es.db.Exec(schema)
	return err
}

// Close closes the database connection
func (es *EventStore) Close() error {
	if es.db != nil {
		return es.db.Close()
	}
	return nil
}

// RecordEvent stores one change event and prunes history beyond the
// configured maximum
func (es *EventStore) RecordEvent(event protocol.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	_, err := es.db.Exec(`
		INSERT INTO events (timestamp, kind, volume, muted, device_id)
		VALUES (?, ?, ?, ?, ?)`,
		event.Timestamp, event.Kind, event.Volume, event.Muted, event.DeviceID)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return es.prune()
}

// prune deletes the oldest events beyond maxEvents
func (es *EventStore) prune() error {
	if es.maxEvents <= 0 {
		return nil
	}

	_, err := es.db.Exec(`
		DELETE FROM events
		WHERE id NOT IN (SELECT id FROM events ORDER BY id DESC LIMIT ?)`,
		es.maxEvents)
	if err != nil {
		return fmt.Errorf("failed to prune events: %w", err)
	}

	return nil
}

// EventQuery represents query parameters for retrieving events
type EventQuery struct {
	Limit int
	Kind  string     // "volume", "mute", "device", or "" for all
	Since *time.Time
}

// GetEvents retrieves events based on query parameters, newest first
func (es *EventStore) GetEvents(query EventQuery) ([]protocol.Event, error) {
	var args []interface{}
	var conditions []string

	sqlQuery := `
		SELECT id, timestamp, kind, volume, muted, device_id
		FROM events
	`

	if query.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, query.Kind)
	}

	if query.Since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, query.Since)
	}

	if len(conditions) > 0 {
		sqlQuery += " WHERE " + strings.Join(conditions, " AND ")
	}

	sqlQuery += " ORDER BY id DESC"

	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
	}

	rows, err := es.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []protocol.Event
	for rows.Next() {
		var event protocol.Event
		if err := rows.Scan(&event.ID, &event.Timestamp, &event.Kind,
			&event.Volume, &event.Muted, &event.DeviceID); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// EventStats represents database statistics
type EventStats struct {
	TotalEvents  int `json:"total_events"`
	VolumeEvents int `json:"volume_events"`
	MuteEvents   int `json:"mute_events"`
	DeviceEvents int `json:"device_events"`
}

// GetStats returns event counts by kind
func (es *EventStore) GetStats() (EventStats, error) {
	var stats EventStats

	row := es.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(kind = 'volume'), 0),
		       COALESCE(SUM(kind = 'mute'), 0),
		       COALESCE(SUM(kind = 'device'), 0)
		FROM events`)

	if err := row.Scan(&stats.TotalEvents, &stats.VolumeEvents,
		&stats.MuteEvents, &stats.DeviceEvents); err != nil {
		return stats, fmt.Errorf("failed to query stats: %w", err)
	}

	return stats, nil
}
