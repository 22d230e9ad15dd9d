// Package schema discovers base-table names from a relational source and
// snapshots them to a JSON file consumed by the project generator.
package schema

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// ErrNotConfigured indicates the schema source is missing from the
// configuration, so discovery cannot run.
var ErrNotConfigured = errors.New("schema source is not configured")

// Snapshot is the discovered set of base tables.
type Snapshot struct {
	Tables []string
}

// tableInfo is the per-table payload of the snapshot file.
type tableInfo struct {
	Detected bool `json:"detected"`
}

// Discoverer lists distinct base-table names from a database reachable via
// database/sql.
type Discoverer struct {
	driver string
	dsn    string
	log    zerolog.Logger
}

// NewDiscoverer creates a Discoverer for the given driver and DSN.
func NewDiscoverer(driver, dsn string, log zerolog.Logger) (*Discoverer, error) {
	if dsn == "" {
		return nil, ErrNotConfigured
	}
	if driver == "" {
		driver = "sqlite"
	}
	return &Discoverer{driver: driver, dsn: dsn, log: log}, nil
}

// tableQuery returns the driver-appropriate statement for listing base
// tables.
func (d *Discoverer) tableQuery() string {
	if d.driver == "sqlite" {
		return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	}
	return "SELECT DISTINCT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME"
}

// Discover connects, lists base tables, and returns the snapshot. The
// connection is opened and closed per call; discovery is infrequent.
func (d *Discoverer) Discover(ctx context.Context) (*Snapshot, error) {
	db, err := sql.Open(d.driver, d.dsn)
	if err != nil {
		return nil, fmt.Errorf("opening schema source: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, d.tableQuery())
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var snap Snapshot
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		snap.Tables = append(snap.Tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	d.log.Info().Int("tables", len(snap.Tables)).Msg("schema discovery complete")
	return &snap, nil
}

// WriteFile persists the snapshot in the discovered_schema.json layout: a
// map from table name to detection info.
func (s *Snapshot) WriteFile(path string) error {
	out := make(map[string]tableInfo, len(s.Tables))
	for _, t := range s.Tables {
		out[t] = tableInfo{Detected: true}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schema snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing schema snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot file written by WriteFile. Table names are
// returned sorted.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema snapshot: %w", err)
	}
	var in map[string]tableInfo
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decoding schema snapshot: %w", err)
	}
	snap := &Snapshot{Tables: make([]string, 0, len(in))}
	for name := range in {
		snap.Tables = append(snap.Tables, name)
	}
	sort.Strings(snap.Tables)
	return snap, nil
}
