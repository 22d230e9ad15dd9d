package schema

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

// seedDB creates a sqlite file with a few base tables.
func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	defer db.Close()

	for _, stmt := range []string{
		"CREATE TABLE FactSales (id INTEGER PRIMARY KEY, amount REAL)",
		"CREATE TABLE DimProduct (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE DimCustomer (id INTEGER PRIMARY KEY, name TEXT)",
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}

func TestDiscover_ListsBaseTables(t *testing.T) {
	d, err := NewDiscoverer("sqlite", seedDB(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDiscoverer failed: %v", err)
	}

	snap, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	want := []string{"DimCustomer", "DimProduct", "FactSales"}
	if len(snap.Tables) != len(want) {
		t.Fatalf("got %d tables %v, want %d", len(snap.Tables), snap.Tables, len(want))
	}
	for i, name := range want {
		if snap.Tables[i] != name {
			t.Errorf("Tables[%d] = %q, want %q", i, snap.Tables[i], name)
		}
	}
}

func TestNewDiscoverer_MissingDSN(t *testing.T) {
	_, err := NewDiscoverer("sqlite", "", zerolog.Nop())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestSnapshot_WriteAndRead(t *testing.T) {
	snap := &Snapshot{Tables: []string{"FactSales", "DimProduct"}}
	path := filepath.Join(t.TempDir(), "discovered_schema.json")

	if err := snap.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	// Round-trips sorted.
	want := []string{"DimProduct", "FactSales"}
	if len(got.Tables) != 2 || got.Tables[0] != want[0] || got.Tables[1] != want[1] {
		t.Errorf("Tables = %v, want %v", got.Tables, want)
	}
}

func TestReadSnapshot_MissingFile(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing snapshot")
	}
}
