package database

import (
	"context"
	"testing"
)

func TestOpenMemory(t *testing.T) {
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("max open connections = %d, want 1", got)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("reading foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestIsMemory(t *testing.T) {
	tests := map[string]bool{
		":memory:":            true,
		"test.db?mode=memory": true,
		"data/diplomacy.db":   false,
	}
	for path, want := range tests {
		if got := IsMemory(path); got != want {
			t.Errorf("IsMemory(%q) = %v, want %v", path, got, want)
		}
	}
}
