package store

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

const testMigrationsDir = "../../db/migrations"

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	entries, err := os.ReadDir(testMigrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	byVersion := map[string]map[string]bool{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version, direction := match[1], match[2]
		if byVersion[version] == nil {
			byVersion[version] = map[string]bool{}
		}
		if byVersion[version][direction] {
			t.Fatalf("duplicate %s migration file for version %s", direction, version)
		}
		byVersion[version][direction] = true
	}

	if len(byVersion) == 0 {
		t.Fatal("no migrations discovered")
	}

	for version, dirs := range byVersion {
		if !dirs["up"] || !dirs["down"] {
			t.Fatalf("version %s must include both up and down files", version)
		}
	}
}

func TestInitMigrationDeclaresUpsertKeys(t *testing.T) {
	sqlBytes, err := os.ReadFile(filepath.Join(testMigrationsDir, "0001_init.up.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sqlText := string(sqlBytes)

	// Every ON CONFLICT target used by the store must be a key in the schema.
	expected := []string{
		"id TEXT PRIMARY KEY",
		"name TEXT NOT NULL UNIQUE",
		"session_id TEXT NOT NULL UNIQUE",
		"votes_with_party_pct >= 0 AND votes_with_party_pct <= 100",
	}
	for _, snippet := range expected {
		if !strings.Contains(sqlText, snippet) {
			t.Fatalf("expected migration to contain %q", snippet)
		}
	}
}

func TestUpMigrationFilesSorted(t *testing.T) {
	files, err := upMigrationFiles(testMigrationsDir)
	if err != nil {
		t.Fatalf("upMigrationFiles: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected at least 2 up migrations, got %d", len(files))
	}
	if filepath.Base(files[0]) != "0001_init.up.sql" {
		t.Errorf("first migration = %s, want 0001_init.up.sql", filepath.Base(files[0]))
	}
	for _, file := range files {
		if strings.HasSuffix(file, ".down.sql") {
			t.Errorf("down migration %s returned as up", file)
		}
	}
}
