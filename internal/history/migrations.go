package history

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a schema migration step.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations is the ordered list of all schema migrations.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema: upload runs and parts",
		SQL: `
CREATE TABLE IF NOT EXISTS upload_runs (
  id TEXT PRIMARY KEY,
  created_at TEXT NOT NULL,
  region TEXT NOT NULL,
  endpoint TEXT NOT NULL,
  bundle_path TEXT NOT NULL,
  outcome TEXT NOT NULL,
  status INTEGER NOT NULL DEFAULT 0,
  body TEXT NOT NULL DEFAULT '',
  key_fingerprint TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS upload_parts (
  run_id TEXT NOT NULL,
  field TEXT NOT NULL,
  arch TEXT NOT NULL,
  build_id TEXT NOT NULL,
  size_bytes INTEGER NOT NULL,
  sha256 TEXT NOT NULL,
  FOREIGN KEY (run_id) REFERENCES upload_runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_upload_runs_created_at ON upload_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_upload_parts_run ON upload_parts(run_id);
`,
	},
	{
		Version:     2,
		Description: "dump summary counters per run",
		SQL: `
ALTER TABLE upload_runs ADD COLUMN slices_attempted INTEGER NOT NULL DEFAULT 0;
ALTER TABLE upload_runs ADD COLUMN slices_failed INTEGER NOT NULL DEFAULT 0;
ALTER TABLE upload_runs ADD COLUMN slices_empty INTEGER NOT NULL DEFAULT 0;
`,
	},
	{
		Version:     3,
		Description: "lookup parts by build id",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_upload_parts_build_id ON upload_parts(build_id);
`,
	},
}

const migrationsTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at TEXT NOT NULL
);
`

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(migrationsTableSQL)
	return err
}

// currentVersion returns the highest applied migration version, or 0 if none.
func currentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// runMigrations applies all pending migrations in order.
func runMigrations(db *sql.DB) error {
	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	current, err := currentVersion(db)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for _, m := range sorted {
		if m.Version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))", m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
