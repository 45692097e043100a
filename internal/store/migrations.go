package store

import "fmt"

// migrations are applied in order; the schema version is the number applied so
// far, tracked in PRAGMA user_version. Append only.
var migrations = []string{
	// 1: plugin actions run when a gesture of the given kind is broadcast
	`CREATE TABLE IF NOT EXISTS actions (
		id TEXT PRIMARY KEY,
		gesture_kind TEXT NOT NULL CHECK(gesture_kind IN ('pan', 'zoom', 'rotate')),
		plugin_name TEXT NOT NULL,
		action_name TEXT NOT NULL,
		config TEXT NOT NULL DEFAULT '{}',
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// 2: key-value settings (threshold profile, recognition toggle)
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// 3
	`CREATE INDEX IF NOT EXISTS idx_actions_gesture_kind ON actions(gesture_kind)`,
}

// runMigrations brings the schema up to date.
func (s *Store) runMigrations() error {
	version, err := s.SchemaVersion()
	if err != nil {
		return err
	}

	for i := version; i < len(migrations); i++ {
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}

	return nil
}

// SchemaVersion returns the number of migrations applied to the database.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
