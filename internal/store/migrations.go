package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Sensitivity table - per-region distance weights
		`CREATE TABLE IF NOT EXISTS sensitivity (
			region TEXT PRIMARY KEY,
			weight REAL NOT NULL CHECK(weight > 0),
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Notifiers table - plugin actions run when an alert of a level fires
		`CREATE TABLE IF NOT EXISTS notifiers (
			id TEXT PRIMARY KEY,
			level TEXT NOT NULL CHECK(level IN ('warning', 'critical')),
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_notifiers_level ON notifiers(level)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
