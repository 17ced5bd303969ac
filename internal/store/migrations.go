package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Threshold profiles, at most one active per exercise
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			exercise TEXT NOT NULL CHECK(exercise IN ('squat', 'pushup')),
			extended_threshold REAL NOT NULL,
			contracted_threshold REAL NOT NULL,
			hold_frames INTEGER NOT NULL,
			fault_threshold REAL NOT NULL,
			fault_hold_frames INTEGER NOT NULL,
			visibility_threshold REAL NOT NULL DEFAULT 0.5,
			active INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CHECK(contracted_threshold < extended_threshold)
		)`,

		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_profiles_exercise ON profiles(exercise)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_profiles_active ON profiles(exercise) WHERE active = 1`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
