package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per pipeline run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			params TEXT NOT NULL DEFAULT '{}',
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Detections table - per-frame detection log
		`CREATE TABLE IF NOT EXISTS detections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			captured_at DATETIME NOT NULL,
			outcome TEXT NOT NULL CHECK(outcome IN ('recorded', 'missed', 'ambiguous')),
			circles INTEGER NOT NULL DEFAULT 0,
			lines INTEGER NOT NULL DEFAULT 0,
			raw_x INTEGER NOT NULL DEFAULT 0,
			raw_y INTEGER NOT NULL DEFAULT 0,
			raw_r INTEGER NOT NULL DEFAULT 0,
			signal_x INTEGER NOT NULL DEFAULT 0,
			signal_y INTEGER NOT NULL DEFAULT 0,
			signal_r INTEGER NOT NULL DEFAULT 0,
			emitted INTEGER NOT NULL DEFAULT 0,
			reset INTEGER NOT NULL DEFAULT 0,
			threshold REAL NOT NULL DEFAULT 0
		)`,

		// Presets table - named parameter sets
		`CREATE TABLE IF NOT EXISTS presets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			params TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_detections_session_id ON detections(session_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
