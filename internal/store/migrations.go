package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Poses table - one row per labeled reference pose
		`CREATE TABLE IF NOT EXISTS poses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			tolerance REAL NOT NULL DEFAULT 0.25,
			samples INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Raw recorded samples, ordered per pose
		`CREATE TABLE IF NOT EXISTS pose_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pose_id TEXT NOT NULL REFERENCES poses(id) ON DELETE CASCADE,
			sample_index INTEGER NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Averaged template landmarks, one row per landmark index
		`CREATE TABLE IF NOT EXISTS pose_landmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pose_id TEXT NOT NULL REFERENCES poses(id) ON DELETE CASCADE,
			landmark_index INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL
		)`,

		// Hook bindings to run when a pose is recognized
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			pose_id TEXT NOT NULL REFERENCES poses(id) ON DELETE CASCADE,
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_pose_samples_pose_id ON pose_samples(pose_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pose_landmarks_pose_id ON pose_landmarks(pose_id)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_pose_id ON actions(pose_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
