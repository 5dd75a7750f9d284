package storage

// GetSQLiteMigrations returns the SQLite schema bootstrap scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create entries table",
			SQL: `
				CREATE TABLE IF NOT EXISTS entries (
					id         INTEGER PRIMARY KEY NOT NULL,
					content    TEXT NOT NULL,
					created_at DATETIME NOT NULL DEFAULT (datetime('now')),
					updated_at DATETIME,
					pinned     BOOLEAN NOT NULL DEFAULT 0
				);

				CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
				CREATE INDEX IF NOT EXISTS idx_entries_pinned ON entries(pinned);
			`,
		},
		{
			Version:     "002",
			Description: "Create updated_at trigger",
			SQL: `
				CREATE TRIGGER IF NOT EXISTS update_entries_updated_at
				AFTER UPDATE ON entries
				FOR EACH ROW
				BEGIN
					UPDATE entries
					SET updated_at = datetime('now')
					WHERE id = OLD.id;
				END;
			`,
		},
	}
}

// GetPostgresMigrations returns the PostgreSQL schema bootstrap scripts
func GetPostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create entries table",
			SQL: `
				CREATE TABLE IF NOT EXISTS entries (
					id         BIGSERIAL PRIMARY KEY,
					content    TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMPTZ,
					pinned     BOOLEAN NOT NULL DEFAULT FALSE
				);

				CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
				CREATE INDEX IF NOT EXISTS idx_entries_pinned ON entries(pinned);
			`,
		},
		{
			Version:     "002",
			Description: "Create updated_at trigger function",
			SQL: `
				CREATE OR REPLACE FUNCTION update_updated_at_column()
				RETURNS TRIGGER AS $$
				BEGIN
					IF NEW.* IS DISTINCT FROM OLD.* THEN
						NEW.updated_at = CURRENT_TIMESTAMP;
					END IF;
					RETURN NEW;
				END;
				$$ language 'plpgsql';
			`,
		},
		{
			Version:     "003",
			Description: "Create updated_at trigger",
			SQL: `
				DROP TRIGGER IF EXISTS update_entries_updated_at ON entries;
				CREATE TRIGGER update_entries_updated_at
					BEFORE UPDATE ON entries
					FOR EACH ROW
					EXECUTE FUNCTION update_updated_at_column();
			`,
		},
	}
}
