package store

import (
	"context"
	"fmt"
)

// migration is one idempotent schema step. Steps probe the current schema
// state before applying, so re-running the whole chain is a no-op.
type migration struct {
	name  string
	apply func(ctx context.Context, s *Store) error
}

// migrations run in order on every startup. Append only; never reorder.
var migrations = []migration{
	{"base schema", migrateBaseSchema},
	{"add ai_translated flag", migrateAITranslated},
	{"add sort_name key", migrateSortName},
}

// Migrate brings the schema up to date. Failure is fatal to the caller:
// the application must not proceed with an inconsistent schema.
func (s *Store) Migrate() error {
	return s.MigrateContext(context.Background())
}

// MigrateContext brings the schema up to date with context support.
func (s *Store) MigrateContext(ctx context.Context) error {
	for _, m := range migrations {
		if err := m.apply(ctx, s); err != nil {
			return fmt.Errorf("migration %q failed: %w", m.name, err)
		}
	}
	return nil
}

func migrateBaseSchema(ctx context.Context, s *Store) error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',

		translation_progress INTEGER NOT NULL DEFAULT 0,
		editing_progress INTEGER NOT NULL DEFAULT 0,
		voice_progress INTEGER NOT NULL DEFAULT 0,
		texture_progress INTEGER NOT NULL DEFAULT 0,
		font_progress INTEGER NOT NULL DEFAULT 0,

		status TEXT NOT NULL DEFAULT 'planned',

		approved INTEGER NOT NULL DEFAULT 0,
		hidden INTEGER NOT NULL DEFAULT 0,
		adult_only INTEGER NOT NULL DEFAULT 0,
		license_only INTEGER NOT NULL DEFAULT 0,

		platforms TEXT,      -- JSON array
		install_paths TEXT,  -- JSON array of {platform, path}

		text_archive TEXT,          -- JSON {url, hash, size}
		voice_archive TEXT,         -- JSON {url, hash, size}
		achievements_archive TEXT,  -- JSON {url, hash, size}

		downloads INTEGER,
		subscriptions INTEGER NOT NULL DEFAULT 0,
		steam_id INTEGER,
		team TEXT NOT NULL DEFAULT '',

		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		approved_at TEXT
	);

	-- Shadow full-text index, kept in lockstep with games by the writer:
	-- upserts delete-then-reinsert the row in the same transaction.
	CREATE VIRTUAL TABLE IF NOT EXISTS games_fts USING fts5(
		id UNINDEXED,
		search
	);

	CREATE TABLE IF NOT EXISTS sync_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_games_visible ON games(approved, hidden);
	CREATE INDEX IF NOT EXISTS idx_games_status ON games(status);
	CREATE INDEX IF NOT EXISTS idx_games_slug ON games(slug);
	CREATE INDEX IF NOT EXISTS idx_games_steam ON games(steam_id);
	CREATE INDEX IF NOT EXISTS idx_games_downloads ON games(downloads);
	CREATE INDEX IF NOT EXISTS idx_games_approved_at ON games(approved_at);
	`

	if _, err := s.write.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create base schema: %w", err)
	}
	return nil
}

func migrateAITranslated(ctx context.Context, s *Store) error {
	exists, err := s.columnExists(ctx, "games", "ai_translated")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = s.write.ExecContext(ctx,
		`ALTER TABLE games ADD COLUMN ai_translated INTEGER NOT NULL DEFAULT 0`)
	if err != nil {
		return fmt.Errorf("failed to add ai_translated column: %w", err)
	}
	return nil
}

func migrateSortName(ctx context.Context, s *Store) error {
	exists, err := s.columnExists(ctx, "games", "sort_name")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	stmts := []string{
		`ALTER TABLE games ADD COLUMN sort_name TEXT NOT NULL DEFAULT ''`,
		`CREATE INDEX IF NOT EXISTS idx_games_sort_name ON games(sort_name)`,
	}
	for _, stmt := range stmts {
		if _, err := s.write.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add sort_name key: %w", err)
		}
	}
	return nil
}

// columnExists probes table_info for a column, the check every migration
// step runs before altering the schema.
func (s *Store) columnExists(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.write.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal any
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return false, fmt.Errorf("failed to scan table_info row: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
