package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Vadko/lbk-launcher/internal/catalog"
)

// Writer is the single path through which any Game row mutation reaches the
// database. Commands are executed by one worker goroutine that owns the
// write handle, so large sync batches never contend with the read path
// beyond SQLite's own WAL coordination.
//
// Every upsert recomputes the game's normalized search string and replaces
// its shadow full-text row in the same transaction as the row write; a batch
// is committed all-or-nothing, so no partial batch is ever observable to
// readers.
type Writer struct {
	db     *sql.DB
	cmds   chan writeCommand
	logger *log.Logger

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

type writeOp int

const (
	opUpsert writeOp = iota
	opDelete
	opSetMeta
)

type writeCommand struct {
	op    writeOp
	games []*catalog.Game
	ids   []string
	key   string
	value string
	reply chan error
}

// NewWriter starts the write executor on the store's write handle.
//
// If logger is nil, a default logger writing to stderr is used.
// The caller must Close the writer before closing the store.
func NewWriter(s *Store, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.New(os.Stderr, "[writer] ", log.LstdFlags)
	}

	w := &Writer{
		db:     s.WriteDB(),
		cmds:   make(chan writeCommand),
		logger: logger,
		done:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()

	return w
}

// Close stops the worker goroutine after the in-flight command finishes.
// Commands issued after Close fail with ErrWriterClosed.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
	})
}

// ErrWriterClosed is returned for commands issued after Close.
var ErrWriterClosed = fmt.Errorf("write executor is closed")

// UpsertOne inserts or replaces a single game row together with its shadow
// search row, atomically.
func (w *Writer) UpsertOne(ctx context.Context, game *catalog.Game) error {
	return w.send(ctx, writeCommand{op: opUpsert, games: []*catalog.Game{game}})
}

// UpsertBatch inserts or replaces all given rows in one transaction.
// On any error the whole batch rolls back; readers see either none of the
// rows or all of them.
func (w *Writer) UpsertBatch(ctx context.Context, games []*catalog.Game) error {
	if len(games) == 0 {
		return nil
	}
	return w.send(ctx, writeCommand{op: opUpsert, games: games})
}

// DeleteOne removes a game row and its shadow row. Deleting a nonexistent
// id is not an error.
func (w *Writer) DeleteOne(ctx context.Context, id string) error {
	return w.send(ctx, writeCommand{op: opDelete, ids: []string{id}})
}

// DeleteBatch removes all given ids in one transaction.
func (w *Writer) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return w.send(ctx, writeCommand{op: opDelete, ids: ids})
}

// SetMeta writes a sync_meta key. Used by the sync orchestrator to persist
// the watermark through the same serialized write path as row mutations.
func (w *Writer) SetMeta(ctx context.Context, key, value string) error {
	return w.send(ctx, writeCommand{op: opSetMeta, key: key, value: value})
}

func (w *Writer) send(ctx context.Context, cmd writeCommand) error {
	cmd.reply = make(chan error, 1)

	select {
	case w.cmds <- cmd:
	case <-w.done:
		return ErrWriterClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case cmd := <-w.cmds:
			cmd.reply <- w.execute(cmd)
		}
	}
}

func (w *Writer) execute(cmd writeCommand) error {
	switch cmd.op {
	case opUpsert:
		return w.upsertTx(cmd.games)
	case opDelete:
		return w.deleteTx(cmd.ids)
	case opSetMeta:
		return w.setMetaTx(cmd.key, cmd.value)
	default:
		return fmt.Errorf("unknown write op %d", cmd.op)
	}
}

func (w *Writer) upsertTx(games []*catalog.Game) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, game := range games {
		if err := upsertGame(tx, game); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert of %d games: %w", len(games), err)
	}
	if len(games) > 1 {
		w.logger.Printf("Upserted batch of %d games", len(games))
	}
	return nil
}

const upsertSQL = `
INSERT INTO games (
	id, slug, name, description, notes,
	translation_progress, editing_progress, voice_progress,
	texture_progress, font_progress,
	status, approved, hidden, adult_only, license_only, ai_translated,
	platforms, install_paths,
	text_archive, voice_archive, achievements_archive,
	downloads, subscriptions, steam_id, team,
	created_at, updated_at, approved_at, sort_name
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	slug = excluded.slug,
	name = excluded.name,
	description = excluded.description,
	notes = excluded.notes,
	translation_progress = excluded.translation_progress,
	editing_progress = excluded.editing_progress,
	voice_progress = excluded.voice_progress,
	texture_progress = excluded.texture_progress,
	font_progress = excluded.font_progress,
	status = excluded.status,
	approved = excluded.approved,
	hidden = excluded.hidden,
	adult_only = excluded.adult_only,
	license_only = excluded.license_only,
	ai_translated = excluded.ai_translated,
	platforms = excluded.platforms,
	install_paths = excluded.install_paths,
	text_archive = excluded.text_archive,
	voice_archive = excluded.voice_archive,
	achievements_archive = excluded.achievements_archive,
	downloads = excluded.downloads,
	subscriptions = excluded.subscriptions,
	steam_id = excluded.steam_id,
	team = excluded.team,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at,
	approved_at = excluded.approved_at,
	sort_name = excluded.sort_name
`

// upsertGame writes one game row and re-synchronizes its shadow search row
// inside the caller's transaction.
func upsertGame(tx *sql.Tx, game *catalog.Game) error {
	if err := game.Validate(); err != nil {
		return fmt.Errorf("invalid game %s: %w", game.ID, err)
	}

	platforms, err := marshalJSON(game.Platforms)
	if err != nil {
		return fmt.Errorf("failed to marshal platforms for %s: %w", game.ID, err)
	}
	installPaths, err := marshalJSON(game.InstallPaths)
	if err != nil {
		return fmt.Errorf("failed to marshal install paths for %s: %w", game.ID, err)
	}
	textArchive, err := marshalJSON(game.TextArchive)
	if err != nil {
		return fmt.Errorf("failed to marshal text archive for %s: %w", game.ID, err)
	}
	voiceArchive, err := marshalJSON(game.VoiceArchive)
	if err != nil {
		return fmt.Errorf("failed to marshal voice archive for %s: %w", game.ID, err)
	}
	achievementsArchive, err := marshalJSON(game.AchievementsArchive)
	if err != nil {
		return fmt.Errorf("failed to marshal achievements archive for %s: %w", game.ID, err)
	}

	_, err = tx.Exec(upsertSQL,
		game.ID,
		game.Slug,
		game.Name,
		game.Description,
		game.Notes,
		game.TranslationProgress,
		game.EditingProgress,
		game.VoiceProgress,
		game.TextureProgress,
		game.FontProgress,
		string(game.Status),
		boolToInt(game.Approved),
		boolToInt(game.Hidden),
		boolToInt(game.AdultOnly),
		boolToInt(game.LicenseOnly),
		boolToInt(game.AITranslated),
		platforms,
		installPaths,
		textArchive,
		voiceArchive,
		achievementsArchive,
		int64PtrToNull(game.Downloads),
		game.Subscriptions,
		int64PtrToNull(game.SteamID),
		game.Team,
		game.CreatedAt.Format(time.RFC3339),
		game.UpdatedAt.Format(time.RFC3339),
		timeToNullString(game.ApprovedAt),
		catalog.SortKey(game.Name),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert game %s: %w", game.ID, err)
	}

	// Shadow row lockstep: delete then reinsert with the locally derived
	// search string. The remote value is never trusted.
	if _, err := tx.Exec(`DELETE FROM games_fts WHERE id = ?`, game.ID); err != nil {
		return fmt.Errorf("failed to clear search row for %s: %w", game.ID, err)
	}

	search := catalog.NormalizeSearch(strings.Join([]string{game.Name, game.Slug, game.Team}, " "))
	if _, err := tx.Exec(`INSERT INTO games_fts (id, search) VALUES (?, ?)`, game.ID, search); err != nil {
		return fmt.Errorf("failed to insert search row for %s: %w", game.ID, err)
	}

	return nil
}

func (w *Writer) deleteTx(ids []string) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.Exec(`DELETE FROM games WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete game %s: %w", id, err)
		}
		if _, err := tx.Exec(`DELETE FROM games_fts WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete search row %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of %d ids: %w", len(ids), err)
	}
	if len(ids) > 1 {
		w.logger.Printf("Deleted batch of %d games", len(ids))
	}
	return nil
}

func (w *Writer) setMetaTx(key, value string) error {
	_, err := w.db.Exec(`
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set meta %s: %w", key, err)
	}
	return nil
}

func marshalJSON(v any) (sql.NullString, error) {
	switch val := v.(type) {
	case nil:
		return sql.NullString{}, nil
	case *catalog.Archive:
		if val == nil {
			return sql.NullString{}, nil
		}
	case []string:
		if len(val) == 0 {
			return sql.NullString{}, nil
		}
	case []catalog.InstallPath:
		if len(val) == 0 {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func int64PtrToNull(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// timeToNullString converts a time pointer to a nullable string for SQL.
func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

// nullStringToTime converts a nullable SQL string to a time pointer.
func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
