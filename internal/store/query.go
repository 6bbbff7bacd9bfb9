package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Vadko/lbk-launcher/internal/catalog"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("game not found")

// SortOrder selects the ordering of List results.
type SortOrder string

const (
	// SortByName orders by the punctuation-stripped, case-insensitive name
	// key ("112 Operator" sorts as "Operator").
	SortByName SortOrder = "name"
	// SortByDownloads orders by download counter descending, nulls last.
	SortByDownloads SortOrder = "downloads"
	// SortByNewest orders by approval timestamp descending, nulls last.
	SortByNewest SortOrder = "newest"
)

// Filter configures List. All fields compose with AND; each is optional.
// The visibility base predicate (approved and not hidden) is always applied.
type Filter struct {
	// Statuses restricts results to the given status set (empty = all).
	Statuses []catalog.Status
	// ExcludeAI drops rows flagged as AI-translated.
	ExcludeAI bool
	// Search is a raw user query, expanded into script variations and
	// matched as prefixes against the shadow full-text index.
	Search string
	// Authors post-filters in memory against the comma-separated team field.
	Authors []string
	// Sort defaults to SortByName.
	Sort SortOrder
	// Limit restricts the number of results (0 = no limit).
	Limit int
}

// FilterCounts is the aggregate returned by Counts: unique-title counts per
// status and flag, computed in a single pass over the table. All counts are
// distinct by slug (id fallback), never raw row counts.
type FilterCounts struct {
	Total        int
	Planned      int
	InProgress   int
	Completed    int
	AdultOnly    int
	LicenseOnly  int
	AITranslated int
	Voiced       int
}

// Repository translates filter state into read-only queries against the
// catalog cache. It never opens a write transaction.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repository on the store's read handle.
func NewRepository(s *Store) *Repository {
	return &Repository{db: s.ReadDB()}
}

const gameColumns = `
	id, slug, name, description, notes,
	translation_progress, editing_progress, voice_progress,
	texture_progress, font_progress,
	status, approved, hidden, adult_only, license_only, ai_translated,
	platforms, install_paths,
	text_archive, voice_archive, achievements_archive,
	downloads, subscriptions, steam_id, team,
	created_at, updated_at, approved_at`

// visiblePredicate is the non-optional base filter for every user-facing query.
const visiblePredicate = "approved = 1 AND hidden = 0"

// List returns visible games matching the filter, sorted per f.Sort.
func (r *Repository) List(ctx context.Context, f Filter) ([]*catalog.Game, error) {
	conditions := []string{visiblePredicate}
	var args []any

	if f.ExcludeAI {
		conditions = append(conditions, "ai_translated = 0")
	}

	if len(f.Statuses) > 0 {
		placeholders := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	if match := ftsMatchExpr(f.Search); match != "" {
		conditions = append(conditions, "id IN (SELECT id FROM games_fts WHERE games_fts MATCH ?)")
		args = append(args, match)
	}

	query := "SELECT " + gameColumns + " FROM games WHERE " +
		strings.Join(conditions, " AND ") + orderClause(f.Sort)

	// The author post-filter shrinks the result set, so the SQL limit is
	// applied after it; only limit in SQL when no post-filter runs.
	if f.Limit > 0 && len(f.Authors) == 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games, err := scanGames(rows)
	if err != nil {
		return nil, err
	}

	if len(f.Authors) > 0 {
		games = filterByAuthors(games, f.Authors)
		if f.Limit > 0 && len(games) > f.Limit {
			games = games[:f.Limit]
		}
	}

	return games, nil
}

// ftsMatchExpr expands a raw query into an FTS5 match expression: each
// search variation becomes a quoted prefix term, OR-ed together.
func ftsMatchExpr(query string) string {
	variations := catalog.SearchVariations(query)
	if len(variations) == 0 {
		return ""
	}

	terms := make([]string, len(variations))
	for i, v := range variations {
		terms[i] = fmt.Sprintf(`"%s"*`, strings.ReplaceAll(v, `"`, `""`))
	}
	return strings.Join(terms, " OR ")
}

func orderClause(s SortOrder) string {
	switch s {
	case SortByDownloads:
		return " ORDER BY downloads IS NULL, downloads DESC, sort_name ASC"
	case SortByNewest:
		return " ORDER BY approved_at IS NULL, approved_at DESC, sort_name ASC"
	default:
		return " ORDER BY sort_name ASC, name ASC"
	}
}

// filterByAuthors keeps games whose team list contains any requested author.
// Teams are free text with tiny cardinality, so in-memory matching beats an
// indexed join table.
func filterByAuthors(games []*catalog.Game, authors []string) []*catalog.Game {
	wanted := make(map[string]bool, len(authors))
	for _, a := range authors {
		wanted[strings.ToLower(strings.TrimSpace(a))] = true
	}

	var out []*catalog.Game
	for _, g := range games {
		for _, team := range strings.Split(g.Team, ",") {
			if wanted[strings.ToLower(strings.TrimSpace(team))] {
				out = append(out, g)
				break
			}
		}
	}
	return out
}

// Get returns a single game by id regardless of visibility.
// Returns ErrNotFound if the id is absent.
func (r *Repository) Get(ctx context.Context, id string) (*catalog.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+gameColumns+" FROM games WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game %s: %w", id, err)
	}
	defer rows.Close()

	games, err := scanGames(rows)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, ErrNotFound
	}
	return games[0], nil
}

// ByIDs returns the visible games among the given id set, name-ordered.
// Used for notification deep links and trending hydration.
func (r *Repository) ByIDs(ctx context.Context, ids []string) ([]*catalog.Game, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := "SELECT " + gameColumns + " FROM games WHERE " + visiblePredicate +
		fmt.Sprintf(" AND id IN (%s)", strings.Join(placeholders, ", ")) +
		orderClause(SortByName)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games by ids: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// ByInstallPath returns visible games whose install-path hints match the
// given folder. The folder name is normalized and compared against the last
// element of each hint.
func (r *Repository) ByInstallPath(ctx context.Context, folder string) ([]*catalog.Game, error) {
	normalized := catalog.NormalizeFolder(folder)
	if normalized == "" {
		return nil, nil
	}

	query := "SELECT " + gameColumns + " FROM games WHERE " + visiblePredicate +
		" AND install_paths IS NOT NULL" + orderClause(SortByName)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query games by install path: %w", err)
	}
	defer rows.Close()

	candidates, err := scanGames(rows)
	if err != nil {
		return nil, err
	}

	var out []*catalog.Game
	for _, g := range candidates {
		for _, hint := range g.InstallPaths {
			if catalog.NormalizeFolder(hint.Path) == normalized {
				out = append(out, g)
				break
			}
		}
	}
	return out, nil
}

// BySteamID returns the visible translations for a platform store app id.
func (r *Repository) BySteamID(ctx context.Context, steamID int64) ([]*catalog.Game, error) {
	query := "SELECT " + gameColumns + " FROM games WHERE " + visiblePredicate +
		" AND steam_id = ?" + orderClause(SortByName)

	rows, err := r.db.QueryContext(ctx, query, steamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query games by steam id: %w", err)
	}
	defer rows.Close()

	return scanGames(rows)
}

// CountDistinctSteamIDs returns the number of unique store app ids among
// visible games, deduping multiple translations of the same title.
func (r *Repository) CountDistinctSteamIDs(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT steam_id) FROM games WHERE "+visiblePredicate+
			" AND steam_id IS NOT NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct steam ids: %w", err)
	}
	return count, nil
}

// Counts computes the per-status and per-flag unique-title counts for the
// filter sidebar in one pass over the table.
func (r *Repository) Counts(ctx context.Context) (*FilterCounts, error) {
	// COALESCE(NULLIF(slug,''), id) is the unique-title key: one title may
	// have many translation variants sharing a slug.
	const titleKey = "COALESCE(NULLIF(slug, ''), id)"

	query := fmt.Sprintf(`
	SELECT
		COUNT(DISTINCT %[1]s),
		COUNT(DISTINCT CASE WHEN status = 'planned' THEN %[1]s END),
		COUNT(DISTINCT CASE WHEN status = 'in-progress' THEN %[1]s END),
		COUNT(DISTINCT CASE WHEN status = 'completed' THEN %[1]s END),
		COUNT(DISTINCT CASE WHEN adult_only = 1 THEN %[1]s END),
		COUNT(DISTINCT CASE WHEN license_only = 1 THEN %[1]s END),
		COUNT(DISTINCT CASE WHEN ai_translated = 1 THEN %[1]s END),
		COUNT(DISTINCT CASE WHEN voice_archive IS NOT NULL THEN %[1]s END)
	FROM games
	WHERE %[2]s`, titleKey, visiblePredicate)

	var c FilterCounts
	err := r.db.QueryRowContext(ctx, query).Scan(
		&c.Total, &c.Planned, &c.InProgress, &c.Completed,
		&c.AdultOnly, &c.LicenseOnly, &c.AITranslated, &c.Voiced,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute filter counts: %w", err)
	}
	return &c, nil
}

// Authors returns the distinct translation team names across visible games,
// sorted case-insensitively.
func (r *Repository) Authors(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT team FROM games WHERE "+visiblePredicate+" AND team != ''")
	if err != nil {
		return nil, fmt.Errorf("failed to query authors: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]string)
	for rows.Next() {
		var team string
		if err := rows.Scan(&team); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		for _, name := range strings.Split(team, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if _, ok := seen[key]; !ok {
				seen[key] = name
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating authors: %w", err)
	}

	authors := make([]string, 0, len(seen))
	for _, name := range seen {
		authors = append(authors, name)
	}
	sort.Slice(authors, func(i, j int) bool {
		return strings.ToLower(authors[i]) < strings.ToLower(authors[j])
	})
	return authors, nil
}

// IsEmpty reports whether the games table has no rows at all.
// The sync orchestrator uses it to pick full versus delta sync.
func (r *Repository) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM games").Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count games: %w", err)
	}
	return count == 0, nil
}

// Meta reads a sync_meta value. ok is false when the key is absent.
func (r *Repository) Meta(ctx context.Context, key string) (value string, ok bool, err error) {
	err = r.db.QueryRowContext(ctx,
		"SELECT value FROM sync_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read meta %s: %w", key, err)
	}
	return value, true, nil
}

// scanGames is a helper to scan games from query results.
func scanGames(rows *sql.Rows) ([]*catalog.Game, error) {
	var games []*catalog.Game

	for rows.Next() {
		var (
			g                      catalog.Game
			status                 string
			approved, hidden       int
			adultOnly, licenseOnly int
			aiTranslated           int
			platforms              sql.NullString
			installPaths           sql.NullString
			textArch, voiceArch    sql.NullString
			achievementsArch       sql.NullString
			downloads, steamID     sql.NullInt64
			createdAt, updatedAt   string
			approvedAt             sql.NullString
		)

		err := rows.Scan(
			&g.ID, &g.Slug, &g.Name, &g.Description, &g.Notes,
			&g.TranslationProgress, &g.EditingProgress, &g.VoiceProgress,
			&g.TextureProgress, &g.FontProgress,
			&status, &approved, &hidden, &adultOnly, &licenseOnly, &aiTranslated,
			&platforms, &installPaths,
			&textArch, &voiceArch, &achievementsArch,
			&downloads, &g.Subscriptions, &steamID, &g.Team,
			&createdAt, &updatedAt, &approvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}

		g.Status = catalog.Status(status)
		g.Approved = approved == 1
		g.Hidden = hidden == 1
		g.AdultOnly = adultOnly == 1
		g.LicenseOnly = licenseOnly == 1
		g.AITranslated = aiTranslated == 1

		if platforms.Valid {
			if err := json.Unmarshal([]byte(platforms.String), &g.Platforms); err != nil {
				return nil, fmt.Errorf("failed to unmarshal platforms for %s: %w", g.ID, err)
			}
		}
		if installPaths.Valid {
			if err := json.Unmarshal([]byte(installPaths.String), &g.InstallPaths); err != nil {
				return nil, fmt.Errorf("failed to unmarshal install paths for %s: %w", g.ID, err)
			}
		}
		if g.TextArchive, err = unmarshalArchive(textArch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal text archive for %s: %w", g.ID, err)
		}
		if g.VoiceArchive, err = unmarshalArchive(voiceArch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal voice archive for %s: %w", g.ID, err)
		}
		if g.AchievementsArchive, err = unmarshalArchive(achievementsArch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal achievements archive for %s: %w", g.ID, err)
		}

		if downloads.Valid {
			v := downloads.Int64
			g.Downloads = &v
		}
		if steamID.Valid {
			v := steamID.Int64
			g.SteamID = &v
		}

		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			g.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			g.UpdatedAt = t
		}
		g.ApprovedAt = nullStringToTime(approvedAt)

		games = append(games, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}

func unmarshalArchive(ns sql.NullString) (*catalog.Archive, error) {
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return nil, nil
	}
	var a catalog.Archive
	if err := json.Unmarshal([]byte(ns.String), &a); err != nil {
		return nil, err
	}
	return &a, nil
}
