// Package catalog provides the data structures for the remote translation catalog.
//
// A Game describes one translation entry: one underlying title may appear as
// several Game rows (one per translation team), grouped by a shared slug.
// Rows are mirrored from the remote catalog into the local cache and are only
// ever written through the store's write executor.
package catalog

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a translation.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// InstallPath is a hint for locating an installed copy of the title on disk.
type InstallPath struct {
	// Platform is the source platform tag (steam, gog, epic, rockstar, heroic).
	Platform string `json:"platform"`
	// Path is the folder path relative to the platform's library root.
	Path string `json:"path"`
}

// Archive describes one downloadable translation component.
// Size is a human-readable string such as "150.00 MB" (see ParseSize).
type Archive struct {
	URL  string `json:"url"`
	Hash string `json:"hash,omitempty"`
	Size string `json:"size,omitempty"`
}

// Game represents one translation entry in the catalog.
// Fields can be updated independently on the remote side; the local cache
// always replaces the full row on upsert (last writer wins).
type Game struct {
	// ===== Identification =====
	ID   string `json:"id"`
	Slug string `json:"slug,omitempty"` // groups translation variants of one title
	Name string `json:"name"`

	// ===== Content =====
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`

	// ===== Progress (0-100) =====
	TranslationProgress int `json:"translation_progress"`
	EditingProgress     int `json:"editing_progress"`
	VoiceProgress       int `json:"voice_progress"`
	TextureProgress     int `json:"texture_progress"`
	FontProgress        int `json:"font_progress"`

	Status Status `json:"status"`

	// ===== Flags =====
	Approved     bool `json:"approved"`
	Hidden       bool `json:"hidden"`
	AdultOnly    bool `json:"adult_only"`
	LicenseOnly  bool `json:"license_only"`
	AITranslated bool `json:"ai_translated"`

	// ===== Install metadata =====
	Platforms    []string      `json:"platforms,omitempty"`
	InstallPaths []InstallPath `json:"install_paths,omitempty"`

	// ===== Archives (each component independently optional) =====
	TextArchive         *Archive `json:"text_archive,omitempty"`
	VoiceArchive        *Archive `json:"voice_archive,omitempty"`
	AchievementsArchive *Archive `json:"achievements_archive,omitempty"`

	// ===== Counters =====
	Downloads     *int64 `json:"downloads,omitempty"`
	Subscriptions int64  `json:"subscriptions"`

	// SteamID is the platform store app id, shared by every translation
	// variant of the same underlying title.
	SteamID *int64 `json:"steam_id,omitempty"`

	// Team is a comma-separated list of translation team names.
	Team string `json:"team,omitempty"`

	// ===== Timestamps =====
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// Validate checks that the Game has valid field values.
func (g *Game) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("id is required")
	}
	if g.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !g.Status.Valid() {
		return fmt.Errorf("unknown status %q", g.Status)
	}
	for _, p := range []struct {
		name  string
		value int
	}{
		{"translation_progress", g.TranslationProgress},
		{"editing_progress", g.EditingProgress},
		{"voice_progress", g.VoiceProgress},
		{"texture_progress", g.TextureProgress},
		{"font_progress", g.FontProgress},
	} {
		if p.value < 0 || p.value > 100 {
			return fmt.Errorf("%s must be between 0 and 100 (got %d)", p.name, p.value)
		}
	}
	return nil
}

// SetDefaults applies default values for optional fields.
func (g *Game) SetDefaults() {
	if g.Status == "" {
		g.Status = StatusPlanned
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = time.Now()
	}
}

// TitleKey returns the grouping key used for unique-title accounting:
// the slug when present, the id otherwise.
func (g *Game) TitleKey() string {
	if g.Slug != "" {
		return g.Slug
	}
	return g.ID
}
