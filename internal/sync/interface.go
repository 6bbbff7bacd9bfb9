// Package sync keeps the local catalog cache eventually consistent with the
// remote authoritative catalog.
//
// The orchestrator decides between full and incremental synchronization,
// pulls pages from the remote catalog through an injected Fetcher, and
// drives every mutation through the store's write executor. A watermark row
// in sync_meta bounds the incremental fetch window.
package sync

import (
	"context"
	"time"

	"github.com/Vadko/lbk-launcher/internal/catalog"
)

// PageSize is the fixed page size for catalog fetches. Both sync paths loop
// until a page comes back shorter than this.
const PageSize = 1000

// Fetcher pulls catalog data from the remote side. Implementations handle
// their own network timeouts and bounded retries; any error that survives
// retry is fatal to the current sync attempt only.
type Fetcher interface {
	// FetchApproved returns one page of the approved catalog, name-ordered.
	FetchApproved(ctx context.Context, offset, limit int) ([]*catalog.Game, error)

	// FetchUpdatedSince returns one page of approved rows updated strictly
	// after the given time, ordered by update time ascending.
	FetchUpdatedSince(ctx context.Context, since time.Time, offset, limit int) ([]*catalog.Game, error)

	// FetchDeletedIDs returns ids from the remote tombstone list, optionally
	// bounded by a deletion-time lower bound. A nil since returns everything.
	FetchDeletedIDs(ctx context.Context, since *time.Time) ([]string, error)
}

// Status is the externally observable sync state.
type Status string

const (
	StatusReady   Status = "ready"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
)
