package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/Vadko/lbk-launcher/internal/catalog"
	"github.com/Vadko/lbk-launcher/internal/store"
)

// ErrNoWatermark means DeltaSync was asked to run without a prior successful
// sync. It is the expected first-run condition, not a bug: Sync reacts to it
// by falling back to FullSync.
var ErrNoWatermark = errors.New("no sync watermark")

// Config holds orchestrator configuration.
type Config struct {
	// PageSize overrides the fetch page size (default PageSize).
	PageSize int

	// Logger for sync activity. Defaults to a stderr logger.
	Logger *log.Logger

	// OnStatus, when set, is called on every status transition so a UI
	// shell can render syncing/ready/error without polling.
	OnStatus func(Status)
}

// Orchestrator drives catalog synchronization. All heavy batch writes go
// through the store's write executor, so they never block the read path.
//
// A single in-progress flag provides mutual exclusion: a second sync started
// while one runs is a logged no-op, not queued.
type Orchestrator struct {
	writer  *store.Writer
	repo    *store.Repository
	fetcher Fetcher

	pageSize int
	logger   *log.Logger
	onStatus func(Status)

	inProgress atomic.Bool
	status     atomic.Value // Status
}

// New creates an Orchestrator. The store must be migrated and the writer
// running before the first sync.
func New(writer *store.Writer, repo *store.Repository, fetcher Fetcher, config *Config) *Orchestrator {
	if config == nil {
		config = &Config{}
	}
	if config.PageSize <= 0 {
		config.PageSize = PageSize
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}

	o := &Orchestrator{
		writer:   writer,
		repo:     repo,
		fetcher:  fetcher,
		pageSize: config.PageSize,
		logger:   config.Logger,
		onStatus: config.OnStatus,
	}
	o.status.Store(StatusReady)
	return o
}

// Status returns the current externally observable sync state.
func (o *Orchestrator) Status() Status {
	return o.status.Load().(Status)
}

func (o *Orchestrator) setStatus(s Status) {
	o.status.Store(s)
	if o.onStatus != nil {
		o.onStatus(s)
	}
}

// Sync is the entry point: a full sync when the store is empty, otherwise an
// incremental one, falling back to full when the incremental path fails
// (including the no-watermark first-run condition).
func (o *Orchestrator) Sync(ctx context.Context) error {
	empty, err := o.repo.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check store state: %w", err)
	}

	if empty {
		return o.FullSync(ctx)
	}

	if err := o.DeltaSync(ctx); err != nil {
		o.logger.Printf("Delta sync failed (%v), falling back to full sync", err)
		return o.FullSync(ctx)
	}
	return nil
}

// FullSync fetches the entire approved catalog page by page, applies it in
// batches, removes everything on the remote tombstone list, then records the
// watermark. A failed attempt leaves the watermark unchanged so the next
// attempt retries from the same point.
func (o *Orchestrator) FullSync(ctx context.Context) error {
	if !o.inProgress.CompareAndSwap(false, true) {
		o.logger.Printf("Sync already in progress, skipping full sync")
		return nil
	}
	defer o.inProgress.Store(false)

	o.setStatus(StatusSyncing)
	o.logger.Printf("Starting full sync")
	start := time.Now()

	total, err := o.pullPages(ctx, func(offset int) ([]*catalog.Game, error) {
		return o.fetcher.FetchApproved(ctx, offset, o.pageSize)
	})
	if err != nil {
		o.setStatus(StatusError)
		return fmt.Errorf("full sync: %w", err)
	}

	deleted, err := o.fetcher.FetchDeletedIDs(ctx, nil)
	if err != nil {
		o.setStatus(StatusError)
		return fmt.Errorf("full sync: failed to fetch deleted ids: %w", err)
	}
	if err := o.writer.DeleteBatch(ctx, deleted); err != nil {
		o.setStatus(StatusError)
		return fmt.Errorf("full sync: failed to apply deletions: %w", err)
	}

	if err := o.advanceWatermark(ctx); err != nil {
		o.setStatus(StatusError)
		return fmt.Errorf("full sync: %w", err)
	}

	o.setStatus(StatusReady)
	o.logger.Printf("Full sync complete: %d games, %d deletions in %v",
		total, len(deleted), time.Since(start).Round(time.Millisecond))
	return nil
}

// DeltaSync fetches only rows updated after the stored watermark plus the
// tombstones reported since then, and advances the watermark on success.
// Returns ErrNoWatermark when no prior sync has completed.
func (o *Orchestrator) DeltaSync(ctx context.Context) error {
	since, err := o.watermark(ctx)
	if err != nil {
		return err
	}

	if !o.inProgress.CompareAndSwap(false, true) {
		o.logger.Printf("Sync already in progress, skipping delta sync")
		return nil
	}
	defer o.inProgress.Store(false)

	o.setStatus(StatusSyncing)
	o.logger.Printf("Starting delta sync since %s", since.Format(time.RFC3339))
	start := time.Now()

	total, err := o.pullPages(ctx, func(offset int) ([]*catalog.Game, error) {
		return o.fetcher.FetchUpdatedSince(ctx, since, offset, o.pageSize)
	})
	if err != nil {
		o.setStatus(StatusError)
		return fmt.Errorf("delta sync: %w", err)
	}

	deleted, err := o.fetcher.FetchDeletedIDs(ctx, &since)
	if err != nil {
		o.setStatus(StatusError)
		return fmt.Errorf("delta sync: failed to fetch deleted ids: %w", err)
	}
	if err := o.writer.DeleteBatch(ctx, deleted); err != nil {
		o.setStatus(StatusError)
		return fmt.Errorf("delta sync: failed to apply deletions: %w", err)
	}

	if err := o.advanceWatermark(ctx); err != nil {
		o.setStatus(StatusError)
		return fmt.Errorf("delta sync: %w", err)
	}

	o.setStatus(StatusReady)
	o.logger.Printf("Delta sync complete: %d games, %d deletions in %v",
		total, len(deleted), time.Since(start).Round(time.Millisecond))
	return nil
}

// pullPages loops a paginated fetch until a short page signals end-of-data,
// upserting each page as one atomic batch. An empty first page is valid and
// results in zero writes.
func (o *Orchestrator) pullPages(ctx context.Context, fetch func(offset int) ([]*catalog.Game, error)) (int, error) {
	total := 0
	for offset := 0; ; offset += o.pageSize {
		page, err := fetch(offset)
		if err != nil {
			return total, fmt.Errorf("failed to fetch page at offset %d: %w", offset, err)
		}

		if len(page) > 0 {
			if err := o.writer.UpsertBatch(ctx, page); err != nil {
				return total, fmt.Errorf("failed to apply page at offset %d: %w", offset, err)
			}
			total += len(page)
		}

		if len(page) < o.pageSize {
			return total, nil
		}
	}
}

func (o *Orchestrator) watermark(ctx context.Context) (time.Time, error) {
	value, ok, err := o.repo.Meta(ctx, store.MetaLastSync)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, ErrNoWatermark
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt watermark %q: %w", value, err)
	}
	return t, nil
}

func (o *Orchestrator) advanceWatermark(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := o.writer.SetMeta(ctx, store.MetaLastSync, now); err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}
	return nil
}

// HandleRealtimeUpsert applies a single push-update row through the same
// write path as sync. Safe to call at any time, including while a sync is
// running: the write executor's transaction boundaries make the race benign
// (last writer wins).
func (o *Orchestrator) HandleRealtimeUpsert(ctx context.Context, game *catalog.Game) error {
	return o.writer.UpsertOne(ctx, game)
}

// HandleRealtimeDelete removes a single row in response to a push delete.
func (o *Orchestrator) HandleRealtimeDelete(ctx context.Context, id string) error {
	return o.writer.DeleteOne(ctx, id)
}
