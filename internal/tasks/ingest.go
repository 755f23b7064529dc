package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotetl/internal/models"
	"github.com/desertthunder/spotetl/internal/services"
	"github.com/desertthunder/spotetl/internal/shared"
	"github.com/desertthunder/spotetl/internal/storage"
)

const rawStem = "spotify_raw"

// IngesterOpts contains the dependencies of an [Ingester]. Runs, Metrics, Logger and Now are optional.
type IngesterOpts struct {
	Catalog    services.Catalog
	Store      storage.Store
	Layout     shared.LayoutConfig
	PlaylistID string
	ListUser   string // reference user whose playlists are listed and logged; empty skips the listing
	Runs       RunStore
	Metrics    Recorder
	Logger     *log.Logger
	Now        Clock
}

// IngestResult describes a completed ingestion.
type IngestResult struct {
	RunID     string              `json:"run_id,omitempty"`
	Key       string              `json:"key"`       // staged object key
	Bytes     int                 `json:"bytes"`     // size of the staged document
	Items     int                 `json:"items"`     // track items in the staged document
	Playlists []services.Playlist `json:"playlists"` // reference user's playlists
}

// Ingester fetches one playlist's track listing and stages the raw document.
type Ingester struct {
	catalog    services.Catalog
	store      storage.Store
	layout     shared.LayoutConfig
	playlistID string
	listUser   string
	runs       RunStore
	metrics    Recorder
	logger     *log.Logger
	now        Clock
}

// NewIngester creates an [Ingester], filling in defaults for the optional dependencies.
func NewIngester(opts IngesterOpts) (*Ingester, error) {
	if opts.Catalog == nil || opts.Store == nil {
		return nil, fmt.Errorf("%w: ingester requires a catalog and a store", shared.ErrMissingConfig)
	}
	if opts.PlaylistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingConfig)
	}
	if opts.Metrics == nil {
		opts.Metrics = noopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Ingester{
		catalog:    opts.Catalog,
		store:      opts.Store,
		layout:     opts.Layout,
		playlistID: opts.PlaylistID,
		listUser:   opts.ListUser,
		runs:       opts.Runs,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		now:        opts.Now,
	}, nil
}

// Run authenticates, lists the reference user's playlists, fetches the configured playlist's
// tracks and writes them to "<staging_prefix>spotify_raw_<timestamp>.json".
//
// Any failure aborts the run; nothing is retried.
func (i *Ingester) Run(ctx context.Context, progress chan<- ProgressUpdate) (result *IngestResult, err error) {
	started := time.Now()
	l := &ledger{store: i.runs}
	if err := l.start(models.RunKindIngest); err != nil {
		return nil, err
	}

	logger := shared.WithLogger(i.logger, "stage", models.RunKindIngest, "run_id", l.runID())
	counts := models.RunCounts{}

	defer func() {
		err = l.finish(counts, err)
		i.metrics.ObserveRun(models.RunKindIngest, time.Since(started), err == nil)
		if err != nil {
			logger.Error("ingestion failed", "error", err)
		}
	}()

	sendProgress(progress, authenticateUpdate(i.catalog.Name()))
	if err := i.catalog.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("failed to authenticate with %s: %w", i.catalog.Name(), err)
	}

	result = &IngestResult{RunID: l.runID()}

	if i.listUser != "" {
		playlists, err := i.catalog.UserPlaylists(ctx, i.listUser)
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists of %s: %w", i.listUser, err)
		}
		result.Playlists = playlists
		sendProgress(progress, listPlaylistsUpdate(i.listUser, playlists))
		for _, p := range playlists {
			logger.Debug("playlist", "user", i.listUser, "id", p.ID, "name", p.Name, "tracks", p.TrackCount)
		}
		logger.Info("listed playlists", "user", i.listUser, "count", len(playlists))
	}

	sendProgress(progress, fetchTracksUpdate(i.playlistID))
	raw, err := i.catalog.PlaylistTracks(ctx, i.playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s: %w", i.playlistID, err)
	}

	key := shared.ObjectName(i.layout.StagingPrefix, rawStem, i.now(), i.layout.RawSuffix)
	if err := i.store.Put(ctx, key, raw, storage.ContentTypeJSON); err != nil {
		return nil, fmt.Errorf("failed to stage %s: %w", key, err)
	}

	counts.ObjectsWritten = 1
	i.metrics.AddObjects(models.RunKindIngest, models.ObjectWrite, 1)
	if err := l.object(models.ObjectWrite, key); err != nil {
		return nil, err
	}

	result.Key = key
	result.Bytes = len(raw)
	result.Items = countItems(raw)

	sendProgress(progress, stageRawUpdate(key, len(raw)))
	logger.Info("staged playlist", "playlist", i.playlistID, "key", key, "bytes", len(raw), "items", result.Items)
	return result, nil
}

// countItems reports the length of the document's items array, or zero if it cannot be read.
func countItems(raw []byte) int {
	var doc struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0
	}
	return len(doc.Items)
}
