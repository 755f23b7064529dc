package tasks

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotetl/internal/formatter"
	"github.com/desertthunder/spotetl/internal/models"
	"github.com/desertthunder/spotetl/internal/shared"
	"github.com/desertthunder/spotetl/internal/storage"
)

// Dataset names used for output stems and row metrics.
const (
	DatasetSongs   = "songs"
	DatasetAlbums  = "albums"
	DatasetArtists = "artists"
)

// TransformerOpts contains the dependencies of a [Transformer]. Runs, Metrics, Logger and Now are optional.
type TransformerOpts struct {
	Store    storage.Store
	Layout   shared.LayoutConfig
	Strategy MergeStrategy
	Runs     RunStore
	Metrics  Recorder
	Logger   *log.Logger
	Now      Clock
}

// TransformResult describes a completed transformation.
type TransformResult struct {
	RunID      string   `json:"run_id,omitempty"`
	Consumed   []string `json:"consumed"` // staged keys that were read, in listing order
	Archived   []string `json:"archived"` // archive keys the consumed objects were moved to
	SongsKey   string   `json:"songs_key,omitempty"`
	AlbumsKey  string   `json:"albums_key,omitempty"`
	ArtistsKey string   `json:"artists_key,omitempty"`
	Songs      int      `json:"songs"`
	Albums     int      `json:"albums"`
	Artists    int      `json:"artists"`
}

// Empty reports whether the run found nothing to transform.
func (r *TransformResult) Empty() bool {
	return len(r.Consumed) == 0
}

// Transformer flattens staged raw documents into album, artist and song CSVs and archives the raw objects.
type Transformer struct {
	store    storage.Store
	layout   shared.LayoutConfig
	strategy MergeStrategy
	runs     RunStore
	metrics  Recorder
	logger   *log.Logger
	now      Clock
}

// NewTransformer creates a [Transformer], filling in defaults for the optional dependencies.
func NewTransformer(opts TransformerOpts) (*Transformer, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: transformer requires a store", shared.ErrMissingConfig)
	}
	strategy, err := ParseMergeStrategy(string(opts.Strategy))
	if err != nil {
		return nil, err
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

	return &Transformer{
		store:    opts.Store,
		layout:   opts.Layout,
		strategy: strategy,
		runs:     opts.Runs,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      opts.Now,
	}, nil
}

// Run performs one transformation pass over the staging area:
//
//  1. list staged objects ending in the raw suffix
//  2. read and decode every object
//  3. extract, merge and dedupe rows, parsing dates
//  4. write the song, album and artist CSVs
//  5. move every consumed object to the archive prefix
//
// Decoding and extraction complete for all documents before any write, so a malformed document leaves
// storage untouched. Later failures abort without cleanup: written CSVs and already archived objects stay.
func (t *Transformer) Run(ctx context.Context, progress chan<- ProgressUpdate) (result *TransformResult, err error) {
	started := time.Now()
	l := &ledger{store: t.runs}
	if err := l.start(models.RunKindTransform); err != nil {
		return nil, err
	}

	logger := shared.WithLogger(t.logger, "stage", models.RunKindTransform, "run_id", l.runID())
	counts := models.RunCounts{}

	defer func() {
		err = l.finish(counts, err)
		t.metrics.ObserveRun(models.RunKindTransform, time.Since(started), err == nil)
		if err != nil {
			logger.Error("transformation failed", "error", err)
		}
	}()

	result = &TransformResult{RunID: l.runID()}

	keys, err := t.staged(ctx)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, listStagedUpdate(t.layout.StagingPrefix, len(keys)))

	if len(keys) == 0 {
		logger.Info("nothing staged", "prefix", t.layout.StagingPrefix)
		return result, nil
	}

	docs := make([]*models.PlaylistTracks, 0, len(keys))
	for n, key := range keys {
		sendProgress(progress, readStagedUpdate(n+1, len(keys), key))

		data, err := t.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}

		doc, err := models.DecodePlaylistTracks(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		docs = append(docs, doc)

		counts.ObjectsRead++
		if err := l.object(models.ObjectRead, key); err != nil {
			return nil, err
		}
		logger.Debug("read staged object", "key", key, "items", len(doc.Items))
	}
	t.metrics.AddObjects(models.RunKindTransform, models.ObjectRead, len(keys))

	dataset, err := Flatten(docs, t.strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to flatten staged documents: %w", err)
	}

	if err := t.write(ctx, progress, logger, l, dataset, result, &counts); err != nil {
		return nil, err
	}

	for n, key := range keys {
		dst := t.layout.ArchivePrefix + path.Base(key)
		sendProgress(progress, archiveRawUpdate(n+1, len(keys), key, dst))

		if err := storage.Move(ctx, t.store, key, dst); err != nil {
			return nil, fmt.Errorf("failed to archive %s: %w", key, err)
		}
		t.metrics.AddObjects(models.RunKindTransform, models.ObjectArchive, 1)
		if err := l.object(models.ObjectArchive, dst); err != nil {
			return nil, err
		}
		result.Archived = append(result.Archived, dst)
	}

	result.Consumed = keys
	logger.Info("transformation complete",
		"documents", len(keys), "songs", result.Songs, "albums", result.Albums, "artists", result.Artists,
		"strategy", t.strategy)
	return result, nil
}

// staged lists the raw objects waiting in the staging prefix. When the archive prefix is nested inside the
// staging prefix, archived objects are skipped.
func (t *Transformer) staged(ctx context.Context) ([]string, error) {
	objects, err := t.store.List(ctx, t.layout.StagingPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.layout.StagingPrefix, err)
	}

	nested := t.layout.ArchivePrefix != "" && strings.HasPrefix(t.layout.ArchivePrefix, t.layout.StagingPrefix)

	var keys []string
	for _, o := range storage.FilterSuffix(objects, t.layout.RawSuffix) {
		if nested && strings.HasPrefix(o.Key, t.layout.ArchivePrefix) {
			continue
		}
		keys = append(keys, o.Key)
	}
	return keys, nil
}

type output struct {
	dataset string
	key     string
	rows    int
	render  func() ([]byte, error)
}

// write renders and stores the three CSVs in the order songs, albums, artists.
func (t *Transformer) write(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	logger *log.Logger,
	l *ledger,
	dataset *Dataset,
	result *TransformResult,
	counts *models.RunCounts,
) error {
	now := t.now()
	outputs := []output{
		{
			dataset: DatasetSongs,
			key:     shared.ObjectName(t.layout.SongsPrefix, "song_transformed", now, ".csv"),
			rows:    len(dataset.Songs),
			render:  func() ([]byte, error) { return formatter.SongsCSV(dataset.Songs) },
		},
		{
			dataset: DatasetAlbums,
			key:     shared.ObjectName(t.layout.AlbumsPrefix, "album_transformed", now, ".csv"),
			rows:    len(dataset.Albums),
			render:  func() ([]byte, error) { return formatter.AlbumsCSV(dataset.Albums) },
		},
		{
			dataset: DatasetArtists,
			key:     shared.ObjectName(t.layout.ArtistsPrefix, "artist_transformed", now, ".csv"),
			rows:    len(dataset.Artists),
			render:  func() ([]byte, error) { return formatter.ArtistsCSV(dataset.Artists) },
		},
	}

	// render everything first so a serialization error writes nothing
	rendered := make([][]byte, len(outputs))
	for n, o := range outputs {
		data, err := o.render()
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", o.dataset, err)
		}
		rendered[n] = data
	}

	for n, o := range outputs {
		if err := t.store.Put(ctx, o.key, rendered[n], storage.ContentTypeCSV); err != nil {
			return fmt.Errorf("failed to write %s: %w", o.key, err)
		}

		counts.ObjectsWritten++
		t.metrics.AddObjects(models.RunKindTransform, models.ObjectWrite, 1)
		t.metrics.AddRows(o.dataset, o.rows)
		if err := l.object(models.ObjectWrite, o.key); err != nil {
			return err
		}

		sendProgress(progress, writeDatasetUpdate(n+1, len(outputs), o.key, o.rows))
		logger.Info("wrote dataset", "dataset", o.dataset, "key", o.key, "rows", o.rows)
	}

	result.SongsKey, result.AlbumsKey, result.ArtistsKey = outputs[0].key, outputs[1].key, outputs[2].key
	result.Songs, result.Albums, result.Artists = len(dataset.Songs), len(dataset.Albums), len(dataset.Artists)
	counts.SongRows, counts.AlbumRows, counts.ArtistRows = result.Songs, result.Albums, result.Artists
	return nil
}
