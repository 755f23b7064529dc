package tasks

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/desertthunder/spotetl/internal/models"
	"github.com/desertthunder/spotetl/internal/shared"
	"github.com/desertthunder/spotetl/internal/storage"
	th "github.com/desertthunder/spotetl/internal/testing"
)

const (
	stagedA = "raw_data/to_processed/spotify_raw_2025-01-01T00-00-00.000000.json"
	stagedB = "raw_data/to_processed/spotify_raw_2025-01-01T06-00-00.000000.json"
)

func newTestTransformer(t *testing.T, store storage.Store, strategy MergeStrategy, runs RunStore, rec Recorder) *Transformer {
	t.Helper()

	tr, err := NewTransformer(TransformerOpts{
		Store:    store,
		Layout:   testLayout(),
		Strategy: strategy,
		Runs:     runs,
		Metrics:  rec,
		Logger:   shared.NewLogger(io.Discard),
		Now:      fixedClock,
	})
	if err != nil {
		t.Fatalf("failed to create transformer: %v", err)
	}
	return tr
}

func stage(t *testing.T, store storage.Store, key string, data []byte) {
	t.Helper()
	if err := store.Put(context.Background(), key, data, storage.ContentTypeJSON); err != nil {
		t.Fatalf("failed to stage %s: %v", key, err)
	}
}

// readRows parses a CSV object and returns its data rows keyed by the first column.
func readRows(t *testing.T, store storage.Store, key string) (header []string, rows map[string][]string, order []string) {
	t.Helper()

	data, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("failed to read %s: %v", key, err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse %s: %v", key, err)
	}
	if len(records) == 0 {
		t.Fatalf("expected header in %s", key)
	}

	rows = map[string][]string{}
	for _, r := range records[1:] {
		rows[r[0]] = r
		order = append(order, r[0])
	}
	return records[0], rows, order
}

func TestTransformer(t *testing.T) {
	t.Run("NewTransformer", func(t *testing.T) {
		if _, err := NewTransformer(TransformerOpts{}); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
		if _, err := NewTransformer(TransformerOpts{Store: storage.NewMemoryStore(), Strategy: "union"}); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("End To End", func(t *testing.T) {
		store := storage.NewMemoryStore()
		stage(t, store, stagedA, th.PlaylistDocument(t,
			th.TrackFixture{SongID: "S1", SongName: "One", AlbumID: "A1", AlbumName: "Album", ArtistIDs: []string{"R1", "R2"}},
			th.TrackFixture{SongID: "S2", SongName: "Two", AlbumID: "A1", AlbumName: "Album", AlbumArtistID: "R1", ArtistIDs: []string{"R2", "R3"}},
		))
		runs := th.NewMockRunStore()
		rec := newRecorder()

		result, err := newTestTransformer(t, store, MergeAccumulate, runs, rec).Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		wantKeys := map[string]string{
			"songs":   "transformed_data/songs_data/song_transformed_2025-01-02T03-04-05.600000.csv",
			"albums":  "transformed_data/album_data/album_transformed_2025-01-02T03-04-05.600000.csv",
			"artists": "transformed_data/artist_data/artist_transformed_2025-01-02T03-04-05.600000.csv",
		}
		if result.SongsKey != wantKeys["songs"] || result.AlbumsKey != wantKeys["albums"] || result.ArtistsKey != wantKeys["artists"] {
			t.Errorf("unexpected output keys: %s %s %s", result.SongsKey, result.AlbumsKey, result.ArtistsKey)
		}

		header, albums, albumOrder := readRows(t, store, result.AlbumsKey)
		if strings.Join(header, ",") != "album_id,album_name,album_release_date,album_total_tracks,album_url" {
			t.Errorf("unexpected album header: %v", header)
		}
		if len(albumOrder) != 1 || albums["A1"] == nil {
			t.Fatalf("expected exactly one A1 row, got %v", albums)
		}
		if albums["A1"][2] != "2020-05-01" {
			t.Errorf("expected canonical release date, got %s", albums["A1"][2])
		}

		_, songs, songOrder := readRows(t, store, result.SongsKey)
		if strings.Join(songOrder, ",") != "S1,S2" {
			t.Errorf("expected songs S1,S2, got %v", songOrder)
		}
		if songs["S2"][6] != "A1" || songs["S2"][7] != "R1" {
			t.Errorf("expected S2 to reference A1 and album artist R1, got %v", songs["S2"])
		}
		if songs["S1"][5] != "2024-01-01T00:00:00Z" {
			t.Errorf("expected canonical added timestamp, got %s", songs["S1"][5])
		}

		_, artists, artistOrder := readRows(t, store, result.ArtistsKey)
		if strings.Join(artistOrder, ",") != "R1,R2,R3" {
			t.Errorf("expected deduplicated artists R1,R2,R3, got %v", artistOrder)
		}
		for _, s := range songs {
			if _, ok := albums[s[6]]; !ok {
				t.Errorf("song %s references missing album %s", s[0], s[6])
			}
			if _, ok := artists[s[7]]; !ok {
				t.Errorf("song %s references missing artist %s", s[0], s[7])
			}
		}

		if result.Songs != 2 || result.Albums != 1 || result.Artists != 3 {
			t.Errorf("unexpected row counts: %+v", result)
		}
		if rec.rows[DatasetSongs] != 2 || rec.rows[DatasetAlbums] != 1 || rec.rows[DatasetArtists] != 3 {
			t.Errorf("unexpected row metrics: %v", rec.rows)
		}

		run := runs.Run(t)
		want := models.RunCounts{ObjectsRead: 1, ObjectsWritten: 3, AlbumRows: 1, ArtistRows: 3, SongRows: 2}
		if run.Status() != models.RunStatusSucceeded || run.Counts() != want {
			t.Errorf("expected succeeded run with %+v, got %s %+v", want, run.Status(), run.Counts())
		}
	})

	t.Run("Archives Staged Objects", func(t *testing.T) {
		store := storage.NewMemoryStore()
		doc := th.PlaylistDocument(t, th.TrackFixture{SongID: "S1", AlbumID: "A1", ArtistIDs: []string{"R1"}})
		stage(t, store, stagedA, doc)
		stage(t, store, stagedB, doc)
		stage(t, store, "raw_data/to_processed/notes.txt", []byte("ignored"))

		result, err := newTestTransformer(t, store, MergeAccumulate, nil, nil).Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		for _, key := range []string{stagedA, stagedB} {
			if _, err := store.Get(context.Background(), key); !errors.Is(err, shared.ErrObjectNotFound) {
				t.Errorf("expected %s to be removed from staging, got %v", key, err)
			}
		}

		wantArchived := []string{
			"raw_data/processed/spotify_raw_2025-01-01T00-00-00.000000.json",
			"raw_data/processed/spotify_raw_2025-01-01T06-00-00.000000.json",
		}
		for i, key := range wantArchived {
			data, err := store.Get(context.Background(), key)
			if err != nil {
				t.Errorf("expected archived object %s, got %v", key, err)
				continue
			}
			if !bytes.Equal(data, doc) {
				t.Errorf("expected archived content of %s to be unchanged", key)
			}
			if result.Archived[i] != key {
				t.Errorf("expected result to list %s, got %s", key, result.Archived[i])
			}
		}

		if _, err := store.Get(context.Background(), "raw_data/to_processed/notes.txt"); err != nil {
			t.Errorf("expected non-json object to stay staged, got %v", err)
		}
	})

	t.Run("Missing Album Aborts Before Writing", func(t *testing.T) {
		store := storage.NewMemoryStore()
		stage(t, store, stagedA, th.PlaylistDocument(t, th.TrackFixture{SongID: "S1", AlbumID: "A1", ArtistIDs: []string{"R1"}}))
		stage(t, store, stagedB, th.PlaylistDocument(t, th.TrackFixture{SongID: "S2", ArtistIDs: []string{"R2"}, OmitAlbum: true}))
		runs := th.NewMockRunStore()

		_, err := newTestTransformer(t, store, MergeAccumulate, runs, nil).Run(context.Background(), nil)
		if !errors.Is(err, shared.ErrMissingField) {
			t.Fatalf("expected ErrMissingField, got %v", err)
		}

		keys := store.Keys()
		if len(keys) != 2 || keys[0] != stagedA || keys[1] != stagedB {
			t.Errorf("expected storage untouched, got %v", keys)
		}
		if run := runs.Run(t); run.Status() != models.RunStatusFailed {
			t.Errorf("expected failed run, got %s", run.Status())
		}
	})

	t.Run("Malformed JSON Aborts Before Writing", func(t *testing.T) {
		store := storage.NewMemoryStore()
		stage(t, store, stagedA, []byte(`{"items": [`))

		_, err := newTestTransformer(t, store, MergeAccumulate, nil, nil).Run(context.Background(), nil)
		if !errors.Is(err, shared.ErrMalformedPayload) {
			t.Fatalf("expected ErrMalformedPayload, got %v", err)
		}
		if keys := store.Keys(); len(keys) != 1 {
			t.Errorf("expected storage untouched, got %v", keys)
		}
	})

	t.Run("Invalid Date Aborts Before Writing", func(t *testing.T) {
		store := storage.NewMemoryStore()
		stage(t, store, stagedA, th.PlaylistDocument(t,
			th.TrackFixture{SongID: "S1", AlbumID: "A1", ArtistIDs: []string{"R1"}, AddedAt: "2024-13-45"},
		))

		_, err := newTestTransformer(t, store, MergeAccumulate, nil, nil).Run(context.Background(), nil)
		if !errors.Is(err, shared.ErrInvalidDate) {
			t.Fatalf("expected ErrInvalidDate, got %v", err)
		}
		if keys := store.Keys(); len(keys) != 1 {
			t.Errorf("expected storage untouched, got %v", keys)
		}
	})

	multiDocument := func(t *testing.T) *storage.MemoryStore {
		store := storage.NewMemoryStore()
		stage(t, store, stagedA, th.PlaylistDocument(t,
			th.TrackFixture{SongID: "S1", AlbumID: "A1", ArtistIDs: []string{"R1"}},
		))
		stage(t, store, stagedB, th.PlaylistDocument(t,
			th.TrackFixture{SongID: "S2", AlbumID: "A2", ArtistIDs: []string{"R2"}},
		))
		return store
	}

	t.Run("Multiple Documents Accumulate", func(t *testing.T) {
		store := multiDocument(t)

		result, err := newTestTransformer(t, store, MergeAccumulate, nil, nil).Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, _, songs := readRows(t, store, result.SongsKey)
		_, _, albums := readRows(t, store, result.AlbumsKey)
		_, _, artists := readRows(t, store, result.ArtistsKey)
		if strings.Join(songs, ",") != "S1,S2" || strings.Join(albums, ",") != "A1,A2" || strings.Join(artists, ",") != "R1,R2" {
			t.Errorf("expected rows from both documents, got songs=%v albums=%v artists=%v", songs, albums, artists)
		}
		if len(result.Archived) != 2 {
			t.Errorf("expected both documents archived, got %v", result.Archived)
		}
	})

	t.Run("Multiple Documents Last Wins", func(t *testing.T) {
		store := multiDocument(t)

		result, err := newTestTransformer(t, store, MergeLast, nil, nil).Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, _, songs := readRows(t, store, result.SongsKey)
		_, _, albums := readRows(t, store, result.AlbumsKey)
		if strings.Join(songs, ",") != "S2" || strings.Join(albums, ",") != "A2" {
			t.Errorf("expected only the last document's rows, got songs=%v albums=%v", songs, albums)
		}
		if len(result.Archived) != 2 {
			t.Errorf("expected both documents archived, got %v", result.Archived)
		}
	})

	t.Run("Empty Staging Area", func(t *testing.T) {
		store := storage.NewMemoryStore()
		runs := th.NewMockRunStore()
		progress := make(chan ProgressUpdate, 4)

		result, err := newTestTransformer(t, store, MergeAccumulate, runs, nil).Run(context.Background(), progress)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !result.Empty() {
			t.Errorf("expected empty result, got %+v", result)
		}
		if keys := store.Keys(); len(keys) != 0 {
			t.Errorf("expected nothing written, got %v", keys)
		}
		if run := runs.Run(t); run.Status() != models.RunStatusSucceeded {
			t.Errorf("expected succeeded run, got %s", run.Status())
		}
		if u := <-progress; u.Phase != ListStaged {
			t.Errorf("expected list_staged update, got %s", u.Phase)
		}
	})

	t.Run("Empty Document", func(t *testing.T) {
		store := storage.NewMemoryStore()
		stage(t, store, stagedA, th.PlaylistDocument(t))

		result, err := newTestTransformer(t, store, MergeAccumulate, nil, nil).Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		header, rows, _ := readRows(t, store, result.SongsKey)
		if len(header) != 8 || len(rows) != 0 {
			t.Errorf("expected header-only songs CSV, got %v %v", header, rows)
		}
		if len(result.Archived) != 1 {
			t.Errorf("expected the empty document to be archived, got %v", result.Archived)
		}
	})

	t.Run("Skips Nested Archive Prefix", func(t *testing.T) {
		store := storage.NewMemoryStore()
		layout := testLayout()
		layout.ArchivePrefix = layout.StagingPrefix + "done/"
		stage(t, store, layout.ArchivePrefix+"old.json", th.PlaylistDocument(t))

		tr, err := NewTransformer(TransformerOpts{Store: store, Layout: layout, Logger: shared.NewLogger(io.Discard)})
		if err != nil {
			t.Fatalf("failed to create transformer: %v", err)
		}

		result, err := tr.Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !result.Empty() {
			t.Errorf("expected archived objects to be ignored, got %v", result.Consumed)
		}
	})

	t.Run("Enclosing Archive Prefix", func(t *testing.T) {
		store := storage.NewMemoryStore()
		layout := testLayout()
		layout.ArchivePrefix = "raw_data/"
		stage(t, store, stagedA, th.PlaylistDocument(t, th.TrackFixture{SongID: "S1", AlbumID: "A1", ArtistIDs: []string{"R1"}}))

		tr, err := NewTransformer(TransformerOpts{Store: store, Layout: layout, Logger: shared.NewLogger(io.Discard), Now: fixedClock})
		if err != nil {
			t.Fatalf("failed to create transformer: %v", err)
		}

		result, err := tr.Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Consumed) != 1 || result.Consumed[0] != stagedA {
			t.Fatalf("expected %s to be consumed, got %v", stagedA, result.Consumed)
		}

		archived := "raw_data/spotify_raw_2025-01-01T00-00-00.000000.json"
		if _, err := store.Get(context.Background(), archived); err != nil {
			t.Errorf("expected archived object %s, got %v", archived, err)
		}
		if _, err := store.Get(context.Background(), stagedA); !errors.Is(err, shared.ErrObjectNotFound) {
			t.Errorf("expected staged object to be removed, got %v", err)
		}
	})

	t.Run("Storage Failures", func(t *testing.T) {
		tests := []struct {
			name  string
			store func(mem storage.Store) *th.FailingStore
		}{
			{"List", func(mem storage.Store) *th.FailingStore {
				return &th.FailingStore{Store: mem, ListErr: shared.ErrStorage}
			}},
			{"Get", func(mem storage.Store) *th.FailingStore {
				return &th.FailingStore{Store: mem, GetErr: shared.ErrStorage}
			}},
			{"Put", func(mem storage.Store) *th.FailingStore {
				return &th.FailingStore{Store: mem, PutErr: shared.ErrStorage, FailPutPrefix: "transformed_data/album_data/"}
			}},
			{"Copy", func(mem storage.Store) *th.FailingStore {
				return &th.FailingStore{Store: mem, CopyErr: shared.ErrStorage}
			}},
			{"Delete", func(mem storage.Store) *th.FailingStore {
				return &th.FailingStore{Store: mem, DeleteErr: shared.ErrStorage}
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mem := storage.NewMemoryStore()
				stage(t, mem, stagedA, th.PlaylistDocument(t, th.TrackFixture{SongID: "S1", AlbumID: "A1", ArtistIDs: []string{"R1"}}))
				runs := th.NewMockRunStore()

				_, err := newTestTransformer(t, tt.store(mem), MergeAccumulate, runs, nil).Run(context.Background(), nil)
				if !errors.Is(err, shared.ErrStorage) {
					t.Fatalf("expected ErrStorage, got %v", err)
				}

				if _, err := mem.Get(context.Background(), stagedA); err != nil {
					t.Errorf("expected staged object to remain, got %v", err)
				}
				if run := runs.Run(t); run.Status() != models.RunStatusFailed {
					t.Errorf("expected failed run, got %s", run.Status())
				}
			})
		}

		t.Run("Put Leaves Earlier Outputs", func(t *testing.T) {
			mem := storage.NewMemoryStore()
			stage(t, mem, stagedA, th.PlaylistDocument(t, th.TrackFixture{SongID: "S1", AlbumID: "A1", ArtistIDs: []string{"R1"}}))
			store := &th.FailingStore{Store: mem, PutErr: shared.ErrStorage, FailPutPrefix: "transformed_data/album_data/"}

			if _, err := newTestTransformer(t, store, MergeAccumulate, nil, nil).Run(context.Background(), nil); err == nil {
				t.Fatal("expected error")
			}

			objects, _ := mem.List(context.Background(), "transformed_data/")
			if len(objects) != 1 || !strings.HasPrefix(objects[0].Key, "transformed_data/songs_data/") {
				t.Errorf("expected only the songs CSV to be written, got %v", objects)
			}
		})
	})

	t.Run("Ledger Records Objects", func(t *testing.T) {
		store := storage.NewMemoryStore()
		stage(t, store, stagedA, th.PlaylistDocument(t, th.TrackFixture{SongID: "S1", AlbumID: "A1", ArtistIDs: []string{"R1"}}))
		runs := th.NewMockRunStore()

		if _, err := newTestTransformer(t, store, MergeAccumulate, runs, nil).Run(context.Background(), nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		run := runs.Run(t)
		objects := runs.Objects[run.ID()]
		if len(objects) != 5 {
			t.Fatalf("expected 1 read, 3 writes and 1 archive, got %v", objects)
		}
		if objects[0] != "read:"+stagedA {
			t.Errorf("expected first record to be the read, got %s", objects[0])
		}
		if !strings.HasPrefix(objects[1], "write:transformed_data/songs_data/") {
			t.Errorf("expected songs written first, got %s", objects[1])
		}
		if objects[4] != "archive:raw_data/processed/spotify_raw_2025-01-01T00-00-00.000000.json" {
			t.Errorf("expected archive record last, got %s", objects[4])
		}
	})
}
