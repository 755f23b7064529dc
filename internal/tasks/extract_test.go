package tasks

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/desertthunder/spotetl/internal/models"
	"github.com/desertthunder/spotetl/internal/shared"
	th "github.com/desertthunder/spotetl/internal/testing"
)

func decode(t *testing.T, data []byte) *models.PlaylistTracks {
	t.Helper()
	doc, err := models.DecodePlaylistTracks(data)
	if err != nil {
		t.Fatalf("failed to decode fixture: %v", err)
	}
	return doc
}

// twoSongsOneAlbum is a document with songs S1 and S2 on album A1, each with two artists, R2 shared.
func twoSongsOneAlbum(t *testing.T) *models.PlaylistTracks {
	return decode(t, th.PlaylistDocument(t,
		th.TrackFixture{SongID: "S1", SongName: "One", AlbumID: "A1", AlbumName: "Album", ArtistIDs: []string{"R1", "R2"}},
		th.TrackFixture{SongID: "S2", SongName: "Two", AlbumID: "A1", AlbumName: "Album", AlbumArtistID: "R1", ArtistIDs: []string{"R2", "R3"}},
	))
}

func TestExtract(t *testing.T) {
	t.Run("ExtractAlbums", func(t *testing.T) {
		albums, err := ExtractAlbums(twoSongsOneAlbum(t))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(albums) != 2 {
			t.Fatalf("expected one album row per item, got %d", len(albums))
		}

		want := models.Album{
			ID:          "A1",
			Name:        "Album",
			ReleaseDate: time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC),
			TotalTracks: 10,
			URL:         "https://open.spotify.com/album/A1",
		}
		if !reflect.DeepEqual(albums[0], want) {
			t.Errorf("expected %+v, got %+v", want, albums[0])
		}
	})

	t.Run("ExtractArtists", func(t *testing.T) {
		artists, err := ExtractArtists(twoSongsOneAlbum(t))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(artists) != 4 {
			t.Fatalf("expected one row per item-artist pair, got %d", len(artists))
		}

		ids := []string{}
		for _, a := range artists {
			ids = append(ids, a.ID)
		}
		if !reflect.DeepEqual(ids, []string{"R1", "R2", "R2", "R3"}) {
			t.Errorf("unexpected artist order: %v", ids)
		}
		if artists[0].URL != "https://api.spotify.com/v1/artists/R1" || artists[0].Name != "Artist R1" {
			t.Errorf("unexpected artist row: %+v", artists[0])
		}
	})

	t.Run("ExtractSongs", func(t *testing.T) {
		songs, err := ExtractSongs(twoSongsOneAlbum(t))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(songs) != 2 {
			t.Fatalf("expected 2 songs, got %d", len(songs))
		}

		want := models.Song{
			ID:         "S2",
			Name:       "Two",
			DurationMS: 200000,
			URL:        "https://open.spotify.com/track/S2",
			Popularity: 50,
			AddedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			AlbumID:    "A1",
			ArtistID:   "R1",
		}
		if !reflect.DeepEqual(songs[1], want) {
			t.Errorf("expected %+v, got %+v", want, songs[1])
		}
	})

	t.Run("Song Artist Comes From Album", func(t *testing.T) {
		doc := decode(t, th.PlaylistDocument(t,
			th.TrackFixture{SongID: "S1", AlbumID: "A1", AlbumArtistID: "RA", ArtistIDs: []string{"R1", "R2"}},
		))

		songs, err := ExtractSongs(doc)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if songs[0].ArtistID != "RA" {
			t.Errorf("expected album artist RA, got %s", songs[0].ArtistID)
		}
	})

	t.Run("Release Date Precision", func(t *testing.T) {
		tests := []struct {
			date string
			want time.Time
		}{
			{"1999", time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)},
			{"1999-07", time.Date(1999, 7, 1, 0, 0, 0, 0, time.UTC)},
			{"1999-07-14", time.Date(1999, 7, 14, 0, 0, 0, 0, time.UTC)},
		}
		for _, tt := range tests {
			t.Run(tt.date, func(t *testing.T) {
				doc := decode(t, th.PlaylistDocument(t,
					th.TrackFixture{SongID: "S1", AlbumID: "A1", ReleaseDate: tt.date, ArtistIDs: []string{"R1"}},
				))
				albums, err := ExtractAlbums(doc)
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if !albums[0].ReleaseDate.Equal(tt.want) {
					t.Errorf("expected %v, got %v", tt.want, albums[0].ReleaseDate)
				}
			})
		}
	})

	t.Run("Invalid Dates", func(t *testing.T) {
		t.Run("release_date", func(t *testing.T) {
			doc := decode(t, th.PlaylistDocument(t,
				th.TrackFixture{SongID: "S1", AlbumID: "A1", ReleaseDate: "May 2020", ArtistIDs: []string{"R1"}},
			))
			if _, err := ExtractAlbums(doc); !errors.Is(err, shared.ErrInvalidDate) {
				t.Errorf("expected ErrInvalidDate, got %v", err)
			}
		})

		t.Run("added_at", func(t *testing.T) {
			doc := decode(t, th.PlaylistDocument(t,
				th.TrackFixture{SongID: "S1", AlbumID: "A1", AddedAt: "yesterday", ArtistIDs: []string{"R1"}},
			))
			if _, err := ExtractSongs(doc); !errors.Is(err, shared.ErrInvalidDate) {
				t.Errorf("expected ErrInvalidDate, got %v", err)
			}
		})
	})

	t.Run("Missing Substructure", func(t *testing.T) {
		doc := &models.PlaylistTracks{Items: []models.PlaylistItem{{AddedAt: "2024-01-01T00:00:00Z"}}}

		if _, err := ExtractAlbums(doc); !errors.Is(err, shared.ErrMissingField) {
			t.Errorf("albums: expected ErrMissingField, got %v", err)
		}
		if _, err := ExtractArtists(doc); !errors.Is(err, shared.ErrMissingField) {
			t.Errorf("artists: expected ErrMissingField, got %v", err)
		}
		if _, err := ExtractSongs(doc); !errors.Is(err, shared.ErrMissingField) {
			t.Errorf("songs: expected ErrMissingField, got %v", err)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		doc := twoSongsOneAlbum(t)

		first, err := Flatten([]*models.PlaylistTracks{doc}, MergeAccumulate)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := Flatten([]*models.PlaylistTracks{doc}, MergeAccumulate)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("expected identical datasets, got %+v and %+v", first, second)
		}
	})
}

func TestDedupe(t *testing.T) {
	t.Run("Albums Keep First", func(t *testing.T) {
		albums := []models.Album{
			{ID: "A1", Name: "first"},
			{ID: "A2", Name: "other"},
			{ID: "A1", Name: "second"},
			{ID: "A1", Name: "third"},
		}

		got := DedupeAlbums(albums)
		if len(got) != 2 {
			t.Fatalf("expected 2 albums, got %d", len(got))
		}
		if got[0].Name != "first" || got[1].ID != "A2" {
			t.Errorf("expected first occurrence in input order, got %+v", got)
		}
		if len(albums) != 4 {
			t.Error("expected input to be left untouched")
		}
	})

	t.Run("Artists Keep First", func(t *testing.T) {
		artists := []models.Artist{{ID: "R2", Name: "a"}, {ID: "R1"}, {ID: "R2", Name: "b"}}

		got := DedupeArtists(artists)
		if len(got) != 2 || got[0].Name != "a" || got[1].ID != "R1" {
			t.Errorf("unexpected dedupe result: %+v", got)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if got := DedupeAlbums(nil); len(got) != 0 {
			t.Errorf("expected empty result, got %v", got)
		}
		if got := DedupeArtists(nil); len(got) != 0 {
			t.Errorf("expected empty result, got %v", got)
		}
	})
}

func TestFlatten(t *testing.T) {
	first := decode(t, th.PlaylistDocument(t,
		th.TrackFixture{SongID: "S1", AlbumID: "A1", ArtistIDs: []string{"R1"}},
	))
	second := decode(t, th.PlaylistDocument(t,
		th.TrackFixture{SongID: "S2", AlbumID: "A2", ArtistIDs: []string{"R2"}},
		th.TrackFixture{SongID: "S3", AlbumID: "A1", ArtistIDs: []string{"R1"}},
	))

	t.Run("Accumulate", func(t *testing.T) {
		ds, err := Flatten([]*models.PlaylistTracks{first, second}, MergeAccumulate)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(ds.Songs) != 3 || len(ds.Albums) != 2 || len(ds.Artists) != 2 {
			t.Errorf("expected 3 songs, 2 albums, 2 artists, got %d, %d, %d", len(ds.Songs), len(ds.Albums), len(ds.Artists))
		}
		if ds.Songs[0].ID != "S1" || ds.Songs[2].ID != "S3" {
			t.Errorf("expected songs in document order, got %+v", ds.Songs)
		}
	})

	t.Run("Last", func(t *testing.T) {
		ds, err := Flatten([]*models.PlaylistTracks{first, second}, MergeLast)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(ds.Songs) != 2 || ds.Songs[0].ID != "S2" {
			t.Errorf("expected only the last document's songs, got %+v", ds.Songs)
		}
		if len(ds.Albums) != 2 || ds.Albums[0].ID != "A2" {
			t.Errorf("expected only the last document's albums, got %+v", ds.Albums)
		}
	})

	t.Run("Last Still Validates Earlier Documents", func(t *testing.T) {
		bad := decode(t, th.PlaylistDocument(t,
			th.TrackFixture{SongID: "S1", AlbumID: "A1", ReleaseDate: "bad", ArtistIDs: []string{"R1"}},
		))
		if _, err := Flatten([]*models.PlaylistTracks{bad, second}, MergeLast); !errors.Is(err, shared.ErrInvalidDate) {
			t.Errorf("expected ErrInvalidDate, got %v", err)
		}
	})

	t.Run("No Documents", func(t *testing.T) {
		ds, err := Flatten(nil, MergeAccumulate)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(ds.Songs) != 0 || len(ds.Albums) != 0 || len(ds.Artists) != 0 {
			t.Errorf("expected empty dataset, got %+v", ds)
		}
	})

	t.Run("Unknown Strategy", func(t *testing.T) {
		if _, err := Flatten([]*models.PlaylistTracks{first}, MergeStrategy("union")); err == nil {
			t.Error("expected error for unknown strategy")
		}
	})
}

func TestParseMergeStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    MergeStrategy
		wantErr bool
	}{
		{"", MergeAccumulate, false},
		{"accumulate", MergeAccumulate, false},
		{"last", MergeLast, false},
		{"first", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMergeStrategy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
