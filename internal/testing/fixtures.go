package testing

import (
	"encoding/json"
	"testing"
)

// TrackFixture describes one playlist item of a raw tracks document.
//
// Zero values get defaults: release date "2020-05-01", added_at "2024-01-01T00:00:00Z", and an album artist
// equal to the first track artist.
type TrackFixture struct {
	SongID        string
	SongName      string
	AlbumID       string
	AlbumName     string
	ReleaseDate   string
	AlbumArtistID string
	ArtistIDs     []string
	AddedAt       string
	OmitAlbum     bool
	OmitArtists   bool
}

func (f TrackFixture) item() map[string]any {
	releaseDate := f.ReleaseDate
	if releaseDate == "" {
		releaseDate = "2020-05-01"
	}
	addedAt := f.AddedAt
	if addedAt == "" {
		addedAt = "2024-01-01T00:00:00Z"
	}
	albumArtist := f.AlbumArtistID
	if albumArtist == "" && len(f.ArtistIDs) > 0 {
		albumArtist = f.ArtistIDs[0]
	}

	artists := make([]map[string]any, 0, len(f.ArtistIDs))
	for _, id := range f.ArtistIDs {
		artists = append(artists, artist(id))
	}

	track := map[string]any{
		"id":            f.SongID,
		"name":          f.SongName,
		"duration_ms":   200000,
		"popularity":    50,
		"external_urls": map[string]string{"spotify": "https://open.spotify.com/track/" + f.SongID},
	}
	if !f.OmitArtists {
		track["artists"] = artists
	}
	if !f.OmitAlbum {
		track["album"] = map[string]any{
			"id":            f.AlbumID,
			"name":          f.AlbumName,
			"release_date":  releaseDate,
			"total_tracks":  10,
			"external_urls": map[string]string{"spotify": "https://open.spotify.com/album/" + f.AlbumID},
			"artists":       []map[string]any{artist(albumArtist)},
		}
	}

	return map[string]any{"added_at": addedAt, "track": track}
}

func artist(id string) map[string]any {
	return map[string]any{
		"id":   id,
		"name": "Artist " + id,
		"href": "https://api.spotify.com/v1/artists/" + id,
	}
}

// PlaylistDocument builds a raw playlist-tracks document containing the given items.
func PlaylistDocument(t *testing.T, tracks ...TrackFixture) []byte {
	t.Helper()

	items := make([]map[string]any, 0, len(tracks))
	for _, f := range tracks {
		items = append(items, f.item())
	}

	data, err := json.Marshal(map[string]any{
		"href":  "https://api.spotify.com/v1/playlists/6VOedaf3eNWDOVpa9Qdlvg/tracks",
		"total": len(items),
		"next":  nil,
		"items": items,
	})
	if err != nil {
		t.Fatalf("failed to build playlist document: %v", err)
	}
	return data
}
