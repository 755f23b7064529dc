// Catalog abstraction over music streaming APIs

package services

import (
	"context"
	"encoding/json"
)

// Catalog defines the read-only catalog operations used by ingestion.
type Catalog interface {
	// Authenticate obtains an access token. Returns an error wrapping [shared.ErrAuthFailed] on rejection.
	Authenticate(ctx context.Context) error

	// UserPlaylists retrieves the first page of a user's public playlists.
	UserPlaylists(ctx context.Context, userID string) ([]Playlist, error)

	// PlaylistTracks retrieves the complete track listing of a playlist as a raw JSON document.
	PlaylistTracks(ctx context.Context, playlistID string) (json.RawMessage, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// Playlist represents playlist metadata from a catalog listing
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"track_count"`
	Public     bool   `json:"public"`
}
