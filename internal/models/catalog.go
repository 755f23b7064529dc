package models

import (
	"encoding/json"
	"fmt"

	"github.com/desertthunder/spotetl/internal/shared"
)

// ExternalURLs holds the public links of a catalog object.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// CatalogArtist is a simplified artist object.
type CatalogArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Href string `json:"href"`
}

// CatalogAlbum is a simplified album object as embedded in a track.
type CatalogAlbum struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	ReleaseDate  string          `json:"release_date"`
	TotalTracks  int             `json:"total_tracks"`
	ExternalURLs ExternalURLs    `json:"external_urls"`
	Artists      []CatalogArtist `json:"artists"`
}

// CatalogTrack is a full track object.
type CatalogTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	DurationMS   int             `json:"duration_ms"`
	Popularity   int             `json:"popularity"`
	ExternalURLs ExternalURLs    `json:"external_urls"`
	Album        *CatalogAlbum   `json:"album"`
	Artists      []CatalogArtist `json:"artists"`
}

// PlaylistItem is one element of a playlist's track listing.
type PlaylistItem struct {
	AddedAt string        `json:"added_at"`
	Track   *CatalogTrack `json:"track"`
}

// PlaylistTracks is a playlist-tracks response. Fields other than items are not consumed.
type PlaylistTracks struct {
	Href  string         `json:"href"`
	Total int            `json:"total"`
	Items []PlaylistItem `json:"items"`
}

// DecodePlaylistTracks parses a staged raw document and validates every item.
func DecodePlaylistTracks(data []byte) (*PlaylistTracks, error) {
	var doc PlaylistTracks
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedPayload, err)
	}

	if doc.Items == nil {
		return nil, fmt.Errorf("%w: items", shared.ErrMissingField)
	}

	for i, item := range doc.Items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
	}

	return &doc, nil
}

// Validate reports the first missing nested object needed by album, artist and song extraction.
func (p PlaylistItem) Validate() error {
	switch {
	case p.Track == nil:
		return fmt.Errorf("%w: track", shared.ErrMissingField)
	case p.Track.Album == nil:
		return fmt.Errorf("%w: track.album", shared.ErrMissingField)
	case p.Track.Artists == nil:
		return fmt.Errorf("%w: track.artists", shared.ErrMissingField)
	case len(p.Track.Album.Artists) == 0:
		return fmt.Errorf("%w: track.album.artists[0]", shared.ErrMissingField)
	}
	return nil
}
