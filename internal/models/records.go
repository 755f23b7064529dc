package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/spotetl/internal/shared"
)

const (
	ReleaseDateLayout = "2006-01-02" // canonical album_release_date
	AddedAtLayout     = time.RFC3339 // canonical song_added
)

// release dates come with year, month or day precision
var releaseDateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// Album is one row of the album dataset.
type Album struct {
	ID          string
	Name        string
	ReleaseDate time.Time
	TotalTracks int
	URL         string
}

// Artist is one row of the artist dataset.
type Artist struct {
	ID   string
	Name string
	URL  string
}

// Song is one row of the song dataset. ArtistID is the first artist of the song's album.
type Song struct {
	ID         string
	Name       string
	DurationMS int
	URL        string
	Popularity int
	AddedAt    time.Time
	AlbumID    string
	ArtistID   string
}

// ParseReleaseDate parses an album release date of day, month or year precision.
// Month and year precision resolve to the first day of the period.
func ParseReleaseDate(s string) (time.Time, error) {
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: release_date %q", shared.ErrInvalidDate, s)
}

// ParseAddedAt parses a playlist item's added_at timestamp and normalizes it to UTC.
func ParseAddedAt(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: added_at %q", shared.ErrInvalidDate, s)
	}
	return t.UTC(), nil
}
