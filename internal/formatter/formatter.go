// package formatter renders the transformed datasets as CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/desertthunder/spotetl/internal/models"
)

var (
	AlbumHeaders  = []string{"album_id", "album_name", "album_release_date", "album_total_tracks", "album_url"}
	ArtistHeaders = []string{"artist_id", "artist_name", "artist_url"}
	SongHeaders   = []string{
		"song_id", "song_name", "song_duration", "song_url", "song_popularity", "song_added", "album_id", "artist_id",
	}
)

// AlbumsCSV converts album rows to CSV with columns: album_id, album_name, album_release_date, album_total_tracks, album_url
func AlbumsCSV(albums []models.Album) ([]byte, error) {
	records := make([][]string, 0, len(albums))
	for _, a := range albums {
		records = append(records, []string{
			a.ID,
			a.Name,
			a.ReleaseDate.Format(models.ReleaseDateLayout),
			strconv.Itoa(a.TotalTracks),
			a.URL,
		})
	}
	return writeCSV(AlbumHeaders, records)
}

// ArtistsCSV converts artist rows to CSV with columns: artist_id, artist_name, artist_url
func ArtistsCSV(artists []models.Artist) ([]byte, error) {
	records := make([][]string, 0, len(artists))
	for _, a := range artists {
		records = append(records, []string{a.ID, a.Name, a.URL})
	}
	return writeCSV(ArtistHeaders, records)
}

// SongsCSV converts song rows to CSV with columns:
// song_id, song_name, song_duration, song_url, song_popularity, song_added, album_id, artist_id
//
// song_duration is in milliseconds and song_added is RFC 3339 in UTC.
func SongsCSV(songs []models.Song) ([]byte, error) {
	records := make([][]string, 0, len(songs))
	for _, s := range songs {
		records = append(records, []string{
			s.ID,
			s.Name,
			strconv.Itoa(s.DurationMS),
			s.URL,
			strconv.Itoa(s.Popularity),
			s.AddedAt.UTC().Format(models.AddedAtLayout),
			s.AlbumID,
			s.ArtistID,
		})
	}
	return writeCSV(SongHeaders, records)
}

func writeCSV(headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}
