package tasks

import (
	"fmt"

	"github.com/desertthunder/spotetl/internal/models"
)

// ExtractAlbums projects one album row per playlist item. Release dates are parsed here so a
// malformed date fails before anything is written.
func ExtractAlbums(doc *models.PlaylistTracks) ([]models.Album, error) {
	albums := make([]models.Album, 0, len(doc.Items))
	for i, item := range doc.Items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}

		album := item.Track.Album
		released, err := models.ParseReleaseDate(album.ReleaseDate)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: album %s: %w", i, album.ID, err)
		}

		albums = append(albums, models.Album{
			ID:          album.ID,
			Name:        album.Name,
			ReleaseDate: released,
			TotalTracks: album.TotalTracks,
			URL:         album.ExternalURLs.Spotify,
		})
	}
	return albums, nil
}

// ExtractArtists projects one artist row per (item, track artist) pair.
func ExtractArtists(doc *models.PlaylistTracks) ([]models.Artist, error) {
	artists := []models.Artist{}
	for i, item := range doc.Items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}

		for _, artist := range item.Track.Artists {
			artists = append(artists, models.Artist{
				ID:   artist.ID,
				Name: artist.Name,
				URL:  artist.Href,
			})
		}
	}
	return artists, nil
}

// ExtractSongs projects one song row per playlist item. The artist id is the first artist of the
// track's album, not of the track.
func ExtractSongs(doc *models.PlaylistTracks) ([]models.Song, error) {
	songs := make([]models.Song, 0, len(doc.Items))
	for i, item := range doc.Items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}

		added, err := models.ParseAddedAt(item.AddedAt)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: song %s: %w", i, item.Track.ID, err)
		}

		track := item.Track
		songs = append(songs, models.Song{
			ID:         track.ID,
			Name:       track.Name,
			DurationMS: track.DurationMS,
			URL:        track.ExternalURLs.Spotify,
			Popularity: track.Popularity,
			AddedAt:    added,
			AlbumID:    track.Album.ID,
			ArtistID:   track.Album.Artists[0].ID,
		})
	}
	return songs, nil
}

// DedupeAlbums drops albums whose id was already seen, keeping the first occurrence and input order.
func DedupeAlbums(albums []models.Album) []models.Album {
	seen := make(map[string]struct{}, len(albums))
	out := make([]models.Album, 0, len(albums))
	for _, a := range albums {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// DedupeArtists drops artists whose id was already seen, keeping the first occurrence and input order.
func DedupeArtists(artists []models.Artist) []models.Artist {
	seen := make(map[string]struct{}, len(artists))
	out := make([]models.Artist, 0, len(artists))
	for _, a := range artists {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// Flatten extracts every document and combines the rows according to strategy, then dedupes
// albums and artists. Songs are never deduplicated.
//
// Every document is extracted even under [MergeLast], so a malformed earlier document still fails.
func Flatten(docs []*models.PlaylistTracks, strategy MergeStrategy) (*Dataset, error) {
	dataset := &Dataset{Albums: []models.Album{}, Artists: []models.Artist{}, Songs: []models.Song{}}

	for i, doc := range docs {
		albums, err := ExtractAlbums(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		artists, err := ExtractArtists(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		songs, err := ExtractSongs(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}

		switch strategy {
		case MergeLast:
			dataset.Albums, dataset.Artists, dataset.Songs = albums, artists, songs
		case MergeAccumulate:
			dataset.Albums = append(dataset.Albums, albums...)
			dataset.Artists = append(dataset.Artists, artists...)
			dataset.Songs = append(dataset.Songs, songs...)
		default:
			return nil, fmt.Errorf("unknown merge strategy %q", strategy)
		}
	}

	dataset.Albums = DedupeAlbums(dataset.Albums)
	dataset.Artists = DedupeArtists(dataset.Artists)
	return dataset, nil
}
