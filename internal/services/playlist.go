package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/spotetl/internal/shared"
)

// ParsePlaylistID extracts the playlist ID from a playlist link.
//
// Supported forms:
//
//	https://open.spotify.com/playlist/6VOedaf3eNWDOVpa9Qdlvg?si=abc
//	spotify:playlist:6VOedaf3eNWDOVpa9Qdlvg
//	6VOedaf3eNWDOVpa9Qdlvg
func ParsePlaylistID(link string) (string, error) {
	link = strings.TrimSpace(link)

	var id string
	switch {
	case strings.HasPrefix(link, "spotify:playlist:"):
		id = strings.TrimPrefix(link, "spotify:playlist:")
	case strings.Contains(link, "://"):
		u, err := url.Parse(link)
		if err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrInvalidPlaylistURL, err)
		}
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(segments) < 2 || segments[len(segments)-2] != "playlist" {
			return "", fmt.Errorf("%w: %s", shared.ErrInvalidPlaylistURL, link)
		}
		id = segments[len(segments)-1]
	default:
		id = link
	}

	if !isBase62(id) {
		return "", fmt.Errorf("%w: %q is not a playlist id", shared.ErrInvalidPlaylistURL, id)
	}
	return id, nil
}

func isBase62(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
