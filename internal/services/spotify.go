// Spotify Web API implementation of [Catalog]

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/spotetl/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1/"

	// upper bound on followed "next" links; a 100-item page size covers 100k tracks
	maxTrackPages = 1000
)

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	ClientID          string
	ClientSecret      string
	BaseURL           string       // API root, defaults to https://api.spotify.com/v1/
	TokenURL          string       // token endpoint, defaults to [spotifyauth.TokenURL]
	PageLimit         int          // items per page request, 1..100 (default 100)
	RequestsPerSecond float64      // page request throttle, 0 disables
	HTTPClient        *http.Client // transport for token and API calls, defaults to [http.DefaultClient]
}

// SpotifyService implements [Catalog] using the client-credentials flow.
//
// Metadata calls go through a [spotify.Client]; the playlist track listing is fetched with raw
// authenticated requests so the stored payload is exactly what the API returned.
type SpotifyService struct {
	credentials *clientcredentials.Config
	baseURL     string
	pageLimit   int
	limiter     *rate.Limiter
	base        *http.Client
	httpClient  *http.Client
	client      *spotify.Client
}

// NewSpotifyService creates a new Spotify service with the given client credentials.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if !strings.HasSuffix(opts.BaseURL, "/") {
		opts.BaseURL += "/"
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyauth.TokenURL
	}
	if opts.PageLimit <= 0 || opts.PageLimit > 100 {
		opts.PageLimit = 100
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &SpotifyService{
		credentials: &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		},
		baseURL:   opts.BaseURL,
		pageLimit: opts.PageLimit,
		limiter:   rate.NewLimiter(limit, 1),
		base:      opts.HTTPClient,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate requests an access token and prepares the authenticated clients.
//
// Tokens are refreshed transparently by the [oauth2] transport once they expire.
func (s *SpotifyService) Authenticate(ctx context.Context) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.base)

	token, err := s.credentials.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	src := oauth2.ReuseTokenSource(token, s.credentials.TokenSource(ctx))
	s.httpClient = oauth2.NewClient(ctx, src)
	s.client = spotify.New(s.httpClient, spotify.WithBaseURL(s.baseURL))
	return nil
}

// UserPlaylists retrieves the first page (up to 50) of a user's public playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, userID string) ([]Playlist, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: call Authenticate first", shared.ErrAuthFailed)
	}

	page, err := s.client.GetPlaylistsForUser(ctx, userID, spotify.Limit(50))
	if err != nil {
		return nil, mapSpotifyError(err)
	}

	playlists := make([]Playlist, 0, len(page.Playlists))
	for _, p := range page.Playlists {
		playlists = append(playlists, Playlist{
			ID:         string(p.ID),
			Name:       p.Name,
			TrackCount: int(p.Tracks.Total),
			Public:     p.IsPublic,
		})
	}
	return playlists, nil
}

// PlaylistTracks retrieves every track item of a playlist.
//
// The API pages the listing; pages are followed through their "next" links and merged into the
// first page's document, with "items" holding all items and "next" set to null.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) (json.RawMessage, error) {
	if s.httpClient == nil {
		return nil, fmt.Errorf("%w: call Authenticate first", shared.ErrAuthFailed)
	}

	query := url.Values{"limit": {strconv.Itoa(s.pageLimit)}}
	next := s.baseURL + "playlists/" + url.PathEscape(playlistID) + "/tracks?" + query.Encode()

	var document map[string]json.RawMessage
	items := []json.RawMessage{}

	for pages := 0; next != ""; pages++ {
		if pages == maxTrackPages {
			return nil, fmt.Errorf("%w: playlist %s exceeds %d pages", shared.ErrAPIRequest, playlistID, maxTrackPages)
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := s.getPage(ctx, next)
		if err != nil {
			return nil, err
		}

		var pageItems []json.RawMessage
		raw, ok := page["items"]
		if !ok {
			return nil, fmt.Errorf("%w: tracks page without items", shared.ErrMalformedPayload)
		}
		if err := json.Unmarshal(raw, &pageItems); err != nil {
			return nil, fmt.Errorf("%w: tracks page items: %v", shared.ErrMalformedPayload, err)
		}
		items = append(items, pageItems...)

		if document == nil {
			document = page
		}

		next = ""
		if raw, ok := page["next"]; ok {
			var link *string
			if err := json.Unmarshal(raw, &link); err != nil {
				return nil, fmt.Errorf("%w: tracks page next: %v", shared.ErrMalformedPayload, err)
			}
			if link != nil {
				next = *link
			}
		}
	}

	merged, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}
	document["items"] = merged
	document["next"] = json.RawMessage("null")

	out, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tracks document: %w", err)
	}
	return out, nil
}

// getPage performs an authenticated GET and decodes the top-level JSON object.
func (s *SpotifyService) getPage(ctx context.Context, endpoint string) (map[string]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: status %d", shared.ErrTokenExpired, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: status %d", shared.ErrPlaylistNotFound, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: spotify API error: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrMalformedPayload, err)
	}
	return page, nil
}

// mapSpotifyError converts [spotify.Error] statuses to shared sentinels.
func mapSpotifyError(err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", shared.ErrTokenExpired, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, apiErr.Message)
		}
		return fmt.Errorf("%w: spotify API error: status %d: %s", shared.ErrAPIRequest, apiErr.Status, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
}
