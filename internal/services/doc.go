// Package services defines the [Catalog] interface for music catalog APIs and implements it for Spotify.
//
// # Catalog Interface
//
// Ingestion only reads from the catalog: it authenticates, lists a reference user's playlists and
// fetches one playlist's track listing as a raw JSON document.
//
// # Spotify Implementation
//
// [SpotifyService] uses the OAuth2 client-credentials flow; no user authorization is involved.
// The [oauth2.Client] refreshes the access token transparently once it expires.
//
// Track listings are paged by the API. [SpotifyService.PlaylistTracks] follows the "next" links,
// throttled by a [rate.Limiter], and merges every page into a single document.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : client id or secret not configured
//   - [shared.ErrAuthFailed] : token request rejected, or Authenticate() not called
//   - [shared.ErrTokenExpired] : API answered 401
//   - [shared.ErrPlaylistNotFound] : API answered 404
//   - [shared.ErrAPIRequest] : any other failed request
//   - [shared.ErrInvalidPlaylistURL] : playlist link could not be parsed
package services
