// Package models defines the data shapes flowing through the spotetl pipeline.
//
// The package contains three categories of types:
//
// 1. Catalog schema: the subset of the Spotify playlist-tracks response consumed by transformation
//   - [PlaylistTracks] : one staged raw document (a page, or merged pages, of playlist items)
//   - [PlaylistItem] : a track item wrapping a [CatalogTrack] plus its added_at timestamp
//   - [CatalogTrack], [CatalogAlbum], [CatalogArtist] : nested catalog objects
//
// 2. Output records: the three tabular datasets written as CSV
//   - [Album] : deduplicated by album id
//   - [Artist] : deduplicated by artist id
//   - [Song] : one per track item, referencing an album and the album's first artist
//
// 3. Persistent entities: database-backed models with lifecycle timestamps
//   - [Run] : one ingestion or transformation invocation recorded in the run ledger
//
// Catalog types validate themselves ([PlaylistItem.Validate]) so missing nested objects surface as
// [shared.ErrMissingField] instead of nil dereferences.
package models
