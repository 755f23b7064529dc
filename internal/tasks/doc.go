// Package tasks runs the two stages of the playlist pipeline.
//
// # Ingestion
//
// [Ingester.Run] authenticates against a [services.Catalog], logs the playlists of a reference user, fetches
// the complete track listing of one playlist and stages the raw JSON document under the staging prefix as
// "spotify_raw_<timestamp>.json". One object is written per run.
//
// # Transformation
//
// [Transformer.Run] reads every staged raw document, flattens it into three datasets and writes one CSV per
// dataset under its own prefix:
//   - songs: one row per playlist item, artist id taken from the album's first artist
//   - albums: one row per playlist item, deduplicated by album id (first wins)
//   - artists: one row per (item, track artist) pair, deduplicated by artist id (first wins)
//
// Consumed raw objects are then moved to the archive prefix under the same base name.
//
// # Merge Strategy
//
// When several documents are staged, [MergeAccumulate] keeps rows from all of them while [MergeLast] keeps
// only the last document's rows. Both archive every consumed object.
//
// The extraction helpers ([ExtractAlbums], [ExtractArtists], [ExtractSongs], [DedupeAlbums], [DedupeArtists]
// and [Flatten]) are pure functions with no hidden state.
//
// # Progress Reporting
//
// Both stages accept an optional channel of [ProgressUpdate]. Updates use select with default to prevent
// blocking.
//
// # Run Ledger
//
// The optional [RunStore] records each run's status, counts and touched object keys. The optional [Recorder]
// receives row, object and duration measurements.
package tasks
