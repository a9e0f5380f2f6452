// Package repositories implements SQLite persistence for the catalog track cache.
//
// Repositories handle CRUD operations with atomic sequence generation for human-readable ordering.
// They support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [TrackRepository] : Track caching with lookups by catalog id and ISRC
//   - [TrackCacheAdapter] : Deduplicating cache writes used when catalog results are saved
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
