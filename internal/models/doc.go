// Package models defines domain entities and persistence interfaces for the spotify2apple catalog cache.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external service data
//   - [Track] : Song metadata flattened from a catalog search result
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedTrack] : Cached catalog tracks, indexed by ISRC
//
// Persistent entities implement the [Model] interface providing IDs, timestamps, validation, and soft delete support.
// The [Repository] interface defines standard CRUD operations for database access.
package models
