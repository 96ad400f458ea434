// Package rdb implements the record store collaborator and its
// synchronization map.
//
// The primary implementation persists records, sync ids, the mounted
// library registry and the synced head commit in a DuckDB database,
// giving the per-entity import transaction real transactional
// semantics. NewMemory returns a map-backed implementation of the same
// interface for tests and ephemeral use.
package rdb
