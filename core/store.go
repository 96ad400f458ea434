package core

// Store is the record store collaborator together with its
// synchronization map. The record store holds the live, mutable state
// of every entity; the synchronization map records, per reference, the
// blob id of the last committed or imported version. Because the record
// store is not content-addressed, the map is the only way to compute
// what changed since the last commit.
//
// Implementations must make ApplyImport atomic per entity: the record
// write and the map update happen in one transaction, and a failed
// transaction leaves both unchanged.
type Store interface {
	// Get returns the serialized content of the entity, or ok false if
	// the entity does not exist.
	Get(ref Reference) (data []byte, ok bool, err error)

	// Put inserts or replaces the entity content.
	Put(ref Reference, data []byte) error

	// PutMounted inserts content owned by a mounted library. Library
	// records are readable through Get like any other entity but are
	// excluded from Each, so they never enter workspace diffs or
	// commits.
	PutMounted(ref Reference, data []byte, lib Library) error

	// Delete removes the entity. Deleting a missing entity is a no-op.
	Delete(ref Reference) error

	// Each calls fn for every locally owned entity in the store.
	// Library-owned records are skipped. Iteration order is
	// unspecified; fn must not mutate the store.
	Each(fn func(ref Reference, data []byte) error) error

	// Synced returns the last synced blob id for the reference.
	Synced(ref Reference) (blobID string, ok bool, err error)

	// EachSynced calls fn for every synchronization map entry.
	EachSynced(fn func(ref Reference, blobID string) error) error

	// SetSynced records blobID as the last synced id for the
	// reference, after a successful local commit.
	SetSynced(ref Reference, blobID string) error

	// RemoveSynced drops the map entry for the reference. Deleted
	// entities are removed from the map, never left dangling.
	RemoveSynced(ref Reference) error

	// ApplyImport writes the imported content and the map entry in one
	// transaction. data nil deletes the entity and removes the map
	// entry.
	ApplyImport(ref Reference, data []byte, blobID string) error

	// Head returns the commit id the store was last synchronized to,
	// or "" if it never was.
	Head() (string, error)

	// SetHead records the commit id the store is now synchronized to.
	SetHead(commitID string) error

	// Libraries lists the mounted library dependencies.
	Libraries() ([]Library, error)

	// AddLibrary registers a mounted library.
	AddLibrary(lib Library) error
}
