package core

import "errors"

// Error taxonomy of the versioning core. All failures surfaced by the
// orchestrators wrap one of these sentinels, with the failing reference
// attached where one applies.
var (
	// ErrEmptyCommit is returned when a non-merge commit is requested
	// with an empty change list.
	ErrEmptyCommit = errors.New("nothing to commit")

	// ErrNoCommonHistory is returned when two refs share no ancestor
	// commit.
	ErrNoCommonHistory = errors.New("no common history")

	// ErrUnresolvableDependency is returned when a required library is
	// missing locally and the library resolver declined it or was not
	// configured.
	ErrUnresolvableDependency = errors.New("unresolvable library dependency")

	// ErrUnresolvedConflict is returned when both sides changed an
	// entity and no conflict resolver decision is available.
	ErrUnresolvedConflict = errors.New("unresolved conflict")

	// ErrCorruptObject is returned when stored content does not hash
	// back to its claimed object id.
	ErrCorruptObject = errors.New("corrupt object")

	// ErrStoreWriteFailure is returned when a record store transaction
	// failed mid-import.
	ErrStoreWriteFailure = errors.New("record store write failed")
)
