// Package datagit synchronizes a record store of typed, identified
// entities with content-addressed commit history.
//
// Entities live in a mutable record store (package rdb) and are mapped
// into git trees as <type dir>/<category>/<refId>.json blobs (package
// repo). A synchronization map records the blob id of the last
// committed version of every entity; diffing the store against the map
// yields the uncommitted workspace changes.
//
// The two top-level operations are Commit, which writes workspace
// changes as a new commit and advances the map, and Merge, which
// integrates remote history into the local branch and the record
// store: it finds the merge base, diffs base against the remote head,
// resolves conflicts through a core.ConflictResolver, mounts missing
// library dependencies through a core.LibraryResolver, imports the
// resolved content, and fast-forwards or writes a merge commit.
//
// All failure modes are sentinel errors in package core so callers can
// branch on them with errors.Is.
package datagit
