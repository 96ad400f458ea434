// Package repo implements the content-addressed history layer of
// datagit on top of go-git plumbing.
//
// Entities are stored as git blobs under
// <type dir>/<category>/<refId>.json, grouped into trees and commits.
// All objects are written directly into the object store; there is no
// worktree. The package provides the diff engine over entity trees, the
// commit graph algorithms (ahead, behind, common ancestor), the commit
// writer with structural sharing, and the store reader that resolves
// merge conflicts through a caller-supplied resolver.
package repo
