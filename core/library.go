package core

import (
	"context"
	"fmt"
	"strings"
)

// Library describes an external data dependency by name and version.
// A commit whose repository info lists a library is only meaningful
// once that library is mounted locally.
type Library struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ID returns the canonical "name@version" identifier.
func (l Library) ID() string {
	return l.Name + "@" + l.Version
}

func (l Library) String() string {
	return l.ID()
}

// ParseLibraryID parses a "name@version" identifier.
func ParseLibraryID(id string) (Library, error) {
	i := strings.LastIndex(id, "@")
	if i <= 0 || i == len(id)-1 {
		return Library{}, fmt.Errorf("invalid library id %q", id)
	}
	return Library{Name: id[:i], Version: id[i+1:]}, nil
}

// MountableLibrary is a resolved library whose content can be mounted
// into a record store.
type MountableLibrary interface {
	// Spec returns the descriptor the library was resolved for.
	Spec() Library

	// Mount imports the library content into the store and registers
	// the library in the store's mount registry.
	Mount(ctx context.Context, store Store) error
}

// LibraryResolver supplies missing library dependencies before a merge
// imports any data. Returning (nil, nil) declines the dependency, which
// aborts the merge with ErrUnresolvableDependency.
type LibraryResolver interface {
	Resolve(ctx context.Context, lib Library) (MountableLibrary, error)
}
