// Package core defines the shared data model of datagit.
//
// It contains the closed set of entity types that can be versioned, the
// Reference value that identifies one entity, the Change value produced
// by diffs, and the collaborator contracts the orchestrators depend on:
// the record store with its synchronization map, the conflict resolver,
// the library resolver, and the optional progress monitor.
//
// The package has no dependencies on the git layer; everything here is
// plain data plus small interfaces.
package core
