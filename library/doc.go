// Package library resolves and mounts external data dependencies.
//
// A library package is a zstd-compressed tar archive of entity files in
// the same <type dir>/<category>/<refId>.json layout commits use, named
// "<name>@<version>.dglib". Resolvers locate packages in a local
// directory, an S3 bucket, or an HTTPS repository with bearer-token
// auth; a Chain tries several in order. Mounting imports the package
// content into the record store and registers the library in the
// store's mount registry.
package library
