// Package buildinfo contains the core version types.
//
// It defines RepositoryMetadata (facts read from version control) and
// ComposedVersion (the canonical record derived from the manifest version
// and that metadata), plus the pure composition rules between them.
package buildinfo
