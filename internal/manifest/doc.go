// Package manifest reads the declared version from a project manifest.
//
// The manifest is matched textually rather than decoded: any line that
// looks like "version: X" is enough, and anything unreadable degrades to
// the caller's fallback instead of an error.
package manifest
