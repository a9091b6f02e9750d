// Package defines encodes a ComposedVersion into the DART_DEFINES format
// expected by `flutter assemble`: every "namespace.key=value" line is
// base64-encoded on its own and the tokens are joined with commas.
package defines
