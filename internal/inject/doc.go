// Package inject triggers the downstream native-module injection step.
//
// The step itself belongs to the build toolchain; this package only runs the
// configured command once, passing the hook directory and the project root
// as its last two positional arguments.
package inject
