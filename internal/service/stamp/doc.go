// Package stamp derives the build version of a Flutter project and hands it
// to the build.
//
// Derive is side-effect free: it reads the manifest and the repository and
// returns the composed version with its encoded payload. Run binds the
// payload to the environment and then triggers native-module injection,
// strictly in that order.
package stamp
