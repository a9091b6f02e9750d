// Package vcs reads build facts from the enclosing version-control checkout.
//
// GitRepository shells out to the git binary and exposes the Provider
// interface that the stamp service depends on, so tests can swap in fakes.
package vcs
