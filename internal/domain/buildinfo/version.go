package buildinfo

import (
	"strconv"
	"strings"
)

const (
	// FallbackCommitCount is used when the commit count cannot be read.
	FallbackCommitCount = 1
	// FallbackShortHash is used when the tip commit hash cannot be read.
	FallbackShortHash = "N/A"
)

// RepositoryMetadata holds the facts read from the enclosing repository.
type RepositoryMetadata struct {
	// CommitCount is the number of commits reachable from HEAD.
	CommitCount int `json:"commit_count" yaml:"commit_count"`
	// ShortHash is the abbreviated hash of HEAD.
	ShortHash string `json:"short_hash" yaml:"short_hash"`
	// CommitTimestamp is the commit time of HEAD in Unix seconds.
	CommitTimestamp int64 `json:"commit_timestamp" yaml:"commit_timestamp"`
}

// ComposedVersion is the canonical build version handed to the build.
type ComposedVersion struct {
	// Name is the display version, "<base>-<hash>+<count>".
	Name string `json:"name" yaml:"name"`
	// Code is the monotonically increasing build counter.
	Code int `json:"code" yaml:"code"`
	// Hash is the abbreviated commit hash.
	Hash string `json:"hash" yaml:"hash"`
	// Time is the commit time in Unix seconds.
	Time int64 `json:"time" yaml:"time"`
}

// BaseVersion drops build metadata, everything from the first '+' on.
func BaseVersion(manifestVersion string) string {
	base, _, _ := strings.Cut(manifestVersion, "+")

	return base
}

// DisplayName renders "<base>-<hash>+<count>" without any extra separators.
func DisplayName(baseVersion, shortHash string, commitCount int) string {
	return baseVersion + "-" + shortHash + "+" + strconv.Itoa(commitCount)
}

// Compose merges the manifest version and repository metadata.
// The repository commit count replaces any build number from the manifest.
func Compose(manifestVersion string, meta RepositoryMetadata) ComposedVersion {
	return ComposedVersion{
		Name: DisplayName(BaseVersion(manifestVersion), meta.ShortHash, meta.CommitCount),
		Code: meta.CommitCount,
		Hash: meta.ShortHash,
		Time: meta.CommitTimestamp,
	}
}
