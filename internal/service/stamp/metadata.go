package stamp

import (
	"context"
	"time"

	"github.com/oshokin/buildstamp/internal/domain/buildinfo"
	"github.com/oshokin/buildstamp/internal/logger"
	"github.com/oshokin/buildstamp/internal/repository/vcs"
)

// ReadMetadata queries the provider once per field and substitutes a fallback
// for every field whose query fails. Fields never affect each other.
func ReadMetadata(ctx context.Context, provider vcs.Provider, clock func() time.Time) buildinfo.RepositoryMetadata {
	if clock == nil {
		clock = time.Now
	}

	meta := buildinfo.RepositoryMetadata{
		CommitCount: buildinfo.FallbackCommitCount,
		ShortHash:   buildinfo.FallbackShortHash,
	}

	if count, err := provider.CommitCount(ctx); err != nil {
		logger.DebugKV(ctx, "Commit count unavailable, using fallback",
			"fallback", buildinfo.FallbackCommitCount, "error", err)
	} else {
		meta.CommitCount = count
	}

	if hash, err := provider.ShortHash(ctx); err != nil {
		logger.DebugKV(ctx, "Commit hash unavailable, using fallback",
			"fallback", buildinfo.FallbackShortHash, "error", err)
	} else {
		meta.ShortHash = hash
	}

	if ts, err := provider.CommitTimestamp(ctx); err != nil {
		meta.CommitTimestamp = clock().Unix()

		logger.DebugKV(ctx, "Commit time unavailable, using current time",
			"fallback", meta.CommitTimestamp, "error", err)
	} else {
		meta.CommitTimestamp = ts
	}

	return meta
}
