package manifest

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/oshokin/buildstamp/internal/logger"
)

// versionPattern captures the first "version:" declaration in the manifest.
// The token may carry pre-release and build parts, e.g. "1.2.3-rc.1+7".
var versionPattern = regexp.MustCompile(`version:\s*([\w.+-]+)`)

// ParseVersion extracts the declared version from manifest contents.
func ParseVersion(contents []byte) (string, bool) {
	match := versionPattern.FindSubmatch(contents)
	if len(match) < 2 || len(match[1]) == 0 {
		return "", false
	}

	return string(match[1]), true
}

// ReadVersion returns the version declared in the manifest at path, or fallback
// when the file cannot be read or declares no version.
func ReadVersion(ctx context.Context, path, fallback string) string {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		logger.DebugKV(ctx, "Manifest unavailable, using fallback version",
			"path", path, "fallback", fallback, "error", err)

		return fallback
	}

	version, ok := ParseVersion(contents)
	if !ok {
		logger.DebugKV(ctx, "Manifest declares no version, using fallback version",
			"path", path, "fallback", fallback)

		return fallback
	}

	return version
}
