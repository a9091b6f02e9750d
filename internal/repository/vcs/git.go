package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Provider defines the repository facts needed to stamp a build.
type Provider interface {
	CommitCount(ctx context.Context) (int, error)
	ShortHash(ctx context.Context) (string, error)
	CommitTimestamp(ctx context.Context) (int64, error)
}

// GitRepository answers Provider queries by running git inside a checkout.
type GitRepository struct {
	// dir is the working directory for every git invocation.
	dir string
	// binary is the git executable.
	binary string
	// hashLength is the abbreviation length passed to rev-parse.
	hashLength int
	// timeout bounds a single invocation; zero means no bound.
	timeout time.Duration
}

// Option configures a GitRepository.
type Option func(*GitRepository)

const (
	defaultBinary     = "git"
	defaultHashLength = 9
)

var (
	// ErrEmptyOutput is returned when git succeeds but prints nothing.
	ErrEmptyOutput = errors.New("empty git output")
	// ErrMalformedOutput is returned when git output does not have the expected shape.
	ErrMalformedOutput = errors.New("malformed git output")

	hexPattern = regexp.MustCompile(`^[0-9a-f]+$`)
)

// WithBinary overrides the git executable.
func WithBinary(binary string) Option {
	return func(r *GitRepository) {
		if binary = strings.TrimSpace(binary); binary != "" {
			r.binary = binary
		}
	}
}

// WithHashLength sets the abbreviated hash length.
func WithHashLength(n int) Option {
	return func(r *GitRepository) {
		if n > 0 {
			r.hashLength = n
		}
	}
}

// WithTimeout bounds every git invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(r *GitRepository) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// NewGitRepository creates a provider for the checkout containing dir.
func NewGitRepository(dir string, opts ...Option) *GitRepository {
	r := &GitRepository{
		dir:        dir,
		binary:     defaultBinary,
		hashLength: defaultHashLength,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// CommitCount returns the number of commits reachable from HEAD.
func (r *GitRepository) CommitCount(ctx context.Context) (int, error) {
	out, err := r.run(ctx, "rev-list", "--count", "HEAD")
	if err != nil {
		return 0, err
	}

	count, err := strconv.Atoi(out)
	if err != nil || count < 0 {
		return 0, fmt.Errorf("%w: commit count %q", ErrMalformedOutput, out)
	}

	return count, nil
}

// ShortHash returns the abbreviated hash of HEAD.
func (r *GitRepository) ShortHash(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--short="+strconv.Itoa(r.hashLength), "HEAD")
	if err != nil {
		return "", err
	}

	if !hexPattern.MatchString(out) {
		return "", fmt.Errorf("%w: short hash %q", ErrMalformedOutput, out)
	}

	return out, nil
}

// CommitTimestamp returns the commit time of HEAD in Unix seconds.
func (r *GitRepository) CommitTimestamp(ctx context.Context) (int64, error) {
	out, err := r.run(ctx, "show", "-s", "--format=%ct", "HEAD")
	if err != nil {
		return 0, err
	}

	ts, err := strconv.ParseInt(out, 10, 64)
	if err != nil || ts < 0 {
		return 0, fmt.Errorf("%w: commit time %q", ErrMalformedOutput, out)
	}

	return ts, nil
}

// run executes a single git command and returns its trimmed stdout.
// A non-zero exit is an error carrying git's stderr.
func (r *GitRepository) run(ctx context.Context, args ...string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = r.dir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, msg)
		}

		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), ErrEmptyOutput)
	}

	return out, nil
}
