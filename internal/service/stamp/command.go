package stamp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/buildstamp/internal/config"
	"github.com/oshokin/buildstamp/internal/defines"
	"github.com/oshokin/buildstamp/internal/domain/buildinfo"
	"github.com/oshokin/buildstamp/internal/inject"
	"github.com/oshokin/buildstamp/internal/logger"
	"github.com/oshokin/buildstamp/internal/manifest"
	"github.com/oshokin/buildstamp/internal/repository/vcs"
)

// Output formats accepted by Run.
const (
	FormatEnv    = "env"
	FormatExport = "export"
	FormatRaw    = "raw"
)

// Options contains inputs for the stamp entry points.
// Empty override fields keep the value from the settings file or its default.
type Options struct {
	// ConfigPath is the settings file. Empty means buildstamp.yaml in the project root, if present.
	ConfigPath string
	// ProjectRoot is the directory holding the manifest. Empty means the working directory.
	ProjectRoot string
	// Namespace overrides the define key prefix.
	Namespace string
	// EnvName overrides the environment variable that receives the payload.
	EnvName string
	// ScriptDir overrides the build-hook directory passed to the injector.
	ScriptDir string
	// InjectCommand overrides the native-module injection command.
	InjectCommand []string
	// SkipEnv leaves the process environment untouched.
	SkipEnv bool
	// Format selects how Run prints the payload: env, export or raw.
	Format string
	// Stdout receives the printed payload. Defaults to os.Stdout.
	Stdout io.Writer

	// Provider replaces the git-backed repository provider.
	Provider vcs.Provider
	// Injector replaces the command injector built from the settings.
	Injector inject.Injector
	// Clock supplies the fallback commit time. Defaults to time.Now.
	Clock func() time.Time
}

// Result is everything Derive learned about the build.
type Result struct {
	// ProjectRoot is the absolute project directory.
	ProjectRoot string
	// ScriptDir is the absolute build-hook directory.
	ScriptDir string
	// ManifestVersion is the version read from the manifest, build suffix included.
	ManifestVersion string
	// Metadata holds the repository facts after fallbacks.
	Metadata buildinfo.RepositoryMetadata
	// Version is the composed build version.
	Version buildinfo.ComposedVersion
	// Lines are the plain defines in payload order.
	Lines []string
	// Payload is the encoded DART_DEFINES value.
	Payload string
	// EnvName is the variable the payload is meant for.
	EnvName string

	cfg *config.Config
}

var errUnknownFormat = errors.New("unknown output format")

// Derive computes the build version for the project without side effects.
// It only fails on invalid settings; unavailable sources fall back silently.
func Derive(ctx context.Context, opts *Options) (*Result, error) {
	return derive(logger.WithName(ctx, "buildstamp"), opts)
}

func derive(ctx context.Context, opts *Options) (*Result, error) {
	root, cfg, err := resolve(opts)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "project_root", root)

	provider := opts.Provider
	if provider == nil {
		provider = vcs.NewGitRepository(root,
			vcs.WithBinary(cfg.GitBinary),
			vcs.WithHashLength(cfg.HashLength),
			vcs.WithTimeout(cfg.Timeout))
	}

	manifestVersion := manifest.ReadVersion(ctx, resolvePath(root, cfg.Manifest), cfg.FallbackVersion)
	meta := ReadMetadata(ctx, provider, opts.Clock)
	version := buildinfo.Compose(manifestVersion, meta)

	return &Result{
		ProjectRoot:     root,
		ScriptDir:       resolvePath(root, cfg.ScriptDir),
		ManifestVersion: manifestVersion,
		Metadata:        meta,
		Version:         version,
		Lines:           defines.Lines(version, cfg.Namespace),
		Payload:         defines.Encode(version, cfg.Namespace),
		EnvName:         cfg.EnvName,
		cfg:             cfg,
	}, nil
}

// Run derives the version, binds the payload to the environment, triggers
// native-module injection and prints the payload.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "buildstamp")

	format := opts.Format
	if format == "" {
		format = FormatEnv
	}

	if !isKnownFormat(format) {
		return fmt.Errorf("%w: %s", errUnknownFormat, format)
	}

	result, err := derive(ctx, opts)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Derived build version",
		"name", result.Version.Name, "code", result.Version.Code, "time", result.Version.Time)

	// The injector reads the payload from the environment, so binding comes first.
	if !opts.SkipEnv {
		if err = os.Setenv(result.EnvName, result.Payload); err != nil {
			return fmt.Errorf("set %s: %w", result.EnvName, err)
		}
	}

	injector := opts.Injector
	if injector == nil {
		injector = inject.New(result.cfg.InjectCommand, inject.WithEnv(result.EnvName+"="+result.Payload))
	}

	if err = injector.Inject(ctx, result.ScriptDir, result.ProjectRoot); err != nil {
		logger.ErrorKV(ctx, "Native-module injection failed", "error", err)
		return err
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	return writePayload(stdout, format, result)
}

// resolve loads the settings and applies the overrides from opts.
func resolve(opts *Options) (string, *config.Config, error) {
	root := opts.ProjectRoot
	if root == "" {
		root = "."
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return "", nil, fmt.Errorf("resolve project root: %w", err)
	}

	var cfg *config.Config

	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, _, err = config.LoadOptional(filepath.Join(root, config.DefaultConfigFilename))
	}

	if err != nil {
		return "", nil, err
	}

	if opts.Namespace != "" {
		cfg.Namespace = opts.Namespace
	}

	if opts.EnvName != "" {
		cfg.EnvName = opts.EnvName
	}

	if opts.ScriptDir != "" {
		cfg.ScriptDir = opts.ScriptDir
	}

	if len(opts.InjectCommand) > 0 {
		cfg.InjectCommand = append([]string(nil), opts.InjectCommand...)
	}

	if err = config.Validate(cfg); err != nil {
		return "", nil, err
	}

	return root, cfg, nil
}

// resolvePath anchors a relative path at the project root.
func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(root, path)
}

func isKnownFormat(format string) bool {
	switch format {
	case FormatEnv, FormatExport, FormatRaw:
		return true
	default:
		return false
	}
}

// writePayload prints the payload in the selected format.
// Base64 tokens and commas never need shell quoting beyond single quotes.
func writePayload(w io.Writer, format string, result *Result) error {
	var err error

	switch format {
	case FormatExport:
		_, err = fmt.Fprintf(w, "export %s='%s'\n", result.EnvName, result.Payload)
	case FormatRaw:
		_, err = fmt.Fprintln(w, result.Payload)
	default:
		_, err = fmt.Fprintf(w, "%s=%s\n", result.EnvName, result.Payload)
	}

	if err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	return nil
}
