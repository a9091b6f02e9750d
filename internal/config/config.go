package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Config holds the knobs that shape the derived build version and its payload.
type Config struct {
	// Manifest is the manifest path relative to the project root.
	Manifest string `yaml:"manifest"`
	// Namespace prefixes every define key, e.g. "pili" in "pili.name".
	Namespace string `yaml:"namespace"`
	// EnvName is the environment variable that receives the encoded payload.
	EnvName string `yaml:"env_name"`
	// FallbackVersion is used when the manifest is missing or has no version.
	FallbackVersion string `yaml:"fallback_version"`
	// HashLength is the number of hex characters in the abbreviated commit hash.
	HashLength int `yaml:"hash_length"`
	// GitBinary is the git executable used for repository queries.
	GitBinary string `yaml:"git_binary"`
	// Timeout bounds every single git invocation. Zero disables the bound.
	Timeout time.Duration `yaml:"timeout"`
	// ScriptDir is the build-hook directory passed to the injector, relative to the project root.
	ScriptDir string `yaml:"script_dir"`
	// InjectCommand is the native-module injection command. Empty means no injection.
	InjectCommand []string `yaml:"inject_command,omitempty"`
}

const (
	// DefaultConfigFilename is the settings file looked up in the project root.
	DefaultConfigFilename = "buildstamp.yaml"

	// DefaultManifest is the Flutter manifest holding the declared version.
	DefaultManifest = "pubspec.yaml"

	// DefaultNamespace is the key prefix of the emitted defines.
	DefaultNamespace = "pili"

	// DefaultEnvName is the variable read by `flutter assemble`.
	DefaultEnvName = "DART_DEFINES"

	// DefaultFallbackVersion is reported when the manifest gives no version.
	DefaultFallbackVersion = "1.1.5"

	// DefaultHashLength is the length of the abbreviated commit hash.
	DefaultHashLength = 9

	// DefaultGitBinary is the git executable looked up on PATH.
	DefaultGitBinary = "git"

	// DefaultScriptDir is where the HarmonyOS build hook lives.
	DefaultScriptDir = "ohos"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	minHashLength = 4
	maxHashLength = 40
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidNamespace is returned for namespaces that would break the payload format.
	errInvalidNamespace = errors.New("namespace must be non-empty and must not contain '=', ',' or whitespace")
	// errInvalidEnvName is returned when the variable name is not a shell identifier.
	errInvalidEnvName = errors.New("environment variable name must match [A-Za-z_][A-Za-z0-9_]*")
	// errInvalidHashLength is returned when the hash length is out of git's range.
	errInvalidHashLength = errors.New("hash length must be between 4 and 40")
	// errNegativeTimeout is returned for a negative git timeout.
	errNegativeTimeout = errors.New("timeout must not be negative")

	envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Default returns a configuration populated with every default value.
func Default() *Config {
	return &Config{
		Manifest:        DefaultManifest,
		Namespace:       DefaultNamespace,
		EnvName:         DefaultEnvName,
		FallbackVersion: DefaultFallbackVersion,
		HashLength:      DefaultHashLength,
		GitBinary:       DefaultGitBinary,
		ScriptDir:       DefaultScriptDir,
	}
}

// Load reads configuration from the provided path and validates it.
// Fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOptional loads the settings file at path if it exists and returns defaults otherwise.
// The second return value reports whether a file was read.
func LoadOptional(path string) (*Config, bool, error) {
	if _, err := os.Stat(filepath.Clean(path)); errors.Is(err, os.ErrNotExist) {
		return Default(), false, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, false, err
	}

	return cfg, true, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults for empty fields and rejects values that would corrupt the payload.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Manifest == "" {
		cfg.Manifest = DefaultManifest
	}

	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}

	if strings.ContainsAny(cfg.Namespace, "=, \t\r\n") {
		return fmt.Errorf("%w: %q", errInvalidNamespace, cfg.Namespace)
	}

	if cfg.EnvName == "" {
		cfg.EnvName = DefaultEnvName
	}

	if !envNamePattern.MatchString(cfg.EnvName) {
		return fmt.Errorf("%w: %q", errInvalidEnvName, cfg.EnvName)
	}

	if cfg.FallbackVersion == "" {
		cfg.FallbackVersion = DefaultFallbackVersion
	}

	if _, err := semver.StrictNewVersion(cfg.FallbackVersion); err != nil {
		return fmt.Errorf("invalid fallback version %q: %w", cfg.FallbackVersion, err)
	}

	if cfg.HashLength == 0 {
		cfg.HashLength = DefaultHashLength
	}

	if cfg.HashLength < minHashLength || cfg.HashLength > maxHashLength {
		return fmt.Errorf("%w: %d", errInvalidHashLength, cfg.HashLength)
	}

	if cfg.GitBinary == "" {
		cfg.GitBinary = DefaultGitBinary
	}

	if cfg.Timeout < 0 {
		return errNegativeTimeout
	}

	if cfg.ScriptDir == "" {
		cfg.ScriptDir = DefaultScriptDir
	}

	return nil
}
