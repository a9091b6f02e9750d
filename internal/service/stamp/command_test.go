package stamp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/buildstamp/internal/config"
	"github.com/oshokin/buildstamp/internal/defines"
	"github.com/oshokin/buildstamp/internal/domain/buildinfo"
)

var errQueryFailed = errors.New("query failed")

// fakeProvider answers repository queries from fixed values or errors.
type fakeProvider struct {
	count    int
	countErr error
	hash     string
	hashErr  error
	ts       int64
	tsErr    error
	calls    []string
}

func (p *fakeProvider) CommitCount(context.Context) (int, error) {
	p.calls = append(p.calls, "count")
	return p.count, p.countErr
}

func (p *fakeProvider) ShortHash(context.Context) (string, error) {
	p.calls = append(p.calls, "hash")
	return p.hash, p.hashErr
}

func (p *fakeProvider) CommitTimestamp(context.Context) (int64, error) {
	p.calls = append(p.calls, "time")
	return p.ts, p.tsErr
}

func healthyProvider() *fakeProvider {
	return &fakeProvider{count: 100, hash: "abcdef123", ts: 1700000000}
}

func failingProvider() *fakeProvider {
	return &fakeProvider{countErr: errQueryFailed, hashErr: errQueryFailed, tsErr: errQueryFailed}
}

// recordingInjector remembers its calls and what the environment looked like at that moment.
type recordingInjector struct {
	envName string
	calls   [][2]string
	seenEnv []string
	err     error
}

func (r *recordingInjector) Inject(_ context.Context, scriptDir, projectRoot string) error {
	r.calls = append(r.calls, [2]string{scriptDir, projectRoot})
	r.seenEnv = append(r.seenEnv, os.Getenv(r.envName))

	return r.err
}

func projectWithManifest(t *testing.T, contents string) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, config.DefaultManifest), []byte(contents), 0o600))

	return root
}

// uniqueEnvName keeps parallel tests from sharing a variable.
func uniqueEnvName(t *testing.T) string {
	t.Helper()

	name := "BUILDSTAMP_TEST_" + strings.ToUpper(strings.NewReplacer("/", "_", "-", "_").Replace(t.Name()))
	t.Cleanup(func() {
		_ = os.Unsetenv(name)
	})

	return name
}

// TestReadMetadata_FailureIsolation checks that each field falls back on its own.
func TestReadMetadata_FailureIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Unix(1800000000, 0)
	clock := func() time.Time { return now }

	provider := healthyProvider()
	provider.countErr = errQueryFailed

	require.Equal(t, buildinfo.RepositoryMetadata{
		CommitCount:     buildinfo.FallbackCommitCount,
		ShortHash:       "abcdef123",
		CommitTimestamp: 1700000000,
	}, ReadMetadata(ctx, provider, clock))
	require.Equal(t, []string{"count", "hash", "time"}, provider.calls)

	provider = healthyProvider()
	provider.hashErr = errQueryFailed

	require.Equal(t, buildinfo.RepositoryMetadata{
		CommitCount:     100,
		ShortHash:       buildinfo.FallbackShortHash,
		CommitTimestamp: 1700000000,
	}, ReadMetadata(ctx, provider, clock))

	provider = healthyProvider()
	provider.tsErr = errQueryFailed

	require.Equal(t, buildinfo.RepositoryMetadata{
		CommitCount:     100,
		ShortHash:       "abcdef123",
		CommitTimestamp: now.Unix(),
	}, ReadMetadata(ctx, provider, clock))
}

// TestDerive_EndToEnd covers the full pipeline with every source available.
func TestDerive_EndToEnd(t *testing.T) {
	t.Parallel()

	root := projectWithManifest(t, "name: piliplus\nversion: 2.0.0+9\n")

	result, err := Derive(context.Background(), &Options{
		ProjectRoot: root,
		Provider:    healthyProvider(),
	})
	require.NoError(t, err)

	require.Equal(t, "2.0.0+9", result.ManifestVersion)
	require.Equal(t, buildinfo.ComposedVersion{
		Name: "2.0.0-abcdef123+100",
		Code: 100,
		Hash: "abcdef123",
		Time: 1700000000,
	}, result.Version)
	require.Equal(t, config.DefaultEnvName, result.EnvName)
	require.Equal(t, filepath.Join(root, config.DefaultScriptDir), result.ScriptDir)

	tokens := strings.Split(result.Payload, ",")
	require.Len(t, tokens, 4)

	lines, err := defines.Decode(result.Payload)
	require.NoError(t, err)
	require.Equal(t, []string{
		"pili.name=2.0.0-abcdef123+100",
		"pili.code=100",
		"pili.hash=abcdef123",
		"pili.time=1700000000",
	}, lines)
	require.Equal(t, lines, result.Lines)
}

// TestDerive_AllSourcesUnavailable falls back on every field.
func TestDerive_AllSourcesUnavailable(t *testing.T) {
	t.Parallel()

	before := time.Now()

	result, err := Derive(context.Background(), &Options{
		ProjectRoot: t.TempDir(),
		Provider:    failingProvider(),
	})
	require.NoError(t, err)

	require.Equal(t, config.DefaultFallbackVersion, result.ManifestVersion)
	require.Equal(t, "1.1.5-N/A+1", result.Version.Name)
	require.Equal(t, 1, result.Version.Code)
	require.Equal(t, "N/A", result.Version.Hash)
	require.WithinDuration(t, before, time.Unix(result.Version.Time, 0), 5*time.Second)
}

// TestDerive_Overrides applies options over the settings file.
func TestDerive_Overrides(t *testing.T) {
	t.Parallel()

	root := projectWithManifest(t, "version: 3.0.0\n")
	settings := "namespace: fromfile\nfallback_version: 9.9.9\nscript_dir: harmony\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, config.DefaultConfigFilename), []byte(settings), 0o600))

	result, err := Derive(context.Background(), &Options{
		ProjectRoot: root,
		EnvName:     "APP_DEFINES",
		Provider:    healthyProvider(),
	})
	require.NoError(t, err)
	require.Equal(t, "APP_DEFINES", result.EnvName)
	require.Equal(t, filepath.Join(root, "harmony"), result.ScriptDir)
	require.True(t, strings.HasPrefix(result.Lines[0], "fromfile.name="))

	result, err = Derive(context.Background(), &Options{
		ProjectRoot: root,
		Namespace:   "flag",
		Provider:    healthyProvider(),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(result.Lines[0], "flag.name="))
}

// TestDerive_InvalidSettings is the only failure Derive reports.
func TestDerive_InvalidSettings(t *testing.T) {
	t.Parallel()

	_, err := Derive(context.Background(), &Options{
		ProjectRoot: t.TempDir(),
		Namespace:   "bad,namespace",
		Provider:    healthyProvider(),
	})
	require.Error(t, err)

	_, err = Derive(context.Background(), &Options{
		ProjectRoot: t.TempDir(),
		ConfigPath:  filepath.Join(t.TempDir(), "missing.yaml"),
		Provider:    healthyProvider(),
	})
	require.Error(t, err)
}

// TestRun_BindsEnvironmentBeforeInjection verifies the ordering and the single injector call.
func TestRun_BindsEnvironmentBeforeInjection(t *testing.T) {
	t.Parallel()

	root := projectWithManifest(t, "version: 2.0.0+9\n")
	envName := uniqueEnvName(t)
	injector := &recordingInjector{envName: envName}

	var stdout bytes.Buffer

	err := Run(context.Background(), &Options{
		ProjectRoot: root,
		EnvName:     envName,
		Provider:    healthyProvider(),
		Injector:    injector,
		Stdout:      &stdout,
	})
	require.NoError(t, err)

	payload := os.Getenv(envName)
	require.NotEmpty(t, payload)

	require.Len(t, injector.calls, 1)
	require.Equal(t, [2]string{filepath.Join(root, config.DefaultScriptDir), root}, injector.calls[0])
	require.Equal(t, []string{payload}, injector.seenEnv)

	require.Equal(t, envName+"="+payload+"\n", stdout.String())
}

// TestRun_SkipEnv leaves the environment untouched but still injects.
func TestRun_SkipEnv(t *testing.T) {
	t.Parallel()

	envName := uniqueEnvName(t)
	injector := &recordingInjector{envName: envName}

	var stdout bytes.Buffer

	err := Run(context.Background(), &Options{
		ProjectRoot: t.TempDir(),
		EnvName:     envName,
		SkipEnv:     true,
		Format:      FormatRaw,
		Provider:    failingProvider(),
		Injector:    injector,
		Stdout:      &stdout,
	})
	require.NoError(t, err)

	_, set := os.LookupEnv(envName)
	require.False(t, set)
	require.Len(t, injector.calls, 1)

	lines, err := defines.Decode(stdout.String())
	require.NoError(t, err)
	require.Equal(t, "pili.hash=N/A", lines[2])
}

// TestRun_Formats checks the export rendering and rejects unknown formats.
func TestRun_Formats(t *testing.T) {
	t.Parallel()

	envName := uniqueEnvName(t)

	var stdout bytes.Buffer

	err := Run(context.Background(), &Options{
		ProjectRoot: t.TempDir(),
		EnvName:     envName,
		SkipEnv:     true,
		Format:      FormatExport,
		Provider:    healthyProvider(),
		Injector:    &recordingInjector{envName: envName},
		Stdout:      &stdout,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stdout.String(), "export "+envName+"='"))
	require.True(t, strings.HasSuffix(stdout.String(), "'\n"))

	err = Run(context.Background(), &Options{Format: "xml"})
	require.ErrorIs(t, err, errUnknownFormat)
}

// TestRun_InjectionFailure propagates the injector error and prints nothing.
func TestRun_InjectionFailure(t *testing.T) {
	t.Parallel()

	envName := uniqueEnvName(t)

	var stdout bytes.Buffer

	err := Run(context.Background(), &Options{
		ProjectRoot: t.TempDir(),
		EnvName:     envName,
		Provider:    healthyProvider(),
		Injector:    &recordingInjector{envName: envName, err: errQueryFailed},
		Stdout:      &stdout,
	})
	require.ErrorIs(t, err, errQueryFailed)
	require.Empty(t, stdout.String())
}

// TestWriteReport renders the YAML and JSON views.
func TestWriteReport(t *testing.T) {
	t.Parallel()

	root := projectWithManifest(t, "version: 2.0.0-rc.1+9\n")

	result, err := Derive(context.Background(), &Options{ProjectRoot: root, Provider: healthyProvider()})
	require.NoError(t, err)

	report := NewReport(result)
	require.NotNil(t, report.Manifest.Semver)
	require.EqualValues(t, 2, report.Manifest.Semver.Major)
	require.Equal(t, "rc.1", report.Manifest.Semver.Prerelease)
	require.Equal(t, "9", report.Manifest.Semver.Metadata)

	var buf bytes.Buffer

	require.NoError(t, WriteReport(&buf, ReportYAML, report))

	var fromYAML Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	require.Equal(t, *report, fromYAML)

	buf.Reset()
	require.NoError(t, WriteReport(&buf, ReportJSON, report))

	var fromJSON Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	require.Equal(t, "2.0.0-rc.1-abcdef123+100", fromJSON.Version.Name)

	require.Error(t, WriteReport(&buf, "toml", report))
}

// TestNewReport_NonSemverManifest omits the breakdown for free-form versions.
func TestNewReport_NonSemverManifest(t *testing.T) {
	t.Parallel()

	report := NewReport(&Result{ManifestVersion: "2024.10"})
	require.Nil(t, report.Manifest.Semver)
}
