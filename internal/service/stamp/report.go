package stamp

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/buildstamp/internal/domain/buildinfo"
)

// Report formats accepted by WriteReport.
const (
	ReportYAML = "yaml"
	ReportJSON = "json"
)

// Report is the printable view of a Result.
type Report struct {
	ProjectRoot string                       `json:"project_root" yaml:"project_root"`
	Manifest    ManifestReport               `json:"manifest"     yaml:"manifest"`
	Repository  buildinfo.RepositoryMetadata `json:"repository"   yaml:"repository"`
	Version     buildinfo.ComposedVersion    `json:"version"      yaml:"version"`
	Defines     []string                     `json:"defines"      yaml:"defines"`
	EnvName     string                       `json:"env_name"     yaml:"env_name"`
	Payload     string                       `json:"payload"      yaml:"payload"`
}

// ManifestReport describes the declared version.
type ManifestReport struct {
	Version string `json:"version" yaml:"version"`
	// Semver is nil when the declared version is not a semantic version.
	Semver *SemverParts `json:"semver,omitempty" yaml:"semver,omitempty"`
}

// SemverParts is the semantic-version breakdown of the declared version.
type SemverParts struct {
	Major      uint64 `json:"major"                yaml:"major"`
	Minor      uint64 `json:"minor"                yaml:"minor"`
	Patch      uint64 `json:"patch"                yaml:"patch"`
	Prerelease string `json:"prerelease,omitempty" yaml:"prerelease,omitempty"`
	Metadata   string `json:"metadata,omitempty"   yaml:"metadata,omitempty"`
}

// NewReport builds the printable view of a Result.
func NewReport(r *Result) *Report {
	report := &Report{
		ProjectRoot: r.ProjectRoot,
		Manifest:    ManifestReport{Version: r.ManifestVersion},
		Repository:  r.Metadata,
		Version:     r.Version,
		Defines:     append([]string(nil), r.Lines...),
		EnvName:     r.EnvName,
		Payload:     r.Payload,
	}

	if v, err := semver.StrictNewVersion(r.ManifestVersion); err == nil {
		report.Manifest.Semver = &SemverParts{
			Major:      v.Major(),
			Minor:      v.Minor(),
			Patch:      v.Patch(),
			Prerelease: v.Prerelease(),
			Metadata:   v.Metadata(),
		}
	}

	return report
}

// WriteReport prints the report as YAML or JSON.
func WriteReport(w io.Writer, format string, report *Report) error {
	switch format {
	case "", ReportYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)

		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}

		return encoder.Close()
	case ReportJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownFormat, format)
	}
}
