// Package config layers compiler defaults from a project TOML manifest, a
// sidecar YAML file, and CLI flags, cheapest-first. The TOML manifest names
// the project and its default top-level function (grounded on
// vovakirdan-surge's cmd/surge/project_manifest.go surge.toml handling);
// the YAML sidecar carries scheduler/emitter tuning defaults (grounded on
// tinyrange-cc's cmd/ccapp/site_config.go site-config.yml handling).
// Flags passed on the command line always win.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// ManifestFilename is the project manifest surge.toml-style file this
// package searches for, walking up from a start directory.
const ManifestFilename = "hlsc.toml"

// SidecarFilename is the optional YAML defaults file that LoadDefaults reads
// from the directory it is given, if present. That directory need not be
// the one holding the manifest, which FindManifest locates by walking up.
const SidecarFilename = "hlsc.yml"

// Manifest is the decoded project-level configuration: the project's name
// and the default top-level function to compile when --top is omitted.
type Manifest struct {
	Path string
	Root string

	Package PackageConfig
	Build   BuildConfig
}

// PackageConfig mirrors surge.toml's [package] table.
type PackageConfig struct {
	Name          string `toml:"name"`
	SchemaVersion string `toml:"schema_version"`
}

// BuildConfig mirrors surge.toml's [run] table, renamed to the compiler's
// own vocabulary.
type BuildConfig struct {
	Top string `toml:"top"`
}

// Defaults is the decoded sidecar YAML: scheduler and emitter knobs a site
// wants to pre-configure without repeating them on every invocation.
type Defaults struct {
	ClockPeriodPs           int64  `yaml:"clock_period_ps"`
	ClockMarginPercent      int64  `yaml:"clock_margin_percent"`
	PeriodRelaxationPercent int64  `yaml:"period_relaxation_percent"`
	DelayModel              string `yaml:"delay_model"`
	Strategy                string `yaml:"strategy"`
}

// FindManifest walks up from startDir looking for hlsc.toml, the way
// findSurgeToml walks up looking for surge.toml.
func FindManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("resolving start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestFilename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadManifest loads and validates startDir's hlsc.toml, if any. It returns
// ok=false with no error when no manifest is found.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}

	var cfg struct {
		Package PackageConfig `toml:"package"`
		Build   BuildConfig   `toml:"build"`
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, true, fmt.Errorf("%s: parsing TOML: %w", path, err)
	}
	if !meta.IsDefined("package", "name") {
		return nil, true, fmt.Errorf("%s: missing required [package] name", path)
	}
	if cfg.Package.SchemaVersion != "" && !semver.IsValid("v"+cfg.Package.SchemaVersion) {
		return nil, true, fmt.Errorf("%s: schema_version %q is not valid semver", path, cfg.Package.SchemaVersion)
	}

	return &Manifest{
		Path:    path,
		Root:    filepath.Dir(path),
		Package: cfg.Package,
		Build:   cfg.Build,
	}, true, nil
}

// LoadDefaults reads dir/hlsc.yml, returning a zero Defaults if the file
// does not exist. Matches site_config.go's "missing file is not an error"
// contract; unlike that file it propagates parse errors rather than
// logging and swallowing them, since a compiler misconfiguration should
// fail the build, not silently degrade it.
func LoadDefaults(dir string) (Defaults, error) {
	path := filepath.Join(dir, SidecarFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults{}, nil
		}
		return Defaults{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Defaults{}, fmt.Errorf("%s: parsing YAML: %w", path, err)
	}
	return d, nil
}

// Resolved is the final layered configuration: sidecar defaults overridden
// by the manifest's [build] top, overridden in turn by whatever the caller
// passes as explicit CLI overrides (flagsSet reports which flags the user
// actually typed, since a flag's Go zero value is indistinguishable from
// "not passed").
type Resolved struct {
	Top                     string
	ClockPeriodPs           int64
	ClockMarginPercent      int64
	PeriodRelaxationPercent int64
	DelayModel              string
}

// Resolve layers defaults < manifest < explicit flag overrides. override
// fields are applied only when the matching key in flagsSet is true.
func Resolve(defaults Defaults, manifest *Manifest, override Resolved, flagsSet map[string]bool) Resolved {
	out := Resolved{
		ClockPeriodPs:           defaults.ClockPeriodPs,
		ClockMarginPercent:      defaults.ClockMarginPercent,
		PeriodRelaxationPercent: defaults.PeriodRelaxationPercent,
		DelayModel:              defaults.DelayModel,
		Top:                     "main",
	}
	if manifest != nil && manifest.Build.Top != "" {
		out.Top = manifest.Build.Top
	}

	if flagsSet["top"] {
		out.Top = override.Top
	}
	if flagsSet["clock_period_ps"] {
		out.ClockPeriodPs = override.ClockPeriodPs
	}
	if flagsSet["clock_margin_percent"] {
		out.ClockMarginPercent = override.ClockMarginPercent
	}
	if flagsSet["period_relaxation_percent"] {
		out.PeriodRelaxationPercent = override.PeriodRelaxationPercent
	}
	if flagsSet["delay_model"] {
		out.DelayModel = override.DelayModel
	}
	if out.DelayModel == "" {
		out.DelayModel = "table"
	}
	return out
}
