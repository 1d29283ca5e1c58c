// Package project reads the klare.json project manifest and validates
// its language version constraint against the front-end.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	semver "github.com/Masterminds/semver/v3"
)

// LanguageVersion is the language revision this front-end implements.
const LanguageVersion = "0.3.0"

// ManifestName is the file looked up in a project root.
const ManifestName = "klare.json"

// Manifest describes a Klare project.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	// Language is a semver constraint on the language revision the
	// project's sources are written against, e.g. ">=0.3, <0.4".
	Language string   `json:"language,omitempty"`
	Sources  []string `json:"sources,omitempty"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	if m.Name == "" {
		return nil, fmt.Errorf("manifest %s: missing project name", path)
	}
	if m.Version != "" {
		if _, err := semver.NewVersion(m.Version); err != nil {
			return nil, fmt.Errorf("manifest %s: invalid version %q: %w", path, m.Version, err)
		}
	}
	if m.Language != "" {
		if _, err := semver.NewConstraint(m.Language); err != nil {
			return nil, fmt.Errorf("manifest %s: invalid language constraint %q: %w", path, m.Language, err)
		}
	}

	return &m, nil
}

// Find walks up from dir looking for a manifest file. It returns the
// manifest path or an error when none exists up to the filesystem root.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found from %s upward", ManifestName, dir)
		}
		dir = parent
	}
}

// CheckLanguage verifies the manifest's language constraint against the
// front-end's language version. An empty constraint accepts anything.
func (m *Manifest) CheckLanguage() error {
	return m.checkLanguageAgainst(LanguageVersion)
}

func (m *Manifest) checkLanguageAgainst(version string) error {
	if m.Language == "" {
		return nil
	}
	c, err := semver.NewConstraint(m.Language)
	if err != nil {
		return fmt.Errorf("invalid language constraint %q: %w", m.Language, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid language version %q: %w", version, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("project %s requires language %q, front-end implements %s",
			m.Name, m.Language, version)
	}
	return nil
}
