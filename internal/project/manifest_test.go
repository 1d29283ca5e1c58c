package project

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeManifest(t, t.TempDir(),
		`{"name": "demo", "version": "1.2.3", "language": ">=0.3, <0.4", "sources": ["main.klr"]}`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "demo" || m.Version != "1.2.3" {
		t.Errorf("unexpected manifest: %+v", m)
	}
	if len(m.Sources) != 1 || m.Sources[0] != "main.klr" {
		t.Errorf("sources not parsed: %v", m.Sources)
	}
}

func TestLoadRejectsBadManifests(t *testing.T) {
	cases := map[string]string{
		"missing name":   `{"version": "1.0.0"}`,
		"bad version":    `{"name": "demo", "version": "not-a-version"}`,
		"bad constraint": `{"name": "demo", "language": "≥0.3"}`,
		"bad json":       `{`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), content)
			if _, err := Load(path); err == nil {
				t.Errorf("expected error for %s", name)
			}
		})
	}
}

func TestCheckLanguage(t *testing.T) {
	m := &Manifest{Name: "demo", Language: ">=0.3, <0.4"}
	if err := m.checkLanguageAgainst("0.3.5"); err != nil {
		t.Errorf("0.3.5 should satisfy %q: %v", m.Language, err)
	}
	if err := m.checkLanguageAgainst("0.4.0"); err == nil {
		t.Errorf("0.4.0 should violate %q", m.Language)
	}

	open := &Manifest{Name: "demo"}
	if err := open.checkLanguageAgainst("9.9.9"); err != nil {
		t.Errorf("empty constraint should accept anything: %v", err)
	}
}

func TestCheckLanguageAgainstFrontEnd(t *testing.T) {
	m := &Manifest{Name: "demo", Language: ">=0.1"}
	if err := m.CheckLanguage(); err != nil {
		t.Errorf("front-end version %s should satisfy >=0.1: %v", LanguageVersion, err)
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `{"name": "demo"}`)

	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path, err := Find(nested)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if filepath.Dir(path) != root {
		t.Errorf("found %s, want manifest in %s", path, root)
	}
}

func TestFindMisses(t *testing.T) {
	if _, err := Find(t.TempDir()); err == nil {
		t.Errorf("expected an error when no manifest exists")
	}
}
