package plancache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/plancache/plancache/plan"
)

const configYAML = `
version: "1.2.0"
skipWaiting: true
debug: true
origin: https://example.com
scope: /app/
provider: memory
plan:
  - strategy: network-only
    paths: /api/login
  - strategy: cache-first
    paths: ["/app.js", "re:\\.png$", "scope-and-below"]
  - strategy: static-offline-backup
    paths: "re:\\.html$"
    backup: /offline.html
  - strategy: cache-on-install
    files:
      dir: static
      glob: "**/*.css"
      prefix: /assets
`

func TestParseConfig(t *testing.T) {
	config, err := parseConfig([]byte(configYAML))
	if err != nil {
		t.Fatal(err)
	}
	if config.Options.Version != "1.2.0" || !config.Options.SkipWaiting || !config.Options.Debug {
		t.Fatalf("Options are %+v", config.Options)
	}
	if config.Origin != "https://example.com" || config.Scope != "/app/" || config.Provider != "memory" {
		t.Fatalf("Config is %+v", config)
	}
	if len(config.Plan) != 4 {
		t.Fatalf("Plan has %d entries", len(config.Plan))
	}

	if e := config.Plan[0]; e.Strategy != plan.NetworkOnly {
		t.Fatalf("First entry is %v", e.Strategy)
	}
	if m := plan.Matchers(config.Plan[0].Paths); len(m) != 1 || !m[0].Match("/api/login", "/app/") {
		t.Fatalf("First entry matchers are %v", m)
	}

	matchers := plan.Matchers(config.Plan[1].Paths)
	if len(matchers) != 3 {
		t.Fatalf("Second entry has %d matchers", len(matchers))
	}
	if !matchers[1].Match("/img/logo.png", "/app/") {
		t.Fatal("Pattern matcher did not match")
	}
	if !matchers[2].Match("/app/anything", "/app/") || matchers[2].Match("/other", "/app/") {
		t.Fatal("Scope matcher misbehaved")
	}

	if e := config.Plan[2]; e.Backup != "/offline.html" {
		t.Fatalf("Backup is %q", e.Backup)
	}
	if e := config.Plan[3]; e.Files == nil || e.Files.Dir != "static" || e.Files.Glob != "**/*.css" || e.Files.Prefix != "/assets" {
		t.Fatalf("Files spec is %+v", config.Plan[3].Files)
	}
}

func TestParseConfigRejectsUnknownEntryFields(t *testing.T) {
	_, err := parseConfig([]byte(`
version: "1.0.0"
plan:
  - strategy: cache-first
    paths: /a
    expires: 3600
`))
	if err == nil {
		t.Fatal("Unknown field accepted")
	}
}

func TestParseConfigRejectsBadPattern(t *testing.T) {
	_, err := parseConfig([]byte(`
version: "1.0.0"
plan:
  - strategy: cache-first
    paths: "re:["
`))
	if err == nil {
		t.Fatal("Invalid pattern accepted")
	}
}

func TestParseConfigRejectsBadPathValue(t *testing.T) {
	_, err := parseConfig([]byte(`
version: "1.0.0"
plan:
  - strategy: cache-first
    paths: 42
`))
	if err == nil {
		t.Fatal("Numeric path accepted")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "plancache.yml")
	if err := os.WriteFile(filename, []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	config, err := LoadConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if config.Options.Version != "1.2.0" {
		t.Fatalf("Version is %q", config.Options.Version)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("Missing file accepted")
	}
}
