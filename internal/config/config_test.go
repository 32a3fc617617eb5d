package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-groupcontent/internal/config"
	"github.com/goliatone/go-groupcontent/pkg/sandbox"
)

func noEnv(string) (string, bool) { return "", false }

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("", config.WithEnvFiles(), config.WithLookup(noEnv))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}

	policy, err := cfg.SecurityPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if diff := cmp.Diff(sandbox.DefaultPolicy().Document(), policy.Document()); diff != "" {
		t.Fatalf("default policy mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join("testdata", "config.yaml"), config.WithEnvFiles(), config.WithLookup(noEnv))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := &config.Config{
		TemplatesDir: "./templates",
		Theme:        config.ThemeConfig{Name: "acme", Variant: "dark"},
		Sandbox: config.SandboxConfig{Policy: &sandbox.Document{
			Tags:    []string{"if", "for"},
			Filters: []string{"escape", "upper"},
		}},
		Sanitize: true,
		Server:   config.ServerConfig{Addr: ":9000"},
		LogLevel: "debug",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	policy, err := cfg.SecurityPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	err = policy.CheckSecurity([]string{"include"}, nil, nil)
	if !errors.Is(err, sandbox.ErrSecurityPolicy) {
		t.Fatalf("expected include to be rejected, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), config.WithEnvFiles()); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"GROUPCONTENT_THEME":            "other",
		"GROUPCONTENT_ADDR":             ":7000",
		"GROUPCONTENT_SANITIZE":         "false",
		"GROUPCONTENT_SANDBOX_DISABLED": "true",
		"GROUPCONTENT_WATCH":            "1",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg, err := config.Load(filepath.Join("testdata", "config.yaml"), config.WithEnvFiles(), config.WithLookup(lookup))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Theme.Name != "other" || cfg.Server.Addr != ":7000" {
		t.Fatalf("string overrides not applied: %+v", cfg)
	}
	if cfg.Sanitize || !cfg.Server.Watch || !cfg.Sandbox.Disabled {
		t.Fatalf("bool overrides not applied: %+v", cfg)
	}
	policy, err := cfg.SecurityPolicy()
	if err != nil || policy != nil {
		t.Fatalf("disabled sandbox should yield nil policy, got %v, %v", policy, err)
	}
}

func TestEnvOverrideInvalidBool(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "GROUPCONTENT_SANITIZE" {
			return "maybe", true
		}
		return "", false
	}
	if _, err := config.Load("", config.WithEnvFiles(), config.WithLookup(lookup)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDotenvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("GROUPCONTENT_DOTENV_PROBE=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("GROUPCONTENT_DOTENV_PROBE") })

	if _, err := config.Load("", config.WithEnvFiles(envFile, filepath.Join(dir, "missing.env"))); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("GROUPCONTENT_DOTENV_PROBE"); got != "from-dotenv" {
		t.Fatalf("dotenv value not loaded, got %q", got)
	}
}

func TestViewOptions(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "theme.yaml")
	if err := os.WriteFile(manifest, []byte("name: acme\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	cfg := config.Default()
	cfg.TemplatesDir = dir
	cfg.Sanitize = true
	cfg.Theme.Manifest = manifest

	options, err := cfg.ViewOptions()
	if err != nil {
		t.Fatalf("view options: %v", err)
	}
	if len(options) != 4 {
		t.Fatalf("expected 4 options, got %d", len(options))
	}

	cfg.Theme.Manifest = filepath.Join(dir, "missing.yaml")
	if _, err := cfg.ViewOptions(); err == nil {
		t.Fatalf("expected error for missing manifest")
	}
}

func TestSecurityPolicyFromAbsolutePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("tags: [if]\nfilters: [escape]\n"), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	cfg := config.Default()
	cfg.Sandbox.File = path
	policy, err := cfg.SecurityPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if err := policy.CheckSecurity([]string{"if"}, []string{"escape"}, nil); err != nil {
		t.Fatalf("expected policy from file to allow if/escape: %v", err)
	}
	if err := policy.CheckSecurity([]string{"for"}, nil, nil); err == nil {
		t.Fatalf("expected for to be rejected by the file policy")
	}
}
