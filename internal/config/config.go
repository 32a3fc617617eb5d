// Package config loads CLI and preview server settings from a YAML file, a
// .env file and GROUPCONTENT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-groupcontent/pkg/markup"
	"github.com/goliatone/go-groupcontent/pkg/renderers/view"
	"github.com/goliatone/go-groupcontent/pkg/sandbox"
)

// EnvPrefix namespaces environment overrides.
const EnvPrefix = "GROUPCONTENT_"

// DefaultAddr is the preview server listen address.
const DefaultAddr = "127.0.0.1:8080"

// Config holds runtime settings.
type Config struct {
	TemplatesDir string        `yaml:"templates_dir"`
	Theme        ThemeConfig   `yaml:"theme"`
	Sandbox      SandboxConfig `yaml:"sandbox"`
	Sanitize     bool          `yaml:"sanitize"`
	Server       ServerConfig  `yaml:"server"`
	LogLevel     string        `yaml:"log_level"`
}

// ThemeConfig points at a go-theme manifest and the selection to use.
type ThemeConfig struct {
	Manifest string `yaml:"manifest"`
	Name     string `yaml:"name"`
	Variant  string `yaml:"variant"`
}

// SandboxConfig overrides the default template security policy.
type SandboxConfig struct {
	Disabled bool              `yaml:"disabled"`
	Policy   *sandbox.Document `yaml:"policy"`
	File     string            `yaml:"file"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Watch bool   `yaml:"watch"`
}

// Option customises Load.
type Option func(*loader)

type loader struct {
	envFiles []string
	lookup   func(string) (string, bool)
}

// WithEnvFiles sets the dotenv files read before environment overrides.
// Missing files are ignored.
func WithEnvFiles(files ...string) Option {
	return func(l *loader) {
		l.envFiles = files
	}
}

// WithLookup replaces os.LookupEnv, mainly for tests.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(l *loader) {
		if lookup != nil {
			l.lookup = lookup
		}
	}
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: DefaultAddr},
		LogLevel: "info",
	}
}

// Load reads path (optional) and applies environment overrides.
func Load(path string, options ...Option) (*Config, error) {
	l := &loader{envFiles: []string{".env"}, lookup: os.LookupEnv}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	if err := loadDotenv(l.envFiles); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(l.lookup); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	return cfg, nil
}

func loadDotenv(files []string) error {
	for _, file := range files {
		if file == "" {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"TEMPLATES_DIR":  &c.TemplatesDir,
		"THEME_MANIFEST": &c.Theme.Manifest,
		"THEME":          &c.Theme.Name,
		"VARIANT":        &c.Theme.Variant,
		"SANDBOX_FILE":   &c.Sandbox.File,
		"ADDR":           &c.Server.Addr,
		"LOG_LEVEL":      &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	bools := map[string]*bool{
		"SANITIZE":         &c.Sanitize,
		"SANDBOX_DISABLED": &c.Sandbox.Disabled,
		"WATCH":            &c.Server.Watch,
	}
	for key, dst := range bools {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*dst = parsed
	}
	return nil
}

// SecurityPolicy resolves the sandbox policy. A nil policy with a nil error
// means the sandbox is disabled.
func (c *Config) SecurityPolicy() (*sandbox.Policy, error) {
	switch {
	case c.Sandbox.Disabled:
		return nil, nil
	case c.Sandbox.File != "":
		policy, err := sandbox.LoadFile(c.Sandbox.File)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		return policy, nil
	case c.Sandbox.Policy != nil:
		return sandbox.FromDocument(*c.Sandbox.Policy), nil
	default:
		return sandbox.DefaultPolicy(), nil
	}
}

// ViewOptions translates the settings into view renderer options.
func (c *Config) ViewOptions() ([]view.Option, error) {
	policy, err := c.SecurityPolicy()
	if err != nil {
		return nil, err
	}
	options := []view.Option{view.WithSecurityPolicy(policy)}
	if c.TemplatesDir != "" {
		options = append(options, view.WithTemplatesDir(c.TemplatesDir))
	}
	if c.Sanitize {
		options = append(options, view.WithSanitizer(markup.NewSanitizer(nil)))
	}
	if c.Theme.Manifest != "" {
		manifest, err := view.LoadManifest(c.Theme.Manifest)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		selector := view.NewManifestSelector(manifest)
		selector.SetDefaults(c.Theme.Name, c.Theme.Variant)
		options = append(options, view.WithThemeSelector(selector))
	}
	return options, nil
}
