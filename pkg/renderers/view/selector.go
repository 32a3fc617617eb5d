package view

import (
	"fmt"
	"os"
	"sync"

	theme "github.com/goliatone/go-theme"
	"gopkg.in/yaml.v3"
)

// ManifestSelector is a minimal theme.ThemeSelector over in-memory
// manifests. It suits the CLI and preview server, which read manifests from
// disk and have no wider theme registry.
type ManifestSelector struct {
	mu             sync.RWMutex
	manifests      map[string]*theme.Manifest
	defaultTheme   string
	defaultVariant string
}

// NewManifestSelector registers manifests by name. The first manifest is the
// default theme.
func NewManifestSelector(manifests ...*theme.Manifest) *ManifestSelector {
	s := &ManifestSelector{manifests: make(map[string]*theme.Manifest)}
	for _, m := range manifests {
		s.Add(m)
	}
	return s
}

// Add registers or replaces a manifest.
func (s *ManifestSelector) Add(manifest *theme.Manifest) {
	if manifest == nil || manifest.Name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.defaultTheme == "" {
		s.defaultTheme = manifest.Name
	}
	s.manifests[manifest.Name] = manifest
}

// SetDefaults sets the theme and variant used when Select receives empty
// names.
func (s *ManifestSelector) SetDefaults(name, variant string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != "" {
		s.defaultTheme = name
	}
	s.defaultVariant = variant
}

// Select implements theme.ThemeSelector. An unknown variant selects the base
// manifest.
func (s *ManifestSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if name == "" {
		name = s.defaultTheme
	}
	if variant == "" {
		variant = s.defaultVariant
	}
	manifest, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("view selector: theme %q not registered", name)
	}
	if _, ok := manifest.Variants[variant]; !ok {
		variant = ""
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}

// LoadManifest reads a YAML theme manifest from disk.
func LoadManifest(path string) (*theme.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("view selector: read manifest: %w", err)
	}
	var manifest theme.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("view selector: decode manifest %s: %w", path, err)
	}
	if manifest.Name == "" {
		return nil, fmt.Errorf("view selector: manifest %s has no name", path)
	}
	return &manifest, nil
}
