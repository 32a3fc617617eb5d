// Package entity turns a group content entity into view variables, the way
// the CMS preprocess step does before the template runs.
package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-groupcontent/pkg/attributes"
	"github.com/goliatone/go-groupcontent/pkg/markup"
	"github.com/goliatone/go-groupcontent/pkg/model"
)

const (
	// Hook is the base theme hook name.
	Hook = "group_content"
	// ViewModeFull marks a full page view.
	ViewModeFull = "full"
	// ViewModeDefault is used when an entity carries no view mode.
	ViewModeDefault = "default"
)

// ErrLabelRequired is returned by Validate for entities without a label.
var ErrLabelRequired = errors.New("entity: label is required")

var (
	invalidClassChars = regexp.MustCompile(`[^a-z0-9_\-]+`)
	invalidHookChars  = regexp.MustCompile(`[^a-z0-9_]+`)
)

// GroupContent is a piece of content attached to a group.
type GroupContent struct {
	ID                string                 `json:"id" yaml:"id"`
	Bundle            string                 `json:"bundle" yaml:"bundle"`
	Label             string                 `json:"label" yaml:"label"`
	URL               string                 `json:"url" yaml:"url"`
	ViewMode          string                 `json:"view_mode" yaml:"view_mode"`
	Content           markup.Markup          `json:"content" yaml:"content"`
	TitlePrefix       markup.Markup          `json:"title_prefix,omitempty" yaml:"title_prefix,omitempty"`
	TitleSuffix       markup.Markup          `json:"title_suffix,omitempty" yaml:"title_suffix,omitempty"`
	Attributes        *attributes.Attributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	TitleAttributes   *attributes.Attributes `json:"title_attributes,omitempty" yaml:"title_attributes,omitempty"`
	ContentAttributes *attributes.Attributes `json:"content_attributes,omitempty" yaml:"content_attributes,omitempty"`
}

// Validate checks the fields a view needs.
func (g GroupContent) Validate() error {
	if strings.TrimSpace(g.Label) == "" {
		return ErrLabelRequired
	}
	return nil
}

// Mode returns the view mode, falling back to ViewModeDefault.
func (g GroupContent) Mode() string {
	mode := strings.TrimSpace(g.ViewMode)
	if mode == "" {
		return ViewModeDefault
	}
	return mode
}

// Preprocess builds the view variables. page is true for the full view mode;
// the outer attributes gain group-content, group-content--<bundle> and
// group-content--<view_mode> classes. Entity attribute collections are cloned
// so the entity is not mutated.
func Preprocess(g GroupContent) model.Variables {
	mode := g.Mode()

	attrs := g.Attributes.Clone()
	attrs.AddClass("group-content")
	if bundle := cleanClass(g.Bundle); bundle != "" {
		attrs.AddClass("group-content--" + bundle)
	}
	if viewMode := cleanClass(mode); viewMode != "" {
		attrs.AddClass("group-content--" + viewMode)
	}

	return model.Variables{
		Attributes:        attrs,
		TitlePrefix:       g.TitlePrefix,
		Page:              mode == ViewModeFull,
		TitleAttributes:   g.TitleAttributes.Clone(),
		URL:               g.URL,
		Label:             g.Label,
		ContentAttributes: g.ContentAttributes.Clone(),
		Content:           g.Content,
		TitleSuffix:       g.TitleSuffix,
		ViewMode:          mode,
		Extra: map[string]any{
			"group_content": map[string]any{
				"id":     g.ID,
				"bundle": g.Bundle,
				"label":  g.Label,
			},
		},
	}
}

// Suggestions lists theme hook suggestions, most specific first.
func Suggestions(g GroupContent) []string {
	bundle := cleanHook(g.Bundle)
	mode := cleanHook(g.Mode())

	var out []string
	if bundle != "" && mode != "" {
		out = append(out, Hook+"__"+bundle+"__"+mode)
	}
	if bundle != "" {
		out = append(out, Hook+"__"+bundle)
	}
	if mode != "" {
		out = append(out, Hook+"__"+mode)
	}
	return append(out, Hook)
}

// TemplateName maps a hook suggestion to its template file name, e.g.
// group_content__article becomes group-content--article.html.twig.
func TemplateName(suggestion string) string {
	return strings.ReplaceAll(suggestion, "_", "-") + ".html.twig"
}

// Decode parses an entity from JSON or YAML. format is a file extension
// (".json", ".yaml", ".yml"); anything else is sniffed.
func Decode(data []byte, format string) (GroupContent, error) {
	var g GroupContent
	var err error
	switch strings.ToLower(format) {
	case ".json", "json":
		err = json.Unmarshal(data, &g)
	case ".yaml", ".yml", "yaml", "yml":
		err = yaml.Unmarshal(data, &g)
	default:
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "{") {
			err = json.Unmarshal(data, &g)
		} else {
			err = yaml.Unmarshal(data, &g)
		}
	}
	if err != nil {
		return GroupContent{}, fmt.Errorf("entity: decode: %w", err)
	}
	return g, nil
}

// LoadFS reads and decodes an entity file.
func LoadFS(fsys fs.FS, path string) (GroupContent, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return GroupContent{}, fmt.Errorf("entity: read %q: %w", path, err)
	}
	return Decode(data, filepath.Ext(path))
}

func cleanClass(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.NewReplacer(" ", "-", "_", "-", "/", "-", "[", "-", "]", "").Replace(value)
	value = invalidClassChars.ReplaceAllString(value, "")
	return strings.Trim(value, "-")
}

func cleanHook(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.NewReplacer("-", "_", " ", "_").Replace(value)
	return strings.Trim(invalidHookChars.ReplaceAllString(value, ""), "_")
}
