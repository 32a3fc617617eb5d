package view

import (
	"fmt"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-groupcontent/pkg/entity"
	"github.com/goliatone/go-groupcontent/pkg/render"
)

type templateChecker interface {
	Exists(name string) bool
}

// resolveTemplate walks the suggestions, most specific first. For each one a
// theme variant override wins over a manifest override, which wins over a
// suggestion file in the template bundle.
func (r *Renderer) resolveTemplate(options render.RenderOptions) (string, error) {
	selection, err := r.selectTheme(options)
	if err != nil {
		return "", err
	}

	for _, suggestion := range suggestionsOf(options) {
		if path := themeTemplate(selection, suggestion); path != "" {
			return path, nil
		}
		if suggestion == entity.Hook {
			continue
		}
		name := entity.TemplateName(suggestion)
		if checker, ok := r.templates.(templateChecker); ok && checker.Exists(name) {
			return name, nil
		}
	}
	return BaseTemplate, nil
}

func (r *Renderer) selectTheme(options render.RenderOptions) (*theme.Selection, error) {
	if r.selector == nil {
		return nil, nil
	}
	selection, err := r.selector.Select(options.Theme, options.Variant)
	if err != nil {
		return nil, fmt.Errorf("view renderer: select theme %q/%q: %w", options.Theme, options.Variant, err)
	}
	return selection, nil
}

func suggestionsOf(options render.RenderOptions) []string {
	for _, s := range options.Suggestions {
		if s == entity.Hook {
			return options.Suggestions
		}
	}
	return append(append([]string(nil), options.Suggestions...), entity.Hook)
}

func themeTemplate(selection *theme.Selection, key string) string {
	if selection == nil || selection.Manifest == nil {
		return ""
	}
	manifest := selection.Manifest
	if variant, ok := manifest.Variants[selection.Variant]; ok {
		if path := variant.Templates[key]; path != "" {
			return path
		}
	}
	return manifest.Templates[key]
}
