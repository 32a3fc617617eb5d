package model

import (
	"github.com/goliatone/go-groupcontent/pkg/attributes"
	"github.com/goliatone/go-groupcontent/pkg/markup"
)

// Variables is the render context of a group content view. It is read-only
// for the duration of a render.
type Variables struct {
	Attributes        *attributes.Attributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	TitlePrefix       markup.Markup          `json:"title_prefix,omitempty" yaml:"title_prefix,omitempty"`
	Page              bool                   `json:"page" yaml:"page"`
	TitleAttributes   *attributes.Attributes `json:"title_attributes,omitempty" yaml:"title_attributes,omitempty"`
	URL               string                 `json:"url" yaml:"url"`
	Label             string                 `json:"label" yaml:"label"`
	ContentAttributes *attributes.Attributes `json:"content_attributes,omitempty" yaml:"content_attributes,omitempty"`
	Content           markup.Markup          `json:"content,omitempty" yaml:"content,omitempty"`
	TitleSuffix       markup.Markup          `json:"title_suffix,omitempty" yaml:"title_suffix,omitempty"`

	// ViewMode is exposed as view_mode for theme templates.
	ViewMode string `json:"view_mode,omitempty" yaml:"view_mode,omitempty"`
	// Extra carries additional variables for theme overrides. Core names
	// always win over Extra keys.
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// TemplateContext exposes the variables under their template names. Nil
// attribute collections render as empty strings.
func (v Variables) TemplateContext() map[string]any {
	ctx := make(map[string]any, 10+len(v.Extra))
	for key, value := range v.Extra {
		ctx[key] = value
	}
	ctx["attributes"] = orEmpty(v.Attributes)
	ctx["title_prefix"] = v.TitlePrefix
	ctx["page"] = v.Page
	ctx["title_attributes"] = orEmpty(v.TitleAttributes)
	ctx["url"] = v.URL
	ctx["label"] = v.Label
	ctx["content_attributes"] = orEmpty(v.ContentAttributes)
	ctx["content"] = v.Content
	ctx["title_suffix"] = v.TitleSuffix
	ctx["view_mode"] = v.ViewMode
	return ctx
}

// Fragments applies fn to every trusted fragment and returns the copy.
func (v Variables) Fragments(fn func(markup.Markup) markup.Markup) Variables {
	if fn == nil {
		return v
	}
	v.TitlePrefix = fn(v.TitlePrefix)
	v.Content = fn(v.Content)
	v.TitleSuffix = fn(v.TitleSuffix)
	return v
}

func orEmpty(attrs *attributes.Attributes) *attributes.Attributes {
	if attrs == nil {
		return attributes.New()
	}
	return attrs
}
