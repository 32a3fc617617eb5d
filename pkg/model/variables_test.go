package model_test

import (
	"testing"

	"github.com/goliatone/go-groupcontent/pkg/attributes"
	"github.com/goliatone/go-groupcontent/pkg/markup"
	"github.com/goliatone/go-groupcontent/pkg/model"
)

func TestTemplateContextNames(t *testing.T) {
	vars := model.Variables{
		URL:   "/g/1",
		Label: "Group",
		Extra: map[string]any{"label": "ignored", "group_id": 7},
	}
	ctx := vars.TemplateContext()

	for _, key := range []string{
		"attributes", "title_prefix", "page", "title_attributes", "url",
		"label", "content_attributes", "content", "title_suffix",
	} {
		if _, ok := ctx[key]; !ok {
			t.Fatalf("missing %q in template context", key)
		}
	}
	if ctx["label"] != "Group" {
		t.Fatalf("core variable overridden by extra: %v", ctx["label"])
	}
	if ctx["group_id"] != 7 {
		t.Fatalf("extra variable missing")
	}
	if attrs, ok := ctx["attributes"].(*attributes.Attributes); !ok || attrs.String() != "" {
		t.Fatalf("nil attributes should become an empty collection")
	}
}

func TestFragments(t *testing.T) {
	vars := model.Variables{Content: "<p>x</p>", TitlePrefix: "a", TitleSuffix: "b", Label: "<l>"}
	out := vars.Fragments(func(m markup.Markup) markup.Markup { return "[" + m + "]" })
	if out.Content != "[<p>x</p>]" || out.TitlePrefix != "[a]" || out.TitleSuffix != "[b]" {
		t.Fatalf("fragments not transformed: %+v", out)
	}
	if out.Label != "<l>" {
		t.Fatalf("scalar touched by fragment transform")
	}
	if vars.Content != "<p>x</p>" {
		t.Fatalf("original mutated")
	}
}
