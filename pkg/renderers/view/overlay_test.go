package view_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-groupcontent/pkg/render"
	"github.com/goliatone/go-groupcontent/pkg/renderers/view"
)

func TestRenderer_TemplatesDirOverlaysBuiltins(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "group-content--article.html.twig")
	if err := os.WriteFile(override, []byte(`<article>{{ label }}</article>`), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	renderer, err := view.New(view.WithTemplatesDir(dir))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	out, err := renderer.Render(context.Background(), exampleVariables(false), render.RenderOptions{
		Suggestions: []string{"group_content__article"},
	})
	if err != nil {
		t.Fatalf("render override: %v", err)
	}
	if string(out) != "<article>Group &lt;1&gt;</article>" {
		t.Fatalf("override not used: %q", out)
	}

	out, err = renderer.Render(context.Background(), exampleVariables(false), render.RenderOptions{
		Suggestions: []string{"group_content__event"},
	})
	if err != nil {
		t.Fatalf("render fallback: %v", err)
	}
	golden, err := os.ReadFile(filepath.Join("testdata", "teaser.golden"))
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	if string(out) != string(golden) {
		t.Fatalf("built-in template not used for fallback: %q", out)
	}
}
