package render_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-groupcontent/pkg/model"
	"github.com/goliatone/go-groupcontent/pkg/render"
)

type stubRenderer struct{ name string }

func (s stubRenderer) Name() string        { return s.name }
func (s stubRenderer) ContentType() string { return "text/plain" }
func (s stubRenderer) Render(context.Context, model.Variables, render.RenderOptions) ([]byte, error) {
	return []byte(s.name), nil
}

func TestRegistryLifecycle(t *testing.T) {
	registry := render.NewRegistry()
	registry.MustRegister(stubRenderer{name: "group_content"})
	registry.MustRegister(stubRenderer{name: "alpha"})

	if err := registry.Register(stubRenderer{name: "alpha"}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := registry.Register(stubRenderer{}); err == nil {
		t.Fatalf("expected empty name error")
	}
	if err := registry.Register(nil); err == nil {
		t.Fatalf("expected nil renderer error")
	}

	if diff := cmp.Diff([]string{"alpha", "group_content"}, registry.List()); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
	if !registry.Has("alpha") {
		t.Fatalf("expected alpha registered")
	}
	if _, err := registry.Get("missing"); err == nil {
		t.Fatalf("expected missing renderer error")
	}
	if !registry.Unregister("alpha") || registry.Unregister("alpha") {
		t.Fatalf("unexpected unregister results")
	}
	if registry.MustGet("group_content").Name() != "group_content" {
		t.Fatalf("unexpected renderer")
	}
}

func TestRegistryResolve(t *testing.T) {
	registry := render.NewRegistry()
	registry.MustRegister(stubRenderer{name: "group_content"})
	if err := registry.RegisterAs("group_content__article", stubRenderer{name: "article"}); err != nil {
		t.Fatalf("register as: %v", err)
	}

	renderer, matched, err := registry.Resolve("group_content__article__full", "group_content__article", "group_content")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if matched != "group_content__article" || renderer.Name() != "article" {
		t.Fatalf("unexpected resolution %q -> %s", matched, renderer.Name())
	}

	if _, _, err := registry.Resolve("nope"); !errors.Is(err, render.ErrNoRenderer) {
		t.Fatalf("expected ErrNoRenderer, got %v", err)
	}
}
