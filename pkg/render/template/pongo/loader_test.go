package pongo_test

import (
	"errors"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-groupcontent/pkg/render/template/pongo"
	"github.com/goliatone/go-groupcontent/pkg/sandbox"
)

const blankLinesSource = "{% if not page %}\n\n\n<h2>x</h2>{% endif %}|"

func TestEngine_RepeatedRendersAreIdentical(t *testing.T) {
	engine, err := pongo.New(pongo.WithFS(fstest.MapFS{
		"blank.html.twig": {Data: []byte(blankLinesSource)},
	}))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	const want = "\n\n<h2>x</h2>|"
	for i := 0; i < 5; i++ {
		got, err := engine.RenderTemplate("blank", nil)
		if err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("render %d mismatch\nwant: %q\n got: %q", i, want, got)
		}
	}
	for i := 0; i < 5; i++ {
		got, err := engine.RenderString(blankLinesSource, nil)
		if err != nil {
			t.Fatalf("render string %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("render string %d mismatch\nwant: %q\n got: %q", i, want, got)
		}
	}
}

func TestEngine_ConcurrentRendersAgree(t *testing.T) {
	engine, err := pongo.New(pongo.WithFS(fstest.MapFS{
		"blank.html.twig": {Data: []byte(blankLinesSource)},
	}))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	const workers = 16
	results := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				out, err := engine.RenderTemplate("blank", nil)
				if err != nil {
					errs[i] = err
					return
				}
				if j > 0 && out != results[i] {
					errs[i] = errors.New("output changed between renders: " + out)
					return
				}
				results[i] = out
			}
		}(i)
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i] != "\n\n<h2>x</h2>|" {
			t.Fatalf("worker %d rendered %q", i, results[i])
		}
	}
}

func TestEngine_WhitespaceControlDisabled(t *testing.T) {
	engine, err := pongo.New(
		pongo.WithFS(fstest.MapFS{"blank.html.twig": {Data: []byte("  {% if true %}\nx{% endif %}")}}),
		pongo.WithWhitespaceControl(false, false),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	got, err := engine.RenderTemplate("blank", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "  \nx" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_ReferencedTemplatesAreSandboxed(t *testing.T) {
	files := fstest.MapFS{
		"inner.html.twig":    {Data: []byte("[{{ secret() }}]")},
		"includes.html.twig": {Data: []byte(`<p>{% include "inner.html.twig" %}</p>`)},
		"extends.html.twig":  {Data: []byte(`{% extends "inner.html.twig" %}`)},
	}
	secret := func() string { return "LEAK" }

	cases := []struct {
		name     string
		template string
	}{
		{name: "include", template: "includes"},
		{name: "extends", template: "extends"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, err := pongo.New(
				pongo.WithFS(files),
				pongo.WithSecurityPolicy(sandbox.DefaultPolicy()),
				pongo.WithTemplateFunc(map[string]any{"secret": secret}),
			)
			if err != nil {
				t.Fatalf("new engine: %v", err)
			}

			out, err := engine.RenderTemplate(tc.template, nil)
			secErr, ok := err.(*sandbox.SecurityError)
			if !ok {
				t.Fatalf("expected bare *sandbox.SecurityError, got %T: %v (output %q)", err, err, out)
			}
			if secErr.Kind != sandbox.KindFunction || secErr.Name != "secret" {
				t.Fatalf("unexpected violation %+v", secErr)
			}
			if secErr.TemplateName != "inner.html.twig" || secErr.Line != 1 {
				t.Fatalf("expected violation in inner template, got %+v", secErr)
			}

			// Served from the compiled cache on the second render.
			if _, err := engine.RenderTemplate(tc.template, nil); !errors.Is(err, sandbox.ErrSecurityPolicy) {
				t.Fatalf("expected violation on repeat render, got %v", err)
			}
		})
	}
}

func TestEngine_StringTemplateIncludeSandboxed(t *testing.T) {
	engine, err := pongo.New(
		pongo.WithFS(fstest.MapFS{"inner.html.twig": {Data: []byte("[{{ secret() }}]")}}),
		pongo.WithSecurityPolicy(sandbox.DefaultPolicy()),
		pongo.WithTemplateFunc(map[string]any{"secret": func() string { return "LEAK" }}),
	)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	_, err = engine.RenderString(`{% include "inner.html.twig" %}`, nil)
	var secErr *sandbox.SecurityError
	if !errors.As(err, &secErr) || secErr.Name != "secret" {
		t.Fatalf("expected secret() to be rejected, got %v", err)
	}
}

func TestEngine_IncludeTightenedPolicy(t *testing.T) {
	files := fstest.MapFS{
		"inner.html.twig": {Data: []byte("{{ name|upper }}")},
		"outer.html.twig": {Data: []byte(`{% include "inner.html.twig" %}`)},
	}
	policy := sandbox.NewPolicy([]string{"include"}, []string{"upper"}, nil)
	engine, err := pongo.New(pongo.WithFS(files), pongo.WithSecurityPolicy(policy))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	got, err := engine.RenderTemplate("outer", map[string]any{"name": "ada"})
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	if got != "ADA" {
		t.Fatalf("unexpected output %q", got)
	}

	policy.SetAllowedFilters()
	_, err = engine.RenderTemplate("outer", map[string]any{"name": "ada"})
	var secErr *sandbox.SecurityError
	if !errors.As(err, &secErr) || secErr.Name != "upper" || secErr.TemplateName != "inner.html.twig" {
		t.Fatalf("expected upper rejected in inner template, got %v", err)
	}
}
