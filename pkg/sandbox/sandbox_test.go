package sandbox_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-groupcontent/pkg/sandbox"
)

const sampleTemplate = `<div{{ attributes }}>
    {% if not page %}
        <h2>{{ label|upper }}</h2>
    {% else %}
        {{ "a|b(" }}{{ render_var(content)|default:"x" }}
    {% endif %}
    {% for item in items %}{{ item|lower }}{% endfor %}
    {# {% include "x" %} #}
</div>`

func TestScanRecordsUsage(t *testing.T) {
	usage := sandbox.Scan([]byte(sampleTemplate))

	if diff := cmp.Diff([]string{"if", "for"}, usage.Tags()); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"upper", "default", "lower"}, usage.Filters()); diff != "" {
		t.Fatalf("filters mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"render_var"}, usage.Functions()); diff != "" {
		t.Fatalf("functions mismatch (-want +got):\n%s", diff)
	}
	if got := usage.LineOf(sandbox.KindTag, "if"); got != 2 {
		t.Fatalf("if line = %d, want 2", got)
	}
	if got := usage.LineOf(sandbox.KindTag, "for"); got != 7 {
		t.Fatalf("for line = %d, want 7", got)
	}
	if got := usage.LineOf(sandbox.KindFilter, "default"); got != 5 {
		t.Fatalf("default line = %d, want 5", got)
	}
}

func TestScanPlainTextIsEmpty(t *testing.T) {
	if usage := sandbox.Scan([]byte("<p>hello {{ name }}</p>")); !usage.Empty() {
		t.Fatalf("expected empty usage, got tags=%v filters=%v", usage.Tags(), usage.Filters())
	}
}

func TestCheckSecurityOrder(t *testing.T) {
	policy := sandbox.NewPolicy([]string{"if"}, []string{"escape"}, nil)

	if err := policy.CheckSecurity([]string{"if"}, []string{"escape"}, nil); err != nil {
		t.Fatalf("expected allowed, got %v", err)
	}

	err := policy.CheckSecurity([]string{"if", "include"}, []string{"upper"}, []string{"dump"})
	var secErr *sandbox.SecurityError
	if !errors.As(err, &secErr) {
		t.Fatalf("expected *SecurityError, got %T", err)
	}
	if secErr.Kind != sandbox.KindTag || secErr.Name != "include" {
		t.Fatalf("unexpected violation %+v", secErr)
	}
	if !errors.Is(err, sandbox.ErrSecurityPolicy) {
		t.Fatalf("expected errors.Is ErrSecurityPolicy")
	}

	err = policy.CheckSecurity(nil, []string{"escape", "upper"}, []string{"dump"})
	if !errors.As(err, &secErr) || secErr.Kind != sandbox.KindFilter || secErr.Name != "upper" {
		t.Fatalf("expected filter violation, got %v", err)
	}

	err = policy.CheckSecurity(nil, nil, []string{"dump"})
	if !errors.As(err, &secErr) || secErr.Kind != sandbox.KindFunction {
		t.Fatalf("expected function violation, got %v", err)
	}
}

func TestSecurityErrorTemplateMetadata(t *testing.T) {
	usage := sandbox.Scan([]byte("a\n{% if x %}{% endif %}"))
	err := &sandbox.SecurityError{Kind: sandbox.KindTag, Name: "if"}
	err.SetTemplate("group-content.html.twig", usage)

	if err.Line != 2 {
		t.Fatalf("line = %d, want 2", err.Line)
	}
	want := `sandbox: tag "if" is not allowed in "group-content.html.twig" at line 2`
	if err.Error() != want {
		t.Fatalf("message mismatch\nwant: %s\n got: %s", want, err.Error())
	}
}

func TestNilPolicyAllowsEverything(t *testing.T) {
	var policy *sandbox.Policy
	if err := policy.CheckSecurity([]string{"include"}, nil, nil); err != nil {
		t.Fatalf("nil policy should allow, got %v", err)
	}
}

func TestParseYAMLAndBannedBuiltins(t *testing.T) {
	policy, err := sandbox.ParseYAML([]byte("tags: [if, for]\nfilters: [escape]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	doc := policy.Document()
	if diff := cmp.Diff(sandbox.Document{Tags: []string{"for", "if"}, Filters: []string{"escape"}}, doc); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}

	tags, filters := policy.BannedBuiltins()
	for _, tag := range tags {
		if tag == "if" || tag == "for" {
			t.Fatalf("allowed tag %q reported as banned", tag)
		}
	}
	if len(tags) == 0 || len(filters) == 0 {
		t.Fatalf("expected banned builtins, got tags=%v filters=%v", tags, filters)
	}
}

func TestDefaultPolicyAllowsIf(t *testing.T) {
	if err := sandbox.DefaultPolicy().CheckSecurity([]string{"if"}, nil, nil); err != nil {
		t.Fatalf("default policy rejected if: %v", err)
	}
}

func TestScanRecordsReferences(t *testing.T) {
	source := `{% extends "layouts/base.html.twig" %}
{% block body %}{% include 'card.html.twig' with item %}{% include name %}{% endblock %}
{% import "macros.html.twig" field %}
{% include "card.html.twig" %}`

	usage := sandbox.Scan([]byte(source))
	want := []string{"layouts/base.html.twig", "card.html.twig", "macros.html.twig"}
	if diff := cmp.Diff(want, usage.References()); diff != "" {
		t.Fatalf("references mismatch (-want +got):\n%s", diff)
	}
	if refs := sandbox.Scan([]byte(sampleTemplate)).References(); len(refs) != 0 {
		t.Fatalf("commented include should not be a reference, got %v", refs)
	}
}

func TestLoadFileAbsolutePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("tags: [if]\nfunctions: [url]\n"), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Fatalf("expected absolute temp path, got %q", path)
	}

	policy, err := sandbox.LoadFile(path)
	if err != nil {
		t.Fatalf("load absolute path: %v", err)
	}
	want := sandbox.Document{Tags: []string{"if"}, Functions: []string{"url"}}
	if diff := cmp.Diff(want, policy.Document()); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}

	if _, err := sandbox.LoadFile(filepath.Join(filepath.Dir(path), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing policy file")
	}
}
