package markup_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-groupcontent/pkg/markup"
)

func TestEscape(t *testing.T) {
	cases := map[string]string{
		"":                    "",
		"plain":               "plain",
		"Group <1>":           "Group &lt;1&gt;",
		`a & "b" 'c'`:         "a &amp; &quot;b&quot; &#39;c&#39;",
		"/g/1?x=1&y=<script>": "/g/1?x=1&amp;y=&lt;script&gt;",
	}
	for input, want := range cases {
		if got := markup.Escape(input); got != want {
			t.Errorf("Escape(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestEscapeLeavesNoRawSpecials(t *testing.T) {
	got := markup.Escape(`<"&'>`)
	for _, ch := range []string{"<", ">", `"`, "'"} {
		if strings.Contains(got, ch) {
			t.Fatalf("escaped output %q still contains %q", got, ch)
		}
	}
}

func TestJoin(t *testing.T) {
	got := markup.Join("<b>", "x", "</b>")
	if got != "<b>x</b>" {
		t.Fatalf("unexpected join result %q", got)
	}
}

func TestSanitizerRemovesScripts(t *testing.T) {
	s := markup.NewSanitizer(nil)
	got := s.Sanitize(`<p class="lead">Hi</p><script>alert(1)</script>`)
	if strings.Contains(string(got), "script") {
		t.Fatalf("expected script to be stripped, got %q", got)
	}
	if !strings.Contains(string(got), `<p class="lead">Hi</p>`) {
		t.Fatalf("expected paragraph to survive, got %q", got)
	}
}

func TestNilSanitizerPassesThrough(t *testing.T) {
	var s *markup.Sanitizer
	in := markup.Markup("<script>x</script>")
	if got := s.Sanitize(in); got != in {
		t.Fatalf("nil sanitizer altered fragment: %q", got)
	}
}
