package markup

import (
	"html"

	"github.com/flosch/pongo2/v6"
)

// Markup is a pre-rendered fragment the caller has already escaped or
// sanitised.
type Markup string

// String returns the fragment unchanged.
func (m Markup) String() string {
	return string(m)
}

// SafeHTML marks Markup as trusted for template insertion.
func (m Markup) SafeHTML() string {
	return string(m)
}

// Safe is implemented by values that render themselves to trusted HTML, such
// as attribute collections that escape their own values.
type Safe interface {
	SafeHTML() string
}

// Escape encodes <, >, &, " and ' using the same replacements as the template
// engine's escape filter, so helpers and templates agree byte for byte.
func Escape(value string) string {
	if value == "" {
		return ""
	}
	out, err := pongo2.ApplyFilter("escape", pongo2.AsValue(value), nil)
	if err != nil || out == nil {
		return html.EscapeString(value)
	}
	return out.String()
}

// Join concatenates fragments without escaping.
func Join(parts ...Markup) Markup {
	var size int
	for _, part := range parts {
		size += len(part)
	}
	buf := make([]byte, 0, size)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return Markup(buf)
}
