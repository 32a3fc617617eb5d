package template

import (
	"io"
)

// TemplateRenderer is the seam views render through.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}

// Contexter is implemented by view models that know how to expose themselves
// as template variables without a JSON round trip.
type Contexter interface {
	TemplateContext() map[string]any
}
