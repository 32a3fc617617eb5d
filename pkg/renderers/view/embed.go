package view

import (
	"embed"
	"errors"
	"io/fs"
)

//go:embed templates/*.html.twig
var embeddedTemplates embed.FS

// BaseTemplate is the template every suggestion falls back to.
const BaseTemplate = "group-content.html.twig"

// TemplatesFS exposes the built-in templates rooted at the template names.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// OverlayFS serves files from primary and falls back to the built-in
// templates, so a theme directory only needs the templates it overrides.
func OverlayFS(primary fs.FS) fs.FS {
	if primary == nil {
		return TemplatesFS()
	}
	return overlayFS{primary: primary, fallback: TemplatesFS()}
}

type overlayFS struct {
	primary  fs.FS
	fallback fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.primary.Open(name)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return o.fallback.Open(name)
	}
	return nil, err
}
