package groupcontent

import (
	"io/fs"

	"github.com/goliatone/go-groupcontent/pkg/renderers/view"
)

// EmbeddedTemplates exposes the built-in group content templates so callers
// can reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return view.TemplatesFS()
}
