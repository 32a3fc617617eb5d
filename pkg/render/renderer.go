package render

import (
	"context"

	"github.com/goliatone/go-groupcontent/pkg/model"
)

// Renderer turns view variables into bytes (HTML for the built-in view).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, vars model.Variables, options RenderOptions) ([]byte, error)
}
