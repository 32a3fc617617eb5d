package groupcontent

import (
	"context"
	"sync"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-groupcontent/pkg/entity"
	"github.com/goliatone/go-groupcontent/pkg/model"
	"github.com/goliatone/go-groupcontent/pkg/orchestrator"
	"github.com/goliatone/go-groupcontent/pkg/render"
	"github.com/goliatone/go-groupcontent/pkg/renderers/view"
)

// GroupContent aliases entity.GroupContent for callers of the root package.
type GroupContent = entity.GroupContent

// Variables aliases model.Variables.
type Variables = model.Variables

// RenderOptions aliases render.RenderOptions.
type RenderOptions = render.RenderOptions

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// defaultOrchestrator serves Render and RenderEntity calls made without
// options, so the compiled template cache survives between calls.
var defaultOrchestrator = sync.OnceValue(func() *orchestrator.Orchestrator {
	return orchestrator.New()
})

func orchestratorFor(options []orchestrator.Option) *orchestrator.Orchestrator {
	if len(options) == 0 {
		return defaultOrchestrator()
	}
	return orchestrator.New(options...)
}

// Render renders prepared variables with the built-in group content view.
// Calls with options build a fresh orchestrator; prefer NewOrchestrator when
// rendering repeatedly with the same options.
func Render(ctx context.Context, vars Variables, options ...orchestrator.Option) ([]byte, error) {
	return orchestratorFor(options).Generate(ctx, orchestrator.Request{Variables: &vars})
}

// RenderEntity preprocesses a group content entity and renders it, honouring
// theme hook suggestions derived from its bundle and view mode.
func RenderEntity(ctx context.Context, g GroupContent, options ...orchestrator.Option) ([]byte, error) {
	return orchestratorFor(options).Generate(ctx, orchestrator.Request{Entity: &g})
}

// WithThemeSelector passes a go-theme selector through to the default view so
// theme templates can override group content markup.
func WithThemeSelector(selector theme.ThemeSelector) orchestrator.Option {
	return orchestrator.WithViewOptions(view.WithThemeSelector(selector))
}
