package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-groupcontent/pkg/entity"
	"github.com/goliatone/go-groupcontent/pkg/model"
	"github.com/goliatone/go-groupcontent/pkg/render"
	"github.com/goliatone/go-groupcontent/pkg/renderers/view"
	"github.com/goliatone/go-groupcontent/pkg/sandbox"
)

// Decorator adjusts view variables after preprocessing and before
// rendering, e.g. to inject title_prefix markup.
type Decorator interface {
	Decorate(ctx context.Context, vars *model.Variables) error
}

// DecoratorFunc adapts a function to Decorator.
type DecoratorFunc func(ctx context.Context, vars *model.Variables) error

// Decorate calls f.
func (f DecoratorFunc) Decorate(ctx context.Context, vars *model.Variables) error {
	return f(ctx, vars)
}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithRegistry injects a renderer registry. Renderers are resolved by theme
// hook suggestion.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithViewOptions configures the default group content renderer registered
// when no registry is supplied.
func WithViewOptions(options ...view.Option) Option {
	return func(o *Orchestrator) {
		o.viewOptions = append(o.viewOptions, options...)
	}
}

// WithDecorators registers decorators that run in order before rendering.
func WithDecorators(decorators ...Decorator) Option {
	return func(o *Orchestrator) {
		o.decorators = append(o.decorators, decorators...)
	}
}

// WithDefaultTheme sets the theme and variant used when a request omits them.
func WithDefaultTheme(name, variant string) Option {
	return func(o *Orchestrator) {
		o.defaultTheme = name
		o.defaultVariant = variant
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator coordinates rendering from an entity or prepared variables.
type Orchestrator struct {
	registry        *render.Registry
	viewOptions     []view.Option
	decorators      []Decorator
	defaultTheme    string
	defaultVariant  string
	logger          *zap.Logger
	initialiseErr   error
	defaultsApplied bool
}

// New constructs an Orchestrator. Missing dependencies are initialised with
// the built-in view renderer.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{logger: zap.NewNop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes what to render. Exactly one of Entity or Variables is
// required; Entity wins when both are set.
type Request struct {
	Entity    *entity.GroupContent
	Variables *model.Variables

	// Suggestions override the entity derived suggestions.
	Suggestions []string
	Theme       string
	Variant     string
}

// Generate runs the pipeline and returns the rendered HTML. Sandbox
// violations are returned unwrapped.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.initialiseErr; err != nil {
		return nil, err
	}

	vars, suggestions, err := o.prepare(req)
	if err != nil {
		return nil, err
	}
	if err := o.applyDecorators(ctx, &vars); err != nil {
		return nil, err
	}

	renderer, matched, err := o.registry.Resolve(suggestions...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	options := render.RenderOptions{
		Theme:       firstNonEmpty(req.Theme, o.defaultTheme),
		Variant:     firstNonEmpty(req.Variant, o.defaultVariant),
		Suggestions: suggestions,
	}
	o.logger.Debug("generate",
		zap.String("renderer", renderer.Name()),
		zap.String("hook", matched),
		zap.Strings("suggestions", suggestions))

	output, err := renderer.Render(ctx, vars, options)
	if err != nil {
		var secErr *sandbox.SecurityError
		if errors.As(err, &secErr) {
			return nil, err
		}
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

func (o *Orchestrator) prepare(req Request) (model.Variables, []string, error) {
	switch {
	case req.Entity != nil:
		if err := req.Entity.Validate(); err != nil {
			return model.Variables{}, nil, fmt.Errorf("orchestrator: %w", err)
		}
		suggestions := req.Suggestions
		if len(suggestions) == 0 {
			suggestions = entity.Suggestions(*req.Entity)
		}
		return entity.Preprocess(*req.Entity), suggestions, nil
	case req.Variables != nil:
		suggestions := req.Suggestions
		if len(suggestions) == 0 {
			suggestions = []string{entity.Hook}
		}
		return *req.Variables, suggestions, nil
	default:
		return model.Variables{}, nil, errors.New("orchestrator: entity or variables are required")
	}
}

func (o *Orchestrator) applyDecorators(ctx context.Context, vars *model.Variables) error {
	for _, decorator := range o.decorators {
		if decorator == nil {
			continue
		}
		if err := decorator.Decorate(ctx, vars); err != nil {
			return fmt.Errorf("orchestrator: decorate variables: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) applyDefaults() {
	if o.defaultsApplied {
		return
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		options := append([]view.Option{view.WithLogger(o.logger.Named("view"))}, o.viewOptions...)
		renderer, err := view.New(options...)
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
		} else {
			o.registry.MustRegister(renderer)
		}
	}
	o.defaultsApplied = true
}

// Registry exposes the renderer registry so callers can add
// suggestion-specific renderers.
func (o *Orchestrator) Registry() *render.Registry {
	return o.registry
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
