// Package view renders the group content theme hook. The base template lives
// in templates/group-content.html.twig; themes and suggestion-specific
// templates can override it.
package view

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	theme "github.com/goliatone/go-theme"
	"go.uber.org/zap"

	"github.com/goliatone/go-groupcontent/pkg/entity"
	"github.com/goliatone/go-groupcontent/pkg/markup"
	"github.com/goliatone/go-groupcontent/pkg/model"
	"github.com/goliatone/go-groupcontent/pkg/render"
	rendertemplate "github.com/goliatone/go-groupcontent/pkg/render/template"
	"github.com/goliatone/go-groupcontent/pkg/render/template/pongo"
	"github.com/goliatone/go-groupcontent/pkg/sandbox"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	policy           *sandbox.Policy
	policySet        bool
	selector         theme.ThemeSelector
	sanitizer        *markup.Sanitizer
	logger           *zap.Logger
	name             string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk. Templates the
// directory does not provide fall back to the built-in bundle.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = OverlayFS(os.DirFS(path))
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
// Template and policy options are ignored when one is set.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithSecurityPolicy replaces the default sandbox policy. nil disables the
// sandbox.
func WithSecurityPolicy(policy *sandbox.Policy) Option {
	return func(cfg *config) {
		cfg.policy = policy
		cfg.policySet = true
	}
}

// WithThemeSelector enables theme template overrides.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(cfg *config) {
		cfg.selector = selector
	}
}

// WithSanitizer cleans fragments before they are inserted. Without it,
// fragments are trusted verbatim.
func WithSanitizer(sanitizer *markup.Sanitizer) Option {
	return func(cfg *config) {
		cfg.sanitizer = sanitizer
	}
}

// WithLogger sets the renderer logger, shared with the default engine.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithName overrides the registry name.
func WithName(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.name = name
		}
	}
}

// Renderer renders model.Variables through the group content template.
type Renderer struct {
	name      string
	templates rendertemplate.TemplateRenderer
	selector  theme.ThemeSelector
	sanitizer *markup.Sanitizer
	logger    *zap.Logger
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS: TemplatesFS(),
		logger:     zap.NewNop(),
		name:       entity.Hook,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if !cfg.policySet {
		cfg.policy = sandbox.DefaultPolicy()
	}

	templates := cfg.templateRenderer
	if templates == nil {
		engine, err := pongo.New(
			pongo.WithFS(cfg.templateFS),
			pongo.WithSecurityPolicy(cfg.policy),
			pongo.WithLogger(cfg.logger.Named("template")),
		)
		if err != nil {
			return nil, fmt.Errorf("view renderer: configure template renderer: %w", err)
		}
		templates = engine
	}

	return &Renderer{
		name:      cfg.name,
		templates: templates,
		selector:  cfg.selector,
		sanitizer: cfg.sanitizer,
		logger:    cfg.logger,
	}, nil
}

func (r *Renderer) Name() string {
	return r.name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Templates exposes the underlying template renderer, e.g. to reset its
// cache when files change.
func (r *Renderer) Templates() rendertemplate.TemplateRenderer {
	return r.templates
}

// Render produces the HTML fragment. A *sandbox.SecurityError from the
// template layer is returned as is.
func (r *Renderer) Render(ctx context.Context, vars model.Variables, options render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, errors.New("view renderer: template renderer is nil")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	name, err := r.resolveTemplate(options)
	if err != nil {
		return nil, err
	}

	if r.sanitizer != nil {
		vars = vars.Fragments(r.sanitizer.Sanitize)
	}

	r.logger.Debug("rendering group content",
		zap.String("template", name),
		zap.String("theme", options.Theme),
		zap.String("variant", options.Variant),
		zap.Bool("page", vars.Page))

	result, err := r.templates.RenderTemplate(name, vars)
	if err != nil {
		var secErr *sandbox.SecurityError
		if errors.As(err, &secErr) {
			return nil, err
		}
		return nil, fmt.Errorf("view renderer: render template: %w", err)
	}
	return []byte(result), nil
}
