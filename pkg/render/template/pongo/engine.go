package pongo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
	"go.uber.org/zap"

	"github.com/goliatone/go-groupcontent/pkg/markup"
	"github.com/goliatone/go-groupcontent/pkg/render/template"
	"github.com/goliatone/go-groupcontent/pkg/sandbox"
)

const defaultExtension = ".html.twig"

const stringTemplateName = "__string_template__"

// Option configures the engine before construction.
type Option func(*config)

type config struct {
	baseDir    string
	templates  fs.FS
	extension  string
	templateFn map[string]any
	globalData map[string]any
	policy     *sandbox.Policy
	logger     *zap.Logger
	trimBlocks bool
	lstrip     bool
}

// WithBaseDir loads templates from a directory on disk.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates from an fs.FS. It wins over WithBaseDir.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithExtension overrides the extension appended to bare template names.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			return
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		cfg.extension = trimmed
	}
}

// WithTemplateFunc registers filters (pongo2.FilterFunction values) or
// callable globals when the engine loads.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		if len(funcs) == 0 {
			return
		}
		if cfg.templateFn == nil {
			cfg.templateFn = make(map[string]any, len(funcs))
		}
		for name, fn := range funcs {
			cfg.templateFn[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// WithSecurityPolicy enables the sandbox. Templates using constructs outside
// the policy fail with *sandbox.SecurityError.
func WithSecurityPolicy(policy *sandbox.Policy) Option {
	return func(cfg *config) {
		cfg.policy = policy
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithWhitespaceControl toggles removal of the newline after a block tag and
// of the indentation before it. Both default to on.
func WithWhitespaceControl(trimBlocks, lstripBlocks bool) Option {
	return func(cfg *config) {
		cfg.trimBlocks = trimBlocks
		cfg.lstrip = lstripBlocks
	}
}

type compiled struct {
	tmpl  *pongo2.Template
	usage sandbox.Usage
}

// Engine satisfies template.TemplateRenderer with a sandboxed pongo2 set.
type Engine struct {
	mu sync.RWMutex

	fsys        fs.FS
	templateSet *pongo2.TemplateSet
	loader      *sandboxLoader
	templates   map[string]*compiled
	tplExt      string
	policy      *sandbox.Policy
	logger      *zap.Logger

	trimBlocks   bool
	lstripBlocks bool
}

var _ template.TemplateRenderer = (*Engine)(nil)

// New constructs an Engine.
func New(options ...Option) (*Engine, error) {
	cfg := &config{
		extension:  defaultExtension,
		logger:     zap.NewNop(),
		trimBlocks: true,
		lstrip:     true,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	fsys := cfg.templates
	if fsys == nil && cfg.baseDir != "" {
		if _, err := os.Stat(cfg.baseDir); err != nil {
			return nil, fmt.Errorf("pongo: template dir: %w", err)
		}
		fsys = os.DirFS(cfg.baseDir)
	}
	if fsys == nil {
		return nil, errors.New("pongo: need to provide either base dir or fs.FS")
	}

	// Whitespace control is applied to the source by the loader. The set's
	// own TrimBlocks/LStripBlocks rewrite shared tokens on every execution.
	engine := &Engine{
		fsys:         fsys,
		templates:    make(map[string]*compiled),
		tplExt:       cfg.extension,
		policy:       cfg.policy,
		logger:       cfg.logger,
		trimBlocks:   cfg.trimBlocks,
		lstripBlocks: cfg.lstrip,
	}
	engine.loader = newSandboxLoader(pongo2.NewFSLoader(fsys), engine)
	engine.templateSet = pongo2.NewSet("groupcontent", engine.loader)
	engine.banBuiltins()
	registerDefaultFilters()

	if err := engine.GlobalContext(cfg.globalData); err != nil {
		return nil, fmt.Errorf("pongo: apply global data: %w", err)
	}
	for name, fn := range cfg.templateFn {
		if err := engine.registerTemplateFunc(name, fn); err != nil {
			return nil, fmt.Errorf("pongo: register template func %q: %w", name, err)
		}
	}

	return engine, nil
}

// banBuiltins mirrors the policy at parse time. Names the engine build does
// not ship are skipped.
func (e *Engine) banBuiltins() {
	if e.policy == nil {
		return
	}
	tags, filters := e.policy.BannedBuiltins()
	for _, tag := range tags {
		if err := e.templateSet.BanTag(tag); err != nil {
			e.logger.Debug("skip tag ban", zap.String("tag", tag), zap.Error(err))
		}
	}
	for _, filter := range filters {
		if err := e.templateSet.BanFilter(filter); err != nil {
			e.logger.Debug("skip filter ban", zap.String("filter", filter), zap.Error(err))
		}
	}
}

// Render treats name as inline source when it contains template syntax.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	if isTemplateContent(name) {
		return e.RenderString(name, data, out...)
	}
	return e.RenderTemplate(name, data, out...)
}

// RenderTemplate renders a named template. Sandbox violations are returned as
// the *sandbox.SecurityError itself, with template name and line attached.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.templateSet == nil {
		return "", errors.New("pongo: engine is nil")
	}
	templatePath := e.templatePath(name)

	entry, err := e.getTemplate(templatePath)
	if err != nil {
		return "", err
	}
	if err := e.loader.checkTree(templatePath, entry.usage, map[string]struct{}{}); err != nil {
		return "", err
	}

	return e.execute(entry.tmpl, templatePath, data, out)
}

// RenderString parses and renders inline source under the same policy.
func (e *Engine) RenderString(templateContent string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.templateSet == nil {
		return "", errors.New("pongo: engine is nil")
	}

	source := []byte(templateContent)
	usage := sandbox.Scan(source)
	if err := e.checkSecurity(stringTemplateName, usage); err != nil {
		return "", err
	}

	e.mu.Lock()
	tmpl, err := e.templateSet.FromBytes(blockWhitespace(source, e.trimBlocks, e.lstripBlocks))
	e.mu.Unlock()
	if err != nil {
		if secErr := securityError(err); secErr != nil {
			return "", secErr
		}
		return "", fmt.Errorf("pongo: parse template string: %w", err)
	}
	if err := e.loader.checkTree(stringTemplateName, usage, map[string]struct{}{}); err != nil {
		return "", err
	}

	return e.execute(tmpl, stringTemplateName, data, out)
}

func (e *Engine) execute(tmpl *pongo2.Template, name string, data any, out []io.Writer) (string, error) {
	viewContext, err := convertToContext(data)
	if err != nil {
		return "", fmt.Errorf("pongo: convert data: %w", err)
	}

	var buf bytes.Buffer

	e.mu.RLock()
	err = tmpl.ExecuteWriter(viewContext, &buf)
	e.mu.RUnlock()

	if err != nil {
		if secErr := securityError(err); secErr != nil {
			return "", secErr
		}
		return "", fmt.Errorf("pongo: execute template %q: %w", name, err)
	}

	rendered := buf.String()
	for _, w := range out {
		if w == nil {
			continue
		}
		if _, err := io.WriteString(w, rendered); err != nil {
			return "", err
		}
	}
	return rendered, nil
}

func (e *Engine) checkSecurity(name string, usage sandbox.Usage) error {
	if e.policy == nil {
		return nil
	}
	err := e.policy.Check(usage)
	if err == nil {
		return nil
	}
	var secErr *sandbox.SecurityError
	if errors.As(err, &secErr) {
		secErr.SetTemplate(name, usage)
		e.logger.Warn("template rejected by sandbox",
			zap.String("template", name),
			zap.String("kind", string(secErr.Kind)),
			zap.String("name", secErr.Name),
			zap.Int("line", secErr.Line))
	}
	return err
}

// Usage returns the scanned tag, filter and function usage of a template.
func (e *Engine) Usage(name string) (sandbox.Usage, error) {
	entry, err := e.getTemplate(e.templatePath(name))
	if err != nil {
		return sandbox.Usage{}, err
	}
	return entry.usage, nil
}

// Exists reports whether the template file can be read.
func (e *Engine) Exists(name string) bool {
	if e == nil || e.fsys == nil {
		return false
	}
	_, err := fs.Stat(e.fsys, e.templatePath(name))
	return err == nil
}

// Reset drops every compiled template so the next render reloads from disk.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates = make(map[string]*compiled)
	e.templateSet.CleanCache()
	e.loader.reset()
	e.logger.Debug("template cache reset")
}

// RegisterFilter registers a template filter. pongo2 filters are process
// wide, so registering an existing name fails.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return errors.New("pongo: filter name and function required")
	}

	filter := func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "custom_filter", OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}

	if pongo2.FilterExists(name) {
		return fmt.Errorf("pongo: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, filter)
}

// GlobalContext merges data into the globals of every template.
func (e *Engine) GlobalContext(data any) error {
	if e == nil || e.templateSet == nil {
		return errors.New("pongo: engine is nil")
	}
	if data == nil {
		return nil
	}

	globalCtx, err := convertToContext(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.templateSet.Globals == nil {
		e.templateSet.Globals = make(pongo2.Context)
	}
	e.templateSet.Globals.Update(globalCtx)
	return nil
}

func (e *Engine) registerTemplateFunc(name string, fn any) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || fn == nil {
		return nil
	}

	if filter, ok := fn.(pongo2.FilterFunction); ok {
		if pongo2.FilterExists(trimmed) {
			return nil
		}
		return pongo2.RegisterFilter(trimmed, filter)
	}

	if !isCallable(fn) {
		return fmt.Errorf("pongo: %q is neither a filter nor a function", trimmed)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.templateSet.Globals == nil {
		e.templateSet.Globals = make(pongo2.Context)
	}
	e.templateSet.Globals[trimmed] = fn
	return nil
}

func (e *Engine) templatePath(name string) string {
	templatePath := strings.TrimPrefix(strings.TrimSpace(name), "/")
	if !strings.HasSuffix(templatePath, e.tplExt) {
		templatePath += e.tplExt
	}
	return templatePath
}

func (e *Engine) getTemplate(path string) (*compiled, error) {
	e.mu.RLock()
	if entry, ok := e.templates[path]; ok {
		e.mu.RUnlock()
		return entry, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if entry, ok := e.templates[path]; ok {
		return entry, nil
	}

	if _, err := fs.Stat(e.fsys, path); err != nil {
		return nil, fmt.Errorf("pongo: load template %q: %w", path, err)
	}

	tmpl, err := e.templateSet.FromFile(path)
	if err != nil {
		if secErr := securityError(err); secErr != nil {
			return nil, secErr
		}
		if usage, ok := e.loader.usage(e.loader.Abs("", path)); ok {
			// Parse-time bans surface as plain parse errors.
			if checkErr := e.loader.checkTree(path, usage, map[string]struct{}{}); checkErr != nil {
				return nil, checkErr
			}
		}
		return nil, fmt.Errorf("pongo: load template %q: %w", path, err)
	}
	usage, _ := e.loader.usage(e.loader.Abs("", path))

	entry := &compiled{tmpl: tmpl, usage: usage}
	e.templates[path] = entry
	e.logger.Debug("template compiled",
		zap.String("template", path),
		zap.Strings("tags", usage.Tags()),
		zap.Strings("filters", usage.Filters()))
	return entry, nil
}

// securityError digs a *sandbox.SecurityError out of a pongo2 error chain.
// Loader errors reach the caller wrapped in *pongo2.Error values.
func securityError(err error) *sandbox.SecurityError {
	for err != nil {
		var secErr *sandbox.SecurityError
		if errors.As(err, &secErr) {
			return secErr
		}
		var pongoErr *pongo2.Error
		if !errors.As(err, &pongoErr) || pongoErr.OrigError == nil || pongoErr.OrigError == err {
			return nil
		}
		err = pongoErr.OrigError
	}
	return nil
}

func isTemplateContent(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%")
}

func isCallable(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Func
}

func convertToContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return convertMapToContext(map[string]any(v))
	case map[string]any:
		return convertMapToContext(v)
	case template.Contexter:
		return convertMapToContext(v.TemplateContext())
	default:
		m, err := jsonToMap(v)
		if err != nil {
			return nil, err
		}
		return convertMapToContext(m)
	}
}

func convertMapToContext(in map[string]any) (pongo2.Context, error) {
	out := make(pongo2.Context, len(in))
	for key, value := range in {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		converted, err := convertValue(value)
		if err != nil {
			return nil, err
		}
		out[key] = converted
	}
	return out, nil
}

// convertValue keeps trusted fragments safe and scalars intact; anything else
// goes through JSON so templates see plain maps and slices.
func convertValue(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if isCallable(value) {
		return value, nil
	}

	switch v := value.(type) {
	case *pongo2.Value:
		return v, nil
	case markup.Safe:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return pongo2.AsSafeValue(""), nil
		}
		return pongo2.AsSafeValue(v.SafeHTML()), nil
	case string, bool, int, int64, float64:
		return v, nil
	case pongo2.Context:
		return convertMap(map[string]any(v))
	case map[string]any:
		return convertMap(v)
	case []any:
		return convertSlice(v)
	default:
		raw, err := jsonToAny(v)
		if err != nil {
			return nil, err
		}
		switch decoded := raw.(type) {
		case map[string]any:
			return convertMap(decoded)
		case []any:
			return convertSlice(decoded)
		default:
			return decoded, nil
		}
	}
}

func convertMap(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for key, value := range in {
		converted, err := convertValue(value)
		if err != nil {
			return nil, err
		}
		out[key] = converted
	}
	return out, nil
}

func convertSlice(in []any) ([]any, error) {
	out := make([]any, 0, len(in))
	for _, value := range in {
		converted, err := convertValue(value)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func jsonToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func jsonToAny(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func registerDefaultFilters() {
	if !pongo2.FilterExists("trim") {
		_ = pongo2.RegisterFilter("trim", filterTrim)
	}
	if !pongo2.FilterExists("lowerfirst") {
		_ = pongo2.RegisterFilter("lowerfirst", filterLowerFirst)
	}
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	t := in.String()

	for i, r := range t {
		if strings.ContainsRune(" \t\n\r", r) {
			continue
		}
		size := utf8.RuneLen(r)
		return pongo2.AsValue(t[:i] + strings.ToLower(string(r)) + t[i+size:]), nil
	}
	return pongo2.AsValue(t), nil
}
