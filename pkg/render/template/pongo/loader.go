package pongo

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-groupcontent/pkg/sandbox"
)

// sandboxLoader wraps the set's loader so every file the engine reads, the
// top-level template and anything it includes, extends or imports, is
// scanned, checked against the policy and given block whitespace control
// exactly once.
type sandboxLoader struct {
	inner  pongo2.TemplateLoader
	engine *Engine

	mu      sync.RWMutex
	sources map[string]sandbox.Usage
}

func newSandboxLoader(inner pongo2.TemplateLoader, engine *Engine) *sandboxLoader {
	return &sandboxLoader{
		inner:   inner,
		engine:  engine,
		sources: make(map[string]sandbox.Usage),
	}
}

func (l *sandboxLoader) Abs(base, name string) string {
	return l.inner.Abs(base, name)
}

func (l *sandboxLoader) Get(path string) (io.Reader, error) {
	r, err := l.inner.Get(path)
	if err != nil {
		return nil, err
	}
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pongo: read template %q: %w", path, err)
	}

	usage := sandbox.Scan(source)
	l.mu.Lock()
	l.sources[path] = usage
	l.mu.Unlock()

	if err := l.engine.checkSecurity(path, usage); err != nil {
		return nil, err
	}
	return bytes.NewReader(blockWhitespace(source, l.engine.trimBlocks, l.engine.lstripBlocks)), nil
}

func (l *sandboxLoader) usage(path string) (sandbox.Usage, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	usage, ok := l.sources[path]
	return usage, ok
}

func (l *sandboxLoader) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources = make(map[string]sandbox.Usage)
}

// checkTree checks the usage of name and of every template it references,
// depth first. A violation names the template that contains it.
func (l *sandboxLoader) checkTree(name string, usage sandbox.Usage, seen map[string]struct{}) error {
	if _, ok := seen[name]; ok {
		return nil
	}
	seen[name] = struct{}{}

	if err := l.engine.checkSecurity(name, usage); err != nil {
		return err
	}
	for _, ref := range usage.References() {
		base := name
		if name == stringTemplateName {
			base = ""
		}
		path := l.Abs(base, ref)
		child, ok := l.usage(path)
		if !ok {
			// Not read since the last reset, e.g. served from the set's cache.
			if _, err := l.Get(path); err != nil {
				var secErr *sandbox.SecurityError
				if errors.As(err, &secErr) {
					return err
				}
				continue
			}
			child, _ = l.usage(path)
		}
		if err := l.checkTree(path, child, seen); err != nil {
			return err
		}
	}
	return nil
}
