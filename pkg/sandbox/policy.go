// Package sandbox restricts which tags, filters and functions a template may
// use. Templates are scanned once when loaded and checked against the policy
// on every render.
package sandbox

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// builtinTags are the engine tags a policy can ban at parse time.
var builtinTags = []string{
	"autoescape", "block", "comment", "cycle", "extends", "filter", "firstof",
	"for", "if", "ifchanged", "ifequal", "ifnotequal", "import", "include",
	"lorem", "macro", "now", "set", "spaceless", "ssi", "templatetag",
	"widthratio", "with",
}

// builtinFilters are the engine filters a policy can ban at parse time.
var builtinFilters = []string{
	"escape", "safe", "escapejs", "add", "addslashes", "capfirst", "center",
	"cut", "date", "default", "default_if_none", "divisibleby", "first",
	"floatformat", "get_digit", "iriencode", "join", "last", "length",
	"length_is", "linebreaks", "linebreaksbr", "linenumbers", "ljust",
	"lower", "make_list", "phone2numeric", "pluralize", "random", "removetags",
	"rjust", "slice", "split", "stringformat", "striptags", "time", "title",
	"truncatechars", "truncatechars_html", "truncatewords",
	"truncatewords_html", "upper", "urlencode", "urlize", "urlizetrunc",
	"wordcount", "wordwrap", "yesno", "float", "integer",
}

// Policy is an allow-list. The zero value allows nothing.
type Policy struct {
	mu        sync.RWMutex
	tags      map[string]struct{}
	filters   map[string]struct{}
	functions map[string]struct{}
}

// Document is the YAML shape of a policy.
type Document struct {
	Tags      []string `yaml:"tags" json:"tags"`
	Filters   []string `yaml:"filters" json:"filters"`
	Functions []string `yaml:"functions" json:"functions"`
}

// NewPolicy builds a policy from allow-lists.
func NewPolicy(tags, filters, functions []string) *Policy {
	return &Policy{
		tags:      toSet(tags),
		filters:   toSet(filters),
		functions: toSet(functions),
	}
}

// DefaultPolicy allows the control-flow tags theme templates need and the
// escaping and formatting filters. No functions are allowed.
func DefaultPolicy() *Policy {
	return NewPolicy(
		[]string{"if", "for", "set", "block", "extends", "include", "spaceless", "autoescape", "with"},
		[]string{
			"escape", "safe", "default", "lower", "upper", "title", "capfirst",
			"trim", "join", "length", "striptags", "truncatechars", "urlencode",
			"date", "first", "last", "lowerfirst",
		},
		nil,
	)
}

// FromDocument converts a decoded YAML document.
func FromDocument(doc Document) *Policy {
	return NewPolicy(doc.Tags, doc.Filters, doc.Functions)
}

// ParseYAML decodes a policy document.
func ParseYAML(data []byte) (*Policy, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("sandbox: decode policy: %w", err)
	}
	return FromDocument(doc), nil
}

// LoadFile reads a YAML policy from disk. Absolute and relative paths are
// both accepted.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sandbox: read policy %q: %w", path, err)
	}
	return ParseYAML(data)
}

// CheckSecurity returns a *SecurityError for the first disallowed tag, then
// filter, then function, in the order given.
func (p *Policy) CheckSecurity(tags, filters, functions []string) error {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, tag := range tags {
		if _, ok := p.tags[tag]; !ok {
			return &SecurityError{Kind: KindTag, Name: tag}
		}
	}
	for _, filter := range filters {
		if _, ok := p.filters[filter]; !ok {
			return &SecurityError{Kind: KindFilter, Name: filter}
		}
	}
	for _, fn := range functions {
		if _, ok := p.functions[fn]; !ok {
			return &SecurityError{Kind: KindFunction, Name: fn}
		}
	}
	return nil
}

// Check runs CheckSecurity against a scanned usage table.
func (p *Policy) Check(usage Usage) error {
	return p.CheckSecurity(usage.Tags(), usage.Filters(), usage.Functions())
}

// SetAllowedTags replaces the tag allow-list.
func (p *Policy) SetAllowedTags(tags ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tags = toSet(tags)
}

// SetAllowedFilters replaces the filter allow-list.
func (p *Policy) SetAllowedFilters(filters ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filters = toSet(filters)
}

// SetAllowedFunctions replaces the function allow-list.
func (p *Policy) SetAllowedFunctions(functions ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.functions = toSet(functions)
}

// Document returns the policy as sorted allow-lists.
func (p *Policy) Document() Document {
	if p == nil {
		return Document{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Document{
		Tags:      sortedKeys(p.tags),
		Filters:   sortedKeys(p.filters),
		Functions: sortedKeys(p.functions),
	}
}

// BannedBuiltins lists builtin engine tags and filters the policy forbids.
func (p *Policy) BannedBuiltins() (tags, filters []string) {
	if p == nil {
		return nil, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, tag := range builtinTags {
		if _, ok := p.tags[tag]; !ok {
			tags = append(tags, tag)
		}
	}
	for _, filter := range builtinFilters {
		if _, ok := p.filters[filter]; !ok {
			filters = append(filters, filter)
		}
	}
	return tags, filters
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out[v] = struct{}{}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
