package sandbox

import (
	"bytes"
	"regexp"
	"strings"
)

var (
	blockPattern    = regexp.MustCompile(`(?s)\{%-?(.*?)-?%\}|\{\{-?(.*?)-?\}\}|\{#.*?#\}`)
	stringPattern   = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)
	filterPattern   = regexp.MustCompile(`\|\s*([A-Za-z_][A-Za-z0-9_]*)`)
	functionPattern = regexp.MustCompile(`(?:^|[^.\w])([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	identPattern    = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)`)
	refPattern      = regexp.MustCompile(`^\s*(?:"([^"]*)"|'([^']*)')`)
)

// referenceTags load another template named by a string literal argument.
var referenceTags = map[string]struct{}{
	"include": {}, "extends": {}, "import": {},
}

// keywords look like function calls when followed by a parenthesis.
var keywords = map[string]struct{}{
	"not": {}, "and": {}, "or": {}, "in": {}, "is": {}, "if": {}, "else": {},
}

// Use records the first line a construct appears on.
type Use struct {
	Name string
	Line int
}

// Usage lists the tags, filters and functions a template uses, each once, in
// order of first appearance.
type Usage struct {
	tags      []Use
	filters   []Use
	functions []Use
	refs      []Use
}

// Scan walks template source and records tag, filter and function usage.
// Closing and intermediate tags (end*, else, elif, empty) are not recorded.
// Templates named by string literals in include, extends and import are
// recorded as references.
func Scan(source []byte) Usage {
	var usage Usage
	matches := blockPattern.FindAllSubmatchIndex(source, -1)
	for _, m := range matches {
		line := 1 + bytes.Count(source[:m[0]], []byte("\n"))
		switch {
		case m[2] >= 0:
			body := string(source[m[2]:m[3]])
			ident := identPattern.FindStringSubmatchIndex(body)
			if ident == nil {
				continue
			}
			tag := body[ident[2]:ident[3]]
			if isTagRecordable(tag) {
				usage.tags = appendUse(usage.tags, tag, line)
			}
			rest := body[ident[1]:]
			if _, ok := referenceTags[tag]; ok {
				if ref := refPattern.FindStringSubmatch(rest); ref != nil {
					usage.refs = appendUse(usage.refs, ref[1]+ref[2], line)
				}
			}
			usage.scanExpression(rest, line)
		case m[4] >= 0:
			usage.scanExpression(string(source[m[4]:m[5]]), line)
		}
	}
	return usage
}

func (u *Usage) scanExpression(expr string, line int) {
	expr = stringPattern.ReplaceAllString(expr, `""`)
	expr = strings.ReplaceAll(expr, "||", " or ")

	for _, m := range filterPattern.FindAllStringSubmatch(expr, -1) {
		u.filters = appendUse(u.filters, m[1], line)
	}
	expr = filterPattern.ReplaceAllString(expr, " ")

	for _, m := range functionPattern.FindAllStringSubmatch(expr, -1) {
		name := m[1]
		if _, ok := keywords[name]; ok {
			continue
		}
		u.functions = appendUse(u.functions, name, line)
	}
}

// Tags returns tag names in order of first use.
func (u Usage) Tags() []string { return names(u.tags) }

// Filters returns filter names in order of first use.
func (u Usage) Filters() []string { return names(u.filters) }

// Functions returns function names in order of first use.
func (u Usage) Functions() []string { return names(u.functions) }

// References returns the templates named by include, extends and import
// tags, in order of first use. Names computed at render time are not listed.
func (u Usage) References() []string { return names(u.refs) }

// LineOf returns the first line the construct appears on, or 0.
func (u Usage) LineOf(kind Kind, name string) int {
	var list []Use
	switch kind {
	case KindTag:
		list = u.tags
	case KindFilter:
		list = u.filters
	case KindFunction:
		list = u.functions
	}
	for _, use := range list {
		if use.Name == name {
			return use.Line
		}
	}
	return 0
}

// Empty reports whether the template uses no tags, filters or functions.
func (u Usage) Empty() bool {
	return len(u.tags) == 0 && len(u.filters) == 0 && len(u.functions) == 0
}

func isTagRecordable(tag string) bool {
	if strings.HasPrefix(tag, "end") {
		return false
	}
	switch tag {
	case "else", "elif", "empty", "plural":
		return false
	}
	return true
}

func appendUse(list []Use, name string, line int) []Use {
	for _, use := range list {
		if use.Name == name {
			return list
		}
	}
	return append(list, Use{Name: name, Line: line})
}

func names(list []Use) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	for i, use := range list {
		out[i] = use.Name
	}
	return out
}
