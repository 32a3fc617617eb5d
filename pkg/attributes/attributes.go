// Package attributes provides an ordered HTML attribute collection that
// renders itself with escaped values, ready to be appended to an opening tag.
package attributes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-groupcontent/pkg/markup"
)

const classAttr = "class"

// ErrInvalidName is returned when an attribute name cannot appear in HTML.
var ErrInvalidName = errors.New("attributes: invalid attribute name")

type entry struct {
	value   string
	boolean bool
}

// Attributes keeps attributes in insertion order. The class attribute is held
// as a de-duplicated token list. The zero value is ready to use.
type Attributes struct {
	order   []string
	entries map[string]entry
	classes []string
}

// New returns an empty collection.
func New() *Attributes {
	return &Attributes{}
}

// FromMap builds a collection from loosely typed values. Keys are applied in
// sorted order so the output is deterministic. Booleans render as bare
// attributes when true and are skipped when false; string slices are joined
// with spaces (or become classes for "class").
func FromMap(values map[string]any) (*Attributes, error) {
	attrs := New()
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := attrs.set(key, values[key]); err != nil {
			return nil, err
		}
	}
	return attrs, nil
}

// MustFromMap panics when FromMap fails. Useful for fixtures.
func MustFromMap(values map[string]any) *Attributes {
	attrs, err := FromMap(values)
	if err != nil {
		panic(err)
	}
	return attrs
}

func (a *Attributes) set(name string, raw any) error {
	switch v := raw.(type) {
	case nil:
		return a.SetAttribute(name, "")
	case bool:
		if !v {
			return validateName(name)
		}
		return a.SetBoolean(name)
	case string:
		return a.SetAttribute(name, v)
	case []string:
		if strings.EqualFold(name, classAttr) {
			a.AddClass(v...)
			return nil
		}
		return a.SetAttribute(name, strings.Join(v, " "))
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return a.set(name, parts)
	case int:
		return a.SetAttribute(name, strconv.Itoa(v))
	case float64:
		return a.SetAttribute(name, strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return a.SetAttribute(name, fmt.Sprint(v))
	}
}

// SetAttribute sets name to value, replacing any previous value in place.
// Setting "class" replaces the class list with the whitespace separated
// tokens in value.
func (a *Attributes) SetAttribute(name, value string) error {
	if err := validateName(name); err != nil {
		return err
	}
	name = strings.ToLower(name)
	if name == classAttr {
		a.classes = nil
		a.touch(classAttr)
		a.AddClass(strings.Fields(value)...)
		return nil
	}
	a.touch(name)
	a.entries[name] = entry{value: value}
	return nil
}

// SetBoolean sets a value-less attribute such as "hidden".
func (a *Attributes) SetBoolean(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	name = strings.ToLower(name)
	if name == classAttr {
		return fmt.Errorf("%w: class cannot be boolean", ErrInvalidName)
	}
	a.touch(name)
	a.entries[name] = entry{boolean: true}
	return nil
}

func (a *Attributes) touch(name string) {
	if a.entries == nil {
		a.entries = make(map[string]entry)
	}
	if name == classAttr {
		for _, existing := range a.order {
			if existing == classAttr {
				return
			}
		}
		a.order = append(a.order, classAttr)
		return
	}
	if _, ok := a.entries[name]; !ok {
		a.order = append(a.order, name)
	}
}

// RemoveAttribute drops the named attributes. Removing "class" clears the
// class list.
func (a *Attributes) RemoveAttribute(names ...string) {
	if a == nil {
		return
	}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == classAttr {
			a.classes = nil
		} else {
			delete(a.entries, name)
		}
		a.order = removeString(a.order, name)
	}
}

// AddClass appends class tokens, skipping blanks and duplicates.
func (a *Attributes) AddClass(classes ...string) *Attributes {
	for _, class := range classes {
		for _, token := range strings.Fields(class) {
			if a.HasClass(token) {
				continue
			}
			a.touch(classAttr)
			a.classes = append(a.classes, token)
		}
	}
	return a
}

// RemoveClass drops class tokens.
func (a *Attributes) RemoveClass(classes ...string) *Attributes {
	if a == nil {
		return a
	}
	for _, class := range classes {
		a.classes = removeString(a.classes, strings.TrimSpace(class))
	}
	return a
}

// HasClass reports whether the class token is present.
func (a *Attributes) HasClass(class string) bool {
	if a == nil {
		return false
	}
	for _, existing := range a.classes {
		if existing == class {
			return true
		}
	}
	return false
}

// HasAttribute reports whether the attribute is set. A class attribute with
// no tokens counts as unset.
func (a *Attributes) HasAttribute(name string) bool {
	if a == nil {
		return false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == classAttr {
		return len(a.classes) > 0
	}
	_, ok := a.entries[name]
	return ok
}

// Get returns the raw (unescaped) value.
func (a *Attributes) Get(name string) (string, bool) {
	if a == nil {
		return "", false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == classAttr {
		return strings.Join(a.classes, " "), len(a.classes) > 0
	}
	e, ok := a.entries[name]
	return e.value, ok
}

// Classes returns a copy of the class tokens.
func (a *Attributes) Classes() []string {
	if a == nil || len(a.classes) == 0 {
		return nil
	}
	out := make([]string, len(a.classes))
	copy(out, a.classes)
	return out
}

// Len counts rendered attributes.
func (a *Attributes) Len() int {
	if a == nil {
		return 0
	}
	n := 0
	for _, name := range a.order {
		if name == classAttr && len(a.classes) == 0 {
			continue
		}
		n++
	}
	return n
}

// Merge copies every attribute from other. Classes are unioned, other values
// win.
func (a *Attributes) Merge(other *Attributes) *Attributes {
	if other == nil {
		return a
	}
	for _, name := range other.order {
		if name == classAttr {
			a.AddClass(other.classes...)
			continue
		}
		e := other.entries[name]
		a.touch(name)
		a.entries[name] = e
	}
	return a
}

// Clone returns a deep copy.
func (a *Attributes) Clone() *Attributes {
	out := New()
	if a == nil {
		return out
	}
	return out.Merge(a)
}

// String renders ` name="value"` pairs with escaped values. An empty
// collection renders as "".
func (a *Attributes) String() string {
	if a == nil || len(a.order) == 0 {
		return ""
	}
	var b strings.Builder
	for _, name := range a.order {
		if name == classAttr {
			if len(a.classes) == 0 {
				continue
			}
			b.WriteString(` class="`)
			b.WriteString(markup.Escape(strings.Join(a.classes, " ")))
			b.WriteByte('"')
			continue
		}
		e := a.entries[name]
		b.WriteByte(' ')
		b.WriteString(name)
		if e.boolean {
			continue
		}
		b.WriteString(`="`)
		b.WriteString(markup.Escape(e.value))
		b.WriteByte('"')
	}
	return b.String()
}

// SafeHTML satisfies markup.Safe; values were escaped by String.
func (a *Attributes) SafeHTML() string {
	return a.String()
}

// MarshalJSON encodes the collection as an object in attribute order.
func (a *Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if a != nil {
		first := true
		for _, name := range a.order {
			var value any
			switch {
			case name == classAttr:
				if len(a.classes) == 0 {
					continue
				}
				value = a.classes
			case a.entries[name].boolean:
				value = true
			default:
				value = a.entries[name].value
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			key, _ := json.Marshal(name)
			buf.Write(key)
			buf.WriteByte(':')
			raw, err := json.Marshal(value)
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping key order.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("attributes: decode json: %w", err)
	}
	if tok == nil {
		*a = Attributes{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("attributes: expected a JSON object")
	}
	out := Attributes{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("attributes: decode json: %w", err)
		}
		key, _ := keyTok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("attributes: decode json value %q: %w", key, err)
		}
		if err := out.set(key, value); err != nil {
			return err
		}
	}
	*a = out
	return nil
}

// UnmarshalYAML decodes a mapping keeping key order.
func (a *Attributes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("attributes: line %d: expected a mapping", node.Line)
	}
	out := Attributes{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("attributes: decode yaml value %q: %w", key, err)
		}
		if err := out.set(key, value); err != nil {
			return err
		}
	}
	*a = out
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		switch r {
		case '"', '\'', '<', '>', '/', '=', '`':
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

func removeString(list []string, target string) []string {
	out := list[:0]
	for _, item := range list {
		if item != target {
			out = append(out, item)
		}
	}
	return out
}
