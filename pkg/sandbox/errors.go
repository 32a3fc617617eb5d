package sandbox

import (
	"errors"
	"fmt"
)

// ErrSecurityPolicy matches every *SecurityError through errors.Is.
var ErrSecurityPolicy = errors.New("sandbox: security policy violation")

// Kind identifies which part of the policy rejected a template.
type Kind string

const (
	KindTag      Kind = "tag"
	KindFilter   Kind = "filter"
	KindFunction Kind = "function"
)

// SecurityError reports a construct the policy does not allow. Template
// metadata is attached by the engine before the error is returned; the value
// itself is never wrapped.
type SecurityError struct {
	Kind         Kind
	Name         string
	TemplateName string
	Line         int
}

func (e *SecurityError) Error() string {
	msg := fmt.Sprintf("sandbox: %s %q is not allowed", e.Kind, e.Name)
	switch {
	case e.TemplateName != "" && e.Line > 0:
		msg += fmt.Sprintf(" in %q at line %d", e.TemplateName, e.Line)
	case e.TemplateName != "":
		msg += fmt.Sprintf(" in %q", e.TemplateName)
	}
	return msg
}

// Is lets errors.Is(err, ErrSecurityPolicy) match.
func (e *SecurityError) Is(target error) bool {
	return target == ErrSecurityPolicy
}

// SetTemplate attaches the template name and, when the usage table knows it,
// the first line the offending construct appears on.
func (e *SecurityError) SetTemplate(name string, usage Usage) {
	e.TemplateName = name
	if line := usage.LineOf(e.Kind, e.Name); line > 0 {
		e.Line = line
	}
}
