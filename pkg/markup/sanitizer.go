package markup

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	defaultPolicyOnce sync.Once
	defaultPolicy     *bluemonday.Policy
)

// Sanitizer strips untrusted markup from fragments before they reach a
// template. A nil Sanitizer passes fragments through unchanged.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer wraps a bluemonday policy. A nil policy selects the default
// user generated content policy.
func NewSanitizer(policy *bluemonday.Policy) *Sanitizer {
	if policy == nil {
		policy = contentPolicy()
	}
	return &Sanitizer{policy: policy}
}

// Sanitize returns the cleaned fragment.
func (s *Sanitizer) Sanitize(fragment Markup) Markup {
	if s == nil || s.policy == nil {
		return fragment
	}
	if strings.TrimSpace(string(fragment)) == "" {
		return fragment
	}
	return Markup(s.policy.Sanitize(string(fragment)))
}

func contentPolicy() *bluemonday.Policy {
	defaultPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class", "id").Globally()
		policy.AllowAttrs("rel").OnElements("a")
		policy.AllowElements("article", "section", "header", "footer", "figure", "figcaption")
		defaultPolicy = policy
	})
	return defaultPolicy
}
