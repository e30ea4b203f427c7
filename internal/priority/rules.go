package priority

import (
	"github.com/gobwas/glob"

	"github.com/gigbase/stagehand/internal/errors"
)

// Rule maps a glob pattern over operation names to a request category,
// e.g. "search.*" -> read-heavy, "*.create" -> write-heavy.
type Rule struct {
	Pattern  string
	Category string
}

// compiledRule pairs a rule with its compiled matcher.
type compiledRule struct {
	pattern  string
	matcher  glob.Glob
	category string
}

// Rules categorizes operation names so transport adapters can tag requests
// without hand-maintaining a table. Rules are evaluated in order; the first
// matching pattern wins.
type Rules struct {
	rules           []compiledRule
	defaultCategory string
}

// NewRules compiles a rule set. Patterns use glob syntax; a pattern that
// fails to compile is a configuration error, not a skippable entry.
func NewRules(rules []Rule, defaultCategory string) (*Rules, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		g, err := glob.Compile(r.Pattern)
		if err != nil {
			return nil, errors.NewValidationError("rule pattern does not compile").
				WithField("pattern").
				WithValue(r.Pattern).
				WithCause(err)
		}
		compiled = append(compiled, compiledRule{
			pattern:  r.Pattern,
			matcher:  g,
			category: r.Category,
		})
	}

	return &Rules{
		rules:           compiled,
		defaultCategory: defaultCategory,
	}, nil
}

// Categorize returns the category of the first rule matching the operation
// name, or the default category when no rule matches.
func (r *Rules) Categorize(operation string) string {
	for _, rule := range r.rules {
		if rule.matcher.Match(operation) {
			return rule.category
		}
	}
	return r.defaultCategory
}

// DefaultCategory returns the category used for unmatched operations.
func (r *Rules) DefaultCategory() string {
	return r.defaultCategory
}

// Len returns the number of compiled rules.
func (r *Rules) Len() int {
	return len(r.rules)
}
