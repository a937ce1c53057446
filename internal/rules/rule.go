// Package rules loads and indexes transformation rules: the mapping from one
// provider-agnostic SDK function, for one target provider, to a native call
// template plus its required import and client-setup lines. Rules are data,
// deserialized from YAML documents and validated against the SDK contract
// before any file is processed.
package rules

import (
	"fmt"
	"regexp"

	"github.com/QodeSrl/infrar-engine/internal/sdk"
)

// Rule is one (function, provider) transformation. Immutable after load,
// shared read-only across all concurrent transforms.
type Rule struct {
	// Function is the SDK function this rule rewrites.
	Function string `koanf:"function" yaml:"function" json:"function"`

	// Template is the native call with {param} placeholders named after
	// the SDK parameter names.
	Template string `koanf:"template" yaml:"template" json:"template"`

	// Imports are module import lines required once per output file,
	// before the first rewritten call.
	Imports []string `koanf:"imports" yaml:"imports" json:"imports,omitempty"`

	// Setup are client-construction lines emitted once per output file,
	// after the imports.
	Setup []string `koanf:"setup" yaml:"setup" json:"setup,omitempty"`

	// NoCapture marks a rule whose native form cannot stand in for a
	// captured expression; only standalone call statements match.
	NoCapture bool `koanf:"no_capture" yaml:"no_capture" json:"no_capture"`

	// Provider is the target provider, set by the loader from the
	// enclosing document.
	Provider string `koanf:"-" yaml:"-" json:"-"`
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Placeholders returns the placeholder names of a template, in order of
// first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// ExpandTemplate substitutes placeholder values into a template. Every
// placeholder must have a value; validation at load time guarantees this for
// resolved arguments.
func ExpandTemplate(template string, values map[string]string) (string, error) {
	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := values[name]
		if !ok {
			missing = name
			return m
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("template placeholder {%s} has no value", missing)
	}
	return out, nil
}

// validate checks one rule against the SDK contract. Violations are fatal at
// load time so an incomplete or corrupt rule set is surfaced before any
// source file is touched.
func (r *Rule) validate(contract *sdk.Contract) error {
	if r.Function == "" {
		return fmt.Errorf("rule with empty function name")
	}
	fn, ok := contract.Lookup(r.Function)
	if !ok {
		return fmt.Errorf("rule for unknown function %q", r.Function)
	}
	if r.Template == "" {
		return fmt.Errorf("rule %s: empty template", r.Function)
	}

	declared := map[string]bool{}
	for _, p := range fn.Params {
		declared[p.Name] = true
	}
	covered := map[string]bool{}
	for _, name := range Placeholders(r.Template) {
		if !declared[name] {
			return fmt.Errorf("rule %s: placeholder {%s} is not a parameter of %s", r.Function, name, fn.Signature())
		}
		covered[name] = true
	}
	for _, p := range fn.Params {
		if !covered[p.Name] {
			return fmt.Errorf("rule %s: template does not cover parameter %q", r.Function, p.Name)
		}
	}
	return nil
}
