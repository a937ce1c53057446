package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/QodeSrl/infrar-engine/internal/sdk"
)

// ruleKey indexes rules by (function, provider).
type ruleKey struct {
	function string
	provider string
}

// Repository holds validated rules for lookup by (function, provider).
// It is read-only after construction and safe for concurrent use.
type Repository struct {
	mu    sync.RWMutex
	byKey map[ruleKey]*Rule
}

// NewRepository builds a repository from validated rule sets.
// Every rule is checked against the contract; duplicates are rejected.
func NewRepository(contract *sdk.Contract, ruleList []*Rule) (*Repository, error) {
	repo := &Repository{byKey: make(map[ruleKey]*Rule, len(ruleList))}
	for _, r := range ruleList {
		if r.Provider == "" {
			return nil, fmt.Errorf("rule %s: missing provider", r.Function)
		}
		if err := r.validate(contract); err != nil {
			return nil, fmt.Errorf("provider %s: %w", r.Provider, err)
		}
		key := ruleKey{function: r.Function, provider: r.Provider}
		if _, dup := repo.byKey[key]; dup {
			return nil, fmt.Errorf("provider %s: duplicate rule for %s", r.Provider, r.Function)
		}
		repo.byKey[key] = r
	}
	return repo, nil
}

// Lookup returns the rule for a (function, provider) pair.
func (r *Repository) Lookup(function, provider string) (*Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.byKey[ruleKey{function: function, provider: provider}]
	return rule, ok
}

// Providers returns the distinct providers with at least one rule, sorted.
func (r *Repository) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for k := range r.byKey {
		if !seen[k.provider] {
			seen[k.provider] = true
			out = append(out, k.provider)
		}
	}
	sort.Strings(out)
	return out
}

// RulesFor returns all rules for one provider, sorted by function name.
func (r *Repository) RulesFor(provider string) []*Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Rule
	for k, rule := range r.byKey {
		if k.provider == provider {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Function < out[j].Function })
	return out
}

// Len returns the number of loaded rules.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
