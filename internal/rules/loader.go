package rules

import (
	"embed"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/QodeSrl/infrar-engine/internal/sdk"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// providerDoc is the on-disk shape of one provider rule document.
type providerDoc struct {
	Provider string `koanf:"provider" yaml:"provider"`
	Rules    []Rule `koanf:"rules" yaml:"rules"`
}

// LoadError reports a rule document that could not be loaded or validated.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("rules %s: %s", filepath.Base(e.File), e.Message)
}

// LoadBuiltin loads the embedded rule sets (aws, gcp, azure).
func LoadBuiltin(contract *sdk.Contract) (*Repository, error) {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil, fmt.Errorf("failed to read builtin rules: %w", err)
	}

	var all []*Rule
	for _, entry := range entries {
		name := filepath.Join("builtin", entry.Name())
		content, err := builtinFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read builtin rules %s: %w", entry.Name(), err)
		}

		var doc providerDoc
		if err := yamlv3.Unmarshal(content, &doc); err != nil {
			return nil, &LoadError{File: name, Message: err.Error()}
		}
		all = append(all, docRules(&doc)...)
	}

	return NewRepository(contract, all)
}

// LoadDir loads every *.yaml document from a directory, replacing the
// builtin rule sets entirely. The same validation applies.
func LoadDir(dir string, contract *sdk.Contract) (*Repository, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan rules directory: %w", err)
	}
	ymls, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan rules directory: %w", err)
	}
	matches = append(matches, ymls...)
	sort.Strings(matches)

	if len(matches) == 0 {
		return nil, fmt.Errorf("no rule documents (*.yaml) in %s", dir)
	}

	var all []*Rule
	for _, path := range matches {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, &LoadError{File: path, Message: err.Error()}
		}
		var doc providerDoc
		if err := k.Unmarshal("", &doc); err != nil {
			return nil, &LoadError{File: path, Message: err.Error()}
		}
		all = append(all, docRules(&doc)...)
	}

	return NewRepository(contract, all)
}

// Load returns the rule repository: the builtin sets, or the contents of
// dir when one is given.
func Load(dir string, contract *sdk.Contract) (*Repository, error) {
	if dir != "" {
		return LoadDir(dir, contract)
	}
	return LoadBuiltin(contract)
}

func docRules(doc *providerDoc) []*Rule {
	out := make([]*Rule, 0, len(doc.Rules))
	for i := range doc.Rules {
		r := doc.Rules[i]
		r.Provider = doc.Provider
		out = append(out, &r)
	}
	return out
}
