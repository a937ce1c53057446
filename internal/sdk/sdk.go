// Package sdk describes the published call-signature contract of the infrar
// Python SDK. The transformer recognizes exactly these functions; adding an
// operation to the SDK means adding a signature here plus provider rules,
// never changing the engine.
package sdk

import (
	"fmt"
	"sort"
	"strings"
)

// ModulePath is the qualified Python module the SDK exports storage
// operations from.
const ModulePath = "infrar.storage"

// ContractVersion identifies the SDK signature set this engine targets.
const ContractVersion = "0.1.0"

// Param is one declared parameter of an SDK function.
type Param struct {
	Name string

	// HasDefault marks an optional parameter. Default holds its value as
	// Python literal text, materialized when a call site omits it.
	HasDefault bool
	Default    string
}

// Function is one recognized SDK function signature. Parameter order is the
// documented positional order.
type Function struct {
	Name   string
	Params []Param
}

// Signature returns a human-readable rendering like
// "list_objects(bucket, prefix='')".
func (f Function) Signature() string {
	parts := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		if p.HasDefault {
			parts = append(parts, p.Name+"="+p.Default)
			continue
		}
		parts = append(parts, p.Name)
	}
	return f.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Param looks up a declared parameter by name.
func (f Function) Param(name string) (Param, bool) {
	for _, p := range f.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Contract is a fixed, versioned set of recognized function signatures for
// one SDK module. It is immutable after construction and shared read-only
// across all concurrent transforms.
type Contract struct {
	module    string
	functions map[string]Function
}

// NewContract builds a contract from a function set.
// Optional parameters must trail required ones, mirroring Python.
func NewContract(module string, funcs []Function) (*Contract, error) {
	m := make(map[string]Function, len(funcs))
	for _, fn := range funcs {
		if fn.Name == "" {
			return nil, fmt.Errorf("contract %s: function with empty name", module)
		}
		if _, dup := m[fn.Name]; dup {
			return nil, fmt.Errorf("contract %s: duplicate function %q", module, fn.Name)
		}
		seenDefault := false
		for _, p := range fn.Params {
			if p.HasDefault {
				seenDefault = true
			} else if seenDefault {
				return nil, fmt.Errorf("contract %s: %s: required parameter %q after optional parameter", module, fn.Name, p.Name)
			}
		}
		m[fn.Name] = fn
	}
	return &Contract{module: module, functions: m}, nil
}

// Module returns the qualified module path the contract covers.
func (c *Contract) Module() string { return c.module }

// Lookup returns the signature for a recognized function name.
func (c *Contract) Lookup(name string) (Function, bool) {
	fn, ok := c.functions[name]
	return fn, ok
}

// Functions returns all signatures sorted by name.
func (c *Contract) Functions() []Function {
	out := make([]Function, 0, len(c.functions))
	for _, fn := range c.functions {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Storage returns the v0.1 infrar.storage contract:
//
//	upload(bucket, source, destination)
//	download(bucket, source, destination)
//	delete(bucket, path)
//	list_objects(bucket, prefix="")
func Storage() *Contract {
	c, err := NewContract(ModulePath, []Function{
		{Name: "upload", Params: []Param{{Name: "bucket"}, {Name: "source"}, {Name: "destination"}}},
		{Name: "download", Params: []Param{{Name: "bucket"}, {Name: "source"}, {Name: "destination"}}},
		{Name: "delete", Params: []Param{{Name: "bucket"}, {Name: "path"}}},
		{Name: "list_objects", Params: []Param{{Name: "bucket"}, {Name: "prefix", HasDefault: true, Default: "''"}}},
	})
	if err != nil {
		// The built-in contract is validated by tests; a failure here is
		// a programming error.
		panic(err)
	}
	return c
}
