// Package config provides configuration management for the infrar CLI.
//
// Configuration is layered: built-in defaults, then an infrar.yaml project
// file, then INFRAR_-prefixed environment variables, then command-line
// flags, each layer overriding the one below.
package config

// Config holds all CLI configuration options.
type Config struct {
	Provider     string `koanf:"provider"`
	RulesDir     string `koanf:"rules_dir"`
	Workers      int    `koanf:"workers"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"format"`

	// ProjectRoot is the directory the config file was found in (or the
	// working directory when none was). Relative paths resolve against it.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	// DefaultProvider is empty on purpose: the target provider is an
	// explicit choice, never a silent default.
	DefaultProvider = ""
	// DefaultRulesDir is empty, meaning the embedded builtin rule set.
	DefaultRulesDir = ""
	// DefaultWorkers 0 lets the engine size the pool from NumCPU.
	DefaultWorkers = 0
	// DefaultOutput auto-detects: TTY gets styled text, pipes get plain.
	DefaultOutput = "auto"
)
