// Package commands implements the infrar subcommands.
package commands

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/QodeSrl/infrar-engine/internal/cli/config"
	"github.com/QodeSrl/infrar-engine/internal/cli/output"
	"github.com/QodeSrl/infrar-engine/internal/engine"
	"github.com/QodeSrl/infrar-engine/internal/rules"
	"github.com/QodeSrl/infrar-engine/internal/sdk"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's config and
// context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration. It uses
// config.GetCurrentConfig() if available, otherwise falls back to
// environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	workers := 0
	if v := os.Getenv("INFRAR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			workers = n
		}
	}

	return &config.Config{
		Provider:     os.Getenv("INFRAR_PROVIDER"),
		RulesDir:     os.Getenv("INFRAR_RULES_DIR"),
		Workers:      workers,
		Verbose:      os.Getenv("INFRAR_VERBOSE") == "true",
		OutputFormat: getEnvOrDefault("INFRAR_FORMAT", config.DefaultOutput),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadRepository loads the rule repository named by the config: a rules
// directory when one is set, the embedded builtin set otherwise.
func loadRepository(cfg *config.Config) (*rules.Repository, error) {
	return rules.Load(cfg.RulesDir, sdk.Storage())
}

// createEngine builds an engine over the configured rule repository.
func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	repo, err := loadRepository(cfg)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		Repository: repo,
		Logger:     logger,
	})
}
