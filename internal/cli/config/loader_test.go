package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringP("provider", "p", "", "")
	fs.String("rules-dir", "", "")
	fs.Int("workers", 0, "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("format", "f", "", "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Provider)
	assert.Equal(t, "", cfg.RulesDir)
	assert.Equal(t, 0, cfg.Workers)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Equal(t, "", GetConfigFileUsed())
}

func TestLoadConfig_FromFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "infrar.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`provider: gcp
rules_dir: rules
workers: 4
verbose: true
`), 0644))

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "gcp", cfg.Provider)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Equal(t, dir, cfg.ProjectRoot)
	// Relative rules_dir resolves against the project root.
	assert.Equal(t, filepath.Join(dir, "rules"), cfg.RulesDir)
}

func TestLoadConfig_FoundByUpwardSearch(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "infrar.yml"), []byte("provider: aws\n"), 0644))
	nested := filepath.Join(root, "src", "jobs")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "aws", cfg.Provider)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "infrar.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("provider: gcp\n"), 0644))
	t.Setenv("INFRAR_PROVIDER", "azure")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "azure", cfg.Provider)
}

func TestLoadConfig_FlagsOverrideEverything(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "infrar.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("provider: gcp\nworkers: 4\n"), 0644))
	t.Setenv("INFRAR_PROVIDER", "azure")

	fs := newFlagSet()
	require.NoError(t, fs.Set("provider", "aws"))
	require.NoError(t, fs.Set("workers", "2"))

	cfg, err := LoadConfig(cfgPath, fs)
	require.NoError(t, err)
	assert.Equal(t, "aws", cfg.Provider)
	assert.Equal(t, 2, cfg.Workers)
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_UnchangedFlagsDoNotOverride(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "infrar.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("provider: gcp\n"), 0644))

	cfg, err := LoadConfig(cfgPath, newFlagSet())
	require.NoError(t, err)
	assert.Equal(t, "gcp", cfg.Provider)
}

func TestLoadConfig_Validation(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	fs := newFlagSet()
	require.NoError(t, fs.Set("format", "xml"))
	_, err := LoadConfig("", fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
