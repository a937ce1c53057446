package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QodeSrl/infrar-engine/internal/sdk"
)

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		template string
		want     []string
	}{
		{"s3.upload_file({source}, {bucket}, {destination})", []string{"source", "bucket", "destination"}},
		{"x({bucket}, {bucket})", []string{"bucket"}},
		{"no placeholders", nil},
		{"{_private} and {p2}", []string{"_private", "p2"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Placeholders(tt.template), tt.template)
	}
}

func TestExpandTemplate(t *testing.T) {
	values := map[string]string{"bucket": "'data'", "path": "'old.csv'"}

	out, err := ExpandTemplate("s3.delete_object(Bucket={bucket}, Key={path})", values)
	require.NoError(t, err)
	assert.Equal(t, "s3.delete_object(Bucket='data', Key='old.csv')", out)

	_, err = ExpandTemplate("x({bucket}, {missing})", values)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestRuleValidation(t *testing.T) {
	contract := sdk.Storage()

	tests := []struct {
		name    string
		rule    Rule
		wantErr string
	}{
		{
			name: "valid rule",
			rule: Rule{Function: "delete", Template: "c.remove({bucket}, {path})", Provider: "x"},
		},
		{
			name:    "unknown function",
			rule:    Rule{Function: "copy", Template: "c.copy({bucket})", Provider: "x"},
			wantErr: "unknown function",
		},
		{
			name:    "empty template",
			rule:    Rule{Function: "delete", Provider: "x"},
			wantErr: "empty template",
		},
		{
			name:    "placeholder is not a parameter",
			rule:    Rule{Function: "delete", Template: "c.remove({bucket}, {key})", Provider: "x"},
			wantErr: "not a parameter",
		},
		{
			name:    "template does not cover every parameter",
			rule:    Rule{Function: "delete", Template: "c.remove({bucket})", Provider: "x"},
			wantErr: "does not cover",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRepository(contract, []*Rule{&tt.rule})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewRepository_RejectsDuplicatesAndMissingProvider(t *testing.T) {
	contract := sdk.Storage()
	rule := func(provider string) *Rule {
		return &Rule{Function: "delete", Template: "c.remove({bucket}, {path})", Provider: provider}
	}

	_, err := NewRepository(contract, []*Rule{rule("aws"), rule("aws")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	_, err = NewRepository(contract, []*Rule{rule("")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing provider")
}

func TestLoadBuiltin(t *testing.T) {
	repo, err := LoadBuiltin(sdk.Storage())
	require.NoError(t, err)

	assert.Equal(t, []string{"aws", "azure", "gcp"}, repo.Providers())
	for _, provider := range repo.Providers() {
		assert.Len(t, repo.RulesFor(provider), 4, provider)

		list, ok := repo.Lookup("list_objects", provider)
		require.True(t, ok, provider)
		assert.True(t, list.NoCapture, "list_objects must be no-capture on %s", provider)

		up, ok := repo.Lookup("upload", provider)
		require.True(t, ok, provider)
		assert.NotEmpty(t, up.Imports, provider)
		assert.False(t, up.NoCapture, provider)
	}

	awsUpload, _ := repo.Lookup("upload", "aws")
	assert.Equal(t, "s3.upload_file({source}, {bucket}, {destination})", awsUpload.Template)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	doc := `provider: mycloud
rules:
  - function: upload
    template: "client.put({bucket}, {source}, {destination})"
    imports:
      - "import mycloud"
    setup:
      - "client = mycloud.Client()"
  - function: download
    template: "client.get({bucket}, {source}, {destination})"
    imports:
      - "import mycloud"
  - function: delete
    template: "client.remove({bucket}, {path})"
  - function: list_objects
    template: "client.list({bucket}, {prefix})"
    no_capture: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mycloud.yaml"), []byte(doc), 0644))

	repo, err := LoadDir(dir, sdk.Storage())
	require.NoError(t, err)

	assert.Equal(t, []string{"mycloud"}, repo.Providers())
	assert.Equal(t, 4, repo.Len())

	up, ok := repo.Lookup("upload", "mycloud")
	require.True(t, ok)
	assert.Equal(t, "mycloud", up.Provider)
	assert.Equal(t, []string{"import mycloud"}, up.Imports)
	assert.Equal(t, []string{"client = mycloud.Client()"}, up.Setup)
}

func TestLoadDir_Errors(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		_, err := LoadDir(t.TempDir(), sdk.Storage())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no rule documents")
	})

	t.Run("invalid rule is fatal", func(t *testing.T) {
		dir := t.TempDir()
		doc := `provider: broken
rules:
  - function: upload
    template: "client.put({bucket}, {source})"
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(doc), 0644))

		_, err := LoadDir(dir, sdk.Storage())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not cover")
	})
}

func TestLoad_DispatchesOnDir(t *testing.T) {
	repo, err := Load("", sdk.Storage())
	require.NoError(t, err)
	assert.Equal(t, 12, repo.Len())
}
