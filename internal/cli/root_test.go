package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QodeSrl/infrar-engine/internal/cli/config"
	"github.com/QodeSrl/infrar-engine/pkg/core"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, err := executeRoot(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "transform")
	assert.Contains(t, out, "scan")
	assert.Contains(t, out, "rules")
	assert.Contains(t, out, "infrar.storage")
}

func TestRootCmd_TransformEndToEnd(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "app.py"), []byte(`from infrar.storage import upload

upload(bucket='data', source='file.csv', destination='backup.csv')
`), 0644))

	stdout, err := executeRoot(t,
		"transform", "--provider", "aws", "-i", in, "-o", out, "-f", "json")
	require.NoError(t, err)

	var report core.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "aws", report.Provider)
	assert.Equal(t, 1, report.Rewritten)

	data, err := os.ReadFile(filepath.Join(out, "app.py"))
	require.NoError(t, err)
	assert.Equal(t, `import boto3
s3 = boto3.client('s3')

s3.upload_file('file.csv', 'data', 'backup.csv')
`, string(data))
}

func TestRootCmd_TransformParseFailureFails(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "bad.py"), []byte("def broken(:\n"), 0644))

	_, err := executeRoot(t,
		"transform", "-p", "aws", "-i", in, "-o", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestRootCmd_InvalidFormatRejected(t *testing.T) {
	_, err := executeRoot(t, "rules", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCmd_CustomRulesDir(t *testing.T) {
	rulesDir := t.TempDir()
	doc := `provider: mycloud
rules:
  - function: upload
    template: "client.put({bucket}, {source}, {destination})"
  - function: download
    template: "client.get({bucket}, {source}, {destination})"
  - function: delete
    template: "client.remove({bucket}, {path})"
  - function: list_objects
    template: "client.list({bucket}, {prefix})"
`
	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "mycloud.yaml"), []byte(doc), 0644))

	out, err := executeRoot(t, "rules", "--rules-dir", rulesDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Provider: mycloud")
	assert.NotContains(t, out, "Provider: aws")
}
