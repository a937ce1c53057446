package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestTransformBatch_Directory(t *testing.T) {
	eng := newTestEngine(t)
	in := t.TempDir()
	out := t.TempDir()

	writeFiles(t, in, map[string]string{
		"app.py": `from infrar.storage import upload

upload('data', 'a.csv', 'b.csv')
`,
		"jobs/cleanup.py": `from infrar.storage import delete

delete('data', 'old.csv')
`,
		"util.py": `def helper():
    return 42
`,
		"notes.txt":          "not python",
		"__pycache__/x.py":   "ignored",
		".hidden/skipped.py": "ignored",
	})

	report, err := eng.TransformBatch(context.Background(), BatchRequest{
		Provider:   "aws",
		InputPath:  in,
		OutputPath: out,
	})
	require.NoError(t, err)

	assert.Equal(t, "aws", report.Provider)
	assert.Equal(t, 3, report.Files)
	assert.Equal(t, 2, report.Rewritten)
	assert.Equal(t, 2, report.Sites)
	assert.Empty(t, report.ParseFailures)
	assert.True(t, report.OK())

	appOut, err := os.ReadFile(filepath.Join(out, "app.py"))
	require.NoError(t, err)
	assert.Contains(t, string(appOut), "s3.upload_file('a.csv', 'data', 'b.csv')")

	cleanupOut, err := os.ReadFile(filepath.Join(out, "jobs", "cleanup.py"))
	require.NoError(t, err)
	assert.Contains(t, string(cleanupOut), "s3.delete_object(Bucket='data', Key='old.csv')")

	// Unrelated Python is copied through unchanged.
	utilOut, err := os.ReadFile(filepath.Join(out, "util.py"))
	require.NoError(t, err)
	assert.Equal(t, "def helper():\n    return 42\n", string(utilOut))

	// Non-Python and skipped directories never reach the output.
	_, err = os.Stat(filepath.Join(out, "notes.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(out, "__pycache__"))
	assert.True(t, os.IsNotExist(err))
}

func TestTransformBatch_SingleFile(t *testing.T) {
	eng := newTestEngine(t)
	in := t.TempDir()
	outDir := t.TempDir()
	outFile := filepath.Join(outDir, "nested", "app_aws.py")

	writeFiles(t, in, map[string]string{
		"app.py": `from infrar.storage import upload

upload('data', 'a.csv', 'b.csv')
`,
	})

	report, err := eng.TransformBatch(context.Background(), BatchRequest{
		Provider:   "aws",
		InputPath:  filepath.Join(in, "app.py"),
		OutputPath: outFile,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Files)
	assert.Equal(t, 1, report.Rewritten)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "import boto3")
}

func TestTransformBatch_ParseFailureContinues(t *testing.T) {
	eng := newTestEngine(t)
	in := t.TempDir()
	out := t.TempDir()

	writeFiles(t, in, map[string]string{
		"good.py": `from infrar.storage import upload

upload('data', 'a.csv', 'b.csv')
`,
		"bad.py": "def broken(:\n",
	})

	report, err := eng.TransformBatch(context.Background(), BatchRequest{
		Provider:   "aws",
		InputPath:  in,
		OutputPath: out,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 1, report.Rewritten)
	require.Len(t, report.ParseFailures, 1)
	assert.Equal(t, "bad.py", report.ParseFailures[0].File)
	assert.False(t, report.OK())

	// The good file is written; the unparseable one is dropped.
	_, err = os.Stat(filepath.Join(out, "good.py"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "bad.py"))
	assert.True(t, os.IsNotExist(err))
}

func TestTransformBatch_MissingRuleAbortsRun(t *testing.T) {
	eng := newTestEngine(t)
	in := t.TempDir()

	writeFiles(t, in, map[string]string{
		"app.py": `from infrar.storage import upload

upload('data', 'a.csv', 'b.csv')
`,
	})

	_, err := eng.TransformBatch(context.Background(), BatchRequest{
		Provider:   "nonexistent",
		InputPath:  in,
		OutputPath: t.TempDir(),
	})
	require.Error(t, err)

	var missing *MissingRuleError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "nonexistent", missing.Provider)
}

func TestTransformBatch_EmptyInput(t *testing.T) {
	eng := newTestEngine(t)

	_, err := eng.TransformBatch(context.Background(), BatchRequest{
		Provider:   "aws",
		InputPath:  t.TempDir(),
		OutputPath: t.TempDir(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Python sources")
}

func TestListSources(t *testing.T) {
	in := t.TempDir()
	writeFiles(t, in, map[string]string{
		"a.py":      "x = 1\n",
		"pkg/b.py":  "y = 2\n",
		"pkg/c.txt": "no",
		".git/d.py": "no",
	})

	files, singleFile, err := ListSources(in)
	require.NoError(t, err)
	assert.False(t, singleFile)
	rels := make([]string, 0, len(files))
	for _, f := range files {
		rels = append(rels, f.Rel)
	}
	assert.ElementsMatch(t, []string{"a.py", filepath.Join("pkg", "b.py")}, rels)

	files, singleFile, err = ListSources(filepath.Join(in, "a.py"))
	require.NoError(t, err)
	assert.True(t, singleFile)
	require.Len(t, files, 1)
	assert.Equal(t, "a.py", files[0].Rel)
}
