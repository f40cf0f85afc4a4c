package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFileReplaces(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cleaned_data.csv")
	require.NoError(t, SafeWriteFile(p, []byte("a\n1\n")))
	require.NoError(t, SafeWriteFile(p, []byte("a\n2\n")))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "a\n2\n", string(b))
	_, err = os.Stat(p + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.csv", "a.csv", "c.xlsx"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}
	files, err := ExpandInputs([]string{filepath.Join(dir, "*.csv"), filepath.Join(dir, "a.csv"), filepath.Join(dir, "missing.csv")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")}, files)
}

func TestSlugAndUniquePath(t *testing.T) {
	assert.Equal(t, "q1-sales", Slug(" Q1 Sales!", "sheet"))
	assert.Equal(t, "sheet", Slug("!!", "sheet"))
	assert.Equal(t, "a-b", Slug("a - b", "x"))

	dir := t.TempDir()
	first := UniquePath(dir, "report", ".summary.md")
	assert.Equal(t, filepath.Join(dir, "report.summary.md"), first)
	require.NoError(t, os.WriteFile(first, nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "report__2.summary.md"), UniquePath(dir, "report", ".summary.md"))
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"rows": 3})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"rows\": 3\n}", string(b))
}
