package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dqv-cli/internal/table"
)

// TestMain points HOME at an empty directory so no user config is read.
func TestMain(m *testing.M) {
	home, err := os.MkdirTemp("", "dqv-home")
	if err != nil {
		panic(err)
	}
	os.Setenv("HOME", home)
	code := m.Run()
	os.RemoveAll(home)
	os.Exit(code)
}

// resetFlags restores every flag to its default so Changed state does not
// leak between invocations of the shared root command.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	require.NoError(t, err, "command %v failed; output:\n%s", args, out)
	return out
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func spikeCSV() string {
	var b strings.Builder
	b.WriteString("v,label\n")
	for i := 1; i <= 19; i++ {
		fmt.Fprintf(&b, "%d,r%d\n", i, i)
	}
	b.WriteString("1000,spike\n")
	return b.String()
}

func TestAnalyzeWritesMarkdownReport(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "spike.csv", spikeCSV())
	outPath := filepath.Join(dir, "report.md")

	out := runCmd(t, "analyze", in, "-o", outPath)
	assert.Contains(t, out, "✓ Wrote analysis to")

	body, err := os.ReadFile(outPath)
	require.NoError(t, err)
	md := string(body)
	assert.Contains(t, md, "[DATASET SUMMARY]")
	assert.Contains(t, md, "File: spike.csv")
	assert.Contains(t, md, "Rows: 20")
	assert.Contains(t, md, "- v: int")
	assert.Contains(t, md, "outliers: 1 above |z|>3.0")
	assert.Contains(t, md, "[HEAD AND SAMPLE ROWS]")
}

func TestAnalyzeBatchOutDirAvoidsOverwrite(t *testing.T) {
	home := t.TempDir()
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	writeFile(t, home, filepath.Join("d1", "metrics.csv"), csv)
	writeFile(t, home, filepath.Join("d2", "metrics.csv"), csv)
	outDir := filepath.Join(home, "reports")

	out := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"), "--out-dir", outDir, "--sample-rows", "0")
	assert.Contains(t, out, "[1/2] Processing metrics.csv...")
	assert.Contains(t, out, "[2/2] Processing metrics.csv...")

	for _, name := range []string{"metrics.report.md", "metrics__2.report.md"} {
		body, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(body), "[DATASET SUMMARY]")
		assert.NotContains(t, string(body), "[HEAD AND SAMPLE ROWS]", name)
	}
}

func TestAnalyzeBatchKeepGoing(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", "a\n1\n")
	bad := writeFile(t, dir, "bad.csv", "")

	_, err := execute(t, "analyze-batch", good, bad, "--quiet")
	require.Error(t, err)

	out, err := execute(t, "analyze-batch", good, bad, "--keep-going", "--out-dir", filepath.Join(dir, "r"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
	assert.Contains(t, out, "⚠ Skipped bad.csv")
	_, statErr := os.Stat(filepath.Join(dir, "r", "good.report.md"))
	assert.NoError(t, statErr)
}

func TestProfileJSON(t *testing.T) {
	in := writeFile(t, t.TempDir(), "people.csv", "name,age\nAda,36\nAda,36\nLin,\n")
	out := runCmd(t, "profile", in, "--json")
	var p map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.EqualValues(t, 3, p["rows"])
	assert.EqualValues(t, 1, p["null_cells"])
	assert.EqualValues(t, 1, p["duplicate_rows"])
}

func TestProfileTable(t *testing.T) {
	in := writeFile(t, t.TempDir(), "people.csv", "name,age\nAda,36\nLin,\n")
	out := runCmd(t, "profile", in, "--preview", "1")
	assert.Contains(t, out, "age")
	assert.Contains(t, out, "Ada")
}

func TestOutliersCommand(t *testing.T) {
	in := writeFile(t, t.TempDir(), "spike.csv", spikeCSV())

	out := runCmd(t, "outliers", in, "--json")
	var rep map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "v", rep["column"])
	assert.EqualValues(t, 1, rep["count"])
	assert.EqualValues(t, 20, rep["n"])
	rows := rep["rows"].(map[string]any)
	assert.Equal(t, []any{[]any{"1000", "spike"}}, rows["rows"])

	out = runCmd(t, "outliers", in, "--method", "mad")
	assert.Contains(t, strings.ToLower(out), "modified z")

	_, err := execute(t, "outliers", in, "--column", "label")
	assert.Error(t, err)
	_, err = execute(t, "outliers", in, "--threshold", "0")
	assert.Error(t, err)
}

func TestSoftSignalsDoNotFail(t *testing.T) {
	dir := t.TempDir()
	one := writeFile(t, dir, "one.csv", "x,name\n1,a\n2,b\n")
	text := writeFile(t, dir, "text.csv", "name\na\nb\n")

	out := runCmd(t, "corr", one)
	assert.Contains(t, out, "⚠")

	out = runCmd(t, "outliers", text)
	assert.Contains(t, out, "no numeric columns")

	out = runCmd(t, "coords", one)
	assert.Contains(t, out, "No latitude/longitude columns found")

	out = runCmd(t, "dist", text, "--json")
	assert.Contains(t, out, `"note"`)
}

func TestCorrAndCoordsAndDist(t *testing.T) {
	in := writeFile(t, t.TempDir(), "geo.csv", "lat,lon,temp\n10,20,1\n11,21,2\n,22,3\n12,23,5\n")

	out := runCmd(t, "corr", in)
	assert.Contains(t, strings.ToLower(out), "strongest pairs")

	out = runCmd(t, "coords", in, "--json")
	var c map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Equal(t, true, c["found"])
	assert.EqualValues(t, 3, c["rows"])
	assert.EqualValues(t, 1, c["dropped"])

	out = runCmd(t, "dist", in, "--column", "temp", "--bins", "2")
	assert.Contains(t, strings.ToLower(out), "median")
	_, err := execute(t, "dist", in, "--bins", "0")
	assert.Error(t, err)
}

func TestCleanWritesCSV(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "dupes.csv", "a,b\n1,x\n1,x\n2,y\n")
	outPath := filepath.Join(dir, "out.csv")

	out := runCmd(t, "clean", in, "--fix", "drop-duplicates", "-o", outPath)
	assert.Contains(t, out, "✓ Duplicates dropped: 1 rows removed (3 → 2)")

	body, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,x\n2,y\n", string(body))

	// the cleaned file reloads to the same table
	reloaded, err := table.LoadFile(outPath, table.DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.NumRows())

	// input untouched
	orig, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,x\n1,x\n2,y\n", string(orig))
}

func TestCleanDefaultOutputName(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "gaps.csv", "a,b\n1,x\n,y\n3,z\n")
	runCmd(t, "clean", in, "--fix", "fill-mean")
	body, err := os.ReadFile(filepath.Join(dir, "cleaned_data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1.0,x\n2.0,y\n3.0,z\n", string(body))
}

func TestCleanErrors(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "a.csv", "a\n1\n")

	_, err := execute(t, "clean", in, "--fix", "shuffle")
	assert.Error(t, err)

	_, err = execute(t, "clean", in, "--fix", "drop-null", "-o", in)
	assert.ErrorContains(t, err, "refusing to overwrite")
}

func TestUnsupportedFormat(t *testing.T) {
	in := writeFile(t, t.TempDir(), "notes.txt", "a,b\n1,2\n")
	_, err := execute(t, "profile", in)
	var ue *table.UnsupportedFormatError
	assert.ErrorAs(t, err, &ue)
}

func TestDelimiterFlag(t *testing.T) {
	in := writeFile(t, t.TempDir(), "semi.csv", "a;b\n1;2\n")
	out := runCmd(t, "profile", in, "--json", "--delimiter", ";")
	var p map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.EqualValues(t, 2, p["columns"])
}

func TestConfigSetAndShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out := runCmd(t, "config", "set", "outlier_threshold", "2.5")
	assert.Contains(t, out, "✓ Saved config")

	out = runCmd(t, "config", "show")
	assert.Contains(t, out, "outlier_threshold: 2.500")

	_, err := execute(t, "config", "set", "nope", "1")
	assert.Error(t, err)
	_, err = execute(t, "config", "set", "outlier_method", "median")
	assert.Error(t, err)
}
