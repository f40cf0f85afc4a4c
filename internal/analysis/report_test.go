package analysis

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestBuildReportMarkdown(t *testing.T) {
	tb := mustCSV(t, "plot,lat,lon,alpha,moisture,notes\n"+
		"A1,59.9,10.7,12.5,74,ok\n"+
		"A1,59.9,10.7,12.5,74,ok\n"+
		"B3,60.1,,10.2,68,\n"+
		"C2,61.0,11.0,9.8,NA,dry | windy\n")
	r := BuildReport("hops.csv", tb, DefaultReportOptions())
	md := r.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: hops.csv",
		"Rows: 4",
		"Null cells: 3",
		"Duplicate rows: 1",
		"[SCHEMA]",
		"- alpha: float (non-null 4, missing 0.0%, distinct 3)",
		"- moisture: int (non-null 3, missing 25.0%, distinct 2)",
		"outliers: 0 above |z|>3.0",
		"[CORRELATIONS]",
		"[COORDINATES]",
		"- lat / lon: 3 rows (1 dropped for missing values)",
		"[HEAD AND SAMPLE ROWS]",
		"| plot | lat | lon | alpha | moisture | notes |",
		"dry / windy",
		"[NOTES]",
		"1 duplicate rows",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if len(r.Outliers) != 4 {
		t.Fatalf("outlier scans = %d, want 4", len(r.Outliers))
	}
}

func TestBuildReportTextOnly(t *testing.T) {
	tb := mustCSV(t, "name,city\na,x\nb,y\n")
	r := BuildReport("", tb, ReportOptions{SampleRows: 1})
	if r.Corr != nil || r.Coords != nil || len(r.Outliers) != 0 {
		t.Fatalf("unexpected results for text-only table: %+v", r)
	}
	if len(r.Samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(r.Samples))
	}
	md := r.Markdown()
	if strings.Contains(md, "[CORRELATIONS]") || strings.Contains(md, "File:") {
		t.Fatalf("unexpected sections:\n%s", md)
	}
	notes := strings.Join(r.Warnings, "\n")
	if !strings.Contains(notes, "no numeric columns") || !strings.Contains(notes, "fewer than 2 numeric columns") {
		t.Fatalf("warnings = %v", r.Warnings)
	}
}

func TestMarkdownTruncatesSamplesOnRuneBoundaries(t *testing.T) {
	long := strings.Repeat("é", 100)
	tb := mustCSV(t, "note\n"+long+"\n")
	md := BuildReport("", tb, ReportOptions{SampleRows: 1}).Markdown()
	if !utf8.ValidString(md) {
		t.Fatalf("markdown is not valid UTF-8")
	}
	want := "| " + strings.Repeat("é", 77) + "... |"
	if !strings.Contains(md, want) {
		t.Fatalf("sample cell not truncated to 80 runes:\n%s", md)
	}
	if got := truncate("short", 80); got != "short" {
		t.Fatalf("truncate(short) = %q", got)
	}
}
