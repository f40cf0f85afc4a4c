package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqv-cli/internal/analysis"
	"github.com/KaramelBytes/dqv-cli/internal/utils"
)

var (
	abOutDir     string
	abSampleRows int
	abMaxPairs   int
	abMethod     string
	abOutlierThr float64
	abQuiet      bool
	abKeepGoing  bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/XLSX files with progress and optional output directory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := utils.ExpandInputs(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		opt, err := reportOptions(cmd, abSampleRows, abMaxPairs, abMethod, abOutlierThr)
		if err != nil {
			return err
		}
		if abOutDir != "" {
			if err := utils.EnsureDir(abOutDir); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		total := len(files)
		failed := 0
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			md, err := markdownReport(path, opt)
			if err == nil {
				err = emitBatchReport(cmd, path, md)
			}
			if err != nil {
				if !abKeepGoing {
					return err
				}
				failed++
				logger.Warn("analysis failed", "file", path, "err", err)
				fmt.Fprintf(out, "⚠ Skipped %s: %v\n", filepath.Base(path), err)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, total)
		}
		return nil
	},
}

func markdownReport(path string, opt analysis.ReportOptions) (string, error) {
	s, err := openSession(path)
	if err != nil {
		return "", err
	}
	rep, err := s.Report(opt)
	if err != nil {
		return "", err
	}
	return rep.Markdown(), nil
}

func emitBatchReport(cmd *cobra.Command, path, md string) error {
	if abOutDir == "" {
		if !abQuiet {
			fmt.Fprintln(cmd.OutOrStdout(), md)
		}
		return nil
	}
	base := filepath.Base(path)
	stem := utils.Slug(strings.TrimSuffix(base, filepath.Ext(base)), "dataset")
	if flagSheetName != "" {
		stem += "__sheet-" + utils.Slug(flagSheetName, "sheet")
	}
	outFile := utils.UniquePath(abOutDir, stem, ".report.md")
	if filepath.Base(outFile) != stem+".report.md" && !abQuiet {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠ Detected existing report, writing to %s to avoid overwrite.\n", filepath.Base(outFile))
	}
	if err := utils.SafeWriteFile(outFile, []byte(md)); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if !abQuiet {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", outFile)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory to write one <name>.report.md per input")
	analyzeBatchCmd.Flags().IntVar(&abSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables samples)")
	analyzeBatchCmd.Flags().IntVar(&abMaxPairs, "max-pairs", 10, "maximum correlation pairs to list")
	analyzeBatchCmd.Flags().StringVar(&abMethod, "method", "zscore", "outlier method: zscore | mad")
	analyzeBatchCmd.Flags().Float64Var(&abOutlierThr, "threshold", 3, "outlier |z| threshold")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	analyzeBatchCmd.Flags().BoolVar(&abKeepGoing, "keep-going", false, "continue with the next file when one fails")
}
