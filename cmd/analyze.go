package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqv-cli/internal/analysis"
	"github.com/KaramelBytes/dqv-cli/internal/utils"
)

var (
	anaOutputPath string
	anaSampleRows int
	anaMaxPairs   int
	anaMethod     string
	anaOutlierThr float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a CSV/XLSX file and produce a Markdown quality report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := reportOptions(cmd, anaSampleRows, anaMaxPairs, anaMethod, anaOutlierThr)
		if err != nil {
			return err
		}
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		rep, err := s.Report(opt)
		if err != nil {
			return err
		}

		if jsonOut {
			if anaOutputPath == "" {
				return printJSON(cmd, rep)
			}
			b, err := utils.PrettyJSON(rep)
			if err != nil {
				return err
			}
			return writeReport(cmd, anaOutputPath, b)
		}
		md := rep.Markdown()
		if anaOutputPath != "" {
			return writeReport(cmd, anaOutputPath, []byte(md))
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

// reportOptions builds report settings from config and any changed flags.
func reportOptions(cmd *cobra.Command, sampleRows, maxPairs int, method string, threshold float64) (analysis.ReportOptions, error) {
	opt := analysis.DefaultReportOptions()
	opt.SampleRows = config().SampleRows
	if cmd.Flags().Changed("sample-rows") {
		opt.SampleRows = sampleRows
	}
	if maxPairs > 0 {
		opt.MaxPairs = maxPairs
	}
	oo, err := outlierOptions(cmd, method, threshold)
	if err != nil {
		return opt, err
	}
	opt.Outliers = oo
	return opt, nil
}

func writeReport(cmd *cobra.Command, path string, data []byte) error {
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", path)
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include (0 disables samples)")
	analyzeCmd.Flags().IntVar(&anaMaxPairs, "max-pairs", 10, "maximum correlation pairs to list")
	analyzeCmd.Flags().StringVar(&anaMethod, "method", "zscore", "outlier method: zscore | mad")
	analyzeCmd.Flags().Float64Var(&anaOutlierThr, "threshold", 3, "outlier |z| threshold")
}
