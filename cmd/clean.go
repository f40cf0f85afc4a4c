package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqv-cli/internal/clean"
	"github.com/KaramelBytes/dqv-cli/internal/format"
	"github.com/KaramelBytes/dqv-cli/internal/utils"
)

var (
	cleanFix    string
	cleanOutput string
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Apply one fix to the file and write the cleaned table as CSV",
	Long: `Apply one fix and write the result as UTF-8 CSV.

Fixes:
  drop-duplicates  remove rows identical to an earlier row
  fill-mean        replace missing numeric values with the column mean
  drop-null        remove rows with any missing value

The input file is never modified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fix, err := clean.ParseFix(cleanFix)
		if err != nil {
			return err
		}
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		sum, err := s.Apply(fix)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := s.Export(&buf); err != nil {
			return err
		}
		out := cleanOutput
		if out == "" {
			out = filepath.Join(filepath.Dir(args[0]), config().ExportName)
		}
		if abs, err := filepath.Abs(args[0]); err == nil {
			if absOut, err := filepath.Abs(out); err == nil && abs == absOut {
				return fmt.Errorf("refusing to overwrite the input file %s", args[0])
			}
		}
		if err := utils.SafeWriteFile(out, buf.Bytes()); err != nil {
			return fmt.Errorf("write cleaned data: %w", err)
		}
		logger.Debug("fix applied", "fix", fix, "rows_before", sum.RowsBefore, "rows_after", sum.RowsAfter, "output", out)
		if jsonOut {
			return printJSON(cmd, map[string]any{"summary": sum, "output": out})
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, format.CleanSummary(sum))
		fmt.Fprintf(w, "✓ Wrote cleaned data to %s\n", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringVar(&cleanFix, "fix", "", "fix to apply: drop-duplicates | fill-mean | drop-null")
	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "", "output CSV path (default: cleaned_data.csv next to the input)")
	_ = cleanCmd.MarkFlagRequired("fix")
}
