package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqv-cli/internal/analysis"
	"github.com/KaramelBytes/dqv-cli/internal/format"
	"github.com/KaramelBytes/dqv-cli/internal/table"
)

var (
	outColumn    string
	outMethod    string
	outThreshold float64
)

// rowsJSON is the JSON shape of a table: names plus canonical cell text.
type rowsJSON struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func toRowsJSON(t *table.Table) rowsJSON {
	return rowsJSON{Columns: t.Names(), Rows: t.Strings()}
}

var outliersCmd = &cobra.Command{
	Use:   "outliers <file>",
	Short: "Flag rows whose value in a numeric column lies far from the mean",
	Long: `Flag rows whose value in one numeric column has |z| above the threshold.
Without --column the first numeric column is used. --method mad switches to
the robust modified z-score (median and MAD).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := outlierOptions(cmd, outMethod, outThreshold)
		if err != nil {
			return err
		}
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		rep, err := s.Outliers(outColumn, opt)
		if err != nil {
			return softNote(cmd, err)
		}
		if jsonOut {
			return printJSON(cmd, struct {
				*analysis.OutlierReport
				Rows rowsJSON `json:"rows"`
			}{rep, toRowsJSON(rep.Rows)})
		}
		fmt.Fprint(cmd.OutOrStdout(), format.Outliers(rep))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(outliersCmd)
	outliersCmd.Flags().StringVarP(&outColumn, "column", "c", "", "numeric column to scan (default: first numeric column)")
	outliersCmd.Flags().StringVar(&outMethod, "method", "zscore", "outlier method: zscore | mad")
	outliersCmd.Flags().Float64Var(&outThreshold, "threshold", 3, "|z| threshold (default 3 for zscore, 3.5 for mad)")
}
