package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqv-cli/internal/format"
)

var (
	distColumn string
	distBins   int
)

var distCmd = &cobra.Command{
	Use:     "dist <file>",
	Aliases: []string{"distribution"},
	Short:   "Histogram and box statistics for one numeric column",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bins := config().HistogramBins
		if cmd.Flags().Changed("bins") {
			if distBins <= 0 {
				return fmt.Errorf("--bins must be > 0, got %d", distBins)
			}
			bins = distBins
		}
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		d, err := s.Distribution(distColumn, bins)
		if err != nil {
			return softNote(cmd, err)
		}
		if jsonOut {
			return printJSON(cmd, d)
		}
		fmt.Fprint(cmd.OutOrStdout(), format.Distribution(d))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(distCmd)
	distCmd.Flags().StringVarP(&distColumn, "column", "c", "", "numeric column (default: first numeric column)")
	distCmd.Flags().IntVar(&distBins, "bins", 50, "histogram bins")
}
