package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqv-cli/internal/format"
)

var corrMaxPairs int

var corrCmd = &cobra.Command{
	Use:     "corr <file>",
	Aliases: []string{"correlations"},
	Short:   "Pearson correlation matrix over all numeric columns",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		m, err := s.Correlations()
		if err != nil {
			return softNote(cmd, err)
		}
		if jsonOut {
			return printJSON(cmd, m)
		}
		fmt.Fprint(cmd.OutOrStdout(), format.Correlations(m, corrMaxPairs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(corrCmd)
	corrCmd.Flags().IntVar(&corrMaxPairs, "max-pairs", 10, "strongest pairs to list (0 lists all)")
}
