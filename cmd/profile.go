package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqv-cli/internal/format"
)

var profilePreview int

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Show row and column counts, inferred types, missing values and duplicates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		p, err := s.Profile()
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd, p)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, format.Profile(p))
		if profilePreview > 0 {
			t, err := s.Original()
			if err != nil {
				return err
			}
			fmt.Fprint(out, format.Preview(t, profilePreview))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().IntVar(&profilePreview, "preview", 0, "also print the first N rows")
}
