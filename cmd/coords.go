package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqv-cli/internal/analysis"
	"github.com/KaramelBytes/dqv-cli/internal/format"
)

var coordsPreview int

var coordsCmd = &cobra.Command{
	Use:   "coords <file>",
	Short: "Find latitude/longitude columns and the rows that carry both",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(args[0])
		if err != nil {
			return err
		}
		c, err := s.Coordinates()
		if errors.Is(err, analysis.ErrNoCoordinates) {
			if jsonOut {
				return printJSON(cmd, map[string]any{"found": false})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "⚠ No latitude/longitude columns found (e.g. 'lat', 'lon').")
			return nil
		}
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd, struct {
				Found bool `json:"found"`
				*analysis.CoordinatePair
				Points rowsJSON `json:"points"`
			}{true, c, toRowsJSON(c.Points)})
		}
		fmt.Fprint(cmd.OutOrStdout(), format.Coordinates(c, coordsPreview))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(coordsCmd)
	coordsCmd.Flags().IntVar(&coordsPreview, "preview", 10, "coordinate rows to print")
}
