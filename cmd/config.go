package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqv-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/dqv-cli/internal/config"
	"github.com/KaramelBytes/dqv-cli/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set dqv configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := config()
		if jsonOut {
			return printJSON(cmd, c)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "max_input_bytes: %d\n", c.MaxInputBytes)
		fmt.Fprintf(out, "delimiter: %q\n", c.Delimiter)
		fmt.Fprintf(out, "outlier_method: %s\n", c.OutlierMethod)
		fmt.Fprintf(out, "outlier_threshold: %.3f\n", c.OutlierThreshold)
		fmt.Fprintf(out, "histogram_bins: %d\n", c.HistogramBins)
		fmt.Fprintf(out, "sample_rows: %d\n", c.SampleRows)
		fmt.Fprintf(out, "export_name: %s\n", c.ExportName)
		fmt.Fprintf(out, "listen_addr: %s\n", c.ListenAddr)
		fmt.Fprintf(out, "max_sessions: %d\n", c.MaxSessions)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		if c.SeqURL != "" {
			fmt.Fprintf(out, "seq_url: %s\n", c.SeqURL)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// Start from the file and env, not from flag overrides.
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		switch key {
		case "max_input_bytes":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid int for max_input_bytes: %v", val)
			}
			c.MaxInputBytes = n
		case "delimiter":
			if val == "" {
				return fmt.Errorf("delimiter cannot be empty")
			}
			c.Delimiter = val
		case "outlier_method":
			m, err := analysis.ParseOutlierMethod(val)
			if err != nil {
				return err
			}
			c.OutlierMethod = string(m)
		case "outlier_threshold":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f <= 0 {
				return fmt.Errorf("invalid float for outlier_threshold: %v", val)
			}
			c.OutlierThreshold = f
		case "histogram_bins":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for histogram_bins: %v", val)
			}
			c.HistogramBins = i
		case "sample_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for sample_rows: %v", val)
			}
			c.SampleRows = i
		case "export_name":
			c.ExportName = val
		case "listen_addr":
			c.ListenAddr = val
		case "max_sessions":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for max_sessions: %v", val)
			}
			c.MaxSessions = i
		case "log_level":
			if _, err := logging.ParseLevel(val); err != nil {
				return err
			}
			c.LogLevel = val
		case "seq_url":
			c.SeqURL = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
