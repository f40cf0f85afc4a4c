package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dqv-cli/internal/analysis"
	cfgpkg "github.com/KaramelBytes/dqv-cli/internal/config"
	"github.com/KaramelBytes/dqv-cli/internal/logging"
	"github.com/KaramelBytes/dqv-cli/internal/session"
	"github.com/KaramelBytes/dqv-cli/internal/table"
	"github.com/KaramelBytes/dqv-cli/internal/utils"
)

var (
	// Global flags (override config when set)
	cfgFile        string
	debug          bool
	flagDelimiter  string
	flagSheetName  string
	flagSheetIndex int
	flagMaxBytes   int64
	jsonOut        bool

	// Loaded configuration
	cfg *cfgpkg.Global

	logger   = slog.New(slog.NewTextHandler(io.Discard, nil))
	closeLog = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "dqv",
	Short: "dqv: data quality checks for CSV and XLSX files",
	Long: `dqv loads a CSV or XLSX table and reports on its quality: column types,
missing values, duplicate rows, outliers, correlations and coordinates.
It can apply simple fixes and export the cleaned table, or serve the same
operations over an HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	cobra.OnFinalize(func() { closeLog() })

	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default is ~/.dqv/config.yaml)")
	f.BoolVar(&debug, "debug", false, "enable debug logging")
	f.StringVar(&flagDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (overrides config)")
	f.StringVar(&flagSheetName, "sheet-name", "", "XLSX: sheet name to load")
	f.IntVar(&flagSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	f.Int64Var(&flagMaxBytes, "max-bytes", 0, "maximum input size in bytes, 0 keeps the configured limit")
	f.BoolVar(&jsonOut, "json", false, "print results as JSON")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		d := cfgpkg.Defaults()
		c = &d
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("delimiter") && flagDelimiter != "" {
		cfg.Delimiter = flagDelimiter
	}
	if f.Changed("max-bytes") && flagMaxBytes > 0 {
		cfg.MaxInputBytes = flagMaxBytes
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
	}
	if debug {
		level = slog.LevelDebug
	}
	logger, closeLog = logging.Setup(logging.Options{Level: level, Output: os.Stderr, SeqURL: cfg.SeqURL})
	slog.SetDefault(logger)
	logger.Debug("config loaded", "file", cfgFile, "delimiter", cfg.Delimiter, "max_input_bytes", cfg.MaxInputBytes)
}

// config returns the loaded configuration, or defaults when loadConfig has not run.
func config() *cfgpkg.Global {
	if cfg == nil {
		d := cfgpkg.Defaults()
		cfg = &d
	}
	return cfg
}

func loadOptions() table.LoadOptions {
	c := config()
	return table.LoadOptions{
		Delimiter:  c.DelimiterRune(),
		SheetName:  flagSheetName,
		SheetIndex: flagSheetIndex,
		MaxBytes:   c.MaxInputBytes,
	}
}

// openSession loads path into a fresh session.
func openSession(path string) (*session.Session, error) {
	s := session.New(loadOptions())
	if err := s.LoadFile(path); err != nil {
		return nil, err
	}
	in := s.Info()
	logger.Debug("dataset loaded", "file", in.Name, "rows", in.Rows, "columns", in.Columns)
	return s, nil
}

// outlierOptions merges flag values over the configured defaults. A method
// given on the command line without a threshold uses that method's default.
func outlierOptions(cmd *cobra.Command, method string, threshold float64) (analysis.OutlierOptions, error) {
	c := config()
	m, err := analysis.ParseOutlierMethod(c.OutlierMethod)
	if err != nil {
		return analysis.OutlierOptions{}, fmt.Errorf("config outlier_method: %w", err)
	}
	opt := analysis.OutlierOptions{Method: m, Threshold: c.OutlierThreshold}
	if cmd.Flags().Changed("method") {
		fm, err := analysis.ParseOutlierMethod(method)
		if err != nil {
			return opt, err
		}
		if fm != opt.Method {
			opt.Threshold = 0
		}
		opt.Method = fm
	}
	if cmd.Flags().Changed("threshold") {
		if threshold <= 0 {
			return opt, fmt.Errorf("--threshold must be > 0, got %g", threshold)
		}
		opt.Threshold = threshold
	}
	return opt, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

// softNote prints undefined statistics and empty selections as a warning
// and swallows them; other errors are returned unchanged.
func softNote(cmd *cobra.Command, err error) error {
	if !analysis.IsSoft(err) {
		return err
	}
	if jsonOut {
		return printJSON(cmd, map[string]string{"note": err.Error()})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "⚠ %v\n", err)
	return nil
}
