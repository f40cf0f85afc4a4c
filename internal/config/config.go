package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".dqv"

// Global configuration structure.
type Global struct {
	// Input guards
	MaxInputBytes int64  `mapstructure:"max_input_bytes" yaml:"max_input_bytes"`
	Delimiter     string `mapstructure:"delimiter" yaml:"delimiter"`

	// Analysis defaults
	OutlierThreshold float64 `mapstructure:"outlier_threshold" yaml:"outlier_threshold"`
	OutlierMethod    string  `mapstructure:"outlier_method" yaml:"outlier_method"`
	HistogramBins    int     `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	SampleRows       int     `mapstructure:"sample_rows" yaml:"sample_rows"`

	// Export
	ExportName string `mapstructure:"export_name" yaml:"export_name"`

	// HTTP API
	ListenAddr  string `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxSessions int    `mapstructure:"max_sessions" yaml:"max_sessions"`

	// Logging
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	SeqURL   string `mapstructure:"seq_url" yaml:"seq_url"`
}

// Defaults returns the built-in configuration.
func Defaults() Global {
	return Global{
		MaxInputBytes:    100 << 20,
		Delimiter:        ",",
		OutlierThreshold: 3,
		OutlierMethod:    "zscore",
		HistogramBins:    50,
		SampleRows:       5,
		ExportName:       "cleaned_data.csv",
		ListenAddr:       "127.0.0.1:8080",
		MaxSessions:      64,
		LogLevel:         "info",
	}
}

// DelimiterRune returns the first rune of Delimiter, or ',' when unset.
// "\t" and "tab" select a tab.
func (c *Global) DelimiterRune() rune {
	switch c.Delimiter {
	case "":
		return ','
	case `\t`, "tab", "\t":
		return '\t'
	}
	return []rune(c.Delimiter)[0]
}

func defaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dqv/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := defaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (DQV_*, optionally from ./.env) > config file > defaults.
// Command-line flags are applied on top by the caller.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("DQV")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("max_input_bytes", d.MaxInputBytes)
	v.SetDefault("delimiter", d.Delimiter)
	v.SetDefault("outlier_threshold", d.OutlierThreshold)
	v.SetDefault("outlier_method", d.OutlierMethod)
	v.SetDefault("histogram_bins", d.HistogramBins)
	v.SetDefault("sample_rows", d.SampleRows)
	v.SetDefault("export_name", d.ExportName)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("max_sessions", d.MaxSessions)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("seq_url", d.SeqURL)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		p, err := defaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(p))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !(cfgFile != "" && errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values no command can work with.
func (c *Global) Validate() error {
	switch {
	case c.MaxInputBytes < 0:
		return fmt.Errorf("max_input_bytes must be >= 0, got %d", c.MaxInputBytes)
	case c.OutlierThreshold <= 0:
		return fmt.Errorf("outlier_threshold must be > 0, got %g", c.OutlierThreshold)
	case c.HistogramBins <= 0:
		return fmt.Errorf("histogram_bins must be > 0, got %d", c.HistogramBins)
	case c.MaxSessions <= 0:
		return fmt.Errorf("max_sessions must be > 0, got %d", c.MaxSessions)
	}
	return nil
}
