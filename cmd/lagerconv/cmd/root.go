/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/lagerconv/pkg/config"
	"github.com/ssargent/lagerconv/pkg/convert"
	"github.com/ssargent/lagerconv/pkg/di"
	"github.com/ssargent/lagerconv/pkg/logging"
)

var container *di.Container

// SetContainer injects the dependency container used by every command
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd converts one LAGER file when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "lagerconv [flags] FILE",
	Short: "Convert LAGER telemetry logs into columnar datasets",
	Long: `lagerconv decodes a LAGER binary log (header, record stream and embedded
XML schema) and writes one float32 dataset per (field, record type key) into
a hierarchical container next to the input, named <base>_converted.<ext>.

Examples:
  lagerconv flight.lgr
  lagerconv --format parquet --out-dir ./out flight.lgr
  lagerconv --legacy old_capture.lgr`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if container == nil {
			return fmt.Errorf("dependency container not initialized")
		}

		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		backend, err := container.GetSinkBackend(cfg.Output.Format)
		if err != nil {
			return err
		}

		result, err := convert.Run(convert.Options{
			Input:     args[0],
			OutputDir: cfg.Output.Dir,
			Backend:   backend,
			Legacy:    cfg.Scan.Legacy,
			Logger:    logger,
		})
		if err != nil {
			logger.Error("conversion failed", zap.String("input", args[0]), zap.Error(err))
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d records, %d datasets)\n",
			result.Output, result.Stats.Records, result.Columns.Len())
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default "+config.GetDefaultConfigPath()+" when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console or json")
	rootCmd.PersistentFlags().Bool("legacy", false, "Use the legacy record scan (stop rule and desync on unknown identifiers)")

	rootCmd.Flags().StringP("format", "f", "", "Output format: bolt, parquet or pebble")
	rootCmd.Flags().StringP("out-dir", "o", "", "Directory for the converted file (default: next to the input)")
}

// loadSettings resolves the effective configuration: defaults, then the
// config file, then any flags set on the command line
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" && config.ConfigExists(config.GetDefaultConfigPath()) {
		path = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("legacy") {
		cfg.Scan.Legacy, _ = flags.GetBool("legacy")
	}
	if f := flags.Lookup("format"); f != nil && f.Changed {
		cfg.Output.Format = f.Value.String()
	}
	if f := flags.Lookup("out-dir"); f != nil && f.Changed {
		cfg.Output.Dir = f.Value.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
