/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/lagerconv/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file holding the default settings, ready to edit.

Examples:
  lagerconv init
  lagerconv init --config ./lagerconv.yaml --format parquet --with-api-key`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		force, _ := cmd.Flags().GetBool("force")
		withKey, _ := cmd.Flags().GetBool("with-api-key")
		format, _ := cmd.Flags().GetString("format")

		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if config.ConfigExists(path) && !force {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}

		cfg := config.DefaultConfig()
		if format != "" {
			cfg.Output.Format = format
		}
		if withKey {
			key, err := generateAPIKey()
			if err != nil {
				return err
			}
			cfg.Server.APIKey = key
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if err := config.SaveConfig(cfg, path); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s\n", path)
		if withKey {
			fmt.Fprintf(cmd.OutOrStdout(), "Server API key: %s\n", cfg.Server.APIKey)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	initCmd.Flags().Bool("with-api-key", false, "Generate a server API key")
	initCmd.Flags().String("format", "", "Default output format")
}

// generateAPIKey generates a secure random API key
func generateAPIKey() (string, error) {
	bytes := make([]byte, 32) // 256 bits
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random API key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
