/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/fitfix/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a config file with default repair bounds, a generated API key
and a journal directory.

Examples:
  fitfix init
  fitfix init --config=./fitfix.yaml --journal=./journal --force`,
	Args: cobra.NoArgs,
	// the config file may not exist yet
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		journalDir, _ := cmd.Flags().GetString("journal")
		force, _ := cmd.Flags().GetBool("force")

		if config.ConfigExists(path) && !force {
			cmd.Printf("Config already exists at %s. Use --force to overwrite.\n", path)
			return nil
		}

		cfg, err := config.BootstrapConfig(path, journalDir)
		if err != nil {
			return err
		}

		cmd.Printf("Wrote %s\n", path)
		cmd.Printf("API key: %s\n", cfg.Server.APIKey)
		if cfg.Journal.Dir != "" {
			cmd.Printf("Journal: %s\n", cfg.Journal.Dir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config")
}
