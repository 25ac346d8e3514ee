/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ssargent/fitfix/pkg/config"
	"github.com/ssargent/fitfix/pkg/journal"
	"github.com/ssargent/fitfix/pkg/logging"
	"github.com/ssargent/fitfix/pkg/metrics"
)

type appKey struct{}

// app carries what every subcommand needs once flags and config are resolved
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	metrics *metrics.Metrics
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fitfix",
	Short: "fitfix - FIT capture repair",
	Long: `fitfix repairs corrupted FIT activity captures: it cuts out garbage,
rebuilds headers and checksums, and sorts batches into good and bad files.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.TextFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default "+config.GetDefaultConfigPath()+")")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("journal", "", "Directory of the repair journal (empty disables it)")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file on exit")
}

// setup loads the config file, applies global flag overrides and builds the
// logger
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("journal") {
		cfg.Journal.Dir, _ = flags.GetString("journal")
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.TextFile, _ = flags.GetString("metrics-file")
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appKey{}, a))
	return nil
}

// loadConfig reads --config, or the default path when it exists, or falls
// back to built-in defaults
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadConfig(path)
	}
	path = config.GetDefaultConfigPath()
	if !config.ConfigExists(path) {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}

func appFrom(cmd *cobra.Command) *app {
	if ctx := cmd.Context(); ctx != nil {
		if a, ok := ctx.Value(appKey{}).(*app); ok {
			return a
		}
	}
	return &app{cfg: config.DefaultConfig(), log: logging.Discard()}
}

// openJournal opens the configured journal, or returns nil when disabled
func (a *app) openJournal() (*journal.Journal, error) {
	if a.cfg.Journal.Dir == "" {
		return nil, nil
	}
	j, err := journal.Open(a.cfg.Journal.Dir)
	if err != nil {
		return nil, err
	}
	return j, nil
}

var errFailures = errors.New("some captures failed")
