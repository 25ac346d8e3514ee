/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/fitfix/pkg/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the fitfix REST API server.

Captures are posted as the request body; repair options are query
parameters named like the fix flags (drop, fix_checksum, max_drop_cnt, ...).
Requests to /api/v1 need the X-API-Key header when an API key is configured.

Examples:
  fitfix serve --port=8080
  fitfix serve --api-key=mysecretkey --bind=0.0.0.0 --journal=./journal`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		cfg := a.cfg

		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Server.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			cfg.Server.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		if cfg.Server.APIKey == "" {
			a.log.Warn("no API key configured: the API is open to anyone who can reach it")
		}

		serverConfig := api.ServerConfig{
			Port:        cfg.Server.Port,
			Bind:        cfg.Server.Bind,
			APIKey:      cfg.Server.APIKey,
			MaxBodySize: cfg.Server.MaxBodySize,
			Bounds:      cfg.Bounds(),
			Header:      cfg.HeaderSpec(),
		}

		j, err := a.openJournal()
		if err != nil {
			return err
		}
		var server *api.Server
		if j != nil {
			defer j.Close()
			server = api.NewServer(serverConfig, a.metrics, j, a.log)
		} else {
			server = api.NewServer(serverConfig, a.metrics, nil, a.log)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return api.StartServer(ctx, server)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	serveCmd.Flags().String("api-key", "", "API key for authentication (empty disables it)")
}
