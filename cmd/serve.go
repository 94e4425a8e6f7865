package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reentry-map/resource-verifier/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for submissions and review",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		server := api.NewServer(env.Service, cfg.Server)
		return server.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
