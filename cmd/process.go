package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var processLimit int

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run pending candidates through the verification pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Service.ProcessQueue(ctx, processLimit)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(summary)
	},
}

func init() {
	processCmd.Flags().IntVar(&processLimit, "limit", 0, "max candidates to process (0 = configured default)")
	rootCmd.AddCommand(processCmd)
}
