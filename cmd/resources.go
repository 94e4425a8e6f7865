package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/reentry-map/resource-verifier/internal/model"
	"github.com/reentry-map/resource-verifier/internal/store"
)

var (
	resourcesCategory string
	resourcesStatus   string
	resourcesLimit    int
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List published resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		resources, err := env.Service.ListResources(ctx, store.ResourceFilter{
			Status:   model.ResourceStatus(resourcesStatus),
			Category: resourcesCategory,
			Limit:    resourcesLimit,
		})
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(resources)
	},
}

func init() {
	resourcesCmd.Flags().StringVar(&resourcesCategory, "category", "", "filter by category")
	resourcesCmd.Flags().StringVar(&resourcesStatus, "status", "", "filter by status (default active)")
	resourcesCmd.Flags().IntVar(&resourcesLimit, "limit", 100, "max resources to list")
	rootCmd.AddCommand(resourcesCmd)
}
