package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/reentry-map/resource-verifier/internal/lifecycle"
	"github.com/reentry-map/resource-verifier/internal/model"
	"github.com/reentry-map/resource-verifier/internal/store"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review candidates awaiting a decision",
}

var (
	reviewActor  string
	reviewNotes  string
	reviewReason string

	approveCorrections lifecycle.Corrections
)

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List candidates needing attention",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		candidates, err := env.Service.ListCandidates(ctx, store.CandidateFilter{
			Status: model.CandidateNeedsAttention,
		})
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(candidates)
	},
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <candidate-id>",
	Short: "Approve a candidate, optionally with corrections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		approveCorrections.Notes = reviewNotes
		resource, err := env.Service.Approve(ctx, args[0], approveCorrections, reviewActor)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(resource)
	},
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <candidate-id>",
	Short: "Reject a candidate permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Service.Reject(ctx, args[0], model.RejectionReason(reviewReason), reviewNotes, reviewActor)
	},
}

var reviewFlagCmd = &cobra.Command{
	Use:   "flag <candidate-id>",
	Short: "Flag a candidate for human attention",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Service.Flag(ctx, args[0], model.AttentionReason(reviewReason), reviewNotes, reviewActor)
	},
}

func init() {
	reviewCmd.PersistentFlags().StringVar(&reviewActor, "actor", "cli", "reviewer identity for the audit trail")
	reviewCmd.PersistentFlags().StringVar(&reviewNotes, "notes", "", "review notes")

	reviewApproveCmd.Flags().StringVar(&approveCorrections.Name, "name", "", "corrected name")
	reviewApproveCmd.Flags().StringVar(&approveCorrections.Street, "street", "", "corrected street")
	reviewApproveCmd.Flags().StringVar(&approveCorrections.City, "city", "", "corrected city")
	reviewApproveCmd.Flags().StringVar(&approveCorrections.State, "state", "", "corrected state")
	reviewApproveCmd.Flags().StringVar(&approveCorrections.ZipCode, "zip", "", "corrected zip code")
	reviewApproveCmd.Flags().StringVar(&approveCorrections.Phone, "phone", "", "corrected phone")
	reviewApproveCmd.Flags().StringVar(&approveCorrections.Website, "website", "", "corrected website")
	reviewApproveCmd.Flags().StringVar(&approveCorrections.ServiceArea, "service-area", "", "corrected service area")

	reviewRejectCmd.Flags().StringVar(&reviewReason, "reason", "", "rejection reason")
	reviewFlagCmd.Flags().StringVar(&reviewReason, "reason", "", "attention reason")

	reviewCmd.AddCommand(reviewListCmd, reviewApproveCmd, reviewRejectCmd, reviewFlagCmd)
	rootCmd.AddCommand(reviewCmd)
}
