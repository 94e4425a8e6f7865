package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/reentry-map/resource-verifier/internal/model"
)

var (
	submitFile   string
	submitName   string
	submitStreet string
	submitCity   string
	submitState  string
	submitZip    string
	submitPhone  string
	submitSite   string
	submitCat    string
	submitMethod string
	submitNotes  string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a resource suggestion",
	Long:  "Submits a candidate from flags or from a JSON file (--file). The candidate enters the pending queue for verification.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var cand model.ResourceCandidate
		if submitFile != "" {
			data, err := os.ReadFile(submitFile)
			if err != nil {
				return eris.Wrapf(err, "read %s", submitFile)
			}
			if err := json.Unmarshal(data, &cand); err != nil {
				return eris.Wrapf(err, "parse %s", submitFile)
			}
		} else {
			cand = model.ResourceCandidate{
				Name:     submitName,
				Street:   submitStreet,
				City:     submitCity,
				State:    submitState,
				ZipCode:  submitZip,
				Phone:    submitPhone,
				Website:  submitSite,
				Category: submitCat,
				Provenance: model.Provenance{
					DiscoveryMethod: submitMethod,
					Notes:           submitNotes,
				},
			}
		}

		created, err := env.Service.SubmitCandidate(ctx, &cand)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(created)
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitFile, "file", "", "JSON file holding the candidate")
	submitCmd.Flags().StringVar(&submitName, "name", "", "resource name")
	submitCmd.Flags().StringVar(&submitStreet, "street", "", "street address")
	submitCmd.Flags().StringVar(&submitCity, "city", "", "city")
	submitCmd.Flags().StringVar(&submitState, "state", "", "state")
	submitCmd.Flags().StringVar(&submitZip, "zip", "", "zip code")
	submitCmd.Flags().StringVar(&submitPhone, "phone", "", "phone number")
	submitCmd.Flags().StringVar(&submitSite, "website", "", "website URL")
	submitCmd.Flags().StringVar(&submitCat, "category", "", "resource category")
	submitCmd.Flags().StringVar(&submitMethod, "method", "manual", "discovery method")
	submitCmd.Flags().StringVar(&submitNotes, "notes", "", "provenance notes")
	rootCmd.AddCommand(submitCmd)
}
