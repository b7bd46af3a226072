package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reel/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var sourceFlag string

	cmd := &cobra.Command{
		Use:   "submit <asset-id>",
		Short: "Queue a transcode job for an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			job, err := client.SubmitJob(cmd.Context(), api.SubmitJobRequest{
				AssetID:   args[0],
				SourceURL: sourceFlag,
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), job)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s for asset %s\n", job.ID, job.AssetID)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceFlag, "source", "", "Override the asset's source URL for this job")
	return cmd
}
