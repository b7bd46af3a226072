package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one transcode job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			job, err := client.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), job)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job:      %s\n", job.ID)
			fmt.Fprintf(out, "Asset:    %s\n", job.AssetID)
			fmt.Fprintf(out, "Status:   %s\n", statusLabel(job.Status))
			fmt.Fprintf(out, "Source:   %s\n", job.SourceURL)
			fmt.Fprintf(out, "Created:  %s\n", formatTime(job.CreatedAt))
			fmt.Fprintf(out, "Started:  %s\n", formatTimePtr(job.StartedAt))
			fmt.Fprintf(out, "Finished: %s\n", formatTimePtr(job.FinishedAt))
			if job.OutputPath != "" {
				fmt.Fprintf(out, "Output:   %s\n", job.OutputPath)
			}
			if job.Error != "" {
				fmt.Fprintf(out, "Error:    %s\n", job.Error)
			}
			return nil
		},
	}
	return cmd
}
