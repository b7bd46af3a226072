package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reel/internal/api"
)

func newAssetCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Manage video assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newAssetAddCommand(ctx))
	cmd.AddCommand(newAssetShowCommand(ctx))
	return cmd
}

func newAssetAddCommand(ctx *commandContext) *cobra.Command {
	var (
		titleFlag     string
		durationFlag  int64
		formatFlag    string
		sizeFlag      int64
		subtitlesFlag string
	)

	cmd := &cobra.Command{
		Use:   "add <source-url>",
		Short: "Register a new video asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			req := api.CreateAssetRequest{
				Title:        titleFlag,
				SourceURL:    args[0],
				Format:       formatFlag,
				SubtitlesURL: subtitlesFlag,
			}
			if cmd.Flags().Changed("duration-sec") {
				req.DurationSec = &durationFlag
			}
			if cmd.Flags().Changed("size-bytes") {
				req.SizeBytes = &sizeFlag
			}
			asset, err := client.CreateAsset(cmd.Context(), req)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), asset)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered asset %s (%s)\n", asset.ID, asset.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&titleFlag, "title", "", "Asset title")
	cmd.Flags().Int64Var(&durationFlag, "duration-sec", 0, "Source duration in seconds")
	cmd.Flags().StringVar(&formatFlag, "format", "", "Source container format")
	cmd.Flags().Int64Var(&sizeFlag, "size-bytes", 0, "Source size in bytes")
	cmd.Flags().StringVar(&subtitlesFlag, "subtitles-url", "", "URL of a subtitles file")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newAssetShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <asset-id>",
		Short: "Show one video asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			asset, err := client.GetAsset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), asset)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Asset:    %s\n", asset.ID)
			fmt.Fprintf(out, "Title:    %s\n", asset.Title)
			fmt.Fprintf(out, "Source:   %s\n", asset.SourceURL)
			if asset.ManifestURL != "" {
				fmt.Fprintf(out, "Manifest: %s\n", asset.ManifestURL)
			} else {
				fmt.Fprintln(out, "Manifest: (not yet transcoded)")
			}
			if asset.DurationSec != nil {
				fmt.Fprintf(out, "Duration: %ds\n", *asset.DurationSec)
			}
			if asset.Format != "" {
				fmt.Fprintf(out, "Format:   %s\n", asset.Format)
			}
			if asset.SizeBytes != nil {
				fmt.Fprintf(out, "Size:     %d bytes\n", *asset.SizeBytes)
			}
			if asset.SubtitlesURL != "" {
				fmt.Fprintf(out, "Subs:     %s\n", asset.SubtitlesURL)
			}
			fmt.Fprintf(out, "Created:  %s\n", formatTime(asset.CreatedAt))
			return nil
		},
	}
	return cmd
}
