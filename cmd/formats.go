package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tubedeck/services"
	"tubedeck/validator"
)

var formatsCmd = &cobra.Command{
	Use:   "formats <url>",
	Short: "List the downloadable variants of a video, best first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videoURL := strings.TrimSpace(args[0])
		if !validator.IsSupportedVideoURL(videoURL) {
			return fmt.Errorf("%w: unsupported video URL %q", services.ErrValidation, videoURL)
		}
		client, err := newRemoteClient(cfg)
		if err != nil {
			return err
		}
		info, err := client.ResolveInfo(cmd.Context(), videoURL)
		if err != nil {
			return fmt.Errorf("%w: %w", services.ErrRemoteRequest, err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, videoSummary(info))
		ranked := services.RankVariants(info.Variants)
		if len(ranked) == 0 {
			printError(out, "no downloadable variants")
			return nil
		}
		printHeader(out, fmt.Sprintf("%d variants", len(ranked)))
		fmt.Fprintln(out, variantTable(ranked))
		return nil
	},
}
