package main

import (
	"github.com/spf13/cobra"
)

var (
	videoInput  string
	videoOutput string
)

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Count the people in a video file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {

		output := videoOutput

		if output == "" {
			var err error
			if output, err = defaultOutput("output"); err != nil {
				return err
			}
		}

		runner, closeFn, err := newRunner()

		if err != nil {
			return err
		}

		defer closeFn()

		ctx, cancel := signalContext()
		defer cancel()

		sum, err := runner.Video(ctx, videoInput, output, cfg.Session.Confidence)

		if err != nil {
			return err
		}

		printSummary(sum, output)
		return nil
	},
}

func init() {
	videoCmd.Flags().StringVarP(&videoInput, "input", "i", "", "input video file")
	videoCmd.Flags().StringVarP(&videoOutput, "output", "o", "", "annotated output video (default outputs/output_<time>.mp4)")
	_ = videoCmd.MarkFlagRequired("input")
}
