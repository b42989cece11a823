package main

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	cameraIndex  int
	cameraOutput string
)

var cameraCmd = &cobra.Command{
	Use:   "camera",
	Short: "Count the people seen by a camera",
	Long: `Count the people seen by a camera. The run stops after --duration or on
Ctrl+C, the annotated recording is kept in both cases.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {

		output := cameraOutput

		if output == "" {
			var err error
			if output, err = defaultOutput("camera_output"); err != nil {
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

		sum, err := runner.Camera(ctx, cameraIndex, output, cameraDuration(cmd),
			cfg.Session.Confidence)

		if err != nil {
			return err
		}

		printSummary(sum, output)
		return nil
	},
}

func init() {
	cameraCmd.Flags().IntVar(&cameraIndex, "index", 0, "camera device index")
	cameraCmd.Flags().Duration("duration", 30*time.Second, "recording length, 0 runs until interrupted")
	cameraCmd.Flags().StringVarP(&cameraOutput, "output", "o", "", "annotated output video (default outputs/camera_output_<time>.mp4)")
}

// cameraDuration prefers the flag when given, then the configured duration,
// then the flag default
func cameraDuration(cmd *cobra.Command) time.Duration {

	duration := cfg.Session.Duration

	if cmd.Flags().Changed("duration") || duration == 0 {
		duration, _ = cmd.Flags().GetDuration("duration")
	}

	return duration
}
