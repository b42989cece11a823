package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/swdee/go-headcount/internal/config"
	"github.com/swdee/go-headcount/internal/logger"
	"go.uber.org/zap"
)

var (
	// cfg and log are loaded before any command runs
	cfg *config.Config
	log *zap.SugaredLogger

	configFile string
)

// flagKeys maps command line flags onto config keys, a flag given on the
// command line overrides the file and environment
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-json":   "log.json",
	"model":      "detector.model_path",
	"labels":     "detector.labels_path",
	"device":     "detector.device",
	"tiling":     "detector.tiling",
	"confidence": "session.confidence_threshold",
	"n-init":     "session.tracker.n_init",
	"max-age":    "session.tracker.max_age",
	"solver":     "session.tracker.solver",
	"trail":      "trail_size",
	"addr":       "server.addr",
}

var rootCmd = &cobra.Command{
	Use:   "headcount",
	Short: "Track and count people in video",
	Long: `headcount detects people with a YOLOv8 model, follows each person across
frames with a stable ID and counts both the people currently visible and
the total number of unique people seen.

Examples:
  headcount video -i in.mp4 -o out.mp4 --confidence 0.4
  headcount camera --index 0 --duration 30s -o out.mp4
  headcount serve --addr :8000`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default ./headcount.toml when present)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.Bool("log-json", false, "write logs as JSON")
	pf.String("model", "", "YOLOv8 ONNX model file")
	pf.String("labels", "", "labels file, one class per line")
	pf.String("device", "", "inference device: cpu, cuda, cuda-fp16, openvino, vulkan")
	pf.Bool("tiling", false, "run the model over overlapping tiles of large frames")
	pf.Float32("confidence", 0.35, "minimum detection confidence")
	pf.Int("n-init", 5, "consecutive hits to confirm a person")
	pf.Int("max-age", 50, "missed frames before a person is dropped")
	pf.String("solver", "", "assignment solver: lapjv, hungarian, greedy")
	pf.Int("trail", 0, "trail points drawn behind each person")

	rootCmd.AddCommand(videoCmd, cameraCmd, serveCmd)
}

// setup loads the configuration with flag overrides and builds the logger
func setup(cmd *cobra.Command) error {

	v := config.New()

	if err := bindFlags(cmd, v); err != nil {
		return err
	}

	if err := config.Read(v, configFile); err != nil {
		return err
	}

	loaded, err := config.LoadWithViper(v)

	if err != nil {
		return err
	}

	l, err := logger.New(loaded.Log)

	if err != nil {
		return err
	}

	cfg = loaded
	log = l

	return nil
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {

	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)

		if f == nil {
			continue
		}

		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
