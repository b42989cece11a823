// Package config loads the headcount settings from a TOML file, environment
// variables and defaults using viper.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"github.com/swdee/go-headcount/detector"
	"github.com/swdee/go-headcount/internal/logger"
	"github.com/swdee/go-headcount/session"
)

// EnvPrefix is prepended to environment overrides, the key
// session.tracker.n_init is set by HEADCOUNT_SESSION_TRACKER_N_INIT
const EnvPrefix = "HEADCOUNT"

// FileName is the config file searched for when no path is given
const FileName = "headcount"

// Config is the complete service configuration
type Config struct {
	Log      logger.Config   `mapstructure:"log"`
	Detector detector.Config `mapstructure:"detector"`
	Session  session.Config  `mapstructure:"session"`
	Server   Server          `mapstructure:"server"`
	// TrailSize is the number of points drawn behind each person, zero
	// disables trails
	TrailSize int `mapstructure:"trail_size"`
}

// Server holds the HTTP API settings
type Server struct {
	Addr      string `mapstructure:"addr"`
	UploadDir string `mapstructure:"upload_dir"`
	OutputDir string `mapstructure:"output_dir"`
	// MaxUploadMB caps the size of uploaded videos
	MaxUploadMB int64 `mapstructure:"max_upload_mb"`
	// camera run limits in seconds
	MinCameraSeconds int `mapstructure:"min_camera_seconds"`
	MaxCameraSeconds int `mapstructure:"max_camera_seconds"`
}

// Default returns the built in configuration
func Default() Config {
	return Config{
		Log:      logger.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		Session:  session.DefaultConfig(),
		Server: Server{
			Addr:             ":8000",
			UploadDir:        "uploads",
			OutputDir:        "outputs",
			MaxUploadMB:      512,
			MinCameraSeconds: 5,
			MaxCameraSeconds: 300,
		},
	}
}

// SetDefaults registers every default value with v so each key can also be
// overridden from the environment
func SetDefaults(v *viper.Viper) {

	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)

	v.SetDefault("detector.model_path", d.Detector.ModelPath)
	v.SetDefault("detector.labels_path", d.Detector.LabelsPath)
	v.SetDefault("detector.device", d.Detector.Device)
	v.SetDefault("detector.input_size", d.Detector.InputSize)
	v.SetDefault("detector.class_num", d.Detector.ClassNum)
	v.SetDefault("detector.nms_threshold", d.Detector.NMSThreshold)
	v.SetDefault("detector.max_detections", d.Detector.MaxDetections)
	v.SetDefault("detector.pool_size", d.Detector.PoolSize)
	v.SetDefault("detector.tiling", d.Detector.Tiling)
	v.SetDefault("detector.tile_overlap", d.Detector.TileOverlap)
	v.SetDefault("detector.min_overlap", d.Detector.MinOverlap)
	v.SetDefault("detector.reid_model_path", d.Detector.ReIDModelPath)
	v.SetDefault("detector.reid_width", d.Detector.ReIDWidth)
	v.SetDefault("detector.reid_height", d.Detector.ReIDHeight)

	v.SetDefault("session.confidence_threshold", d.Session.Confidence)
	v.SetDefault("session.duration", d.Session.Duration)
	v.SetDefault("session.progress_every", d.Session.ProgressEvery)

	t := d.Session.Tracker
	v.SetDefault("session.tracker.n_init", t.NInit)
	v.SetDefault("session.tracker.max_age", t.MaxAge)
	v.SetDefault("session.tracker.gating_threshold", t.GatingThreshold)
	v.SetDefault("session.tracker.appearance_weight", t.AppearanceWeight)
	v.SetDefault("session.tracker.tie_break_weight", t.TieBreakWeight)
	v.SetDefault("session.tracker.solver", t.Solver)
	v.SetDefault("session.tracker.std_weight_position", t.StdWeightPosition)
	v.SetDefault("session.tracker.std_weight_velocity", t.StdWeightVelocity)
	v.SetDefault("session.tracker.feature_alpha", t.FeatureAlpha)
	v.SetDefault("session.tracker.feature_queue", t.FeatureQueue)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.upload_dir", d.Server.UploadDir)
	v.SetDefault("server.output_dir", d.Server.OutputDir)
	v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	v.SetDefault("server.min_camera_seconds", d.Server.MinCameraSeconds)
	v.SetDefault("server.max_camera_seconds", d.Server.MaxCameraSeconds)

	v.SetDefault("trail_size", d.TrailSize)
}

// New returns a viper instance with defaults and environment binding set up
func New() *viper.Viper {

	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	return v
}

// Load reads the configuration. With an empty path headcount.toml is looked
// up in the working directory and skipped when missing, an explicit path
// must exist.
func Load(path string) (*Config, error) {

	v := New()

	if err := Read(v, path); err != nil {
		return nil, err
	}

	return LoadWithViper(v)
}

// Read merges the config file at path into v, see Load for how an empty
// path is handled
func Read(v *viper.Viper, path string) error {

	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %s", path)
		}

		return nil
	}

	v.SetConfigName(FileName)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError

		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "failed to read config file")
		}
	}

	return nil
}

// LoadWithViper decodes and validates the configuration held by v
func LoadWithViper(v *viper.Viper) (*Config, error) {

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {

	if err := c.Detector.Validate(); err != nil {
		return errors.Wrap(err, "detector")
	}

	if err := c.Session.Validate(); err != nil {
		return errors.Wrap(err, "session")
	}

	s := c.Server

	if s.MinCameraSeconds < 1 || s.MaxCameraSeconds < s.MinCameraSeconds {
		return errors.Newf("server camera limits %d..%d are invalid",
			s.MinCameraSeconds, s.MaxCameraSeconds)
	}

	if s.MaxUploadMB < 1 {
		return errors.Newf("server max_upload_mb must be positive, got %d", s.MaxUploadMB)
	}

	if c.TrailSize < 0 {
		return errors.Newf("trail_size must not be negative, got %d", c.TrailSize)
	}

	return nil
}
