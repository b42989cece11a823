package detector

import (
	"image"

	"github.com/cockroachdb/errors"
	"github.com/swdee/go-headcount/tracker"
)

// Config holds the detector adapter settings
type Config struct {
	// ModelPath is the YOLOv8 ONNX model file
	ModelPath string `mapstructure:"model_path"`
	// LabelsPath is an optional labels file, one class per line, used to
	// find the person class index. COCO ordering is assumed when empty.
	LabelsPath string `mapstructure:"labels_path"`
	// Device selects the OpenCV DNN backend, see headcount.Device
	Device string `mapstructure:"device"`
	// InputSize is the square model input in pixels
	InputSize int `mapstructure:"input_size"`
	// ClassNum is the number of classes the model was trained with
	ClassNum int `mapstructure:"class_num"`
	// NMSThreshold is the IoU above which overlapping boxes are suppressed
	NMSThreshold float32 `mapstructure:"nms_threshold"`
	// MaxDetections caps the people returned per frame
	MaxDetections int `mapstructure:"max_detections"`
	// PoolSize is the number of model instances for concurrent sessions
	PoolSize int `mapstructure:"pool_size"`
	// Tiling enables sliced inference for high resolution frames
	Tiling bool `mapstructure:"tiling"`
	// TileOverlap is the overlap ratio between neighbouring tiles
	TileOverlap float32 `mapstructure:"tile_overlap"`
	// Zone is an optional counting polygon in frame pixels
	Zone []image.Point `mapstructure:"zone"`
	// MinOverlap is the share of a box that must lie in Zone
	MinOverlap float64 `mapstructure:"min_overlap"`
	// ReIDModelPath enables appearance embeddings when set
	ReIDModelPath string `mapstructure:"reid_model_path"`
	// ReIDWidth and ReIDHeight are the embedding model input size
	ReIDWidth  int `mapstructure:"reid_width"`
	ReIDHeight int `mapstructure:"reid_height"`
}

// DefaultConfig returns settings for a COCO trained YOLOv8 640 model
func DefaultConfig() Config {
	return Config{
		ModelPath:     "models/yolov8n.onnx",
		Device:        "cpu",
		InputSize:     640,
		ClassNum:      80,
		NMSThreshold:  0.45,
		MaxDetections: 300,
		PoolSize:      1,
		TileOverlap:   0.2,
		MinOverlap:    0.5,
		ReIDWidth:     128,
		ReIDHeight:    256,
	}
}

// Validate checks the settings
func (c Config) Validate() error {

	switch {
	case c.ModelPath == "":
		return invalidf("model_path is required")
	case c.InputSize < 32:
		return invalidf("input_size must be at least 32, got %d", c.InputSize)
	case c.ClassNum < 1:
		return invalidf("class_num must be at least 1, got %d", c.ClassNum)
	case !(c.NMSThreshold > 0 && c.NMSThreshold <= 1):
		return invalidf("nms_threshold must be in (0, 1], got %v", c.NMSThreshold)
	case c.MaxDetections < 1:
		return invalidf("max_detections must be at least 1, got %d", c.MaxDetections)
	case c.PoolSize < 1:
		return invalidf("pool_size must be at least 1, got %d", c.PoolSize)
	case c.TileOverlap < 0 || c.TileOverlap >= 1:
		return invalidf("tile_overlap must be in [0, 1), got %v", c.TileOverlap)
	case len(c.Zone) > 0 && len(c.Zone) < 3:
		return invalidf("zone needs at least 3 points, got %d", len(c.Zone))
	case c.MinOverlap < 0 || c.MinOverlap > 1:
		return invalidf("min_overlap must be in [0, 1], got %v", c.MinOverlap)
	case c.ReIDModelPath != "" && (c.ReIDWidth < 1 || c.ReIDHeight < 1):
		return invalidf("reid input size %dx%d is invalid", c.ReIDWidth, c.ReIDHeight)
	}

	return nil
}

func invalidf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), tracker.ErrInvalidConfiguration)
}
