package detector

import (
	"image"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/swdee/go-headcount/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func square() []image.Point {
	return []image.Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}
}

func TestZoneOverlap(t *testing.T) {

	zone, err := NewZone(square(), 0.5)
	require.NoError(t, err)

	tests := []struct {
		name     string
		rect     tracker.Rect
		expected float64
		contains bool
	}{
		{"inside", tracker.NewRect(10, 10, 20, 40), 1, true},
		{"half", tracker.NewRect(50, 0, 100, 100), 0.5, true},
		{"quarter", tracker.NewRect(50, 50, 100, 100), 0.25, false},
		{"outside", tracker.NewRect(200, 200, 10, 10), 0, false},
		{"empty box", tracker.NewRect(10, 10, 0, 10), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, zone.Overlap(tt.rect), 1e-9)
			assert.Equal(t, tt.contains, zone.Contains(tt.rect))
		})
	}
}

func TestZoneFilterKeepsOrder(t *testing.T) {

	zone, err := NewZone(square(), 0.5)
	require.NoError(t, err)

	dets := []tracker.Detection{
		tracker.NewDetection(tracker.NewRect(60, 10, 20, 40), 0.9, 1),
		tracker.NewDetection(tracker.NewRect(300, 10, 20, 40), 0.9, 2),
		tracker.NewDetection(tracker.NewRect(10, 10, 20, 40), 0.8, 3),
	}

	out := zone.Filter(dets)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].ID)
	assert.Equal(t, int64(3), out[1].ID)
}

func TestNewZoneInvalid(t *testing.T) {

	_, err := NewZone([]image.Point{{0, 0}, {10, 10}}, 0.5)
	assert.True(t, errors.Is(err, tracker.ErrInvalidConfiguration))

	_, err = NewZone([]image.Point{{0, 0}, {10, 10}, {20, 20}}, 0.5)
	assert.True(t, errors.Is(err, tracker.ErrInvalidConfiguration), "collinear")

	_, err = NewZone(square(), 1.5)
	assert.True(t, errors.Is(err, tracker.ErrInvalidConfiguration))
}

func TestFilterPeople(t *testing.T) {

	dets := []tracker.Detection{
		tracker.NewDetection(tracker.NewRect(0, 0, 10, 20), 0.34, 1),
		tracker.NewDetection(tracker.NewRect(0, 0, 10, 20), 0.35, 2),
		tracker.NewDetection(tracker.NewRect(0, 0, 10, 20), 0.9, 3),
		{Rect: tracker.NewRect(0, 0, 10, 20), Confidence: 0.9, Class: "car", ID: 4},
	}

	out := FilterPeople(dets, 0.35)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[0].ID)
	assert.Equal(t, int64(3), out[1].ID)
}

func TestConfigValidate(t *testing.T) {

	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no model", func(c *Config) { c.ModelPath = "" }},
		{"small input", func(c *Config) { c.InputSize = 16 }},
		{"nms", func(c *Config) { c.NMSThreshold = 0 }},
		{"pool", func(c *Config) { c.PoolSize = 0 }},
		{"overlap", func(c *Config) { c.TileOverlap = 1 }},
		{"zone", func(c *Config) { c.Zone = []image.Point{{0, 0}} }},
		{"min overlap", func(c *Config) { c.MinOverlap = -0.1 }},
		{"reid size", func(c *Config) { c.ReIDModelPath = "osnet.onnx"; c.ReIDWidth = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.True(t, errors.Is(cfg.Validate(), tracker.ErrInvalidConfiguration))
		})
	}
}

func TestCropRect(t *testing.T) {
	r := cropRect(tracker.NewRect(-10, 20, 50, 500), 100, 200)
	assert.Equal(t, image.Rect(0, 20, 40, 200), r)
}

func TestDetectRejectsBadInput(t *testing.T) {

	y, err := newYOLO(DefaultConfig(), nil, 0)
	require.NoError(t, err)

	frame := gocv.NewMat()
	defer frame.Close()

	_, err = y.Detect(frame, 0)
	assert.True(t, errors.Is(err, tracker.ErrInvalidConfiguration))

	_, err = y.Detect(frame, 1.2)
	assert.True(t, errors.Is(err, tracker.ErrInvalidConfiguration))

	_, err = y.Detect(frame, 0.35)
	assert.True(t, errors.Is(err, ErrDetectionFailure))
}
