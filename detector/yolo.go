package detector

import (
	"image"
	"image/color"

	"github.com/cockroachdb/errors"
	headcount "github.com/swdee/go-headcount"
	"github.com/swdee/go-headcount/postprocess"
	"github.com/swdee/go-headcount/preprocess"
	"github.com/swdee/go-headcount/tracker"
	"gocv.io/x/gocv"
)

// ErrDetectionFailure marks a failed model run on a frame. It is recoverable,
// the frame can be processed as having no detections.
var ErrDetectionFailure = errors.New("detection failure")

// tile merge thresholds
const (
	tileIoUThreshold      = 0.5
	tileSmallBoxThreshold = 0.7
)

// letterbox padding colour
var padColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// YOLO runs a YOLOv8 ONNX model through OpenCV DNN and returns the people
// found in a frame. It holds no per frame state and is safe for concurrent
// use.
type YOLO struct {
	cfg      Config
	pool     *headcount.NetPool
	decoder  *postprocess.YOLOv8
	class    int
	tiler    *preprocess.Tiler
	ids      *postprocess.IDGenerator
	zone     *Zone
	embedder Embedder
	// reid is the embedder created from the config, closed with the detector
	reid *ReID
}

// Option configures a YOLO detector
type Option func(*YOLO)

// WithEmbedder attaches appearance features to every detection returned
func WithEmbedder(e Embedder) Option {
	return func(y *YOLO) {
		y.embedder = e
	}
}

// New loads the model into a pool of cfg.PoolSize networks
func New(cfg Config, opts ...Option) (*YOLO, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var labels []string

	if cfg.LabelsPath != "" {
		var err error
		labels, err = headcount.LoadLabels(cfg.LabelsPath)

		if err != nil {
			return nil, err
		}
	}

	class, err := headcount.ClassIndex(labels, tracker.PersonClass)

	if err != nil {
		return nil, errors.Mark(err, tracker.ErrInvalidConfiguration)
	}

	pool, err := headcount.NewNetPool(cfg.PoolSize, cfg.ModelPath, cfg.Device)

	if err != nil {
		return nil, errors.Wrap(err, "error creating detector net pool")
	}

	y, err := newYOLO(cfg, pool, class, opts...)

	if err != nil {
		pool.Close()
		return nil, err
	}

	if cfg.ReIDModelPath != "" && y.embedder == nil {
		r, err := NewReID(cfg.ReIDModelPath, cfg.Device, cfg.PoolSize,
			cfg.ReIDWidth, cfg.ReIDHeight)

		if err != nil {
			pool.Close()
			return nil, err
		}

		y.reid = r
		y.embedder = r
	}

	return y, nil
}

func newYOLO(cfg Config, pool *headcount.NetPool, class int, opts ...Option) (*YOLO, error) {

	params := postprocess.YOLOv8COCOParams()
	params.ObjectClassNum = cfg.ClassNum
	params.NMSThreshold = cfg.NMSThreshold
	params.MaxObjectNumber = cfg.MaxDetections
	params.Classes = []int{class}

	y := &YOLO{
		cfg:     cfg,
		pool:    pool,
		decoder: postprocess.NewYOLOv8(params),
		class:   class,
		ids:     postprocess.NewIDGenerator(),
	}

	if cfg.Tiling {
		y.tiler = preprocess.NewTiler(cfg.InputSize, cfg.InputSize,
			cfg.TileOverlap, cfg.TileOverlap)
	}

	if len(cfg.Zone) > 0 {
		zone, err := NewZone(cfg.Zone, cfg.MinOverlap)

		if err != nil {
			return nil, err
		}

		y.zone = zone
	}

	for _, o := range opts {
		o(y)
	}

	return y, nil
}

// Close frees the model pools
func (y *YOLO) Close() {
	y.pool.Close()

	if y.reid != nil {
		y.reid.Close()
	}
}

// Detect returns the people in frame with a confidence of at least
// threshold, in frame pixel coordinates.
func (y *YOLO) Detect(frame gocv.Mat, threshold float32) ([]tracker.Detection, error) {

	if err := tracker.ValidateConfidence(threshold); err != nil {
		return nil, err
	}

	if frame.Empty() {
		return nil, errors.Mark(errors.New("empty frame"), ErrDetectionFailure)
	}

	// copy of the decoder sharing the ID generator
	decoder := *y.decoder
	decoder.Params.BoxThreshold = threshold

	var results []postprocess.DetectResult

	if y.tiler == nil {
		res, err := y.inferFrame(&decoder, frame)

		if err != nil {
			return nil, err
		}

		results = res

	} else {
		res, err := y.inferTiles(&decoder, frame)

		if err != nil {
			return nil, err
		}

		results = res
	}

	dets := FilterPeople(postprocess.DetectionsToTracker(results, y.class), threshold)

	if y.zone != nil {
		dets = y.zone.Filter(dets)
	}

	if y.embedder != nil && len(dets) > 0 {
		if err := y.embedder.Embed(frame, dets); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "error embedding detections"),
				ErrDetectionFailure)
		}
	}

	return dets, nil
}

// inferFrame letterboxes the whole frame to the model input and runs it
func (y *YOLO) inferFrame(decoder *postprocess.YOLOv8, frame gocv.Mat) ([]postprocess.DetectResult, error) {

	size := y.cfg.InputSize

	resizer := preprocess.NewResizer(frame.Cols(), frame.Rows(), size, size)
	defer resizer.Close()

	resized := gocv.NewMat()
	defer resized.Close()

	resizer.LetterBoxResize(frame, &resized, padColor)

	return y.infer(decoder, resized, resizer)
}

// infer runs the model on an image already letterboxed to the model input,
// lb maps the boxes back to the source image
func (y *YOLO) infer(decoder *postprocess.YOLOv8, img gocv.Mat,
	lb postprocess.Letterbox) ([]postprocess.DetectResult, error) {

	size := y.cfg.InputSize

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	net := y.pool.Get()
	defer y.pool.Return(net)

	net.SetInput(blob, "")

	out := net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, errors.Mark(errors.New("model returned no output"), ErrDetectionFailure)
	}

	data, err := out.DataPtrFloat32()

	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "error reading model output"),
			ErrDetectionFailure)
	}

	res, err := decoder.DetectObjects(data, out.Size(), lb)

	if err != nil {
		return nil, errors.Mark(err, ErrDetectionFailure)
	}

	return res.GetDetectResults(), nil
}

// inferTiles runs the model over overlapping tiles of the frame and merges
// the results back into frame coordinates
func (y *YOLO) inferTiles(decoder *postprocess.YOLOv8, frame gocv.Mat) ([]postprocess.DetectResult, error) {

	tiles := y.tiler.Slice(frame)

	defer func() {
		for i := range tiles {
			_ = tiles[i].Free()
		}
	}()

	results := make([]preprocess.TileResult, 0, len(tiles))

	for i := range tiles {
		res, err := y.infer(decoder, *tiles[i].Mat(), tiles[i].Resizer())

		if err != nil {
			return nil, errors.Wrapf(err, "tile %d", i)
		}

		results = append(results, preprocess.TileResult{
			Rect:    tiles[i].TileRect,
			Results: res,
		})
	}

	return preprocess.Merge(results, y.ids, tileIoUThreshold, tileSmallBoxThreshold), nil
}

// FilterPeople keeps the person detections scoring at least threshold. The
// input order is kept.
func FilterPeople(dets []tracker.Detection, threshold float32) []tracker.Detection {

	out := make([]tracker.Detection, 0, len(dets))

	for _, d := range dets {
		if d.Class != tracker.PersonClass || d.Confidence < threshold {
			continue
		}

		out = append(out, d)
	}

	return out
}
