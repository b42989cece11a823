package detector

import (
	"image"

	"github.com/cockroachdb/errors"
	headcount "github.com/swdee/go-headcount"
	"github.com/swdee/go-headcount/postprocess/reid"
	"github.com/swdee/go-headcount/tracker"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

// Embedder fills in the appearance Feature of each detection from the frame
type Embedder interface {
	Embed(frame gocv.Mat, dets []tracker.Detection) error
}

// ReID computes L2 normalised appearance embeddings with a re-identification
// model such as OSNet exported to ONNX. Crops are spread over the networks
// of the pool.
type ReID struct {
	pool *headcount.NetPool
	// scaleSize is the model input size to scale each person crop to
	scaleSize image.Point
}

// NewReID loads the embedding model into a pool of poolSize networks
func NewReID(modelPath, device string, poolSize, width, height int) (*ReID, error) {

	if width < 1 || height < 1 {
		return nil, invalidf("reid input size %dx%d is invalid", width, height)
	}

	pool, err := headcount.NewNetPool(poolSize, modelPath, device)

	if err != nil {
		return nil, errors.Wrap(err, "error creating reid net pool")
	}

	return &ReID{
		pool:      pool,
		scaleSize: image.Pt(width, height),
	}, nil
}

// Close frees the model pool
func (r *ReID) Close() {
	r.pool.Close()
}

// Embed runs every detection crop through the model and stores the feature
// on the detection. Work is split in one chunk per pooled network.
func (r *ReID) Embed(frame gocv.Mat, dets []tracker.Detection) error {

	chunk := (len(dets) + r.pool.Size() - 1) / r.pool.Size()

	var g errgroup.Group

	for offset := 0; offset < len(dets); offset += chunk {

		end := min(offset+chunk, len(dets))
		part := dets[offset:end]

		g.Go(func() error {
			net := r.pool.Get()
			defer r.pool.Return(net)

			for i := range part {
				feature, err := r.embedOne(net, frame, part[i].Rect)

				if err != nil {
					return errors.Wrapf(err, "detection %d", part[i].ID)
				}

				part[i].Feature = feature
			}

			return nil
		})
	}

	return g.Wait()
}

// embedOne crops rect from frame and returns its normalised embedding
func (r *ReID) embedOne(net *gocv.Net, frame gocv.Mat, rect tracker.Rect) ([]float64, error) {

	roi := cropRect(rect, frame.Cols(), frame.Rows())

	if roi.Empty() {
		return nil, errors.Newf("crop %v is outside the frame", rect)
	}

	objRoi := frame.Region(roi)
	defer objRoi.Close()

	objImg := gocv.NewMat()
	defer objImg.Close()

	// resize to input tensor size
	gocv.Resize(objRoi, &objImg, r.scaleSize, 0, 0, gocv.InterpolationArea)

	blob := gocv.BlobFromImage(objImg, 1.0/255.0, r.scaleSize,
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	net.SetInput(blob, "")

	out := net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()

	if err != nil {
		return nil, errors.Wrap(err, "error reading embedding")
	}

	if len(data) == 0 {
		return nil, errors.New("model returned an empty embedding")
	}

	return reid.NormalizeVec(reid.FromFloat32(data)), nil
}

// cropRect returns rect clamped to the frame as an integer rectangle
func cropRect(rect tracker.Rect, width, height int) image.Rectangle {

	x1 := clampInt(int(rect.X()), 0, width)
	y1 := clampInt(int(rect.Y()), 0, height)
	x2 := clampInt(int(rect.BRX()), 0, width)
	y2 := clampInt(int(rect.BRY()), 0, height)

	return image.Rect(x1, y1, x2, y2)
}

// clampInt restricts val to be within the range lo and hi
func clampInt(val, lo, hi int) int {
	return max(lo, min(val, hi))
}
