package tracker

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// stateDim is the size of the state vector
	// [cx, cy, aspect, h, vcx, vcy, vaspect, vh]
	stateDim = 8
	// measureDim is the size of the Xyah measurement vector
	measureDim = 4
)

// StateMean is the 8 dimensional state mean vector of a track
type StateMean [stateDim]float64

// KalmanFilter is a constant velocity Kalman filter operating in Xyah space.
// The motion and observation noise is scaled by the box height, so tall
// (close) people are allowed to move more pixels per frame than short (far
// away) ones.
type KalmanFilter struct {
	stdWeightPosition float64
	stdWeightVelocity float64
	motionMat         *mat.Dense
	updateMat         *mat.Dense
}

// NewKalmanFilter initializes and returns a new KalmanFilter
func NewKalmanFilter(stdWeightPosition, stdWeightVelocity float64) *KalmanFilter {

	// position advances by velocity once per frame
	motionMat := mat.NewDense(stateDim, stateDim, nil)

	for i := 0; i < stateDim; i++ {
		motionMat.Set(i, i, 1)
	}

	for i := 0; i < measureDim; i++ {
		motionMat.Set(i, measureDim+i, 1)
	}

	// only the position part of the state is observed
	updateMat := mat.NewDense(measureDim, stateDim, nil)

	for i := 0; i < measureDim; i++ {
		updateMat.Set(i, i, 1)
	}

	return &KalmanFilter{
		stdWeightPosition: stdWeightPosition,
		stdWeightVelocity: stdWeightVelocity,
		motionMat:         motionMat,
		updateMat:         updateMat,
	}
}

// Initiate creates the state mean and covariance of a new track from its
// first measurement. Velocities start at zero.
func (kf *KalmanFilter) Initiate(measurement Xyah) (StateMean, *mat.Dense) {

	var mean StateMean

	for i := 0; i < measureDim; i++ {
		mean[i] = float64(measurement[i])
	}

	h := float64(measurement[3])

	std := [stateDim]float64{
		2 * kf.stdWeightPosition * h,
		2 * kf.stdWeightPosition * h,
		1e-2,
		2 * kf.stdWeightPosition * h,
		10 * kf.stdWeightVelocity * h,
		10 * kf.stdWeightVelocity * h,
		1e-5,
		10 * kf.stdWeightVelocity * h,
	}

	return mean, diagSquared(std[:])
}

// Predict runs the prediction step, advancing mean and covariance one frame
func (kf *KalmanFilter) Predict(mean *StateMean, covariance *mat.Dense) {

	h := mean[3]

	motionCov := diagSquared([]float64{
		kf.stdWeightPosition * h,
		kf.stdWeightPosition * h,
		1e-2,
		kf.stdWeightPosition * h,
		kf.stdWeightVelocity * h,
		kf.stdWeightVelocity * h,
		1e-5,
		kf.stdWeightVelocity * h,
	})

	meanVec := mat.NewVecDense(stateDim, nil)
	meanVec.MulVec(kf.motionMat, mat.NewVecDense(stateDim, mean[:]))

	for i := 0; i < stateDim; i++ {
		mean[i] = meanVec.AtVec(i)
	}

	// F P F^T + Q
	var fp, fpft mat.Dense
	fp.Mul(kf.motionMat, covariance)
	fpft.Mul(&fp, kf.motionMat.T())
	fpft.Add(&fpft, motionCov)

	covariance.Copy(&fpft)
}

// Update runs the correction step with a new measurement
func (kf *KalmanFilter) Update(mean *StateMean, covariance *mat.Dense,
	measurement Xyah) error {

	projectedMean, projectedCov := kf.project(*mean, covariance)

	var chol mat.Cholesky

	if ok := chol.Factorize(projectedCov); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	// P H^T
	var pht mat.Dense
	pht.Mul(covariance, kf.updateMat.T())

	// solve S K^T = (P H^T)^T for the transposed kalman gain (4x8)
	var gainT mat.Dense

	if err := chol.SolveTo(&gainT, pht.T()); err != nil {
		return errors.Wrap(err, "failed to compute kalman gain")
	}

	innovation := mat.NewVecDense(measureDim, nil)

	for i := 0; i < measureDim; i++ {
		innovation.SetVec(i, float64(measurement[i])-projectedMean[i])
	}

	var correction mat.VecDense
	correction.MulVec(gainT.T(), innovation)

	for i := 0; i < stateDim; i++ {
		mean[i] += correction.AtVec(i)
	}

	// P - K S K^T
	var ks, ksk mat.Dense
	ks.Mul(gainT.T(), projectedCov)
	ksk.Mul(&ks, &gainT)

	var newCov mat.Dense
	newCov.Sub(covariance, &ksk)

	covariance.Copy(&newCov)

	return nil
}

// project maps the state distribution into measurement space
func (kf *KalmanFilter) project(mean StateMean,
	covariance *mat.Dense) ([measureDim]float64, *mat.SymDense) {

	h := mean[3]

	std := [measureDim]float64{
		kf.stdWeightPosition * h,
		kf.stdWeightPosition * h,
		1e-1,
		kf.stdWeightPosition * h,
	}

	var projectedMean [measureDim]float64
	copy(projectedMean[:], mean[:measureDim])

	// H P H^T + R
	var hp, hph mat.Dense
	hp.Mul(kf.updateMat, covariance)
	hph.Mul(&hp, kf.updateMat.T())

	projectedCov := mat.NewSymDense(measureDim, nil)

	for i := 0; i < measureDim; i++ {
		for j := i; j < measureDim; j++ {
			v := hph.At(i, j)
			if i == j {
				v += std[i] * std[i]
			}
			projectedCov.SetSym(i, j, v)
		}
	}

	return projectedMean, projectedCov
}

// ToXyah returns the position part of the state as a measurement vector
func (m StateMean) ToXyah() Xyah {
	return Xyah{float32(m[0]), float32(m[1]), float32(m[2]), float32(m[3])}
}

// diagSquared builds a diagonal matrix holding the squares of std
func diagSquared(std []float64) *mat.Dense {

	n := len(std)
	d := mat.NewDense(n, n, nil)

	for i, v := range std {
		d.Set(i, i, v*v)
	}

	return d
}
