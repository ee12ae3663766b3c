package tracking

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// BoxBlob tracks the whole bounding box with 8-D Kalman filter.
// State vector: [cx, cy, w, h, vx, vy, vw, vh].
// It implements Blob[*BoxBlob] interface.
type BoxBlob struct {
	id            uuid.UUID
	currentBBox   Rectangle
	predictedBBox Rectangle
	noMatchTimes  int
	tracker       *kalman_filter.KalmanBBox
}

// NewBoxBlob creates blob for the given detection box with specified time step
func NewBoxBlob(bbox Rectangle, dt float64) *BoxBlob {
	center := bbox.Center()

	// Kalman filter props
	uCx := 1.0
	uCy := 1.0
	uW := 0.0
	uH := 0.0
	stdDevA := 2.0
	stdDevMCx := 0.1
	stdDevMCy := 0.1
	stdDevMW := 0.1
	stdDevMH := 0.1
	kf := kalman_filter.NewKalmanBBox(
		dt, uCx, uCy, uW, uH,
		stdDevA, stdDevMCx, stdDevMCy, stdDevMW, stdDevMH,
		kalman_filter.WithStateBBox(center.X, center.Y, bbox.Width, bbox.Height),
	)

	blob := BoxBlob{
		id:            uuid.New(),
		currentBBox:   bbox,
		predictedBBox: bbox,
		tracker:       kf,
	}
	return &blob
}

// GetID returns blob's identifier
func (blob *BoxBlob) GetID() uuid.UUID {
	return blob.id
}

// SetID sets blob's identifier
func (blob *BoxBlob) SetID(newID uuid.UUID) {
	blob.id = newID
}

// GetCenter returns center of the current box
func (blob *BoxBlob) GetCenter() Point {
	return blob.currentBBox.Center()
}

// GetBBox returns blob's current bounding box
func (blob *BoxBlob) GetBBox() Rectangle {
	return blob.currentBBox
}

// GetPredictedBBox returns box predicted by Kalman filter
func (blob *BoxBlob) GetPredictedBBox() Rectangle {
	return blob.predictedBBox
}

// GetDiagonal returns diagonal of the current box
func (blob *BoxBlob) GetDiagonal() float64 {
	return blob.currentBBox.Diagonal()
}

// GetNoMatchTimes returns number of consecutive frames without a match
func (blob *BoxBlob) GetNoMatchTimes() int {
	return blob.noMatchTimes
}

// IncNoMatch increases blob's no match times
func (blob *BoxBlob) IncNoMatch() {
	blob.noMatchTimes++
}

// PredictNextPosition executes Kalman filter prediction step
func (blob *BoxBlob) PredictNextPosition() {
	blob.tracker.Predict()
	cx, cy, w, h := blob.tracker.GetState()
	blob.predictedBBox = centeredRect(Point{X: cx, Y: cy}, w, h)
}

// Update corrects the filter with measured box
func (blob *BoxBlob) Update(measurement *BoxBlob) error {
	measured := measurement.currentBBox
	center := measured.Center()
	err := blob.tracker.Update(center.X, center.Y, measured.Width, measured.Height)
	if err != nil {
		return errors.Wrap(err, "Can't update object tracker")
	}
	cx, cy, w, h := blob.tracker.GetState()
	blob.currentBBox = centeredRect(Point{X: cx, Y: cy}, w, h)
	blob.noMatchTimes = 0
	return nil
}
