package tracking

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CenterBlob smooths object center with 2D Kalman filter. The box size follows the latest measurement.
// It implements Blob[*CenterBlob] interface.
type CenterBlob struct {
	id              uuid.UUID
	currentBBox     Rectangle
	currentCenter   Point
	predictedCenter Point
	noMatchTimes    int
	tracker         *kalman_filter.Kalman2D
}

// NewCenterBlob creates blob for the given detection box with specified time step
func NewCenterBlob(bbox Rectangle, dt float64) *CenterBlob {
	center := bbox.Center()

	/* Kalman filter props */
	ux := 1.0
	uy := 1.0
	stdDevA := 2.0
	stdDevMx := 0.1
	stdDevMy := 0.1
	kf := kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(center.X, center.Y))
	blob := CenterBlob{
		id:              uuid.New(),
		currentBBox:     bbox,
		currentCenter:   center,
		predictedCenter: center,
		tracker:         kf,
	}
	return &blob
}

// GetID returns blob's identifier
func (blob *CenterBlob) GetID() uuid.UUID {
	return blob.id
}

// SetID sets blob's identifier
func (blob *CenterBlob) SetID(newID uuid.UUID) {
	blob.id = newID
}

// GetCenter returns blob's current center
func (blob *CenterBlob) GetCenter() Point {
	return blob.currentCenter
}

// GetBBox returns blob's current bounding box
func (blob *CenterBlob) GetBBox() Rectangle {
	return blob.currentBBox
}

// GetPredictedBBox returns current box moved to the predicted center
func (blob *CenterBlob) GetPredictedBBox() Rectangle {
	return centeredRect(blob.predictedCenter, blob.currentBBox.Width, blob.currentBBox.Height)
}

// GetDiagonal returns diagonal of the current box
func (blob *CenterBlob) GetDiagonal() float64 {
	return blob.currentBBox.Diagonal()
}

// GetNoMatchTimes returns number of consecutive frames without a match
func (blob *CenterBlob) GetNoMatchTimes() int {
	return blob.noMatchTimes
}

// IncNoMatch increases blob's no match times
func (blob *CenterBlob) IncNoMatch() {
	blob.noMatchTimes++
}

// PredictNextPosition executes Kalman filter prediction step
func (blob *CenterBlob) PredictNextPosition() {
	blob.tracker.Predict()
	x, y := blob.tracker.GetState()
	blob.predictedCenter = Point{X: x, Y: y}
}

// Update corrects the filter with measured center and moves the box to the smoothed position
func (blob *CenterBlob) Update(measurement *CenterBlob) error {
	measured := measurement.currentCenter
	err := blob.tracker.Update(measured.X, measured.Y)
	if err != nil {
		return errors.Wrap(err, "Can't update object tracker")
	}
	x, y := blob.tracker.GetState()
	blob.currentCenter = Point{X: x, Y: y}
	blob.currentBBox = centeredRect(blob.currentCenter, measurement.currentBBox.Width, measurement.currentBBox.Height)
	blob.noMatchTimes = 0
	return nil
}
