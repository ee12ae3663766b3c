package tracking

import "github.com/google/uuid"

// Blob is a single tracked object with its motion model.
// Self is the concrete type implementing this interface (e.g., *BoxBlob),
// so trackers can pass measurements of the same kind into Update.
type Blob[Self any] interface {
	// Identity
	GetID() uuid.UUID
	SetID(newID uuid.UUID)

	// Geometry
	GetCenter() Point
	GetBBox() Rectangle
	GetPredictedBBox() Rectangle
	GetDiagonal() float64

	// Match tracking
	GetNoMatchTimes() int
	IncNoMatch()

	// Kalman operations
	PredictNextPosition()
	Update(measurement Self) error
}

// BlobFactory turns detection box into a fresh blob. dt is the time step between frames
type BlobFactory[B Blob[B]] func(bbox Rectangle, dt float64) B
