package tracking

import (
	"container/heap"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CentroidTracker is naive distance based implementation of Multi-object tracker (MOT).
// B is the blob type implementing Blob[B] interface.
type CentroidTracker[B Blob[B]] struct {
	newBlob BlobFactory[B]
	dt      float64
	// Threshold distance (most of time in pixels). Default 30.0
	minDistThreshold float64
	// Max no match (max number of frames when object could not be found again). Default is 75
	maxNoMatch int
	store      *trackStore[B]
}

// NewCentroidTracker creates new instance of CentroidTracker
func NewCentroidTracker[B Blob[B]](newBlob BlobFactory[B], dt, minDistThreshold float64, maxNoMatch int) *CentroidTracker[B] {
	return &CentroidTracker[B]{
		newBlob:          newBlob,
		dt:               dt,
		minDistThreshold: minDistThreshold,
		maxNoMatch:       maxNoMatch,
		store:            newTrackStore[B](),
	}
}

// Track matches detections of a frame to existing tracks by center distance
func (tracker *CentroidTracker[B]) Track(detections []Detection) ([]int64, error) {
	tracker.store.predict()
	existing := tracker.store.ordered()

	blobs := make([]B, len(detections))
	queue := &candidateQueue{}
	for i := range detections {
		blob := tracker.newBlob(detections[i].BBox, tracker.dt)
		blobs[i] = blob
		best := &candidate{detection: i, score: math.MaxFloat64}
		for _, objectID := range existing {
			object := tracker.store.objects[objectID]
			dist := euclideanDistance(blob.GetCenter(), object.GetCenter())
			distPredicted := euclideanDistance(blob.GetCenter(), object.GetPredictedBBox().Center())
			if d := math.Min(dist, distPredicted); d < best.score {
				best.score = d
				best.track = objectID
				best.hasTrack = true
			}
		}
		heap.Push(queue, best)
	}

	// Closest pairs go first, so every track is updated by its nearest detection only
	matched := make(map[uuid.UUID]struct{})
	fresh := make([]int, 0)
	for queue.Len() > 0 {
		item := heap.Pop(queue).(*candidate)
		blob := blobs[item.detection]
		if !item.hasTrack {
			fresh = append(fresh, item.detection)
			continue
		}
		if _, reserved := matched[item.track]; reserved {
			fresh = append(fresh, item.detection)
			continue
		}
		if item.score < blob.GetDiagonal()*0.5 || item.score < tracker.minDistThreshold {
			err := tracker.store.objects[item.track].Update(blob)
			if err != nil {
				return nil, errors.Wrapf(err, "Can't update blob with id %s", item.track.String())
			}
			blob.SetID(item.track)
			matched[item.track] = struct{}{}
		} else {
			fresh = append(fresh, item.detection)
		}
	}

	tracker.store.age(matched, func(object B) bool {
		return object.GetNoMatchTimes() <= tracker.maxNoMatch
	})
	sort.Ints(fresh)
	for _, idx := range fresh {
		tracker.store.register(blobs[idx])
	}
	return tracker.store.resolve(blobs), nil
}

// Len returns number of live tracks
func (tracker *CentroidTracker[B]) Len() int {
	return len(tracker.store.objects)
}

// Reset forgets every track. Track ids keep growing after reset
func (tracker *CentroidTracker[B]) Reset() {
	tracker.store.reset()
}
