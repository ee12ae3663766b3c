package tracking

import (
	"container/heap"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// IoUTracker is a naive implementation of Multi-object tracker (MOT) with IoU matching.
// Uses hybrid IoU + distance score for better recovery when IoU is zero.
type IoUTracker[B Blob[B]] struct {
	newBlob BlobFactory[B]
	dt      float64
	// Max no match (max number of frames when object could not be found again)
	maxNoMatch int
	// Minimum combined score for matching
	iouThreshold float64
	store        *trackStore[B]
}

// NewIoUTracker creates a new instance of IoUTracker with specified parameters.
func NewIoUTracker[B Blob[B]](newBlob BlobFactory[B], dt float64, maxNoMatch int, iouThreshold float64) *IoUTracker[B] {
	return &IoUTracker[B]{
		newBlob:      newBlob,
		dt:           dt,
		maxNoMatch:   maxNoMatch,
		iouThreshold: iouThreshold,
		store:        newTrackStore[B](),
	}
}

// matchScore combines IoU with predicted box and center distance into [0, 1] similarity.
// IoU dominates when boxes overlap, pure distance gets lower weight.
func matchScore(detection, predicted Rectangle) float64 {
	iouValue := IoU(detection, predicted)
	distance := euclideanDistance(predicted.Center(), detection.Center())
	distanceScore := 1.0 / (1.0 + distance*0.01)
	if iouValue > 0.05 {
		return iouValue*0.8 + distanceScore*0.2
	}
	return distanceScore * 0.5
}

// Track matches detections of a frame to existing tracks
func (tracker *IoUTracker[B]) Track(detections []Detection) ([]int64, error) {
	tracker.store.predict()
	existing := tracker.store.ordered()

	blobs := make([]B, len(detections))
	queue := &candidateQueue{maxFirst: true}
	for i := range detections {
		blob := tracker.newBlob(detections[i].BBox, tracker.dt)
		blobs[i] = blob
		best := &candidate{detection: i}
		for _, objectID := range existing {
			score := matchScore(blob.GetBBox(), tracker.store.objects[objectID].GetPredictedBBox())
			if score > best.score {
				best.score = score
				best.track = objectID
				best.hasTrack = true
			}
		}
		heap.Push(queue, best)
	}

	// Process matches from highest score to lowest
	matched := make(map[uuid.UUID]struct{})
	fresh := make([]int, 0)
	for queue.Len() > 0 {
		item := heap.Pop(queue).(*candidate)
		blob := blobs[item.detection]
		if !item.hasTrack || item.score <= tracker.iouThreshold {
			fresh = append(fresh, item.detection)
			continue
		}
		if _, reserved := matched[item.track]; reserved {
			fresh = append(fresh, item.detection)
			continue
		}
		err := tracker.store.objects[item.track].Update(blob)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't update blob with id %s", item.track.String())
		}
		blob.SetID(item.track)
		matched[item.track] = struct{}{}
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
func (tracker *IoUTracker[B]) Len() int {
	return len(tracker.store.objects)
}

// Reset forgets every track. Track ids keep growing after reset
func (tracker *IoUTracker[B]) Reset() {
	tracker.store.reset()
}
