package tracking

import (
	"sort"

	"github.com/arthurkushman/go-hungarian"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ByteTracker is implementation of Multi-object tracker (MOT) called ByteTrack.
// High confidence detections are associated first, then remaining tracks try low confidence ones.
type ByteTracker[B Blob[B]] struct {
	newBlob BlobFactory[B]
	dt      float64
	// Maximum number of frames an object can be missing before it is removed
	maxDisappeared int
	// Minimum IoU between predicted track box and detection
	minIoU float64
	// High detection confidence threshold
	highThresh float64
	// Low detection confidence threshold
	lowThresh float64
	// Algorithm to use for matching
	algorithm MatchingAlgorithm
	store     *trackStore[B]
}

// DefaultByteTracker creates a ByteTracker with default parameters.
func DefaultByteTracker[B Blob[B]](newBlob BlobFactory[B]) *ByteTracker[B] {
	return NewByteTracker(newBlob, 1.0, 5, 0.3, 0.5, 0.3, MatchingAlgorithmHungarian)
}

// NewByteTracker creates a new instance of ByteTracker with specified parameters.
func NewByteTracker[B Blob[B]](newBlob BlobFactory[B], dt float64, maxDisappeared int, minIoU, highThresh, lowThresh float64, algorithm MatchingAlgorithm) *ByteTracker[B] {
	return &ByteTracker[B]{
		newBlob:        newBlob,
		dt:             dt,
		maxDisappeared: maxDisappeared,
		minIoU:         minIoU,
		highThresh:     highThresh,
		lowThresh:      lowThresh,
		algorithm:      algorithm,
		store:          newTrackStore[B](),
	}
}

// Track associates detections in two stages. Detections below lowThresh are never tracked,
// unmatched low confidence detections get UntrackedID.
func (bt *ByteTracker[B]) Track(detections []Detection) ([]int64, error) {
	bt.store.predict()

	active := make([]uuid.UUID, 0, len(bt.store.objects))
	for _, id := range bt.store.ordered() {
		if bt.store.objects[id].GetNoMatchTimes() < bt.maxDisappeared {
			active = append(active, id)
		}
	}

	blobs := make([]B, len(detections))
	highIndices := make([]int, 0, len(detections))
	lowIndices := make([]int, 0)
	for i := range detections {
		blobs[i] = bt.newBlob(detections[i].BBox, bt.dt)
		switch {
		case detections[i].Score >= bt.highThresh:
			highIndices = append(highIndices, i)
		case detections[i].Score >= bt.lowThresh:
			lowIndices = append(lowIndices, i)
		}
	}

	matchedTracks := make(map[uuid.UUID]struct{})
	matchedDetections := make(map[int]struct{})

	// 1. First stage: high confidence detections against every active track
	err := bt.associate(active, highIndices, blobs, matchedTracks, matchedDetections)
	if err != nil {
		return nil, errors.Wrap(err, "Stage 1")
	}

	// 2. Second stage: low confidence detections against tracks left after stage 1
	remaining := make([]uuid.UUID, 0, len(active))
	for _, id := range active {
		if _, found := matchedTracks[id]; !found {
			remaining = append(remaining, id)
		}
	}
	err = bt.associate(remaining, lowIndices, blobs, matchedTracks, matchedDetections)
	if err != nil {
		return nil, errors.Wrap(err, "Stage 2")
	}

	// 3. Age unmatched tracks and drop the ones missing for too long
	bt.store.age(matchedTracks, func(track B) bool {
		return track.GetNoMatchTimes() < bt.maxDisappeared
	})

	// 4. Unmatched high confidence detections start new tracks
	for _, detIdx := range highIndices {
		if _, found := matchedDetections[detIdx]; !found {
			bt.store.register(blobs[detIdx])
		}
	}
	return bt.store.resolve(blobs), nil
}

// associate matches tracks with detection subset and updates matched tracks
func (bt *ByteTracker[B]) associate(trackIDs []uuid.UUID, detectionIndices []int, blobs []B, matchedTracks map[uuid.UUID]struct{}, matchedDetections map[int]struct{}) error {
	if len(trackIDs) == 0 || len(detectionIndices) == 0 {
		return nil
	}
	iouMatrix := make([][]float64, len(trackIDs))
	for i, trackID := range trackIDs {
		predicted := bt.store.objects[trackID].GetPredictedBBox()
		row := make([]float64, len(detectionIndices))
		for j, detIdx := range detectionIndices {
			row[j] = IoU(predicted, blobs[detIdx].GetBBox())
		}
		iouMatrix[i] = row
	}

	var matches [][2]int
	switch bt.algorithm {
	case MatchingAlgorithmHungarian:
		matches = hungarianMatching(iouMatrix)
	default:
		matches = bt.greedyMatching(iouMatrix)
	}

	for _, match := range matches {
		iouVal := iouMatrix[match[0]][match[1]]
		if iouVal <= 0 || iouVal < bt.minIoU {
			continue
		}
		trackID := trackIDs[match[0]]
		detIdx := detectionIndices[match[1]]
		detection := blobs[detIdx]
		err := bt.store.objects[trackID].Update(detection)
		if err != nil {
			return errors.Wrapf(err, "Failed to update track %s", trackID)
		}
		detection.SetID(trackID)
		matchedTracks[trackID] = struct{}{}
		matchedDetections[detIdx] = struct{}{}
	}
	return nil
}

// hungarianMatching solves maximum IoU assignment. Rectangular matrices are padded with zeros.
// Returns pairs {trackIndex, detectionIndex} sorted by track index.
func hungarianMatching(iouMatrix [][]float64) [][2]int {
	numTracks := len(iouMatrix)
	numDetections := len(iouMatrix[0])
	size := max(numTracks, numDetections)
	padded := make([][]float64, size)
	for i := range padded {
		padded[i] = make([]float64, size)
		if i < numTracks {
			copy(padded[i], iouMatrix[i])
		}
	}
	assignments := hungarian.SolveMax(padded)
	matches := make([][2]int, 0, len(assignments))
	for trackIdx, row := range assignments {
		for detIdx := range row {
			if trackIdx < numTracks && detIdx < numDetections {
				matches = append(matches, [2]int{trackIdx, detIdx})
			}
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i][0] < matches[j][0]
	})
	return matches
}

// greedyMatching takes for every track in order the best free detection
func (bt *ByteTracker[B]) greedyMatching(iouMatrix [][]float64) [][2]int {
	matches := make([][2]int, 0)
	taken := make(map[int]struct{})
	for i, row := range iouMatrix {
		bestIoU := -1.0
		bestIdx := -1
		for j, iouVal := range row {
			if _, found := taken[j]; found {
				continue
			}
			if iouVal > bestIoU && iouVal >= bt.minIoU {
				bestIoU = iouVal
				bestIdx = j
			}
		}
		if bestIdx != -1 {
			matches = append(matches, [2]int{i, bestIdx})
			taken[bestIdx] = struct{}{}
		}
	}
	return matches
}

// Len returns number of live tracks
func (bt *ByteTracker[B]) Len() int {
	return len(bt.store.objects)
}

// Reset forgets every track. Track ids keep growing after reset
func (bt *ByteTracker[B]) Reset() {
	bt.store.reset()
}
