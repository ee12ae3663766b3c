package plugin

import (
	"fmt"
	"math"
)

// UntrackedID is the track identifier of an object no tracker has claimed yet.
const UntrackedID int64 = -1

// Keypoint is a single landmark of an object. On the wire it is the triple [x, y, score].
type Keypoint struct {
	X     int
	Y     int
	Score float32
}

// MarshalJSON encodes keypoint as [x, y, score]
func (kp Keypoint) MarshalJSON() ([]byte, error) {
	return codec.Marshal([3]any{kp.X, kp.Y, kp.Score})
}

// UnmarshalJSON decodes keypoint from [x, y, score]
func (kp *Keypoint) UnmarshalJSON(data []byte) error {
	var triple []float64
	if err := codec.Unmarshal(data, &triple); err != nil {
		return fmt.Errorf("keypoint: %w", err)
	}
	if len(triple) != 3 {
		return fmt.Errorf("keypoint: expected [x, y, score], got %d elements", len(triple))
	}
	for _, coord := range triple[:2] {
		if coord != math.Trunc(coord) || math.Abs(coord) > math.MaxInt32 {
			return fmt.Errorf("keypoint: coordinate %v is not an integer", coord)
		}
	}
	kp.X = int(triple[0])
	kp.Y = int(triple[1])
	kp.Score = float32(triple[2])
	return nil
}

// AlgoObject is one detected (and possibly tracked) entity of a single frame.
type AlgoObject struct {
	// Per-frame identifier
	TargetID int `json:"target_id"`
	// Identifier which is stable across frames. UntrackedID when no tracker assigned it yet
	TrackID int64 `json:"track_id"`
	// Category
	Label string `json:"label"`
	// Confidence, [0;1] by convention
	Score float32 `json:"score"`
	// Bounding box as x, y, w, h
	Rect []int `json:"rect"`
	// Landmarks
	Keypoints []Keypoint `json:"keypoints,omitempty"`
	// Recognized text (if any)
	OCRText string `json:"ocr_text,omitempty"`
	// Embedding vector
	Feature []float32 `json:"feature,omitempty"`
	// Raw mask buffer
	Segment []byte `json:"segment,omitempty"`
	// Polygons given as point indices
	Contours [][]int `json:"contours,omitempty"`
}

// UnmarshalJSON decodes object. A missing track_id means UntrackedID
func (obj *AlgoObject) UnmarshalJSON(data []byte) error {
	type plain AlgoObject
	decoded := plain{TrackID: UntrackedID}
	if err := codec.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*obj = AlgoObject(decoded)
	return nil
}

// Bounds returns x, y, width and height of the object's rect.
// ok is false when rect does not follow the 4-integers convention.
func (obj *AlgoObject) Bounds() (x, y, w, h int, ok bool) {
	if len(obj.Rect) != 4 {
		return 0, 0, 0, 0, false
	}
	return obj.Rect[0], obj.Rect[1], obj.Rect[2], obj.Rect[3], true
}

// Area returns w*h of the rect. Malformed or negative sized rects have zero area
func (obj *AlgoObject) Area() int {
	_, _, w, h, ok := obj.Bounds()
	if !ok || w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IsTracked reports whether object carries a meaningful track identifier
func (obj *AlgoObject) IsTracked() bool {
	return obj.TrackID >= 0
}

// Clone returns deep copy of the object. None of the slices are shared with the original.
func (obj *AlgoObject) Clone() AlgoObject {
	cp := *obj
	cp.Rect = cloneSlice(obj.Rect)
	cp.Keypoints = cloneSlice(obj.Keypoints)
	cp.Feature = cloneSlice(obj.Feature)
	cp.Segment = cloneSlice(obj.Segment)
	if obj.Contours != nil {
		cp.Contours = make([][]int, len(obj.Contours))
		for i := range obj.Contours {
			cp.Contours[i] = cloneSlice(obj.Contours[i])
		}
	}
	return cp
}

// CloneObjects deep copies the whole batch. The result is never nil.
func CloneObjects(objects []AlgoObject) []AlgoObject {
	out := make([]AlgoObject, len(objects))
	for i := range objects {
		out[i] = objects[i].Clone()
	}
	return out
}

func cloneSlice[T any](src []T) []T {
	if src == nil {
		return nil
	}
	dst := make([]T, len(src))
	copy(dst, src)
	return dst
}
