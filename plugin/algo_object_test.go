package plugin

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleObject() AlgoObject {
	return AlgoObject{
		TargetID:  1,
		TrackID:   UntrackedID,
		Label:     "car",
		Score:     0.9,
		Rect:      []int{0, 0, 10, 10},
		Keypoints: []Keypoint{{X: 1, Y: 2, Score: 0.5}, {X: 3, Y: 4, Score: 0.25}},
		OCRText:   "AB123",
		Feature:   []float32{0.1, 0.2},
		Segment:   []byte{0, 1, 1, 0},
		Contours:  [][]int{{0, 1, 2}, {3, 4}},
	}
}

func TestAlgoObject_JSON(t *testing.T) {
	obj := sampleObject()
	data, err := codec.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"target_id": 1,
		"track_id": -1,
		"label": "car",
		"score": 0.9,
		"rect": [0, 0, 10, 10],
		"keypoints": [[1, 2, 0.5], [3, 4, 0.25]],
		"ocr_text": "AB123",
		"feature": [0.1, 0.2],
		"segment": "AAEBAA==",
		"contours": [[0, 1, 2], [3, 4]]
	}`, string(data))

	var back AlgoObject
	require.NoError(t, codec.Unmarshal(data, &back))
	if diff := cmp.Diff(obj, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestAlgoObject_MinimalJSON(t *testing.T) {
	objects, err := UnmarshalObjects([]byte(`[{"target_id":1,"label":"car","score":0.9,"rect":[0,0,10,10],"track_id":-1}]`))
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, AlgoObject{TargetID: 1, TrackID: -1, Label: "car", Score: 0.9, Rect: []int{0, 0, 10, 10}}, objects[0])

	objects, err = UnmarshalObjects([]byte(`[{"target_id":2,"label":"bus","score":0.5,"rect":[1,1,2,2]},{"target_id":3,"track_id":0}]`))
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, UntrackedID, objects[0].TrackID, "missing track_id means untracked")
	assert.False(t, objects[0].IsTracked())
	assert.Equal(t, int64(0), objects[1].TrackID, "explicit zero is a real track id")

	data, err := MarshalObjects(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestKeypoint_BadJSON(t *testing.T) {
	var kp Keypoint
	assert.Error(t, kp.UnmarshalJSON([]byte(`[1, 2]`)))
	assert.Error(t, kp.UnmarshalJSON([]byte(`{"x": 1}`)))
	assert.Error(t, kp.UnmarshalJSON([]byte(`[1.7, 2, 0.9]`)))
	assert.Error(t, kp.UnmarshalJSON([]byte(`[1, 2.5, 0.9]`)))
	assert.Error(t, kp.UnmarshalJSON([]byte(`[1e20, 2, 0.9]`)))

	require.NoError(t, kp.UnmarshalJSON([]byte(`[3.0, -4, 0.5]`)))
	assert.Equal(t, Keypoint{X: 3, Y: -4, Score: 0.5}, kp)
}

func TestAlgoObject_CloneIsIndependent(t *testing.T) {
	objects := []AlgoObject{sampleObject(), {TargetID: 2, TrackID: 7}}
	clones := CloneObjects(objects)
	if diff := cmp.Diff(objects, clones); diff != "" {
		t.Fatalf("clone differs (-want +got):\n%s", diff)
	}

	clones[0].Rect[0] = 100
	clones[0].Keypoints[0].X = 100
	clones[0].Feature[0] = 100
	clones[0].Segment[0] = 100
	clones[0].Contours[0][0] = 100
	clones[1].Label = "changed"

	assert.Equal(t, sampleObject(), objects[0])
	assert.Equal(t, "", objects[1].Label)
	assert.Nil(t, clones[1].Rect, "nil slices stay nil")

	assert.NotNil(t, CloneObjects(nil))
	assert.Len(t, CloneObjects(nil), 0)
}

func TestAlgoObject_Geometry(t *testing.T) {
	obj := sampleObject()
	x, y, w, h, ok := obj.Bounds()
	assert.True(t, ok)
	assert.Equal(t, []int{0, 0, 10, 10}, []int{x, y, w, h})
	assert.Equal(t, 100, obj.Area())
	assert.False(t, obj.IsTracked())

	bad := AlgoObject{Rect: []int{1, 2, 3}, TrackID: 0}
	_, _, _, _, ok = bad.Bounds()
	assert.False(t, ok)
	assert.Equal(t, 0, bad.Area())
	assert.True(t, bad.IsTracked())

	negative := AlgoObject{Rect: []int{0, 0, -5, 5}}
	assert.Equal(t, 0, negative.Area())
}
