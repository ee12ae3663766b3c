package plugins

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/LdDl/algo-plugin-go/plugin"
	"github.com/LdDl/algo-plugin-go/tracking"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func car(score float32) plugin.AlgoObject {
	return plugin.AlgoObject{TargetID: 1, TrackID: plugin.UntrackedID, Label: "car", Score: score, Rect: []int{0, 0, 10, 10}}
}

func TestCatalogue(t *testing.T) {
	assert.Equal(t, []string{"area_filter", "feature_norm", "label_filter", "passthrough", "score_filter", "tracker"}, Names())
	for _, name := range Names() {
		p, err := New(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
		assert.Equal(t, plugin.DefaultVersion, p.Definition().Version)
	}
	_, err := New("nope")
	assert.Error(t, err)
}

func TestPassthrough_Identical(t *testing.T) {
	p := NewPassthrough()
	in := []plugin.AlgoObject{car(0.9)}
	out, err := p.InferResultProcess(in)
	require.NoError(t, err)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("output differs (-in +out):\n%s", diff)
	}
	out[0].Rect[0] = 5
	assert.Equal(t, 0, in[0].Rect[0], "output must not share memory with input")

	out, err = p.TrackedResultProcess(nil)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestScoreFilter(t *testing.T) {
	p, err := NewScoreFilter()
	require.NoError(t, err)
	out, err := p.InferResultProcess([]plugin.AlgoObject{car(0.9), car(0.3)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, float32(0.9), out[0].Score)

	ok, err := p.TrySetProperty("threshold", plugin.Float(0.9))
	require.NoError(t, err)
	require.True(t, ok)
	out, err = p.TrackedResultProcess([]plugin.AlgoObject{car(0.9), car(0.89)})
	require.NoError(t, err)
	assert.Len(t, out, 1, "threshold is inclusive")

	ok, err = p.TrySetProperty("threshold", plugin.String("high"))
	assert.False(t, ok)
	assert.ErrorIs(t, err, plugin.ErrPropertyType)
	ok, err = p.TrySetProperty("threshold", plugin.Float(math.Inf(1)))
	assert.False(t, ok)
	assert.Error(t, err)
	v, _ := p.Definition().Property("threshold")
	assert.True(t, v.Equal(plugin.Float(0.9)))
}

func TestScoreFilter_Properties(t *testing.T) {
	p, err := NewScoreFilter()
	require.NoError(t, err)
	rapid.Check(t, func(t *rapid.T) {
		threshold := rapid.Float64Range(0, 1).Draw(t, "threshold")
		scores := rapid.SliceOf(rapid.Float32Range(0, 1)).Draw(t, "scores")
		in := make([]plugin.AlgoObject, len(scores))
		for i, s := range scores {
			in[i] = car(s)
			in[i].TargetID = i
		}
		_, err := p.TrySetProperty("threshold", plugin.Float(threshold))
		require.NoError(t, err)
		out, err := p.InferResultProcess(in)
		require.NoError(t, err)
		require.LessOrEqual(t, len(out), len(in))
		prev := -1
		for _, obj := range out {
			require.GreaterOrEqual(t, obj.Score, float32(threshold))
			require.Greater(t, obj.TargetID, prev, "order is kept")
			prev = obj.TargetID
		}
		kept := 0
		for _, obj := range in {
			if obj.Score >= float32(threshold) {
				kept++
			}
		}
		require.Equal(t, kept, len(out))
	})
}

func TestAreaFilter(t *testing.T) {
	p, err := NewAreaFilter()
	require.NoError(t, err)
	small := car(0.9)
	small.Rect = []int{0, 0, 2, 2}
	broken := car(0.9)
	broken.Rect = []int{1}

	out, err := p.InferResultProcess([]plugin.AlgoObject{car(0.9), small, broken})
	require.NoError(t, err)
	assert.Len(t, out, 3, "min_area 0 keeps everything")

	ok, err := p.TrySetProperty("min_area", plugin.Int(50))
	require.NoError(t, err)
	require.True(t, ok)
	out, err = p.InferResultProcess([]plugin.AlgoObject{car(0.9), small, broken})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []int{0, 0, 10, 10}, out[0].Rect)

	_, err = p.TrackedResultProcess(out)
	assert.True(t, plugin.IsStageNotImplemented(err))
}

func TestLabelFilter(t *testing.T) {
	p, err := NewLabelFilter()
	require.NoError(t, err)
	bus := car(0.8)
	bus.Label = "Bus"
	person := car(0.7)
	person.Label = "person"
	in := []plugin.AlgoObject{car(0.9), bus, person}

	out, err := p.InferResultProcess(in)
	require.NoError(t, err)
	assert.Len(t, out, 3, "empty labels keep every object")

	require.NoError(t, plugin.SetProperties(p, map[string]plugin.Value{
		"labels":  plugin.Array(plugin.String("car"), plugin.String("bus")),
		"relabel": plugin.Object(map[string]plugin.Value{"BUS": plugin.String("vehicle")}),
	}))
	out, err = p.TrackedResultProcess(in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "car", out[0].Label)
	assert.Equal(t, "vehicle", out[1].Label)
	assert.Equal(t, "Bus", in[1].Label, "input is untouched")

	ok, err := p.TrySetProperty("case_sensitive", plugin.Bool(true))
	require.NoError(t, err)
	require.True(t, ok)
	out, err = p.InferResultProcess(in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "car", out[0].Label)
}

func TestFeatureNorm(t *testing.T) {
	p, err := NewFeatureNorm()
	require.NoError(t, err)
	withFeature := car(0.9)
	withFeature.Feature = []float32{3, 4}
	zero := car(0.9)
	zero.Feature = []float32{0, 0}
	in := []plugin.AlgoObject{withFeature, zero, car(0.5)}

	out, err := p.InferResultProcess(in)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, out[0].Feature, 1e-6)
	assert.Equal(t, []float32{0, 0}, out[1].Feature)
	assert.Nil(t, out[2].Feature)
	assert.Equal(t, []float32{3, 4}, in[0].Feature)

	ok, err := p.TrySetProperty("enabled", plugin.Bool(false))
	require.NoError(t, err)
	require.True(t, ok)
	out, err = p.TrackedResultProcess(in)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, out[0].Feature)

	ok, err = p.TrySetProperty("epsilon", plugin.Float(-1))
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestFeatureNorm_UnitLength(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		feature := rapid.SliceOfN(rapid.Float32Range(-100, 100), 1, 64).Draw(t, "feature")
		normalized := append([]float32(nil), feature...)
		normalizeFeature(normalized, 1e-6)
		var in, out float64
		for i := range feature {
			in += float64(feature[i]) * float64(feature[i])
			out += float64(normalized[i]) * float64(normalized[i])
		}
		if math.Sqrt(in) < 1e-6 {
			return
		}
		if math.Abs(math.Sqrt(out)-1) > 1e-4 {
			t.Fatalf("norm of %v is %v", normalized, math.Sqrt(out))
		}
	})
}

func frame(shift int) []plugin.AlgoObject {
	a := car(0.9)
	a.TargetID = 0
	a.Rect = []int{100 + shift, 100, 80, 120}
	b := car(0.8)
	b.TargetID = 1
	b.Rect = []int{400 + shift, 300, 60, 60}
	broken := car(0.9)
	broken.TargetID = 2
	broken.Rect = []int{1, 2}
	return []plugin.AlgoObject{a, b, broken}
}

func TestTracker_StableIDs(t *testing.T) {
	p, err := NewTracker()
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		in := frame(i * 2)
		out, err := p.InferResultProcess(in)
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, []int64{1, 2, plugin.UntrackedID}, []int64{out[0].TrackID, out[1].TrackID, out[2].TrackID}, "frame %d", i)
		assert.Equal(t, plugin.UntrackedID, in[0].TrackID, "input is untouched")
	}
	assert.Equal(t, 2, p.LiveTracks())

	_, err = p.TrackedResultProcess(nil)
	assert.True(t, plugin.IsStageNotImplemented(err))

	p.Reset()
	assert.Equal(t, 0, p.LiveTracks())
}

func TestTracker_PropertyChangeRebuilds(t *testing.T) {
	p, err := NewTracker()
	require.NoError(t, err)
	_, err = p.InferResultProcess(frame(0))
	require.NoError(t, err)
	require.Equal(t, 2, p.LiveTracks())

	ok, err := p.TrySetProperty("algorithm", plugin.String("centroid"))
	require.NoError(t, err)
	require.True(t, ok)
	out, err := p.InferResultProcess(frame(0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), out[0].TrackID, "rebuilt tracker starts over")
	assert.Equal(t, 2, p.LiveTracks())

	ok, err = p.TrySetProperty("algorithm", plugin.String("sort"))
	assert.False(t, ok)
	require.Error(t, err)
	var propErr *plugin.PropertyError
	assert.ErrorAs(t, err, &propErr)
	v, _ := p.Definition().Property("algorithm")
	assert.True(t, v.Equal(plugin.String("centroid")), "rejected value is rolled back")

	ok, err = p.TrySetProperty("low_thresh", plugin.Float(0.99))
	assert.False(t, ok)
	assert.Error(t, err, "low_thresh above high_thresh")

	ok, err = p.TrySetProperty("matching", plugin.String("greedy"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTracker_ChangeDuringRebuild(t *testing.T) {
	p, err := NewTracker()
	require.NoError(t, err)
	built := make([]tracking.Algorithm, 0)
	changed := false
	p.build = func(cfg tracking.Config) (tracking.Tracker, error) {
		built = append(built, cfg.Algorithm)
		if !changed {
			// Property update arriving after the config was read but before the tracker is installed
			changed = true
			ok, err := p.TrySetProperty("algorithm", plugin.String("iou"))
			require.NoError(t, err)
			require.True(t, ok)
		}
		return tracking.New(cfg)
	}

	_, err = p.InferResultProcess(frame(0))
	require.NoError(t, err)
	_, err = p.InferResultProcess(frame(2))
	require.NoError(t, err)
	_, err = p.InferResultProcess(frame(4))
	require.NoError(t, err)
	assert.Equal(t, []tracking.Algorithm{tracking.AlgorithmByteTrack, tracking.AlgorithmIoU}, built,
		"change made during rebuild must trigger one more rebuild and no more")
}

func TestTracker_RebuildFailureRetries(t *testing.T) {
	p, err := NewTracker()
	require.NoError(t, err)
	attempts := 0
	p.build = func(cfg tracking.Config) (tracking.Tracker, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("no memory")
		}
		return tracking.New(cfg)
	}
	_, err = p.InferResultProcess(frame(0))
	assert.Error(t, err)
	out, err := p.InferResultProcess(frame(0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), out[0].TrackID)
	assert.Equal(t, 2, attempts)
}

func TestTracker_ConcurrentUse(t *testing.T) {
	p, err := NewTracker()
	require.NoError(t, err)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, _ = p.TrySetProperty("max_no_match", plugin.Int(int64(5+i%3)))
			_ = p.Definition()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := p.InferResultProcess(frame(i))
			assert.NoError(t, err)
		}
	}()
	wg.Wait()
}
