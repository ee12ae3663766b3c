package plugins

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/LdDl/algo-plugin-go/plugin"
	"github.com/LdDl/algo-plugin-go/tracking"
)

const TrackerName = "tracker"

// Tracker assigns track_id to raw detections. Objects with malformed rect get plugin.UntrackedID.
//
// Any property change marks the inner tracker stale; it is rebuilt, with fresh tracks, on the next frame.
type Tracker struct {
	plugin.Base

	algorithm    string
	blob         string
	dt           float64
	maxNoMatch   int
	iouThreshold float64
	minDistance  float64
	highThresh   float64
	lowThresh    float64
	matching     string

	// mu serializes frames. Lock order: mu, then property lock
	mu      sync.Mutex
	tracker tracking.Tracker
	stale   atomic.Bool
	build   func(cfg tracking.Config) (tracking.Tracker, error)
}

func NewTracker() (*Tracker, error) {
	defaults := tracking.DefaultConfig()
	p := &Tracker{
		Base:         plugin.NewBase(TrackerName, plugin.WithDescription("assigns stable track ids to detections")),
		algorithm:    string(defaults.Algorithm),
		blob:         string(defaults.Blob),
		dt:           defaults.DT,
		maxNoMatch:   defaults.MaxNoMatch,
		iouThreshold: defaults.IoUThreshold,
		minDistance:  defaults.MinDistance,
		highThresh:   defaults.HighThresh,
		lowThresh:    defaults.LowThresh,
		matching:     defaults.Matching.String(),
		build:        tracking.New,
	}
	p.stale.Store(true)

	// Runs under property write lock, so the fields can be read directly
	onChange := plugin.WithOnChange(func() error {
		if _, err := p.config(); err != nil {
			return err
		}
		p.stale.Store(true)
		return nil
	})
	props := p.Properties()
	binds := []error{
		plugin.Bind(props, "algorithm", &p.algorithm, "centroid, iou or bytetrack", onChange),
		plugin.Bind(props, "blob", &p.blob, "motion model: center or bbox", onChange),
		plugin.Bind(props, "dt", &p.dt, "time step between frames", onChange),
		plugin.Bind(props, "max_no_match", &p.maxNoMatch, "frames a track may miss before removal", onChange),
		plugin.Bind(props, "iou_threshold", &p.iouThreshold, "minimum match score (iou) or minimum IoU (bytetrack)", onChange),
		plugin.Bind(props, "min_distance", &p.minDistance, "centroid tracker distance gate in pixels", onChange),
		plugin.Bind(props, "high_thresh", &p.highThresh, "bytetrack high confidence threshold", onChange),
		plugin.Bind(props, "low_thresh", &p.lowThresh, "bytetrack low confidence threshold", onChange),
		plugin.Bind(props, "matching", &p.matching, "bytetrack assignment: hungarian or greedy", onChange),
	}
	for _, err := range binds {
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// config reads bound fields. Caller holds property lock
func (p *Tracker) config() (tracking.Config, error) {
	matching, err := tracking.ParseMatchingAlgorithm(p.matching)
	if err != nil {
		return tracking.Config{}, err
	}
	cfg := tracking.Config{
		Algorithm:    tracking.Algorithm(p.algorithm),
		Blob:         tracking.BlobKind(p.blob),
		DT:           p.dt,
		MaxNoMatch:   p.maxNoMatch,
		IoUThreshold: p.iouThreshold,
		MinDistance:  p.minDistance,
		HighThresh:   p.highThresh,
		LowThresh:    p.lowThresh,
		Matching:     matching,
	}
	return cfg, cfg.Validate()
}

// current returns tracker matching current properties, rebuilding it when stale. Caller holds mu
func (p *Tracker) current() (tracking.Tracker, error) {
	// The flag is cleared before properties are read, so a change made during rebuild marks it stale again
	if !p.stale.Swap(false) && p.tracker != nil {
		return p.tracker, nil
	}
	var cfg tracking.Config
	var err error
	p.Snapshot(func() {
		cfg, err = p.config()
	})
	if err != nil {
		p.stale.Store(true)
		return nil, err
	}
	tracker, err := p.build(cfg)
	if err != nil {
		p.stale.Store(true)
		return nil, err
	}
	p.tracker = tracker
	return tracker, nil
}

func (p *Tracker) InferResultProcess(objects []plugin.AlgoObject) ([]plugin.AlgoObject, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tracker, err := p.current()
	if err != nil {
		return nil, fmt.Errorf("plugin %q: %w", p.Name(), err)
	}

	out := plugin.CloneObjects(objects)
	detections := make([]tracking.Detection, 0, len(out))
	positions := make([]int, 0, len(out))
	for i := range out {
		out[i].TrackID = plugin.UntrackedID
		bbox, ok := tracking.RectFromObject(&out[i])
		if !ok {
			continue
		}
		detections = append(detections, tracking.Detection{BBox: bbox, Score: float64(out[i].Score)})
		positions = append(positions, i)
	}
	ids, err := tracker.Track(detections)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: %w", p.Name(), err)
	}
	for j, pos := range positions {
		out[pos].TrackID = ids[j]
	}
	return out, nil
}

// LiveTracks returns number of tracks the inner tracker holds
func (p *Tracker) LiveTracks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tracker == nil {
		return 0
	}
	return p.tracker.Len()
}

// Reset drops every track, ids keep growing
func (p *Tracker) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tracker != nil {
		p.tracker.Reset()
	}
}
