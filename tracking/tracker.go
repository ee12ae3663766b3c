// Package tracking assigns stable track ids to per-frame detections.
package tracking

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Detection is a single box of a frame with detector confidence
type Detection struct {
	BBox  Rectangle
	Score float64
}

// Tracker associates detections of consecutive frames
type Tracker interface {
	// Track returns track id for every detection, plugin.UntrackedID when detection is not tracked
	Track(detections []Detection) ([]int64, error)
	// Len returns number of live tracks
	Len() int
	// Reset forgets every track
	Reset()
}

// Algorithm names association strategy
type Algorithm string

const (
	AlgorithmCentroid  Algorithm = "centroid"
	AlgorithmIoU       Algorithm = "iou"
	AlgorithmByteTrack Algorithm = "bytetrack"
)

// BlobKind names motion model
type BlobKind string

const (
	// BlobCenter tracks center point only, box size is taken from the last measurement
	BlobCenter BlobKind = "center"
	// BlobBBox tracks center and size of the box
	BlobBBox BlobKind = "bbox"
)

// MatchingAlgorithm is for algorithm type for matching detections to tracks
type MatchingAlgorithm uint16

const (
	// MatchingAlgorithmHungarian uses the Hungarian algorithm (Kuhn-Munkres) for optimal assignment
	MatchingAlgorithmHungarian MatchingAlgorithm = iota
	// MatchingAlgorithmGreedy uses a greedy algorithm for faster but potentially suboptimal assignment
	MatchingAlgorithmGreedy
)

func (algorithm MatchingAlgorithm) String() string {
	switch algorithm {
	case MatchingAlgorithmHungarian:
		return "hungarian"
	case MatchingAlgorithmGreedy:
		return "greedy"
	default:
		return fmt.Sprintf("matching(%d)", uint16(algorithm))
	}
}

// ParseMatchingAlgorithm is case insensitive
func ParseMatchingAlgorithm(s string) (MatchingAlgorithm, error) {
	switch strings.ToLower(s) {
	case "hungarian":
		return MatchingAlgorithmHungarian, nil
	case "greedy":
		return MatchingAlgorithmGreedy, nil
	default:
		return 0, fmt.Errorf("unknown matching algorithm %q", s)
	}
}

// Config holds parameters of every tracker kind. Fields unused by the chosen algorithm are ignored
type Config struct {
	Algorithm Algorithm
	Blob      BlobKind
	// Time step between frames used by Kalman filter
	DT float64
	// Frames a track may miss before removal
	MaxNoMatch int
	// Minimum match score for iou tracker and minimum IoU for bytetrack
	IoUThreshold float64
	// Distance in pixels under which centroid tracker always matches
	MinDistance float64
	HighThresh  float64
	LowThresh   float64
	Matching    MatchingAlgorithm
}

// DefaultConfig returns ByteTrack over box blobs
func DefaultConfig() Config {
	return Config{
		Algorithm:    AlgorithmByteTrack,
		Blob:         BlobBBox,
		DT:           1.0,
		MaxNoMatch:   5,
		IoUThreshold: 0.3,
		MinDistance:  30.0,
		HighThresh:   0.5,
		LowThresh:    0.3,
		Matching:     MatchingAlgorithmHungarian,
	}
}

// Validate checks that config describes a buildable tracker
func (cfg Config) Validate() error {
	switch cfg.Algorithm {
	case AlgorithmCentroid, AlgorithmIoU, AlgorithmByteTrack:
	default:
		return fmt.Errorf("unknown tracking algorithm %q", cfg.Algorithm)
	}
	switch cfg.Blob {
	case BlobCenter, BlobBBox:
	default:
		return fmt.Errorf("unknown blob kind %q", cfg.Blob)
	}
	if cfg.DT <= 0 {
		return fmt.Errorf("dt must be positive, got %v", cfg.DT)
	}
	if cfg.MaxNoMatch < 1 {
		return fmt.Errorf("max_no_match must be at least 1, got %d", cfg.MaxNoMatch)
	}
	if cfg.IoUThreshold < 0 || cfg.IoUThreshold > 1 {
		return fmt.Errorf("iou_threshold must be within [0, 1], got %v", cfg.IoUThreshold)
	}
	if cfg.MinDistance < 0 {
		return fmt.Errorf("min_distance must not be negative, got %v", cfg.MinDistance)
	}
	if cfg.LowThresh > cfg.HighThresh {
		return fmt.Errorf("low_thresh %v is above high_thresh %v", cfg.LowThresh, cfg.HighThresh)
	}
	return nil
}

// New builds tracker described by cfg
func New(cfg Config) (Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid tracker config")
	}
	switch cfg.Blob {
	case BlobCenter:
		return build[*CenterBlob](cfg, NewCenterBlob), nil
	default:
		return build[*BoxBlob](cfg, NewBoxBlob), nil
	}
}

func build[B Blob[B]](cfg Config, newBlob BlobFactory[B]) Tracker {
	switch cfg.Algorithm {
	case AlgorithmCentroid:
		return NewCentroidTracker(newBlob, cfg.DT, cfg.MinDistance, cfg.MaxNoMatch)
	case AlgorithmIoU:
		return NewIoUTracker(newBlob, cfg.DT, cfg.MaxNoMatch, cfg.IoUThreshold)
	default:
		return NewByteTracker(newBlob, cfg.DT, cfg.MaxNoMatch, cfg.IoUThreshold, cfg.HighThresh, cfg.LowThresh, cfg.Matching)
	}
}
