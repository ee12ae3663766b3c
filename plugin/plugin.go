// Package plugin defines the contract of a post-processing stage in a video analytics pipeline:
// a plugin transforms per-frame detection/tracking results and exposes runtime configurable
// properties described as JSON compatible values.
package plugin

import (
	"errors"
	"fmt"
)

// DefaultVersion is the schema version reported by plugins which do not set their own
const DefaultVersion = "v3"

// Stage is one of the processing phases a plugin can take part in
type Stage uint8

const (
	// StageInfer handles raw (untracked) detections of a frame
	StageInfer Stage = iota
	// StageTracked handles detections enriched by tracker
	StageTracked
)

func (stage Stage) String() string {
	switch stage {
	case StageInfer:
		return "infer_result_process"
	case StageTracked:
		return "tracked_result_process"
	default:
		return fmt.Sprintf("stage(%d)", uint8(stage))
	}
}

// Plugin is the contract between pipeline host and a post-processing unit.
//
// Both processing methods get the authoritative batch of a frame and return the batch which
// replaces it downstream. Implementations must not modify the input and must return a slice
// which shares no memory with it. A plugin not taking part in a stage returns an error
// matching ErrStageNotImplemented; an empty result is a valid outcome and means "no objects".
type Plugin interface {
	Name() string
	Definition() Definition
	TrySetProperty(name string, v Value) (bool, error)
	InferResultProcess(objects []AlgoObject) ([]AlgoObject, error)
	TrackedResultProcess(objects []AlgoObject) ([]AlgoObject, error)
}

// Process dispatches objects to the method handling stage
func Process(p Plugin, stage Stage, objects []AlgoObject) ([]AlgoObject, error) {
	switch stage {
	case StageInfer:
		return p.InferResultProcess(objects)
	case StageTracked:
		return p.TrackedResultProcess(objects)
	default:
		return nil, fmt.Errorf("plugin %q: unknown %s", p.Name(), stage)
	}
}

// SetProperties applies several values at once. Unlike TrySetProperty an unknown name is
// an error here (ErrPropertyNotFound). Every name is attempted; failures are joined.
func SetProperties(p Plugin, values map[string]Value) error {
	var errs []error
	for _, name := range sortedKeys(values) {
		ok, err := p.TrySetProperty(name, values[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			errs = append(errs, fmt.Errorf("plugin %q: %w: %q", p.Name(), ErrPropertyNotFound, name))
		}
	}
	return errors.Join(errs...)
}

// Base carries identity and property registry of a plugin. Concrete plugins embed it,
// bind their fields in constructor and override the stages they implement.
type Base struct {
	name        string
	version     string
	description string
	props       *Registry
}

// Option configures Base
type Option func(*Base)

// WithVersion overrides DefaultVersion
func WithVersion(version string) Option {
	return func(base *Base) {
		base.version = version
	}
}

// WithDescription sets free text description
func WithDescription(description string) Option {
	return func(base *Base) {
		base.description = description
	}
}

// NewBase creates plugin base named name. The name is fixed for the lifetime of the plugin
func NewBase(name string, opts ...Option) Base {
	base := Base{
		name:    name,
		version: DefaultVersion,
		props:   NewRegistry(),
	}
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

// Name returns alias of the plugin
func (base *Base) Name() string {
	return base.name
}

// Version returns schema version tag
func (base *Base) Version() string {
	return base.version
}

// Description returns free text description
func (base *Base) Description() string {
	return base.description
}

// Properties returns registry owned by the plugin
func (base *Base) Properties() *Registry {
	return base.props
}

// ListProperties returns name and current value of every registered property
func (base *Base) ListProperties() []PropertyInfo {
	return base.props.ListProperties()
}

// TrySetProperty see Registry.TrySetProperty
func (base *Base) TrySetProperty(name string, v Value) (bool, error) {
	return base.props.TrySetProperty(name, v)
}

// Definition returns identity merged with the current property values
func (base *Base) Definition() Definition {
	return Definition{
		Name:        base.name,
		Version:     base.version,
		Description: base.description,
		Properties:  base.props.ListProperties(),
	}
}

// RLock locks bound fields for reading. Processing methods use it when reading their properties
func (base *Base) RLock() {
	base.props.RLock()
}

// RUnlock undoes a single RLock call
func (base *Base) RUnlock() {
	base.props.RUnlock()
}

// Snapshot calls fn while bound fields are locked for reading
func (base *Base) Snapshot(fn func()) {
	base.props.RLock()
	defer base.props.RUnlock()
	fn()
}

// InferResultProcess is not implemented by default
func (base *Base) InferResultProcess(objects []AlgoObject) ([]AlgoObject, error) {
	return nil, NotImplemented(base.name, StageInfer)
}

// TrackedResultProcess is not implemented by default
func (base *Base) TrackedResultProcess(objects []AlgoObject) ([]AlgoObject, error) {
	return nil, NotImplemented(base.name, StageTracked)
}
