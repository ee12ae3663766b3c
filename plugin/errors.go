package plugin

import (
	"errors"
	"fmt"
)

var (
	// ErrStageNotImplemented is reported by a plugin which does not take part in a processing stage.
	// It is not a failure of the frame: host should skip the plugin for that stage and keep the batch.
	ErrStageNotImplemented = errors.New("stage not implemented")
	// ErrPropertyNotFound is returned when property name is not registered
	ErrPropertyNotFound = errors.New("property not found")
	// ErrPropertyExists is returned by Bind when name is already taken
	ErrPropertyExists = errors.New("property already registered")
	// ErrPropertyType is returned when value can't be coerced into the bound field's type
	ErrPropertyType = errors.New("property type mismatch")
	// ErrInvalidProperty is returned by Bind for empty names, nil fields and fields with no JSON representation
	ErrInvalidProperty = errors.New("invalid property")
)

// StageError tells which plugin refused which stage
type StageError struct {
	Plugin string
	Stage  Stage
}

func (e *StageError) Error() string {
	return fmt.Sprintf("plugin %q: %s: %s", e.Plugin, e.Stage, ErrStageNotImplemented)
}

// Unwrap makes errors.Is(err, ErrStageNotImplemented) work
func (e *StageError) Unwrap() error {
	return ErrStageNotImplemented
}

// NotImplemented builds StageError for given plugin and stage
func NotImplemented(plugin string, stage Stage) error {
	return &StageError{Plugin: plugin, Stage: stage}
}

// IsStageNotImplemented reports whether err means "this plugin skips this stage"
func IsStageNotImplemented(err error) bool {
	return errors.Is(err, ErrStageNotImplemented)
}

// PropertyError describes rejected property update
type PropertyError struct {
	Property string
	Value    Value
	Err      error
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("property %q: can't apply %s: %v", e.Property, e.Value, e.Err)
}

func (e *PropertyError) Unwrap() error {
	return e.Err
}
