package plugin

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// PropertyEntry is one configurable setting of a plugin.
// Entries are owned by Registry and refer to fields of the plugin which owns that registry,
// so they never outlive the fields they are bound to.
type PropertyEntry struct {
	Name        string
	Description string
	// Last known representation of the field. Set at bind time and after every successful update
	LocalValue Value

	access   accessor
	onChange func() error
}

// PropertyInfo is a read-only view of a property
type PropertyInfo struct {
	Name        string
	Description string
	Value       Value
}

// accessor is a type-erased getter/setter pair for a bound field
type accessor interface {
	load() (Value, error)
	// store assigns decoded value and returns function which restores the previous one
	store(v Value) (func(), error)
}

type fieldAccessor[T any] struct {
	field    *T
	validate func(T) error
}

func (acc *fieldAccessor[T]) load() (Value, error) {
	return ValueOf(*acc.field)
}

func (acc *fieldAccessor[T]) store(v Value) (func(), error) {
	decoded, err := decodeValue[T](v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPropertyType, err)
	}
	if acc.validate != nil {
		if err := acc.validate(decoded); err != nil {
			return nil, err
		}
	}
	prev := *acc.field
	*acc.field = decoded
	return func() { *acc.field = prev }, nil
}

// decodeValue coerces v into T. Numbers convert between integer and float kinds (floats into
// integers truncate), strings never become numbers, objects fill structs by their json tags.
func decodeValue[T any](v Value) (T, error) {
	var out T
	if v.IsNull() {
		switch reflect.TypeOf(&out).Elem().Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
			return out, nil
		default:
			return out, fmt.Errorf("null can't be assigned to %T", out)
		}
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &out,
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.DecodeHookFuncType(bytesFromBase64Hook),
			mapstructure.DecodeHookFuncType(numberRangeHook),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(v.Interface()); err != nil {
		return out, err
	}
	return out, nil
}

var bytesType = reflect.TypeOf([]byte(nil))

// numberRangeHook rejects numbers which do not fit the target kind instead of letting them wrap.
// Floats going into integer fields are truncated first and must be finite.
// Unsigned targets are limited to int64 range, so the stored value can be reported back as Int.
func numberRangeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	var (
		i       int64
		f       float64
		isFloat bool
	)
	switch t := data.(type) {
	case int64:
		i = t
	case float64:
		f = t
		isFloat = true
	default:
		return data, nil
	}
	target := reflect.New(to).Elem()
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if isFloat {
			// -2^63 <= f < 2^63 is exactly the range int64 conversion handles
			if math.IsNaN(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
				return nil, fmt.Errorf("%v does not fit %s", f, to)
			}
			i = int64(math.Trunc(f))
		}
		if isUnsigned(to.Kind()) {
			if i < 0 || target.OverflowUint(uint64(i)) {
				return nil, fmt.Errorf("%d does not fit %s", i, to)
			}
			return uint64(i), nil
		}
		if target.OverflowInt(i) {
			return nil, fmt.Errorf("%d does not fit %s", i, to)
		}
		return i, nil
	case reflect.Float32:
		if isFloat && target.OverflowFloat(f) {
			return nil, fmt.Errorf("%v does not fit %s", f, to)
		}
	}
	return data, nil
}

// bytesFromBase64Hook mirrors encoding of []byte fields, which the JSON codec writes as base64 text
func bytesFromBase64Hook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != bytesType {
		return data, nil
	}
	return base64.StdEncoding.DecodeString(reflect.ValueOf(data).String())
}

// BindOption customizes a property registered by Bind
type BindOption func(*bindOptions)

type bindOptions struct {
	onChange  func() error
	validator any
}

// WithOnChange registers side effect which runs after the field is assigned.
// Returning an error restores the previous field value and fails the update.
// The hook runs while the registry is locked, so it must not call back into the registry.
func WithOnChange(fn func() error) BindOption {
	return func(opts *bindOptions) {
		opts.onChange = fn
	}
}

// WithValidator rejects decoded values before they reach the field.
// T must match the type of the bound field.
func WithValidator[T any](fn func(T) error) BindOption {
	return func(opts *bindOptions) {
		opts.validator = fn
	}
}

// Registry maps property names to typed accessors of plugin fields.
// Bound fields are guarded by registry's lock: setters and getters run under it and
// processing code should read the fields under RLock.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*PropertyEntry
	order   []string
}

// NewRegistry creates empty registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*PropertyEntry),
	}
}

// Bind registers field under name. Reusing a name fails with ErrPropertyExists.
func Bind[T any](r *Registry, name string, field *T, description string, opts ...BindOption) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidProperty)
	}
	if field == nil {
		return fmt.Errorf("%w: %q: nil field", ErrInvalidProperty, name)
	}
	options := bindOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	acc := &fieldAccessor[T]{field: field}
	if options.validator != nil {
		validate, ok := options.validator.(func(T) error)
		if !ok {
			return fmt.Errorf("%w: %q: validator %T does not accept %T", ErrInvalidProperty, name, options.validator, *field)
		}
		acc.validate = validate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %q", ErrPropertyExists, name)
	}
	initial, err := acc.load()
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidProperty, name, err)
	}
	r.entries[name] = &PropertyEntry{
		Name:        name,
		Description: description,
		LocalValue:  initial,
		access:      acc,
		onChange:    options.onChange,
	}
	r.order = append(r.order, name)
	return nil
}

// TrySetProperty applies v to the property called name.
//
// Unknown name gives (false, nil) and changes nothing. A value which can't be coerced into the
// field's type gives (false, *PropertyError) wrapping ErrPropertyType; the field keeps its value.
func (r *Registry) TrySetProperty(name string, v Value) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[name]
	if !ok {
		return false, nil
	}
	restore, err := entry.access.store(v)
	if err != nil {
		return false, &PropertyError{Property: name, Value: v, Err: err}
	}
	if entry.onChange != nil {
		if err := entry.onChange(); err != nil {
			restore()
			return false, &PropertyError{Property: name, Value: v, Err: err}
		}
	}
	current, err := entry.access.load()
	if err != nil {
		restore()
		return false, &PropertyError{Property: name, Value: v, Err: fmt.Errorf("%w: %v", ErrPropertyType, err)}
	}
	entry.LocalValue = current
	return true, nil
}

// ListProperties returns every property with its current value, in registration order
func (r *Registry) ListProperties() []PropertyInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]PropertyInfo, 0, len(r.order))
	for _, name := range r.order {
		entry := r.entries[name]
		infos = append(infos, PropertyInfo{
			Name:        name,
			Description: entry.Description,
			Value:       entry.current(),
		})
	}
	return infos
}

// Property returns current value of a single property
func (r *Registry) Property(name string) (Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return Value{}, false
	}
	return entry.current(), true
}

// Entry returns copy of the entry registered under name
func (r *Registry) Entry(name string) (PropertyEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return PropertyEntry{}, false
	}
	return *entry, true
}

// Names returns registered names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns number of registered properties
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// RLock locks bound fields for reading
func (r *Registry) RLock() {
	r.mu.RLock()
}

// RUnlock undoes a single RLock call
func (r *Registry) RUnlock() {
	r.mu.RUnlock()
}

// current reads field back. LocalValue is the fallback when the field can't be encoded anymore
func (entry *PropertyEntry) current() Value {
	v, err := entry.access.load()
	if err != nil {
		return entry.LocalValue
	}
	return v
}

func isUnsigned(kind reflect.Kind) bool {
	switch kind {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	default:
		return false
	}
}
