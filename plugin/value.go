package plugin

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Kind is the variant of a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is JSON-compatible configuration value: null, bool, int, float, string, array or object.
//
// Internally it holds one of nil, bool, int64, float64, string, []any and map[string]any
// where nested elements follow the same rules. The zero Value is null.
type Value struct {
	raw any
}

// Null returns null value
func Null() Value { return Value{} }

// Bool wraps b
func Bool(b bool) Value { return Value{raw: b} }

// Int wraps i
func Int(i int64) Value { return Value{raw: i} }

// Float wraps f
func Float(f float64) Value { return Value{raw: f} }

// String wraps s
func String(s string) Value { return Value{raw: s} }

// Array builds array value of given items
func Array(items ...Value) Value {
	arr := make([]any, len(items))
	for i := range items {
		arr[i] = deepCopy(items[i].raw)
	}
	return Value{raw: arr}
}

// Object builds object value of given fields
func Object(fields map[string]Value) Value {
	obj := make(map[string]any, len(fields))
	for k, v := range fields {
		obj[k] = deepCopy(v.raw)
	}
	return Value{raw: obj}
}

// ValueOf converts any JSON-compatible Go value into Value.
// Values which are not natively known are passed through the JSON codec.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return Value{raw: deepCopy(t.raw)}, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint:
		return unsignedValue(uint64(t))
	case uint64:
		return unsignedValue(t)
	case uintptr:
		return unsignedValue(uint64(t))
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return numberValue(t)
	}
	data, err := codec.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("value of %T: %w", x, err)
	}
	return ParseValue(data)
}

func unsignedValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("%d does not fit int64", u)
	}
	return Int(int64(u)), nil
}

// ParseValue decodes JSON text into Value
func ParseValue(data []byte) (Value, error) {
	var decoded any
	if err := numberCodec.Unmarshal(data, &decoded); err != nil {
		return Value{}, err
	}
	raw, err := normalize(decoded)
	if err != nil {
		return Value{}, err
	}
	return Value{raw: raw}, nil
}

func numberValue(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("bad number %q: %w", s, err)
	}
	return Float(f), nil
}

func normalize(x any) (any, error) {
	switch t := x.(type) {
	case nil, bool, string, int64, float64:
		return t, nil
	case json.Number:
		v, err := numberValue(t)
		if err != nil {
			return nil, err
		}
		return v.raw, nil
	case []any:
		for i := range t {
			item, err := normalize(t[i])
			if err != nil {
				return nil, err
			}
			t[i] = item
		}
		return t, nil
	case map[string]any:
		for k := range t {
			item, err := normalize(t[k])
			if err != nil {
				return nil, err
			}
			t[k] = item
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value of type %T", x)
	}
}

// Kind returns variant of the value
func (v Value) Kind() Kind {
	switch v.raw.(type) {
	case bool:
		return KindBool
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return KindNull
	}
}

// IsNull reports whether value is null
func (v Value) IsNull() bool { return v.raw == nil }

// AsBool returns boolean payload
func (v Value) AsBool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, ok
}

// AsInt returns integer payload. Floats without fractional part are accepted too
func (v Value) AsInt() (int64, bool) {
	switch t := v.raw.(type) {
	case int64:
		return t, true
	case float64:
		if t == math.Trunc(t) && t >= math.MinInt64 && t < math.MaxInt64 {
			return int64(t), true
		}
	}
	return 0, false
}

// AsFloat returns numeric payload as float64
func (v Value) AsFloat() (float64, bool) {
	switch t := v.raw.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	}
	return 0, false
}

// AsString returns string payload
func (v Value) AsString() (string, bool) {
	s, ok := v.raw.(string)
	return s, ok
}

// Items returns elements of an array value. Nil for other kinds
func (v Value) Items() []Value {
	arr, ok := v.raw.([]any)
	if !ok {
		return nil
	}
	items := make([]Value, len(arr))
	for i := range arr {
		items[i] = Value{raw: deepCopy(arr[i])}
	}
	return items
}

// Get returns field of an object value
func (v Value) Get(key string) (Value, bool) {
	obj, ok := v.raw.(map[string]any)
	if !ok {
		return Value{}, false
	}
	item, ok := obj[key]
	return Value{raw: deepCopy(item)}, ok
}

// Keys returns sorted field names of an object value
func (v Value) Keys() []string {
	obj, ok := v.raw.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interface returns plain Go representation of the value. Nested arrays and objects are copies
func (v Value) Interface() any {
	return deepCopy(v.raw)
}

// deepCopy duplicates nested []any and map[string]any so that no two values share storage
func deepCopy(x any) any {
	switch t := x.(type) {
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = deepCopy(t[i])
		}
		return arr
	case map[string]any:
		obj := make(map[string]any, len(t))
		for k := range t {
			obj[k] = deepCopy(t[k])
		}
		return obj
	default:
		return x
	}
}

// Equal reports deep equality. Int(1) and Float(1) are different values.
func (v Value) Equal(other Value) bool {
	return reflect.DeepEqual(v.raw, other.raw)
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	return codec.Marshal(v.raw)
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// String returns JSON text of the value
func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", v.raw)
	}
	return string(data)
}
