// Package payload models the loosely-typed JSON documents that pipeline
// services attach to activity runs.
//
// A Value is a tagged union over null, bool, number, string, list and map.
// Lookups never fail loudly: every accessor reports whether the value had the
// requested shape, so callers can validate nested documents step by step.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Kind represents the type of a value
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is an immutable JSON-like value. The zero Value is null.
type Value struct {
	kind    Kind
	boolVal bool
	numVal  float64
	strVal  string
	listVal []Value
	mapVal  map[string]Value
}

// Null creates a null value
func Null() Value {
	return Value{kind: KindNull}
}

// Bool creates a boolean value
func Bool(v bool) Value {
	return Value{kind: KindBool, boolVal: v}
}

// Number creates a numeric value
func Number(v float64) Value {
	return Value{kind: KindNumber, numVal: v}
}

// String creates a string value
func String(v string) Value {
	return Value{kind: KindString, strVal: v}
}

// List creates a list value from a copy of elements
func List(elements ...Value) Value {
	return Value{kind: KindList, listVal: slices.Clone(elements)}
}

// Map creates a map value from a copy of elements
func Map(elements map[string]Value) Value {
	m := maps.Clone(elements)
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, mapVal: m}
}

// FromGo converts a decoded Go value (as produced by encoding/json) to a Value
func FromGo(v interface{}) Value {
	if v == nil {
		return Null()
	}

	switch val := v.(type) {
	case Value:
		return val
	case bool:
		return Bool(val)
	case int:
		return Number(float64(val))
	case int32:
		return Number(float64(val))
	case int64:
		return Number(float64(val))
	case float32:
		return Number(float64(val))
	case float64:
		return Number(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return Number(f)
		}
		return String(val.String())
	case string:
		return String(val)
	case []interface{}:
		elements := make([]Value, len(val))
		for i, e := range val {
			elements[i] = FromGo(e)
		}
		return List(elements...)
	case map[string]interface{}:
		elements := make(map[string]Value, len(val))
		for k, e := range val {
			elements[k] = FromGo(e)
		}
		return Map(elements)
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Pointer:
			if rv.IsNil() {
				return Null()
			}
			return FromGo(rv.Elem().Interface())
		case reflect.Slice, reflect.Array:
			elements := make([]Value, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				elements[i] = FromGo(rv.Index(i).Interface())
			}
			return List(elements...)
		case reflect.Map:
			elements := make(map[string]Value, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				k := fmt.Sprintf("%v", iter.Key().Interface())
				elements[k] = FromGo(iter.Value().Interface())
			}
			return Map(elements)
		}
		return String(fmt.Sprintf("%v", v))
	}
}

// Decode parses a JSON document into a Value. Numbers keep full precision
// until they are converted to float64.
func Decode(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Null(), nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Null(), err
	}
	return FromGo(raw), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToGo())
}

// Kind returns the value kind
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull returns true if value is null
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// IsEmpty reports null, or a string, list or map with no elements.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.strVal == ""
	case KindList:
		return len(v.listVal) == 0
	case KindMap:
		return len(v.mapVal) == 0
	default:
		return false
	}
}

// AsBool returns the boolean value
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.boolVal, true
}

// AsNumber returns the numeric value. Strings are not coerced.
func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.numVal, true
}

// AsString returns the string value
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.strVal, true
}

// AsList returns a copy of the list elements
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return slices.Clone(v.listVal), true
}

// AsMap returns a copy of the map elements
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return maps.Clone(v.mapVal), true
}

// Get looks up key in a map value. It reports false when v is not a map or
// the key is missing; a key explicitly set to null is present.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Null(), false
	}
	val, ok := v.mapVal[key]
	return val, ok
}

// Has reports whether v is a map containing key
func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Index gets an element by position in a list value
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.listVal) {
		return Null(), false
	}
	return v.listVal[i], true
}

// Len returns the length for lists, maps and strings, and 0 otherwise
func (v Value) Len() int {
	switch v.kind {
	case KindString:
		return len(v.strVal)
	case KindList:
		return len(v.listVal)
	case KindMap:
		return len(v.mapVal)
	default:
		return 0
	}
}

// Equal compares values structurally
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolVal == other.boolVal
	case KindNumber:
		return v.numVal == other.numVal
	case KindString:
		return v.strVal == other.strVal
	case KindList:
		if len(v.listVal) != len(other.listVal) {
			return false
		}
		for i := range v.listVal {
			if !v.listVal[i].Equal(other.listVal[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.mapVal) != len(other.mapVal) {
			return false
		}
		for k, val := range v.mapVal {
			otherVal, ok := other.mapVal[k]
			if !ok || !val.Equal(otherVal) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ToGo converts the value back to plain Go types
func (v Value) ToGo() interface{} {
	switch v.kind {
	case KindBool:
		return v.boolVal
	case KindNumber:
		return v.numVal
	case KindString:
		return v.strVal
	case KindList:
		result := make([]interface{}, len(v.listVal))
		for i, e := range v.listVal {
			result[i] = e.ToGo()
		}
		return result
	case KindMap:
		result := make(map[string]interface{}, len(v.mapVal))
		for k, e := range v.mapVal {
			result[k] = e.ToGo()
		}
		return result
	default:
		return nil
	}
}

// String returns a compact representation with map keys sorted
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.boolVal)
	case KindNumber:
		return strconv.FormatFloat(v.numVal, 'f', -1, 64)
	case KindString:
		return strconv.Quote(v.strVal)
	case KindList:
		parts := make([]string, len(v.listVal))
		for i, e := range v.listVal {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := make([]string, 0, len(v.mapVal))
		for k := range v.mapVal {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%q: %s", k, v.mapVal[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "(invalid)"
	}
}
