// Package policy contains the core data model for the policy decision
// engine: values, contexts, conditions, actions, rules, policies, and
// decisions. It has no dependency on the evaluator, cache, or engine
// packages, so it can be imported on its own by anything that only
// needs to build or inspect policy documents.
package policy

import (
	"fmt"
	"sort"
)

// Kind identifies which case of Value is populated.
type Kind int

// The closed set of Value cases.
const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBoolean
	KindArray
)

// String returns the lowercase name of the kind, used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is a tagged variant used for both context-extracted values and
// condition literals. Only the field matching Kind is meaningful.
type Value struct {
	kind Kind
	str  string
	i64  int64
	f64  float64
	b    bool
	arr  []Value
}

// Null is the absent/JSON-null value.
var Null = Value{kind: KindNull}

// String constructs a String value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Integer constructs an Integer value.
func Integer(i int64) Value { return Value{kind: KindInteger, i64: i} }

// Float constructs a Float value.
func Float(f float64) Value { return Value{kind: KindFloat, f64: f} }

// Boolean constructs a Boolean value.
func Boolean(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Array constructs an Array value. The slice is copied defensively.
func Array(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindArray, arr: cp}
}

// Kind reports which case is populated.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null case.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string payload, or ("", false) if v is not a String.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsInteger returns the integer payload, or (0, false) if v is not an Integer.
func (v Value) AsInteger() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.i64, true
}

// AsFloat returns the float payload, or (0, false) if v is not a Float.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f64, true
}

// AsBoolean returns the boolean payload, or (false, false) if v is not a Boolean.
func (v Value) AsBoolean() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.b, true
}

// AsArray returns the element slice, or (nil, false) if v is not an Array.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// IsNumeric reports whether v is an Integer or a Float.
func (v Value) IsNumeric() bool {
	return v.kind == KindInteger || v.kind == KindFloat
}

// Float64 promotes an Integer or Float value to float64. The second
// return is false for any other kind.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.i64), true
	case KindFloat:
		return v.f64, true
	default:
		return 0, false
	}
}

// Equal reports structural equality between v and other. Arrays compare
// element-wise with identical length; integers and floats are distinct
// kinds here (§3: "Equality is structural") — the numeric-coercion rules
// used by the Equals operator live in the evaluator package, not here.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindInteger:
		return v.i64 == other.i64
	case KindFloat:
		return v.f64 == other.f64
	case KindBoolean:
		return v.b == other.b
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ToAny converts v into a native Go value suitable for JSON/YAML
// marshaling: string, int64, float64, bool, nil, or []any.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindString:
		return v.str
	case KindInteger:
		return v.i64
	case KindFloat:
		return v.f64
	case KindBoolean:
		return v.b
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToAny()
		}
		return out
	default:
		return nil
	}
}

// ValueFromAny converts a decoded JSON/YAML scalar or slice into a
// Value. Maps are rejected: the Value variant has no object case (§3).
func ValueFromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null, nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Boolean(t), nil
	case int:
		return Integer(int64(t)), nil
	case int32:
		return Integer(int64(t)), nil
	case int64:
		return Integer(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		// encoding/json hands back float64 for all numbers; keep
		// values that are exact integers as Integer so Equals against
		// an Integer literal behaves as the source document intended.
		if t == float64(int64(t)) {
			return Integer(int64(t)), nil
		}
		return Float(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			v, err := ValueFromAny(e)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Array(items...), nil
	case []string:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = String(e)
		}
		return Array(items...), nil
	case map[string]any:
		return Value{}, fmt.Errorf("value: object literals are not supported, got map with keys %v", sortedKeys(t))
	default:
		return Value{}, fmt.Errorf("value: unsupported literal type %T", raw)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
