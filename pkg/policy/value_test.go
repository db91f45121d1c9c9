package policy

import "testing"

func TestValueEqualStructural(t *testing.T) {
	if !String("a").Equal(String("a")) {
		t.Fatalf("expected equal strings to be Equal")
	}
	if String("a").Equal(String("b")) {
		t.Fatalf("expected different strings to not be Equal")
	}
	if Integer(3).Equal(Float(3)) {
		t.Fatalf("expected Integer and Float to be distinct kinds for Equal")
	}
	if !Array(String("a"), Integer(1)).Equal(Array(String("a"), Integer(1))) {
		t.Fatalf("expected identical arrays to be Equal")
	}
	if Array(String("a")).Equal(Array(String("a"), String("b"))) {
		t.Fatalf("expected arrays of different length to not be Equal")
	}
}

func TestValueFloat64Promotion(t *testing.T) {
	f, ok := Integer(5).Float64()
	if !ok || f != 5 {
		t.Fatalf("expected Integer(5).Float64() == (5, true), got (%v, %v)", f, ok)
	}
	f, ok = Float(5.5).Float64()
	if !ok || f != 5.5 {
		t.Fatalf("expected Float(5.5).Float64() == (5.5, true), got (%v, %v)", f, ok)
	}
	if _, ok := String("x").Float64(); ok {
		t.Fatalf("expected String.Float64() to report false")
	}
}

func TestValueFromAnyRoundTrip(t *testing.T) {
	cases := []any{nil, "s", true, 3, int64(3), 3.5, []any{"a", int64(1)}}
	for _, c := range cases {
		v, err := ValueFromAny(c)
		if err != nil {
			t.Fatalf("ValueFromAny(%v): %v", c, err)
		}
		back, err := ValueFromAny(v.ToAny())
		if err != nil || !back.Equal(v) {
			t.Fatalf("expected %v to round-trip through ToAny, got %v (err %v)", c, back.ToAny(), err)
		}
	}
}

func TestValueFromAnyIntegerDetection(t *testing.T) {
	v, err := ValueFromAny(float64(3))
	if err != nil {
		t.Fatalf("ValueFromAny: %v", err)
	}
	if v.Kind() != KindInteger {
		t.Fatalf("expected a whole-number float64 to decode as Integer, got %v", v.Kind())
	}

	v, err = ValueFromAny(float64(3.5))
	if err != nil {
		t.Fatalf("ValueFromAny: %v", err)
	}
	if v.Kind() != KindFloat {
		t.Fatalf("expected a fractional float64 to decode as Float, got %v", v.Kind())
	}
}

func TestValueFromAnyRejectsObjects(t *testing.T) {
	if _, err := ValueFromAny(map[string]any{"a": 1}); err == nil {
		t.Fatalf("expected object literal to be rejected")
	}
}

func TestValueToAnyArray(t *testing.T) {
	v := Array(String("a"), Integer(1), Boolean(true))
	out, ok := v.ToAny().([]any)
	if !ok || len(out) != 3 {
		t.Fatalf("expected a 3-element []any, got %#v", v.ToAny())
	}
}
