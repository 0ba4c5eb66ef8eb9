package models

import (
	"math"
	"strconv"
)

// Value is a float64 that may be undefined. The zero Value is undefined.
type Value struct {
	v  float64
	ok bool
}

// Undefined is the value of a position without enough history
var Undefined = Value{}

// Defined wraps a real number. NaN and infinities are treated as undefined.
func Defined(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined
	}
	return Value{v: v, ok: true}
}

// Get returns the number and whether it is defined
func (x Value) Get() (float64, bool) {
	return x.v, x.ok
}

func (x Value) IsDefined() bool {
	return x.ok
}

// String formats defined values with two decimals and undefined as ""
func (x Value) String() string {
	if !x.ok {
		return ""
	}
	return strconv.FormatFloat(x.v, 'f', 2, 64)
}

// Values converts raw floats, mapping NaN to Undefined
func Values(raw []float64) []Value {
	out := make([]Value, len(raw))
	for i, v := range raw {
		out[i] = Defined(v)
	}
	return out
}
