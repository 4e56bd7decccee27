package vecjit

import (
	"math"

	"golang.org/x/sys/cpu"
)

// MaxLanes bounds the fixed-width arrays backing every lane vector;
// the active lane count for a given kernel is LaneWidth(), which is
// always <= MaxLanes.
const MaxLanes = 8

type vecF [MaxLanes]float32
type vecI [MaxLanes]int32

// LaneWidth picks the number of pixels processed per inner-loop
// iteration from detected CPU capability: 8 lanes with AVX2, else 4.
func LaneWidth() int {
	if cpu.X86.HasAVX2 {
		return 8
	}
	return 4
}

// value is the compiler's variant-typed stack value: a tagged sum of
// an integer-lane and a float-lane vector.
type value struct {
	isFloat bool
	f       vecF
	i       vecI
}

func intValue(i vecI) value   { return value{isFloat: false, i: i} }
func floatValue(f vecF) value { return value{isFloat: true, f: f} }

// ensureFloat widens an integer-lane value to float, leaving a
// float-lane value unchanged.
func (v value) ensureFloat(n int) value {
	if v.isFloat {
		return v
	}
	var out vecF
	for i := 0; i < n; i++ {
		out[i] = float32(v.i[i])
	}
	return floatValue(out)
}

// ensureInt narrows a float-lane value to integer via round-to-nearest
// (ties to even), leaving an integer-lane value unchanged. The result
// is not clamped to 32 bits.
func (v value) ensureInt(n int) value {
	if !v.isFloat {
		return v
	}
	var out vecI
	for i := 0; i < n; i++ {
		out[i] = int32(math.RoundToEven(float64(v.f[i])))
	}
	return intValue(out)
}
