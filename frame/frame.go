// Package frame is the host boundary: the frame driver and the three
// filter entry points, Expr, Select, and PropExpr. The host video
// framework itself — frame allocation, activation model, concrete
// pixel storage — stays out of scope; this package models the host's
// side of the contract as the Clip, Frame, and OutputFrame interfaces
// below, and never assumes anything about a concrete host beyond them.
package frame

import "github.com/SnellerInc/vexpr/vecjit"

// PixelFormat mirrors vecjit.SampleFormat at the host boundary.
type PixelFormat = vecjit.SampleFormat

// PropValue is a frame property's value: IsBytes selects Bytes, else
// IsFloat selects F, else the value is the integer I.
type PropValue struct {
	IsFloat bool
	IsBytes bool
	I       int64
	F       float64
	Bytes   []byte
}

// AsFloat converts a property value to the float64 the interpreter and
// kernel constants array expect: integer and float values convert
// directly; a byte-string value contributes its first byte.
func (p PropValue) AsFloat() float64 {
	switch {
	case p.IsBytes:
		if len(p.Bytes) == 0 {
			return 0
		}
		return float64(p.Bytes[0])
	case p.IsFloat:
		return p.F
	default:
		return float64(p.I)
	}
}

// Frame is one host-supplied frame: per-plane pixel buffers plus
// property access. The core never allocates a Frame; all Plane byte
// slices are host-owned for the lifetime of one kernel invocation.
type Frame interface {
	NumPlanes() int
	Plane(i int) vecjit.Plane
	GetProp(name string) (PropValue, bool)
}

// OutputFrame is a host-supplied writable frame: same plane access as
// Frame, plus property mutation for PropExpr.
type OutputFrame interface {
	Frame
	SetProp(name string, v PropValue)
	DeleteProp(name string)
}

// Clip is a video stream of frames, identified by its position in the
// filter's input list (its clip id).
type Clip interface {
	NumPlanes() int
	Width(plane int) int
	Height(plane int) int
	Format(plane int) PixelFormat
	NumFrames() int
	GetFrame(n int) (Frame, error)
}
