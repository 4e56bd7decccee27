// Package vecjit builds a SIMD-style kernel from a validated operation
// stream: a portable intrinsic backend rather than an LLVM-emitting
// one. The operation stream is compiled once into a flat slice of
// closures operating over fixed-width lane arrays, executed by a tight
// loop over lane-blocks, without requiring cgo or an assembler.
package vecjit

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/exp/constraints"

	"github.com/SnellerInc/vexpr/oplist"
	"github.com/SnellerInc/vexpr/token"
)

// OptUseInteger is opt bit 0: "use integer", retaining integer lanes
// where possible instead of eagerly promoting every load to float.
const OptUseInteger = 1 << 0

// Plane is one host-supplied pixel buffer: raw bytes, byte stride, and
// sample format. The engine never allocates planes; it only reads and
// writes through these host pointers.
type Plane struct {
	Data   []byte
	Stride int
	Format SampleFormat
	Width  int
	Height int
}

// Kernel is a compiled kernel: a pure function of (output plane, input
// planes, constants array, width, height), reusable across any number
// of concurrent invocations with disjoint buffers.
type Kernel struct {
	ID        uuid.UUID
	Lanes     int
	NumInputs int
	NumVars   int
	OutFormat SampleFormat
	InFormats []SampleFormat
	OptMask   int
	code      []instr
}

type ectx struct {
	stack  []value
	vars   []value
	consts []float32
	ins    []Plane
	x, y   int
	n      int // active lanes this block, <= Lanes
	width  int
	height int
	opt    int
}

func (c *ectx) push(v value) { c.stack = append(c.stack, v) }
func (c *ectx) pop() value {
	v := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return v
}
func (c *ectx) topN(k int) []value { return c.stack[len(c.stack)-k:] }
func (c *ectx) dropN(k int)        { c.stack = c.stack[:len(c.stack)-k] }

type instr func(c *ectx)

// Compile lowers a validated operation stream into a Kernel.
// boundaryDefault is not used: per-op boundaries are already resolved
// by oplist.Build, and callers fold the default into the structural
// key through Key.
func Compile(l *oplist.List, outFmt SampleFormat, inFmts []SampleFormat, optMask int, boundaryDefault token.Boundary) (*Kernel, error) {
	if len(inFmts) != l.NumInputs {
		return nil, fmt.Errorf("vecjit: %d input formats for %d declared clips", len(inFmts), l.NumInputs)
	}
	k := &Kernel{
		ID:        uuid.New(),
		Lanes:     LaneWidth(),
		NumInputs: l.NumInputs,
		NumVars:   len(l.VarNames),
		OutFormat: outFmt,
		InFormats: inFmts,
		OptMask:   optMask,
	}
	useInt := optMask&OptUseInteger != 0
	for _, op := range l.Ops {
		ins, err := lower(op, inFmts, useInt)
		if err != nil {
			return nil, err
		}
		k.code = append(k.code, ins)
	}
	return k, nil
}

// Run executes the kernel over the whole output plane, writing exactly
// one output plane.
func (k *Kernel) Run(out Plane, ins []Plane, consts []float32) {
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x += k.Lanes {
			n := k.Lanes
			if x+n > out.Width {
				n = out.Width - x
			}
			ctx := &ectx{
				stack:  make([]value, 0, 16),
				vars:   make([]value, k.NumVars),
				consts: consts,
				ins:    ins,
				x:      x,
				y:      y,
				n:      n,
				width:  out.Width,
				height: out.Height,
				opt:    k.OptMask,
			}
			for _, ins := range k.code {
				ins(ctx)
			}
			result := ctx.pop()
			storeResult(out, x, y, n, result)
		}
	}
}

func storeResult(out Plane, x, y, n int, v value) {
	vf := v.ensureFloat(n)
	rowOff := y * out.Stride
	for i := 0; i < n; i++ {
		off := rowOff + (x+i)*out.Format.Bytes
		writeSample(out.Data, off, out.Format, vf.f[i])
	}
}

func resolveCoordI(base, dv, lo, hi int, boundary token.Boundary) int {
	c := base + dv
	if c >= lo && c < hi {
		return c
	}
	if boundary == token.BoundaryMirror {
		span := hi - lo
		if span <= 1 {
			return lo
		}
		period := 2 * span
		m := ((c-lo)%period + period) % period
		if m >= span {
			m = period - 1 - m
		}
		return lo + m
	}
	if c < lo {
		return lo
	}
	return hi - 1
}

func clampOrdered[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampf(v, lo, hi float32) float32 { return clampOrdered(v, lo, hi) }
func clampi(v, lo, hi int32) int32     { return clampOrdered(v, lo, hi) }
