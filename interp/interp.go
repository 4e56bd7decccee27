// Package interp is the non-vectorized reference evaluator: a stack
// machine over float64 used directly for Select and PropExpr
// expressions (which choose among clips or compute metadata per frame,
// not per pixel) and as the semantic reference the vector engine is
// cross-checked against.
package interp

import (
	"fmt"
	"math"
	"sort"

	"github.com/SnellerInc/vexpr/oplist"
	"github.com/SnellerInc/vexpr/token"
)

// PixelGet fetches a pixel value at an absolute or relative address.
// Select and PropExpr installations should pass a PixelGet that always
// errors, since pixel addresses are not meaningful per-frame.
type PixelGet func(clip int32, y, x int) (float64, error)

// PropGet fetches a frame property's value as a float. Integer and
// float properties return their value directly; a byte-string property
// returns its first byte. Missing properties return the zero value the
// caller supplied as missing.
type PropGet func(clipID int32, name string) (float64, bool)

// Eval runs l's operation stream once and returns the resulting scalar.
// n is the current frame index (ConstN). pixel and prop are optional;
// a nil pixel makes any pixel load an error, and a nil prop makes any
// property load resolve to the "missing" policy the caller selects via
// missingIsNaN.
func Eval(l *oplist.List, n float64, pixel PixelGet, prop PropGet, missingIsNaN bool) (float64, error) {
	if len(l.Ops) == 0 {
		return 0, nil
	}
	st := &state{
		stack: make([]float64, 0, 16),
		vars:  make(map[int32]float64, len(l.VarNames)),
		n:     n,
		pixel: pixel,
		prop:  prop,
		props: l.PropSlots,
		missingIsNaN: missingIsNaN,
	}
	for i, op := range l.Ops {
		if err := st.step(op); err != nil {
			return 0, fmt.Errorf("op %d (%v): %w", i, op.Kind, err)
		}
	}
	if len(st.stack) != 1 {
		return 0, fmt.Errorf("interpreter left %d values on the stack", len(st.stack))
	}
	return st.stack[0], nil
}

// PlaneGet fetches a raw, already-boundary-resolved sample from clip
// at absolute coordinates (x, y).
type PlaneGet func(clip int32, x, y int) float64

// PlaneSize reports a clip's (width, height) for the width/height
// constants and for boundary resolution.
type PlaneSize func(clip int32) (w, h int)

// EvalPixel runs l's operation stream for one output pixel at (x, y),
// resolving relative and absolute pixel loads against plane and size
// under the clamp/mirror boundary rules. This is the scalar reference
// the vector engine's output is cross-checked against.
func EvalPixel(l *oplist.List, n float64, x, y, width, height int, plane PlaneGet, size PlaneSize, prop PropGet) (float64, error) {
	st := &state{
		stack:  make([]float64, 0, 16),
		vars:   make(map[int32]float64, len(l.VarNames)),
		n:      n,
		prop:   prop,
		props:  l.PropSlots,
		x:      x,
		y:      y,
		width:  width,
		height: height,
		plane:  plane,
		size:   size,
	}
	for i, op := range l.Ops {
		if err := st.step(op); err != nil {
			return 0, fmt.Errorf("op %d (%v): %w", i, op.Kind, err)
		}
	}
	if len(st.stack) != 1 {
		return 0, fmt.Errorf("interpreter left %d values on the stack", len(st.stack))
	}
	return st.stack[0], nil
}

func resolveCoord(v, dv, lo, hi int, boundary token.Boundary) int {
	c := v + dv
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

type state struct {
	stack        []float64
	vars         map[int32]float64
	n            float64
	pixel        PixelGet
	prop         PropGet
	props        []oplist.PropSlot
	missingIsNaN bool

	// per-pixel evaluation context, set only by EvalPixel.
	x, y, width, height int
	plane               PlaneGet
	size                PlaneSize
}

func (s *state) push(v float64) { s.stack = append(s.stack, v) }

func (s *state) pop() float64 {
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v
}

func (s *state) top(k int) []float64 {
	return s.stack[len(s.stack)-k:]
}

func (s *state) dropN(k int) {
	s.stack = s.stack[:len(s.stack)-k]
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundToInt(x float64) int64 {
	return int64(math.RoundToEven(x))
}

func (s *state) step(op token.Op) error {
	switch op.Kind {
	case token.LoadRel:
		if s.plane != nil {
			cw, ch := s.width, s.height
			if s.size != nil {
				cw, ch = s.size(op.ClipID)
			}
			xx := resolveCoord(s.x, int(op.DX), 0, cw, op.Boundary)
			yy := resolveCoord(s.y, int(op.DY), 0, ch, op.Boundary)
			s.push(s.plane(op.ClipID, xx, yy))
			return nil
		}
		if s.pixel == nil {
			return fmt.Errorf("pixel load not supported in this evaluation context")
		}
		v, err := s.pixel(op.ClipID, int(op.DY), int(op.DX))
		if err != nil {
			return err
		}
		s.push(v)
	case token.LoadAbs:
		yv := s.pop()
		xv := s.pop()
		if s.plane != nil {
			cw, ch := s.width, s.height
			if s.size != nil {
				cw, ch = s.size(op.ClipID)
			}
			xx := clampInt(int(math.Round(xv)), 0, cw-1)
			yy := clampInt(int(math.Round(yv)), 0, ch-1)
			s.push(s.plane(op.ClipID, xx, yy))
			return nil
		}
		if s.pixel == nil {
			return fmt.Errorf("pixel load not supported in this evaluation context")
		}
		v, err := s.pixel(op.ClipID, int(yv), int(xv))
		if err != nil {
			return err
		}
		s.push(v)
	case token.ConstInt:
		s.push(float64(op.ImmI))
	case token.ConstFloat:
		s.push(float64(op.ImmF))
	case token.ConstN:
		s.push(s.n)
	case token.ConstX:
		s.push(float64(s.x))
	case token.ConstY:
		s.push(float64(s.y))
	case token.ConstWidth:
		s.push(float64(s.width))
	case token.ConstHeight:
		s.push(float64(s.height))
	case token.ConstProp:
		slot := s.props[op.ImmI-1]
		if s.prop == nil {
			s.push(s.missingValue())
			return nil
		}
		v, ok := s.prop(slot.ClipID, slot.Name)
		if !ok {
			s.push(s.missingValue())
			return nil
		}
		s.push(v)
	case token.VarLoad:
		v, ok := s.vars[op.VarSlot]
		if !ok {
			return fmt.Errorf("variable loaded before store")
		}
		s.push(v)
	case token.VarStore:
		s.vars[op.VarSlot] = s.pop()

	case token.Add:
		b, a := s.pop(), s.pop()
		s.push(a + b)
	case token.Sub:
		b, a := s.pop(), s.pop()
		s.push(a - b)
	case token.Mul:
		b, a := s.pop(), s.pop()
		s.push(a * b)
	case token.Div:
		b, a := s.pop(), s.pop()
		s.push(a / b)
	case token.Mod:
		b, a := s.pop(), s.pop()
		s.push(math.Mod(a, b))
	case token.Sqrt:
		a := s.pop()
		if a < 0 {
			a = 0
		}
		s.push(math.Sqrt(a))
	case token.Abs:
		s.push(math.Abs(s.pop()))
	case token.Min:
		b, a := s.pop(), s.pop()
		s.push(math.Min(a, b))
	case token.Max:
		b, a := s.pop(), s.pop()
		s.push(math.Max(a, b))
	case token.Clamp:
		hi, lo, x := s.pop(), s.pop(), s.pop()
		if x < lo {
			x = lo
		}
		if x > hi {
			x = hi
		}
		s.push(x)
	case token.Cmp:
		b, a := s.pop(), s.pop()
		var r bool
		switch op.Cmp {
		case token.CmpLT:
			r = a < b
		case token.CmpGT:
			r = a > b
		case token.CmpEQ:
			r = a == b
		case token.CmpGE:
			r = a >= b
		case token.CmpLE:
			r = a <= b
		case token.CmpNE:
			r = a != b
		}
		s.push(b2f(r))
	case token.Trunc:
		s.push(math.Trunc(s.pop()))
	case token.Round:
		s.push(math.RoundToEven(s.pop()))
	case token.Floor:
		s.push(math.Floor(s.pop()))
	case token.LogicAnd:
		b, a := s.pop(), s.pop()
		s.push(b2f(a != 0 && b != 0))
	case token.LogicOr:
		b, a := s.pop(), s.pop()
		s.push(b2f(a != 0 || b != 0))
	case token.LogicXor:
		b, a := s.pop(), s.pop()
		s.push(b2f((a != 0) != (b != 0)))
	case token.LogicNot:
		s.push(b2f(s.pop() == 0))
	case token.BitAnd:
		b, a := roundToInt(s.pop()), roundToInt(s.pop())
		s.push(float64(a & b))
	case token.BitOr:
		b, a := roundToInt(s.pop()), roundToInt(s.pop())
		s.push(float64(a | b))
	case token.BitXor:
		b, a := roundToInt(s.pop()), roundToInt(s.pop())
		s.push(float64(a ^ b))
	case token.BitNot:
		a := roundToInt(s.pop())
		s.push(float64(^a))
	case token.Exp:
		s.push(math.Exp(s.pop()))
	case token.Log:
		s.push(math.Log(s.pop()))
	case token.Pow:
		b, a := s.pop(), s.pop()
		s.push(math.Pow(a, b))
	case token.Sin:
		s.push(math.Sin(s.pop()))
	case token.Cos:
		s.push(math.Cos(s.pop()))
	case token.Select:
		f, t, c := s.pop(), s.pop(), s.pop()
		if c > 0 {
			s.push(t)
		} else {
			s.push(f)
		}
	case token.Sort:
		k := int(op.ImmI)
		vals := append([]float64(nil), s.top(k)...)
		sort.Sort(sort.Reverse(sort.Float64Slice(vals)))
		s.dropN(k)
		for _, v := range vals {
			s.push(v)
		}
	case token.Dup:
		v := s.stack[len(s.stack)-1-int(op.ImmI)]
		s.push(v)
	case token.Swap:
		i := len(s.stack) - 1
		j := i - int(op.ImmI)
		s.stack[i], s.stack[j] = s.stack[j], s.stack[i]
	case token.Drop:
		s.dropN(int(op.ImmI))
	case token.ArgMin, token.ArgMax:
		k := int(op.ImmI)
		vals := s.top(k)
		best := 0
		for i := 1; i < k; i++ {
			if op.Kind == token.ArgMin {
				if vals[i] < vals[best] {
					best = i
				}
			} else {
				if vals[i] > vals[best] {
					best = i
				}
			}
		}
		s.dropN(k)
		s.push(float64(best))
	case token.ArgSort:
		k := int(op.ImmI)
		vals := append([]float64(nil), s.top(k)...)
		idx := make([]int, k)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool { return vals[idx[i]] > vals[idx[j]] })
		s.dropN(k)
		// idx[0] is the index of the largest value and ends up at the
		// bottom of the window, idx[k-1] (smallest) on top, matching Sort.
		for _, i := range idx {
			s.push(float64(i))
		}
	default:
		return fmt.Errorf("unsupported op kind %v in scalar interpreter", op.Kind)
	}
	return nil
}

func (s *state) missingValue() float64 {
	if s.missingIsNaN {
		return math.NaN()
	}
	return 0
}
