package vecjit

import (
	"fmt"
	"math"

	"github.com/SnellerInc/vexpr/token"
)

func lower(op token.Op, inFmts []SampleFormat, useInt bool) (instr, error) {
	switch op.Kind {
	case token.LoadRel:
		return lowerLoadRel(op, inFmts[op.ClipID], useInt), nil
	case token.LoadAbs:
		return lowerLoadAbs(op, inFmts[op.ClipID]), nil

	case token.ConstInt:
		imm := op.ImmI
		return func(c *ectx) {
			var r vecI
			for i := 0; i < c.n; i++ {
				r[i] = imm
			}
			c.push(intValue(r))
		}, nil
	case token.ConstFloat:
		imm := op.ImmF
		return func(c *ectx) {
			var r vecF
			for i := 0; i < c.n; i++ {
				r[i] = imm
			}
			c.push(floatValue(r))
		}, nil
	case token.ConstN:
		return func(c *ectx) {
			var r vecF
			for i := 0; i < c.n; i++ {
				r[i] = c.consts[0]
			}
			c.push(floatValue(r))
		}, nil
	case token.ConstX:
		return func(c *ectx) {
			var r vecI
			for i := 0; i < c.n; i++ {
				r[i] = int32(c.x + i)
			}
			c.push(intValue(r))
		}, nil
	case token.ConstY:
		return func(c *ectx) {
			var r vecI
			for i := 0; i < c.n; i++ {
				r[i] = int32(c.y)
			}
			c.push(intValue(r))
		}, nil
	case token.ConstWidth:
		return func(c *ectx) {
			var r vecI
			for i := 0; i < c.n; i++ {
				r[i] = int32(c.width)
			}
			c.push(intValue(r))
		}, nil
	case token.ConstHeight:
		return func(c *ectx) {
			var r vecI
			for i := 0; i < c.n; i++ {
				r[i] = int32(c.height)
			}
			c.push(intValue(r))
		}, nil
	case token.ConstProp:
		slot := op.ImmI
		return func(c *ectx) {
			var r vecF
			for i := 0; i < c.n; i++ {
				r[i] = c.consts[slot]
			}
			c.push(floatValue(r))
		}, nil

	case token.VarLoad:
		slot := op.VarSlot
		return func(c *ectx) { c.push(c.vars[slot]) }, nil
	case token.VarStore:
		slot := op.VarSlot
		return func(c *ectx) { c.vars[slot] = c.pop() }, nil

	case token.Add:
		return binArith(func(a, b float32) float32 { return a + b }, func(a, b int32) int32 { return a + b }), nil
	case token.Sub:
		return binArith(func(a, b float32) float32 { return a - b }, func(a, b int32) int32 { return a - b }), nil
	case token.Mul:
		return binArith(func(a, b float32) float32 { return a * b }, func(a, b int32) int32 { return a * b }), nil
	case token.Div:
		return binArith(func(a, b float32) float32 { return a / b }, nil), nil
	case token.Mod:
		return binArith(func(a, b float32) float32 { return float32(math.Mod(float64(a), float64(b))) }, nil), nil
	case token.Min:
		return binArith(func(a, b float32) float32 {
			if a < b {
				return a
			}
			return b
		}, func(a, b int32) int32 {
			if a < b {
				return a
			}
			return b
		}), nil
	case token.Max:
		return binArith(func(a, b float32) float32 {
			if a > b {
				return a
			}
			return b
		}, func(a, b int32) int32 {
			if a > b {
				return a
			}
			return b
		}), nil
	case token.Pow:
		return binArith(func(a, b float32) float32 { return float32(math.Pow(float64(a), float64(b))) }, nil), nil

	case token.Sqrt:
		return unaryOp(func(a float32) float32 {
			if a < 0 {
				a = 0
			}
			return float32(math.Sqrt(float64(a)))
		}, nil), nil
	case token.Abs:
		return unaryOp(func(a float32) float32 { return float32(math.Abs(float64(a))) },
			func(a int32) int32 {
				if a < 0 {
					return -a
				}
				return a
			}), nil
	case token.Trunc:
		return unaryOp(func(a float32) float32 { return float32(math.Trunc(float64(a))) }, identityI), nil
	case token.Round:
		return unaryOp(func(a float32) float32 { return float32(math.RoundToEven(float64(a))) }, identityI), nil
	case token.Floor:
		return unaryOp(func(a float32) float32 { return float32(math.Floor(float64(a))) }, identityI), nil
	case token.Exp:
		return unaryOp(func(a float32) float32 { return float32(math.Exp(float64(a))) }, nil), nil
	case token.Log:
		return unaryOp(func(a float32) float32 { return float32(math.Log(float64(a))) }, nil), nil
	case token.Sin:
		return unaryOp(func(a float32) float32 { return float32(math.Sin(float64(a))) }, nil), nil
	case token.Cos:
		return unaryOp(func(a float32) float32 { return float32(math.Cos(float64(a))) }, nil), nil

	case token.Clamp:
		return func(c *ectx) {
			hi, lo, x := c.pop(), c.pop(), c.pop()
			if !hi.isFloat && !lo.isFloat && !x.isFloat {
				var r vecI
				for i := 0; i < c.n; i++ {
					r[i] = clampi(x.i[i], lo.i[i], hi.i[i])
				}
				c.push(intValue(r))
				return
			}
			hif, lof, xf := hi.ensureFloat(c.n), lo.ensureFloat(c.n), x.ensureFloat(c.n)
			var r vecF
			for i := 0; i < c.n; i++ {
				r[i] = clampf(xf.f[i], lof.f[i], hif.f[i])
			}
			c.push(floatValue(r))
		}, nil

	case token.Cmp:
		sel := op.Cmp
		return func(c *ectx) {
			b, a := c.pop(), c.pop()
			af, bf := a.ensureFloat(c.n), b.ensureFloat(c.n)
			var r vecF
			for i := 0; i < c.n; i++ {
				r[i] = b2f(cmp(sel, af.f[i], bf.f[i]))
			}
			c.push(floatValue(r))
		}, nil

	case token.LogicAnd:
		return logicOp(func(a, b bool) bool { return a && b }), nil
	case token.LogicOr:
		return logicOp(func(a, b bool) bool { return a || b }), nil
	case token.LogicXor:
		return logicOp(func(a, b bool) bool { return a != b }), nil
	case token.LogicNot:
		return func(c *ectx) {
			a := c.pop().ensureFloat(c.n)
			var r vecF
			for i := 0; i < c.n; i++ {
				r[i] = b2f(a.f[i] == 0)
			}
			c.push(floatValue(r))
		}, nil

	case token.BitAnd:
		return bitOp(func(a, b int32) int32 { return a & b }), nil
	case token.BitOr:
		return bitOp(func(a, b int32) int32 { return a | b }), nil
	case token.BitXor:
		return bitOp(func(a, b int32) int32 { return a ^ b }), nil
	case token.BitNot:
		return func(c *ectx) {
			a := c.pop().ensureInt(c.n)
			var r vecI
			for i := 0; i < c.n; i++ {
				r[i] = ^a.i[i]
			}
			c.push(intValue(r))
		}, nil

	case token.Select:
		return func(c *ectx) {
			f, t, cond := c.pop(), c.pop(), c.pop()
			cf := cond.ensureFloat(c.n)
			var mask [MaxLanes]bool
			for i := 0; i < c.n; i++ {
				mask[i] = cf.f[i] > 0
			}
			if !t.isFloat && !f.isFloat {
				var r vecI
				for i := 0; i < c.n; i++ {
					if mask[i] {
						r[i] = t.i[i]
					} else {
						r[i] = f.i[i]
					}
				}
				c.push(intValue(r))
				return
			}
			tf, ff := t.ensureFloat(c.n), f.ensureFloat(c.n)
			c.push(floatValue(selectBits(mask, tf.f, ff.f, c.n)))
		}, nil

	case token.Sort:
		k := int(op.ImmI)
		net := sortNetwork(k)
		return func(c *ectx) {
			vals := c.topN(k)
			runSortNetwork(vals, c.n, net)
		}, nil

	case token.Dup:
		idx := int(op.ImmI)
		return func(c *ectx) {
			c.push(c.stack[len(c.stack)-1-idx])
		}, nil
	case token.Swap:
		idx := int(op.ImmI)
		return func(c *ectx) {
			i := len(c.stack) - 1
			j := i - idx
			c.stack[i], c.stack[j] = c.stack[j], c.stack[i]
		}, nil
	case token.Drop:
		k := int(op.ImmI)
		return func(c *ectx) { c.dropN(k) }, nil

	default:
		return nil, fmt.Errorf("vecjit: unsupported op kind %v (Select-only ops are not lowered to the vector kernel)", op.Kind)
	}
}

func identityI(a int32) int32 { return a }

func b2f(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func cmp(sel token.CmpOp, a, b float32) bool {
	switch sel {
	case token.CmpLT:
		return a < b
	case token.CmpGT:
		return a > b
	case token.CmpEQ:
		return a == b
	case token.CmpGE:
		return a >= b
	case token.CmpLE:
		return a <= b
	case token.CmpNE:
		return a != b
	}
	return false
}

// binArith builds a binary-arithmetic instr. When both operands are
// integer-lane and fi is non-nil, the result stays integer; otherwise
// both operands are promoted to float and f is used. / and % and any
// float-typed operand always force promotion.
func binArith(f func(a, b float32) float32, fi func(a, b int32) int32) instr {
	return func(c *ectx) {
		b, a := c.pop(), c.pop()
		if fi != nil && !a.isFloat && !b.isFloat {
			var r vecI
			for i := 0; i < c.n; i++ {
				r[i] = fi(a.i[i], b.i[i])
			}
			c.push(intValue(r))
			return
		}
		af, bf := a.ensureFloat(c.n), b.ensureFloat(c.n)
		var r vecF
		for i := 0; i < c.n; i++ {
			r[i] = f(af.f[i], bf.f[i])
		}
		c.push(floatValue(r))
	}
}

func unaryOp(f func(a float32) float32, fi func(a int32) int32) instr {
	return func(c *ectx) {
		a := c.pop()
		if fi != nil && !a.isFloat {
			var r vecI
			for i := 0; i < c.n; i++ {
				r[i] = fi(a.i[i])
			}
			c.push(intValue(r))
			return
		}
		af := a.ensureFloat(c.n)
		var r vecF
		for i := 0; i < c.n; i++ {
			r[i] = f(af.f[i])
		}
		c.push(floatValue(r))
	}
}

func logicOp(f func(a, b bool) bool) instr {
	return func(c *ectx) {
		b, a := c.pop(), c.pop()
		af, bf := a.ensureFloat(c.n), b.ensureFloat(c.n)
		var r vecF
		for i := 0; i < c.n; i++ {
			r[i] = b2f(f(af.f[i] != 0, bf.f[i] != 0))
		}
		c.push(floatValue(r))
	}
}

func bitOp(f func(a, b int32) int32) instr {
	return func(c *ectx) {
		b, a := c.pop(), c.pop()
		ai, bi := a.ensureInt(c.n), b.ensureInt(c.n)
		var r vecI
		for i := 0; i < c.n; i++ {
			r[i] = f(ai.i[i], bi.i[i])
		}
		c.push(intValue(r))
	}
}
