package vecjit

import (
	"math"

	"github.com/SnellerInc/vexpr/token"
)

// lowerLoadRel implements a relative memory load: vertical offset
// resolved once per row (clamp or mirror), horizontal offset resolved
// per lane.
func lowerLoadRel(op token.Op, fmtIn SampleFormat, useInt bool) instr {
	clip := op.ClipID
	dx, dy := int(op.DX), int(op.DY)
	boundary := op.Boundary
	keepInt := useInt && !fmtIn.Float

	return func(c *ectx) {
		plane := c.ins[clip]
		yy := resolveCoordI(c.y, dy, 0, plane.Height, boundary)
		rowOff := yy * plane.Stride

		if keepInt {
			var r vecI
			for i := 0; i < c.n; i++ {
				xx := resolveCoordI(c.x+i, dx, 0, plane.Width, boundary)
				r[i] = int32(readSample(plane.Data, rowOff+xx*fmtIn.Bytes, fmtIn))
			}
			c.push(intValue(r))
			return
		}
		var r vecF
		for i := 0; i < c.n; i++ {
			xx := resolveCoordI(c.x+i, dx, 0, plane.Width, boundary)
			r[i] = readSample(plane.Data, rowOff+xx*fmtIn.Bytes, fmtIn)
		}
		c.push(floatValue(r))
	}
}

// lowerLoadAbs implements the variable-address load (clip[]): pop y
// then x, clamp each to plane bounds, gather-load.
// Both popped stack values are themselves lane vectors, so each lane
// may address a different pixel — modeled directly by gatherF's
// per-lane offset table.
func lowerLoadAbs(op token.Op, fmtIn SampleFormat) instr {
	clip := op.ClipID
	return func(c *ectx) {
		yv := c.pop().ensureFloat(c.n)
		xv := c.pop().ensureFloat(c.n)
		plane := c.ins[clip]

		var offsets [MaxLanes]int
		var mask [MaxLanes]bool
		for i := 0; i < c.n; i++ {
			xx := clampi(int32(math.Round(float64(xv.f[i]))), 0, int32(plane.Width-1))
			yy := clampi(int32(math.Round(float64(yv.f[i]))), 0, int32(plane.Height-1))
			offsets[i] = int(yy)*plane.Stride + int(xx)*fmtIn.Bytes
			mask[i] = true
		}
		c.push(floatValue(gatherF(plane.Data, offsets, mask, c.n, fmtIn)))
	}
}
