package vecjit

// These primitives are the portable backend's stand-ins for the usual
// SIMD building blocks a code-generation backend would supply (gather
// load, select, swizzle, bitwise ternary-logic), reworked to operate
// directly on MaxLanes-wide float32/int32 lanes instead of generic
// 64-bit-element vectors, since the closure backend never materializes
// a byte-level vector register.

// selectBits implements a branchless select between two float32 lane
// vectors under a per-lane boolean mask, the fixed-lane analogue of a
// ternary bit-logic blend instruction.
func selectBits(mask [MaxLanes]bool, t, f vecF, n int) vecF {
	var r vecF
	for i := 0; i < n; i++ {
		if mask[i] {
			r[i] = t[i]
		} else {
			r[i] = f[i]
		}
	}
	return r
}

// gatherF is the per-lane analogue of a masked gather instruction:
// each lane reads from its own byte offset into data, or contributes 0
// when its mask bit is clear. offsets are byte offsets into data.
func gatherF(data []byte, offsets [MaxLanes]int, mask [MaxLanes]bool, n int, fmt SampleFormat) vecF {
	var r vecF
	for i := 0; i < n; i++ {
		if mask[i] {
			r[i] = readSample(data, offsets[i], fmt)
		}
	}
	return r
}
