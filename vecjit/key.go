package vecjit

import (
	"fmt"
	"strings"
)

// Key builds the structural cache key: two compilations with equal
// keys are guaranteed to produce semantically identical kernels.
func Key(numInputs, optMask int, mirror bool, expr string, outFmt SampleFormat, inFmts []SampleFormat) string {
	var b strings.Builder
	fmt.Fprintf(&b, "n=%d|opt=%d|mirror=%d|expr=%s|vo=%s", numInputs, optMask, b2i(mirror), expr, formatKey(outFmt))
	for i, f := range inFmts {
		fmt.Fprintf(&b, "|vi%d=%s", i, formatKey(f))
	}
	return b.String()
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatKey(f SampleFormat) string {
	kind := "i"
	if f.Float {
		kind = "f"
	}
	return fmt.Sprintf("%s%d:%d", kind, f.Bytes, f.Bits)
}
