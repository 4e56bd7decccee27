package frame

import (
	"fmt"
	"math"
	"sort"

	"github.com/SnellerInc/vexpr/diag"
	"github.com/SnellerInc/vexpr/interp"
	"github.com/SnellerInc/vexpr/kernelcache"
	"github.com/SnellerInc/vexpr/oplist"
	"github.com/SnellerInc/vexpr/token"
	"github.com/SnellerInc/vexpr/vecjit"
	"github.com/SnellerInc/vexpr/vexprerr"
	"golang.org/x/exp/maps"
)

func boundaryFromOpt(boundaryOpt int) token.Boundary {
	if boundaryOpt == 1 {
		return token.BoundaryMirror
	}
	return token.BoundaryClamp
}

func checkGeometry(clips []Clip) error {
	if len(clips) == 0 {
		return &vexprerr.ShapeError{Msg: "at least one input clip is required"}
	}
	n := clips[0].NumPlanes()
	for ci, c := range clips[1:] {
		if c.NumPlanes() != n {
			return &vexprerr.ShapeError{Msg: fmt.Sprintf("clip %d has %d planes, clip 0 has %d", ci+1, c.NumPlanes(), n)}
		}
	}
	for p := 0; p < n; p++ {
		w, h := clips[0].Width(p), clips[0].Height(p)
		for ci, c := range clips[1:] {
			if c.Width(p) != w || c.Height(p) != h {
				return &vexprerr.ShapeError{Msg: fmt.Sprintf("clip %d plane %d geometry mismatch", ci+1, p)}
			}
		}
	}
	return nil
}

func checkFormat(f PixelFormat) error {
	if f.Float {
		if f.Bits != 16 && f.Bits != 32 {
			return &vexprerr.ShapeError{Msg: "float formats must be 16 or 32 bits"}
		}
		return nil
	}
	if f.Bits > 32 || (f.Bits > 16 && f.Bits != 32) {
		return &vexprerr.ShapeError{Msg: "integer formats must be <=16 bits or exactly 32 bits"}
	}
	return nil
}

// ExprFilter is the Expr entry point: per-plane pixel evaluation
// compiled to a vector kernel and cached by structural key.
type ExprFilter struct {
	clips     []Clip
	boundary  token.Boundary
	optMask   int
	outFormat []PixelFormat
	lists     []*oplist.List // nil entry: plane uses the copy/undefined policy
	kernels   []*vecjit.Kernel
	cache     *kernelcache.Cache
}

// NewExpr validates clips and exprs and compiles one kernel per
// nonempty plane expression. All setup-time errors are flattened to a
// single "Expr: <message>" string.
func NewExpr(clips []Clip, exprs []string, outFormat []PixelFormat, opt int, boundaryOpt int) (f *ExprFilter, err error) {
	defer func() {
		if err != nil {
			err = diag.Flatten("Expr", err)
		}
	}()
	return newExpr(clips, exprs, outFormat, opt, boundaryOpt)
}

func newExpr(clips []Clip, exprs []string, outFormat []PixelFormat, opt int, boundaryOpt int) (*ExprFilter, error) {
	if err := checkGeometry(clips); err != nil {
		return nil, err
	}
	numPlanes := clips[0].NumPlanes()
	if len(exprs) > numPlanes {
		return nil, &vexprerr.ShapeError{Msg: fmt.Sprintf("%d expressions for %d planes", len(exprs), numPlanes)}
	}
	boundary := boundaryFromOpt(boundaryOpt)

	f := &ExprFilter{
		clips:     clips,
		boundary:  boundary,
		optMask:   opt,
		outFormat: make([]PixelFormat, numPlanes),
		lists:     make([]*oplist.List, numPlanes),
		kernels:   make([]*vecjit.Kernel, numPlanes),
		cache:     kernelcache.Default,
	}
	for p := 0; p < numPlanes; p++ {
		if p < len(outFormat) {
			f.outFormat[p] = outFormat[p]
		} else {
			f.outFormat[p] = clips[0].Format(p)
		}
		if err := checkFormat(f.outFormat[p]); err != nil {
			return nil, err
		}

		var exprText string
		if p < len(exprs) {
			exprText = exprs[p]
		}
		if exprText == "" {
			continue
		}

		list, err := oplist.Parse(exprText, len(clips), oplist.FlavorExpr, boundary)
		if err != nil {
			return nil, err
		}
		f.lists[p] = list

		inFmts := make([]vecjit.SampleFormat, len(clips))
		for ci, c := range clips {
			inFmts[ci] = c.Format(p)
		}
		key := vecjit.Key(len(clips), opt, boundary == token.BoundaryMirror, exprText, f.outFormat[p], inFmts)
		kernel, err := f.cache.Compile(key, func() (*vecjit.Kernel, error) {
			return vecjit.Compile(list, f.outFormat[p], inFmts, opt, boundary)
		})
		if err != nil {
			return nil, &vexprerr.HostError{Err: err}
		}
		f.kernels[p] = kernel
	}
	return f, nil
}

// GetFrame renders output frame n into out. An empty expression
// copies the plane from input 0 when formats match byte-for-byte, else
// leaves it undefined (a no-op against the host-owned buffer).
func (f *ExprFilter) GetFrame(n int, out OutputFrame) error {
	for p := range f.lists {
		if f.kernels[p] == nil {
			in0, err := f.clips[0].GetFrame(n)
			if err != nil {
				return err
			}
			if f.outFormat[p] == f.clips[0].Format(p) {
				copyPlane(out.Plane(p), in0.Plane(p), f.clips[0].Width(p), f.clips[0].Height(p), f.outFormat[p])
			}
			continue
		}

		inPlanes := make([]vecjit.Plane, len(f.clips))
		for ci, c := range f.clips {
			fr, err := c.GetFrame(n)
			if err != nil {
				return err
			}
			pl := fr.Plane(p)
			pl.Width, pl.Height = c.Width(p), c.Height(p)
			pl.Format = c.Format(p)
			inPlanes[ci] = pl
		}

		consts := make([]float32, 1+len(f.lists[p].PropSlots))
		consts[0] = float32(n)
		for i, slot := range f.lists[p].PropSlots {
			fr, err := f.clips[slot.ClipID].GetFrame(n)
			if err != nil {
				return err
			}
			consts[i+1] = float32(math.NaN())
			if v, ok := fr.GetProp(slot.Name); ok {
				consts[i+1] = float32(v.AsFloat())
			}
		}

		outPlane := out.Plane(p)
		outPlane.Width, outPlane.Height = f.clips[0].Width(p), f.clips[0].Height(p)
		outPlane.Format = f.outFormat[p]
		f.kernels[p].Run(outPlane, inPlanes, consts)
	}
	return nil
}

func copyPlane(dst, src vecjit.Plane, w, h int, fmtSpec vecjit.SampleFormat) {
	rowBytes := w * fmtSpec.Bytes
	for y := 0; y < h; y++ {
		copy(dst.Data[y*dst.Stride:y*dst.Stride+rowBytes], src.Data[y*src.Stride:y*src.Stride+rowBytes])
	}
}

// SelectFilter is the Select entry point: one frame-property
// expression per plane chooses which input clip's plane is copied to
// the output.
type SelectFilter struct {
	srcClips  []Clip
	propClips []Clip
	lists     []*oplist.List
}

// NewSelect validates and compiles one Select-flavored expression per
// plane of srcClips[0]. All setup-time errors are flattened to a
// single "Select: <message>" string.
func NewSelect(srcClips, propClips []Clip, exprs []string) (f *SelectFilter, err error) {
	defer func() {
		if err != nil {
			err = diag.Flatten("Select", err)
		}
	}()
	return newSelect(srcClips, propClips, exprs)
}

func newSelect(srcClips, propClips []Clip, exprs []string) (*SelectFilter, error) {
	if err := checkGeometry(srcClips); err != nil {
		return nil, err
	}
	if len(srcClips) == 0 {
		return nil, &vexprerr.ShapeError{Msg: "Select requires at least one source clip"}
	}
	numPlanes := srcClips[0].NumPlanes()
	if len(exprs) != numPlanes {
		return nil, &vexprerr.ShapeError{Msg: fmt.Sprintf("%d expressions for %d planes", len(exprs), numPlanes)}
	}
	lists := make([]*oplist.List, numPlanes)
	for p, e := range exprs {
		l, err := oplist.Parse(e, len(propClips), oplist.FlavorSelect, token.BoundaryClamp)
		if err != nil {
			return nil, err
		}
		lists[p] = l
	}
	return &SelectFilter{srcClips: srcClips, propClips: propClips, lists: lists}, nil
}

// GetFrame renders output frame n, copying each plane from whichever
// source clip its expression selects.
func (f *SelectFilter) GetFrame(n int, out OutputFrame) error {
	for p, l := range f.lists {
		idx := f.selectIndex(l, n)
		if idx < 0 {
			idx = 0
		}
		if idx >= len(f.srcClips) {
			idx = len(f.srcClips) - 1
		}
		src, err := f.srcClips[idx].GetFrame(n)
		if err != nil {
			return err
		}
		copyPlane(out.Plane(p), src.Plane(p), f.srcClips[idx].Width(p), f.srcClips[idx].Height(p), f.srcClips[idx].Format(p))
	}
	return nil
}

func (f *SelectFilter) selectIndex(l *oplist.List, n int) int {
	propGet := func(clipID int32, name string) (float64, bool) {
		fr, err := f.propClips[clipID].GetFrame(n)
		if err != nil {
			return 0, false
		}
		v, ok := fr.GetProp(name)
		if !ok {
			return 0, false
		}
		return v.AsFloat(), true
	}
	// A runtime interpretation error falls back to a result of 0.
	res, err := interp.Eval(l, float64(n), nil, propGet, false)
	if err != nil {
		res = 0
	}
	return int(math.RoundToEven(res))
}

// DictValue is one PropExpr dict entry: a literal int, int64, or
// float64, or a postfix-expression string, or a slice of any of those
// (selected per-frame by frame_index mod len(list)). Every string is
// parsed as an expression; there are no literal string values.
type DictValue any

type propEntry struct {
	literal *PropValue
	expr    *oplist.List
}

// PropExprFilter is the PropExpr entry point: recomputes a fixed set
// of output properties from per-frame expressions or literal values.
type PropExprFilter struct {
	clips   []Clip
	entries map[string][]propEntry
}

// NewPropExpr parses dict's values into per-property expression lists.
// All setup-time errors are flattened to a single "PropExpr: <message>"
// string.
func NewPropExpr(clips []Clip, dict map[string]DictValue) (f *PropExprFilter, err error) {
	defer func() {
		if err != nil {
			err = diag.Flatten("PropExpr", err)
		}
	}()
	return newPropExpr(clips, dict)
}

func newPropExpr(clips []Clip, dict map[string]DictValue) (*PropExprFilter, error) {
	if err := checkGeometry(clips); err != nil {
		return nil, err
	}
	entries := make(map[string][]propEntry, len(dict))
	for name, raw := range dict {
		items, err := normalizeDictValue(raw, len(clips))
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		entries[name] = items
	}
	return &PropExprFilter{clips: clips, entries: entries}, nil
}

func normalizeDictValue(raw DictValue, numInputs int) ([]propEntry, error) {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case []int:
		for _, i := range v {
			items = append(items, i)
		}
	case []float64:
		for _, fv := range v {
			items = append(items, fv)
		}
	default:
		items = []any{raw}
	}
	if len(items) == 0 {
		return nil, &vexprerr.ShapeError{Msg: "empty dict value list"}
	}
	out := make([]propEntry, len(items))
	for i, it := range items {
		switch v := it.(type) {
		case string:
			l, err := oplist.Parse(v, numInputs, oplist.FlavorPropExpr, token.BoundaryClamp)
			if err != nil {
				return nil, err
			}
			out[i] = propEntry{expr: l}
		case int:
			out[i] = propEntry{literal: &PropValue{I: int64(v)}}
		case int64:
			out[i] = propEntry{literal: &PropValue{I: v}}
		case float64:
			out[i] = propEntry{literal: &PropValue{IsFloat: true, F: v}}
		default:
			return nil, &vexprerr.ShapeError{Msg: fmt.Sprintf("unsupported dict value type %T", it)}
		}
	}
	return out, nil
}

// Apply recomputes every configured property on out for frame n. Names
// are visited in sorted order so that diagnostics and host-side side
// effects observe a stable sequence across runs.
func (f *PropExprFilter) Apply(n int, out OutputFrame) error {
	names := maps.Keys(f.entries)
	sort.Strings(names)
	for _, name := range names {
		items := f.entries[name]
		e := items[n%len(items)]
		if e.literal != nil {
			out.SetProp(name, *e.literal)
			continue
		}
		if len(e.expr.Ops) == 0 {
			out.DeleteProp(name)
			continue
		}
		propGet := func(clipID int32, pname string) (float64, bool) {
			fr, err := f.clips[clipID].GetFrame(n)
			if err != nil {
				return 0, false
			}
			v, ok := fr.GetProp(pname)
			if !ok {
				return 0, false
			}
			return v.AsFloat(), true
		}
		res, err := interp.Eval(e.expr, float64(n), nil, propGet, false)
		if err != nil {
			res = 0
		}
		out.SetProp(name, PropValue{IsFloat: true, F: res})
	}
	return nil
}

// Version reports the feature-discovery payload: the backend
// identity and the supported token lists for Expr and Select.
func Version() map[string]any {
	return map[string]any{
		"expr_backend":    "go-closure",
		"expr_features":   exprFeatures,
		"select_features": selectFeatures,
	}
}

var baseFeatures = []string{
	"+", "-", "*", "/", "%", "sqrt", "abs", "max", "min", "clip", "clamp",
	"<", ">", "=", ">=", "<=", "!=", "trunc", "round", "floor",
	"and", "or", "xor", "not", "bitand", "bitor", "bitxor", "bitnot",
	"?", "exp", "log", "pow", "**", "sin", "cos", "dup", "swap", "drop", "sort",
	"pi", "N", "X", "Y", "width", "height",
}

var exprFeatures = baseFeatures

var selectFeatures = append(append([]string{}, baseFeatures...), "argmin", "argmax", "argsort")
