package frame

import (
	"testing"

	"github.com/SnellerInc/vexpr/vecjit"
)

type fakeFrame struct {
	planes []vecjit.Plane
	props  map[string]PropValue
}

func (f *fakeFrame) NumPlanes() int               { return len(f.planes) }
func (f *fakeFrame) Plane(i int) vecjit.Plane      { return f.planes[i] }
func (f *fakeFrame) GetProp(name string) (PropValue, bool) {
	v, ok := f.props[name]
	return v, ok
}
func (f *fakeFrame) SetProp(name string, v PropValue) {
	if f.props == nil {
		f.props = map[string]PropValue{}
	}
	f.props[name] = v
}
func (f *fakeFrame) DeleteProp(name string) { delete(f.props, name) }

type fakeClip struct {
	w, h     int
	format   PixelFormat
	numFrame int
	frames   map[int]*fakeFrame
}

func newFakeClip(w, h, numFrames int, format PixelFormat) *fakeClip {
	return &fakeClip{w: w, h: h, format: format, numFrame: numFrames, frames: map[int]*fakeFrame{}}
}

func (c *fakeClip) NumPlanes() int          { return 1 }
func (c *fakeClip) Width(int) int           { return c.w }
func (c *fakeClip) Height(int) int          { return c.h }
func (c *fakeClip) Format(int) PixelFormat  { return c.format }
func (c *fakeClip) NumFrames() int          { return c.numFrame }

func (c *fakeClip) GetFrame(n int) (Frame, error) {
	if fr, ok := c.frames[n]; ok {
		return fr, nil
	}
	stride := c.w * c.format.Bytes
	fr := &fakeFrame{
		planes: []vecjit.Plane{{Data: make([]byte, stride*c.h), Stride: stride, Format: c.format, Width: c.w, Height: c.h}},
	}
	c.frames[n] = fr
	return fr, nil
}

func u8() PixelFormat { return PixelFormat{Bytes: 1, Bits: 8} }

func TestExprAddOne(t *testing.T) {
	clip := newFakeClip(2, 2, 1, u8())
	f, err := NewExpr([]Clip{clip}, []string{"x 1 +"}, nil, 0, 0)
	if err != nil {
		t.Fatalf("NewExpr: %v", err)
	}
	out := &fakeFrame{planes: []vecjit.Plane{{Data: make([]byte, 4), Stride: 2, Format: u8(), Width: 2, Height: 2}}}
	if err := f.GetFrame(0, out); err != nil {
		t.Fatalf("GetFrame: %v", err)
	}
	for _, b := range out.planes[0].Data {
		if b != 1 {
			t.Fatalf("output byte = %d, want 1", b)
		}
	}
}

func TestPropExprDur(t *testing.T) {
	clip := newFakeClip(1, 1, 3, u8())
	pf, err := NewPropExpr([]Clip{clip}, map[string]DictValue{"_Dur": "N 1 +"})
	if err != nil {
		t.Fatalf("NewPropExpr: %v", err)
	}
	for n := 0; n < 3; n++ {
		fr, _ := clip.GetFrame(n)
		ff := fr.(*fakeFrame)
		if err := pf.Apply(n, ff); err != nil {
			t.Fatalf("Apply(%d): %v", n, err)
		}
		v, ok := ff.GetProp("_Dur")
		if !ok || v.AsFloat() != float64(n+1) {
			t.Fatalf("frame %d _Dur = %v, %v, want %d", n, v, ok, n+1)
		}
	}
}

func TestSelectByProperty(t *testing.T) {
	a := newFakeClip(1, 1, 2, u8())
	b := newFakeClip(1, 1, 2, u8())
	fa0, _ := a.GetFrame(0)
	fa0.(*fakeFrame).planes[0].Data[0] = 11
	fb1, _ := b.GetFrame(1)
	fb1.(*fakeFrame).planes[0].Data[0] = 22

	propClip := newFakeClip(1, 1, 2, u8())
	f0, _ := propClip.GetFrame(0)
	f0.(*fakeFrame).SetProp("_SceneChange", PropValue{I: 0})
	f1, _ := propClip.GetFrame(1)
	f1.(*fakeFrame).SetProp("_SceneChange", PropValue{I: 1})

	sf, err := NewSelect([]Clip{a, b}, []Clip{propClip}, []string{"x._SceneChange"})
	if err != nil {
		t.Fatalf("NewSelect: %v", err)
	}

	out := &fakeFrame{planes: []vecjit.Plane{{Data: make([]byte, 1), Stride: 1, Format: u8(), Width: 1, Height: 1}}}
	if err := sf.GetFrame(0, out); err != nil {
		t.Fatalf("GetFrame(0): %v", err)
	}
	if out.planes[0].Data[0] != 11 {
		t.Fatalf("frame 0 selected byte = %d, want 11 (clip a)", out.planes[0].Data[0])
	}

	out2 := &fakeFrame{planes: []vecjit.Plane{{Data: make([]byte, 1), Stride: 1, Format: u8(), Width: 1, Height: 1}}}
	if err := sf.GetFrame(1, out2); err != nil {
		t.Fatalf("GetFrame(1): %v", err)
	}
	if out2.planes[0].Data[0] != 22 {
		t.Fatalf("frame 1 selected byte = %d, want 22 (clip b)", out2.planes[0].Data[0])
	}
}

func TestVersion(t *testing.T) {
	v := Version()
	if v["expr_backend"] != "go-closure" {
		t.Fatalf("expr_backend = %v", v["expr_backend"])
	}
}
