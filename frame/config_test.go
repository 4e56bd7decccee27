package frame

import (
	"testing"

	"github.com/SnellerInc/vexpr/vecjit"
)

func TestParseExprConfigYAML(t *testing.T) {
	cfg, err := ParseExprConfig([]byte("exprs:\n  - \"x 1 +\"\nboundary: mirror\n"))
	if err != nil {
		t.Fatalf("ParseExprConfig: %v", err)
	}
	if len(cfg.Exprs) != 1 || cfg.Exprs[0] != "x 1 +" {
		t.Fatalf("Exprs = %v", cfg.Exprs)
	}
	if cfg.boundaryOpt() != 1 {
		t.Fatalf("boundaryOpt() = %d, want 1 (mirror)", cfg.boundaryOpt())
	}
}

func TestNewExprFromConfig(t *testing.T) {
	clip := newFakeClip(2, 2, 1, u8())
	cfg, err := ParseExprConfig([]byte(`{"exprs": ["x 1 +"]}`))
	if err != nil {
		t.Fatalf("ParseExprConfig: %v", err)
	}
	f, err := NewExprFromConfig([]Clip{clip}, cfg, nil)
	if err != nil {
		t.Fatalf("NewExprFromConfig: %v", err)
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

func TestNewPropExprFromConfig(t *testing.T) {
	clip := newFakeClip(1, 1, 3, u8())
	cfg, err := ParsePropExprConfig([]byte("dict:\n  _Dur: \"N 1 +\"\n"))
	if err != nil {
		t.Fatalf("ParsePropExprConfig: %v", err)
	}
	pf, err := NewPropExprFromConfig([]Clip{clip}, cfg)
	if err != nil {
		t.Fatalf("NewPropExprFromConfig: %v", err)
	}
	fr, _ := clip.GetFrame(1)
	ff := fr.(*fakeFrame)
	if err := pf.Apply(1, ff); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	v, ok := ff.GetProp("_Dur")
	if !ok || v.AsFloat() != 2 {
		t.Fatalf("_Dur = %v, %v, want 2", v, ok)
	}
}
