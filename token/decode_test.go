package token

import "testing"

func TestTokenizeWhitespaceOnly(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"x 1 +", []string{"x", "1", "+"}},
		{"  x   1  +  ", []string{"x", "1", "+"}},
		{"", nil},
	}
	for _, c := range cases {
		got := Tokenize(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("Tokenize(%q) = %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("Tokenize(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestDecodeClipNames(t *testing.T) {
	cases := map[string]int32{"x": 0, "y": 1, "z": 2, "a": 3, "b": 4, "w": 25}
	for name, id := range cases {
		op, err := Decode(name, false)
		if err != nil {
			t.Fatalf("Decode(%q): %v", name, err)
		}
		if op.Kind != LoadRel || op.ClipID != id {
			t.Fatalf("Decode(%q) = %+v, want clip id %d", name, op, id)
		}
	}
	op, err := Decode("src12", false)
	if err != nil || op.Kind != LoadRel || op.ClipID != 12 {
		t.Fatalf("Decode(src12) = %+v, %v", op, err)
	}
}

func TestDecodeVarAndShuffle(t *testing.T) {
	if op, err := Decode("foo@", false); err != nil || op.Kind != VarLoad || op.Name != "foo" {
		t.Fatalf("foo@ decode = %+v, %v", op, err)
	}
	if op, err := Decode("foo!", false); err != nil || op.Kind != VarStore || op.Name != "foo" {
		t.Fatalf("foo! decode = %+v, %v", op, err)
	}
	if op, err := Decode("dup3", false); err != nil || op.Kind != Dup || op.ImmI != 3 {
		t.Fatalf("dup3 decode = %+v, %v", op, err)
	}
	if op, err := Decode("sort8", false); err != nil || op.Kind != Sort || op.ImmI != 8 {
		t.Fatalf("sort8 decode = %+v, %v", op, err)
	}
	if _, err := Decode("argmin2", false); err == nil {
		t.Fatalf("argmin2 should be rejected when allowSelectExt is false")
	}
	if op, err := Decode("argmin2", true); err != nil || op.Kind != ArgMin || op.ImmI != 2 {
		t.Fatalf("argmin2 decode = %+v, %v", op, err)
	}
}

func TestDecodePixelAccess(t *testing.T) {
	op, err := Decode("x[-1,2]:m", false)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if op.Kind != LoadRel || op.ClipID != 0 || op.DX != -1 || op.DY != 2 || op.Boundary != BoundaryMirror {
		t.Fatalf("x[-1,2]:m decode = %+v", op)
	}
	op, err = Decode("x[]", false)
	if err != nil || op.Kind != LoadAbs || op.ClipID != 0 {
		t.Fatalf("x[] decode = %+v, %v", op, err)
	}
	op, err = Decode("x._SceneChange", false)
	if err != nil || op.Kind != ConstProp || op.ClipID != 0 || op.Name != "_SceneChange" {
		t.Fatalf("x._SceneChange decode = %+v, %v", op, err)
	}
}

func TestDecodeNumeric(t *testing.T) {
	op, err := Decode("42", false)
	if err != nil || op.Kind != ConstInt || op.ImmI != 42 {
		t.Fatalf("42 decode = %+v, %v", op, err)
	}
	op, err = Decode("0x2A", false)
	if err != nil || op.Kind != ConstInt || op.ImmI != 42 {
		t.Fatalf("0x2A decode = %+v, %v", op, err)
	}
	op, err = Decode("1.5", false)
	if err != nil || op.Kind != ConstFloat || op.ImmF != 1.5 {
		t.Fatalf("1.5 decode = %+v, %v", op, err)
	}
	if _, err := Decode("1.5x", false); err == nil {
		t.Fatalf("partially-numeric token should be rejected")
	}
	if _, err := Decode("bogus$$", false); err == nil {
		t.Fatalf("unknown token should be rejected")
	}
}
