package oplist

import (
	"testing"

	"github.com/SnellerInc/vexpr/token"
)

func TestParseSimple(t *testing.T) {
	l, err := Parse("x 1 +", 1, FlavorExpr, token.BoundaryClamp)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(l.Ops) != 3 {
		t.Fatalf("got %d ops, want 3", len(l.Ops))
	}
}

func TestParseUndefinedClip(t *testing.T) {
	if _, err := Parse("y 1 +", 1, FlavorExpr, token.BoundaryClamp); err == nil {
		t.Fatalf("expected a reference error for clip y with numInputs=1")
	}
}

func TestParseVarLoadBeforeStore(t *testing.T) {
	if _, err := Parse("foo@", 1, FlavorExpr, token.BoundaryClamp); err == nil {
		t.Fatalf("expected a reference error for var load before store")
	}
}

func TestParseStackUnderflow(t *testing.T) {
	if _, err := Parse("+", 1, FlavorExpr, token.BoundaryClamp); err == nil {
		t.Fatalf("expected a stack error for underflow")
	}
}

func TestParseResidualDepth(t *testing.T) {
	if _, err := Parse("1 2", 1, FlavorExpr, token.BoundaryClamp); err == nil {
		t.Fatalf("expected a stack error for residual depth 2")
	}
}

func TestParsePropSlots(t *testing.T) {
	l, err := Parse("x._SceneChange y._SceneChange +", 2, FlavorExpr, token.BoundaryClamp)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(l.PropSlots) != 2 {
		t.Fatalf("got %d prop slots, want 2", len(l.PropSlots))
	}
	if l.Ops[0].ImmI != 1 || l.Ops[1].ImmI != 2 {
		t.Fatalf("prop slot indices not assigned densely starting at 1: %+v %+v", l.Ops[0], l.Ops[1])
	}
}

func TestParseVarSlots(t *testing.T) {
	l, err := Parse("1 foo! foo@ 2 bar! bar@ +", 1, FlavorExpr, token.BoundaryClamp)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(l.VarNames) != 2 || l.VarNames[0] != "foo" || l.VarNames[1] != "bar" {
		t.Fatalf("var slots = %v", l.VarNames)
	}
}

func TestParseEmptyPropExprIsLegal(t *testing.T) {
	l, err := Parse("", 1, FlavorPropExpr, token.BoundaryClamp)
	if err != nil {
		t.Fatalf("empty PropExpr should be a legal no-op: %v", err)
	}
	if len(l.Ops) != 0 {
		t.Fatalf("expected no ops, got %d", len(l.Ops))
	}
}

func TestParseEmptyExprIsError(t *testing.T) {
	if _, err := Parse("", 1, FlavorExpr, token.BoundaryClamp); err == nil {
		t.Fatalf("empty Expr expression should be an error")
	}
}

func TestParseArgMinOnlyInSelect(t *testing.T) {
	if _, err := Parse("1 2 3 argmin3", 1, FlavorExpr, token.BoundaryClamp); err == nil {
		t.Fatalf("argmin3 should be rejected outside Select")
	}
	if _, err := Parse("1 2 3 argmin3", 1, FlavorSelect, token.BoundaryClamp); err != nil {
		t.Fatalf("argmin3 should be legal in Select: %v", err)
	}
}
