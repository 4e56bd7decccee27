// Package oplist validates a decoded token.Op stream against the
// stack-discipline preconditions and assigns dense integer slots to
// named variables and (clip, property) pairs, so neither the
// interpreter nor the vector engine does name lookup at runtime.
package oplist

import (
	"fmt"

	"github.com/SnellerInc/vexpr/token"
	"github.com/SnellerInc/vexpr/vexprerr"
)

// Flavor selects which expression family an operation stream belongs
// to: it controls whether the argmin/argmax/argsort extensions are
// legal and whether an empty stream is acceptable.
type Flavor int

const (
	FlavorExpr Flavor = iota
	FlavorSelect
	FlavorPropExpr
)

// PropSlot is one resolved (clip, name) frame-property reference. Slot
// 0 is reserved for the frame number N by the frame driver; property
// slots are numbered starting at 1.
type PropSlot struct {
	ClipID int32
	Name   string
}

// List is a validated operation stream plus its resolved slot tables.
type List struct {
	Ops       []token.Op
	NumInputs int
	Flavor    Flavor

	PropSlots []PropSlot      // index i -> slot i+1 in the constants array
	VarNames  []string        // index i -> variable slot i
	propIndex map[PropSlot]int32
	varIndex  map[string]int32
}

// Build validates ops against numInputs declared clips and the given
// default boundary, resolving property and variable names to dense
// slots. defaultBoundary fills in any token.BoundaryUnspecified loads.
func Build(ops []token.Op, numInputs int, flavor Flavor, defaultBoundary token.Boundary) (*List, error) {
	if len(ops) == 0 {
		if flavor == FlavorPropExpr {
			return &List{NumInputs: numInputs, Flavor: flavor}, nil
		}
		return nil, &vexprerr.StackError{Pos: 0, Msg: "empty expression"}
	}

	l := &List{
		NumInputs: numInputs,
		Flavor:    flavor,
		propIndex: map[PropSlot]int32{},
		varIndex:  map[string]int32{},
	}

	depth := 0
	for i, op := range ops {
		if op.Kind == token.LoadRel || op.Kind == token.LoadAbs {
			if op.ClipID < 0 || int(op.ClipID) >= numInputs {
				return nil, &vexprerr.RefError{Msg: fmt.Sprintf("op %d: clip id %d out of range [0,%d)", i, op.ClipID, numInputs)}
			}
		}
		if op.Kind == token.ConstProp {
			if op.ClipID < 0 || int(op.ClipID) >= numInputs {
				return nil, &vexprerr.RefError{Msg: fmt.Sprintf("op %d: property clip id %d out of range [0,%d)", i, op.ClipID, numInputs)}
			}
		}

		switch op.Kind {
		case token.ArgMin, token.ArgMax, token.ArgSort:
			if flavor != FlavorSelect {
				return nil, &vexprerr.RefError{Msg: fmt.Sprintf("op %d: argmin/argmax/argsort only legal in Select expressions", i)}
			}
		}

		pops, pushes := token.Arity(op.Kind, op.ImmI)
		switch op.Kind {
		case token.Dup:
			if depth <= int(op.ImmI) {
				return nil, &vexprerr.StackError{Pos: i, Msg: fmt.Sprintf("dup%d needs depth > %d, have %d", op.ImmI, op.ImmI, depth)}
			}
			depth += 1
		case token.Swap:
			if depth <= int(op.ImmI) {
				return nil, &vexprerr.StackError{Pos: i, Msg: fmt.Sprintf("swap%d needs depth > %d, have %d", op.ImmI, op.ImmI, depth)}
			}
		case token.Drop, token.Sort, token.ArgSort:
			if depth < int(op.ImmI) {
				return nil, &vexprerr.StackError{Pos: i, Msg: fmt.Sprintf("needs depth >= %d, have %d", op.ImmI, depth)}
			}
			depth = depth - pops + pushes
		case token.ArgMin, token.ArgMax:
			if depth < int(op.ImmI) {
				return nil, &vexprerr.StackError{Pos: i, Msg: fmt.Sprintf("needs depth >= %d, have %d", op.ImmI, depth)}
			}
			depth = depth - pops + pushes
		case token.VarLoad:
			if _, ok := l.varIndex[op.Name]; !ok {
				return nil, &vexprerr.RefError{Msg: fmt.Sprintf("op %d: variable %q read before store", i, op.Name)}
			}
			ops[i].VarSlot = l.varIndex[op.Name]
			depth++
		case token.VarStore:
			if depth < 1 {
				return nil, &vexprerr.StackError{Pos: i, Msg: "store needs depth >= 1"}
			}
			if _, ok := l.varIndex[op.Name]; !ok {
				slot := int32(len(l.VarNames))
				l.varIndex[op.Name] = slot
				l.VarNames = append(l.VarNames, op.Name)
			}
			ops[i].VarSlot = l.varIndex[op.Name]
			depth--
		case token.ConstProp:
			key := PropSlot{ClipID: op.ClipID, Name: op.Name}
			if _, ok := l.propIndex[key]; !ok {
				slot := int32(len(l.PropSlots)) + 1 // slot 0 reserved for N
				l.propIndex[key] = slot
				l.PropSlots = append(l.PropSlots, key)
			}
			ops[i].ImmI = l.propIndex[key]
			depth++
		case token.LoadRel:
			if op.Boundary == token.BoundaryUnspecified {
				ops[i].Boundary = defaultBoundary
			}
			if depth < 0 {
				return nil, &vexprerr.StackError{Pos: i, Msg: "stack underflow"}
			}
			depth++
		default:
			if depth < pops {
				return nil, &vexprerr.StackError{Pos: i, Msg: fmt.Sprintf("stack underflow: need %d, have %d", pops, depth)}
			}
			depth = depth - pops + pushes
		}
	}

	if depth != 1 {
		return nil, &vexprerr.StackError{Pos: len(ops) - 1, Msg: fmt.Sprintf("expression must leave exactly one value on the stack, left %d", depth)}
	}

	l.Ops = ops
	return l, nil
}
