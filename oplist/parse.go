package oplist

import (
	"github.com/SnellerInc/vexpr/token"
)

// Parse tokenizes and decodes expr, then validates the resulting
// operation stream. This is the common entry point used by Expr,
// Select, and PropExpr alike.
func Parse(expr string, numInputs int, flavor Flavor, defaultBoundary token.Boundary) (*List, error) {
	toks := token.Tokenize(expr)
	allowExt := flavor == FlavorSelect
	ops := make([]token.Op, 0, len(toks))
	for _, t := range toks {
		op, err := token.Decode(t, allowExt)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return Build(ops, numInputs, flavor, defaultBoundary)
}
