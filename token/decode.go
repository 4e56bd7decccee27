package token

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coregx/ahocorasick"
	"github.com/coregx/coregex"

	"github.com/SnellerInc/vexpr/vexprerr"
)

// Tokenize splits expression text on ASCII whitespace; empty runs yield
// no token, and order is preserved.
func Tokenize(expr string) []string {
	return strings.FieldsFunc(expr, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\v' || r == '\f' || r == '\r'
	})
}

// fixed operator table, tried before any of the pattern-based rules.
var simpleOps = map[string]Op{
	"+":       {Kind: Add},
	"-":       {Kind: Sub},
	"*":       {Kind: Mul},
	"/":       {Kind: Div},
	"%":       {Kind: Mod},
	"sqrt":    {Kind: Sqrt},
	"abs":     {Kind: Abs},
	"max":     {Kind: Max},
	"min":     {Kind: Min},
	"clip":    {Kind: Clamp}, // AviSynth+ Expr alias for clamp
	"clamp":   {Kind: Clamp},
	"<":       {Kind: Cmp, Cmp: CmpLT},
	">":       {Kind: Cmp, Cmp: CmpGT},
	"=":       {Kind: Cmp, Cmp: CmpEQ},
	">=":      {Kind: Cmp, Cmp: CmpGE},
	"<=":      {Kind: Cmp, Cmp: CmpLE},
	"!=":      {Kind: Cmp, Cmp: CmpNE},
	"trunc":   {Kind: Trunc},
	"round":   {Kind: Round},
	"floor":   {Kind: Floor},
	"and":     {Kind: LogicAnd},
	"or":      {Kind: LogicOr},
	"xor":     {Kind: LogicXor},
	"not":     {Kind: LogicNot},
	"bitand":  {Kind: BitAnd},
	"bitor":   {Kind: BitOr},
	"bitxor":  {Kind: BitXor},
	"bitnot":  {Kind: BitNot},
	"?":       {Kind: Select},
	"exp":     {Kind: Exp},
	"log":     {Kind: Log},
	"pow":     {Kind: Pow},
	"**":      {Kind: Pow},
	"sin":     {Kind: Sin},
	"cos":     {Kind: Cos},
	"pi":      {Kind: ConstFloat, ImmF: float32(3.14159265358979323846)},
	"N":       {Kind: ConstN},
	"X":       {Kind: ConstX},
	"Y":       {Kind: ConstY},
	"width":   {Kind: ConstWidth},
	"height":  {Kind: ConstHeight},
	"dup":     {Kind: Dup, ImmI: 0},
	"swap":    {Kind: Swap, ImmI: 1},
	"drop":    {Kind: Drop, ImmI: 1},
}

// shufflePrefixes is the fixed dictionary used to fast-path-classify a
// token as belonging to the dup/swap/drop/sort/argmin/argmax/argsort
// family before the full regex match runs, trie-matched the way the
// original decoder's substr(0,N)=="..." chain did by hand.
var shufflePrefixes = []string{"dup", "swap", "drop", "sort", "argmin", "argmax", "argsort"}

var shuffleMatcher = mustBuildMatcher(shufflePrefixes)

func mustBuildMatcher(patterns []string) *ahocorasick.Automaton {
	a, err := ahocorasick.NewBuilder().AddStrings(patterns).Build()
	if err != nil {
		panic(err)
	}
	return a
}

func mustCompile(pattern string) *coregex.Regexp {
	re, err := coregex.Compile(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

var (
	reClip      = mustCompile(`^(?:[a-z]|src[0-9]+)$`)
	reVarLoad   = mustCompile(`^([A-Za-z_][A-Za-z0-9_]*)@$`)
	reVarStore  = mustCompile(`^([A-Za-z_][A-Za-z0-9_]*)!$`)
	reShuffle   = mustCompile(`^(dup|swap|drop|sort)([0-9]+)$`)
	reSelectExt = mustCompile(`^(argmin|argmax|argsort)([0-9]+)$`)
	reProp      = mustCompile(`^([a-z]|src[0-9]+)\.([A-Za-z_][A-Za-z0-9_]*)$`)
	reRelPixel  = mustCompile(`^([a-z]|src[0-9]+)\[(-?[0-9]+),(-?[0-9]+)\](:[cm])?$`)
	reAbsPixel  = mustCompile(`^([a-z]|src[0-9]+)\[\]$`)
)

// clipIndex maps a one-letter clip name to its clip id: x=0, y=1, z=2,
// then a=3, b=4, ... in alphabet order (z, x, y excluded from the tail).
func clipIndex(letter byte) int {
	switch letter {
	case 'x':
		return 0
	case 'y':
		return 1
	case 'z':
		return 2
	default:
		return int(letter-'a') + 3
	}
}

func clipIDFromName(name string) (int32, error) {
	if len(name) == 1 && name[0] >= 'a' && name[0] <= 'z' {
		return int32(clipIndex(name[0])), nil
	}
	if strings.HasPrefix(name, "src") {
		n, err := strconv.Atoi(name[3:])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("bad clip id %q", name)
		}
		return int32(n), nil
	}
	return 0, fmt.Errorf("not a clip name %q", name)
}

// Decode maps a single token to its operation record, trying each of
// the nine decode rules in a fixed order. allowSelectExt admits the
// argmin/argmax/argsort family, which is only legal in Select
// expressions.
func Decode(tok string, allowSelectExt bool) (Op, error) {
	// Rule 1: fixed operator table.
	if op, ok := simpleOps[tok]; ok {
		return op, nil
	}

	// Rule 2: clip name.
	if reClip.MatchString(tok) {
		id, err := clipIDFromName(tok)
		if err != nil {
			return Op{}, &vexprerr.LexError{Token: tok, Msg: err.Error()}
		}
		return Op{Kind: LoadRel, ClipID: id}, nil
	}

	// Rule 3: suffixed variable name.
	if m := reVarLoad.FindStringSubmatch(tok); m != nil {
		return Op{Kind: VarLoad, Name: m[1]}, nil
	}
	if m := reVarStore.FindStringSubmatch(tok); m != nil {
		return Op{Kind: VarStore, Name: m[1]}, nil
	}

	// Rules 4/5: stack-shuffle and select-only prefixes, fast-pathed via
	// the Aho-Corasick prefix dictionary before the anchored regex runs.
	if hasAnyPrefix(shuffleMatcher, tok) {
		if m := reShuffle.FindStringSubmatch(tok); m != nil {
			k, err := strconv.Atoi(m[2])
			if err != nil || k < 0 {
				return Op{}, &vexprerr.LexError{Token: tok, Msg: "malformed stack-shuffle index"}
			}
			switch m[1] {
			case "dup":
				return Op{Kind: Dup, ImmI: int32(k)}, nil
			case "swap":
				return Op{Kind: Swap, ImmI: int32(k)}, nil
			case "drop":
				return Op{Kind: Drop, ImmI: int32(k)}, nil
			case "sort":
				return Op{Kind: Sort, ImmI: int32(k)}, nil
			}
		}
		if allowSelectExt {
			if m := reSelectExt.FindStringSubmatch(tok); m != nil {
				k, err := strconv.Atoi(m[2])
				if err != nil || k < 0 {
					return Op{}, &vexprerr.LexError{Token: tok, Msg: "malformed argmin/argmax/argsort index"}
				}
				switch m[1] {
				case "argmin":
					return Op{Kind: ArgMin, ImmI: int32(k)}, nil
				case "argmax":
					return Op{Kind: ArgMax, ImmI: int32(k)}, nil
				case "argsort":
					return Op{Kind: ArgSort, ImmI: int32(k)}, nil
				}
			}
		}
	}

	// Rule 6: frame-property access.
	if m := reProp.FindStringSubmatch(tok); m != nil {
		id, err := clipIDFromName(m[1])
		if err != nil {
			return Op{}, &vexprerr.LexError{Token: tok, Msg: err.Error()}
		}
		return Op{Kind: ConstProp, ClipID: id, Name: m[2]}, nil
	}

	// Rule 7: relative pixel access.
	if m := reRelPixel.FindStringSubmatch(tok); m != nil {
		id, err := clipIDFromName(m[1])
		if err != nil {
			return Op{}, &vexprerr.LexError{Token: tok, Msg: err.Error()}
		}
		dx, _ := strconv.Atoi(m[2])
		dy, _ := strconv.Atoi(m[3])
		boundary := BoundaryUnspecified
		switch m[4] {
		case ":c":
			boundary = BoundaryClamp
		case ":m":
			boundary = BoundaryMirror
		}
		return Op{Kind: LoadRel, ClipID: id, DX: int32(dx), DY: int32(dy), Boundary: boundary}, nil
	}

	// Rule 8: variable-address pixel access.
	if m := reAbsPixel.FindStringSubmatch(tok); m != nil {
		id, err := clipIDFromName(m[1])
		if err != nil {
			return Op{}, &vexprerr.LexError{Token: tok, Msg: err.Error()}
		}
		return Op{Kind: LoadAbs, ClipID: id}, nil
	}

	// Rule 9: numeric literal, integer first (auto-base), then float.
	if op, ok := decodeNumeric(tok); ok {
		return op, nil
	}

	return Op{}, &vexprerr.LexError{Token: tok, Msg: "unknown token"}
}

func hasAnyPrefix(m *ahocorasick.Automaton, tok string) bool {
	hits := m.FindAllOverlapping([]byte(tok))
	for _, hit := range hits {
		if strings.HasPrefix(tok, shufflePrefixes[hit.PatternID]) {
			return true
		}
	}
	return false
}

func decodeNumeric(tok string) (Op, bool) {
	if i, err := strconv.ParseInt(tok, 0, 64); err == nil {
		if i >= -(1<<31) && i <= (1<<31)-1 {
			return Op{Kind: ConstInt, ImmI: int32(i)}, true
		}
		return Op{Kind: ConstFloat, ImmF: float32(i)}, true
	}
	// A token that parses partially as a float (e.g. trailing garbage)
	// must still be rejected outright, so require strconv's own full-
	// token float parse to succeed.
	if f, err := strconv.ParseFloat(tok, 32); err == nil {
		return Op{Kind: ConstFloat, ImmF: float32(f)}, true
	}
	return Op{}, false
}
