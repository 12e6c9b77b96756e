package ast

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hlsc-project/hlsc/internal/diag"
)

// rawNode mirrors the JSON AST wire shape described in §6: a closed
// TYNAME tag set with payload fields OP0..OPn, STRING, INT, VALUES, SIZE,
// GLOBAL, STRUCT, OFFSET, TYPESIZE, VALUE.
type rawNode struct {
	Tyname   string            `json:"TYNAME"`
	OP0      json.RawMessage   `json:"OP0,omitempty"`
	OP1      json.RawMessage   `json:"OP1,omitempty"`
	OP2      json.RawMessage   `json:"OP2,omitempty"`
	String_  string            `json:"STRING,omitempty"`
	Int_     string            `json:"INT,omitempty"`
	Values   []json.RawMessage `json:"VALUES,omitempty"`
	Size     int               `json:"SIZE,omitempty"`
	Global   bool              `json:"GLOBAL,omitempty"`
	Struct   string            `json:"STRUCT,omitempty"`
	Offset   int               `json:"OFFSET,omitempty"`
	TypeSize int               `json:"TYPESIZE,omitempty"`
	Value    json.RawMessage   `json:"VALUE,omitempty"`
}

// closed TYNAME tag set, per §6.
const (
	tyBlock        = "BLOCK"
	tyAssign       = "ASSIGN"
	tyIf           = "IF"
	tyReturn       = "RETURN"
	tyNop          = "NOP"
	tyFunctionCall = "FUNCTION_CALL"
	tyCast         = "CAST"
	tyDot          = "DOT"
	tySlice        = "SLICE"
	tyIndex        = "INDEX"
	tyIntLit       = "INT_LIT"
	tyList         = "LIST"
	tyIdent        = "IDENT"
)

var binaryTags = map[string]BinaryOp{
	"ADD": BinAdd, "SUB": BinSub, "MUL": BinMul, "DIV": BinDiv, "MOD": BinMod,
	"BAND": BinAnd, "BOR": BinOr, "BXOR": BinXor, "SHL": BinShl, "SHR": BinShr,
	"LAND": BinLogicalAnd, "LOR": BinLogicalOr,
	"EQ": BinEq, "NE": BinNe, "LT": BinLt, "LE": BinLe, "GT": BinGt, "GE": BinGe,
}

var unaryTags = map[string]UnaryOp{
	"NEG": UnNeg,
	"NOT": UnNot,
}

// Decode parses the JSON action tree in data into a fresh Arena, returning
// the arena and the id of its Module root. Diagnostics for recoverable
// issues (e.g. a SLICE with non-integer bounds, silently reduced to the
// full slice per §6) are reported through r; malformed input (missing
// TYNAME, unknown tag, missing required field) is reported as a
// diag.KindInvalidArgument error and aborts the decode.
func Decode(data []byte, r *diag.Reporter) (*Arena, NodeID, error) {
	var root rawNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, InvalidNode, diag.Errorf(diag.KindInvalidArgument, "malformed JSON: %v", err)
	}
	a := NewArena()
	d := &decoder{arena: a, reporter: r}
	bodyRaw := root
	// The top-level node is itself the module body, conventionally a BLOCK.
	bodyID, err := d.decodeStmt(&bodyRaw, "$")
	if err != nil {
		return nil, InvalidNode, err
	}
	modID := a.NewModule(bodyID)
	return a, modID, nil
}

type decoder struct {
	arena    *Arena
	reporter *diag.Reporter
}

func (d *decoder) fail(path string, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if d.reporter != nil {
		d.reporter.Error(path, msg)
	}
	return diag.Errorf(diag.KindInvalidArgument, "%s", msg).WithNode(path)
}

func (d *decoder) decodeRaw(raw json.RawMessage, path string) (*rawNode, error) {
	var n rawNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, d.fail(path, "malformed node: %v", err)
	}
	if n.Tyname == "" {
		return nil, d.fail(path, "missing TYNAME field")
	}
	return &n, nil
}

func (d *decoder) decodeStmt(n *rawNode, path string) (NodeID, error) {
	switch n.Tyname {
	case tyBlock:
		if n.OP0 == nil {
			return InvalidNode, d.fail(path, "BLOCK requires OP0 (name)")
		}
		nameNode, err := d.decodeRaw(n.OP0, path+"/OP0")
		if err != nil {
			return InvalidNode, err
		}
		if nameNode.Tyname != tyIdent {
			return InvalidNode, d.fail(path+"/OP0", "BLOCK's OP0 must be an IDENT, got %q", nameNode.Tyname)
		}
		if n.OP1 == nil {
			// No OP1 at all: an empty block.
			return d.arena.NewBlock(nameNode.String_, nil), nil
		}
		op1, err := d.decodeRaw(n.OP1, path+"/OP1")
		if err != nil {
			return InvalidNode, err
		}
		if op1.Tyname == tyBlock {
			// Inner nested block: recurse, discarding this level's own name.
			return d.decodeStmt(op1, path+"/OP1")
		}
		if op1.Tyname != tyList {
			return InvalidNode, d.fail(path+"/OP1", "BLOCK's OP1 must be a LIST or a nested BLOCK, got %q", op1.Tyname)
		}
		var stmts []NodeID
		for i, raw := range op1.Values {
			child, err := d.decodeRaw(raw, fmt.Sprintf("%s/OP1/VALUES[%d]", path, i))
			if err != nil {
				return InvalidNode, err
			}
			id, err := d.decodeStmt(child, fmt.Sprintf("%s/OP1/VALUES[%d]", path, i))
			if err != nil {
				return InvalidNode, err
			}
			stmts = append(stmts, id)
		}
		return d.arena.NewBlock(nameNode.String_, stmts), nil
	case tyAssign:
		if n.OP0 == nil || n.OP1 == nil {
			return InvalidNode, d.fail(path, "ASSIGN requires OP0 (lvalue) and OP1 (rhs)")
		}
		lv, err := d.decodeChildExpr(n.OP0, path+"/OP0")
		if err != nil {
			return InvalidNode, err
		}
		rhs, err := d.decodeChildExpr(n.OP1, path+"/OP1")
		if err != nil {
			return InvalidNode, err
		}
		return d.arena.NewAssign(lv, rhs), nil
	case tyIf:
		if n.OP0 == nil || n.OP1 == nil {
			return InvalidNode, d.fail(path, "IF requires OP0 (cond) and OP1 (then)")
		}
		cond, err := d.decodeChildExpr(n.OP0, path+"/OP0")
		if err != nil {
			return InvalidNode, err
		}
		thenRaw, err := d.decodeRaw(n.OP1, path+"/OP1")
		if err != nil {
			return InvalidNode, err
		}
		then, err := d.decodeStmt(thenRaw, path+"/OP1")
		if err != nil {
			return InvalidNode, err
		}
		if n.OP2 != nil {
			elseRaw, err := d.decodeRaw(n.OP2, path+"/OP2")
			if err != nil {
				return InvalidNode, err
			}
			els, err := d.decodeStmt(elseRaw, path+"/OP2")
			if err != nil {
				return InvalidNode, err
			}
			return d.arena.NewIfElse(cond, then, els), nil
		}
		return d.arena.NewIf(cond, then), nil
	case tyReturn:
		return d.arena.NewReturn(), nil
	case tyNop:
		return d.arena.NewNop(), nil
	default:
		// A bare expression used as a statement (ExprEval), or an
		// expression-kind tag appearing where a statement was expected.
		id, err := d.decodeExpr(n, path)
		if err != nil {
			return InvalidNode, err
		}
		return d.arena.NewExprEval(id), nil
	}
}

func (d *decoder) decodeChildExpr(raw json.RawMessage, path string) (NodeID, error) {
	n, err := d.decodeRaw(raw, path)
	if err != nil {
		return InvalidNode, err
	}
	return d.decodeExpr(n, path)
}

func (d *decoder) decodeExpr(n *rawNode, path string) (NodeID, error) {
	if op, ok := binaryTags[n.Tyname]; ok {
		if n.OP0 == nil || n.OP1 == nil {
			return InvalidNode, d.fail(path, "%s requires OP0 and OP1", n.Tyname)
		}
		lhs, err := d.decodeChildExpr(n.OP0, path+"/OP0")
		if err != nil {
			return InvalidNode, err
		}
		rhs, err := d.decodeChildExpr(n.OP1, path+"/OP1")
		if err != nil {
			return InvalidNode, err
		}
		return d.arena.NewBinaryExpr(op, lhs, rhs), nil
	}
	if op, ok := unaryTags[n.Tyname]; ok {
		if n.OP0 == nil {
			return InvalidNode, d.fail(path, "%s requires OP0", n.Tyname)
		}
		expr, err := d.decodeChildExpr(n.OP0, path+"/OP0")
		if err != nil {
			return InvalidNode, err
		}
		return d.arena.NewUnaryExpr(op, expr), nil
	}

	switch n.Tyname {
	case tyIdent:
		return d.arena.NewNameRef(n.String_), nil
	case tyIntLit:
		v, err := decodeReversedDecimal(n.Int_)
		if err != nil {
			return InvalidNode, d.fail(path, "bad INT_LIT: %v", err)
		}
		width := n.Size
		if width == 0 {
			width = 32
		}
		if width <= 64 {
			return d.arena.NewIntLiteral(v, width, n.String_), nil
		}
		return d.arena.NewLongIntLiteral([]uint64{v}), nil
	case tyList:
		var words []uint64
		for i, raw := range n.Values {
			var lit rawNode
			if err := json.Unmarshal(raw, &lit); err != nil {
				return InvalidNode, d.fail(fmt.Sprintf("%s/VALUES[%d]", path, i), "bad LIST element: %v", err)
			}
			v, err := decodeReversedDecimal(lit.Int_)
			if err != nil {
				return InvalidNode, d.fail(path, "bad LIST element: %v", err)
			}
			words = append(words, v)
		}
		return d.arena.NewLongIntLiteral(words), nil
	case tyDot:
		if n.OP0 == nil || n.OP1 == nil {
			return InvalidNode, d.fail(path, "DOT requires OP0 (source) and OP1 (field name)")
		}
		source, err := d.decodeChildExpr(n.OP0, path+"/OP0")
		if err != nil {
			return InvalidNode, err
		}
		fieldNode, err := d.decodeRaw(n.OP1, path+"/OP1")
		if err != nil {
			return InvalidNode, err
		}
		if fieldNode.Tyname != tyIdent {
			return InvalidNode, d.fail(path+"/OP1", "DOT's OP1 must be an IDENT, got %q", fieldNode.Tyname)
		}
		// The (struct_var, offset, size, is_global) flattening annotation is
		// optional and, when present, always carries all four fields
		// together; StructVar == "" signals it is absent.
		return d.arena.NewFieldAccess(source, fieldNode.String_, n.Struct, n.Offset, n.Size, n.Global), nil
	case tySlice:
		if n.OP0 == nil {
			return InvalidNode, d.fail(path, "SLICE requires OP0 (target)")
		}
		target, err := d.decodeChildExpr(n.OP0, path+"/OP0")
		if err != nil {
			return InvalidNode, err
		}
		hi, hiOK := sliceBoundInt(n.OP1)
		lo, loOK := sliceBoundInt(n.OP2)
		if !hiOK || !loOK {
			// A SLICE with non-integer bounds denotes the full slice and
			// is removed by the parser (§6): collapse to a no-op pass
			// through of the target rather than emitting a BitSlice node.
			if d.reporter != nil {
				d.reporter.Warning(path, "non-integer SLICE bounds, treating as full-width slice")
			}
			return target, nil
		}
		return d.arena.NewBitSlice(target, hi, lo), nil
	case tyIndex:
		if n.OP0 == nil || n.OP1 == nil {
			return InvalidNode, d.fail(path, "INDEX requires OP0 (source) and OP1 (index)")
		}
		source, err := d.decodeChildExpr(n.OP0, path+"/OP0")
		if err != nil {
			return InvalidNode, err
		}
		index, err := d.decodeChildExpr(n.OP1, path+"/OP1")
		if err != nil {
			return InvalidNode, err
		}
		return d.arena.NewArrIndex(source, index), nil
	case tyCast:
		if n.OP0 == nil {
			return InvalidNode, d.fail(path, "CAST requires OP0 (expr)")
		}
		expr, err := d.decodeChildExpr(n.OP0, path+"/OP0")
		if err != nil {
			return InvalidNode, err
		}
		return d.arena.NewCast(expr, n.Size), nil
	case tyFunctionCall:
		if n.OP0 == nil || n.OP1 == nil {
			return InvalidNode, d.fail(path, "FUNCTION_CALL requires OP0 (name) and OP1 (args)")
		}
		nameNode, err := d.decodeRaw(n.OP0, path+"/OP0")
		if err != nil {
			return InvalidNode, err
		}
		argsNode, err := d.decodeRaw(n.OP1, path+"/OP1")
		if err != nil {
			return InvalidNode, err
		}
		if argsNode.Tyname != tyList {
			return InvalidNode, d.fail(path+"/OP1", "FUNCTION_CALL's OP1 must be a LIST, got %q", argsNode.Tyname)
		}
		var args []NodeID
		for i, raw := range argsNode.Values {
			a, err := d.decodeChildExpr(raw, fmt.Sprintf("%s/OP1/VALUES[%d]", path, i))
			if err != nil {
				return InvalidNode, err
			}
			args = append(args, a)
		}
		return d.arena.NewBuiltinCall(nameNode.String_, args), nil
	default:
		return InvalidNode, d.fail(path, "unrecognized TYNAME %q", n.Tyname)
	}
}

func sliceBoundInt(raw json.RawMessage) (int, bool) {
	if raw == nil {
		return 0, false
	}
	var n rawNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	if n.Tyname != tyIntLit {
		return 0, false
	}
	v, err := decodeReversedDecimal(n.Int_)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// decodeReversedDecimal parses an integer literal whose decimal digit
// string is stored character-reversed, per §6.
func decodeReversedDecimal(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	reversed := []byte(s)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	return strconv.ParseUint(strings.TrimSpace(string(reversed)), 10, 64)
}
