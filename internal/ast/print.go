package ast

import (
	"fmt"
	"strings"
)

// Sprint renders the node at id as a single-line debug form, used in
// diagnostics and fatal invariant-violation messages (§7: "a diagnostic
// including the offending node's printed form").
func Sprint(a *Arena, id NodeID) string {
	if id == InvalidNode {
		return "<invalid>"
	}
	n := a.Get(id)
	switch v := n.(type) {
	case *NameRef:
		return fmt.Sprintf("NameRef(%s)", v.Name)
	case *VarRef:
		return fmt.Sprintf("VarRef(->%d)", v.Def)
	case *FieldAccess:
		return fmt.Sprintf("FieldAccess(%d.%s, struct=%s, off=%d, size=%d)", v.Source, v.Field, v.StructVar, v.Offset, v.Size)
	case *ArrIndex:
		return fmt.Sprintf("ArrIndex(%d[%d])", v.Source, v.Index)
	case *BitSlice:
		return fmt.Sprintf("BitSlice(%d[%d:%d])", v.Target, v.Hi, v.Lo)
	case *Cast:
		return fmt.Sprintf("Cast(%d, width=%d)", v.Expr, v.Width)
	case *UnaryExpr:
		return fmt.Sprintf("UnaryOp(%s, %d)", unaryOpName(v.Op), v.Expr)
	case *BinaryExpr:
		return fmt.Sprintf("BinaryOp(%s, %d, %d)", binaryOpName(v.Op), v.Lhs, v.Rhs)
	case *IntLiteral:
		return fmt.Sprintf("IntLiteral(%d, width=%d)", v.Value, v.Width)
	case *LongIntLiteral:
		return fmt.Sprintf("LongIntLiteral(words=%d)", len(v.Words))
	case *BuiltinCall:
		return fmt.Sprintf("BuiltinCall(%s, args=%v)", v.Name, v.Args)
	case *Assign:
		return fmt.Sprintf("Assign(%d = %d)", v.Lvalue, v.Rhs)
	case *If:
		return fmt.Sprintf("If(%d){%d}", v.Cond, v.Then)
	case *IfElse:
		return fmt.Sprintf("IfElse(%d){%d}else{%d}", v.Cond, v.Then, v.Else)
	case *Block:
		return fmt.Sprintf("Block(%q, %d stmts)", v.Name, len(v.Stmts))
	case *ExprEval:
		return fmt.Sprintf("ExprEval(%d)", v.Expr)
	case *Return:
		return "Return"
	case *Nop:
		return "Nop"
	case *Module:
		return fmt.Sprintf("Module(body=%d)", v.Body)
	case *TypeAnnotation:
		return fmt.Sprintf("TypeAnnotation(width=%d, name=%s)", v.Width, v.Name)
	case *FakeVarDef:
		return fmt.Sprintf("FakeVarDef(%s, width=%d, known=%v, global=%v)", v.Name, v.Width, v.WidthKnown, v.IsGlobal)
	default:
		return "<unknown>"
	}
}

func unaryOpName(op UnaryOp) string {
	switch op {
	case UnNeg:
		return "-"
	case UnNot:
		return "!"
	default:
		return "?"
	}
}

func binaryOpName(op BinaryOp) string {
	names := map[BinaryOp]string{
		BinAdd: "+", BinSub: "-", BinMul: "*", BinDiv: "/", BinMod: "%",
		BinAnd: "&", BinOr: "|", BinXor: "^", BinShl: "<<", BinShr: ">>",
		BinLogicalAnd: "&&", BinLogicalOr: "||",
		BinEq: "==", BinNe: "!=", BinLt: "<", BinLe: "<=", BinGt: ">", BinGe: ">=",
	}
	if s, ok := names[op]; ok {
		return s
	}
	return "?"
}

// DumpTree renders the subtree rooted at id as indented text, for debugging
// and for the round-trip tests in §8.
func DumpTree(a *Arena, id NodeID) string {
	var sb strings.Builder
	dumpTree(a, id, 0, &sb)
	return sb.String()
}

func dumpTree(a *Arena, id NodeID, depth int, sb *strings.Builder) {
	if id == InvalidNode {
		return
	}
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(Sprint(a, id))
	sb.WriteByte('\n')
	for _, child := range children(a.Get(id)) {
		dumpTree(a, child, depth+1, sb)
	}
}

// Children returns the direct child node ids of n, in the order a
// traversal should visit them.
func Children(n Node) []NodeID { return children(n) }

func children(n Node) []NodeID {
	switch v := n.(type) {
	case *FieldAccess:
		return []NodeID{v.Source}
	case *ArrIndex:
		return []NodeID{v.Source, v.Index}
	case *BitSlice:
		return []NodeID{v.Target}
	case *Cast:
		return []NodeID{v.Expr}
	case *UnaryExpr:
		return []NodeID{v.Expr}
	case *BinaryExpr:
		return []NodeID{v.Lhs, v.Rhs}
	case *BuiltinCall:
		return v.Args
	case *Assign:
		return []NodeID{v.Lvalue, v.Rhs}
	case *If:
		return []NodeID{v.Cond, v.Then}
	case *IfElse:
		return []NodeID{v.Cond, v.Then, v.Else}
	case *Block:
		return v.Stmts
	case *ExprEval:
		return []NodeID{v.Expr}
	case *Module:
		return []NodeID{v.Body}
	default:
		return nil
	}
}
