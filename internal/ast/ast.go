// Package ast implements the AST node arena: a typed tree of statements and
// expressions owned exclusively by a single Module, with explicit parent
// links maintained through one mutation primitive, tree-replace-child.
package ast

import "fmt"

// NodeID is a stable index into a Module's arena. The zero value NodeID(0)
// is never a valid node; Module reserves index 0 as the invalid sentinel.
type NodeID int

// InvalidNode is the sentinel for "no node" (e.g. the module's parent).
const InvalidNode NodeID = 0

// NodeKind tags the closed set of node variants.
type NodeKind int

const (
	KindInvalid NodeKind = iota

	// Expressions
	KindNameRef
	KindVarRef
	KindFieldAccess
	KindArrIndex
	KindBitSlice
	KindCast
	KindUnaryOp
	KindBinaryOp
	KindIntLiteral
	KindLongIntLiteral
	KindBuiltinCall

	// Statements
	KindAssign
	KindIf
	KindIfElse
	KindBlock
	KindExprEval
	KindReturn
	KindNop

	// Other
	KindModule
	KindTypeAnnotation
	KindFakeVarDef
)

func (k NodeKind) String() string {
	switch k {
	case KindNameRef:
		return "NameRef"
	case KindVarRef:
		return "VarRef"
	case KindFieldAccess:
		return "FieldAccess"
	case KindArrIndex:
		return "ArrIndex"
	case KindBitSlice:
		return "BitSlice"
	case KindCast:
		return "Cast"
	case KindUnaryOp:
		return "UnaryOp"
	case KindBinaryOp:
		return "BinaryOp"
	case KindIntLiteral:
		return "IntLiteral"
	case KindLongIntLiteral:
		return "LongIntLiteral"
	case KindBuiltinCall:
		return "BuiltinCall"
	case KindAssign:
		return "Assign"
	case KindIf:
		return "If"
	case KindIfElse:
		return "IfElse"
	case KindBlock:
		return "Block"
	case KindExprEval:
		return "ExprEval"
	case KindReturn:
		return "Return"
	case KindNop:
		return "Nop"
	case KindModule:
		return "Module"
	case KindTypeAnnotation:
		return "TypeAnnotation"
	case KindFakeVarDef:
		return "FakeVarDef"
	default:
		return "Invalid"
	}
}

// BinaryOp is the closed set of binary operator kinds (18 kinds).
type BinaryOp int

const (
	BinInvalid BinaryOp = iota
	BinAdd
	BinSub
	BinMul
	BinDiv
	BinMod
	BinAnd
	BinOr
	BinXor
	BinShl
	BinShr
	BinLogicalAnd
	BinLogicalOr
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
)

// UnaryOp is the closed set of unary operator kinds (2 per §6's tag set).
type UnaryOp int

const (
	UnInvalid UnaryOp = iota
	UnNeg
	UnNot
)

// Node is the closed interface satisfied by every arena entry. Only the
// ast package may implement it (isNode is unexported).
type Node interface {
	Kind() NodeKind
	isNode()
}

// Lvalue is the marker interface satisfied by the subset of expression
// kinds that may appear on the left of an Assign: NameRef, VarRef,
// FieldAccess, ArrIndex, BitSlice.
type Lvalue interface {
	Node
	isLvalue()
}

// base carries the fields every node shares: the arena slot it lives in
// and its current parent. Parent is authoritative and is only ever changed
// via Arena.ReplaceChild / setParent.
type base struct {
	id     NodeID
	parent NodeID
}

func (b *base) ID() NodeID     { return b.id }
func (b *base) Parent() NodeID { return b.parent }

// --- Expressions -----------------------------------------------------------

type NameRef struct {
	base
	Name string
}

func (*NameRef) Kind() NodeKind { return KindNameRef }
func (*NameRef) isNode()        {}
func (*NameRef) isLvalue()      {}

type VarRef struct {
	base
	Def NodeID // FakeVarDef
}

func (*VarRef) Kind() NodeKind { return KindVarRef }
func (*VarRef) isNode()        {}
func (*VarRef) isLvalue()      {}

type FieldAccess struct {
	base
	Source NodeID
	Field  string // immediate field name (e.g. "d" in a.b.c.d), display only
	// StructVar, Offset, and Size are the (struct_var, offset, size)
	// flattening annotation: the ultimate base variable's name and this
	// field's absolute bit range within it. StructVar == "" means the
	// annotation is absent (no flattening target known).
	StructVar string
	Offset    int
	Size      int
	Global    bool
}

func (*FieldAccess) Kind() NodeKind { return KindFieldAccess }
func (*FieldAccess) isNode()        {}
func (*FieldAccess) isLvalue()      {}

type ArrIndex struct {
	base
	Source NodeID
	Index  NodeID
}

func (*ArrIndex) Kind() NodeKind { return KindArrIndex }
func (*ArrIndex) isNode()        {}
func (*ArrIndex) isLvalue()      {}

type BitSlice struct {
	base
	Target NodeID
	Hi     int
	Lo     int
}

func (*BitSlice) Kind() NodeKind { return KindBitSlice }
func (*BitSlice) isNode()        {}
func (*BitSlice) isLvalue()      {}

type Cast struct {
	base
	Expr  NodeID
	Width int
}

func (*Cast) Kind() NodeKind { return KindCast }
func (*Cast) isNode()        {}

type UnaryExpr struct {
	base
	Op   UnaryOp
	Expr NodeID
}

func (*UnaryExpr) Kind() NodeKind { return KindUnaryOp }
func (*UnaryExpr) isNode()        {}

type BinaryExpr struct {
	base
	Op  BinaryOp
	Lhs NodeID
	Rhs NodeID
}

func (*BinaryExpr) Kind() NodeKind { return KindBinaryOp }
func (*BinaryExpr) isNode()        {}

type IntLiteral struct {
	base
	Value uint64
	Width int
	Name  string // optional
}

func (*IntLiteral) Kind() NodeKind { return KindIntLiteral }
func (*IntLiteral) isNode()        {}

type LongIntLiteral struct {
	base
	Words []uint64
}

func (*LongIntLiteral) Kind() NodeKind { return KindLongIntLiteral }
func (*LongIntLiteral) isNode()        {}

type BuiltinCall struct {
	base
	Name string
	Args []NodeID
}

func (*BuiltinCall) Kind() NodeKind { return KindBuiltinCall }
func (*BuiltinCall) isNode()        {}

// --- Statements -------------------------------------------------------------

type Assign struct {
	base
	Lvalue NodeID
	Rhs    NodeID
}

func (*Assign) Kind() NodeKind { return KindAssign }
func (*Assign) isNode()        {}

type If struct {
	base
	Cond NodeID
	Then NodeID // Block
}

func (*If) Kind() NodeKind { return KindIf }
func (*If) isNode()        {}

type IfElse struct {
	base
	Cond NodeID
	Then NodeID // Block
	Else NodeID // Block
}

func (*IfElse) Kind() NodeKind { return KindIfElse }
func (*IfElse) isNode()        {}

type Block struct {
	base
	Name  string
	Stmts []NodeID
}

func (*Block) Kind() NodeKind { return KindBlock }
func (*Block) isNode()        {}

type ExprEval struct {
	base
	Expr NodeID
}

func (*ExprEval) Kind() NodeKind { return KindExprEval }
func (*ExprEval) isNode()        {}

type Return struct {
	base
}

func (*Return) Kind() NodeKind { return KindReturn }
func (*Return) isNode()        {}

type Nop struct {
	base
}

func (*Nop) Kind() NodeKind { return KindNop }
func (*Nop) isNode()        {}

// --- Other ------------------------------------------------------------------

type Module struct {
	base
	Body NodeID // Block
}

func (*Module) Kind() NodeKind { return KindModule }
func (*Module) isNode()        {}

type TypeAnnotation struct {
	base
	Width int
	Name  string
}

func (*TypeAnnotation) Kind() NodeKind { return KindTypeAnnotation }
func (*TypeAnnotation) isNode()        {}

// FakeVarDef is a synthesized variable declaration produced by lowering,
// standing in for structured storage the source AST referenced by field
// name or array index.
type FakeVarDef struct {
	base
	Name       string
	Width      int  // 0 means unresolved
	IsGlobal   bool
	WidthKnown bool
}

func (*FakeVarDef) Kind() NodeKind { return KindFakeVarDef }
func (*FakeVarDef) isNode()        {}

// --- Arena -------------------------------------------------------------------

// Arena is the exclusive owner of every node reachable from a single
// compilation's Module. It assigns stable NodeIDs and is the only thing
// permitted to mutate a node's parent field, via ReplaceChild.
type Arena struct {
	nodes    []Node // index 0 is InvalidNode, unused
	rootID   NodeID
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{nodes: []Node{nil}}
}

// Get returns the node at id, panicking if id is invalid or out of range.
func (a *Arena) Get(id NodeID) Node {
	if id <= InvalidNode || int(id) >= len(a.nodes) {
		panic(fmt.Sprintf("ast: invalid node id %d", id))
	}
	n := a.nodes[id]
	if n == nil {
		panic(fmt.Sprintf("ast: dangling node id %d", id))
	}
	return n
}

// alloc inserts n into the arena, assigns its id, and returns the id.
func (a *Arena) alloc(n Node) NodeID {
	id := NodeID(len(a.nodes))
	setID(n, id)
	a.nodes = append(a.nodes, n)
	return id
}

// SetRoot designates root (expected to be a *Module) as the arena's root,
// whose parent is InvalidNode.
func (a *Arena) SetRoot(root NodeID) {
	a.rootID = root
	setParent(a.Get(root), InvalidNode)
}

// Root returns the arena's root node id.
func (a *Arena) Root() NodeID { return a.rootID }

// ParentOf returns id's current parent, or InvalidNode if id is the root.
func (a *Arena) ParentOf(id NodeID) NodeID {
	return a.Get(id).(interface{ Parent() NodeID }).Parent()
}

// ReplaceChild is the single mutation primitive: it rewrites the field on
// parent that currently points at old so that it points at newChild
// instead, and sets newChild's parent to parent. Every structural rewrite
// in the lowering passes goes through this function (or Module-level
// helpers built on it), so the parent invariant is restored in one place.
func (a *Arena) ReplaceChild(parent, old, newChild NodeID) {
	p := a.Get(parent)
	if !replaceChildField(p, old, newChild) {
		panic(fmt.Sprintf("ast: %s (node %d) has no child %d to replace", p.Kind(), parent, old))
	}
	setParent(a.Get(newChild), parent)
}

// CheckParentInvariant walks, for every live node other than a FakeVarDef,
// the parent chain to the root, panicking with the offending node's printed
// form if a cycle is found or if the chain ends without reaching the root.
func (a *Arena) CheckParentInvariant() {
	for id := NodeID(1); int(id) < len(a.nodes); id++ {
		if a.nodes[id] == nil {
			continue
		}
		if _, ok := a.nodes[id].(*FakeVarDef); ok {
			continue // declarations are referenced by VarRef.Def, never held as children
		}
		cur := id
		seen := map[NodeID]bool{}
		for cur != InvalidNode {
			if seen[cur] {
				panic(fmt.Sprintf("ast: cyclic parent chain detected at node %d (%s)", id, Sprint(a, id)))
			}
			seen[cur] = true
			if cur == a.rootID {
				break
			}
			cur = a.ParentOf(cur)
		}
		if cur != a.rootID {
			panic(fmt.Sprintf("ast: node %d (%s) does not reach the module root", id, Sprint(a, id)))
		}
	}
}

// --- construction helpers ---------------------------------------------------

func (a *Arena) NewNameRef(name string) NodeID { return a.alloc(&NameRef{Name: name}) }

func (a *Arena) NewVarRef(def NodeID) NodeID { return a.alloc(&VarRef{Def: def}) }

func (a *Arena) NewFieldAccess(source NodeID, field, structVar string, offset, size int, global bool) NodeID {
	id := a.alloc(&FieldAccess{Source: source, Field: field, StructVar: structVar, Offset: offset, Size: size, Global: global})
	setParent(a.Get(source), id)
	return id
}

func (a *Arena) NewArrIndex(source, index NodeID) NodeID {
	id := a.alloc(&ArrIndex{Source: source, Index: index})
	setParent(a.Get(source), id)
	setParent(a.Get(index), id)
	return id
}

func (a *Arena) NewBitSlice(target NodeID, hi, lo int) NodeID {
	id := a.alloc(&BitSlice{Target: target, Hi: hi, Lo: lo})
	setParent(a.Get(target), id)
	return id
}

func (a *Arena) NewCast(expr NodeID, width int) NodeID {
	id := a.alloc(&Cast{Expr: expr, Width: width})
	setParent(a.Get(expr), id)
	return id
}

func (a *Arena) NewUnaryExpr(op UnaryOp, expr NodeID) NodeID {
	id := a.alloc(&UnaryExpr{Op: op, Expr: expr})
	setParent(a.Get(expr), id)
	return id
}

func (a *Arena) NewBinaryExpr(op BinaryOp, lhs, rhs NodeID) NodeID {
	id := a.alloc(&BinaryExpr{Op: op, Lhs: lhs, Rhs: rhs})
	setParent(a.Get(lhs), id)
	setParent(a.Get(rhs), id)
	return id
}

func (a *Arena) NewIntLiteral(value uint64, width int, name string) NodeID {
	return a.alloc(&IntLiteral{Value: value, Width: width, Name: name})
}

func (a *Arena) NewLongIntLiteral(words []uint64) NodeID {
	return a.alloc(&LongIntLiteral{Words: words})
}

func (a *Arena) NewBuiltinCall(name string, args []NodeID) NodeID {
	id := a.alloc(&BuiltinCall{Name: name, Args: args})
	for _, arg := range args {
		setParent(a.Get(arg), id)
	}
	return id
}

func (a *Arena) NewAssign(lvalue, rhs NodeID) NodeID {
	id := a.alloc(&Assign{Lvalue: lvalue, Rhs: rhs})
	setParent(a.Get(lvalue), id)
	setParent(a.Get(rhs), id)
	return id
}

func (a *Arena) NewIf(cond, then NodeID) NodeID {
	id := a.alloc(&If{Cond: cond, Then: then})
	setParent(a.Get(cond), id)
	setParent(a.Get(then), id)
	return id
}

func (a *Arena) NewIfElse(cond, then, els NodeID) NodeID {
	id := a.alloc(&IfElse{Cond: cond, Then: then, Else: els})
	setParent(a.Get(cond), id)
	setParent(a.Get(then), id)
	setParent(a.Get(els), id)
	return id
}

func (a *Arena) NewBlock(name string, stmts []NodeID) NodeID {
	id := a.alloc(&Block{Name: name, Stmts: stmts})
	for _, s := range stmts {
		setParent(a.Get(s), id)
	}
	return id
}

func (a *Arena) NewExprEval(expr NodeID) NodeID {
	id := a.alloc(&ExprEval{Expr: expr})
	setParent(a.Get(expr), id)
	return id
}

func (a *Arena) NewReturn() NodeID { return a.alloc(&Return{}) }

func (a *Arena) NewNop() NodeID { return a.alloc(&Nop{}) }

func (a *Arena) NewModule(body NodeID) NodeID {
	id := a.alloc(&Module{Body: body})
	setParent(a.Get(body), id)
	a.SetRoot(id)
	return id
}

func (a *Arena) NewTypeAnnotation(width int, name string) NodeID {
	return a.alloc(&TypeAnnotation{Width: width, Name: name})
}

func (a *Arena) NewFakeVarDef(name string, width int, widthKnown, isGlobal bool) NodeID {
	return a.alloc(&FakeVarDef{Name: name, Width: width, WidthKnown: widthKnown, IsGlobal: isGlobal})
}
