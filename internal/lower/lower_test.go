package lower

import (
	"bytes"
	"testing"

	"github.com/hlsc-project/hlsc/internal/ast"
	"github.com/hlsc-project/hlsc/internal/diag"
)

func TestNestedIfMergeProducesSingleAndIf(t *testing.T) {
	a := ast.NewArena()
	x := a.NewIntLiteral(1, 32, "")
	assign := a.NewAssign(a.NewNameRef("x"), x)
	innerThen := a.NewBlock("", []ast.NodeID{assign})
	innerIf := a.NewIf(a.NewNameRef("b"), innerThen)
	outerThen := a.NewBlock("", []ast.NodeID{innerIf})
	outerIf := a.NewIf(a.NewNameRef("a"), outerThen)
	root := a.NewBlock("", []ast.NodeID{outerIf})
	a.NewModule(root)

	ctx := NewContext(a, diag.NewReporter(nil, "text"))
	if err := (&NestedIfMerge{}).Run(ctx); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	body := a.Get(a.Get(a.Root()).(*ast.Module).Body).(*ast.Block)
	if len(body.Stmts) != 1 {
		t.Fatalf("expected single statement, got %d", len(body.Stmts))
	}
	merged, ok := a.Get(body.Stmts[0]).(*ast.If)
	if !ok {
		t.Fatalf("expected a single If, got %T", a.Get(body.Stmts[0]))
	}
	cond, ok := a.Get(merged.Cond).(*ast.BinaryExpr)
	if !ok || cond.Op != ast.BinLogicalAnd {
		t.Fatalf("expected And condition, got %v", a.Get(merged.Cond))
	}
}

func TestNestedBitSliceFlatten(t *testing.T) {
	a := ast.NewArena()
	def := a.NewFakeVarDef("a", 60, true, true)
	base := a.NewVarRef(def)
	s1 := a.NewBitSlice(base, 59, 10)
	s2 := a.NewBitSlice(s1, 39, 20)
	s3 := a.NewBitSlice(s2, 9, 0)
	stmt := a.NewExprEval(s3)
	blk := a.NewBlock("", []ast.NodeID{stmt})
	a.NewModule(blk)

	ctx := NewContext(a, diag.NewReporter(nil, "text"))
	if err := (&NestedBitSliceFlatten{}).Run(ctx); err != nil {
		t.Fatalf("flatten failed: %v", err)
	}
	ee := a.Get(a.Get(a.Get(a.Root()).(*ast.Module).Body).(*ast.Block).Stmts[0]).(*ast.ExprEval)
	flat, ok := a.Get(ee.Expr).(*ast.BitSlice)
	if !ok {
		t.Fatalf("expected BitSlice, got %T", a.Get(ee.Expr))
	}
	if flat.Hi != 39 || flat.Lo != 30 {
		t.Fatalf("expected [39:30], got [%d:%d]", flat.Hi, flat.Lo)
	}
	if flat.Target != base {
		t.Fatalf("expected flattened target to be the original base VarRef")
	}
}

func TestFieldAccessEliminationFlattensMultiLevelChainFromAnnotation(t *testing.T) {
	// a.b.c: level1 models the "a.b" access, level2 the "a.b.c" access that
	// sits on top of it. Both carry the same ultimate struct_var "a" with
	// their own absolute offset/size, so elimination must use level2's own
	// annotation directly rather than descending into level1 via Source.
	a := ast.NewArena()
	base := a.NewNameRef("a")
	level1 := a.NewFieldAccess(base, "b", "a", 10, 20, false)
	level2 := a.NewFieldAccess(level1, "c", "a", 5, 8, false)
	stmt := a.NewExprEval(level2)
	blk := a.NewBlock("", []ast.NodeID{stmt})
	a.NewModule(blk)

	ctx := NewContext(a, diag.NewReporter(nil, "text"))
	if err := (&FieldAccessElimination{}).Run(ctx); err != nil {
		t.Fatalf("elimination failed: %v", err)
	}

	ee := a.Get(a.Get(a.Get(a.Root()).(*ast.Module).Body).(*ast.Block).Stmts[0]).(*ast.ExprEval)
	slice, ok := a.Get(ee.Expr).(*ast.BitSlice)
	if !ok {
		t.Fatalf("expected a single flat BitSlice, got %T", a.Get(ee.Expr))
	}
	if slice.Hi != 12 || slice.Lo != 5 {
		t.Fatalf("expected [12:5], got [%d:%d]", slice.Hi, slice.Lo)
	}
	ref, ok := a.Get(slice.Target).(*ast.NameRef)
	if !ok {
		t.Fatalf("expected the slice target to be a flat NameRef, got %T", a.Get(slice.Target))
	}
	if ref.Name != "a" {
		t.Fatalf("expected NameRef(a), got NameRef(%s)", ref.Name)
	}
	a.CheckParentInvariant()
}

func TestFieldAccessEliminationRejectsUnannotatedNode(t *testing.T) {
	a := ast.NewArena()
	base := a.NewNameRef("a")
	fa := a.NewFieldAccess(base, "b", "", 0, 0, false)
	stmt := a.NewExprEval(fa)
	blk := a.NewBlock("", []ast.NodeID{stmt})
	a.NewModule(blk)

	ctx := NewContext(a, diag.NewReporter(nil, "text"))
	if err := (&FieldAccessElimination{}).Run(ctx); err == nil {
		t.Fatalf("expected an error for a field access with no (struct_var, offset, size) annotation")
	}
}

func TestUselessBlockUnrolling(t *testing.T) {
	a := ast.NewArena()
	nop1 := a.NewNop()
	nop2 := a.NewNop()
	inner := a.NewBlock("", []ast.NodeID{nop1, nop2})
	outer := a.NewBlock("", []ast.NodeID{inner})
	a.NewModule(outer)

	ctx := NewContext(a, diag.NewReporter(nil, "text"))
	if err := (&UselessBlockUnrolling{}).Run(ctx); err != nil {
		t.Fatalf("unroll failed: %v", err)
	}
	body := a.Get(outer).(*ast.Block)
	if len(body.Stmts) != 2 {
		t.Fatalf("expected 2 spliced statements, got %d", len(body.Stmts))
	}
}

func TestDefaultPipelineOnTrivialIdentity(t *testing.T) {
	src := `{
		"TYNAME": "BLOCK",
		"OP0": {"TYNAME": "IDENT", "STRING": "top"},
		"OP1": {"TYNAME": "LIST", "VALUES": [
			{"TYNAME": "ASSIGN", "OP0": {"TYNAME": "IDENT", "STRING": "out"}, "OP1": {"TYNAME": "IDENT", "STRING": "in"}},
			{"TYNAME": "RETURN"}
		]}
	}`
	var buf bytes.Buffer
	r := diag.NewReporter(&buf, "text")
	a, _, err := ast.Decode([]byte(src), r)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	ctx := NewContext(a, r)
	ctx.DeclareVar("in", 32, false)
	ctx.DeclareVar("out", 32, false)
	if err := DefaultPipeline().Run(ctx); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	a.CheckParentInvariant()
}
