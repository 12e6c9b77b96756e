package ast

import "testing"

func TestReplaceChildUpdatesParent(t *testing.T) {
	a := NewArena()
	lit1 := a.NewIntLiteral(1, 32, "")
	lit2 := a.NewIntLiteral(2, 32, "")
	name := a.NewNameRef("x")
	assign := a.NewAssign(name, lit1)
	blk := a.NewBlock("", []NodeID{assign})
	a.NewModule(blk)

	a.ReplaceChild(assign, lit1, lit2)
	got := a.Get(assign).(*Assign)
	if got.Rhs != lit2 {
		t.Fatalf("expected rhs replaced with lit2, got %d", got.Rhs)
	}
	if Parent(a.Get(lit2)) != assign {
		t.Fatalf("expected lit2's parent to be assign")
	}
}

func TestCheckParentInvariantPasses(t *testing.T) {
	a := NewArena()
	def := a.NewFakeVarDef("x", 32, true, false)
	ref := a.NewVarRef(def)
	blk := a.NewBlock("", []NodeID{a.NewExprEval(ref)})
	a.NewModule(blk)
	a.CheckParentInvariant()
}

func TestCheckParentInvariantCatchesCycle(t *testing.T) {
	a := NewArena()
	lit := a.NewIntLiteral(1, 32, "")
	blk := a.NewBlock("", []NodeID{a.NewExprEval(lit)})
	a.NewModule(blk)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on cyclic parenting")
		}
	}()
	// Deliberately introduce a cycle: make blk its own parent.
	setParent(a.Get(blk), blk)
	a.CheckParentInvariant()
}

func TestSpliceBlockReparents(t *testing.T) {
	a := NewArena()
	inner := a.NewBlock("", []NodeID{a.NewNop(), a.NewNop()})
	outer := a.NewBlock("", []NodeID{inner})
	a.NewModule(outer)

	innerBlk := a.Get(inner).(*Block)
	a.SpliceBlock(outer, 0, innerBlk.Stmts)

	outerBlk := a.Get(outer).(*Block)
	if len(outerBlk.Stmts) != 2 {
		t.Fatalf("expected 2 spliced statements, got %d", len(outerBlk.Stmts))
	}
	for _, s := range outerBlk.Stmts {
		if Parent(a.Get(s)) != outer {
			t.Fatalf("expected spliced statement reparented to outer block")
		}
	}
}
