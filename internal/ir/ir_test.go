package ir

import (
	"testing"

	"github.com/hlsc-project/hlsc/internal/bits"
)

func TestOperandUserConsistency(t *testing.T) {
	f := NewFunction("f")
	p := f.NewParam("in", 32)
	lit := f.NewLiteral(bits.FromUint64(1, 32))
	add := f.NewAdd(p, lit)
	f.Return = f.NewTuple(add)

	if err := f.CheckInvariants(); err != nil {
		t.Fatalf("invariants failed: %v", err)
	}
	users := f.Get(p).Users()
	if len(users) != 1 || users[0] != add {
		t.Fatalf("expected add to be the sole user of param, got %v", users)
	}
}

func TestTopoSortOrdersDependenciesFirst(t *testing.T) {
	f := NewFunction("f")
	p := f.NewParam("in", 8)
	a := f.NewNot(p)
	b := f.NewNot(a)
	order, err := TopoSort(f)
	if err != nil {
		t.Fatalf("toposort failed: %v", err)
	}
	posA, posB, posP := -1, -1, -1
	for i, id := range order {
		switch id {
		case a:
			posA = i
		case b:
			posB = i
		case p:
			posP = i
		}
	}
	if !(posP < posA && posA < posB) {
		t.Fatalf("expected order p < a < b, got positions %d %d %d", posP, posA, posB)
	}
}

func TestReplaceAllUsesRewritesOperandsAndReturn(t *testing.T) {
	f := NewFunction("f")
	p := f.NewParam("in", 8)
	lit := f.NewLiteral(bits.FromUint64(0, 8))
	add := f.NewAdd(p, lit)
	f.Return = add

	replacement := f.NewLiteral(bits.FromUint64(5, 8))
	f.ReplaceAllUses(add, replacement)
	if f.Return != replacement {
		t.Fatalf("expected return node rewritten")
	}
}

func TestDeleteRemovesFromOperandUsers(t *testing.T) {
	f := NewFunction("f")
	p := f.NewParam("in", 8)
	n := f.NewNot(p)
	f.Delete(n)
	if len(f.Get(p).Users()) != 0 {
		t.Fatalf("expected param to have no users after deleting its sole consumer")
	}
}

func TestIsDefinitelyEqualToRequiresSameAttrs(t *testing.T) {
	f := NewFunction("f")
	a := f.NewLiteral(bits.FromUint64(3, 8))
	b := f.NewLiteral(bits.FromUint64(3, 8))
	c := f.NewLiteral(bits.FromUint64(4, 8))
	if !f.IsDefinitelyEqualTo(a, b) {
		t.Fatalf("expected equal literals to compare equal")
	}
	if f.IsDefinitelyEqualTo(a, c) {
		t.Fatalf("expected different literals to compare unequal")
	}
}

func TestMismatchedWidthBinOpPanics(t *testing.T) {
	f := NewFunction("f")
	p8 := f.NewParam("a", 8)
	p16 := f.NewParam("b", 16)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on mismatched-width add")
		}
	}()
	f.NewAdd(p8, p16)
}
