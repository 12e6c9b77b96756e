package passes

import (
	"testing"

	"github.com/hlsc-project/hlsc/internal/bits"
	"github.com/hlsc-project/hlsc/internal/ir"
)

func TestDCERemovesUnreachableNodes(t *testing.T) {
	fn := ir.NewFunction("f")
	p := fn.NewParam("p", 8)
	used := fn.NewNot(p)
	unused := fn.NewNot(p)
	_ = unused
	fn.Return = used

	dce := &DCE{}
	if err := dce.Run(fn); err != nil {
		t.Fatalf("dce failed: %v", err)
	}
	if fn.Exists(unused) {
		t.Fatalf("expected unreachable node to be deleted")
	}
	if !fn.Exists(used) {
		t.Fatalf("expected reachable node to survive")
	}
}

func TestDCEDryRunDoesNotMutate(t *testing.T) {
	fn := ir.NewFunction("f")
	p := fn.NewParam("p", 8)
	unused := fn.NewNot(p)
	fn.Return = fn.NewNot(p)

	dce := &DCE{DryRun: true}
	if err := dce.Run(fn); err != nil {
		t.Fatalf("dce failed: %v", err)
	}
	if !fn.Exists(unused) {
		t.Fatalf("dry run must not delete anything")
	}
	found := false
	for _, id := range dce.Deleted {
		if id == unused {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected dry run to report the unreachable node")
	}
}

func TestDCEPreservesSideEffectingOps(t *testing.T) {
	fn := ir.NewFunction("f")
	fn.NewSend("out", fn.NewLiteral(bits.FromUint64(1, 1)))
	fn.Return = fn.NewTuple()

	dce := &DCE{}
	if err := dce.Run(fn); err != nil {
		t.Fatalf("dce failed: %v", err)
	}
	for _, n := range fn.Nodes() {
		if n.Op() == ir.OpSend {
			return
		}
	}
	t.Fatalf("expected send to survive DCE despite having no users")
}

func TestCSEMergesIdenticalAdds(t *testing.T) {
	fn := ir.NewFunction("f")
	a := fn.NewParam("a", 8)
	b := fn.NewParam("b", 8)
	add1 := fn.NewAdd(a, b)
	add2 := fn.NewAdd(a, b)
	t1 := fn.NewTuple(add1, add2)
	fn.Return = t1

	cse := &CSE{}
	if err := cse.Run(fn); err != nil {
		t.Fatalf("cse failed: %v", err)
	}
	if cse.Merged != 1 {
		t.Fatalf("expected exactly one merge, got %d", cse.Merged)
	}
	tup := fn.Get(fn.Return)
	if tup.Operands()[0] != tup.Operands()[1] {
		t.Fatalf("expected both tuple slots to reference the merged add")
	}
}

func TestCSECanonicalizesCommutativeOperandOrder(t *testing.T) {
	fn := ir.NewFunction("f")
	a := fn.NewParam("a", 8)
	b := fn.NewParam("b", 8)
	add1 := fn.NewAdd(a, b)
	add2 := fn.NewAdd(b, a)
	fn.Return = fn.NewTuple(add1, add2)

	cse := &CSE{}
	if err := cse.Run(fn); err != nil {
		t.Fatalf("cse failed: %v", err)
	}
	if cse.Merged != 1 {
		t.Fatalf("expected a+b and b+a to merge via commutative canonicalization, got %d merges", cse.Merged)
	}
}

func TestCSERespectsMergeabilityKey(t *testing.T) {
	fn := ir.NewFunction("f")
	a := fn.NewParam("a", 8)
	b := fn.NewParam("b", 8)
	add1 := fn.NewAdd(a, b)
	add2 := fn.NewAdd(a, b)
	fn.Return = fn.NewTuple(add1, add2)

	stageOf := map[ir.NodeID]int{add1: 0, add2: 1}
	cse := &CSE{Key: func(fn *ir.Function, id ir.NodeID) any { return stageOf[id] }}
	if err := cse.Run(fn); err != nil {
		t.Fatalf("cse failed: %v", err)
	}
	if cse.Merged != 0 {
		t.Fatalf("expected cross-stage merge to be vetoed by the mergeability key, got %d merges", cse.Merged)
	}
}

func TestInliningSplicesCalleeBody(t *testing.T) {
	callee := ir.NewFunction("double")
	cp := callee.NewParam("x", 8)
	callee.Return = callee.NewAdd(cp, cp)

	pkg := ir.NewPackage("pkg")
	pkg.Functions["double"] = callee

	caller := ir.NewFunction("top")
	in := caller.NewParam("in", 8)
	call := caller.NewInvoke("double", []ir.NodeID{in}, 8, false)
	caller.Return = call

	inl := &Inlining{Package: pkg}
	if err := inl.Run(caller); err != nil {
		t.Fatalf("inlining failed: %v", err)
	}
	if inl.Inlined != 1 {
		t.Fatalf("expected one inlined call, got %d", inl.Inlined)
	}
	ret := caller.Get(caller.Return)
	if ret.Op() != ir.OpAdd {
		t.Fatalf("expected the call to be replaced by the callee's add, got %s", ret.Op())
	}
	if err := caller.CheckInvariants(); err != nil {
		t.Fatalf("invariants failed after inlining: %v", err)
	}
}

type fakeSchedule struct {
	stage map[ir.NodeID]int
	slack map[ir.NodeID]int64
}

func (s *fakeSchedule) Stage(id ir.NodeID) int      { return s.stage[id] }
func (s *fakeSchedule) SlackPs(id ir.NodeID) int64  { return s.slack[id] }

type fakeDelay struct{ ps int64 }

func (d *fakeDelay) NodeDelayPs(fn *ir.Function, id ir.NodeID) int64 { return d.ps }

func TestRematerializationClonesAcrossStageBoundary(t *testing.T) {
	fn := ir.NewFunction("f")
	a := fn.NewParam("a", 32)
	wide := fn.NewNot(a)
	user1 := fn.NewNot(wide)
	user2 := fn.NewNot(wide)
	fn.Return = fn.NewTuple(user1, user2)

	sched := &fakeSchedule{
		stage: map[ir.NodeID]int{wide: 0, user1: 1, user2: 2},
		slack: map[ir.NodeID]int64{user1: 100, user2: 100},
	}
	remat := &Rematerialization{Schedule: sched, Delay: &fakeDelay{ps: 1}}
	if err := remat.Run(fn); err != nil {
		t.Fatalf("remat failed: %v", err)
	}
	if len(remat.Applied) != 2 {
		t.Fatalf("expected both cross-stage edges to be rematerialized, got %d", len(remat.Applied))
	}
	if err := fn.CheckInvariants(); err != nil {
		t.Fatalf("invariants failed after rematerialization: %v", err)
	}
}
