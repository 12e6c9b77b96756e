package delay

import "github.com/hlsc-project/hlsc/internal/ir"
import "testing"

func TestCriticalPathSumsAlongLongestChain(t *testing.T) {
	fn := ir.NewFunction("f")
	a := fn.NewParam("a", 8)
	b := fn.NewParam("b", 8)
	add := fn.NewAdd(a, b)
	not := fn.NewNot(add)
	fn.Return = not

	cp, nodeCp, err := CriticalPath(fn, TableEstimator{})
	if err != nil {
		t.Fatalf("critical path failed: %v", err)
	}
	if cp != nodeCp[not] {
		t.Fatalf("expected function critical path to equal the last node's finish time")
	}
	if nodeCp[not] <= nodeCp[add] {
		t.Fatalf("expected Not's finish time to exceed its operand Add's")
	}
}

func TestWithInputDelayOnlyAffectsReceive(t *testing.T) {
	fn := ir.NewFunction("f")
	recv := fn.NewReceive("in", 8)
	param := fn.NewParam("p", 8)

	est := WithInputDelay{Base: TableEstimator{}, InputDelayPs: 1000}
	if got := est.NodeDelayPs(fn, recv); got != 1000 {
		t.Fatalf("expected receive delay to be base(0)+1000, got %d", got)
	}
	if got := est.NodeDelayPs(fn, param); got != 0 {
		t.Fatalf("expected param delay to be unaffected, got %d", got)
	}
}
