package passes

import "github.com/hlsc-project/hlsc/internal/ir"

// DCE deletes nodes unreachable by reverse-reachability from fn's implicit
// uses: the return value and every side-effecting operation (§4.3: "Reverse-
// reachability from nodes with implicit uses ... unreachable nodes are
// deleted"). With DryRun set, Run computes and records the unreachable set
// in Deleted without mutating fn.
type DCE struct {
	DryRun bool

	// Deleted holds the ids that were (or, under DryRun, would be) removed
	// by the most recent Run.
	Deleted []ir.NodeID
}

func (*DCE) Name() string { return "dce" }

func (d *DCE) Run(fn *ir.Function) error {
	live := d.reachable(fn)

	var dead []ir.NodeID
	for _, n := range fn.Nodes() {
		if !live[n.ID()] {
			dead = append(dead, n.ID())
		}
	}
	d.Deleted = dead

	if d.DryRun {
		return nil
	}
	for _, id := range dead {
		fn.Delete(id)
	}
	return nil
}

// reachable computes the set of nodes reachable by walking operand edges
// backward from every implicit use.
func (d *DCE) reachable(fn *ir.Function) map[ir.NodeID]bool {
	live := map[ir.NodeID]bool{}
	var mark func(id ir.NodeID)
	mark = func(id ir.NodeID) {
		if live[id] {
			return
		}
		live[id] = true
		for _, opnd := range fn.Get(id).Operands() {
			mark(opnd)
		}
	}
	if fn.Return != 0 {
		mark(fn.Return)
	}
	for _, n := range fn.Nodes() {
		if n.IsSideEffecting() {
			mark(n.ID())
		}
	}
	return live
}
