package passes

import (
	"sort"

	"github.com/hlsc-project/hlsc/internal/ir"
)

// ScheduleInfo is the subset of a computed pipeline schedule Rematerialization
// needs: which stage a node lives in, and the slack (§ glossary:
// "stage-critical-path delay minus the delay of the longest path passing
// through a given node within that stage") available at a node's stage.
// internal/schedule's Schedule type satisfies this without passes importing
// schedule, avoiding a dependency cycle (the scheduler runs internal/passes's
// CSE/DCE between strategy attempts).
type ScheduleInfo interface {
	Stage(id ir.NodeID) int
	SlackPs(id ir.NodeID) int64
}

// DelayModel supplies per-node delay for clone-fit and area-cost scoring.
type DelayModel interface {
	NodeDelayPs(fn *ir.Function, id ir.NodeID) int64
}

// RematCandidate is one proposed clone-across-a-stage-boundary rewrite: the
// edge from Node to Consumer is retired in favor of a per-consumer clone of
// Node's computation, so that edge no longer needs an interior pipeline
// register.
type RematCandidate struct {
	Node          ir.NodeID
	Consumer      ir.NodeID
	ConsumerStage int
	Savings       int64 // register-bits reclaimed if accepted, net of clone cost
	CloneCostPs   int64 // delay the clone adds to the consumer stage's critical path
}

// Rematerialization implements §4.3's optional pass: for each cross-stage
// edge, propose cloning the feeding computation into the consumer's stage,
// score by register-bits-saved minus clone area cost, and greedily accept
// the highest-scoring non-conflicting candidates — a greedy approximation
// to the submodular minimizer the spec calls for (an exact submodular
// optimum needs each accepted clone's effect on its neighbors' scores,
// which would require re-scoring after every acceptance; greedy-by-savings
// is the standard 1-1/e-competitive stand-in). Rejected candidates are
// simply never cloned, so no reclaiming pass is needed for them; DCE still
// runs afterward because an accepted clone can leave the original
// definition without further users.
type Rematerialization struct {
	Schedule       ScheduleInfo
	Delay          DelayModel
	AreaCostPerBit int64

	Applied  []RematCandidate
	Rejected []RematCandidate
}

func (*Rematerialization) Name() string { return "rematerialization" }

func (p *Rematerialization) Run(fn *ir.Function) error {
	if p.Schedule == nil || p.Delay == nil {
		return nil
	}
	areaCost := p.AreaCostPerBit
	if areaCost == 0 {
		areaCost = 1
	}

	candidates := p.findCandidates(fn, areaCost)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Savings > candidates[j].Savings })

	seenEdge := map[[2]ir.NodeID]bool{}
	p.Applied = nil
	p.Rejected = nil
	for _, cand := range candidates {
		key := [2]ir.NodeID{cand.Node, cand.Consumer}
		if seenEdge[key] {
			p.Rejected = append(p.Rejected, cand)
			continue
		}
		seenEdge[key] = true
		p.Applied = append(p.Applied, cand)
	}

	for _, cand := range p.Applied {
		p.applyClone(fn, cand)
	}

	if len(p.Applied) == 0 {
		return nil
	}
	dce := &DCE{}
	return dce.Run(fn)
}

func (p *Rematerialization) findCandidates(fn *ir.Function, areaCost int64) []RematCandidate {
	var candidates []RematCandidate
	for _, n := range fn.Nodes() {
		if n.Op() == ir.OpParam || n.IsSideEffecting() {
			continue // inputs are already available every stage; side effects cannot be duplicated
		}
		defStage := p.Schedule.Stage(n.ID())
		for _, user := range n.Users() {
			useStage := p.Schedule.Stage(user)
			if useStage <= defStage {
				continue
			}
			cloneCost := p.Delay.NodeDelayPs(fn, n.ID())
			if cloneCost > p.Schedule.SlackPs(user) {
				continue
			}
			width := int64(n.Type().Width)
			savings := width*int64(useStage-defStage) - cloneCost*areaCost
			if savings <= 0 {
				continue
			}
			candidates = append(candidates, RematCandidate{
				Node:          n.ID(),
				Consumer:      user,
				ConsumerStage: useStage,
				Savings:       savings,
				CloneCostPs:   cloneCost,
			})
		}
	}
	return candidates
}

// applyClone duplicates cand.Node's defining computation and rewires only
// cand.Consumer's matching operand slots to the clone, leaving every other
// user of the original untouched.
func (p *Rematerialization) applyClone(fn *ir.Function, cand RematCandidate) {
	n := fn.Get(cand.Node)
	clone := cloneInto(fn, n, append([]ir.NodeID(nil), n.Operands()...), "remat")

	consumer := fn.Get(cand.Consumer)
	for i, o := range consumer.Operands() {
		if o == cand.Node {
			fn.ReplaceOperand(cand.Consumer, i, clone)
		}
	}
}
