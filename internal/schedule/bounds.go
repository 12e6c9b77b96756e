// Package schedule implements §4.4's pipeline scheduler: clock-period
// search, bounds propagation, and the three scheduling strategies
// (min-cut, SDC, ASAP), grounded on
// original_source/xls/scheduling/pipeline_schedule.cc.
package schedule

import (
	"fmt"

	"github.com/hlsc-project/hlsc/internal/delay"
	"github.com/hlsc-project/hlsc/internal/diag"
	"github.com/hlsc-project/hlsc/internal/ir"
)

// Bounds holds, for every node, the earliest and latest pipeline stage it
// could legally occupy for a fixed clock period: lb is driven by forward
// propagation of predecessor stage + (does this edge cross a clock
// boundary), ub by the mirror-image backward propagation of user stage -
// (does this edge cross a clock boundary) from the function's total stage
// count, matching ConstructBounds's two passes.
type Bounds struct {
	Lb, Ub   map[ir.NodeID]int
	NumStages int
}

// ConstructBounds computes the tightest [lb,ub] stage window for every node
// in fn such that no single stage's critical path exceeds clockPeriodPs,
// given per-node delays from est. It returns diag.KindResourceExhausted if
// clockPeriodPs is smaller than the slowest single node's own delay (no
// schedule at any stage count could satisfy it), matching
// ConstructBounds's infeasibility check.
func ConstructBounds(fn *ir.Function, est delay.Estimator, clockPeriodPs int64) (*Bounds, error) {
	order, err := ir.TopoSort(fn)
	if err != nil {
		return nil, err
	}

	nodeDelay := delay.NodeDelays(fn, est)
	for _, id := range order {
		if nodeDelay[id] > clockPeriodPs {
			return nil, diag.Errorf(diag.KindResourceExhausted,
				"schedule: node %d's own delay %dps exceeds clock period %dps; no stage count is feasible",
				id, nodeDelay[id], clockPeriodPs)
		}
	}

	lb := make(map[ir.NodeID]int, len(order))
	pathDelayInStage := make(map[ir.NodeID]int64, len(order))
	for _, id := range order {
		n := fn.Get(id)
		stage := 0
		var delayInStage int64
		for _, opnd := range n.Operands() {
			opStage := lb[opnd]
			opPathDelay := pathDelayInStage[opnd]
			candidateStage := opStage
			candidateDelay := opPathDelay + nodeDelay[id]
			if candidateDelay > clockPeriodPs {
				candidateStage++
				candidateDelay = nodeDelay[id]
			}
			if candidateStage > stage || (candidateStage == stage && candidateDelay > delayInStage) {
				stage = candidateStage
				delayInStage = candidateDelay
			}
		}
		if len(n.Operands()) == 0 {
			delayInStage = nodeDelay[id]
		}
		lb[id] = stage
		pathDelayInStage[id] = delayInStage
	}

	maxLb := 0
	for _, s := range lb {
		if s > maxLb {
			maxLb = s
		}
	}
	numStages := maxLb + 1

	ub := make(map[ir.NodeID]int, len(order))
	pathDelayToStageEnd := make(map[ir.NodeID]int64, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		n := fn.Get(id)
		stage := numStages - 1
		delayInStage := nodeDelay[id]
		for _, user := range n.Users() {
			candidateStage := ub[user]
			candidateDelay := pathDelayToStageEnd[user] + nodeDelay[id]
			if candidateDelay > clockPeriodPs {
				candidateStage--
				candidateDelay = nodeDelay[id]
			}
			if candidateStage < stage || (candidateStage == stage && candidateDelay > delayInStage) {
				stage = candidateStage
				delayInStage = candidateDelay
			}
		}
		if stage < lb[id] {
			stage = lb[id] // a node with no slack; ub cannot fall below lb
		}
		ub[id] = stage
		pathDelayToStageEnd[id] = delayInStage
	}

	clampEdgeStages(fn, lb, ub, numStages)
	if bad := infeasibleNodes(fn, lb, ub); len(bad) > 0 {
		return nil, diag.Errorf(diag.KindResourceExhausted,
			"schedule: no feasible stage (lower bound exceeds upper bound) for node(s) %v", bad)
	}

	return &Bounds{Lb: lb, Ub: ub, NumStages: numStages}, nil
}

// clampEdgeStages enforces the pins that precedence propagation alone
// cannot: nodes that must appear in the first stage (parameters, receives)
// have both bounds clamped to 0; nodes that must appear in the last stage
// (the function's return value, sends) have their lower bound clamped to
// the final stage. Without this, a return node with slack from a sibling
// branch elsewhere in the graph could legally land anywhere in
// [0, numStages-1].
func clampEdgeStages(fn *ir.Function, lb, ub map[ir.NodeID]int, numStages int) {
	for _, n := range fn.Nodes() {
		id := n.ID()
		switch n.Op() {
		case ir.OpParam, ir.OpReceive:
			lb[id] = 0
			ub[id] = 0
		case ir.OpSend:
			lb[id] = numStages - 1
		}
	}
	if ret := fn.Return; fn.Exists(ret) {
		lb[ret] = numStages - 1
	}
}

// infeasibleNodes returns, in creation order, every node whose lower bound
// now exceeds its upper bound.
func infeasibleNodes(fn *ir.Function, lb, ub map[ir.NodeID]int) []ir.NodeID {
	var out []ir.NodeID
	for _, n := range fn.Nodes() {
		id := n.ID()
		if lb[id] > ub[id] {
			out = append(out, id)
		}
	}
	return out
}

// TightenToStageCount clamps every node's [lb,ub] window to [0,numStages-1]
// and re-derives ub from the (possibly larger, caller-requested) stage
// count, used once FindMinimumClockPeriod has settled on a period and the
// caller wants a specific number of pipeline stages rather than the
// minimum implied by the critical path. The edge-stage pins are
// re-clamped against the new last stage, since stretching the pipeline
// moves where "last stage" actually is.
func (b *Bounds) TightenToStageCount(fn *ir.Function, numStages int) error {
	if numStages < b.NumStages {
		return fmt.Errorf("schedule: requested %d stages, but %d are required by the critical path", numStages, b.NumStages)
	}
	extra := numStages - b.NumStages
	for id := range b.Ub {
		b.Ub[id] += extra
	}
	b.NumStages = numStages
	clampEdgeStages(fn, b.Lb, b.Ub, numStages)
	if bad := infeasibleNodes(fn, b.Lb, b.Ub); len(bad) > 0 {
		return fmt.Errorf("schedule: no feasible stage after tightening to %d stages for node(s) %v", numStages, bad)
	}
	return nil
}
