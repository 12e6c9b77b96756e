package schedule

import "github.com/hlsc-project/hlsc/internal/ir"

// ScheduleASAP implements §4.4's Strategy C: every node is assigned its
// earliest feasible stage. It minimizes latency-to-first-result but tends
// to maximize live ranges (and therefore register count) relative to the
// min-cut and SDC strategies, so it mainly exists as their comparison
// baseline and as the cheapest fallback when the module has no cross-stage
// register pressure worth optimizing for (e.g. every node's lb equals its
// ub already).
func ScheduleASAP(fn *ir.Function, b *Bounds) map[ir.NodeID]int {
	stage := make(map[ir.NodeID]int, len(fn.Nodes()))
	for _, n := range fn.Nodes() {
		stage[n.ID()] = b.Lb[n.ID()]
	}
	return stage
}
