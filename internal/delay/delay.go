// Package delay implements the per-operation delay table and critical-path
// analysis of §4.4's "delay model", generalizing the teacher's total absence
// of timing analysis (the teacher never schedules hardware) by grounding on
// original_source/xls/scheduling/pipeline_schedule.cc's ComputeNodeDelays
// and ComputeCriticalPath.
package delay

import "github.com/hlsc-project/hlsc/internal/ir"

// Estimator returns the combinational delay, in picoseconds, of evaluating
// a single node (not counting its operands).
type Estimator interface {
	NodeDelayPs(fn *ir.Function, id ir.NodeID) int64
}

// perBitPs is the picosecond cost of one bit of width for width-scaling ops
// (arithmetic, compare); fixed-cost ops (Select, bitwise) use a flat base.
const perBitPs = 4

// TableEstimator is a closed per-Op delay table, the Go-native analog of
// XLS's DelayEstimator implementations (interpolated characterization
// tables); here a simple op-kind-keyed table stands in since no synthesized
// standard-cell characterization data is available in this pack.
type TableEstimator struct{}

func (TableEstimator) NodeDelayPs(fn *ir.Function, id ir.NodeID) int64 {
	n := fn.Get(id)
	w := int64(n.Type().Width)
	switch n.Op() {
	case ir.OpParam, ir.OpLiteral, ir.OpTuple, ir.OpTupleIndex, ir.OpConcat:
		return 0
	case ir.OpNot, ir.OpAnd, ir.OpOr:
		return 10
	case ir.OpEq, ir.OpNe:
		return 20 + w
	case ir.OpUlt, ir.OpUle, ir.OpUgt, ir.OpUge:
		return 30 + w
	case ir.OpAdd, ir.OpSub:
		return 50 + w*perBitPs/2
	case ir.OpUMul:
		return 100 + w*perBitPs*2
	case ir.OpUDiv:
		return 200 + w*perBitPs*4
	case ir.OpShll, ir.OpShrl:
		return 40 + w
	case ir.OpBitSlice, ir.OpZeroExtend, ir.OpSignExtend:
		return 0
	case ir.OpBitSliceUpdate:
		return 15
	case ir.OpSelect:
		return 25
	case ir.OpOneHot:
		return 30 + w
	case ir.OpOneHotSelect:
		return 40 + w
	case ir.OpInvoke:
		return 500 // opaque external call, conservatively expensive
	case ir.OpReceive, ir.OpSend, ir.OpAfterAll:
		return 0
	default:
		return 0
	}
}

// WithInputDelay wraps an Estimator, adding a fixed picosecond penalty to
// every Receive-kind node, matching pipeline_schedule.cc's
// DelayEstimatorWithInputDelay (the --additional_input_delay_ps flag):
// modeling an external handshake/pad delay on proc input channels that the
// teacher's (nonexistent) timing model never accounted for.
type WithInputDelay struct {
	Base         Estimator
	InputDelayPs int64
}

func (w WithInputDelay) NodeDelayPs(fn *ir.Function, id ir.NodeID) int64 {
	base := w.Base.NodeDelayPs(fn, id)
	if fn.Get(id).Op() == ir.OpReceive {
		return base + w.InputDelayPs
	}
	return base
}

// NodeDelays computes every node's own (operand-independent) delay,
// matching ComputeNodeDelays.
func NodeDelays(fn *ir.Function, est Estimator) map[ir.NodeID]int64 {
	out := make(map[ir.NodeID]int64, len(fn.Nodes()))
	for _, n := range fn.Nodes() {
		out[n.ID()] = est.NodeDelayPs(fn, n.ID())
	}
	return out
}

// CriticalPath returns the function's overall critical-path delay: the
// longest delay-weighted path from any parameter to any node, matching
// ComputeCriticalPath. It also returns the per-node finish time (the point
// at which a node's value is stable), used by the scheduler's bounds
// construction.
func CriticalPath(fn *ir.Function, est Estimator) (functionCp int64, nodeCp map[ir.NodeID]int64, err error) {
	order, err := ir.TopoSort(fn)
	if err != nil {
		return 0, nil, err
	}
	nodeCp = make(map[ir.NodeID]int64, len(order))
	for _, id := range order {
		start := int64(0)
		for _, opnd := range fn.Get(id).Operands() {
			if nodeCp[opnd] > start {
				start = nodeCp[opnd]
			}
		}
		finish := start + est.NodeDelayPs(fn, id)
		nodeCp[id] = finish
		if finish > functionCp {
			functionCp = finish
		}
	}
	return functionCp, nodeCp, nil
}
