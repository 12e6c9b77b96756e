package schedule

import "github.com/hlsc-project/hlsc/internal/ir"

const infiniteCapacity = int64(1) << 40

// flowGraph is a tiny adjacency-list max-flow network used only by
// SplitAfterCycle's min-cut partitioning. No max-flow/min-cut library
// appears anywhere in the example pack (nor does XLS's own C++ use one —
// it calls into a generic min-cut routine local to the scheduler), so this
// is a from-scratch Edmonds-Karp implementation, the same category of
// decision already taken for the SDC strategy's difference-constraint
// solver: a foundational, textbook graph algorithm standing in for library
// support that does not exist in this ecosystem slice.
type flowGraph struct {
	n     int
	cap   []map[int]int64
}

func newFlowGraph(n int) *flowGraph {
	g := &flowGraph{n: n, cap: make([]map[int]int64, n)}
	for i := range g.cap {
		g.cap[i] = map[int]int64{}
	}
	return g
}

func (g *flowGraph) addEdge(u, v int, c int64) {
	if c == 0 {
		return
	}
	g.cap[u][v] += c
	if _, ok := g.cap[v][u]; !ok {
		g.cap[v][u] = 0
	}
}

// maxFlow runs Edmonds-Karp and returns the residual capacities after
// saturating s->t flow.
func (g *flowGraph) maxFlow(s, t int) {
	for {
		parent := make([]int, g.n)
		for i := range parent {
			parent[i] = -1
		}
		parent[s] = s
		queue := []int{s}
		for len(queue) > 0 && parent[t] == -1 {
			u := queue[0]
			queue = queue[1:]
			for v, c := range g.cap[u] {
				if c > 0 && parent[v] == -1 {
					parent[v] = u
					queue = append(queue, v)
				}
			}
		}
		if parent[t] == -1 {
			return // no more augmenting paths
		}
		bottleneck := infiniteCapacity
		for v := t; v != s; {
			u := parent[v]
			if g.cap[u][v] < bottleneck {
				bottleneck = g.cap[u][v]
			}
			v = u
		}
		for v := t; v != s; {
			u := parent[v]
			g.cap[u][v] -= bottleneck
			g.cap[v][u] += bottleneck
			v = u
		}
	}
}

// reachableFromSource returns, after maxFlow has run, the set of nodes
// still reachable from s in the residual graph: the min-cut's source side.
func (g *flowGraph) reachableFromSource(s int) []bool {
	seen := make([]bool, g.n)
	seen[s] = true
	queue := []int{s}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for v, c := range g.cap[u] {
			if c > 0 && !seen[v] {
				seen[v] = true
				queue = append(queue, v)
			}
		}
	}
	return seen
}

// SplitAfterCycle decides, for every node whose [lb,ub] window straddles
// the boundary between stage and stage+1, whether it belongs before or
// after that boundary, minimizing the total bit-width of values that must
// cross it (an interior pipeline register per crossing value), subject to
// never separating a producer into the "after" side while its consumer
// lands "before" (illegal — a consumer cannot run before its producer).
// This is exactly the precedence-constrained minimum s-t cut XLS's
// SplitAfterCycle delegates to a generic min-cut solver for; here it is
// solved directly via the flowGraph above. Matches
// GetMinCutCycleOrders/CountInteriorPipelineRegisters/
// ScheduleToMinimizeRegisters's per-boundary step.
func SplitAfterCycle(fn *ir.Function, b *Bounds, stage int) (early map[ir.NodeID]bool) {
	partitionable := map[ir.NodeID]int{} // node -> flow graph index
	var order []ir.NodeID
	for _, n := range fn.Nodes() {
		id := n.ID()
		if b.Lb[id] <= stage && b.Ub[id] >= stage+1 {
			partitionable[id] = len(order) + 2
			order = append(order, id)
		}
	}

	const sourceIdx, sinkIdx = 0, 1
	g := newFlowGraph(len(order) + 2)

	resolvedSide := func(id ir.NodeID) int { // -1 unresolved, 0 early, 1 late
		if _, ok := partitionable[id]; ok {
			return -1
		}
		if b.Ub[id] <= stage {
			return 0
		}
		if b.Lb[id] >= stage+1 {
			return 1
		}
		return -1
	}

	for _, id := range order {
		vIdx := partitionable[id]
		n := fn.Get(id)
		width := int64(n.Type().Width)

		for _, opnd := range n.Operands() {
			switch {
			case partitionable[opnd] != 0:
				uIdx := partitionable[opnd]
				opWidth := int64(fn.Get(opnd).Type().Width)
				g.addEdge(uIdx, vIdx, opWidth)        // producer early, consumer late: real register cost
				g.addEdge(vIdx, uIdx, infiniteCapacity) // forbid producer late, consumer early
			case resolvedSide(opnd) == 0:
				opWidth := int64(fn.Get(opnd).Type().Width)
				g.addEdge(sourceIdx, vIdx, opWidth)
			}
		}
		for _, user := range n.Users() {
			if _, ok := partitionable[user]; ok {
				continue // handled from the operand side above
			}
			if resolvedSide(user) == 1 {
				g.addEdge(vIdx, sinkIdx, width)
			}
		}
	}

	g.maxFlow(sourceIdx, sinkIdx)
	reach := g.reachableFromSource(sourceIdx)

	early = make(map[ir.NodeID]bool, len(order))
	for _, id := range order {
		early[id] = reach[partitionable[id]]
	}
	return early
}

// boundaryOrders returns the set of stage-boundary visitation orders tried
// by ScheduleToMinimizeRegisters, mirroring GetMinCutCycleOrders's forward,
// reverse, and middle-first candidates: "Try a number of different
// orderings of the cycle boundaries ... and keep the best one." Each order
// is a permutation of the boundary indices [0, numStages-2].
func boundaryOrders(numStages int) [][]int {
	numBoundaries := numStages - 1
	if numBoundaries <= 0 {
		return [][]int{{}}
	}
	forward := make([]int, numBoundaries)
	reverse := make([]int, numBoundaries)
	for i := 0; i < numBoundaries; i++ {
		forward[i] = i
		reverse[i] = numBoundaries - 1 - i
	}
	middleFirst := make([]int, 0, numBoundaries)
	mid := (numBoundaries - 1) / 2
	lo, hi := mid, mid+1
	for len(middleFirst) < numBoundaries {
		if lo >= 0 {
			middleFirst = append(middleFirst, lo)
			lo--
		}
		if len(middleFirst) < numBoundaries && hi < numBoundaries {
			middleFirst = append(middleFirst, hi)
			hi++
		}
	}
	return [][]int{forward, reverse, middleFirst}
}

// scheduleWithBoundaryOrder is ScheduleToMinimizeRegisters's per-candidate
// sweep: run SplitAfterCycle at every stage boundary in the given order,
// assigning each partitionable node to the first boundary that places it
// "early".
func scheduleWithBoundaryOrder(fn *ir.Function, b *Bounds, order []int) map[ir.NodeID]int {
	stage := make(map[ir.NodeID]int, len(fn.Nodes()))
	for _, n := range fn.Nodes() {
		id := n.ID()
		if b.Lb[id] == b.Ub[id] {
			stage[id] = b.Lb[id]
		}
	}
	for _, s := range order {
		early := SplitAfterCycle(fn, b, s)
		for id, isEarly := range early {
			if _, assigned := stage[id]; assigned {
				continue
			}
			if isEarly {
				stage[id] = s
			}
		}
	}
	// A node SplitAfterCycle never pulled early at any boundary defaults
	// to its Lb (the stage ScheduleASAP gives it) rather than its Ub.
	for _, n := range fn.Nodes() {
		id := n.ID()
		if _, ok := stage[id]; !ok {
			stage[id] = b.Lb[id]
		}
	}
	return stage
}

// interiorRegisterBits sums width(n) over every node whose stage differs
// from at least one of its users' stages: the bit cost of the pipeline
// registers CountInteriorPipelineRegisters would report for stage.
func interiorRegisterBits(fn *ir.Function, stage map[ir.NodeID]int) int64 {
	var total int64
	for _, n := range fn.Nodes() {
		id := n.ID()
		if n.Op() == ir.OpParam {
			continue
		}
		defStage := stage[id]
		for _, user := range n.Users() {
			if stage[user] != defStage {
				total += int64(n.Type().Width)
				break
			}
		}
	}
	return total
}

// ScheduleToMinimizeRegisters runs the min-cut boundary sweep once per
// candidate order from boundaryOrders and keeps whichever result has the
// smallest interior pipeline-register bit-count, matching
// ScheduleToMinimizeRegisters/GetMinCutCycleOrders's "try several orderings,
// keep the best" strategy.
func ScheduleToMinimizeRegisters(fn *ir.Function, b *Bounds) map[ir.NodeID]int {
	var best map[ir.NodeID]int
	var bestBits int64
	for _, order := range boundaryOrders(b.NumStages) {
		candidate := scheduleWithBoundaryOrder(fn, b, order)
		bits := interiorRegisterBits(fn, candidate)
		if best == nil || bits < bestBits {
			best, bestBits = candidate, bits
		}
	}
	return best
}
