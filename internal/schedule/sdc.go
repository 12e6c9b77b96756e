package schedule

import (
	"fmt"
	"sort"

	"github.com/hlsc-project/hlsc/internal/ir"
)

// sdcEdge is one difference constraint stage[to] - stage[from] >= weight.
type sdcEdge struct {
	from, to int
	weight   int64
}

// ScheduleToMinimizeRegistersSDC implements §4.4's SDC strategy. XLS builds
// this as an LP over per-node cycle and lifetime variables, with objective
// minimize Σ width(n)·lifetime(n), solved with Google OR-tools' glop
// (ScheduleToMinimizeRegistersSDC in pipeline_schedule.cc); no LP/simplex
// library exists anywhere in this pack, so the totally-unimodular
// difference-constraint system (one constraint per dependency edge, plus
// the box constraints from Bounds) is still solved with Bellman-Ford, but
// only to compute each node's own feasible [lo,hi] window — every node in
// that window is equally consistent with precedence, so the actual stage
// within the window is then chosen by a width-prioritized retiming pass:
// visit nodes in descending width order, greedily placing each one at the
// stage its already-decided neighbors favor, and propagate that choice as
// a tightened window bound onto its still-undecided neighbors. Heavier
// nodes get first pick of a stage that avoids needing a register for their
// own (wide) output; lighter nodes absorb whatever conflicts remain. This
// is the closed-form, graph-only stand-in for the LP's width-weighted
// objective that ScheduleToMinimizeRegisters (min-cut) and its own
// multi-ordering search above are built on the same way: a textbook
// algorithm replacing library support this ecosystem slice doesn't have.
func ScheduleToMinimizeRegistersSDC(fn *ir.Function, b *Bounds) (map[ir.NodeID]int, error) {
	order, err := ir.TopoSort(fn)
	if err != nil {
		return nil, err
	}

	index := make(map[ir.NodeID]int, len(order))
	for i, id := range order {
		index[id] = i
	}

	var edges []sdcEdge
	for _, id := range order {
		u := index[id]
		for _, user := range fn.Get(id).Users() {
			v, ok := index[user]
			if !ok {
				continue
			}
			edges = append(edges, sdcEdge{from: u, to: v, weight: 0}) // stage[user] >= stage[def]
		}
	}

	lbArr := make([]int64, len(order))
	ubArr := make([]int64, len(order))
	for i, id := range order {
		lbArr[i] = int64(b.Lb[id])
		ubArr[i] = int64(b.Ub[id])
	}

	asap, err := bellmanFordLongest(len(order), edges, lbArr)
	if err != nil {
		return nil, fmt.Errorf("schedule: sdc: %w", err)
	}

	// Backward pass: seed from ub and push each def's value down to the
	// minimum of its users' assigned values, computing the latest
	// feasible stage per node (ALAP) — used below only as the default
	// preference when a node has no already-decided neighbor to align to.
	alap, err := bellmanFordTightestUpperBound(len(order), edges, ubArr, asap)
	if err != nil {
		return nil, fmt.Errorf("schedule: sdc: %w", err)
	}

	lo := make(map[ir.NodeID]int, len(order))
	hi := make(map[ir.NodeID]int, len(order))
	for _, id := range order {
		lo[id] = b.Lb[id]
		hi[id] = b.Ub[id]
	}

	byDescendingWidth := append([]ir.NodeID{}, order...)
	sort.Slice(byDescendingWidth, func(i, j int) bool {
		wi := fn.Get(byDescendingWidth[i]).Type().Width
		wj := fn.Get(byDescendingWidth[j]).Type().Width
		if wi != wj {
			return wi > wj
		}
		return index[byDescendingWidth[i]] < index[byDescendingWidth[j]]
	})

	decided := make(map[ir.NodeID]int, len(order))
	for _, id := range byDescendingWidth {
		// A node with no decided neighbor yet defaults to asap (Lb), not
		// alap, the same default ScheduleToMinimizeRegisters uses. alap
		// breaks ties among several equally-well-aligned candidate stages,
		// nudging id as late as its neighbors allow.
		asapStage, alapStage := int(asap[index[id]]), int(alap[index[id]])
		stage := pickRetimedStage(fn, id, lo[id], hi[id], decided, asapStage, alapStage)
		decided[id] = stage
		for _, opnd := range fn.Get(id).Operands() {
			if _, ok := decided[opnd]; !ok && stage < hi[opnd] {
				hi[opnd] = stage
			}
		}
		for _, user := range fn.Get(id).Users() {
			if _, ok := decided[user]; !ok && stage > lo[user] {
				lo[user] = stage
			}
		}
	}
	return decided, nil
}

// pickRetimedStage chooses id's stage from its current feasible window
// [lo,hi], preferring whichever stage most of id's already-decided
// operands and users already sit at (so id needs no register of its own
// to bridge to them); falls back to asapDefault entirely when no neighbor
// has been decided yet, and otherwise breaks ties among equally-aligned
// candidates toward alapTiebreak.
func pickRetimedStage(fn *ir.Function, id ir.NodeID, lo, hi int, decided map[ir.NodeID]int, asapDefault, alapTiebreak int) int {
	if hi < lo {
		hi = lo
	}
	clamp := func(s int) int {
		if s < lo {
			return lo
		}
		if s > hi {
			return hi
		}
		return s
	}
	counts := map[int]int{}
	n := fn.Get(id)
	for _, opnd := range n.Operands() {
		if s, ok := decided[opnd]; ok {
			counts[clamp(s)]++
		}
	}
	for _, user := range n.Users() {
		if s, ok := decided[user]; ok {
			counts[clamp(s)]++
		}
	}
	if len(counts) == 0 {
		return clamp(asapDefault)
	}
	candidates := make([]int, 0, len(counts))
	for s := range counts {
		candidates = append(candidates, s)
	}
	sort.Ints(candidates)
	best, bestCount := candidates[0], -1
	for _, s := range candidates {
		better := counts[s] > bestCount
		tie := counts[s] == bestCount && abs(s-alapTiebreak) < abs(best-alapTiebreak)
		if better || tie {
			best, bestCount = s, counts[s]
		}
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// bellmanFordLongest computes, for each node, the longest path from any
// "free" start (its own lb) forward along edges requiring
// value[to] >= value[from] + weight, i.e. the ASAP assignment.
func bellmanFordLongest(n int, edges []sdcEdge, lb []int64) ([]int64, error) {
	dist := make([]int64, n)
	copy(dist, lb)
	for iter := 0; iter < n; iter++ {
		changed := false
		for _, e := range edges {
			if cand := dist[e.from] + e.weight; cand > dist[e.to] {
				dist[e.to] = cand
				changed = true
			}
		}
		if !changed {
			break
		}
		if iter == n-1 && changed {
			return nil, fmt.Errorf("constraint graph has a positive cycle (infeasible precedence)")
		}
	}
	return dist, nil
}

// bellmanFordTightestUpperBound computes, for each node, the largest value
// not exceeding ub[node] and not exceeding any user's (edge.to's) assigned
// value, seeded at lowerBound so the result never falls back below the
// already-proven-feasible ASAP stage.
func bellmanFordTightestUpperBound(n int, edges []sdcEdge, ub, lowerBound []int64) ([]int64, error) {
	dist := make([]int64, n)
	copy(dist, ub)
	for iter := 0; iter < n; iter++ {
		changed := false
		for _, e := range edges {
			if cand := dist[e.to]; cand < dist[e.from] {
				dist[e.from] = cand
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	for i := range dist {
		if dist[i] < lowerBound[i] {
			dist[i] = lowerBound[i]
		}
	}
	return dist, nil
}
