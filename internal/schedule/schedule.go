package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hlsc-project/hlsc/internal/delay"
	"github.com/hlsc-project/hlsc/internal/diag"
	"github.com/hlsc-project/hlsc/internal/ir"
)

// Schedule is the result of scheduling fn: a stage assignment for every
// node, the clock period it was scheduled against (loosened by
// Options.PeriodRelaxationPercent once verified), and the per-stage
// critical path used to compute Rematerialization's SlackPs.
type Schedule struct {
	Function       string
	ClockPeriodPs  int64
	NumStages      int
	StrategyUsed   Strategy

	stage           map[ir.NodeID]int
	finishInStage   map[ir.NodeID]int64
	stageCriticalPs []int64
}

// Stage implements internal/passes's ScheduleInfo.
func (s *Schedule) Stage(id ir.NodeID) int { return s.stage[id] }

// SlackPs implements internal/passes's ScheduleInfo: the gap between this
// node's stage's critical path and the delay of the longest path ending at
// this node within that stage.
func (s *Schedule) SlackPs(id ir.NodeID) int64 {
	stage := s.stage[id]
	if stage < 0 || stage >= len(s.stageCriticalPs) {
		return 0
	}
	return s.stageCriticalPs[stage] - s.finishInStage[id]
}

// Run schedules fn per §4.4: apply clock margin, search (or accept) a
// clock period, construct bounds, run the requested strategy, verify the
// result, and then apply the period relaxation to the recorded period. If opts.Strategy is StrategySDC and the solve does not
// finish before ctx's deadline, it falls back to min-cut exactly as §5
// describes ("falling back to min-cut on context.DeadlineExceeded").
func Run(ctx context.Context, fn *ir.Function, est delay.Estimator, opts Options) (*Schedule, error) {
	clockPeriodPs := opts.ClockPeriodPs
	var err error
	if clockPeriodPs == 0 {
		clockPeriodPs, err = FindMinimumClockPeriod(fn, est, 1)
		if err != nil {
			return nil, err
		}
	}
	clockPeriodPs = applyMargin(clockPeriodPs, opts.ClockMarginPercent)

	bounds, err := ConstructBounds(fn, est, clockPeriodPs)
	if err != nil {
		return nil, err
	}
	if opts.PipelineStages > 0 {
		if err := bounds.TightenToStageCount(fn, opts.PipelineStages); err != nil {
			return nil, diag.Errorf(diag.KindResourceExhausted, "schedule: %v", err)
		}
	}

	used := opts.Strategy
	var stage map[ir.NodeID]int
	switch opts.Strategy {
	case StrategySDC:
		stage, err = runSDCWithFallback(ctx, fn, bounds, &used)
	case StrategyASAP:
		stage = ScheduleASAP(fn, bounds)
	default:
		stage = ScheduleToMinimizeRegisters(fn, bounds)
	}
	if err != nil {
		return nil, err
	}

	s := &Schedule{
		Function:      fn.Name,
		ClockPeriodPs: clockPeriodPs,
		NumStages:     bounds.NumStages,
		StrategyUsed:  used,
		stage:         stage,
	}
	s.computeStageCriticalPaths(fn, est)

	if err := s.VerifyTiming(fn, est); err != nil {
		return nil, err
	}
	s.ClockPeriodPs = applyRelaxation(s.ClockPeriodPs, opts.PeriodRelaxationPercent)
	return s, nil
}

func runSDCWithFallback(ctx context.Context, fn *ir.Function, bounds *Bounds, used *Strategy) (map[ir.NodeID]int, error) {
	type result struct {
		stage map[ir.NodeID]int
		err   error
	}
	done := make(chan result, 1)
	go func() {
		s, err := ScheduleToMinimizeRegistersSDC(fn, bounds)
		done <- result{s, err}
	}()
	select {
	case r := <-done:
		return r.stage, r.err
	case <-ctx.Done():
		*used = StrategyMinCut
		return ScheduleToMinimizeRegisters(fn, bounds), nil
	}
}

// computeStageCriticalPaths mirrors ConstructBounds's forward delay-folding
// pass, but now restricted to each node's already-fixed stage (a
// cross-stage operand contributes zero delay, since its value arrives
// through a register at the start of the stage), to produce the per-stage
// critical path figures SlackPs needs.
func (s *Schedule) computeStageCriticalPaths(fn *ir.Function, est delay.Estimator) {
	order, err := ir.TopoSort(fn)
	if err != nil {
		return
	}
	nodeDelay := delay.NodeDelays(fn, est)
	s.finishInStage = make(map[ir.NodeID]int64, len(order))
	crit := make([]int64, s.NumStages)
	for _, id := range order {
		n := fn.Get(id)
		stage := s.stage[id]
		var finish int64
		for _, opnd := range n.Operands() {
			if s.stage[opnd] != stage {
				continue // registered at the stage boundary; contributes no same-stage delay
			}
			if f := s.finishInStage[opnd]; f > finish {
				finish = f
			}
		}
		finish += nodeDelay[id]
		s.finishInStage[id] = finish
		if stage >= 0 && stage < len(crit) && finish > crit[stage] {
			crit[stage] = finish
		}
	}
	s.stageCriticalPs = crit
}

// VerifyTiming checks that the schedule respects precedence (no node is
// scheduled before any of its operands) and that no stage's critical path
// exceeds the clock period, matching pipeline_schedule.cc's VerifyTiming.
func (s *Schedule) VerifyTiming(fn *ir.Function, est delay.Estimator) error {
	for _, n := range fn.Nodes() {
		id := n.ID()
		for _, opnd := range n.Operands() {
			if s.stage[opnd] > s.stage[id] {
				return diag.Errorf(diag.KindInternal, "schedule: node %d scheduled in stage %d before its operand %d in stage %d", id, s.stage[id], opnd, s.stage[opnd])
			}
		}
	}
	for stage, crit := range s.stageCriticalPs {
		if crit > s.ClockPeriodPs {
			return diag.Errorf(diag.KindResourceExhausted, "schedule: stage %d's critical path %dps exceeds the clock period %dps", stage, crit, s.ClockPeriodPs)
		}
	}
	return nil
}

// String renders a per-cycle node dump, grounded on
// PipelineSchedule::ToString.
func (s *Schedule) String() string {
	byStage := make([][]ir.NodeID, s.NumStages)
	for id, stage := range s.stage {
		if stage >= 0 && stage < len(byStage) {
			byStage[stage] = append(byStage[stage], id)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Schedule for %s (clock period %dps, %d stages, strategy %s):\n", s.Function, s.ClockPeriodPs, s.NumStages, s.StrategyUsed)
	for stage, ids := range byStage {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		fmt.Fprintf(&b, "Cycle %d:\n", stage)
		for _, id := range ids {
			fmt.Fprintf(&b, "  %d\n", id)
		}
	}
	return b.String()
}
