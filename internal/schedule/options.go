package schedule

// Options configures a scheduling run: the CLI-requested clock period (or
// zero to auto-search the minimum), margin/relaxation percentages applied
// to it, an explicit stage-count floor, and the strategy to use.
type Options struct {
	ClockPeriodPs        int64
	ClockMarginPercent   int64
	PeriodRelaxationPercent int64
	PipelineStages       int
	Strategy             Strategy
}

// Strategy selects among §4.4's three scheduling strategies.
type Strategy int

const (
	StrategyMinCut Strategy = iota
	StrategySDC
	StrategyASAP
)

func (s Strategy) String() string {
	switch s {
	case StrategyMinCut:
		return "min-cut"
	case StrategySDC:
		return "sdc"
	case StrategyASAP:
		return "asap"
	default:
		return "unknown"
	}
}

// applyMargin and applyRelaxation implement PipelineSchedule::Run's
// rounding rule (pipeline_schedule.cc lines ~651-681): cp -= (cp*margin+50)/100
// to tighten the period by a safety margin before scheduling, and
// cp += (cp*relax+50)/100 to loosen it afterward for reporting/export —
// both round-to-nearest rather than truncate, matching the original's
// integer-percent arithmetic exactly.
func applyMargin(clockPeriodPs, marginPercent int64) int64 {
	if marginPercent == 0 {
		return clockPeriodPs
	}
	return clockPeriodPs - (clockPeriodPs*marginPercent+50)/100
}

func applyRelaxation(clockPeriodPs, relaxPercent int64) int64 {
	if relaxPercent == 0 {
		return clockPeriodPs
	}
	return clockPeriodPs + (clockPeriodPs*relaxPercent+50)/100
}
