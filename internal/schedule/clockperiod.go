package schedule

import (
	"github.com/hlsc-project/hlsc/internal/delay"
	"github.com/hlsc-project/hlsc/internal/diag"
	"github.com/hlsc-project/hlsc/internal/ir"
)

// FindMinimumClockPeriod binary searches over clock period (in picoseconds,
// quantized to quantumPs) for the smallest period for which ConstructBounds
// succeeds, matching FindMinimumClockPeriod's use of bounds-feasibility as
// the search predicate. The search range is [quantumPs, the function's
// full critical path].
func FindMinimumClockPeriod(fn *ir.Function, est delay.Estimator, quantumPs int64) (int64, error) {
	if quantumPs <= 0 {
		quantumPs = 1
	}
	cp, _, err := delay.CriticalPath(fn, est)
	if err != nil {
		return 0, err
	}

	feasible := func(periodPs int64) bool {
		_, err := ConstructBounds(fn, est, periodPs)
		return err == nil
	}

	lo, hi := quantumPs, cp
	if hi < lo {
		hi = lo
	}
	if !feasible(hi) {
		return 0, diag.Errorf(diag.KindResourceExhausted, "schedule: even the unpipelined critical path delay %dps is infeasible", hi)
	}
	for lo < hi {
		mid := lo + (hi-lo)/2
		mid -= mid % quantumPs
		if mid < lo {
			mid = lo
		}
		if feasible(mid) {
			hi = mid
			if hi == lo {
				break
			}
		} else {
			lo = mid + quantumPs
		}
	}
	return hi, nil
}
