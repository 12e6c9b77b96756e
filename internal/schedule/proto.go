package schedule

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hlsc-project/hlsc/internal/ir"
)

// ScheduleSnapshot is the stable structural encoding §8 calls "serialize a
// schedule to proto and deserialize". A genuine protobuf toolchain
// dependency appears nowhere in the example pack, so this mirrors the
// original PipelineScheduleProto shape (per-stage node-name lists) via
// encoding/json, the only serialization library with any precedent in
// this pack (see DESIGN.md's dependency ledger).
type ScheduleSnapshot struct {
	Function      string     `json:"function"`
	ClockPeriodPs int64      `json:"clock_period_ps"`
	Strategy      string     `json:"strategy"`
	Stages        [][]string `json:"stages"`
}

// ToSnapshot renders s using fn's node identifiers for stable, re-readable
// names (a named node, such as a Param or an Invoke/Receive/Send, uses its
// name; every other node uses "v" followed by its numeric id).
func (s *Schedule) ToSnapshot(fn *ir.Function) ScheduleSnapshot {
	stages := make([][]string, s.NumStages)
	for id, stage := range s.stage {
		if stage < 0 || stage >= len(stages) {
			continue
		}
		stages[stage] = append(stages[stage], nodeDisplayName(fn, id))
	}
	for _, names := range stages {
		sort.Strings(names)
	}
	return ScheduleSnapshot{
		Function:      s.Function,
		ClockPeriodPs: s.ClockPeriodPs,
		Strategy:      s.StrategyUsed.String(),
		Stages:        stages,
	}
}

func nodeDisplayName(fn *ir.Function, id ir.NodeID) string {
	n := fn.Get(id)
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("v%d", id)
}

// MarshalSnapshot and UnmarshalSnapshot round-trip a ScheduleSnapshot
// through JSON, matching §8's "serialize a schedule to proto and
// deserialize; the two must be structurally equal" scenario.
func MarshalSnapshot(snap ScheduleSnapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

func UnmarshalSnapshot(data []byte) (ScheduleSnapshot, error) {
	var snap ScheduleSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ScheduleSnapshot{}, fmt.Errorf("schedule: decoding snapshot: %w", err)
	}
	return snap, nil
}
