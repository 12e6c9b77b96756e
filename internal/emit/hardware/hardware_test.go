package hardware

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hlsc-project/hlsc/internal/delay"
	"github.com/hlsc-project/hlsc/internal/ir"
	"github.com/hlsc-project/hlsc/internal/schedule"
)

func adderFunction() *ir.Function {
	fn := ir.NewFunction("adder")
	a := fn.NewParam("a", 8)
	b := fn.NewParam("b", 8)
	fn.Return = fn.NewAdd(a, b)
	return fn
}

func TestEmitPipelineProducesModuleWithHeaderDeclsAssigns(t *testing.T) {
	fn := adderFunction()
	sched, err := schedule.Run(context.Background(), fn, delay.TableEstimator{}, schedule.Options{Strategy: schedule.StrategyASAP})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	var buf bytes.Buffer
	if err := EmitPipeline(fn, sched, &buf); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "module adder (") {
		t.Fatalf("missing module header, got:\n%s", out)
	}
	if !strings.Contains(out, "// declarations") || !strings.Contains(out, "// assignments") {
		t.Fatalf("missing declarations/assignments sections, got:\n%s", out)
	}
	if !strings.Contains(out, "endmodule") {
		t.Fatalf("missing endmodule, got:\n%s", out)
	}
	declIdx := strings.Index(out, "// declarations")
	assignIdx := strings.Index(out, "// assignments")
	if declIdx > assignIdx {
		t.Fatalf("expected declarations before assignments")
	}
}

func TestEmitSequentialOrdersFSMLast(t *testing.T) {
	fn := adderFunction()
	sched, err := schedule.Run(context.Background(), fn, delay.TableEstimator{}, schedule.Options{Strategy: schedule.StrategyASAP})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	var buf bytes.Buffer
	lp := LoopParams{Stride: 1, TripCount: 4, BodyLatency: 0}
	if err := EmitSequential(fn, sched, lp, &buf); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"NULL", "READY", "RUNNING", "DONE", "ready_in", "valid_in", "ready_out", "valid_out"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in sequential output, got:\n%s", want, out)
		}
	}
	fsmIdx := strings.Index(out, "finite state machine")
	assignIdx := strings.Index(out, "// assignments")
	if fsmIdx < assignIdx {
		t.Fatalf("expected the FSM block to be emitted after the assignments section")
	}
}

// With a pipelined body (BodyLatency>0), the accumulator must only latch
// body_result on the cycle pipeline_last_cycle is asserted — not on every
// RUNNING cycle, which would clobber it with an in-flight, not-yet-final
// result.
func TestEmitSequentialGatesAccumulatorOnPipelineLastCycle(t *testing.T) {
	fn := adderFunction()
	sched, err := schedule.Run(context.Background(), fn, delay.TableEstimator{}, schedule.Options{Strategy: schedule.StrategyASAP})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	var buf bytes.Buffer
	lp := LoopParams{Stride: 1, TripCount: 4, BodyLatency: 2}
	if err := EmitSequential(fn, sched, lp, &buf); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	out := buf.String()

	gateIdx := strings.Index(out, "if (pipeline_last_cycle) begin")
	accIdx := strings.Index(out, "accumulator <= body_result;")
	decrementIdx := strings.Index(out, "last_cycle_counter <= last_cycle_counter - 1;")
	if gateIdx < 0 || accIdx < 0 || decrementIdx < 0 {
		t.Fatalf("missing expected FSM fragments, got:\n%s", out)
	}
	if accIdx < gateIdx {
		t.Fatalf("expected the accumulator update to be gated inside the pipeline_last_cycle branch")
	}
	if accIdx > decrementIdx {
		t.Fatalf("expected the accumulator update to precede the not-yet-done else branch, got:\n%s", out)
	}
	if strings.Count(out, "accumulator <= body_result;") != 1 {
		t.Fatalf("expected exactly one gated accumulator update, got:\n%s", out)
	}
}
