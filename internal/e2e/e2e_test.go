package e2e

import (
	"context"
	"strings"
	"testing"

	"github.com/hlsc-project/hlsc/internal/ast"
	"github.com/hlsc-project/hlsc/internal/diag"
	"github.com/hlsc-project/hlsc/internal/emit/hardware"
	"github.com/hlsc-project/hlsc/internal/ir"
	"github.com/hlsc-project/hlsc/internal/irconv"
	"github.com/hlsc-project/hlsc/internal/lower"
	"github.com/hlsc-project/hlsc/internal/schedule"
)

// unitDelay is a fixed-delay estimator for the scheduler scenarios below,
// standing in for a real technology library the way the chain-of-adders
// fixtures in pipeline_schedule_test.cc use a constant per-node delay to
// keep the scheduling math exact.
type unitDelay struct{ ps int64 }

func (u unitDelay) NodeDelayPs(fn *ir.Function, id ir.NodeID) int64 {
	if fn.Get(id).Op() == ir.OpParam {
		return 0
	}
	return u.ps
}

// 1. Trivial identity — §8 scenario 1.
func TestTrivialIdentity(t *testing.T) {
	src := `{
		"TYNAME": "BLOCK",
		"OP0": {"TYNAME": "IDENT", "STRING": "top"},
		"OP1": {"TYNAME": "LIST", "VALUES": [
			{"TYNAME": "ASSIGN", "OP0": {"TYNAME": "IDENT", "STRING": "out"}, "OP1": {"TYNAME": "IDENT", "STRING": "in"}},
			{"TYNAME": "RETURN"}
		]}
	}`
	r := diag.NewReporter(nil, "text")
	a, modID, err := ast.Decode([]byte(src), r)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	ctx := lower.NewContext(a, r)
	ctx.DeclareVar("in", 32, false)
	ctx.DeclareVar("out", 32, false)
	if err := lower.DefaultPipeline().Run(ctx); err != nil {
		t.Fatalf("lowering failed: %v", err)
	}

	fn := ir.NewFunction("top")
	if err := irconv.Convert(a, modID, fn, r); err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if r.HasErrors() {
		t.Fatalf("unexpected diagnostics")
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 params (in, out), got %d", len(fn.Params))
	}
	if fn.Get(fn.Return).Op() != ir.OpTuple {
		t.Fatalf("expected the return to be a tuple, got %s", fn.Get(fn.Return).Op())
	}

	sched, err := schedule.Run(context.Background(), fn, unitDelay{ps: 1}, schedule.Options{
		ClockPeriodPs: 1000,
		Strategy:      schedule.StrategyASAP,
	})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if sched.NumStages != 1 {
		t.Fatalf("expected a single stage for a pure passthrough, got %d", sched.NumStages)
	}
}

// 2. If-merge — §8 scenario 2.
func TestIfMerge(t *testing.T) {
	a := ast.NewArena()
	x := a.NewIntLiteral(1, 32, "")
	assign := a.NewAssign(a.NewNameRef("x"), x)
	innerThen := a.NewBlock("", []ast.NodeID{assign})
	innerIf := a.NewIf(a.NewNameRef("b"), innerThen)
	outerThen := a.NewBlock("", []ast.NodeID{innerIf})
	outerIf := a.NewIf(a.NewNameRef("a"), outerThen)
	root := a.NewBlock("", []ast.NodeID{outerIf})
	a.NewModule(root)

	ctx := lower.NewContext(a, diag.NewReporter(nil, "text"))
	if err := (&lower.NestedIfMerge{}).Run(ctx); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	body := a.Get(a.Get(a.Root()).(*ast.Module).Body).(*ast.Block)
	if len(body.Stmts) != 1 {
		t.Fatalf("expected exactly one if after merging, got %d statements", len(body.Stmts))
	}
	merged, ok := a.Get(body.Stmts[0]).(*ast.If)
	if !ok {
		t.Fatalf("expected a single If, got %T", a.Get(body.Stmts[0]))
	}
	cond, ok := a.Get(merged.Cond).(*ast.BinaryExpr)
	if !ok || cond.Op != ast.BinLogicalAnd {
		t.Fatalf("expected the merged condition to be And(a, b), got %v", a.Get(merged.Cond))
	}
}

// 3. Nested slice — §8 scenario 3.
func TestNestedSliceFlattensToSingleBitSlice(t *testing.T) {
	a := ast.NewArena()
	def := a.NewFakeVarDef("a", 60, true, true)
	base := a.NewVarRef(def)
	s1 := a.NewBitSlice(base, 59, 10)
	s2 := a.NewBitSlice(s1, 39, 20)
	s3 := a.NewBitSlice(s2, 9, 0)
	stmt := a.NewExprEval(s3)
	blk := a.NewBlock("", []ast.NodeID{stmt})
	a.NewModule(blk)

	ctx := lower.NewContext(a, diag.NewReporter(nil, "text"))
	if err := (&lower.NestedBitSliceFlatten{}).Run(ctx); err != nil {
		t.Fatalf("flatten failed: %v", err)
	}

	ee := a.Get(a.Get(a.Get(a.Root()).(*ast.Module).Body).(*ast.Block).Stmts[0]).(*ast.ExprEval)
	flat, ok := a.Get(ee.Expr).(*ast.BitSlice)
	if !ok {
		t.Fatalf("expected a single BitSlice, got %T", a.Get(ee.Expr))
	}
	if flat.Target != base {
		t.Fatalf("expected the flattened slice's target to be the original base")
	}
	if flat.Hi != 39 || flat.Lo != 30 {
		t.Fatalf("expected [39:30], got [%d:%d]", flat.Hi, flat.Lo)
	}
}

// fanOutFanInDAG builds an 8-node value graph (1 param + 7 ops) shaped
// like scenario 4's "fan-out-then-fan-in": a single value forks into two
// branches that each extend it, then rejoin.
func fanOutFanInDAG() *ir.Function {
	fn := ir.NewFunction("fanfan")
	p := fn.NewParam("p", 4)
	a := fn.NewNot(p)
	b1 := fn.NewNot(a)
	b2 := fn.NewNot(a)
	c := fn.NewAnd(b1, b2)
	d1 := fn.NewNot(c)
	d2 := fn.NewNot(c)
	fn.Return = fn.NewAnd(d1, d2)
	return fn
}

func registerBits(fn *ir.Function, sched *schedule.Schedule) int64 {
	var total int64
	for _, n := range fn.Nodes() {
		if n.Op() == ir.OpParam {
			continue
		}
		defStage := sched.Stage(n.ID())
		for _, user := range n.Users() {
			if sched.Stage(user) != defStage {
				total += int64(n.Type().Width)
				break
			}
		}
	}
	return total
}

// 4. SDC vs min-cut — §8 scenario 4.
func TestSDCRegisterCountNeverExceedsMinCut(t *testing.T) {
	fn := fanOutFanInDAG()
	est := unitDelay{ps: 1}
	opts := schedule.Options{ClockPeriodPs: 2}

	opts.Strategy = schedule.StrategyMinCut
	minCutSched, err := schedule.Run(context.Background(), fn, est, opts)
	if err != nil {
		t.Fatalf("min-cut schedule failed: %v", err)
	}

	opts.Strategy = schedule.StrategySDC
	sdcSched, err := schedule.Run(context.Background(), fn, est, opts)
	if err != nil {
		t.Fatalf("SDC schedule failed: %v", err)
	}

	if minCutSched.NumStages != sdcSched.NumStages {
		t.Fatalf("expected both strategies to use the same minimal stage count, got %d and %d",
			minCutSched.NumStages, sdcSched.NumStages)
	}

	sdcBits, minCutBits := registerBits(fn, sdcSched), registerBits(fn, minCutSched)
	if sdcBits > minCutBits {
		t.Fatalf("expected SDC's register bit count (%d) to never exceed min-cut's (%d)", sdcBits, minCutBits)
	}
}

// 5. Sequential wrap — §8 scenario 5.
func TestSequentialWrapHandshakeOrdering(t *testing.T) {
	fn := ir.NewFunction("acc")
	a := fn.NewParam("acc_in", 8)
	b := fn.NewParam("k", 8)
	fn.Return = fn.NewAdd(a, b)

	sched, err := schedule.Run(context.Background(), fn, unitDelay{ps: 1}, schedule.Options{
		ClockPeriodPs: 1000,
		Strategy:      schedule.StrategyASAP,
	})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	var buf strings.Builder
	lp := hardware.LoopParams{Stride: 1, TripCount: 4, BodyLatency: 0}
	if err := hardware.EmitSequential(fn, sched, lp, &buf); err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	out := buf.String()

	readyIdx := strings.Index(out, "ready_in = (state == READY)")
	validOutIdx := strings.Index(out, "valid_out = (state == DONE)")
	doneCaseIdx := strings.Index(out, "DONE: begin")
	readyOutIdx := strings.Index(out, "if (ready_out) begin")
	if readyIdx < 0 || validOutIdx < 0 || doneCaseIdx < 0 || readyOutIdx < 0 {
		t.Fatalf("missing expected FSM signal wiring, got:\n%s", out)
	}
	// The handshake back to READY must be gated on ready_out inside the
	// DONE case, matching "returns to ready_in after one ready_out cycle."
	if readyOutIdx < doneCaseIdx {
		t.Fatalf("expected the ready_out check to live inside the DONE case")
	}
	if !strings.Contains(out, "index_counter <= index_counter + 1") {
		t.Fatalf("expected the strided index counter to advance by the configured stride")
	}
}

// 6. Infeasible clock period — §8 scenario 6.
func TestInfeasibleClockPeriodReportsLowerBound(t *testing.T) {
	fn := ir.NewFunction("chain")
	p := fn.NewParam("p", 8)
	n1 := fn.NewNot(p)
	n2 := fn.NewNot(n1)
	n3 := fn.NewNot(n2)
	fn.Return = fn.NewNot(n3)

	_, err := schedule.Run(context.Background(), fn, unitDelay{ps: 1}, schedule.Options{
		ClockPeriodPs:  1,
		PipelineStages: 2,
	})
	if err == nil {
		t.Fatalf("expected scheduling into 2 stages at clock period 1 to fail")
	}
	derr, ok := err.(*diag.Error)
	if !ok {
		t.Fatalf("expected a classified *diag.Error, got %T: %v", err, err)
	}
	if derr.Kind != diag.KindResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", derr.Kind)
	}
	if !strings.Contains(derr.Message, "4") {
		t.Fatalf("expected the message to name the computed lower bound (4), got %q", derr.Message)
	}
}
