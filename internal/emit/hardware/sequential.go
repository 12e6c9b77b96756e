package hardware

import (
	"fmt"
	"io"

	"github.com/hlsc-project/hlsc/internal/ir"
	"github.com/hlsc-project/hlsc/internal/schedule"
)

// LoopParams describes the counted-for loop §4.5 wraps a pipelined body
// in: a strided up-counter over [0, limit) and the body's own pipeline
// latency (in cycles).
type LoopParams struct {
	Stride        int
	TripCount     int
	BodyLatency   int // L
	AccumulatorID ir.NodeID
}

// limit matches §4.5's formula exactly: limit = ((trip_count*stride-1)/stride)*stride.
func (lp LoopParams) limit() int {
	return ((lp.TripCount*lp.Stride - 1) / lp.Stride) * lp.Stride
}

// EmitSequential renders fn (already scheduled into a single-iteration
// pipeline of latency lp.BodyLatency) as a resource-shared sequential
// module: a 4-state FSM (Null/Ready/Running/Done) wrapping one instance of
// the pipelined datapath, a strided index counter, an accumulator
// register, and per-invariant-parameter registers, under a ready/valid
// handshake — grounded on sequential_generator.cc's AddFsm.
func EmitSequential(fn *ir.Function, sched *schedule.Schedule, lp LoopParams, w io.Writer) error {
	p := newPrinter(w)
	limit := lp.limit()
	idxWidth := ceilLog2(limit)
	lastCycleWidth := ceilLog2(lp.BodyLatency + 1)

	p.line("module %s_seq (", sanitize(fn.Name))
	p.indent++
	p.line("input wire clk,")
	p.line("input wire rst_n,") // active-low async reset per §4.5
	for i, param := range fn.Params {
		p.line("input wire [%d:0] data_in_%d, // %s", fn.Get(param).Type().Width-1, i, sanitize(fn.Get(param).Name))
	}
	p.line("output wire [%d:0] data_out,", fn.Get(fn.Return).Type().Width-1)
	p.line("input wire valid_in,")
	p.line("output wire ready_in,")
	p.line("output wire valid_out,")
	p.line("input wire ready_out")
	p.indent--
	p.line(");")
	p.indent++

	p.line("// declarations")
	p.line("localparam NULL = 2'd0, READY = 2'd1, RUNNING = 2'd2, DONE = 2'd3;")
	p.line("reg [1:0] state;")
	p.line("reg [%d:0] index_counter;", idxWidth-1)
	p.line("reg [%d:0] last_cycle_counter;", lastCycleWidth-1)
	p.line("reg [%d:0] accumulator;", fn.Get(fn.Return).Type().Width-1)
	for i, param := range fn.Params {
		if i == 0 {
			continue // data_in[0] feeds the accumulator, not an invariant register
		}
		p.line("reg [%d:0] invariant_%d;", fn.Get(param).Type().Width-1, i)
	}
	p.line("wire holds_max_inclusive_value;")
	p.line("wire pipeline_last_cycle;")
	p.line("wire [%d:0] body_result;", fn.Get(fn.Return).Type().Width-1)

	p.line("// assignments")
	p.line("assign holds_max_inclusive_value = (index_counter >= %d);", limit-lp.Stride)
	if lp.BodyLatency == 0 {
		p.line("assign pipeline_last_cycle = (state == RUNNING);")
	} else {
		p.line("assign pipeline_last_cycle = (state == RUNNING) && (last_cycle_counter == 0);")
	}
	p.line("assign ready_in = (state == READY);")
	p.line("assign valid_out = (state == DONE);")
	p.line("assign data_out = accumulator;")

	p.line("%s_body body_inst (", sanitize(fn.Name))
	p.indent++
	p.line(".clk(clk),")
	p.line(".rst_n(rst_n),")
	p.line(".%s(accumulator),", sanitize(firstParamName(fn)))
	for i, param := range fn.Params {
		if i == 0 {
			continue
		}
		p.line(".%s(invariant_%d),", sanitize(fn.Get(param).Name), i)
	}
	p.line(".data_out(body_result)")
	p.indent--
	p.line(");")

	p.line("// finite state machine (Null/Ready/Running/Done, reset-released into Null)")
	p.line("always @(posedge clk or negedge rst_n) begin")
	p.indent++
	p.line("if (!rst_n) begin")
	p.indent++
	p.line("state <= NULL;")
	p.line("index_counter <= 0;")
	p.line("last_cycle_counter <= 0;")
	p.line("accumulator <= 0;")
	p.indent--
	p.line("end else begin")
	p.indent++
	p.line("case (state)")
	p.indent++
	p.line("NULL: state <= READY;")
	p.line("READY: begin")
	p.indent++
	p.line("if (valid_in) begin")
	p.indent++
	p.line("accumulator <= data_in_0;")
	for i := range fn.Params {
		if i == 0 {
			continue
		}
		p.line("invariant_%d <= data_in_%d;", i, i)
	}
	p.line("index_counter <= 0;")
	p.line("last_cycle_counter <= %d;", lp.BodyLatency)
	p.line("state <= RUNNING;")
	p.indent--
	p.line("end")
	p.indent--
	p.line("end")
	p.line("RUNNING: begin")
	p.indent++
	p.line("if (pipeline_last_cycle) begin")
	p.indent++
	p.line("accumulator <= body_result;")
	p.line("last_cycle_counter <= %d;", lp.BodyLatency)
	p.line("if (holds_max_inclusive_value) begin")
	p.indent++
	p.line("state <= DONE;")
	p.indent--
	p.line("end else begin")
	p.indent++
	p.line("index_counter <= index_counter + %d;", lp.Stride)
	p.indent--
	p.line("end")
	p.indent--
	p.line("end else begin")
	p.indent++
	p.line("last_cycle_counter <= last_cycle_counter - 1;")
	p.indent--
	p.line("end")
	p.indent--
	p.line("end")
	p.line("DONE: begin")
	p.indent++
	p.line("if (ready_out) begin")
	p.indent++
	p.line("state <= READY;")
	p.indent--
	p.line("end")
	p.indent--
	p.line("end")
	p.indent--
	p.line("endcase")
	p.indent--
	p.line("end")
	p.indent--
	p.line("end")

	p.indent--
	p.line("endmodule")
	return nil
}

func firstParamName(fn *ir.Function) string {
	if len(fn.Params) == 0 {
		return "acc_in"
	}
	if name := fn.Get(fn.Params[0]).Name; name != "" {
		return name
	}
	return fmt.Sprintf("v%d", fn.Params[0])
}
