// Package hardware implements §4.5's sequential FSM wrapper and a
// combinational pipeline wrapper, emitting §6's hardware text form:
// module header (clock/reset/data/handshake ports), declarations,
// assignments, FSM block last. Grounded on the teacher's
// internal/mlir.printer (indent/bindSSA/valueRef/sanitize idiom) and on
// original_source/xls/codegen/sequential_generator.cc's AddFsm
// (Null/Ready/Running/Done states).
package hardware

import (
	"fmt"
	"io"
	"math/bits"
	"sort"
	"strings"

	"github.com/hlsc-project/hlsc/internal/ir"
	"github.com/hlsc-project/hlsc/internal/schedule"
)

// printer is the shared low-level emission helper for both wrapper kinds,
// mirroring the teacher's mlir.printer: an indent level, a monotonically
// increasing temp counter, and a name-binding cache so every IR node gets
// exactly one stable identifier across the whole module.
type printer struct {
	w      io.Writer
	indent int
	names  map[ir.NodeID]string
	next   int
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, names: map[ir.NodeID]string{}}
}

func (p *printer) line(format string, args ...any) {
	for i := 0; i < p.indent; i++ {
		fmt.Fprint(p.w, "  ")
	}
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) bindSSA(id ir.NodeID) string {
	if name, ok := p.names[id]; ok {
		return name
	}
	name := fmt.Sprintf("v%d", p.next)
	p.next++
	p.names[id] = name
	return name
}

func (p *printer) ref(fn *ir.Function, id ir.NodeID) string {
	if n := fn.Get(id); n.Op() == ir.OpParam && n.Name != "" {
		return sanitize(n.Name)
	}
	return p.bindSSA(id)
}

// sanitize replaces every non-alphanumeric/underscore character, matching
// §6's "Identifiers are sanitized by replacing non-alphanumeric/underscore
// characters" — same rule as the teacher's mlir.sanitize.
func sanitize(name string) string {
	if name == "" {
		return "unnamed"
	}
	var b strings.Builder
	for i, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || (r >= '0' && r <= '9' && i > 0) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func ceilLog2(n int) int {
	if n <= 1 {
		return 1
	}
	return bits.Len(uint(n - 1))
}

// EmitPipeline renders fn's scheduled value graph as a combinational
// pipeline wrapper: one register rank per stage boundary, module header
// with clock/reset/data ports (no handshake signals — the pipeline wrapper
// is the plain always-on variant the sequential wrapper later embeds as
// its Running-state datapath).
func EmitPipeline(fn *ir.Function, sched *schedule.Schedule, w io.Writer) error {
	p := newPrinter(w)
	order, err := ir.TopoSort(fn)
	if err != nil {
		return err
	}

	p.line("module %s (", sanitize(fn.Name))
	p.indent++
	p.line("input wire clk,")
	p.line("input wire rst_n,")
	for _, param := range fn.Params {
		p.line("input wire [%d:0] %s,", fn.Get(param).Type().Width-1, sanitize(fn.Get(param).Name))
	}
	p.line("output wire [%d:0] data_out", fn.Get(fn.Return).Type().Width-1)
	p.indent--
	p.line(");")
	p.indent++

	p.line("// declarations")
	for _, id := range order {
		n := fn.Get(id)
		if n.Op() == ir.OpParam {
			continue
		}
		kind := "wire"
		if sched != nil && crossesStageBoundary(fn, sched, id) {
			kind = "reg"
		}
		p.line("%s [%d:0] %s;", kind, n.Type().Width-1, p.bindSSA(id))
	}

	p.line("// assignments")
	for _, id := range order {
		n := fn.Get(id)
		if n.Op() == ir.OpParam {
			continue
		}
		p.emitCombinationalAssign(fn, n)
	}
	if sched != nil {
		p.emitPipelineRegisters(fn, sched, order)
	}

	p.line("assign data_out = %s;", p.ref(fn, fn.Return))
	p.indent--
	p.line("endmodule")
	return nil
}

func crossesStageBoundary(fn *ir.Function, sched *schedule.Schedule, id ir.NodeID) bool {
	defStage := sched.Stage(id)
	for _, user := range fn.Get(id).Users() {
		if sched.Stage(user) != defStage {
			return true
		}
	}
	return false
}

func (p *printer) emitPipelineRegisters(fn *ir.Function, sched *schedule.Schedule, order []ir.NodeID) {
	p.line("// pipeline registers")
	p.line("always @(posedge clk or negedge rst_n) begin")
	p.indent++
	p.line("if (!rst_n) begin")
	p.indent++
	for _, id := range order {
		if fn.Get(id).Op() != ir.OpParam && crossesStageBoundary(fn, sched, id) {
			p.line("%s <= 0;", p.bindSSA(id))
		}
	}
	p.indent--
	p.line("end else begin")
	p.indent++
	for _, id := range order {
		if fn.Get(id).Op() != ir.OpParam && crossesStageBoundary(fn, sched, id) {
			p.line("%s <= %s_comb;", p.bindSSA(id), p.bindSSA(id))
		}
	}
	p.indent--
	p.line("end")
	p.indent--
	p.line("end")
}

func (p *printer) emitCombinationalAssign(fn *ir.Function, n *ir.Node) {
	dest := p.bindSSA(n.ID())
	ops := n.Operands()
	ref := func(i int) string { return p.ref(fn, ops[i]) }
	switch n.Op() {
	case ir.OpLiteral:
		p.line("assign %s = %d'h%x;", dest, n.Type().Width, n.Bits.Uint64())
	case ir.OpAdd:
		p.line("assign %s = %s + %s;", dest, ref(0), ref(1))
	case ir.OpSub:
		p.line("assign %s = %s - %s;", dest, ref(0), ref(1))
	case ir.OpUMul:
		p.line("assign %s = %s * %s;", dest, ref(0), ref(1))
	case ir.OpUDiv:
		p.line("assign %s = %s / %s;", dest, ref(0), ref(1))
	case ir.OpAnd:
		p.line("assign %s = %s & %s;", dest, ref(0), ref(1))
	case ir.OpOr:
		p.line("assign %s = %s | %s;", dest, ref(0), ref(1))
	case ir.OpNot:
		p.line("assign %s = ~%s;", dest, ref(0))
	case ir.OpEq:
		p.line("assign %s = (%s == %s);", dest, ref(0), ref(1))
	case ir.OpNe:
		p.line("assign %s = (%s != %s);", dest, ref(0), ref(1))
	case ir.OpUlt:
		p.line("assign %s = (%s < %s);", dest, ref(0), ref(1))
	case ir.OpUle:
		p.line("assign %s = (%s <= %s);", dest, ref(0), ref(1))
	case ir.OpUgt:
		p.line("assign %s = (%s > %s);", dest, ref(0), ref(1))
	case ir.OpUge:
		p.line("assign %s = (%s >= %s);", dest, ref(0), ref(1))
	case ir.OpShll:
		p.line("assign %s = %s << %s;", dest, ref(0), ref(1))
	case ir.OpShrl:
		p.line("assign %s = %s >> %s;", dest, ref(0), ref(1))
	case ir.OpBitSlice:
		p.line("assign %s = %s[%d:%d];", dest, ref(0), n.Start+n.Type().Width-1, n.Start)
	case ir.OpBitSliceUpdate:
		origWidth := fn.Get(ops[0]).Type().Width
		updateWidth := fn.Get(ops[1]).Type().Width
		highBit := n.Start + updateWidth
		switch {
		case n.Start == 0 && highBit >= origWidth:
			p.line("assign %s = %s;", dest, ref(1))
		case n.Start == 0:
			p.line("assign %s = {%s[%d:%d], %s};", dest, ref(0), origWidth-1, highBit, ref(1))
		case highBit >= origWidth:
			p.line("assign %s = {%s, %s[%d:0]};", dest, ref(1), ref(0), n.Start-1)
		default:
			p.line("assign %s = {%s[%d:%d], %s, %s[%d:0]};", dest, ref(0), origWidth-1, highBit, ref(1), ref(0), n.Start-1)
		}
	case ir.OpZeroExtend:
		p.line("assign %s = {{%d{1'b0}}, %s};", dest, n.Type().Width-fn.Get(ops[0]).Type().Width, ref(0))
	case ir.OpSignExtend:
		p.line("assign %s = {{%d{%s[%d]}}, %s};", dest, n.Type().Width-fn.Get(ops[0]).Type().Width, ref(0), fn.Get(ops[0]).Type().Width-1, ref(0))
	case ir.OpConcat:
		refs := make([]string, len(ops))
		for i := range ops {
			refs[i] = ref(i)
		}
		p.line("assign %s = {%s};", dest, strings.Join(refs, ", "))
	case ir.OpSelect:
		p.line("assign %s = %s ? %s : %s;", dest, ref(0), ref(1), ref(2))
	case ir.OpOneHot:
		p.line("assign %s = one_hot(%s); // priority lsb_first=%t", dest, ref(0), n.LsbFirst)
	case ir.OpOneHotSelect:
		refs := make([]string, len(ops)-1)
		for i := 1; i < len(ops); i++ {
			refs[i-1] = ref(i)
		}
		p.line("assign %s = one_hot_select(%s, {%s});", dest, ref(0), strings.Join(refs, ", "))
	case ir.OpTuple:
		refs := make([]string, len(ops))
		for i := range ops {
			refs[i] = ref(i)
		}
		p.line("assign %s = {%s};", dest, strings.Join(refs, ", "))
	case ir.OpTupleIndex:
		p.line("assign %s = %s /* .%d */;", dest, ref(0), n.TupleIndex)
	case ir.OpInvoke:
		refs := make([]string, len(ops))
		for i := range ops {
			refs[i] = ref(i)
		}
		p.line("%s inst_%s (%s);", sanitize(n.Name), dest, namedPortConnections(refs, dest))
	case ir.OpReceive:
		p.line("assign %s = %s_data;", dest, sanitize(n.Name))
	case ir.OpSend:
		p.line("assign %s_data = %s;", sanitize(n.Name), ref(0))
	case ir.OpAfterAll:
		p.line("// after_all token %s", dest)
	}
}

func namedPortConnections(args []string, result string) string {
	parts := make([]string, 0, len(args)+1)
	for i, a := range args {
		parts = append(parts, fmt.Sprintf(".arg%d(%s)", i, a))
	}
	parts = append(parts, fmt.Sprintf(".result(%s)", result))
	sort.Strings(parts[:len(parts)-1])
	return strings.Join(parts, ", ")
}
