// Package irtext implements §6's IR text form: each function lists its
// parameters with explicit types, then nodes in topological order as
// `id: type = op(operand_ids, attrs)`, with a final `ret` line — grounded
// on the teacher's internal/ir.Dump (sorted-name iteration,
// fmt.Fprintf-based line-oriented output, a per-op-kind render switch).
package irtext

import (
	"fmt"
	"io"
	"strings"

	"github.com/hlsc-project/hlsc/internal/bits"
	"github.com/hlsc-project/hlsc/internal/ir"
)

// Emit writes fn's IR text form to w.
func Emit(fn *ir.Function, w io.Writer) error {
	fmt.Fprintf(w, "fn %s(", fn.Name)
	for i, p := range fn.Params {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprintf(w, "%s: bits[%d]", paramName(fn, p), fn.Get(p).Type().Width)
	}
	fmt.Fprintln(w, ") {")

	order, err := ir.TopoSort(fn)
	if err != nil {
		return err
	}
	for _, id := range order {
		n := fn.Get(id)
		if n.Op() == ir.OpParam {
			continue // already listed in the signature
		}
		fmt.Fprintf(w, "  %s\n", renderNode(fn, n))
	}
	fmt.Fprintf(w, "  ret %s\n", nodeRef(fn, fn.Return))
	fmt.Fprintln(w, "}")
	return nil
}

func paramName(fn *ir.Function, id ir.NodeID) string {
	if n := fn.Get(id); n.Name != "" {
		return n.Name
	}
	return nodeRef(fn, id)
}

func nodeRef(fn *ir.Function, id ir.NodeID) string {
	return fmt.Sprintf("%%%d", id)
}

func renderNode(fn *ir.Function, n *ir.Node) string {
	operands := make([]string, len(n.Operands()))
	for i, o := range n.Operands() {
		operands[i] = nodeRef(fn, o)
	}
	attrs := attrString(n)
	return fmt.Sprintf("%s: bits[%d] = %s(%s%s)", nodeRef(fn, n.ID()), n.Type().Width, opName(n.Op()), strings.Join(operands, ", "), attrs)
}

func attrString(n *ir.Node) string {
	switch n.Op() {
	case ir.OpLiteral:
		return suffixComma(fmt.Sprintf("value=%s", formatBits(n.Bits)))
	case ir.OpBitSlice:
		return suffixComma(fmt.Sprintf("start=%d, width=%d", n.Start, n.Type().Width))
	case ir.OpBitSliceUpdate:
		return suffixComma(fmt.Sprintf("start=%d", n.Start))
	case ir.OpOneHot:
		return suffixComma(fmt.Sprintf("lsb_prio=%t", n.LsbFirst))
	case ir.OpTupleIndex:
		return suffixComma(fmt.Sprintf("index=%d", n.TupleIndex))
	case ir.OpInvoke:
		return suffixComma(fmt.Sprintf("callee=%s, impure=%t", n.Name, n.ImpureInvoke))
	case ir.OpReceive:
		return suffixComma(fmt.Sprintf("channel=%s", n.Name))
	case ir.OpSend:
		return suffixComma(fmt.Sprintf("channel=%s", n.Name))
	default:
		return ""
	}
}

func suffixComma(s string) string {
	return ", " + s
}

func formatBits(v bits.Bits) string {
	return fmt.Sprintf("0x%x", v.Uint64())
}

func opName(op ir.Op) string {
	return strings.ToLower(op.String())
}
