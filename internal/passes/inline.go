package passes

import (
	"fmt"
	"strings"

	"github.com/hlsc-project/hlsc/internal/ir"
)

// Inlining replaces every Invoke in fn with a copy of its callee's body,
// substituting the callee's Params for the Invoke's actual argument nodes.
// Cloned Invoke, Receive and Send nodes are renamed "<prefix>.<name>",
// where prefix is longestPrefixMatch of the Invoke's name and the callee's
// name; an Invoke is named after its callee, so the prefix is the callee's
// name. Other cloned nodes carry no name, and parameter names are not used.
type Inlining struct {
	// Package supplies the callee bodies named by Invoke.Name.
	Package *ir.Package

	// Inlined counts the Invoke nodes replaced during the most recent Run.
	Inlined int
}

func (*Inlining) Name() string { return "inlining" }

// Run inlines every impure-or-pure Invoke in fn whose callee exists in
// Package, processing callees in post-order of the call graph (a callee is
// itself fully inlined before being spliced into a caller, so nested
// Invokes resolve transitively).
func (p *Inlining) Run(fn *ir.Function) error {
	if p.Package == nil {
		return nil
	}
	visited := map[string]bool{}
	var visit func(f *ir.Function) error
	visit = func(f *ir.Function) error {
		if visited[f.Name] {
			return nil
		}
		visited[f.Name] = true
		for _, n := range f.Nodes() {
			if n.Op() != ir.OpInvoke {
				continue
			}
			if callee, ok := p.Package.Functions[n.Name]; ok {
				if err := visit(callee); err != nil {
					return err
				}
			}
		}
		return p.inlineAll(f)
	}
	return visit(fn)
}

func (p *Inlining) inlineAll(fn *ir.Function) error {
	for {
		var target *ir.Node
		for _, n := range fn.Nodes() {
			if n.Op() == ir.OpInvoke {
				target = n
				break
			}
		}
		if target == nil {
			return nil
		}
		callee, ok := p.Package.Functions[target.Name]
		if !ok {
			return fmt.Errorf("passes: inlining: unknown callee %q", target.Name)
		}
		if err := p.inlineOne(fn, target, callee); err != nil {
			return err
		}
		p.Inlined++
	}
}

// inlineOne splices a clone of callee's value graph into fn in place of
// call, binding callee's Params positionally to call's operands.
func (p *Inlining) inlineOne(fn *ir.Function, call *ir.Node, callee *ir.Function) error {
	order, err := ir.TopoSort(callee)
	if err != nil {
		return err
	}

	clonePrefix := longestPrefixMatch(call.Name, callee.Name)
	clones := map[ir.NodeID]ir.NodeID{}
	for i, p := range callee.Params {
		if i < len(call.Operands()) {
			clones[p] = call.Operands()[i]
		}
	}

	for _, id := range order {
		if _, already := clones[id]; already {
			continue // a Param, already bound above
		}
		n := callee.Get(id)
		newOperands := make([]ir.NodeID, len(n.Operands()))
		for i, o := range n.Operands() {
			newOperands[i] = clones[o]
		}
		clones[id] = cloneInto(fn, n, newOperands, clonePrefix)
	}

	replacement := clones[callee.Return]
	fn.ReplaceAllUses(call.ID(), replacement)
	fn.Delete(call.ID())
	return nil
}

// cloneInto recreates n's operation in fn with newOperands, reusing the
// builder's per-op constructors so the resulting node carries the same
// attributes as n.
func cloneInto(fn *ir.Function, n *ir.Node, newOperands []ir.NodeID, namePrefix string) ir.NodeID {
	switch n.Op() {
	case ir.OpLiteral:
		return fn.NewLiteral(n.Bits)
	case ir.OpAdd:
		return fn.NewAdd(newOperands[0], newOperands[1])
	case ir.OpSub:
		return fn.NewSub(newOperands[0], newOperands[1])
	case ir.OpUMul:
		return fn.NewUMul(newOperands[0], newOperands[1])
	case ir.OpUDiv:
		return fn.NewUDiv(newOperands[0], newOperands[1])
	case ir.OpAnd:
		return fn.NewAnd(newOperands[0], newOperands[1])
	case ir.OpOr:
		return fn.NewOr(newOperands[0], newOperands[1])
	case ir.OpNot:
		return fn.NewNot(newOperands[0])
	case ir.OpEq:
		return fn.NewEq(newOperands[0], newOperands[1])
	case ir.OpNe:
		return fn.NewNe(newOperands[0], newOperands[1])
	case ir.OpUlt:
		return fn.NewUlt(newOperands[0], newOperands[1])
	case ir.OpUle:
		return fn.NewUle(newOperands[0], newOperands[1])
	case ir.OpUgt:
		return fn.NewUgt(newOperands[0], newOperands[1])
	case ir.OpUge:
		return fn.NewUge(newOperands[0], newOperands[1])
	case ir.OpShll:
		return fn.NewShll(newOperands[0], newOperands[1])
	case ir.OpShrl:
		return fn.NewShrl(newOperands[0], newOperands[1])
	case ir.OpBitSlice:
		return fn.NewBitSlice(newOperands[0], n.Start, n.Type().Width)
	case ir.OpBitSliceUpdate:
		return fn.NewBitSliceUpdate(newOperands[0], newOperands[1], n.Start)
	case ir.OpZeroExtend:
		return fn.NewZeroExtend(newOperands[0], n.Type().Width)
	case ir.OpSignExtend:
		return fn.NewSignExtend(newOperands[0], n.Type().Width)
	case ir.OpConcat:
		return fn.NewConcat(newOperands...)
	case ir.OpSelect:
		return fn.NewSelect(newOperands[0], newOperands[1], newOperands[2])
	case ir.OpOneHot:
		return fn.NewOneHot(newOperands[0], n.LsbFirst)
	case ir.OpOneHotSelect:
		return fn.NewOneHotSelect(newOperands[0], newOperands[1:])
	case ir.OpTuple:
		return fn.NewTuple(newOperands...)
	case ir.OpTupleIndex:
		return fn.NewTupleIndex(newOperands[0], n.TupleIndex)
	case ir.OpInvoke:
		return fn.NewInvoke(namePrefix+"."+n.Name, newOperands, n.Type().Width, n.ImpureInvoke)
	case ir.OpReceive:
		return fn.NewReceive(namePrefix+"."+n.Name, n.Type().Width)
	case ir.OpSend:
		return fn.NewSend(namePrefix+"."+n.Name, newOperands[0])
	case ir.OpAfterAll:
		return fn.NewAfterAll(newOperands...)
	default:
		panic(fmt.Sprintf("passes: inlining: unhandled op %s", n.Op()))
	}
}

// longestPrefixMatch returns the longest common dotted-segment prefix of
// the caller-side invoke name and the callee's own name, falling back to
// the callee name when they share nothing.
func longestPrefixMatch(callName, calleeName string) string {
	a := strings.Split(callName, ".")
	b := strings.Split(calleeName, ".")
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	matched := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			break
		}
		matched++
	}
	if matched == 0 {
		return calleeName
	}
	return strings.Join(a[:matched], ".")
}
