package ir

import (
	"fmt"

	"github.com/hlsc-project/hlsc/internal/bits"
)

// This file collects the per-kind node constructors, mirroring the
// teacher's builder.go pattern of one factory per IR shape, generalized
// from hardware Signals to the value-DAG node kinds of §3.

func (f *Function) NewParam(name string, width int) NodeID {
	n := f.newNode(OpParam, Type{Width: width}, nil)
	n.Name = name
	f.Params = append(f.Params, n.id)
	return n.id
}

func (f *Function) NewLiteral(v bits.Bits) NodeID {
	n := f.newNode(OpLiteral, Type{Width: v.Width()}, nil)
	n.Bits = v
	return n.id
}

func (f *Function) mustEqualWidth(op string, operands ...NodeID) int {
	w := f.Get(operands[0]).typ.Width
	for _, o := range operands[1:] {
		if f.Get(o).typ.Width != w {
			panic(fmt.Sprintf("ir: %s requires equal-width operands, got %d and %d", op, w, f.Get(o).typ.Width))
		}
	}
	return w
}

func (f *Function) newBinArith(op Op, name string, lhs, rhs NodeID) NodeID {
	w := f.mustEqualWidth(name, lhs, rhs)
	return f.newNode(op, Type{Width: w}, []NodeID{lhs, rhs}).id
}

func (f *Function) NewAdd(lhs, rhs NodeID) NodeID  { return f.newBinArith(OpAdd, "add", lhs, rhs) }
func (f *Function) NewSub(lhs, rhs NodeID) NodeID  { return f.newBinArith(OpSub, "sub", lhs, rhs) }
func (f *Function) NewUMul(lhs, rhs NodeID) NodeID { return f.newBinArith(OpUMul, "umul", lhs, rhs) }
func (f *Function) NewUDiv(lhs, rhs NodeID) NodeID { return f.newBinArith(OpUDiv, "udiv", lhs, rhs) }
func (f *Function) NewAnd(lhs, rhs NodeID) NodeID  { return f.newBinArith(OpAnd, "and", lhs, rhs) }
func (f *Function) NewOr(lhs, rhs NodeID) NodeID   { return f.newBinArith(OpOr, "or", lhs, rhs) }

func (f *Function) NewNot(x NodeID) NodeID {
	return f.newNode(OpNot, f.Get(x).typ, []NodeID{x}).id
}

func (f *Function) newCompare(op Op, name string, lhs, rhs NodeID) NodeID {
	f.mustEqualWidth(name, lhs, rhs)
	return f.newNode(op, Type{Width: 1}, []NodeID{lhs, rhs}).id
}

func (f *Function) NewEq(lhs, rhs NodeID) NodeID  { return f.newCompare(OpEq, "eq", lhs, rhs) }
func (f *Function) NewNe(lhs, rhs NodeID) NodeID  { return f.newCompare(OpNe, "ne", lhs, rhs) }
func (f *Function) NewUlt(lhs, rhs NodeID) NodeID { return f.newCompare(OpUlt, "ult", lhs, rhs) }
func (f *Function) NewUle(lhs, rhs NodeID) NodeID { return f.newCompare(OpUle, "ule", lhs, rhs) }
func (f *Function) NewUgt(lhs, rhs NodeID) NodeID { return f.newCompare(OpUgt, "ugt", lhs, rhs) }
func (f *Function) NewUge(lhs, rhs NodeID) NodeID { return f.newCompare(OpUge, "uge", lhs, rhs) }

// NewShll/NewShrl: shift amount carries its own (generally 64-bit, per
// §4.2's width-promotion rule) width; the result width matches the shifted
// value.
func (f *Function) NewShll(value, amount NodeID) NodeID {
	return f.newNode(OpShll, f.Get(value).typ, []NodeID{value, amount}).id
}

func (f *Function) NewShrl(value, amount NodeID) NodeID {
	return f.newNode(OpShrl, f.Get(value).typ, []NodeID{value, amount}).id
}

// NewBitSlice extracts width bits of value starting at bit start.
func (f *Function) NewBitSlice(value NodeID, start, width int) NodeID {
	n := f.newNode(OpBitSlice, Type{Width: width}, []NodeID{value})
	n.Start = start
	return n.id
}

// NewBitSliceUpdate returns a copy of value with update written starting
// at bit start.
func (f *Function) NewBitSliceUpdate(value, update NodeID, start int) NodeID {
	n := f.newNode(OpBitSliceUpdate, f.Get(value).typ, []NodeID{value, update})
	n.Start = start
	return n.id
}

func (f *Function) NewZeroExtend(value NodeID, width int) NodeID {
	return f.newNode(OpZeroExtend, Type{Width: width}, []NodeID{value}).id
}

func (f *Function) NewSignExtend(value NodeID, width int) NodeID {
	return f.newNode(OpSignExtend, Type{Width: width}, []NodeID{value}).id
}

// NewConcat concatenates operands, most-significant first.
func (f *Function) NewConcat(operands ...NodeID) NodeID {
	total := 0
	for _, o := range operands {
		total += f.Get(o).typ.Width
	}
	return f.newNode(OpConcat, Type{Width: total}, operands).id
}

// NewSelect returns ifTrue when cond is non-zero, else ifFalse. Both
// branches must have equal width.
func (f *Function) NewSelect(cond, ifTrue, ifFalse NodeID) NodeID {
	w := f.mustEqualWidth("select", ifTrue, ifFalse)
	return f.newNode(OpSelect, Type{Width: w}, []NodeID{cond, ifTrue, ifFalse}).id
}

// NewOneHot returns a one-hot encoding of input, one bit wider than input
// to accommodate the implicit "no bit set" case; lsbFirst selects priority
// order.
func (f *Function) NewOneHot(input NodeID, lsbFirst bool) NodeID {
	n := f.newNode(OpOneHot, Type{Width: f.Get(input).typ.Width + 1}, []NodeID{input})
	n.LsbFirst = lsbFirst
	return n.id
}

// NewOneHotSelect returns the bitwise-or of each case whose corresponding
// selector bit is set. All cases must share a width; selector's width must
// equal len(cases).
func (f *Function) NewOneHotSelect(selector NodeID, cases []NodeID) NodeID {
	if f.Get(selector).typ.Width != len(cases) {
		panic(fmt.Sprintf("ir: one_hot_sel selector width %d does not match %d cases", f.Get(selector).typ.Width, len(cases)))
	}
	w := 0
	if len(cases) > 0 {
		w = f.mustEqualWidth("one_hot_sel", cases...)
	}
	operands := append([]NodeID{selector}, cases...)
	return f.newNode(OpOneHotSelect, Type{Width: w}, operands).id
}

// NewTuple packages elems into a single aggregate value. Tuple width is
// the sum of element widths (flat packing), which is sufficient since this
// IR has no further structural typing beyond bit width.
func (f *Function) NewTuple(elems ...NodeID) NodeID {
	total := 0
	for _, e := range elems {
		total += f.Get(e).typ.Width
	}
	return f.newNode(OpTuple, Type{Width: total}, elems).id
}

// NewTupleIndex selects element i out of a tuple's operand list.
func (f *Function) NewTupleIndex(tuple NodeID, i int) NodeID {
	tNode := f.Get(tuple)
	if tNode.op != OpTuple || i < 0 || i >= len(tNode.operands) {
		panic(fmt.Sprintf("ir: tuple_index(%d) out of range on node %d", i, tuple))
	}
	width := f.Get(tNode.operands[i]).typ.Width
	n := f.newNode(OpTupleIndex, Type{Width: width}, []NodeID{tuple})
	n.TupleIndex = i
	return n.id
}

// NewInvoke substitutes (prior to inlining) a call to callee with args.
// resultWidth is the callee's return width; impure marks the call
// side-effecting for DCE purposes.
func (f *Function) NewInvoke(callee string, args []NodeID, resultWidth int, impure bool) NodeID {
	n := f.newNode(OpInvoke, Type{Width: resultWidth}, args)
	n.Name = callee
	n.ImpureInvoke = impure
	return n.id
}

// NewReceive and NewSend are proc-only side-effecting operations.
func (f *Function) NewReceive(channel string, width int) NodeID {
	n := f.newNode(OpReceive, Type{Width: width}, nil)
	n.Name = channel
	f.IsProc = true
	return n.id
}

func (f *Function) NewSend(channel string, value NodeID) NodeID {
	n := f.newNode(OpSend, Type{Width: 0}, []NodeID{value})
	n.Name = channel
	f.IsProc = true
	return n.id
}

// NewAfterAll sequences a set of side-effecting token-producing operations.
func (f *Function) NewAfterAll(deps ...NodeID) NodeID {
	f.IsProc = true
	return f.newNode(OpAfterAll, Type{Width: 0}, deps).id
}
