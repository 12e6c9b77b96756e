package ir

// IsDefinitelyEqualTo reports whether a and b are structurally identical:
// same op, same type, same attributes, and same operand identities (after
// the caller has already canonicalized commutative operand order). Used by
// CSE (§4.3) as the tie-breaker after a hash collision.
func (f *Function) IsDefinitelyEqualTo(a, b NodeID) bool {
	if a == b {
		return true
	}
	na, nb := f.Get(a), f.Get(b)
	if na.op != nb.op || na.typ != nb.typ {
		return false
	}
	if len(na.operands) != len(nb.operands) {
		return false
	}
	for i := range na.operands {
		if na.operands[i] != nb.operands[i] {
			return false
		}
	}
	switch na.op {
	case OpLiteral:
		return na.Bits.Equal(nb.Bits)
	case OpBitSlice, OpBitSliceUpdate:
		return na.Start == nb.Start
	case OpOneHot:
		return na.LsbFirst == nb.LsbFirst
	case OpTupleIndex:
		return na.TupleIndex == nb.TupleIndex
	case OpParam:
		return na.Name == nb.Name
	case OpInvoke:
		return na.Name == nb.Name && na.ImpureInvoke == nb.ImpureInvoke
	case OpReceive, OpSend:
		return na.Name == nb.Name
	default:
		return true
	}
}

// IsCommutative reports whether op's two operands may be reordered for
// canonical hashing purposes.
func (op Op) IsCommutative() bool {
	switch op {
	case OpAdd, OpUMul, OpAnd, OpOr, OpEq, OpNe:
		return true
	default:
		return false
	}
}
