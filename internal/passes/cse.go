package passes

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/hlsc-project/hlsc/internal/ir"
)

// MergeabilityKey, when set, lets a caller (the scheduler, per §4.3) forbid
// merging two nodes that would otherwise CSE together — e.g. because doing
// so would cross a stage boundary. Two nodes merge only if their keys are
// equal. A nil key always agrees with itself.
type MergeabilityKey func(fn *ir.Function, id ir.NodeID) any

// CSE merges structurally identical nodes: it hashes each node by
// (op, operand_ids), canonicalizing operand order for commutative ops, then
// within each hash bucket merges nodes pairwise using
// Function.IsDefinitelyEqualTo as the tie-breaker and Key as an additional
// merge veto (§4.3).
type CSE struct {
	Key MergeabilityKey

	// Merged counts how many nodes were folded into a representative during
	// the most recent Run.
	Merged int
}

func (*CSE) Name() string { return "cse" }

func (c *CSE) Run(fn *ir.Function) error {
	order, err := ir.TopoSort(fn)
	if err != nil {
		return err
	}

	buckets := map[uint64][]ir.NodeID{}
	c.Merged = 0

	for _, id := range order {
		if !fn.Exists(id) {
			continue // deleted by an earlier merge in this loop
		}
		h := c.hash(fn, id)
		n := fn.Get(id)
		var mergedInto ir.NodeID
		found := false
		for _, cand := range buckets[h] {
			if !fn.Exists(cand) {
				continue
			}
			equal := fn.IsDefinitelyEqualTo(id, cand)
			if !equal && n.Op().IsCommutative() && len(n.Operands()) == 2 {
				// b+a against a+b: compare with the candidate's operands swapped.
				c := fn.Get(cand)
				equal = c.Op() == n.Op() && c.Type() == n.Type() && len(c.Operands()) == 2 &&
					n.Operands()[0] == c.Operands()[1] && n.Operands()[1] == c.Operands()[0]
			}
			if !equal {
				continue
			}
			if c.Key != nil && !keysEqual(c.Key(fn, id), c.Key(fn, cand)) {
				continue
			}
			mergedInto = cand
			found = true
			break
		}
		if found {
			fn.ReplaceAllUses(id, mergedInto)
			fn.Delete(id)
			c.Merged++
			continue
		}
		buckets[h] = append(buckets[h], id)
	}
	return nil
}

func keysEqual(a, b any) bool {
	return a == b
}

// hash combines op and canonicalized operand ids via xxhash, matching
// §4.3's "(op, operand_ids)" hash key, operand order sorted for
// commutative ops so a+b and b+a land in the same bucket.
func (c *CSE) hash(fn *ir.Function, id ir.NodeID) uint64 {
	n := fn.Get(id)
	operands := append([]ir.NodeID(nil), n.Operands()...)
	if n.Op().IsCommutative() && len(operands) == 2 && operands[0] > operands[1] {
		operands[0], operands[1] = operands[1], operands[0]
	}

	buf := make([]byte, 8+8*len(operands))
	binary.LittleEndian.PutUint64(buf, uint64(n.Op()))
	for i, o := range operands {
		binary.LittleEndian.PutUint64(buf[8+8*i:], uint64(o))
	}
	return xxhash.Sum64(buf)
}
