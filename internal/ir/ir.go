// Package ir implements the directed acyclic value-dataflow graph that
// lowered programs are converted into: typed nodes with explicit operand
// and user bookkeeping, functions, and packages. A single Node type tagged
// by a closed Op enum is used (rather than one Go type per op kind, as the
// teacher's small three-op hardware IR does) because this IR has on the
// order of twenty op kinds all sharing the same operand/user consistency
// invariant (§3: "u ∈ users(n) ⇔ n ∈ operands(u)") — uniform tagging keeps
// that bookkeeping in one place instead of duplicated per concrete type.
package ir

import (
	"fmt"
	"sort"

	"github.com/hlsc-project/hlsc/internal/bits"
)

// NodeID identifies a node within a single Function.
type NodeID int

// Op is the closed set of IR node kinds from §3.
type Op int

const (
	OpInvalid Op = iota
	OpParam
	OpLiteral
	OpAdd
	OpSub
	OpUMul
	OpUDiv
	OpAnd
	OpOr
	OpNot
	OpEq
	OpNe
	OpUlt
	OpUle
	OpUgt
	OpUge
	OpShll
	OpShrl
	OpBitSlice
	OpBitSliceUpdate
	OpZeroExtend
	OpSignExtend
	OpConcat
	OpSelect
	OpOneHot
	OpOneHotSelect
	OpTuple
	OpTupleIndex
	OpInvoke
	// proc-only
	OpReceive
	OpSend
	OpAfterAll
)

func (op Op) String() string {
	names := [...]string{
		"invalid", "param", "literal", "add", "sub", "umul", "udiv",
		"and", "or", "not", "eq", "ne", "ult", "ule", "ugt", "uge",
		"shll", "shrl", "bit_slice", "bit_slice_update", "zero_ext", "sign_ext",
		"concat", "sel", "one_hot", "one_hot_sel", "tuple", "tuple_index", "invoke",
		"receive", "send", "after_all",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "unknown"
}

// IsSideEffecting reports whether op is preserved by DCE regardless of
// whether it has users (§3: "Side-effecting kinds (Send, Receive, Invoke of
// impure callees, Cover) are preserved by DCE").
func (op Op) IsSideEffecting() bool {
	switch op {
	case OpSend, OpReceive, OpAfterAll:
		return true
	default:
		return false
	}
}

// Type is an IR value's type: a fixed bit width. Every node has exactly one
// value type (§3).
type Type struct {
	Width int
}

// Node is a single value in the dataflow graph.
type Node struct {
	id       NodeID
	op       Op
	typ      Type
	operands []NodeID
	users    []NodeID // deduplicated, insertion order

	// Attributes, populated according to op:
	Bits         bits.Bits // OpLiteral
	Start        int       // OpBitSlice, OpBitSliceUpdate: low bit
	LsbFirst     bool      // OpOneHot: priority order
	Name         string    // OpParam name; OpInvoke callee name
	TupleIndex   int       // OpTupleIndex
	ImpureInvoke bool      // OpInvoke: treated as side-effecting if true
}

func (n *Node) ID() NodeID         { return n.id }
func (n *Node) Op() Op             { return n.op }
func (n *Node) Type() Type         { return n.typ }
func (n *Node) Operands() []NodeID { return n.operands }
func (n *Node) Users() []NodeID    { return n.users }

func (n *Node) sideEffecting() bool {
	if n.op == OpInvoke {
		return n.ImpureInvoke
	}
	return n.op.IsSideEffecting()
}

// IsSideEffecting reports whether n must be preserved regardless of use
// count: the proc-only ops, or an Invoke marked impure.
func (n *Node) IsSideEffecting() bool { return n.sideEffecting() }

// Function is a single converted procedure: an arena of nodes in creation
// order (which, for a DAG produced by straight-line conversion, is already
// a valid topological order), a parameter list, and a return node.
type Function struct {
	Name    string
	nodes   map[NodeID]*Node
	order   []NodeID // creation order
	nextID  NodeID
	Params  []NodeID
	Return  NodeID
	IsProc  bool // true if this function may contain Receive/Send/AfterAll
}

// NewFunction creates an empty function named name.
func NewFunction(name string) *Function {
	return &Function{Name: name, nodes: make(map[NodeID]*Node)}
}

// Exists reports whether id names a live node (neither never-created nor
// already Delete'd).
func (f *Function) Exists(id NodeID) bool {
	_, ok := f.nodes[id]
	return ok
}

// Get returns the node with id, panicking if it does not exist (deleted or
// never created).
func (f *Function) Get(id NodeID) *Node {
	n, ok := f.nodes[id]
	if !ok {
		panic(fmt.Sprintf("ir: dangling or deleted node id %d in function %s", id, f.Name))
	}
	return n
}

// Nodes returns every live node in creation (topological) order.
func (f *Function) Nodes() []*Node {
	out := make([]*Node, 0, len(f.order))
	for _, id := range f.order {
		if n, ok := f.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// newNode allocates id, registers n in the operand-consistency bookkeeping
// (adding n as a user of each operand), and appends it to creation order.
func (f *Function) newNode(op Op, typ Type, operands []NodeID) *Node {
	f.nextID++
	n := &Node{id: f.nextID, op: op, typ: typ, operands: append([]NodeID(nil), operands...)}
	f.nodes[n.id] = n
	f.order = append(f.order, n.id)
	for _, opnd := range operands {
		f.addUser(opnd, n.id)
	}
	return n
}

func (f *Function) addUser(operand, user NodeID) {
	n := f.Get(operand)
	for _, u := range n.users {
		if u == user {
			return
		}
	}
	n.users = append(n.users, user)
}

func (f *Function) removeUser(operand, user NodeID) {
	n, ok := f.nodes[operand]
	if !ok {
		return
	}
	out := n.users[:0]
	for _, u := range n.users {
		if u != user {
			out = append(out, u)
		}
	}
	n.users = out
}

// ReplaceOperand rewrites the idx'th operand of n from its current value to
// newOperand, maintaining user bookkeeping on both sides.
func (f *Function) ReplaceOperand(n NodeID, idx int, newOperand NodeID) {
	node := f.Get(n)
	old := node.operands[idx]
	node.operands[idx] = newOperand
	// Only drop old as a user-source if no other operand slot still
	// references it.
	stillUsed := false
	for i, o := range node.operands {
		if i != idx && o == old {
			stillUsed = true
			break
		}
	}
	if !stillUsed {
		f.removeUser(old, n)
	}
	f.addUser(newOperand, n)
}

// ReplaceAllUses rewrites every user of old to use replacement instead,
// then returns the set of nodes that were rewritten. Does not delete old.
func (f *Function) ReplaceAllUses(old, replacement NodeID) []NodeID {
	if old == replacement {
		return nil
	}
	users := append([]NodeID(nil), f.Get(old).users...)
	for _, u := range users {
		node := f.Get(u)
		for i, o := range node.operands {
			if o == old {
				f.ReplaceOperand(u, i, replacement)
			}
		}
	}
	if f.Return == old {
		f.Return = replacement
	}
	return users
}

// Delete removes n from the function. It is the caller's responsibility
// (DCE) to ensure n has no remaining users and is not side-effecting.
func (f *Function) Delete(n NodeID) {
	node := f.Get(n)
	for _, opnd := range node.operands {
		f.removeUser(opnd, n)
	}
	delete(f.nodes, n)
}

// CheckInvariants verifies §3's IR invariants: mutual operand/user
// consistency and acyclicity (a topological sort exists).
func (f *Function) CheckInvariants() error {
	for _, n := range f.Nodes() {
		for _, opnd := range n.operands {
			if _, ok := f.nodes[opnd]; !ok {
				return fmt.Errorf("ir: node %d references deleted operand %d", n.id, opnd)
			}
			found := false
			for _, u := range f.Get(opnd).users {
				if u == n.id {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("ir: node %d is not registered as a user of its operand %d", n.id, opnd)
			}
		}
		for _, u := range n.users {
			uNode, ok := f.nodes[u]
			if !ok {
				return fmt.Errorf("ir: node %d has deleted user %d", n.id, u)
			}
			found := false
			for _, o := range uNode.operands {
				if o == n.id {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("ir: node %d claims user %d which does not reference it", n.id, u)
			}
		}
	}
	if _, err := TopoSort(f); err != nil {
		return err
	}
	return nil
}

// TopoSort returns a topological order of f's live nodes, or an error if
// the graph contains a cycle (it must not, per §3).
func TopoSort(f *Function) ([]NodeID, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[NodeID]int, len(f.nodes))
	order := make([]NodeID, 0, len(f.nodes))
	ids := make([]NodeID, 0, len(f.nodes))
	for id := range f.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var visit func(id NodeID) error
	visit = func(id NodeID) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("ir: cycle detected at node %d", id)
		}
		state[id] = visiting
		for _, opnd := range f.Get(id).operands {
			if err := visit(opnd); err != nil {
				return err
			}
		}
		state[id] = done
		order = append(order, id)
		return nil
	}
	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Package is a collection of functions produced by one compilation.
type Package struct {
	Name      string
	Functions map[string]*Function
	Top       string
}

// NewPackage creates an empty package.
func NewPackage(name string) *Package {
	return &Package{Name: name, Functions: make(map[string]*Function)}
}
