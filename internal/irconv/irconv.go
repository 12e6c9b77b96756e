// Package irconv converts a lowered AST into the IR value-dataflow graph,
// per §4.2: variable-granularity SSA via a context threaded through every
// statement, branch merges via Select, and a one-hot exit merge across all
// Return statements plus the fallthrough path.
package irconv

import (
	"github.com/hlsc-project/hlsc/internal/ast"
	"github.com/hlsc-project/hlsc/internal/bits"
	"github.com/hlsc-project/hlsc/internal/diag"
	"github.com/hlsc-project/hlsc/internal/ir"
)

// observationalBuiltins names the builtins §4.2 says are silently no-ops
// during conversion (see DESIGN.md's open-question decision #1).
var observationalBuiltins = map[string]bool{
	"_get_anchor":   true,
	"_stack_push_h": true,
	"_stack_push_b": true,
}

// ctx is the ordered vector of live IR values, one per live FakeVarDef,
// threaded through statement conversion. Variable ordering is frozen at
// entry (§4.2 "Determinism").
type ctx struct {
	values []ir.NodeID
}

func (c ctx) clone() ctx {
	out := make([]ir.NodeID, len(c.values))
	copy(out, c.values)
	return ctx{values: out}
}

func (c *ctx) get(slot int) ir.NodeID {
	c.ensure(slot)
	return c.values[slot]
}

func (c *ctx) set(slot int, v ir.NodeID) {
	c.ensure(slot)
	c.values[slot] = v
}

func (c *ctx) ensure(slot int) {
	for len(c.values) <= slot {
		c.values = append(c.values, ir.NodeID(0))
	}
}

// returnRecord pairs a Return's hit predicate (conjunction of branch
// conditions from entry) with the context snapshot at that point.
type returnRecord struct {
	predicate ir.NodeID
	snapshot  ctx
}

// Converter holds the state threaded through one function's conversion.
type Converter struct {
	arena    *ast.Arena
	fn       *ir.Function
	reporter *diag.Reporter

	varOrder []ast.NodeID // FakeVarDef ids, insertion order, frozen at entry
	varIndex map[ast.NodeID]int

	returns []returnRecord
}

// Convert builds fn's body from the module rooted at moduleID. fn should
// be a freshly created *ir.Function; Convert populates its Params and
// Return.
func Convert(a *ast.Arena, moduleID ast.NodeID, fn *ir.Function, r *diag.Reporter) error {
	mod := a.Get(moduleID).(*ast.Module)
	c := &Converter{arena: a, fn: fn, reporter: r, varIndex: map[ast.NodeID]int{}}

	c.freezeVariableOrder(mod.Body)

	entry := ctx{values: make([]ir.NodeID, len(c.varOrder))}
	for i, defID := range c.varOrder {
		def := a.Get(defID).(*ast.FakeVarDef)
		entry.values[i] = fn.NewParam(def.Name, def.Width)
	}

	body := a.Get(mod.Body).(*ast.Block)
	truePred := fn.NewLiteral(bits.FromUint64(1, 1))
	final, err := c.convertBlock(body.Stmts, entry, truePred)
	if err != nil {
		return err
	}

	fn.Return = c.exitMerge(final)
	return nil
}

// freezeVariableOrder walks the body once, recording each FakeVarDef in
// first-occurrence order.
func (c *Converter) freezeVariableOrder(bodyID ast.NodeID) {
	c.arena.Walk(ast.InvalidNode, bodyID, func(_, id ast.NodeID) {
		vr, ok := c.arena.Get(id).(*ast.VarRef)
		if !ok {
			return
		}
		if _, seen := c.varIndex[vr.Def]; seen {
			return
		}
		c.varIndex[vr.Def] = len(c.varOrder)
		c.varOrder = append(c.varOrder, vr.Def)
	})
}

func (c *Converter) slot(defID ast.NodeID) int {
	idx, ok := c.varIndex[defID]
	if !ok {
		idx = len(c.varOrder)
		c.varIndex[defID] = idx
		c.varOrder = append(c.varOrder, defID)
	}
	return idx
}

func (c *Converter) isGlobal(defID ast.NodeID) bool {
	return c.arena.Get(defID).(*ast.FakeVarDef).IsGlobal
}

func (c *Converter) width(defID ast.NodeID) int {
	return c.arena.Get(defID).(*ast.FakeVarDef).Width
}
