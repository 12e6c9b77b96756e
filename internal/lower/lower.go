// Package lower implements the seven fixed-order structural rewrites that
// turn a parsed action-tree AST into the restricted form the IR converter
// requires: flat variable references and scalar bit-slices, with mapping
// provenance preserved throughout.
package lower

import (
	"github.com/hlsc-project/hlsc/internal/ast"
	"github.com/hlsc-project/hlsc/internal/diag"
)

// Pass is one structural rewrite. Modeled on the teacher's
// internal/passes.Pass (Name/Run) dispatch idiom.
type Pass interface {
	Name() string
	Run(ctx *Context) error
}

// Context threads the arena, diagnostics, and provenance maps through every
// pass in the pipeline.
type Context struct {
	Arena    *ast.Arena
	Reporter *diag.Reporter

	// LoweredToOriginal maps a node created by a lowering pass back to the
	// node it replaced, for diagnostics (§4.1: "lowered-to-original AST
	// node").
	LoweredToOriginal map[ast.NodeID]ast.NodeID

	// varDefs deduplicates FakeVarDef nodes by name (§4.1 step 4).
	varDefs map[string]ast.NodeID
}

// NewContext builds a lowering context over an already-decoded arena.
func NewContext(a *ast.Arena, r *diag.Reporter) *Context {
	return &Context{
		Arena:              a,
		Reporter:           r,
		LoweredToOriginal:  make(map[ast.NodeID]ast.NodeID),
		varDefs:            make(map[string]ast.NodeID),
	}
}

func (c *Context) recordProvenance(lowered, original ast.NodeID) {
	c.LoweredToOriginal[lowered] = original
}

// Manager runs the fixed-order lowering pipeline (§4.1): the order is part
// of the contract, since later passes assume earlier ones have run.
type Manager struct {
	passes []Pass
}

// DefaultPipeline returns the seven-pass pipeline in the order spec §4.1
// mandates, followed by the verifier and the width-widening walk.
func DefaultPipeline() *Manager {
	return &Manager{passes: []Pass{
		&FieldAccessElimination{},
		&ArrayIndexElimination{},
		&ValidityIntrinsics{},
		&NameReferenceElimination{},
		&UselessBlockUnrolling{},
		&NestedIfMerge{},
		&NestedBitSliceFlatten{},
		&Verifier{},
		&WidthInference{},
	}}
}

// Run executes every pass in order, aborting on the first error (§7:
// "the first error aborts the pass and is surfaced unchanged; partial
// mutations ... are not rolled back").
func (m *Manager) Run(ctx *Context) error {
	for _, p := range m.passes {
		if err := p.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}
