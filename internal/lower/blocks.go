package lower

import "github.com/hlsc-project/hlsc/internal/ast"

// UselessBlockUnrolling implements §4.1 step 5 (fixed-point): any block
// whose parent is also a block is replaced by an inline splice of its
// statements.
type UselessBlockUnrolling struct{}

func (*UselessBlockUnrolling) Name() string { return "useless-block-unrolling" }

func (*UselessBlockUnrolling) Run(ctx *Context) error {
	a := ctx.Arena
	for {
		changed := false
		blk, ok := a.Get(a.Root()).(*ast.Module)
		if !ok {
			return nil
		}
		_ = blk
		matches := a.Find(func(n ast.Node) bool {
			_, ok := n.(*ast.Block)
			return ok
		})
		for _, m := range matches {
			parentBlock, ok := a.Get(m.Parent).(*ast.Block)
			if !ok {
				continue
			}
			idx := indexOf(parentBlock.Stmts, m.ID)
			if idx < 0 {
				continue
			}
			inner := a.Get(m.ID).(*ast.Block)
			a.SpliceBlock(m.Parent, idx, inner.Stmts)
			changed = true
			break // structure shifted; restart the scan
		}
		if !changed {
			return nil
		}
	}
}

func indexOf(stmts []ast.NodeID, id ast.NodeID) int {
	for i, s := range stmts {
		if s == id {
			return i
		}
	}
	return -1
}
