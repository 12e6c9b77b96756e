// Package passes implements the IR-to-IR optimizations of §4.3: dead-code
// elimination, common-subexpression elimination, inlining, and optional
// rematerialization. Modeled on the teacher's internal/passes.Pass/Manager
// dispatch idiom, generalized from hardware-signal rewrites to the value-DAG
// node kinds of internal/ir.
package passes

import "github.com/hlsc-project/hlsc/internal/ir"

// Pass is one IR-to-IR rewrite over a single function.
type Pass interface {
	Name() string
	Run(fn *ir.Function) error
}

// Manager runs a configured sequence of passes.
type Manager struct {
	passes []Pass
}

// NewManager builds a Manager running passes in the given order.
func NewManager(passes ...Pass) *Manager {
	return &Manager{passes: passes}
}

// Run executes every pass in order, aborting on the first error.
func (m *Manager) Run(fn *ir.Function) error {
	for _, p := range m.passes {
		if err := p.Run(fn); err != nil {
			return err
		}
	}
	return nil
}

// DefaultPipeline returns CSE followed by DCE, the pairing §8's invariant
// section assumes ("For every IR after CSE+DCE: ..."). Inlining and
// Rematerialization are opt-in (the latter needs a schedule) and are not
// part of the default sequence.
func DefaultPipeline() *Manager {
	return NewManager(&CSE{}, &DCE{})
}
