package stategraph

import (
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph/registry"
)

// interruptController holds the configured interrupt points: node IDs
// at which the executor stops before or after execution and returns
// control to the caller.
type interruptController struct {
	before *registry.Registry[string, struct{}]
	after  *registry.Registry[string, struct{}]
}

func newInterruptController() *interruptController {
	return &interruptController{
		before: registry.New[string, struct{}](),
		after:  registry.New[string, struct{}](),
	}
}

// addBefore marks nodes for pause before execution.
func (ic *interruptController) addBefore(ids ...string) {
	for _, id := range ids {
		ic.before.Register(id, struct{}{})
	}
}

// addAfter marks nodes for pause after execution.
func (ic *interruptController) addAfter(ids ...string) {
	for _, id := range ids {
		ic.after.Register(id, struct{}{})
	}
}

// Before reports whether the node is a before-interrupt point.
func (ic *interruptController) Before(id string) bool {
	return ic.before.Has(id)
}

// After reports whether the node is an after-interrupt point.
func (ic *interruptController) After(id string) bool {
	return ic.after.Has(id)
}

// validate checks every configured interrupt point against the graph.
func (ic *interruptController) validate(cg *CompiledGraph) error {
	for _, id := range ic.before.Keys() {
		if !cg.HasNode(id) {
			return fmt.Errorf("%w: interrupt-before %q", ErrUnknownNode, id)
		}
	}
	for _, id := range ic.after.Keys() {
		if !cg.HasNode(id) {
			return fmt.Errorf("%w: interrupt-after %q", ErrUnknownNode, id)
		}
	}
	return nil
}
