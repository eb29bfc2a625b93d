package extensions

import (
	"fmt"

	"github.com/m1gwings/treedrawer/tree"
	"go.uber.org/zap"

	lazyinit "github.com/N3BCKN/lazy-init"
)

// GraphExtension renders the declared dependency tree of an attribute when
// its computation fails, so a cycle or a failing prerequisite can be read
// off the log instead of reconstructed from stack traces.
type GraphExtension struct {
	lazyinit.BaseExtension
	logger *zap.Logger
}

// NewGraphExtension creates a graph debug extension around the given logger.
// A nil logger falls back to zap.NewNop.
func NewGraphExtension(logger *zap.Logger) *GraphExtension {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphExtension{
		BaseExtension: lazyinit.NewBaseExtension("graph-debug"),
		logger:        logger,
	}
}

// OnError logs the failed attribute's dependency tree.
func (e *GraphExtension) OnError(err error, op *lazyinit.Operation, registry *lazyinit.Registry) {
	e.logger.Error("attribute resolution failed",
		zap.String("attribute", op.Attribute),
		zap.Error(err),
		zap.String("dependency_tree", RenderTree(registry, op.Attribute)),
	)
}

// RenderTree draws the dependency tree rooted at name as box-drawn text.
// A name reappearing on its own branch is marked as a cycle and not
// descended into, so rendering terminates even on cyclic declarations.
func RenderTree(registry *lazyinit.Registry, name string) string {
	t := tree.NewTree(tree.NodeString(name))
	addChildren(t, registry, name, map[string]bool{name: true})
	return fmt.Sprint(t)
}

func addChildren(t *tree.Tree, registry *lazyinit.Registry, name string, onPath map[string]bool) {
	deps := registry.ResolutionOrder(name)
	for i, dep := range deps {
		if onPath[dep] {
			t.AddChild(tree.NodeString(dep + " (cycle)"))
			continue
		}

		t.AddChild(tree.NodeString(dep))
		child, err := t.Child(i)
		if err != nil {
			continue
		}

		onPath[dep] = true
		addChildren(child, registry, dep, onPath)
		delete(onPath, dep)
	}
}

var _ lazyinit.Extension = (*GraphExtension)(nil)
var _ lazyinit.Extension = (*LoggingExtension)(nil)
