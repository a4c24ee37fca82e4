package optimizer

import (
	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/logger"
)

// Optimize runs the fixed fold/peephole/DCE pipeline at level>=1, and
// returns mod unchanged at level 0. There is no level beyond 1 — spec.md
// names exactly these three passes and nothing further (no inlining,
// CSE, escape analysis, devirtualization, loop transforms, PGO).
func Optimize(mod *ir.Module, level int) *ir.Module {
	logger.Debug("running optimization passes", "level", level)
	if level == 0 {
		return mod
	}

	mod = ConstantFold(mod)
	mod = PeepholeOptimize(mod)
	mod = DeadCodeElimination(mod)

	logger.Info("optimization complete", "level", level)
	return mod
}
