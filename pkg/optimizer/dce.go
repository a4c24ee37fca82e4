package optimizer

import (
	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/logger"
	"github.com/rcc-project/rcc/pkg/ssa"
)

// DeadCodeElimination removes basic blocks no terminator can reach from
// the entry block, then repeatedly drops pure instructions (no memory
// write, no call) whose result temp is never read again, until a pass
// finds nothing left to drop.
func DeadCodeElimination(mod *ir.Module) *ir.Module {
	logger.Debug("running dead code elimination")
	removedBlocks, removedInsts := 0, 0
	for _, fn := range mod.Functions {
		removedBlocks += removeUnreachableBlocks(fn)
		removedInsts += removeDeadInstructions(fn)
	}
	logger.Info("dead code elimination complete", "blocks_removed", removedBlocks, "insts_removed", removedInsts)
	return mod
}

// removeUnreachableBlocks drops every block that pkg/ssa's Reachable (a
// depth-first walk of successor edges from the entry block) does not
// reach, rather than the dead-code pass re-deriving its own successor
// walk (see DESIGN.md's pkg/ssa entry).
func removeUnreachableBlocks(fn *ir.Function) int {
	if len(fn.Blocks) == 0 {
		return 0
	}
	reachable := ssa.Reachable(fn)

	kept := make([]*ir.BasicBlock, 0, len(fn.Blocks))
	removed := 0
	for _, b := range fn.Blocks {
		if reachable[b.ID] {
			kept = append(kept, b)
		} else {
			removed++
		}
	}
	fn.Blocks = kept
	return removed
}

// removeDeadInstructions drops any non-side-effecting instruction whose
// result is never used, iterating to a fixed point since removing one
// dead temp's producer can make its own operands' producers dead too.
func removeDeadInstructions(fn *ir.Function) int {
	total := 0
	for {
		used := collectUses(fn)
		removedThisPass := 0
		for _, blk := range fn.Blocks {
			kept := make([]ir.Inst, 0, len(blk.Insts))
			for _, inst := range blk.Insts {
				d, hasDest := dest(inst)
				if hasDest && isPure(inst) && !used[d] {
					removedThisPass++
					continue
				}
				kept = append(kept, inst)
			}
			blk.Insts = kept
		}
		total += removedThisPass
		if removedThisPass == 0 {
			return total
		}
	}
}

func isPure(inst ir.Inst) bool {
	switch inst.(type) {
	case ir.Store, ir.Call:
		return false
	default:
		return true
	}
}

// collectUses returns the set of temps read anywhere in fn — by an
// instruction operand or a terminator.
func collectUses(fn *ir.Function) map[ir.TempID]bool {
	used := make(map[ir.TempID]bool)
	mark := func(v ir.Value) {
		if t, ok := v.(ir.Temp); ok {
			used[t.ID] = true
		}
	}
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			switch v := inst.(type) {
			case ir.Load:
				mark(v.Addr)
			case ir.Store:
				mark(v.Addr)
				mark(v.Val)
			case ir.GEP:
				mark(v.Base)
				for _, step := range v.Steps {
					if step.Kind == ir.GEPElement && step.Index != nil {
						mark(step.Index)
					}
				}
			case ir.BinOp:
				mark(v.L)
				mark(v.R)
			case ir.PtrAdd:
				mark(v.Ptr)
				mark(v.Offset)
			case ir.PtrSub:
				mark(v.A)
				mark(v.B)
			case ir.Cmp:
				mark(v.L)
				mark(v.R)
			case ir.PtrCmp:
				mark(v.L)
				mark(v.R)
			case ir.Cast:
				mark(v.Src)
			case ir.Phi:
				for _, e := range v.Incoming {
					mark(e.Val)
				}
			case ir.Select:
				mark(v.Cond)
				mark(v.IfTrue)
				mark(v.IfFalse)
			case ir.Call:
				for _, a := range v.Args {
					mark(a)
				}
			}
		}
		switch term := blk.Term.(type) {
		case ir.CondBr:
			mark(term.Cond)
		case ir.Ret:
			if term.Value != nil {
				mark(term.Value)
			}
		}
	}
	return used
}
