package optimizer

import (
	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/logger"
)

// ConstantFold evaluates BinOp/Cmp instructions whose operands are
// both compile-time constants after rewriting, replacing each folded
// instruction's result with the computed ConstInt everywhere it is later
// used. PtrAdd/Cast are left alone even when their operand is constant —
// the result is still pointer-typed and provenance-bearing, and this
// pass never touches the provenance table pkg/provenance already built.
func ConstantFold(mod *ir.Module) *ir.Module {
	logger.Debug("running constant folding")
	changed := 0
	for _, fn := range mod.Functions {
		changed += foldFunction(fn)
	}
	logger.Info("constant folding complete", "changes", changed)
	return mod
}

func foldFunction(fn *ir.Function) int {
	s := subst{}
	changed := 0
	for _, blk := range fn.Blocks {
		kept := make([]ir.Inst, 0, len(blk.Insts))
		for _, inst := range blk.Insts {
			inst = s.rewriteInst(inst)

			if folded, ok := tryFold(inst); ok {
				d, _ := dest(inst)
				s[d] = folded
				changed++
				continue
			}
			kept = append(kept, inst)
		}
		blk.Insts = kept
		if blk.Term != nil {
			blk.Term = s.rewriteTerm(blk.Term)
		}
	}
	return changed
}

// tryFold evaluates inst if every operand it reads is now a ConstInt.
func tryFold(inst ir.Inst) (ir.ConstInt, bool) {
	switch v := inst.(type) {
	case ir.BinOp:
		l, lok := v.L.(ir.ConstInt)
		r, rok := v.R.(ir.ConstInt)
		if !lok || !rok {
			return ir.ConstInt{}, false
		}
		val, ok := evalBinOp(v.Op, l.Val, r.Val)
		if !ok {
			return ir.ConstInt{}, false // division/modulo by zero: leave for the diagnostic that fires at runtime semantics, don't fold
		}
		return ir.ConstInt{Val: val, Typ: v.Typ}, true
	case ir.Cmp:
		l, lok := v.L.(ir.ConstInt)
		r, rok := v.R.(ir.ConstInt)
		if !lok || !rok {
			return ir.ConstInt{}, false
		}
		return ir.ConstInt{Val: evalCmp(v.Op, l.Val, r.Val), Typ: l.Typ}, true
	default:
		return ir.ConstInt{}, false
	}
}

func evalBinOp(op ir.BinOpKind, l, r int64) (int64, bool) {
	switch op {
	case ir.OpAdd:
		return l + r, true
	case ir.OpSub:
		return l - r, true
	case ir.OpMul:
		return l * r, true
	case ir.OpDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case ir.OpMod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case ir.OpAnd:
		return l & r, true
	case ir.OpOr:
		return l | r, true
	case ir.OpXor:
		return l ^ r, true
	case ir.OpShl:
		return l << uint(r), true
	case ir.OpShr:
		return l >> uint(r), true
	default:
		return 0, false
	}
}

func evalCmp(op ir.CmpKind, l, r int64) int64 {
	var ok bool
	switch op {
	case ir.CmpEq:
		ok = l == r
	case ir.CmpNe:
		ok = l != r
	case ir.CmpLt:
		ok = l < r
	case ir.CmpLe:
		ok = l <= r
	case ir.CmpGt:
		ok = l > r
	case ir.CmpGe:
		ok = l >= r
	}
	if ok {
		return 1
	}
	return 0
}
