package optimizer

import (
	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/logger"
)

// PeepholeOptimize eliminates arithmetic/bitwise identities (x+0, x*1,
// x&0, x|0, x^0, ...) and strength-reduces a multiply by a constant
// power of two to a shift. Unlike ConstantFold, these patterns fire with
// only one operand known — the other stays a live temp.
func PeepholeOptimize(mod *ir.Module) *ir.Module {
	logger.Debug("running peephole optimizer")
	changed := 0
	for _, fn := range mod.Functions {
		changed += peepholeFunction(fn)
	}
	logger.Info("peephole optimization complete", "changes", changed)
	return mod
}

func peepholeFunction(fn *ir.Function) int {
	s := subst{}
	changed := 0
	for _, blk := range fn.Blocks {
		kept := make([]ir.Inst, 0, len(blk.Insts))
		for _, inst := range blk.Insts {
			inst = s.rewriteInst(inst)

			if replacement, ok := identityFold(inst); ok {
				d, _ := dest(inst)
				s[d] = replacement
				changed++
				continue
			}
			if reduced, ok := strengthReduce(inst); ok {
				inst = reduced
				changed++
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

// identityFold recognizes a BinOp whose result equals one of its
// operands (or a fixed constant) regardless of the other operand's
// runtime value, and returns the value that stands in for it.
func identityFold(inst ir.Inst) (ir.Value, bool) {
	v, ok := inst.(ir.BinOp)
	if !ok {
		return nil, false
	}
	lc, lok := v.L.(ir.ConstInt)
	rc, rok := v.R.(ir.ConstInt)

	switch v.Op {
	case ir.OpAdd:
		if rok && rc.Val == 0 {
			return v.L, true
		}
		if lok && lc.Val == 0 {
			return v.R, true
		}
	case ir.OpSub:
		if rok && rc.Val == 0 {
			return v.L, true
		}
	case ir.OpMul:
		if (rok && rc.Val == 0) || (lok && lc.Val == 0) {
			return ir.ConstInt{Val: 0, Typ: v.Typ}, true
		}
		if rok && rc.Val == 1 {
			return v.L, true
		}
		if lok && lc.Val == 1 {
			return v.R, true
		}
	case ir.OpDiv:
		if rok && rc.Val == 1 {
			return v.L, true
		}
	case ir.OpAnd:
		if (rok && rc.Val == 0) || (lok && lc.Val == 0) {
			return ir.ConstInt{Val: 0, Typ: v.Typ}, true
		}
	case ir.OpOr:
		if rok && rc.Val == 0 {
			return v.L, true
		}
		if lok && lc.Val == 0 {
			return v.R, true
		}
	case ir.OpXor:
		if rok && rc.Val == 0 {
			return v.L, true
		}
		if lok && lc.Val == 0 {
			return v.R, true
		}
	}
	return nil, false
}

// strengthReduce rewrites a multiply by a constant power of two into a
// shift, cheaper on this target than MUL (spec.md §4.7 names this
// reduction explicitly).
func strengthReduce(inst ir.Inst) (ir.Inst, bool) {
	v, ok := inst.(ir.BinOp)
	if !ok || v.Op != ir.OpMul {
		return nil, false
	}
	if c, ok := v.R.(ir.ConstInt); ok && isPowerOfTwo(c.Val) {
		return ir.BinOp{Dest: v.Dest, Op: ir.OpShl, L: v.L, R: ir.ConstInt{Val: log2(c.Val), Typ: c.Typ}, Typ: v.Typ}, true
	}
	if c, ok := v.L.(ir.ConstInt); ok && isPowerOfTwo(c.Val) {
		return ir.BinOp{Dest: v.Dest, Op: ir.OpShl, L: v.R, R: ir.ConstInt{Val: log2(c.Val), Typ: c.Typ}, Typ: v.Typ}, true
	}
	return nil, false
}

func isPowerOfTwo(n int64) bool {
	return n > 1 && n&(n-1) == 0
}

func log2(n int64) int64 {
	var shift int64
	for n > 1 {
		n >>= 1
		shift++
	}
	return shift
}
