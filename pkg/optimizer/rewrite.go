// Package optimizer runs a small set of IR-level passes over a typed
// ir.Module: constant folding, dead-code elimination, and peephole
// identity/strength-reduction simplification (spec.md's explicit
// Non-goals bound the scope to exactly these three — no inlining, CSE,
// escape analysis, devirtualization, loop transforms, or PGO).
package optimizer

import "github.com/rcc-project/rcc/pkg/ir"

// subst maps a folded/simplified temp to the value that now stands in
// for it. Both ConstantFold and Peephole eliminate an instruction by
// recording its Dest here rather than emitting a copy — this IR has no
// register-copy instruction, so the only way to honor a folded result is
// to substitute it into every later use (the usual SSA value-replacement
// technique).
type subst map[ir.TempID]ir.Value

func (s subst) rewriteValue(v ir.Value) ir.Value {
	t, ok := v.(ir.Temp)
	if !ok {
		return v
	}
	if rep, ok := s[t.ID]; ok {
		return rep
	}
	return v
}

// rewriteInst applies s to every Value operand of inst, returning a new
// instruction with substituted operands. Dest fields are never touched —
// only operands change.
func (s subst) rewriteInst(inst ir.Inst) ir.Inst {
	switch v := inst.(type) {
	case ir.Load:
		v.Addr = s.rewriteValue(v.Addr)
		return v
	case ir.Store:
		v.Addr = s.rewriteValue(v.Addr)
		v.Val = s.rewriteValue(v.Val)
		return v
	case ir.GEP:
		v.Base = s.rewriteValue(v.Base)
		steps := make([]ir.GEPStep, len(v.Steps))
		for i, step := range v.Steps {
			if step.Kind == ir.GEPElement && step.Index != nil {
				step.Index = s.rewriteValue(step.Index)
			}
			steps[i] = step
		}
		v.Steps = steps
		return v
	case ir.BinOp:
		v.L = s.rewriteValue(v.L)
		v.R = s.rewriteValue(v.R)
		return v
	case ir.PtrAdd:
		v.Ptr = s.rewriteValue(v.Ptr)
		v.Offset = s.rewriteValue(v.Offset)
		return v
	case ir.PtrSub:
		v.A = s.rewriteValue(v.A)
		v.B = s.rewriteValue(v.B)
		return v
	case ir.Cmp:
		v.L = s.rewriteValue(v.L)
		v.R = s.rewriteValue(v.R)
		return v
	case ir.PtrCmp:
		v.L = s.rewriteValue(v.L)
		v.R = s.rewriteValue(v.R)
		return v
	case ir.Cast:
		v.Src = s.rewriteValue(v.Src)
		return v
	case ir.Phi:
		incoming := make([]ir.PhiEdge, len(v.Incoming))
		for i, e := range v.Incoming {
			e.Val = s.rewriteValue(e.Val)
			incoming[i] = e
		}
		v.Incoming = incoming
		return v
	case ir.Select:
		v.Cond = s.rewriteValue(v.Cond)
		v.IfTrue = s.rewriteValue(v.IfTrue)
		v.IfFalse = s.rewriteValue(v.IfFalse)
		return v
	case ir.Call:
		args := make([]ir.Value, len(v.Args))
		for i, a := range v.Args {
			args[i] = s.rewriteValue(a)
		}
		v.Args = args
		return v
	default: // ir.Alloca has no operand to rewrite
		return inst
	}
}

func (s subst) rewriteTerm(term ir.Terminator) ir.Terminator {
	switch v := term.(type) {
	case ir.CondBr:
		v.Cond = s.rewriteValue(v.Cond)
		return v
	case ir.Ret:
		if v.Value != nil {
			v.Value = s.rewriteValue(v.Value)
		}
		return v
	default: // ir.Br carries no value
		return term
	}
}

// dest returns the temp inst defines, and whether it defines one at all
// (Store and the void form of Call define none).
func dest(inst ir.Inst) (ir.TempID, bool) {
	switch v := inst.(type) {
	case ir.Alloca:
		return v.Dest, true
	case ir.Load:
		return v.Dest, true
	case ir.GEP:
		return v.Dest, true
	case ir.BinOp:
		return v.Dest, true
	case ir.PtrAdd:
		return v.Dest, true
	case ir.PtrSub:
		return v.Dest, true
	case ir.Cmp:
		return v.Dest, true
	case ir.PtrCmp:
		return v.Dest, true
	case ir.Cast:
		return v.Dest, true
	case ir.Phi:
		return v.Dest, true
	case ir.Select:
		return v.Dest, true
	case ir.Call:
		if v.Dest != nil {
			return *v.Dest, true
		}
	}
	return 0, false
}
