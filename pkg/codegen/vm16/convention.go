// Calling convention: ARG0..ARG3 packing (a fat pointer consumes two
// consecutive argument registers, or spills whole to the stack if it
// would split across the boundary), remaining arguments pushed to the
// stack in reverse, sret for >2-cell struct returns, cross-bank call
// sequence via LINK/LINK_BANK. Grounded on the teacher's
// pkg/codegen/amd64/params.go (ArgRegs packing, stack-remainder layout)
// generalized from System V's 6-register/no-bank model to this target's
// 4-register/banked one (spec.md §4.5).
package vm16

import (
	"sort"

	"github.com/rcc-project/rcc/pkg/codegen/regalloc"
	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/types"
)

// ArgSlot describes where one call argument lands: in one or two ARG
// registers, or at a stack offset (for overflow or a split fat pointer).
type ArgSlot struct {
	Regs         []regalloc.Register // nil if StackOffset is used
	StackOffset  int                 // cells from SP at the call site, meaningful iff Regs == nil
	Cells        int
}

// PlaceArgs packs args left-to-right into ARG0..ARG3, spilling a fat
// pointer whole to the stack rather than splitting it across the
// register/stack boundary (spec.md §4.5 "if it would be split, the whole
// fat pointer spills to the stack instead").
func PlaceArgs(argTypes []types.Type) []ArgSlot {
	slots := make([]ArgSlot, len(argTypes))
	next := 0      // next ARG* register index
	stackOff := 0  // next stack cell offset for overflow args

	for i, t := range argTypes {
		cells := types.SizeCells(t)
		if cells > 2 {
			// Larger aggregates are always passed by reference (sret-style);
			// the frontend/builder never synthesizes a by-value Call
			// argument wider than a fat pointer (spec.md §4.5 only names
			// scalars and fat pointers as direct arguments).
			cells = 2
		}
		if next+cells <= len(regalloc.ArgRegs) {
			slots[i] = ArgSlot{Regs: regalloc.ArgRegs[next : next+cells], Cells: cells}
			next += cells
			continue
		}
		// Would split (or simply doesn't fit): falls through to the stack
		// entirely, even if some of its registers were still free.
		slots[i] = ArgSlot{StackOffset: stackOff, Cells: cells}
		stackOff += cells
		next = len(regalloc.ArgRegs) // no further argument may use a register once one has overflowed
	}
	return slots
}

// NeedsSret reports whether ret must be returned via a hidden pointer
// argument rather than RET0/RET1 (spec.md §4.5 "structs larger than two
// cells").
func NeedsSret(ret types.Type) bool {
	if _, ok := ret.(types.Void); ok {
		return false
	}
	return types.SizeCells(ret) > 2
}

// ReturnRegs reports the fixed registers a non-sret return value comes
// back in.
func ReturnRegs(ret types.Type) []regalloc.Register {
	switch types.SizeCells(ret) {
	case 0:
		return nil
	case 1:
		return []regalloc.Register{regalloc.RET0}
	default:
		return []regalloc.Register{regalloc.RET0, regalloc.RET1}
	}
}

// shuffleMove is one register-to-register or spill-mediated move emitted
// while placing call arguments.
type shuffleMove struct {
	From, To regalloc.Register
}

// BreakCycles orders a set of parallel register-to-register moves
// (src[i] -> dst[i]) so that no move clobbers a source still needed by a
// later move, breaking any cycle via the scratch register (spec.md §4.5
// "argument shuffling" — "Ordering is computed by building a permutation
// graph and emitting cycles last").
func BreakCycles(moves map[regalloc.Register]regalloc.Register) []shuffleMove {
	var ordered []shuffleMove
	remaining := make(map[regalloc.Register]regalloc.Register, len(moves))
	for k, v := range moves {
		if k != v {
			remaining[k] = v
		}
	}

	isSourceStillNeeded := func(dst regalloc.Register) bool {
		_, stillSource := remaining[dst]
		return stillSource
	}

	for len(remaining) > 0 {
		progressed := false
		for _, src := range sortedKeys(remaining) {
			dst := remaining[src]
			if !isSourceStillNeeded(dst) {
				ordered = append(ordered, shuffleMove{From: src, To: dst})
				delete(remaining, src)
				progressed = true
			}
		}
		if progressed {
			continue
		}
		// Every remaining move is part of a cycle. Break the lowest-named
		// source deterministically (map order is not) using SCRATCH: save
		// its destination's current value, then treat that edge as
		// satisfied.
		src := sortedKeys(remaining)[0]
		dst := remaining[src]
		ordered = append(ordered, shuffleMove{From: dst, To: regalloc.SCRATCH})
		ordered = append(ordered, shuffleMove{From: src, To: dst})
		delete(remaining, src)
		// Every move that still wants to read the now-clobbered dst must
		// read it from SCRATCH instead.
		for s, d := range remaining {
			if s == dst {
				remaining[regalloc.SCRATCH] = d
				delete(remaining, s)
			}
		}
	}
	return ordered
}

// sortedKeys returns remaining's keys in a fixed order (by register name)
// so BreakCycles's shuffle-move order — and therefore the emitted
// assembly — does not depend on Go's randomized map iteration (spec.md
// §8.1 "Idempotent compilation").
func sortedKeys(remaining map[regalloc.Register]regalloc.Register) []regalloc.Register {
	keys := make([]regalloc.Register, 0, len(remaining))
	for k := range remaining {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// isFatPointerParam mirrors regalloc's fat-pointer test for the calling
// convention's own packing decisions.
func isFatPointerParam(t types.Type) bool {
	_, ok := t.(types.Pointer)
	return ok
}

// paramCells reports how many registers/cells one IR parameter occupies.
func paramCells(p ir.Param) int {
	if isFatPointerParam(p.Type) {
		return 2
	}
	return 1
}
