package regalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcc-project/rcc/pkg/diag"
	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/types"
)

// chainFunction builds a single-block function that defines n scalar
// temps in sequence and then sums them one by one, so every temp stays
// live until its sum reads it. The first sum takes a register of its own
// while all n temps are still held, so the chain needs n+1 registers at
// its peak: n > len(AllocPool)-1 exhausts the 7-register pool and spills.
func chainFunction(n int) *ir.Function {
	fn := ir.NewFunction("chain", types.Int)
	blk := fn.NewBlock("entry")

	temps := make([]ir.TempID, n)
	for i := 0; i < n; i++ {
		t := fn.NewTemp(types.Int)
		temps[i] = t
		blk.Insts = append(blk.Insts, ir.BinOp{
			Dest: t, Op: ir.OpAdd,
			L: ir.ConstInt{Val: int64(i), Typ: types.Int},
			R: ir.ConstInt{Val: 1, Typ: types.Int},
			Typ: types.Int,
		})
	}
	// Sum every temp so all of them stay live until the end.
	sum := temps[0]
	for i := 1; i < n; i++ {
		next := fn.NewTemp(types.Int)
		blk.Insts = append(blk.Insts, ir.BinOp{
			Dest: next, Op: ir.OpAdd,
			L:   ir.Temp{ID: sum, Typ: types.Int},
			R:   ir.Temp{ID: temps[i], Typ: types.Int},
			Typ: types.Int,
		})
		sum = next
	}
	blk.Term = ir.Ret{Value: ir.Temp{ID: sum, Typ: types.Int}}
	return fn
}

func TestAllocateWithinPoolNeverSpills(t *testing.T) {
	fn := chainFunction(len(AllocPool) - 1)
	diags := diag.NewCollector()
	a := NewAllocator(fn, nil, diags)
	plan := a.Allocate()

	assert.False(t, diags.HasErrors())
	assert.Empty(t, plan.Spills)
	assert.Empty(t, plan.Reloads)
}

func TestAllocateBeyondPoolSpillsAndReloadsSymmetrically(t *testing.T) {
	fn := chainFunction(len(AllocPool) + 3)
	diags := diag.NewCollector()
	a := NewAllocator(fn, nil, diags)
	plan := a.Allocate()

	require.NotEmpty(t, plan.Spills)
	// Spill/reload symmetry (spec.md §8.1): every spilled temp that is
	// used again later must be reloaded before that use, and never
	// reloaded into a stale slot index no spill ever wrote.
	spilledSlots := make(map[int]bool)
	for _, s := range plan.Spills {
		spilledSlots[s.Slot] = true
	}
	for _, r := range plan.Reloads {
		assert.True(t, spilledSlots[r.Slot], "reload from slot %d with no prior spill", r.Slot)
		assert.Equal(t, len(r.Regs), cellsInSlot(plan, r.Slot))
	}
}

func cellsInSlot(plan *Plan, slot int) int {
	for _, s := range plan.Spills {
		if s.Slot == slot {
			return len(s.Regs)
		}
	}
	return 0
}

// fatPointerFunction builds a function with one pointer-typed temp (two
// cells) alongside enough scalar pressure to force it to be evicted.
func fatPointerFunction() *ir.Function {
	fn := ir.NewFunction("withptr", types.Int)
	blk := fn.NewBlock("entry")

	ptrType := types.Pointer{Target: types.Int}
	base := fn.NewTemp(ptrType)
	blk.Insts = append(blk.Insts, ir.Alloca{Dest: base, ElemType: types.Int})

	var scalars []ir.TempID
	for i := 0; i < len(AllocPool)+2; i++ {
		tmp := fn.NewTemp(types.Int)
		scalars = append(scalars, tmp)
		blk.Insts = append(blk.Insts, ir.BinOp{
			Dest: tmp, Op: ir.OpAdd,
			L: ir.ConstInt{Val: int64(i), Typ: types.Int}, R: ir.ConstInt{Val: 1, Typ: types.Int},
			Typ: types.Int,
		})
	}
	loaded := fn.NewTemp(types.Int)
	blk.Insts = append(blk.Insts, ir.Load{Dest: loaded, Addr: ir.Temp{ID: base, Typ: ptrType}, Typ: types.Int})

	sum := scalars[0]
	for _, s := range scalars[1:] {
		next := fn.NewTemp(types.Int)
		blk.Insts = append(blk.Insts, ir.BinOp{Dest: next, Op: ir.OpAdd, L: ir.Temp{ID: sum, Typ: types.Int}, R: ir.Temp{ID: s, Typ: types.Int}, Typ: types.Int})
		sum = next
	}
	final := fn.NewTemp(types.Int)
	blk.Insts = append(blk.Insts, ir.BinOp{Dest: final, Op: ir.OpAdd, L: ir.Temp{ID: sum, Typ: types.Int}, R: ir.Temp{ID: loaded, Typ: types.Int}, Typ: types.Int})
	blk.Term = ir.Ret{Value: ir.Temp{ID: final, Typ: types.Int}}
	return fn
}

func TestFatPointerSpillAndReloadMoveBothRegistersTogether(t *testing.T) {
	fn := fatPointerFunction()
	diags := diag.NewCollector()
	a := NewAllocator(fn, nil, diags)
	plan := a.Allocate()

	var sawPair bool
	for _, s := range plan.Spills {
		if len(s.Regs) == 2 {
			sawPair = true
			assert.NotEqual(t, s.Regs[0], s.Regs[1])
		}
	}
	for _, r := range plan.Reloads {
		if len(r.Regs) == 2 {
			sawPair = true
		}
	}
	assert.True(t, sawPair, "expected at least one fat-pointer spill or reload to move both registers as a unit")
}

func TestPinnedRegistersAreNeverChosenAsSpillVictims(t *testing.T) {
	fn := chainFunction(len(AllocPool) + 1)
	diags := diag.NewCollector()
	a := NewAllocator(fn, nil, diags)

	pinned := make(map[Register]bool)
	for _, r := range AllocPool[:len(AllocPool)-1] {
		a.Pin(r)
		pinned[r] = true
	}
	plan := a.Allocate()
	assert.False(t, diags.HasFatal())
	require.NotEmpty(t, plan.Spills)
	for _, s := range plan.Spills {
		for _, r := range s.Regs {
			assert.False(t, pinned[r], "pinned register %s was spilled", r)
		}
	}
}

func TestCallForcesSpillOfLiveCrossCallValue(t *testing.T) {
	fn := ir.NewFunction("withcall", types.Int)
	blk := fn.NewBlock("entry")

	kept := fn.NewTemp(types.Int)
	blk.Insts = append(blk.Insts, ir.BinOp{Dest: kept, Op: ir.OpAdd, L: ir.ConstInt{Val: 1, Typ: types.Int}, R: ir.ConstInt{Val: 2, Typ: types.Int}, Typ: types.Int})

	callRes := fn.NewTemp(types.Int)
	blk.Insts = append(blk.Insts, ir.Call{Dest: &callRes, Target: "helper", Typ: types.Int})

	final := fn.NewTemp(types.Int)
	blk.Insts = append(blk.Insts, ir.BinOp{Dest: final, Op: ir.OpAdd, L: ir.Temp{ID: kept, Typ: types.Int}, R: ir.Temp{ID: callRes, Typ: types.Int}, Typ: types.Int})
	blk.Term = ir.Ret{Value: ir.Temp{ID: final, Typ: types.Int}}

	diags := diag.NewCollector()
	a := NewAllocator(fn, nil, diags)
	plan := a.Allocate()

	var spilledKept bool
	for _, s := range plan.Spills {
		if s.Temp == kept {
			spilledKept = true
		}
	}
	assert.True(t, spilledKept, "value live across a call must be spilled before it, per spec.md §4.4")
}
