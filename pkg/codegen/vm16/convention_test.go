package vm16

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcc-project/rcc/pkg/codegen/regalloc"
	"github.com/rcc-project/rcc/pkg/types"
)

func TestPlaceArgsPacksScalarsIntoArgRegisters(t *testing.T) {
	slots := PlaceArgs([]types.Type{types.Int, types.Int, types.Int})
	for i, s := range slots {
		assert.Equal(t, []regalloc.Register{regalloc.ArgRegs[i]}, s.Regs)
	}
}

// A fat pointer that would straddle ARG3/the stack boundary must spill
// whole to the stack rather than split (spec.md §4.5).
func TestPlaceArgsSpillsWholeFatPointerRatherThanSplit(t *testing.T) {
	slots := PlaceArgs([]types.Type{types.Int, types.Int, types.Int, types.Pointer{Target: types.Int, Region: types.RegionNone}})
	last := slots[3]
	assert.Nil(t, last.Regs)
	assert.Equal(t, 2, last.Cells)
}

func TestPlaceArgsOverflowGoesToStackInOrder(t *testing.T) {
	argTypes := make([]types.Type, 6)
	for i := range argTypes {
		argTypes[i] = types.Int
	}
	slots := PlaceArgs(argTypes)
	for i := 0; i < 4; i++ {
		assert.NotNil(t, slots[i].Regs)
	}
	assert.Nil(t, slots[4].Regs)
	assert.Equal(t, 0, slots[4].StackOffset)
	assert.Nil(t, slots[5].Regs)
	assert.Equal(t, 1, slots[5].StackOffset)
}

func TestNeedsSretForLargeAggregate(t *testing.T) {
	big := &types.Struct{Name: "big", Fields: []types.Field{
		{Name: "a", Type: types.Int}, {Name: "b", Type: types.Int}, {Name: "c", Type: types.Int},
	}}
	require.NoError(t, big.Complete())
	assert.True(t, NeedsSret(big))
	assert.False(t, NeedsSret(types.Int))
}

func TestBreakCyclesResolvesSimpleChain(t *testing.T) {
	moves := map[regalloc.Register]regalloc.Register{
		regalloc.Register("R0"): regalloc.ARG0,
	}
	ordered := BreakCycles(moves)
	assert.Equal(t, []shuffleMove{{From: "R0", To: regalloc.ARG0}}, ordered)
}

// A two-cycle (R0->R1, R1->R0) must route through SCRATCH rather than
// deadlock or silently drop a move (spec.md §4.5 "emitting cycles last").
func TestBreakCyclesResolvesTwoCycleViaScratch(t *testing.T) {
	moves := map[regalloc.Register]regalloc.Register{
		regalloc.Register("R0"): regalloc.Register("R1"),
		regalloc.Register("R1"): regalloc.Register("R0"),
	}
	ordered := BreakCycles(moves)
	usedScratch := false
	for _, mv := range ordered {
		if mv.To == regalloc.SCRATCH || mv.From == regalloc.SCRATCH {
			usedScratch = true
		}
	}
	assert.True(t, usedScratch)
	assert.Len(t, ordered, 3)
}

// BreakCycles must emit the same move order every time for the same input
// — Go's map iteration is randomized per-process, so two compiles of an
// identical call site (here, four independent register-to-register moves,
// the shape of spec.md §8.2 scenario 6's six-scalar-argument call) must not
// be allowed to diverge (spec.md §8.1 "Idempotent compilation").
func TestBreakCyclesIsDeterministicAcrossRuns(t *testing.T) {
	moves := map[regalloc.Register]regalloc.Register{
		regalloc.Register("R3"): regalloc.ARG0,
		regalloc.Register("R2"): regalloc.ARG1,
		regalloc.Register("R1"): regalloc.ARG2,
		regalloc.Register("R0"): regalloc.ARG3,
	}
	first := BreakCycles(moves)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, BreakCycles(moves))
	}
}
