package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/types"
)

func TestConstantFoldEvaluatesBothConstantOperands(t *testing.T) {
	fn := ir.NewFunction("f", types.Int)
	blk := fn.NewBlock("entry")
	sum := fn.NewTemp(types.Int)
	blk.Insts = []ir.Inst{
		ir.BinOp{Dest: sum, Op: ir.OpAdd, L: ir.ConstInt{Val: 2, Typ: types.Int}, R: ir.ConstInt{Val: 3, Typ: types.Int}, Typ: types.Int},
	}
	blk.Term = ir.Ret{Value: ir.Temp{ID: sum, Typ: types.Int}}

	mod := &ir.Module{Functions: []*ir.Function{fn}}
	ConstantFold(mod)

	require.Empty(t, blk.Insts)
	ret := blk.Term.(ir.Ret)
	c, ok := ret.Value.(ir.ConstInt)
	require.True(t, ok)
	assert.Equal(t, int64(5), c.Val)
}

func TestConstantFoldLeavesDivisionByZeroUnfolded(t *testing.T) {
	fn := ir.NewFunction("f", types.Int)
	blk := fn.NewBlock("entry")
	q := fn.NewTemp(types.Int)
	blk.Insts = []ir.Inst{
		ir.BinOp{Dest: q, Op: ir.OpDiv, L: ir.ConstInt{Val: 1, Typ: types.Int}, R: ir.ConstInt{Val: 0, Typ: types.Int}, Typ: types.Int},
	}
	blk.Term = ir.Ret{Value: ir.Temp{ID: q, Typ: types.Int}}

	mod := &ir.Module{Functions: []*ir.Function{fn}}
	ConstantFold(mod)

	assert.Len(t, blk.Insts, 1)
}

func TestPeepholeEliminatesAddZeroIdentity(t *testing.T) {
	fn := ir.NewFunction("f", types.Int)
	blk := fn.NewBlock("entry")
	a := fn.NewTemp(types.Int)
	r := fn.NewTemp(types.Int)
	blk.Insts = []ir.Inst{
		ir.BinOp{Dest: r, Op: ir.OpAdd, L: ir.Temp{ID: a, Typ: types.Int}, R: ir.ConstInt{Val: 0, Typ: types.Int}, Typ: types.Int},
	}
	blk.Term = ir.Ret{Value: ir.Temp{ID: r, Typ: types.Int}}

	mod := &ir.Module{Functions: []*ir.Function{fn}}
	PeepholeOptimize(mod)

	assert.Empty(t, blk.Insts)
	ret := blk.Term.(ir.Ret)
	assert.Equal(t, a, ret.Value.(ir.Temp).ID)
}

func TestPeepholeConvertsMultiplyByPowerOfTwoToShift(t *testing.T) {
	fn := ir.NewFunction("f", types.Int)
	blk := fn.NewBlock("entry")
	a := fn.NewTemp(types.Int)
	r := fn.NewTemp(types.Int)
	blk.Insts = []ir.Inst{
		ir.BinOp{Dest: r, Op: ir.OpMul, L: ir.Temp{ID: a, Typ: types.Int}, R: ir.ConstInt{Val: 8, Typ: types.Int}, Typ: types.Int},
	}
	blk.Term = ir.Ret{Value: ir.Temp{ID: r, Typ: types.Int}}

	mod := &ir.Module{Functions: []*ir.Function{fn}}
	PeepholeOptimize(mod)

	require.Len(t, blk.Insts, 1)
	binop := blk.Insts[0].(ir.BinOp)
	assert.Equal(t, ir.OpShl, binop.Op)
	assert.Equal(t, int64(3), binop.R.(ir.ConstInt).Val)
}

func TestDeadCodeEliminationDropsUnreachableBlock(t *testing.T) {
	fn := ir.NewFunction("f", types.Int)
	entry := fn.NewBlock("entry")
	live := fn.NewBlock("live")
	dead := fn.NewBlock("dead")
	entry.Term = ir.Br{Target: live.ID}
	live.Term = ir.Ret{Value: ir.ConstInt{Val: 0, Typ: types.Int}}
	dead.Term = ir.Ret{Value: ir.ConstInt{Val: 1, Typ: types.Int}}

	mod := &ir.Module{Functions: []*ir.Function{fn}}
	DeadCodeElimination(mod)

	assert.Len(t, fn.Blocks, 2)
	for _, b := range fn.Blocks {
		assert.NotEqual(t, dead.ID, b.ID)
	}
}

func TestDeadCodeEliminationDropsUnusedPureInstruction(t *testing.T) {
	fn := ir.NewFunction("f", types.Int)
	blk := fn.NewBlock("entry")
	unused := fn.NewTemp(types.Int)
	blk.Insts = []ir.Inst{
		ir.BinOp{Dest: unused, Op: ir.OpAdd, L: ir.ConstInt{Val: 1, Typ: types.Int}, R: ir.ConstInt{Val: 2, Typ: types.Int}, Typ: types.Int},
	}
	blk.Term = ir.Ret{Value: ir.ConstInt{Val: 0, Typ: types.Int}}

	mod := &ir.Module{Functions: []*ir.Function{fn}}
	DeadCodeElimination(mod)

	assert.Empty(t, blk.Insts)
}

func TestOptimizeLevelZeroLeavesModuleUnchanged(t *testing.T) {
	fn := ir.NewFunction("f", types.Int)
	blk := fn.NewBlock("entry")
	sum := fn.NewTemp(types.Int)
	blk.Insts = []ir.Inst{
		ir.BinOp{Dest: sum, Op: ir.OpAdd, L: ir.ConstInt{Val: 2, Typ: types.Int}, R: ir.ConstInt{Val: 3, Typ: types.Int}, Typ: types.Int},
	}
	blk.Term = ir.Ret{Value: ir.Temp{ID: sum, Typ: types.Int}}

	mod := &ir.Module{Functions: []*ir.Function{fn}}
	Optimize(mod, 0)

	assert.Len(t, blk.Insts, 1)
}
