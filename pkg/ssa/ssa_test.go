package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/types"
)

// buildDiamond constructs entry -> (then, else) -> join, the classic
// if/else diamond, and returns the function plus each block's id.
func buildDiamond() (*ir.Function, ir.BlockID, ir.BlockID, ir.BlockID, ir.BlockID) {
	fn := ir.NewFunction("diamond", types.Int)
	entry := fn.NewBlock("entry")
	thenBlk := fn.NewBlock("then")
	elseBlk := fn.NewBlock("else")
	join := fn.NewBlock("join")

	entry.Term = ir.CondBr{Cond: ir.ConstInt{Val: 1, Typ: types.Bool}, TrueBlk: thenBlk.ID, FalseBlk: elseBlk.ID}
	thenBlk.Term = ir.Br{Target: join.ID}
	elseBlk.Term = ir.Br{Target: join.ID}
	join.Term = ir.Ret{}

	return fn, entry.ID, thenBlk.ID, elseBlk.ID, join.ID
}

func TestBuildCFGRecordsEdgesBothWays(t *testing.T) {
	fn, entry, thenID, elseID, join := buildDiamond()
	cfg := BuildCFG(fn)

	assert.ElementsMatch(t, []ir.BlockID{thenID, elseID}, cfg.Succs[entry])
	assert.ElementsMatch(t, []ir.BlockID{thenID, elseID}, cfg.Preds[join])
	assert.Empty(t, cfg.Succs[join])
	assert.Empty(t, cfg.Preds[entry])
}

func TestDominatorsOfDiamond(t *testing.T) {
	fn, entry, thenID, elseID, join := buildDiamond()
	idom := Dominators(fn)

	require.Contains(t, idom, join)
	assert.Equal(t, entry, idom[thenID])
	assert.Equal(t, entry, idom[elseID])
	assert.Equal(t, entry, idom[join]) // join's only idom is entry, not then/else
	assert.Equal(t, entry, idom[entry])
}

func TestDominanceFrontierOfDiamond(t *testing.T) {
	fn, entry, thenID, elseID, join := buildDiamond()
	idom := Dominators(fn)
	df := DominanceFrontiers(fn, idom)

	assert.ElementsMatch(t, []ir.BlockID{join}, df[thenID])
	assert.ElementsMatch(t, []ir.BlockID{join}, df[elseID])
	assert.Empty(t, df[entry])
}

func TestDominatorsOfLinearChain(t *testing.T) {
	fn := ir.NewFunction("linear", types.Void{})
	a := fn.NewBlock("a")
	b := fn.NewBlock("b")
	c := fn.NewBlock("c")
	a.Term = ir.Br{Target: b.ID}
	b.Term = ir.Br{Target: c.ID}
	c.Term = ir.Ret{}

	idom := Dominators(fn)
	assert.Equal(t, a.ID, idom[b.ID])
	assert.Equal(t, b.ID, idom[c.ID])
}

func TestReachableExcludesDeadBlocks(t *testing.T) {
	fn := ir.NewFunction("deadcode", types.Void{})
	entry := fn.NewBlock("entry")
	reachableBlk := fn.NewBlock("reachable")
	deadBlk := fn.NewBlock("dead")
	entry.Term = ir.Br{Target: reachableBlk.ID}
	reachableBlk.Term = ir.Ret{}
	deadBlk.Term = ir.Ret{}

	reach := Reachable(fn)
	assert.True(t, reach[entry.ID])
	assert.True(t, reach[reachableBlk.ID])
	assert.False(t, reach[deadBlk.ID])
}

func TestDominatorsOfLoopBackEdge(t *testing.T) {
	fn := ir.NewFunction("loop", types.Void{})
	entry := fn.NewBlock("entry")
	header := fn.NewBlock("header")
	body := fn.NewBlock("body")
	exit := fn.NewBlock("exit")

	entry.Term = ir.Br{Target: header.ID}
	header.Term = ir.CondBr{Cond: ir.ConstInt{Val: 1, Typ: types.Bool}, TrueBlk: body.ID, FalseBlk: exit.ID}
	body.Term = ir.Br{Target: header.ID} // back edge
	exit.Term = ir.Ret{}

	idom := Dominators(fn)
	assert.Equal(t, entry.ID, idom[header.ID])
	assert.Equal(t, header.ID, idom[body.ID])
	assert.Equal(t, header.ID, idom[exit.ID])

	df := DominanceFrontiers(fn, idom)
	assert.ElementsMatch(t, []ir.BlockID{header.ID}, df[body.ID])
}
