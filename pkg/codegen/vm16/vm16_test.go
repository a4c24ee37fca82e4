package vm16

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcc-project/rcc/pkg/diag"
	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/provenance"
	"github.com/rcc-project/rcc/pkg/source"
	"github.com/rcc-project/rcc/pkg/types"
)

// buildAddFunction constructs the IR pkg/ir's Builder emits for
// `int add(int a, int b) { return a + b; }`: one value temp and one
// stack-slot Alloca per parameter, a Store wiring them together, then a
// Load/BinOp/Ret body (build.go's buildFunction shape).
func buildAddFunction() (*ir.Function, *provenance.Table) {
	fn := ir.NewFunction("add", types.Int)
	blk := fn.NewBlock("entry")
	prov := provenance.NewTable()

	ptrInt := types.Pointer{Target: types.Int}

	var slots [2]ir.TempID
	for i, name := range []string{"a", "b"} {
		argTemp := fn.NewTemp(types.Int)
		fn.Params = append(fn.Params, ir.Param{Name: name, Temp: argTemp, Type: types.Int})
		slot := fn.NewTemp(ptrInt)
		slots[i] = slot
		blk.Insts = append(blk.Insts,
			ir.Alloca{Dest: slot, ElemType: types.Int},
			ir.Store{Addr: ir.Temp{ID: slot, Typ: ptrInt}, Val: ir.Temp{ID: argTemp, Typ: types.Int}},
		)
		prov.Set(provenance.TempID(slot), provenance.Origin(provenance.Stack, source.Span{}))
	}

	loadA := fn.NewTemp(types.Int)
	loadB := fn.NewTemp(types.Int)
	sum := fn.NewTemp(types.Int)
	blk.Insts = append(blk.Insts,
		ir.Load{Dest: loadA, Addr: ir.Temp{ID: slots[0], Typ: ptrInt}, Typ: types.Int},
		ir.Load{Dest: loadB, Addr: ir.Temp{ID: slots[1], Typ: ptrInt}, Typ: types.Int},
		ir.BinOp{Dest: sum, Op: ir.OpAdd, L: ir.Temp{ID: loadA, Typ: types.Int}, R: ir.Temp{ID: loadB, Typ: types.Int}, Typ: types.Int},
	)
	blk.Term = ir.Ret{Value: ir.Temp{ID: sum, Typ: types.Int}}
	return fn, prov
}

func TestGenerateFunctionProducesPrologueBodyEpilogue(t *testing.T) {
	fn, prov := buildAddFunction()
	mod := &ir.Module{Functions: []*ir.Function{fn}, Strings: ir.NewStringPool()}
	diags := diag.NewCollector()

	out, err := GenerateToString(mod, map[string]*provenance.Table{"add": prov}, diags)
	require.NoError(t, err)
	assert.False(t, diags.HasErrors())

	assert.Contains(t, out, "add:")
	assert.Contains(t, out, "PUSH FP")
	assert.Contains(t, out, "MOV FP, SP")
	assert.Contains(t, out, "ADD ")
	assert.Contains(t, out, "MOV SP, FP")
	assert.Contains(t, out, "POP FP")
	assert.Contains(t, out, "RET")
}

// A leaf function's epilogue must use the plain RET form, never RETB —
// only a function that saved LINK/LINK_BANK in its prologue may restore
// them (spec.md §4.5 "non-leaf only").
func TestLeafFunctionEpilogueOmitsLinkSaveRestore(t *testing.T) {
	fn, prov := buildAddFunction()
	assert.True(t, fn.IsLeaf)
	mod := &ir.Module{Functions: []*ir.Function{fn}, Strings: ir.NewStringPool()}
	diags := diag.NewCollector()

	out, err := GenerateToString(mod, map[string]*provenance.Table{"add": prov}, diags)
	require.NoError(t, err)
	assert.NotContains(t, out, "PUSH LINK")
	assert.NotContains(t, out, "RETB")
}

func TestGlobalArrayIndexLoadUsesGlobalBank(t *testing.T) {
	fn := ir.NewFunction("first", types.Int)
	blk := fn.NewBlock("entry")
	arrType := types.Array{Element: types.Int, Length: 4}

	dest := fn.NewTemp(types.Pointer{Target: types.Int})
	idx := int64(0)
	blk.Insts = append(blk.Insts, ir.GEP{
		Dest:          dest,
		Base:          ir.GlobalAddr{Name: "xs", Typ: types.Pointer{Target: arrType}},
		ContainerType: arrType,
		Steps:         []ir.GEPStep{{Kind: ir.GEPElement, Index: ir.ConstInt{Val: idx, Typ: types.Int}}},
		ResultType:    types.Int,
	})
	loaded := fn.NewTemp(types.Int)
	blk.Insts = append(blk.Insts, ir.Load{Dest: loaded, Addr: ir.Temp{ID: dest, Typ: types.Pointer{Target: types.Int}}, Typ: types.Int})
	blk.Term = ir.Ret{Value: ir.Temp{ID: loaded, Typ: types.Int}}

	mod := &ir.Module{
		Functions: []*ir.Function{fn},
		Globals:   []*ir.Global{{Name: "xs", Type: arrType, Init: []int64{1, 2, 3, 4}}},
		Strings:   ir.NewStringPool(),
	}
	diags := diag.NewCollector()
	out, err := GenerateToString(mod, map[string]*provenance.Table{"first": provenance.NewTable()}, diags)
	require.NoError(t, err)
	assert.Contains(t, out, "xs:")
	assert.Contains(t, out, "LDA ")
	assert.Contains(t, out, "GB")
}
