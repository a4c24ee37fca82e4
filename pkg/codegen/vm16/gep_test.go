package vm16

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcc-project/rcc/pkg/ir"
	"github.com/rcc-project/rcc/pkg/types"
)

func TestStepOffsetFieldUsesStaticFieldOffset(t *testing.T) {
	st := &types.Struct{Name: "point", Fields: []types.Field{
		{Name: "x", Type: types.Int}, {Name: "y", Type: types.Int},
	}}
	require.NoError(t, st.Complete())

	off := StepOffset(st, ir.GEPField, 1, nil)
	assert.Equal(t, types.FieldOffset(st, "y"), off.Static)
	assert.Equal(t, 0, off.DynamicScale)
}

func TestStepOffsetConstantElementIndexFoldsToStatic(t *testing.T) {
	arr := types.Array{Element: types.Int, Length: 10}
	idx := int64(3)
	off := StepOffset(arr, ir.GEPElement, 0, &idx)
	assert.Equal(t, 3*types.SizeCells(types.Int), off.Static)
	assert.Equal(t, 0, off.DynamicScale)
}

func TestStepOffsetVariableElementIndexCarriesDynamicScale(t *testing.T) {
	arr := types.Array{Element: types.Int, Length: 10}
	off := StepOffset(arr, ir.GEPElement, 0, nil)
	assert.Equal(t, 0, off.Static)
	assert.Equal(t, types.SizeCells(types.Int), off.DynamicScale)
}

func TestFitsInBankRejectsOverflowingOffset(t *testing.T) {
	assert.True(t, FitsInBank(0, BankSize-1))
	assert.False(t, FitsInBank(0, BankSize))
	assert.False(t, FitsInBank(BankSize-1, 1))
}

func TestBankDeltaSplitsTotalIntoBankAndAddress(t *testing.T) {
	delta, addr := BankDelta(BankSize + 5)
	assert.Equal(t, 1, delta)
	assert.Equal(t, 5, addr)
}

func TestGEPOffsetOfFieldStepThenStepOffsetOfElement(t *testing.T) {
	inner := types.Array{Element: types.Int, Length: 4}
	st := &types.Struct{Name: "wrapper", Fields: []types.Field{
		{Name: "tag", Type: types.Int},
		{Name: "items", Type: inner},
	}}
	require.NoError(t, st.Complete())

	idx := int64(2)
	gep := ir.GEP{
		ContainerType: st,
		Steps: []ir.GEPStep{
			{Kind: ir.GEPField, Field: 1},
		},
	}
	off := GEPOffset(gep)
	assert.Equal(t, types.FieldOffset(st, "items"), off.Static)

	elemOff := StepOffset(inner, ir.GEPElement, 0, &idx)
	assert.Equal(t, 2*types.SizeCells(types.Int), elemOff.Static)
}
