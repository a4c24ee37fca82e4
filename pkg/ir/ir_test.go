package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcc-project/rcc/pkg/types"
)

func TestStringPoolInternsEqualLiterals(t *testing.T) {
	p := NewStringPool()
	l1 := p.Intern("hello")
	l2 := p.Intern("world")
	l3 := p.Intern("hello")
	assert.Equal(t, l1, l3)
	assert.NotEqual(t, l1, l2)
	assert.Equal(t, []StringEntry{{Label: l1, Value: "hello"}, {Label: l2, Value: "world"}}, p.Entries())
}

func TestStringPoolLabelFormat(t *testing.T) {
	p := NewStringPool()
	assert.Equal(t, ".L.str.0", p.Intern("a"))
	assert.Equal(t, ".L.str.1", p.Intern("b"))
}

func TestFunctionNewTempAssignsTypesAndIncrementsID(t *testing.T) {
	fn := NewFunction("f", types.Int)
	t1 := fn.NewTemp(types.Int)
	t2 := fn.NewTemp(types.Pointer{Target: types.Char})
	assert.Equal(t, TempID(0), t1)
	assert.Equal(t, TempID(1), t2)
	assert.Equal(t, types.Int, fn.TempTypes[t1])
	assert.Equal(t, types.Pointer{Target: types.Char}, fn.TempTypes[t2])
}

func TestFunctionNewBlockAppendsInOrder(t *testing.T) {
	fn := NewFunction("f", types.Void{})
	entry := fn.NewBlock("entry")
	next := fn.NewBlock("next")
	assert.Equal(t, BlockID(0), entry.ID)
	assert.Equal(t, BlockID(1), next.ID)
	assert.Equal(t, []*BasicBlock{entry, next}, fn.Blocks)
}

func TestGEPStepElementCarriesIndexNotField(t *testing.T) {
	step := GEPStep{Kind: GEPElement, Index: ConstInt{Val: 3, Typ: types.Int}}
	assert.Equal(t, GEPElement, step.Kind)
	assert.Equal(t, int64(3), step.Index.(ConstInt).Val)
}

func TestGEPStepFieldCarriesPositionNotIndex(t *testing.T) {
	step := GEPStep{Kind: GEPField, Field: 2}
	assert.Equal(t, GEPField, step.Kind)
	assert.Equal(t, 2, step.Field)
	assert.Nil(t, step.Index)
}

func TestTempTypeReturnsItsOwnType(t *testing.T) {
	temp := Temp{ID: 5, Typ: types.Long}
	assert.Equal(t, types.Long, temp.Type())
}
