package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeCells(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want int
	}{
		{"void", Void{}, 0},
		{"char", Char, 1},
		{"int", Int, 1},
		{"long", Long, 2},
		{"pointer", Pointer{Target: Int}, 2},
		{"array of 10 ints", Array{Element: Int, Length: 10}, 10},
		{"array of pointers", Array{Element: Pointer{Target: Char}, Length: 4}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SizeCells(tt.typ))
		})
	}
}

func TestStructLayoutNoPadding(t *testing.T) {
	// struct Point { int x, y; } -> size 2, offsets 0,1
	s := &Struct{Name: "Point", Fields: []Field{
		{Name: "x", Type: Int},
		{Name: "y", Type: Int},
	}}
	require.NoError(t, s.Complete())
	assert.Equal(t, 2, SizeCells(s))
	assert.Equal(t, 0, FieldOffset(s, "x"))
	assert.Equal(t, 1, FieldOffset(s, "y"))
}

func TestStructLayoutMixedFields(t *testing.T) {
	// struct Mixed { char c; int* p; long l; } -> offsets 0, 1, 3; size 5
	s := &Struct{Name: "Mixed", Fields: []Field{
		{Name: "c", Type: Char},
		{Name: "p", Type: Pointer{Target: Int}},
		{Name: "l", Type: Long},
	}}
	require.NoError(t, s.Complete())
	assert.Equal(t, 0, FieldOffset(s, "c"))
	assert.Equal(t, 1, FieldOffset(s, "p"))
	assert.Equal(t, 3, FieldOffset(s, "l"))
	assert.Equal(t, 5, SizeCells(s))
}

func TestStructDuplicateFieldRejected(t *testing.T) {
	s := &Struct{Name: "Bad", Fields: []Field{
		{Name: "x", Type: Int},
		{Name: "x", Type: Int},
	}}
	assert.Error(t, s.Complete())
}

func TestStructByValueRecursionRejected(t *testing.T) {
	s := &Struct{Name: "Node"}
	s.Fields = []Field{{Name: "self", Type: s}}
	err := s.Complete()
	require.Error(t, err)
	var ite *IncompleteTypeError
	assert.ErrorAs(t, err, &ite)
}

func TestStructSelfReferentialPointerAllowed(t *testing.T) {
	r := NewRegistry()
	node := r.DeclareStruct("Node")
	node.Fields = []Field{
		{Name: "value", Type: Int},
		{Name: "next", Type: Pointer{Target: node}},
	}
	require.NoError(t, node.Complete())
	assert.Equal(t, 3, SizeCells(node)) // value(1) + pointer(2)
}

func TestResolveTypedefChain(t *testing.T) {
	r := NewRegistry()
	r.Typedef("u16", UShort)
	r.Typedef("word", TypeName{Name: "u16"})

	got, err := r.ResolveTypedef(TypeName{Name: "word"})
	require.NoError(t, err)
	assert.Equal(t, UShort, got)
}

func TestResolveTypedefCycleRejected(t *testing.T) {
	r := NewRegistry()
	r.Typedef("a", TypeName{Name: "b"})
	r.Typedef("b", TypeName{Name: "a"})
	_, err := r.ResolveTypedef(TypeName{Name: "a"})
	assert.Error(t, err)
}

func TestIsAssignable(t *testing.T) {
	assert.True(t, IsAssignable(Int, Char))
	assert.True(t, IsAssignable(Pointer{Target: Void{}}, Pointer{Target: Int}))
	assert.False(t, IsAssignable(Pointer{Target: Int}, Pointer{Target: Char}))
	assert.True(t, IsAssignable(Int, Int))
}

func TestPointerDecay(t *testing.T) {
	arr := Array{Element: Int, Length: 5}
	assert.Equal(t, Pointer{Target: Int}, PointerDecay(arr))
	assert.Equal(t, Int, PointerDecay(Int))
}

func TestIntegerPromote(t *testing.T) {
	assert.Equal(t, Int, IntegerPromote(Char))
	assert.Equal(t, Long, IntegerPromote(Long))
}
