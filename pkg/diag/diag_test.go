package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcc-project/rcc/pkg/source"
)

func pos(line, col int) source.Position {
	return source.Position{File: "t.c", Line: line, Col: col}
}

func TestCollectorOrdersBySourcePosition(t *testing.T) {
	c := NewCollector()
	c.Errorf(CodeUndeclaredIdent, source.Span{Start: pos(5, 1)}, "second")
	c.Errorf(CodeUndeclaredIdent, source.Span{Start: pos(2, 1)}, "first")
	all := c.All()
	assert.Len(t, all, 2)
	assert.Equal(t, "first", all[0].Message)
	assert.Equal(t, "second", all[1].Message)
}

func TestHasErrorsAndFatal(t *testing.T) {
	c := NewCollector()
	assert.False(t, c.HasErrors())
	c.Warnf(CodeAssumePointerParam, source.Span{Start: pos(1, 1)}, "weakened")
	assert.False(t, c.HasErrors())
	c.Errorf(CodeDerefUnknown, source.Span{Start: pos(1, 1)}, "bad deref")
	assert.True(t, c.HasErrors())
	assert.False(t, c.HasFatal())
	c.Fatalf(CodeSpillPinned, source.Span{Start: pos(1, 1)}, "internal")
	assert.True(t, c.HasFatal())
}

func TestFormatIncludesNotesAndHelp(t *testing.T) {
	d := Diagnostic{
		Severity:    Error,
		Code:        CodeDerefMixed,
		Message:     "dereference of pointer with mixed provenance",
		PrimarySpan: source.Span{Start: pos(10, 5)},
		Notes: []Note2{
			{Span: source.Span{Start: pos(8, 3)}, Text: "assigned stack address here"},
			{Span: source.Span{Start: pos(9, 3)}, Text: "assigned global address here"},
		},
		Help: "split the pointer into two variables if both regions are needed",
	}
	out := d.Format()
	assert.Contains(t, out, "t.c:10:5")
	assert.Contains(t, out, "error["+CodeDerefMixed+"]")
	assert.Contains(t, out, "assigned stack address here")
	assert.Contains(t, out, "help:")
}
