package driver

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rcc-project/rcc/pkg/frontend"
	"github.com/rcc-project/rcc/pkg/source"
)

// describeNode's output is a deeply nested map[string]any; go-cmp gives a
// precise per-key diff on mismatch instead of testify's single "not
// equal" line, which matters once a tree is a few levels deep.
func TestDescribeNodeRendersBinaryOpWithOperandsAndSpan(t *testing.T) {
	sp := source.Span{Start: source.Position{File: "t.c", Line: 1, Col: 1, Offset: 0}, End: source.Position{File: "t.c", Line: 1, Col: 6, Offset: 5}}
	lhs := &frontend.Ident{Name: "x"}
	rhs := &frontend.IntLit{Value: 1}
	add := &frontend.BinaryOp{Op: "+", Left: lhs, Right: rhs}
	add.Sp = sp

	got := describeNode(add)
	want := map[string]any{
		"kind": "BinaryOp",
		"op":   "+",
		"span": spanJSON{Start: 0, End: 5},
		"lhs": map[string]any{
			"kind":      "Ident",
			"name":      "x",
			"expr_type": "",
			"span":      spanJSON{Start: 0, End: 0},
		},
		"rhs": map[string]any{
			"kind":      "IntLit",
			"value":     int64(1),
			"expr_type": "",
			"span":      spanJSON{Start: 0, End: 0},
		},
		"expr_type": "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("describeNode mismatch (-want +got):\n%s", diff)
	}
}

func TestDescribeNodePanicsOnUnregisteredNodeKind(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected describeNode to panic on an unrecognized Node")
		}
	}()
	describeNode(unknownNode{})
}

type unknownNode struct{}

func (unknownNode) node()             {}
func (unknownNode) Span() source.Span { return source.Synthetic() }
