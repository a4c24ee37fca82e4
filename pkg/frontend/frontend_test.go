package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcc-project/rcc/pkg/types"
)

func TestLexerBasicTokens(t *testing.T) {
	toks := Tokenize("t.c", "int x = 1 + 2;")
	var kinds []TokenType
	for _, tok := range toks {
		kinds = append(kinds, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TokInt, TokIdent, TokAssign, TokIntLit, TokPlus, TokIntLit, TokSemi, TokEOF,
	}, kinds)
}

func TestLexerArrowAndCompound(t *testing.T) {
	toks := Tokenize("t.c", "p->x == 3 && y != 4")
	var kinds []TokenType
	for _, tok := range toks {
		kinds = append(kinds, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TokIdent, TokArrow, TokIdent, TokEqEq, TokIntLit, TokAndAnd, TokIdent, TokNe, TokIntLit, TokEOF,
	}, kinds)
}

func TestParseSimpleFunction(t *testing.T) {
	src := `
int add(int a, int b) {
    return a + b;
}
`
	p := NewParser("t.c", src)
	prog, err := p.Parse()
	require.NoError(t, err)
	require.Len(t, prog.Decls, 1)
	fn, ok := prog.Decls[0].(*FuncDecl)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	assert.Len(t, fn.Params, 2)
	require.Len(t, fn.Body.Stmts, 1)
	_, ok = fn.Body.Stmts[0].(*Return)
	assert.True(t, ok)
}

func TestParsePointerIndexAndField(t *testing.T) {
	src := `
struct Point { int x; int y; };
int get(struct Point *p, int i) {
    int *arr;
    return arr[i] + p->x;
}
`
	p := NewParser("t.c", src)
	prog, err := p.Parse()
	require.NoError(t, err)
	require.Len(t, prog.Decls, 2)
}

func TestCheckerResolvesArithmeticTypes(t *testing.T) {
	src := `
int main() {
    int a;
    a = 1 + 2;
    return a;
}
`
	p := NewParser("t.c", src)
	prog, err := p.Parse()
	require.NoError(t, err)

	c := NewChecker()
	c.Check(prog)
	assert.Empty(t, c.Errors())

	fn := prog.Decls[0].(*FuncDecl)
	assignStmt := fn.Body.Stmts[1].(*ExprStmt)
	assign := assignStmt.X.(*Assign)
	assert.Equal(t, types.Int, assign.ExprType())
}

func TestCheckerStructFieldAccess(t *testing.T) {
	src := `
struct Pair { int a; int b; };
int sum(struct Pair *p) {
    return p->a + p->b;
}
`
	p := NewParser("t.c", src)
	prog, err := p.Parse()
	require.NoError(t, err)

	c := NewChecker()
	c.Check(prog)
	assert.Empty(t, c.Errors())

	fn := prog.Decls[1].(*FuncDecl)
	ret := fn.Body.Stmts[0].(*Return)
	bin := ret.Value.(*BinaryOp)
	assert.Equal(t, types.Int, bin.ExprType())
}

func TestCheckerReportsUndeclaredIdentifier(t *testing.T) {
	src := `
int main() {
    return missing;
}
`
	p := NewParser("t.c", src)
	prog, err := p.Parse()
	require.NoError(t, err)

	c := NewChecker()
	c.Check(prog)
	assert.NotEmpty(t, c.Errors())
}
