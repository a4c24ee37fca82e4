// Package frontend turns C source text into the typed AST the IR builder
// (pkg/ir) consumes. It is a reduced C subset — the external, full C99
// front end spec.md defers to ("parse (external) → type-check (external)",
// §4.8) — kept here only so the driver and CLI are runnable end to end
// without a separately shipped parser. It covers: function and global
// declarations, struct/typedef declarations, the statement forms named in
// §4.2 (if/while/for/return/break/continue/switch/block/expr), and the
// expression forms §4.2 lowers (index, field access, address-of, deref,
// assignment, calls, casts, short-circuit &&/||, relational/arithmetic
// binary ops).
//
// Design follows the teacher's AST shape (pkg/frontend/frontend.go): a
// closed set of node kinds behind marker-method interfaces, dispatched by
// type switch in the builder, never by embedding a common base or runtime
// reflection.
package frontend

import (
	"github.com/rcc-project/rcc/pkg/source"
	"github.com/rcc-project/rcc/pkg/types"
)

// Node is any AST node; every node carries its own source span.
type Node interface {
	node()
	Span() source.Span
}

// TypeExpr is an unresolved, syntactic type reference — "int", "struct
// Point *", "char[16]" — as written in source, before typedef expansion
// and struct-completeness checks run in the semantic pass.
type TypeExpr interface {
	Node
	typeExpr()
}

type NamedType struct {
	Name string
	Sp   source.Span
}

func (NamedType) node()             {}
func (n NamedType) Span() source.Span { return n.Sp }
func (NamedType) typeExpr()         {}

type PointerTypeExpr struct {
	Target TypeExpr
	Sp     source.Span
}

func (PointerTypeExpr) node()             {}
func (p PointerTypeExpr) Span() source.Span { return p.Sp }
func (PointerTypeExpr) typeExpr()         {}

type ArrayTypeExpr struct {
	Element TypeExpr
	Length  int
	Sp      source.Span
}

func (ArrayTypeExpr) node()             {}
func (a ArrayTypeExpr) Span() source.Span { return a.Sp }
func (ArrayTypeExpr) typeExpr()         {}

type StructTypeExpr struct {
	Tag string // the name after "struct"
	Sp  source.Span
}

func (StructTypeExpr) node()             {}
func (s StructTypeExpr) Span() source.Span { return s.Sp }
func (StructTypeExpr) typeExpr()         {}

// Decl is a top-level or block-scope declaration.
type Decl interface {
	Node
	decl()
}

type Program struct {
	Decls []Decl
	Sp    source.Span
}

func (Program) node()             {}
func (p Program) Span() source.Span { return p.Sp }

type ParamDecl struct {
	Name string
	Type TypeExpr
	Sp   source.Span
}

func (ParamDecl) node()             {}
func (p ParamDecl) Span() source.Span { return p.Sp }

type FuncDecl struct {
	Name       string
	ReturnType TypeExpr
	Params     []*ParamDecl
	Body       *Block // nil for a declaration-only prototype
	Sp         source.Span

	// ResolvedType is filled in by the semantic pass.
	ResolvedType *types.Function
}

func (*FuncDecl) node()             {}
func (f *FuncDecl) Span() source.Span { return f.Sp }
func (*FuncDecl) decl()             {}

type VarDecl struct {
	Name string
	Type TypeExpr
	Init Expr // nil if uninitialized
	Sp   source.Span

	ResolvedType types.Type
}

func (*VarDecl) node()             {}
func (v *VarDecl) Span() source.Span { return v.Sp }
func (*VarDecl) decl()             {}

type FieldDecl struct {
	Name string
	Type TypeExpr
}

type StructDecl struct {
	Name   string
	Fields []FieldDecl
	Sp     source.Span
}

func (*StructDecl) node()             {}
func (s *StructDecl) Span() source.Span { return s.Sp }
func (*StructDecl) decl()             {}

type TypedefDecl struct {
	Name string
	Type TypeExpr
	Sp   source.Span
}

func (*TypedefDecl) node()             {}
func (t *TypedefDecl) Span() source.Span { return t.Sp }
func (*TypedefDecl) decl()             {}
