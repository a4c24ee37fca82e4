// Semantic analysis: resolves TypeExpr nodes to pkg/types.Type values
// through a Registry, builds the global/local symbol tables, and walks
// every expression to fill in its resolved Type (the "tast" stage in
// spec.md §6 — "the AST after type resolution, with every expression
// carrying expr_type"). Scoping is block-structured: one Scope per
// function/block, chained to its parent, the same shape used for Python's
// scoped name resolution in the teacher's checker — but here resolving C's
// flat variable/function namespace instead of Python's class/def nesting.
package frontend

import (
	"fmt"

	"github.com/rcc-project/rcc/pkg/source"
	"github.com/rcc-project/rcc/pkg/types"
)

// Symbol is one resolved name: a variable, parameter, or function.
type Symbol struct {
	Name       string
	Type       types.Type
	ScopeLevel int
}

type scope struct {
	parent *scope
	level  int
	vars   map[string]Symbol
}

func newScope(parent *scope) *scope {
	lvl := 0
	if parent != nil {
		lvl = parent.level + 1
	}
	return &scope{parent: parent, level: lvl, vars: make(map[string]Symbol)}
}

func (s *scope) define(sym Symbol) { s.vars[sym.Name] = sym }

func (s *scope) lookup(name string) (Symbol, bool) {
	for c := s; c != nil; c = c.parent {
		if sym, ok := c.vars[name]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// Checker resolves types and builds symbol tables for one translation
// unit. It owns the types.Registry (typedefs and structs) and the function
// signature table consulted when checking Call expressions.
type Checker struct {
	Registry  *types.Registry
	Functions map[string]*types.Function
	Globals   []Symbol // file-scope variable symbols, in declaration order, for the "sem" trace dump
	errors    []string
}

func NewChecker() *Checker {
	return &Checker{
		Registry:  types.NewRegistry(),
		Functions: make(map[string]*types.Function),
	}
}

func (c *Checker) errorf(sp source.Span, format string, args ...any) {
	c.errors = append(c.errors, fmt.Sprintf("%s: %s", sp.Start, fmt.Sprintf(format, args...)))
}

// Errors returns accumulated semantic errors.
func (c *Checker) Errors() []string { return c.errors }

// Check resolves every declaration and expression in prog. It never
// aborts on the first error (spec.md §7 local recovery): each error is
// recorded and checking continues through the rest of the function's body
// and its sibling functions.
func (c *Checker) Check(prog *Program) {
	// pass 1: register struct tags and typedefs so forward references
	// (a struct containing a pointer to itself, or used before its
	// textual definition) resolve.
	for _, d := range prog.Decls {
		switch dd := d.(type) {
		case *StructDecl:
			s := c.Registry.DeclareStruct(dd.Name)
			if dd.Fields != nil && !s.IsComplete() {
				s.Fields = c.resolveFields(dd.Fields)
				if err := s.Complete(); err != nil {
					c.errorf(dd.Sp, "%s", err)
				}
			}
		}
	}
	// pass 2: typedefs (may reference structs from pass 1)
	for _, d := range prog.Decls {
		if td, ok := d.(*TypedefDecl); ok {
			c.Registry.Typedef(td.Name, c.resolveTypeExpr(td.Type))
		}
	}
	// pass 3: function signatures, so forward/mutually-recursive calls
	// resolve regardless of declaration order.
	for _, d := range prog.Decls {
		if fd, ok := d.(*FuncDecl); ok {
			ret := c.resolveTypeExpr(fd.ReturnType)
			params := make([]types.Type, len(fd.Params))
			for i, p := range fd.Params {
				params[i] = types.PointerDecay(c.resolveTypeExpr(p.Type))
			}
			fn := &types.Function{Return: ret, Params: params}
			fd.ResolvedType = fn
			c.Functions[fd.Name] = fn
		}
	}
	// pass 4: global variable types + function bodies
	fileScope := newScope(nil)
	for _, d := range prog.Decls {
		switch dd := d.(type) {
		case *VarDecl:
			dd.ResolvedType = c.resolveTypeExpr(dd.Type)
			fileScope.define(Symbol{Name: dd.Name, Type: dd.ResolvedType, ScopeLevel: 0})
			c.Globals = append(c.Globals, fileScope.vars[dd.Name])
			if dd.Init != nil {
				c.checkExpr(dd.Init, fileScope)
			}
		}
	}
	for _, d := range prog.Decls {
		if fd, ok := d.(*FuncDecl); ok && fd.Body != nil {
			c.checkFunction(fd, fileScope)
		}
	}
}

func (c *Checker) resolveFields(fields []FieldDecl) []types.Field {
	out := make([]types.Field, len(fields))
	for i, f := range fields {
		out[i] = types.Field{Name: f.Name, Type: c.resolveTypeExpr(f.Type)}
	}
	return out
}

func (c *Checker) resolveTypeExpr(te TypeExpr) types.Type {
	switch t := te.(type) {
	case NamedType:
		switch t.Name {
		case "void":
			return types.Void{}
		case "char":
			return types.Char
		case "short":
			return types.Short
		case "int":
			return types.Int
		case "long":
			return types.Long
		case "unsigned int":
			return types.UInt
		}
		// typedef name
		resolved, err := c.Registry.ResolveTypedef(types.TypeName{Name: t.Name})
		if err != nil {
			c.errorf(t.Sp, "%s", err)
			return types.Int
		}
		return resolved
	case PointerTypeExpr:
		return types.Pointer{Target: c.resolveTypeExpr(t.Target)}
	case ArrayTypeExpr:
		return types.Array{Element: c.resolveTypeExpr(t.Element), Length: t.Length}
	case StructTypeExpr:
		s, ok := c.Registry.LookupStruct(t.Tag)
		if !ok {
			c.errorf(t.Sp, "undeclared struct %q", t.Tag)
			return types.Int
		}
		return s
	}
	return types.Int
}

func (c *Checker) checkFunction(fd *FuncDecl, parent *scope) {
	fnScope := newScope(parent)
	for i, p := range fd.Params {
		pt := types.PointerDecay(c.resolveTypeExpr(p.Type))
		fnScope.define(Symbol{Name: p.Name, Type: pt, ScopeLevel: fnScope.level})
		fd.ResolvedType.Params[i] = pt
	}
	c.checkBlock(fd.Body, fnScope)
}

func (c *Checker) checkBlock(b *Block, parent *scope) {
	s := newScope(parent)
	for _, st := range b.Stmts {
		c.checkStmt(st, s)
	}
}

func (c *Checker) checkStmt(st Stmt, s *scope) {
	switch v := st.(type) {
	case *Block:
		c.checkBlock(v, s)
	case *ExprStmt:
		c.checkExpr(v.X, s)
	case *DeclStmt:
		v.Decl.ResolvedType = c.resolveTypeExpr(v.Decl.Type)
		s.define(Symbol{Name: v.Decl.Name, Type: v.Decl.ResolvedType, ScopeLevel: s.level})
		if v.Decl.Init != nil {
			c.checkExpr(v.Decl.Init, s)
		}
	case *If:
		c.checkExpr(v.Cond, s)
		c.checkStmt(v.Then, s)
		if v.Else != nil {
			c.checkStmt(v.Else, s)
		}
	case *While:
		c.checkExpr(v.Cond, s)
		c.checkStmt(v.Body, s)
	case *For:
		loopScope := newScope(s)
		if v.Init != nil {
			c.checkStmt(v.Init, loopScope)
		}
		if v.Cond != nil {
			c.checkExpr(v.Cond, loopScope)
		}
		if v.Post != nil {
			c.checkExpr(v.Post, loopScope)
		}
		c.checkStmt(v.Body, loopScope)
	case *Return:
		if v.Value != nil {
			c.checkExpr(v.Value, s)
		}
	case *Switch:
		c.checkExpr(v.Tag, s)
		for _, cs := range v.Cases {
			for _, bst := range cs.Body {
				c.checkStmt(bst, s)
			}
		}
	case *Break, *Continue:
		// nothing to resolve
	}
}

func (c *Checker) checkExpr(e Expr, s *scope) types.Type {
	if e == nil {
		return nil
	}
	var t types.Type
	switch v := e.(type) {
	case *Ident:
		sym, ok := s.lookup(v.Name)
		if !ok {
			c.errorf(v.Sp, "undeclared identifier %q", v.Name)
			t = types.Int
		} else {
			t = sym.Type
		}
	case *IntLit:
		t = types.Int
	case *StringLit:
		t = types.Pointer{Target: types.Char}
	case *BinaryOp:
		lt := c.checkExpr(v.Left, s)
		c.checkExpr(v.Right, s)
		if _, isPtr := lt.(types.Pointer); isPtr {
			t = lt
		} else {
			t = types.IntegerPromote(lt)
		}
	case *LogicalOp:
		c.checkExpr(v.Left, s)
		c.checkExpr(v.Right, s)
		t = types.Int
	case *UnaryOp:
		t = c.checkExpr(v.X, s)
	case *AddrOf:
		inner := c.checkExpr(v.X, s)
		t = types.Pointer{Target: inner}
	case *Deref:
		inner := c.checkExpr(v.X, s)
		if p, ok := inner.(types.Pointer); ok {
			t = p.Target
		} else {
			c.errorf(v.Sp, "cannot dereference non-pointer")
			t = types.Int
		}
	case *Index:
		base := c.checkExpr(v.Base, s)
		c.checkExpr(v.Idx, s)
		base = types.PointerDecay(base)
		if p, ok := base.(types.Pointer); ok {
			t = p.Target
		} else {
			c.errorf(v.Sp, "cannot index non-array/pointer")
			t = types.Int
		}
	case *Field:
		base := c.checkExpr(v.Base, s)
		var st *types.Struct
		if v.Arrow {
			if p, ok := base.(types.Pointer); ok {
				st, _ = p.Target.(*types.Struct)
			}
		} else {
			st, _ = base.(*types.Struct)
		}
		if st == nil {
			c.errorf(v.Sp, "field access on non-struct")
			t = types.Int
		} else if ft, ok := types.FieldType(st, v.Name); ok {
			t = ft
		} else {
			c.errorf(v.Sp, "no field %q on struct %s", v.Name, st.Name)
			t = types.Int
		}
	case *Assign:
		c.checkExpr(v.Value, s)
		t = c.checkExpr(v.Target, s)
	case *Call:
		for _, a := range v.Args {
			c.checkExpr(a, s)
		}
		if fn, ok := c.Functions[v.Callee]; ok {
			t = fn.Return
		} else {
			c.errorf(v.Sp, "undeclared function %q", v.Callee)
			t = types.Int
		}
	case *Cast:
		c.checkExpr(v.X, s)
		t = c.resolveTypeExpr(v.Type)
	default:
		t = types.Int
	}
	e.setType(t)
	return t
}
