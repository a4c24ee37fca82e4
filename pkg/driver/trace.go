package driver

import (
	"fmt"

	"github.com/rcc-project/rcc/pkg/frontend"
	"github.com/rcc-project/rcc/pkg/ir"
)

// spanJSON mirrors source.Span as {start,end} offsets, the shape spec.md
// §6 fixes for every trace artifact's span field.
type spanJSON struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func describeSpan(n frontend.Node) spanJSON {
	sp := n.Span()
	return spanJSON{Start: sp.Start.Offset, End: sp.End.Offset}
}

// tokenRecords builds the .tokens artifact: one {kind,span,value?} entry
// per token, in lexical order.
func tokenRecords(toks []frontend.Token) []map[string]any {
	out := make([]map[string]any, 0, len(toks))
	for _, t := range toks {
		rec := map[string]any{
			"kind": t.Type.String(),
			"span": spanJSON{Start: t.Span.Start.Offset, End: t.Span.End.Offset},
		}
		switch {
		case t.Lexeme != "":
			rec["value"] = t.Lexeme
		case t.StringValue != "":
			rec["value"] = t.StringValue
		case t.IntValue != 0:
			rec["value"] = t.IntValue
		}
		out = append(out, rec)
	}
	return out
}

// describeNode renders one AST node as a {kind,span,...fields} map. Every
// concrete frontend node type is named explicitly — spec.md §6 "failure to
// serialize any node is an internal error, not silently elided" rules out
// a silent default case, so an unrecognized Node panics rather than
// producing an incomplete tree.
func describeNode(n frontend.Node) map[string]any {
	base := map[string]any{"span": describeSpan(n)}
	switch v := n.(type) {
	case *frontend.Program:
		base["kind"] = "Program"
		decls := make([]map[string]any, len(v.Decls))
		for i, d := range v.Decls {
			decls[i] = describeNode(d)
		}
		base["decls"] = decls
	case *frontend.FuncDecl:
		base["kind"] = "FuncDecl"
		base["name"] = v.Name
		params := make([]map[string]any, len(v.Params))
		for i, p := range v.Params {
			params[i] = describeNode(p)
		}
		base["params"] = params
		if v.Body != nil {
			base["body"] = describeNode(v.Body)
		}
	case *frontend.ParamDecl:
		base["kind"] = "ParamDecl"
		base["name"] = v.Name
	case *frontend.VarDecl:
		base["kind"] = "VarDecl"
		base["name"] = v.Name
		if v.Init != nil {
			base["init"] = describeNode(v.Init)
		}
	case *frontend.StructDecl:
		base["kind"] = "StructDecl"
		base["name"] = v.Name
		// FieldDecl carries no span of its own (it is not a Node), so each
		// field is inlined by name only; field types are not described.
		fields := make([]map[string]any, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = map[string]any{"name": f.Name}
		}
		base["fields"] = fields
	case *frontend.TypedefDecl:
		base["kind"] = "TypedefDecl"
		base["name"] = v.Name
	case *frontend.Block:
		base["kind"] = "Block"
		stmts := make([]map[string]any, len(v.Stmts))
		for i, s := range v.Stmts {
			stmts[i] = describeNode(s)
		}
		base["stmts"] = stmts
	case *frontend.ExprStmt:
		base["kind"] = "ExprStmt"
		base["expr"] = describeNode(v.X)
	case *frontend.DeclStmt:
		base["kind"] = "DeclStmt"
		base["decl"] = describeNode(v.Decl)
	case *frontend.If:
		base["kind"] = "If"
		base["cond"] = describeNode(v.Cond)
		base["then"] = describeNode(v.Then)
		if v.Else != nil {
			base["else"] = describeNode(v.Else)
		}
	case *frontend.While:
		base["kind"] = "While"
		base["cond"] = describeNode(v.Cond)
		base["body"] = describeNode(v.Body)
	case *frontend.For:
		base["kind"] = "For"
		if v.Init != nil {
			base["init"] = describeNode(v.Init)
		}
		if v.Cond != nil {
			base["cond"] = describeNode(v.Cond)
		}
		if v.Post != nil {
			base["post"] = describeNode(v.Post)
		}
		base["body"] = describeNode(v.Body)
	case *frontend.Return:
		base["kind"] = "Return"
		if v.Value != nil {
			base["value"] = describeNode(v.Value)
		}
	case *frontend.Switch:
		base["kind"] = "Switch"
		base["tag"] = describeNode(v.Tag)
		// SwitchCase is not a Node either (no span); inlined the same way.
		cases := make([]map[string]any, len(v.Cases))
		for i, c := range v.Cases {
			body := make([]map[string]any, len(c.Body))
			for j, s := range c.Body {
				body[j] = describeNode(s)
			}
			cases[i] = map[string]any{"values": c.Values, "is_default": len(c.Values) == 0, "body": body}
		}
		base["cases"] = cases
	case *frontend.Break:
		base["kind"] = "Break"
	case *frontend.Continue:
		base["kind"] = "Continue"
	case *frontend.Ident:
		base["kind"] = "Ident"
		base["name"] = v.Name
		base["expr_type"] = typeString(v.ExprType())
	case *frontend.IntLit:
		base["kind"] = "IntLit"
		base["value"] = v.Value
		base["expr_type"] = typeString(v.ExprType())
	case *frontend.StringLit:
		base["kind"] = "StringLit"
		base["value"] = v.Value
		base["expr_type"] = typeString(v.ExprType())
	case *frontend.BinaryOp:
		base["kind"] = "BinaryOp"
		base["op"] = v.Op
		base["lhs"] = describeNode(v.Left)
		base["rhs"] = describeNode(v.Right)
		base["expr_type"] = typeString(v.ExprType())
	case *frontend.LogicalOp:
		base["kind"] = "LogicalOp"
		base["op"] = v.Op
		base["lhs"] = describeNode(v.Left)
		base["rhs"] = describeNode(v.Right)
		base["expr_type"] = typeString(v.ExprType())
	case *frontend.UnaryOp:
		base["kind"] = "UnaryOp"
		base["op"] = v.Op
		base["operand"] = describeNode(v.X)
		base["postfix"] = v.Postfix
		base["expr_type"] = typeString(v.ExprType())
	case *frontend.AddrOf:
		base["kind"] = "AddrOf"
		base["operand"] = describeNode(v.X)
		base["expr_type"] = typeString(v.ExprType())
	case *frontend.Deref:
		base["kind"] = "Deref"
		base["operand"] = describeNode(v.X)
		base["expr_type"] = typeString(v.ExprType())
	case *frontend.Index:
		base["kind"] = "Index"
		base["base"] = describeNode(v.Base)
		base["index"] = describeNode(v.Idx)
		base["expr_type"] = typeString(v.ExprType())
	case *frontend.Field:
		base["kind"] = "Field"
		base["base"] = describeNode(v.Base)
		base["name"] = v.Name
		base["arrow"] = v.Arrow
		base["expr_type"] = typeString(v.ExprType())
	case *frontend.Assign:
		base["kind"] = "Assign"
		base["target"] = describeNode(v.Target)
		base["value"] = describeNode(v.Value)
		base["expr_type"] = typeString(v.ExprType())
	case *frontend.Call:
		base["kind"] = "Call"
		base["callee"] = v.Callee
		args := make([]map[string]any, len(v.Args))
		for i, a := range v.Args {
			args[i] = describeNode(a)
		}
		base["args"] = args
		base["expr_type"] = typeString(v.ExprType())
	case *frontend.Cast:
		base["kind"] = "Cast"
		base["operand"] = describeNode(v.X)
		base["expr_type"] = typeString(v.ExprType())
	case frontend.NamedType:
		base["kind"] = "NamedType"
		base["name"] = v.Name
	case frontend.PointerTypeExpr:
		base["kind"] = "PointerTypeExpr"
		base["target"] = describeNode(v.Target)
	case frontend.ArrayTypeExpr:
		base["kind"] = "ArrayTypeExpr"
		base["element"] = describeNode(v.Element)
		base["length"] = v.Length
	case frontend.StructTypeExpr:
		base["kind"] = "StructTypeExpr"
		base["tag"] = v.Tag
	default:
		panic(fmt.Sprintf("driver: no trace describer registered for AST node %T", n))
	}
	return base
}

func typeString(t any) string {
	if t == nil {
		return ""
	}
	if s, ok := t.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", t)
}

// semRecords builds the .sem artifact: one {symbol_name,type,scope_level}
// per file-scope variable (under "symbols") and per function (under
// "functions"). No typedef table is included.
func semRecords(c *frontend.Checker) map[string]any {
	syms := make([]map[string]any, 0, len(c.Globals))
	for _, s := range c.Globals {
		syms = append(syms, map[string]any{
			"symbol_name": s.Name,
			"type":        typeString(s.Type),
			"scope_level": 0,
		})
	}
	funcs := make([]map[string]any, 0, len(c.Functions))
	for name, fn := range c.Functions {
		funcs = append(funcs, map[string]any{
			"symbol_name": name,
			"type":        typeString(fn),
			"scope_level": 0,
		})
	}
	return map[string]any{"symbols": syms, "functions": funcs}
}

// irRecords builds the .ir artifact: a per-function block/instruction
// listing, plus the global table and string pool, in SSA form.
func irRecords(mod *ir.Module) map[string]any {
	globals := make([]map[string]any, len(mod.Globals))
	for i, g := range mod.Globals {
		globals[i] = map[string]any{
			"name":      g.Name,
			"type":      typeString(g.Type),
			"read_only": g.ReadOnly,
		}
	}
	strs := make([]map[string]any, 0)
	for _, e := range mod.Strings.Entries() {
		strs = append(strs, map[string]any{"label": e.Label, "value": e.Value})
	}
	funcs := make([]map[string]any, len(mod.Functions))
	for i, fn := range mod.Functions {
		blocks := make([]map[string]any, len(fn.Blocks))
		for j, blk := range fn.Blocks {
			insts := make([]string, len(blk.Insts))
			for k, inst := range blk.Insts {
				insts[k] = fmt.Sprintf("%T %+v", inst, inst)
			}
			term := ""
			if blk.Term != nil {
				term = fmt.Sprintf("%T %+v", blk.Term, blk.Term)
			}
			blocks[j] = map[string]any{
				"label": blk.Label,
				"insts": insts,
				"term":  term,
			}
		}
		funcs[i] = map[string]any{
			"name":        fn.Name,
			"return_type": typeString(fn.ReturnType),
			"is_leaf":     fn.IsLeaf,
			"blocks":      blocks,
		}
	}
	return map[string]any{"functions": funcs, "globals": globals, "strings": strs}
}
