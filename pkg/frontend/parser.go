// Recursive descent parser for the reduced C subset. Design: predictive
// parsing, zero backtracking, errors collected rather than thrown so a
// single malformed top-level declaration does not abort the whole
// translation unit (same recovery posture as the rest of the pipeline,
// spec.md §7 "local recovery"). Shape follows the teacher's original
// parser.go: a Parser struct wrapping one token of lookahead plus
// match/check/consume/advance/error helpers.
package frontend

import (
	"fmt"

	"github.com/rcc-project/rcc/pkg/source"
)

type Parser struct {
	file    string
	lexer   *Lexer
	current Token
	errors  []string
}

func NewParser(file, src string) *Parser {
	lexer := NewLexer(file, src)
	return &Parser{file: file, lexer: lexer, current: lexer.Next()}
}

func (p *Parser) advance() Token {
	tok := p.current
	p.current = p.lexer.Next()
	return tok
}

func (p *Parser) check(t TokenType) bool { return p.current.Type == t }

func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(t TokenType, msg string) (Token, bool) {
	if p.check(t) {
		return p.advance(), true
	}
	p.error(msg)
	return Token{}, false
}

func (p *Parser) error(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("%s: %s (got %q)", p.current.Span.Start, msg, p.current.Lexeme))
}

// Errors returns accumulated parse errors, if any.
func (p *Parser) Errors() []string { return p.errors }

func isTypeStart(t TokenType) bool {
	switch t {
	case TokInt, TokChar, TokShort, TokLong, TokVoid, TokUnsigned, TokSigned, TokStruct:
		return true
	}
	return false
}

// Parse parses a full translation unit: a sequence of function
// definitions, global variable declarations, struct declarations, and
// typedefs.
func (p *Parser) Parse() (*Program, error) {
	start := p.current.Span.Start
	prog := &Program{}
	for !p.check(TokEOF) {
		d := p.topLevelDecl()
		if d != nil {
			prog.Decls = append(prog.Decls, d)
		} else if !p.check(TokEOF) {
			// recover by skipping to the next ';' or '}' so one bad
			// declaration does not desync the whole file.
			for !p.check(TokEOF) && !p.check(TokSemi) && !p.check(TokRBrace) {
				p.advance()
			}
			p.match(TokSemi)
		}
	}
	prog.Sp = source.Span{Start: start, End: p.current.Span.End}
	if len(p.errors) > 0 {
		return prog, fmt.Errorf("%d parse error(s)", len(p.errors))
	}
	return prog, nil
}

func (p *Parser) topLevelDecl() Decl {
	if p.match(TokTypedef) {
		return p.typedefDecl()
	}
	if p.check(TokStruct) && p.isStructDecl() {
		return p.structDecl()
	}

	start := p.current.Span.Start
	ty := p.typeExpr()
	if ty == nil {
		return nil
	}
	for p.match(TokStar) {
		ty = PointerTypeExpr{Target: ty, Sp: ty.Span()}
	}
	nameTok, ok := p.consume(TokIdent, "expected identifier")
	if !ok {
		return nil
	}
	name := nameTok.Lexeme

	if p.check(TokLParen) {
		return p.funcDecl(name, ty, start)
	}

	// global variable, possibly an array
	for p.match(TokLBracket) {
		lenTok, _ := p.consume(TokIntLit, "expected array length")
		p.consume(TokRBracket, "expected ']'")
		ty = ArrayTypeExpr{Element: ty, Length: int(lenTok.IntValue), Sp: ty.Span()}
	}
	var init Expr
	if p.match(TokAssign) {
		init = p.expression()
	}
	end := p.current.Span.End
	p.consume(TokSemi, "expected ';'")
	return &VarDecl{Name: name, Type: ty, Init: init, Sp: source.Span{Start: start, End: end}}
}

// isStructDecl peeks past "struct Name" to see whether a "{" follows
// (a struct type definition) rather than the struct being used as a type
// reference in a variable/function declaration.
func (p *Parser) isStructDecl() bool {
	// The current token is 'struct'; scan a copy of the lexer so nothing
	// is consumed. A ';' after the name is a forward declaration, which
	// structDecl also handles.
	look := *p.lexer
	if look.Next().Type != TokIdent {
		return false
	}
	next := look.Next().Type
	return next == TokLBrace || next == TokSemi
}

func (p *Parser) typedefDecl() Decl {
	start := p.current.Span.Start
	ty := p.typeExpr()
	if ty == nil {
		return nil
	}
	for p.match(TokStar) {
		ty = PointerTypeExpr{Target: ty, Sp: ty.Span()}
	}
	nameTok, ok := p.consume(TokIdent, "expected typedef name")
	if !ok {
		return nil
	}
	p.consume(TokSemi, "expected ';'")
	return &TypedefDecl{Name: nameTok.Lexeme, Type: ty, Sp: source.Span{Start: start, End: p.current.Span.End}}
}

func (p *Parser) structDecl() Decl {
	start := p.current.Span.Start
	p.advance() // 'struct'
	nameTok, ok := p.consume(TokIdent, "expected struct name")
	if !ok {
		return nil
	}
	if !p.match(TokLBrace) {
		// forward reference only ("struct Foo;"); treat as an empty
		// placeholder declaration, completed later when the definition
		// with fields is seen.
		p.consume(TokSemi, "expected ';'")
		return &StructDecl{Name: nameTok.Lexeme, Sp: source.Span{Start: start, End: p.current.Span.End}}
	}
	var fields []FieldDecl
	for !p.check(TokRBrace) && !p.check(TokEOF) {
		fty := p.typeExpr()
		if fty == nil {
			break
		}
		for p.match(TokStar) {
			fty = PointerTypeExpr{Target: fty, Sp: fty.Span()}
		}
		fnameTok, ok := p.consume(TokIdent, "expected field name")
		if !ok {
			break
		}
		for p.match(TokLBracket) {
			lenTok, _ := p.consume(TokIntLit, "expected array length")
			p.consume(TokRBracket, "expected ']'")
			fty = ArrayTypeExpr{Element: fty, Length: int(lenTok.IntValue), Sp: fty.Span()}
		}
		fields = append(fields, FieldDecl{Name: fnameTok.Lexeme, Type: fty})
		p.consume(TokSemi, "expected ';'")
	}
	p.consume(TokRBrace, "expected '}'")
	p.consume(TokSemi, "expected ';'")
	return &StructDecl{Name: nameTok.Lexeme, Fields: fields, Sp: source.Span{Start: start, End: p.current.Span.End}}
}

func (p *Parser) typeExpr() TypeExpr {
	start := p.current.Span.Start
	switch {
	case p.match(TokVoid):
		return NamedType{Name: "void", Sp: start2(start, p)}
	case p.match(TokChar):
		return p.namedIntType("char", start)
	case p.match(TokShort):
		return p.namedIntType("short", start)
	case p.match(TokLong):
		return p.namedIntType("long", start)
	case p.match(TokUnsigned):
		p.match(TokInt) // "unsigned int" / "unsigned"
		return NamedType{Name: "unsigned int", Sp: start2(start, p)}
	case p.match(TokSigned):
		p.match(TokInt)
		return NamedType{Name: "int", Sp: start2(start, p)}
	case p.match(TokInt):
		return NamedType{Name: "int", Sp: start2(start, p)}
	case p.match(TokStruct):
		tagTok, ok := p.consume(TokIdent, "expected struct tag")
		if !ok {
			return nil
		}
		return StructTypeExpr{Tag: tagTok.Lexeme, Sp: start2(start, p)}
	case p.check(TokIdent):
		// typedef name used as a type
		tok := p.advance()
		return NamedType{Name: tok.Lexeme, Sp: start2(start, p)}
	}
	p.error("expected type")
	return nil
}

func (p *Parser) namedIntType(base string, start source.Position) TypeExpr {
	return NamedType{Name: base, Sp: start2(start, p)}
}

func start2(start source.Position, p *Parser) source.Span {
	return source.Span{Start: start, End: p.current.Span.Start}
}

func (p *Parser) funcDecl(name string, retType TypeExpr, start source.Position) Decl {
	p.advance() // '('
	var params []*ParamDecl
	if !p.check(TokRParen) {
		for {
			pstart := p.current.Span.Start
			pty := p.typeExpr()
			if pty == nil {
				break
			}
			for p.match(TokStar) {
				pty = PointerTypeExpr{Target: pty, Sp: pty.Span()}
			}
			var pname string
			if p.check(TokIdent) {
				pname = p.advance().Lexeme
			}
			params = append(params, &ParamDecl{Name: pname, Type: pty, Sp: source.Span{Start: pstart, End: p.current.Span.Start}})
			if !p.match(TokComma) {
				break
			}
		}
	}
	p.consume(TokRParen, "expected ')'")

	if p.match(TokSemi) {
		// prototype only, no body
		return &FuncDecl{Name: name, ReturnType: retType, Params: params, Sp: source.Span{Start: start, End: p.current.Span.End}}
	}
	body := p.block()
	return &FuncDecl{Name: name, ReturnType: retType, Params: params, Body: body, Sp: source.Span{Start: start, End: p.current.Span.End}}
}

func (p *Parser) block() *Block {
	start := p.current.Span.Start
	p.consume(TokLBrace, "expected '{'")
	var stmts []Stmt
	for !p.check(TokRBrace) && !p.check(TokEOF) {
		s := p.statement()
		if s != nil {
			stmts = append(stmts, s)
		}
	}
	end := p.current.Span.End
	p.consume(TokRBrace, "expected '}'")
	return &Block{Stmts: stmts, Sp: source.Span{Start: start, End: end}}
}

func (p *Parser) statement() Stmt {
	start := p.current.Span.Start
	switch {
	case p.check(TokLBrace):
		return p.block()
	case p.match(TokIf):
		return p.ifStmt(start)
	case p.match(TokWhile):
		return p.whileStmt(start)
	case p.match(TokFor):
		return p.forStmt(start)
	case p.match(TokReturn):
		var val Expr
		if !p.check(TokSemi) {
			val = p.expression()
		}
		p.consume(TokSemi, "expected ';'")
		return &Return{Value: val, Sp: source.Span{Start: start, End: p.current.Span.End}}
	case p.match(TokBreak):
		p.consume(TokSemi, "expected ';'")
		return &Break{Sp: source.Span{Start: start, End: p.current.Span.End}}
	case p.match(TokContinue):
		p.consume(TokSemi, "expected ';'")
		return &Continue{Sp: source.Span{Start: start, End: p.current.Span.End}}
	case p.match(TokSwitch):
		return p.switchStmt(start)
	case isTypeStart(p.current.Type):
		return p.declStmt(start)
	default:
		x := p.expression()
		p.consume(TokSemi, "expected ';'")
		return &ExprStmt{X: x, Sp: source.Span{Start: start, End: p.current.Span.End}}
	}
}

func (p *Parser) declStmt(start source.Position) Stmt {
	ty := p.typeExpr()
	for p.match(TokStar) {
		ty = PointerTypeExpr{Target: ty, Sp: ty.Span()}
	}
	nameTok, ok := p.consume(TokIdent, "expected identifier")
	if !ok {
		return nil
	}
	for p.match(TokLBracket) {
		lenTok, _ := p.consume(TokIntLit, "expected array length")
		p.consume(TokRBracket, "expected ']'")
		ty = ArrayTypeExpr{Element: ty, Length: int(lenTok.IntValue), Sp: ty.Span()}
	}
	var init Expr
	if p.match(TokAssign) {
		init = p.expression()
	}
	end := p.current.Span.End
	p.consume(TokSemi, "expected ';'")
	return &DeclStmt{Decl: &VarDecl{Name: nameTok.Lexeme, Type: ty, Init: init, Sp: source.Span{Start: start, End: end}}, Sp: source.Span{Start: start, End: end}}
}

func (p *Parser) ifStmt(start source.Position) Stmt {
	p.consume(TokLParen, "expected '('")
	cond := p.expression()
	p.consume(TokRParen, "expected ')'")
	then := p.statement()
	var els Stmt
	if p.match(TokElse) {
		els = p.statement()
	}
	return &If{Cond: cond, Then: then, Else: els, Sp: source.Span{Start: start, End: p.current.Span.End}}
}

func (p *Parser) whileStmt(start source.Position) Stmt {
	p.consume(TokLParen, "expected '('")
	cond := p.expression()
	p.consume(TokRParen, "expected ')'")
	body := p.statement()
	return &While{Cond: cond, Body: body, Sp: source.Span{Start: start, End: p.current.Span.End}}
}

func (p *Parser) forStmt(start source.Position) Stmt {
	p.consume(TokLParen, "expected '('")
	var init Stmt
	if !p.check(TokSemi) {
		if isTypeStart(p.current.Type) {
			init = p.declStmt(p.current.Span.Start)
		} else {
			x := p.expression()
			init = &ExprStmt{X: x, Sp: x.Span()}
			p.consume(TokSemi, "expected ';'")
		}
	} else {
		p.advance()
	}
	var cond Expr
	if !p.check(TokSemi) {
		cond = p.expression()
	}
	p.consume(TokSemi, "expected ';'")
	var post Expr
	if !p.check(TokRParen) {
		post = p.expression()
	}
	p.consume(TokRParen, "expected ')'")
	body := p.statement()
	return &For{Init: init, Cond: cond, Post: post, Body: body, Sp: source.Span{Start: start, End: p.current.Span.End}}
}

func (p *Parser) switchStmt(start source.Position) Stmt {
	p.consume(TokLParen, "expected '('")
	tag := p.expression()
	p.consume(TokRParen, "expected ')'")
	p.consume(TokLBrace, "expected '{'")
	var cases []SwitchCase
	for !p.check(TokRBrace) && !p.check(TokEOF) {
		var values []int64
		isDefault := false
		if p.match(TokCase) {
			lit, _ := p.consume(TokIntLit, "expected case constant")
			values = append(values, lit.IntValue)
		} else if p.match(TokDefault) {
			isDefault = true
		} else {
			break
		}
		p.consume(TokColon, "expected ':'")
		var body []Stmt
		for !p.check(TokCase) && !p.check(TokDefault) && !p.check(TokRBrace) && !p.check(TokEOF) {
			body = append(body, p.statement())
		}
		_ = isDefault
		cases = append(cases, SwitchCase{Values: values, Body: body})
	}
	p.consume(TokRBrace, "expected '}'")
	return &Switch{Tag: tag, Cases: cases, Sp: source.Span{Start: start, End: p.current.Span.End}}
}
