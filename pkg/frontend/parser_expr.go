package frontend

import "github.com/rcc-project/rcc/pkg/source"

// Expression grammar, loosest to tightest:
//
//	assignment  := logicalOr ('=' assignment)?
//	logicalOr   := logicalAnd ('||' logicalAnd)*
//	logicalAnd  := bitOr ('&&' bitOr)*
//	bitOr       := bitXor ('|' bitXor)*
//	bitXor      := bitAnd ('^' bitAnd)*
//	bitAnd      := equality ('&' equality)*
//	equality    := relational (('==' | '!=') relational)*
//	relational  := shift (('<' | '<=' | '>' | '>=') shift)*
//	shift       := additive (('<<' | '>>') additive)*
//	additive    := multiplicative (('+' | '-') multiplicative)*
//	multiplicative := unary (('*' | '/' | '%') unary)*
//	unary       := ('-' | '!' | '~' | '*' | '&' | '++' | '--') unary | postfix
//	postfix     := primary ('[' expr ']' | '.' ident | '->' ident | '(' args ')' | '++' | '--')*
//	primary     := ident | intlit | stringlit | '(' expr ')' | '(' type ')' unary
func (p *Parser) expression() Expr { return p.assignment() }

func (p *Parser) assignment() Expr {
	left := p.logicalOr()
	if p.match(TokAssign) {
		value := p.assignment()
		return &Assign{Target: left, Value: value, exprBase: exprBase{Sp: spanOf(left, value)}}
	}
	return left
}

func spanOf(a, b Expr) source.Span {
	return source.Span{Start: a.Span().Start, End: b.Span().End}
}

func (p *Parser) binaryLevel(next func() Expr, ops map[TokenType]string) Expr {
	left := next()
	for {
		op, ok := ops[p.current.Type]
		if !ok {
			break
		}
		p.advance()
		right := next()
		left = &BinaryOp{Op: op, Left: left, Right: right, exprBase: exprBase{Sp: spanOf(left, right)}}
	}
	return left
}

func (p *Parser) logicalOr() Expr {
	left := p.logicalAnd()
	for p.check(TokOrOr) {
		p.advance()
		right := p.logicalAnd()
		left = &LogicalOp{Op: "||", Left: left, Right: right, exprBase: exprBase{Sp: spanOf(left, right)}}
	}
	return left
}

func (p *Parser) logicalAnd() Expr {
	left := p.bitOr()
	for p.check(TokAndAnd) {
		p.advance()
		right := p.bitOr()
		left = &LogicalOp{Op: "&&", Left: left, Right: right, exprBase: exprBase{Sp: spanOf(left, right)}}
	}
	return left
}

func (p *Parser) bitOr() Expr {
	return p.binaryLevel(p.bitXor, map[TokenType]string{TokPipe: "|"})
}

func (p *Parser) bitXor() Expr {
	return p.binaryLevel(p.bitAnd, map[TokenType]string{TokCaret: "^"})
}

func (p *Parser) bitAnd() Expr {
	return p.binaryLevel(p.equality, map[TokenType]string{TokAmp: "&"})
}

func (p *Parser) equality() Expr {
	return p.binaryLevel(p.relational, map[TokenType]string{TokEqEq: "==", TokNe: "!="})
}

func (p *Parser) relational() Expr {
	return p.binaryLevel(p.shift, map[TokenType]string{
		TokLt: "<", TokLe: "<=", TokGt: ">", TokGe: ">=",
	})
}

func (p *Parser) shift() Expr {
	return p.binaryLevel(p.additive, map[TokenType]string{TokShl: "<<", TokShr: ">>"})
}

func (p *Parser) additive() Expr {
	return p.binaryLevel(p.multiplicative, map[TokenType]string{TokPlus: "+", TokMinus: "-"})
}

func (p *Parser) multiplicative() Expr {
	return p.binaryLevel(p.unary, map[TokenType]string{TokStar: "*", TokSlash: "/", TokPercent: "%"})
}

func (p *Parser) unary() Expr {
	start := p.current.Span.Start
	switch {
	case p.match(TokMinus):
		x := p.unary()
		return &UnaryOp{Op: "-", X: x, exprBase: exprBase{Sp: source.Span{Start: start, End: x.Span().End}}}
	case p.match(TokBang):
		x := p.unary()
		return &UnaryOp{Op: "!", X: x, exprBase: exprBase{Sp: source.Span{Start: start, End: x.Span().End}}}
	case p.match(TokTilde):
		x := p.unary()
		return &UnaryOp{Op: "~", X: x, exprBase: exprBase{Sp: source.Span{Start: start, End: x.Span().End}}}
	case p.match(TokPlusPlus):
		x := p.unary()
		return &UnaryOp{Op: "++", X: x, exprBase: exprBase{Sp: source.Span{Start: start, End: x.Span().End}}}
	case p.match(TokMinusMinus):
		x := p.unary()
		return &UnaryOp{Op: "--", X: x, exprBase: exprBase{Sp: source.Span{Start: start, End: x.Span().End}}}
	case p.match(TokStar):
		x := p.unary()
		return &Deref{X: x, exprBase: exprBase{Sp: source.Span{Start: start, End: x.Span().End}}}
	case p.match(TokAmp):
		x := p.unary()
		return &AddrOf{X: x, exprBase: exprBase{Sp: source.Span{Start: start, End: x.Span().End}}}
	case p.check(TokLParen) && p.isCastAhead():
		p.advance()
		ty := p.typeExpr()
		for p.match(TokStar) {
			ty = PointerTypeExpr{Target: ty, Sp: ty.Span()}
		}
		p.consume(TokRParen, "expected ')'")
		x := p.unary()
		return &Cast{Type: ty, X: x, exprBase: exprBase{Sp: source.Span{Start: start, End: x.Span().End}}}
	}
	return p.postfix()
}

// isCastAhead distinguishes "(int)x" (a cast) from "(x)" (a parenthesized
// expression) by checking whether a type keyword follows '(' — this
// reduced grammar has no user-defined-type-as-cast-target ambiguity to
// resolve since typedef names used as casts are rare enough to not be
// required here.
func (p *Parser) isCastAhead() bool {
	// current is '('; we do not have backtracking lookahead beyond one
	// token, so we special-case the keyword set that can only start a
	// type, never an expression.
	switch p.peekAfterParen() {
	case TokInt, TokChar, TokShort, TokLong, TokVoid, TokUnsigned, TokSigned, TokStruct:
		return true
	}
	return false
}

// peekAfterParen reports the token type following the current '(' by
// cloning the lexer's scan position; the lexer holds no mutable state
// beyond its cursor so this is a cheap value copy, not a real backtrack.
func (p *Parser) peekAfterParen() TokenType {
	saved := *p.lexer
	tmp := Token{}
	// current is '(' itself (not yet consumed); scan one token ahead.
	tmp = saved.Next()
	return tmp.Type
}

func (p *Parser) postfix() Expr {
	x := p.primary()
	for {
		switch {
		case p.match(TokLBracket):
			idx := p.expression()
			end := p.current.Span.End
			p.consume(TokRBracket, "expected ']'")
			x = &Index{Base: x, Idx: idx, exprBase: exprBase{Sp: source.Span{Start: x.Span().Start, End: end}}}
		case p.match(TokDot):
			nameTok, _ := p.consume(TokIdent, "expected field name")
			x = &Field{Base: x, Name: nameTok.Lexeme, Arrow: false, exprBase: exprBase{Sp: source.Span{Start: x.Span().Start, End: nameTok.Span.End}}}
		case p.match(TokArrow):
			nameTok, _ := p.consume(TokIdent, "expected field name")
			x = &Field{Base: x, Name: nameTok.Lexeme, Arrow: true, exprBase: exprBase{Sp: source.Span{Start: x.Span().Start, End: nameTok.Span.End}}}
		case p.match(TokPlusPlus):
			x = &UnaryOp{Op: "++", X: x, Postfix: true, exprBase: exprBase{Sp: x.Span()}}
		case p.match(TokMinusMinus):
			x = &UnaryOp{Op: "--", X: x, Postfix: true, exprBase: exprBase{Sp: x.Span()}}
		default:
			return x
		}
	}
}

func (p *Parser) primary() Expr {
	start := p.current.Span.Start
	switch {
	case p.check(TokIntLit):
		tok := p.advance()
		return &IntLit{Value: tok.IntValue, exprBase: exprBase{Sp: tok.Span}}
	case p.check(TokStringLit):
		tok := p.advance()
		return &StringLit{Value: tok.StringValue, exprBase: exprBase{Sp: tok.Span}}
	case p.check(TokIdent):
		tok := p.advance()
		if p.check(TokLParen) {
			p.advance()
			var args []Expr
			if !p.check(TokRParen) {
				args = append(args, p.expression())
				for p.match(TokComma) {
					args = append(args, p.expression())
				}
			}
			end := p.current.Span.End
			p.consume(TokRParen, "expected ')'")
			return &Call{Callee: tok.Lexeme, Args: args, exprBase: exprBase{Sp: source.Span{Start: start, End: end}}}
		}
		return &Ident{Name: tok.Lexeme, exprBase: exprBase{Sp: tok.Span}}
	case p.match(TokLParen):
		x := p.expression()
		p.consume(TokRParen, "expected ')'")
		return x
	}
	p.error("expected expression")
	// synthesize a placeholder so the caller can keep walking; the
	// recorded error is what surfaces to the user.
	return &IntLit{Value: 0, exprBase: exprBase{Sp: source.Span{Start: start, End: start}}}
}
