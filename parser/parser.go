// Package parser builds the AST with recursive descent over a buffered
// token slice. The expression grammar is an explicit precedence ladder
// from assignment down to primary; assignment is right-associative and
// every other level is left-associative.
package parser

import (
	"strconv"

	"yc/ast"
	"yc/errs"
	"yc/token"
)

type Parser struct {
	tokens []token.Token
	idx    int
}

func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse consumes the whole token stream and returns the program.
func (p *Parser) Parse() (*ast.Program, error) {
	program := &ast.Program{}
	for !p.atEnd() {
		decl, err := p.statement()
		if err != nil {
			return nil, err
		}
		program.Decls = append(program.Decls, decl)
	}
	return program, nil
}

// ParseStatements consumes the stream as a statement list instead of a
// program; the REPL feeds single inputs through here.
func (p *Parser) ParseStatements() ([]ast.Expr, error) {
	exprs, err := p.exprList()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, p.errorf("Statement")
	}
	return exprs, nil
}

func (p *Parser) statement() (ast.Decl, error) {
	switch p.current().Kind {
	case token.FUNCTION:
		return p.funcDecl()
	case token.VAR:
		vd, err := p.varDef()
		if err != nil {
			return nil, err
		}
		vd.IsGlobal = true
		return vd, nil
	case token.CONST:
		cd, err := p.constDef()
		if err != nil {
			return nil, err
		}
		cd.IsGlobal = true
		return cd, nil
	case token.CLASS:
		return p.classDef()
	case token.UNION:
		return p.unionDef()
	default:
		return nil, p.errorf("Statement")
	}
}

func (p *Parser) funcDecl() (*ast.FuncDecl, error) {
	pos := p.current().Pos
	p.advance() // function

	name, err := p.consume(token.IDENT, "FuncDecl")
	if err != nil {
		return nil, err
	}
	generic, err := p.generic()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LPAREN, "FuncDecl"); err != nil {
		return nil, err
	}
	params, err := p.params()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "FuncDecl"); err != nil {
		return nil, err
	}

	ret := &ast.TypeDecl{Base: ast.TVoid}
	if p.match(token.COLON) {
		if ret, err = p.typeName(); err != nil {
			return nil, err
		}
	}

	body, err := p.block("FuncDecl")
	if err != nil {
		return nil, err
	}

	return &ast.FuncDecl{
		Name:    ast.NewName(name.Lexeme),
		Generic: generic,
		Params:  params,
		Ret:     ret,
		Body:    body,
		Pos:     pos,
	}, nil
}

func (p *Parser) classDef() (*ast.ClassDecl, error) {
	pos := p.current().Pos
	p.advance() // class

	name, err := p.consume(token.IDENT, "ClassDef")
	if err != nil {
		return nil, err
	}
	generic, err := p.generic()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LBRACE, "ClassDef"); err != nil {
		return nil, err
	}

	cd := &ast.ClassDecl{Name: ast.NewName(name.Lexeme), Generic: generic, Pos: pos}
	for {
		var member ast.Decl
		switch p.current().Kind {
		case token.VAR:
			member, err = p.varDef()
		case token.CONST:
			member, err = p.constDef()
		case token.FUNCTION:
			member, err = p.funcDecl()
		default:
			_, err := p.consume(token.RBRACE, "ClassDef")
			return cd, err
		}
		if err != nil {
			return nil, err
		}
		cd.Members = append(cd.Members, member)
	}
}

func (p *Parser) unionDef() (*ast.UnionDecl, error) {
	pos := p.current().Pos
	p.advance() // union

	name, err := p.consume(token.IDENT, "UnionDef")
	if err != nil {
		return nil, err
	}
	generic, err := p.generic()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LBRACE, "UnionDef"); err != nil {
		return nil, err
	}

	ud := &ast.UnionDecl{Name: ast.NewName(name.Lexeme), Generic: generic, Pos: pos}
	for p.check(token.CLASS) {
		cl, err := p.classDef()
		if err != nil {
			return nil, err
		}
		ud.Variants = append(ud.Variants, cl)
	}
	if _, err := p.consume(token.RBRACE, "UnionDef"); err != nil {
		return nil, err
	}
	return ud, nil
}

func (p *Parser) varDef() (*ast.VarDecl, error) {
	pos := p.current().Pos
	p.advance() // var

	name, err := p.consume(token.IDENT, "VarDef")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.COLON, "VarDef"); err != nil {
		return nil, err
	}
	typ, err := p.typeName()
	if err != nil {
		return nil, err
	}

	var init *ast.EvalExpr
	if p.match(token.ASSIGN) {
		if init, err = p.evalExpr(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.SEMICOLON, "VarDef"); err != nil {
		return nil, err
	}

	return &ast.VarDecl{Name: ast.NewName(name.Lexeme), Type: typ, Init: init, Pos: pos}, nil
}

func (p *Parser) constDef() (*ast.VarDecl, error) {
	pos := p.current().Pos
	p.advance() // const

	name, err := p.consume(token.IDENT, "ConstDef")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.ASSIGN, "ConstDef"); err != nil {
		return nil, err
	}
	init, err := p.evalExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, "ConstDef"); err != nil {
		return nil, err
	}

	return &ast.VarDecl{Name: ast.NewName(name.Lexeme), Init: init, IsConst: true, Pos: pos}, nil
}

func (p *Parser) generic() (string, error) {
	if !p.match(token.LT) {
		return "", nil
	}
	name, err := p.consume(token.IDENT, "Generic")
	if err != nil {
		return "", err
	}
	if _, err := p.consume(token.GT, "Generic"); err != nil {
		return "", err
	}
	return name.Lexeme, nil
}

func (p *Parser) typeName() (*ast.TypeDecl, error) {
	td := &ast.TypeDecl{}

	tok := p.current()
	switch {
	case tok.Kind == token.VOID:
		td.Base = ast.TVoid
	case tok.Kind == token.BOOL:
		td.Base = ast.TBool
	case tok.Kind == token.INT32:
		td.Base = ast.TInt32
	case tok.Kind == token.UINT8:
		td.Base = ast.TUint8
	case tok.Kind == token.CHART:
		td.Base = ast.TChar
	case tok.Kind == token.FP32:
		td.Base = ast.TFp32
	case tok.Kind == token.FP64:
		td.Base = ast.TFp64
	case tok.Kind == token.STR:
		td.Base = ast.TStr
	case tok.Kind == token.IDENT:
		td.Base = ast.TClass
		name, err := p.namePath()
		if err != nil {
			return nil, err
		}
		td.Class = name
		// namePath already advanced past the name
		return p.typeSuffix(td)
	default:
		return nil, p.errorf("Type")
	}
	p.advance()

	return p.typeSuffix(td)
}

// typeSuffix parses the optional generic argument and array length
// after a type's base name.
func (p *Parser) typeSuffix(td *ast.TypeDecl) (*ast.TypeDecl, error) {
	if p.check(token.LT) {
		gen, err := p.genericArg()
		if err != nil {
			return nil, err
		}
		td.Gen = gen
	}

	if p.match(token.LBRACKET) {
		length, err := p.consume(token.INT, "Type")
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(length.Lexeme)
		if err != nil {
			return nil, p.errorf("Type")
		}
		td.ArrayLen = n
		if _, err := p.consume(token.RBRACKET, "Type"); err != nil {
			return nil, err
		}
	}

	return td, nil
}

// genericArg parses `<` type `>`.
func (p *Parser) genericArg() (*ast.TypeDecl, error) {
	if _, err := p.consume(token.LT, "Generic"); err != nil {
		return nil, err
	}
	td, err := p.typeName()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.GT, "Generic"); err != nil {
		return nil, err
	}
	return td, nil
}

func (p *Parser) params() ([]ast.Param, error) {
	params := []ast.Param{}
	if !p.check(token.IDENT) {
		return params, nil
	}

	for {
		name, err := p.consume(token.IDENT, "Params")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.COLON, "Params"); err != nil {
			return nil, err
		}
		typ, err := p.typeName()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: name.Lexeme, Type: typ})
		if !p.match(token.COMMA) {
			break
		}
	}
	return params, nil
}

// block parses `{` exprList `}`.
func (p *Parser) block(prompt string) ([]ast.Expr, error) {
	if _, err := p.consume(token.LBRACE, prompt); err != nil {
		return nil, err
	}
	exprs, err := p.exprList()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RBRACE, prompt); err != nil {
		return nil, err
	}
	return exprs, nil
}

func (p *Parser) exprList() ([]ast.Expr, error) {
	exprs := []ast.Expr{}
	for {
		switch p.current().Kind {
		case token.VAR, token.CONST, token.IF, token.WHILE, token.FOR,
			token.MATCH, token.RETURN, token.BREAK, token.CONTINUE,
			token.SEMICOLON, token.INT, token.FLOAT, token.CHAR,
			token.STRING, token.IDENT, token.LPAREN:
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
		default:
			return exprs, nil
		}
	}
}

func (p *Parser) expr() (ast.Expr, error) {
	switch p.current().Kind {
	case token.VAR:
		return p.varDef()
	case token.CONST:
		return p.constDef()
	case token.IF:
		return p.ifExpr()
	case token.WHILE:
		return p.whileExpr()
	case token.FOR:
		return p.forExpr()
	case token.MATCH:
		return p.matchExpr()
	case token.RETURN:
		return p.retExpr()
	case token.BREAK:
		pos := p.current().Pos
		p.advance()
		if _, err := p.consume(token.SEMICOLON, "Break"); err != nil {
			return nil, err
		}
		return &ast.BreakExpr{Pos: pos}, nil
	case token.CONTINUE:
		pos := p.current().Pos
		p.advance()
		if _, err := p.consume(token.SEMICOLON, "Continue"); err != nil {
			return nil, err
		}
		return &ast.ContinueExpr{Pos: pos}, nil
	case token.SEMICOLON:
		pos := p.current().Pos
		p.advance()
		return &ast.EmptyExpr{Pos: pos}, nil
	default:
		ee, err := p.evalExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.SEMICOLON, "Expr"); err != nil {
			return nil, err
		}
		return ee, nil
	}
}

func (p *Parser) ifExpr() (*ast.IfExpr, error) {
	pos := p.current().Pos
	p.advance() // if

	if _, err := p.consume(token.LPAREN, "If"); err != nil {
		return nil, err
	}
	cond, err := p.evalExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "If"); err != nil {
		return nil, err
	}
	then, err := p.block("If")
	if err != nil {
		return nil, err
	}

	ie := &ast.IfExpr{Cond: cond, Then: then, Pos: pos}
	if p.match(token.ELSE) {
		if ie.Else, err = p.block("If"); err != nil {
			return nil, err
		}
	}
	return ie, nil
}

func (p *Parser) whileExpr() (*ast.WhileExpr, error) {
	pos := p.current().Pos
	p.advance() // while

	if _, err := p.consume(token.LPAREN, "While"); err != nil {
		return nil, err
	}
	cond, err := p.evalExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "While"); err != nil {
		return nil, err
	}
	body, err := p.block("While")
	if err != nil {
		return nil, err
	}
	return &ast.WhileExpr{Cond: cond, Body: body, Pos: pos}, nil
}

func (p *Parser) forExpr() (*ast.ForExpr, error) {
	pos := p.current().Pos
	p.advance() // for

	if _, err := p.consume(token.LPAREN, "For"); err != nil {
		return nil, err
	}
	init, err := p.forInit()
	if err != nil {
		return nil, err
	}
	cond, err := p.evalExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, "For"); err != nil {
		return nil, err
	}
	step, err := p.evalExpr()
	if err != nil {
		return nil, err
	}
	p.match(token.SEMICOLON) // the step may carry its statement form
	if _, err := p.consume(token.RPAREN, "For"); err != nil {
		return nil, err
	}
	body, err := p.block("For")
	if err != nil {
		return nil, err
	}
	return &ast.ForExpr{Init: init, Cond: cond, Step: step, Body: body, Pos: pos}, nil
}

// forInit accepts either `var n : t = e;` or `e;` as the loop
// initializer; both run inside the loop's own frame.
func (p *Parser) forInit() (ast.Expr, error) {
	if p.check(token.VAR) {
		return p.varDef()
	}
	ee, err := p.evalExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, "For"); err != nil {
		return nil, err
	}
	return ee, nil
}

func (p *Parser) matchExpr() (*ast.MatchExpr, error) {
	pos := p.current().Pos
	p.advance() // match

	if _, err := p.consume(token.LPAREN, "Match"); err != nil {
		return nil, err
	}
	subject, err := p.evalExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "Match"); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LBRACE, "Match"); err != nil {
		return nil, err
	}

	me := &ast.MatchExpr{Subject: subject, Pos: pos}
	for p.check(token.IDENT) {
		linePos := p.current().Pos
		name, _ := p.consume(token.IDENT, "MatchLine")
		capture := ""
		if p.match(token.LPAREN) {
			cap, err := p.consume(token.IDENT, "MatchLine")
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.RPAREN, "MatchLine"); err != nil {
				return nil, err
			}
			capture = cap.Lexeme
		}
		body, err := p.block("MatchLine")
		if err != nil {
			return nil, err
		}
		me.Lines = append(me.Lines, ast.MatchLine{
			Name: name.Lexeme, Capture: capture, Body: body, Pos: linePos,
		})
	}
	if _, err := p.consume(token.RBRACE, "Match"); err != nil {
		return nil, err
	}
	return me, nil
}

func (p *Parser) retExpr() (*ast.RetExpr, error) {
	pos := p.current().Pos
	p.advance() // return

	if p.match(token.SEMICOLON) {
		return &ast.RetExpr{Pos: pos}, nil
	}
	value, err := p.evalExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, "Return"); err != nil {
		return nil, err
	}
	return &ast.RetExpr{Value: value, Pos: pos}, nil
}

// --------------- Expression ladder --------------- //

func (p *Parser) evalExpr() (*ast.EvalExpr, error) {
	return p.assign()
}

func (p *Parser) assign() (*ast.EvalExpr, error) {
	left, err := p.logicOr()
	if err != nil {
		return nil, err
	}

	if p.check(token.ASSIGN) {
		pos := p.current().Pos
		p.advance()
		right, err := p.assign()
		if err != nil {
			return nil, err
		}
		return &ast.EvalExpr{Op: token.ASSIGN, L: left, R: right, Pos: pos}, nil
	}
	return left, nil
}

// binaryLevel builds one left-associative level of the ladder.
func (p *Parser) binaryLevel(next func() (*ast.EvalExpr, error), ops ...token.Kind) (*ast.EvalExpr, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}

	for {
		matched := false
		for _, op := range ops {
			if p.check(op) {
				matched = true
				break
			}
		}
		if !matched {
			return expr, nil
		}

		op := p.current()
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &ast.EvalExpr{Op: op.Kind, L: expr, R: right, Pos: op.Pos}
	}
}

func (p *Parser) logicOr() (*ast.EvalExpr, error) {
	return p.binaryLevel(p.logicAnd, token.OROR)
}

func (p *Parser) logicAnd() (*ast.EvalExpr, error) {
	return p.binaryLevel(p.bitOr, token.ANDAND)
}

func (p *Parser) bitOr() (*ast.EvalExpr, error) {
	return p.binaryLevel(p.bitXor, token.PIPE)
}

func (p *Parser) bitXor() (*ast.EvalExpr, error) {
	return p.binaryLevel(p.bitAnd, token.CARET)
}

func (p *Parser) bitAnd() (*ast.EvalExpr, error) {
	return p.binaryLevel(p.equality, token.AMP)
}

func (p *Parser) equality() (*ast.EvalExpr, error) {
	return p.binaryLevel(p.comparison, token.EQ, token.NEQ)
}

func (p *Parser) comparison() (*ast.EvalExpr, error) {
	return p.binaryLevel(p.term, token.LT, token.LE, token.GT, token.GE)
}

func (p *Parser) term() (*ast.EvalExpr, error) {
	return p.binaryLevel(p.factor, token.PLUS, token.MINUS)
}

func (p *Parser) factor() (*ast.EvalExpr, error) {
	return p.binaryLevel(p.primary, token.STAR, token.SLASH, token.PERCENT)
}

func (p *Parser) primary() (*ast.EvalExpr, error) {
	tok := p.current()
	switch tok.Kind {
	case token.INT:
		p.advance()
		return &ast.EvalExpr{Val: ast.Literal(tok, ast.TInt32), Pos: tok.Pos}, nil
	case token.FLOAT:
		p.advance()
		return &ast.EvalExpr{Val: ast.Literal(tok, ast.TFp32), Pos: tok.Pos}, nil
	case token.CHAR:
		p.advance()
		return &ast.EvalExpr{Val: ast.Literal(tok, ast.TChar), Pos: tok.Pos}, nil
	case token.STRING:
		p.advance()
		return &ast.EvalExpr{Val: ast.Literal(tok, ast.TStr), Pos: tok.Pos}, nil
	case token.LPAREN:
		p.advance()
		expr, err := p.evalExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RPAREN, "Primary"); err != nil {
			return nil, err
		}
		return expr, nil
	case token.IDENT:
		return p.reference()
	default:
		return nil, p.errorf("Primary")
	}
}

func (p *Parser) reference() (*ast.EvalExpr, error) {
	pos := p.current().Pos
	name, err := p.namePath()
	if err != nil {
		return nil, err
	}

	var call *ast.FuncCall
	var genArg *ast.TypeDecl
	if p.genericCallAhead() {
		if genArg, err = p.genericArg(); err != nil {
			return nil, err
		}
	}
	if p.check(token.LPAREN) {
		if call, err = p.callArgs(); err != nil {
			return nil, err
		}
		call.GenArg = genArg
	}

	var index *ast.EvalExpr
	if p.match(token.LBRACKET) {
		if index, err = p.evalExpr(); err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RBRACKET, "Index"); err != nil {
			return nil, err
		}
	}

	val := &ast.ExprVal{Ref: name, Call: call, Index: index, Pos: pos}
	return &ast.EvalExpr{Val: val, Pos: pos}, nil
}

// genericCallAhead reports whether the upcoming tokens read as
// `<` TYPE `>` `(`, i.e. a generic argument on a construction site
// rather than a comparison chain.
func (p *Parser) genericCallAhead() bool {
	if !p.check(token.LT) {
		return false
	}
	arg := p.peek(1)
	if arg.Kind != token.IDENT && !arg.Kind.IsTypeKeyword() {
		return false
	}
	return p.peek(2).Kind == token.GT && p.peek(3).Kind == token.LPAREN
}

func (p *Parser) callArgs() (*ast.FuncCall, error) {
	p.advance() // (

	call := &ast.FuncCall{}
	if p.match(token.RPAREN) {
		return call, nil
	}
	for {
		arg, err := p.evalExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.consume(token.RPAREN, "CallArgs"); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) namePath() (ast.Name, error) {
	first, err := p.consume(token.IDENT, "NamePath")
	if err != nil {
		return ast.Name{}, err
	}

	segments := []string{first.Lexeme}
	for p.match(token.DOT) {
		seg, err := p.consume(token.IDENT, "NamePath")
		if err != nil {
			return ast.Name{}, err
		}
		segments = append(segments, seg.Lexeme)
	}
	return ast.NewName(segments[len(segments)-1], segments[:len(segments)-1]...), nil
}

// --------------- Helper Functions --------------- //

// Check if the type matches the current token type, advances if true.
func (p *Parser) match(kind token.Kind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(kind token.Kind, prompt string) (token.Token, error) {
	if p.current().Kind != kind {
		return token.Token{}, p.errorf(prompt)
	}
	tok := p.current()
	p.advance()
	return tok, nil
}

// Checks the current token, does not advance.
func (p *Parser) check(kind token.Kind) bool {
	return p.current().Kind == kind
}

func (p *Parser) advance() {
	if !p.atEnd() {
		p.idx++
	}
}

func (p *Parser) atEnd() bool {
	return p.current().Kind == token.EOF
}

func (p *Parser) current() token.Token {
	return p.tokens[p.idx]
}

func (p *Parser) peek(n int) token.Token {
	if p.idx+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.idx+n]
}

func (p *Parser) errorf(prompt string) error {
	tok := p.current()
	return errs.New(errs.Parse, &tok.Pos,
		"%s cannot accept %s(%s)", prompt, tok.Kind, tok.Lexeme)
}
