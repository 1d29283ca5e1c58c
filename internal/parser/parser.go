// Package parser turns the columnar token stream into the indexed AST.
// It is a recursive-descent parser with one routine per precedence
// level; the first structural error aborts the parse with a formatted
// diagnostic and no AST.
package parser

import (
	"github.com/klare-lang/klare/internal/ast"
	"github.com/klare-lang/klare/internal/diagnostic"
	"github.com/klare-lang/klare/internal/token"
)

// Parser is a pure push-down over token indices: its only state is the
// cursor and the arena it appends to.
type Parser struct {
	moduleName string
	src        []byte
	tokens     *token.List
	lineStarts []uint32
	pos        int
	tree       *ast.AST
}

// New creates a parser over a scanned module. The source buffer and
// line-start index come from the same scan that produced tokens.
func New(moduleName string, src []byte, tokens *token.List, lineStarts []uint32) *Parser {
	return &Parser{
		moduleName: moduleName,
		src:        src,
		tokens:     tokens,
		lineStarts: lineStarts,
		tree:       ast.New(),
	}
}

// Parse consumes the token stream and returns the AST. Node 0 is the
// root; its children are the top-level declarations. On the first
// structural error the returned AST is nil and the error is a
// *diagnostic.Error carrying the full position and message.
func (p *Parser) Parse() (*ast.AST, error) {
	const root = uint32(0)
	for !p.atEnd() {
		switch p.peek().Kind {
		case token.Var, token.Const:
			decl, err := p.parseDecl()
			if err != nil {
				return nil, err
			}
			p.tree.AddChild(root, decl)
		case token.Function:
			fn, err := p.parseFunction(false)
			if err != nil {
				return nil, err
			}
			p.tree.AddChild(root, fn)
		case token.Class, token.Struct:
			// Class and struct bodies are not parsed yet; the tokens are
			// skipped.
			p.advance()
		default:
			p.advance()
		}
	}
	return p.tree, nil
}

func (p *Parser) peek() token.Token {
	if p.pos >= p.tokens.Len() {
		return token.Token{Start: uint32(len(p.src)), Kind: token.EOF}
	}
	return p.tokens.At(p.pos)
}

func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= p.tokens.Len() {
		return token.Token{Start: uint32(len(p.src)), Kind: token.EOF}
	}
	return p.tokens.At(p.pos + n)
}

func (p *Parser) advance() token.Token {
	t := p.peek()
	if p.pos < p.tokens.Len() {
		p.pos++
	}
	return t
}

func (p *Parser) atEnd() bool {
	return p.peek().Kind == token.EOF
}

func (p *Parser) match(kind token.Kind) bool {
	if p.peek().Kind != kind {
		return false
	}
	p.advance()
	return true
}

// errAt builds the fatal diagnostic for tok.
func (p *Parser) errAt(tok token.Token, cat diagnostic.Category, msg, hint string) error {
	return &diagnostic.Error{
		Module:   p.moduleName,
		Pos:      diagnostic.LineCol(p.lineStarts, tok.Start),
		Category: cat,
		Message:  msg,
		Hint:     hint,
	}
}

// expect consumes a token of the given kind or fails with an
// expected-token diagnostic naming it.
func (p *Parser) expect(kind token.Kind, context string) (token.Token, error) {
	t := p.peek()
	if t.Kind != kind {
		msg := "expected '" + kind.String() + "' " + context
		return token.Token{}, p.errAt(t, diagnostic.ExpectedToken, msg, "")
	}
	return p.advance(), nil
}

// expectGreater closes a generic argument list. A '>' that is half of a
// split '>>' still closes one level; the compound flags are markers, not
// different kinds.
func (p *Parser) expectGreater(context string) (token.Token, error) {
	return p.expect(token.Greater, context)
}

// parseDecl parses ('var' | 'const') IDENT (':' type)? ('=' expr)? ';'.
func (p *Parser) parseDecl() (uint32, error) {
	flags := ast.FlagNone
	if p.peek().Kind == token.Const {
		flags |= ast.FlagIsConst
	}
	p.advance()

	name, err := p.expect(token.Identifier, "after 'var' or 'const'")
	if err != nil {
		return 0, err
	}

	decl := p.tree.AddNode(ast.KindDecl, name)

	if p.match(token.Colon) {
		typeIdx, err := p.parseType()
		if err != nil {
			return 0, err
		}
		p.tree.Nodes[decl].Decl.Type = typeIdx
		p.tree.AddChild(decl, typeIdx)
	} else {
		flags |= ast.FlagTypeInfer
	}
	p.tree.Nodes[decl].Flags = flags

	if p.match(token.Equal) {
		init, err := p.parseExpression()
		if err != nil {
			return 0, err
		}
		p.tree.Nodes[decl].Decl.Init = init
		p.tree.AddChild(decl, init)
	}

	if _, err := p.expect(token.Semicolon, "after declaration"); err != nil {
		return 0, err
	}
	return decl, nil
}

// parseType parses a primitive, an ownership-qualified generic, a named
// type with optional generic arguments, and any trailing [] suffixes.
func (p *Parser) parseType() (uint32, error) {
	typeTok := p.peek()
	var typeIdx uint32

	switch typeTok.Kind {
	case token.U8, token.I8, token.U16, token.I16, token.U32, token.I32,
		token.U64, token.I64, token.F32, token.F64,
		token.String, token.Bool, token.Void:
		p.advance()
		typeIdx = p.tree.AddNode(ast.KindType, typeTok)

	case token.Own, token.Share, token.Ref, token.Pin:
		p.advance()
		if _, err := p.expect(token.Less, "after ownership qualifier"); err != nil {
			return 0, err
		}
		typeIdx = p.tree.AddNode(ast.KindType, typeTok)
		inner, err := p.parseType()
		if err != nil {
			return 0, err
		}
		p.tree.AddChild(typeIdx, inner)
		if _, err := p.expectGreater("to close ownership qualifier"); err != nil {
			return 0, err
		}

	case token.Identifier:
		p.advance()
		typeIdx = p.tree.AddNode(ast.KindType, typeTok)
		if p.match(token.Less) {
			for {
				arg, err := p.parseType()
				if err != nil {
					return 0, err
				}
				p.tree.AddChild(typeIdx, arg)
				if !p.match(token.Comma) {
					break
				}
			}
			if _, err := p.expectGreater("to close generic arguments"); err != nil {
				return 0, err
			}
		}

	default:
		return 0, p.errAt(typeTok, diagnostic.InvalidType,
			"expected a type, got '"+typeTok.Kind.String()+"'", "")
	}

	for p.match(token.LeftBracket) {
		if _, err := p.expect(token.RightBracket, "to close array type"); err != nil {
			return 0, err
		}
		arr := p.tree.AddNode(ast.KindArrayType, typeTok)
		p.tree.AddChild(arr, typeIdx)
		typeIdx = arr
	}

	return typeIdx, nil
}

// parseFunction parses a function declaration or, when isLambda is set,
// a nameless function expression.
func (p *Parser) parseFunction(isLambda bool) (uint32, error) {
	funcTok := p.advance()
	fn := p.tree.AddNode(ast.KindFunction, funcTok)

	if !isLambda {
		if _, err := p.expect(token.Identifier, "after 'function'"); err != nil {
			return 0, err
		}
	}

	// Generic parameter list; a trailing '...' marks a variadic generic.
	if p.match(token.Less) {
		for {
			name, err := p.expect(token.Identifier, "in generic parameter list")
			if err != nil {
				return 0, err
			}
			generic := p.tree.AddNode(ast.KindType, name)
			if p.match(token.Spread) {
				p.tree.Nodes[generic].Flags |= ast.FlagVariadic
			}
			p.tree.AddChild(fn, generic)
			if !p.match(token.Comma) {
				break
			}
		}
		if _, err := p.expectGreater("to close generic parameters"); err != nil {
			return 0, err
		}
	}

	if _, err := p.expect(token.LeftParen, "to open parameter list"); err != nil {
		return 0, err
	}
	for p.peek().Kind != token.RightParen {
		name := p.peek()
		if name.Kind != token.Identifier {
			return 0, p.errAt(name, diagnostic.InvalidParameter,
				"expected a parameter name, got '"+name.Kind.String()+"'", "")
		}
		p.advance()

		if !p.match(token.Colon) {
			return 0, p.errAt(p.peek(), diagnostic.InvalidParameter,
				"parameter '"+name.Text(p.src)+"' is missing a type annotation",
				"write '"+name.Text(p.src)+": <type>'")
		}

		paramType, err := p.parseType()
		if err != nil {
			return 0, err
		}

		param := p.tree.AddNode(ast.KindDecl, name)
		p.tree.Nodes[param].Decl.Type = paramType
		p.tree.AddChild(param, paramType)
		p.tree.AddChild(fn, param)

		if p.peek().Kind == token.RightParen {
			break
		}
		if !p.match(token.Comma) {
			return 0, p.errAt(p.peek(), diagnostic.InvalidParameter,
				"parameters must be separated by commas", "")
		}
	}
	if _, err := p.expect(token.RightParen, "to close parameter list"); err != nil {
		return 0, err
	}

	if _, err := p.expect(token.Arrow, "before return type"); err != nil {
		return 0, err
	}
	returnType, err := p.parseType()
	if err != nil {
		return 0, err
	}
	p.tree.Nodes[fn].Function.ReturnType = returnType
	p.tree.AddChild(fn, returnType)

	brace, err := p.expect(token.LeftBrace, "to open function body")
	if err != nil {
		return 0, err
	}
	body, err := p.parseBlock(brace)
	if err != nil {
		return 0, err
	}
	p.tree.Nodes[fn].Function.Body = body
	p.tree.AddChild(fn, body)

	return fn, nil
}

// parseBlock parses statements until the closing brace.
func (p *Parser) parseBlock(brace token.Token) (uint32, error) {
	block := p.tree.AddNode(ast.KindBlock, brace)
	for !p.match(token.RightBrace) {
		if p.atEnd() {
			return 0, p.errAt(p.peek(), diagnostic.ExpectedToken,
				"expected '}' to close block", "")
		}

		switch p.peek().Kind {
		case token.Var, token.Const:
			decl, err := p.parseDecl()
			if err != nil {
				return 0, err
			}
			p.tree.AddChild(block, decl)

		case token.Return:
			retTok := p.advance()
			ret := p.tree.AddNode(ast.KindReturn, retTok)
			if !p.match(token.Semicolon) {
				value, err := p.parseExpression()
				if err != nil {
					return 0, err
				}
				p.tree.AddChild(ret, value)
				if _, err := p.expect(token.Semicolon, "after return value"); err != nil {
					return 0, err
				}
			}
			p.tree.AddChild(block, ret)

		case token.If:
			stmt, err := p.parseIf()
			if err != nil {
				return 0, err
			}
			p.tree.AddChild(block, stmt)

		case token.While:
			stmt, err := p.parseWhile()
			if err != nil {
				return 0, err
			}
			p.tree.AddChild(block, stmt)

		case token.For:
			stmt, err := p.parseFor()
			if err != nil {
				return 0, err
			}
			p.tree.AddChild(block, stmt)

		case token.Break:
			breakTok := p.advance()
			p.tree.AddChild(block, p.tree.AddNode(ast.KindBreak, breakTok))
			if _, err := p.expect(token.Semicolon, "after 'break'"); err != nil {
				return 0, err
			}

		case token.Continue:
			contTok := p.advance()
			p.tree.AddChild(block, p.tree.AddNode(ast.KindContinue, contTok))
			if _, err := p.expect(token.Semicolon, "after 'continue'"); err != nil {
				return 0, err
			}

		default:
			expr, err := p.parseExpression()
			if err != nil {
				return 0, err
			}
			if _, err := p.expect(token.Semicolon, "after expression"); err != nil {
				return 0, err
			}
			p.tree.AddChild(block, expr)
		}
	}
	return block, nil
}

// parseIf parses if '(' expr ')' block ('else' (if | block))?.
func (p *Parser) parseIf() (uint32, error) {
	ifTok := p.advance()
	if _, err := p.expect(token.LeftParen, "after 'if'"); err != nil {
		return 0, err
	}
	condition, err := p.parseExpression()
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(token.RightParen, "after if condition"); err != nil {
		return 0, err
	}

	brace, err := p.expect(token.LeftBrace, "to open if body")
	if err != nil {
		return 0, err
	}
	thenBranch, err := p.parseBlock(brace)
	if err != nil {
		return 0, err
	}

	elseBranch := uint32(0)
	if p.match(token.Else) {
		if p.peek().Kind == token.If {
			elseBranch, err = p.parseIf()
			if err != nil {
				return 0, err
			}
		} else {
			elseBrace, err := p.expect(token.LeftBrace, "to open else body")
			if err != nil {
				return 0, err
			}
			elseBranch, err = p.parseBlock(elseBrace)
			if err != nil {
				return 0, err
			}
		}
	}

	ifNode := p.tree.AddNode(ast.KindIf, ifTok)
	p.tree.AddChild(ifNode, condition)
	p.tree.AddChild(ifNode, thenBranch)
	if elseBranch != 0 {
		p.tree.AddChild(ifNode, elseBranch)
	}
	return ifNode, nil
}

// parseWhile parses while '(' expr ')' block.
func (p *Parser) parseWhile() (uint32, error) {
	whileTok := p.advance()
	if _, err := p.expect(token.LeftParen, "after 'while'"); err != nil {
		return 0, err
	}
	condition, err := p.parseExpression()
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(token.RightParen, "after while condition"); err != nil {
		return 0, err
	}

	brace, err := p.expect(token.LeftBrace, "to open while body")
	if err != nil {
		return 0, err
	}
	body, err := p.parseBlock(brace)
	if err != nil {
		return 0, err
	}

	whileNode := p.tree.AddNode(ast.KindWhile, whileTok)
	p.tree.AddChild(whileNode, condition)
	p.tree.AddChild(whileNode, body)
	return whileNode, nil
}

// parseFor parses for '(' (decl | expr)? ';' expr? ';' expr? ')' block.
// Clauses may be empty; the declaration form consumes its own semicolon.
func (p *Parser) parseFor() (uint32, error) {
	forTok := p.advance()
	if _, err := p.expect(token.LeftParen, "after 'for'"); err != nil {
		return 0, err
	}

	init := uint32(0)
	if !p.match(token.Semicolon) {
		var err error
		if k := p.peek().Kind; k == token.Var || k == token.Const {
			init, err = p.parseDecl()
			if err != nil {
				return 0, err
			}
		} else {
			init, err = p.parseExpression()
			if err != nil {
				return 0, err
			}
			if _, err := p.expect(token.Semicolon, "after for initializer"); err != nil {
				return 0, err
			}
		}
	}

	condition := uint32(0)
	if !p.match(token.Semicolon) {
		var err error
		condition, err = p.parseExpression()
		if err != nil {
			return 0, err
		}
		if _, err := p.expect(token.Semicolon, "after for condition"); err != nil {
			return 0, err
		}
	}

	increment := uint32(0)
	if !p.match(token.RightParen) {
		var err error
		increment, err = p.parseExpression()
		if err != nil {
			return 0, err
		}
		if _, err := p.expect(token.RightParen, "after for increment"); err != nil {
			return 0, err
		}
	}

	brace, err := p.expect(token.LeftBrace, "to open for body")
	if err != nil {
		return 0, err
	}
	body, err := p.parseBlock(brace)
	if err != nil {
		return 0, err
	}

	forNode := p.tree.AddNode(ast.KindFor, forTok)
	if init != 0 {
		p.tree.AddChild(forNode, init)
	}
	if condition != 0 {
		p.tree.AddChild(forNode, condition)
	}
	if increment != 0 {
		p.tree.AddChild(forNode, increment)
	}
	p.tree.AddChild(forNode, body)
	return forNode, nil
}

// parseExpression enters the precedence hierarchy at its lowest level.
func (p *Parser) parseExpression() (uint32, error) {
	return p.parseAssignment()
}

func isAssignmentOp(k token.Kind) bool {
	switch k {
	case token.Equal, token.PlusEq, token.MinusEq, token.StarEq, token.SlashEq,
		token.PercentEq, token.AndEq, token.OrEq, token.XorEq,
		token.LeftShiftEq, token.RightShiftEq:
		return true
	}
	return false
}

// parseAssignment is right-associative: the right operand re-enters the
// same level.
func (p *Parser) parseAssignment() (uint32, error) {
	left, err := p.parseTernary()
	if err != nil {
		return 0, err
	}

	if !isAssignmentOp(p.peek().Kind) {
		return left, nil
	}
	opTok := p.advance()

	right, err := p.parseAssignment()
	if err != nil {
		return 0, err
	}

	assign := p.tree.AddNode(ast.KindBinaryExpr, opTok)
	p.tree.Nodes[assign].Binary = ast.BinaryData{Left: left, Right: right, Op: opTok.Kind}
	p.tree.AddChild(assign, left)
	p.tree.AddChild(assign, right)
	return assign, nil
}

// parseTernary is right-associative; both branches re-enter the full
// expression grammar.
func (p *Parser) parseTernary() (uint32, error) {
	condition, err := p.parseLogicalOr()
	if err != nil {
		return 0, err
	}
	if p.peek().Kind != token.Question {
		return condition, nil
	}
	question := p.advance()

	thenBranch, err := p.parseExpression()
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(token.Colon, "between ternary branches"); err != nil {
		return 0, err
	}
	elseBranch, err := p.parseExpression()
	if err != nil {
		return 0, err
	}

	ternary := p.tree.AddNode(ast.KindTernary, question)
	p.tree.AddChild(ternary, condition)
	p.tree.AddChild(ternary, thenBranch)
	p.tree.AddChild(ternary, elseBranch)
	return ternary, nil
}

// parseBinaryLevel is the shared left-associative loop: read the left
// operand from the next-higher level, then fold operators of this level.
func (p *Parser) parseBinaryLevel(operand func() (uint32, error), matches func(token.Token) bool) (uint32, error) {
	left, err := operand()
	if err != nil {
		return 0, err
	}
	for matches(p.peek()) {
		opTok := p.advance()
		right, err := operand()
		if err != nil {
			return 0, err
		}
		node := p.tree.AddNode(ast.KindBinaryExpr, opTok)
		p.tree.Nodes[node].Binary = ast.BinaryData{Left: left, Right: right, Op: opTok.Kind}
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		left = node
	}
	return left, nil
}

func kindOneOf(kinds ...token.Kind) func(token.Token) bool {
	return func(t token.Token) bool {
		for _, k := range kinds {
			if t.Kind == k {
				return true
			}
		}
		return false
	}
}

func (p *Parser) parseLogicalOr() (uint32, error) {
	return p.parseBinaryLevel(p.parseLogicalAnd, kindOneOf(token.LogicalOr))
}

func (p *Parser) parseLogicalAnd() (uint32, error) {
	return p.parseBinaryLevel(p.parseBitwiseOr, kindOneOf(token.LogicalAnd))
}

func (p *Parser) parseBitwiseOr() (uint32, error) {
	return p.parseBinaryLevel(p.parseBitwiseXor, kindOneOf(token.Or))
}

func (p *Parser) parseBitwiseXor() (uint32, error) {
	return p.parseBinaryLevel(p.parseBitwiseAnd, kindOneOf(token.Xor))
}

func (p *Parser) parseBitwiseAnd() (uint32, error) {
	return p.parseBinaryLevel(p.parseShift, kindOneOf(token.And))
}

// parseShift recognizes << and >> through the scanner's compound angle
// markers: the pair of adjacent single-angle tokens flagged
// compound-start and compound-end is one shift operator. A lone angle
// token is left for the comparison level.
func (p *Parser) parseShift() (uint32, error) {
	left, err := p.parseEquality()
	if err != nil {
		return 0, err
	}
	for {
		first := p.peek()
		if first.Kind != token.Less && first.Kind != token.Greater {
			break
		}
		if !first.Flags.Has(token.FlagCompoundStart) {
			break
		}
		second := p.peekAt(1)
		if second.Kind != first.Kind || !second.Flags.Has(token.FlagCompoundEnd) {
			break
		}
		opTok := p.advance()
		p.advance()

		op := token.LeftShift
		if first.Kind == token.Greater {
			op = token.RightShift
		}

		right, err := p.parseEquality()
		if err != nil {
			return 0, err
		}
		node := p.tree.AddNode(ast.KindBinaryExpr, opTok)
		p.tree.Nodes[node].Binary = ast.BinaryData{Left: left, Right: right, Op: op}
		p.tree.AddChild(node, left)
		p.tree.AddChild(node, right)
		left = node
	}
	return left, nil
}

func (p *Parser) parseEquality() (uint32, error) {
	return p.parseBinaryLevel(p.parseComparison, kindOneOf(token.Eq, token.Ne))
}

// parseComparison refuses an angle token that starts a compound pair;
// that pair belongs to the shift level.
func (p *Parser) parseComparison() (uint32, error) {
	return p.parseBinaryLevel(p.parseTerm, func(t token.Token) bool {
		if t.Flags.Has(token.FlagCompoundStart) || t.Flags.Has(token.FlagCompoundEnd) {
			return false
		}
		switch t.Kind {
		case token.Less, token.Le, token.Greater, token.Ge:
			return true
		}
		return false
	})
}

func (p *Parser) parseTerm() (uint32, error) {
	return p.parseBinaryLevel(p.parseFactor, kindOneOf(token.Plus, token.Minus))
}

func (p *Parser) parseFactor() (uint32, error) {
	return p.parseBinaryLevel(p.parseUnary, kindOneOf(token.Star, token.Slash, token.Percent))
}

// parseUnary handles the prefix operators, new with its optional
// initializer, and delete.
func (p *Parser) parseUnary() (uint32, error) {
	switch p.peek().Kind {
	case token.Bang, token.Minus, token.Tilde, token.And, token.Star:
		opTok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		node := p.tree.AddNode(ast.KindUnaryExpr, opTok)
		p.tree.Nodes[node].Unary = ast.UnaryData{Operand: operand, Op: opTok.Kind}
		p.tree.AddChild(node, operand)
		return node, nil

	case token.New:
		return p.parseNew()

	case token.Delete:
		opTok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		node := p.tree.AddNode(ast.KindUnaryExpr, opTok)
		p.tree.Nodes[node].Unary = ast.UnaryData{Operand: operand, Op: token.Delete}
		p.tree.AddChild(node, operand)
		return node, nil
	}

	return p.parsePrimary()
}

// parseNew parses new <type> with an optional brace or paren
// initializer attached as a child.
func (p *Parser) parseNew() (uint32, error) {
	opTok := p.advance()
	node := p.tree.AddNode(ast.KindUnaryExpr, opTok)

	typeIdx, err := p.parseType()
	if err != nil {
		return 0, err
	}
	p.tree.Nodes[node].Unary = ast.UnaryData{Operand: typeIdx, Op: token.New}
	p.tree.AddChild(node, typeIdx)

	switch p.peek().Kind {
	case token.LeftBrace:
		init, err := p.parseArrayInit()
		if err != nil {
			return 0, err
		}
		p.tree.AddChild(node, init)
	case token.LeftParen:
		p.advance()
		init, err := p.parseExpression()
		if err != nil {
			return 0, err
		}
		if _, err := p.expect(token.RightParen, "to close new initializer"); err != nil {
			return 0, err
		}
		p.tree.AddChild(node, init)
	}

	return node, nil
}

// parseArrayInit parses '{' expr (',' expr)* '}'.
func (p *Parser) parseArrayInit() (uint32, error) {
	braceTok := p.advance()
	init := p.tree.AddNode(ast.KindArrayInit, braceTok)
	if p.match(token.RightBrace) {
		return init, nil
	}
	for {
		element, err := p.parseExpression()
		if err != nil {
			return 0, err
		}
		p.tree.AddChild(init, element)
		if !p.match(token.Comma) {
			break
		}
	}
	if _, err := p.expect(token.RightBrace, "to close array initializer"); err != nil {
		return 0, err
	}
	return init, nil
}

// parseCallArgs parses the argument list of a call whose '(' is already
// consumed, appending each argument as a child of call.
func (p *Parser) parseCallArgs(call uint32) error {
	if p.match(token.RightParen) {
		return nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return err
		}
		p.tree.AddChild(call, arg)
		if !p.match(token.Comma) {
			break
		}
	}
	_, err := p.expect(token.RightParen, "to close argument list")
	return err
}

// parsePrimary parses literals, array initializers, grouping,
// identifiers with their postfix call chains, cast expressions, and
// lambdas.
func (p *Parser) parsePrimary() (uint32, error) {
	tk := p.peek()
	switch tk.Kind {
	case token.StrLiteral, token.NumLiteral, token.True, token.False, token.Null:
		p.advance()
		return p.tree.AddNode(ast.KindLiteral, tk), nil

	case token.LeftBrace:
		return p.parseArrayInit()

	case token.LeftParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return 0, err
		}
		if _, err := p.expect(token.RightParen, "to close grouping"); err != nil {
			return 0, err
		}
		return expr, nil

	case token.Identifier:
		p.advance()
		id := p.tree.AddNode(ast.KindIdentifier, tk)

		for {
			if p.match(token.Dot) {
				method, err := p.expect(token.Identifier, "after '.'")
				if err != nil {
					return 0, err
				}
				if !p.match(token.LeftParen) {
					return 0, p.errAt(p.peek(), diagnostic.MissingMethodParens,
						"expected '(' after method name '"+method.Text(p.src)+"'", "")
				}
				call := p.tree.AddNode(ast.KindMethodCall, method)
				p.tree.AddChild(call, id)
				if err := p.parseCallArgs(call); err != nil {
					return 0, err
				}
				id = call
				continue
			}
			if p.match(token.LeftParen) {
				call := p.tree.AddNode(ast.KindCall, tk)
				p.tree.AddChild(call, id)
				if err := p.parseCallArgs(call); err != nil {
					return 0, err
				}
				id = call
				continue
			}
			break
		}
		return id, nil

	case token.Cast:
		p.advance()
		if _, err := p.expect(token.Less, "after 'cast'"); err != nil {
			return 0, err
		}
		castType, err := p.parseType()
		if err != nil {
			return 0, err
		}
		if _, err := p.expectGreater("to close cast type"); err != nil {
			return 0, err
		}
		if _, err := p.expect(token.LeftParen, "to open cast operand"); err != nil {
			return 0, err
		}
		operand, err := p.parseExpression()
		if err != nil {
			return 0, err
		}
		if _, err := p.expect(token.RightParen, "to close cast operand"); err != nil {
			return 0, err
		}

		castNode := p.tree.AddNode(ast.KindCastExpr, tk)
		p.tree.Nodes[castNode].Cast = ast.CastData{Operand: operand, Type: castType}
		p.tree.AddChild(castNode, castType)
		p.tree.AddChild(castNode, operand)
		return castNode, nil

	case token.Function:
		return p.parseFunction(true)
	}

	return 0, p.errAt(tk, diagnostic.UnexpectedPrimary,
		"expected an expression, got '"+tk.Kind.String()+"'", "")
}
