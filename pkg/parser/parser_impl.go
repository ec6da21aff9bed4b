package parser

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/luppolo/pkg/types"
)

// defaultMaxDepth bounds nesting when no WithMaxDepth option is given.
const defaultMaxDepth = 256

// Parser implements a recursive descent parser for Luppolo programs.
type Parser struct {
	lexer   *Lexer
	current Token
	prev    Token
	opts    CompileOptions
	depth   int

	// scope holds the variables known so far in the function being parsed.
	scope map[string]bool
}

// NewParser creates a new parser for the given input string.
func NewParser(input string, opts ...CompileOption) *Parser {
	options := CompileOptions{
		MaxDepth: defaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&options)
	}

	p := &Parser{
		lexer: NewLexer(input),
		opts:  options,
	}

	// Read the first token
	p.advance()

	return p
}

// Parse parses the whole input and returns the PROGRAM node.
func (p *Parser) Parse() (*types.Node, error) {
	root := node(types.KindProgram, nil, 0)
	for p.current.Type != TokenEOF {
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, fn)
	}
	return root, nil
}

// mark is a parser snapshot used to backtrack after a failed attempt.
type mark struct {
	lexer   Lexer
	current Token
	prev    Token
	depth   int
}

func (p *Parser) mark() mark {
	return mark{lexer: *p.lexer, current: p.current, prev: p.prev, depth: p.depth}
}

func (p *Parser) reset(m mark) {
	*p.lexer = m.lexer
	p.current = m.current
	p.prev = m.prev
	p.depth = m.depth
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.prev = p.current
	p.current = p.lexer.Next()
}

// expect checks if the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		if p.current.Type == TokenEOF {
			return p.error(types.ErrUnexpectedEnd, fmt.Sprintf("Expected %s but reached end of input", tt))
		}
		return p.error(types.ErrExpectedToken, fmt.Sprintf("Expected %s but got %s", tt, describe(p.current)))
	}
	p.advance()
	return nil
}

// unexpected reports the current token where want was expected.
func (p *Parser) unexpected(want string) error {
	if p.current.Type == TokenEOF {
		return p.error(types.ErrUnexpectedEnd, fmt.Sprintf("Unexpected end of input, expected %s", want))
	}
	return p.error(types.ErrUnexpectedToken, fmt.Sprintf("Unexpected %s, expected %s", describe(p.current), want))
}

// error creates a parser error. A pending lexer error takes precedence.
func (p *Parser) error(code types.ErrorCode, message string) error {
	if p.current.Type == TokenError {
		if err := p.lexer.Error(); err != nil {
			return err
		}
	}
	return &types.Error{
		Code:     code,
		Message:  message,
		Position: p.current.Position,
		Token:    p.current.Value,
	}
}

func describe(t Token) string {
	switch t.Type {
	case TokenName, TokenNat:
		return fmt.Sprintf("%s %q", t.Type, t.Value)
	default:
		return fmt.Sprintf("%q", t.Value)
	}
}

func (p *Parser) enter() error {
	p.depth++
	if p.opts.MaxDepth > 0 && p.depth > p.opts.MaxDepth {
		return p.error(types.ErrUnexpectedToken, "Maximum nesting depth exceeded")
	}
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

func node(kind types.NodeKind, value types.Value, position int, children ...*types.Node) *types.Node {
	n := types.NewNode(kind, value, children...)
	n.Position = position
	return n
}

// parseFunction parses Name '(' [Name {',' Name}] ')' block.
func (p *Parser) parseFunction() (*types.Node, error) {
	name := p.current
	if name.Type != TokenName {
		return nil, p.unexpected("function definition")
	}
	p.advance()
	if err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}

	p.scope = make(map[string]bool)
	params := []string{}
	if p.current.Type != TokenParenClose {
		for {
			if p.current.Type != TokenName {
				return nil, p.unexpected("parameter name")
			}
			param := p.current.Value
			if p.scope[param] {
				return nil, p.error(types.ErrUnexpectedToken, fmt.Sprintf("Duplicate parameter %s in %s", param, name.Value))
			}
			p.scope[param] = true
			params = append(params, param)
			p.advance()
			if p.current.Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return node(types.KindFunction, types.Signature{Name: name.Value, Parameters: params}, name.Position, body), nil
}

// parseBlock parses '{' instruction* '}'. Instructions may be separated by
// semicolons.
func (p *Parser) parseBlock() (*types.Node, error) {
	open := p.current
	if err := p.expect(TokenBraceOpen); err != nil {
		return nil, err
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	block := node(types.KindBlock, nil, open.Position)
	for p.current.Type != TokenBraceClose {
		if p.current.Type == TokenSemicolon {
			p.advance()
			continue
		}
		if p.current.Type == TokenEOF {
			return nil, p.unexpected("}")
		}
		instr, err := p.parseInstruction()
		if err != nil {
			return nil, err
		}
		block.Children = append(block.Children, instr)
	}
	p.advance()
	return block, nil
}

func (p *Parser) parseInstruction() (*types.Node, error) {
	tok := p.current
	switch tok.Type {
	case TokenName:
		return p.parseDeclaration()
	case TokenForeach:
		return p.parseForeach()
	case TokenIf:
		return p.parseIf()
	case TokenRepeat, TokenWhile:
		p.advance()
		if err := p.expect(TokenParenOpen); err != nil {
			return nil, err
		}
		var head *types.Node
		var err error
		kind := types.KindRepeat
		if tok.Type == TokenWhile {
			kind = types.KindWhile
			head, err = p.parseCondition()
		} else {
			head, err = p.parseExpression()
		}
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return node(kind, nil, tok.Position, head, body), nil
	case TokenReturn:
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return node(types.KindReturn, nil, tok.Position, value), nil
	default:
		return nil, p.unexpected("instruction")
	}
}

// parseDeclaration parses Name ':=' expression. The target becomes a known
// variable after its value has been parsed.
func (p *Parser) parseDeclaration() (*types.Node, error) {
	target := p.current
	p.advance()
	if err := p.expect(TokenAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.scope[target.Value] = true
	return node(types.KindDeclaration, types.Name(target.Value), target.Position, value), nil
}

// parseForeach parses 'foreach' '(' Name 'in' expression ')' block.
func (p *Parser) parseForeach() (*types.Node, error) {
	tok := p.current
	p.advance()
	if err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	if p.current.Type != TokenName {
		return nil, p.unexpected("loop variable")
	}
	variable := p.current.Value
	p.advance()
	if err := p.expect(TokenIn); err != nil {
		return nil, err
	}
	collection, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	p.scope[variable] = true
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return node(types.KindForeach, types.Name(variable), tok.Position, collection, body), nil
}

// parseIf parses 'if' '(' condition ')' block ['else' (block | if)].
func (p *Parser) parseIf() (*types.Node, error) {
	tok := p.current
	p.advance()
	if err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenElse {
		return node(types.KindIf, nil, tok.Position, cond, then), nil
	}

	p.advance()
	var otherwise *types.Node
	if p.current.Type == TokenIf {
		pos := p.current.Position
		nested, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		otherwise = node(types.KindBlock, nil, pos, nested)
	} else if otherwise, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return node(types.KindIfElse, nil, tok.Position, cond, then, otherwise), nil
}

// parseExpression parses term {('+'|'-') term}.
func (p *Parser) parseExpression() (*types.Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenPlus || p.current.Type == TokenMinus {
		op := p.current
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = node(types.KindAddSub, types.Operator(op.Value), op.Position, left, right)
	}
	return left, nil
}

// parseTerm parses unary {('*'|'/') unary}.
func (p *Parser) parseTerm() (*types.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenMult || p.current.Type == TokenDiv {
		op := p.current
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = node(types.KindMulDiv, types.Operator(op.Value), op.Position, left, right)
	}
	return left, nil
}

// parseUnary parses ('+'|'-') unary | power.
func (p *Parser) parseUnary() (*types.Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if op := p.current; op.Type == TokenPlus || op.Type == TokenMinus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return node(types.KindUnary, types.Operator(op.Value), op.Position, operand), nil
	}
	return p.parsePower()
}

// parsePower parses primary ['^' unary]; the operator is right associative.
func (p *Parser) parsePower() (*types.Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenPow {
		return base, nil
	}
	op := p.current
	p.advance()
	exponent, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return node(types.KindPow, nil, op.Position, base, exponent), nil
}

func (p *Parser) parsePrimary() (*types.Node, error) {
	tok := p.current
	switch tok.Type {
	case TokenNat:
		p.advance()
		return node(types.KindNat, types.Literal(tok.Value), tok.Position), nil
	case TokenName:
		p.advance()
		if p.current.Type == TokenParenOpen {
			return p.parseCall(tok)
		}
		return node(p.resolve(tok.Value), types.Name(tok.Value), tok.Position), nil
	case TokenParenOpen:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, p.unexpected("expression")
	}
}

// parseCall parses '(' [expression {',' expression}] ')' after a callee name.
func (p *Parser) parseCall(name Token) (*types.Node, error) {
	p.advance()
	var args []*types.Node
	if p.current.Type != TokenParenClose {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.current.Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return node(types.KindCall, types.Call{Name: name.Value, Arity: len(args)}, name.Position, args...), nil
}

// resolve decides whether a bare name is a variable or a symbol.
func (p *Parser) resolve(name string) types.NodeKind {
	if p.scope[name] {
		return types.KindID
	}
	if r, _ := utf8.DecodeRuneInString(name); unicode.IsLower(r) {
		return types.KindSym
	}
	return types.KindID
}

// parseCondition parses conj {'or' conj}.
func (p *Parser) parseCondition() (*types.Node, error) {
	left, err := p.parseConjunction()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenOr {
		op := p.current
		p.advance()
		right, err := p.parseConjunction()
		if err != nil {
			return nil, err
		}
		left = node(types.KindOr, nil, op.Position, left, right)
	}
	return left, nil
}

// parseConjunction parses neg {'and' neg}.
func (p *Parser) parseConjunction() (*types.Node, error) {
	left, err := p.parseNegation()
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenAnd {
		op := p.current
		p.advance()
		right, err := p.parseNegation()
		if err != nil {
			return nil, err
		}
		left = node(types.KindAnd, nil, op.Position, left, right)
	}
	return left, nil
}

// parseNegation parses 'not' neg | boolean | '(' condition ')' | comparison.
//
// A parenthesis may open either a nested condition or the left operand of a
// comparison, as in (x + 1) < y. The condition is tried first and the parser
// backtracks when it does not stand on its own.
func (p *Parser) parseNegation() (*types.Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	tok := p.current
	switch tok.Type {
	case TokenNot:
		p.advance()
		operand, err := p.parseNegation()
		if err != nil {
			return nil, err
		}
		return node(types.KindNot, nil, tok.Position, operand), nil
	case TokenTrue, TokenFalse:
		p.advance()
		return node(types.KindBoolean, types.Literal(tok.Value), tok.Position), nil
	case TokenParenOpen:
		m := p.mark()
		p.advance()
		cond, err := p.parseCondition()
		if err == nil && p.current.Type == TokenParenClose {
			p.advance()
			if !continuesExpression(p.current.Type) {
				return cond, nil
			}
		}
		p.reset(m)
	}
	return p.parseComparison()
}

// parseComparison parses expression op expression.
func (p *Parser) parseComparison() (*types.Node, error) {
	left, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	op := p.current
	switch op.Type {
	case TokenEqual, TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual:
	default:
		return nil, p.unexpected("comparison operator")
	}
	p.advance()
	right, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return node(types.KindComparison, types.Operator(op.Value), op.Position, left, right), nil
}

func continuesExpression(tt TokenType) bool {
	switch tt {
	case TokenPlus, TokenMinus, TokenMult, TokenDiv, TokenPow,
		TokenEqual, TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual:
		return true
	default:
		return false
	}
}
