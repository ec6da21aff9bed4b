package parser

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenName // Main, x, total
	TokenNat  // 42

	// Grouping symbols
	TokenBraceOpen  // {
	TokenBraceClose // }
	TokenParenOpen  // (
	TokenParenClose // )

	// Basic symbols
	TokenComma     // ,
	TokenSemicolon // ;
	TokenAssign    // :=

	// Arithmetic operators
	TokenPlus  // +
	TokenMinus // -
	TokenMult  // *
	TokenDiv   // /
	TokenPow   // ^

	// Comparison operators
	TokenEqual        // ==
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=

	// Logical operators (keyword or symbol form)
	TokenAnd // and, &&
	TokenOr  // or, ||
	TokenNot // not, !

	// Keywords
	TokenTrue
	TokenFalse
	TokenForeach
	TokenIn
	TokenIf
	TokenElse
	TokenRepeat
	TokenWhile
	TokenReturn
)

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "(eof)"
	case TokenError:
		return "(error)"
	case TokenName:
		return "(name)"
	case TokenNat:
		return "(number)"
	case TokenBraceOpen:
		return "{"
	case TokenBraceClose:
		return "}"
	case TokenParenOpen:
		return "("
	case TokenParenClose:
		return ")"
	case TokenComma:
		return ","
	case TokenSemicolon:
		return ";"
	case TokenAssign:
		return ":="
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenMult:
		return "*"
	case TokenDiv:
		return "/"
	case TokenPow:
		return "^"
	case TokenEqual:
		return "=="
	case TokenLess:
		return "<"
	case TokenLessEqual:
		return "<="
	case TokenGreater:
		return ">"
	case TokenGreaterEqual:
		return ">="
	case TokenAnd:
		return "and"
	case TokenOr:
		return "or"
	case TokenNot:
		return "not"
	case TokenTrue:
		return "true"
	case TokenFalse:
		return "false"
	case TokenForeach:
		return "foreach"
	case TokenIn:
		return "in"
	case TokenIf:
		return "if"
	case TokenElse:
		return "else"
	case TokenRepeat:
		return "repeat"
	case TokenWhile:
		return "while"
	case TokenReturn:
		return "return"
	default:
		return "(unknown)"
	}
}

// Token represents a lexical token in Luppolo source.
type Token struct {
	Type     TokenType // Type of the token
	Value    string    // Literal value of the token
	Position int       // Starting position in the input string
}

// symbols1 maps single-character symbols to token types.
var symbols1 = [...]TokenType{
	'{': TokenBraceOpen,
	'}': TokenBraceClose,
	'(': TokenParenOpen,
	')': TokenParenClose,
	',': TokenComma,
	';': TokenSemicolon,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenMult,
	'/': TokenDiv,
	'^': TokenPow,
	'<': TokenLess,
	'>': TokenGreater,
	'!': TokenNot,
}

// runeTokenType pairs a rune with its corresponding token type.
type runeTokenType struct {
	r  rune
	tt TokenType
}

// symbols2 maps two-character symbol sequences to token types.
// The key is the first character of the sequence.
var symbols2 = [...][]runeTokenType{
	'<': {{'=', TokenLessEqual}},
	'>': {{'=', TokenGreaterEqual}},
	'=': {{'=', TokenEqual}},
	':': {{'=', TokenAssign}},
	'&': {{'&', TokenAnd}},
	'|': {{'|', TokenOr}},
}

const (
	symbol1Count = rune(len(symbols1))
	symbol2Count = rune(len(symbols2))
)

// lookupSymbol1 returns the token type for a single-character symbol.
// Returns 0 if the rune is not a valid symbol.
func lookupSymbol1(r rune) TokenType {
	if r < 0 || r >= symbol1Count {
		return 0
	}
	return symbols1[r]
}

// lookupSymbol2 returns possible two-character symbol completions.
// Returns nil if the rune cannot start a two-character symbol.
func lookupSymbol2(r rune) []runeTokenType {
	if r < 0 || r >= symbol2Count {
		return nil
	}
	return symbols2[r]
}

// lookupKeyword returns the token type for a keyword.
// Returns 0 if the string is not a recognized keyword.
func lookupKeyword(s string) TokenType {
	switch s {
	case "and":
		return TokenAnd
	case "or":
		return TokenOr
	case "not":
		return TokenNot
	case "true":
		return TokenTrue
	case "false":
		return TokenFalse
	case "foreach":
		return TokenForeach
	case "in":
		return TokenIn
	case "if":
		return TokenIf
	case "else":
		return TokenElse
	case "repeat":
		return TokenRepeat
	case "while":
		return TokenWhile
	case "return":
		return TokenReturn
	default:
		return 0
	}
}
