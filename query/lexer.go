package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes SQL query strings
type Lexer struct {
	input string
	pos   int
	ch    rune
	width int
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar reads the next character
func (l *Lexer) readChar() {
	l.pos += l.width
	if l.pos >= len(l.input) {
		l.ch = 0
		l.width = 0
		return
	}
	l.ch, l.width = utf8.DecodeRuneInString(l.input[l.pos:])
}

// peekChar looks at the next character without advancing
func (l *Lexer) peekChar() rune {
	next := l.pos + l.width
	if next >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[next:])
	return r
}

// skipWhitespace skips whitespace and "--" line comments
func (l *Lexer) skipWhitespace() {
	for {
		for unicode.IsSpace(l.ch) {
			l.readChar()
		}
		if l.ch != '-' || l.peekChar() != '-' {
			return
		}
		for l.ch != '\n' && l.ch != 0 {
			l.readChar()
		}
	}
}

// readQuoted reads text up to the closing quote. A doubled quote stands for
// one literal quote character. ok is false when the input ends first.
func (l *Lexer) readQuoted(quote rune) (string, bool) {
	var result strings.Builder
	l.readChar() // skip opening quote

	for {
		switch {
		case l.ch == 0:
			return result.String(), false
		case l.ch == quote && l.peekChar() == quote:
			result.WriteRune(quote)
			l.readChar()
		case l.ch == quote:
			l.readChar() // skip closing quote
			return result.String(), true
		default:
			result.WriteRune(l.ch)
		}
		l.readChar()
	}
}

// readNumber reads an integer or decimal number, with optional exponent
func (l *Lexer) readNumber() string {
	var result strings.Builder
	if l.ch == '-' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	for unicode.IsDigit(l.ch) || l.ch == '.' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == 'e' || l.ch == 'E' {
		result.WriteRune(l.ch)
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			result.WriteRune(l.ch)
			l.readChar()
		}
		for unicode.IsDigit(l.ch) {
			result.WriteRune(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// readIdentifier reads an identifier or keyword. Dots are kept so nested
// columns such as address.city read as one name.
func (l *Lexer) readIdentifier() string {
	var result strings.Builder
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' || l.ch == '.' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String()
}

func (l *Lexer) single(t TokenType) Token {
	tok := Token{Type: t, Value: string(l.ch)}
	l.readChar()
	return tok
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	switch l.ch {
	case 0:
		return Token{Type: TokenEOF, Value: ""}
	case '=':
		return l.single(TokenEqual)
	case '*':
		return l.single(TokenStar)
	case ',':
		return l.single(TokenComma)
	case '(':
		return l.single(TokenLParen)
	case ')':
		return l.single(TokenRParen)
	case ';':
		return l.single(TokenSemicolon)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenNotEqual, Value: "!="}
		}
		return l.single(TokenError)
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			l.readChar()
			return Token{Type: TokenLessEqual, Value: "<="}
		case '>':
			l.readChar()
			l.readChar()
			return Token{Type: TokenNotEqual, Value: "<>"}
		}
		return l.single(TokenLess)
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenGreaterEqual, Value: ">="}
		}
		return l.single(TokenGreater)
	case '\'':
		value, ok := l.readQuoted('\'')
		if !ok {
			return Token{Type: TokenError, Value: "unterminated string"}
		}
		return Token{Type: TokenString, Value: value}
	case '"', '`':
		closing := l.ch
		value, ok := l.readQuoted(closing)
		if !ok {
			return Token{Type: TokenError, Value: "unterminated identifier"}
		}
		return Token{Type: TokenIdent, Value: value}
	}

	switch {
	case unicode.IsDigit(l.ch), l.ch == '-' && unicode.IsDigit(l.peekChar()), l.ch == '.' && unicode.IsDigit(l.peekChar()):
		return Token{Type: TokenNumber, Value: l.readNumber()}
	case unicode.IsLetter(l.ch) || l.ch == '_':
		value := l.readIdentifier()
		return Token{Type: identifierType(value), Value: value}
	default:
		return l.single(TokenError)
	}
}

var keywords = map[string]TokenType{
	"SELECT":   TokenSelect,
	"DISTINCT": TokenDistinct,
	"FROM":     TokenFrom,
	"WHERE":    TokenWhere,
	"AND":      TokenAnd,
	"OR":       TokenOr,
	"NOT":      TokenNot,
	"AS":       TokenAs,
	"ORDER":    TokenOrder,
	"BY":       TokenBy,
	"ASC":      TokenAsc,
	"DESC":     TokenDesc,
	"LIMIT":    TokenLimit,
	"OFFSET":   TokenOffset,
	"IN":       TokenIn,
	"LIKE":     TokenLike,
	"BETWEEN":  TokenBetween,
	"IS":       TokenIs,
	"NULL":     TokenNull,
	"TRUE":     TokenBool,
	"FALSE":    TokenBool,
}

// identifierType determines if an identifier is a keyword (case-insensitive)
func identifierType(ident string) TokenType {
	if tokType, ok := keywords[strings.ToUpper(ident)]; ok {
		return tokType
	}
	return TokenIdent
}

// Tokenize returns all tokens from the input
func Tokenize(input string) []Token {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok := lexer.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}

	return tokens
}
