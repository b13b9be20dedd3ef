package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser parses SQL queries into a Statement
type Parser struct {
	tokens []Token
	pos    int
	depth  int
}

// NewParser creates a new parser
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

// advance moves to the next token
func (p *Parser) advance() {
	p.pos++
}

// accept advances past the current token if it has the given type.
func (p *Parser) accept(tokType TokenType) bool {
	if p.current().Type != tokType {
		return false
	}
	p.advance()
	return true
}

// expect checks if current token matches expected type and advances
func (p *Parser) expect(tokType TokenType) error {
	if tok := p.current(); tok.Type != tokType {
		return p.unexpected(tokType.String())
	}
	p.advance()
	return nil
}

func (p *Parser) unexpected(want string) error {
	tok := p.current()
	switch tok.Type {
	case TokenEOF:
		return fmt.Errorf("expected %s, got end of query", want)
	case TokenError:
		return fmt.Errorf("syntax error near %q", tok.Value)
	default:
		return fmt.Errorf("expected %s, got %q", want, tok.Value)
	}
}

// Parse parses a SQL query
func Parse(query string) (*Statement, error) {
	if err := checkText(query); err != nil {
		return nil, err
	}

	tokens := Tokenize(query)
	if err := checkTokens(tokens); err != nil {
		return nil, err
	}

	parser := NewParser(tokens)
	return parser.parseStatement()
}

// parseStatement parses:
//
//	SELECT [DISTINCT] * | col [[AS] alias], ... FROM table
//	[WHERE expr] [ORDER BY col [ASC|DESC], ...] [LIMIT n] [OFFSET m]
func (p *Parser) parseStatement() (*Statement, error) {
	if err := p.expect(TokenSelect); err != nil {
		return nil, fmt.Errorf("query must start with SELECT: %w", err)
	}

	stmt := &Statement{Distinct: p.accept(TokenDistinct)}

	if !p.accept(TokenStar) {
		items, err := p.parseSelectList()
		if err != nil {
			return nil, err
		}
		stmt.Columns = items
	}

	if err := p.expect(TokenFrom); err != nil {
		return nil, err
	}
	if p.current().Type != TokenIdent {
		return nil, p.unexpected("table name after FROM")
	}
	stmt.Table = p.current().Value
	p.advance()

	if p.accept(TokenWhere) {
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		stmt.Filter = expr
	}

	if p.accept(TokenOrder) {
		if err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		items, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = items
	}

	if p.accept(TokenLimit) {
		n, err := p.parseCount("LIMIT")
		if err != nil {
			return nil, err
		}
		stmt.Limit = &n
	}
	if p.accept(TokenOffset) {
		n, err := p.parseCount("OFFSET")
		if err != nil {
			return nil, err
		}
		stmt.Offset = &n
	}

	p.accept(TokenSemicolon)
	if p.current().Type != TokenEOF {
		return nil, p.unexpected("end of query")
	}
	return stmt, nil
}

func (p *Parser) parseColumnName() (string, error) {
	if p.current().Type != TokenIdent {
		return "", p.unexpected("column name")
	}
	name := p.current().Value
	if err := checkColumnName(name); err != nil {
		return "", err
	}
	p.advance()
	return name, nil
}

func (p *Parser) parseSelectList() ([]SelectItem, error) {
	var items []SelectItem
	for {
		column, err := p.parseColumnName()
		if err != nil {
			return nil, err
		}
		item := SelectItem{Column: column}

		explicit := p.accept(TokenAs)
		if p.current().Type == TokenIdent {
			item.Alias = p.current().Value
			p.advance()
		} else if explicit {
			return nil, p.unexpected("alias after AS")
		}

		items = append(items, item)
		if !p.accept(TokenComma) {
			return items, nil
		}
	}
}

func (p *Parser) parseOrderBy() ([]OrderByItem, error) {
	var items []OrderByItem
	for {
		column, err := p.parseColumnName()
		if err != nil {
			return nil, err
		}
		item := OrderByItem{Column: column}
		if p.accept(TokenDesc) {
			item.Desc = true
		} else {
			p.accept(TokenAsc)
		}

		items = append(items, item)
		if !p.accept(TokenComma) {
			return items, nil
		}
	}
}

func (p *Parser) parseCount(clause string) (int64, error) {
	tok := p.current()
	if tok.Type != TokenNumber {
		return 0, p.unexpected("number after " + clause)
	}
	n, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %s", clause, tok.Value)
	}
	p.advance()
	return n, nil
}

// parseOr parses OR expressions (lowest precedence)
func (p *Parser) parseOr() (Expression, error) {
	leave, err := p.nest()
	if err != nil {
		return nil, err
	}
	defer leave()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.accept(TokenOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: TokenOr, Right: right}
	}

	return left, nil
}

// parseAnd parses AND expressions (higher precedence than OR)
func (p *Parser) parseAnd() (Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.accept(TokenAnd) {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Operator: TokenAnd, Right: right}
	}

	return left, nil
}

func (p *Parser) parseNot() (Expression, error) {
	if !p.accept(TokenNot) {
		return p.parsePredicate()
	}
	leave, err := p.nest()
	if err != nil {
		return nil, err
	}
	defer leave()

	expr, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return &NotExpr{Expr: expr}, nil
}

// parsePredicate parses a parenthesized expression or a single condition on
// an operand.
func (p *Parser) parsePredicate() (Expression, error) {
	if p.accept(TokenLParen) {
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	switch op := p.current().Type; op {
	case TokenEqual, TokenNotEqual, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual:
		p.advance()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &ComparisonExpr{Left: left, Operator: op, Right: right}, nil
	case TokenIs:
		p.advance()
		not := p.accept(TokenNot)
		if err := p.expect(TokenNull); err != nil {
			return nil, err
		}
		return &IsNullExpr{Operand: left, Not: not}, nil
	}

	not := p.accept(TokenNot)
	switch p.current().Type {
	case TokenIn:
		p.advance()
		values, err := p.parseValueList()
		if err != nil {
			return nil, err
		}
		return &InExpr{Operand: left, Values: values, Not: not}, nil
	case TokenLike:
		p.advance()
		pattern, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &LikeExpr{Operand: left, Pattern: pattern, Not: not}, nil
	case TokenBetween:
		p.advance()
		low, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenAnd); err != nil {
			return nil, err
		}
		high, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &BetweenExpr{Operand: left, Low: low, High: high, Not: not}, nil
	}
	if not {
		return nil, p.unexpected("IN, LIKE or BETWEEN after NOT")
	}

	return &TruthExpr{Operand: left}, nil
}

func (p *Parser) parseValueList() ([]Operand, error) {
	if err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	var values []Operand
	for {
		v, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if !p.accept(TokenComma) {
			break
		}
	}
	if err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return values, nil
}

// parseOperand parses a column reference or a literal value.
func (p *Parser) parseOperand() (Operand, error) {
	tok := p.current()
	switch tok.Type {
	case TokenIdent:
		if err := checkColumnName(tok.Value); err != nil {
			return Operand{}, err
		}
		p.advance()
		return Operand{Column: tok.Value}, nil
	case TokenString:
		p.advance()
		return Operand{Literal: tok.Value}, nil
	case TokenNumber:
		p.advance()
		// Try to parse as int first, then float
		if intVal, err := strconv.ParseInt(tok.Value, 10, 64); err == nil {
			return Operand{Literal: intVal}, nil
		}
		if floatVal, err := strconv.ParseFloat(tok.Value, 64); err == nil {
			return Operand{Literal: floatVal}, nil
		}
		return Operand{}, fmt.Errorf("invalid number: %s", tok.Value)
	case TokenBool:
		p.advance()
		return Operand{Literal: strings.EqualFold(tok.Value, "true")}, nil
	case TokenNull:
		p.advance()
		return Operand{IsNull: true}, nil
	default:
		return Operand{}, p.unexpected("column name or value")
	}
}
