package query

import (
	"errors"
	"fmt"
	"strings"
)

// Input limits applied before and during parsing.
const (
	MaxQueryLength      = 1 << 20
	MaxTokens           = 1000
	MaxExpressionDepth  = 100
	MaxColumnNameLength = 256
)

var (
	ErrEmptyQuery        = errors.New("query is empty")
	ErrQueryTooLong      = errors.New("query too long")
	ErrTooManyTokens     = errors.New("too many tokens in query")
	ErrExpressionTooDeep = errors.New("expression nesting too deep")
	ErrColumnNameTooLong = errors.New("column name too long")
)

// UnknownColumnError reports a reference to a column the table lacks.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return "no such column: " + e.Column
}

// UnknownTableError reports a FROM clause naming a relation other than the
// registered one.
type UnknownTableError struct {
	Table string
}

func (e *UnknownTableError) Error() string {
	return "no such table: " + e.Table
}

// checkText rejects blank or oversized query text.
func checkText(sql string) error {
	switch {
	case strings.TrimSpace(sql) == "":
		return ErrEmptyQuery
	case len(sql) > MaxQueryLength:
		return fmt.Errorf("%w: %d bytes, limit %d", ErrQueryTooLong, len(sql), MaxQueryLength)
	}
	return nil
}

func checkTokens(tokens []Token) error {
	if n := len(tokens); n > MaxTokens {
		return fmt.Errorf("%w: %d, limit %d", ErrTooManyTokens, n, MaxTokens)
	}
	return nil
}

func checkColumnName(name string) error {
	if n := len(name); n > MaxColumnNameLength {
		return fmt.Errorf("%w: %d chars, limit %d", ErrColumnNameTooLong, n, MaxColumnNameLength)
	}
	return nil
}

// nest bumps the parser's expression depth. Callers defer the returned
// func when err is nil.
func (p *Parser) nest() (func(), error) {
	p.depth++
	if p.depth > MaxExpressionDepth {
		p.depth--
		return nil, fmt.Errorf("%w: limit %d", ErrExpressionTooDeep, MaxExpressionDepth)
	}
	return func() { p.depth-- }, nil
}
