package query

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenSelect TokenType = iota
	TokenDistinct
	TokenFrom
	TokenWhere
	TokenAnd
	TokenOr
	TokenNot
	TokenAs
	TokenOrder
	TokenBy
	TokenAsc
	TokenDesc
	TokenLimit
	TokenOffset
	TokenIn
	TokenLike
	TokenBetween
	TokenIs
	TokenNull

	// Operators
	TokenEqual        // =
	TokenNotEqual     // != or <>
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=

	// Punctuation
	TokenStar      // *
	TokenComma     // ,
	TokenLParen    // (
	TokenRParen    // )
	TokenSemicolon // ;

	// Literals
	TokenString
	TokenNumber
	TokenIdent
	TokenBool

	// Special
	TokenEOF
	TokenError
)

var tokenNames = map[TokenType]string{
	TokenSelect:       "SELECT",
	TokenDistinct:     "DISTINCT",
	TokenFrom:         "FROM",
	TokenWhere:        "WHERE",
	TokenAnd:          "AND",
	TokenOr:           "OR",
	TokenNot:          "NOT",
	TokenAs:           "AS",
	TokenOrder:        "ORDER",
	TokenBy:           "BY",
	TokenAsc:          "ASC",
	TokenDesc:         "DESC",
	TokenLimit:        "LIMIT",
	TokenOffset:       "OFFSET",
	TokenIn:           "IN",
	TokenLike:         "LIKE",
	TokenBetween:      "BETWEEN",
	TokenIs:           "IS",
	TokenNull:         "NULL",
	TokenEqual:        "=",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenGreater:      ">",
	TokenLessEqual:    "<=",
	TokenGreaterEqual: ">=",
	TokenStar:         "*",
	TokenComma:        ",",
	TokenLParen:       "(",
	TokenRParen:       ")",
	TokenSemicolon:    ";",
	TokenString:       "string",
	TokenNumber:       "number",
	TokenIdent:        "identifier",
	TokenBool:         "boolean",
	TokenEOF:          "end of query",
	TokenError:        "invalid token",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown"
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
}

// Statement is a parsed SELECT statement.
type Statement struct {
	Distinct bool
	// Columns is empty for SELECT *.
	Columns []SelectItem
	Table   string
	Filter  Expression
	OrderBy []OrderByItem
	Limit   *int64
	Offset  *int64
}

// SelectItem is one projected column.
type SelectItem struct {
	Column string
	Alias  string
}

// OutputName returns the alias if present, otherwise the column name.
func (s SelectItem) OutputName() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Column
}

// OrderByItem is one ORDER BY key.
type OrderByItem struct {
	Column string
	Desc   bool
}

// Row gives expressions access to the values of the row being evaluated.
type Row interface {
	Get(column string) (interface{}, bool)
}

// Expression is a boolean expression of the WHERE clause. Comparisons
// involving NULL evaluate to Unknown.
type Expression interface {
	Evaluate(row Row) (Truth, error)
	// Columns returns the column names the expression reads.
	Columns() []string
}

// Operand is a column reference or a literal.
type Operand struct {
	Column  string
	Literal interface{}
	IsNull  bool
}

// Value returns the operand's value for row.
func (o Operand) Value(row Row) (interface{}, error) {
	if o.Column == "" {
		return o.Literal, nil
	}
	v, ok := row.Get(o.Column)
	if !ok {
		return nil, &UnknownColumnError{Column: o.Column}
	}
	return v, nil
}

func (o Operand) columns() []string {
	if o.Column == "" {
		return nil
	}
	return []string{o.Column}
}

// BinaryExpr represents a binary expression (AND/OR)
type BinaryExpr struct {
	Left     Expression
	Operator TokenType // TokenAnd or TokenOr
	Right    Expression
}

// NotExpr negates an expression.
type NotExpr struct {
	Expr Expression
}

// ComparisonExpr represents a comparison expression
type ComparisonExpr struct {
	Left     Operand
	Operator TokenType
	Right    Operand
}

// InExpr is "operand [NOT] IN (v1, v2, ...)".
type InExpr struct {
	Operand Operand
	Values  []Operand
	Not     bool
}

// LikeExpr is "operand [NOT] LIKE pattern".
type LikeExpr struct {
	Operand Operand
	Pattern Operand
	Not     bool
}

// BetweenExpr is "operand [NOT] BETWEEN low AND high".
type BetweenExpr struct {
	Operand Operand
	Low     Operand
	High    Operand
	Not     bool
}

// IsNullExpr is "operand IS [NOT] NULL".
type IsNullExpr struct {
	Operand Operand
	Not     bool
}

// TruthExpr tests an operand used directly as a condition, e.g. WHERE active.
type TruthExpr struct {
	Operand Operand
}
