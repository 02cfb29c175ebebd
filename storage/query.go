package storage

import (
	"context"
	"errors"
	"regexp"
)

// Op is a comparison operator understood by every QueryStore.
type Op string

const (
	OpEq  Op = "="
	OpNeq Op = "<>"
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpIn  Op = "IN"
)

var (
	ErrInvalidColumn = errors.New("invalid column name")
	ErrInvalidOp     = errors.New("invalid filter operator")
	ErrMissingFilter = errors.New("update and delete require at least one filter")
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Filter restricts a query to rows where Column Op Value holds.
type Filter struct {
	Column string
	Op     Op
	Value  interface{}
}

func Eq(column string, value interface{}) Filter  { return Filter{Column: column, Op: OpEq, Value: value} }
func Neq(column string, value interface{}) Filter { return Filter{Column: column, Op: OpNeq, Value: value} }
func Gte(column string, value interface{}) Filter { return Filter{Column: column, Op: OpGte, Value: value} }
func Lte(column string, value interface{}) Filter { return Filter{Column: column, Op: OpLte, Value: value} }
func In(column string, values interface{}) Filter { return Filter{Column: column, Op: OpIn, Value: values} }

// Order sorts Select results.
type Order struct {
	Column string
	Desc   bool
}

func Asc(column string) Order  { return Order{Column: column} }
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// QueryStore is the relational collaborator the scheduler reads and writes
// through. Transport and row-level authorization belong to implementations.
//
// dest and rows are pointers to slices of model structs.
type QueryStore interface {
	Select(ctx context.Context, table string, dest interface{}, filters []Filter, order ...Order) error
	Insert(ctx context.Context, table string, rows interface{}) error
	Update(ctx context.Context, table string, filters []Filter, patch map[string]interface{}) error
	Delete(ctx context.Context, table string, filters []Filter) error
}

// ValidIdentifier reports whether name is safe to splice into SQL as a table
// or column name.
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// Validate checks the column and operator of f.
func (f Filter) Validate() error {
	if !ValidIdentifier(f.Column) {
		return ErrInvalidColumn
	}
	switch f.Op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpIn:
		return nil
	default:
		return ErrInvalidOp
	}
}
