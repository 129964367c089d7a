// Package option provides composable query options for the generic repository.
package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type Operator string

const (
	EQ  Operator = "="
	NEQ Operator = "<>"
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
	IN  Operator = "IN"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// Condition is a single field comparison appended to the WHERE clause.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

func ApplyOperator(cond Condition) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if cond.Field == "" {
			return db
		}
		if cond.Operator == IN {
			return db.Where(fmt.Sprintf("%s IN ?", cond.Field), cond.Value)
		}
		return db.Where(fmt.Sprintf("%s %s ?", cond.Field, cond.Operator), cond.Value)
	})
}

// QuerySortBy restricts sorting to an allow-listed column set.
type QuerySortBy struct {
	Allow   map[string]bool
	Field   string
	Desc    bool
	Default string
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(sort.Field)
		if field == "" || !sort.Allow[field] {
			field = sort.Default
		}
		if field == "" {
			return db
		}
		direction := "ASC"
		if sort.Desc {
			direction = "DESC"
		}
		return db.Order(fmt.Sprintf("%s %s", field, direction))
	})
}

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

func WithOffset(offset int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if offset <= 0 {
			return db
		}
		return db.Offset(offset)
	})
}
