// Package querybuild implements a generic low-level builder plus
// PE-scoped, batch, and function builders layered on top of it. Every
// builder targets the uniform pkg/adapter.Adapter interface rather than
// either backend's native query language (SurrealQL, Cypher), so the
// same builder works against the canonical store and the analytical
// mirror alike; the rendered query string exists for logging and
// diagnostics, paired with a typed result much like a typed Cypher
// execution call pairs a query string with its result.
package querybuild

import (
	"context"
	"fmt"
	"strings"
)

// Clause is a single equality predicate ANDed into a query's WHERE
// clause.
type Clause struct {
	Field string
	Value any
}

// Builder is the generic low-level builder: select/from/where/order_by/
// limit.
type Builder struct {
	table   string
	fields  []string
	where   []Clause
	orderBy string
	desc    bool
	limit   int
}

// New starts a builder targeting table.
func New(table string) *Builder { return &Builder{table: table} }

func (b *Builder) Select(fields ...string) *Builder { b.fields = fields; return b }
func (b *Builder) From(table string) *Builder       { b.table = table; return b }

func (b *Builder) Where(field string, value any) *Builder {
	b.where = append(b.where, Clause{Field: field, Value: value})
	return b
}

func (b *Builder) OrderBy(field string, desc bool) *Builder {
	b.orderBy, b.desc = field, desc
	return b
}

func (b *Builder) Limit(n int) *Builder { b.limit = n; return b }

// String renders the accumulated builder state as a diagnostic query
// string.
func (b *Builder) String() string {
	fields := "*"
	if len(b.fields) > 0 {
		fields = strings.Join(b.fields, ", ")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", fields, b.table)
	if len(b.where) > 0 {
		conds := make([]string, len(b.where))
		for i, c := range b.where {
			conds[i] = fmt.Sprintf("%s = %v", c.Field, c.Value)
		}
		fmt.Fprintf(&sb, " WHERE %s", strings.Join(conds, " AND "))
	}
	if b.orderBy != "" {
		dir := "ASC"
		if b.desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", b.orderBy, dir)
	}
	if b.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", b.limit)
	}
	return sb.String()
}

// Query pairs a diagnostic query string with a typed execution thunk,
// the builder's fetch_one / fetch_all / fetch_value surface (§4.6):
// each is the same underlying call, named per the shape of result the
// caller expects back.
type Query[T any] struct {
	text string
	run  func(ctx context.Context) (T, error)
}

func NewQuery[T any](text string, run func(ctx context.Context) (T, error)) *Query[T] {
	return &Query[T]{text: text, run: run}
}

// String returns the diagnostic query text.
func (q *Query[T]) String() string { return q.text }

// FetchOne executes the query expecting a single record (or its
// zero value if none).
func (q *Query[T]) FetchOne(ctx context.Context) (T, error) { return q.run(ctx) }

// FetchAll executes the query expecting a list result.
func (q *Query[T]) FetchAll(ctx context.Context) (T, error) { return q.run(ctx) }

// FetchValue executes the query expecting a scalar result.
func (q *Query[T]) FetchValue(ctx context.Context) (T, error) { return q.run(ctx) }
