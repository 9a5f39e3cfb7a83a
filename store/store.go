// Package store defines the contract the caches consume from the authoritative entity store.
//
// The store is the owner of truth. Every cache entry built on top of it must be reconstructible
// from a Get or a Query, so the contract is deliberately small: key allocation, keyed reads and
// writes, and a filtered, ordered, limited query.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get and Delete when no entity exists for the key.
var ErrNotFound = errors.New("store: entity not found")

// Entity is anything stored under a primary key.
type Entity interface {
	PrimaryKey() uuid.UUID
}

// Record is an Entity whose fields can be read by their store column name.
// In-memory stores use it to evaluate filters and ordering.
type Record interface {
	Entity
	Field(name string) any
}

// Operator is a comparison used in a Filter.
type Operator string

const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "!="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
)

// Filter restricts a query to entities whose Field compares to Value with Op.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Where is shorthand for building a Filter.
func Where(field string, op Operator, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Order sorts query results by a single field.
type Order struct {
	Field string
	Desc  bool
}

// Query describes a bounded store read. A zero Limit means unbounded.
// Results with equal order values are returned in ascending primary key order.
type Query struct {
	Filters []Filter
	Order   *Order
	Limit   int
}

// Range returns the filters selecting values in [from, to) on field.
func Range(field, from, to string) []Filter {
	return []Filter{
		Where(field, OpGreaterOrEqual, from),
		Where(field, OpLess, to),
	}
}

// Store is the authoritative keyed storage for one entity kind.
type Store[T Entity] interface {
	AllocateKey(ctx context.Context) (uuid.UUID, error)
	Get(ctx context.Context, key uuid.UUID) (T, error)
	Put(ctx context.Context, entity T) (T, error)
	Delete(ctx context.Context, key uuid.UUID) error
	Query(ctx context.Context, q Query) ([]T, error)
}

// First runs q capped to one result and returns it, or ErrNotFound.
func First[T Entity](ctx context.Context, s Store[T], q Query) (T, error) {
	q.Limit = 1
	var zero T
	results, err := s.Query(ctx, q)
	if err != nil {
		return zero, err
	}
	if len(results) == 0 {
		return zero, ErrNotFound
	}
	return results[0], nil
}

// Keys projects entities to their primary keys, preserving order.
func Keys[T Entity](entities []T) []uuid.UUID {
	keys := make([]uuid.UUID, len(entities))
	for i, e := range entities {
		keys[i] = e.PrimaryKey()
	}
	return keys
}
