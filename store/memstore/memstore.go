// Package memstore is an in-memory store.Store used by tests, examples and local development.
//
// Entities are kept as msgpack snapshots so callers never share memory with the store:
// mutating a value returned by Get has no effect until it is Put back.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-catalog-cache/store"
)

// Op names a store operation for counters and error injection.
type Op string

const (
	OpAllocate Op = "allocate"
	OpGet      Op = "get"
	OpPut      Op = "put"
	OpDelete   Op = "delete"
	OpQuery    Op = "query"
)

var _ store.Store[store.Record] = (*Store[store.Record])(nil)

// Store keeps snapshots of T keyed by primary key.
type Store[T store.Record] struct {
	mu      sync.RWMutex
	records map[uuid.UUID][]byte
	calls   map[Op]int
	fail    map[Op]error
	queries []store.Query
}

// New creates an empty Store.
func New[T store.Record]() *Store[T] {
	return &Store[T]{
		records: make(map[uuid.UUID][]byte),
		calls:   make(map[Op]int),
		fail:    make(map[Op]error),
	}
}

// FailWith makes every subsequent call to op return err. A nil err clears the failure.
func (s *Store[T]) FailWith(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls returns how many times op has been invoked.
func (s *Store[T]) Calls(op Op) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// Queries returns the queries received so far, oldest first.
func (s *Store[T]) Queries() []store.Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Query(nil), s.queries...)
}

// ResetCalls clears the operation counters and query log.
func (s *Store[T]) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[Op]int)
	s.queries = nil
}

// Len returns the number of stored entities.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store[T]) track(op Op) error {
	s.calls[op]++
	return s.fail[op]
}

func (s *Store[T]) AllocateKey(ctx context.Context) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.track(OpAllocate); err != nil {
		return uuid.Nil, err
	}
	return uuid.New(), nil
}

func (s *Store[T]) Get(ctx context.Context, key uuid.UUID) (T, error) {
	var zero T
	s.mu.Lock()
	err := s.track(OpGet)
	raw, ok := s.records[key]
	s.mu.Unlock()

	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, store.ErrNotFound
	}
	return decode[T](raw)
}

func (s *Store[T]) Put(ctx context.Context, entity T) (T, error) {
	var zero T
	key := entity.PrimaryKey()
	if key == uuid.Nil {
		return zero, fmt.Errorf("memstore: put entity without primary key")
	}

	raw, err := msgpack.Marshal(entity)
	if err != nil {
		return zero, fmt.Errorf("memstore: encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.track(OpPut); err != nil {
		return zero, err
	}
	s.records[key] = raw
	return decode[T](raw)
}

func (s *Store[T]) Delete(ctx context.Context, key uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.track(OpDelete); err != nil {
		return err
	}
	if _, ok := s.records[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

func (s *Store[T]) Query(ctx context.Context, q store.Query) ([]T, error) {
	s.mu.Lock()
	err := s.track(OpQuery)
	s.queries = append(s.queries, q)
	snapshot := make([][]byte, 0, len(s.records))
	for _, raw := range s.records {
		snapshot = append(snapshot, raw)
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	matches := make([]T, 0, len(snapshot))
	for _, raw := range snapshot {
		record, err := decode[T](raw)
		if err != nil {
			return nil, err
		}
		if matchesAll(record, q.Filters) {
			matches = append(matches, record)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if q.Order != nil {
			c := Compare(matches[i].Field(q.Order.Field), matches[j].Field(q.Order.Field))
			if q.Order.Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return matches[i].PrimaryKey().String() < matches[j].PrimaryKey().String()
	})

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

func decode[T any](raw []byte) (T, error) {
	var out T
	if err := msgpack.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("memstore: decode: %w", err)
	}
	return out, nil
}

func matchesAll(r store.Record, filters []store.Filter) bool {
	for _, f := range filters {
		c := Compare(r.Field(f.Field), f.Value)
		var ok bool
		switch f.Op {
		case store.OpEqual:
			ok = c == 0
		case store.OpNotEqual:
			ok = c != 0
		case store.OpLess:
			ok = c < 0
		case store.OpLessOrEqual:
			ok = c <= 0
		case store.OpGreater:
			ok = c > 0
		case store.OpGreaterOrEqual:
			ok = c >= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

// Compare orders two field values. Values of different kinds compare by their string form.
func Compare(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case int:
		if bv, ok := b.(int); ok {
			return compareOrdered(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return compareOrdered(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case uuid.UUID:
		if bv, ok := b.(uuid.UUID); ok {
			return strings.Compare(av.String(), bv.String())
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareOrdered[V int | int64](a, b V) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
