// Package bunstore adapts a go-repository-bun repository to the store.Store contract.
//
// The caller owns the *bun.DB and the repository handlers; this package only translates
// store queries into bun select criteria and normalises not-found errors.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-catalog-cache/store"
)

var operators = map[store.Operator]string{
	store.OpEqual:          "=",
	store.OpNotEqual:       "<>",
	store.OpLess:           "<",
	store.OpLessOrEqual:    "<=",
	store.OpGreater:        ">",
	store.OpGreaterOrEqual: ">=",
}

// Store implements store.Store[T] on top of repository.Repository[T].
type Store[T store.Entity] struct {
	repo repository.Repository[T]
}

// New wraps repo.
func New[T store.Entity](repo repository.Repository[T]) *Store[T] {
	return &Store[T]{repo: repo}
}

// AllocateKey returns a fresh random UUID; uniqueness is enforced by the primary key constraint.
func (s *Store[T]) AllocateKey(ctx context.Context) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (s *Store[T]) Get(ctx context.Context, key uuid.UUID) (T, error) {
	record, err := s.repo.GetByID(ctx, key.String())
	if err != nil {
		var zero T
		if isNotFound(err) {
			return zero, store.ErrNotFound
		}
		return zero, goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("bunstore: get %s", key))
	}
	return record, nil
}

// Put creates the record when its key is unknown and updates it otherwise.
func (s *Store[T]) Put(ctx context.Context, entity T) (T, error) {
	key := entity.PrimaryKey()
	if key == uuid.Nil {
		var zero T
		return zero, goerrors.Wrap(errors.New("missing primary key"), goerrors.CategoryInternal, "bunstore: put")
	}

	_, err := s.repo.GetByID(ctx, key.String())
	switch {
	case err == nil:
		updated, err := s.repo.Update(ctx, entity)
		if err != nil {
			return updated, goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("bunstore: update %s", key))
		}
		return updated, nil
	case isNotFound(err):
		created, err := s.repo.Create(ctx, entity)
		if err != nil {
			return created, goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("bunstore: create %s", key))
		}
		return created, nil
	default:
		var zero T
		return zero, goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("bunstore: put %s", key))
	}
}

func (s *Store[T]) Delete(ctx context.Context, key uuid.UUID) error {
	record, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, record); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, fmt.Sprintf("bunstore: delete %s", key))
	}
	return nil
}

func (s *Store[T]) Query(ctx context.Context, q store.Query) ([]T, error) {
	criteria, err := Criteria(q)
	if err != nil {
		return nil, err
	}
	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "bunstore: query")
	}
	return records, nil
}

// Criteria translates q into bun select criteria: one per filter, then ordering
// (with the primary key as tie-breaker), then the limit.
func Criteria(q store.Query) ([]repository.SelectCriteria, error) {
	criteria := make([]repository.SelectCriteria, 0, len(q.Filters)+2)

	for _, f := range q.Filters {
		op, ok := operators[f.Op]
		if !ok {
			return nil, fmt.Errorf("bunstore: unsupported operator %q", f.Op)
		}
		field, value := f.Field, f.Value
		criteria = append(criteria, func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Where("? "+op+" ?", bun.Ident(field), value)
		})
	}

	if q.Order != nil {
		field, dir := q.Order.Field, "ASC"
		if q.Order.Desc {
			dir = "DESC"
		}
		criteria = append(criteria, func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.OrderExpr("? "+dir, bun.Ident(field)).OrderExpr("? ASC", bun.Ident("id"))
		})
	}

	if q.Limit > 0 {
		limit := q.Limit
		criteria = append(criteria, func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Limit(limit)
		})
	}

	return criteria, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}
