/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package genericrepo

import (
	"context"

	"github.com/suparena/genericrepo/filter"
)

// ItemResult carries a single-item outcome on an async channel.
type ItemResult struct {
	Item Item
	Err  error
}

// ItemsResult carries a multi-item outcome on an async channel.
type ItemsResult struct {
	Items []Item
	Err   error
}

// UpdateOutcome carries an update outcome on an async channel.
type UpdateOutcome struct {
	Result *UpdateResult
	Err    error
}

// CountResult carries a count outcome on an async channel.
type CountResult struct {
	Count int64
	Err   error
}

// ErrResult carries an error-only outcome on an async channel.
type ErrResult struct {
	Err error
}

// AsyncRepository exposes the repository surface as non-blocking calls.
// Every method starts the operation in a goroutine and immediately returns
// a buffered channel that receives exactly one result and is then closed,
// so an abandoned channel never leaks the worker. Semantics are identical
// to the blocking surface; cancellation flows through the context.
type AsyncRepository struct {
	repo *Repository
}

// Async returns the non-blocking view of this repository. The two views
// share all state and may be used interchangeably.
func (r *Repository) Async() *AsyncRepository {
	return &AsyncRepository{repo: r}
}

func (a *AsyncRepository) Load(ctx context.Context, primaryKeyValue any) <-chan ItemResult {
	ch := make(chan ItemResult, 1)
	go func() {
		defer close(ch)
		item, err := a.repo.Load(ctx, primaryKeyValue)
		ch <- ItemResult{Item: item, Err: err}
	}()
	return ch
}

func (a *AsyncRepository) LoadByCompositeKey(ctx context.Context, keyMap Item) <-chan ItemResult {
	ch := make(chan ItemResult, 1)
	go func() {
		defer close(ch)
		item, err := a.repo.LoadByCompositeKey(ctx, keyMap)
		ch <- ItemResult{Item: item, Err: err}
	}()
	return ch
}

func (a *AsyncRepository) LoadOrFail(ctx context.Context, primaryKeyValue any) <-chan ItemResult {
	ch := make(chan ItemResult, 1)
	go func() {
		defer close(ch)
		item, err := a.repo.LoadOrFail(ctx, primaryKeyValue)
		ch <- ItemResult{Item: item, Err: err}
	}()
	return ch
}

func (a *AsyncRepository) Save(ctx context.Context, primaryKeyValue any, model Item, opts ...WriteOption) <-chan ItemResult {
	ch := make(chan ItemResult, 1)
	go func() {
		defer close(ch)
		item, err := a.repo.Save(ctx, primaryKeyValue, model, opts...)
		ch <- ItemResult{Item: item, Err: err}
	}()
	return ch
}

func (a *AsyncRepository) SaveWithCompositeKey(ctx context.Context, itemData Item, opts ...WriteOption) <-chan ItemResult {
	ch := make(chan ItemResult, 1)
	go func() {
		defer close(ch)
		item, err := a.repo.SaveWithCompositeKey(ctx, itemData, opts...)
		ch <- ItemResult{Item: item, Err: err}
	}()
	return ch
}

func (a *AsyncRepository) Update(ctx context.Context, key any, patch Item, opts ...UpdateOption) <-chan UpdateOutcome {
	ch := make(chan UpdateOutcome, 1)
	go func() {
		defer close(ch)
		result, err := a.repo.Update(ctx, key, patch, opts...)
		ch <- UpdateOutcome{Result: result, Err: err}
	}()
	return ch
}

func (a *AsyncRepository) Delete(ctx context.Context, primaryKeyValue any) <-chan ErrResult {
	ch := make(chan ErrResult, 1)
	go func() {
		defer close(ch)
		ch <- ErrResult{Err: a.repo.Delete(ctx, primaryKeyValue)}
	}()
	return ch
}

func (a *AsyncRepository) DeleteByCompositeKey(ctx context.Context, keyMap Item) <-chan ErrResult {
	ch := make(chan ErrResult, 1)
	go func() {
		defer close(ch)
		ch <- ErrResult{Err: a.repo.DeleteByCompositeKey(ctx, keyMap)}
	}()
	return ch
}

func (a *AsyncRepository) DeleteAllByPrimaryKey(ctx context.Context, primaryKeyValue any) <-chan ErrResult {
	ch := make(chan ErrResult, 1)
	go func() {
		defer close(ch)
		ch <- ErrResult{Err: a.repo.DeleteAllByPrimaryKey(ctx, primaryKeyValue)}
	}()
	return ch
}

func (a *AsyncRepository) SaveBatch(ctx context.Context, items []Item, opts ...WriteOption) <-chan ErrResult {
	ch := make(chan ErrResult, 1)
	go func() {
		defer close(ch)
		ch <- ErrResult{Err: a.repo.SaveBatch(ctx, items, opts...)}
	}()
	return ch
}

func (a *AsyncRepository) DeleteBatchByKeys(ctx context.Context, keys []any) <-chan ErrResult {
	ch := make(chan ErrResult, 1)
	go func() {
		defer close(ch)
		ch <- ErrResult{Err: a.repo.DeleteBatchByKeys(ctx, keys)}
	}()
	return ch
}

func (a *AsyncRepository) FindAll(ctx context.Context, primaryKeyValue any, filters filter.Spec) <-chan ItemsResult {
	ch := make(chan ItemsResult, 1)
	go func() {
		defer close(ch)
		items, err := a.repo.FindAll(ctx, primaryKeyValue, filters)
		ch <- ItemsResult{Items: items, Err: err}
	}()
	return ch
}

func (a *AsyncRepository) FindAllWithIndex(ctx context.Context, indexName, keyName string, keyValue any, filters filter.Spec) <-chan ItemsResult {
	ch := make(chan ItemsResult, 1)
	go func() {
		defer close(ch)
		items, err := a.repo.FindAllWithIndex(ctx, indexName, keyName, keyValue, filters)
		ch <- ItemsResult{Items: items, Err: err}
	}()
	return ch
}

func (a *AsyncRepository) FindOneWithIndex(ctx context.Context, indexName, keyName string, keyValue any, filters filter.Spec) <-chan ItemResult {
	ch := make(chan ItemResult, 1)
	go func() {
		defer close(ch)
		item, err := a.repo.FindOneWithIndex(ctx, indexName, keyName, keyValue, filters)
		ch <- ItemResult{Item: item, Err: err}
	}()
	return ch
}

// LoadAll is already channel-streaming on the blocking surface; the async
// view delegates directly.
func (a *AsyncRepository) LoadAll(ctx context.Context, filters filter.Spec, opts ...StreamOption) (<-chan StreamResult, error) {
	return a.repo.LoadAll(ctx, filters, opts...)
}

func (a *AsyncRepository) Count(ctx context.Context) <-chan CountResult {
	ch := make(chan CountResult, 1)
	go func() {
		defer close(ch)
		count, err := a.repo.Count(ctx)
		ch <- CountResult{Count: count, Err: err}
	}()
	return ch
}
