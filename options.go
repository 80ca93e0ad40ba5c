/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package genericrepo

import (
	"time"

	"go.uber.org/zap"

	"github.com/suparena/genericrepo/filter"
)

// Option configures a Repository at construction time.
type Option func(*Repository)

// WithLogger sets the structured logger used by the repository. Defaults to
// a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source used for expiration stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// writeOptions control save behavior. Both flags default to true, matching
// the common case of wanting the saved item back and the retention stamp on.
type writeOptions struct {
	returnModel   bool
	setExpiration bool
}

// WriteOption configures a single save operation.
type WriteOption func(*writeOptions)

// WithoutReturnModel skips the post-write read-back; Save returns nil.
func WithoutReturnModel() WriteOption {
	return func(o *writeOptions) { o.returnModel = false }
}

// WithoutExpiration suppresses the expiration stamp for this write even when
// the repository is configured with a retention period.
func WithoutExpiration() WriteOption {
	return func(o *writeOptions) { o.setExpiration = false }
}

func newWriteOptions(opts []WriteOption) writeOptions {
	o := writeOptions{returnModel: true, setExpiration: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// updateOptions control conditional update behavior.
type updateOptions struct {
	condition        filter.Spec
	rejectionMessage string
}

// UpdateOption configures a single update operation.
type UpdateOption func(*updateOptions)

// WithCondition attaches a condition spec to the update; the write is
// accepted only if the stored item satisfies it.
func WithCondition(spec filter.Spec) UpdateOption {
	return func(o *updateOptions) { o.condition = spec }
}

// WithRejectionMessage sets the human-readable message carried by the
// structured result when the condition is not satisfied.
func WithRejectionMessage(msg string) UpdateOption {
	return func(o *updateOptions) { o.rejectionMessage = msg }
}

func newUpdateOptions(opts []UpdateOption) updateOptions {
	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// streamOptions configure the streaming read path.
type streamOptions struct {
	bufferSize int
	pageSize   int32
}

// StreamOption configures a streaming scan.
type StreamOption func(*streamOptions)

// WithStreamBuffer sets the result channel buffer size.
func WithStreamBuffer(size int) StreamOption {
	return func(o *streamOptions) {
		if size > 0 {
			o.bufferSize = size
		}
	}
}

// WithPageSize sets the item limit per store page request.
func WithPageSize(size int32) StreamOption {
	return func(o *streamOptions) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

func newStreamOptions(opts []StreamOption) streamOptions {
	o := streamOptions{bufferSize: 100}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
