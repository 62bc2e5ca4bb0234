// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ava-labs/multistore/utils/logging"
)

// bridge runs blocking engine calls on worker goroutines. At most
// [maxWorkers] calls run at once. A stream only holds a worker while it is
// reading from the engine, not while it waits for its consumer.
type bridge struct {
	log        logging.Logger
	metrics    Metrics
	tracer     trace.Tracer
	workers    *semaphore.Weighted
	bufferSize int

	lock   sync.RWMutex
	closed bool
}

func newBridge(
	log logging.Logger,
	metrics Metrics,
	tracer trace.Tracer,
	maxWorkers int64,
	bufferSize int,
) *bridge {
	return &bridge{
		log:        log,
		metrics:    metrics,
		tracer:     tracer,
		workers:    semaphore.NewWeighted(maxWorkers),
		bufferSize: bufferSize,
	}
}

// acquire reserves a worker. The worker must be released by the caller once
// acquire returns nil.
func (b *bridge) acquire(ctx context.Context) error {
	b.lock.RLock()
	closed := b.closed
	b.lock.RUnlock()
	if closed {
		return ErrClosed
	}

	if err := b.workers.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrWorkerUnavailable, err)
	}
	return nil
}

func (b *bridge) release(op string) {
	b.workers.Release(1)
	b.metrics.WorkerFinished(op)
}

// close causes all later dispatches to fail with ErrClosed. Work already
// dispatched runs to completion.
func (b *bridge) close() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.closed = true
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

type result[T any] struct {
	value T
	err   error
}

// call runs [f] on a worker and waits for its result. If [ctx] is cancelled
// first, call returns immediately and the result of [f] is discarded.
func call[T any](
	ctx context.Context,
	b *bridge,
	op string,
	f func() (T, error),
	opts ...trace.SpanStartOption,
) (T, error) {
	ctx, span := b.tracer.Start(ctx, op, opts...)
	start := time.Now()

	var zero T
	if err := b.acquire(ctx); err != nil {
		b.metrics.OperationCompleted(op, time.Since(start), err)
		endSpan(span, err)
		return zero, err
	}

	done := make(chan result[T], 1)
	b.metrics.WorkerStarted(op)
	go func() {
		defer b.release(op)

		value, err := f()
		b.metrics.OperationCompleted(op, time.Since(start), err)
		done <- result[T]{
			value: value,
			err:   err,
		}
	}()

	select {
	case r := <-done:
		endSpan(span, r.err)
		return r.value, r.err
	case <-ctx.Done():
		err := ctx.Err()
		endSpan(span, err)
		return zero, err
	}
}

// Stream is an ordered sequence of items produced by a worker. At most the
// bridge's buffer size of items are produced ahead of the consumer.
//
// Next must be called before every call to Item. Close must be called once
// the consumer is done with the stream, whether or not it was exhausted.
type Stream[T any] struct {
	items  chan T
	item   T
	cancel context.CancelFunc
	// err is final once [items] is closed.
	err       error
	exhausted bool
	// done is closed once the producer has exited.
	done           chan struct{}
	consumerClosed atomic.Bool
}

// newFailedStream returns an exhausted stream reporting [err].
func newFailedStream[T any](err error) *Stream[T] {
	s := &Stream[T]{
		items:  make(chan T),
		cancel: func() {},
		done:   make(chan struct{}),
		err:    err,
	}
	close(s.items)
	close(s.done)
	return s
}

// Next blocks until the next item is available. It returns false once the
// stream is exhausted, has failed or has been closed by the consumer.
func (s *Stream[T]) Next() bool {
	if s.consumerClosed.Load() {
		s.exhausted = true
		return false
	}
	item, ok := <-s.items
	s.item = item
	if !ok {
		s.exhausted = true
	}
	return ok
}

// Item returns the item read by the last call to Next.
func (s *Stream[T]) Item() T {
	return s.item
}

// Err returns the error that ended the stream, if any. It returns nil until
// Next has returned false, and after the consumer closed the stream.
func (s *Stream[T]) Err() error {
	if !s.exhausted {
		select {
		case <-s.done:
		default:
			return nil
		}
	}
	return s.err
}

// Close stops the producer and waits for it to exit. It is safe to call
// multiple times.
func (s *Stream[T]) Close() {
	s.consumerClosed.Store(true)
	s.cancel()
	<-s.done
}

// stream runs [produce] on a worker. [produce] must hand every item to [send]
// and stop as soon as [send] returns false, which happens once the consumer
// closes the stream or [ctx] is cancelled.
func stream[T any](
	ctx context.Context,
	b *bridge,
	op string,
	produce func(send func(T) bool) error,
	opts ...trace.SpanStartOption,
) *Stream[T] {
	ctx, span := b.tracer.Start(ctx, op, opts...)
	start := time.Now()

	if err := b.acquire(ctx); err != nil {
		b.metrics.OperationCompleted(op, time.Since(start), err)
		endSpan(span, err)
		return newFailedStream[T](err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[T]{
		items:  make(chan T, b.bufferSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	b.metrics.WorkerStarted(op)
	go func() {
		var (
			sent int
			// holding is true while the producer owns a worker.
			holding = true
			// stopped is true once [send] refused an item.
			stopped bool
			err     error
		)
		defer func() {
			s.err = err
			close(s.items)
			cancel()
			if holding {
				b.workers.Release(1)
			}
			b.metrics.WorkerFinished(op)
			b.metrics.OperationCompleted(op, time.Since(start), err)
			endSpan(span, err)
			b.log.Verbo("stream terminated",
				zap.String("op", op),
				zap.Int("items", sent),
				zap.Bool("closedByConsumer", s.consumerClosed.Load()),
				zap.Error(err),
			)
			close(s.done)
		}()

		send := func(item T) bool {
			select {
			case s.items <- item:
				sent++
				b.metrics.ItemStreamed(op)
				return true
			case <-ctx.Done():
				stopped = true
				return false
			default:
			}

			// The buffer is full. The worker is handed back while waiting for
			// the consumer, which may itself be waiting for a worker.
			b.workers.Release(1)
			holding = false
			select {
			case s.items <- item:
			case <-ctx.Done():
				stopped = true
				return false
			}
			sent++
			b.metrics.ItemStreamed(op)

			if err := b.workers.Acquire(ctx, 1); err != nil {
				stopped = true
				return false
			}
			holding = true
			return true
		}
		err = produce(send)

		// Closing the stream is not a failure of the producer, but the
		// cancellation of the caller's context is reported to the consumer
		// if it cut the stream short.
		switch {
		case s.consumerClosed.Load():
			err = nil
		case err == nil && stopped:
			err = ctx.Err()
		}
	}()
	return s
}
