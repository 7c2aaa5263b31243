// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"

	"github.com/xtlgo/xtl/diskmanager"
	"github.com/xtlgo/xtl/pool"
	"github.com/xtlgo/xtl/recordcodec"
)

// sortStream wraps the RunsMerger produced by draining input through a
// RunsCreator: by the time a sortStream exists, the sort is already built
// and merger is ready to pull from.
type sortStream[T any] struct {
	merger *RunsMerger[T]
}

// Sort drains input in full, spilling runs of at most
// floor(memoryBudget/blockSize) records and merging them with a fan-in
// bounded by memoryBudget/(2*blockSize), and returns a Stream yielding the
// result in non-decreasing order under less. Unlike the other operators in
// this package, Sort takes a context and returns an error directly: the
// Stream pull protocol's Empty has no error return, so a failure during run
// creation or merge setup (disk exhaustion, a short read) must be reported
// before a Stream value exists at all, rather than smuggled through Empty
// as a false "no elements".
func Sort[T any](ctx context.Context, input Stream[T], pl *pool.Pool, manager *diskmanager.Manager, strategy diskmanager.Strategy, codec recordcodec.Codec[T], less func(a, b T) bool, memoryBudget, blockSize int) (Stream[T], error) {
	creator := NewRunsCreator[T](pl, manager, strategy, codec, less, memoryBudget, blockSize)
	for !input.Empty() {
		v := input.Peek()
		if err := creator.Push(ctx, v); err != nil {
			return nil, err
		}
		if err := input.Advance(ctx); err != nil {
			return nil, err
		}
	}
	runs, err := creator.Result(ctx)
	if err != nil {
		return nil, err
	}
	m, err := NewRunsMerger[T](ctx, pl, manager, strategy, codec, less, runs, memoryBudget, blockSize, 2)
	if err != nil {
		return nil, err
	}
	return &sortStream[T]{merger: m}, nil
}

func (s *sortStream[T]) Empty() bool { return s.merger.Empty() }

func (s *sortStream[T]) Peek() T { return s.merger.Peek() }

func (s *sortStream[T]) Advance(ctx context.Context) error { return s.merger.Advance(ctx) }
