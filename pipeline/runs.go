// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/xtlgo/xtl/blockstream"
	"github.com/xtlgo/xtl/diskmanager"
	"github.com/xtlgo/xtl/pool"
	"github.com/xtlgo/xtl/recordcodec"
	"github.com/xtlgo/xtl/sortio"
)

// A RunsCreator accumulates pushed values in memory, spilling a sorted run
// to disk once the accumulated count reaches floor(memoryBudget /
// blockSize) records.
type RunsCreator[T any] struct {
	pl         *pool.Pool
	manager    *diskmanager.Manager
	strategy   diskmanager.Strategy
	codec      recordcodec.Codec[T]
	less       func(a, b T) bool
	maxRecords int

	staging []T
	runs    []sortio.Run[T]
	done    bool
}

// NewRunsCreator returns a RunsCreator that spills a run once its staging
// buffer reaches floor(memoryBudget/blockSize) records (a run is capped in
// terms of block-equivalent count, not record byte size).
func NewRunsCreator[T any](pl *pool.Pool, manager *diskmanager.Manager, strategy diskmanager.Strategy, codec recordcodec.Codec[T], less func(a, b T) bool, memoryBudget, blockSize int) *RunsCreator[T] {
	maxRecords := memoryBudget / blockSize
	if maxRecords < 1 {
		maxRecords = 1
	}
	return &RunsCreator[T]{
		pl:         pl,
		manager:    manager,
		strategy:   strategy,
		codec:      codec,
		less:       less,
		maxRecords: maxRecords,
	}
}

// Push accumulates v, spilling the current staging batch as a sorted run
// once it reaches the creator's memory-budget threshold.
func (c *RunsCreator[T]) Push(ctx context.Context, v T) error {
	if c.done {
		precondition("pipeline.RunsCreator.Push")
	}
	c.staging = append(c.staging, v)
	if len(c.staging) >= c.maxRecords {
		return c.flush(ctx)
	}
	return nil
}

func (c *RunsCreator[T]) flush(ctx context.Context) error {
	if len(c.staging) == 0 {
		return nil
	}
	sort.Slice(c.staging, func(i, j int) bool { return c.less(c.staging[i], c.staging[j]) })
	w := blockstream.NewWriter[T](c.pl, c.manager, c.strategy, c.codec)
	for _, v := range c.staging {
		if err := w.Write(ctx, v); err != nil {
			return err
		}
	}
	bids, n, err := w.Close(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		c.staging = c.staging[:0]
		return nil
	}
	c.runs = append(c.runs, sortio.Run[T]{
		BIDs:        bids,
		SizeRecords: n,
		FirstKey:    c.staging[0],
		LastKey:     c.staging[n-1],
	})
	c.staging = c.staging[:0]
	return nil
}

// Deallocate frees the in-memory staging batch without spilling it,
// discarding any unflushed pushes.
func (c *RunsCreator[T]) Deallocate() {
	c.staging = nil
}

// Result flushes any remaining staged records and returns the finished
// descriptor, consuming the creator: further Push calls panic. CmpID is
// left blank; callers that need comparator-identity checks across
// independently-built Runs can set it on the returned value themselves.
func (c *RunsCreator[T]) Result(ctx context.Context) (*sortio.Runs[T], error) {
	if c.done {
		precondition("pipeline.RunsCreator.Result")
	}
	if err := c.flush(ctx); err != nil {
		return nil, err
	}
	c.done = true
	runs := c.runs
	c.runs = nil
	return &sortio.Runs[T]{Runs: runs}, nil
}

func precondition(op string) {
	panic(errors.E(op, "precondition violation"))
}
