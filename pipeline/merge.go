// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"container/heap"
	"context"

	"github.com/xtlgo/xtl/blockstream"
	"github.com/xtlgo/xtl/diskmanager"
	"github.com/xtlgo/xtl/pool"
	"github.com/xtlgo/xtl/recordcodec"
	"github.com/xtlgo/xtl/sortio"
)

// runBuffer wraps one run's buf_istream (a blockstream.Reader) together
// with its run index, used for the ascending-run-index tie-break rule.
type runBuffer[T any] struct {
	reader *blockstream.Reader[T]
	index  int
}

// runHeap is a container/heap of runBuffers ordered by the merger's
// comparator, breaking ties by ascending run index.
type runHeap[T any] struct {
	bufs []*runBuffer[T]
	less func(a, b T) bool
}

func (h *runHeap[T]) Len() int { return len(h.bufs) }

func (h *runHeap[T]) Less(i, j int) bool {
	a, b := h.bufs[i], h.bufs[j]
	av, bv := a.reader.Peek(), b.reader.Peek()
	if h.less(av, bv) {
		return true
	}
	if h.less(bv, av) {
		return false
	}
	return a.index < b.index
}

func (h *runHeap[T]) Swap(i, j int) { h.bufs[i], h.bufs[j] = h.bufs[j], h.bufs[i] }

func (h *runHeap[T]) Push(x interface{}) { h.bufs = append(h.bufs, x.(*runBuffer[T])) }

func (h *runHeap[T]) Pop() interface{} {
	n := len(h.bufs)
	x := h.bufs[n-1]
	h.bufs = h.bufs[:n-1]
	return x
}

// A RunsMerger pulls the k-way merge of a Runs descriptor's runs in order,
// maintaining a container/heap-based loser tree of size k = number of
// still-open runs. It satisfies the Stream[T] pull protocol.
type RunsMerger[T any] struct {
	pl *pool.Pool
	h  *runHeap[T]
}

// NewRunsMerger returns a RunsMerger draining runs in full, honoring the k
// <= memoryBudget/(2*blockSize) constraint by first reducing the run count
// via intermediate merge passes when it is exceeded. The fan-in is never
// below 2, since a one-way pass cannot reduce the run count.
// nBuffersPerRun bounds the read-ahead window each run's buf_istream keeps
// in flight.
func NewRunsMerger[T any](ctx context.Context, pl *pool.Pool, manager *diskmanager.Manager, strategy diskmanager.Strategy, codec recordcodec.Codec[T], less func(a, b T) bool, runs *sortio.Runs[T], memoryBudget, blockSize, nBuffersPerRun int) (*RunsMerger[T], error) {
	maxK := memoryBudget / (2 * blockSize)
	if maxK < 2 {
		maxK = 2
	}
	list := runs.Runs
	for len(list) > maxK {
		reduced, err := mergePass[T](ctx, pl, manager, strategy, codec, less, list, maxK, nBuffersPerRun)
		if err != nil {
			return nil, err
		}
		list = reduced
	}
	return newHeapMerger[T](ctx, pl, codec, less, list, nBuffersPerRun)
}

func newHeapMerger[T any](ctx context.Context, pl *pool.Pool, codec recordcodec.Codec[T], less func(a, b T) bool, list []sortio.Run[T], nBuffersPerRun int) (*RunsMerger[T], error) {
	h := &runHeap[T]{less: less}
	for i, run := range list {
		if run.SizeRecords == 0 {
			continue
		}
		rd, err := blockstream.NewReader[T](ctx, pl, codec, run.BIDs, run.SizeRecords, nBuffersPerRun)
		if err != nil {
			return nil, err
		}
		h.bufs = append(h.bufs, &runBuffer[T]{reader: rd, index: i})
	}
	heap.Init(h)
	return &RunsMerger[T]{pl: pl, h: h}, nil
}

// mergePass reduces list to ceil(len(list)/groupSize) runs by k-way merging
// each consecutive group of up to groupSize runs into a single freshly
// written sorted run. It is used when a run count exceeds the memory-budget-
// derived fan-in limit and must be reduced before a final merge.
func mergePass[T any](ctx context.Context, pl *pool.Pool, manager *diskmanager.Manager, strategy diskmanager.Strategy, codec recordcodec.Codec[T], less func(a, b T) bool, list []sortio.Run[T], groupSize, nBuffersPerRun int) ([]sortio.Run[T], error) {
	var out []sortio.Run[T]
	for start := 0; start < len(list); start += groupSize {
		end := start + groupSize
		if end > len(list) {
			end = len(list)
		}
		group := list[start:end]
		m, err := newHeapMerger[T](ctx, pl, codec, less, group, nBuffersPerRun)
		if err != nil {
			return nil, err
		}
		w := blockstream.NewWriter[T](pl, manager, strategy, codec)
		var first, last T
		n := 0
		for !m.Empty() {
			v := m.Peek()
			if n == 0 {
				first = v
			}
			last = v
			if err := w.Write(ctx, v); err != nil {
				return nil, err
			}
			n++
			if err := m.Advance(ctx); err != nil {
				return nil, err
			}
		}
		bids, count, err := w.Close(ctx)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			out = append(out, sortio.Run[T]{BIDs: bids, SizeRecords: count, FirstKey: first, LastKey: last})
		}
	}
	return out, nil
}

// Empty reports whether every run has been fully drained.
func (m *RunsMerger[T]) Empty() bool { return m.h.Len() == 0 }

// Peek returns the smallest remaining element across all open runs.
func (m *RunsMerger[T]) Peek() T {
	if m.Empty() {
		panic("pipeline: Peek on empty RunsMerger")
	}
	return m.h.bufs[0].reader.Peek()
}

// Advance consumes the smallest remaining element, refilling its run's
// buf_istream and reinserting it into the heap, or dropping it once its run
// is exhausted.
func (m *RunsMerger[T]) Advance(ctx context.Context) error {
	if m.Empty() {
		panic("pipeline: Advance on empty RunsMerger")
	}
	top := m.h.bufs[0]
	if err := top.reader.Advance(ctx); err != nil {
		return err
	}
	if top.reader.Empty() {
		heap.Remove(m.h, 0)
	} else {
		heap.Fix(m.h, 0)
	}
	return nil
}
