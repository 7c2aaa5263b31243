// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pagedvector

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/xtlgo/xtl/blockstream"
	"github.com/xtlgo/xtl/disk"
)

// BufReader returns a blockstream.Reader scanning v's records in order,
// bypassing the page cache entirely. Used for whole-vector scans (sorting,
// checksumming) where random access locality doesn't matter and the cache
// would only add overhead.
func BufReader[T any](ctx context.Context, v *Vector[T], nBuffers int) (*blockstream.Reader[T], error) {
	return blockstream.NewReader[T](ctx, v.pl, v.codec, v.bids, v.n, nBuffers)
}

// RangeReader adapts [begin, end) of a Vector to the pull-protocol Stream
// shape (Empty/Peek/Advance) by trimming a blockstream.Reader over the
// covering blocks down to the requested record range. It is the vector-
// backed counterpart to an in-memory slice stream: BufReaderRange is the
// bridge the pipeline package's Streamify operator pulls through.
type RangeReader[T any] struct {
	r         *blockstream.Reader[T]
	remaining int
}

// BufReaderRange returns a RangeReader over v's records in [begin, end),
// reading through the buffered sequential path rather than the page cache.
func BufReaderRange[T any](ctx context.Context, v *Vector[T], begin, end, nBuffers int) (*RangeReader[T], error) {
	if begin < 0 || end > v.n || begin > end {
		return nil, errors.E(errors.Invalid, "pagedvector.BufReaderRange", "range out of bounds")
	}
	if begin == end {
		return &RangeReader[T]{}, nil
	}
	rpb := v.recordsPerBlock
	firstBlock := begin / rpb
	lastBlock := (end - 1) / rpb
	bids := v.bids[firstBlock : lastBlock+1]
	total := len(bids) * rpb
	if lastBlock == len(v.bids)-1 {
		total = v.n - firstBlock*rpb
	}
	r, err := blockstream.NewReader[T](ctx, v.pl, v.codec, bids, total, nBuffers)
	if err != nil {
		return nil, err
	}
	skip := begin - firstBlock*rpb
	for i := 0; i < skip; i++ {
		if err := r.Advance(ctx); err != nil {
			return nil, err
		}
	}
	return &RangeReader[T]{r: r, remaining: end - begin}, nil
}

// Empty reports whether every record in the range has been consumed.
func (s *RangeReader[T]) Empty() bool { return s.remaining <= 0 }

// Peek returns the current record without consuming it.
func (s *RangeReader[T]) Peek() T {
	if s.Empty() {
		panic("pagedvector: Peek on empty RangeReader")
	}
	return s.r.Peek()
}

// Advance consumes the current record and loads the next one.
func (s *RangeReader[T]) Advance(ctx context.Context) error {
	if s.Empty() {
		panic("pagedvector: Advance on empty RangeReader")
	}
	s.remaining--
	return s.r.Advance(ctx)
}

// BufWriter returns a blockstream.Writer allocating blocks the same way v
// does, for building a fresh block run (e.g. the sorted output of a scan)
// that can later be adopted via FromBIDs.
func BufWriter[T any](v *Vector[T]) *blockstream.Writer[T] {
	return blockstream.NewWriter[T](v.pl, v.manager, v.strategy, v.codec)
}

// FromBIDs adopts a finished block run (bids, n records) as v's storage,
// replacing whatever v held before without copying any records. Any blocks
// v previously owned that are not part of bids are freed.
func (v *Vector[T]) FromBIDs(bids []disk.BID, n int) {
	old := v.bids
	v.bids = bids
	v.n = n
	v.slots = make([]pageSlot[T], len(v.slots))
	v.lookup = make(map[int]int, len(v.slots))
	v.lruOrder = nil
	keep := make(map[disk.BID]bool, len(bids))
	for _, b := range bids {
		keep[b] = true
	}
	var freed []disk.BID
	for _, b := range old {
		if !keep[b] {
			freed = append(freed, b)
		}
	}
	v.manager.DeleteBlocks(freed)
}
