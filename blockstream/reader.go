// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package blockstream implements the buffered sequential streams (L3):
// Reader and Writer scan a contiguous list of disk.BIDs record by record,
// keeping a sliding window of outstanding buffer reads so I/O latency
// overlaps with the consumer's processing of already-landed blocks.
package blockstream

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/xtlgo/xtl/disk"
	"github.com/xtlgo/xtl/pool"
	"github.com/xtlgo/xtl/recordcodec"
)

type inflight struct {
	buf *pool.Buffer
	req *disk.Request
}

// A Reader reads a fixed total number of T records, stored consecutively
// (recordsPerBlock to a block, the final block possibly partial) across an
// ordered list of BIDs. It satisfies the pipeline package's pull-protocol
// Stream[T] interface directly.
type Reader[T any] struct {
	pl              *pool.Pool
	codec           recordcodec.Codec[T]
	bids            []disk.BID
	numRecords      int
	recordsPerBlock int

	queue   []*inflight
	nextBID int

	cur      []T
	curIdx   int
	consumed int // total records yielded so far, across all blocks
}

// NewReader returns a Reader over bids, which together hold exactly
// numRecords records of fixed width codec.Size(). nBuffers outstanding
// block reads are kept in flight at all times (clamped to at least 1).
func NewReader[T any](ctx context.Context, pl *pool.Pool, codec recordcodec.Codec[T], bids []disk.BID, numRecords, nBuffers int) (*Reader[T], error) {
	recordsPerBlock := pl.BlockSize() / codec.Size()
	if recordsPerBlock == 0 {
		return nil, errors.E(errors.Invalid, "blockstream.NewReader", "record size exceeds block size")
	}
	if nBuffers < 1 {
		nBuffers = 1
	}
	r := &Reader[T]{
		pl:              pl,
		codec:           codec,
		bids:            bids,
		numRecords:      numRecords,
		recordsPerBlock: recordsPerBlock,
	}
	for i := 0; i < nBuffers && i < len(bids); i++ {
		if err := r.issue(ctx); err != nil {
			return nil, err
		}
	}
	if err := r.fill(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader[T]) issue(ctx context.Context) error {
	buf, err := r.pl.Steal(ctx)
	if err != nil {
		return err
	}
	req, err := r.pl.Read(ctx, buf, r.bids[r.nextBID])
	if err != nil {
		r.pl.Add(buf)
		return err
	}
	r.queue = append(r.queue, &inflight{buf: buf, req: req})
	r.nextBID++
	return nil
}

// fill loads the next block's records into r.cur once the current block is
// exhausted, keeping the read-ahead window topped up.
func (r *Reader[T]) fill(ctx context.Context) error {
	for r.curIdx >= len(r.cur) {
		if r.consumed >= r.numRecords {
			r.cur = nil
			r.curIdx = 0
			return nil
		}
		if len(r.queue) == 0 {
			return errors.E(errors.Unknown, "blockstream.Reader", "ran out of blocks before numRecords was reached")
		}
		head := r.queue[0]
		r.queue = r.queue[1:]
		if err := head.req.Wait(ctx); err != nil {
			return err
		}
		remaining := r.numRecords - r.consumed
		n := r.recordsPerBlock
		if remaining < n {
			n = remaining
		}
		records := make([]T, n)
		stride := r.codec.Size()
		for i := 0; i < n; i++ {
			records[i] = r.codec.Decode(head.buf.Bytes[i*stride : (i+1)*stride])
		}
		r.pl.Add(head.buf)
		r.cur = records
		r.curIdx = 0
		if r.nextBID < len(r.bids) {
			if err := r.issue(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Empty reports whether every record has been consumed.
func (r *Reader[T]) Empty() bool {
	return r.consumed >= r.numRecords
}

// Peek returns the current record without consuming it. Peek on an empty
// Reader panics, matching the pipeline Stream contract.
func (r *Reader[T]) Peek() T {
	if r.Empty() {
		panic("blockstream: Peek on empty Reader")
	}
	return r.cur[r.curIdx]
}

// Advance consumes the current record and loads the next one, issuing a
// fresh prefetch to keep the window full.
func (r *Reader[T]) Advance(ctx context.Context) error {
	if r.Empty() {
		panic("blockstream: Advance on empty Reader")
	}
	r.curIdx++
	r.consumed++
	return r.fill(ctx)
}

// Close releases every buffer still held by an outstanding prefetch. It is
// only necessary when the Reader is abandoned before EOF.
func (r *Reader[T]) Close(ctx context.Context) error {
	var first error
	for _, f := range r.queue {
		if err := f.req.Wait(ctx); err != nil && first == nil {
			first = err
		}
		r.pl.Add(f.buf)
	}
	r.queue = nil
	return first
}
