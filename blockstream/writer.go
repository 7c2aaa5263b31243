// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package blockstream

import (
	"context"

	"github.com/xtlgo/xtl/disk"
	"github.com/xtlgo/xtl/diskmanager"
	"github.com/xtlgo/xtl/pool"
	"github.com/xtlgo/xtl/recordcodec"
)

// A Writer appends T records to a freshly allocated, implicit sequence of
// blocks. When a block fills it is handed to the pool's Write; the caller
// retrieves the finished BID list (and exact record count) from Close.
type Writer[T any] struct {
	pl              *pool.Pool
	manager         *diskmanager.Manager
	strategy        diskmanager.Strategy
	codec           recordcodec.Codec[T]
	recordsPerBlock int
	blockSize       int64

	bids  []disk.BID
	count int

	buf    *pool.Buffer
	bufLen int
	reqs   []*disk.Request
}

// NewWriter returns a Writer that allocates its blocks from manager using
// strategy.
func NewWriter[T any](pl *pool.Pool, manager *diskmanager.Manager, strategy diskmanager.Strategy, codec recordcodec.Codec[T]) *Writer[T] {
	return &Writer[T]{
		pl:              pl,
		manager:         manager,
		strategy:        strategy,
		codec:           codec,
		recordsPerBlock: pl.BlockSize() / codec.Size(),
		blockSize:       int64(pl.BlockSize()),
	}
}

// Write appends v, flushing the current block to the pool once it fills.
func (w *Writer[T]) Write(ctx context.Context, v T) error {
	if w.buf == nil {
		buf, err := w.pl.Steal(ctx)
		if err != nil {
			return err
		}
		w.buf = buf
		w.bufLen = 0
	}
	stride := w.codec.Size()
	w.codec.Encode(w.buf.Bytes[w.bufLen*stride:(w.bufLen+1)*stride], v)
	w.bufLen++
	w.count++
	if w.bufLen == w.recordsPerBlock {
		if err := w.flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer[T]) flush(ctx context.Context) error {
	bid, err := w.manager.NewBlock(w.strategy, w.blockSize)
	if err != nil {
		return err
	}
	req, err := w.pl.Write(ctx, w.buf, bid)
	if err != nil {
		return err
	}
	w.bids = append(w.bids, bid)
	w.reqs = append(w.reqs, req)
	w.buf = nil
	w.bufLen = 0
	return nil
}

// Close flushes any partial final block and waits for every outstanding
// write to complete, returning the finished BID list and total record
// count.
func (w *Writer[T]) Close(ctx context.Context) ([]disk.BID, int, error) {
	if w.buf != nil && w.bufLen > 0 {
		if err := w.flush(ctx); err != nil {
			return nil, 0, err
		}
	} else if w.buf != nil {
		w.pl.Add(w.buf)
		w.buf = nil
	}
	for _, req := range w.reqs {
		if err := req.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}
	return w.bids, w.count, nil
}
