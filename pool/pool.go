// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pool

import (
	"context"
	"sync"

	"github.com/grailbio/base/log"
	"github.com/xtlgo/xtl/disk"
	"github.com/xtlgo/xtl/internal/ctxsync"
)

// Driver selects the BID's disk driver for the pool to issue I/O against.
// A *diskmanager.Manager satisfies this directly.
type Driver interface {
	Driver(disk int) disk.Driver
}

type prefetchSlot struct {
	buf *Buffer
	req *disk.Request
}

// A Pool owns a fixed set of block-sized buffers on behalf of a single
// container (a paged vector, a block sequence, or a sort operator). It is
// not safe for concurrent use by multiple goroutines: the pool is
// single-writer from the calling goroutine but internally issues async I/O
// on the driver's own goroutines.
type Pool struct {
	manager   Driver
	blockSize int

	mu   sync.Mutex
	cond *ctxsync.Cond

	writeFree     []*Buffer
	writeCap      int
	writeInFlight int // count of buffers out for an async Write, not yet reclaimed

	prefetch     map[disk.BID]*prefetchSlot
	prefetchFree []*Buffer
	prefetchCap  int
}

// New returns a Pool with w write-back buffers and p prefetch buffers, each
// blockSize bytes, issuing I/O through manager. A w below 2 is raised to 2.
func New(manager Driver, blockSize, w, p int) *Pool {
	if w < 2 {
		w = 2
	}
	pl := &Pool{manager: manager, blockSize: blockSize}
	pl.cond = ctxsync.NewCond(&pl.mu)
	for i := 0; i < w; i++ {
		pl.writeFree = append(pl.writeFree, &Buffer{Bytes: make([]byte, blockSize)})
	}
	pl.writeCap = w
	for i := 0; i < p; i++ {
		pl.prefetchFree = append(pl.prefetchFree, &Buffer{Bytes: make([]byte, blockSize)})
	}
	pl.prefetchCap = p
	pl.prefetch = make(map[disk.BID]*prefetchSlot)
	return pl
}

// BlockSize returns the fixed size, in bytes, of every buffer the pool
// hands out.
func (p *Pool) BlockSize() int { return p.blockSize }

// Steal returns an unused write-back buffer, blocking until one is
// available if every buffer is currently in flight or held by another
// caller. The returned buffer owns no pending I/O.
func (p *Pool) Steal(ctx context.Context) (*Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.cond.WaitUntil(ctx, func() bool { return len(p.writeFree) > 0 }); err != nil {
		return nil, err
	}
	n := len(p.writeFree)
	buf := p.writeFree[n-1]
	p.writeFree = p.writeFree[:n-1]
	return buf, nil
}

// Add returns buf to the free pool.
func (p *Pool) Add(buf *Buffer) {
	p.mu.Lock()
	p.writeFree = append(p.writeFree, buf)
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Write schedules an asynchronous write of buf to bid. The pool extends
// buf's lifetime until the write completes and reclaims it into the free
// pool automatically; callers must not call Add for a buffer passed to
// Write.
func (p *Pool) Write(ctx context.Context, buf *Buffer, bid disk.BID) (*disk.Request, error) {
	req, err := p.manager.Driver(bid.Disk).AWrite(ctx, buf.Bytes, bid.Offset)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.writeInFlight++
	p.mu.Unlock()
	go func() {
		// The buffer's backing bytes must not be reused until the write
		// completes; we wait on a background goroutine so Write itself
		// returns immediately, matching the pool's overlap-I/O-with-
		// -computation contract.
		if err := req.Wait(context.Background()); err != nil {
			log.Error.Printf("pool: write to %+v failed: %v", bid, err)
		}
		p.mu.Lock()
		p.writeInFlight--
		p.writeFree = append(p.writeFree, buf)
		p.cond.Broadcast()
		p.mu.Unlock()
	}()
	return req, nil
}

// Read schedules an asynchronous read of bid into buf. If a prior Hint for
// the same BID caused it to be prefetched into an internal buffer, Read
// instead swaps that buffer's contents with buf's (an O(1) pointer swap)
// and returns the prefetch's own in-flight request, skipping a redundant
// I/O.
func (p *Pool) Read(ctx context.Context, buf *Buffer, bid disk.BID) (*disk.Request, error) {
	p.mu.Lock()
	if slot, ok := p.prefetch[bid]; ok {
		delete(p.prefetch, bid)
		buf.Bytes, slot.buf.Bytes = slot.buf.Bytes, buf.Bytes
		p.prefetchFree = append(p.prefetchFree, slot.buf)
		p.cond.Broadcast()
		p.mu.Unlock()
		return slot.req, nil
	}
	p.mu.Unlock()
	return p.manager.Driver(bid.Disk).ARead(ctx, buf.Bytes, bid.Offset)
}

// Hint is a best-effort prefetch signal: if a prefetch buffer is free, a
// read for bid begins immediately; otherwise the hint is dropped silently.
// Hinting a BID that is already being prefetched is a no-op.
func (p *Pool) Hint(ctx context.Context, bid disk.BID) {
	p.mu.Lock()
	if _, ok := p.prefetch[bid]; ok {
		p.mu.Unlock()
		return
	}
	if len(p.prefetchFree) == 0 {
		p.mu.Unlock()
		return
	}
	n := len(p.prefetchFree)
	buf := p.prefetchFree[n-1]
	p.prefetchFree = p.prefetchFree[:n-1]
	p.mu.Unlock()

	req, err := p.manager.Driver(bid.Disk).ARead(ctx, buf.Bytes, bid.Offset)
	p.mu.Lock()
	if err != nil {
		log.Debug.Printf("pool: hint for %+v dropped: %v", bid, err)
		p.prefetchFree = append(p.prefetchFree, buf)
		p.mu.Unlock()
		return
	}
	p.prefetch[bid] = &prefetchSlot{buf: buf, req: req}
	p.mu.Unlock()
}

// ResizeWrite grows or shrinks the write-back buffer count to n. Shrinking
// blocks until enough buffers have returned to the free pool (i.e. their
// write requests, if any, have quiesced).
func (p *Pool) ResizeWrite(ctx context.Context, n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > p.writeCap {
		for i := p.writeCap; i < n; i++ {
			p.writeFree = append(p.writeFree, &Buffer{Bytes: make([]byte, p.blockSize)})
		}
		p.writeCap = n
		p.cond.Broadcast()
		return nil
	}
	shrink := p.writeCap - n
	if err := p.cond.WaitUntil(ctx, func() bool { return len(p.writeFree) >= shrink }); err != nil {
		return err
	}
	p.writeFree = p.writeFree[:len(p.writeFree)-shrink]
	p.writeCap = n
	return nil
}

// ResizePrefetch grows or shrinks the prefetch buffer count to n. Shrinking
// blocks until enough prefetch buffers are free; outstanding prefetches
// are left to complete and are consumed normally by a subsequent Read, but
// do not count against the new, smaller capacity once they are.
func (p *Pool) ResizePrefetch(ctx context.Context, n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > p.prefetchCap {
		for i := p.prefetchCap; i < n; i++ {
			p.prefetchFree = append(p.prefetchFree, &Buffer{Bytes: make([]byte, p.blockSize)})
		}
		p.prefetchCap = n
		p.cond.Broadcast()
		return nil
	}
	shrink := p.prefetchCap - n
	if err := p.cond.WaitUntil(ctx, func() bool { return len(p.prefetchFree) >= shrink }); err != nil {
		return err
	}
	p.prefetchFree = p.prefetchFree[:len(p.prefetchFree)-shrink]
	p.prefetchCap = n
	return nil
}

// Stats reports the pool's current bookkeeping, for tests verifying the
// pool-conservation invariant (free + in-flight + stolen == capacity).
type Stats struct {
	WriteCapacity, WriteFree, WriteInFlight int
	PrefetchCapacity, PrefetchFree, PrefetchActive int
}

// Stats returns a snapshot of the pool's buffer accounting.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		WriteCapacity:    p.writeCap,
		WriteFree:        len(p.writeFree),
		WriteInFlight:    p.writeInFlight,
		PrefetchCapacity: p.prefetchCap,
		PrefetchFree:     len(p.prefetchFree),
		PrefetchActive:   len(p.prefetch),
	}
}
