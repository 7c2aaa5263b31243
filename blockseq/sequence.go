// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package blockseq implements the double-ended block sequence (L4b): a
// deque of fixed-width records backed by two memory-resident end buffers
// (front and back) plus a deque of fully spilled blocks in between. Pushes
// and pops rebalance between the two resident buffers before spilling to
// disk, so a sequence that never exceeds two blocks' worth of records
// never touches storage at all.
package blockseq

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/xtlgo/xtl/disk"
	"github.com/xtlgo/xtl/diskmanager"
	"github.com/xtlgo/xtl/pool"
	"github.com/xtlgo/xtl/recordcodec"
)

// A Sequence is a double-ended queue of T, spilling to disk once more than
// two blocks' worth of records are resident.
type Sequence[T any] struct {
	pl              *pool.Pool
	manager         *diskmanager.Manager
	strategy        diskmanager.Strategy
	codec           recordcodec.Codec[T]
	recordsPerBlock int
	blockSize       int64
	prefetchWindow  int

	// front holds the earliest resident elements, right-aligned: valid
	// data occupies front[recordsPerBlock-frontLen : recordsPerBlock].
	front    []T
	frontLen int
	// back holds the latest resident elements, left-aligned: valid data
	// occupies back[0:backLen].
	back    []T
	backLen int

	// bids are fully spilled blocks strictly between front and back, in
	// sequence order (bids[0] immediately follows front, bids[len-1]
	// immediately precedes back).
	bids []disk.BID

	n int
}

// New returns an empty Sequence. prefetchWindow bounds how many spilled
// blocks near an active end are kept hinted into the pool's prefetch
// slots at once.
func New[T any](pl *pool.Pool, manager *diskmanager.Manager, strategy diskmanager.Strategy, codec recordcodec.Codec[T], prefetchWindow int) *Sequence[T] {
	if prefetchWindow < 0 {
		prefetchWindow = 0
	}
	return &Sequence[T]{
		pl:              pl,
		manager:         manager,
		strategy:        strategy,
		codec:           codec,
		recordsPerBlock: pl.BlockSize() / codec.Size(),
		blockSize:       int64(pl.BlockSize()),
		prefetchWindow:  prefetchWindow,
	}
}

// Len returns the number of elements currently in the sequence.
func (s *Sequence[T]) Len() int { return s.n }

// Empty reports whether the sequence holds no elements.
func (s *Sequence[T]) Empty() bool { return s.n == 0 }

func precondition(op string) {
	panic(errors.E(op, "precondition violation"))
}

// PushFront inserts v as the new first element.
func (s *Sequence[T]) PushFront(ctx context.Context, v T) error {
	R := s.recordsPerBlock
	if s.front != nil && s.frontLen < R {
		s.front[R-s.frontLen-1] = v
		s.frontLen++
		s.n++
		return nil
	}
	switch {
	case s.n == 0:
		s.front = make([]T, R)
	case len(s.bids) == 0 && s.n < 2*R:
		if s.front == nil {
			s.front = make([]T, R)
		}
		if s.back == nil {
			s.back = make([]T, R)
		}
		newFrontLen := s.n / 2
		s.repack(newFrontLen, s.n-newFrontLen)
	default:
		if err := s.spillFront(ctx); err != nil {
			return err
		}
	}
	s.front[R-s.frontLen-1] = v
	s.frontLen++
	s.n++
	return nil
}

// PushBack inserts v as the new last element.
func (s *Sequence[T]) PushBack(ctx context.Context, v T) error {
	R := s.recordsPerBlock
	if s.back != nil && s.backLen < R {
		s.back[s.backLen] = v
		s.backLen++
		s.n++
		return nil
	}
	switch {
	case s.n == 0:
		s.back = make([]T, R)
	case len(s.bids) == 0 && s.n < 2*R:
		if s.front == nil {
			s.front = make([]T, R)
		}
		if s.back == nil {
			s.back = make([]T, R)
		}
		newBackLen := s.n / 2
		s.repack(s.n-newBackLen, newBackLen)
	default:
		if err := s.spillBack(ctx); err != nil {
			return err
		}
	}
	s.back[s.backLen] = v
	s.backLen++
	s.n++
	return nil
}

// repack redistributes the currently resident front+back elements (no
// BIDs present) into the given lengths, both assumed <= recordsPerBlock
// and summing to the current size. This is the rebalancing step: "copying
// elements between the two still-memory-resident ends" so that a push has
// room without spilling to disk.
func (s *Sequence[T]) repack(newFrontLen, newBackLen int) {
	R := s.recordsPerBlock
	all := make([]T, 0, s.n)
	if s.frontLen > 0 {
		all = append(all, s.front[R-s.frontLen:]...)
	}
	if s.backLen > 0 {
		all = append(all, s.back[:s.backLen]...)
	}
	copy(s.front[R-newFrontLen:], all[:newFrontLen])
	copy(s.back[:newBackLen], all[newFrontLen:])
	s.frontLen = newFrontLen
	s.backLen = newBackLen
}

func (s *Sequence[T]) spillFront(ctx context.Context) error {
	bid, err := s.writeBlock(ctx, s.front)
	if err != nil {
		return err
	}
	s.bids = append(s.bids, disk.BID{})
	copy(s.bids[1:], s.bids)
	s.bids[0] = bid
	if len(s.bids) <= s.prefetchWindow {
		s.pl.Hint(ctx, bid)
	}
	s.front = make([]T, s.recordsPerBlock)
	s.frontLen = 0
	return nil
}

func (s *Sequence[T]) spillBack(ctx context.Context) error {
	bid, err := s.writeBlock(ctx, s.back)
	if err != nil {
		return err
	}
	s.bids = append(s.bids, bid)
	if len(s.bids) <= s.prefetchWindow {
		s.pl.Hint(ctx, bid)
	}
	s.back = make([]T, s.recordsPerBlock)
	s.backLen = 0
	return nil
}

func (s *Sequence[T]) writeBlock(ctx context.Context, records []T) (disk.BID, error) {
	buf, err := s.pl.Steal(ctx)
	if err != nil {
		return disk.BID{}, err
	}
	stride := s.codec.Size()
	for i, v := range records {
		s.codec.Encode(buf.Bytes[i*stride:(i+1)*stride], v)
	}
	bid, err := s.manager.NewBlock(s.strategy, s.blockSize)
	if err != nil {
		s.pl.Add(buf)
		return disk.BID{}, err
	}
	req, err := s.pl.Write(ctx, buf, bid)
	if err != nil {
		return disk.BID{}, err
	}
	// The simple syscall/memory drivers serialize I/O on a single mutex
	// with no per-block ordering guarantee across goroutines, so a
	// following read of this same BID could otherwise race the write;
	// waiting here keeps the BID deque's contents always well-defined.
	if err := req.Wait(ctx); err != nil {
		return disk.BID{}, err
	}
	return bid, nil
}

// ensureFrontResident refills the front buffer from the BID deque (or, if
// no BIDs remain, by promoting the back buffer) when the front buffer has
// been fully drained. It is shared by Front and PopFront.
func (s *Sequence[T]) ensureFrontResident(ctx context.Context) error {
	if s.front != nil && s.frontLen > 0 {
		return nil
	}
	if len(s.bids) > 0 {
		bid := s.bids[0]
		s.bids = s.bids[1:]
		buf, err := s.pl.Steal(ctx)
		if err != nil {
			return err
		}
		req, err := s.pl.Read(ctx, buf, bid)
		if err != nil {
			s.pl.Add(buf)
			return err
		}
		if err := req.Wait(ctx); err != nil {
			return err
		}
		records := make([]T, s.recordsPerBlock)
		stride := s.codec.Size()
		for i := range records {
			records[i] = s.codec.Decode(buf.Bytes[i*stride : (i+1)*stride])
		}
		s.pl.Add(buf)
		s.manager.DeleteBlock(bid)
		s.front = records
		s.frontLen = s.recordsPerBlock
		for i := 0; i < s.prefetchWindow && i < len(s.bids); i++ {
			s.pl.Hint(ctx, s.bids[i])
		}
		return nil
	}
	// No BIDs: merge the two resident buffers back into one by dropping
	// the exhausted front end, moving the back buffer's elements into the
	// front buffer's right-aligned layout.
	R := s.recordsPerBlock
	front := make([]T, R)
	copy(front[R-s.backLen:], s.back[:s.backLen])
	s.front, s.frontLen = front, s.backLen
	s.back, s.backLen = nil, 0
	return nil
}

func (s *Sequence[T]) ensureBackResident(ctx context.Context) error {
	if s.back != nil && s.backLen > 0 {
		return nil
	}
	if len(s.bids) > 0 {
		last := len(s.bids) - 1
		bid := s.bids[last]
		s.bids = s.bids[:last]
		buf, err := s.pl.Steal(ctx)
		if err != nil {
			return err
		}
		req, err := s.pl.Read(ctx, buf, bid)
		if err != nil {
			s.pl.Add(buf)
			return err
		}
		if err := req.Wait(ctx); err != nil {
			return err
		}
		records := make([]T, s.recordsPerBlock)
		stride := s.codec.Size()
		for i := range records {
			records[i] = s.codec.Decode(buf.Bytes[i*stride : (i+1)*stride])
		}
		s.pl.Add(buf)
		s.manager.DeleteBlock(bid)
		s.back = records
		s.backLen = s.recordsPerBlock
		for i := 0; i < s.prefetchWindow && len(s.bids)-1-i >= 0; i++ {
			s.pl.Hint(ctx, s.bids[len(s.bids)-1-i])
		}
		return nil
	}
	R := s.recordsPerBlock
	back := make([]T, R)
	copy(back, s.front[R-s.frontLen:])
	s.back, s.backLen = back, s.frontLen
	s.front, s.frontLen = nil, 0
	return nil
}

// Front returns the first element without removing it.
func (s *Sequence[T]) Front(ctx context.Context) (T, error) {
	var zero T
	if s.n == 0 {
		precondition("blockseq.Front")
	}
	if err := s.ensureFrontResident(ctx); err != nil {
		return zero, err
	}
	return s.front[s.recordsPerBlock-s.frontLen], nil
}

// Back returns the last element without removing it.
func (s *Sequence[T]) Back(ctx context.Context) (T, error) {
	var zero T
	if s.n == 0 {
		precondition("blockseq.Back")
	}
	if err := s.ensureBackResident(ctx); err != nil {
		return zero, err
	}
	return s.back[s.backLen-1], nil
}

// PopFront removes and returns the first element.
func (s *Sequence[T]) PopFront(ctx context.Context) (T, error) {
	var zero T
	if s.n == 0 {
		precondition("blockseq.PopFront")
	}
	if err := s.ensureFrontResident(ctx); err != nil {
		return zero, err
	}
	pos := s.recordsPerBlock - s.frontLen
	v := s.front[pos]
	s.frontLen--
	s.n--
	if s.n == 0 {
		s.front, s.back = nil, nil
		s.frontLen, s.backLen = 0, 0
	}
	return v, nil
}

// PopBack removes and returns the last element.
func (s *Sequence[T]) PopBack(ctx context.Context) (T, error) {
	var zero T
	if s.n == 0 {
		precondition("blockseq.PopBack")
	}
	if err := s.ensureBackResident(ctx); err != nil {
		return zero, err
	}
	s.backLen--
	v := s.back[s.backLen]
	s.n--
	if s.n == 0 {
		s.front, s.back = nil, nil
		s.frontLen, s.backLen = 0, 0
	}
	return v, nil
}

// Swap exchanges the entire contents of s and other in O(1).
func (s *Sequence[T]) Swap(other *Sequence[T]) {
	*s, *other = *other, *s
}

// Close frees every block the sequence still owns, standing in for a
// destructor since Go has none.
func (s *Sequence[T]) Close() {
	s.manager.DeleteBlocks(s.bids)
	s.bids = nil
	s.front, s.back = nil, nil
	s.frontLen, s.backLen, s.n = 0, 0, 0
}
