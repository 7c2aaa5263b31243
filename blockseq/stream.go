// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package blockseq

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/xtlgo/xtl/blockstream"
)

// A Stream reads a Sequence's elements in order without mutating it,
// satisfying the pipeline package's pull-protocol Stream[T] interface.
type Stream[T any] struct {
	frontTail  []T
	frontIdx   int
	bidsReader *blockstream.Reader[T]
	backTail   []T
	backIdx    int
	phase      int // 0=front, 1=bids, 2=back, 3=done
}

func (s *Stream[T]) normalize() {
	for {
		switch s.phase {
		case 0:
			if s.frontIdx < len(s.frontTail) {
				return
			}
			s.phase = 1
		case 1:
			if s.bidsReader != nil && !s.bidsReader.Empty() {
				return
			}
			s.phase = 2
		case 2:
			if s.backIdx < len(s.backTail) {
				return
			}
			s.phase = 3
			return
		default:
			return
		}
	}
}

// Empty reports whether every element has been consumed.
func (s *Stream[T]) Empty() bool {
	s.normalize()
	return s.phase == 3
}

// Peek returns the current element without consuming it.
func (s *Stream[T]) Peek() T {
	s.normalize()
	switch s.phase {
	case 0:
		return s.frontTail[s.frontIdx]
	case 1:
		return s.bidsReader.Peek()
	case 2:
		return s.backTail[s.backIdx]
	}
	panic("blockseq: Peek on empty Stream")
}

// Advance consumes the current element.
func (s *Stream[T]) Advance(ctx context.Context) error {
	s.normalize()
	switch s.phase {
	case 0:
		s.frontIdx++
		return nil
	case 1:
		return s.bidsReader.Advance(ctx)
	case 2:
		s.backIdx++
		return nil
	}
	panic("blockseq: Advance on empty Stream")
}

// GetStream returns a Stream over every element from the first to the
// last, in order.
func (s *Sequence[T]) GetStream(ctx context.Context) (*Stream[T], error) {
	return s.GetStreamAt(ctx, 0)
}

// GetStreamAt returns a Stream starting at logical offset, locating it
// directly in the front buffer, the back buffer, or the BID deque as
// appropriate without disturbing the sequence's own state.
func (s *Sequence[T]) GetStreamAt(ctx context.Context, offset int) (*Stream[T], error) {
	if offset < 0 || offset > s.n {
		return nil, errors.E(errors.Invalid, "blockseq.GetStreamAt", "offset out of range")
	}
	R := s.recordsPerBlock
	st := &Stream[T]{}
	pos := offset

	// Front: included in full unless offset lands inside it, in which
	// case only its tail from offset onward is included.
	if pos < s.frontLen {
		st.frontTail = append([]T(nil), s.front[R-s.frontLen+pos:R]...)
		pos = 0
	} else {
		pos -= s.frontLen
	}

	// BIDs: included in full unless offset lands inside them (only
	// possible when the front contributed nothing above, i.e. pos is
	// still counting from the start of the BID region).
	bidsRecords := len(s.bids) * R
	if bidsRecords > 0 {
		startBlock := 0
		within := 0
		if pos > 0 && pos < bidsRecords {
			startBlock = pos / R
			within = pos % R
		} else if pos >= bidsRecords {
			startBlock = len(s.bids)
		}
		if startBlock < len(s.bids) {
			remaining := bidsRecords - startBlock*R
			rd, err := blockstream.NewReader[T](ctx, s.pl, s.codec, s.bids[startBlock:], remaining, s.prefetchWindow+1)
			if err != nil {
				return nil, err
			}
			for i := 0; i < within; i++ {
				if err := rd.Advance(ctx); err != nil {
					return nil, err
				}
			}
			st.bidsReader = rd
		}
	}
	if pos < bidsRecords {
		pos = 0
	} else {
		pos -= bidsRecords
	}

	// Back: included in full unless offset lands inside it.
	if pos <= s.backLen {
		st.backTail = append([]T(nil), s.back[pos:s.backLen]...)
	}
	return st, nil
}

// ReverseStream reads a Sequence's elements from last to first, loading
// spilled blocks one at a time (no read-ahead window, unlike the forward
// Stream) since reverse scans are a secondary access pattern in this
// container's intended use.
type ReverseStream[T any] struct {
	seq      *Sequence[T]
	backTail []T // remaining back elements, consumed from the end
	bidIdx   int // next bids index to load, walking backward
	cur      []T // currently loaded block, consumed from the end
	curIdx   int
	frontTail []T // remaining front elements, consumed from the end
	phase    int // 0=back, 1=bids, 2=front, 3=done
}

// GetReverseStream returns a ReverseStream over every element from the
// last to the first.
func (s *Sequence[T]) GetReverseStream() *ReverseStream[T] {
	rs := &ReverseStream[T]{seq: s}
	if s.backLen > 0 {
		rs.backTail = append([]T(nil), s.back[:s.backLen]...)
	}
	rs.bidIdx = len(s.bids) - 1
	if s.frontLen > 0 {
		rs.frontTail = append([]T(nil), s.front[s.recordsPerBlock-s.frontLen:]...)
	}
	return rs
}

func (rs *ReverseStream[T]) loadPrevBlock(ctx context.Context) error {
	bid := rs.seq.bids[rs.bidIdx]
	rs.bidIdx--
	buf, err := rs.seq.pl.Steal(ctx)
	if err != nil {
		return err
	}
	req, err := rs.seq.pl.Read(ctx, buf, bid)
	if err != nil {
		rs.seq.pl.Add(buf)
		return err
	}
	if err := req.Wait(ctx); err != nil {
		return err
	}
	records := make([]T, rs.seq.recordsPerBlock)
	stride := rs.seq.codec.Size()
	for i := range records {
		records[i] = rs.seq.codec.Decode(buf.Bytes[i*stride : (i+1)*stride])
	}
	rs.seq.pl.Add(buf)
	rs.cur = records
	rs.curIdx = len(records) - 1
	return nil
}

func (rs *ReverseStream[T]) normalize(ctx context.Context) error {
	for {
		switch rs.phase {
		case 0:
			if len(rs.backTail) > 0 {
				return nil
			}
			rs.phase = 1
		case 1:
			if rs.cur != nil && rs.curIdx >= 0 {
				return nil
			}
			if rs.bidIdx < 0 {
				rs.phase = 2
				continue
			}
			if err := rs.loadPrevBlock(ctx); err != nil {
				return err
			}
		case 2:
			if len(rs.frontTail) > 0 {
				return nil
			}
			rs.phase = 3
			return nil
		default:
			return nil
		}
	}
}

// Empty reports whether every element has been consumed.
func (rs *ReverseStream[T]) Empty(ctx context.Context) bool {
	if err := rs.normalize(ctx); err != nil {
		return true
	}
	return rs.phase == 3
}

// Peek returns the current (logically last-remaining) element.
func (rs *ReverseStream[T]) Peek(ctx context.Context) T {
	_ = rs.normalize(ctx)
	switch rs.phase {
	case 0:
		return rs.backTail[len(rs.backTail)-1]
	case 1:
		return rs.cur[rs.curIdx]
	case 2:
		return rs.frontTail[len(rs.frontTail)-1]
	}
	panic("blockseq: Peek on empty ReverseStream")
}

// Advance consumes the current element.
func (rs *ReverseStream[T]) Advance(ctx context.Context) error {
	if err := rs.normalize(ctx); err != nil {
		return err
	}
	switch rs.phase {
	case 0:
		rs.backTail = rs.backTail[:len(rs.backTail)-1]
		return nil
	case 1:
		rs.curIdx--
		return nil
	case 2:
		rs.frontTail = rs.frontTail[:len(rs.frontTail)-1]
		return nil
	}
	panic("blockseq: Advance on empty ReverseStream")
}
