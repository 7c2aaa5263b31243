// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package sacheck verifies a computed suffix array against its source text
// using the doubling-based triple check from the DC3 reference
// implementation: sort (index, SA[i]) pairs to recover the inverse suffix
// array, build (ISA[i], T[i], ISA[i+1]) triples, sort those by ISA[i], and
// confirm the resulting (char, next-rank) sequence is non-decreasing.
package sacheck

import (
	"context"
	"encoding/binary"

	"github.com/grailbio/base/errors"
	"github.com/xtlgo/xtl/diskmanager"
	"github.com/xtlgo/xtl/pipeline"
	"github.com/xtlgo/xtl/pool"
)

var le = binary.LittleEndian

type isaPair struct {
	I  uint64 // original text index
	SA uint64 // SA[I]
}

type pairCodec struct{}

func (pairCodec) Size() int { return 16 }

func (pairCodec) Encode(buf []byte, v isaPair) {
	le.PutUint64(buf[0:8], v.I)
	le.PutUint64(buf[8:16], v.SA)
}

func (pairCodec) Decode(buf []byte) isaPair {
	return isaPair{I: le.Uint64(buf[0:8]), SA: le.Uint64(buf[8:16])}
}

type triple struct {
	ISAPrev uint64
	Char    uint64
	ISANext uint64
}

type tripleCodec struct{}

func (tripleCodec) Size() int { return 24 }

func (tripleCodec) Encode(buf []byte, v triple) {
	le.PutUint64(buf[0:8], v.ISAPrev)
	le.PutUint64(buf[8:16], v.Char)
	le.PutUint64(buf[16:24], v.ISANext)
}

func (tripleCodec) Decode(buf []byte) triple {
	return triple{ISAPrev: le.Uint64(buf[0:8]), Char: le.Uint64(buf[8:16]), ISANext: le.Uint64(buf[16:24])}
}

// Check reports whether sa is a valid suffix array for the n-element text
// stream, draining both text and sa in full. memoryBudget and blockSize
// bound the intermediate sorts exactly as they would any other pipeline
// sort.
func Check(ctx context.Context, pl *pool.Pool, manager *diskmanager.Manager, strategy diskmanager.Strategy, text, sa pipeline.Stream[uint64], n, memoryBudget, blockSize int) (bool, error) {
	if n == 0 {
		return true, nil
	}

	pairLess := func(a, b isaPair) bool {
		if a.SA != b.SA {
			return a.SA < b.SA
		}
		return a.I < b.I
	}
	pairCreator := pipeline.NewRunsCreator[isaPair](pl, manager, strategy, pairCodec{}, pairLess, memoryBudget, blockSize)
	for i := 0; i < n; i++ {
		if sa.Empty() {
			return false, errors.E(errors.Invalid, "sacheck.Check", "suffix array stream shorter than n")
		}
		v := sa.Peek()
		if err := pairCreator.Push(ctx, isaPair{I: uint64(i), SA: v}); err != nil {
			return false, err
		}
		if err := sa.Advance(ctx); err != nil {
			return false, err
		}
	}
	pairRuns, err := pairCreator.Result(ctx)
	if err != nil {
		return false, err
	}
	isaMerger, err := pipeline.NewRunsMerger[isaPair](ctx, pl, manager, strategy, pairCodec{}, pairLess, pairRuns, memoryBudget, blockSize, 2)
	if err != nil {
		return false, err
	}

	tripleLess := func(a, b triple) bool { return a.ISAPrev < b.ISAPrev }
	tripleCreator := pipeline.NewRunsCreator[triple](pl, manager, strategy, tripleCodec{}, tripleLess, memoryBudget, blockSize)

	if isaMerger.Empty() {
		return false, errors.E(errors.Invalid, "sacheck.Check", "suffix array stream is empty")
	}
	prevISA := isaMerger.Peek().I
	var counter uint64
	for !isaMerger.Empty() {
		p := isaMerger.Peek()
		if p.SA != counter {
			return false, nil
		}
		counter++
		if err := isaMerger.Advance(ctx); err != nil {
			return false, err
		}
		if text.Empty() {
			return false, errors.E(errors.Invalid, "sacheck.Check", "text stream shorter than n")
		}
		// The last position's successor is the empty suffix, which ranks
		// below every other; n (the final totalSize) stands for it.
		nextISA := uint64(n)
		if !isaMerger.Empty() {
			nextISA = isaMerger.Peek().I
		}
		if err := tripleCreator.Push(ctx, triple{ISAPrev: prevISA, Char: text.Peek(), ISANext: nextISA}); err != nil {
			return false, err
		}
		prevISA = nextISA
		if err := text.Advance(ctx); err != nil {
			return false, err
		}
	}
	totalSize := counter
	if totalSize == 1 {
		return true, nil
	}

	tripleRuns, err := tripleCreator.Result(ctx)
	if err != nil {
		return false, err
	}
	tripleMerger, err := pipeline.NewRunsMerger[triple](ctx, pl, manager, strategy, tripleCodec{}, tripleLess, tripleRuns, memoryBudget, blockSize, 2)
	if err != nil {
		return false, err
	}
	if tripleMerger.Empty() {
		return true, nil
	}
	prev := tripleMerger.Peek()
	if err := tripleMerger.Advance(ctx); err != nil {
		return false, err
	}
	for !tripleMerger.Empty() {
		cur := tripleMerger.Peek()
		switch {
		case prev.Char > cur.Char:
			return false, nil
		case prev.Char == cur.Char:
			if cur.ISANext == totalSize {
				return false, nil
			}
			if prev.ISANext != totalSize && prev.ISANext > cur.ISANext {
				return false, nil
			}
		}
		prev = cur
		if err := tripleMerger.Advance(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}
