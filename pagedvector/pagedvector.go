// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package pagedvector implements the paged vector (L4a): a random-access
// container of fixed-width records backed by blocks on external storage,
// fronted by a small cache of page slots (any page may occupy any slot;
// the victim is chosen by LRU or random replacement) so that nearby
// accesses don't round-trip to the pool on every read.
package pagedvector

import (
	"context"
	"math/rand"

	"github.com/grailbio/base/errors"
	"github.com/xtlgo/xtl/disk"
	"github.com/xtlgo/xtl/diskmanager"
	"github.com/xtlgo/xtl/pool"
	"github.com/xtlgo/xtl/recordcodec"
)

// ReplacementPolicy selects how the page cache picks a victim slot when
// full and asked to load a page it doesn't hold.
type ReplacementPolicy int

const (
	// LRU evicts the least-recently-touched slot. This is the default,
	// matching a window of k pages kept warm across sequential-ish access.
	LRU ReplacementPolicy = iota
	// Random evicts a uniformly random slot.
	Random
)

type pageSlot[T any] struct {
	pageIdx int
	data    []T
	dirty   bool
	valid   bool
}

// A Vector is a random-access sequence of T backed by blocks allocated
// from a diskmanager.Manager. The page size (in blocks) and the cache
// window size are both fixed at construction.
type Vector[T any] struct {
	pl       *pool.Pool
	manager  *diskmanager.Manager
	strategy diskmanager.Strategy
	codec    recordcodec.Codec[T]

	blockSize       int64
	recordsPerBlock int
	pageSizeBlocks  int
	recordsPerPage  int

	bids []disk.BID // one BID per allocated block; len(bids) is the capacity in blocks
	n    int         // logical size in records

	slots    []pageSlot[T]
	lookup   map[int]int // pageIdx -> index into slots
	lruOrder []int       // slots indices, least-recently-used first (LRU policy only)
	policy   ReplacementPolicy
	rnd      *rand.Rand
}

// New returns an empty Vector. pageSizeBlocks is the number of blocks per
// page (must be >= 1); windowPages is the number of pages the cache holds
// resident at once (must be >= 1).
func New[T any](pl *pool.Pool, manager *diskmanager.Manager, strategy diskmanager.Strategy, codec recordcodec.Codec[T], pageSizeBlocks, windowPages int, policy ReplacementPolicy) *Vector[T] {
	if pageSizeBlocks < 1 {
		pageSizeBlocks = 1
	}
	if windowPages < 1 {
		windowPages = 1
	}
	recordsPerBlock := pl.BlockSize() / codec.Size()
	v := &Vector[T]{
		pl:              pl,
		manager:         manager,
		strategy:        strategy,
		codec:           codec,
		blockSize:       int64(pl.BlockSize()),
		recordsPerBlock: recordsPerBlock,
		pageSizeBlocks:  pageSizeBlocks,
		recordsPerPage:  recordsPerBlock * pageSizeBlocks,
		policy:          policy,
		lookup:          make(map[int]int, windowPages),
		slots:           make([]pageSlot[T], windowPages),
	}
	if policy == Random {
		v.rnd = rand.New(rand.NewSource(rand.Int63()))
	}
	return v
}

// Len returns the vector's logical size in records.
func (v *Vector[T]) Len() int { return v.n }

func (v *Vector[T]) blocksNeeded(n int) int {
	return (n + v.recordsPerBlock - 1) / v.recordsPerBlock
}

// Resize grows or shrinks the vector to n records. If shrinkCapacity is
// true and n requires fewer blocks than are currently allocated, the
// now-unused trailing blocks are freed back to the disk manager;
// otherwise they are kept allocated for a cheap future grow.
func (v *Vector[T]) Resize(ctx context.Context, n int, shrinkCapacity bool) error {
	if n < 0 {
		return errors.E(errors.Invalid, "pagedvector.Resize", "negative size")
	}
	want := v.blocksNeeded(n)
	if want > len(v.bids) {
		add := want - len(v.bids)
		newBids, err := v.manager.NewBlocks(v.strategy, v.blockSize, add)
		if err != nil {
			return err
		}
		v.bids = append(v.bids, newBids...)
		// Fresh blocks are written as zero bytes, so every record the
		// vector grows by can be read before it is first set.
		for _, bid := range newBids {
			buf, err := v.pl.Steal(ctx)
			if err != nil {
				return err
			}
			for i := range buf.Bytes {
				buf.Bytes[i] = 0
			}
			req, err := v.pl.Write(ctx, buf, bid)
			if err == nil {
				err = req.Wait(ctx)
			}
			if err != nil {
				return err
			}
		}
	} else if want < len(v.bids) && shrinkCapacity {
		freed := v.bids[want:]
		v.bids = v.bids[:want]
		v.manager.DeleteBlocks(freed)
		// Any cached page that referenced a now-freed block is no longer
		// valid to flush; drop it from the cache without writing back.
		for pageIdx, slot := range v.lookup {
			if pageIdx*v.pageSizeBlocks >= want {
				v.slots[slot] = pageSlot[T]{}
				delete(v.lookup, pageIdx)
				v.removeFromLRU(slot)
			}
		}
	}
	v.n = n
	return nil
}

// At returns the record at index i, loading its page into cache if needed.
func (v *Vector[T]) At(ctx context.Context, i int) (T, error) {
	var zero T
	if i < 0 || i >= v.n {
		return zero, errors.E(errors.Invalid, "pagedvector.At", "index out of range")
	}
	slot, err := v.ensurePage(ctx, i/v.recordsPerPage)
	if err != nil {
		return zero, err
	}
	return slot.data[i%v.recordsPerPage], nil
}

// Set writes v at index i, marking the containing page dirty.
func (v *Vector[T]) Set(ctx context.Context, i int, val T) error {
	if i < 0 || i >= v.n {
		return errors.E(errors.Invalid, "pagedvector.Set", "index out of range")
	}
	slot, err := v.ensurePage(ctx, i/v.recordsPerPage)
	if err != nil {
		return err
	}
	slot.data[i%v.recordsPerPage] = val
	slot.dirty = true
	return nil
}

// BlockExternallyUpdated marks the cached copy of the page containing
// record i stale, if one is resident, so the next access reloads it from
// disk rather than serving possibly-stale cached data.
func (v *Vector[T]) BlockExternallyUpdated(i int) {
	pageIdx := i / v.recordsPerPage
	slotIdx, ok := v.lookup[pageIdx]
	if !ok {
		return
	}
	v.slots[slotIdx] = pageSlot[T]{}
	delete(v.lookup, pageIdx)
	v.removeFromLRU(slotIdx)
}

// Flush writes back every dirty page and clears the cache.
func (v *Vector[T]) Flush(ctx context.Context) error {
	for pageIdx, slotIdx := range v.lookup {
		slot := &v.slots[slotIdx]
		if slot.dirty {
			if err := v.writeback(ctx, pageIdx, slot); err != nil {
				return err
			}
		}
	}
	for i := range v.slots {
		v.slots[i] = pageSlot[T]{}
	}
	v.lookup = make(map[int]int, len(v.slots))
	v.lruOrder = nil
	return nil
}

// Swap exchanges the entire contents (backing blocks, cache, size) of v
// and other in O(1); it doubles as Go's idiom for move-construction.
func (v *Vector[T]) Swap(other *Vector[T]) {
	*v, *other = *other, *v
}

// Close flushes outstanding writes and frees every block the vector owns,
// standing in for a destructor since Go has none.
func (v *Vector[T]) Close(ctx context.Context) error {
	if err := v.Flush(ctx); err != nil {
		return err
	}
	v.manager.DeleteBlocks(v.bids)
	v.bids = nil
	v.n = 0
	return nil
}

func (v *Vector[T]) ensurePage(ctx context.Context, pageIdx int) (*pageSlot[T], error) {
	if slotIdx, ok := v.lookup[pageIdx]; ok {
		v.touch(slotIdx)
		return &v.slots[slotIdx], nil
	}
	slotIdx, err := v.victim(ctx)
	if err != nil {
		return nil, err
	}
	data, err := v.loadPage(ctx, pageIdx)
	if err != nil {
		return nil, err
	}
	v.slots[slotIdx] = pageSlot[T]{pageIdx: pageIdx, data: data, valid: true}
	v.lookup[pageIdx] = slotIdx
	v.touch(slotIdx)
	return &v.slots[slotIdx], nil
}

// victim evicts (writing back if dirty) and returns a free slot index.
func (v *Vector[T]) victim(ctx context.Context) (int, error) {
	for i := range v.slots {
		if !v.slots[i].valid {
			return i, nil
		}
	}
	var evict int
	switch v.policy {
	case Random:
		evict = v.rnd.Intn(len(v.slots))
	default: // LRU
		evict = v.lruOrder[0]
	}
	slot := &v.slots[evict]
	if slot.dirty {
		if err := v.writeback(ctx, slot.pageIdx, slot); err != nil {
			return 0, err
		}
	}
	delete(v.lookup, slot.pageIdx)
	v.removeFromLRU(evict)
	*slot = pageSlot[T]{}
	return evict, nil
}

func (v *Vector[T]) touch(slotIdx int) {
	if v.policy != LRU {
		return
	}
	v.removeFromLRU(slotIdx)
	v.lruOrder = append(v.lruOrder, slotIdx)
}

func (v *Vector[T]) removeFromLRU(slotIdx int) {
	for i, s := range v.lruOrder {
		if s == slotIdx {
			v.lruOrder = append(v.lruOrder[:i], v.lruOrder[i+1:]...)
			return
		}
	}
}

func (v *Vector[T]) loadPage(ctx context.Context, pageIdx int) ([]T, error) {
	data := make([]T, v.recordsPerPage)
	stride := v.codec.Size()
	firstBlock := pageIdx * v.pageSizeBlocks
	for b := 0; b < v.pageSizeBlocks; b++ {
		blockIdx := firstBlock + b
		if blockIdx >= len(v.bids) {
			break
		}
		buf, err := v.pl.Steal(ctx)
		if err != nil {
			return nil, err
		}
		req, err := v.pl.Read(ctx, buf, v.bids[blockIdx])
		if err != nil {
			v.pl.Add(buf)
			return nil, err
		}
		if err := req.Wait(ctx); err != nil {
			v.pl.Add(buf)
			return nil, err
		}
		for i := 0; i < v.recordsPerBlock; i++ {
			data[b*v.recordsPerBlock+i] = v.codec.Decode(buf.Bytes[i*stride : (i+1)*stride])
		}
		v.pl.Add(buf)
	}
	return data, nil
}

func (v *Vector[T]) writeback(ctx context.Context, pageIdx int, slot *pageSlot[T]) error {
	stride := v.codec.Size()
	firstBlock := pageIdx * v.pageSizeBlocks
	for b := 0; b < v.pageSizeBlocks; b++ {
		blockIdx := firstBlock + b
		if blockIdx >= len(v.bids) {
			break
		}
		buf, err := v.pl.Steal(ctx)
		if err != nil {
			return err
		}
		for i := 0; i < v.recordsPerBlock; i++ {
			v.codec.Encode(buf.Bytes[i*stride:(i+1)*stride], slot.data[b*v.recordsPerBlock+i])
		}
		req, err := v.pl.Write(ctx, buf, v.bids[blockIdx])
		if err != nil {
			return err
		}
		if err := req.Wait(ctx); err != nil {
			return err
		}
	}
	slot.dirty = false
	return nil
}
