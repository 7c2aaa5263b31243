// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package diskmanager implements the block manager (L1): it owns a vector
// of disk.Driver capabilities and hands out / reclaims block identifiers
// across them under a pluggable allocation Strategy.
package diskmanager

import (
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/xtlgo/xtl/disk"
)

// extent is a free byte range on one disk.
type extent struct {
	offset, size int64
}

// diskState tracks one disk's driver and its free-extent list, sorted by
// offset. Allocation is first-fit: the first free extent large enough to
// hold the request is split, with any remainder returned to the free list.
type diskState struct {
	driver Driver
	free   []extent // sorted by offset
	end    int64     // the high-water mark; extents beyond end don't exist yet

	// growable is set once a zero-capacity disk has grown, so it keeps
	// growing on demand after end has moved past 0.
	growable bool
}

// Driver is an alias of disk.Driver; it is named here (rather than
// imported directly as disk.Driver in exported signatures) so that
// Manager's public surface reads in terms of the manager's own vocabulary.
type Driver = disk.Driver

// Manager owns a fixed set of disks and allocates/frees disk.BID extents
// across them. A Manager is typically constructed once at startup and
// injected into every container that needs block storage, rather than
// looked up implicitly.
type Manager struct {
	mu    sync.Mutex
	disks []*diskState

	// counter is the manager's running allocation count, fed to
	// Strategy.Next so that stateless strategies (Striping) can be
	// deterministic across calls.
	counter int
}

// New returns a Manager over the given drivers, disk i starting with
// capacityBytes[i] bytes of free space. A capacity of 0 means "grow on
// demand": when no free extent fits, the block is placed at the disk's
// high-water mark and the driver is extended with SetSize at allocation
// time.
func New(drivers []Driver, capacityBytes []int64) *Manager {
	m := &Manager{disks: make([]*diskState, len(drivers))}
	for i, d := range drivers {
		end := int64(0)
		if i < len(capacityBytes) {
			end = capacityBytes[i]
		}
		ds := &diskState{driver: d, end: end}
		if end > 0 {
			ds.free = []extent{{offset: 0, size: end}}
		}
		m.disks[i] = ds
	}
	return m
}

// NumDisks returns the number of disks the manager was configured with.
func (m *Manager) NumDisks() int {
	return len(m.disks)
}

// Driver returns the disk.Driver backing disk i, for use by layers above
// the manager (the pool issues its I/O directly against these).
func (m *Manager) Driver(i int) Driver {
	return m.disks[i].driver
}

// NewBlock allocates a single block of the given size, choosing a disk per
// strategy, and returns its BID. The strategy is given the manager's
// running allocation counter, so strategies like Striping are
// deterministic in tests without reaching into the manager's internals.
func (m *Manager) NewBlock(strategy Strategy, size int64) (disk.BID, error) {
	bids, err := m.NewBlocks(strategy, size, 1)
	if err != nil {
		return disk.BID{}, err
	}
	return bids[0], nil
}

// NewBlocks bulk-allocates n blocks of the given size, preserving the
// strategy's intended locality (e.g. Striping spreads them across disks in
// round-robin order as if n separate NewBlock calls had been made with an
// incrementing counter). The per-disk free-list search for distinct disks
// touched by the batch is fanned out across an errgroup, since first-fit
// search on one disk's free list is independent of every other disk's.
func (m *Manager) NewBlocks(strategy Strategy, size int64, n int) ([]disk.BID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	numDisks := len(m.disks)
	if numDisks == 0 {
		return nil, errors.E(errors.Invalid, "diskmanager.NewBlocks", "no disks configured")
	}

	wantDisk := make([]int, n)
	byDisk := make(map[int][]int) // disk index -> positions in the batch
	for i := 0; i < n; i++ {
		d := strategy.Next(m.counter, i, numDisks)
		wantDisk[i] = d
		byDisk[d] = append(byDisk[d], i)
	}

	bids := make([]disk.BID, n)
	var g errgroup.Group
	var mu sync.Mutex // guards bids and any fallback allocations below
	for d, positions := range byDisk {
		d, positions := d, positions
		g.Go(func() error {
			for _, pos := range positions {
				bid, err := m.allocateOn(d, size)
				if err != nil {
					// First-fit within the chosen disk, falling back to
					// the next disk with room if the chosen one is full.
					bid, err = m.allocateAnyOtherThan(d, size)
					if err != nil {
						return err
					}
				}
				mu.Lock()
				bids[pos] = bid
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Best-effort cleanup: return any extents we did manage to carve
		// out before the failure, so a partial batch doesn't leak space.
		for _, bid := range bids {
			if !bid.IsZero() {
				m.freeLocked(bid)
			}
		}
		return nil, err
	}
	m.counter += n
	log.Debug.Printf("diskmanager: allocated %d blocks of size %d", n, size)
	return bids, nil
}

// allocateOn attempts first-fit allocation of size bytes on disk d. The
// caller must hold m.mu.
func (m *Manager) allocateOn(d int, size int64) (disk.BID, error) {
	ds := m.disks[d]
	for i, e := range ds.free {
		if e.size < size {
			continue
		}
		bid := disk.BID{Disk: d, Offset: e.offset, Size: size}
		if e.size == size {
			ds.free = append(ds.free[:i], ds.free[i+1:]...)
		} else {
			ds.free[i] = extent{offset: e.offset + size, size: e.size - size}
		}
		return bid, nil
	}
	// No free extent large enough. A disk declared with zero capacity
	// grows on demand (used for temp-file-backed disks sized to "whatever
	// is needed"); a disk with a declared, exhausted capacity is out of
	// space and the caller falls back to another disk.
	if ds.end == 0 || ds.growable {
		offset := ds.end
		if err := ds.driver.SetSize(offset + size); err != nil {
			return disk.BID{}, err
		}
		ds.end = offset + size
		ds.growable = true
		return disk.BID{Disk: d, Offset: offset, Size: size}, nil
	}
	return disk.BID{}, errors.E(errors.Fatal, "diskmanager.allocateOn", "disk exhausted")
}

// allocateAnyOtherThan tries every disk except skip, in index order,
// growing the first one willing to extend. The caller must hold m.mu.
func (m *Manager) allocateAnyOtherThan(skip int, size int64) (disk.BID, error) {
	for d := range m.disks {
		if d == skip {
			continue
		}
		if bid, err := m.allocateOn(d, size); err == nil {
			return bid, nil
		}
	}
	return disk.BID{}, errors.E(errors.Fatal, "diskmanager.allocateAnyOtherThan", "all disks exhausted")
}

// DeleteBlock returns bid's extent to its disk's free list, merging with
// adjacent free extents so fragmentation doesn't accumulate across many
// alloc/free cycles.
func (m *Manager) DeleteBlock(bid disk.BID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freeLocked(bid)
}

// DeleteBlocks frees every BID in bids.
func (m *Manager) DeleteBlocks(bids []disk.BID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bid := range bids {
		m.freeLocked(bid)
	}
}

func (m *Manager) freeLocked(bid disk.BID) {
	ds := m.disks[bid.Disk]
	e := extent{offset: bid.Offset, size: bid.Size}
	i := sort.Search(len(ds.free), func(i int) bool { return ds.free[i].offset >= e.offset })
	ds.free = append(ds.free, extent{})
	copy(ds.free[i+1:], ds.free[i:])
	ds.free[i] = e
	// Coalesce with the following neighbor, then the preceding one.
	if i+1 < len(ds.free) && ds.free[i].offset+ds.free[i].size == ds.free[i+1].offset {
		ds.free[i].size += ds.free[i+1].size
		ds.free = append(ds.free[:i+1], ds.free[i+2:]...)
	}
	if i > 0 && ds.free[i-1].offset+ds.free[i-1].size == ds.free[i].offset {
		ds.free[i-1].size += ds.free[i].size
		ds.free = append(ds.free[:i], ds.free[i+1:]...)
	}
}

// Close closes every underlying driver, returning the first error
// encountered (after attempting to close them all).
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first error
	for _, ds := range m.disks {
		if err := ds.driver.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// liveExtents returns a snapshot of every currently-allocated (i.e. not
// free) extent per disk, for property tests that check the block manager's
// allocate/free round-trip invariant.
func (m *Manager) liveExtents() map[int][]extent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int][]extent, len(m.disks))
	for d, ds := range m.disks {
		if ds.end == 0 {
			continue
		}
		free := make(map[int64]extent, len(ds.free))
		for _, e := range ds.free {
			free[e.offset] = e
		}
		var live []extent
		for off := int64(0); off < ds.end; {
			if e, ok := free[off]; ok {
				off += e.size
				continue
			}
			// Find the run of allocated bytes starting at off.
			next := ds.end
			for _, e := range ds.free {
				if e.offset > off && e.offset < next {
					next = e.offset
				}
			}
			live = append(live, extent{offset: off, size: next - off})
			off = next
		}
		out[d] = live
	}
	return out
}
