// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pagedvector

import (
	"context"
	"testing"

	"github.com/xtlgo/xtl/disk"
	"github.com/xtlgo/xtl/diskmanager"
	"github.com/xtlgo/xtl/pool"
	"github.com/xtlgo/xtl/recordcodec"
)

func newTestVector(t *testing.T, policy ReplacementPolicy) *Vector[uint64] {
	t.Helper()
	drivers := []diskmanager.Driver{disk.OpenMemory(), disk.OpenMemory()}
	m := diskmanager.New(drivers, []int64{1 << 20, 1 << 20})
	pl := pool.New(m, 32, 4, 0) // 4 uint64 records per block
	return New[uint64](pl, m, diskmanager.Striping{}, recordcodec.Uint64LE{}, 2 /* pageSizeBlocks */, 2 /* windowPages */, policy)
}

func TestResizeAndAtSet(t *testing.T) {
	ctx := context.Background()
	v := newTestVector(t, LRU)
	if err := v.Resize(ctx, 50, false); err != nil {
		t.Fatal(err)
	}
	if v.Len() != 50 {
		t.Fatalf("Len() = %d, want 50", v.Len())
	}
	for i := 0; i < 50; i++ {
		if err := v.Set(ctx, i, uint64(i*7)); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 50; i++ {
		got, err := v.At(ctx, i)
		if err != nil {
			t.Fatal(err)
		}
		if want := uint64(i * 7); got != want {
			t.Errorf("At(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestFlushPersistsAcrossCacheEviction(t *testing.T) {
	ctx := context.Background()
	v := newTestVector(t, LRU) // window of 2 pages, 8 records/page
	if err := v.Resize(ctx, 100, false); err != nil {
		t.Fatal(err)
	}
	// Touch far more pages than the 2-page window holds, forcing eviction
	// (and therefore writeback) of earlier pages.
	for i := 0; i < 100; i++ {
		if err := v.Set(ctx, i, uint64(i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := v.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		got, err := v.At(ctx, i)
		if err != nil {
			t.Fatal(err)
		}
		if got != uint64(i) {
			t.Errorf("At(%d) = %d, want %d", i, got, i)
		}
	}
}

func TestBlockExternallyUpdatedForcesReload(t *testing.T) {
	ctx := context.Background()
	v := newTestVector(t, LRU)
	if err := v.Resize(ctx, 10, false); err != nil {
		t.Fatal(err)
	}
	if err := v.Set(ctx, 0, 111); err != nil {
		t.Fatal(err)
	}
	// Simulate an external writer overwriting block 0 directly.
	buf, err := v.pl.Steal(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < v.recordsPerBlock; i++ {
		v.codec.Encode(buf.Bytes[i*v.codec.Size():(i+1)*v.codec.Size()], 999)
	}
	req, err := v.pl.Write(ctx, buf, v.bids[0])
	if err != nil {
		t.Fatal(err)
	}
	if err := req.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	v.BlockExternallyUpdated(0)
	got, err := v.At(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 999 {
		t.Fatalf("At(0) = %d after external update, want 999", got)
	}
}

func TestResizeShrinkFreesTrailingBlocks(t *testing.T) {
	ctx := context.Background()
	v := newTestVector(t, LRU)
	if err := v.Resize(ctx, 40, false); err != nil {
		t.Fatal(err)
	}
	before := len(v.bids)
	if err := v.Resize(ctx, 4, true); err != nil {
		t.Fatal(err)
	}
	if len(v.bids) >= before {
		t.Fatalf("bids len = %d, want fewer than %d after shrink", len(v.bids), before)
	}
	if v.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", v.Len())
	}
}

func TestSwapExchangesContents(t *testing.T) {
	ctx := context.Background()
	a := newTestVector(t, LRU)
	b := newTestVector(t, LRU)
	if err := a.Resize(ctx, 5, false); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := a.Set(ctx, i, uint64(100+i)); err != nil {
			t.Fatal(err)
		}
	}
	a.Swap(b)
	if a.Len() != 0 {
		t.Fatalf("a.Len() = %d after swap, want 0", a.Len())
	}
	if b.Len() != 5 {
		t.Fatalf("b.Len() = %d after swap, want 5", b.Len())
	}
	got, err := b.At(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got != 102 {
		t.Fatalf("b.At(2) = %d, want 102", got)
	}
}

// TestMoveConstructLargeVector exercises the paged vector at the scale and
// block sizing used to validate Swap as a move-construction primitive: a
// vector of 2^20 sequential values with 512 records per block, swapped into
// a fresh vector, then spot-checked at its first, a page boundary, and its
// last index.
func TestMoveConstructLargeVector(t *testing.T) {
	ctx := context.Background()
	const n = 1 << 20
	const blockRecords = 512
	drivers := []diskmanager.Driver{disk.OpenMemory(), disk.OpenMemory()}
	m := diskmanager.New(drivers, []int64{int64(n) * 8 * 2, int64(n) * 8 * 2})
	pl := pool.New(m, blockRecords*8, 8, 4)
	v := New[uint64](pl, m, diskmanager.Striping{}, recordcodec.Uint64LE{}, 1, 4, LRU)

	if err := v.Resize(ctx, n, false); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if err := v.Set(ctx, i, uint64(i)); err != nil {
			t.Fatal(err)
		}
	}

	var v2 Vector[uint64]
	v.Swap(&v2)
	if v.Len() != 0 {
		t.Fatalf("original vector Len() = %d after move, want 0", v.Len())
	}
	if v2.Len() != n {
		t.Fatalf("moved vector Len() = %d, want %d", v2.Len(), n)
	}
	for _, i := range []int{0, blockRecords - 1, blockRecords, n - 1} {
		got, err := v2.At(ctx, i)
		if err != nil {
			t.Fatal(err)
		}
		if got != uint64(i) {
			t.Fatalf("v2.At(%d) = %d, want %d", i, got, i)
		}
	}
}

func TestRandomPolicyDoesNotLoseData(t *testing.T) {
	ctx := context.Background()
	v := newTestVector(t, Random)
	if err := v.Resize(ctx, 64, false); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 64; i++ {
		if err := v.Set(ctx, i, uint64(i*3)); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 64; i++ {
		got, err := v.At(ctx, i)
		if err != nil {
			t.Fatal(err)
		}
		if want := uint64(i * 3); got != want {
			t.Errorf("At(%d) = %d, want %d", i, got, want)
		}
	}
}
