// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package sacheck

import (
	"context"
	"testing"

	"github.com/xtlgo/xtl/disk"
	"github.com/xtlgo/xtl/diskmanager"
	"github.com/xtlgo/xtl/pipeline"
	"github.com/xtlgo/xtl/pool"
)

func newTestRig(t *testing.T) (*pool.Pool, *diskmanager.Manager, diskmanager.Strategy) {
	t.Helper()
	drivers := []diskmanager.Driver{disk.OpenMemory(), disk.OpenMemory()}
	m := diskmanager.New(drivers, []int64{1 << 20, 1 << 20})
	pl := pool.New(m, 32, 8, 0) // 4 uint64 records per block
	return pl, m, diskmanager.Striping{}
}

func toUint64(s string) []uint64 {
	out := make([]uint64, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = uint64(s[i])
	}
	return out
}

func TestCheckValidSuffixArray(t *testing.T) {
	ctx := context.Background()
	pl, m, strategy := newTestRig(t)
	text := "banana"
	// Correct suffix array for "banana", verified by direct comparison:
	// a(5) ana(3) anana(1) banana(0) na(4) nana(2).
	sa := []uint64{5, 3, 1, 0, 4, 2}
	ok, err := Check(ctx, pl, m, strategy, pipeline.FromSlice(toUint64(text)), pipeline.FromSlice(sa), len(text), 256, 32)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Check rejected a correct suffix array")
	}
}

func TestCheckRejectsWrongOrder(t *testing.T) {
	ctx := context.Background()
	pl, m, strategy := newTestRig(t)
	text := "banana"
	// Swap two entries so the array is a permutation but not sorted.
	sa := []uint64{5, 3, 0, 1, 4, 2}
	ok, err := Check(ctx, pl, m, strategy, pipeline.FromSlice(toUint64(text)), pipeline.FromSlice(sa), len(text), 256, 32)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("Check accepted an incorrectly ordered suffix array")
	}
}

func TestCheckRejectsNonPermutation(t *testing.T) {
	ctx := context.Background()
	pl, m, strategy := newTestRig(t)
	text := "banana"
	sa := []uint64{5, 3, 1, 0, 4, 4} // duplicate 4, missing 2
	ok, err := Check(ctx, pl, m, strategy, pipeline.FromSlice(toUint64(text)), pipeline.FromSlice(sa), len(text), 256, 32)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("Check accepted a non-permutation suffix array")
	}
}

func TestCheckUnaryInputLengthOneShortCircuit(t *testing.T) {
	ctx := context.Background()
	pl, m, strategy := newTestRig(t)
	ok, err := Check(ctx, pl, m, strategy, pipeline.FromSlice([]uint64{'a'}), pipeline.FromSlice([]uint64{0}), 1, 256, 32)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Check rejected the trivial length-1 suffix array")
	}
}
