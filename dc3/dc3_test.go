// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package dc3

import (
	"context"
	"sort"
	"testing"

	"github.com/xtlgo/xtl/disk"
	"github.com/xtlgo/xtl/diskmanager"
	"github.com/xtlgo/xtl/pagedvector"
	"github.com/xtlgo/xtl/pipeline"
	"github.com/xtlgo/xtl/pool"
	"github.com/xtlgo/xtl/recordcodec"
	"github.com/xtlgo/xtl/sacheck"
)

// naiveSuffixArray sorts every suffix directly, as an oracle for Build.
func naiveSuffixArray(text []byte) []uint64 {
	n := len(text)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return string(text[idx[a]:]) < string(text[idx[b]:])
	})
	out := make([]uint64, n)
	for i, v := range idx {
		out[i] = uint64(v)
	}
	return out
}

func isPermutation(sa []uint64, n int) bool {
	seen := make([]bool, n)
	for _, v := range sa {
		if v >= uint64(n) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// TestBuildScenarioS4 runs DC3 over
// "yabbadabbado".
func TestBuildScenarioS4(t *testing.T) {
	text := []byte("yabbadabbado")
	sa := Build(text)
	if len(sa) != len(text) {
		t.Fatalf("len(sa) = %d, want %d", len(sa), len(text))
	}
	if !isPermutation(sa, len(text)) {
		t.Fatalf("sa is not a permutation of [0,%d): %v", len(text), sa)
	}
	want := naiveSuffixArray(text)
	for i := range want {
		if sa[i] != want[i] {
			t.Fatalf("sa = %v, want %v", sa, want)
		}
	}
}

// TestBuildScenarioS5 runs DC3 over a unary input of
// length 100 must sort to descending offsets.
func TestBuildScenarioS5(t *testing.T) {
	text := make([]byte, 100)
	for i := range text {
		text[i] = 'a'
	}
	sa := Build(text)
	if len(sa) != 100 {
		t.Fatalf("len(sa) = %d, want 100", len(sa))
	}
	for i, v := range sa {
		want := uint64(99 - i)
		if v != want {
			t.Fatalf("sa[%d] = %d, want %d (full: %v)", i, v, want, sa)
		}
	}
}

func TestBuildEmptyAndSingleChar(t *testing.T) {
	if sa := Build(nil); sa != nil {
		t.Fatalf("Build(nil) = %v, want nil", sa)
	}
	sa := Build([]byte("x"))
	if len(sa) != 1 || sa[0] != 0 {
		t.Fatalf("Build(\"x\") = %v, want [0]", sa)
	}
}

func TestBuildAgainstNaiveOverVariousInputs(t *testing.T) {
	inputs := []string{
		"banana",
		"mississippi",
		"abracadabra",
		"aabbaabbaabb",
		"zyxwvutsrqponmlkjihgfedcba",
	}
	for _, in := range inputs {
		text := []byte(in)
		sa := Build(text)
		want := naiveSuffixArray(text)
		for i := range want {
			if sa[i] != want[i] {
				t.Fatalf("Build(%q) = %v, want %v", in, sa, want)
			}
		}
	}
}

func newTestRig(t *testing.T, blockSize int) (*pool.Pool, *diskmanager.Manager) {
	t.Helper()
	drivers := []diskmanager.Driver{disk.OpenMemory(), disk.OpenMemory()}
	m := diskmanager.New(drivers, []int64{1 << 20, 1 << 20})
	pl := pool.New(m, blockSize, 8, 0)
	return pl, m
}

// TestBuildVectorThenSacheckVerifies reproduces scenario S4's second half:
// build via BuildVector, then verify the result with sacheck.Check.
func TestBuildVectorThenSacheckVerifies(t *testing.T) {
	ctx := context.Background()
	text := []byte("yabbadabbado")
	pl, m := newTestRig(t, 32) // 4 uint64 records per block
	strategy := diskmanager.Striping{}

	v, err := BuildVector(ctx, pl, m, strategy, 2, 2, pagedvector.LRU, text)
	if err != nil {
		t.Fatal(err)
	}

	textVals := make([]uint64, len(text))
	for i, c := range text {
		textVals[i] = uint64(c)
	}
	textVec := pagedvector.New[uint64](pl, m, strategy, recordcodec.Uint64LE{}, 2, 2, pagedvector.LRU)
	tw := pagedvector.BufWriter[uint64](textVec)
	tbids, tn, err := pipeline.MaterializeWriter[uint64](ctx, pipeline.FromSlice(textVals), tw)
	if err != nil {
		t.Fatal(err)
	}
	textVec.FromBIDs(tbids, tn)
	textStream, err := pipeline.Streamify(ctx, textVec, 0, textVec.Len(), 2)
	if err != nil {
		t.Fatal(err)
	}

	saReader, err := pipeline.Streamify(ctx, v, 0, v.Len(), 2)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := sacheck.Check(ctx, pl, m, strategy, textStream, saReader, len(text), 32*4, 32)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("sacheck.Check reported the DC3 suffix array invalid")
	}
}
