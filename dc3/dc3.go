// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package dc3 builds suffix arrays using the Karkkainen-Sanders skew (DC3)
// algorithm, following the sentinel-triple convention fixed by the
// reference implementation: three trailing zero characters are appended
// to the input so every position has a well-defined length-3 window. The
// recursive sample-sort core runs in memory (the recursion depth needed to
// exercise the surrounding stream contracts is shallow — the result is not
// a tuned, fully externalized suffix-array algorithm); BuildVector adapts
// Build's output onto the block-pool containers via the pipeline package so the
// final array lives in, and is produced through, the same machinery the
// rest of the engine uses.
package dc3

import (
	"context"

	"github.com/xtlgo/xtl/diskmanager"
	"github.com/xtlgo/xtl/pagedvector"
	"github.com/xtlgo/xtl/pipeline"
	"github.com/xtlgo/xtl/pool"
	"github.com/xtlgo/xtl/recordcodec"
)

func leq2(a1, a2, b1, b2 int32) bool {
	return a1 < b1 || (a1 == b1 && a2 <= b2)
}

func leq3(a1, a2, a3, b1, b2, b3 int32) bool {
	return a1 < b1 || (a1 == b1 && leq2(a2, a3, b2, b3))
}

// radixPass stably sorts indices a into b by key r[a[i]], over alphabet
// [0,K].
func radixPass(a, b []int32, r []int32, n int, K int32) {
	count := make([]int32, K+2)
	for i := 0; i < n; i++ {
		count[r[a[i]]+1]++
	}
	for i := int32(1); i <= K+1; i++ {
		count[i] += count[i-1]
	}
	for i := 0; i < n; i++ {
		b[count[r[a[i]]]] = a[i]
		count[r[a[i]]]++
	}
}

// suffixArray computes the suffix array of s[0:n] into SA, where s has
// length n+3 with s[n], s[n+1], s[n+2] == 0 (the DC3 sentinel padding) and
// every value in s[0:n] lies in [1,K] (0 is reserved for the sentinel, so
// that it compares smaller than every real character).
func suffixArray(s []int32, SA []int32, n int, K int32) {
	n0 := (n + 2) / 3
	n1 := (n + 1) / 3
	n2 := n / 3
	n02 := n0 + n2

	s12 := make([]int32, n02+3)
	SA12 := make([]int32, n02+3)
	s0 := make([]int32, n0)
	SA0 := make([]int32, n0)

	j := 0
	for i := 0; i < n+(n0-n1); i++ {
		if i%3 != 0 {
			s12[j] = int32(i)
			j++
		}
	}

	radixPass(s12, SA12, s[2:], n02, K)
	radixPass(SA12, s12, s[1:], n02, K)
	radixPass(s12, SA12, s, n02, K)

	name := int32(0)
	c0, c1, c2 := int32(-1), int32(-1), int32(-1)
	for i := 0; i < n02; i++ {
		p := SA12[i]
		if s[p] != c0 || s[p+1] != c1 || s[p+2] != c2 {
			name++
			c0, c1, c2 = s[p], s[p+1], s[p+2]
		}
		if p%3 == 1 {
			s12[p/3] = name
		} else {
			s12[p/3+int32(n0)] = name
		}
	}

	if name < int32(n02) {
		suffixArray(s12, SA12, n02, name)
		for i := 0; i < n02; i++ {
			s12[SA12[i]] = int32(i + 1)
		}
	} else {
		for i := 0; i < n02; i++ {
			SA12[s12[i]-1] = int32(i)
		}
	}

	j = 0
	for i := 0; i < n02; i++ {
		if SA12[i] < int32(n0) {
			s0[j] = 3 * SA12[i]
			j++
		}
	}
	radixPass(s0, SA0, s, n0, K)

	getI := func(t int) int32 {
		if SA12[t] < int32(n0) {
			return SA12[t]*3 + 1
		}
		return (SA12[t]-int32(n0))*3 + 2
	}

	p, t, k := 0, n0-n1, 0
	for k < n {
		i := getI(t)
		jj := SA0[p]
		var less bool
		if SA12[t] < int32(n0) {
			less = leq2(s[i], s12[SA12[t]+int32(n0)], s[jj], s12[jj/3])
		} else {
			less = leq3(s[i], s[i+1], s12[SA12[t]-int32(n0)+1], s[jj], s[jj+1], s12[jj/3+int32(n0)])
		}
		if less {
			SA[k] = i
			t++
			if t == n02 {
				k++
				for ; p < n0; p, k = p+1, k+1 {
					SA[k] = SA0[p]
				}
				break
			}
		} else {
			SA[k] = jj
			p++
			if p == n0 {
				k++
				for ; t < n02; t, k = t+1, k+1 {
					SA[k] = getI(t)
				}
				break
			}
		}
		k++
	}
}

// Build returns the suffix array of text as a []uint64 of length
// len(text), the entries being starting offsets into text in
// lexicographically ascending order of the suffix they begin.
func Build(text []byte) []uint64 {
	n := len(text)
	if n == 0 {
		return nil
	}
	// The skew merge below assumes at least two characters.
	if n == 1 {
		return []uint64{0}
	}
	s := make([]int32, n+3)
	for i, c := range text {
		s[i] = int32(c) + 1 // reserve 0 for the sentinel
	}
	SA := make([]int32, n)
	suffixArray(s, SA, n, 256)
	out := make([]uint64, n)
	for i, v := range SA {
		out[i] = uint64(v)
	}
	return out
}

// BuildVector computes text's suffix array and materializes it into a
// fresh pagedvector.Vector[uint64], draining the result through
// pipeline.MaterializeWriter and a pagedvector buffered writer so the array ends
// up stored the same way any other external-memory uint64 sequence would.
func BuildVector(ctx context.Context, pl *pool.Pool, manager *diskmanager.Manager, strategy diskmanager.Strategy, pageSizeBlocks, windowPages int, policy pagedvector.ReplacementPolicy, text []byte) (*pagedvector.Vector[uint64], error) {
	sa := Build(text)
	v := pagedvector.New[uint64](pl, manager, strategy, recordcodec.Uint64LE{}, pageSizeBlocks, windowPages, policy)
	w := pagedvector.BufWriter[uint64](v)
	src := pipeline.FromSlice(sa)
	bids, n, err := pipeline.MaterializeWriter[uint64](ctx, src, w)
	if err != nil {
		return nil, err
	}
	v.FromBIDs(bids, n)
	return v, nil
}
