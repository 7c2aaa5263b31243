// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package diskmanager

import "math/rand"

// A Strategy chooses which disk a block allocation should land on. Next is
// called once per block being allocated within a single new_block /
// new_blocks call; counter is the manager's running allocation count prior
// to this call, and numDisks is the number of configured disks.
type Strategy interface {
	// Next returns the index of the disk (in [0, numDisks)) to try first
	// for the i-th block (0-based) of the current allocation batch.
	Next(counter, i, numDisks int) int
}

// Striping assigns disks round-robin by the manager's running allocation
// counter: disk = counter mod numDisks. This is the deterministic strategy
// for maximizing I/O parallelism across disks when block access is
// sequential.
type Striping struct{}

func (Striping) Next(counter, i, numDisks int) int {
	return (counter + i) % numDisks
}

// SimpleRandom picks a uniformly random disk per block, independent of any
// other allocation in the batch or across calls.
type SimpleRandom struct {
	// Rand, if non-nil, is used instead of the package-level generator.
	// Tests supply a seeded one for reproducibility.
	Rand *rand.Rand
}

func (s SimpleRandom) Next(counter, i, numDisks int) int {
	return s.intn(numDisks)
}

func (s SimpleRandom) intn(n int) int {
	if s.Rand != nil {
		return s.Rand.Intn(n)
	}
	return rand.Intn(n)
}

// FullyRandom behaves like SimpleRandom: each call to Next is an
// independent uniform draw, so a batch of allocations is reshuffled
// relative to any fixed cyclic order on every call. It is kept as a
// distinct type (rather than an alias for SimpleRandom) because callers
// select strategies by concrete type at vector construction time, and the
// two are conceptually separate selectable strategies.
type FullyRandom struct {
	Rand *rand.Rand
}

func (f FullyRandom) Next(counter, i, numDisks int) int {
	if f.Rand != nil {
		return f.Rand.Intn(numDisks)
	}
	return rand.Intn(numDisks)
}

// RandomCyclic picks a random permutation of the disks once per cycle of
// numDisks allocations, then walks that permutation deterministically
// within the cycle. This gives the same "every disk used exactly once per
// cycle" guarantee as Striping while avoiding the worst case of a fixed
// round-robin order being adversarially aligned across many independently
// constructed vectors.
type RandomCyclic struct {
	Rand *rand.Rand

	perm      []int
	permCycle int
	havePerm  bool
}

func (r *RandomCyclic) Next(counter, i, numDisks int) int {
	cycle := (counter + i) / numDisks
	pos := (counter + i) % numDisks
	if !r.havePerm || len(r.perm) != numDisks || r.permCycle != cycle {
		rnd := r.Rand
		if rnd == nil {
			rnd = rand.New(rand.NewSource(rand.Int63()))
		}
		r.perm = rnd.Perm(numDisks)
		r.permCycle = cycle
		r.havePerm = true
	}
	return r.perm[pos]
}
