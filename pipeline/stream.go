// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package pipeline implements pipelined pull-protocol streams (L5): small
// composable stream operators (counting, zipping, choosing, concatenating)
// plus the sort-merge dataflow (run creation, k-way merge, materialization)
// used to build the DC3 suffix array construction on top of the lower
// layers' containers.
package pipeline

import "context"

// A Stream produces a sequence of T values one at a time. Empty reports
// whether the stream is exhausted; Peek returns the current value without
// consuming it (and panics if the stream is empty); Advance consumes the
// current value and loads the next. This is the pull protocol every
// operator in this package composes over, matching the shape already
// implemented by blockstream.Reader[T] and blockseq.Stream[T].
type Stream[T any] interface {
	Empty() bool
	Peek() T
	Advance(ctx context.Context) error
}
