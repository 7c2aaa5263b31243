// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"

	"github.com/xtlgo/xtl/pagedvector"
)

// Streamify adapts v's records in [begin, end) to a Stream, reading through
// v's buffered sequential reader rather than its random-access page cache;
// this is the stream source a sort or materialize call pulls a paged
// vector's contents through (the L4a -> L3 -> L5 path every other
// container-backed stream in this package already follows).
func Streamify[T any](ctx context.Context, v *pagedvector.Vector[T], begin, end int, nBuffers int) (Stream[T], error) {
	return pagedvector.BufReaderRange[T](ctx, v, begin, end, nBuffers)
}
