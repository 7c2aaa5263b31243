// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package pool implements the read/write block pool (L2): a fixed set of
// block-sized buffers that overlaps I/O with computation via write-back
// buffering and explicit prefetch hints.
package pool

// A Buffer is an ownership token for an in-memory block buffer. Buffers
// are produced by Steal and returned by Add; while a Buffer is held by a
// caller (including while referenced by a live Request), the pool does not
// reuse its backing storage.
type Buffer struct {
	Bytes []byte
}
