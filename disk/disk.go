// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package disk implements the file capability layer (L0): async positional
// read/write of aligned byte spans on a backing store. A Driver is opened
// once per configured disk; BIDs minted by package diskmanager reference
// byte ranges within a Driver by (disk index, offset, size).
package disk

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
)

// DriverKind names the backing-store implementation for a disk, matching
// the recognized driver kinds of the configuration surface.
type DriverKind string

const (
	// Syscall backs a disk with a regular file, performing blocking
	// pread/pwrite on a background goroutine per request.
	Syscall DriverKind = "syscall"
	// Memory backs a disk with a RAM-resident byte buffer, for tests.
	Memory DriverKind = "memory"
	// Mmap backs a disk's reads with a memory-mapped view of the file;
	// writes still go through ordinary positional writes.
	Mmap DriverKind = "mmap"
)

// BID is a block identifier: an opaque handle to a fixed-size extent on one
// disk. BIDs are minted by package diskmanager; clients never construct one
// directly.
type BID struct {
	Disk   int
	Offset int64
	Size   int64
}

// IsZero reports whether b is the zero BID, used as a "no block" sentinel
// by containers that haven't yet allocated their first block.
func (b BID) IsZero() bool { return b == BID{} }

// Driver is the capability a disk exposes: async positional read/write of
// byte spans, plus synchronous size queries. Two requests to disjoint byte
// ranges may complete in any order; requests to overlapping ranges have
// unspecified ordering and must never be issued by upper layers (the BID
// invariant — at most one live BID per (disk, offset) range — guarantees
// this in practice).
type Driver interface {
	// ARead asynchronously reads len(buf) bytes starting at offset into
	// buf. The returned Request completes when the data is available (or
	// an error, including a short read anywhere but the final block of the
	// file, has occurred).
	ARead(ctx context.Context, buf []byte, offset int64) (*Request, error)
	// AWrite asynchronously writes buf to offset. buf must not be mutated
	// until the returned Request completes.
	AWrite(ctx context.Context, buf []byte, offset int64) (*Request, error)
	// SetSize grows or shrinks the backing store to exactly n bytes.
	SetSize(n int64) error
	// Size returns the backing store's current size in bytes.
	Size() (int64, error)
	// Close releases the driver's resources. Pending requests must be
	// waited on before Close is called.
	Close() error
}

// shortReadErr reports a read that returned fewer bytes than requested.
// The local syscall driver reports one only when the read stops before
// end of file; the memory, mmap and remote drivers report every short
// read.
func shortReadErr(op string, offset, want, got int64) error {
	return errors.E(errors.Integrity, op, fmt.Sprintf("offset=%d want=%d got=%d", offset, want, got))
}
