// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package disk

import (
	"context"
	"sync"

	"github.com/grailbio/base/errors"
)

// memoryDriver backs a disk with a RAM-resident byte slice. It is used by
// the "memory" driver kind for tests, where durability across process
// restarts is irrelevant and allocation speed matters more than realism.
type memoryDriver struct {
	mu  sync.Mutex
	buf []byte
}

// OpenMemory returns a new memory-backed driver with an initially empty
// backing store.
func OpenMemory() Driver {
	return &memoryDriver{}
}

func (d *memoryDriver) ARead(ctx context.Context, buf []byte, offset int64) (*Request, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	end := offset + int64(len(buf))
	if offset < 0 || end > int64(len(d.buf)) {
		if offset >= int64(len(d.buf)) || offset < 0 {
			return completed(shortReadErr("disk.ARead", offset, int64(len(buf)), 0)), nil
		}
		n := copy(buf, d.buf[offset:])
		return completed(shortReadErr("disk.ARead", offset, int64(len(buf)), int64(n))), nil
	}
	copy(buf, d.buf[offset:end])
	return completed(nil), nil
}

func (d *memoryDriver) AWrite(ctx context.Context, buf []byte, offset int64) (*Request, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	end := offset + int64(len(buf))
	if end > int64(len(d.buf)) {
		grown := make([]byte, end)
		copy(grown, d.buf)
		d.buf = grown
	}
	copy(d.buf[offset:end], buf)
	return completed(nil), nil
}

func (d *memoryDriver) SetSize(n int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 0 {
		return errors.E(errors.Unknown, "disk.SetSize", "negative size")
	}
	if n <= int64(len(d.buf)) {
		d.buf = d.buf[:n]
		return nil
	}
	grown := make([]byte, n)
	copy(grown, d.buf)
	d.buf = grown
	return nil
}

func (d *memoryDriver) Size() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.buf)), nil
}

func (d *memoryDriver) Close() error { return nil }
