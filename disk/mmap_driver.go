// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package disk

import (
	"context"
	"os"
	"sync"

	"golang.org/x/exp/mmap"

	"github.com/grailbio/base/errors"
)

// mmapDriver serves reads from a memory-mapped view of the backing file and
// routes writes (and size changes, which invalidate the mapping) through an
// ordinary file handle. The mapping is reopened lazily after a write so
// that subsequent reads observe it.
type mmapDriver struct {
	path string

	mu      sync.Mutex
	f       *os.File
	ra      *mmap.ReaderAt
	raStale bool
}

// OpenMmap opens (creating if necessary) the file at path as an
// mmap-backed driver.
func OpenMmap(path string) (Driver, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errors.E(errors.Unknown, "disk.OpenMmap", path, err)
	}
	return &mmapDriver{path: path, f: f, raStale: true}, nil
}

// reader returns the current memory mapping, reopening it if a write has
// invalidated the previous one or if the file hasn't been mapped yet. The
// caller must hold d.mu.
func (d *mmapDriver) reader() (*mmap.ReaderAt, error) {
	if !d.raStale && d.ra != nil {
		return d.ra, nil
	}
	if d.ra != nil {
		d.ra.Close()
		d.ra = nil
	}
	fi, err := d.f.Stat()
	if err != nil {
		return nil, errors.E(errors.Unknown, "disk.mmap", d.path, err)
	}
	if fi.Size() == 0 {
		// mmap.Open rejects empty files; nothing to map yet.
		return nil, nil
	}
	ra, err := mmap.Open(d.path)
	if err != nil {
		return nil, errors.E(errors.Unknown, "disk.mmap", d.path, err)
	}
	d.ra = ra
	d.raStale = false
	return ra, nil
}

func (d *mmapDriver) ARead(ctx context.Context, buf []byte, offset int64) (*Request, error) {
	return newRequest(func() error {
		d.mu.Lock()
		ra, err := d.reader()
		d.mu.Unlock()
		if err != nil {
			return err
		}
		if ra == nil {
			return shortReadErr("disk.ARead", offset, int64(len(buf)), 0)
		}
		n, err := ra.ReadAt(buf, offset)
		if err != nil && n < len(buf) {
			return shortReadErr("disk.ARead", offset, int64(len(buf)), int64(n))
		}
		return nil
	}), nil
}

func (d *mmapDriver) AWrite(ctx context.Context, buf []byte, offset int64) (*Request, error) {
	return newRequest(func() error {
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, err := d.f.WriteAt(buf, offset); err != nil {
			return errors.E(errors.Unknown, "disk.AWrite", d.path, err)
		}
		d.raStale = true
		return nil
	}), nil
}

func (d *mmapDriver) SetSize(n int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.f.Truncate(n); err != nil {
		return errors.E(errors.Unknown, "disk.SetSize", d.path, err)
	}
	d.raStale = true
	return nil
}

func (d *mmapDriver) Size() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fi, err := d.f.Stat()
	if err != nil {
		return 0, errors.E(errors.Unknown, "disk.Size", d.path, err)
	}
	return fi.Size(), nil
}

func (d *mmapDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ra != nil {
		d.ra.Close()
	}
	return d.f.Close()
}
