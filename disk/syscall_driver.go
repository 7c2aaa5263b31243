// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package disk

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/grailbio/base/errors"
	basefile "github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// syscallDriver backs a disk with a local regular file opened with
// os.OpenFile; remote paths go through OpenRemote instead. Each
// ARead/AWrite performs a blocking ReadAt (or WriteAt) on a background
// goroutine, i.e. "blocking pread/pwrite on a background thread" per the
// configuration surface's description of the syscall driver kind.
type syscallDriver struct {
	path string
	mu   sync.Mutex // serializes I/O on the os.File handle
	f    *os.File
}

// OpenSyscall opens (creating if necessary) the file at path as a syscall
// driver.
func OpenSyscall(path string) (Driver, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errors.E(errors.Unknown, "disk.OpenSyscall", path, err)
	}
	return &syscallDriver{path: path, f: f}, nil
}

func (d *syscallDriver) ARead(ctx context.Context, buf []byte, offset int64) (*Request, error) {
	return newRequest(func() error {
		d.mu.Lock()
		defer d.mu.Unlock()
		n, err := d.f.ReadAt(buf, offset)
		if err != nil && err != io.EOF {
			return errors.E(errors.Unknown, "disk.ARead", d.path, err)
		}
		if n < len(buf) {
			size, statErr := d.f.Seek(0, io.SeekEnd)
			if statErr == nil && offset+int64(n) < size {
				return shortReadErr("disk.ARead", offset, int64(len(buf)), int64(n))
			}
		}
		return nil
	}), nil
}

func (d *syscallDriver) AWrite(ctx context.Context, buf []byte, offset int64) (*Request, error) {
	return newRequest(func() error {
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, err := d.f.WriteAt(buf, offset); err != nil {
			return errors.E(errors.Unknown, "disk.AWrite", d.path, err)
		}
		return nil
	}), nil
}

func (d *syscallDriver) SetSize(n int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.f.Truncate(n); err != nil {
		return errors.E(errors.Unknown, "disk.SetSize", d.path, err)
	}
	return nil
}

func (d *syscallDriver) Size() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fi, err := d.f.Stat()
	if err != nil {
		return 0, errors.E(errors.Unknown, "disk.Size", d.path, err)
	}
	return fi.Size(), nil
}

func (d *syscallDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	log.Debug.Printf("disk: closing %s", d.path)
	return d.f.Close()
}

// remoteSyscallDriver backs a disk through grailbio/base/file, used when
// the configured path names a remote object (e.g. an s3:// URL) rather than
// a local path. It buffers writes in memory and commits them to the
// backing object on Close, since base/file's writers are append-once
// streams rather than positional.
type remoteSyscallDriver struct {
	ctx  context.Context
	path string
	mu   sync.Mutex
	buf  []byte
}

// OpenRemote opens path (any scheme understood by base/file) as a driver,
// reading its full current contents into memory and committing the
// in-memory image back on Close. This trades positional-write efficiency
// for working against backends, such as object stores, that only support
// whole-object writers — acceptable since block files are scratch space
// recreated per run, never incrementally appended to across process
// restarts.
func OpenRemote(ctx context.Context, path string) (Driver, error) {
	d := &remoteSyscallDriver{ctx: ctx, path: path}
	f, err := basefile.Open(ctx, path)
	if err == nil {
		defer f.Close(ctx)
		info, statErr := f.Stat(ctx)
		if statErr == nil && info.Size() > 0 {
			buf := make([]byte, info.Size())
			if _, err := io.ReadFull(f.Reader(ctx), buf); err != nil && err != io.EOF {
				return nil, errors.E(errors.Unknown, "disk.OpenRemote", path, err)
			}
			d.buf = buf
		}
	}
	return d, nil
}

func (d *remoteSyscallDriver) ARead(ctx context.Context, buf []byte, offset int64) (*Request, error) {
	return newRequest(func() error {
		d.mu.Lock()
		defer d.mu.Unlock()
		end := offset + int64(len(buf))
		if end > int64(len(d.buf)) {
			if offset >= int64(len(d.buf)) {
				return shortReadErr("disk.ARead", offset, int64(len(buf)), 0)
			}
			n := copy(buf, d.buf[offset:])
			return shortReadErr("disk.ARead", offset, int64(len(buf)), int64(n))
		}
		copy(buf, d.buf[offset:end])
		return nil
	}), nil
}

func (d *remoteSyscallDriver) AWrite(ctx context.Context, buf []byte, offset int64) (*Request, error) {
	return newRequest(func() error {
		d.mu.Lock()
		defer d.mu.Unlock()
		end := offset + int64(len(buf))
		if end > int64(len(d.buf)) {
			grown := make([]byte, end)
			copy(grown, d.buf)
			d.buf = grown
		}
		copy(d.buf[offset:end], buf)
		return nil
	}), nil
}

func (d *remoteSyscallDriver) SetSize(n int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n <= int64(len(d.buf)) {
		d.buf = d.buf[:n]
		return nil
	}
	grown := make([]byte, n)
	copy(grown, d.buf)
	d.buf = grown
	return nil
}

func (d *remoteSyscallDriver) Size() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.buf)), nil
}

func (d *remoteSyscallDriver) Close() error {
	d.mu.Lock()
	buf := d.buf
	d.mu.Unlock()
	w, err := basefile.Create(d.ctx, d.path)
	if err != nil {
		return errors.E(errors.Unknown, "disk.Close", d.path, err)
	}
	if _, err := w.Writer(d.ctx).Write(buf); err != nil {
		w.Close(d.ctx)
		return errors.E(errors.Unknown, "disk.Close", d.path, err)
	}
	return w.Close(d.ctx)
}
