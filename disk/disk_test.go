// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package disk

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/errors"
)

func TestMemoryDriverReadWrite(t *testing.T) {
	testDriverReadWrite(t, OpenMemory())
}

func TestSyscallDriverReadWrite(t *testing.T) {
	d, err := OpenSyscall(filepath.Join(t.TempDir(), "disk0"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	testDriverReadWrite(t, d)
}

func TestMmapDriverReadWrite(t *testing.T) {
	d, err := OpenMmap(filepath.Join(t.TempDir(), "disk0"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	testDriverReadWrite(t, d)
}

func testDriverReadWrite(t *testing.T, d Driver) {
	t.Helper()
	ctx := context.Background()
	want := []byte("sixteen bytes!!!")
	wreq, err := d.AWrite(ctx, want, 128)
	if err != nil {
		t.Fatal(err)
	}
	if err := wreq.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, len(want))
	rreq, err := d.ARead(ctx, got, 128)
	if err != nil {
		t.Fatal(err)
	}
	if err := rreq.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Errorf("got %q, want %q", got, want)
	}
	// Wait is idempotent.
	if err := rreq.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	size, err := d.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size < 128+int64(len(want)) {
		t.Errorf("size = %d, want >= %d", size, 128+len(want))
	}
}

func TestMemoryDriverShortRead(t *testing.T) {
	d := OpenMemory()
	ctx := context.Background()
	wreq, err := d.AWrite(ctx, []byte("abc"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := wreq.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 10)
	rreq, err := d.ARead(ctx, buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	err = rreq.Wait(ctx)
	if !errors.Is(errors.Integrity, err) {
		t.Fatalf("Wait() = %v, want an Integrity error", err)
	}
}

func TestOpenUnrecognizedKind(t *testing.T) {
	_, err := Open(context.Background(), "bogus", "x")
	if !errors.Is(errors.Invalid, err) {
		t.Fatalf("Open() err = %v, want an Invalid error", err)
	}
}

func TestRequestWaitCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, err := OpenSyscall(filepath.Join(t.TempDir(), "disk0"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	req, err := d.AWrite(context.Background(), []byte("x"), 0)
	if err != nil {
		t.Fatal(err)
	}
	// The request still completes even though we wait with an
	// already-canceled context.
	if err := req.Wait(ctx); err != nil && err != context.Canceled {
		t.Fatalf("Wait() = %v", err)
	}
	// But waiting with a live context always observes the real outcome.
	if err := req.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
}
