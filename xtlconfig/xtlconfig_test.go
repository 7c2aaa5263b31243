// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package xtlconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/xtlgo/xtl/disk"
)

func TestLoadFallsBackWhenSTXXLCFGUnset(t *testing.T) {
	t.Setenv("STXXLCFG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Disks) != 1 {
		t.Fatalf("got %d disks, want 1", len(cfg.Disks))
	}
	if cfg.Disks[0].Driver != disk.Syscall {
		t.Fatalf("fallback driver = %v, want Syscall", cfg.Disks[0].Driver)
	}
	if cfg.DefaultBlockSize != defaultBlockSize {
		t.Fatalf("DefaultBlockSize = %d, want %d", cfg.DefaultBlockSize, defaultBlockSize)
	}
}

func TestLoadReadsSTXXLCFG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stxxl.json")
	want := Config{
		Disks: []DiskConfig{
			{Path: filepath.Join(dir, "disk0"), CapacityBytes: 1 << 20, Driver: disk.Memory},
			{Path: filepath.Join(dir, "disk1"), CapacityBytes: 1 << 21, Driver: disk.Syscall},
		},
		DefaultBlockSize: 4096,
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.NewEncoder(f).Encode(want); err != nil {
		t.Fatal(err)
	}
	f.Close()

	t.Setenv("STXXLCFG", path)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Disks) != 2 || cfg.DefaultBlockSize != 4096 {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
	if cfg.Disks[1].Driver != disk.Syscall {
		t.Fatalf("Disks[1].Driver = %v, want Syscall", cfg.Disks[1].Driver)
	}
}

func TestLoadRejectsEmptyDiskList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stxxl.json")
	if err := os.WriteFile(path, []byte(`{"disks":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STXXLCFG", path)
	if _, err := Load(); err == nil {
		t.Fatal("Load accepted a config with no disks")
	}
}
