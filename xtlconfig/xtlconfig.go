// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package xtlconfig loads the disk layout a process runs against: a small
// explicit config struct populated once at startup rather than a DSL.
package xtlconfig

import (
	"encoding/json"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/xtlgo/xtl/disk"
)

// fallbackDiskBytes sizes the synthesized single-disk config used when
// STXXLCFG is unset. Probing the real free space of os.TempDir() would
// need golang.org/x/sys/unix.Statfs, a platform-specific dependency not
// present anywhere in the retrieval pack; a conservative fixed size keeps
// the fallback portable at the cost of not reflecting actual free space.
const fallbackDiskBytes = 1 << 30 // 1GiB

// DiskConfig describes one backing disk.
type DiskConfig struct {
	Path          string          `json:"path"`
	CapacityBytes int64           `json:"capacity_bytes"`
	Driver        disk.DriverKind `json:"driver"`
}

// Config is the full disk layout for a process.
type Config struct {
	Disks            []DiskConfig `json:"disks"`
	DefaultBlockSize int          `json:"default_block_size"`
}

const defaultBlockSize = 1 << 20 // 1MiB

// Load reads the disk layout named by the STXXLCFG environment variable (a
// JSON file), or synthesizes a single temp-file-backed disk of
// fallbackDiskBytes if STXXLCFG is unset.
func Load() (*Config, error) {
	path := os.Getenv("STXXLCFG")
	if path == "" {
		log.Debug.Printf("xtlconfig: STXXLCFG unset, using a %d-byte temp disk under %s", fallbackDiskBytes, os.TempDir())
		return &Config{
			Disks: []DiskConfig{{
				Path:          os.TempDir() + "/xtl-disk0",
				CapacityBytes: fallbackDiskBytes,
				Driver:        disk.Syscall,
			}},
			DefaultBlockSize: defaultBlockSize,
		}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(errors.Invalid, "xtlconfig.Load", path, err)
	}
	defer f.Close()
	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, errors.E(errors.Invalid, "xtlconfig.Load", path, err)
	}
	if len(cfg.Disks) == 0 {
		return nil, errors.E(errors.Invalid, "xtlconfig.Load", path, "no disks configured")
	}
	if cfg.DefaultBlockSize <= 0 {
		cfg.DefaultBlockSize = defaultBlockSize
	}
	return &cfg, nil
}
