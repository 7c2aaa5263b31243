// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"10":   10,
		"10K":  10 << 10,
		"10k":  10 << 10,
		"64M":  64 << 20,
		"1G":   1 << 30,
	}
	for in, want := range cases {
		got, err := parseSize(in)
		if err != nil {
			t.Fatalf("parseSize(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseSize(%q) = %d, want %d", in, got, want)
		}
	}
	if _, err := parseSize(""); err == nil {
		t.Fatal("parseSize(\"\") should have failed")
	}
	if _, err := parseSize("abc"); err == nil {
		t.Fatal("parseSize(\"abc\") should have failed")
	}
}

func TestLoadInputLiteral(t *testing.T) {
	got, err := loadInput("banana", true, -1)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "banana" {
		t.Fatalf("got %q, want banana", got)
	}
}

func TestLoadInputRandomAndUnaryRequireSizeLimit(t *testing.T) {
	if _, err := loadInput("random", false, -1); err == nil {
		t.Fatal("loadInput(\"random\") without -s should fail")
	}
	got, err := loadInput("unary", false, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("got len %d, want 5", len(got))
	}
	for _, c := range got {
		if c != 'a' {
			t.Fatalf("unary input contained non-'a' byte: %v", got)
		}
	}
}

func TestLoadInputRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadInput(path, false, 5); err == nil {
		t.Fatal("loadInput should reject input exceeding -s")
	}
	got, err := loadInput(path, false, 10)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "0123456789" {
		t.Fatalf("got %q", got)
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "stxxl.json")
	cfgBytes, err := json.Marshal(map[string]interface{}{
		"disks": []map[string]interface{}{
			{"path": "", "capacity_bytes": 1 << 20, "driver": "memory"},
		},
		"default_block_size": 64,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfgPath, cfgBytes, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STXXLCFG", cfgPath)

	out := filepath.Join(dir, "sa.bin")
	code := run([]string{"-c", "-t", "-o", out, "-v", "banana"})
	if code != 0 {
		t.Fatalf("run returned %d, want 0", code)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 6*8 {
		t.Fatalf("output size = %d, want %d", info.Size(), 6*8)
	}
}
