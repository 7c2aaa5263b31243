// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Command sacompute builds (and optionally checks) the suffix array of a
// text, exercising the block-pool engine end to end: dc3 builds the array,
// pipeline/sacheck verify it, and xtlconfig supplies the disk layout.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/xtlgo/xtl/dc3"
	"github.com/xtlgo/xtl/disk"
	"github.com/xtlgo/xtl/diskmanager"
	"github.com/xtlgo/xtl/pagedvector"
	"github.com/xtlgo/xtl/pipeline"
	"github.com/xtlgo/xtl/pool"
	"github.com/xtlgo/xtl/recordcodec"
	"github.com/xtlgo/xtl/sacheck"
	"github.com/xtlgo/xtl/xtlconfig"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code: 0 on success, 1 on a usage error, an
// input longer than -s, or a failed -c verification.
func run(args []string) int {
	fs := flag.NewFlagSet("sacompute", flag.ContinueOnError)
	check := fs.Bool("c", false, "check the computed suffix array against the input")
	asText := fs.Bool("t", false, "print the suffix array as text")
	outPath := fs.String("o", "", "write the suffix array to path")
	literal := fs.Bool("v", false, "treat input as literal text rather than a path")
	sizeLimit := fs.String("s", "", "size limit for generated or read input, e.g. 10M")
	memBudget := fs.String("M", "64M", "memory budget for sorting, e.g. 64M")
	wordSize := fs.Int("w", 64, "output word size in bits: 32, 40, or 64")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: sacompute [flags] input")
		return 1
	}
	if *wordSize != 32 && *wordSize != 40 && *wordSize != 64 {
		fmt.Fprintf(os.Stderr, "sacompute: -w must be 32, 40, or 64, got %d\n", *wordSize)
		return 1
	}

	var sizeLimitBytes int64 = -1
	if *sizeLimit != "" {
		n, err := parseSize(*sizeLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sacompute: -s: %v\n", err)
			return 1
		}
		sizeLimitBytes = n
	}
	memBudgetBytes, err := parseSize(*memBudget)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sacompute: -M: %v\n", err)
		return 1
	}

	text, err := loadInput(fs.Arg(0), *literal, sizeLimitBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sacompute: %v\n", err)
		return 1
	}

	sa := dc3.Build(text)

	if *check {
		ok, err := verify(text, sa, int(memBudgetBytes))
		if err != nil {
			fmt.Fprintf(os.Stderr, "sacompute: verification error: %v\n", err)
			return 1
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "sacompute: suffix array failed verification")
			return 1
		}
	}

	if *asText {
		var b strings.Builder
		for i, v := range sa {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d", v)
		}
		b.WriteByte('\n')
		fmt.Print(b.String())
	}

	if *outPath != "" {
		if err := writeSA(*outPath, sa, *wordSize); err != nil {
			fmt.Fprintf(os.Stderr, "sacompute: %v\n", err)
			return 1
		}
	}
	return 0
}

// loadInput resolves the positional input argument: literal text (-v),
// the special path names "random"/"unary" (each requiring -s to bound
// their length), or the contents of a file at path, rejected if it
// exceeds sizeLimitBytes (sizeLimitBytes < 0 means unbounded).
func loadInput(arg string, literal bool, sizeLimitBytes int64) ([]byte, error) {
	if literal {
		return []byte(arg), nil
	}
	switch arg {
	case "random":
		if sizeLimitBytes < 0 {
			return nil, fmt.Errorf("input %q requires -s", arg)
		}
		buf := make([]byte, sizeLimitBytes)
		r := rand.New(rand.NewSource(1))
		for i := range buf {
			buf[i] = byte('a' + r.Intn(26))
		}
		return buf, nil
	case "unary":
		if sizeLimitBytes < 0 {
			return nil, fmt.Errorf("input %q requires -s", arg)
		}
		buf := make([]byte, sizeLimitBytes)
		for i := range buf {
			buf[i] = 'a'
		}
		return buf, nil
	default:
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if sizeLimitBytes >= 0 && info.Size() > sizeLimitBytes {
			return nil, fmt.Errorf("input too long: %d bytes exceeds -s %d", info.Size(), sizeLimitBytes)
		}
		return os.ReadFile(arg)
	}
}

// verify builds a disk layout from STXXLCFG, materializes text and sa into
// paged vectors, and checks one against the other through sacheck, so
// verification drains both inputs through the same buffered-stream path
// (L4a -> L3 -> L5) the rest of the engine pulls container contents
// through rather than comparing the two in-memory slices directly.
func verify(text []byte, sa []uint64, memoryBudget int) (bool, error) {
	cfg, err := xtlconfig.Load()
	if err != nil {
		return false, err
	}
	ctx := context.Background()
	drivers := make([]diskmanager.Driver, len(cfg.Disks))
	capacities := make([]int64, len(cfg.Disks))
	for i, d := range cfg.Disks {
		drv, err := disk.Open(ctx, d.Driver, d.Path)
		if err != nil {
			return false, err
		}
		drivers[i] = drv
		capacities[i] = d.CapacityBytes
	}
	manager := diskmanager.New(drivers, capacities)
	blockSize := cfg.DefaultBlockSize
	pl := pool.New(manager, blockSize, 8, 2)
	strategy := diskmanager.Striping{}

	textVals := make([]uint64, len(text))
	for i, c := range text {
		textVals[i] = uint64(c)
	}

	const pageSizeBlocks, windowPages = 4, 4
	textVec := pagedvector.New[uint64](pl, manager, strategy, recordcodec.Uint64LE{}, pageSizeBlocks, windowPages, pagedvector.LRU)
	tw := pagedvector.BufWriter[uint64](textVec)
	tbids, tn, err := pipeline.MaterializeWriter[uint64](ctx, pipeline.FromSlice(textVals), tw)
	if err != nil {
		return false, err
	}
	textVec.FromBIDs(tbids, tn)

	saVec := pagedvector.New[uint64](pl, manager, strategy, recordcodec.Uint64LE{}, pageSizeBlocks, windowPages, pagedvector.LRU)
	sw := pagedvector.BufWriter[uint64](saVec)
	sbids, sn, err := pipeline.MaterializeWriter[uint64](ctx, pipeline.FromSlice(sa), sw)
	if err != nil {
		return false, err
	}
	saVec.FromBIDs(sbids, sn)

	textStream, err := pipeline.Streamify(ctx, textVec, 0, textVec.Len(), 2)
	if err != nil {
		return false, err
	}
	saStream, err := pipeline.Streamify(ctx, saVec, 0, saVec.Len(), 2)
	if err != nil {
		return false, err
	}

	log.Debug.Printf("sacompute: verifying suffix array of %d bytes with memory budget %d", len(text), memoryBudget)
	return sacheck.Check(ctx, pl, manager, strategy, textStream, saStream, len(text), memoryBudget, blockSize)
}

// writeSA writes sa to path as little-endian fixed-width words. 40-bit
// words are packed into 5 bytes; 32 and 64-bit words use their natural
// encoding/binary width.
func writeSA(path string, sa []uint64, wordSize int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, v := range sa {
		var buf []byte
		switch wordSize {
		case 32:
			buf = make([]byte, 4)
			binary.LittleEndian.PutUint32(buf, uint32(v))
		case 40:
			buf = make([]byte, 5)
			for i := 0; i < 5; i++ {
				buf[i] = byte(v >> (8 * i))
			}
		default:
			buf = make([]byte, 8)
			binary.LittleEndian.PutUint64(buf, v)
		}
		if _, err := f.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'K', 'k':
		mult = 1 << 10
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1 << 20
		s = s[:len(s)-1]
	case 'G', 'g':
		mult = 1 << 30
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}
