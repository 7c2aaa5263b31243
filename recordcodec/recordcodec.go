// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package recordcodec provides the fixed-width record encodings shared by
// blockstream, pagedvector, and blockseq. External-memory containers pack
// records at a known stride so that "records per block" is a compile-time
// constant derived from the block size, rather than requiring a
// variable-length framing format within a block.
package recordcodec

import "encoding/binary"

// A Codec encodes and decodes fixed-width records of type T to and from a
// block's byte buffer. Size is the number of bytes one record occupies;
// Encode and Decode never see a buffer shorter than Size.
type Codec[T any] interface {
	Size() int
	Encode(buf []byte, v T)
	Decode(buf []byte) T
}

// Uint64LE encodes uint64 records as 8 little-endian bytes, the record type
// of the texts and suffix arrays that dc3 and cmd/sacompute store in paged
// vectors.
type Uint64LE struct{}

func (Uint64LE) Size() int { return 8 }

func (Uint64LE) Encode(buf []byte, v uint64) { binary.LittleEndian.PutUint64(buf, v) }

func (Uint64LE) Decode(buf []byte) uint64 { return binary.LittleEndian.Uint64(buf) }

// Int64LE encodes int64 records as 8 little-endian bytes.
type Int64LE struct{}

func (Int64LE) Size() int { return 8 }

func (Int64LE) Encode(buf []byte, v int64) { binary.LittleEndian.PutUint64(buf, uint64(v)) }

func (Int64LE) Decode(buf []byte) int64 { return int64(binary.LittleEndian.Uint64(buf)) }

// Uint32LE encodes uint32 records as 4 little-endian bytes.
type Uint32LE struct{}

func (Uint32LE) Size() int { return 4 }

func (Uint32LE) Encode(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf, v) }

func (Uint32LE) Decode(buf []byte) uint32 { return binary.LittleEndian.Uint32(buf) }
