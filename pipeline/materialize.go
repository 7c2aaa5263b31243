// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"

	"github.com/xtlgo/xtl/blockstream"
	"github.com/xtlgo/xtl/disk"
)

// Materialize drains s in full, calling sink for every element in order,
// and returns the total count written. sink is typically a blockstream
// buffered writer or a paged-vector Set closure.
func Materialize[T any](ctx context.Context, s Stream[T], sink func(ctx context.Context, v T) error) (int, error) {
	n := 0
	for !s.Empty() {
		if err := sink(ctx, s.Peek()); err != nil {
			return n, err
		}
		n++
		if err := s.Advance(ctx); err != nil {
			return n, err
		}
	}
	return n, nil
}

// MaterializeWriter drains s into w and closes w, returning the finished
// BID chain and record count.
func MaterializeWriter[T any](ctx context.Context, s Stream[T], w *blockstream.Writer[T]) ([]disk.BID, int, error) {
	for !s.Empty() {
		if err := w.Write(ctx, s.Peek()); err != nil {
			return nil, 0, err
		}
		if err := s.Advance(ctx); err != nil {
			return nil, 0, err
		}
	}
	return w.Close(ctx)
}
