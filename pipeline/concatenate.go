// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import "context"

// concatenate reads a in full, then b, transitioning exactly once.
type concatenate[T any] struct {
	a, b     Stream[T]
	onSecond bool
}

// Concatenate returns a Stream that yields every element of a followed by
// every element of b.
func Concatenate[T any](a, b Stream[T]) Stream[T] {
	return &concatenate[T]{a: a, b: b}
}

func (c *concatenate[T]) normalize() {
	if !c.onSecond && c.a.Empty() {
		c.onSecond = true
	}
}

func (c *concatenate[T]) Empty() bool {
	c.normalize()
	if !c.onSecond {
		return false
	}
	return c.b.Empty()
}

func (c *concatenate[T]) Peek() T {
	c.normalize()
	if !c.onSecond {
		return c.a.Peek()
	}
	return c.b.Peek()
}

func (c *concatenate[T]) Advance(ctx context.Context) error {
	c.normalize()
	if !c.onSecond {
		return c.a.Advance(ctx)
	}
	return c.b.Advance(ctx)
}
