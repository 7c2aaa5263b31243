// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import "context"

// Pair is the result of zipping two streams together.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple is the result of zipping three streams together.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

type zip2[A, B any] struct {
	a Stream[A]
	b Stream[B]
}

// Zip2 advances two streams in lockstep, yielding a Pair for every position
// both streams still have an element. It is empty as soon as either input
// is empty, matching make_tuple's "empty iff any input is empty" rule.
func Zip2[A, B any](a Stream[A], b Stream[B]) Stream[Pair[A, B]] {
	return &zip2[A, B]{a: a, b: b}
}

func (z *zip2[A, B]) Empty() bool { return z.a.Empty() || z.b.Empty() }

func (z *zip2[A, B]) Peek() Pair[A, B] {
	if z.Empty() {
		panic("pipeline: Peek on empty Zip2")
	}
	return Pair[A, B]{First: z.a.Peek(), Second: z.b.Peek()}
}

func (z *zip2[A, B]) Advance(ctx context.Context) error {
	if z.Empty() {
		panic("pipeline: Advance on empty Zip2")
	}
	if err := z.a.Advance(ctx); err != nil {
		return err
	}
	return z.b.Advance(ctx)
}

type zip3[A, B, C any] struct {
	a Stream[A]
	b Stream[B]
	c Stream[C]
}

// Zip3 is Zip2 generalized to three streams.
func Zip3[A, B, C any](a Stream[A], b Stream[B], c Stream[C]) Stream[Triple[A, B, C]] {
	return &zip3[A, B, C]{a: a, b: b, c: c}
}

func (z *zip3[A, B, C]) Empty() bool { return z.a.Empty() || z.b.Empty() || z.c.Empty() }

func (z *zip3[A, B, C]) Peek() Triple[A, B, C] {
	if z.Empty() {
		panic("pipeline: Peek on empty Zip3")
	}
	return Triple[A, B, C]{First: z.a.Peek(), Second: z.b.Peek(), Third: z.c.Peek()}
}

func (z *zip3[A, B, C]) Advance(ctx context.Context) error {
	if z.Empty() {
		panic("pipeline: Advance on empty Zip3")
	}
	if err := z.a.Advance(ctx); err != nil {
		return err
	}
	if err := z.b.Advance(ctx); err != nil {
		return err
	}
	return z.c.Advance(ctx)
}

// ChooseFirst projects the first component of every Pair in s.
func ChooseFirst[A, B any](s Stream[Pair[A, B]]) Stream[A] {
	return chooseFunc[Pair[A, B], A]{s: s, f: func(p Pair[A, B]) A { return p.First }}
}

// ChooseSecond projects the second component of every Pair in s, the
// choose<1> case.
func ChooseSecond[A, B any](s Stream[Pair[A, B]]) Stream[B] {
	return chooseFunc[Pair[A, B], B]{s: s, f: func(p Pair[A, B]) B { return p.Second }}
}

type chooseFunc[T, U any] struct {
	s Stream[T]
	f func(T) U
}

func (c chooseFunc[T, U]) Empty() bool { return c.s.Empty() }

func (c chooseFunc[T, U]) Peek() U { return c.f(c.s.Peek()) }

func (c chooseFunc[T, U]) Advance(ctx context.Context) error { return c.s.Advance(ctx) }
