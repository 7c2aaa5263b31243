// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package disk

import (
	"context"
)

// A Request is a handle to an in-flight asynchronous I/O operation. Wait
// blocks until the operation completes and is idempotent: calling it
// multiple times (concurrently or not) returns the same outcome. A Request
// that is never waited on still runs to completion; there is no
// cancellation.
type Request struct {
	done chan struct{}
	err  error
}

// newRequest returns a Request that completes when run has returned. run is
// invoked on a new goroutine.
func newRequest(run func() error) *Request {
	r := &Request{done: make(chan struct{})}
	go func() {
		r.err = run()
		close(r.done)
	}()
	return r
}

// completed returns a Request that has already finished with err.
func completed(err error) *Request {
	r := &Request{done: make(chan struct{}), err: err}
	close(r.done)
	return r
}

// Wait blocks until the request completes or ctx is done, whichever comes
// first, and returns the request's outcome. Wait may be called any number
// of times, including concurrently; every caller observes the same error.
func (r *Request) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done reports whether the request has completed, without blocking.
func (r *Request) Done() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
