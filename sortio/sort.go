// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package sortio describes the on-disk shape of sorted runs produced by
// external sorting and consumed by run merging. The merge and creation
// logic itself lives in package pipeline, generalized from this package's
// original frame-oriented heap merge to the generic Run/Runs descriptor
// defined here.
package sortio

import "github.com/xtlgo/xtl/disk"

// A Run is a single sorted, disk-resident sequence of records: the block
// IDs holding its data, its record count, and the first and last keys it
// contains (recorded by pipeline.RunsCreator; pipeline.NewRunsMerger does
// not consult them).
type Run[T any] struct {
	BIDs        []disk.BID
	SizeRecords int
	FirstKey    T
	LastKey     T
}

// Runs is the in-memory, immutable descriptor of a completed external
// sort: an ordered list of Run values sharing a comparator identity.
// CmpID is a free-form name for the comparator the runs were produced
// under; pipeline.RunsCreator.Result leaves it empty and
// pipeline.NewRunsMerger does not inspect it. Built by
// pipeline.RunsCreator.Result, consumed by pipeline.NewRunsMerger.
type Runs[T any] struct {
	CmpID string
	Runs  []Run[T]
}
