// Copyright 2026 The xtl Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package disk

import (
	"context"
	"strings"

	"github.com/grailbio/base/errors"
)

// Open opens path under the given driver kind. For Memory, path is ignored.
// For Syscall and Mmap, a path containing "://" is treated as a remote
// object reference and opened through grailbio/base/file instead of the
// local filesystem (Mmap has no remote form and falls back to Syscall's
// remote path in that case, since there is no local file to map).
func Open(ctx context.Context, kind DriverKind, path string) (Driver, error) {
	remote := strings.Contains(path, "://")
	switch kind {
	case Memory:
		return OpenMemory(), nil
	case Syscall:
		if remote {
			return OpenRemote(ctx, path)
		}
		return OpenSyscall(path)
	case Mmap:
		if remote {
			return OpenRemote(ctx, path)
		}
		return OpenMmap(path)
	default:
		return nil, errors.E(errors.Invalid, "disk.Open", "unrecognized driver kind "+string(kind))
	}
}
