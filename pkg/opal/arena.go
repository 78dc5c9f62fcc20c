// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opal

import (
	"unsafe"

	"github.com/awnumar/memguard"
)

// chunkSize is one page; a whole provisioning run fits in a single chunk,
// which keeps the locked memory well below the default RLIMIT_MEMLOCK.
const chunkSize = 4096

// Arena hands out zeroed payloads in locked, guarded memory. Release wipes
// and unmaps all of them; callers defer it right after NewArena.
type Arena struct {
	bufs []*memguard.LockedBuffer
	free []byte
	n    int
}

func NewArena() *Arena {
	return &Arena{}
}

// Alloc returns a zeroed T owned by a.
//
// Chunks start on a page boundary and every payload size is a multiple of 8,
// so the returned pointer is 8-byte aligned.
func Alloc[T Payload](a *Arena) *T {
	var zero T
	p := a.take(int(unsafe.Sizeof(zero)))
	return (*T)(unsafe.Pointer(&p[0]))
}

func (a *Arena) take(size int) []byte {
	a.n++
	if size > chunkSize {
		b := memguard.NewBuffer(size)
		a.bufs = append(a.bufs, b)
		return b.Bytes()
	}
	if len(a.free) < size {
		b := memguard.NewBuffer(chunkSize)
		a.bufs = append(a.bufs, b)
		a.free = b.Bytes()
	}
	p := a.free[:size:size]
	a.free = a.free[size:]
	return p
}

// Release destroys every payload handed out so far. It is safe to call more
// than once.
func (a *Arena) Release() {
	for _, b := range a.bufs {
		b.Destroy()
	}
	a.bufs = nil
	a.free = nil
	a.n = 0
}

// Len returns the number of live payloads.
func (a *Arena) Len() int {
	return a.n
}

// Wipe zeroes a caller-owned credential buffer.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}
