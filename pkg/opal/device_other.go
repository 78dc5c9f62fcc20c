// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package opal

// Open always fails: the OPAL ioctl interface only exists on Linux.
func Open(path string) (Channel, error) {
	return nil, ErrNotSupported
}
