// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drive

import (
	"runtime"
)

// Identify asks the device for its identity, trying NVMe first and then
// SCSI (which also covers SATA through the SCSI/ATA translation layer).
func Identify(fd FdIntf) (*Identity, error) {
	defer runtime.KeepAlive(fd)
	if id, err := identifyNvme(fd); err == nil {
		return id, nil
	}
	if id, err := identifyScsi(fd); err == nil {
		return id, nil
	}
	return nil, ErrDeviceNotSupported
}
