// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opal

import (
	"os"
	"runtime"
	"unsafe"

	"github.com/dswarbrick/smart/ioctl"
	"golang.org/x/sys/unix"

	"github.com/open-source-firmware/go-sedopal/pkg/drive"
)

// Defined in <linux/sed-opal.h>
var requests = map[Command]uintptr{
	CmdSave:          ioctl.Iow('p', 220, unsafe.Sizeof(LockUnlock{})),
	CmdLockUnlock:    ioctl.Iow('p', 221, unsafe.Sizeof(LockUnlock{})),
	CmdTakeOwnership: ioctl.Iow('p', 222, unsafe.Sizeof(Key{})),
	CmdActivateLSP:   ioctl.Iow('p', 223, unsafe.Sizeof(LRAct{})),
	CmdSetPassword:   ioctl.Iow('p', 224, unsafe.Sizeof(NewPW{})),
	CmdActivateUser:  ioctl.Iow('p', 225, unsafe.Sizeof(SessionInfo{})),
	CmdRevertTPer:    ioctl.Iow('p', 226, unsafe.Sizeof(Key{})),
	CmdLRSetup:       ioctl.Iow('p', 227, unsafe.Sizeof(UserLRSetup{})),
	CmdAddUserToLR:   ioctl.Iow('p', 228, unsafe.Sizeof(LockUnlock{})),
	CmdEraseLR:       ioctl.Iow('p', 230, unsafe.Sizeof(SessionInfo{})),
	CmdSecureEraseLR: ioctl.Iow('p', 231, unsafe.Sizeof(SessionInfo{})),
	CmdPSIDRevert:    ioctl.Iow('p', 232, unsafe.Sizeof(Key{})),
	CmdGetStatus:     ioctl.Ior('p', 236, unsafe.Sizeof(DriveStatus{})),
	CmdGetLRStatus:   ioctl.Iow('p', 237, unsafe.Sizeof(LRStatus{})),
	CmdGetGeometry:   ioctl.Ior('p', 238, unsafe.Sizeof(Geometry{})),
}

// Device is a Channel backed by an open block device node.
type Device struct {
	f *os.File
}

// Open opens the block device read-write, which the kernel requires for
// every OPAL ioctl.
func Open(path string) (Channel, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &Device{f: f}, nil
}

func (d *Device) Issue(cmd Command, arg interface{}) Code {
	req, ok := requests[cmd]
	if !ok || !cmd.Accepts(arg) {
		return Errno(unix.EINVAL)
	}
	ptr := pointer(arg)
	// The positive return value carries the method status, so this cannot
	// go through ioctl.Ioctl which only reports errno.
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, uintptr(ptr))
	runtime.KeepAlive(arg)
	runtime.KeepAlive(d.f)
	if errno != 0 {
		return Errno(errno)
	}
	return Code(int32(r))
}

// Identify returns the identity of the drive behind the channel.
func (d *Device) Identify() (*drive.Identity, error) {
	id, err := drive.Identify(d.f)
	runtime.KeepAlive(d.f)
	return id, err
}

func (d *Device) Close() error {
	return d.f.Close()
}

func pointer(arg interface{}) unsafe.Pointer {
	switch v := arg.(type) {
	case *Key:
		return unsafe.Pointer(v)
	case *SessionInfo:
		return unsafe.Pointer(v)
	case *LRAct:
		return unsafe.Pointer(v)
	case *UserLRSetup:
		return unsafe.Pointer(v)
	case *LRStatus:
		return unsafe.Pointer(v)
	case *LockUnlock:
		return unsafe.Pointer(v)
	case *NewPW:
		return unsafe.Pointer(v)
	case *DriveStatus:
		return unsafe.Pointer(v)
	case *Geometry:
		return unsafe.Pointer(v)
	}
	return nil
}
