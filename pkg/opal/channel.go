// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package opal talks to the Linux kernel SED OPAL driver (block/sed-opal.c).
//
// The kernel owns the TCG session machinery; this package only fills the
// fixed-layout request structures and hands them over one command at a time.
package opal

import (
	"errors"
)

var (
	ErrNotSupported = errors.New("OPAL is not supported on this platform")
)

// Command selects the request issued over a Channel.
type Command int

const (
	CmdGetGeometry Command = iota
	CmdGetLRStatus
	CmdTakeOwnership
	CmdActivateLSP
	CmdEraseLR
	CmdSecureEraseLR
	CmdActivateUser
	CmdAddUserToLR
	CmdSetPassword
	CmdLRSetup
	CmdLockUnlock
	CmdSave
	CmdPSIDRevert
	CmdGetStatus
	CmdRevertTPer
)

func (c Command) String() string {
	switch c {
	case CmdGetGeometry:
		return "get geometry"
	case CmdGetLRStatus:
		return "get locking range status"
	case CmdTakeOwnership:
		return "take ownership"
	case CmdActivateLSP:
		return "activate locking SP"
	case CmdEraseLR:
		return "erase locking range"
	case CmdSecureEraseLR:
		return "secure erase locking range"
	case CmdActivateUser:
		return "activate user"
	case CmdAddUserToLR:
		return "add user to locking range"
	case CmdSetPassword:
		return "set password"
	case CmdLRSetup:
		return "set up locking range"
	case CmdLockUnlock:
		return "lock/unlock"
	case CmdSave:
		return "save unlock key"
	case CmdPSIDRevert:
		return "PSID revert"
	case CmdGetStatus:
		return "get status"
	case CmdRevertTPer:
		return "revert TPer"
	default:
		return "unknown command"
	}
}

// Accepts reports whether arg is the payload type cmd expects.
func (c Command) Accepts(arg interface{}) bool {
	switch c {
	case CmdTakeOwnership, CmdPSIDRevert, CmdRevertTPer:
		_, ok := arg.(*Key)
		return ok
	case CmdActivateLSP:
		_, ok := arg.(*LRAct)
		return ok
	case CmdEraseLR, CmdSecureEraseLR, CmdActivateUser:
		_, ok := arg.(*SessionInfo)
		return ok
	case CmdAddUserToLR, CmdLockUnlock, CmdSave:
		_, ok := arg.(*LockUnlock)
		return ok
	case CmdSetPassword:
		_, ok := arg.(*NewPW)
		return ok
	case CmdLRSetup:
		_, ok := arg.(*UserLRSetup)
		return ok
	case CmdGetLRStatus:
		_, ok := arg.(*LRStatus)
		return ok
	case CmdGetStatus:
		_, ok := arg.(*DriveStatus)
		return ok
	case CmdGetGeometry:
		_, ok := arg.(*Geometry)
		return ok
	}
	return false
}

// Channel is an open command interface to one drive. Commands are
// synchronous; the caller serializes access.
type Channel interface {
	// Issue sends cmd with its payload, which must be a pointer to the type
	// the command expects. Results are written back into the payload.
	Issue(cmd Command, arg interface{}) Code
	Close() error
}

// Opener opens a Channel for a device path.
type Opener func(path string) (Channel, error)
