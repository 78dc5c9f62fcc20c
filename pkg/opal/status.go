// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Method status codes as defined in TCG Storage Architecture Core
// Specification v2.01, section 5.1.5, table 166.

package opal

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type Status uint8

const (
	StatusSuccess             Status = 0x00
	StatusNotAuthorized       Status = 0x01
	StatusObsolete0           Status = 0x02
	StatusSPBusy              Status = 0x03
	StatusSPFailed            Status = 0x04
	StatusSPDisabled          Status = 0x05
	StatusSPFrozen            Status = 0x06
	StatusNoSessionsAvailable Status = 0x07
	StatusUniquenessConflict  Status = 0x08
	StatusInsufficientSpace   Status = 0x09
	StatusInsufficientRows    Status = 0x0A
	StatusObsolete1           Status = 0x0B
	StatusInvalidParameter    Status = 0x0C
	StatusObsolete2           Status = 0x0D
	StatusObsolete3           Status = 0x0E
	StatusTPerMalfunction     Status = 0x0F
	StatusTransactionFailure  Status = 0x10
	StatusResponseOverflow    Status = 0x11
	StatusAuthorityLockedOut  Status = 0x12
	StatusFail                Status = 0x3F
)

// Known reports whether s is a status defined by TCG Core.
func (s Status) Known() bool {
	return s <= StatusAuthorityLockedOut || s == StatusFail
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotAuthorized:
		return "not authorized"
	case StatusObsolete0, StatusObsolete1, StatusObsolete2, StatusObsolete3:
		return "obsolete"
	case StatusSPBusy:
		return "SP busy"
	case StatusSPFailed:
		return "SP failed"
	case StatusSPDisabled:
		return "SP disabled"
	case StatusSPFrozen:
		return "SP frozen"
	case StatusNoSessionsAvailable:
		return "no sessions available"
	case StatusUniquenessConflict:
		return "uniqueness conflict"
	case StatusInsufficientSpace:
		return "insufficient space"
	case StatusInsufficientRows:
		return "insufficient rows"
	case StatusInvalidParameter:
		return "invalid parameter"
	case StatusTPerMalfunction:
		return "TPer malfunction"
	case StatusTransactionFailure:
		return "transaction failure"
	case StatusResponseOverflow:
		return "response overflow"
	case StatusAuthorityLockedOut:
		return "authority locked out"
	case StatusFail:
		return "unknown failure"
	default:
		return "unknown error"
	}
}

// Kind tags what a Code carries.
type Kind int

const (
	KindSuccess Kind = iota
	KindStatus
	KindOS
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindStatus:
		return "method status"
	case KindOS:
		return "os error"
	default:
		return "unknown"
	}
}

// Code is the raw result of issuing a command: a method status reported by
// the drive when non-negative, or a negated errno when the kernel failed the
// request itself.
type Code int

// Errno wraps an OS error number into a Code.
func Errno(e unix.Errno) Code {
	return Code(-int(e))
}

func (c Code) Kind() Kind {
	switch {
	case c == 0:
		return KindSuccess
	case c < 0:
		return KindOS
	case c > 0xff || !Status(c).Known():
		return KindUnknown
	default:
		return KindStatus
	}
}

// OK reports whether the command succeeded.
func (c Code) OK() bool {
	return c == 0
}

// Status returns the method status carried by c. It is only meaningful
// when Kind is KindSuccess or KindStatus.
func (c Code) Status() Status {
	if c < 0 || c > 0xff {
		return StatusFail
	}
	return Status(c)
}

// Errno returns the OS error carried by c, or 0.
func (c Code) Errno() unix.Errno {
	if c >= 0 {
		return 0
	}
	return unix.Errno(-c)
}

// Is reports whether c is the given method status.
func (c Code) Is(s Status) bool {
	return c.Kind() != KindOS && c == Code(s)
}

func (c Code) String() string {
	switch c.Kind() {
	case KindSuccess, KindStatus:
		return c.Status().String()
	case KindOS:
		return c.Errno().Error()
	default:
		return "unknown error"
	}
}

// GoString is used by %#v and keeps the numeric value visible.
func (c Code) GoString() string {
	return fmt.Sprintf("opal.Code(%d %q)", int(c), c.String())
}
