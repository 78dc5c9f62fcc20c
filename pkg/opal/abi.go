// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Payload definitions mirroring <linux/sed-opal.h>

package opal

const (
	// KeyMax is OPAL_KEY_MAX, the size of the key array in every payload.
	KeyMax = 256
	// MaxKeyLen is the longest credential the kernel can carry; key_len is a single byte.
	MaxKeyLen = 255
	// MaxLRs is OPAL_MAX_LRS: the global range plus eight carved ranges.
	MaxLRs = 9
)

// User selects the authority of a session.
type User uint32

const (
	Admin1 User = 0x0
	User1  User = 0x01
	User2  User = 0x02
	User3  User = 0x03
	User4  User = 0x04
	User5  User = 0x05
	User6  User = 0x06
	User7  User = 0x07
	User8  User = 0x08
	User9  User = 0x09
)

func (u User) String() string {
	switch {
	case u == Admin1:
		return "Admin1"
	case u >= User1 && u <= User9:
		return "User" + string(rune('0'+u))
	default:
		return "Unknown"
	}
}

// LockState is the l_state value of lock/unlock and range status payloads.
type LockState uint32

const (
	ReadOnly  LockState = 0x01
	ReadWrite LockState = 0x02
	Locked    LockState = 0x04
)

func (l LockState) String() string {
	switch l {
	case ReadOnly:
		return "read-only"
	case ReadWrite:
		return "unlocked"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// SaveForLock asks the kernel to keep the unlock key so the range can be
// unlocked on resume and locked again without the key.
const SaveForLock uint16 = 0x01

// Status flags reported by GetStatus.
const (
	FlagSupported        uint32 = 0x00000001
	FlagLockingSupported uint32 = 0x00000002
	FlagLockingEnabled   uint32 = 0x00000004
	FlagLocked           uint32 = 0x00000008
	FlagMBREnabled       uint32 = 0x00000010
	FlagMBRDone          uint32 = 0x00000020
	FlagSUMSupported     uint32 = 0x00000040
)

// Key is struct opal_key.
type Key struct {
	LR      uint8
	KeyLen  uint8
	KeyType uint8
	_       [5]uint8
	Key     [KeyMax]byte
}

// Set copies b into the key. The caller has already checked len(b) <= MaxKeyLen.
func (k *Key) Set(b []byte) {
	k.KeyLen = uint8(copy(k.Key[:MaxKeyLen], b))
}

// Bytes returns the significant part of the key.
func (k *Key) Bytes() []byte {
	return k.Key[:k.KeyLen]
}

// SessionInfo is struct opal_session_info.
type SessionInfo struct {
	Sum uint32
	Who User
	Key Key
}

// LRAct is struct opal_lr_act.
type LRAct struct {
	Key    Key
	Sum    uint32
	NumLRs uint8
	LR     [MaxLRs]uint8
	_      [2]uint8
}

// UserLRSetup is struct opal_user_lr_setup.
type UserLRSetup struct {
	RangeStart  uint64
	RangeLength uint64
	RLE         uint32
	WLE         uint32
	Session     SessionInfo
}

// LRStatus is struct opal_lr_status.
type LRStatus struct {
	Session     SessionInfo
	RangeStart  uint64
	RangeLength uint64
	RLE         uint32
	WLE         uint32
	LState      LockState
	_           [4]uint8
}

// LockUnlock is struct opal_lock_unlock.
type LockUnlock struct {
	Session SessionInfo
	LState  LockState
	Flags   uint16
	_       [2]uint8
}

// NewPW is struct opal_new_pw.
type NewPW struct {
	Session   SessionInfo
	NewUserPW SessionInfo
}

// DriveStatus is struct opal_status.
type DriveStatus struct {
	Flags uint32
	_     uint32
}

// Geometry is struct opal_geometry.
type Geometry struct {
	Align                uint8
	LogicalBlockSize     uint32
	AlignmentGranularity uint64
	LowestAlignedLBA     uint64
	_                    [3]uint8
}

// Payload lists every type that can be handed to a Channel.
type Payload interface {
	Key | SessionInfo | LRAct | UserLRSetup | LRStatus | LockUnlock | NewPW | DriveStatus | Geometry
}
