// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opal

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

// Sizes as laid out by <linux/sed-opal.h> on 64-bit targets.
func TestPayloadSizes(t *testing.T) {
	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"opal_key", unsafe.Sizeof(Key{}), 264},
		{"opal_session_info", unsafe.Sizeof(SessionInfo{}), 272},
		{"opal_lr_act", unsafe.Sizeof(LRAct{}), 280},
		{"opal_user_lr_setup", unsafe.Sizeof(UserLRSetup{}), 296},
		{"opal_lr_status", unsafe.Sizeof(LRStatus{}), 304},
		{"opal_lock_unlock", unsafe.Sizeof(LockUnlock{}), 280},
		{"opal_new_pw", unsafe.Sizeof(NewPW{}), 544},
		{"opal_status", unsafe.Sizeof(DriveStatus{}), 8},
		{"opal_geometry", unsafe.Sizeof(Geometry{}), 32},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.got, tc.name)
	}
}

func TestPayloadOffsets(t *testing.T) {
	var k Key
	assert.Equal(t, uintptr(8), unsafe.Offsetof(k.Key))

	var s SessionInfo
	assert.Equal(t, uintptr(4), unsafe.Offsetof(s.Who))
	assert.Equal(t, uintptr(8), unsafe.Offsetof(s.Key))

	var act LRAct
	assert.Equal(t, uintptr(264), unsafe.Offsetof(act.Sum))
	assert.Equal(t, uintptr(268), unsafe.Offsetof(act.NumLRs))
	assert.Equal(t, uintptr(269), unsafe.Offsetof(act.LR))

	var setup UserLRSetup
	assert.Equal(t, uintptr(16), unsafe.Offsetof(setup.RLE))
	assert.Equal(t, uintptr(24), unsafe.Offsetof(setup.Session))

	var st LRStatus
	assert.Equal(t, uintptr(272), unsafe.Offsetof(st.RangeStart))
	assert.Equal(t, uintptr(296), unsafe.Offsetof(st.LState))

	var lu LockUnlock
	assert.Equal(t, uintptr(272), unsafe.Offsetof(lu.LState))
	assert.Equal(t, uintptr(276), unsafe.Offsetof(lu.Flags))

	var g Geometry
	assert.Equal(t, uintptr(4), unsafe.Offsetof(g.LogicalBlockSize))
	assert.Equal(t, uintptr(8), unsafe.Offsetof(g.AlignmentGranularity))
	assert.Equal(t, uintptr(16), unsafe.Offsetof(g.LowestAlignedLBA))
}

func TestKeySet(t *testing.T) {
	var k Key
	k.Set([]byte("AAAA"))
	assert.Equal(t, uint8(4), k.KeyLen)
	assert.Equal(t, []byte("AAAA"), k.Bytes())

	long := make([]byte, KeyMax+10)
	for i := range long {
		long[i] = 'x'
	}
	k.Set(long)
	assert.Equal(t, uint8(MaxKeyLen), k.KeyLen)
	assert.Len(t, k.Bytes(), MaxKeyLen)
}

func TestUserString(t *testing.T) {
	assert.Equal(t, "Admin1", Admin1.String())
	assert.Equal(t, "User1", User1.String())
	assert.Equal(t, "User9", User9.String())
	assert.Equal(t, "Unknown", User(10).String())
}

func TestLockStateString(t *testing.T) {
	assert.Equal(t, "locked", Locked.String())
	assert.Equal(t, "unlocked", ReadWrite.String())
	assert.Equal(t, "read-only", ReadOnly.String())
	assert.Equal(t, "unknown", LockState(3).String())
}

func TestCommandAccepts(t *testing.T) {
	assert.True(t, CmdTakeOwnership.Accepts(&Key{}))
	assert.True(t, CmdActivateLSP.Accepts(&LRAct{}))
	assert.True(t, CmdEraseLR.Accepts(&SessionInfo{}))
	assert.True(t, CmdSave.Accepts(&LockUnlock{}))
	assert.True(t, CmdSetPassword.Accepts(&NewPW{}))
	assert.True(t, CmdLRSetup.Accepts(&UserLRSetup{}))
	assert.True(t, CmdGetLRStatus.Accepts(&LRStatus{}))
	assert.True(t, CmdGetStatus.Accepts(&DriveStatus{}))
	assert.True(t, CmdGetGeometry.Accepts(&Geometry{}))

	assert.False(t, CmdTakeOwnership.Accepts(Key{}))
	assert.False(t, CmdLockUnlock.Accepts(&SessionInfo{}))
	assert.False(t, Command(99).Accepts(&Key{}))
}
