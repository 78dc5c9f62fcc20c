// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opaltest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/open-source-firmware/go-sedopal/pkg/opal"
)

func key(b string) *opal.Key {
	k := &opal.Key{}
	k.Set([]byte(b))
	return k
}

func session(who opal.User, lr uint8, b string) *opal.SessionInfo {
	s := &opal.SessionInfo{Who: who}
	s.Key.LR = lr
	s.Key.Set([]byte(b))
	return s
}

func activate(t *testing.T, ch opal.Channel, sid string) {
	t.Helper()
	require.True(t, ch.Issue(opal.CmdTakeOwnership, key(sid)).OK())
	act := &opal.LRAct{NumLRs: 2, LR: [opal.MaxLRs]uint8{1, 2}}
	act.Key.Set([]byte(sid))
	require.True(t, ch.Issue(opal.CmdActivateLSP, act).OK())
}

func TestSEDOwnership(t *testing.T) {
	s := New("psid")
	ch, err := s.Open("/dev/sim")
	require.NoError(t, err)
	defer ch.Close()

	activate(t, ch, "sid")
	assert.True(t, s.Owned())
	assert.True(t, s.Enabled())
	assert.Equal(t, []uint8{1, 2}, s.Activated())

	code := ch.Issue(opal.CmdTakeOwnership, key("other"))
	assert.True(t, code.Is(opal.StatusNotAuthorized))

	var st opal.DriveStatus
	require.True(t, ch.Issue(opal.CmdGetStatus, &st).OK())
	assert.NotZero(t, st.Flags&opal.FlagLockingEnabled)
	assert.Zero(t, st.Flags&opal.FlagLocked)
}

func TestSEDLockRequiresBothACEs(t *testing.T) {
	s := New("psid")
	ch, err := s.Open("/dev/sim")
	require.NoError(t, err)
	defer ch.Close()
	activate(t, ch, "sid")

	require.True(t, ch.Issue(opal.CmdActivateUser, session(opal.User2, 0, "sid")).OK())
	pw := &opal.NewPW{Session: *session(opal.Admin1, 1, "sid"), NewUserPW: *session(opal.User2, 1, "pin")}
	require.True(t, ch.Issue(opal.CmdSetPassword, pw).OK())
	setup := &opal.UserLRSetup{RangeStart: 8, RangeLength: 16, RLE: 1, WLE: 1, Session: *session(opal.Admin1, 1, "sid")}
	require.True(t, ch.Issue(opal.CmdLRSetup, setup).OK())

	lk := &opal.LockUnlock{Session: *session(opal.User2, 1, "pin"), LState: opal.Locked}
	assert.True(t, ch.Issue(opal.CmdLockUnlock, lk).Is(opal.StatusNotAuthorized))

	for _, state := range []opal.LockState{opal.ReadOnly, opal.ReadWrite} {
		ace := &opal.LockUnlock{Session: *session(opal.User2, 1, "sid"), LState: state}
		require.True(t, ch.Issue(opal.CmdAddUserToLR, ace).OK())
	}
	require.True(t, ch.Issue(opal.CmdLockUnlock, lk).OK())
	assert.Equal(t, Range{Start: 8, Length: 16, RLE: true, WLE: true, ReadLocked: true, WriteLocked: true}, s.Range(1))

	st := &opal.LRStatus{Session: *session(opal.User2, 1, "pin")}
	require.True(t, ch.Issue(opal.CmdGetLRStatus, st).OK())
	assert.Equal(t, opal.Locked, st.LState)
	assert.Equal(t, uint64(16), st.RangeLength)
}

func TestSEDSavedKey(t *testing.T) {
	s := New("psid")
	ch, err := s.Open("/dev/sim")
	require.NoError(t, err)
	defer ch.Close()
	activate(t, ch, "sid")
	setup := &opal.UserLRSetup{RLE: 1, WLE: 1, Session: *session(opal.Admin1, 1, "sid")}
	require.True(t, ch.Issue(opal.CmdLRSetup, setup).OK())

	anonymous := &opal.LockUnlock{Session: opal.SessionInfo{Who: opal.Admin1}, LState: opal.Locked}
	anonymous.Session.Key.LR = 1
	assert.True(t, ch.Issue(opal.CmdLockUnlock, anonymous).Is(opal.StatusNotAuthorized))

	save := &opal.LockUnlock{Session: *session(opal.Admin1, 1, "sid"), LState: opal.ReadWrite, Flags: opal.SaveForLock}
	require.True(t, ch.Issue(opal.CmdSave, save).OK())
	assert.True(t, s.Saved(1))
	require.True(t, ch.Issue(opal.CmdLockUnlock, anonymous).OK())
	assert.True(t, s.Range(1).ReadLocked)
}

func TestSEDErase(t *testing.T) {
	s := New("psid")
	ch, err := s.Open("/dev/sim")
	require.NoError(t, err)
	defer ch.Close()
	activate(t, ch, "sid")
	setup := &opal.UserLRSetup{RangeLength: 4, RLE: 1, WLE: 1, Session: *session(opal.Admin1, 1, "sid")}
	require.True(t, ch.Issue(opal.CmdLRSetup, setup).OK())

	require.True(t, ch.Issue(opal.CmdSecureEraseLR, session(opal.Admin1, 1, "sid")).OK())
	assert.Equal(t, 1, s.Range(1).Generation)
	assert.True(t, s.Range(1).RLE)

	require.True(t, ch.Issue(opal.CmdEraseLR, session(opal.Admin1, 1, "sid")).OK())
	assert.Equal(t, 2, s.Range(1).Generation)
	assert.False(t, s.Range(1).RLE)

	assert.True(t, ch.Issue(opal.CmdEraseLR, session(opal.Admin1, 1, "wrong")).Is(opal.StatusNotAuthorized))
}

func TestSEDPSIDRevert(t *testing.T) {
	s := New("psid")
	ch, err := s.Open("/dev/sim")
	require.NoError(t, err)
	defer ch.Close()
	activate(t, ch, "sid")

	assert.True(t, ch.Issue(opal.CmdPSIDRevert, key("nope")).Is(opal.StatusNotAuthorized))
	require.True(t, ch.Issue(opal.CmdPSIDRevert, key("psid")).OK())
	assert.False(t, s.Owned())
	assert.False(t, s.Enabled())
}

func TestSEDFaults(t *testing.T) {
	s := New("psid")
	ch, err := s.Open("/dev/sim")
	require.NoError(t, err)

	s.FailOnce(opal.CmdGetGeometry, opal.Code(opal.StatusSPBusy))
	var g opal.Geometry
	assert.True(t, ch.Issue(opal.CmdGetGeometry, &g).Is(opal.StatusSPBusy))
	require.True(t, ch.Issue(opal.CmdGetGeometry, &g).OK())
	assert.Equal(t, uint32(512), g.LogicalBlockSize)

	s.Fail(opal.CmdGetGeometry, opal.Errno(unix.EIO))
	assert.Equal(t, unix.EIO, ch.Issue(opal.CmdGetGeometry, &g).Errno())
	assert.Equal(t, unix.EIO, ch.Issue(opal.CmdGetGeometry, &g).Errno())
	s.ClearFaults()

	assert.Equal(t, unix.EINVAL, ch.Issue(opal.CmdGetGeometry, &opal.Key{}).Errno())

	s.Supported = false
	assert.Equal(t, unix.EOPNOTSUPP, ch.Issue(opal.CmdGetGeometry, &g).Errno())

	assert.NoError(t, s.CmdsMatch([]opal.Command{
		opal.CmdGetGeometry, opal.CmdGetGeometry, opal.CmdGetGeometry,
		opal.CmdGetGeometry, opal.CmdGetGeometry, opal.CmdGetGeometry,
	}))
	assert.Equal(t, 6, s.Count(opal.CmdGetGeometry))

	require.NoError(t, ch.Close())
	assert.Error(t, ch.Close())
	assert.Equal(t, 1, s.Opens)
	assert.Equal(t, 1, s.Closes)
	assert.Equal(t, unix.EBADF, ch.Issue(opal.CmdGetGeometry, &g).Errno())
	assert.Equal(t, 6, s.Count(opal.CmdGetGeometry))
}
