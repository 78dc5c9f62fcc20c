// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package opaltest provides an in-memory self-encrypting drive that answers
// OPAL commands the way the kernel driver and drive firmware do.
package opaltest

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/open-source-firmware/go-sedopal/pkg/drive"
	"github.com/open-source-firmware/go-sedopal/pkg/opal"
)

// Range is a snapshot of one locking range row.
type Range struct {
	Start       uint64
	Length      uint64
	RLE         bool
	WLE         bool
	ReadLocked  bool
	WriteLocked bool
	// Generation counts media key regenerations (erase and secure erase).
	Generation int
}

type user struct {
	enabled bool
	pin     []byte
}

type ace struct {
	read  bool
	write bool
}

type savedKey struct {
	who opal.User
	key []byte
}

type fault struct {
	code opal.Code
	once bool
}

// SED is a simulated drive. The zero value is not usable; call New.
type SED struct {
	// Supported is false for a drive (or kernel) without OPAL support; every
	// command then fails with EOPNOTSUPP.
	Supported bool
	Geometry  opal.Geometry
	PSID      []byte
	Identity  *drive.Identity
	// IgnoreLockEnable emulates firmware that accepts RLE/WLE in a range
	// setup without applying them.
	IgnoreLockEnable bool
	// OpenErr is returned by Open when set.
	OpenErr error

	Opens  int
	Closes int
	Issued []opal.Command

	faults map[opal.Command]fault

	owned     bool
	sid       []byte
	lspActive bool
	activated []uint8
	admin1    []byte
	users     [opal.MaxLRs + 1]user
	ranges    [opal.MaxLRs]Range
	aces      [opal.MaxLRs]map[opal.User]ace
	saved     map[uint8]savedKey
}

// New returns a factory-fresh drive with 512 byte logical blocks.
func New(psid string) *SED {
	s := &SED{
		Supported: true,
		PSID:      []byte(psid),
		Geometry: opal.Geometry{
			LogicalBlockSize:     512,
			AlignmentGranularity: 1,
		},
		Identity: &drive.Identity{
			Protocol:     "NVMe",
			Model:        "Simulated SED",
			SerialNumber: "SIM0001",
			Firmware:     "1.0",
		},
		faults: map[opal.Command]fault{},
	}
	s.factoryReset()
	return s
}

func (s *SED) factoryReset() {
	s.owned = false
	s.sid = nil
	s.lspActive = false
	s.activated = nil
	s.admin1 = nil
	s.users = [opal.MaxLRs + 1]user{}
	s.ranges = [opal.MaxLRs]Range{}
	for i := range s.aces {
		s.aces[i] = map[opal.User]ace{}
	}
	s.saved = map[uint8]savedKey{}
}

// Fail makes every following cmd return code without side effects.
func (s *SED) Fail(cmd opal.Command, code opal.Code) {
	s.faults[cmd] = fault{code: code}
}

// FailOnce makes only the next cmd return code.
func (s *SED) FailOnce(cmd opal.Command, code opal.Code) {
	s.faults[cmd] = fault{code: code, once: true}
}

// ClearFaults removes all injected failures.
func (s *SED) ClearFaults() {
	s.faults = map[opal.Command]fault{}
}

// ClearIssued forgets the command log.
func (s *SED) ClearIssued() {
	s.Issued = nil
}

// CmdsMatch compares the command log with want, in order.
func (s *SED) CmdsMatch(want []opal.Command) error {
	if len(want) != len(s.Issued) {
		return fmt.Errorf("number of commands mismatch, expected %d (%v) but got %d (%v)",
			len(want), want, len(s.Issued), s.Issued)
	}
	for i := range want {
		if want[i] != s.Issued[i] {
			return fmt.Errorf("command %d: expected %q got %q", i, want[i], s.Issued[i])
		}
	}
	return nil
}

// Count returns how many times cmd was issued.
func (s *SED) Count(cmd opal.Command) int {
	n := 0
	for _, c := range s.Issued {
		if c == cmd {
			n++
		}
	}
	return n
}

// Owned reports whether the SID credential has been taken.
func (s *SED) Owned() bool { return s.owned }

// Enabled reports whether the Locking SP is active.
func (s *SED) Enabled() bool { return s.lspActive }

// Activated returns the ranges named by the last Locking SP activation.
func (s *SED) Activated() []uint8 { return append([]uint8(nil), s.activated...) }

// Range returns a snapshot of locking range lr.
func (s *SED) Range(lr uint8) Range { return s.ranges[lr] }

// UserEnabled reports whether the user authority is enabled.
func (s *SED) UserEnabled(who opal.User) bool { return s.users[who].enabled }

// Saved reports whether the kernel holds a saved unlock key for lr.
func (s *SED) Saved(lr uint8) bool {
	_, ok := s.saved[lr]
	return ok
}

// Open satisfies opal.Opener.
func (s *SED) Open(path string) (opal.Channel, error) {
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	s.Opens++
	return &channel{sed: s, path: path}, nil
}

type channel struct {
	sed    *SED
	path   string
	closed bool
}

func (c *channel) Issue(cmd opal.Command, arg interface{}) opal.Code {
	if c.closed {
		return opal.Errno(unix.EBADF)
	}
	return c.sed.issue(cmd, arg)
}

func (c *channel) Identify() (*drive.Identity, error) {
	if c.sed.Identity == nil {
		return nil, drive.ErrDeviceNotSupported
	}
	id := *c.sed.Identity
	return &id, nil
}

func (c *channel) Close() error {
	if c.closed {
		return errors.New("channel already closed")
	}
	c.closed = true
	c.sed.Closes++
	return nil
}

func (s *SED) issue(cmd opal.Command, arg interface{}) opal.Code {
	s.Issued = append(s.Issued, cmd)
	if !cmd.Accepts(arg) {
		return opal.Errno(unix.EINVAL)
	}
	if !s.Supported {
		return opal.Errno(unix.EOPNOTSUPP)
	}
	if f, ok := s.faults[cmd]; ok {
		if f.once {
			delete(s.faults, cmd)
		}
		return f.code
	}

	switch cmd {
	case opal.CmdGetStatus:
		return s.getStatus(arg.(*opal.DriveStatus))
	case opal.CmdGetGeometry:
		*arg.(*opal.Geometry) = s.Geometry
		return success
	case opal.CmdTakeOwnership:
		return s.takeOwnership(arg.(*opal.Key))
	case opal.CmdActivateLSP:
		return s.activateLSP(arg.(*opal.LRAct))
	case opal.CmdEraseLR:
		return s.erase(arg.(*opal.SessionInfo), true)
	case opal.CmdSecureEraseLR:
		return s.erase(arg.(*opal.SessionInfo), false)
	case opal.CmdActivateUser:
		return s.activateUser(arg.(*opal.SessionInfo))
	case opal.CmdAddUserToLR:
		return s.addUserToLR(arg.(*opal.LockUnlock))
	case opal.CmdSetPassword:
		return s.setPassword(arg.(*opal.NewPW))
	case opal.CmdLRSetup:
		return s.setupLR(arg.(*opal.UserLRSetup))
	case opal.CmdLockUnlock:
		return s.lockUnlock(arg.(*opal.LockUnlock))
	case opal.CmdSave:
		return s.save(arg.(*opal.LockUnlock))
	case opal.CmdGetLRStatus:
		return s.lrStatus(arg.(*opal.LRStatus))
	case opal.CmdPSIDRevert:
		return s.psidRevert(arg.(*opal.Key))
	case opal.CmdRevertTPer:
		return s.revertTPer(arg.(*opal.Key))
	}
	return opal.Errno(unix.ENOTTY)
}

const success = opal.Code(opal.StatusSuccess)

func status(st opal.Status) opal.Code {
	return opal.Code(st)
}

func (s *SED) getStatus(st *opal.DriveStatus) opal.Code {
	st.Flags = opal.FlagSupported | opal.FlagLockingSupported
	if s.lspActive {
		st.Flags |= opal.FlagLockingEnabled
	}
	for _, r := range s.ranges {
		if r.ReadLocked || r.WriteLocked {
			st.Flags |= opal.FlagLocked
			break
		}
	}
	return success
}

func (s *SED) takeOwnership(k *opal.Key) opal.Code {
	// The kernel authenticates as SID with the MSID PIN, which only works
	// until ownership has been taken.
	if s.owned {
		return status(opal.StatusNotAuthorized)
	}
	s.owned = true
	s.sid = bytes.Clone(k.Bytes())
	return success
}

func (s *SED) activateLSP(act *opal.LRAct) opal.Code {
	if !s.owned || !bytes.Equal(act.Key.Bytes(), s.sid) {
		return status(opal.StatusNotAuthorized)
	}
	if s.lspActive {
		return status(opal.StatusInvalidParameter)
	}
	if int(act.NumLRs) > len(act.LR) {
		return opal.Errno(unix.EINVAL)
	}
	s.lspActive = true
	// Admin1 of the Locking SP inherits the SID PIN on activation.
	s.admin1 = bytes.Clone(s.sid)
	s.activated = append([]uint8(nil), act.LR[:act.NumLRs]...)
	return success
}

func (s *SED) authAdmin(k *opal.Key) bool {
	return s.lspActive && bytes.Equal(k.Bytes(), s.admin1)
}

func (s *SED) auth(who opal.User, k *opal.Key) bool {
	if who == opal.Admin1 {
		return s.authAdmin(k)
	}
	if who > opal.User9 || !s.lspActive {
		return false
	}
	u := s.users[who]
	return u.enabled && len(u.pin) > 0 && bytes.Equal(k.Bytes(), u.pin)
}

func validLR(lr uint8) bool {
	return int(lr) < opal.MaxLRs
}

func (s *SED) erase(si *opal.SessionInfo, disable bool) opal.Code {
	lr := si.Key.LR
	if !validLR(lr) {
		return opal.Errno(unix.EINVAL)
	}
	if !s.auth(si.Who, &si.Key) {
		return status(opal.StatusNotAuthorized)
	}
	r := &s.ranges[lr]
	r.Generation++
	if disable {
		r.RLE, r.WLE = false, false
		r.ReadLocked, r.WriteLocked = false, false
	}
	return success
}

func (s *SED) activateUser(si *opal.SessionInfo) opal.Code {
	if si.Who < opal.User1 || si.Who > opal.User9 {
		return opal.Errno(unix.EINVAL)
	}
	if !s.authAdmin(&si.Key) {
		return status(opal.StatusNotAuthorized)
	}
	s.users[si.Who].enabled = true
	return success
}

func (s *SED) addUserToLR(lu *opal.LockUnlock) opal.Code {
	lr := lu.Session.Key.LR
	if !validLR(lr) || lu.Session.Who > opal.User9 {
		return opal.Errno(unix.EINVAL)
	}
	if !s.authAdmin(&lu.Session.Key) {
		return status(opal.StatusNotAuthorized)
	}
	a := s.aces[lr][lu.Session.Who]
	switch lu.LState {
	case opal.ReadOnly:
		a.read = true
	case opal.ReadWrite:
		a.write = true
	default:
		return opal.Errno(unix.EINVAL)
	}
	s.aces[lr][lu.Session.Who] = a
	return success
}

func (s *SED) setPassword(pw *opal.NewPW) opal.Code {
	if pw.Session.Who > opal.User9 || pw.NewUserPW.Who > opal.User9 {
		return opal.Errno(unix.EINVAL)
	}
	if !s.auth(pw.Session.Who, &pw.Session.Key) {
		return status(opal.StatusNotAuthorized)
	}
	key := bytes.Clone(pw.NewUserPW.Key.Bytes())
	if pw.NewUserPW.Who == opal.Admin1 {
		s.admin1 = key
		return success
	}
	s.users[pw.NewUserPW.Who].pin = key
	return success
}

func (s *SED) setupLR(setup *opal.UserLRSetup) opal.Code {
	lr := setup.Session.Key.LR
	if !validLR(lr) {
		return opal.Errno(unix.EINVAL)
	}
	if !s.auth(setup.Session.Who, &setup.Session.Key) {
		return status(opal.StatusNotAuthorized)
	}
	r := &s.ranges[lr]
	// The global range always spans the whole medium.
	if lr != 0 {
		r.Start = setup.RangeStart
		r.Length = setup.RangeLength
	}
	if !s.IgnoreLockEnable {
		r.RLE = setup.RLE != 0
		r.WLE = setup.WLE != 0
	}
	return success
}

func (s *SED) lockUnlock(lu *opal.LockUnlock) opal.Code {
	lr := lu.Session.Key.LR
	if !validLR(lr) || lu.Session.Who > opal.User9 {
		return opal.Errno(unix.EINVAL)
	}
	who, key := lu.Session.Who, &lu.Session.Key
	if lu.LState == opal.Locked && key.KeyLen == 0 {
		if sk, ok := s.saved[lr]; ok {
			var k opal.Key
			k.LR = lr
			k.Set(sk.key)
			who, key = sk.who, &k
		}
	}
	if !s.auth(who, key) {
		return status(opal.StatusNotAuthorized)
	}
	if who != opal.Admin1 {
		a := s.aces[lr][who]
		if !a.read || !a.write {
			return status(opal.StatusNotAuthorized)
		}
	}

	var rl, wl bool
	switch lu.LState {
	case opal.Locked:
		rl, wl = true, true
	case opal.ReadOnly:
		rl, wl = false, true
	case opal.ReadWrite:
		rl, wl = false, false
	default:
		return opal.Errno(unix.EINVAL)
	}
	r := &s.ranges[lr]
	// Lock columns only stick on a range with locking enabled.
	r.ReadLocked = rl && r.RLE
	r.WriteLocked = wl && r.WLE
	return success
}

func (s *SED) save(lu *opal.LockUnlock) opal.Code {
	lr := lu.Session.Key.LR
	if !validLR(lr) || lu.Session.Who > opal.User9 {
		return opal.Errno(unix.EINVAL)
	}
	if lu.Flags&opal.SaveForLock != 0 {
		s.saved[lr] = savedKey{who: lu.Session.Who, key: bytes.Clone(lu.Session.Key.Bytes())}
	}
	return success
}

func (s *SED) lrStatus(st *opal.LRStatus) opal.Code {
	lr := st.Session.Key.LR
	if !validLR(lr) || st.Session.Who > opal.User9 {
		return opal.Errno(unix.EINVAL)
	}
	if !s.auth(st.Session.Who, &st.Session.Key) {
		return status(opal.StatusNotAuthorized)
	}
	r := s.ranges[lr]
	st.RangeStart = r.Start
	st.RangeLength = r.Length
	st.RLE = boolU32(r.RLE)
	st.WLE = boolU32(r.WLE)
	switch {
	case r.ReadLocked && r.WriteLocked:
		st.LState = opal.Locked
	case r.WriteLocked:
		st.LState = opal.ReadOnly
	default:
		st.LState = opal.ReadWrite
	}
	return success
}

func (s *SED) psidRevert(k *opal.Key) opal.Code {
	if len(s.PSID) == 0 || !bytes.Equal(k.Bytes(), s.PSID) {
		return status(opal.StatusNotAuthorized)
	}
	s.factoryReset()
	return success
}

func (s *SED) revertTPer(k *opal.Key) opal.Code {
	if !s.owned || !bytes.Equal(k.Bytes(), s.sid) {
		return status(opal.StatusNotAuthorized)
	}
	s.factoryReset()
	return success
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
