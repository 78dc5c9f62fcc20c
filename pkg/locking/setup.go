// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locking

import (
	"github.com/open-source-firmware/go-sedopal/pkg/opal"
)

// Setup provisions locking range r to span lengthSectors starting at
// offsetSectors, binds it to the user credential and leaves it locked.
// r must be 1..MaxRange; the bounds of the global range cannot be set.
//
// On a factory-fresh drive, ownership is taken with the admin credential and
// the Locking SP is activated with ranges 1..8. On a drive where locking is
// already enabled, the range is erased first so it can be reused.
//
// Setup is not transactional. On failure the drive keeps whatever the last
// successful step configured.
func (d *Drive) Setup(r Range, offsetSectors, lengthSectors uint64, admin, user []byte) error {
	const op = "setup"
	if err := d.checkRange(op, r); err != nil {
		return err
	}
	if err := d.checkCredential(op, int(r), "admin credential", admin, true); err != nil {
		return err
	}
	if err := d.checkCredential(op, int(r), "range credential", user, true); err != nil {
		return err
	}
	if r == 0 {
		return invalid(op, d.path, int(r), "the global range always spans the whole medium, use ranges 1..%d", MaxRange)
	}
	if lengthSectors == 0 {
		return invalid(op, d.path, int(r), "range length must not be zero")
	}
	if lengthSectors > maxSectors || offsetSectors > maxSectors-lengthSectors {
		return invalid(op, d.path, int(r), "%d sectors at sector %d exceed the addressable range", lengthSectors, offsetSectors)
	}

	c, err := d.connect(op, int(r))
	if err != nil {
		return err
	}
	defer c.close()

	cp, err := c.requireSupported()
	if err != nil {
		return err
	}
	g, err := c.geometry()
	if err != nil {
		return err
	}
	start, okStart := g.toBlocks(offsetSectors)
	length, okLength := g.toBlocks(lengthSectors)
	if !okStart || !okLength {
		return c.fail(ErrInvalidParameter, "offset %d and length %d sectors must be whole %d byte blocks",
			offsetSectors, lengthSectors, g.BlockSize)
	}
	if !g.aligned(start, length) {
		return c.fail(ErrInvalidParameter, "blocks %d+%d are not aligned to %d blocks from block %d",
			start, length, g.AlignmentGranularity, g.LowestAlignedBlock)
	}

	if cp.Enabled() {
		d.log.Debugf("%s: locking already enabled, erasing range %d before reuse", c.name, r)
		_, err = c.eraseRange(r, admin)
	} else {
		d.log.Debugf("%s: taking ownership and activating the locking SP", c.name)
		err = c.takeOwnership(admin)
	}
	if err != nil {
		return err
	}

	if err := c.issue(opal.CmdActivateUser, c.session(r.user(), 0, admin)); err != nil {
		return err
	}
	for _, state := range []opal.LockState{opal.ReadOnly, opal.ReadWrite} {
		lu := opal.Alloc[opal.LockUnlock](c.arena)
		lu.Session.Who = r.user()
		lu.Session.Key.LR = uint8(r)
		lu.Session.Key.Set(admin)
		lu.LState = state
		if err := c.issue(opal.CmdAddUserToLR, lu); err != nil {
			return err
		}
	}

	pw := opal.Alloc[opal.NewPW](c.arena)
	pw.Session.Who = opal.Admin1
	pw.Session.Key.LR = uint8(r)
	pw.Session.Key.Set(admin)
	pw.NewUserPW.Who = r.user()
	pw.NewUserPW.Key.LR = uint8(r)
	pw.NewUserPW.Key.Set(user)
	if err := c.issue(opal.CmdSetPassword, pw); err != nil {
		return err
	}

	if err := c.setupRange(r, start, length, true, admin); err != nil {
		return err
	}

	lk := opal.Alloc[opal.LockUnlock](c.arena)
	lk.Session.Who = r.user()
	lk.Session.Key.LR = uint8(r)
	lk.Session.Key.Set(user)
	lk.LState = opal.Locked
	if err := c.issue(opal.CmdLockUnlock, lk); err != nil {
		return err
	}

	locked := true
	_, err = c.verify(g, r, r.user(), user, Expect{
		OffsetSectors:  &offsetSectors,
		LengthSectors:  &lengthSectors,
		LockingEnabled: true,
		ReadLocked:     &locked,
		WriteLocked:    &locked,
	})
	if err != nil {
		return err
	}
	d.log.Infof("%s: range %d provisioned at sector %d, %d sectors, locked", c.name, r, offsetSectors, lengthSectors)
	return nil
}

// takeOwnership sets the SID credential and activates the Locking SP with
// every carved range. Admin1 inherits the SID credential.
func (c *conn) takeOwnership(admin []byte) error {
	act := opal.Alloc[opal.LRAct](c.arena)
	act.Key.Set(admin)
	act.NumLRs = opal.MaxLRs - 1
	for i := uint8(0); i < act.NumLRs; i++ {
		act.LR[i] = i + 1
	}
	if err := c.issue(opal.CmdTakeOwnership, &act.Key); err != nil {
		return err
	}
	return c.issue(opal.CmdActivateLSP, act)
}

// eraseRange regenerates the media key of range r, falling back to secure
// erase when the fast erase fails. fast reports which path succeeded.
func (c *conn) eraseRange(r Range, admin []byte) (fast bool, err error) {
	s := c.session(opal.Admin1, r, admin)
	if err = c.issue(opal.CmdEraseLR, s); err == nil {
		return true, nil
	}
	c.d.log.Debugf("%s: erase of range %d failed, trying secure erase: %v", c.name, r, err)
	if err = c.issue(opal.CmdSecureEraseLR, s); err != nil {
		return false, err
	}
	return false, nil
}

// setupRange writes the bounds (in blocks) and the lock enable flags of
// range r as Admin1.
func (c *conn) setupRange(r Range, start, length uint64, enable bool, admin []byte) error {
	setup := opal.Alloc[opal.UserLRSetup](c.arena)
	setup.RangeStart = start
	setup.RangeLength = length
	if enable {
		setup.RLE = 1
		setup.WLE = 1
	}
	setup.Session.Who = opal.Admin1
	setup.Session.Key.LR = uint8(r)
	setup.Session.Key.Set(admin)
	return c.issue(opal.CmdLRSetup, setup)
}
