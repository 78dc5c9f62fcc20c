// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locking

import (
	"github.com/open-source-firmware/go-sedopal/pkg/opal"
)

// UnlockResult separates the outcome of the advisory resume step from the
// unlock itself.
type UnlockResult struct {
	// ResumeErr is set when the kernel could not keep the key for unlocking
	// the range on resume from suspend. The range is unlocked either way.
	ResumeErr error
}

// ResumeSaved reports whether the range will be unlocked again on resume and
// can be locked without passing the credential.
func (u UnlockResult) ResumeSaved() bool {
	return u.ResumeErr == nil
}

func (c *conn) lockUnlock(r Range, cred []byte, state opal.LockState) (*opal.LockUnlock, error) {
	lu := opal.Alloc[opal.LockUnlock](c.arena)
	lu.Session.Who = r.user()
	lu.Session.Key.LR = uint8(r)
	lu.Session.Key.Set(cred)
	lu.LState = state
	return lu, c.issue(opal.CmdLockUnlock, lu)
}

// Lock locks range r for reading and writing. With an empty cred the key
// saved by a previous Unlock is used.
func (d *Drive) Lock(r Range, cred []byte) error {
	const op = "lock"
	if err := d.checkRange(op, r); err != nil {
		return err
	}
	if err := d.checkCredential(op, int(r), "range credential", cred, false); err != nil {
		return err
	}

	c, err := d.connect(op, int(r))
	if err != nil {
		return err
	}
	defer c.close()

	if _, err := c.requireSupported(); err != nil {
		return err
	}
	if _, err := c.lockUnlock(r, cred, opal.Locked); err != nil {
		return err
	}
	d.log.Debugf("%s: range %d locked", c.name, r)
	return nil
}

// Unlock unlocks range r for reading and writing, then asks the kernel to
// keep the key so the range is unlocked again on resume from suspend. A
// failure of that last step does not fail the unlock and is reported in
// UnlockResult.
func (d *Drive) Unlock(r Range, cred []byte) (UnlockResult, error) {
	const op = "unlock"
	var res UnlockResult
	if err := d.checkRange(op, r); err != nil {
		return res, err
	}
	if err := d.checkCredential(op, int(r), "range credential", cred, true); err != nil {
		return res, err
	}

	c, err := d.connect(op, int(r))
	if err != nil {
		return res, err
	}
	defer c.close()

	if _, err := c.requireSupported(); err != nil {
		return res, err
	}
	lu, err := c.lockUnlock(r, cred, opal.ReadWrite)
	if err != nil {
		return res, err
	}

	lu.Flags = opal.SaveForLock
	if err := c.issue(opal.CmdSave, lu); err != nil {
		d.log.Warnf("%s: failed to prepare range %d for resume from suspend, it will stay locked after resume: %v", c.name, r, err)
		res.ResumeErr = err
	}
	d.log.Debugf("%s: range %d unlocked", c.name, r)
	return res, nil
}
