// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locking

import (
	"github.com/open-source-firmware/go-sedopal/pkg/opal"
)

// ResetRange erases range r with the admin credential and leaves it with
// locking disabled. All data in the range is lost.
//
// A fast erase disables the lock enable flags on its own. Secure erase does
// not, so after falling back to it the range is also reconfigured to zero
// bounds with both flags off.
func (d *Drive) ResetRange(r Range, admin []byte) error {
	const op = "reset range"
	if err := d.checkRange(op, r); err != nil {
		return err
	}
	if err := d.checkCredential(op, int(r), "admin credential", admin, true); err != nil {
		return err
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
	if !cp.Enabled() {
		return c.fail(ErrOperation, "locking is not enabled on this drive")
	}

	fast, err := c.eraseRange(r, admin)
	if err != nil {
		return err
	}
	if !fast {
		if err := c.setupRange(r, 0, 0, false, admin); err != nil {
			return err
		}
	}
	d.log.Infof("%s: range %d erased", c.name, r)
	return nil
}

// PSIDRevert resets the whole drive to factory state using the PSID printed
// on its label. Every range, credential and all user data are destroyed.
func (d *Drive) PSIDRevert(psid []byte) error {
	const op = "PSID revert"
	if err := d.checkCredential(op, NoRange, "PSID", psid, true); err != nil {
		return err
	}

	c, err := d.connect(op, NoRange)
	if err != nil {
		return err
	}
	defer c.close()

	k := opal.Alloc[opal.Key](c.arena)
	k.Set(psid)
	if err := c.issue(opal.CmdPSIDRevert, k); err != nil {
		return err
	}
	d.log.Infof("%s: reverted to factory state", c.name)
	return nil
}

// RevertTPer resets the whole drive to factory state with the SID
// credential, which is the admin credential given to the first Setup. Every
// range, credential and all user data are destroyed.
func (d *Drive) RevertTPer(admin []byte) error {
	const op = "revert"
	if err := d.checkCredential(op, NoRange, "admin credential", admin, true); err != nil {
		return err
	}

	c, err := d.connect(op, NoRange)
	if err != nil {
		return err
	}
	defer c.close()

	if _, err := c.requireSupported(); err != nil {
		return err
	}
	k := opal.Alloc[opal.Key](c.arena)
	k.Set(admin)
	if err := c.issue(opal.CmdRevertTPer, k); err != nil {
		return err
	}
	d.log.Infof("%s: reverted to factory state", c.name)
	return nil
}
