// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locking

import (
	"errors"

	"github.com/open-source-firmware/go-sedopal/pkg/opal"
)

// Capability is the drive's OPAL status as reported by the kernel.
type Capability struct {
	Flags uint32
}

// Supported reports whether the drive implements OPAL locking.
func (c Capability) Supported() bool {
	return c.Flags&(opal.FlagSupported|opal.FlagLockingSupported) != 0
}

// Enabled reports whether ownership has been taken and the Locking SP is
// active.
func (c Capability) Enabled() bool {
	return c.Flags&opal.FlagLockingEnabled != 0
}

// Locked reports whether any range is currently locked.
func (c Capability) Locked() bool {
	return c.Flags&opal.FlagLocked != 0
}

func (c Capability) MBREnabled() bool {
	return c.Flags&opal.FlagMBREnabled != 0
}

func (c Capability) MBRDone() bool {
	return c.Flags&opal.FlagMBRDone != 0
}

// SUMSupported reports Single User Mode support.
func (c Capability) SUMSupported() bool {
	return c.Flags&opal.FlagSUMSupported != 0
}

func (c *conn) capability() (Capability, error) {
	st := opal.Alloc[opal.DriveStatus](c.arena)
	if err := c.issue(opal.CmdGetStatus, st); err != nil {
		return Capability{}, err
	}
	return Capability{Flags: st.Flags}, nil
}

// requireSupported fails with ErrNotSupported unless the drive does OPAL
// locking, and returns the capability for further checks.
func (c *conn) requireSupported() (Capability, error) {
	cp, err := c.capability()
	if err != nil {
		return cp, err
	}
	if !cp.Supported() {
		return cp, c.fail(ErrNotSupported, "drive does not support OPAL locking")
	}
	return cp, nil
}

// Capability reads the drive status. A drive or kernel without OPAL reports
// an empty capability rather than an error.
func (d *Drive) Capability() (Capability, error) {
	c, err := d.connect("status", NoRange)
	if err != nil {
		return Capability{}, err
	}
	defer c.close()

	cp, err := c.capability()
	if errors.Is(err, ErrNotSupported) {
		return Capability{}, nil
	}
	return cp, err
}

// Supported reports whether the drive supports OPAL locking at all.
func (d *Drive) Supported() (bool, error) {
	cp, err := d.Capability()
	if err != nil {
		return false, err
	}
	return cp.Supported(), nil
}

// Enabled reports whether locking has ever been enabled, i.e. whether
// ownership of the drive has been taken.
func (d *Drive) Enabled() (bool, error) {
	cp, err := d.Capability()
	if err != nil {
		return false, err
	}
	return cp.Enabled(), nil
}
