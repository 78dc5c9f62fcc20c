// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	"github.com/davecgh/go-spew/spew"
	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"

	"github.com/open-source-firmware/go-sedopal/pkg/cmdutil"
	"github.com/open-source-firmware/go-sedopal/pkg/drive"
	"github.com/open-source-firmware/go-sedopal/pkg/locking"
	"github.com/open-source-firmware/go-sedopal/pkg/opal"
)

// context is the context struct required by kong command line parser
type context struct {
	log *logrus.Logger
	out io.Writer
	// opener and identify replace device access in tests.
	opener   opal.Opener
	identify func(device string) (*drive.Identity, error)
}

func (c *context) drive(device string) *locking.Drive {
	opts := []locking.Option{locking.WithLogger(c.log)}
	if c.opener != nil {
		opts = append(opts, locking.WithOpener(c.opener))
	}
	return locking.New(device, opts...)
}

type DeviceArg struct {
	Device string `arg:"" required:"" type:"path" help:"Path to SED block device (e.g. /dev/nvme0n1)"`
}

type RangeFlag struct {
	Range uint8 `required:"" short:"r" help:"Locking range (0-8)"`
}

func (r RangeFlag) lr() locking.Range {
	return locking.Range(r.Range)
}

type statusCmd struct {
	DeviceArg `embed:""`
}

type geometryCmd struct {
	DeviceArg `embed:""`
}

type infoCmd struct {
	DeviceArg `embed:""`
}

type rangeStatusCmd struct {
	DeviceArg             `embed:""`
	RangeFlag             `embed:""`
	cmdutil.PasswordEmbed `embed:"" envprefix:"SEDOPAL_"`

	ExpectOffset  int64  `optional:"" default:"-1" help:"Fail unless the range starts at this sector"`
	ExpectLength  int64  `optional:"" default:"-1" help:"Fail unless the range spans this many sectors"`
	ExpectEnabled bool   `optional:"" help:"Fail unless read and write locking are enabled"`
	ExpectState   string `optional:"" enum:",locked,unlocked,read-only" default:"" help:"Fail unless the range is in this lock state"`
}

type setupCmd struct {
	DeviceArg `embed:""`
	RangeFlag `embed:""`
	Offset    uint64 `required:"" help:"Start of the range in 512 byte sectors"`
	Length    uint64 `required:"" help:"Length of the range in 512 byte sectors"`

	Admin cmdutil.PasswordEmbed `embed:"" prefix:"admin-" envprefix:"SEDOPAL_ADMIN_" help:"Admin credential"`
	User  cmdutil.PasswordEmbed `embed:"" envprefix:"SEDOPAL_" help:"Range credential"`
}

type lockCmd struct {
	DeviceArg                     `embed:""`
	RangeFlag                     `embed:""`
	cmdutil.OptionalPasswordEmbed `embed:"" envprefix:"SEDOPAL_"`
}

type unlockCmd struct {
	DeviceArg             `embed:""`
	RangeFlag             `embed:""`
	cmdutil.PasswordEmbed `embed:"" envprefix:"SEDOPAL_"`
}

type eraseRangeCmd struct {
	DeviceArg `embed:""`
	RangeFlag `embed:""`
	Yes       bool `optional:"" help:"Confirm that all data in the range is to be destroyed"`

	Admin cmdutil.PasswordEmbed `embed:"" prefix:"admin-" envprefix:"SEDOPAL_ADMIN_"`
}

type revertCmd struct {
	DeviceArg `embed:""`
	Yes       bool `optional:"" help:"Confirm that the whole drive is to be reset to factory state"`

	Admin cmdutil.PasswordEmbed `embed:"" prefix:"admin-" envprefix:"SEDOPAL_ADMIN_"`
}

type psidRevertCmd struct {
	DeviceArg `embed:""`
	PSID      string `required:"" name:"psid" env:"SEDOPAL_PSID" type:"password" help:"PSID printed on the drive label"`
	Yes       bool   `optional:"" help:"Confirm that the whole drive is to be reset to factory state"`
}

// cli is the main command line interface struct required by kong command line parser
var cli struct {
	cmdutil.LogEmbed `embed:""`
	Config           kong.ConfigFlag `optional:"" help:"Load flag defaults from a YAML file"`

	Status      statusCmd      `cmd:"" help:"Show whether the drive supports OPAL and whether locking is enabled"`
	Geometry    geometryCmd    `cmd:"" help:"Show block size and alignment of the drive"`
	Info        infoCmd        `cmd:"" help:"Dump identity, capability and geometry of the drive"`
	RangeStatus rangeStatusCmd `cmd:"" help:"Show the configuration and lock state of a range, optionally verifying it"`
	Setup       setupCmd       `cmd:"" help:"Provision a locking range and leave it locked"`
	Lock        lockCmd        `cmd:"" help:"Lock a range"`
	Unlock      unlockCmd      `cmd:"" help:"Unlock a range"`
	EraseRange  eraseRangeCmd  `cmd:"" help:"Erase a range and disable its locking (destroys data)"`
	Revert      revertCmd      `cmd:"" help:"Reset the drive to factory state with the admin credential (destroys all data)"`
	PSIDRevert  psidRevertCmd  `cmd:"" name:"psid-revert" help:"Reset the drive to factory state with its PSID (destroys all data)"`
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func sectors(n uint64) string {
	return fmt.Sprintf("%d sectors (%s)", n, units.BytesSize(float64(n*locking.SectorSize)))
}

func (s *statusCmd) Run(ctx *context) error {
	cp, err := ctx.drive(s.Device).Capability()
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.out, "Supported:     %s\n", yesNo(cp.Supported()))
	fmt.Fprintf(ctx.out, "Enabled:       %s\n", yesNo(cp.Enabled()))
	fmt.Fprintf(ctx.out, "Locked:        %s\n", yesNo(cp.Locked()))
	fmt.Fprintf(ctx.out, "MBR enabled:   %s\n", yesNo(cp.MBREnabled()))
	fmt.Fprintf(ctx.out, "MBR done:      %s\n", yesNo(cp.MBRDone()))
	fmt.Fprintf(ctx.out, "Single user:   %s\n", yesNo(cp.SUMSupported()))
	return nil
}

func (g *geometryCmd) Run(ctx *context) error {
	geo, err := ctx.drive(g.Device).Geometry()
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.out, "Logical block size:    %s\n", units.BytesSize(float64(geo.BlockSize)))
	fmt.Fprintf(ctx.out, "Alignment required:    %s\n", yesNo(geo.AlignmentRequired))
	fmt.Fprintf(ctx.out, "Alignment granularity: %d blocks\n", geo.AlignmentGranularity)
	fmt.Fprintf(ctx.out, "Lowest aligned block:  %d\n", geo.LowestAlignedBlock)
	return nil
}

func (i *infoCmd) Run(ctx *context) error {
	d := ctx.drive(i.Device)
	var info struct {
		Device     string
		Identity   *drive.Identity
		Capability locking.Capability
		Geometry   *locking.Geometry
	}
	info.Device = i.Device

	var err error
	if info.Identity, err = ctx.identify(i.Device); err != nil {
		ctx.log.Warnf("drive.IdentifyPath(%s) failed: %v", i.Device, err)
	}
	if info.Capability, err = d.Capability(); err != nil {
		return err
	}
	if info.Capability.Supported() {
		if info.Geometry, err = d.Geometry(); err != nil {
			return err
		}
	}
	spew.Fdump(ctx.out, info)
	return nil
}

func (r *rangeStatusCmd) expect() (locking.Expect, error) {
	e := locking.Expect{LockingEnabled: r.ExpectEnabled}
	if r.ExpectOffset >= 0 {
		v := uint64(r.ExpectOffset)
		e.OffsetSectors = &v
	}
	if r.ExpectLength >= 0 {
		v := uint64(r.ExpectLength)
		e.LengthSectors = &v
	}
	var rl, wl bool
	switch r.ExpectState {
	case "":
		return e, nil
	case "locked":
		rl, wl = true, true
	case "read-only":
		rl, wl = false, true
	case "unlocked":
		rl, wl = false, false
	default:
		return e, fmt.Errorf("unknown lock state %q", r.ExpectState)
	}
	e.ReadLocked, e.WriteLocked = &rl, &wl
	return e, nil
}

func (r *rangeStatusCmd) Run(ctx *context) error {
	e, err := r.expect()
	if err != nil {
		return err
	}
	key, err := r.Key(r.Device)
	if err != nil {
		return err
	}
	defer opal.Wipe(key)

	st, err := ctx.drive(r.Device).VerifyRange(r.lr(), key, e)
	if st != nil {
		fmt.Fprintf(ctx.out, "Range:               %d\n", st.Range)
		fmt.Fprintf(ctx.out, "Offset:              %s\n", sectors(st.OffsetSectors))
		fmt.Fprintf(ctx.out, "Length:              %s\n", sectors(st.LengthSectors))
		fmt.Fprintf(ctx.out, "Read lock enabled:   %s\n", yesNo(st.ReadLockEnabled))
		fmt.Fprintf(ctx.out, "Write lock enabled:  %s\n", yesNo(st.WriteLockEnabled))
		fmt.Fprintf(ctx.out, "State:               %s\n", st.State)
	}
	return err
}

func (s *setupCmd) Run(ctx *context) error {
	admin, err := s.Admin.Key(s.Device)
	if err != nil {
		return err
	}
	defer opal.Wipe(admin)
	user, err := s.User.Key(s.Device)
	if err != nil {
		return err
	}
	defer opal.Wipe(user)

	if err := ctx.drive(s.Device).Setup(s.lr(), s.Offset, s.Length, admin, user); err != nil {
		return err
	}
	fmt.Fprintf(ctx.out, "Range %d provisioned: offset %s, length %s, locked\n",
		s.Range, sectors(s.Offset), sectors(s.Length))
	return nil
}

func (l *lockCmd) Run(ctx *context) error {
	key, err := l.Key(l.Device)
	if err != nil {
		return err
	}
	defer opal.Wipe(key)
	return ctx.drive(l.Device).Lock(l.lr(), key)
}

func (u *unlockCmd) Run(ctx *context) error {
	key, err := u.Key(u.Device)
	if err != nil {
		return err
	}
	defer opal.Wipe(key)

	res, err := ctx.drive(u.Device).Unlock(u.lr(), key)
	if err != nil {
		return err
	}
	if !res.ResumeSaved() {
		fmt.Fprintf(ctx.out, "Range %d unlocked, but it will be locked again after suspend\n", u.Range)
	}
	return nil
}

var errNotConfirmed = errors.New("refusing to destroy data without --yes")

func (e *eraseRangeCmd) Run(ctx *context) error {
	if !e.Yes {
		return errNotConfirmed
	}
	admin, err := e.Admin.Key(e.Device)
	if err != nil {
		return err
	}
	defer opal.Wipe(admin)
	return ctx.drive(e.Device).ResetRange(e.lr(), admin)
}

func (r *revertCmd) Run(ctx *context) error {
	if !r.Yes {
		return errNotConfirmed
	}
	admin, err := r.Admin.Key(r.Device)
	if err != nil {
		return err
	}
	defer opal.Wipe(admin)
	return ctx.drive(r.Device).RevertTPer(admin)
}

func (p *psidRevertCmd) Run(ctx *context) error {
	if !p.Yes {
		return errNotConfirmed
	}
	psid := []byte(p.PSID)
	defer opal.Wipe(psid)
	return ctx.drive(p.Device).PSIDRevert(psid)
}
