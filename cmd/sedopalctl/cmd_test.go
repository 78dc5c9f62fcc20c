// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-source-firmware/go-sedopal/pkg/cmdutil"
	"github.com/open-source-firmware/go-sedopal/pkg/drive"
	"github.com/open-source-firmware/go-sedopal/pkg/locking"
	"github.com/open-source-firmware/go-sedopal/pkg/opal"
	"github.com/open-source-firmware/go-sedopal/pkg/opal/opaltest"
)

const testPSID = "0123456789ABCDEF0123456789ABCDEF"

func testContext(t *testing.T) (*context, *opaltest.SED, *bytes.Buffer) {
	t.Helper()
	sed := opaltest.New(testPSID)
	log := logrus.New()
	log.SetOutput(io.Discard)
	out := &bytes.Buffer{}
	return &context{
		log:    log,
		out:    out,
		opener: sed.Open,
		identify: func(string) (*drive.Identity, error) {
			return nil, errors.New("no identity")
		},
	}, sed, out
}

func password(p string) cmdutil.PasswordEmbed {
	return cmdutil.PasswordEmbed{Password: p, Encoding: cmdutil.Encoding{Hash: cmdutil.HashNone}}
}

func setupRange(t *testing.T, ctx *context) {
	t.Helper()
	s := &setupCmd{
		DeviceArg: DeviceArg{Device: "/dev/sim0"},
		RangeFlag: RangeFlag{Range: 2},
		Offset:    2048,
		Length:    4096,
		Admin:     password("AAAA"),
		User:      password("BBBB"),
	}
	require.NoError(t, s.Run(ctx))
}

func TestSetupUnlockLock(t *testing.T) {
	ctx, sed, out := testContext(t)
	setupRange(t, ctx)
	assert.Contains(t, out.String(), "Range 2 provisioned")
	assert.Contains(t, out.String(), "2048 sectors (1MiB)")

	u := &unlockCmd{DeviceArg: DeviceArg{"/dev/sim0"}, RangeFlag: RangeFlag{2}, PasswordEmbed: password("BBBB")}
	require.NoError(t, u.Run(ctx))
	assert.Equal(t, opaltest.Range{Start: 2048, Length: 4096, RLE: true, WLE: true}, sed.Range(2))

	l := &lockCmd{DeviceArg: DeviceArg{"/dev/sim0"}, RangeFlag: RangeFlag{2}}
	l.Hash = cmdutil.HashNone
	require.NoError(t, l.Run(ctx))
	assert.True(t, sed.Range(2).ReadLocked)

	out.Reset()
	rs := &rangeStatusCmd{
		DeviceArg:     DeviceArg{"/dev/sim0"},
		RangeFlag:     RangeFlag{2},
		PasswordEmbed: password("BBBB"),
		ExpectOffset:  2048,
		ExpectLength:  4096,
		ExpectEnabled: true,
		ExpectState:   "locked",
	}
	require.NoError(t, rs.Run(ctx))
	assert.Contains(t, out.String(), "State:               locked")

	rs.ExpectState = "unlocked"
	assert.ErrorIs(t, rs.Run(ctx), locking.ErrReadLockMismatch)
}

func TestUnlockResumeWarning(t *testing.T) {
	ctx, sed, out := testContext(t)
	setupRange(t, ctx)
	sed.Fail(opal.CmdSave, opal.Code(opal.StatusFail))

	u := &unlockCmd{DeviceArg: DeviceArg{"/dev/sim0"}, RangeFlag: RangeFlag{2}, PasswordEmbed: password("BBBB")}
	require.NoError(t, u.Run(ctx))
	assert.Contains(t, out.String(), "locked again after suspend")
}

func TestDestructiveCommandsNeedConfirmation(t *testing.T) {
	ctx, sed, _ := testContext(t)
	setupRange(t, ctx)
	sed.ClearIssued()

	e := &eraseRangeCmd{DeviceArg: DeviceArg{"/dev/sim0"}, RangeFlag: RangeFlag{2}, Admin: password("AAAA")}
	assert.ErrorIs(t, e.Run(ctx), errNotConfirmed)
	p := &psidRevertCmd{DeviceArg: DeviceArg{"/dev/sim0"}, PSID: testPSID}
	assert.ErrorIs(t, p.Run(ctx), errNotConfirmed)
	assert.Empty(t, sed.Issued)

	e.Yes = true
	require.NoError(t, e.Run(ctx))
	assert.False(t, sed.Range(2).RLE)

	p.Yes = true
	require.NoError(t, p.Run(ctx))
	assert.False(t, sed.Enabled())
}

func TestRevert(t *testing.T) {
	ctx, sed, _ := testContext(t)
	setupRange(t, ctx)
	sed.ClearIssued()

	r := &revertCmd{DeviceArg: DeviceArg{"/dev/sim0"}, Admin: password("AAAA")}
	assert.ErrorIs(t, r.Run(ctx), errNotConfirmed)
	assert.Empty(t, sed.Issued)

	r.Yes = true
	r.Admin = password("wrong")
	assert.ErrorIs(t, r.Run(ctx), locking.ErrPermissionDenied)
	assert.True(t, sed.Owned())

	r.Admin = password("AAAA")
	require.NoError(t, r.Run(ctx))
	assert.False(t, sed.Owned())
	assert.False(t, sed.Enabled())
}

func TestStatusGeometryInfo(t *testing.T) {
	ctx, _, out := testContext(t)

	require.NoError(t, (&statusCmd{DeviceArg{"/dev/sim0"}}).Run(ctx))
	assert.Contains(t, out.String(), "Supported:     yes")
	assert.Contains(t, out.String(), "Enabled:       no")

	out.Reset()
	require.NoError(t, (&geometryCmd{DeviceArg{"/dev/sim0"}}).Run(ctx))
	assert.Contains(t, out.String(), "Logical block size:    512B")

	out.Reset()
	require.NoError(t, (&infoCmd{DeviceArg{"/dev/sim0"}}).Run(ctx))
	assert.Contains(t, out.String(), "BlockSize: (uint32) 512")
}

func TestCLIParse(t *testing.T) {
	parser, err := kong.New(&cli, kong.Exit(func(int) { t.Fatal("exit called") }))
	require.NoError(t, err)

	kctx, err := parser.Parse([]string{
		"setup", "/dev/nvme0n1", "-r", "2", "--offset", "2048", "--length", "4096",
		"--admin-password", "AAAA", "--password", "BBBB", "--hash", "sedutil-dta",
	})
	require.NoError(t, err)
	assert.Equal(t, "setup <device>", kctx.Command())
	assert.Equal(t, "AAAA", cli.Setup.Admin.Password)
	assert.Equal(t, cmdutil.HashNone, cli.Setup.Admin.Hash)
	assert.Equal(t, "BBBB", cli.Setup.User.Password)
	assert.Equal(t, cmdutil.HashSedutilDTA, cli.Setup.User.Hash)
	assert.Equal(t, uint8(2), cli.Setup.Range)

	kctx, err = parser.Parse([]string{"revert", "/dev/nvme0n1", "--admin-password", "AAAA", "--yes"})
	require.NoError(t, err)
	assert.Equal(t, "revert <device>", kctx.Command())
	assert.Equal(t, "AAAA", cli.Revert.Admin.Password)
	assert.True(t, cli.Revert.Yes)
}
