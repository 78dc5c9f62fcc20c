// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locking

import (
	"math"

	"github.com/hashicorp/go-multierror"

	"github.com/open-source-firmware/go-sedopal/pkg/opal"
)

// SectorSize is the unit of offsets and lengths at this API.
const SectorSize = 512

// maxSectors is the largest sector count whose byte size fits in 64 bits.
const maxSectors = math.MaxUint64 / SectorSize

// Geometry is the drive block geometry.
type Geometry struct {
	BlockSize            uint32
	AlignmentRequired    bool
	AlignmentGranularity uint64 // in blocks
	LowestAlignedBlock   uint64
}

func (g *Geometry) toSectors(blocks uint64) uint64 {
	return blocks * uint64(g.BlockSize) / SectorSize
}

// toBlocks converts sectors to blocks, failing if the value is not a whole
// number of blocks.
func (g *Geometry) toBlocks(sectors uint64) (uint64, bool) {
	if sectors > maxSectors {
		return 0, false
	}
	b := sectors * SectorSize
	if b%uint64(g.BlockSize) != 0 {
		return 0, false
	}
	return b / uint64(g.BlockSize), true
}

// aligned reports whether a range of blocks honours the alignment
// requirement of the drive.
func (g *Geometry) aligned(start, length uint64) bool {
	if !g.AlignmentRequired || g.AlignmentGranularity <= 1 {
		return true
	}
	gran := g.AlignmentGranularity
	return start%gran == g.LowestAlignedBlock%gran && length%gran == 0
}

func (c *conn) geometry() (*Geometry, error) {
	g := opal.Alloc[opal.Geometry](c.arena)
	if err := c.issue(opal.CmdGetGeometry, g); err != nil {
		return nil, err
	}
	if g.LogicalBlockSize == 0 || g.LogicalBlockSize%SectorSize != 0 && SectorSize%g.LogicalBlockSize != 0 {
		return nil, c.fail(ErrOperation, "drive reports unusable logical block size %d", g.LogicalBlockSize)
	}
	return &Geometry{
		BlockSize:            g.LogicalBlockSize,
		AlignmentRequired:    g.Align != 0,
		AlignmentGranularity: g.AlignmentGranularity,
		LowestAlignedBlock:   g.LowestAlignedLBA,
	}, nil
}

// Geometry queries the drive block geometry.
func (d *Drive) Geometry() (*Geometry, error) {
	c, err := d.connect("geometry", NoRange)
	if err != nil {
		return nil, err
	}
	defer c.close()
	return c.geometry()
}

// RangeStatus is the live configuration of a locking range.
type RangeStatus struct {
	Range            Range
	OffsetSectors    uint64
	LengthSectors    uint64
	ReadLockEnabled  bool
	WriteLockEnabled bool
	State            opal.LockState
}

// ReadLocked reports whether reads are currently refused.
func (s *RangeStatus) ReadLocked() bool {
	return s.State == opal.Locked
}

// WriteLocked reports whether writes are currently refused.
func (s *RangeStatus) WriteLocked() bool {
	return s.State&(opal.ReadOnly|opal.Locked) != 0
}

func (c *conn) rangeStatus(g *Geometry, r Range, who opal.User, cred []byte) (*RangeStatus, error) {
	st := opal.Alloc[opal.LRStatus](c.arena)
	st.Session.Who = who
	st.Session.Key.LR = uint8(r)
	st.Session.Key.Set(cred)
	if err := c.issue(opal.CmdGetLRStatus, st); err != nil {
		return nil, err
	}
	return &RangeStatus{
		Range:            r,
		OffsetSectors:    g.toSectors(st.RangeStart),
		LengthSectors:    g.toSectors(st.RangeLength),
		ReadLockEnabled:  st.RLE != 0,
		WriteLockEnabled: st.WLE != 0,
		State:            st.LState,
	}, nil
}

// RangeStatus reads the configuration and lock state of range r,
// authenticating as the range user with cred.
func (d *Drive) RangeStatus(r Range, cred []byte) (*RangeStatus, error) {
	return d.VerifyRange(r, cred, Expect{})
}

// Expect lists the values VerifyRange checks. Nil fields are not checked.
type Expect struct {
	OffsetSectors *uint64
	LengthSectors *uint64
	// LockingEnabled requires both the read and write lock enable flags.
	LockingEnabled bool
	ReadLocked     *bool
	WriteLocked    *bool
}

// Check compares s against e and reports every mismatch.
func (e Expect) Check(s *RangeStatus) error {
	var result *multierror.Error
	if e.OffsetSectors != nil && s.OffsetSectors != *e.OffsetSectors {
		result = multierror.Append(result, mismatch(ErrOffsetMismatch, "got %d sectors, want %d", s.OffsetSectors, *e.OffsetSectors))
	}
	if e.LengthSectors != nil && s.LengthSectors != *e.LengthSectors {
		result = multierror.Append(result, mismatch(ErrLengthMismatch, "got %d sectors, want %d", s.LengthSectors, *e.LengthSectors))
	}
	if e.LockingEnabled && (!s.ReadLockEnabled || !s.WriteLockEnabled) {
		result = multierror.Append(result, mismatch(ErrLockingDisabled, "read lock enabled %t, write lock enabled %t", s.ReadLockEnabled, s.WriteLockEnabled))
	}
	if e.ReadLocked != nil && s.ReadLocked() != *e.ReadLocked {
		result = multierror.Append(result, mismatch(ErrReadLockMismatch, "read locked %t, want %t", s.ReadLocked(), *e.ReadLocked))
	}
	if e.WriteLocked != nil && s.WriteLocked() != *e.WriteLocked {
		result = multierror.Append(result, mismatch(ErrWriteLockMismatch, "write locked %t, want %t", s.WriteLocked(), *e.WriteLocked))
	}
	return result.ErrorOrNil()
}

// VerifyRange reads range r like RangeStatus and checks it against e. The
// status is returned even when verification fails.
func (d *Drive) VerifyRange(r Range, cred []byte, e Expect) (*RangeStatus, error) {
	const op = "range status"
	if err := d.checkRange(op, r); err != nil {
		return nil, err
	}
	if err := d.checkCredential(op, int(r), "range credential", cred, true); err != nil {
		return nil, err
	}

	c, err := d.connect(op, int(r))
	if err != nil {
		return nil, err
	}
	defer c.close()

	g, err := c.geometry()
	if err != nil {
		return nil, err
	}
	return c.verify(g, r, r.user(), cred, e)
}

func (c *conn) verify(g *Geometry, r Range, who opal.User, cred []byte, e Expect) (*RangeStatus, error) {
	s, err := c.rangeStatus(g, r, who, cred)
	if err != nil {
		return nil, err
	}
	if err := e.Check(s); err != nil {
		c.d.log.Errorf("%s: range %d does not match the requested configuration: %v", c.name, r, err)
		return s, &Error{Op: c.op, Device: c.name, Range: int(r), Err: err}
	}
	return s, nil
}
