// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/block"
	"github.com/sirupsen/logrus"

	"github.com/open-source-firmware/go-sedopal/pkg/drive"
	"github.com/open-source-firmware/go-sedopal/pkg/locking"
	"github.com/open-source-firmware/go-sedopal/pkg/opal"
)

type DeviceState struct {
	Device     string
	SizeBytes  uint64
	Identity   *drive.Identity
	Capability *locking.Capability `json:",omitempty"`
	Geometry   *locking.Geometry   `json:",omitempty"`
}

type Devices []DeviceState

type scanner struct {
	log      *logrus.Logger
	disks    func() ([]*block.Disk, error)
	identify func(device string) (*drive.Identity, error)
	opener   opal.Opener
}

func newScanner(log *logrus.Logger) *scanner {
	return &scanner{
		log:      log,
		disks:    ghwDisks,
		identify: drive.IdentifyPath,
		opener:   opal.Open,
	}
}

func ghwDisks() ([]*block.Disk, error) {
	info, err := block.New(ghw.WithDisableTools(), ghw.WithDisableWarnings())
	if err != nil {
		return nil, err
	}
	return info.Disks, nil
}

func (s *scanner) scan() (Devices, error) {
	disks, err := s.disks()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate block devices: %v", err)
	}

	var state Devices
	for _, disk := range disks {
		devpath := filepath.Join("/dev", disk.Name)
		ds := DeviceState{Device: devpath, SizeBytes: disk.SizeBytes}

		ds.Identity, err = s.identify(devpath)
		if err != nil {
			s.log.Debugf("drive.IdentifyPath(%s): %v", devpath, err)
			ds.Identity = &drive.Identity{
				Protocol:     disk.StorageController.String(),
				Model:        disk.Model,
				SerialNumber: disk.SerialNumber,
			}
		}

		d := locking.New(devpath, locking.WithOpener(s.opener), locking.WithLogger(s.log))
		cp, err := d.Capability()
		if err != nil {
			s.log.Warnf("%s: %v", devpath, err)
			state = append(state, ds)
			continue
		}
		ds.Capability = &cp
		if cp.Supported() {
			if ds.Geometry, err = d.Geometry(); err != nil {
				s.log.Warnf("%s: %v", devpath, err)
			}
		}
		state = append(state, ds)
	}
	return state, nil
}

func stateFlags(cp *locking.Capability) string {
	if cp == nil || !cp.Supported() {
		return "-"
	}
	state := ""
	if cp.Enabled() {
		state += "L"
	} else {
		state += "l"
	}
	if cp.Locked() {
		state += "K"
	}
	if cp.MBREnabled() {
		if cp.MBRDone() {
			state += "m"
		} else {
			state += "M"
		}
	}
	if cp.SUMSupported() {
		state += "S"
	}
	return state
}

func outputJSON(w io.Writer, state Devices) error {
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %v", err)
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

func outputTable(out io.Writer, state Devices, header bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	if header {
		fmt.Fprintf(w, "DEVICE\tMODEL\tSERIAL\tFIRMWARE\tPROTOCOL\tSIZE\tBLOCK\tSTATE\n")
	}
	for _, s := range state {
		bs := "-"
		if s.Geometry != nil {
			bs = units.BytesSize(float64(s.Geometry.BlockSize))
		}
		fmt.Fprint(w,
			s.Device, "\t",
			s.Identity.Model, "\t",
			s.Identity.SerialNumber, "\t",
			dash(s.Identity.Firmware), "\t",
			dash(s.Identity.Protocol), "\t",
			units.BytesSize(float64(s.SizeBytes)), "\t",
			bs, "\t",
			stateFlags(s.Capability), "\t",
			"\n")
	}
	return w.Flush()
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
