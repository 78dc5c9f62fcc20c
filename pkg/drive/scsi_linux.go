// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drive

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/open-source-firmware/go-sedopal/pkg/drive/sgio"
)

func identifyScsi(fd FdIntf) (*Identity, error) {
	inq, err := sgio.SCSIInquiry(fd.Fd())
	if err != nil {
		return nil, err
	}

	if bytes.Equal(inq.VendorIdent[:], []byte("ATA     ")) {
		// SCSI ATA Translation (SAT); the INQUIRY data is synthesized by the
		// kernel, so ask the drive itself.
		id, err := sgio.ATAIdentify(fd.Fd())
		if err != nil {
			return nil, err
		}
		serial := sgio.ATAString(id.Serial[:])
		return &Identity{
			Protocol:     "SATA",
			Model:        strings.TrimSpace(sgio.ATAString(id.Model[:])),
			SerialNumber: strings.TrimSpace(serial),
			Firmware:     strings.TrimSpace(sgio.ATAString(id.Firmware[:])),

			RawSerialNumber: []byte(serial),
		}, nil
	}

	serial, err := sgio.SCSIUnitSerialNumber(fd.Fd())
	if err != nil {
		// Not every device implements the Unit Serial Number VPD page
		serial = ""
	}
	return &Identity{
		Protocol: "SCSI",
		Model: fmt.Sprintf("%s %s",
			strings.TrimSpace(string(inq.VendorIdent[:])),
			strings.TrimSpace(string(inq.ProductIdent[:]))),
		Firmware:     strings.TrimSpace(string(inq.ProductRev[:])),
		SerialNumber: strings.TrimSpace(serial),

		RawSerialNumber: []byte(serial),
	}, nil
}
