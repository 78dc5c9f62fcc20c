// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Copyright 2021 Christian Svensson. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux

package sgio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	ATA_PASSTHROUGH     = 0xa1
	ATA_IDENTIFY_DEVICE = 0xec

	SCSI_INQUIRY = 0x12

	VPD_UNIT_SERIAL_NUMBER = 0x80
)

// SCSI INQUIRY response
type InquiryResponse struct {
	Peripheral   byte // peripheral qualifier, device type
	_            byte
	Version      byte
	_            [5]byte
	VendorIdent  [8]byte
	ProductIdent [16]byte
	ProductRev   [4]byte
}

func (inq InquiryResponse) String() string {
	return fmt.Sprintf("Type=0x%x, Vendor=%s, Product=%s, Revision=%s",
		inq.Peripheral,
		strings.TrimSpace(string(inq.VendorIdent[:])),
		strings.TrimSpace(string(inq.ProductIdent[:])),
		strings.TrimSpace(string(inq.ProductRev[:])))
}

// ATA IDENTFY DEVICE response
type IdentifyDeviceResponse struct {
	_        [20]byte
	Serial   [20]byte
	_        [6]byte
	Firmware [8]byte
	Model    [40]byte
	_        [418]byte
}

// ATAString undoes the byte swapping of ATA IDENTIFY strings.
func ATAString(b []byte) string {
	out := make([]byte, len(b))
	for i := 0; i < len(b)/2; i++ {
		out[i*2] = b[i*2+1]
		out[i*2+1] = b[i*2]
	}
	return string(out)
}

// INQUIRY - Returns parsed standard inquiry data.
func SCSIInquiry(fd uintptr) (InquiryResponse, error) {
	var resp InquiryResponse

	respBuf := make([]byte, 36)

	cdb := CDB6{SCSI_INQUIRY}
	binary.BigEndian.PutUint16(cdb[3:], uint16(len(respBuf)))

	if err := SendCDB(fd, cdb[:], CDBFromDevice, &respBuf); err != nil {
		return resp, err
	}

	if err := binary.Read(bytes.NewReader(respBuf), nativeEndian, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// INQUIRY with EVPD - Returns the Unit Serial Number VPD page as a string,
// padding included.
func SCSIUnitSerialNumber(fd uintptr) (string, error) {
	respBuf := make([]byte, 252)
	cdb := unitSerialCDB(len(respBuf))
	if err := SendCDB(fd, cdb[:], CDBFromDevice, &respBuf); err != nil {
		return "", err
	}
	return parseUnitSerial(respBuf)
}

func unitSerialCDB(allocLen int) CDB6 {
	cdb := CDB6{SCSI_INQUIRY}
	cdb[1] = 1 // EVPD
	cdb[2] = VPD_UNIT_SERIAL_NUMBER
	binary.BigEndian.PutUint16(cdb[3:], uint16(allocLen))
	return cdb
}

func parseUnitSerial(resp []byte) (string, error) {
	if len(resp) < 4 {
		return "", fmt.Errorf("VPD page too short: %d bytes", len(resp))
	}
	if resp[1] != VPD_UNIT_SERIAL_NUMBER {
		return "", fmt.Errorf("unexpected VPD page %#02x", resp[1])
	}
	n := int(binary.BigEndian.Uint16(resp[2:4]))
	if n > len(resp)-4 {
		n = len(resp) - 4
	}
	return string(resp[4 : 4+n]), nil
}

// ATA Passthrough via SCSI (which is what Linux uses for all ATA these days)
func ATAIdentify(fd uintptr) (IdentifyDeviceResponse, error) {
	var resp IdentifyDeviceResponse

	respBuf := make([]byte, 512)

	cdb := CDB12{ATA_PASSTHROUGH}
	cdb[1] = PIO_DATA_IN << 1
	cdb[2] = 0x0E
	cdb[4] = 1
	cdb[9] = ATA_IDENTIFY_DEVICE

	if err := SendCDB(fd, cdb[:], CDBFromDevice, &respBuf); err != nil {
		return resp, err
	}

	if err := binary.Read(bytes.NewReader(respBuf), nativeEndian, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}
