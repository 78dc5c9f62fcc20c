// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package drive identifies the storage device behind a block device node.

package drive

import (
	"errors"
	"fmt"
	"os"
)

var (
	ErrNotSupported       = errors.New("operation is not supported")
	ErrDeviceNotSupported = errors.New("device is not supported")
)

type Identity struct {
	Protocol     string
	SerialNumber string
	Model        string
	Firmware     string
	// RawSerialNumber is the serial as the drive reports it, padding
	// included. sedutil salts its password hashes with these bytes.
	RawSerialNumber []byte `json:"-"`
}

func (i *Identity) String() string {
	return fmt.Sprintf("Protocol=%s, Model=%s, Serial=%s, Firmware=%s",
		i.Protocol, i.Model, i.SerialNumber, i.Firmware)
}

// Short is the model and serial number, used to tag log lines.
func (i *Identity) Short() string {
	return fmt.Sprintf("%s %s", i.Model, i.SerialNumber)
}

// RawSerial returns RawSerialNumber, or SerialNumber when the raw form is
// unknown.
func (i *Identity) RawSerial() string {
	if len(i.RawSerialNumber) > 0 {
		return string(i.RawSerialNumber)
	}
	return i.SerialNumber
}

type FdIntf interface {
	Fd() uintptr
}

// IdentifyPath opens device read-only and identifies it.
func IdentifyPath(device string) (*Identity, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Identify(f)
}
