// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drive

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unsafe"

	"github.com/dswarbrick/smart/ioctl"
)

const (
	NVME_ADMIN_IDENTIFY = 0x06
)

var NVME_IOCTL_ADMIN_CMD = ioctl.Iowr('N', 0x41, unsafe.Sizeof(nvmePassthruCommand{}))

// Defined in <linux/nvme_ioctl.h>
type nvmePassthruCommand struct {
	opcode       uint8
	flags        uint8  //nolint:structcheck,unused
	rsvd1        uint16 //nolint:structcheck,unused
	nsid         uint32
	cdw2         uint32 //nolint:structcheck,unused
	cdw3         uint32 //nolint:structcheck,unused
	metadata     uint64 //nolint:structcheck,unused
	addr         uint64
	metadata_len uint32 //nolint:structcheck,unused
	data_len     uint32
	cdw10        uint32
	cdw11        uint32 //nolint:structcheck,unused
	cdw12        uint32 //nolint:structcheck,unused
	cdw13        uint32 //nolint:structcheck,unused
	cdw14        uint32 //nolint:structcheck,unused
	cdw15        uint32 //nolint:structcheck,unused
	timeout_ms   uint32 //nolint:structcheck,unused
	result       uint32 //nolint:structcheck,unused
}

// Identify Controller data structure, only the leading fields.
type nvmeIdentity struct {
	_            uint16 /* Vid */
	_            uint16 /* Ssvid */
	SerialNumber [20]byte
	ModelNumber  [40]byte
	Firmware     [8]byte
}

func identifyNvme(fd FdIntf) (*Identity, error) {
	raw := make([]byte, 4096)

	cmd := nvmePassthruCommand{
		opcode:   NVME_ADMIN_IDENTIFY,
		nsid:     0, // Namespace 0, since we are identifying the controller
		addr:     uint64(uintptr(unsafe.Pointer(&raw[0]))),
		data_len: uint32(len(raw)),
		cdw10:    1, // CNS 1: Identify controller
	}

	if err := ioctl.Ioctl(fd.Fd(), NVME_IOCTL_ADMIN_CMD, uintptr(unsafe.Pointer(&cmd))); err != nil {
		return nil, err
	}

	var info nvmeIdentity
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &info); err != nil {
		return nil, err
	}
	return &Identity{
		Protocol:     "NVMe",
		Model:        strings.TrimSpace(string(info.ModelNumber[:])),
		SerialNumber: strings.TrimSpace(string(info.SerialNumber[:])),
		Firmware:     strings.TrimSpace(string(info.Firmware[:])),

		RawSerialNumber: append([]byte(nil), info.SerialNumber[:]...),
	}, nil
}
