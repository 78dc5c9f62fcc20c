// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package sgio

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestATAString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"BADC", "ABCD"},
		{"eHll o", "Hello "},
		{"abc", "ba\x00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ATAString([]byte(tt.in)))
	}
}

func TestResponseSizes(t *testing.T) {
	assert.Equal(t, uintptr(36), unsafe.Sizeof(InquiryResponse{}))
	assert.Equal(t, uintptr(512), unsafe.Sizeof(IdentifyDeviceResponse{}))
}

func TestUnitSerialCDB(t *testing.T) {
	assert.Equal(t, CDB6{SCSI_INQUIRY, 1, VPD_UNIT_SERIAL_NUMBER, 0x00, 0xfc, 0x00}, unitSerialCDB(252))
}

func TestParseUnitSerial(t *testing.T) {
	tests := []struct {
		name    string
		resp    []byte
		want    string
		wantErr bool
	}{
		{"padded", []byte{0x00, 0x80, 0x00, 0x08, ' ', ' ', 'S', 'N', '0', '0', '1', ' '}, "  SN001 ", false},
		{"length beyond buffer", []byte{0x00, 0x80, 0x00, 0xff, 'A', 'B'}, "AB", false},
		{"empty", []byte{0x00, 0x80, 0x00, 0x00}, "", false},
		{"wrong page", []byte{0x00, 0x83, 0x00, 0x02, 'A', 'B'}, "", true},
		{"short", []byte{0x00, 0x80}, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseUnitSerial(tc.resp)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
