// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		code Status
		want string
	}{
		{StatusSuccess, "success"},
		{StatusNotAuthorized, "not authorized"},
		{StatusObsolete0, "obsolete"},
		{StatusSPBusy, "SP busy"},
		{StatusSPFailed, "SP failed"},
		{StatusSPDisabled, "SP disabled"},
		{StatusSPFrozen, "SP frozen"},
		{StatusNoSessionsAvailable, "no sessions available"},
		{StatusUniquenessConflict, "uniqueness conflict"},
		{StatusInsufficientSpace, "insufficient space"},
		{StatusInsufficientRows, "insufficient rows"},
		{StatusObsolete1, "obsolete"},
		{StatusInvalidParameter, "invalid parameter"},
		{StatusTPerMalfunction, "TPer malfunction"},
		{StatusTransactionFailure, "transaction failure"},
		{StatusResponseOverflow, "response overflow"},
		{StatusAuthorityLockedOut, "authority locked out"},
		{StatusFail, "unknown failure"},
		{Status(0x13), "unknown error"},
		{Status(0x40), "unknown error"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.code.String(), "status 0x%02x", uint8(tc.code))
	}
}

func TestCodeKind(t *testing.T) {
	assert.Equal(t, KindSuccess, Code(0).Kind())
	assert.Equal(t, KindStatus, Code(StatusNotAuthorized).Kind())
	assert.Equal(t, KindStatus, Code(StatusFail).Kind())
	assert.Equal(t, KindUnknown, Code(0x13).Kind())
	assert.Equal(t, KindUnknown, Code(0x1234).Kind())
	assert.Equal(t, KindOS, Errno(unix.ENOTTY).Kind())
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "success", Code(0).String())
	assert.Equal(t, "not authorized", Code(1).String())
	assert.Equal(t, "unknown error", Code(999).String())
	assert.Equal(t, unix.EACCES.Error(), Errno(unix.EACCES).String())
	assert.Contains(t, Code(1).GoString(), "not authorized")
}

func TestCodeErrno(t *testing.T) {
	c := Errno(unix.EOPNOTSUPP)
	assert.Less(t, int(c), 0)
	assert.Equal(t, unix.EOPNOTSUPP, c.Errno())
	assert.Equal(t, unix.Errno(0), Code(1).Errno())
	assert.False(t, c.OK())
	assert.True(t, Code(0).OK())
}

func TestCodeIs(t *testing.T) {
	assert.True(t, Code(1).Is(StatusNotAuthorized))
	assert.False(t, Code(2).Is(StatusNotAuthorized))
	// EPERM is 1 and must not read as "not authorized".
	assert.False(t, Errno(unix.EPERM).Is(StatusNotAuthorized))
	assert.Equal(t, StatusFail, Errno(unix.EPERM).Status())
}
