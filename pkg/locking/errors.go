// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locking

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/open-source-firmware/go-sedopal/pkg/opal"
)

// Error classes, matched with errors.Is.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNotSupported     = errors.New("OPAL is not supported")
	ErrOpen             = errors.New("cannot open device")
	ErrPermissionDenied = errors.New("permission denied")
	ErrOperation        = errors.New("operation failed")
	ErrVerification     = errors.New("verification failed")
)

// Verification mismatches. Each one also matches ErrVerification.
var (
	ErrOffsetMismatch    = fmt.Errorf("%w: range offset mismatch", ErrVerification)
	ErrLengthMismatch    = fmt.Errorf("%w: range length mismatch", ErrVerification)
	ErrLockingDisabled   = fmt.Errorf("%w: locking is not enabled on range", ErrVerification)
	ErrReadLockMismatch  = fmt.Errorf("%w: read lock state mismatch", ErrVerification)
	ErrWriteLockMismatch = fmt.Errorf("%w: write lock state mismatch", ErrVerification)
)

// NoRange marks an Error that is not about a single range.
const NoRange = -1

// Error describes a failed operation against a drive.
type Error struct {
	Op     string
	Device string
	Range  int
	// Code is the channel result that caused the failure, 0 if none.
	Code opal.Code
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Device != "" {
		b.WriteString(" ")
		b.WriteString(e.Device)
	}
	if e.Range != NoRange {
		fmt.Fprintf(&b, " range %d", e.Range)
	}
	b.WriteString(": ")
	if e.Code != 0 {
		fmt.Fprintf(&b, "%s: ", e.Code)
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify maps a channel result to an error class, nil on success.
func classify(c opal.Code) error {
	switch c.Kind() {
	case opal.KindSuccess:
		return nil
	case opal.KindOS:
		switch c.Errno() {
		case unix.ENOTTY, unix.EOPNOTSUPP, errENOTSUPP:
			return ErrNotSupported
		}
		return ErrOperation
	}
	if c.Is(opal.StatusNotAuthorized) {
		return ErrPermissionDenied
	}
	return ErrOperation
}

// errENOTSUPP is the kernel-internal ENOTSUPP, which leaks to userspace from
// the block layer on drives without OPAL.
const errENOTSUPP = unix.Errno(524)

func mismatch(class error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{class}, args...)...)
}
