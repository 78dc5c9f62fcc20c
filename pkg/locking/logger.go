// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locking

import (
	"bytes"
	"io"

	"github.com/sirupsen/logrus"
)

// Logger receives diagnostics. It never influences control flow.
// *logrus.Logger and *logrus.Entry satisfy it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NewNullLogger discards everything.
func NewNullLogger() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewBufferLogger writes every level, including debug, into b.
func NewBufferLogger(b *bytes.Buffer) Logger {
	l := logrus.New()
	l.SetOutput(b)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	return l
}
