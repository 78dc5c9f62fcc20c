// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// High-level locking range API for OPAL self-encrypting drives

package locking

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/open-source-firmware/go-sedopal/pkg/drive"
	"github.com/open-source-firmware/go-sedopal/pkg/opal"
)

// Range is a locking range index. 0 is the global range covering the whole
// medium.
type Range uint8

// MaxRange is the highest locking range the kernel can address.
const MaxRange Range = opal.MaxLRs - 1

// user is the authority bound to the range.
func (r Range) user() opal.User {
	return opal.User(r) + opal.User1
}

// Drive operates the locking ranges of one block device. It keeps no state
// between calls; every operation opens its own channel and closes it before
// returning. Callers serialize operations on the same drive.
type Drive struct {
	path string
	open opal.Opener
	log  Logger
}

type Option func(d *Drive)

// WithLogger sets the diagnostics sink. The default is the logrus standard
// logger.
func WithLogger(l Logger) Option {
	return func(d *Drive) {
		d.log = l
	}
}

// WithOpener replaces the kernel channel, mostly for tests.
func WithOpener(o opal.Opener) Option {
	return func(d *Drive) {
		d.open = o
	}
}

func New(path string, opts ...Option) *Drive {
	d := &Drive{
		path: path,
		open: opal.Open,
		log:  logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Drive) Path() string {
	return d.path
}

type identifier interface {
	Identify() (*drive.Identity, error)
}

// conn is one open channel plus the secure buffers used with it.
type conn struct {
	d     *Drive
	ch    opal.Channel
	arena *opal.Arena
	name  string
	op    string
	r     int
}

func (d *Drive) connect(op string, r int) (*conn, error) {
	ch, err := d.open(d.path)
	if err != nil {
		class := ErrOpen
		if errors.Is(err, opal.ErrNotSupported) {
			class = ErrNotSupported
		}
		return nil, &Error{Op: op, Device: d.path, Range: r, Err: fmt.Errorf("%w: %v", class, err)}
	}
	c := &conn{
		d:     d,
		ch:    ch,
		arena: opal.NewArena(),
		name:  d.path,
		op:    op,
		r:     r,
	}
	if i, ok := ch.(identifier); ok {
		if id, err := i.Identify(); err == nil {
			c.name = fmt.Sprintf("%s (%s)", d.path, id.Short())
			d.log.Debugf("%s: %s", d.path, id)
		} else {
			d.log.Debugf("%s: identify failed: %v", d.path, err)
		}
	}
	return c, nil
}

// close wipes every payload and releases the channel.
func (c *conn) close() {
	c.arena.Release()
	if err := c.ch.Close(); err != nil {
		c.d.log.Debugf("%s: close failed: %v", c.d.path, err)
	}
}

// issue sends one command and turns a failure into an *Error.
func (c *conn) issue(cmd opal.Command, arg interface{}) error {
	code := c.ch.Issue(cmd, arg)
	class := classify(code)
	if class == nil {
		return nil
	}
	c.d.log.Debugf("%s: %s: %s failed: %s", c.name, c.op, cmd, code)
	return &Error{Op: c.op + ": " + cmd.String(), Device: c.name, Range: c.r, Code: code, Err: class}
}

// fail builds an error of the given class that did not come from the drive.
func (c *conn) fail(class error, format string, args ...interface{}) error {
	return &Error{Op: c.op, Device: c.name, Range: c.r, Err: fmt.Errorf("%w: %s", class, fmt.Sprintf(format, args...))}
}

// session fills an authenticated session for range r.
func (c *conn) session(who opal.User, r Range, key []byte) *opal.SessionInfo {
	s := opal.Alloc[opal.SessionInfo](c.arena)
	s.Who = who
	s.Key.LR = uint8(r)
	s.Key.Set(key)
	return s
}

func invalid(op string, path string, r int, format string, args ...interface{}) error {
	return &Error{Op: op, Device: path, Range: r, Err: fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))}
}

func (d *Drive) checkRange(op string, r Range) error {
	if r > MaxRange {
		return invalid(op, d.path, int(r), "range index must be 0..%d", MaxRange)
	}
	return nil
}

func (d *Drive) checkCredential(op string, r int, what string, cred []byte, required bool) error {
	if required && len(cred) == 0 {
		return invalid(op, d.path, r, "%s is required", what)
	}
	if len(cred) > opal.MaxKeyLen {
		return invalid(op, d.path, r, "%s is %d bytes, at most %d allowed", what, len(cred), opal.MaxKeyLen)
	}
	return nil
}
