// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmdutil

import (
	"encoding/hex"
	"fmt"

	"github.com/open-source-firmware/go-sedopal/pkg/drive"
)

// identify is replaced in tests.
var identify = drive.IdentifyPath

// Encoding turns a password given on the command line into key bytes.
type Encoding struct {
	Hex  bool   `optional:"" env:"HEX" help:"The password is hex encoded key material"`
	Hash string `optional:"" env:"HASH" default:"none" enum:"none,sedutil-dta,sedutil-sha512" help:"Derive the key from the password and drive serial like sedutil (${enum})"`
}

func (e *Encoding) key(password string, device string) ([]byte, error) {
	if e.Hex && e.Hash != HashNone {
		return nil, fmt.Errorf("--hex cannot be combined with --hash %s", e.Hash)
	}
	if e.Hex {
		b, err := hex.DecodeString(password)
		if err != nil {
			return nil, fmt.Errorf("hex.DecodeString() failed: %v", err)
		}
		return b, nil
	}

	switch e.Hash {
	case HashNone, "":
		return []byte(password), nil
	case HashSedutilDTA, HashSedutilSHA512:
	default:
		return nil, fmt.Errorf("unknown hash method %q", e.Hash)
	}
	if password == "" {
		return nil, nil
	}
	id, err := identify(device)
	if err != nil {
		return nil, fmt.Errorf("drive.IdentifyPath() failed: %v", err)
	}
	if e.Hash == HashSedutilDTA {
		return SedutilDTA(password, id.RawSerial()), nil
	}
	return SedutilSHA512(password, id.RawSerial()), nil
}

// PasswordEmbed is a required credential, prompted for when missing.
type PasswordEmbed struct {
	Password string `required:"" env:"PASSWORD" type:"password" help:"Credential"`
	Encoding `embed:""`
}

// Key returns the credential bytes for device. The caller wipes them.
func (p *PasswordEmbed) Key(device string) ([]byte, error) {
	return p.key(p.Password, device)
}

// OptionalPasswordEmbed is a credential that may be left empty.
type OptionalPasswordEmbed struct {
	Password string `optional:"" env:"PASSWORD" help:"Credential, empty to use the key saved by the last unlock"`
	Encoding `embed:""`
}

func (p *OptionalPasswordEmbed) Key(device string) ([]byte, error) {
	return p.key(p.Password, device)
}
