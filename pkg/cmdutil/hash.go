// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmdutil

import (
	"crypto/sha1"
	"crypto/sha512"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Password derivations used by sedutil, so ranges provisioned with either
// tool accept the same password.
const (
	HashNone          = "none"
	HashSedutilDTA    = "sedutil-dta"
	HashSedutilSHA512 = "sedutil-sha512"
)

func sedutilSalt(serial string) []byte {
	salt := fmt.Sprintf("%-20s", serial)
	return []byte(salt[:20])
}

// SedutilDTA derives a key like https://github.com/Drive-Trust-Alliance/sedutil/
func SedutilDTA(password string, serial string) []byte {
	return pbkdf2.Key([]byte(password), sedutilSalt(serial), 75000, 32, sha1.New)
}

// SedutilSHA512 derives a key like https://github.com/ChubbyAnt/sedutil/
func SedutilSHA512(password string, serial string) []byte {
	return pbkdf2.Key([]byte(password), sedutilSalt(serial), 500000, 32, sha512.New)
}
