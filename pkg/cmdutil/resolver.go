// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmdutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/alecthomas/kong"
	"golang.org/x/term"
)

// ResolvePassword returns a kong.Resolver that prompts for required
// 'password' flags without a value. If confirm is true, the user is prompted
// to enter the password twice. When stdin is not a terminal the password is
// read as one line without prompting.
func ResolvePassword(confirm bool) kong.Resolver {
	return resolvePassword(os.Stdin, os.Stderr, confirm)
}

func resolvePassword(in *os.File, out io.Writer, confirm bool) kong.Resolver {
	var lines *bufio.Reader
	return kong.ResolverFunc(func(ctx *kong.Context, parent *kong.Path, flag *kong.Flag) (interface{}, error) {
		if flag.Tag.Type != "password" || !flag.Required || flag.Value.Set && !flag.Value.Target.IsZero() {
			return nil, nil
		}
		if flag.Target.Kind() != reflect.String {
			return nil, fmt.Errorf(`'password' type must be applied to a string not %s`, flag.Target.Type())
		}

		fd := int(in.Fd())
		if !term.IsTerminal(fd) {
			if lines == nil {
				lines = bufio.NewReader(in)
			}
			line, err := lines.ReadString('\n')
			if err != nil && line == "" {
				return nil, nil
			}
			return strings.TrimRight(line, "\r\n"), nil
		}

		fmt.Fprintf(out, "No value has been provided for flag `%s`.\n", flag.ShortSummary())
		if flag.Help != "" {
			fmt.Fprintln(out, "Description: "+flag.Help)
		}

		for {
			fmt.Fprintf(out, "Enter %s: ", strings.ToTitle(flag.Name))
			bytePassword, err := term.ReadPassword(fd)
			fmt.Fprint(out, "\n")
			if err != nil {
				return "", fmt.Errorf("password could not be read: %v", err)
			}
			pwd := strings.TrimSpace(string(bytePassword))
			if pwd == "" {
				return nil, nil
			}

			if confirm {
				fmt.Fprintf(out, "Re-enter %s: ", strings.ToTitle(flag.Name))
				bytePassword2, err2 := term.ReadPassword(fd)
				fmt.Fprint(out, "\n\n")
				if err2 != nil {
					return "", fmt.Errorf("password could not be read: %v", err2)
				}
				pwd2 := strings.TrimSpace(string(bytePassword2))
				if pwd != pwd2 {
					fmt.Fprintln(out, "Passwords do not match. Please try again.")
					continue
				}
			}

			return pwd, nil
		}
	})
}
