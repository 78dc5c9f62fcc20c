// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/open-source-firmware/go-sedopal/pkg/cmdutil"
)

const (
	programName = "opaldiskstat"
	programDesc = `Show the OPAL state of all block devices.

The following state flags might be shown:
  L/l - Locking is supported and is enabled (L) or disabled (l)
  K   - At least one locking range is locked
  M/m - MBR shadowing is enabled and is active (M) or hidden (m)
  S   - Single User Mode is supported`
)

var cli struct {
	cmdutil.LogEmbed `embed:""`
	Config           kong.ConfigFlag `optional:"" help:"Load flag defaults from a YAML file"`

	Output   string `optional:"" short:"o" env:"SEDOPAL_OUTPUT" default:"table" enum:"table,json,openmetrics" help:"Output format (${enum})"`
	NoHeader bool   `optional:"" help:"Suppress the header in table format output"`
	Listen   string `optional:"" env:"SEDOPAL_LISTEN" placeholder:"ADDR" help:"Serve metrics over HTTP at /metrics on this address instead of printing"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name(programName),
		kong.Description(programDesc),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Configuration(cmdutil.YAML, cmdutil.ConfigPaths...),
	)

	log := logrus.StandardLogger()
	ctx.FatalIfErrorf(cli.Configure(log))

	s := newScanner(log)
	if cli.Listen != "" {
		ctx.FatalIfErrorf(serveMetrics(cli.Listen, s, log))
		return
	}

	state, err := s.scan()
	ctx.FatalIfErrorf(err)

	switch cli.Output {
	case "json":
		err = outputJSON(os.Stdout, state)
	case "openmetrics":
		err = outputMetrics(os.Stdout, state)
	case "table":
		err = outputTable(os.Stdout, state, !cli.NoHeader)
	default:
		err = fmt.Errorf("unsupported output format %q", cli.Output)
	}
	ctx.FatalIfErrorf(err)
}
