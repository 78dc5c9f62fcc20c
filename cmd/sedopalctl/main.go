// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/open-source-firmware/go-sedopal/pkg/cmdutil"
	"github.com/open-source-firmware/go-sedopal/pkg/drive"
)

const (
	programName = "sedopalctl"
	programDesc = "Provision and operate OPAL locking ranges through the kernel SED driver"
)

func main() {
	spew.Config.Indent = "  "

	// Parse kong flags and sub-commands
	ctx := kong.Parse(&cli,
		kong.Name(programName),
		kong.Description(programDesc),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Configuration(cmdutil.YAML, cmdutil.ConfigPaths...),
		kong.Resolvers(cmdutil.ResolvePassword(false)),
	)

	log := logrus.StandardLogger()
	ctx.FatalIfErrorf(cli.Configure(log))

	// Run the command
	err := ctx.Run(&context{log: log, out: os.Stdout, identify: drive.IdentifyPath})
	ctx.FatalIfErrorf(err)
}
