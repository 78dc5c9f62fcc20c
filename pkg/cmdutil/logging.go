// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmdutil

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// LogEmbed holds the logging flags shared by the tools.
type LogEmbed struct {
	LogLevel  string `optional:"" env:"SEDOPAL_LOG_LEVEL" default:"info" enum:"trace,debug,info,warn,error" help:"Log level (${enum})"`
	LogFormat string `optional:"" env:"SEDOPAL_LOG_FORMAT" default:"text" enum:"text,json" help:"Log format (${enum})"`
}

// Configure applies the flags to l. Logs go to stderr so command output on
// stdout stays parseable.
func (e *LogEmbed) Configure(l *logrus.Logger) error {
	lvl, err := logrus.ParseLevel(e.LogLevel)
	if err != nil {
		return fmt.Errorf("logrus.ParseLevel() failed: %v", err)
	}
	l.SetLevel(lvl)
	l.SetOutput(os.Stderr)
	switch e.LogFormat {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", e.LogFormat)
	}
	return nil
}
