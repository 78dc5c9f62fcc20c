// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmdutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type configCLI struct {
	LogEmbed `embed:""`

	Unlock struct {
		Device string `arg:""`
		Range  int    `optional:"" default:"1"`
	} `cmd:""`
}

func TestYAMLConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
log-format: json
unlock:
  range: 4
`), 0o600))

	var cli configCLI
	parser, err := kong.New(&cli, kong.Configuration(YAML, path), kong.Exit(func(int) { t.Fatal("exit called") }))
	require.NoError(t, err)
	_, err = parser.Parse([]string{"unlock", "/dev/nvme0n1"})
	require.NoError(t, err)

	assert.Equal(t, "debug", cli.LogLevel)
	assert.Equal(t, "json", cli.LogFormat)
	assert.Equal(t, 4, cli.Unlock.Range)
}

func TestYAMLFlagsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log-level: debug\n"), 0o600))

	var cli configCLI
	parser, err := kong.New(&cli, kong.Configuration(YAML, path))
	require.NoError(t, err)
	_, err = parser.Parse([]string{"--log-level", "error", "unlock", "/dev/sda"})
	require.NoError(t, err)
	assert.Equal(t, "error", cli.LogLevel)
	assert.Equal(t, 1, cli.Unlock.Range)
}

func TestYAMLEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	var cli configCLI
	parser, err := kong.New(&cli, kong.Configuration(YAML, path))
	require.NoError(t, err)
	_, err = parser.Parse([]string{"unlock", "/dev/sda"})
	require.NoError(t, err)
	assert.Equal(t, "info", cli.LogLevel)
}
