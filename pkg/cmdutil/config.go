// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmdutil

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// ConfigPaths are searched in order; missing files are skipped.
var ConfigPaths = []string{"/etc/sedopal/config.yaml", "~/.config/sedopal/config.yaml"}

// YAML is a kong.ConfigurationLoader for flat YAML files keyed by flag name.
// Keys may use dashes or underscores. A section named after a command holds
// flags that only apply to that command.
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]interface{}{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("yaml.Decode() failed: %v", err)
	}

	var f kong.ResolverFunc = func(ctx *kong.Context, parent *kong.Path, flag *kong.Flag) (interface{}, error) {
		if parent != nil && parent.Command != nil {
			if section, ok := values[parent.Command.Name].(map[string]interface{}); ok {
				if v, ok := lookup(section, flag.Name); ok {
					return scalar(v)
				}
			}
		}
		if v, ok := lookup(values, flag.Name); ok {
			return scalar(v)
		}
		return nil, nil
	}
	return f, nil
}

func lookup(values map[string]interface{}, name string) (interface{}, bool) {
	for _, k := range []string{name, strings.ReplaceAll(name, "-", "_")} {
		if v, ok := values[k]; ok {
			if _, section := v.(map[string]interface{}); section {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

func scalar(v interface{}) (interface{}, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ","), nil
	default:
		return fmt.Sprint(v), nil
	}
}
