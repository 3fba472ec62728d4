// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the tool configuration.  The matching engine reads
// none of it; the settings concern plugin installation and user interface
// integration.
package config

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Directory is the installation path for plugins and resources.
	Directory string `yaml:"directory,omitempty"`

	UI          UI          `yaml:"ui,omitempty"`
	Log         Log         `yaml:"log,omitempty"`
	IDA         IDA         `yaml:"ida,omitempty"`
	Preferences Preferences `yaml:"preferences,omitempty"`
}

type UI struct {
	Server  string `yaml:"server,omitempty"`
	Port    int    `yaml:"port,omitempty"`
	Retries int    `yaml:"retries,omitempty"`
}

type Log struct {
	Level     string `yaml:"level,omitempty"`
	ToStderr  bool   `yaml:"to_stderr,omitempty"`
	Directory string `yaml:"directory,omitempty"`
}

type IDA struct {
	Directory string `yaml:"directory,omitempty"`
}

type Preferences struct {
	DefaultWorkspace string `yaml:"default_workspace,omitempty"`
}

func Default() *Config {
	return &Config{
		UI: UI{
			Server:  "127.0.0.1",
			Port:    2000,
			Retries: 20,
		},
		Log: Log{
			Level:    "info",
			ToStderr: true,
		},
	}
}

func Load(filename string) (*Config, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %q", filename)
	}

	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "parsing config %q", filename)
	}
	return c, nil
}

func (c *Config) Write(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := ioutil.WriteFile(filename, data, 0666); err != nil {
		return errors.Wrapf(err, "writing config %q", filename)
	}
	return nil
}

// LoadDefault reads the file if it exists, and falls back to defaults.
func LoadDefault(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(filename)
}
