// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"io/ioutil"
	"os"
	"path"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	filename := path.Join(dir, "bindelta.yaml")

	c := Default()
	c.Directory = "/opt/bindelta"
	c.IDA.Directory = "/opt/ida"
	c.Log.Level = "debug"
	c.Preferences.DefaultWorkspace = "/home/user/diffs"

	if err := c.Write(filename); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(filename)
	if err != nil {
		t.Fatal(err)
	}

	if *loaded != *c {
		t.Errorf("round trip changed config: %+v != %+v", loaded, c)
	}
}

func TestLoadDefault(t *testing.T) {
	c, err := LoadDefault("/nonexistent/bindelta.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if c.UI.Port != 2000 || c.Log.Level != "info" {
		t.Errorf("defaults: %+v", c)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load("/nonexistent/bindelta.yaml"); err == nil {
		t.Error("missing file accepted")
	}
}

func TestLoadInvalid(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	filename := path.Join(dir, "bindelta.yaml")
	if err := ioutil.WriteFile(filename, []byte("directory: [\n"), 0666); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(filename); err == nil {
		t.Error("malformed file accepted")
	}
}
