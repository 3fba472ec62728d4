// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package binexport reads serialized program exports into call graphs and flow
graphs.

Two historical format variants exist.  The current one is a single
wire-format message (see format2.go for the field layout).  The legacy one
prefixes the same submessages with a fixed little-endian header carrying a
magic number and chunk offsets.  Read accepts either.

Functions without a body in the export (imports from shared libraries) get a
synthetic empty flow graph so that call-graph matching still sees a node.
Flow graphs with zero basic blocks are skipped with a warning.
*/
package binexport

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/tsavola/bindelta/graph"
	"github.com/tsavola/bindelta/internal/errors"
)

// ReadFile loads one exported program.  Instructions are interned through
// the given cache, which may be shared by the two programs of a diff.
func ReadFile(filename string, cache *graph.Cache) (*graph.CallGraph, graph.FlowGraphs, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	return Read(f, cache)
}

// Read loads one exported program from a stream.
func Read(r io.Reader, cache *graph.Cache) (*graph.CallGraph, graph.FlowGraphs, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return ReadBytes(data, cache)
}

// ReadBytes loads one exported program from memory.
func ReadBytes(data []byte, cache *graph.Cache) (*graph.CallGraph, graph.FlowGraphs, error) {
	if len(data) == 0 {
		return nil, nil, errors.ErrUnexpectedEOF
	}

	var (
		cg  *graph.CallGraph
		fgs graph.FlowGraphs
		err error
	)

	if isFormat1(data) {
		cg, fgs, err = readFormat1(data, cache)
	} else {
		cg, fgs, err = readFormat2(data, cache)
	}
	if err != nil {
		return nil, nil, err
	}

	graph.AddStubs(cg, &fgs)
	return cg, fgs, nil
}
