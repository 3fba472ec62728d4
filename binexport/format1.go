// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binexport

import (
	"bytes"
	"encoding/binary"

	"github.com/apex/log"

	"github.com/tsavola/bindelta/graph"
	"github.com/tsavola/bindelta/internal/errorpanic"
	"github.com/tsavola/bindelta/internal/errors"
	"github.com/tsavola/bindelta/internal/loader"
)

// The legacy format prefixes the wire messages with a fixed header:
//
//	uint32  magic "BEX1"
//	uint32  meta chunk offset
//	uint32  call graph chunk offset
//	uint32  flow graph count N
//	uint32  flow graph offsets, N+1 entries (the final artificial entry
//	        delimits the last chunk)
//
// All fields are little-endian.  Chunk contents are the same submessages as
// in the current format.
const (
	format1Magic = uint32(0x31584542) // "BEX1"

	maxChunkSize  = 1 << 29
	maxFlowGraphs = 1 << 24
)

func isFormat1(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == format1Magic
}

func readFormat1(data []byte, cache *graph.Cache) (cg *graph.CallGraph, fgs graph.FlowGraphs, err error) {
	defer func() {
		if x := recover(); x != nil {
			err = errorpanic.Handle(x)
		}
	}()

	load := loader.L{R: bytes.NewReader(data)}

	if load.Uint32() != format1Magic {
		panic(errors.Export("legacy export magic number mismatch"))
	}
	metaOffset := load.Uint32()
	callGraphOffset := load.Uint32()
	numFlowGraphs := load.Uint32()
	if numFlowGraphs > maxFlowGraphs {
		panic(errors.Exportf("flow graph count is too large: 0x%x", numFlowGraphs))
	}

	offsets := make([]uint32, numFlowGraphs+1)
	for i := range offsets {
		offsets[i] = load.Uint32()
	}

	chunk := func(start, end uint32) []byte {
		if start > end || uint64(end) > uint64(len(data)) || end-start > maxChunkSize {
			panic(errors.Exportf("invalid chunk bounds: 0x%x..0x%x", start, end))
		}
		return data[start:end]
	}

	cg = graph.NewCallGraph()
	if err := parseMeta(chunk(metaOffset, callGraphOffset), cg); err != nil {
		panic(err)
	}
	if err := parseCallGraph(chunk(callGraphOffset, offsets[0]), cg); err != nil {
		panic(err)
	}

	for i := uint32(0); i < numFlowGraphs; i++ {
		fg, err := parseFlowGraph(chunk(offsets[i], offsets[i+1]), cg, cache)
		if err != nil {
			panic(err)
		}
		if fg == nil {
			continue // Empty; already warned about.
		}
		fgs = append(fgs, fg)
	}

	log.Debugf("legacy export: %s (%d flow graphs)", cg.ExeFilename, len(fgs))
	return cg, fgs, nil
}
