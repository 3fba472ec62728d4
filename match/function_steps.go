// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package match

import (
	"sort"

	"github.com/tsavola/bindelta/graph"
)

// Step name and prior of the refinement pass (see callref.go).  It is not
// part of the walked step list.
const (
	CallReferenceName       = "function: call reference matching"
	CallReferenceConfidence = 0.75
)

// DefaultSteps returns the call-graph step list, ordered from most to least
// selective.  The driver walks the list front to back, dropping the front
// after each pass.
func DefaultSteps() []Step {
	return []Step{
		&functionStep{"function: name hash matching", 1.0, nameHashFingerprint},
		&functionStep{"function: hash matching", 1.0, functionHashFingerprint},
		&functionStep{"function: edges flowgraph MD index", 0.9, edgesMDIndexFingerprint},
		&functionStep{"function: MD index matching (flowgraph MD index, top down)", 0.7, mdIndexFingerprint},
		&functionStep{"function: prime signature matching", 0.6, primeSignatureFingerprint},
		&functionStep{"function: instruction count matching", 0.4, instructionCountFingerprint},
	}
}

// nameHashFingerprint hashes the function name.  Nameless functions do not
// participate: auto-generated labels would collide meaninglessly.
func nameHashFingerprint(fg *graph.FlowGraph) (uint64, bool) {
	name := fg.DemangledName()
	if name == "" {
		name = fg.Name()
	}
	if name == "" {
		return 0, false
	}
	return hashString(fnvOffset, name), true
}

// functionHashFingerprint hashes the entire instruction stream, block by
// block in index order.
func functionHashFingerprint(fg *graph.FlowGraph) (uint64, bool) {
	if fg.InstructionCount() == 0 {
		return 0, false
	}
	h := uint64(fnvOffset)
	for i := 0; i < fg.NumBasicBlocks(); i++ {
		h = instructionHash(h, fg.BasicBlock(i).Instructions)
	}
	return h, true
}

// edgesMDIndexFingerprint combines a function's own flow-graph MD index with
// the MD indexes of its call-graph neighbors.  A function with a common
// body but a distinctive calling context gets a distinctive fingerprint.
func edgesMDIndexFingerprint(fg *graph.FlowGraph) (uint64, bool) {
	cg := fg.CallGraph()
	if cg == nil {
		return 0, false
	}

	var bits []uint64
	for _, neighbor := range cg.Neighbors(fg.CallGraphVertex()) {
		bits = append(bits, mdBits(neighbor.MDIndex()))
	}
	if len(bits) == 0 {
		return 0, false
	}
	sort.Slice(bits, func(i, j int) bool { return bits[i] < bits[j] })

	h := hashUint64(fnvOffset, mdBits(fg.MDIndex()))
	for _, b := range bits {
		h = hashUint64(h, b)
	}
	return h, true
}

// mdIndexFingerprint is the flow-graph MD index alone.  Stubs all share the
// zero index and are left to weaker steps.
func mdIndexFingerprint(fg *graph.FlowGraph) (uint64, bool) {
	if fg.IsStub() {
		return 0, false
	}
	return mdBits(fg.MDIndex()), true
}

func primeSignatureFingerprint(fg *graph.FlowGraph) (uint64, bool) {
	if fg.InstructionCount() == 0 {
		return 0, false
	}
	sig := uint64(1)
	for i := 0; i < fg.NumBasicBlocks(); i++ {
		sig *= primeSignature(fg.BasicBlock(i).Instructions)
	}
	return sig, true
}

// instructionCountFingerprint is the weakest fingerprint.  Stubs (count
// zero) participate: two lone imports can still be paired up by it.
func instructionCountFingerprint(fg *graph.FlowGraph) (uint64, bool) {
	return uint64(fg.InstructionCount()), true
}
