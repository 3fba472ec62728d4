// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package match

import (
	"math"

	"github.com/tsavola/bindelta/graph"
)

// PropagationName is the weakest basic-block step.  Matching the sole
// remaining candidates of a degree-1 neighborhood carries no structural
// evidence, so its prior is pinned to zero in the confidence model.
const PropagationName = "basicBlock: propagation (size==1)"

// DefaultBlockSteps returns the basic-block step list, ordered from most to
// least selective.
func DefaultBlockSteps() []BlockStep {
	return []BlockStep{
		&blockStep{"basicBlock: hash matching", 1.0, blockHashFingerprint},
		&blockStep{"basicBlock: prime matching", 0.9, blockPrimeFingerprint},
		&blockStep{"basicBlock: MD index matching (top down)", 0.7, blockMDIndexFingerprint},
		&blockStep{"basicBlock: entry point matching", 0.6, blockEntryFingerprint},
		&blockStep{"basicBlock: exit point matching", 0.5, blockExitFingerprint},
		&blockStep{"basicBlock: instruction count matching", 0.4, blockCountFingerprint},
		&blockStep{PropagationName, 0.0, blockPropagationFingerprint},
	}
}

func blockHashFingerprint(fg *graph.FlowGraph, b *graph.BasicBlock) (uint64, bool) {
	if len(b.Instructions) == 0 {
		return 0, false
	}
	return instructionHash(fnvOffset, b.Instructions), true
}

func blockPrimeFingerprint(fg *graph.FlowGraph, b *graph.BasicBlock) (uint64, bool) {
	if len(b.Instructions) == 0 {
		return 0, false
	}
	return primeSignature(b.Instructions), true
}

// blockMDIndexFingerprint is a per-block structural position fingerprint:
// degrees within the flow graph, distance from the function entry (hence
// "top down") and the block size.
func blockMDIndexFingerprint(fg *graph.FlowGraph, b *graph.BasicBlock) (uint64, bool) {
	i := fg.BlockIndex(b)
	if i < 0 {
		return 0, false
	}
	w := math.Sqrt(2)*float64(fg.InDegree(i)) +
		math.Sqrt(3)*float64(fg.OutDegree(i)) +
		math.Sqrt(5)*float64(fg.BlockDepth(i)+1) +
		math.Sqrt(7)*float64(len(b.Instructions))
	return mdBits(1 / math.Sqrt(w)), true
}

// blockEntryFingerprint matches the two function entry blocks with each
// other.
func blockEntryFingerprint(fg *graph.FlowGraph, b *graph.BasicBlock) (uint64, bool) {
	if b.EntryPoint != fg.EntryPoint() {
		return 0, false
	}
	return 0, true
}

// blockExitFingerprint buckets the blocks without successors; it matches
// when each function has a single unmatched exit.
func blockExitFingerprint(fg *graph.FlowGraph, b *graph.BasicBlock) (uint64, bool) {
	i := fg.BlockIndex(b)
	if i < 0 || fg.OutDegree(i) != 0 {
		return 0, false
	}
	return 0, true
}

func blockCountFingerprint(fg *graph.FlowGraph, b *graph.BasicBlock) (uint64, bool) {
	return uint64(len(b.Instructions)), true
}

// blockPropagationFingerprint is constant: it matches exactly when one
// unmatched candidate remains on each side.
func blockPropagationFingerprint(fg *graph.FlowGraph, b *graph.BasicBlock) (uint64, bool) {
	return 0, true
}
