// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bindelta

import (
	"github.com/tsavola/bindelta/graph"
	"github.com/tsavola/bindelta/match"
)

// Counts maps category keys to tallies.  Library and non-library functions
// are tracked separately so that library code cannot inflate the global
// similarity score.
type Counts map[string]int

// Histogram maps matching-step names to the number of fixed points the step
// created, function and basic-block level combined.
type Histogram map[string]int

// Count tallies one program side: functions, basic blocks, instructions and
// flow-graph edges, split by library status.
func Count(flowGraphs graph.FlowGraphs, counts Counts) {
	var functions, basicBlocks, instructions, edges int
	var libFunctions, libBasicBlocks, libInstructions, libEdges int

	for _, fg := range flowGraphs {
		if fg.IsLibrary() {
			libFunctions++
			libBasicBlocks += fg.NumBasicBlocks()
			libInstructions += fg.InstructionCount()
			libEdges += fg.NumEdges()
		} else {
			functions++
			basicBlocks += fg.NumBasicBlocks()
			instructions += fg.InstructionCount()
			edges += fg.NumEdges()
		}
	}

	counts["functions (library)"] = libFunctions
	counts["functions (non-library)"] = functions
	counts["basicBlocks (library)"] = libBasicBlocks
	counts["basicBlocks (non-library)"] = basicBlocks
	counts["instructions (library)"] = libInstructions
	counts["instructions (non-library)"] = instructions
	counts["edges (library)"] = libEdges
	counts["edges (non-library)"] = edges
}

var matchKeys = []string{
	"function matches",
	"basicBlock matches",
	"instruction matches",
	"flowGraph edge matches",
}

// CountFixedPoint tallies one fixed point's matches and adds its steps to
// the histogram.  The match keys in counts are reset first; use
// CountsAndHistogram to accumulate over a whole diff.  A fixed point counts
// as library if either endpoint is a library function.
func CountFixedPoint(fp *match.FixedPoint, counts Counts, histogram Histogram) {
	for _, key := range matchKeys {
		counts[key+" (library)"] = 0
		counts[key+" (non-library)"] = 0
	}

	suffix := " (non-library)"
	if fp.Primary().IsLibrary() || fp.Secondary().IsLibrary() {
		suffix = " (library)"
	}

	histogram[fp.MatchingStep()]++
	counts["function matches"+suffix] = 1

	blocks := fp.BasicBlockFixedPoints()
	counts["basicBlock matches"+suffix] = len(blocks)

	instructions := 0
	for _, bfp := range blocks {
		histogram[bfp.MatchingStep()]++
		instructions += len(bfp.InstructionMatches())
	}
	counts["instruction matches"+suffix] = instructions

	counts["flowGraph edge matches"+suffix] = countMatchedEdges(fp)
}

// countMatchedEdges counts the primary edges whose endpoint blocks are both
// matched and whose secondary counterparts are connected by an edge of any
// kind.
func countMatchedEdges(fp *match.FixedPoint) (n int) {
	primary := fp.Primary()
	secondary := fp.Secondary()

	for i := 0; i < primary.NumEdges(); i++ {
		e := primary.Edge(i)
		sourceMatch := fp.PrimaryBlockFixedPoint(primary.BasicBlock(e.Source))
		targetMatch := fp.PrimaryBlockFixedPoint(primary.BasicBlock(e.Target))
		if sourceMatch == nil || targetMatch == nil {
			continue
		}

		source2 := secondary.BlockIndex(sourceMatch.Secondary())
		target2 := secondary.BlockIndex(targetMatch.Secondary())
		if source2 < 0 || target2 < 0 {
			continue
		}
		if secondary.HasEdge(source2, target2) {
			n++
		}
	}
	return
}

var programCategories = map[string]string{
	"functions":       "functions",
	"basicBlocks":     "basicBlocks",
	"instructions":    "instructions",
	"flowGraph edges": "edges",
}

// CountsAndHistogram aggregates both program sides and all fixed points.
func CountsAndHistogram(primary, secondary graph.FlowGraphs, fixedPoints []*match.FixedPoint) (Histogram, Counts) {
	counts1 := make(Counts)
	counts2 := make(Counts)
	Count(primary, counts1)
	Count(secondary, counts2)

	counts := make(Counts)
	for target, source := range programCategories {
		counts[target+" primary (library)"] = counts1[source+" (library)"]
		counts[target+" primary (non-library)"] = counts1[source+" (non-library)"]
		counts[target+" secondary (library)"] = counts2[source+" (library)"]
		counts[target+" secondary (non-library)"] = counts2[source+" (non-library)"]
	}

	for _, key := range matchKeys {
		counts[key+" (library)"] = 0
		counts[key+" (non-library)"] = 0
	}

	histogram := make(Histogram)
	fixedPointCounts := make(Counts)
	for _, fp := range fixedPoints {
		CountFixedPoint(fp, fixedPointCounts, histogram)
		for _, key := range matchKeys {
			counts[key+" (library)"] += fixedPointCounts[key+" (library)"]
			counts[key+" (non-library)"] += fixedPointCounts[key+" (non-library)"]
		}
	}

	return histogram, counts
}
