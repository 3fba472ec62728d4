// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bindelta

import (
	"math"

	"github.com/tsavola/bindelta/graph"
	"github.com/tsavola/bindelta/match"
)

// Confidences maps step names to prior confidences.
type Confidences map[string]float64

// DefaultConfidences collects the priors of the default step registries.
// Scoring takes the registry as a parameter instead of consulting hidden
// globals, so alternative registries remain usable and testable.
func DefaultConfidences() Confidences {
	conf := make(Confidences)
	for _, step := range match.DefaultSteps() {
		conf[step.Name()] = step.Confidence()
	}
	for _, step := range match.DefaultBlockSteps() {
		conf[step.Name()] = step.Confidence()
	}
	conf[match.PropagationName] = 0.0
	conf[match.CallReferenceName] = match.CallReferenceConfidence
	return conf
}

// Confidence is the sigmoid-squashed mean of the per-step priors, weighted
// by how often each step fired.  An empty histogram yields zero.
func Confidence(histogram Histogram, confidences Confidences) float64 {
	var weighted float64
	var matches float64
	for name, count := range histogram {
		weighted += float64(count) * confidences[name]
		matches += float64(count)
	}
	if matches == 0 {
		return 0
	}
	return 1 / (1 + math.Exp(-(weighted/matches-0.5)*10))
}

func ratio(matches, primary, secondary int) float64 {
	return float64(matches) / math.Max(1, 0.5*float64(primary+secondary))
}

func sumLibrary(counts Counts, key string) int {
	return counts[key+" (library)"] + counts[key+" (non-library)"]
}

// FunctionSimilarity scores one matched function pair.  Library functions
// are included.  A pair whose basic blocks and instructions are fully
// matched on both sides scores 1.0 outright, regardless of confidence.
func FunctionSimilarity(primary, secondary *graph.FlowGraph, histogram Histogram, counts Counts, confidences Confidences) float64 {
	basicBlockMatches := sumLibrary(counts, "basicBlock matches")
	basicBlocksPrimary := sumLibrary(counts, "basicBlocks primary")
	basicBlocksSecondary := sumLibrary(counts, "basicBlocks secondary")
	instructionMatches := sumLibrary(counts, "instruction matches")
	instructionsPrimary := sumLibrary(counts, "instructions primary")
	instructionsSecondary := sumLibrary(counts, "instructions secondary")
	edgeMatches := sumLibrary(counts, "flowGraph edge matches")
	edgesPrimary := sumLibrary(counts, "flowGraph edges primary")
	edgesSecondary := sumLibrary(counts, "flowGraph edges secondary")

	if basicBlockMatches == basicBlocksPrimary &&
		basicBlockMatches == basicBlocksSecondary &&
		instructionMatches == instructionsPrimary &&
		instructionMatches == instructionsSecondary {
		return 1.0
	}

	similarity := 0.55*ratio(edgeMatches, edgesPrimary, edgesSecondary) +
		0.30*ratio(basicBlockMatches, basicBlocksPrimary, basicBlocksSecondary) +
		0.15*ratio(instructionMatches, instructionsPrimary, instructionsSecondary)
	similarity = math.Min(similarity, 1.0)
	similarity += 1.0 - graph.MDIndexDistance(primary.MDIndex(), secondary.MDIndex())
	similarity /= 2.0

	return similarity * Confidence(histogram, confidences)
}

// Similarity scores the whole diff.  Library functions are excluded from the
// ratios so they cannot inflate the score.
func Similarity(primary, secondary *graph.CallGraph, histogram Histogram, counts Counts, confidences Confidences) float64 {
	// Nothing but library code (or nothing at all) on either side: there is
	// no own code to be similar about.
	if counts["functions primary (non-library)"] == 0 && counts["functions secondary (non-library)"] == 0 {
		return 0
	}

	// A perfect structural match reads 1.0 regardless of which steps found
	// it.  Library functions don't count here either: programs consisting
	// of nothing but library code score zero, not one.
	if counts["basicBlocks primary (non-library)"] > 0 &&
		counts["basicBlock matches (non-library)"] == counts["basicBlocks primary (non-library)"] &&
		counts["basicBlock matches (non-library)"] == counts["basicBlocks secondary (non-library)"] &&
		counts["instruction matches (non-library)"] == counts["instructions primary (non-library)"] &&
		counts["instruction matches (non-library)"] == counts["instructions secondary (non-library)"] {
		return 1.0
	}

	similarity := 0.35*ratio(counts["flowGraph edge matches (non-library)"],
		counts["flowGraph edges primary (non-library)"],
		counts["flowGraph edges secondary (non-library)"]) +
		0.25*ratio(counts["basicBlock matches (non-library)"],
			counts["basicBlocks primary (non-library)"],
			counts["basicBlocks secondary (non-library)"]) +
		0.10*ratio(counts["function matches (non-library)"],
			counts["functions primary (non-library)"],
			counts["functions secondary (non-library)"]) +
		0.10*ratio(counts["instruction matches (non-library)"],
			counts["instructions primary (non-library)"],
			counts["instructions secondary (non-library)"]) +
		0.20*(1.0-graph.MDIndexDistance(primary.MDIndex(), secondary.MDIndex()))
	similarity = math.Min(similarity, 1.0)

	return similarity * Confidence(histogram, confidences)
}

// FixedPointSimilarity is a convenience wrapper: it builds the pair-local
// counts and histogram for one fixed point and scores it.
func FixedPointSimilarity(fp *match.FixedPoint, confidences Confidences) float64 {
	counts := make(Counts)
	pairCounts(fp, counts)

	histogram := make(Histogram)
	matchCounts := make(Counts)
	CountFixedPoint(fp, matchCounts, histogram)
	for key, value := range matchCounts {
		counts[key] = value
	}

	return FunctionSimilarity(fp.Primary(), fp.Secondary(), histogram, counts, confidences)
}

func pairCounts(fp *match.FixedPoint, counts Counts) {
	sides := []struct {
		name string
		fg   *graph.FlowGraph
	}{
		{"primary", fp.Primary()},
		{"secondary", fp.Secondary()},
	}

	for _, side := range sides {
		sideCounts := make(Counts)
		Count(graph.FlowGraphs{side.fg}, sideCounts)
		for target, source := range programCategories {
			counts[target+" "+side.name+" (library)"] = sideCounts[source+" (library)"]
			counts[target+" "+side.name+" (non-library)"] = sideCounts[source+" (non-library)"]
		}
	}
}
