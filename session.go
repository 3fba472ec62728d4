// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bindelta

import (
	"github.com/tsavola/bindelta/binexport"
	"github.com/tsavola/bindelta/graph"
	"github.com/tsavola/bindelta/match"
)

// Session owns the state of one diff: both programs and the shared
// instruction cache.  Close releases everything regardless of how matching
// terminated.
type Session struct {
	Cache *graph.Cache

	ctx *match.Context
}

// Load reads two exported programs into a fresh session.
func Load(primaryFile, secondaryFile string) (*Session, error) {
	cache := graph.NewCache()

	primaryCG, primaryFGs, err := binexport.ReadFile(primaryFile, cache)
	if err != nil {
		return nil, err
	}

	secondaryCG, secondaryFGs, err := binexport.ReadFile(secondaryFile, cache)
	if err != nil {
		return nil, err
	}

	return NewSession(primaryCG, secondaryCG, primaryFGs, secondaryFGs, cache), nil
}

// NewSession wraps graphs which have already been constructed (or built
// programmatically).
func NewSession(primaryCG, secondaryCG *graph.CallGraph, primaryFGs, secondaryFGs graph.FlowGraphs, cache *graph.Cache) *Session {
	return &Session{
		Cache: cache,
		ctx:   match.NewContext(primaryCG, secondaryCG, primaryFGs, secondaryFGs),
	}
}

// Context exposes the matching context, e.g. for ResetMatches or custom
// step lists.
func (s *Session) Context() *match.Context {
	return s.ctx
}

// Diff runs the default matching steps and scores the result.
func (s *Session) Diff() *Result {
	return s.DiffSteps(match.DefaultSteps(), match.DefaultBlockSteps())
}

// DiffSteps runs the given matching steps and scores the result.
func (s *Session) DiffSteps(steps []match.Step, blockSteps []match.BlockStep) *Result {
	match.Diff(s.ctx, steps, blockSteps)

	histogram, counts := CountsAndHistogram(s.ctx.PrimaryFlowGraphs, s.ctx.SecondaryFlowGraphs, s.ctx.FixedPoints())
	confidences := DefaultConfidences()

	return &Result{
		FixedPoints: s.ctx.SortedFixedPoints(),
		Histogram:   histogram,
		Counts:      counts,
		Confidences: confidences,
		Similarity:  Similarity(s.ctx.PrimaryCallGraph, s.ctx.SecondaryCallGraph, histogram, counts, confidences),
		Confidence:  Confidence(histogram, confidences),
	}
}

// Close drops both flow-graph sets and clears the instruction cache.
func (s *Session) Close() error {
	if s.ctx != nil {
		s.ctx.PrimaryFlowGraphs = nil
		s.ctx.SecondaryFlowGraphs = nil
		s.ctx = nil
	}
	if s.Cache != nil {
		s.Cache.Clear()
	}
	return nil
}

// Result is the outcome of one diff: the matches, the aggregate tallies and
// the scores.
type Result struct {
	FixedPoints []*match.FixedPoint
	Histogram   Histogram
	Counts      Counts
	Confidences Confidences
	Similarity  float64
	Confidence  float64
}

// FunctionSimilarity scores a single matched pair from this result.
func (r *Result) FunctionSimilarity(fp *match.FixedPoint) float64 {
	return FixedPointSimilarity(fp, r.Confidences)
}
