// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package match

import (
	"sort"

	"github.com/tsavola/bindelta/graph"
)

// Step is a call-graph matching heuristic.  Name is stable: it is recorded
// in every fixed point the step creates and used as a histogram key.
// Confidence is the step's a-priori trustworthiness in [0,1].
//
// FindFixedPoints proposes function matches among the candidate sets under
// the unique-fingerprint rule, recursing into the remaining steps on
// ambiguous fingerprint buckets.  parent is the fixed point whose
// neighborhood is being matched, or nil for the initial proposal.  It
// reports whether at least one fixed point was created.
type Step interface {
	Name() string
	Confidence() float64
	FindFixedPoints(parent *FixedPoint, primary, secondary graph.FlowGraphs, ctx *Context, remaining []Step, blockSteps []BlockStep) bool
}

// BlockStep is a basic-block matching heuristic, scoped to the two flow
// graphs of one fixed point.
type BlockStep interface {
	Name() string
	Confidence() float64
	FindFixedPoints(fp *FixedPoint, primary, secondary []*graph.BasicBlock, remaining []BlockStep) bool
}

// functionStep implements Step in terms of a fingerprint function.  A
// candidate for which the fingerprint function reports false does not
// participate in this step.
type functionStep struct {
	name        string
	confidence  float64
	fingerprint func(fg *graph.FlowGraph) (uint64, bool)
}

func (s *functionStep) Name() string        { return s.name }
func (s *functionStep) Confidence() float64 { return s.confidence }

func (s *functionStep) FindFixedPoints(parent *FixedPoint, primary, secondary graph.FlowGraphs, ctx *Context, remaining []Step, blockSteps []BlockStep) bool {
	type bucket struct {
		primary   graph.FlowGraphs
		secondary graph.FlowGraphs
	}

	buckets := make(map[uint64]*bucket)
	var keys []uint64
	var rest bucket // Candidates this fingerprint doesn't apply to.

	collect := func(fgs graph.FlowGraphs, secondarySide bool) {
		for _, fg := range fgs {
			if fg.Matched() {
				continue
			}
			key, ok := s.fingerprint(fg)
			if !ok {
				if secondarySide {
					rest.secondary = append(rest.secondary, fg)
				} else {
					rest.primary = append(rest.primary, fg)
				}
				continue
			}
			b := buckets[key]
			if b == nil {
				b = new(bucket)
				buckets[key] = b
				keys = append(keys, key)
			}
			if secondarySide {
				b.secondary = append(b.secondary, fg)
			} else {
				b.primary = append(b.primary, fg)
			}
		}
	}
	collect(primary, false)
	collect(secondary, true)

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	found := false
	for _, key := range keys {
		b := buckets[key]
		switch {
		case len(b.primary) == 1 && len(b.secondary) == 1:
			if fp, ok := ctx.AddFixedPoint(s.name, b.primary[0], b.secondary[0]); ok {
				DiffBasicBlocks(fp, blockSteps)
				found = true
			}

		case len(b.primary) > 0 && len(b.secondary) > 0 && len(remaining) > 0:
			// Ambiguous bucket: let a weaker fingerprint discriminate
			// within it.
			if remaining[0].FindFixedPoints(parent, b.primary, b.secondary, ctx, remaining[1:], blockSteps) {
				found = true
			}
		}
	}

	if len(rest.primary) > 0 && len(rest.secondary) > 0 && len(remaining) > 0 {
		if remaining[0].FindFixedPoints(parent, rest.primary, rest.secondary, ctx, remaining[1:], blockSteps) {
			found = true
		}
	}
	return found
}

// blockStep is the basic-block counterpart of functionStep.  The fingerprint
// function receives the owning flow graph alongside the block.
type blockStep struct {
	name        string
	confidence  float64
	fingerprint func(fg *graph.FlowGraph, b *graph.BasicBlock) (uint64, bool)
}

func (s *blockStep) Name() string        { return s.name }
func (s *blockStep) Confidence() float64 { return s.confidence }

func (s *blockStep) FindFixedPoints(fp *FixedPoint, primary, secondary []*graph.BasicBlock, remaining []BlockStep) bool {
	type bucket struct {
		primary   []*graph.BasicBlock
		secondary []*graph.BasicBlock
	}

	buckets := make(map[uint64]*bucket)
	var keys []uint64
	var rest bucket

	collect := func(fg *graph.FlowGraph, blocks []*graph.BasicBlock, secondarySide bool) {
		for _, block := range blocks {
			if block.Matched() {
				continue
			}
			key, ok := s.fingerprint(fg, block)
			if !ok {
				if secondarySide {
					rest.secondary = append(rest.secondary, block)
				} else {
					rest.primary = append(rest.primary, block)
				}
				continue
			}
			b := buckets[key]
			if b == nil {
				b = new(bucket)
				buckets[key] = b
				keys = append(keys, key)
			}
			if secondarySide {
				b.secondary = append(b.secondary, block)
			} else {
				b.primary = append(b.primary, block)
			}
		}
	}
	collect(fp.Primary(), primary, false)
	collect(fp.Secondary(), secondary, true)

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	found := false
	for _, key := range keys {
		b := buckets[key]
		switch {
		case len(b.primary) == 1 && len(b.secondary) == 1:
			if _, ok := fp.AddBasicBlockFixedPoint(s.name, b.primary[0], b.secondary[0]); ok {
				found = true
			}

		case len(b.primary) > 0 && len(b.secondary) > 0 && len(remaining) > 0:
			if remaining[0].FindFixedPoints(fp, b.primary, b.secondary, remaining[1:]) {
				found = true
			}
		}
	}

	if len(rest.primary) > 0 && len(rest.secondary) > 0 && len(remaining) > 0 {
		if remaining[0].FindFixedPoints(fp, rest.primary, rest.secondary, remaining[1:]) {
			found = true
		}
	}
	return found
}
