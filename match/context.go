// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package match

import (
	"sort"

	"github.com/tsavola/bindelta/graph"
)

// Context owns the state of one diff session: both programs' graphs and the
// monotonically growing set of fixed points.  A context must not be shared
// between sessions.
type Context struct {
	PrimaryCallGraph    *graph.CallGraph
	SecondaryCallGraph  *graph.CallGraph
	PrimaryFlowGraphs   graph.FlowGraphs
	SecondaryFlowGraphs graph.FlowGraphs

	fixedPoints []*FixedPoint
	byPrimary   map[*graph.FlowGraph]*FixedPoint
	bySecondary map[*graph.FlowGraph]*FixedPoint

	// Fixed points added during the current outer driver iteration.
	newFixedPoints []*FixedPoint
}

func NewContext(primaryCG, secondaryCG *graph.CallGraph, primaryFGs, secondaryFGs graph.FlowGraphs) *Context {
	primaryFGs.Sort()
	secondaryFGs.Sort()
	return &Context{
		PrimaryCallGraph:    primaryCG,
		SecondaryCallGraph:  secondaryCG,
		PrimaryFlowGraphs:   primaryFGs,
		SecondaryFlowGraphs: secondaryFGs,
		byPrimary:           make(map[*graph.FlowGraph]*FixedPoint),
		bySecondary:         make(map[*graph.FlowGraph]*FixedPoint),
	}
}

// AddFixedPoint matches two functions.  The insertion is rejected if either
// endpoint is already part of a fixed point; the matching steps only propose
// unmatched candidates, so a rejection indicates a defect in a step, not a
// property of the input.
func (c *Context) AddFixedPoint(stepName string, primary, secondary *graph.FlowGraph) (*FixedPoint, bool) {
	if primary.Matched() || secondary.Matched() {
		return nil, false
	}
	if _, found := c.byPrimary[primary]; found {
		return nil, false
	}
	if _, found := c.bySecondary[secondary]; found {
		return nil, false
	}

	fp := newFixedPoint(stepName, primary, secondary)
	primary.SetMatched(true)
	secondary.SetMatched(true)
	c.fixedPoints = append(c.fixedPoints, fp)
	c.newFixedPoints = append(c.newFixedPoints, fp)
	c.byPrimary[primary] = fp
	c.bySecondary[secondary] = fp
	return fp, true
}

// FixedPoints returns all fixed points in creation order.  The slice must
// not be modified.
func (c *Context) FixedPoints() []*FixedPoint {
	return c.fixedPoints
}

// SortedFixedPoints returns the fixed points ordered by primary entry point.
func (c *Context) SortedFixedPoints() []*FixedPoint {
	sorted := make([]*FixedPoint, len(c.fixedPoints))
	copy(sorted, c.fixedPoints)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].primary.EntryPoint() < sorted[j].primary.EntryPoint()
	})
	return sorted
}

// PrimaryFixedPoint returns the fixed point containing the given primary
// function, or nil.
func (c *Context) PrimaryFixedPoint(fg *graph.FlowGraph) *FixedPoint {
	return c.byPrimary[fg]
}

// SecondaryFixedPoint is the secondary-side counterpart.
func (c *Context) SecondaryFixedPoint(fg *graph.FlowGraph) *FixedPoint {
	return c.bySecondary[fg]
}

// NewFixedPoints returns the fixed points added during the current outer
// driver iteration.
func (c *Context) NewFixedPoints() []*FixedPoint {
	return c.newFixedPoints
}

func (c *Context) clearNewFixedPoints() {
	c.newFixedPoints = nil
}

// ResetMatches voids all fixed points and matched flags, so that Diff can be
// run again from scratch on the same graphs.
func (c *Context) ResetMatches() {
	for _, fgs := range []graph.FlowGraphs{c.PrimaryFlowGraphs, c.SecondaryFlowGraphs} {
		for _, fg := range fgs {
			fg.SetMatched(false)
			for i := 0; i < fg.NumBasicBlocks(); i++ {
				fg.BasicBlock(i).SetMatched(false)
			}
		}
	}
	c.fixedPoints = nil
	c.newFixedPoints = nil
	c.byPrimary = make(map[*graph.FlowGraph]*FixedPoint)
	c.bySecondary = make(map[*graph.FlowGraph]*FixedPoint)
}

// unmatchedBlocks lists a flow graph's blocks not yet part of a basic-block
// fixed point, in index order.
func unmatchedBlocks(fg *graph.FlowGraph) []*graph.BasicBlock {
	var rest []*graph.BasicBlock
	for i := 0; i < fg.NumBasicBlocks(); i++ {
		if b := fg.BasicBlock(i); !b.Matched() {
			rest = append(rest, b)
		}
	}
	return rest
}
