// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package match

import (
	"github.com/tsavola/bindelta/graph"
)

// Diff drives the matching.  The outer loop controls the rigor of the
// initial matching: the step at the front of the list proposes matches, with
// the rest of the list as its ambiguity-resolution tail, and after each pass
// the front is dropped so that functions which resisted the rigorous steps
// get a chance under looser ones.  The inner loop propagates matches along
// call-graph neighborhoods until a full pass discovers nothing new.
func Diff(ctx *Context, steps []Step, blockSteps []BlockStep) {
	for level := steps; len(level) > 0; level = level[1:] {
		ctx.clearNewFixedPoints()
		front := level[0]

		front.FindFixedPoints(nil, ctx.PrimaryFlowGraphs, ctx.SecondaryFlowGraphs, ctx, level[1:], blockSteps)

		for more := true; more; {
			more = false

			// All fixed points discovered so far are re-examined, not just
			// the new ones: neighborhoods that used to be ambiguous may
			// have become unique after some of their siblings got matched.
			for _, fp := range ctx.FixedPoints() {
				v1 := fp.primary.CallGraphVertex()
				v2 := fp.secondary.CallGraphVertex()
				if v1 < 0 || v2 < 0 {
					continue
				}

				children1 := ctx.PrimaryCallGraph.UnmatchedChildren(v1)
				children2 := ctx.SecondaryCallGraph.UnmatchedChildren(v2)
				if len(children1) > 0 && len(children2) > 0 {
					if front.FindFixedPoints(fp, children1, children2, ctx, level[1:], blockSteps) {
						more = true
					}
				}
			}

			for _, fp := range ctx.FixedPoints() {
				v1 := fp.primary.CallGraphVertex()
				v2 := fp.secondary.CallGraphVertex()
				if v1 < 0 || v2 < 0 {
					continue
				}

				parents1 := ctx.PrimaryCallGraph.UnmatchedParents(v1)
				parents2 := ctx.SecondaryCallGraph.UnmatchedParents(v2)
				if len(parents1) > 0 && len(parents2) > 0 {
					if front.FindFixedPoints(fp, parents1, parents2, ctx, level[1:], blockSteps) {
						more = true
					}
				}
			}
		}

		// Refinement may add fixed points of its own; they are appended to
		// the worklist and refined in turn.
		for i := 0; i < len(ctx.newFixedPoints); i++ {
			FindCallReferenceFixedPoints(ctx.newFixedPoints[i], ctx, blockSteps)
		}
	}

	ClassifyChanges(ctx)
}

// DiffBasicBlocks matches the basic blocks of a new function fixed point.
// The structure mirrors the function-level driver, with propagation scoped
// to the pair's two flow graphs.
func DiffBasicBlocks(fp *FixedPoint, blockSteps []BlockStep) {
	if fp.primary.NumBasicBlocks() == 0 || fp.secondary.NumBasicBlocks() == 0 {
		return // Stub pair.
	}

	for level := blockSteps; len(level) > 0; level = level[1:] {
		front := level[0]

		front.FindFixedPoints(fp, unmatchedBlocks(fp.primary), unmatchedBlocks(fp.secondary), level[1:])

		for more := true; more; {
			more = false

			for _, bfp := range fp.blocks {
				succ1 := unmatchedSuccessors(fp.primary, bfp.primary)
				succ2 := unmatchedSuccessors(fp.secondary, bfp.secondary)
				if len(succ1) > 0 && len(succ2) > 0 {
					if front.FindFixedPoints(fp, succ1, succ2, level[1:]) {
						more = true
					}
				}
			}

			for _, bfp := range fp.blocks {
				pred1 := unmatchedPredecessors(fp.primary, bfp.primary)
				pred2 := unmatchedPredecessors(fp.secondary, bfp.secondary)
				if len(pred1) > 0 && len(pred2) > 0 {
					if front.FindFixedPoints(fp, pred1, pred2, level[1:]) {
						more = true
					}
				}
			}
		}
	}
}

func unmatchedSuccessors(fg *graph.FlowGraph, b *graph.BasicBlock) []*graph.BasicBlock {
	i := fg.BlockIndex(b)
	if i < 0 {
		return nil
	}

	var succ []*graph.BasicBlock
	seen := make(map[int]bool)
	for _, e := range fg.OutEdges(i) {
		t := fg.Edge(e).Target
		if seen[t] {
			continue
		}
		seen[t] = true
		if block := fg.BasicBlock(t); !block.Matched() {
			succ = append(succ, block)
		}
	}
	return succ
}

func unmatchedPredecessors(fg *graph.FlowGraph, b *graph.BasicBlock) []*graph.BasicBlock {
	i := fg.BlockIndex(b)
	if i < 0 {
		return nil
	}

	var pred []*graph.BasicBlock
	seen := make(map[int]bool)
	for _, e := range fg.InEdges(i) {
		s := fg.Edge(e).Source
		if seen[s] {
			continue
		}
		seen[s] = true
		if block := fg.BasicBlock(s); !block.Matched() {
			pred = append(pred, block)
		}
	}
	return pred
}
