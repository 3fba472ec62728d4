// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package match

import (
	"github.com/tsavola/bindelta/graph"
)

// FindCallReferenceFixedPoints derives new function matches from matched
// call instructions: if a matched block pair contains the same number of
// calls on each side, the i-th call targets are paired up.  Newly created
// fixed points get their basic blocks matched immediately.
func FindCallReferenceFixedPoints(fp *FixedPoint, ctx *Context, blockSteps []BlockStep) bool {
	found := false

	for _, bfp := range fp.blocks {
		calls1 := bfp.primary.CallInstructions()
		calls2 := bfp.secondary.CallInstructions()
		if len(calls1) == 0 || len(calls1) != len(calls2) {
			continue
		}

		for i := range calls1 {
			target1 := targetFlowGraph(ctx.PrimaryCallGraph, calls1[i].CallTarget)
			target2 := targetFlowGraph(ctx.SecondaryCallGraph, calls2[i].CallTarget)
			if target1 == nil || target2 == nil || target1.Matched() || target2.Matched() {
				continue
			}

			if callee, ok := ctx.AddFixedPoint(CallReferenceName, target1, target2); ok {
				DiffBasicBlocks(callee, blockSteps)
				found = true
			}
		}
	}

	return found
}

func targetFlowGraph(cg *graph.CallGraph, target graph.Address) *graph.FlowGraph {
	if cg == nil || target == 0 {
		return nil
	}
	vertex, ok := cg.FunctionAt(target)
	if !ok {
		return nil
	}
	return cg.FlowGraph(vertex)
}
