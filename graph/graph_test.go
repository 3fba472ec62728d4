// Copyright (c) 2019 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"testing"
)

func TestCacheIdentity(t *testing.T) {
	cache := NewCache()

	a := cache.Intern("mov", 1)
	b := cache.Intern("mov", 1)
	if a != b {
		t.Error("identical instructions interned to distinct data")
	}

	c := cache.Intern("mov", 2)
	if a == c {
		t.Error("distinct operands interned to same data")
	}
	d := cache.Intern("ret", 1)
	if a == d {
		t.Error("distinct mnemonics interned to same data")
	}

	if n := cache.Len(); n != 3 {
		t.Errorf("cache length: %d", n)
	}

	cache.Clear()
	if n := cache.Len(); n != 0 {
		t.Errorf("cache length after clear: %d", n)
	}
	if cache.Intern("mov", 1) == a {
		t.Error("interning after clear returned stale data")
	}
}

// buildFlowGraph returns a two-block graph: entry with two instructions
// falling through to a return block.
func buildFlowGraph(cache *Cache, entry Address) *FlowGraph {
	fg := NewFlowGraph(entry)
	b0 := fg.AddBasicBlock(entry)
	fg.AddInstruction(b0, Instruction{Address: entry, Data: cache.Intern("push", 1)})
	fg.AddInstruction(b0, Instruction{Address: entry + 1, Data: cache.Intern("mov", 2)})
	b1 := fg.AddBasicBlock(entry + 2)
	fg.AddInstruction(b1, Instruction{Address: entry + 2, Data: cache.Intern("ret", 0)})
	fg.AddEdge(b0, b1, EdgeUnconditional)
	return fg
}

func TestFlowGraphQueries(t *testing.T) {
	cache := NewCache()
	fg := buildFlowGraph(cache, 0x1000)

	if n := fg.NumBasicBlocks(); n != 2 {
		t.Fatalf("basic blocks: %d", n)
	}
	if n := fg.NumEdges(); n != 1 {
		t.Fatalf("edges: %d", n)
	}
	if n := fg.InstructionCount(); n != 3 {
		t.Errorf("instructions: %d", n)
	}
	if fg.IsStub() {
		t.Error("graph with blocks considered a stub")
	}

	if i, found := fg.BasicBlockAt(0x1002); !found || i != 1 {
		t.Errorf("block at 0x1002: %d %v", i, found)
	}
	if !fg.HasEdge(0, 1) {
		t.Error("missing edge 0 -> 1")
	}
	if fg.HasEdge(1, 0) {
		t.Error("unexpected edge 1 -> 0")
	}

	if d := fg.BlockDepth(0); d != 0 {
		t.Errorf("entry depth: %d", d)
	}
	if d := fg.BlockDepth(1); d != 1 {
		t.Errorf("exit depth: %d", d)
	}
}

func TestMDIndexDeterminism(t *testing.T) {
	cache := NewCache()

	a := buildFlowGraph(cache, 0x1000)
	b := buildFlowGraph(cache, 0x2000)
	if a.MDIndex() != b.MDIndex() {
		t.Errorf("same structure, different MD index: %v %v", a.MDIndex(), b.MDIndex())
	}

	// Diamond: structurally different from the straight line.
	c := NewFlowGraph(0x3000)
	for i := 0; i < 4; i++ {
		c.AddBasicBlock(Address(0x3000 + i))
	}
	c.AddEdge(0, 1, EdgeTrue)
	c.AddEdge(0, 2, EdgeFalse)
	c.AddEdge(1, 3, EdgeUnconditional)
	c.AddEdge(2, 3, EdgeUnconditional)
	if c.MDIndex() == a.MDIndex() {
		t.Error("different structure, same MD index")
	}

	stub := NewFlowGraph(0x4000)
	if stub.MDIndex() != 0 {
		t.Errorf("stub MD index: %v", stub.MDIndex())
	}
}

func TestMDIndexDistance(t *testing.T) {
	if d := MDIndexDistance(2.5, 2.5); d != 0 {
		t.Errorf("distance of equal indexes: %v", d)
	}
	if d := MDIndexDistance(0, 10); d <= 0 || d >= 1 {
		t.Errorf("distance out of range: %v", d)
	}
}

func TestUnmatchedNeighbors(t *testing.T) {
	cache := NewCache()
	cg := NewCallGraph()

	main := cg.AddFunction(&Function{EntryPoint: 0x1000, Name: "main"})
	callee := cg.AddFunction(&Function{EntryPoint: 0x2000, Name: "f"})
	imported := cg.AddFunction(&Function{EntryPoint: 0x3000, Name: "memcpy"})

	cg.AddCall(main, callee)
	cg.AddCall(main, callee) // Duplicate.
	cg.AddCall(main, imported)
	cg.AddCall(callee, imported)

	if !cg.Edge(1).Duplicate {
		t.Error("repeated edge not flagged as duplicate")
	}

	mainFG := buildFlowGraph(cache, 0x1000)
	calleeFG := buildFlowGraph(cache, 0x2000)
	if !cg.Attach(mainFG) || !cg.Attach(calleeFG) {
		t.Fatal("attach failed")
	}

	// The imported function has no flow graph yet: it is invisible to
	// neighborhood queries.
	children := cg.UnmatchedChildren(main)
	if len(children) != 1 || children[0] != calleeFG {
		t.Fatalf("children: %v", children)
	}

	var fgs FlowGraphs
	fgs = append(fgs, mainFG, calleeFG)
	AddStubs(cg, &fgs)

	if len(fgs) != 3 {
		t.Fatalf("flow graphs after stub synthesis: %d", len(fgs))
	}
	f := cg.Function(imported)
	if !f.Stub || !f.Library {
		t.Error("stub vertex not flagged")
	}
	stub := cg.FlowGraph(imported)
	if stub == nil || !stub.IsStub() {
		t.Fatal("no stub flow graph")
	}

	children = cg.UnmatchedChildren(main)
	if len(children) != 2 {
		t.Fatalf("children after stub synthesis: %d", len(children))
	}

	calleeFG.SetMatched(true)
	children = cg.UnmatchedChildren(main)
	if len(children) != 1 || children[0] != stub {
		t.Fatalf("children after matching: %v", children)
	}

	parents := cg.UnmatchedParents(imported)
	if len(parents) != 1 || parents[0] != mainFG {
		t.Fatalf("parents: %v", parents)
	}
}
