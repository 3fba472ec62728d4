// Copyright (c) 2019 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"sort"
)

// EdgeKind classifies an intra-function control-flow edge.
type EdgeKind uint8

const (
	EdgeUnconditional = EdgeKind(iota)
	EdgeTrue
	EdgeFalse
	EdgeSwitch
)

var edgeKindStrings = []string{
	EdgeUnconditional: "unconditional",
	EdgeTrue:          "true",
	EdgeFalse:         "false",
	EdgeSwitch:        "switch",
}

func (kind EdgeKind) String() (s string) {
	if int(kind) < len(edgeKindStrings) {
		s = edgeKindStrings[kind]
	} else {
		s = "<invalid edge kind>"
	}
	return
}

// BasicBlock is a straight-line instruction sequence with a single entry and
// a single exit.
type BasicBlock struct {
	EntryPoint   Address
	Instructions []Instruction

	matched bool
}

func (b *BasicBlock) InstructionCount() int {
	return len(b.Instructions)
}

// CallInstructions returns the block's call instructions in address order.
func (b *BasicBlock) CallInstructions() (calls []Instruction) {
	for _, ins := range b.Instructions {
		if ins.IsCall() {
			calls = append(calls, ins)
		}
	}
	return
}

// Matched reports whether the block is part of a basic-block fixed point.
func (b *BasicBlock) Matched() bool      { return b.matched }
func (b *BasicBlock) SetMatched(ok bool) { b.matched = ok }

// FlowEdge connects two basic blocks of the same flow graph.  Source and
// Target are block indexes.
type FlowEdge struct {
	Source int
	Target int
	Kind   EdgeKind
}

// FlowGraph is the control-flow graph of a single function.  A flow graph
// without basic blocks is a stub: a function which has no body in the export
// (typically an import from a shared library).
//
// Flow graphs are immutable during matching, except for the matched flags.
type FlowGraph struct {
	entry  Address
	cg     *CallGraph
	vertex int

	blocks []*BasicBlock
	edges  []FlowEdge
	out    [][]int
	in     [][]int
	byAddr map[Address]int

	depths  []int
	md      float64
	mdValid bool
	matched bool
}

func NewFlowGraph(entry Address) *FlowGraph {
	return &FlowGraph{
		entry:  entry,
		vertex: -1,
		byAddr: make(map[Address]int),
	}
}

// EntryPoint is the address of the owning function.
func (g *FlowGraph) EntryPoint() Address { return g.entry }

// CallGraph returns the owning program's call graph, or nil if the flow
// graph has not been attached.
func (g *FlowGraph) CallGraph() *CallGraph { return g.cg }

// CallGraphVertex returns the index of the owning call-graph vertex, or -1
// if the flow graph has not been attached.
func (g *FlowGraph) CallGraphVertex() int { return g.vertex }

func (g *FlowGraph) Name() string {
	if g.cg == nil {
		return ""
	}
	return g.cg.Function(g.vertex).Name
}

func (g *FlowGraph) DemangledName() string {
	if g.cg == nil {
		return ""
	}
	return g.cg.Function(g.vertex).DemangledName
}

func (g *FlowGraph) IsLibrary() bool {
	if g.cg == nil {
		return false
	}
	return g.cg.Function(g.vertex).Library
}

func (g *FlowGraph) IsStub() bool {
	return len(g.blocks) == 0
}

// AddBasicBlock appends an empty basic block and returns its index.
func (g *FlowGraph) AddBasicBlock(entry Address) int {
	i := len(g.blocks)
	g.blocks = append(g.blocks, &BasicBlock{EntryPoint: entry})
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	g.byAddr[entry] = i
	g.depths = nil
	g.mdValid = false
	return i
}

// AddInstruction appends an instruction to the given basic block.
func (g *FlowGraph) AddInstruction(block int, ins Instruction) {
	b := g.blocks[block]
	b.Instructions = append(b.Instructions, ins)
}

// AddEdge connects two basic blocks.
func (g *FlowGraph) AddEdge(source, target int, kind EdgeKind) {
	i := len(g.edges)
	g.edges = append(g.edges, FlowEdge{source, target, kind})
	g.out[source] = append(g.out[source], i)
	g.in[target] = append(g.in[target], i)
	g.depths = nil
	g.mdValid = false
}

func (g *FlowGraph) NumBasicBlocks() int          { return len(g.blocks) }
func (g *FlowGraph) BasicBlock(i int) *BasicBlock { return g.blocks[i] }
func (g *FlowGraph) NumEdges() int                { return len(g.edges) }
func (g *FlowGraph) Edge(i int) FlowEdge          { return g.edges[i] }
func (g *FlowGraph) OutEdges(block int) []int     { return g.out[block] }
func (g *FlowGraph) InEdges(block int) []int      { return g.in[block] }
func (g *FlowGraph) OutDegree(block int) int      { return len(g.out[block]) }
func (g *FlowGraph) InDegree(block int) int       { return len(g.in[block]) }

// BasicBlockAt returns the index of the block with the given entry address.
func (g *FlowGraph) BasicBlockAt(entry Address) (int, bool) {
	i, found := g.byAddr[entry]
	return i, found
}

// BlockIndex returns the index of the given block, or -1.
func (g *FlowGraph) BlockIndex(b *BasicBlock) int {
	if i, found := g.byAddr[b.EntryPoint]; found && g.blocks[i] == b {
		return i
	}
	return -1
}

// HasEdge reports whether any edge of any kind connects the two blocks.
func (g *FlowGraph) HasEdge(source, target int) bool {
	for _, i := range g.out[source] {
		if g.edges[i].Target == target {
			return true
		}
	}
	return false
}

// InstructionCount is the total over all basic blocks.
func (g *FlowGraph) InstructionCount() (n int) {
	for _, b := range g.blocks {
		n += len(b.Instructions)
	}
	return
}

// Matched reports whether the function is part of a fixed point.
func (g *FlowGraph) Matched() bool      { return g.matched }
func (g *FlowGraph) SetMatched(ok bool) { g.matched = ok }

// BlockDepth returns the breadth-first distance of a block from the entry
// block, or the block count for unreachable blocks.
func (g *FlowGraph) BlockDepth(block int) int {
	if g.depths == nil {
		g.computeDepths()
	}
	return g.depths[block]
}

func (g *FlowGraph) computeDepths() {
	g.depths = make([]int, len(g.blocks))
	for i := range g.depths {
		g.depths[i] = len(g.blocks)
	}

	start, found := g.byAddr[g.entry]
	if !found {
		if len(g.blocks) == 0 {
			return
		}
		start = 0
	}

	g.depths[start] = 0
	queue := []int{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, e := range g.out[v] {
			t := g.edges[e].Target
			if g.depths[t] > g.depths[v]+1 {
				g.depths[t] = g.depths[v] + 1
				queue = append(queue, t)
			}
		}
	}
}

// MDIndex is the structural fingerprint of the flow graph.  It is computed
// on first use and cached; graphs must not be modified afterwards.
func (g *FlowGraph) MDIndex() float64 {
	if !g.mdValid {
		g.md = mdIndex(len(g.edges), func(i int) (int, int) {
			e := g.edges[i]
			return e.Source, e.Target
		}, g.InDegree, g.OutDegree)
		g.mdValid = true
	}
	return g.md
}

// FlowGraphs is a set of flow graphs belonging to one program.
type FlowGraphs []*FlowGraph

// Sort orders the set by function entry point.
func (fgs FlowGraphs) Sort() {
	sort.Slice(fgs, func(i, j int) bool {
		return fgs[i].entry < fgs[j].entry
	})
}

// ByEntryPoint returns the flow graph of the function at the given address.
func (fgs FlowGraphs) ByEntryPoint(entry Address) *FlowGraph {
	for _, fg := range fgs {
		if fg.entry == entry {
			return fg
		}
	}
	return nil
}
