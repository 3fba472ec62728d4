// Copyright (c) 2019 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"sort"
)

// Function is a call-graph vertex.
type Function struct {
	EntryPoint    Address
	Name          string // Mangled.
	DemangledName string
	Library       bool
	Stub          bool
	Imported      bool

	flow *FlowGraph
}

// BestName prefers the demangled name.
func (f *Function) BestName() string {
	if f.DemangledName != "" {
		return f.DemangledName
	}
	return f.Name
}

// CallEdge is a call relationship between two functions.  Repeated syntactic
// calls between the same pair of functions are collapsed into one primary
// edge plus duplicates.
type CallEdge struct {
	Source    int
	Target    int
	Duplicate bool
}

// CallGraph is the directed multigraph of one program's functions.
type CallGraph struct {
	ExeFilename string
	ExeHash     string

	funcs  []*Function
	edges  []CallEdge
	out    [][]int
	in     [][]int
	byAddr map[Address]int

	md      float64
	mdValid bool
}

func NewCallGraph() *CallGraph {
	return &CallGraph{byAddr: make(map[Address]int)}
}

// AddFunction appends a vertex and returns its index.
func (g *CallGraph) AddFunction(f *Function) int {
	i := len(g.funcs)
	g.funcs = append(g.funcs, f)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	g.byAddr[f.EntryPoint] = i
	g.mdValid = false
	return i
}

// AddCall adds an edge.  It is flagged as duplicate if an edge between the
// same pair of vertices already exists.
func (g *CallGraph) AddCall(source, target int) {
	dup := false
	for _, i := range g.out[source] {
		if g.edges[i].Target == target {
			dup = true
			break
		}
	}

	i := len(g.edges)
	g.edges = append(g.edges, CallEdge{source, target, dup})
	g.out[source] = append(g.out[source], i)
	g.in[target] = append(g.in[target], i)
	g.mdValid = false
}

func (g *CallGraph) NumFunctions() int        { return len(g.funcs) }
func (g *CallGraph) Function(i int) *Function { return g.funcs[i] }
func (g *CallGraph) NumEdges() int            { return len(g.edges) }
func (g *CallGraph) Edge(i int) CallEdge      { return g.edges[i] }

// FunctionAt returns the index of the function with the given entry point.
func (g *CallGraph) FunctionAt(entry Address) (int, bool) {
	i, found := g.byAddr[entry]
	return i, found
}

// Attach binds a flow graph to the vertex with the matching entry point.
func (g *CallGraph) Attach(fg *FlowGraph) bool {
	i, found := g.byAddr[fg.entry]
	if !found {
		return false
	}
	g.funcs[i].flow = fg
	fg.cg = g
	fg.vertex = i
	return true
}

// FlowGraph returns the flow graph of a vertex, or nil.
func (g *CallGraph) FlowGraph(vertex int) *FlowGraph {
	return g.funcs[vertex].flow
}

// UnmatchedChildren returns the flow graphs of the immediate callees of a
// vertex, skipping duplicate edges and functions which have no flow graph or
// are already part of a fixed point.
func (g *CallGraph) UnmatchedChildren(vertex int) FlowGraphs {
	var children FlowGraphs
	for _, i := range g.out[vertex] {
		e := g.edges[i]
		if e.Duplicate {
			continue
		}
		child := g.funcs[e.Target].flow
		if child == nil || child.Matched() {
			continue
		}
		children = append(children, child)
	}
	children.Sort()
	return children
}

// UnmatchedParents is the in-edge counterpart of UnmatchedChildren.
func (g *CallGraph) UnmatchedParents(vertex int) FlowGraphs {
	var parents FlowGraphs
	for _, i := range g.in[vertex] {
		e := g.edges[i]
		if e.Duplicate {
			continue
		}
		parent := g.funcs[e.Source].flow
		if parent == nil || parent.Matched() {
			continue
		}
		parents = append(parents, parent)
	}
	parents.Sort()
	return parents
}

// Neighbors returns the flow graphs adjacent to a vertex via non-duplicate
// edges in either direction, matched or not, sorted by entry point.
func (g *CallGraph) Neighbors(vertex int) FlowGraphs {
	var neighbors FlowGraphs
	for _, i := range g.out[vertex] {
		if e := g.edges[i]; !e.Duplicate {
			if fg := g.funcs[e.Target].flow; fg != nil {
				neighbors = append(neighbors, fg)
			}
		}
	}
	for _, i := range g.in[vertex] {
		if e := g.edges[i]; !e.Duplicate {
			if fg := g.funcs[e.Source].flow; fg != nil {
				neighbors = append(neighbors, fg)
			}
		}
	}
	neighbors.Sort()
	return neighbors
}

// MDIndex is the structural fingerprint of the call graph.  It is computed
// on first use and cached; the graph must not be modified afterwards.
func (g *CallGraph) MDIndex() float64 {
	if !g.mdValid {
		g.md = mdIndex(len(g.edges), func(i int) (int, int) {
			e := g.edges[i]
			return e.Source, e.Target
		}, func(v int) int { return len(g.in[v]) }, func(v int) int { return len(g.out[v]) })
		g.mdValid = true
	}
	return g.md
}

// SortedFunctions returns the vertex indexes ordered by entry point.
func (g *CallGraph) SortedFunctions() []int {
	indexes := make([]int, len(g.funcs))
	for i := range indexes {
		indexes[i] = i
	}
	sort.Slice(indexes, func(i, j int) bool {
		return g.funcs[indexes[i]].EntryPoint < g.funcs[indexes[j]].EntryPoint
	})
	return indexes
}

// AddStubs synthesizes an empty flow graph for every vertex which has none,
// so that imported functions still participate in call-graph matching.  The
// affected vertices are flagged as library stubs.  The new flow graphs are
// appended to fgs.
func AddStubs(g *CallGraph, fgs *FlowGraphs) {
	for i, f := range g.funcs {
		if f.flow != nil {
			continue
		}

		fg := NewFlowGraph(f.EntryPoint)
		fg.cg = g
		fg.vertex = i
		f.flow = fg
		f.Stub = true
		f.Library = true
		*fgs = append(*fgs, fg)
	}
	fgs.Sort()
}
