// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package match

import (
	"github.com/tsavola/bindelta/graph"
)

// InstructionMatch pairs up one instruction from each program.  The two
// instructions always share the same interned data.
type InstructionMatch struct {
	Primary   graph.Instruction
	Secondary graph.Instruction
}

// BasicBlockFixedPoint is a confirmed match between two basic blocks, with
// the instruction alignment inside them.
type BasicBlockFixedPoint struct {
	primary   *graph.BasicBlock
	secondary *graph.BasicBlock
	stepName  string
	matches   []InstructionMatch
}

func (p *BasicBlockFixedPoint) Primary() *graph.BasicBlock             { return p.primary }
func (p *BasicBlockFixedPoint) Secondary() *graph.BasicBlock           { return p.secondary }
func (p *BasicBlockFixedPoint) MatchingStep() string                   { return p.stepName }
func (p *BasicBlockFixedPoint) InstructionMatches() []InstructionMatch { return p.matches }

// FixedPoint is a confirmed match between two functions, carrying the
// basic-block matches inside the pair.
type FixedPoint struct {
	primary   *graph.FlowGraph
	secondary *graph.FlowGraph
	stepName  string

	blocks      []*BasicBlockFixedPoint
	byPrimary   map[*graph.BasicBlock]*BasicBlockFixedPoint
	bySecondary map[*graph.BasicBlock]*BasicBlockFixedPoint

	changes ChangeFlags
}

func newFixedPoint(stepName string, primary, secondary *graph.FlowGraph) *FixedPoint {
	return &FixedPoint{
		primary:     primary,
		secondary:   secondary,
		stepName:    stepName,
		byPrimary:   make(map[*graph.BasicBlock]*BasicBlockFixedPoint),
		bySecondary: make(map[*graph.BasicBlock]*BasicBlockFixedPoint),
	}
}

func (p *FixedPoint) Primary() *graph.FlowGraph   { return p.primary }
func (p *FixedPoint) Secondary() *graph.FlowGraph { return p.secondary }
func (p *FixedPoint) MatchingStep() string        { return p.stepName }
func (p *FixedPoint) Changes() ChangeFlags        { return p.changes }

// BasicBlockFixedPoints returns the block matches in creation order.
func (p *FixedPoint) BasicBlockFixedPoints() []*BasicBlockFixedPoint {
	return p.blocks
}

// PrimaryBlockFixedPoint returns the block match containing the given
// primary-side block, or nil.
func (p *FixedPoint) PrimaryBlockFixedPoint(b *graph.BasicBlock) *BasicBlockFixedPoint {
	return p.byPrimary[b]
}

// SecondaryBlockFixedPoint is the secondary-side counterpart.
func (p *FixedPoint) SecondaryBlockFixedPoint(b *graph.BasicBlock) *BasicBlockFixedPoint {
	return p.bySecondary[b]
}

// AddBasicBlockFixedPoint matches two blocks inside the pair and aligns
// their instructions.  It fails if either block is already matched.
func (p *FixedPoint) AddBasicBlockFixedPoint(stepName string, primary, secondary *graph.BasicBlock) (*BasicBlockFixedPoint, bool) {
	if primary.Matched() || secondary.Matched() {
		return nil, false
	}
	if _, found := p.byPrimary[primary]; found {
		return nil, false
	}
	if _, found := p.bySecondary[secondary]; found {
		return nil, false
	}

	bfp := &BasicBlockFixedPoint{
		primary:   primary,
		secondary: secondary,
		stepName:  stepName,
		matches:   alignInstructions(primary.Instructions, secondary.Instructions),
	}
	primary.SetMatched(true)
	secondary.SetMatched(true)
	p.blocks = append(p.blocks, bfp)
	p.byPrimary[primary] = bfp
	p.bySecondary[secondary] = bfp
	return bfp, true
}

// InstructionMatchCount is the total over all block matches.
func (p *FixedPoint) InstructionMatchCount() (n int) {
	for _, bfp := range p.blocks {
		n += len(bfp.matches)
	}
	return
}

// alignInstructions computes the longest common subsequence of the two
// instruction streams, comparing interned data by identity.
func alignInstructions(primary, secondary []graph.Instruction) []InstructionMatch {
	if len(primary) == 0 || len(secondary) == 0 {
		return nil
	}

	// lcs[i][j] is the LCS length of primary[i:] and secondary[j:].
	lcs := make([][]int, len(primary)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(secondary)+1)
	}
	for i := len(primary) - 1; i >= 0; i-- {
		for j := len(secondary) - 1; j >= 0; j-- {
			if primary[i].Data == secondary[j].Data {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var matches []InstructionMatch
	for i, j := 0, 0; i < len(primary) && j < len(secondary); {
		switch {
		case primary[i].Data == secondary[j].Data:
			matches = append(matches, InstructionMatch{primary[i], secondary[j]})
			i++
			j++

		case lcs[i+1][j] >= lcs[i][j+1]:
			i++

		default:
			j++
		}
	}
	return matches
}
