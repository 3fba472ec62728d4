// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package match

// ChangeFlags categorizes what changed between the two functions of a fixed
// point.
type ChangeFlags uint8

const (
	ChangeStructural = ChangeFlags(1 << iota)
	ChangeInstructions
)

func (flags ChangeFlags) String() string {
	switch flags {
	case 0:
		return "identical"
	case ChangeStructural:
		return "structure changed"
	case ChangeInstructions:
		return "instructions changed"
	case ChangeStructural | ChangeInstructions:
		return "structure and instructions changed"
	default:
		return "<invalid change flags>"
	}
}

// ClassifyChanges tags every fixed point.  It runs once, after the driver
// has exhausted the step list.
func ClassifyChanges(ctx *Context) {
	for _, fp := range ctx.fixedPoints {
		fp.changes = classify(fp)
	}
}

func classify(fp *FixedPoint) (flags ChangeFlags) {
	p, s := fp.primary, fp.secondary

	if p.NumBasicBlocks() != s.NumBasicBlocks() ||
		p.NumEdges() != s.NumEdges() ||
		len(fp.blocks) < p.NumBasicBlocks() ||
		len(fp.blocks) < s.NumBasicBlocks() {
		flags |= ChangeStructural
	}

	matches := fp.InstructionMatchCount()
	if p.InstructionCount() != s.InstructionCount() ||
		matches < p.InstructionCount() ||
		matches < s.InstructionCount() {
		flags |= ChangeInstructions
	}

	return
}
