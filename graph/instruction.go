// Copyright (c) 2019 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

// InstructionData is the interned, program-independent part of an
// instruction.  Two instructions are considered equal iff they share the same
// InstructionData pointer.
type InstructionData struct {
	Mnemonic string
	Operands uint64 // Operand fingerprint.
}

// Instruction is a single disassembled instruction.  CallTarget is the entry
// point of the called function, or zero if the instruction is not a call.
// Call targets are program-specific addresses and therefore not part of the
// interned data.
type Instruction struct {
	Address    Address
	CallTarget Address
	Data       *InstructionData
}

// IsCall reports whether the instruction calls another function.
func (i Instruction) IsCall() bool {
	return i.CallTarget != 0
}

type instructionKey struct {
	mnemonic string
	operands uint64
}

// Cache interns instruction data so that identical instructions from both
// programs compare by identity.  It is populated during graph construction
// and read-only during matching.
type Cache struct {
	m map[instructionKey]*InstructionData
}

func NewCache() *Cache {
	return &Cache{m: make(map[instructionKey]*InstructionData)}
}

// Intern returns the canonical InstructionData for the given mnemonic and
// operand fingerprint.
func (c *Cache) Intern(mnemonic string, operands uint64) *InstructionData {
	key := instructionKey{mnemonic, operands}
	if data, found := c.m[key]; found {
		return data
	}
	data := &InstructionData{Mnemonic: mnemonic, Operands: operands}
	c.m[key] = data
	return data
}

// Len returns the number of distinct interned instructions.
func (c *Cache) Len() int {
	return len(c.m)
}

// Clear drops all interned instructions.  Instructions referring to the
// dropped data remain usable; they just no longer compare equal to
// instructions interned afterwards.
func (c *Cache) Clear() {
	c.m = make(map[instructionKey]*InstructionData)
}
