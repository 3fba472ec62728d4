// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package match

import (
	"math"

	"github.com/tsavola/bindelta/graph"
)

// FNV-1a, inlined so that fingerprints can be built incrementally from mixed
// strings and integers.
const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

func hashString(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h = (h ^ uint64(s[i])) * fnvPrime
	}
	return h
}

func hashUint64(h, x uint64) uint64 {
	for i := 0; i < 8; i++ {
		h = (h ^ (x & 0xff)) * fnvPrime
		x >>= 8
	}
	return h
}

// mnemonicPrimes maps mnemonics to small primes for the prime signature
// fingerprints.  A signature is the wrapping product of one prime per
// instruction: it is independent of instruction order, so it survives
// instruction scheduling differences between compiler versions.
var mnemonicPrimes = sievePrimes(512)

func sievePrimes(n int) []uint64 {
	var primes []uint64
	composite := make([]bool, 8192)
	for x := 2; len(primes) < n; x++ {
		if composite[x] {
			continue
		}
		primes = append(primes, uint64(x))
		for m := x * x; m < len(composite); m += x {
			composite[m] = true
		}
	}
	return primes
}

func mnemonicPrime(mnemonic string) uint64 {
	return mnemonicPrimes[hashString(fnvOffset, mnemonic)%uint64(len(mnemonicPrimes))]
}

// instructionHash covers the interned data of an instruction sequence in
// order.  Addresses are deliberately excluded: the two programs are loaded
// at unrelated addresses.
func instructionHash(h uint64, instructions []graph.Instruction) uint64 {
	for _, ins := range instructions {
		h = hashString(h, ins.Data.Mnemonic)
		h = hashUint64(h, ins.Data.Operands)
	}
	return h
}

func primeSignature(instructions []graph.Instruction) (sig uint64) {
	sig = 1
	for _, ins := range instructions {
		sig *= mnemonicPrime(ins.Data.Mnemonic)
	}
	return
}

func mdBits(md float64) uint64 {
	return math.Float64bits(md)
}
