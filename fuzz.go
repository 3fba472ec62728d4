// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// +build gofuzz

package bindelta

import (
	"github.com/tsavola/bindelta/binexport"
	"github.com/tsavola/bindelta/graph"
)

func Fuzz(data []byte) int {
	cache := graph.NewCache()
	defer cache.Clear()

	primaryCG, primaryFGs, err := binexport.ReadBytes(data, cache)
	if err != nil {
		return 0
	}

	// Parse a second copy so that the self-diff works on distinct graphs.
	secondaryCG, secondaryFGs, err := binexport.ReadBytes(data, cache)
	if err != nil {
		panic(err)
	}

	session := NewSession(primaryCG, secondaryCG, primaryFGs, secondaryFGs, cache)
	defer session.Close()
	session.Diff()
	return 1
}
