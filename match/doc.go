// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package match implements the matching engine: heuristic steps propose
// function and basic-block pairings under a unique-fingerprint rule, and the
// driver propagates matches along graph neighborhoods until nothing new is
// discovered.
//
// The engine is single-threaded.  Step lists are immutable once constructed
// and may be shared across diff sessions; a Context may not.
package match
