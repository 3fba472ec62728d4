// Copyright (c) 2019 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package graph models a disassembled program: a call graph of functions and
// one control-flow graph per function, with interned instructions.
package graph
