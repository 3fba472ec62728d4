// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package bindelta compares two previously disassembled programs and produces a
structural mapping between their functions, basic blocks and instructions,
together with a similarity score and a confidence value.

A diff session loads two program exports (see the binexport subpackage) into
call graphs and flow graphs (graph subpackage), runs the matching engine
(match subpackage) and aggregates the resulting fixed points into counts, a
per-step histogram and the two scores.

# Errors

ExportError type is accessible via errors subpackage.  Such errors may be
returned by the export parsing functions.  Other types of errors indicate
either a read error or an internal defect.  Unexpected EOF is an ExportError
which wraps io.ErrUnexpectedEOF.

The matching engine itself does not fail: a heuristic finding no match is
the expected outcome, not an error.
*/
package bindelta
