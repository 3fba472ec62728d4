// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binexport

import (
	"encoding/binary"
	"io"
	"testing"

	"golang.org/x/xerrors"
	"google.golang.org/protobuf/encoding/protowire"

	berrors "github.com/tsavola/bindelta/errors"
	"github.com/tsavola/bindelta/graph"
)

func cat(parts ...[]byte) (b []byte) {
	for _, part := range parts {
		b = append(b, part...)
	}
	return
}

func embedded(num protowire.Number, payload []byte) []byte {
	b := protowire.AppendTag(nil, num, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}

func varint(num protowire.Number, v uint64) []byte {
	b := protowire.AppendTag(nil, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func fixed64(num protowire.Number, v uint64) []byte {
	b := protowire.AppendTag(nil, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, v)
}

func str(num protowire.Number, s string) []byte {
	b := protowire.AppendTag(nil, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// testExport is a two-function program: main at 0x1000 with one block of two
// instructions (the second calls memcpy), and an imported memcpy at 0x2000
// without a body.
func testExport() []byte {
	meta := cat(str(1, "a.out"), str(2, "0123456789abcdef"))

	callGraph := cat(
		embedded(1, cat(varint(1, 0x1000), str(2, "_main"), str(3, "main"))),
		embedded(1, cat(varint(1, 0x2000), str(2, "memcpy"), varint(4, 1), varint(5, 1))),
		embedded(2, cat(varint(1, 0), varint(2, 1))),
	)

	block := cat(
		varint(1, 0x1000),
		embedded(2, cat(varint(1, 0x1000), str(2, "push"), fixed64(3, 7))),
		embedded(2, cat(varint(1, 0x1001), str(2, "call"), varint(4, 0x2000))),
	)
	flowGraph := cat(varint(1, 0x1000), embedded(2, block))

	return cat(
		embedded(fieldMeta, meta),
		embedded(fieldCallGraph, callGraph),
		embedded(fieldFlowGraph, flowGraph),
	)
}

func checkTestProgram(t *testing.T, cg *graph.CallGraph, fgs graph.FlowGraphs) {
	t.Helper()

	if cg.ExeFilename != "a.out" || cg.ExeHash != "0123456789abcdef" {
		t.Errorf("meta: %q %q", cg.ExeFilename, cg.ExeHash)
	}
	if n := cg.NumFunctions(); n != 2 {
		t.Fatalf("functions: %d", n)
	}
	if n := cg.NumEdges(); n != 1 {
		t.Fatalf("call edges: %d", n)
	}

	main := cg.Function(0)
	if main.Name != "_main" || main.DemangledName != "main" || main.Library || main.Stub {
		t.Errorf("main: %+v", main)
	}

	imported := cg.Function(1)
	if !imported.Imported || !imported.Library || !imported.Stub {
		t.Errorf("import not synthesized as library stub: %+v", imported)
	}

	if n := len(fgs); n != 2 {
		t.Fatalf("flow graphs: %d", n)
	}

	fg := fgs.ByEntryPoint(0x1000)
	if fg == nil || fg.IsStub() {
		t.Fatal("main flow graph missing")
	}
	if n := fg.NumBasicBlocks(); n != 1 {
		t.Fatalf("basic blocks: %d", n)
	}

	b := fg.BasicBlock(0)
	if n := len(b.Instructions); n != 2 {
		t.Fatalf("instructions: %d", n)
	}
	if ins := b.Instructions[0]; ins.Data.Mnemonic != "push" || ins.Data.Operands != 7 || ins.IsCall() {
		t.Errorf("instruction 0: %+v", ins)
	}
	if ins := b.Instructions[1]; ins.Data.Mnemonic != "call" || ins.CallTarget != 0x2000 {
		t.Errorf("instruction 1: %+v", ins)
	}

	stub := fgs.ByEntryPoint(0x2000)
	if stub == nil || !stub.IsStub() {
		t.Fatal("no stub flow graph for import")
	}
}

func TestReadFormat2(t *testing.T) {
	cache := graph.NewCache()
	cg, fgs, err := ReadBytes(testExport(), cache)
	if err != nil {
		t.Fatal(err)
	}
	checkTestProgram(t, cg, fgs)
}

func TestInterningAcrossReads(t *testing.T) {
	cache := graph.NewCache()

	_, fgs1, err := ReadBytes(testExport(), cache)
	if err != nil {
		t.Fatal(err)
	}
	_, fgs2, err := ReadBytes(testExport(), cache)
	if err != nil {
		t.Fatal(err)
	}

	a := fgs1.ByEntryPoint(0x1000).BasicBlock(0).Instructions[0]
	b := fgs2.ByEntryPoint(0x1000).BasicBlock(0).Instructions[0]
	if a.Data != b.Data {
		t.Error("identical instructions from two reads have distinct data")
	}
}

func TestReadFormat1(t *testing.T) {
	meta := cat(str(1, "a.out"), str(2, "0123456789abcdef"))
	callGraph := cat(
		embedded(1, cat(varint(1, 0x1000), str(2, "_main"), str(3, "main"))),
		embedded(1, cat(varint(1, 0x2000), str(2, "memcpy"), varint(4, 1), varint(5, 1))),
		embedded(2, cat(varint(1, 0), varint(2, 1))),
	)
	block := cat(
		varint(1, 0x1000),
		embedded(2, cat(varint(1, 0x1000), str(2, "push"), fixed64(3, 7))),
		embedded(2, cat(varint(1, 0x1001), str(2, "call"), varint(4, 0x2000))),
	)
	flowGraph := cat(varint(1, 0x1000), embedded(2, block))

	headerSize := uint32(16 + 2*4)
	metaOffset := headerSize
	callGraphOffset := metaOffset + uint32(len(meta))
	flowGraphOffset := callGraphOffset + uint32(len(callGraph))
	end := flowGraphOffset + uint32(len(flowGraph))

	var header []byte
	for _, v := range []uint32{format1Magic, metaOffset, callGraphOffset, 1, flowGraphOffset, end} {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], v)
		header = append(header, buf[:]...)
	}

	data := cat(header, meta, callGraph, flowGraph)

	cache := graph.NewCache()
	cg, fgs, err := ReadBytes(data, cache)
	if err != nil {
		t.Fatal(err)
	}
	checkTestProgram(t, cg, fgs)
}

func TestReadEmptyFlowGraphSkipped(t *testing.T) {
	callGraph := embedded(1, cat(varint(1, 0x1000), str(2, "f")))
	emptyFlowGraph := varint(1, 0x1000) // Address but no basic blocks.
	data := cat(
		embedded(fieldCallGraph, callGraph),
		embedded(fieldFlowGraph, emptyFlowGraph),
	)

	cg, fgs, err := ReadBytes(data, graph.NewCache())
	if err != nil {
		t.Fatal(err)
	}

	if n := len(fgs); n != 1 {
		t.Fatalf("flow graphs: %d", n)
	}
	if !fgs[0].IsStub() {
		t.Error("empty flow graph not replaced by a stub")
	}
	if f := cg.Function(0); !f.Stub {
		t.Error("vertex not flagged as stub")
	}
}

func isExportError(err error) bool {
	var e berrors.ExportError
	return xerrors.As(err, &e)
}

func TestReadErrors(t *testing.T) {
	if _, _, err := ReadBytes(nil, graph.NewCache()); !xerrors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("empty input: %v", err)
	}

	if _, _, err := ReadBytes([]byte{0xff, 0xff, 0xff}, graph.NewCache()); err == nil {
		t.Error("garbage input accepted")
	} else if !isExportError(err) {
		t.Errorf("garbage input: %v", err)
	}

	export := testExport()
	if _, _, err := ReadBytes(export[:len(export)-3], graph.NewCache()); err == nil {
		t.Error("truncated input accepted")
	} else if !isExportError(err) {
		t.Errorf("truncated input: %v", err)
	}

	// A call-graph edge referring to a nonexistent vertex.
	bad := cat(
		embedded(fieldCallGraph, cat(
			embedded(1, varint(1, 0x1000)),
			embedded(2, cat(varint(1, 0), varint(2, 5))),
		)),
	)
	if _, _, err := ReadBytes(bad, graph.NewCache()); err == nil {
		t.Error("out-of-range edge accepted")
	} else if !isExportError(err) {
		t.Errorf("out-of-range edge: %v", err)
	}

	// Legacy header pointing past the end of the file.
	var truncated []byte
	for _, v := range []uint32{format1Magic, 24, 1000, 0} {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], v)
		truncated = append(truncated, buf[:]...)
	}
	if _, _, err := ReadBytes(truncated, graph.NewCache()); err == nil {
		t.Error("truncated legacy input accepted")
	} else if !isExportError(err) {
		t.Errorf("truncated legacy input: %v", err)
	}
}
