// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binexport

import (
	"github.com/apex/log"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tsavola/bindelta/graph"
	"github.com/tsavola/bindelta/internal/errors"
)

// Wire-format field numbers of the current export variant.
//
//	Export:
//	  1  meta        message
//	  2  call_graph  message
//	  3  flow_graph  repeated message
//	Meta:
//	  1  executable_name  string
//	  2  executable_id    string
//	CallGraph:
//	  1  vertex  repeated message  (1 address, 2 mangled_name,
//	                                3 demangled_name, 4 library, 5 imported)
//	  2  edge    repeated message  (1 source_index, 2 target_index,
//	                                3 duplicate)
//	FlowGraph:
//	  1  address      varint
//	  2  basic_block  repeated message  (1 address, 2 instruction...)
//	  3  edge         repeated message  (1 source_index, 2 target_index,
//	                                     3 kind)
//	Instruction:
//	  1  address      varint
//	  2  mnemonic     string
//	  3  operands     fixed64
//	  4  call_target  varint
const (
	fieldMeta      = 1
	fieldCallGraph = 2
	fieldFlowGraph = 3
)

func readFormat2(data []byte, cache *graph.Cache) (*graph.CallGraph, graph.FlowGraphs, error) {
	cg := graph.NewCallGraph()
	var fgs graph.FlowGraphs
	seenCallGraph := false

	err := eachField(data, func(num protowire.Number, payload []byte) error {
		switch num {
		case fieldMeta:
			return parseMeta(payload, cg)

		case fieldCallGraph:
			seenCallGraph = true
			return parseCallGraph(payload, cg)

		case fieldFlowGraph:
			fg, err := parseFlowGraph(payload, cg, cache)
			if err != nil {
				return err
			}
			if fg != nil {
				fgs = append(fgs, fg)
			}
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !seenCallGraph {
		return nil, nil, errors.Export("export has no call graph")
	}

	return cg, fgs, nil
}

// eachField iterates the length-delimited fields of one message, skipping
// fields of other wire types and unknown numbers.
func eachField(data []byte, f func(num protowire.Number, payload []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return truncated(n)
		}
		data = data[n:]

		if typ == protowire.BytesType {
			payload, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return truncated(n)
			}
			data = data[n:]

			if err := f(num, payload); err != nil {
				return err
			}
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return truncated(n)
		}
		data = data[n:]
	}
	return nil
}

// scalars decodes the non-message fields of one submessage into the given
// value slots.  Slots are indexed by field number; fields without a slot are
// skipped, except that length-delimited ones are passed to message if it is
// set.
type scalars struct {
	varint  map[protowire.Number]*uint64
	fixed64 map[protowire.Number]*uint64
	str     map[protowire.Number]*string
	message func(num protowire.Number, payload []byte) error
}

func (s *scalars) parse(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return truncated(n)
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return truncated(n)
			}
			data = data[n:]
			if p := s.varint[num]; p != nil {
				*p = v
			}

		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return truncated(n)
			}
			data = data[n:]
			if p := s.fixed64[num]; p != nil {
				*p = v
			}

		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return truncated(n)
			}
			data = data[n:]
			if p := s.str[num]; p != nil {
				*p = string(v)
			} else if s.message != nil {
				if err := s.message(num, v); err != nil {
					return err
				}
			}

		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return truncated(n)
			}
			data = data[n:]
		}
	}
	return nil
}

func parseMeta(data []byte, cg *graph.CallGraph) error {
	return (&scalars{
		str: map[protowire.Number]*string{
			1: &cg.ExeFilename,
			2: &cg.ExeHash,
		},
	}).parse(data)
}

func parseCallGraph(data []byte, cg *graph.CallGraph) error {
	return eachField(data, func(num protowire.Number, payload []byte) error {
		switch num {
		case 1: // vertex
			var address, library, imported uint64
			f := new(graph.Function)
			err := (&scalars{
				varint: map[protowire.Number]*uint64{
					1: &address,
					4: &library,
					5: &imported,
				},
				str: map[protowire.Number]*string{
					2: &f.Name,
					3: &f.DemangledName,
				},
			}).parse(payload)
			if err != nil {
				return err
			}
			f.EntryPoint = graph.Address(address)
			f.Library = library != 0
			f.Imported = imported != 0
			cg.AddFunction(f)

		case 2: // edge
			var source, target uint64
			err := (&scalars{
				varint: map[protowire.Number]*uint64{
					1: &source,
					2: &target,
				},
			}).parse(payload)
			if err != nil {
				return err
			}
			if source >= uint64(cg.NumFunctions()) || target >= uint64(cg.NumFunctions()) {
				return errors.Exportf("call graph edge %d -> %d is out of range", source, target)
			}
			// The export's own duplicate flags are ignored: AddCall
			// redetects repeated edges.
			cg.AddCall(int(source), int(target))
		}
		return nil
	})
}

// parseFlowGraph returns nil without error for an empty flow graph.
func parseFlowGraph(data []byte, cg *graph.CallGraph, cache *graph.Cache) (*graph.FlowGraph, error) {
	var address uint64
	type wireEdge struct{ source, target, kind uint64 }
	var blocks [][]byte
	var edges []wireEdge

	err := (&scalars{
		varint: map[protowire.Number]*uint64{
			1: &address,
		},
		message: func(num protowire.Number, payload []byte) error {
			switch num {
			case 2: // basic_block
				blocks = append(blocks, payload)

			case 3: // edge
				var e wireEdge
				err := (&scalars{
					varint: map[protowire.Number]*uint64{
						1: &e.source,
						2: &e.target,
						3: &e.kind,
					},
				}).parse(payload)
				if err != nil {
					return err
				}
				edges = append(edges, e)
			}
			return nil
		},
	}).parse(data)
	if err != nil {
		return nil, err
	}

	if len(blocks) == 0 {
		log.Warnf("skipping empty flow graph at %v", graph.Address(address))
		return nil, nil
	}

	fg := graph.NewFlowGraph(graph.Address(address))

	for _, payload := range blocks {
		if err := parseBasicBlock(payload, fg, cache); err != nil {
			return nil, err
		}
	}

	for _, e := range edges {
		if e.source >= uint64(fg.NumBasicBlocks()) || e.target >= uint64(fg.NumBasicBlocks()) {
			return nil, errors.Exportf("flow graph %v: edge %d -> %d is out of range", fg.EntryPoint(), e.source, e.target)
		}
		if e.kind > uint64(graph.EdgeSwitch) {
			return nil, errors.Exportf("flow graph %v: invalid edge kind %d", fg.EntryPoint(), e.kind)
		}
		fg.AddEdge(int(e.source), int(e.target), graph.EdgeKind(e.kind))
	}

	if !cg.Attach(fg) {
		return nil, errors.Exportf("flow graph %v has no call graph vertex", fg.EntryPoint())
	}
	return fg, nil
}

func parseBasicBlock(data []byte, fg *graph.FlowGraph, cache *graph.Cache) error {
	var address uint64
	var instructions [][]byte

	err := (&scalars{
		varint: map[protowire.Number]*uint64{
			1: &address,
		},
		message: func(num protowire.Number, payload []byte) error {
			if num == 2 {
				instructions = append(instructions, payload)
			}
			return nil
		},
	}).parse(data)
	if err != nil {
		return err
	}

	block := fg.AddBasicBlock(graph.Address(address))

	for _, payload := range instructions {
		var insAddress, operands, callTarget uint64
		var mnemonic string
		err := (&scalars{
			varint: map[protowire.Number]*uint64{
				1: &insAddress,
				4: &callTarget,
			},
			fixed64: map[protowire.Number]*uint64{
				3: &operands,
			},
			str: map[protowire.Number]*string{
				2: &mnemonic,
			},
		}).parse(payload)
		if err != nil {
			return err
		}

		fg.AddInstruction(block, graph.Instruction{
			Address:    graph.Address(insAddress),
			CallTarget: graph.Address(callTarget),
			Data:       cache.Intern(mnemonic, operands),
		})
	}
	return nil
}

func truncated(n int) error {
	return errors.WrapExport(protowire.ParseError(n), "truncated export message")
}
