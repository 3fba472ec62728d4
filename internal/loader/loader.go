// Copyright (c) 2015 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loader

import (
	"encoding/binary"
	"io"
)

// L provides panicking reading and integer decoding methods.  The export
// header is little-endian with fixed-width fields.
type L struct {
	R io.Reader
}

func (load L) Into(buf []byte) {
	if _, err := io.ReadFull(load.R, buf); err != nil {
		panic(err)
	}
}

func (load L) Bytes(n uint32) (data []byte) {
	data = make([]byte, n)
	load.Into(data)
	return
}

func (load L) Uint32() uint32 {
	var buf [4]byte
	load.Into(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

func (load L) Uint64() uint64 {
	var buf [8]byte
	load.Into(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}
