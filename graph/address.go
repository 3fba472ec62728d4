// Copyright (c) 2019 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"fmt"
)

// Address identifies a code location.  It is unique within one program, but
// not across the two programs being compared.
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("%08x", uint64(a))
}
