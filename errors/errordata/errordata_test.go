// Copyright (c) 2022 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errordata

import (
	"encoding/json"
	goerrors "errors"
	"io"
	"testing"

	berrors "github.com/tsavola/bindelta/errors"
	"github.com/tsavola/bindelta/internal/errors"
)

func TestExportErrorRoundTrip(t *testing.T) {
	x := Deconstruct(errors.ErrUnexpectedEOF)
	if x.Public == nil || x.Public.Export == nil || !x.Public.Export.UnexpectedEOF {
		t.Fatalf("deconstruction: %+v", x)
	}

	data, err := json.Marshal(x)
	if err != nil {
		t.Fatal(err)
	}
	var y Internal
	if err := json.Unmarshal(data, &y); err != nil {
		t.Fatal(err)
	}

	re := y.Reconstruct()
	var e berrors.ExportError
	if !goerrors.As(re, &e) {
		t.Errorf("reconstruction lost export error: %v", re)
	}
	if !goerrors.Is(re, io.ErrUnexpectedEOF) {
		t.Errorf("reconstruction lost unexpected EOF: %v", re)
	}
	if re.Error() != errors.ErrUnexpectedEOF.Error() {
		t.Errorf("reconstruction changed text: %q", re.Error())
	}
}

func TestInternalError(t *testing.T) {
	x := Deconstruct(goerrors.New("disk on fire"))
	if x.Public != nil {
		t.Errorf("internal error got public details: %+v", x.Public)
	}
	if s := x.GetPublic().Error; s != "internal error" {
		t.Errorf("public representation: %q", s)
	}
	if re := x.Reconstruct(); re.Error() != "disk on fire" {
		t.Errorf("reconstruction changed text: %q", re.Error())
	}
}
