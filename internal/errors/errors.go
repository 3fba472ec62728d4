// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errors

import (
	"fmt"
	"io"
)

type exportError struct {
	text  string
	cause error
}

func Export(text string) error {
	return &exportError{text, nil}
}

func Exportf(format string, args ...interface{}) error {
	return &exportError{fmt.Sprintf(format, args...), nil}
}

func WrapExport(cause error, text string) error {
	return &exportError{text, cause}
}

func (e *exportError) Error() string       { return e.text }
func (e *exportError) PublicError() string { return e.text }
func (e *exportError) ExportError() bool   { return true }
func (e *exportError) Unwrap() error       { return e.cause }

var ErrUnexpectedEOF unexpectedEOF

type unexpectedEOF struct{}

func (unexpectedEOF) Error() string       { return io.ErrUnexpectedEOF.Error() }
func (unexpectedEOF) PublicError() string { return io.ErrUnexpectedEOF.Error() }
func (unexpectedEOF) ExportError() bool   { return true }
func (unexpectedEOF) Unwrap() error       { return io.ErrUnexpectedEOF }
