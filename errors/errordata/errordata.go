// Copyright (c) 2022 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errordata helps with error serialization.
package errordata

import (
	"errors"
	"io"

	berrors "github.com/tsavola/bindelta/errors"
)

// Internal details of an error.
type Internal struct {
	Error  string  `json:"error,omitempty"` // Omitted if same as public error.
	Public *Public `json:"public,omitempty"`
}

// Deconstruct an error on best-effort basis.
func Deconstruct(err error) *Internal {
	if pub := deconstructExport(err); pub != nil {
		return newInternalWithPublic(err, pub)
	}
	if pub := deconstructPublic(err); pub != nil { // Must be last.
		return newInternalWithPublic(err, pub)
	}

	return &Internal{
		Error: err.Error(),
	}
}

func newInternalWithPublic(err error, pub *Public) *Internal {
	x := &Internal{
		Public: pub,
	}
	if s := err.Error(); s != pub.Error {
		x.Error = s
	}
	return x
}

// GetPublic representation which is well-formed even if there are no public
// details.
func (x *Internal) GetPublic() *Public {
	if x.Public != nil {
		return x.Public
	}

	return &Public{
		Error: "internal error",
	}
}

// Reconstruct an error.
func (x *Internal) Reconstruct() error {
	if x.Public == nil {
		return errors.New(x.Error)
	}

	s := x.Public.Error
	if x.Error != "" {
		s = x.Error
	}
	return reconstructError(s, x.Public)
}

// Public details of an error.
type Public struct {
	Error  string  `json:"error"`
	Export *Export `json:"export,omitempty"`
}

func deconstructPublic(err error) *Public {
	var e berrors.PublicError
	if !errors.As(err, &e) {
		return nil
	}

	return &Public{
		Error: e.PublicError(),
	}
}

// Reconstruct an error without internal details.
func (x *Public) Reconstruct() error {
	return reconstructError(x.Error, x)
}

// Export error details.
type Export struct {
	UnexpectedEOF bool `json:"unexpected_eof,omitempty"`
}

func deconstructExport(err error) *Public {
	var e berrors.ExportError
	if !errors.As(err, &e) {
		return nil
	}

	return &Public{
		Error: publicString(err),
		Export: &Export{
			UnexpectedEOF: errors.Is(err, io.ErrUnexpectedEOF),
		},
	}
}

func publicString(err error) string {
	var e berrors.PublicError
	if errors.As(err, &e) {
		return e.PublicError()
	}
	return err.Error()
}

func reconstructError(s string, x *Public) error {
	if x.Export != nil {
		return newExportError(s, x)
	}
	return newPublicError(s, x)
}

type publicError struct {
	s       string
	public  string
	wrapped error
}

var _ berrors.PublicError = (*publicError)(nil)

func (e *publicError) Error() string       { return e.s }
func (e *publicError) PublicError() string { return e.public }
func (e *publicError) Unwrap() error       { return e.wrapped }

func newPublicError(s string, x *Public) error {
	return &publicError{
		s:      s,
		public: x.Error,
	}
}

type exportError struct {
	publicError
}

func (*exportError) ExportError() bool { return true }

var _ berrors.ExportError = (*exportError)(nil)

func newExportError(s string, x *Public) error {
	e := &exportError{publicError{
		s:      s,
		public: x.Error,
	}}
	if x.Export.UnexpectedEOF {
		e.wrapped = io.ErrUnexpectedEOF
	}
	return e
}
