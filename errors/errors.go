// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors exports common error types without unnecessary dependencies.
package errors

// ExportError indicates that the error is caused by an unsupported or
// malformed program export.  It may wrap an underlying error.
type ExportError interface {
	error
	ExportError() bool
}

// PublicError is an error whose text is safe to pass on to untrusted
// parties.
type PublicError interface {
	error
	PublicError() string
}
