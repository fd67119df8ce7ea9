// Copyright 2024 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package xerrors defines the closed set of error kinds shared by every
// netmsg package, following the sentinel+typed-exception shape of
// protocol/thrift's ApplicationException/ProtocolException.
package xerrors

import "fmt"

// Kind identifies one of the user-visible error categories from the
// netmsg error handling design.
type Kind int32

const (
	UnknownKind Kind = iota
	Truncated
	OversizedFrame
	CorruptFrame
	IdMismatch
	UnknownMessage
	DuplicateMessage
	RegistryFrozen
	InvalidVariantTag
	AlreadyRegistered
	NotFound
	Capacity
	InvalidOperationList
	EmptyCallback
	Closed
	SystemIO
)

var kindNames = map[Kind]string{
	UnknownKind:           "unknown",
	Truncated:             "truncated",
	OversizedFrame:        "oversized frame",
	CorruptFrame:          "corrupt frame",
	IdMismatch:            "id mismatch",
	UnknownMessage:        "unknown message",
	DuplicateMessage:      "duplicate message",
	RegistryFrozen:        "registry frozen",
	InvalidVariantTag:     "invalid variant tag",
	AlreadyRegistered:     "already registered",
	NotFound:              "not found",
	Capacity:              "capacity",
	InvalidOperationList:  "invalid operation list",
	EmptyCallback:         "empty callback",
	Closed:                "closed",
	SystemIO:              "system io",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("xerrors.Kind(%d)", int32(k))
}

// Error is the concrete error type carried across package boundaries.
// It mirrors protocol/thrift.ApplicationException: a kind code plus a
// free-form message, with Unwrap/Is support for wrapped causes.
type Error struct {
	kind Kind
	msg  string
	err  error
}

// New creates an *Error of the given kind with a formatted message.
func New(k Kind, format string, args ...interface{}) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error of the given kind that wraps a lower-level cause,
// used for SystemIO to carry the underlying OS error.
func Wrap(k Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(format, args...), err: cause}
}

func (e *Error) Kind() Kind { return e.kind }

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("netmsg: %s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("netmsg: %s: %s", e.kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is an *Error of the same Kind, so callers can
// do errors.Is(err, xerrors.New(xerrors.Truncated, "")) style kind checks
// via the Of helper below instead, which is the intended API.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.kind == e.kind
}

// Of reports whether err (or something it wraps) is an *Error of kind k.
func Of(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.kind == k {
				return true
			}
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
