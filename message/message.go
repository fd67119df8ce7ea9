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

// Package message implements the global message-type registry (spec
// component C3): name-to-id assignment, id-to-factory lookup, and
// construction of fresh message values via a caller-supplied allocator.
package message

import "github.com/axilmar/netmsg/bytebuf"

// Message is a named composite that knows how to encode/decode its own
// body. It does not encode/decode its own id: the registry and the
// messaging layer own the id framing (spec 4.2: "message (top-level):
// message id ... then composite body").
type Message interface {
	// MessageName returns the stable string identifier the type was
	// registered under.
	MessageName() string

	// Encode writes the message body (not the id) to b.
	Encode(b *bytebuf.Buffer)

	// Decode reads the message body (not the id) from b, advancing its
	// cursor.
	Decode(b *bytebuf.Buffer) error
}

// Factory allocates a fresh message value of a known type and decodes
// it from b, using the caller-supplied allocator for any backing
// storage the message needs. It must not read the leading id: by the
// time Factory runs, the id has already been consumed by the registry.
type Factory func(a Allocator, b *bytebuf.Buffer) (Message, error)
