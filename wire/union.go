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

package wire

import (
	"github.com/axilmar/netmsg/bytebuf"
)

// Union is a tagged union over a fixed, ordered set of arm types,
// discriminated at runtime by a 0-based Tag. Arms are encoded/decoded
// through caller-supplied per-tag functions, since Go has no variadic
// type-list generics to express "one of T0..Tn" directly.
//
// Wire form (spec 4.2): the index as a LengthWidth-byte (uint32)
// scalar, then the selected arm's
// serialization. Encoding with a Tag outside [0, len(encoders)) is a
// caller bug (PutUnion panics, mirroring the spec's "fails to serialize
// if empty-valueless"); decoding with an out-of-range index on the wire
// is an adversarial/corrupt input and returns InvalidVariantTag.
type Union struct {
	Tag   int
	Value interface{}
}

// ArmEncoder encodes the arm at the matching tag. encoders[i] is called
// only when u.Tag == i.
type ArmEncoder func(b *bytebuf.Buffer, v interface{})

// ArmDecoder decodes the arm at the matching tag and returns its value.
type ArmDecoder func(b *bytebuf.Buffer) (interface{}, error)

// PutUnion writes u's tag and its selected arm's serialization.
func PutUnion(b *bytebuf.Buffer, u Union, encoders []ArmEncoder) {
	if u.Tag < 0 || u.Tag >= len(encoders) {
		panic("wire: PutUnion: tag out of range for registered arms")
	}
	putLen(b, u.Tag)
	encoders[u.Tag](b, u.Value)
}

// GetUnion reads a tag and decodes the matching arm. An out-of-range tag
// fails with InvalidVariantTag, per spec 4.2's "fails to deserialize on
// out-of-range index".
func GetUnion(b *bytebuf.Buffer, decoders []ArmDecoder) (Union, error) {
	tag, err := getLen(b)
	if err != nil {
		return Union{}, err
	}
	if tag < 0 || tag >= len(decoders) {
		return Union{}, invalidVariantTag(tag, len(decoders))
	}
	v, err := decoders[tag](b)
	if err != nil {
		return Union{}, err
	}
	return Union{Tag: tag, Value: v}, nil
}
