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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axilmar/netmsg/bytebuf"
	"github.com/axilmar/netmsg/internal/xerrors"
)

func TestStringRoundTrip(t *testing.T) {
	b := bytebuf.New()
	PutString(b, "hello")
	s, err := GetString(b)
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestListOfU8(t *testing.T) {
	b := bytebuf.New()
	PutList(b, []uint8{1, 2, 3, 4, 5}, func(b *bytebuf.Buffer, v uint8) { b.PutU8(v) })
	// size prefix (4 bytes) + 5 bytes
	require.Equal(t, LengthWidth+5, b.Len())

	out, err := GetList(b, func(b *bytebuf.Buffer) (uint8, error) { return b.GetU8() })
	require.NoError(t, err)
	require.Equal(t, []uint8{1, 2, 3, 4, 5}, out)
}

func TestBoolArrayPacking(t *testing.T) {
	b := bytebuf.New()
	vals := []bool{true, false, true, true, false, false, false, true, true}
	PutBoolArray(b, vals)
	require.Equal(t, 2, b.Len()) // ceil(9/8) = 2

	out, err := GetBoolArray(b, len(vals))
	require.NoError(t, err)
	require.Equal(t, vals, out)
}

func TestArrayFixedSize(t *testing.T) {
	b := bytebuf.New()
	PutArray(b, []int32{10, 20, 30}, func(b *bytebuf.Buffer, v int32) { b.PutI32(v) })
	require.Equal(t, 12, b.Len())

	out, err := GetArray(b, 3, func(b *bytebuf.Buffer) (int32, error) { return b.GetI32() })
	require.NoError(t, err)
	require.Equal(t, []int32{10, 20, 30}, out)
}

func TestMapRoundTrip(t *testing.T) {
	b := bytebuf.New()
	m := map[string]int32{"a": 1, "b": 2}
	PutMap(b, m, PutString, func(b *bytebuf.Buffer, v int32) { b.PutI32(v) })

	out, err := GetMap(b, GetString, func(b *bytebuf.Buffer) (int32, error) { return b.GetI32() })
	require.NoError(t, err)
	require.Equal(t, m, out)
}

func TestSetRoundTrip(t *testing.T) {
	b := bytebuf.New()
	s := map[int32]struct{}{1: {}, 2: {}, 3: {}}
	PutSet(b, s, func(b *bytebuf.Buffer, v int32) { b.PutI32(v) })

	out, err := GetSet(b, func(b *bytebuf.Buffer) (int32, error) { return b.GetI32() })
	require.NoError(t, err)
	require.Equal(t, s, out)
}

func TestOptionalPresentAndAbsent(t *testing.T) {
	b := bytebuf.New()
	v := int32(42)
	PutOptional(b, &v, func(b *bytebuf.Buffer, v int32) { b.PutI32(v) })
	PutOptional[int32](b, nil, func(b *bytebuf.Buffer, v int32) { b.PutI32(v) })

	got, err := GetOptional(b, func(b *bytebuf.Buffer) (int32, error) { return b.GetI32() })
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, int32(42), *got)

	got2, err := GetOptional(b, func(b *bytebuf.Buffer) (int32, error) { return b.GetI32() })
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestTuple2RoundTrip(t *testing.T) {
	b := bytebuf.New()
	PutTuple2(b, int32(7), "seven", func(b *bytebuf.Buffer, v int32) { b.PutI32(v) }, PutString)

	n, s, err := GetTuple2(b, func(b *bytebuf.Buffer) (int32, error) { return b.GetI32() }, GetString)
	require.NoError(t, err)
	require.Equal(t, int32(7), n)
	require.Equal(t, "seven", s)
}

func TestUnionRoundTripAndInvalidTag(t *testing.T) {
	encoders := []ArmEncoder{
		func(b *bytebuf.Buffer, v interface{}) { b.PutI32(v.(int32)) },
		func(b *bytebuf.Buffer, v interface{}) { PutString(b, v.(string)) },
	}
	decoders := []ArmDecoder{
		func(b *bytebuf.Buffer) (interface{}, error) { return b.GetI32() },
		func(b *bytebuf.Buffer) (interface{}, error) { return GetString(b) },
	}

	b := bytebuf.New()
	PutUnion(b, Union{Tag: 1, Value: "chosen"}, encoders)
	u, err := GetUnion(b, decoders)
	require.NoError(t, err)
	require.Equal(t, 1, u.Tag)
	require.Equal(t, "chosen", u.Value)

	// corrupt: write an out-of-range tag directly
	bad := bytebuf.New()
	bad.PutU32(99)
	_, err = GetUnion(bad, decoders)
	require.Error(t, err)
}

func TestGetArrayRejectsOversizedCount(t *testing.T) {
	b := bytebuf.New()
	// Advertise far more int32 elements than the buffer could possibly
	// hold, without writing any of them.
	_, err := GetArray(b, 1<<30, func(b *bytebuf.Buffer) (int32, error) { return b.GetI32() })
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.Truncated))
}

func TestGetListRejectsOversizedLengthPrefix(t *testing.T) {
	b := bytebuf.New()
	b.PutU32(0xFFFFFFF0) // length prefix advertising ~4 billion elements
	_, err := GetList(b, func(b *bytebuf.Buffer) (uint8, error) { return b.GetU8() })
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.Truncated))
}

func TestGetMapRejectsOversizedLengthPrefix(t *testing.T) {
	b := bytebuf.New()
	b.PutU32(0xFFFFFFF0)
	_, err := GetMap(b, GetString, func(b *bytebuf.Buffer) (int32, error) { return b.GetI32() })
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.Truncated))
}

func TestGetSetRejectsOversizedLengthPrefix(t *testing.T) {
	b := bytebuf.New()
	b.PutU32(0xFFFFFFF0)
	_, err := GetSet(b, func(b *bytebuf.Buffer) (int32, error) { return b.GetI32() })
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.Truncated))
}

func TestGetArrayAcceptsCountWithinRemainingBytes(t *testing.T) {
	b := bytebuf.New()
	PutArray(b, []uint8{1, 2, 3}, func(b *bytebuf.Buffer, v uint8) { b.PutU8(v) })
	out, err := GetArray(b, 3, func(b *bytebuf.Buffer) (uint8, error) { return b.GetU8() })
	require.NoError(t, err)
	require.Equal(t, []uint8{1, 2, 3}, out)
}

func TestCompositeWithListSizeScenario(t *testing.T) {
	// Mirrors spec scenario 2: id (2 bytes) + list<u8> size prefix + elements.
	b := bytebuf.New()
	b.PutU16(7) // pretend message id
	PutList(b, []uint8{1, 2, 3, 4, 5}, func(b *bytebuf.Buffer, v uint8) { b.PutU8(v) })
	require.Equal(t, 2+LengthWidth+5, b.Len())
}
