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

package bytebuf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axilmar/netmsg/internal/xerrors"
)

func TestScalarRoundTrip(t *testing.T) {
	b := New()
	b.PutU32(0xDEADBEEF)
	b.PutI16(-30000)
	b.PutBool(true)
	require.Equal(t, 7, b.Len())

	u32, err := b.GetU32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), u32)

	i16, err := b.GetI16()
	require.NoError(t, err)
	require.Equal(t, int16(-30000), i16)

	bl, err := b.GetBool()
	require.NoError(t, err)
	require.True(t, bl)
}

func TestTruncatedRead(t *testing.T) {
	b := New()
	b.PutU8(1)
	_, err := b.GetU32()
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.Truncated))
}

func TestEndiannessIndependence(t *testing.T) {
	UseLittleEndian()
	le := New()
	le.PutU32(0x01020304)
	leBytes := append([]byte(nil), le.Bytes()...)

	UseBigEndian()
	defer UseLittleEndian()
	be := New()
	be.PutU32(0x01020304)

	// Same value produces different wire bytes under different configured
	// orders, but each configuration round-trips to the same value: the
	// wire form's shape (not endianness-choice outcome) is what must be
	// consistent between two peers sharing one Order.
	require.NotEqual(t, leBytes, be.Bytes())

	v, err := be.GetU32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x01020304), v)
}

func TestPeekSkipNext(t *testing.T) {
	b := New()
	b.Append([]byte{1, 2, 3, 4, 5})

	p, err := b.Peek(2)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, p)
	require.Equal(t, 0, b.Pos())

	require.NoError(t, b.Skip(2))
	require.Equal(t, 2, b.Pos())

	n, err := b.Next(3)
	require.NoError(t, err)
	require.Equal(t, []byte{3, 4, 5}, n)
	require.Equal(t, 0, b.Remaining())
}

func TestAcquireRelease(t *testing.T) {
	b := Acquire(16)
	b.Append([]byte("hello"))
	require.Equal(t, 5, b.Len())
	b.Release()
}
