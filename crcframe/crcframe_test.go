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

package crcframe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axilmar/netmsg/internal/xerrors"
)

func TestAppendVerifyRoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	framed := Append(payload)
	require.Len(t, framed, len(payload)+Width)

	got, err := Verify(framed)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestVerifyDetectsSingleBitFlip(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	framed := Append(payload)

	for i := range framed {
		corrupt := append([]byte(nil), framed...)
		corrupt[i] ^= 0x01
		_, err := Verify(corrupt)
		require.Error(t, err, "flipping bit in byte %d should be detected", i)
		require.True(t, xerrors.Of(err, xerrors.CorruptFrame))
	}
}

func TestVerifyRejectsShortFrame(t *testing.T) {
	_, err := Verify([]byte{1, 2, 3})
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.CorruptFrame))
}
