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

package iopipe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipeWriteRead(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	n, open, err := p.Write([]byte("hi"))
	require.NoError(t, err)
	require.True(t, open)
	require.Equal(t, 2, n)

	buf := make([]byte, 2)
	n, open, err = p.Read(buf)
	require.NoError(t, err)
	require.True(t, open)
	require.Equal(t, 2, n)
	require.Equal(t, "hi", string(buf))
}

func TestPipeCloseWriteYieldsClosedOnRead(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.CloseRead()

	require.NoError(t, p.CloseWrite())

	buf := make([]byte, 1)
	_, open, err := p.Read(buf)
	require.NoError(t, err)
	require.False(t, open)
}
