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

package message

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axilmar/netmsg/bytebuf"
	"github.com/axilmar/netmsg/internal/xerrors"
)

type pingMsg struct{ n int32 }

func (p *pingMsg) MessageName() string { return "ping" }
func (p *pingMsg) Encode(b *bytebuf.Buffer) {
	b.PutI32(p.n)
}
func (p *pingMsg) Decode(b *bytebuf.Buffer) error {
	v, err := b.GetI32()
	if err != nil {
		return err
	}
	p.n = v
	return nil
}

func pingFactory(a Allocator, b *bytebuf.Buffer) (Message, error) {
	m := &pingMsg{}
	if err := m.Decode(b); err != nil {
		return nil, err
	}
	return m, nil
}

func TestRegistryIDsAreLexicographic(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("zebra", pingFactory))
	require.NoError(t, r.Register("alpha", pingFactory))
	require.NoError(t, r.Register("mango", pingFactory))

	idAlpha, err := r.IDOf("alpha")
	require.NoError(t, err)
	idMango, err := r.IDOf("mango")
	require.NoError(t, err)
	idZebra, err := r.IDOf("zebra")
	require.NoError(t, err)

	require.Equal(t, uint16(0), idAlpha)
	require.Equal(t, uint16(1), idMango)
	require.Equal(t, uint16(2), idZebra)
}

func TestRegistryDeterministicAcrossRegistrationOrder(t *testing.T) {
	r1 := NewRegistry()
	r2 := NewRegistry()

	require.NoError(t, r1.Register("alpha", pingFactory))
	require.NoError(t, r1.Register("beta", pingFactory))
	require.NoError(t, r1.Register("gamma", pingFactory))

	// same set, different registration order
	require.NoError(t, r2.Register("gamma", pingFactory))
	require.NoError(t, r2.Register("alpha", pingFactory))
	require.NoError(t, r2.Register("beta", pingFactory))

	for _, name := range []string{"alpha", "beta", "gamma"} {
		id1, err := r1.IDOf(name)
		require.NoError(t, err)
		id2, err := r2.IDOf(name)
		require.NoError(t, err)
		require.Equal(t, id1, id2, "id for %q must match across peers", name)
	}
}

func TestRegistryFreezesOnFirstIDOf(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("alpha", pingFactory))

	_, err := r.IDOf("alpha")
	require.NoError(t, err)

	err = r.Register("beta", pingFactory)
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.RegistryFrozen))
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("alpha", pingFactory))
	err := r.Register("alpha", pingFactory)
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.DuplicateMessage))
}

func TestRegistryUnknownMessage(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("alpha", pingFactory))

	_, err := r.IDOf("nope")
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.UnknownMessage))
}

func TestEncodeDeserializeRoundTrip(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ping", pingFactory))

	b := bytebuf.New()
	require.NoError(t, r.EncodeMessage(b, &pingMsg{n: 42}))

	b.SetPos(0)
	out, err := r.Deserialize(b, DefaultAllocator)
	require.NoError(t, err)
	require.Equal(t, int32(42), out.(*pingMsg).n)
}

func TestDeserializeUnknownID(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ping", pingFactory))
	r.Freeze()

	b := bytebuf.New()
	b.PutU16(99)
	_, err := r.Deserialize(b, DefaultAllocator)
	require.Error(t, err)
	require.True(t, xerrors.Of(err, xerrors.UnknownMessage))
}

func TestSplitJoinID(t *testing.T) {
	ns, idx := SplitID(JoinID(3, 17))
	require.Equal(t, uint16(3), ns)
	require.Equal(t, uint16(17), idx)
}
