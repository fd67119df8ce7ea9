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

package netaddr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseIPv4(t *testing.T) {
	a, err := Parse("127.0.0.1", 8080)
	require.NoError(t, err)
	require.Equal(t, IPv4, a.Family)
	require.Equal(t, "127.0.0.1:8080", a.String())
}

func TestParseIPv6WithZone(t *testing.T) {
	a, err := Parse("fe80::1%eth0", 53)
	require.NoError(t, err)
	require.Equal(t, IPv6, a.Family)
	require.Equal(t, "eth0", a.Zone)
	require.Contains(t, a.String(), "%eth0")
}

func TestEmptyHostParsesAsIPv4(t *testing.T) {
	a, err := Parse("", 1)
	require.NoError(t, err)
	require.Equal(t, IPv4, a.Family)
}

func TestCompareFamilyOrdering(t *testing.T) {
	v4, _ := Parse("10.0.0.1", 1)
	v6, _ := Parse("::1", 1)
	require.Negative(t, Compare(v4, v6))
	require.Positive(t, Compare(v6, v4))
	require.Zero(t, Compare(v4, v4))
}

func TestComparePortTieBreak(t *testing.T) {
	a, _ := Parse("10.0.0.1", 1)
	b, _ := Parse("10.0.0.1", 2)
	require.Negative(t, Compare(a, b))
}

func TestHashCombinesFields(t *testing.T) {
	a, _ := Parse("10.0.0.1", 1)
	b, _ := Parse("10.0.0.1", 2)
	require.NotEqual(t, a.Hash(), b.Hash())

	c, _ := Parse("10.0.0.1", 1)
	require.Equal(t, a.Hash(), c.Hash())
}
