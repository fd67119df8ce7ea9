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

// Package netaddr implements the address abstraction (spec component
// C10's data model): a tagged union of IPv4 and IPv6 addresses with
// lexicographic comparison and combined hashing.
package netaddr

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/axilmar/netmsg/hash/xfnv"
	"github.com/axilmar/netmsg/internal/xerrors"
)

// Family discriminates the two arms of the Address tagged union.
type Family uint8

const (
	IPv4 Family = iota
	IPv6
)

// Address is a tagged union of IPv4 (4 bytes + port) and IPv6 (16 bytes
// + zone + port), per spec 4.10.
type Address struct {
	Family Family
	IP     []byte // 4 bytes for IPv4, 16 for IPv6
	Zone   string // IPv6 only
	Port   uint16
}

// Parse interprets s as an IPv4 dotted-quad, IPv6 colon-hex address
// (with an optional "%zone" suffix), or a non-IP hostname resolved via
// DNS (spec 6, "Addresses"). An empty host parses as the IPv4
// unspecified address 0.0.0.0; it is not resolved to the address of any
// particular interface.
func Parse(s string, port uint16) (Address, error) {
	host := s
	if host == "" {
		host = "0.0.0.0"
	}

	zone := ""
	if i := strings.IndexByte(host, '%'); i >= 0 {
		zone = host[i+1:]
		host = host[:i]
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return Address{}, xerrors.Wrap(xerrors.NotFound, err, "resolving host %q", s)
		}
		ip = ips[0]
	}

	if v4 := ip.To4(); v4 != nil {
		return Address{Family: IPv4, IP: append([]byte(nil), v4...), Port: port}, nil
	}
	v6 := ip.To16()
	if v6 == nil {
		return Address{}, xerrors.New(xerrors.NotFound, "address %q is neither IPv4 nor IPv6", s)
	}
	return Address{Family: IPv6, IP: append([]byte(nil), v6...), Zone: zone, Port: port}, nil
}

// String renders the address in its canonical textual form.
func (a Address) String() string {
	ip := net.IP(a.IP).String()
	if a.Family == IPv6 && a.Zone != "" {
		return fmt.Sprintf("[%s%%%s]:%d", ip, a.Zone, a.Port)
	}
	if a.Family == IPv6 {
		return fmt.Sprintf("[%s]:%d", ip, a.Port)
	}
	return fmt.Sprintf("%s:%d", ip, a.Port)
}

// Compare orders a against b lexicographically on the serialized bytes
// with address-family ordering first (spec 4.10).
func Compare(a, b Address) int {
	if a.Family != b.Family {
		if a.Family < b.Family {
			return -1
		}
		return 1
	}
	if c := bytes.Compare(a.IP, b.IP); c != 0 {
		return c
	}
	if a.Family == IPv6 && a.Zone != b.Zone {
		return strings.Compare(a.Zone, b.Zone)
	}
	if a.Port != b.Port {
		if a.Port < b.Port {
			return -1
		}
		return 1
	}
	return 0
}

// Hash combines family, bytes, zone, and port into one hash value
// (spec 4.10, "hashing combines family, bytes, zone, and port"), using
// xfnv's in-memory FNV-1a hash.
func (a Address) Hash() uint64 {
	buf := make([]byte, 0, 1+len(a.IP)+len(a.Zone)+2)
	buf = append(buf, byte(a.Family))
	buf = append(buf, a.IP...)
	buf = append(buf, a.Zone...)
	buf = append(buf, byte(a.Port), byte(a.Port>>8))
	return xfnv.Hash(buf)
}

// PortString renders the port as a string, useful for net.JoinHostPort.
func (a Address) PortString() string { return strconv.Itoa(int(a.Port)) }
