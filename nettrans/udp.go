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

package nettrans

import "net"

// DialUDP connects a UDP socket to addr: since both the datagram
// messaging interface and messaging.Transport only need Read/Write, a
// connected *net.UDPConn (rather than a *net.UDPConn used with
// ReadFrom/WriteTo) satisfies messaging.Transport directly.
func DialUDP(addr string) (*net.UDPConn, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	return net.DialUDP("udp", nil, raddr)
}

// ListenUDP opens a UDP socket bound to addr for receiving datagrams
// from any peer (spec 4.10, recv_from). Callers that need per-peer
// send_to framing should wrap the *net.UDPConn with their own
// addr-tracking adapter around WriteTo, as messaging.DatagramFramer
// only requires Read/Write.
func ListenUDP(addr string) (*net.UDPConn, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", laddr)
}
