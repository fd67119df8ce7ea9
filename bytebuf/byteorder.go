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

// Package bytebuf provides the growable byte sequence and wire byte-order
// primitives the rest of netmsg is built on.
package bytebuf

import "encoding/binary"

// Order is the network byte order used to serialize scalars on the wire.
// It defaults to little-endian; both peers of a connection must agree on
// the same Order, since it is a build-time choice in spirit (see
// network_endianness_little in the configuration table) even though Go
// expresses it as a package variable rather than a compile flag.
var Order binary.ByteOrder = binary.LittleEndian

// UseBigEndian switches the package-wide wire byte order to big-endian.
// UseLittleEndian restores the default. Call before any message traffic
// is produced; changing it mid-flight will desynchronize peers.
func UseBigEndian()    { Order = binary.BigEndian }
func UseLittleEndian() { Order = binary.LittleEndian }
