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

import (
	"net"
	"syscall"

	"github.com/axilmar/netmsg/internal/xerrors"
	"github.com/axilmar/netmsg/mux"
)

// ResourceOf extracts the raw file descriptor of a syscall.Conn-backed
// connection as a mux.Resource, for registering the connection with a
// mux.Multiplexer.
func ResourceOf(c net.Conn) (mux.Resource, error) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return 0, xerrors.New(xerrors.SystemIO, "connection does not expose a raw descriptor")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, xerrors.Wrap(xerrors.SystemIO, err, "obtaining raw connection")
	}
	var fd uintptr
	if err := raw.Control(func(d uintptr) { fd = d }); err != nil {
		return 0, xerrors.Wrap(xerrors.SystemIO, err, "control")
	}
	return mux.Resource(fd), nil
}
