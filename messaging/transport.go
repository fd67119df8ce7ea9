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

// Package messaging implements the framing protocol that bridges typed
// messages to byte streams/datagrams (spec component C5): size-prefixed
// stream framing, optionally-CRC'd datagram framing, and an encryption
// decorator, composed over a Transport capability instead of a deep
// class hierarchy (spec 9, "Deep virtual hierarchy ... compose rather
// than subclass").
package messaging

import "io"

// Transport is the capability a Framer needs from the underlying
// socket/pipe: ordinary blocking byte I/O. *net.TCPConn, *net.UDPConn,
// and *tls.Conn all satisfy it as-is.
type Transport interface {
	io.Reader
	io.Writer
}

// StateAware is optionally implemented by a Transport that tracks its
// own liveness asynchronously, ahead of whatever a blocking Read/Write
// call would surface (nettrans.Conn implements it over connstate's
// epoll-based tracker). Framers consult it to recognize a read error
// on an already-dead peer as the benign "transport closed" case even
// when the underlying error isn't one of the handful of sentinel
// values Go's net/io packages use for clean shutdown.
type StateAware interface {
	Closed() bool
}

// isTransportClosed reports whether err, observed on t, indicates the
// peer closed the connection, the benign case the receive path
// recovers locally into (nil, false, nil) instead of surfacing to the
// caller (spec 7, "Propagation policy"). Besides the plain io sentinel
// errors, it defers to t's StateAware.Closed when available, so a
// platform-specific error (e.g. a reset) on a connection connstate has
// already observed dying is treated the same as a clean close.
func isTransportClosed(t Transport, err error) bool {
	if err == io.EOF || err == io.ErrUnexpectedEOF || err == io.ErrClosedPipe {
		return true
	}
	if sa, ok := t.(StateAware); ok && sa.Closed() {
		return true
	}
	return false
}
