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

// Package nettrans adapts the boundary address/socket abstractions
// (spec component C10) to concrete TCP, UDP and TLS connections that
// satisfy messaging.Transport, with liveness tracking and socket-option
// passthrough (a feature present in original_source/'s socket wrapper
// but dropped by the distilled spec, supplemented here per the process
// rule that original_source/ features not excluded by a Non-goal are
// fair game).
package nettrans

import (
	"crypto/tls"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/axilmar/netmsg/connstate"
)

// Conn wraps a net.Conn with liveness tracking (grounded on
// connstate.ListenConnState, adapted here from netx.Conn: the teacher's
// version bundled in a bufiox zero-copy Reader/Writer pair tailored to
// Thrift RPC framing, which this package drops since netmsg frames its
// own wire format through messaging.Framer instead).
type Conn struct {
	net.Conn
	stater connstate.ConnStater
}

// WrapConn attaches liveness tracking to an already-connected net.Conn.
func WrapConn(c net.Conn) (*Conn, error) {
	stater, err := connstate.ListenConnState(c)
	if err != nil {
		// Not every net.Conn implementation is a syscall.Conn (e.g.
		// net.Pipe, tls.Conn before handshake completes on some
		// versions); liveness tracking degrades gracefully rather than
		// failing the whole connection.
		return &Conn{Conn: c}, nil
	}
	return &Conn{Conn: c, stater: stater}, nil
}

// State reports the tracked liveness state, or connstate.StateOK if
// this Conn has no tracker (see WrapConn's degrade-gracefully note).
func (c *Conn) State() connstate.ConnState {
	if c.stater == nil {
		return connstate.StateOK
	}
	return c.stater.State()
}

// Closed reports whether liveness tracking has observed this
// connection die, satisfying messaging.StateAware: Framers built over
// a *Conn use this to recognize any OS-level read error on an
// already-dead connection as the benign "transport closed" case
// (spec 7, "Propagation policy"), rather than only the handful of
// sentinel errors Go's net/io packages use for a clean shutdown.
func (c *Conn) Closed() bool {
	return c.State() != connstate.StateOK
}

// Close releases the liveness tracker (if any) before closing the
// underlying connection.
func (c *Conn) Close() error {
	if c.stater != nil {
		_ = c.stater.Close()
	}
	return c.Conn.Close()
}

// DialTCP connects to addr over TCP and wraps the result.
func DialTCP(addr string) (*Conn, error) {
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return WrapConn(c)
}

// DialTLS connects to addr and performs a TLS handshake using cfg.
func DialTLS(addr string, cfg *tls.Config) (*Conn, error) {
	c, err := tls.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, err
	}
	return WrapConn(c)
}

// ListenTCP listens on addr, returning a net.Listener whose Accept
// results should be passed through WrapConn by the caller.
func ListenTCP(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// ListenTLS is ListenTCP with a TLS handshake layered on each accepted
// connection.
func ListenTLS(addr string, cfg *tls.Config) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return tls.NewListener(ln, cfg), nil
}

// rawConn returns the syscall-level descriptor underlying c, unwrapping
// a *tls.Conn to its net.Conn first. Not every net.Conn is a
// syscall.Conn (e.g. net.Pipe), so callers must handle the !ok case.
func (c *Conn) rawConn() (syscall.RawConn, bool) {
	nc := c.Conn
	if tc, ok := nc.(*tls.Conn); ok {
		nc = tc.NetConn()
	}
	sc, ok := nc.(syscall.Conn)
	if !ok {
		return nil, false
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return nil, false
	}
	return rc, true
}

// SetOption sets a raw setsockopt(level, name, value), mirroring
// socket::set_option in original_source/'s socket wrapper
// (socket_messaging_interface.hpp). value is interpreted per level/name
// the way the underlying setsockopt(2) call expects (most options here
// are a 4-byte int, e.g. SO_REUSEADDR).
func (c *Conn) SetOption(level, name int, value []byte) error {
	rc, ok := c.rawConn()
	if !ok {
		return fmt.Errorf("nettrans: connection has no syscall descriptor")
	}
	var sockErr error
	err := rc.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptString(int(fd), level, name, string(value))
	})
	if err != nil {
		return err
	}
	return sockErr
}

// GetOption reads an int-valued getsockopt(level, name) option and
// returns it as size bytes, least significant byte first (bytes past
// the eighth are zero), mirroring socket::get_option in
// original_source/'s socket wrapper. Options whose value is not an int
// are not supported.
func (c *Conn) GetOption(level, name, size int) ([]byte, error) {
	rc, ok := c.rawConn()
	if !ok {
		return nil, fmt.Errorf("nettrans: connection has no syscall descriptor")
	}
	var (
		value   int
		sockErr error
	)
	err := rc.Control(func(fd uintptr) {
		value, sockErr = syscall.GetsockoptInt(int(fd), level, name)
	})
	if err != nil {
		return nil, err
	}
	if sockErr != nil {
		return nil, sockErr
	}
	out := make([]byte, size)
	for i := 0; i < size && i < 8; i++ {
		out[i] = byte(value >> (8 * i))
	}
	return out, nil
}

// SetReuseAddr sets or clears SO_REUSEADDR, mirroring socket::set_reuse
// in original_source/'s socket wrapper — the common case SetOption is
// built to cover generically.
func (c *Conn) SetReuseAddr(reuse bool) error {
	rc, ok := c.rawConn()
	if !ok {
		return fmt.Errorf("nettrans: connection has no syscall descriptor")
	}
	v := 0
	if reuse {
		v = 1
	}
	var sockErr error
	err := rc.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, v)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// SocketOptions are a typed, batch-apply convenience over the handful
// of options most callers actually need (NODELAY, KEEPALIVE, buffer
// sizes), for callers who want the bulk-configure path instead of one
// syscall at a time. Apply sets them through *net.TCPConn's own
// setters, not through the SetOption/GetOption/SetReuseAddr trio above.
type SocketOptions struct {
	NoDelay         *bool
	KeepAlive       *bool
	KeepAlivePeriod *time.Duration
	ReadBufferSize  *int
	WriteBufferSize *int
}

// Apply sets whichever options are non-nil on c, when the underlying
// connection is a *net.TCPConn, directly or under a *tls.Conn. For any
// other connection Apply sets nothing and returns nil.
func (o SocketOptions) Apply(c *Conn) error {
	tc, ok := c.Conn.(*net.TCPConn)
	if !ok {
		if tlsConn, ok := c.Conn.(*tls.Conn); ok {
			if underlying, ok := tlsConn.NetConn().(*net.TCPConn); ok {
				tc = underlying
			}
		}
	}
	if tc == nil {
		return nil
	}
	if o.NoDelay != nil {
		if err := tc.SetNoDelay(*o.NoDelay); err != nil {
			return err
		}
	}
	if o.KeepAlive != nil {
		if err := tc.SetKeepAlive(*o.KeepAlive); err != nil {
			return err
		}
	}
	if o.KeepAlivePeriod != nil {
		if err := tc.SetKeepAlivePeriod(*o.KeepAlivePeriod); err != nil {
			return err
		}
	}
	if o.ReadBufferSize != nil {
		if err := tc.SetReadBuffer(*o.ReadBufferSize); err != nil {
			return err
		}
	}
	if o.WriteBufferSize != nil {
		if err := tc.SetWriteBuffer(*o.WriteBufferSize); err != nil {
			return err
		}
	}
	return nil
}
