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

package messaging

import (
	"github.com/axilmar/netmsg/bytebuf"
	"github.com/axilmar/netmsg/message"
)

// Interface bridges typed messages to a Framer: Send serializes a
// message (id + body) and hands the bytes to the framer; Receive reads
// one frame, peeks its id, and asks the registry to deserialize a typed
// value from it (spec 4.5, "Send"/"Receive"). It consolidates the
// source's separate endpoint and messaging_interface hierarchies (spec
// 9, Design Notes) into one concrete type.
type Interface struct {
	Framer    Framer
	Registry  *message.Registry
	Allocator message.Allocator
}

// New ties a Framer to a registry and allocator. If allocator is nil,
// message.DefaultAllocator is used.
func New(f Framer, reg *message.Registry, allocator message.Allocator) *Interface {
	if allocator == nil {
		allocator = message.DefaultAllocator
	}
	return &Interface{Framer: f, Registry: reg, Allocator: allocator}
}

// Send serializes m (id + body) into a fresh buffer and hands it to the
// framer.
func (iface *Interface) Send(m message.Message) error {
	b := bytebuf.New()
	if err := iface.Registry.EncodeMessage(b, m); err != nil {
		return err
	}
	return iface.Framer.Send(b.Bytes())
}

// Receive reads one frame and deserializes the typed message it
// carries. ok is false (with a nil error) when the transport reported a
// graceful close.
func (iface *Interface) Receive() (message.Message, bool, error) {
	payload, ok, err := iface.Framer.Receive()
	if !ok || err != nil {
		return nil, ok, err
	}
	b := bytebuf.NewFromBytes(payload)
	m, err := iface.Registry.Deserialize(b, iface.Allocator)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// MultiReceiver fans in Receive calls from several interfaces sharing a
// process (spec 9 consolidation note mentions endpoints serving many
// peers); each interface is read from its own goroutine and delivered
// results are serialized onto one channel.
type MultiReceiver struct {
	out chan receivedMessage
}

type receivedMessage struct {
	From *Interface
	Msg  message.Message
	OK   bool
	Err  error
}

// NewMultiReceiver starts one receive loop per interface in ifaces,
// delivering every result to a shared, buffered channel.
func NewMultiReceiver(ifaces ...*Interface) *MultiReceiver {
	mr := &MultiReceiver{out: make(chan receivedMessage, len(ifaces)*4+1)}
	for _, iface := range ifaces {
		go mr.pump(iface)
	}
	return mr
}

func (mr *MultiReceiver) pump(iface *Interface) {
	for {
		m, ok, err := iface.Receive()
		mr.out <- receivedMessage{From: iface, Msg: m, OK: ok, Err: err}
		if !ok || err != nil {
			return
		}
	}
}

// Next blocks for the next delivered message from any of the
// constituent interfaces.
func (mr *MultiReceiver) Next() (from *Interface, m message.Message, ok bool, err error) {
	r := <-mr.out
	return r.From, r.Msg, r.OK, r.Err
}
