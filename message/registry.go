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
	"sort"
	"sync"

	"github.com/axilmar/netmsg/bytebuf"
	"github.com/axilmar/netmsg/internal/xerrors"
)

// IDWidthBits is the width of the message id scalar on the wire
// (spec: message_id_width_bits, default 16).
var IDWidthBits = 16

// NamespaceBits is, of the id bits, the high portion reserved for a
// namespace index (spec: message_id_namespace_bits, default 6).
var NamespaceBits = 6

// SplitID decomposes a wire id into its namespace and message-index
// portions per NamespaceBits.
func SplitID(id uint16) (namespace, index uint16) {
	indexBits := uint(IDWidthBits) - uint(NamespaceBits)
	mask := uint16(1)<<indexBits - 1
	return id >> indexBits, id & mask
}

// JoinID recombines a namespace and message-index into one wire id.
func JoinID(namespace, index uint16) uint16 {
	indexBits := uint(IDWidthBits) - uint(NamespaceBits)
	return namespace<<indexBits | index
}

type entry struct {
	name    string
	factory Factory
}

// Registry is the process-wide (or, for tests, per-instance) table of
// message type names, ids, and factories. It freezes on the first call
// to IDOf/Deserialize: registration after that point fails with
// RegistryFrozen, so that every peer that has finished registering the
// same set of names agrees on the same id assignment (spec 4.3, 3b).
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]*entry
	frozen   bool
	idByName map[string]uint16
	byID     []*entry // index by assigned id, populated at freeze
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*entry)}
}

// Global is the process-wide registry that package-level Register/IDOf/
// Deserialize operate on, mirroring netlib's static message_registry.
var Global = NewRegistry()

// Register inserts (name, factory). Fails with RegistryFrozen once any
// id has been materialized, and DuplicateMessage if name is already
// registered.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return xerrors.New(xerrors.RegistryFrozen, "cannot register %q after freeze", name)
	}
	if _, ok := r.byName[name]; ok {
		return xerrors.New(xerrors.DuplicateMessage, "message %q already registered", name)
	}
	r.byName[name] = &entry{name: name, factory: factory}
	return nil
}

// freezeLocked sorts registered names lexicographically and assigns ids
// 0..N-1 in that order (spec 4.3, 3b), then marks the registry frozen.
// Must be called with r.mu held for writing.
func (r *Registry) freezeLocked() {
	if r.frozen {
		return
	}
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)

	r.idByName = make(map[string]uint16, len(names))
	r.byID = make([]*entry, len(names))
	for i, n := range names {
		r.idByName[n] = uint16(i)
		r.byID[i] = r.byName[n]
	}
	r.frozen = true
}

// IDOf returns the wire id for name, freezing the registry on first
// call if it is not already frozen. Fails with UnknownMessage if name
// was never registered.
func (r *Registry) IDOf(name string) (uint16, error) {
	r.mu.RLock()
	if r.frozen {
		id, ok := r.idByName[name]
		r.mu.RUnlock()
		if !ok {
			return 0, xerrors.New(xerrors.UnknownMessage, "message %q not registered", name)
		}
		return id, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	r.freezeLocked()
	id, ok := r.idByName[name]
	r.mu.Unlock()
	if !ok {
		return 0, xerrors.New(xerrors.UnknownMessage, "message %q not registered", name)
	}
	return id, nil
}

// Freeze forces the registry to freeze without looking up a name, useful
// for servers that want to fail fast before the first message is sent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.freezeLocked()
	r.mu.Unlock()
}

// Deserialize reads the id from the head of b (IDWidthBits wide),
// looks up the registered factory, and invokes it with a to produce a
// fresh, decoded Message. Freezes the registry on first call, same as
// IDOf.
func (r *Registry) Deserialize(b *bytebuf.Buffer, a Allocator) (Message, error) {
	id, err := readID(b)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	if !r.frozen {
		r.mu.RUnlock()
		r.mu.Lock()
		r.freezeLocked()
		r.mu.Unlock()
		r.mu.RLock()
	}
	var e *entry
	if int(id) < len(r.byID) {
		e = r.byID[id]
	}
	r.mu.RUnlock()

	if e == nil {
		return nil, xerrors.New(xerrors.UnknownMessage, "no message registered for id %d", id)
	}
	return e.factory(a, b)
}

func readID(b *bytebuf.Buffer) (uint16, error) {
	if IDWidthBits == 8 {
		v, err := b.GetU8()
		return uint16(v), err
	}
	return b.GetU16()
}

func writeID(b *bytebuf.Buffer, id uint16) {
	if IDWidthBits == 8 {
		b.PutU8(uint8(id))
		return
	}
	b.PutU16(id)
}

// EncodeMessage writes a full top-level frame payload: the message's
// wire id, looked up by name from r, followed by its body (spec 4.2
// "message (top-level)").
func (r *Registry) EncodeMessage(b *bytebuf.Buffer, m Message) error {
	id, err := r.IDOf(m.MessageName())
	if err != nil {
		return err
	}
	writeID(b, id)
	m.Encode(b)
	return nil
}

// Register, IDOf, Deserialize, Freeze and EncodeMessage on the package
// level operate on Global, for applications content with one process-
// wide registry (the common case, mirroring netlib's static registry).
func Register(name string, factory Factory) error      { return Global.Register(name, factory) }
func IDOf(name string) (uint16, error)                  { return Global.IDOf(name) }
func Deserialize(b *bytebuf.Buffer, a Allocator) (Message, error) {
	return Global.Deserialize(b, a)
}
func Freeze()                                      { Global.Freeze() }
func EncodeMessage(b *bytebuf.Buffer, m Message) error { return Global.EncodeMessage(b, m) }
