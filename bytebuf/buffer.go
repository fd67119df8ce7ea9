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

package bytebuf

import (
	"math"

	"github.com/bytedance/gopkg/lang/mcache"

	"github.com/axilmar/netmsg/internal/xerrors"
)

// Buffer is a growable byte sequence with a deserialization cursor.
// The cursor never exceeds the length of the buffer; reads past the
// length fail with xerrors.Truncated instead of panicking.
//
// Growth is backed by mcache, the same pooled-byte-slice allocator
// bufiox.DefaultReader/DefaultWriter use, so repeated Buffer reuse via
// Reset does not re-allocate once warmed up.
type Buffer struct {
	buf []byte
	pos int
	own bool // true if buf was obtained from mcache and must be Freed
}

// New returns an empty Buffer.
func New() *Buffer { return &Buffer{} }

// NewFromBytes wraps an existing slice for reading; the Buffer does not
// take ownership and Release is a no-op.
func NewFromBytes(b []byte) *Buffer { return &Buffer{buf: b} }

// Acquire returns a pooled Buffer with at least size bytes of backing
// capacity, ready for writing from offset 0.
func Acquire(size int) *Buffer {
	if size <= 0 {
		size = 64
	}
	b := mcache.Malloc(size)
	return &Buffer{buf: b[:0], own: true}
}

// Release returns the underlying storage to the pool if it was obtained
// via Acquire. After Release the Buffer must not be used.
func (b *Buffer) Release() {
	if b.own && b.buf != nil {
		mcache.Free(b.buf[:cap(b.buf)])
	}
	b.buf = nil
	b.pos = 0
	b.own = false
}

// Reset empties the buffer contents and cursor but keeps the backing array.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.pos = 0
}

// Bytes returns the full backing slice (length, not capacity).
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the number of valid bytes currently stored.
func (b *Buffer) Len() int { return len(b.buf) }

// Pos returns the current deserialization cursor.
func (b *Buffer) Pos() int { return b.pos }

// SetPos repositions the cursor; it is the caller's responsibility to
// keep 0 <= pos <= Len().
func (b *Buffer) SetPos(pos int) { b.pos = pos }

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int { return len(b.buf) - b.pos }

// Grow ensures n more bytes can be appended without reallocating, growing
// the backing array via mcache when the capacity is insufficient.
func (b *Buffer) Grow(n int) {
	if cap(b.buf)-len(b.buf) >= n {
		return
	}
	need := len(b.buf) + n
	nb := mcache.Malloc(need)
	nb = nb[:copy(nb[:need], b.buf)]
	if b.own {
		mcache.Free(b.buf[:cap(b.buf)])
	}
	b.buf = nb
	b.own = true
}

// Append writes p at the end of the buffer, growing as needed.
func (b *Buffer) Append(p []byte) {
	b.Grow(len(p))
	b.buf = append(b.buf, p...)
}

// Malloc returns a slice of n freshly appended zero-length bytes for the
// caller to fill in place, growing the backing array as needed. Mirrors
// bufiox.Writer.Malloc.
func (b *Buffer) Malloc(n int) []byte {
	b.Grow(n)
	l := len(b.buf)
	b.buf = b.buf[:l+n]
	return b.buf[l : l+n]
}

// At returns the byte at index i without affecting the cursor.
func (b *Buffer) At(i int) byte { return b.buf[i] }

// Next consumes and returns the next n bytes, advancing the cursor.
// Fails with xerrors.Truncated if fewer than n bytes remain.
func (b *Buffer) Next(n int) ([]byte, error) {
	if n < 0 || b.pos+n > len(b.buf) {
		return nil, xerrors.New(xerrors.Truncated, "need %d bytes, have %d", n, b.Remaining())
	}
	p := b.buf[b.pos : b.pos+n]
	b.pos += n
	return p, nil
}

// Peek returns the next n bytes without advancing the cursor.
func (b *Buffer) Peek(n int) ([]byte, error) {
	if n < 0 || b.pos+n > len(b.buf) {
		return nil, xerrors.New(xerrors.Truncated, "need %d bytes, have %d", n, b.Remaining())
	}
	return b.buf[b.pos : b.pos+n], nil
}

// Skip advances the cursor by n bytes without returning them.
func (b *Buffer) Skip(n int) error {
	if n < 0 || b.pos+n > len(b.buf) {
		return xerrors.New(xerrors.Truncated, "need %d bytes, have %d", n, b.Remaining())
	}
	b.pos += n
	return nil
}

// --- scalar byte-order primitives (spec C1: serialize_scalar/deserialize_scalar) ---

func (b *Buffer) PutU8(v uint8) { b.Append([]byte{v}) }

func (b *Buffer) PutU16(v uint16) {
	p := b.Malloc(2)
	Order.PutUint16(p, v)
}

func (b *Buffer) PutU32(v uint32) {
	p := b.Malloc(4)
	Order.PutUint32(p, v)
}

func (b *Buffer) PutU64(v uint64) {
	p := b.Malloc(8)
	Order.PutUint64(p, v)
}

func (b *Buffer) PutI8(v int8)   { b.PutU8(uint8(v)) }
func (b *Buffer) PutI16(v int16) { b.PutU16(uint16(v)) }
func (b *Buffer) PutI32(v int32) { b.PutU32(uint32(v)) }
func (b *Buffer) PutI64(v int64) { b.PutU64(uint64(v)) }

func (b *Buffer) PutF32(v float32) { b.PutU32(math.Float32bits(v)) }
func (b *Buffer) PutF64(v float64) { b.PutU64(math.Float64bits(v)) }

func (b *Buffer) PutBool(v bool) {
	if v {
		b.PutU8(1)
	} else {
		b.PutU8(0)
	}
}

func (b *Buffer) GetU8() (uint8, error) {
	p, err := b.Next(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *Buffer) GetU16() (uint16, error) {
	p, err := b.Next(2)
	if err != nil {
		return 0, err
	}
	return Order.Uint16(p), nil
}

func (b *Buffer) GetU32() (uint32, error) {
	p, err := b.Next(4)
	if err != nil {
		return 0, err
	}
	return Order.Uint32(p), nil
}

func (b *Buffer) GetU64() (uint64, error) {
	p, err := b.Next(8)
	if err != nil {
		return 0, err
	}
	return Order.Uint64(p), nil
}

func (b *Buffer) GetI8() (int8, error) {
	v, err := b.GetU8()
	return int8(v), err
}

func (b *Buffer) GetI16() (int16, error) {
	v, err := b.GetU16()
	return int16(v), err
}

func (b *Buffer) GetI32() (int32, error) {
	v, err := b.GetU32()
	return int32(v), err
}

func (b *Buffer) GetI64() (int64, error) {
	v, err := b.GetU64()
	return int64(v), err
}

func (b *Buffer) GetF32() (float32, error) {
	v, err := b.GetU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (b *Buffer) GetF64() (float64, error) {
	v, err := b.GetU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (b *Buffer) GetBool() (bool, error) {
	v, err := b.GetU8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
