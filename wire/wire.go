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

// Package wire implements the binary serialization codec (spec component
// C2): the bidirectional mapping between typed field values and a
// bytebuf.Buffer, for every field category a message can be built from.
//
// The primitive Put*/Get* functions mirror protocol/thrift's
// BinaryProtocol Write*/Read* pair (one function per wire category,
// each returning/consuming exactly the bytes it wrote), generalized from
// thrift's fixed set of Thrift types to netmsg's field categories:
// strings, byte slices, bool arrays, fixed arrays, variable lists, maps,
// sets, pairs, optionals and tagged unions. Scalars are read and written
// by bytebuf.Buffer's own Put*/Get* methods.
package wire

import (
	"github.com/axilmar/netmsg/bytebuf"
	"github.com/axilmar/netmsg/internal/xerrors"
)

// LengthWidth is the width, in bytes, of the size prefix written before
// lists, maps, sets, strings and byte slices. It mirrors the 4-byte
// length prefix protocol/thrift.BinaryProtocol uses for WriteString/
// WriteBinary.
const LengthWidth = 4

// Codec is implemented by any composite or message value that wants to
// participate in recursive serialization (spec 4.2 "Extensibility
// contract"): it knows how to encode itself into a Buffer and decode
// itself back out.
type Codec interface {
	EncodeTo(b *bytebuf.Buffer)
	DecodeFrom(b *bytebuf.Buffer) error
}

func putLen(b *bytebuf.Buffer, n int) {
	b.PutU32(uint32(n))
}

func getLen(b *bytebuf.Buffer) (int, error) {
	n, err := b.GetU32()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// PutString writes a length-prefixed UTF-8 string.
func PutString(b *bytebuf.Buffer, s string) {
	putLen(b, len(s))
	b.Append([]byte(s))
}

// GetString reads a length-prefixed UTF-8 string.
func GetString(b *bytebuf.Buffer) (string, error) {
	n, err := getLen(b)
	if err != nil {
		return "", err
	}
	p, err := b.Next(n)
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// PutBytes writes a length-prefixed byte slice.
func PutBytes(b *bytebuf.Buffer, v []byte) {
	putLen(b, len(v))
	b.Append(v)
}

// GetBytes reads a length-prefixed byte slice. The returned slice is a
// fresh copy, safe to retain past the Buffer's lifetime.
func GetBytes(b *bytebuf.Buffer) ([]byte, error) {
	n, err := getLen(b)
	if err != nil {
		return nil, err
	}
	p, err := b.Next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, p)
	return out, nil
}

// PutBoolArray packs n booleans into ceil(n/8) bytes, bit i of byte i/8,
// LSB first, per spec 4.1.
func PutBoolArray(b *bytebuf.Buffer, v []bool) {
	nbytes := (len(v) + 7) / 8
	packed := make([]byte, nbytes)
	for i, bit := range v {
		if bit {
			packed[i/8] |= 1 << uint(i%8)
		}
	}
	b.Append(packed)
}

// GetBoolArray unpacks n booleans from ceil(n/8) bytes.
func GetBoolArray(b *bytebuf.Buffer, n int) ([]bool, error) {
	nbytes := (n + 7) / 8
	packed, err := b.Next(nbytes)
	if err != nil {
		return nil, err
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = packed[i/8]&(1<<uint(i%8)) != 0
	}
	return out, nil
}

// PutArray writes a fixed-size sequence of N values of T using put for
// each element. The element count is not written: callers on both sides
// must agree on N out of band (it is part of the field's static type),
// matching spec 4.2's "array of N of T: N consecutive T serializations".
func PutArray[T any](b *bytebuf.Buffer, v []T, put func(*bytebuf.Buffer, T)) {
	for _, e := range v {
		put(b, e)
	}
}

// GetArray reads n consecutive T values. n comes straight off the wire
// in the List case (a length prefix read before a single
// element), so it is never trusted as an allocation size on its own: a
// short or malicious frame advertising a huge n must fail with
// Truncated rather than attempt a huge up-front allocation (spec 7,
// §3 "reads past length fail with Truncated ... no panics"). Every
// element occupies at least one wire byte, so n can never legitimately
// exceed the buffer's remaining byte count; anything larger is
// rejected before make() ever runs. The slice still grows
// incrementally (not pre-sized to n) so a large-but-plausible n backed
// by too few actual bytes fails on the first short element read
// instead of over-allocating for elements that never arrive.
func GetArray[T any](b *bytebuf.Buffer, n int, get func(*bytebuf.Buffer) (T, error)) ([]T, error) {
	if n < 0 || n > b.Remaining() {
		return nil, xerrors.New(xerrors.Truncated, "element count %d exceeds %d remaining bytes", n, b.Remaining())
	}
	out := make([]T, 0)
	for i := 0; i < n; i++ {
		v, err := get(b)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// PutList writes a variable-size sequence: a length prefix followed by
// that many T serializations.
func PutList[T any](b *bytebuf.Buffer, v []T, put func(*bytebuf.Buffer, T)) {
	putLen(b, len(v))
	for _, e := range v {
		put(b, e)
	}
}

// GetList reads a length-prefixed variable-size sequence of T. The
// element count bound against the buffer's remaining bytes (not just
// read off the wire) is enforced by GetArray.
func GetList[T any](b *bytebuf.Buffer, get func(*bytebuf.Buffer) (T, error)) ([]T, error) {
	n, err := getLen(b)
	if err != nil {
		return nil, err
	}
	return GetArray(b, n, get)
}

// PutMap writes a length-prefixed sequence of (key, value) pairs.
func PutMap[K comparable, V any](b *bytebuf.Buffer, m map[K]V, putK func(*bytebuf.Buffer, K), putV func(*bytebuf.Buffer, V)) {
	putLen(b, len(m))
	for k, v := range m {
		putK(b, k)
		putV(b, v)
	}
}

// GetMap reads a length-prefixed sequence of (key, value) pairs. As in
// GetArray, n is bound against the buffer's remaining bytes before
// being used to size the map, so a short or malicious frame
// advertising a huge count fails with Truncated instead of attempting
// a huge up-front allocation.
func GetMap[K comparable, V any](b *bytebuf.Buffer, getK func(*bytebuf.Buffer) (K, error), getV func(*bytebuf.Buffer) (V, error)) (map[K]V, error) {
	n, err := getLen(b)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > b.Remaining() {
		return nil, xerrors.New(xerrors.Truncated, "map entry count %d exceeds %d remaining bytes", n, b.Remaining())
	}
	m := make(map[K]V, n)
	for i := 0; i < n; i++ {
		k, err := getK(b)
		if err != nil {
			return nil, err
		}
		v, err := getV(b)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

// PutSet writes a length-prefixed sequence of distinct T values.
func PutSet[T comparable](b *bytebuf.Buffer, s map[T]struct{}, put func(*bytebuf.Buffer, T)) {
	putLen(b, len(s))
	for e := range s {
		put(b, e)
	}
}

// GetSet reads a length-prefixed sequence into a set. n is bound
// against the buffer's remaining bytes before sizing the set, for the
// same reason GetArray/GetMap bound it (spec 7, "no panics").
func GetSet[T comparable](b *bytebuf.Buffer, get func(*bytebuf.Buffer) (T, error)) (map[T]struct{}, error) {
	n, err := getLen(b)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > b.Remaining() {
		return nil, xerrors.New(xerrors.Truncated, "set entry count %d exceeds %d remaining bytes", n, b.Remaining())
	}
	s := make(map[T]struct{}, n)
	for i := 0; i < n; i++ {
		e, err := get(b)
		if err != nil {
			return nil, err
		}
		s[e] = struct{}{}
	}
	return s, nil
}

// PutOptional writes a bool presence flag followed by the value if present.
func PutOptional[T any](b *bytebuf.Buffer, v *T, put func(*bytebuf.Buffer, T)) {
	b.PutBool(v != nil)
	if v != nil {
		put(b, *v)
	}
}

// GetOptional reads a presence flag and, if set, the value.
func GetOptional[T any](b *bytebuf.Buffer, get func(*bytebuf.Buffer) (T, error)) (*T, error) {
	present, err := b.GetBool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	v, err := get(b)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// PutTuple2 writes an ordered pair (T1, T2).
func PutTuple2[T1, T2 any](b *bytebuf.Buffer, v1 T1, v2 T2, put1 func(*bytebuf.Buffer, T1), put2 func(*bytebuf.Buffer, T2)) {
	put1(b, v1)
	put2(b, v2)
}

// GetTuple2 reads an ordered pair (T1, T2).
func GetTuple2[T1, T2 any](b *bytebuf.Buffer, get1 func(*bytebuf.Buffer) (T1, error), get2 func(*bytebuf.Buffer) (T2, error)) (T1, T2, error) {
	var z1 T1
	var z2 T2
	v1, err := get1(b)
	if err != nil {
		return z1, z2, err
	}
	v2, err := get2(b)
	if err != nil {
		return z1, z2, err
	}
	return v1, v2, nil
}

// PutTuple3 writes an ordered triple (T1, T2, T3). Heterogeneous tuples
// of higher arity are expressed as a user-defined Codec composite that
// calls the element Put functions in declaration order, per the
// extensibility contract in spec 4.2.
func PutTuple3[T1, T2, T3 any](b *bytebuf.Buffer, v1 T1, v2 T2, v3 T3, put1 func(*bytebuf.Buffer, T1), put2 func(*bytebuf.Buffer, T2), put3 func(*bytebuf.Buffer, T3)) {
	put1(b, v1)
	put2(b, v2)
	put3(b, v3)
}

// GetTuple3 reads an ordered triple (T1, T2, T3).
func GetTuple3[T1, T2, T3 any](b *bytebuf.Buffer, get1 func(*bytebuf.Buffer) (T1, error), get2 func(*bytebuf.Buffer) (T2, error), get3 func(*bytebuf.Buffer) (T3, error)) (T1, T2, T3, error) {
	var z1 T1
	var z2 T2
	var z3 T3
	v1, err := get1(b)
	if err != nil {
		return z1, z2, z3, err
	}
	v2, err := get2(b)
	if err != nil {
		return z1, z2, z3, err
	}
	v3, err := get3(b)
	if err != nil {
		return z1, z2, z3, err
	}
	return v1, v2, v3, nil
}
