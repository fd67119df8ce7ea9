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

// Package bufpool is a size-classed byte-slice pool, the same shape as
// cache/mempool's power-of-two sync.Pool ladder, rewritten around
// message.Allocator's Allocate/Free contract instead of mempool's
// Malloc/Free/Cap/Append API: callers ask for a size, get back a slice
// whose cap may be larger (rounded up to the next class), and return it
// with Put when done.
package bufpool

import (
	"math/bits"
	"sync"
)

const (
	minClassSize = 256
	numClasses   = 24 // covers 256B .. 2GB
)

var classes [numClasses]sync.Pool

func init() {
	for i := range classes {
		size := classSize(i)
		classes[i].New = func() interface{} {
			b := make([]byte, size)
			return &b
		}
	}
}

func classSize(i int) int { return minClassSize << uint(i) }

// classFor returns the smallest class index whose size is >= n.
func classFor(n int) int {
	if n <= minClassSize {
		return 0
	}
	// bits.Len(n-1) gives the exponent of the next power of two >= n.
	shift := bits.Len(uint(n-1)) - bits.Len(uint(minClassSize-1))
	if shift < 0 {
		shift = 0
	}
	if shift >= numClasses {
		shift = numClasses - 1
	}
	return shift
}

// Get returns a slice of length n backed by a pooled buffer whose
// capacity may exceed n (rounded up to a size class). If n exceeds the
// largest class, a fresh heap slice is returned (and Put on it is a
// cheap no-op/GC-eligible return).
func Get(n int) []byte {
	if n <= 0 {
		return nil
	}
	if n > classSize(numClasses-1) {
		return make([]byte, n)
	}
	i := classFor(n)
	bp := classes[i].Get().(*[]byte)
	buf := (*bp)[:n]
	return buf
}

// Put returns buf to its size class pool. Buffers not obtained from Get
// (wrong capacity for any class) are silently dropped for the GC to
// reclaim, mirroring cache/mempool.Free's "not malloc by this package"
// tolerance.
func Put(buf []byte) {
	c := cap(buf)
	if c < minClassSize {
		return
	}
	i := classFor(c)
	if classSize(i) != c {
		return
	}
	full := buf[:c]
	classes[i].Put(&full)
}
