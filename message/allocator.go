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

import "github.com/axilmar/netmsg/internal/bufpool"

// Allocator is the polymorphic memory source a caller passes to
// Registry.Deserialize, mirroring the std::pmr::memory_resource
// parameter of the original message_registry: thread-local, pooled, or
// shared, chosen by the caller rather than hardcoded by the registry.
type Allocator interface {
	Allocate(size int) []byte
	Free(buf []byte)
}

// DefaultAllocator is a size-classed pooling allocator, grounded on
// cache/mempool's pooled-by-size-class design: Allocate/Free recycle
// same-size buffers through a small set of sync.Pool size classes
// instead of hitting the garbage collector on every message.
var DefaultAllocator Allocator = poolAllocator{}

type poolAllocator struct{}

func (poolAllocator) Allocate(size int) []byte { return bufpool.Get(size) }
func (poolAllocator) Free(buf []byte)          { bufpool.Put(buf) }

// HeapAllocator allocates directly from the Go heap, for callers that
// don't want pooled buffers (e.g. when a decoded message outlives any
// pool recycling policy by a wide margin).
var HeapAllocator Allocator = heapAllocator{}

type heapAllocator struct{}

func (heapAllocator) Allocate(size int) []byte { return make([]byte, size) }
func (heapAllocator) Free([]byte)               {}
