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

// Package lockres exposes a mutex as a pollable I/O resource (spec
// component C8), so one mux.Multiplexer.Poll call can wait for socket
// readiness and mutex availability simultaneously.
package lockres

import (
	"sync"

	"github.com/axilmar/netmsg/iopipe"
	"github.com/axilmar/netmsg/mux"
)

// Mutex pairs a sync.Mutex with a pipe: unlocking writes one byte to
// wake a waiter, and blocking Lock reads one byte before attempting the
// underlying lock, looping on contention (spec 4.8).
type Mutex struct {
	mu   sync.Mutex
	pipe *iopipe.Pipe
}

// New creates an unlocked, pollable Mutex. The pipe starts primed with
// one byte so the first Lock call can proceed without a prior Unlock.
func New() (*Mutex, error) {
	p, err := iopipe.New()
	if err != nil {
		return nil, err
	}
	if _, _, err := p.Write([]byte{1}); err != nil {
		return nil, err
	}
	return &Mutex{pipe: p}, nil
}

// TryLock attempts to acquire the mutex without touching the pipe,
// mirroring spec 4.8: "try_lock does nothing to the pipe".
func (m *Mutex) TryLock() bool {
	return m.mu.TryLock()
}

// Lock blocks until the pipe signals availability, then attempts
// try_lock; on contention (another goroutine raced ahead and took the
// mutex between the signal and the attempt) it loops, re-reading the
// pipe (spec 4.8: "on contention loops").
func (m *Mutex) Lock() error {
	buf := make([]byte, 1)
	for {
		_, open, err := m.pipe.Read(buf)
		if err != nil {
			return err
		}
		if !open {
			m.mu.Lock()
			return nil
		}
		if m.mu.TryLock() {
			return nil
		}
		// someone else grabbed it first; put the token back and retry
		if _, _, err := m.pipe.Write([]byte{1}); err != nil {
			return err
		}
	}
}

// Unlock releases the mutex and writes one byte to wake a waiter (spec
// 4.8).
func (m *Mutex) Unlock() error {
	m.mu.Unlock()
	_, _, err := m.pipe.Write([]byte{1})
	return err
}

// ReadFd exposes the pipe's read end for registration with a
// mux.Multiplexer under mux.Read: readiness means the mutex is
// available to Lock.
func (m *Mutex) ReadFd() mux.Resource {
	return mux.Resource(m.pipe.ReadFd())
}

// Close releases the underlying pipe.
func (m *Mutex) Close() error { return m.pipe.Close() }
