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

// Package iopipe implements an in-kernel bidirectional byte channel
// (spec component C9), used by mux as its internal wakeup descriptor
// and by lockres to expose a mutex as a pollable resource.
package iopipe

import (
	"errors"
	"io"
	"os"
	"syscall"

	"github.com/axilmar/netmsg/internal/xerrors"
)

// Pipe is a pair of kernel file descriptors: a read end and a write
// end, each closeable independently. Closing the write end causes
// subsequent reads to observe the closed state instead of blocking
// forever (spec: "closing the write end causes subsequent reads to
// yield Closed").
type Pipe struct {
	r, w *os.File
}

// New creates a pipe; both ends are created atomically.
func New() (*Pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.SystemIO, err, "creating pipe")
	}
	return &Pipe{r: r, w: w}, nil
}

// ReadFd returns the raw descriptor of the read end, for registration
// with mux.Multiplexer.
func (p *Pipe) ReadFd() uintptr { return p.r.Fd() }

// Write writes b to the write end. It returns the number of
// bytes transferred and whether the pipe is still usable for writing.
func (p *Pipe) Write(b []byte) (n int, open bool, err error) {
	n, err = p.w.Write(b)
	if err != nil {
		if isClosedErr(err) {
			return n, false, nil
		}
		return n, true, xerrors.Wrap(xerrors.SystemIO, err, "writing to pipe")
	}
	return n, true, nil
}

// Read reads into b from the read end. It returns the number of bytes
// transferred and whether the pipe is still open for reading.
func (p *Pipe) Read(b []byte) (n int, open bool, err error) {
	n, err = p.r.Read(b)
	if err != nil {
		if isClosedErr(err) {
			return n, false, nil
		}
		return n, true, xerrors.Wrap(xerrors.SystemIO, err, "reading from pipe")
	}
	return n, true, nil
}

// CloseRead closes the read end only.
func (p *Pipe) CloseRead() error { return p.r.Close() }

// CloseWrite closes the write end only.
func (p *Pipe) CloseWrite() error { return p.w.Close() }

// Close closes both ends.
func (p *Pipe) Close() error {
	err1 := p.CloseRead()
	err2 := p.CloseWrite()
	if err1 != nil {
		return err1
	}
	return err2
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) || errors.Is(err, syscall.EPIPE)
}
