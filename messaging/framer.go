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
	"encoding/binary"
	"io"

	"github.com/axilmar/netmsg/bytebuf"
	"github.com/axilmar/netmsg/cipher"
	"github.com/axilmar/netmsg/crcframe"
	"github.com/axilmar/netmsg/internal/xerrors"
)

// Framer sends and receives one complete framed payload over a
// Transport. Receive returns ok=false (no error) when the transport
// reports a graceful close, the benign case spec 4.5 calls out
// separately from malformed-frame errors.
type Framer interface {
	Send(payload []byte) error
	Receive() (payload []byte, ok bool, err error)
}

// Option configures a Framer at construction time. Framers have few,
// independent, order-insensitive knobs, so functional options fit
// better here than a struct-of-knobs (contrast workerpool.Option, whose
// knobs interact and are set once as a group).
type Option func(*framerConfig)

type framerConfig struct {
	sizeWidth     int
	maxPacketSize int
	useCRC        bool
	cipher        cipher.Cipher
}

func defaultConfig() framerConfig {
	return framerConfig{sizeWidth: 2, maxPacketSize: 4096}
}

// WithSizeWidth sets the stream frame's length-prefix width in bytes
// (spec: message_size_width_bits, default 16 bits / 2 bytes).
func WithSizeWidth(bytes int) Option {
	return func(c *framerConfig) { c.sizeWidth = bytes }
}

// WithMaxPacketSize bounds a datagram frame's total size (spec:
// max_packet_size, default 4096).
func WithMaxPacketSize(n int) Option {
	return func(c *framerConfig) { c.maxPacketSize = n }
}

// WithCRC enables the trailing CRC32 on datagram frames (spec 4.6).
func WithCRC() Option {
	return func(c *framerConfig) { c.useCRC = true }
}

// WithCipher encrypts every frame, size prefix included in the stream
// case, with c (spec 4.5, "Encryption composition").
func WithCipher(c cipher.Cipher) Option {
	return func(cfg *framerConfig) { cfg.cipher = c }
}

// --- stream framing (TCP/TLS) ---

// StreamFramer implements spec 4.5's stream framing: a fixed-width
// length prefix followed by the exact payload.
type StreamFramer struct {
	t   Transport
	cfg framerConfig
}

// NewStreamFramer wraps t for size-prefixed framing.
func NewStreamFramer(t Transport, opts ...Option) *StreamFramer {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &StreamFramer{t: t, cfg: cfg}
}

func (f *StreamFramer) maxSize() uint64 {
	return uint64(1)<<(8*uint(f.cfg.sizeWidth)) - 1
}

// Send writes the size prefix then the payload, each as one logical
// unit: if a cipher is configured, each unit is encrypted as a whole
// before any bytes reach the transport, so a size-prefix chunk and a
// payload chunk are each self-contained ciphertext (spec 4.5 requires
// the prefix be covered by encryption, not that it share a keystream
// position with the payload).
func (f *StreamFramer) Send(payload []byte) error {
	if uint64(len(payload)) > f.maxSize() {
		return xerrors.New(xerrors.OversizedFrame, "payload %d bytes exceeds %d-byte size prefix capacity", len(payload), f.cfg.sizeWidth)
	}
	prefix := encodeSize(uint64(len(payload)), f.cfg.sizeWidth)
	if err := f.writeChunk(prefix); err != nil {
		return err
	}
	return f.writeChunk(payload)
}

// Receive reads the size prefix, then exactly that many payload bytes.
func (f *StreamFramer) Receive() ([]byte, bool, error) {
	prefix, ok, err := f.readChunk(f.cfg.sizeWidth)
	if !ok || err != nil {
		return nil, ok, err
	}
	size := decodeSize(prefix)
	if size > f.maxSize() {
		return nil, true, xerrors.New(xerrors.OversizedFrame, "advertised size %d exceeds size prefix capacity", size)
	}
	payload, ok, err := f.readChunk(int(size))
	if !ok || err != nil {
		return nil, ok, err
	}
	return payload, true, nil
}

func (f *StreamFramer) writeChunk(plain []byte) error {
	buf := plain
	if f.cfg.cipher != nil {
		buf = append([]byte(nil), plain...)
		f.cfg.cipher.Encrypt(buf)
	}
	_, err := writeAll(f.t, buf)
	return err
}

func (f *StreamFramer) readChunk(n int) ([]byte, bool, error) {
	if n == 0 {
		return nil, true, nil
	}
	buf := make([]byte, n)
	if err := readFull(f.t, buf); err != nil {
		if isTransportClosed(f.t, err) {
			return nil, false, nil
		}
		return nil, true, xerrors.Wrap(xerrors.SystemIO, err, "reading %d bytes", n)
	}
	if f.cfg.cipher != nil {
		f.cfg.cipher.Decrypt(buf)
	}
	return buf, true, nil
}

// --- datagram framing (UDP) ---

// DatagramFramer implements spec 4.5's datagram framing: one write per
// send, one read per receive, with an optional trailing CRC32 (spec
// 4.6) computed after encryption so it protects the wire bytes
// actually sent.
type DatagramFramer struct {
	t   Transport
	cfg framerConfig
}

// NewDatagramFramer wraps t for whole-packet datagram framing.
func NewDatagramFramer(t Transport, opts ...Option) *DatagramFramer {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &DatagramFramer{t: t, cfg: cfg}
}

func (f *DatagramFramer) Send(payload []byte) error {
	limit := f.cfg.maxPacketSize
	if f.cfg.useCRC {
		limit -= crcframe.Width
	}
	if len(payload) > limit {
		return xerrors.New(xerrors.OversizedFrame, "payload %d bytes exceeds max packet capacity %d", len(payload), limit)
	}
	buf := payload
	if f.cfg.cipher != nil {
		buf = append([]byte(nil), buf...)
		f.cfg.cipher.Encrypt(buf)
	}
	if f.cfg.useCRC {
		buf = crcframe.Append(buf)
	}
	_, err := writeAll(f.t, buf)
	return err
}

func (f *DatagramFramer) Receive() ([]byte, bool, error) {
	buf := make([]byte, f.cfg.maxPacketSize)
	n, err := f.t.Read(buf)
	if n == 0 && err != nil {
		if isTransportClosed(f.t, err) {
			return nil, false, nil
		}
		return nil, true, xerrors.Wrap(xerrors.SystemIO, err, "reading datagram")
	}
	buf = buf[:n]

	if f.cfg.useCRC {
		var verr error
		buf, verr = crcframe.Verify(buf)
		if verr != nil {
			return nil, true, verr
		}
	}
	if f.cfg.cipher != nil {
		f.cfg.cipher.Decrypt(buf)
	}
	return buf, true, nil
}

// encodeSize writes size as a width-byte scalar in bytebuf.Order.
func encodeSize(size uint64, width int) []byte {
	little := bytebuf.Order == binary.LittleEndian
	b := make([]byte, width)
	for i := 0; i < width; i++ {
		j := width - 1 - i
		if little {
			j = i
		}
		b[j] = byte(size >> (8 * uint(i)))
	}
	return b
}

// decodeSize reads a size scalar written by encodeSize.
func decodeSize(b []byte) uint64 {
	little := bytebuf.Order == binary.LittleEndian
	var size uint64
	for i := range b {
		v := b[i]
		if little {
			v = b[len(b)-1-i]
		}
		size = size<<8 | uint64(v)
	}
	return size
}

func writeAll(w io.Writer, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := w.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}
