// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

import (
	"errors"
	"iter"
)

// DefaultStreamCapacity is the buffer size used when none is given. It holds
// the largest short frame with room to spare.
const DefaultStreamCapacity = 512

// StreamStats counts what a StreamDecoder has seen.
type StreamStats struct {
	FramesDecoded      uint64
	BytesSkipped       uint64
	ChecksumMismatches uint64
	UnknownPackets     uint64
	InvalidFrames      uint64
	OverflowResets     uint64
}

// StreamDecoder extracts replies from a byte stream that may be split at any
// point and may contain noise. Corrupted bytes are skipped one at a time until
// a valid frame is found.
//
// The zero value is ready to use. A StreamDecoder must not be used from more
// than one goroutine at a time.
type StreamDecoder struct {
	buf   []byte
	rpos  int
	wpos  int
	stats StreamStats
}

// NewStreamDecoder creates a decoder with the given buffer capacity. A
// capacity of zero or less selects DefaultStreamCapacity.
func NewStreamDecoder(capacity int) *StreamDecoder {
	if capacity <= 0 {
		capacity = DefaultStreamCapacity
	}
	return &StreamDecoder{buf: make([]byte, capacity)}
}

// Feed appends data to the internal buffer and returns how many bytes were
// accepted. Bytes that were not accepted should be fed again after draining
// the decoder with Next.
//
// When unread data fills the whole buffer and no frame can be decoded from it,
// the buffer is discarded so the stream cannot stall.
func (d *StreamDecoder) Feed(data []byte) int {
	if d.buf == nil {
		d.buf = make([]byte, DefaultStreamCapacity)
	}

	if len(data) > len(d.buf)-d.wpos {
		copy(d.buf, d.buf[d.rpos:d.wpos])
		d.wpos -= d.rpos
		d.rpos = 0
	}

	if d.wpos == len(d.buf) {
		d.stats.OverflowResets++
		d.stats.BytesSkipped += uint64(d.wpos)
		d.rpos = 0
		d.wpos = 0
	}

	n := copy(d.buf[d.wpos:], data)
	d.wpos += n
	return n
}

// Next returns the next decodable reply, or false when the buffered data does
// not contain a complete frame.
func (d *StreamDecoder) Next() (Reply, bool) {
	return scan(d, Decode)
}

// NextCommand is the controller-side counterpart of Next: it returns the next
// decodable command. Replies and commands share ids, so a decoder should be
// used for one direction only.
func (d *StreamDecoder) NextCommand() (Command, bool) {
	return scan(d, DecodeCommand)
}

// scan decodes at increasing offsets, skipping one byte per rejected
// position, until a frame decodes or more data is needed.
func scan[T any](d *StreamDecoder, decode func([]byte) (int, T, error)) (T, bool) {
	var zero T
	for d.rpos < d.wpos {
		n, v, err := decode(d.buf[d.rpos:d.wpos])
		if err == nil {
			d.rpos += n
			d.stats.FramesDecoded++
			return v, true
		}

		switch {
		case errors.Is(err, ErrIncompleteData):
			return zero, false
		case errors.Is(err, ErrChecksumMismatch):
			d.stats.ChecksumMismatches++
		case errors.Is(err, ErrUnknownPacket):
			d.stats.UnknownPackets++
		case d.buf[d.rpos] == FrameStartShort:
			// Only count rejected frames, not every noise byte
			d.stats.InvalidFrames++
		}

		d.rpos++
		d.stats.BytesSkipped++
	}
	return zero, false
}

// Replies returns an iterator over every reply currently decodable from the
// buffer.
func (d *StreamDecoder) Replies() iter.Seq[Reply] {
	return func(yield func(Reply) bool) {
		for {
			reply, ok := d.Next()
			if !ok || !yield(reply) {
				return
			}
		}
	}
}

// Buffered returns the number of unread bytes.
func (d *StreamDecoder) Buffered() int {
	return d.wpos - d.rpos
}

// Reset discards all buffered data. Statistics are kept.
func (d *StreamDecoder) Reset() {
	d.rpos = 0
	d.wpos = 0
}

// Stats returns a snapshot of the decoder counters.
func (d *StreamDecoder) Stats() StreamStats {
	return d.stats
}
