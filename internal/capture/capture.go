// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records raw link traffic to a CBOR file and plays it back.
//
// A capture file is a sequence of CBOR items: one Header followed by any
// number of Chunks, in the order the bytes were received.
package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Magic identifies a capture file.
const Magic = "vescope-capture"

// Version is the capture format version written by this package.
const Version = 1

// Timestamps keep nanosecond precision
var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// ErrNotCapture is returned when a file does not start with a capture header.
var ErrNotCapture = errors.New("capture: not a capture file")

// Header describes a capture session.
type Header struct {
	Magic     string    `cbor:"1,keyasint"`
	Version   uint      `cbor:"2,keyasint"`
	SessionID string    `cbor:"3,keyasint"`
	Started   time.Time `cbor:"4,keyasint"`
	Source    string    `cbor:"5,keyasint,omitempty"`
	Baud      int       `cbor:"6,keyasint,omitempty"`
}

// Chunk is one read from the link.
type Chunk struct {
	Offset time.Duration `cbor:"1,keyasint"` // since Header.Started
	Data   []byte        `cbor:"2,keyasint"`
}

// NewHeader creates a header for a new session on source.
func NewHeader(source string, baud int) Header {
	return Header{
		Magic:     Magic,
		Version:   Version,
		SessionID: uuid.NewString(),
		Started:   time.Now().UTC(),
		Source:    source,
		Baud:      baud,
	}
}

// Writer appends chunks to a capture stream.
type Writer struct {
	enc    *cbor.Encoder
	header Header
	chunks int
	bytes  int
}

// NewWriter writes h to w and returns a writer for the chunks that follow.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	if _, err := uuid.Parse(h.SessionID); err != nil {
		return nil, fmt.Errorf("capture: invalid session id: %w", err)
	}

	enc := encMode.NewEncoder(w)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("capture: write header: %w", err)
	}
	return &Writer{enc: enc, header: h}, nil
}

// Header returns the session header.
func (w *Writer) Header() Header {
	return w.header
}

// WriteChunk records data as received at ts. Empty reads are skipped.
func (w *Writer) WriteChunk(ts time.Time, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	chunk := Chunk{Offset: ts.Sub(w.header.Started), Data: data}
	if err := w.enc.Encode(chunk); err != nil {
		return fmt.Errorf("capture: write chunk: %w", err)
	}
	w.chunks++
	w.bytes += len(data)
	return nil
}

// Stats returns the number of chunks and bytes written.
func (w *Writer) Stats() (chunks, bytes int) {
	return w.chunks, w.bytes
}

// Reader reads chunks from a capture stream.
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader reads and checks the header of a capture stream.
func NewReader(r io.Reader) (*Reader, error) {
	dec := cbor.NewDecoder(r)

	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCapture, err)
	}
	if h.Magic != Magic {
		return nil, ErrNotCapture
	}
	if h.Version != Version {
		return nil, fmt.Errorf("capture: unsupported version %d", h.Version)
	}
	return &Reader{dec: dec, header: h}, nil
}

// Header returns the session header.
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next chunk, or io.EOF at the end of the capture.
func (r *Reader) Next() (Chunk, error) {
	var c Chunk
	if err := r.dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return Chunk{}, io.EOF
		}
		return Chunk{}, fmt.Errorf("capture: read chunk: %w", err)
	}
	return c, nil
}
