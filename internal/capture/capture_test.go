// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	h := NewHeader("/dev/ttyACM0", 115200)

	w, err := NewWriter(&buf, h)
	require.NoError(t, err)

	start := h.Started
	require.NoError(t, w.WriteChunk(start.Add(10*time.Millisecond), []byte{2, 1, 4}))
	require.NoError(t, w.WriteChunk(start.Add(11*time.Millisecond), nil))
	require.NoError(t, w.WriteChunk(start.Add(25*time.Millisecond), []byte{64, 132, 3}))

	chunks, n := w.Stats()
	assert.Equal(t, 2, chunks)
	assert.Equal(t, 6, n)

	r, err := NewReader(&buf)
	require.NoError(t, err)

	got := r.Header()
	assert.Equal(t, h.SessionID, got.SessionID)
	assert.Equal(t, "/dev/ttyACM0", got.Source)
	assert.Equal(t, 115200, got.Baud)
	assert.True(t, h.Started.Equal(got.Started))

	c, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, c.Offset)
	assert.Equal(t, []byte{2, 1, 4}, c.Data)

	c, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, 25*time.Millisecond, c.Offset)
	assert.Equal(t, []byte{64, 132, 3}, c.Data)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewHeader_SessionID(t *testing.T) {
	a := NewHeader("ws://bridge", 0)
	b := NewHeader("ws://bridge", 0)

	_, err := uuid.Parse(a.SessionID)
	require.NoError(t, err)
	assert.NotEqual(t, a.SessionID, b.SessionID)
}

func TestNewWriter_InvalidSession(t *testing.T) {
	h := NewHeader("x", 0)
	h.SessionID = "not-a-uuid"

	_, err := NewWriter(io.Discard, h)
	assert.ErrorContains(t, err, "session id")
}

func TestNewReader_Rejects(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrNotCapture)
	})

	t.Run("wrong magic", func(t *testing.T) {
		data, err := cbor.Marshal(Header{Magic: "other", Version: Version})
		require.NoError(t, err)
		_, err = NewReader(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrNotCapture)
	})

	t.Run("future version", func(t *testing.T) {
		data, err := cbor.Marshal(Header{Magic: Magic, Version: Version + 1})
		require.NoError(t, err)
		_, err = NewReader(bytes.NewReader(data))
		assert.ErrorContains(t, err, "unsupported version")
	})
}

func TestReader_TruncatedChunk(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, NewHeader("x", 0))
	require.NoError(t, err)
	require.NoError(t, w.WriteChunk(time.Now(), bytes.Repeat([]byte{0xAA}, 32)))

	data := buf.Bytes()[:buf.Len()-5]
	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	_, err = r.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}
