// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Thermoquad/vescope/pkg/vesc"
)

const (
	readBufferSize = 128

	// Consecutive transient read errors tolerated before the link is
	// considered lost.
	maxReadErrors = 10
)

// linkChunk is one read from the connection.
type linkChunk struct {
	at   time.Time
	data []byte
}

// startReader reads conn in a goroutine until ctx is cancelled or the
// connection fails. The error channel receives the terminal read error, or
// nil on cancellation, and is closed afterwards. Cancelling ctx closes conn
// to unblock a pending read.
func startReader(ctx context.Context, conn Connection) (<-chan linkChunk, <-chan error) {
	chunks := make(chan linkChunk, 64)
	done := make(chan error, 1)

	context.AfterFunc(ctx, func() { conn.Close() })

	go func() {
		defer close(done)
		defer close(chunks)

		buf := make([]byte, readBufferSize)
		failures := 0
		for {
			if ctx.Err() != nil {
				done <- nil
				return
			}

			n, err := conn.Read(buf)
			if err != nil {
				if ctx.Err() != nil {
					done <- nil
					return
				}
				// For WebSocket connections, a read error usually means
				// the connection is permanently closed
				failures++
				if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) || failures >= maxReadErrors {
					done <- err
					return
				}
				logger.Warn().Err(err).Int("failures", failures).Msg("read error")
				// Brief pause before retry on transient errors (e.g., serial)
				time.Sleep(10 * time.Millisecond)
				continue
			}
			failures = 0
			if n == 0 {
				continue
			}

			chunk := linkChunk{at: time.Now(), data: append([]byte(nil), buf[:n]...)}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				done <- nil
				return
			}
		}
	}()

	return chunks, done
}

// newDecoder builds a stream decoder sized from the config.
func newDecoder() *vesc.StreamDecoder {
	return vesc.NewStreamDecoder(cfg.Decoder.BufferSize)
}

// sendCommand encodes cmd and writes the frame to conn.
func sendCommand(conn Connection, cmd vesc.Command) error {
	var frame [vesc.MaxFrameSize]byte
	n, err := vesc.Encode(cmd, frame[:])
	if err != nil {
		return err
	}
	if _, err := conn.Write(frame[:n]); err != nil {
		return err
	}
	logger.Trace().Hex("frame", frame[:n]).Stringer("cmd", cmd.CommandID()).Msg("sent")
	return nil
}

// logDecoderDelta reports decoder counters that moved since prev.
func logDecoderDelta(prev, cur vesc.StreamStats) {
	if cur.BytesSkipped == prev.BytesSkipped && cur.OverflowResets == prev.OverflowResets {
		return
	}
	logger.Debug().
		Uint64("skipped", cur.BytesSkipped-prev.BytesSkipped).
		Uint64("checksum", cur.ChecksumMismatches-prev.ChecksumMismatches).
		Uint64("unknown", cur.UnknownPackets-prev.UnknownPackets).
		Uint64("invalid", cur.InvalidFrames-prev.InvalidFrames).
		Uint64("overflow", cur.OverflowResets-prev.OverflowResets).
		Msg("resynchronized")
}

// awaitReply feeds chunks to decoder until a reply accepted by match arrives.
// It returns false when ctx is done or the reader stops first. Other replies
// decoded on the way are dropped.
func awaitReply(ctx context.Context, chunks <-chan linkChunk, decoder *vesc.StreamDecoder, match func(vesc.Reply) bool) (vesc.Reply, time.Time, bool) {
	for {
		select {
		case <-ctx.Done():
			return nil, time.Time{}, false

		case chunk, ok := <-chunks:
			if !ok {
				return nil, time.Time{}, false
			}

			var found vesc.Reply
			data := chunk.data
			for len(data) > 0 {
				n := decoder.Feed(data)
				data = data[n:]
				for reply := range decoder.Replies() {
					if found == nil && (match == nil || match(reply)) {
						found = reply
					}
				}
			}
			if found != nil {
				return found, chunk.at, true
			}
		}
	}
}
