// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func requireValues(t *testing.T, reply Reply, ok bool, want Values) {
	t.Helper()
	require.True(t, ok, "expected a reply")
	if diff := diffValues(want, reply.Telemetry()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestStreamDecoder_SingleFrame(t *testing.T) {
	d := NewStreamDecoder(0)
	assert.Equal(t, len(frameSelectiveForward), d.Feed(frameSelectiveForward))

	reply, ok := d.Next()
	requireValues(t, reply, ok, valuesSelectiveForward)
	assert.IsType(t, GetValuesSelectiveReply{}, reply)
	assert.Equal(t, 0, d.Buffered())

	_, ok = d.Next()
	assert.False(t, ok)
}

func TestStreamDecoder_ZeroValue(t *testing.T) {
	var d StreamDecoder
	d.Feed(frameSelectiveForward)

	reply, ok := d.Next()
	requireValues(t, reply, ok, valuesSelectiveForward)
}

func TestStreamDecoder_FeedInChunks(t *testing.T) {
	d := NewStreamDecoder(0)
	for chunk := range slices.Chunk(frameValuesForward, 5) {
		d.Feed(chunk)
	}

	reply, ok := d.Next()
	requireValues(t, reply, ok, valuesForward)
}

func TestStreamDecoder_NothingUntilComplete(t *testing.T) {
	d := NewStreamDecoder(0)
	step := len(frameValuesForward) / 5

	for i := 0; i < len(frameValuesForward); i += step {
		end := min(i+step, len(frameValuesForward))
		d.Feed(frameValuesForward[i:end])
		if end < len(frameValuesForward) {
			_, ok := d.Next()
			require.False(t, ok, "reply before byte %d", end)
		}
	}

	reply, ok := d.Next()
	requireValues(t, reply, ok, valuesForward)
}

func TestStreamDecoder_TwoFramesSingleFeed(t *testing.T) {
	d := NewStreamDecoder(0)
	d.Feed(concat(frameSelectiveZeroRPM, frameSelectiveForward))

	reply, ok := d.Next()
	requireValues(t, reply, ok, valuesSelectiveZeroRPM)
	reply, ok = d.Next()
	requireValues(t, reply, ok, valuesSelectiveForward)
}

func TestStreamDecoder_TwoFramesSeparateFeeds(t *testing.T) {
	d := NewStreamDecoder(0)
	d.Feed(frameSelectiveZeroRPM)
	d.Feed(frameSelectiveForward)

	reply, ok := d.Next()
	requireValues(t, reply, ok, valuesSelectiveZeroRPM)
	reply, ok = d.Next()
	requireValues(t, reply, ok, valuesSelectiveForward)
}

func TestStreamDecoder_IncompleteFrameIsKept(t *testing.T) {
	d := NewStreamDecoder(0)
	d.Feed(frameSelectiveForward[:len(frameSelectiveForward)-1])

	_, ok := d.Next()
	assert.False(t, ok)
	assert.Equal(t, len(frameSelectiveForward)-1, d.Buffered())
	assert.Equal(t, StreamStats{}, d.Stats())

	d.Feed(frameSelectiveForward[len(frameSelectiveForward)-1:])
	reply, ok := d.Next()
	requireValues(t, reply, ok, valuesSelectiveForward)
}

func TestStreamDecoder_DropsBadChecksum(t *testing.T) {
	d := NewStreamDecoder(0)
	d.Feed(frameSelectiveBadChecksum)

	_, ok := d.Next()
	assert.False(t, ok)
	assert.Equal(t, 0, d.Buffered())
	assert.Equal(t, uint64(1), d.Stats().ChecksumMismatches)
}

func TestStreamDecoder_DropsUnknownPacket(t *testing.T) {
	d := NewStreamDecoder(0)
	d.Feed(frameUnknownPacket)

	_, ok := d.Next()
	assert.False(t, ok)
	assert.Equal(t, StreamStats{BytesSkipped: 8, UnknownPackets: 1}, d.Stats())
}

func TestStreamDecoder_SkipsJunk(t *testing.T) {
	d := NewStreamDecoder(0)
	d.Feed(concat([]byte{10, 34, 12}, frameSelectiveZeroRPM, []byte{4, 178, 255}, frameSelectiveForward))

	reply, ok := d.Next()
	requireValues(t, reply, ok, valuesSelectiveZeroRPM)
	reply, ok = d.Next()
	requireValues(t, reply, ok, valuesSelectiveForward)

	assert.Equal(t, StreamStats{FramesDecoded: 2, BytesSkipped: 6}, d.Stats())
}

func TestStreamDecoder_RecoversFromFalseStart(t *testing.T) {
	d := NewStreamDecoder(0)
	d.Feed(concat([]byte{2, 5, 50, 0, 0, 0, 1}, frameSelectiveForward))

	reply, ok := d.Next()
	requireValues(t, reply, ok, valuesSelectiveForward)

	stats := d.Stats()
	assert.Equal(t, uint64(7), stats.BytesSkipped)
	assert.Equal(t, uint64(1), stats.InvalidFrames)
}

func TestStreamDecoder_RepliesCollectsValidFrames(t *testing.T) {
	d := NewStreamDecoder(0)
	d.Feed(concat(
		[]byte{2, 45, 4},
		frameValuesForward,
		frameSelectiveBadChecksum,
		frameSelectiveReverse,
		frameUnknownPacket,
	))

	replies := slices.Collect(d.Replies())
	require.Len(t, replies, 2)
	requireValues(t, replies[0], true, valuesForward)
	requireValues(t, replies[1], true, valuesSelectiveReverse)

	stats := d.Stats()
	assert.Equal(t, uint64(2), stats.FramesDecoded)
	assert.Equal(t, uint64(1), stats.ChecksumMismatches)
	assert.Equal(t, 0, d.Buffered())
}

func TestStreamDecoder_RepliesStopsEarly(t *testing.T) {
	d := NewStreamDecoder(0)
	d.Feed(concat(frameSelectiveZeroRPM, frameSelectiveForward))

	for range d.Replies() {
		break
	}

	reply, ok := d.Next()
	requireValues(t, reply, ok, valuesSelectiveForward)
}

func TestStreamDecoder_FeedReportsAccepted(t *testing.T) {
	d := NewStreamDecoder(40)
	assert.Equal(t, 40, d.Feed(frameValuesForward))
	assert.Equal(t, 40, d.Buffered())
}

func TestStreamDecoder_CompactsBeforeFeeding(t *testing.T) {
	d := NewStreamDecoder(40)
	d.Feed(frameSelectiveZeroRPM)
	_, ok := d.Next()
	require.True(t, ok)

	// 28 bytes no longer fit behind the consumed frame without compaction
	assert.Equal(t, len(frameSelectiveForward), d.Feed(frameSelectiveForward))
	reply, ok := d.Next()
	requireValues(t, reply, ok, valuesSelectiveForward)
	assert.Equal(t, uint64(0), d.Stats().OverflowResets)
}

func TestStreamDecoder_OverflowReset(t *testing.T) {
	d := NewStreamDecoder(40)
	d.Feed(frameValuesForward)

	// A frame larger than the buffer can never complete
	_, ok := d.Next()
	require.False(t, ok)

	assert.Equal(t, len(frameSelectiveForward), d.Feed(frameSelectiveForward))
	reply, ok := d.Next()
	requireValues(t, reply, ok, valuesSelectiveForward)

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats.OverflowResets)
	assert.Equal(t, uint64(40), stats.BytesSkipped)
}

func TestStreamDecoder_Reset(t *testing.T) {
	d := NewStreamDecoder(0)
	d.Feed(frameSelectiveForward[:10])
	d.Reset()
	assert.Equal(t, 0, d.Buffered())

	d.Feed(frameSelectiveZeroRPM)
	reply, ok := d.Next()
	requireValues(t, reply, ok, valuesSelectiveZeroRPM)
}

func TestStreamDecoder_NextCommand(t *testing.T) {
	d := NewStreamDecoder(64)
	stream := concat(
		[]byte{0xFF, 0x02},
		[]byte{2, 5, 6, 0, 0, 5, 220, 56, 129, 3},
		[]byte{2, 7, 34, 5, 8, 0, 0, 11, 184, 181, 16, 3},
	)
	d.Feed(stream)

	cmd, ok := d.NextCommand()
	require.True(t, ok)
	assert.Equal(t, SetCurrent{Amps: 1.5}, cmd)

	cmd, ok = d.NextCommand()
	require.True(t, ok)
	assert.Equal(t, ForwardCAN{TargetID: 5, Inner: SetRPM{RPM: 3000}}, cmd)

	_, ok = d.NextCommand()
	assert.False(t, ok)

	st := d.Stats()
	assert.Equal(t, uint64(2), st.FramesDecoded)
	assert.Equal(t, uint64(2), st.BytesSkipped)
}
