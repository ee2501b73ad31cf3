// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Decode
// ============================================================

func TestDecode_GetValues(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  Values
	}{
		{"zero rpm", frameValuesZeroRPM, valuesZeroRPM},
		{"forward rpm", frameValuesForward, valuesForward},
		{"reverse rpm", frameValuesReverse, valuesReverse},
		{"motor fault", frameValuesMotorFault, withFault(valuesReverse, FaultUnderVoltage)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, reply, err := Decode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, 79, n)

			got, ok := reply.(GetValuesReply)
			require.True(t, ok, "expected GetValuesReply, got %T", reply)
			assert.Equal(t, CommGetValues, got.CommandID())
			assert.Equal(t, FieldAll, got.Fields())
			if diff := diffValues(tt.want, got.Values); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_GetValuesSelective(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  Values
	}{
		{"zero rpm", frameSelectiveZeroRPM, valuesSelectiveZeroRPM},
		{"forward rpm", frameSelectiveForward, valuesSelectiveForward},
		{"reverse rpm", frameSelectiveReverse, valuesSelectiveReverse},
		{"fault code", frameSelectiveFault, withFault(valuesSelectiveReverse, FaultAbsOverCurrent)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, reply, err := Decode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, 28, n)

			got, ok := reply.(GetValuesSelectiveReply)
			require.True(t, ok, "expected GetValuesSelectiveReply, got %T", reply)
			assert.Equal(t, CommGetValuesSelective, got.CommandID())
			assert.Equal(t, selectiveMask, got.Mask)
			if diff := diffValues(tt.want, got.Telemetry()); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_IgnoresTrailingBytes(t *testing.T) {
	input := append(append([]byte{}, frameSelectiveForward...), 0xAA, 0x02, 0x17)

	n, _, err := Decode(input)
	require.NoError(t, err)
	assert.Equal(t, len(frameSelectiveForward), n)
}

func TestDecode_IncompleteData(t *testing.T) {
	for _, frame := range [][]byte{frameSelectiveZeroRPM, frameValuesForward} {
		for i := 0; i < len(frame); i++ {
			_, reply, err := Decode(frame[:i])
			if !errors.Is(err, ErrIncompleteData) {
				t.Fatalf("prefix len %d: expected ErrIncompleteData, got %v", i, err)
			}
			assert.Nil(t, reply)
		}
	}
}

func TestDecode_ChecksumMismatch(t *testing.T) {
	_, _, err := Decode(frameSelectiveBadChecksum)
	require.ErrorIs(t, err, ErrChecksumMismatch)

	var mismatch *ChecksumMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, uint16(24194), mismatch.Expected)
	assert.Equal(t, uint16(20131), mismatch.Actual)
}

func TestDecode_ChecksumMismatchTakesPrecedenceOverEnd(t *testing.T) {
	input := append([]byte{}, frameSelectiveBadChecksum...)
	input[len(input)-1] = 2

	_, _, err := Decode(input)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.NotErrorIs(t, err, ErrInvalidFrame)
}

func TestDecode_UnknownPacket(t *testing.T) {
	_, _, err := Decode(frameUnknownPacket)
	require.ErrorIs(t, err, ErrUnknownPacket)

	var unknown *UnknownPacketError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, uint8(222), unknown.ID)
}

func TestDecode_InvalidFrame(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b []byte)
	}{
		{"bad start", func(b []byte) { b[0] = 7 }},
		{"bad end", func(b []byte) { b[len(b)-1] = 2 }},
		{"length too long", func(b []byte) { b[1]++ }},
		{"length too short", func(b []byte) { b[1]-- }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := append([]byte{}, frameSelectiveZeroRPM...)
			tt.mutate(input)

			_, reply, err := Decode(input)
			assert.ErrorIs(t, err, ErrInvalidFrame)
			assert.Nil(t, reply)
		})
	}
}

func TestDecode_CommandFrameIsUnknownReply(t *testing.T) {
	buf := make([]byte, MaxFrameSize)
	n, err := Encode(SetRPM{RPM: 3000}, buf)
	require.NoError(t, err)

	_, _, err = Decode(buf[:n])
	assert.ErrorIs(t, err, ErrUnknownPacket)
}

// ============================================================
// Encode
// ============================================================

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want []byte
	}{
		{"get values", GetValues{}, []byte{2, 1, 4, 64, 132, 3}},
		{"set current", SetCurrent{Amps: 1.5}, []byte{2, 5, 6, 0, 0, 5, 220, 56, 129, 3}},
		{"set current reverse", SetCurrent{Amps: -2.25}, []byte{2, 5, 6, 255, 255, 247, 54, 149, 134, 3}},
		{"set rpm", SetRPM{RPM: 3000}, []byte{2, 5, 8, 0, 0, 11, 184, 248, 4, 3}},
		{"set handbrake", SetHandbrake{Amps: 4}, []byte{2, 5, 10, 0, 0, 15, 160, 227, 122, 3}},
		{"forward can", ForwardCAN{TargetID: 5, Inner: SetRPM{RPM: 3000}}, []byte{2, 7, 34, 5, 8, 0, 0, 11, 184, 181, 16, 3}},
		{"get values selective", GetValuesSelective{Mask: selectiveMask}, []byte{2, 5, 50, 0, 2, 161, 138, 56, 128, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, MaxFrameSize)
			n, err := Encode(tt.cmd, buf)
			require.NoError(t, err)
			assert.Equal(t, tt.want, buf[:n])
		})
	}
}

func TestEncode_ExactBuffer(t *testing.T) {
	buf := make([]byte, 6)
	n, err := Encode(GetValues{}, buf)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestEncode_BufferTooSmall(t *testing.T) {
	cmd := ForwardCAN{TargetID: 5, Inner: SetRPM{RPM: 3000}}
	for size := 0; size < 12; size++ {
		_, err := Encode(cmd, make([]byte, size))
		if !errors.Is(err, ErrBufferTooSmall) {
			t.Errorf("size %d: expected ErrBufferTooSmall, got %v", size, err)
		}
	}
}

func TestEncode_NilCommand(t *testing.T) {
	buf := make([]byte, MaxFrameSize)

	_, err := Encode(nil, buf)
	assert.ErrorIs(t, err, ErrNilCommand)

	_, err = Encode(ForwardCAN{TargetID: 1}, buf)
	assert.ErrorIs(t, err, ErrNilCommand)

	_, err = Encode(ForwardCAN{TargetID: 1, Inner: ForwardCAN{TargetID: 2}}, buf)
	assert.ErrorIs(t, err, ErrNilCommand)
}

func TestEncode_PayloadTooLarge(t *testing.T) {
	var cmd Command = GetValues{}
	for i := 0; i < 130; i++ {
		cmd = ForwardCAN{TargetID: uint8(i), Inner: cmd}
	}

	_, err := Encode(cmd, make([]byte, 1024))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestEncode_CurrentTruncatesTowardZero(t *testing.T) {
	tests := []struct {
		amps float32
		want int32
	}{
		{1.0009, 1000},
		{-1.0009, -1000},
		{0.0004, 0},
		{-0.0004, 0},
		{float32(math.NaN()), 0},
		{1e12, math.MaxInt32},
		{-1e12, math.MinInt32},
	}

	for _, tt := range tests {
		buf := make([]byte, MaxFrameSize)
		n, err := Encode(SetCurrent{Amps: tt.amps}, buf)
		require.NoError(t, err)

		u := NewUnpacker(buf[3 : n-3])
		got, err := u.UnpackI32()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "amps=%v", tt.amps)
	}
}

// ============================================================
// Controller side
// ============================================================

func TestDecodeCommand_RoundTrip(t *testing.T) {
	commands := []Command{
		GetValues{},
		SetCurrent{Amps: 1.5},
		SetCurrent{Amps: -2.25},
		SetRPM{RPM: -3000},
		SetHandbrake{Amps: 4},
		GetValuesSelective{Mask: selectiveMask},
		GetValuesSelective{Mask: FieldRPM | 1<<30},
		ForwardCAN{TargetID: 5, Inner: SetRPM{RPM: 3000}},
		ForwardCAN{TargetID: 5, Inner: ForwardCAN{TargetID: 9, Inner: GetValues{}}},
	}

	for _, cmd := range commands {
		t.Run(FormatCommand(cmd), func(t *testing.T) {
			buf := make([]byte, MaxFrameSize)
			n, err := Encode(cmd, buf)
			require.NoError(t, err)

			consumed, got, err := DecodeCommand(buf[:n])
			require.NoError(t, err)
			assert.Equal(t, n, consumed)
			assert.Equal(t, cmd, got)
		})
	}
}

func TestDecodeCommand_Errors(t *testing.T) {
	_, _, err := DecodeCommand(frameSelectiveZeroRPM)
	assert.ErrorIs(t, err, ErrInvalidFrame, "reply payload is longer than the command")

	_, _, err = DecodeCommand(frameUnknownPacket)
	assert.ErrorIs(t, err, ErrUnknownPacket)

	_, _, err = DecodeCommand([]byte{2, 5, 8, 0, 0})
	assert.ErrorIs(t, err, ErrIncompleteData)
}

func TestEncodeReply_RoundTrip(t *testing.T) {
	replies := []Reply{
		GetValuesReply{Values: valuesForward},
		GetValuesReply{Values: withFault(valuesReverse, FaultUnderVoltage)},
		GetValuesSelectiveReply{Mask: selectiveMask, Values: valuesSelectiveReverse},
		GetValuesSelectiveReply{Mask: 0, Values: Values{}},
	}

	for _, want := range replies {
		buf := make([]byte, MaxFrameSize)
		n, err := EncodeReply(want, buf)
		require.NoError(t, err)

		consumed, got, err := Decode(buf[:n])
		require.NoError(t, err)
		assert.Equal(t, n, consumed)
		assert.Equal(t, want.CommandID(), got.CommandID())
		assert.Equal(t, want.Fields(), got.Fields())
		if diff := diffValues(want.Telemetry(), got.Telemetry()); diff != "" {
			t.Errorf("values mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestEncodeReply_PreservesUnknownMaskBits(t *testing.T) {
	want := GetValuesSelectiveReply{
		Mask:   FieldRPM | FieldVoltageIn | 1<<31,
		Values: Values{RPM: 1200, VoltageIn: 36.2},
	}

	buf := make([]byte, MaxFrameSize)
	n, err := EncodeReply(want, buf)
	require.NoError(t, err)

	_, reply, err := Decode(buf[:n])
	require.NoError(t, err)

	got, ok := reply.(GetValuesSelectiveReply)
	require.True(t, ok)
	assert.Equal(t, want.Mask, got.Mask)
	assert.Equal(t, FieldRPM|FieldVoltageIn, got.Fields())
	if diff := diffValues(want.Values, got.Values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeReply_Golden(t *testing.T) {
	// Decoding a capture and re-encoding it must produce a frame that decodes
	// to the same telemetry.
	for _, frame := range [][]byte{frameValuesZeroRPM, frameSelectiveFault} {
		_, first, err := Decode(frame)
		require.NoError(t, err)

		buf := make([]byte, MaxFrameSize)
		n, err := EncodeReply(first, buf)
		require.NoError(t, err)
		assert.Equal(t, len(frame), n)

		_, second, err := Decode(buf[:n])
		require.NoError(t, err)
		if diff := diffValues(first.Telemetry(), second.Telemetry()); diff != "" {
			t.Errorf("values mismatch (-want +got):\n%s", diff)
		}
	}
}
