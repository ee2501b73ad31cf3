// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

import (
	"errors"
	"fmt"
)

// Encoding errors
var (
	// ErrBufferTooSmall is returned when the output buffer cannot hold the frame.
	ErrBufferTooSmall = errors.New("vesc: output buffer too small")
	// ErrNilCommand is returned when encoding a nil command.
	ErrNilCommand = errors.New("vesc: nil command")
	// ErrPayloadTooLarge is returned when a payload does not fit a short frame.
	ErrPayloadTooLarge = errors.New("vesc: payload exceeds short frame length")
)

// Decoding errors
var (
	// ErrIncompleteData means the input does not yet hold a complete frame.
	// It is not a corruption signal: retry once more bytes have arrived.
	ErrIncompleteData = errors.New("vesc: incomplete frame data")
	// ErrInvalidFrame reports a bad start/end marker or a length mismatch.
	ErrInvalidFrame = errors.New("vesc: invalid frame")
	// ErrChecksumMismatch matches any *ChecksumMismatchError.
	ErrChecksumMismatch = errors.New("vesc: checksum mismatch")
	// ErrUnknownPacket matches any *UnknownPacketError.
	ErrUnknownPacket = errors.New("vesc: unknown packet")
)

// ChecksumMismatchError reports a frame whose payload CRC does not match.
// Expected is the value carried on the wire, Actual the value computed over
// the received payload.
type ChecksumMismatchError struct {
	Expected uint16
	Actual   uint16
}

// Error implements error.
func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("vesc: checksum mismatch: expected 0x%04X, got 0x%04X", e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrChecksumMismatch) report true.
func (e *ChecksumMismatchError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// UnknownPacketError reports a command id this decoder does not understand.
type UnknownPacketError struct {
	ID uint8
}

// Error implements error.
func (e *UnknownPacketError) Error() string {
	return fmt.Sprintf("vesc: unknown packet id %d", e.ID)
}

// Is makes errors.Is(err, ErrUnknownPacket) report true.
func (e *UnknownPacketError) Is(target error) bool {
	return target == ErrUnknownPacket
}
