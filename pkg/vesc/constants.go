// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package vesc implements the VESC motor controller serial protocol.
//
// Commands are encoded into short frames with Encode, and replies are parsed
// with Decode or, for a continuous byte stream, with a StreamDecoder that
// resynchronizes on noise and corrupted frames.
//
// Frame layout:
//
//	[0x02][LENGTH][command-id + fields][CRC16/XMODEM, big-endian][0x03]
//
// The package performs no I/O; transports belong to the caller.
package vesc

// Protocol framing bytes
const (
	FrameStartShort = 0x02
	FrameEnd        = 0x03
)

// Frame size limits
const (
	FrameOverhead  = 5 // start + length + crc(2) + end
	MaxPayloadSize = 255
	MaxFrameSize   = MaxPayloadSize + FrameOverhead
)

// CRC-16/XMODEM configuration
const (
	crcPolynomial = 0x1021
	crcInitial    = 0x0000
)

// CommandID identifies a command or reply on the wire.
type CommandID uint8

// Command ids
const (
	CommGetValues          CommandID = 4
	CommSetCurrent         CommandID = 6
	CommSetRPM             CommandID = 8
	CommSetHandbrake       CommandID = 10
	CommForwardCAN         CommandID = 34
	CommGetValuesSelective CommandID = 50
)

// String returns the firmware name for the command id.
func (id CommandID) String() string {
	switch id {
	case CommGetValues:
		return "COMM_GET_VALUES"
	case CommSetCurrent:
		return "COMM_SET_CURRENT"
	case CommSetRPM:
		return "COMM_SET_RPM"
	case CommSetHandbrake:
		return "COMM_SET_HANDBRAKE"
	case CommForwardCAN:
		return "COMM_FORWARD_CAN"
	case CommGetValuesSelective:
		return "COMM_GET_VALUES_SELECTIVE"
	default:
		return "UNKNOWN"
	}
}

// Wire scale factors. Changing any of these is a wire-incompatible change.
const (
	scaleCurrentCommand = 1000.0
	scaleTemp           = 10.0
	scaleCurrent        = 100.0
	scaleDuty           = 1000.0
	scaleRPM            = 1.0
	scaleVoltageIn      = 10.0
	scaleEnergy         = 10000.0
	scalePIDPos         = 1000000.0
	scaleVoltageDQ      = 1000.0
)
