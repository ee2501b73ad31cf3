// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

// Encode writes cmd as a complete short frame into buf and returns the number
// of bytes written. Nothing useful is left in buf when an error is returned.
func Encode(cmd Command, buf []byte) (int, error) {
	if cmd == nil {
		return 0, ErrNilCommand
	}
	return encodeFrame(buf, func(p *Packer) error {
		return cmd.packPayload(p, 0)
	})
}

// EncodeReply writes r as a complete short frame into buf. It is the
// controller-side counterpart of Encode.
func EncodeReply(r Reply, buf []byte) (int, error) {
	if r == nil {
		return 0, ErrNilCommand
	}
	return encodeFrame(buf, r.packPayload)
}

// Decode parses one reply frame from the start of buf and returns the number
// of bytes the frame occupied.
//
// ErrIncompleteData means buf ends before the frame does; every other error
// means the bytes at the start of buf are not a valid reply frame.
func Decode(buf []byte) (int, Reply, error) {
	return decodeFrame(buf, unpackReply)
}

// DecodeCommand parses one command frame from the start of buf. Frame
// validation is identical to Decode.
func DecodeCommand(buf []byte) (int, Command, error) {
	return decodeFrame(buf, func(u *Unpacker) (Command, error) {
		return unpackCommand(u, 0)
	})
}

// encodeFrame wraps the payload written by pack with start, length, CRC and
// end bytes.
func encodeFrame(buf []byte, pack func(p *Packer) error) (int, error) {
	p := NewPacker(buf)
	if err := p.PackU8(FrameStartShort); err != nil {
		return 0, err
	}
	// Length is backpatched once the payload size is known
	if err := p.PackU8(0); err != nil {
		return 0, err
	}

	start := p.Pos()
	if err := pack(p); err != nil {
		return 0, err
	}
	length := p.Pos() - start
	if length > MaxPayloadSize {
		return 0, ErrPayloadTooLarge
	}
	buf[1] = uint8(length)

	if err := p.PackU16(CalculateCRC(buf[start : start+length])); err != nil {
		return 0, err
	}
	if err := p.PackU8(FrameEnd); err != nil {
		return 0, err
	}
	return p.Pos(), nil
}

// decodeFrame validates the framing around the payload read by unpack.
func decodeFrame[T any](buf []byte, unpack func(u *Unpacker) (T, error)) (int, T, error) {
	var zero T
	u := NewUnpacker(buf)

	start, err := u.UnpackU8()
	if err != nil {
		return 0, zero, err
	}
	if start != FrameStartShort {
		return 0, zero, ErrInvalidFrame
	}

	length, err := u.UnpackU8()
	if err != nil {
		return 0, zero, err
	}

	payloadStart := u.Pos()
	value, err := unpack(u)
	if err != nil {
		return 0, zero, err
	}
	if u.Pos()-payloadStart != int(length) {
		return 0, zero, ErrInvalidFrame
	}
	payload := buf[payloadStart:u.Pos()]

	crc, err := u.UnpackU16()
	if err != nil {
		return 0, zero, err
	}
	end, err := u.UnpackU8()
	if err != nil {
		return 0, zero, err
	}

	if actual := CalculateCRC(payload); actual != crc {
		return 0, zero, &ChecksumMismatchError{Expected: crc, Actual: actual}
	}
	if end != FrameEnd {
		return 0, zero, ErrInvalidFrame
	}

	return u.Pos(), value, nil
}
