// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

import (
	"encoding/binary"
	"math"
)

// Packer writes big-endian integers and scaled fixed-point floats into a
// caller-owned buffer. The position only advances when a write succeeds.
type Packer struct {
	buf []byte
	pos int
}

// NewPacker creates a packer writing from the start of buf.
func NewPacker(buf []byte) *Packer {
	return &Packer{buf: buf}
}

// Pos returns the number of bytes written so far.
func (p *Packer) Pos() int {
	return p.pos
}

// Bytes returns the written region of the buffer.
func (p *Packer) Bytes() []byte {
	return p.buf[:p.pos]
}

// reserve returns the next n bytes of the buffer, or ErrBufferTooSmall.
func (p *Packer) reserve(n int) ([]byte, error) {
	if len(p.buf)-p.pos < n {
		return nil, ErrBufferTooSmall
	}
	b := p.buf[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}

// PackU8 writes one byte.
func (p *Packer) PackU8(v uint8) error {
	b, err := p.reserve(1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

// PackU16 writes a big-endian uint16.
func (p *Packer) PackU16(v uint16) error {
	b, err := p.reserve(2)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b, v)
	return nil
}

// PackI16 writes a big-endian int16.
func (p *Packer) PackI16(v int16) error {
	return p.PackU16(uint16(v))
}

// PackU32 writes a big-endian uint32.
func (p *Packer) PackU32(v uint32) error {
	b, err := p.reserve(4)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b, v)
	return nil
}

// PackI32 writes a big-endian int32.
func (p *Packer) PackI32(v int32) error {
	return p.PackU32(uint32(v))
}

// PackF32 writes value*scale truncated toward zero as an int32.
func (p *Packer) PackF32(value, scale float32) error {
	return p.PackI32(int32(truncate(value*scale, math.MinInt32, math.MaxInt32)))
}

// PackF16 writes value*scale truncated toward zero as an int16.
func (p *Packer) PackF16(value, scale float32) error {
	return p.PackI16(int16(truncate(value*scale, math.MinInt16, math.MaxInt16)))
}

// truncate drops the fractional part of v and saturates it to [lo, hi].
// NaN maps to zero so the wire value never depends on the platform.
func truncate(v float32, lo, hi int64) int64 {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return 0
	case f <= float64(lo):
		return lo
	case f >= float64(hi):
		return hi
	}
	return int64(math.Trunc(f))
}

// Unpacker reads big-endian integers and scaled fixed-point floats from a
// byte slice. The position only advances when a read succeeds.
type Unpacker struct {
	buf []byte
	pos int
}

// NewUnpacker creates an unpacker reading from the start of buf.
func NewUnpacker(buf []byte) *Unpacker {
	return &Unpacker{buf: buf}
}

// Pos returns the number of bytes consumed so far.
func (u *Unpacker) Pos() int {
	return u.pos
}

// Remaining returns the number of unread bytes.
func (u *Unpacker) Remaining() int {
	return len(u.buf) - u.pos
}

// consume returns the next n bytes, or ErrIncompleteData.
func (u *Unpacker) consume(n int) ([]byte, error) {
	if len(u.buf)-u.pos < n {
		return nil, ErrIncompleteData
	}
	b := u.buf[u.pos : u.pos+n]
	u.pos += n
	return b, nil
}

// UnpackU8 reads one byte.
func (u *Unpacker) UnpackU8() (uint8, error) {
	b, err := u.consume(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// UnpackU16 reads a big-endian uint16.
func (u *Unpacker) UnpackU16() (uint16, error) {
	b, err := u.consume(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// UnpackI16 reads a big-endian int16.
func (u *Unpacker) UnpackI16() (int16, error) {
	v, err := u.UnpackU16()
	return int16(v), err
}

// UnpackU32 reads a big-endian uint32.
func (u *Unpacker) UnpackU32() (uint32, error) {
	b, err := u.consume(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// UnpackI32 reads a big-endian int32.
func (u *Unpacker) UnpackI32() (int32, error) {
	v, err := u.UnpackU32()
	return int32(v), err
}

// UnpackF16 reads an int16 and divides it by scale.
func (u *Unpacker) UnpackF16(scale float32) (float32, error) {
	v, err := u.UnpackI16()
	if err != nil {
		return 0, err
	}
	return float32(v) / scale, nil
}

// UnpackF32 reads an int32 and divides it by scale.
func (u *Unpacker) UnpackF32(scale float32) (float32, error) {
	v, err := u.UnpackI32()
	if err != nil {
		return 0, err
	}
	return float32(v) / scale, nil
}
