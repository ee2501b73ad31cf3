// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

// Command is a request sent to the controller. The set of implementations is
// closed: GetValues, SetCurrent, SetRPM, SetHandbrake, ForwardCAN and
// GetValuesSelective.
type Command interface {
	// CommandID returns the wire id of the command.
	CommandID() CommandID

	packPayload(p *Packer, depth int) error
}

// GetValues requests the complete telemetry set.
type GetValues struct{}

// SetCurrent sets the motor current in amperes. Negative values drive in
// reverse.
type SetCurrent struct {
	Amps float32
}

// SetRPM sets the electrical motor speed. Negative values drive in reverse.
type SetRPM struct {
	RPM int32
}

// SetHandbrake sets the handbrake current in amperes.
type SetHandbrake struct {
	Amps float32
}

// ForwardCAN relays Inner to the controller with TargetID on the CAN bus.
// Inner may itself be a ForwardCAN.
type ForwardCAN struct {
	TargetID uint8
	Inner    Command
}

// GetValuesSelective requests only the telemetry fields selected by Mask.
type GetValuesSelective struct {
	Mask FieldMask
}

func (GetValues) CommandID() CommandID          { return CommGetValues }
func (SetCurrent) CommandID() CommandID         { return CommSetCurrent }
func (SetRPM) CommandID() CommandID             { return CommSetRPM }
func (SetHandbrake) CommandID() CommandID       { return CommSetHandbrake }
func (ForwardCAN) CommandID() CommandID         { return CommForwardCAN }
func (GetValuesSelective) CommandID() CommandID { return CommGetValuesSelective }

func (c GetValues) packPayload(p *Packer, _ int) error {
	return p.PackU8(uint8(c.CommandID()))
}

func (c SetCurrent) packPayload(p *Packer, _ int) error {
	if err := p.PackU8(uint8(c.CommandID())); err != nil {
		return err
	}
	return p.PackF32(c.Amps, scaleCurrentCommand)
}

func (c SetRPM) packPayload(p *Packer, _ int) error {
	if err := p.PackU8(uint8(c.CommandID())); err != nil {
		return err
	}
	return p.PackI32(c.RPM)
}

func (c SetHandbrake) packPayload(p *Packer, _ int) error {
	if err := p.PackU8(uint8(c.CommandID())); err != nil {
		return err
	}
	return p.PackF32(c.Amps, scaleCurrentCommand)
}

func (c ForwardCAN) packPayload(p *Packer, depth int) error {
	if c.Inner == nil {
		return ErrNilCommand
	}
	// Each level adds two bytes, so a self-referencing chain runs out of
	// short-frame space long before it runs out of stack.
	if depth >= MaxPayloadSize/2 {
		return ErrPayloadTooLarge
	}
	if err := p.PackU8(uint8(c.CommandID())); err != nil {
		return err
	}
	if err := p.PackU8(c.TargetID); err != nil {
		return err
	}
	return c.Inner.packPayload(p, depth+1)
}

func (c GetValuesSelective) packPayload(p *Packer, _ int) error {
	if err := p.PackU8(uint8(c.CommandID())); err != nil {
		return err
	}
	return p.PackU32(uint32(c.Mask))
}

// unpackCommand reads a command payload. It is the controller-side inverse of
// packPayload.
func unpackCommand(u *Unpacker, depth int) (Command, error) {
	id, err := u.UnpackU8()
	if err != nil {
		return nil, err
	}

	switch CommandID(id) {
	case CommGetValues:
		return GetValues{}, nil

	case CommSetCurrent:
		amps, err := u.UnpackF32(scaleCurrentCommand)
		if err != nil {
			return nil, err
		}
		return SetCurrent{Amps: amps}, nil

	case CommSetRPM:
		rpm, err := u.UnpackI32()
		if err != nil {
			return nil, err
		}
		return SetRPM{RPM: rpm}, nil

	case CommSetHandbrake:
		amps, err := u.UnpackF32(scaleCurrentCommand)
		if err != nil {
			return nil, err
		}
		return SetHandbrake{Amps: amps}, nil

	case CommForwardCAN:
		if depth >= MaxPayloadSize/2 {
			return nil, ErrInvalidFrame
		}
		target, err := u.UnpackU8()
		if err != nil {
			return nil, err
		}
		inner, err := unpackCommand(u, depth+1)
		if err != nil {
			return nil, err
		}
		return ForwardCAN{TargetID: target, Inner: inner}, nil

	case CommGetValuesSelective:
		mask, err := u.UnpackU32()
		if err != nil {
			return nil, err
		}
		return GetValuesSelective{Mask: FieldMask(mask)}, nil

	default:
		return nil, &UnknownPacketError{ID: id}
	}
}
