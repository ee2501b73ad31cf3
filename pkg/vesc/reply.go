// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

// Reply is a decoded controller reply: GetValuesReply or
// GetValuesSelectiveReply.
type Reply interface {
	// CommandID returns the wire id of the reply.
	CommandID() CommandID
	// Telemetry returns the values carried by the reply.
	Telemetry() Values
	// Fields returns the mask of telemetry fields the reply populated.
	Fields() FieldMask

	packPayload(p *Packer) error
}

// GetValuesReply carries the complete telemetry set.
type GetValuesReply struct {
	Values Values
}

// GetValuesSelectiveReply carries the fields selected by Mask. Mask is kept
// exactly as received, including bits this package has no name for.
type GetValuesSelectiveReply struct {
	Mask   FieldMask
	Values Values
}

func (GetValuesReply) CommandID() CommandID          { return CommGetValues }
func (GetValuesSelectiveReply) CommandID() CommandID { return CommGetValuesSelective }

func (r GetValuesReply) Telemetry() Values          { return r.Values }
func (r GetValuesSelectiveReply) Telemetry() Values { return r.Values }

func (GetValuesReply) Fields() FieldMask            { return FieldAll }
func (r GetValuesSelectiveReply) Fields() FieldMask { return r.Mask.Known() }

func (r GetValuesReply) packPayload(p *Packer) error {
	if err := p.PackU8(uint8(CommGetValues)); err != nil {
		return err
	}
	return packValues(p, &r.Values, FieldAll)
}

func (r GetValuesSelectiveReply) packPayload(p *Packer) error {
	if err := p.PackU8(uint8(CommGetValuesSelective)); err != nil {
		return err
	}
	if err := p.PackU32(uint32(r.Mask)); err != nil {
		return err
	}
	return packValues(p, &r.Values, r.Mask)
}

// unpackReply reads a reply payload, dispatching on the command id.
func unpackReply(u *Unpacker) (Reply, error) {
	id, err := u.UnpackU8()
	if err != nil {
		return nil, err
	}

	switch CommandID(id) {
	case CommGetValues:
		values, err := unpackValues(u, FieldAll)
		if err != nil {
			return nil, err
		}
		return GetValuesReply{Values: values}, nil

	case CommGetValuesSelective:
		mask, err := u.UnpackU32()
		if err != nil {
			return nil, err
		}
		values, err := unpackValues(u, FieldMask(mask))
		if err != nil {
			return nil, err
		}
		return GetValuesSelectiveReply{Mask: FieldMask(mask), Values: values}, nil

	default:
		return nil, &UnknownPacketError{ID: id}
	}
}
