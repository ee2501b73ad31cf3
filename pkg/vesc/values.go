// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

// Values is the telemetry carried by GetValues and GetValuesSelective replies.
// Fields not present in a selective reply stay at zero.
type Values struct {
	TempMosfet       float32
	TempMotor        float32
	AvgCurrentMotor  float32
	AvgCurrentInput  float32
	AvgCurrentD      float32
	AvgCurrentQ      float32
	DutyCycle        float32
	RPM              float32
	VoltageIn        float32
	AmpHours         float32
	AmpHoursCharged  float32
	WattHours        float32
	WattHoursCharged float32
	Tachometer       int32
	TachometerAbs    int32
	FaultCode        FaultCode
	PIDPos           float32
	ControllerID     uint8
	TempMosfet1      float32
	TempMosfet2      float32
	TempMosfet3      float32
	AvgVoltageD      float32
	AvgVoltageQ      float32
	Status           uint8
}

// valueField describes one telemetry field on the wire.
type valueField struct {
	name   string
	unit   string
	mask   FieldMask
	unpack func(u *Unpacker, v *Values) error
	pack   func(p *Packer, v *Values) error
	get    func(v *Values) any
}

// valueFields lists the telemetry fields in wire order. The full reply carries
// all of them; the selective reply carries those whose mask bit is set.
// TEMP_MOSFET_ALL covers three consecutive entries.
var valueFields = []valueField{
	halfField("temp_mosfet", "°C", FieldTempMosfet, scaleTemp, func(v *Values) *float32 { return &v.TempMosfet }),
	halfField("temp_motor", "°C", FieldTempMotor, scaleTemp, func(v *Values) *float32 { return &v.TempMotor }),
	wideField("avg_current_motor", "A", FieldAvgCurrentMotor, scaleCurrent, func(v *Values) *float32 { return &v.AvgCurrentMotor }),
	wideField("avg_current_input", "A", FieldAvgCurrentInput, scaleCurrent, func(v *Values) *float32 { return &v.AvgCurrentInput }),
	wideField("avg_current_d", "A", FieldAvgCurrentD, scaleCurrent, func(v *Values) *float32 { return &v.AvgCurrentD }),
	wideField("avg_current_q", "A", FieldAvgCurrentQ, scaleCurrent, func(v *Values) *float32 { return &v.AvgCurrentQ }),
	halfField("duty_cycle", "", FieldDutyCycle, scaleDuty, func(v *Values) *float32 { return &v.DutyCycle }),
	wideField("rpm", "", FieldRPM, scaleRPM, func(v *Values) *float32 { return &v.RPM }),
	halfField("voltage_in", "V", FieldVoltageIn, scaleVoltageIn, func(v *Values) *float32 { return &v.VoltageIn }),
	wideField("amp_hours", "Ah", FieldAmpHours, scaleEnergy, func(v *Values) *float32 { return &v.AmpHours }),
	wideField("amp_hours_charged", "Ah", FieldAmpHoursCharged, scaleEnergy, func(v *Values) *float32 { return &v.AmpHoursCharged }),
	wideField("watt_hours", "Wh", FieldWattHours, scaleEnergy, func(v *Values) *float32 { return &v.WattHours }),
	wideField("watt_hours_charged", "Wh", FieldWattHoursCharged, scaleEnergy, func(v *Values) *float32 { return &v.WattHoursCharged }),
	intField("tachometer", FieldTachometer, func(v *Values) *int32 { return &v.Tachometer }),
	intField("tachometer_abs", FieldTachometerAbs, func(v *Values) *int32 { return &v.TachometerAbs }),
	{
		name: "fault_code",
		mask: FieldFaultCode,
		unpack: func(u *Unpacker, v *Values) error {
			b, err := u.UnpackU8()
			v.FaultCode = FaultCodeFromByte(b)
			return err
		},
		pack: func(p *Packer, v *Values) error { return p.PackU8(uint8(v.FaultCode)) },
		get:  func(v *Values) any { return v.FaultCode },
	},
	wideField("pid_pos", "", FieldPIDPos, scalePIDPos, func(v *Values) *float32 { return &v.PIDPos }),
	byteField("controller_id", FieldControllerID, func(v *Values) *uint8 { return &v.ControllerID }),
	halfField("temp_mosfet1", "°C", FieldTempMosfetAll, scaleTemp, func(v *Values) *float32 { return &v.TempMosfet1 }),
	halfField("temp_mosfet2", "°C", FieldTempMosfetAll, scaleTemp, func(v *Values) *float32 { return &v.TempMosfet2 }),
	halfField("temp_mosfet3", "°C", FieldTempMosfetAll, scaleTemp, func(v *Values) *float32 { return &v.TempMosfet3 }),
	wideField("avg_voltage_d", "V", FieldAvgVoltageD, scaleVoltageDQ, func(v *Values) *float32 { return &v.AvgVoltageD }),
	wideField("avg_voltage_q", "V", FieldAvgVoltageQ, scaleVoltageDQ, func(v *Values) *float32 { return &v.AvgVoltageQ }),
	byteField("status", FieldStatus, func(v *Values) *uint8 { return &v.Status }),
}

// halfField is a float carried as a scaled int16.
func halfField(name, unit string, mask FieldMask, scale float32, ref func(*Values) *float32) valueField {
	return valueField{
		name: name,
		unit: unit,
		mask: mask,
		unpack: func(u *Unpacker, v *Values) error {
			f, err := u.UnpackF16(scale)
			*ref(v) = f
			return err
		},
		pack: func(p *Packer, v *Values) error { return p.PackF16(*ref(v), scale) },
		get:  func(v *Values) any { return *ref(v) },
	}
}

// wideField is a float carried as a scaled int32.
func wideField(name, unit string, mask FieldMask, scale float32, ref func(*Values) *float32) valueField {
	return valueField{
		name: name,
		unit: unit,
		mask: mask,
		unpack: func(u *Unpacker, v *Values) error {
			f, err := u.UnpackF32(scale)
			*ref(v) = f
			return err
		},
		pack: func(p *Packer, v *Values) error { return p.PackF32(*ref(v), scale) },
		get:  func(v *Values) any { return *ref(v) },
	}
}

func intField(name string, mask FieldMask, ref func(*Values) *int32) valueField {
	return valueField{
		name: name,
		mask: mask,
		unpack: func(u *Unpacker, v *Values) error {
			i, err := u.UnpackI32()
			*ref(v) = i
			return err
		},
		pack: func(p *Packer, v *Values) error { return p.PackI32(*ref(v)) },
		get:  func(v *Values) any { return *ref(v) },
	}
}

func byteField(name string, mask FieldMask, ref func(*Values) *uint8) valueField {
	return valueField{
		name: name,
		mask: mask,
		unpack: func(u *Unpacker, v *Values) error {
			b, err := u.UnpackU8()
			*ref(v) = b
			return err
		},
		pack: func(p *Packer, v *Values) error { return p.PackU8(*ref(v)) },
		get:  func(v *Values) any { return *ref(v) },
	}
}

// unpackValues reads the fields selected by mask, in wire order.
func unpackValues(u *Unpacker, mask FieldMask) (Values, error) {
	var v Values
	for i := range valueFields {
		f := &valueFields[i]
		if !mask.Has(f.mask) {
			continue
		}
		if err := f.unpack(u, &v); err != nil {
			return Values{}, err
		}
	}
	return v, nil
}

// packValues writes the fields selected by mask, in wire order.
func packValues(p *Packer, v *Values, mask FieldMask) error {
	for i := range valueFields {
		f := &valueFields[i]
		if !mask.Has(f.mask) {
			continue
		}
		if err := f.pack(p, v); err != nil {
			return err
		}
	}
	return nil
}
