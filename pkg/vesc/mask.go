// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

import (
	"fmt"
	"math/bits"
	"strings"
)

// FieldMask selects the telemetry fields carried by a selective reply.
//
// It is a plain bit set: bits with no name are kept as-is so a mask survives
// a decode/re-encode cycle against newer firmware.
type FieldMask uint32

// Field mask bits, in wire order
const (
	FieldTempMosfet FieldMask = 1 << iota
	FieldTempMotor
	FieldAvgCurrentMotor
	FieldAvgCurrentInput
	FieldAvgCurrentD
	FieldAvgCurrentQ
	FieldDutyCycle
	FieldRPM
	FieldVoltageIn
	FieldAmpHours
	FieldAmpHoursCharged
	FieldWattHours
	FieldWattHoursCharged
	FieldTachometer
	FieldTachometerAbs
	FieldFaultCode
	FieldPIDPos
	FieldControllerID
	FieldTempMosfetAll
	FieldAvgVoltageD
	FieldAvgVoltageQ
	FieldStatus

	// FieldAll has every named bit set.
	FieldAll FieldMask = 1<<22 - 1
)

var fieldNames = [...]string{
	"TEMP_MOSFET",
	"TEMP_MOTOR",
	"AVG_CURRENT_MOTOR",
	"AVG_CURRENT_INPUT",
	"AVG_CURRENT_D",
	"AVG_CURRENT_Q",
	"DUTY_CYCLE",
	"RPM",
	"VOLTAGE_IN",
	"AMP_HOURS",
	"AMP_HOURS_CHARGED",
	"WATT_HOURS",
	"WATT_HOURS_CHARGED",
	"TACHOMETER",
	"TACHOMETER_ABS",
	"FAULT_CODE",
	"PID_POS",
	"CONTROLLER_ID",
	"TEMP_MOSFET_ALL",
	"AVG_VOLTAGE_D",
	"AVG_VOLTAGE_Q",
	"STATUS",
}

// FieldNames returns the names of all mask bits in wire order.
func FieldNames() []string {
	names := make([]string, len(fieldNames))
	copy(names, fieldNames[:])
	return names
}

// ParseFieldMask builds a mask from field names (case-insensitive).
func ParseFieldMask(names ...string) (FieldMask, error) {
	var m FieldMask
	for _, name := range names {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if name == "ALL" {
			m |= FieldAll
			continue
		}
		found := false
		for i, n := range fieldNames {
			if n == name {
				m |= 1 << i
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown field %q", name)
		}
	}
	return m, nil
}

// Has reports whether every bit of f is set in m.
func (m FieldMask) Has(f FieldMask) bool {
	return m&f == f
}

// With returns m with the bits of f set.
func (m FieldMask) With(f FieldMask) FieldMask {
	return m | f
}

// Without returns m with the bits of f cleared.
func (m FieldMask) Without(f FieldMask) FieldMask {
	return m &^ f
}

// Known returns only the named bits of m.
func (m FieldMask) Known() FieldMask {
	return m & FieldAll
}

// Unknown returns only the bits of m that have no name.
func (m FieldMask) Unknown() FieldMask {
	return m &^ FieldAll
}

// Len returns the number of named bits set.
func (m FieldMask) Len() int {
	return bits.OnesCount32(uint32(m.Known()))
}

// String renders the mask as NAME|NAME, with unnamed bits in hex.
func (m FieldMask) String() string {
	if m == 0 {
		return "NONE"
	}
	parts := make([]string, 0, m.Len()+1)
	for i, n := range fieldNames {
		if m&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	if u := m.Unknown(); u != 0 {
		parts = append(parts, fmt.Sprintf("0x%08X", uint32(u)))
	}
	return strings.Join(parts, "|")
}
