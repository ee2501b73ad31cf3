// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// approx compares decoded fixed-point floats against their decimal values.
var approx = cmpopts.EquateApprox(0, 1e-4)

// Captured GetValues replies
var (
	frameValuesZeroRPM = []byte{
		2, 74, 4, 1, 20, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1,
		119, 0, 0, 0, 9, 0, 0, 0, 0, 0, 0, 1, 116, 0, 0, 0, 0, 255, 255, 131, 64, 0, 2, 168, 254,
		0, 18, 6, 65, 224, 20, 1, 21, 252, 216, 252, 202, 0, 0, 0, 8, 0, 0, 0, 12, 0, 218, 113, 3,
	}
	frameValuesForward = []byte{
		2, 74, 4, 1, 20, 0, 0, 0, 0, 0, 37, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, 0, 32, 0, 110, 0, 0, 3,
		251, 1, 125, 0, 0, 0, 17, 0, 0, 0, 0, 0, 0, 2, 137, 0, 0, 0, 0, 255, 255, 111, 75, 0, 2,
		159, 199, 0, 4, 106, 124, 40, 1, 1, 21, 252, 76, 252, 13, 0, 0, 0, 229, 0, 0, 8, 214, 0,
		58, 151, 3,
	}
	frameValuesReverse = []byte{
		2, 74, 4, 1, 13, 0, 0, 0, 0, 0, 92, 0, 0, 0, 12, 0, 0, 0, 0, 255, 255, 255, 169, 255, 19,
		255, 255, 247, 94, 1, 117, 0, 0, 0, 7, 0, 0, 0, 0, 0, 0, 1, 18, 0, 0, 0, 0, 255, 255, 145,
		186, 0, 2, 11, 64, 0, 13, 228, 230, 240, 20, 1, 13, 252, 115, 252, 76, 0, 0, 0, 230, 255,
		255, 240, 129, 0, 12, 51, 3,
	}
	frameValuesMotorFault = []byte{
		2, 74, 4, 1, 13, 0, 0, 0, 0, 0, 92, 0, 0, 0, 12, 0, 0, 0, 0, 255, 255, 255, 169, 255, 19,
		255, 255, 247, 94, 1, 117, 0, 0, 0, 7, 0, 0, 0, 0, 0, 0, 1, 18, 0, 0, 0, 0, 255, 255, 145,
		186, 0, 2, 11, 64, 2, 13, 228, 230, 240, 20, 1, 13, 252, 115, 252, 76, 0, 0, 0, 230, 255,
		255, 240, 129, 0, 183, 254, 3,
	}
)

// Captured GetValuesSelective replies, all with selectiveMask
var (
	frameSelectiveZeroRPM = []byte{
		2, 23, 50, 0, 2, 161, 138, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 128, 255, 255, 158, 70, 0, 1,
		63, 148, 3,
	}
	frameSelectiveForward = []byte{
		2, 23, 50, 0, 2, 161, 138, 0, 0, 0, 0, 0, 4, 0, 0, 3, 221, 1, 119, 255, 255, 170, 43, 0,
		20, 45, 58, 3,
	}
	frameSelectiveReverse = []byte{
		2, 23, 50, 0, 2, 161, 138, 0, 0, 0, 0, 0, 10, 255, 255, 246, 213, 1, 118, 255, 255, 181,
		218, 0, 20, 94, 130, 3,
	}
	frameSelectiveFault = []byte{
		2, 23, 50, 0, 2, 161, 138, 0, 0, 0, 0, 0, 10, 255, 255, 246, 213, 1, 118, 255, 255, 181,
		218, 4, 20, 146, 70, 3,
	}
	// frameSelectiveReverse with controller_id changed after the CRC was taken
	frameSelectiveBadChecksum = []byte{
		2, 23, 50, 0, 2, 161, 138, 0, 0, 0, 0, 0, 10, 255, 255, 246, 213, 1, 118, 255, 255, 181,
		218, 0, 21, 94, 130, 3,
	}
	frameUnknownPacket = []byte{2, 3, 222, 4, 0, 178, 81, 3}
)

const selectiveMask = FieldTempMotor | FieldAvgCurrentInput | FieldRPM | FieldVoltageIn |
	FieldTachometer | FieldFaultCode | FieldControllerID

var (
	valuesZeroRPM = Values{
		TempMosfet:    27.6,
		VoltageIn:     37.5,
		AmpHours:      0.0009,
		WattHours:     0.0372,
		Tachometer:    -31936,
		TachometerAbs: 174334,
		PIDPos:        302.39996,
		ControllerID:  20,
		TempMosfet1:   27.7,
		TempMosfet2:   -80.8,
		TempMosfet3:   -82.2,
		AvgVoltageD:   0.008,
		AvgVoltageQ:   0.012,
	}
	valuesForward = Values{
		TempMosfet:      27.6,
		AvgCurrentMotor: 0.37,
		AvgCurrentInput: 0.03,
		AvgCurrentQ:     0.32,
		DutyCycle:       0.11,
		RPM:             1019,
		VoltageIn:       38.1,
		AmpHours:        0.0017,
		WattHours:       0.0649,
		Tachometer:      -37045,
		TachometerAbs:   171975,
		PIDPos:          74.08746,
		ControllerID:    1,
		TempMosfet1:     27.7,
		TempMosfet2:     -94.8,
		TempMosfet3:     -101.1,
		AvgVoltageD:     0.229,
		AvgVoltageQ:     2.262,
	}
	valuesReverse = Values{
		TempMosfet:      26.9,
		AvgCurrentMotor: 0.92,
		AvgCurrentInput: 0.12,
		AvgCurrentQ:     -0.87,
		DutyCycle:       -0.237,
		RPM:             -2210,
		VoltageIn:       37.3,
		AmpHours:        0.0007,
		WattHours:       0.0274,
		Tachometer:      -28230,
		TachometerAbs:   133952,
		PIDPos:          233.10513,
		ControllerID:    20,
		TempMosfet1:     26.9,
		TempMosfet2:     -90.9,
		TempMosfet3:     -94.8,
		AvgVoltageD:     0.23,
		AvgVoltageQ:     -3.967,
	}
	valuesSelectiveZeroRPM = Values{
		VoltageIn:    38.4,
		Tachometer:   -25018,
		ControllerID: 1,
	}
	valuesSelectiveForward = Values{
		AvgCurrentInput: 0.04,
		RPM:             989,
		VoltageIn:       37.5,
		Tachometer:      -21973,
		ControllerID:    20,
	}
	valuesSelectiveReverse = Values{
		AvgCurrentInput: 0.1,
		RPM:             -2347,
		VoltageIn:       37.4,
		Tachometer:      -18982,
		ControllerID:    20,
	}
)

func withFault(v Values, f FaultCode) Values {
	v.FaultCode = f
	return v
}

func diffValues(want, got Values) string {
	return cmp.Diff(want, got, approx)
}
