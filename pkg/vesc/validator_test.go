// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anomalyTypes(errs []ValidationError) []AnomalyType {
	types := make([]AnomalyType, 0, len(errs))
	for _, e := range errs {
		types = append(types, e.Type)
	}
	return types
}

func TestValidateValues_CapturedTelemetry(t *testing.T) {
	for _, v := range []Values{valuesZeroRPM, valuesForward, valuesReverse} {
		assert.Empty(t, ValidateValues(v, FieldAll))
	}
}

func TestValidateValues(t *testing.T) {
	tests := []struct {
		name   string
		values Values
		mask   FieldMask
		want   []AnomalyType
	}{
		{"fault", Values{VoltageIn: 37, FaultCode: FaultOverTempFet}, FieldAll, []AnomalyType{AnomalyFault}},
		{"unknown fault", Values{VoltageIn: 37, FaultCode: FaultUnknown}, FieldAll, []AnomalyType{AnomalyUnknownFault}},
		{"hot mosfet", Values{VoltageIn: 37, TempMosfet: 151}, FieldAll, []AnomalyType{AnomalyInvalidTemp}},
		{"cold motor", Values{VoltageIn: 37, TempMotor: -60}, FieldAll, []AnomalyType{AnomalyInvalidTemp}},
		{"negative voltage", Values{VoltageIn: -1}, FieldAll, []AnomalyType{AnomalyInvalidVoltage}},
		{"over voltage", Values{VoltageIn: 120}, FieldAll, []AnomalyType{AnomalyInvalidVoltage}},
		{"duty", Values{VoltageIn: 37, DutyCycle: -1.2}, FieldAll, []AnomalyType{AnomalyInvalidDuty}},
		{"rpm", Values{VoltageIn: 37, RPM: -150000}, FieldAll, []AnomalyType{AnomalyHighRPM}},
		{
			"several",
			Values{VoltageIn: 200, RPM: 200000, FaultCode: FaultDrv},
			FieldAll,
			[]AnomalyType{AnomalyFault, AnomalyInvalidVoltage, AnomalyHighRPM},
		},
		{"masked out", Values{VoltageIn: 200, RPM: 200000}, FieldTachometer, []AnomalyType{}},
		{"voltage not selected", Values{RPM: 10}, FieldRPM, []AnomalyType{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, anomalyTypes(ValidateValues(tt.values, tt.mask)))
		})
	}
}

func TestValidationError_Details(t *testing.T) {
	errs := ValidateValues(Values{VoltageIn: 37, RPM: 123456}, FieldAll)
	require.Len(t, errs, 1)

	assert.Equal(t, "HIGH_RPM", errs[0].Type.String())
	assert.Equal(t, errs[0].Message, errs[0].Error())
	assert.Equal(t, float32(123456), errs[0].Details["rpm"])
}
