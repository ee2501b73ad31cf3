// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

import (
	"fmt"
	"math"
)

// AnomalyType represents different types of telemetry anomalies
type AnomalyType int

const (
	AnomalyFault AnomalyType = iota
	AnomalyUnknownFault
	AnomalyInvalidTemp
	AnomalyInvalidVoltage
	AnomalyInvalidDuty
	AnomalyHighRPM
)

// Plausibility limits
const (
	MinValidTemp    = -50.0
	MaxValidTemp    = 150.0
	MinValidVoltage = 0.0
	MaxValidVoltage = 100.0
	MaxValidDuty    = 1.0
	MaxValidRPM     = 100000.0
)

func (a AnomalyType) String() string {
	switch a {
	case AnomalyFault:
		return "FAULT"
	case AnomalyUnknownFault:
		return "UNKNOWN_FAULT"
	case AnomalyInvalidTemp:
		return "INVALID_TEMP"
	case AnomalyInvalidVoltage:
		return "INVALID_VOLTAGE"
	case AnomalyInvalidDuty:
		return "INVALID_DUTY"
	case AnomalyHighRPM:
		return "HIGH_RPM"
	default:
		return "UNKNOWN"
	}
}

// ValidationError represents a telemetry value outside its plausible range
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]any
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateValues checks the fields selected by mask and returns every anomaly
// found. The result is empty for plausible telemetry.
func ValidateValues(v Values, mask FieldMask) []ValidationError {
	errors := []ValidationError{}

	if mask.Has(FieldFaultCode) && v.FaultCode != FaultNone {
		if v.FaultCode.Known() {
			errors = append(errors, ValidationError{
				Type:    AnomalyFault,
				Message: fmt.Sprintf("Controller fault %s", v.FaultCode),
				Details: map[string]any{"fault_code": v.FaultCode},
			})
		} else {
			errors = append(errors, ValidationError{
				Type:    AnomalyUnknownFault,
				Message: "Controller reported an unrecognized fault code",
				Details: map[string]any{"fault_code": v.FaultCode},
			})
		}
	}

	temps := []struct {
		name  string
		mask  FieldMask
		value float32
	}{
		{"temp_mosfet", FieldTempMosfet, v.TempMosfet},
		{"temp_motor", FieldTempMotor, v.TempMotor},
	}
	for _, t := range temps {
		if !mask.Has(t.mask) {
			continue
		}
		if outside(t.value, MinValidTemp, MaxValidTemp) {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidTemp,
				Message: fmt.Sprintf("Invalid %s=%.1f°C (valid %.0f to %.0f)", t.name, t.value, MinValidTemp, MaxValidTemp),
				Details: map[string]any{"field": t.name, "value": t.value},
			})
		}
	}

	if mask.Has(FieldVoltageIn) && outside(v.VoltageIn, MinValidVoltage, MaxValidVoltage) {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidVoltage,
			Message: fmt.Sprintf("Invalid voltage_in=%.1fV (valid %.0f to %.0f)", v.VoltageIn, MinValidVoltage, MaxValidVoltage),
			Details: map[string]any{"value": v.VoltageIn},
		})
	}

	if mask.Has(FieldDutyCycle) && outside(v.DutyCycle, -MaxValidDuty, MaxValidDuty) {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidDuty,
			Message: fmt.Sprintf("Invalid duty_cycle=%.3f (max ±%.0f)", v.DutyCycle, MaxValidDuty),
			Details: map[string]any{"value": v.DutyCycle},
		})
	}

	if mask.Has(FieldRPM) && outside(v.RPM, -MaxValidRPM, MaxValidRPM) {
		errors = append(errors, ValidationError{
			Type:    AnomalyHighRPM,
			Message: fmt.Sprintf("High RPM (rpm=%.0f, max %.0f)", v.RPM, MaxValidRPM),
			Details: map[string]any{"rpm": v.RPM, "max": MaxValidRPM},
		})
	}

	return errors
}

// outside reports whether v is outside [lo, hi]. NaN is always outside.
func outside(v float32, lo, hi float64) bool {
	f := float64(v)
	return math.IsNaN(f) || f < lo || f > hi
}
