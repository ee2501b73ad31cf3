// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

// FaultCode is a hardware or firmware fault reported by the controller.
type FaultCode uint8

// Fault code values, in firmware order
const (
	FaultNone FaultCode = iota
	FaultOverVoltage
	FaultUnderVoltage
	FaultDrv
	FaultAbsOverCurrent
	FaultOverTempFet
	FaultOverTempMotor
	FaultGateDriverOverVoltage
	FaultGateDriverUnderVoltage
	FaultMcuUnderVoltage
	FaultBootingFromWatchdogReset
	FaultEncoderSPI
	FaultEncoderSinCosBelowMinAmplitude
	FaultEncoderSinCosAboveMaxAmplitude
	FaultFlashCorruption
	FaultHighOffsetCurrentSensor1
	FaultHighOffsetCurrentSensor2
	FaultHighOffsetCurrentSensor3
	FaultUnbalancedCurrents
	FaultBrk
	FaultResolverLOT
	FaultResolverDOS
	FaultResolverLOS
	FaultFlashCorruptionAppCfg
	FaultFlashCorruptionMcCfg
	FaultEncoderNoMagnet
	FaultEncoderMagnetTooStrong
	FaultPhaseFilter
	FaultEncoderFault
	FaultLvOutputFault

	// FaultUnknown stands in for any byte newer firmware may send.
	FaultUnknown FaultCode = 255
)

var faultNames = [...]string{
	FaultNone:                           "FAULT_CODE_NONE",
	FaultOverVoltage:                    "FAULT_CODE_OVER_VOLTAGE",
	FaultUnderVoltage:                   "FAULT_CODE_UNDER_VOLTAGE",
	FaultDrv:                            "FAULT_CODE_DRV",
	FaultAbsOverCurrent:                 "FAULT_CODE_ABS_OVER_CURRENT",
	FaultOverTempFet:                    "FAULT_CODE_OVER_TEMP_FET",
	FaultOverTempMotor:                  "FAULT_CODE_OVER_TEMP_MOTOR",
	FaultGateDriverOverVoltage:          "FAULT_CODE_GATE_DRIVER_OVER_VOLTAGE",
	FaultGateDriverUnderVoltage:         "FAULT_CODE_GATE_DRIVER_UNDER_VOLTAGE",
	FaultMcuUnderVoltage:                "FAULT_CODE_MCU_UNDER_VOLTAGE",
	FaultBootingFromWatchdogReset:       "FAULT_CODE_BOOTING_FROM_WATCHDOG_RESET",
	FaultEncoderSPI:                     "FAULT_CODE_ENCODER_SPI",
	FaultEncoderSinCosBelowMinAmplitude: "FAULT_CODE_ENCODER_SINCOS_BELOW_MIN_AMPLITUDE",
	FaultEncoderSinCosAboveMaxAmplitude: "FAULT_CODE_ENCODER_SINCOS_ABOVE_MAX_AMPLITUDE",
	FaultFlashCorruption:                "FAULT_CODE_FLASH_CORRUPTION",
	FaultHighOffsetCurrentSensor1:       "FAULT_CODE_HIGH_OFFSET_CURRENT_SENSOR_1",
	FaultHighOffsetCurrentSensor2:       "FAULT_CODE_HIGH_OFFSET_CURRENT_SENSOR_2",
	FaultHighOffsetCurrentSensor3:       "FAULT_CODE_HIGH_OFFSET_CURRENT_SENSOR_3",
	FaultUnbalancedCurrents:             "FAULT_CODE_UNBALANCED_CURRENTS",
	FaultBrk:                            "FAULT_CODE_BRK",
	FaultResolverLOT:                    "FAULT_CODE_RESOLVER_LOT",
	FaultResolverDOS:                    "FAULT_CODE_RESOLVER_DOS",
	FaultResolverLOS:                    "FAULT_CODE_RESOLVER_LOS",
	FaultFlashCorruptionAppCfg:          "FAULT_CODE_FLASH_CORRUPTION_APP_CFG",
	FaultFlashCorruptionMcCfg:           "FAULT_CODE_FLASH_CORRUPTION_MC_CFG",
	FaultEncoderNoMagnet:                "FAULT_CODE_ENCODER_NO_MAGNET",
	FaultEncoderMagnetTooStrong:         "FAULT_CODE_ENCODER_MAGNET_TOO_STRONG",
	FaultPhaseFilter:                    "FAULT_CODE_PHASE_FILTER",
	FaultEncoderFault:                   "FAULT_CODE_ENCODER_FAULT",
	FaultLvOutputFault:                  "FAULT_CODE_LV_OUTPUT_FAULT",
}

// FaultCodeFromByte maps a wire byte to a FaultCode. Bytes outside the known
// set become FaultUnknown; they are never a decode error.
func FaultCodeFromByte(b uint8) FaultCode {
	if int(b) < len(faultNames) {
		return FaultCode(b)
	}
	return FaultUnknown
}

// Known reports whether the code is one of the named firmware faults.
func (f FaultCode) Known() bool {
	return int(f) < len(faultNames)
}

// String returns the firmware name of the fault code.
func (f FaultCode) String() string {
	if f.Known() {
		return faultNames[f]
	}
	return "UNKNOWN"
}
