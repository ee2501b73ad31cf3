// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

import (
	"fmt"
	"strings"
	"time"
)

// FormatReply formats a reply into a human-readable string
func FormatReply(r Reply, ts time.Time) string {
	timestamp := ts.Format("15:04:05.000")
	id := r.CommandID()

	result := fmt.Sprintf("[%s] %s (0x%02X) fields=%d\n", timestamp, id, uint8(id), r.Fields().Len())
	if sel, ok := r.(GetValuesSelectiveReply); ok {
		result += fmt.Sprintf("  Mask: 0x%08X (%s)\n", uint32(sel.Mask), sel.Mask)
	}

	return result + FormatValues(r.Telemetry(), r.Fields())
}

// FieldValue is one rendered telemetry field.
type FieldValue struct {
	Name  string
	Value string
}

// ListValues renders the telemetry fields selected by mask in wire order.
func ListValues(v Values, mask FieldMask) []FieldValue {
	var out []FieldValue
	for i := range valueFields {
		f := &valueFields[i]
		if !mask.Has(f.mask) {
			continue
		}
		out = append(out, FieldValue{Name: f.name, Value: formatFieldValue(f, &v)})
	}
	return out
}

// FormatValues formats the telemetry fields selected by mask, one per line
func FormatValues(v Values, mask FieldMask) string {
	var b strings.Builder
	for _, fv := range ListValues(v, mask) {
		fmt.Fprintf(&b, "  %s: %s\n", fv.Name, fv.Value)
	}
	return b.String()
}

func formatFieldValue(f *valueField, v *Values) string {
	switch value := f.get(v).(type) {
	case FaultCode:
		return fmt.Sprintf("%s (%d)", value, uint8(value))
	case float32:
		if f.unit == "" {
			return fmt.Sprintf("%v", value)
		}
		return fmt.Sprintf("%v %s", value, f.unit)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// FormatCommand returns a one-line description of a command
func FormatCommand(cmd Command) string {
	if cmd == nil {
		return "<nil>"
	}

	id := cmd.CommandID()
	head := fmt.Sprintf("%s (0x%02X)", id, uint8(id))

	switch c := cmd.(type) {
	case SetCurrent:
		return fmt.Sprintf("%s current=%v A", head, c.Amps)
	case SetRPM:
		return fmt.Sprintf("%s rpm=%d", head, c.RPM)
	case SetHandbrake:
		return fmt.Sprintf("%s current=%v A", head, c.Amps)
	case ForwardCAN:
		return fmt.Sprintf("%s target=%d -> %s", head, c.TargetID, FormatCommand(c.Inner))
	case GetValuesSelective:
		return fmt.Sprintf("%s mask=%s", head, c.Mask)
	default:
		return head
	}
}
