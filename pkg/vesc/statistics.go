// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vesc

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultSampleWindow is the number of recent samples summarized by
// Statistics.
const DefaultSampleWindow = 256

// SampleSummary describes a window of recent samples of one telemetry field.
type SampleSummary struct {
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Statistics tracks reply statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalReplies    uint64
	ValidReplies    uint64
	Faults          uint64
	AnomalousValues uint64
	InvalidTemp     uint64
	InvalidVoltage  uint64
	InvalidDuty     uint64
	HighRPM         uint64

	// Copied from the stream decoder
	ChecksumErrors uint64
	UnknownPackets uint64
	InvalidFrames  uint64
	SkippedBytes   uint64
	OverflowResets uint64

	// Rates (calculated)
	ReplyRate float64 // replies/sec
	ErrorRate float64 // errors/sec

	window  int
	voltage []float64
	rpm     []float64
}

// NewStatistics creates a new statistics tracker summarizing the last window
// samples. A window of zero or less selects DefaultSampleWindow.
func NewStatistics(window int) *Statistics {
	if window <= 0 {
		window = DefaultSampleWindow
	}
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		window:         window,
	}
}

// Update updates statistics based on a reply and its validation errors
func (s *Statistics) Update(reply Reply, anomalies []ValidationError) {
	s.TotalReplies++

	if len(anomalies) == 0 {
		s.ValidReplies++
	}
	for _, a := range anomalies {
		switch a.Type {
		case AnomalyFault, AnomalyUnknownFault:
			s.Faults++
		case AnomalyInvalidTemp:
			s.InvalidTemp++
			s.AnomalousValues++
		case AnomalyInvalidVoltage:
			s.InvalidVoltage++
			s.AnomalousValues++
		case AnomalyInvalidDuty:
			s.InvalidDuty++
			s.AnomalousValues++
		case AnomalyHighRPM:
			s.HighRPM++
			s.AnomalousValues++
		}
	}

	if reply != nil {
		v := reply.Telemetry()
		if reply.Fields().Has(FieldVoltageIn) {
			s.voltage = s.push(s.voltage, float64(v.VoltageIn))
		}
		if reply.Fields().Has(FieldRPM) {
			s.rpm = s.push(s.rpm, float64(v.RPM))
		}
	}

	// Update timestamp for rate calculation
	s.LastUpdateTime = time.Now()
}

func (s *Statistics) push(samples []float64, x float64) []float64 {
	if s.window <= 0 {
		s.window = DefaultSampleWindow
	}
	samples = append(samples, x)
	if len(samples) > s.window {
		samples = append(samples[:0], samples[len(samples)-s.window:]...)
	}
	return samples
}

// MergeStream copies the cumulative stream decoder counters
func (s *Statistics) MergeStream(st StreamStats) {
	s.ChecksumErrors = st.ChecksumMismatches
	s.UnknownPackets = st.UnknownPackets
	s.InvalidFrames = st.InvalidFrames
	s.SkippedBytes = st.BytesSkipped
	s.OverflowResets = st.OverflowResets
}

// VoltageSummary summarizes recent input voltage samples
func (s *Statistics) VoltageSummary() SampleSummary {
	return summarize(s.voltage)
}

// RPMSummary summarizes recent rpm samples
func (s *Statistics) RPMSummary() SampleSummary {
	return summarize(s.rpm)
}

func summarize(samples []float64) SampleSummary {
	if len(samples) == 0 {
		return SampleSummary{}
	}
	mean, std := stat.MeanStdDev(samples, nil)
	if len(samples) < 2 {
		std = 0
	}
	return SampleSummary{
		N:      len(samples),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(samples),
		Max:    floats.Max(samples),
	}
}

// CalculateRates calculates reply and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ReplyRate = float64(s.TotalReplies) / elapsed
		s.ErrorRate = float64(s.errorCount()) / elapsed
	}
}

func (s *Statistics) errorCount() uint64 {
	return s.ChecksumErrors + s.UnknownPackets + s.InvalidFrames + s.Faults + s.AnomalousValues
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, faultPercent, anomalousPercent float64
	if s.TotalReplies > 0 {
		validPercent = float64(s.ValidReplies) * 100.0 / float64(s.TotalReplies)
		faultPercent = float64(s.Faults) * 100.0 / float64(s.TotalReplies)
		anomalousPercent = float64(s.AnomalousValues) * 100.0 / float64(s.TotalReplies)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Replies:   %8d\n", s.TotalReplies)
	result += fmt.Sprintf("Valid Replies:   %8d (%.1f%%)\n", s.ValidReplies, validPercent)

	if s.Faults > 0 {
		result += fmt.Sprintf("Faults:          %8d (%.1f%%)\n", s.Faults, faultPercent)
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Values:%8d (%.1f%%)\n", s.AnomalousValues, anomalousPercent)
		if s.InvalidTemp > 0 {
			result += fmt.Sprintf("  Invalid Temp:     %5d\n", s.InvalidTemp)
		}
		if s.InvalidVoltage > 0 {
			result += fmt.Sprintf("  Invalid Voltage:  %5d\n", s.InvalidVoltage)
		}
		if s.InvalidDuty > 0 {
			result += fmt.Sprintf("  Invalid Duty:     %5d\n", s.InvalidDuty)
		}
		if s.HighRPM > 0 {
			result += fmt.Sprintf("  High RPM:         %5d\n", s.HighRPM)
		}
	}
	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", s.ChecksumErrors)
	}
	if s.UnknownPackets > 0 {
		result += fmt.Sprintf("Unknown Packets: %8d\n", s.UnknownPackets)
	}
	if s.InvalidFrames > 0 {
		result += fmt.Sprintf("Invalid Frames:  %8d\n", s.InvalidFrames)
	}
	if s.SkippedBytes > 0 {
		result += fmt.Sprintf("Skipped Bytes:   %8d\n", s.SkippedBytes)
	}
	if s.OverflowResets > 0 {
		result += fmt.Sprintf("Overflow Resets: %8d\n", s.OverflowResets)
	}

	if v := s.VoltageSummary(); v.N > 0 {
		result += fmt.Sprintf("Voltage:         %8.2f V ±%.2f [%.1f-%.1f] (n=%d)\n", v.Mean, v.StdDev, v.Min, v.Max, v.N)
	}
	if r := s.RPMSummary(); r.N > 0 {
		result += fmt.Sprintf("RPM:             %8.0f ±%.0f [%.0f-%.0f] (n=%d)\n", r.Mean, r.StdDev, r.Min, r.Max, r.N)
	}

	result += fmt.Sprintf("Reply Rate:      %8.1f replies/sec\n", s.ReplyRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters and samples
func (s *Statistics) Reset() {
	window := s.window
	*s = Statistics{window: window}
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
}
