// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/vescope/pkg/vesc"
)

var (
	simulateID      uint8
	simulateVoltage float32
	simulateFault   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Act as a controller answering requests with synthetic telemetry",
	Long: `Decode commands arriving on the connection and answer them like a controller.

COMM_GET_VALUES and COMM_GET_VALUES_SELECTIVE are answered with synthetic
telemetry. COMM_SET_CURRENT, COMM_SET_RPM and COMM_SET_HANDBRAKE change the
simulated motor. Commands forwarded over CAN are answered as if by the target
controller.

Useful for exercising the other commands against a loopback serial pair or a
WebSocket bridge without hardware.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().Uint8Var(&simulateID, "id", 0, "Controller id reported in telemetry")
	simulateCmd.Flags().Float32Var(&simulateVoltage, "voltage", 48, "Simulated input voltage")
	simulateCmd.Flags().StringVar(&simulateFault, "fault", "", "Report this fault code (e.g. FAULT_CODE_OVER_TEMP_FET)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	sim, err := newSimController(simulateID, simulateVoltage, simulateFault)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Vescope - Simulated Controller\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Controller id: %d\n", simulateID)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serveSimulation(ctx, conn, sim)
}

// serveSimulation answers commands read from conn until ctx is done.
func serveSimulation(ctx context.Context, conn Connection, sim *simController) error {
	decoder := newDecoder()
	chunks, done := startReader(ctx, conn)
	var frame [vesc.MaxFrameSize]byte

	for chunk := range chunks {
		data := chunk.data
		for len(data) > 0 {
			n := decoder.Feed(data)
			data = data[n:]
			for {
				command, ok := decoder.NextCommand()
				if !ok {
					break
				}
				fmt.Printf("[%s] %s\n", chunk.at.Format("15:04:05.000"), vesc.FormatCommand(command))

				reply := sim.handle(command, chunk.at)
				if reply == nil {
					continue
				}
				n, err := vesc.EncodeReply(reply, frame[:])
				if err != nil {
					logger.Error().Err(err).Msg("encode reply")
					continue
				}
				if _, err := conn.Write(frame[:n]); err != nil {
					return fmt.Errorf("write reply: %w", err)
				}
			}
		}
	}

	st := decoder.Stats()
	logger.Info().
		Uint64("commands", st.FramesDecoded).
		Uint64("skipped", st.BytesSkipped).
		Msg("simulation stopped")
	return <-done
}

// simController is a crude motor model driven by received commands.
type simController struct {
	id      uint8
	voltage float32
	fault   vesc.FaultCode

	start      time.Time
	last       time.Time
	current    float32 // commanded motor current, A
	targetRPM  float32
	rpmControl bool
	rpm        float32
	tach       float64
	ampHours   float64
	wattHours  float64
	tempMotor  float32
	tempMosfet float32
}

func newSimController(id uint8, voltage float32, fault string) (*simController, error) {
	s := &simController{
		id:         id,
		voltage:    voltage,
		tempMotor:  25,
		tempMosfet: 25,
	}
	if fault != "" {
		f, err := parseFault(fault)
		if err != nil {
			return nil, err
		}
		s.fault = f
	}
	return s, nil
}

func parseFault(name string) (vesc.FaultCode, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "FAULT_CODE_") {
		name = "FAULT_CODE_" + name
	}
	for b := 0; b < 256; b++ {
		f := vesc.FaultCodeFromByte(uint8(b))
		if !f.Known() {
			break
		}
		if f.String() == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown fault %q", name)
}

// handle applies cmd at now and returns the reply to send, or nil.
func (s *simController) handle(cmd vesc.Command, now time.Time) vesc.Reply {
	s.advance(now)

	id := s.id
	for {
		fwd, ok := cmd.(vesc.ForwardCAN)
		if !ok {
			break
		}
		id = fwd.TargetID
		cmd = fwd.Inner
	}

	switch c := cmd.(type) {
	case vesc.GetValues:
		return vesc.GetValuesReply{Values: s.values(id)}
	case vesc.GetValuesSelective:
		return vesc.GetValuesSelectiveReply{Mask: c.Mask, Values: s.values(id)}
	case vesc.SetCurrent:
		s.current = c.Amps
		s.rpmControl = false
	case vesc.SetRPM:
		s.targetRPM = float32(c.RPM)
		s.rpmControl = true
	case vesc.SetHandbrake:
		s.current = 0
		s.targetRPM = 0
		s.rpmControl = true
	}
	return nil
}

// advance integrates the motor model up to now.
func (s *simController) advance(now time.Time) {
	if s.start.IsZero() {
		s.start = now
		s.last = now
		return
	}
	dt := float32(now.Sub(s.last).Seconds())
	if dt <= 0 {
		return
	}
	s.last = now

	target := s.targetRPM
	if !s.rpmControl {
		target = s.current * 500
	}
	// First-order approach with a 0.5 s time constant
	k := 1 - float32(math.Exp(float64(-dt/0.5)))
	s.rpm += (target - s.rpm) * k

	load := float32(math.Abs(float64(s.inputCurrent())))
	s.tempMosfet += (25 + load*0.8 - s.tempMosfet) * k * 0.05
	s.tempMotor += (25 + load*1.2 - s.tempMotor) * k * 0.03

	s.tach += float64(s.rpm) / 60 * float64(dt) * 6
	hours := float64(dt) / 3600
	s.ampHours += float64(s.inputCurrent()) * hours
	s.wattHours += float64(s.inputCurrent()*s.voltage) * hours
}

func (s *simController) inputCurrent() float32 {
	if s.rpmControl {
		return s.rpm / 1000
	}
	return s.current * s.duty()
}

func (s *simController) duty() float32 {
	d := s.rpm / 25000
	return max(-0.95, min(0.95, d))
}

// values snapshots the model as telemetry reported by controller id.
func (s *simController) values(id uint8) vesc.Values {
	ripple := float32(math.Sin(s.last.Sub(s.start).Seconds()*2*math.Pi)) * 0.1
	return vesc.Values{
		TempMosfet:      s.tempMosfet,
		TempMotor:       s.tempMotor,
		AvgCurrentMotor: s.current,
		AvgCurrentInput: s.inputCurrent(),
		AvgCurrentQ:     s.current,
		DutyCycle:       s.duty(),
		RPM:             float32(math.Round(float64(s.rpm))),
		VoltageIn:       s.voltage + ripple,
		AmpHours:        float32(math.Max(s.ampHours, 0)),
		AmpHoursCharged: float32(math.Max(-s.ampHours, 0)),
		WattHours:       float32(math.Max(s.wattHours, 0)),
		Tachometer:      int32(s.tach),
		TachometerAbs:   int32(math.Abs(s.tach)),
		FaultCode:       s.fault,
		ControllerID:    id,
		TempMosfet1:     s.tempMosfet,
		TempMosfet2:     s.tempMosfet,
		TempMosfet3:     s.tempMosfet,
	}
}
