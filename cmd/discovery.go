// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/vescope/pkg/vesc"
)

var (
	discoveryTimeout time.Duration
	discoveryFirst   int
	discoveryLast    int
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Discover controllers on the CAN bus",
	Long: `Probe CAN controller ids for connected controllers.

The locally connected controller is asked for its id first. Then a
COMM_FORWARD_CAN request wrapping COMM_GET_VALUES_SELECTIVE is sent to every
id in the scan range, and each id that answers within --timeout is reported
with its input voltage and fault state.

Examples:
  # Scan the default range
  vescope discovery --port /dev/ttyACM0

  # Scan a few ids through a WebSocket bridge
  vescope discovery --url ws://bridge.local/vesc --first 1 --last 16

Exit codes:
  0 - Discovery successful (at least one controller found)
  1 - Discovery failed (no controllers answered)
  2 - Connection error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().DurationVar(&discoveryTimeout, "timeout", 100*time.Millisecond, "Time to wait for each id")
	discoveryCmd.Flags().IntVar(&discoveryFirst, "first", 0, "First CAN id to probe")
	discoveryCmd.Flags().IntVar(&discoveryLast, "last", 253, "Last CAN id to probe")
}

// Fields requested from every probed controller
const discoveryMask = vesc.FieldControllerID | vesc.FieldVoltageIn | vesc.FieldFaultCode

type discoveredController struct {
	id      uint8
	local   bool
	voltage float32
	fault   vesc.FaultCode
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	if discoveryFirst < 0 || discoveryLast > 255 || discoveryFirst > discoveryLast {
		return fmt.Errorf("invalid scan range %d-%d", discoveryFirst, discoveryLast)
	}

	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Vescope - CAN Discovery\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Range: %d-%d\n", discoveryFirst, discoveryLast)
	fmt.Printf("Timeout: %s per id\n\n", discoveryTimeout)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	chunks, _ := startReader(ctx, conn)
	decoder := newDecoder()

	probe := func(request vesc.Command, want func(uint8) bool) (discoveredController, bool) {
		if err := sendCommand(conn, request); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			os.Exit(2)
		}
		probeCtx, probeCancel := context.WithTimeout(ctx, discoveryTimeout)
		defer probeCancel()

		reply, _, ok := awaitReply(probeCtx, chunks, decoder, func(r vesc.Reply) bool {
			return r.Fields().Has(vesc.FieldControllerID) && want(r.Telemetry().ControllerID)
		})
		if !ok {
			return discoveredController{}, false
		}
		v := reply.Telemetry()
		return discoveredController{id: v.ControllerID, voltage: v.VoltageIn, fault: v.FaultCode}, true
	}

	var controllers []discoveredController

	local, ok := probe(vesc.GetValuesSelective{Mask: discoveryMask}, func(uint8) bool { return true })
	if ok {
		local.local = true
		controllers = append(controllers, local)
		printController(local)
	} else {
		fmt.Printf("Local controller did not answer\n")
	}

	for id := discoveryFirst; id <= discoveryLast; id++ {
		if ok && uint8(id) == local.id {
			continue
		}
		request := vesc.ForwardCAN{TargetID: uint8(id), Inner: vesc.GetValuesSelective{Mask: discoveryMask}}
		c, found := probe(request, func(got uint8) bool { return got == uint8(id) })
		if found {
			controllers = append(controllers, c)
			printController(c)
		}
	}

	// Summary
	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Controllers found: %d\n", len(controllers))

	if len(controllers) == 0 {
		fmt.Printf("No controllers discovered. Check connection and controller power.\n")
		os.Exit(1)
	}
	return nil
}

func printController(c discoveredController) {
	where := "CAN"
	if c.local {
		where = "local"
	}
	fmt.Printf("Controller %3d (%s): voltage=%.1fV fault=%s\n", c.id, where, c.voltage, c.fault)
}
