// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/Thermoquad/vescope/internal/config"
	"github.com/Thermoquad/vescope/pkg/vesc"
)

var (
	pingTimeout int
	pingCount   int
	pingCAN     int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure request/reply round trip to the controller",
	Long: `Send COMM_GET_VALUES_SELECTIVE requests for the controller id and time each reply.

Only the controller id field is requested, so the reply is as short as the
protocol allows. With --can the request is forwarded to another controller on
the CAN bus, which measures the extra hop.

This is useful for verifying:
  - The link is up in both directions
  - WebSocket bridge authentication works
  - CAN forwarding reaches the target controller

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 2, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
	pingCmd.Flags().IntVar(&pingCAN, "can", config.NoCAN, "Forward pings to this CAN controller id")
}

func runPing(cmd *cobra.Command, args []string) error {
	request, err := wrapCAN(vesc.GetValuesSelective{Mask: vesc.FieldControllerID}, pingCAN)
	if err != nil {
		return err
	}

	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Vescope - Ping\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	chunks, _ := startReader(ctx, conn)
	decoder := newDecoder()

	var rtts []float64
	failCount := 0

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		startTime := time.Now()
		if err := sendCommand(conn, request); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		pingCtx, pingCancel := context.WithTimeout(ctx, time.Duration(pingTimeout)*time.Second)
		reply, at, ok := awaitReply(pingCtx, chunks, decoder, isControllerIDReply)
		pingCancel()

		if ok {
			rtt := at.Sub(startTime)
			rtts = append(rtts, float64(rtt)/float64(time.Millisecond))
			fmt.Printf("reply from controller %d, rtt=%v\n", reply.Telemetry().ControllerID, rtt.Round(time.Millisecond))
		} else {
			fmt.Printf("TIMEOUT (no reply in %ds)\n", pingTimeout)
			failCount++
		}

		// Small delay between pings
		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	// Summary
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d replies received, %.0f%% loss\n",
		pingCount, len(rtts), float64(failCount)/float64(max(pingCount, 1))*100)
	if len(rtts) > 0 {
		mean, std := stat.MeanStdDev(rtts, nil)
		if len(rtts) < 2 {
			std = 0
		}
		fmt.Printf("rtt avg/stddev = %.1f/%.1f ms\n", mean, std)
	}
	if st := decoder.Stats(); st.BytesSkipped > 0 {
		fmt.Printf("%d bytes skipped (%d checksum errors)\n", st.BytesSkipped, st.ChecksumMismatches)
	}

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

func isControllerIDReply(r vesc.Reply) bool {
	return r.Fields().Has(vesc.FieldControllerID)
}
