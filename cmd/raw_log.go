// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/vescope/pkg/vesc"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded replies in human-readable format",
	Long: `Continuously decode and display controller replies as they arrive.

Each reply is printed with timestamp, command id and decoded telemetry.
Noise and corrupted frames are skipped; decoder statistics are printed on exit.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Vescope - Raw Reply Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decoder := newDecoder()
	readErr := logReplies(ctx, conn, decoder)

	st := decoder.Stats()
	fmt.Printf("\nDecoded %d replies, skipped %d bytes (%d checksum, %d unknown, %d invalid, %d overflow)\n",
		st.FramesDecoded, st.BytesSkipped, st.ChecksumMismatches, st.UnknownPackets, st.InvalidFrames, st.OverflowResets)

	if readErr != nil {
		logger.Info().Err(readErr).Msg("connection closed")
	}
	return nil
}

// logReplies prints every reply until ctx is done or the link fails.
func logReplies(ctx context.Context, conn Connection, decoder *vesc.StreamDecoder) error {
	chunks, done := startReader(ctx, conn)

	for chunk := range chunks {
		prev := decoder.Stats()
		data := chunk.data
		for len(data) > 0 {
			n := decoder.Feed(data)
			data = data[n:]
			for reply := range decoder.Replies() {
				fmt.Print(vesc.FormatReply(reply, chunk.at))
			}
		}
		logDecoderDelta(prev, decoder.Stats())
	}

	return <-done
}
