// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/vescope/internal/capture"
)

var (
	captureOut      string
	captureDuration time.Duration
	capturePoll     bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record raw link traffic to a capture file",
	Long: `Record every chunk received from the connection into a CBOR capture file.

The file starts with a session header (id, start time, source) followed by
timestamped chunks exactly as they were read. Use "vescope replay FILE" to
decode a capture later.

With --poll, the configured values request is sent at the poll interval so the
capture contains live telemetry.`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "", "Capture file to write")
	captureCmd.Flags().DurationVar(&captureDuration, "duration", 0, "Stop after this long (0 = until interrupted)")
	captureCmd.Flags().BoolVar(&capturePoll, "poll", false, "Send the configured values request while capturing")
	captureCmd.MarkFlagRequired("out")
}

func runCapture(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	f, err := os.Create(captureOut)
	if err != nil {
		return fmt.Errorf("create capture: %w", err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)

	baud := 0
	if cfg.Connection.URL == "" {
		baud = cfg.Connection.Baud
	}
	w, err := capture.NewWriter(bw, capture.NewHeader(connInfo, baud))
	if err != nil {
		return err
	}

	fmt.Printf("Vescope - Capture\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Session: %s\n", w.Header().SessionID)
	fmt.Printf("Writing: %s\n", captureOut)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if captureDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, captureDuration)
		defer cancel()
	}

	runErr := recordLink(ctx, conn, w)

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush capture: %w", err)
	}
	chunks, bytes := w.Stats()
	fmt.Printf("\nCaptured %d chunks, %d bytes\n", chunks, bytes)
	return runErr
}

// recordLink writes every chunk read from conn until ctx is done.
func recordLink(ctx context.Context, conn Connection, w *capture.Writer) error {
	var tick <-chan time.Time
	if capturePoll {
		interval, err := cfg.PollInterval()
		if err != nil {
			return err
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	request, err := cfg.PollCommand()
	if err != nil {
		return err
	}

	chunks, done := startReader(ctx, conn)
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				if err := <-done; err != nil && !errors.Is(err, ErrConnectionClosed) {
					return err
				}
				return nil
			}
			if err := w.WriteChunk(chunk.at, chunk.data); err != nil {
				return err
			}

		case <-tick:
			if err := sendCommand(conn, request); err != nil {
				logger.Warn().Err(err).Msg("poll request failed")
			}
		}
	}
}
