// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/vescope/internal/capture"
	"github.com/Thermoquad/vescope/pkg/vesc"
)

var replayQuiet bool

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Decode a capture file",
	Long: `Feed a capture file through the stream decoder.

Every decoded reply is printed with the time it was originally received,
followed by validation results and decoder statistics. No connection is
needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVarP(&replayQuiet, "quiet", "q", false, "Only print anomalies and the final summary")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	r, err := capture.NewReader(bufio.NewReader(f))
	if err != nil {
		return err
	}
	h := r.Header()

	fmt.Printf("Vescope - Replay\n")
	fmt.Printf("Session: %s\n", h.SessionID)
	fmt.Printf("Source: %s\n", h.Source)
	fmt.Printf("Started: %s\n\n", h.Started.Local().Format("2006-01-02 15:04:05.000"))

	stats, err := replayCapture(r, os.Stdout, replayQuiet)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Print(stats.String())
	return nil
}

// replayCapture decodes every chunk of r and writes the replies to out.
func replayCapture(r *capture.Reader, out io.Writer, quiet bool) (*vesc.Statistics, error) {
	h := r.Header()
	decoder := newDecoder()
	stats := vesc.NewStatistics(cfg.Decoder.SampleWindow)

	for {
		chunk, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		at := h.Started.Add(chunk.Offset).Local()
		data := chunk.Data
		for len(data) > 0 {
			n := decoder.Feed(data)
			data = data[n:]
			for reply := range decoder.Replies() {
				anomalies := vesc.ValidateValues(reply.Telemetry(), reply.Fields())
				stats.Update(reply, anomalies)
				if !quiet {
					fmt.Fprint(out, vesc.FormatReply(reply, at))
				}
				for _, a := range anomalies {
					fmt.Fprintf(out, "  ! %s\n", a.Error())
				}
			}
		}
	}

	stats.MergeStream(decoder.Stats())
	return stats, nil
}
