// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/vescope/internal/config"
	"github.com/Thermoquad/vescope/pkg/vesc"
)

var (
	pollInterval time.Duration
	pollFields   []string
	pollCAN      int
	pollCount    int
	pollQuiet    bool
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Periodically request and display telemetry",
	Long: `Send a values request at a fixed interval and print each reply.

Without --fields the full COMM_GET_VALUES request is used; with --fields only
the named values are requested via COMM_GET_VALUES_SELECTIVE. Every reply is
checked for faults and implausible readings. A statistics summary is printed
when polling stops.

Fields: ` + fieldList(),
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().DurationVar(&pollInterval, "interval", 200*time.Millisecond, "Time between requests")
	pollCmd.Flags().StringSliceVar(&pollFields, "fields", nil, "Comma-separated fields to request (default all)")
	pollCmd.Flags().IntVar(&pollCAN, "can", config.NoCAN, "Forward requests to this CAN controller id")
	pollCmd.Flags().IntVar(&pollCount, "count", 0, "Stop after this many requests (0 = until interrupted)")
	pollCmd.Flags().BoolVarP(&pollQuiet, "quiet", "q", false, "Only print anomalies and the final summary")
}

// applyPollFlags copies explicitly set poll flags into the config.
func applyPollFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("interval") {
		c.Poll.Interval = pollInterval.String()
	}
	if flags.Changed("fields") {
		c.Poll.Fields = pollFields
	}
	if flags.Changed("can") {
		c.Poll.CANID = pollCAN
	}
	if flags.Changed("count") {
		c.Poll.Count = pollCount
	}
	return c.Validate()
}

func runPoll(cmd *cobra.Command, args []string) error {
	if err := applyPollFlags(cmd, cfg); err != nil {
		return err
	}
	request, err := cfg.PollCommand()
	if err != nil {
		return err
	}
	interval, err := cfg.PollInterval()
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Vescope - Poll\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Request: %s every %s\n", vesc.FormatCommand(request), interval)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &poller{
		conn:     conn,
		request:  request,
		interval: interval,
		count:    cfg.Poll.Count,
		decoder:  newDecoder(),
		stats:    vesc.NewStatistics(cfg.Decoder.SampleWindow),
		quiet:    pollQuiet,
	}
	runErr := p.run(ctx)

	p.stats.MergeStream(p.decoder.Stats())
	p.stats.CalculateRates()
	fmt.Printf("\n%d requests sent\n\n", p.sent)
	fmt.Print(p.stats.String())

	return runErr
}

// poller drives the request/reply loop of the poll command.
type poller struct {
	conn     Connection
	request  vesc.Command
	interval time.Duration
	count    int

	decoder *vesc.StreamDecoder
	stats   *vesc.Statistics
	quiet   bool
	sent    int
}

func (p *poller) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, done := startReader(ctx, p.conn)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if err := p.send(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case chunk, ok := <-chunks:
			if !ok {
				return <-done
			}
			p.handle(chunk)

		case <-ticker.C:
			if p.count > 0 && p.sent >= p.count {
				// One interval of grace for the last reply
				return nil
			}
			if err := p.send(); err != nil {
				return err
			}
		}
	}
}

func (p *poller) send() error {
	if err := sendCommand(p.conn, p.request); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	p.sent++
	return nil
}

func (p *poller) handle(chunk linkChunk) {
	prev := p.decoder.Stats()
	data := chunk.data
	for len(data) > 0 {
		n := p.decoder.Feed(data)
		data = data[n:]
		for reply := range p.decoder.Replies() {
			anomalies := vesc.ValidateValues(reply.Telemetry(), reply.Fields())
			p.stats.Update(reply, anomalies)

			if !p.quiet {
				fmt.Print(vesc.FormatReply(reply, chunk.at))
			}
			for _, a := range anomalies {
				fmt.Printf("  ! %s\n", a.Error())
				logger.Warn().Stringer("type", a.Type).Fields(a.Details).Msg(a.Message)
			}
		}
	}
	logDecoderDelta(prev, p.decoder.Stats())
}
