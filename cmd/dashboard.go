// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/vescope/pkg/vesc"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI for monitoring and commanding a controller",
	Long: `Monitor and command a controller via an interactive terminal UI.

The configured values request is sent at the poll interval and every reply is
shown live, together with decoder and validation statistics and an event log.

Features:
  - Real-time telemetry table
  - Statistics tracking (reply rate, checksum errors, anomalies)
  - Command line for current, rpm, handbrake and values requests
  - Event logging
  - Automatic reconnection on connection loss

Tab switches between the telemetry table and the command line. Type a command
as for "vescope send" (e.g. "rpm 3000") and press Enter to send it.

Supports both serial and WebSocket connections.`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().DurationVar(&pollInterval, "interval", 200*time.Millisecond, "Time between values requests")
	dashboardCmd.Flags().StringSliceVar(&pollFields, "fields", nil, "Comma-separated fields to request (default all)")
	dashboardCmd.Flags().IntVar(&pollCAN, "can", -1, "Talk to this CAN controller id")
}

// Batching interval for TUI updates
const dashboardBatchInterval = 50 * time.Millisecond

// connectionManager handles connection lifecycle and reconnection
type connectionManager struct {
	conn     Connection
	connInfo string
	mu       sync.RWMutex
	writeMu  sync.Mutex
	p        *tea.Program
	done     chan struct{}

	request  vesc.Command
	interval time.Duration
}

func (cm *connectionManager) getConn() Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn
}

func (cm *connectionManager) setConn(conn Connection, connInfo string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.conn = conn
	cm.connInfo = connInfo
}

// send writes cmd on the current connection. Safe for concurrent use.
func (cm *connectionManager) send(cmd vesc.Command) error {
	conn := cm.getConn()
	if conn == nil {
		return ErrConnectionClosed
	}
	cm.writeMu.Lock()
	defer cm.writeMu.Unlock()
	return sendCommand(conn, cmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
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

	// Open initial connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	// Create connection manager
	cm := &connectionManager{
		conn:     conn,
		connInfo: connInfo,
		done:     make(chan struct{}),
		request:  request,
		interval: interval,
	}

	// Diagnostics would corrupt the alt screen
	logger = zerolog.Nop()

	m := initialDashboardModel(cm, connInfo, cfg.Poll.CANID, cfg.Decoder.SampleWindow)

	// Create TUI program with alt screen
	p := tea.NewProgram(m, tea.WithAltScreen())
	cm.p = p

	go cm.readerLoop()

	_, runErr := p.Run()
	close(cm.done) // Signal goroutines to stop
	if conn := cm.getConn(); conn != nil {
		conn.Close()
	}
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}

// readerLoop handles reading from connection with automatic reconnection
func (cm *connectionManager) readerLoop() {
	// One decoder for the session so statistics survive reconnects
	decoder := newDecoder()

	for {
		select {
		case <-cm.done:
			return
		default:
		}

		err := cm.readFromConnection(decoder)
		decoder.Reset()

		select {
		case <-cm.done:
			return
		default:
		}

		// Notify TUI about connection loss
		cm.p.Send(connectionLostMsg{err: err})

		// Attempt to reconnect
		if !cm.reconnect() {
			return // Shutdown requested during reconnect
		}
	}
}

// readFromConnection polls and decodes until the connection fails or
// shutdown is requested. Replies are batched to the TUI at a fixed rate.
func (cm *connectionManager) readFromConnection(decoder *vesc.StreamDecoder) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-cm.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	chunks, done := startReader(ctx, cm.getConn())

	poll := time.NewTicker(cm.interval)
	defer poll.Stop()
	flush := time.NewTicker(dashboardBatchInterval)
	defer flush.Stop()

	batch := dashboardBatchMsg{stream: decoder.Stats()}
	if err := cm.send(cm.request); err != nil {
		batch.sendErr = err
	}

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return <-done
			}
			data := chunk.data
			for len(data) > 0 {
				n := decoder.Feed(data)
				data = data[n:]
				for reply := range decoder.Replies() {
					batch.replies = append(batch.replies, timedReply{reply: reply, at: chunk.at})
				}
			}

		case <-poll.C:
			if err := cm.send(cm.request); err != nil {
				batch.sendErr = err
			}

		case <-flush.C:
			// Send batch if we have anything
			if len(batch.replies) > 0 || batch.sendErr != nil || decoder.Stats() != batch.stream {
				batch.stream = decoder.Stats()
				cm.p.Send(batch)
				batch = dashboardBatchMsg{stream: batch.stream}
			}
		}
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *connectionManager) reconnect() bool {
	// Close old connection
	if conn := cm.getConn(); conn != nil {
		conn.Close()
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		// Attempt to reconnect
		conn, connInfo, err := OpenConnection()
		if err == nil {
			cm.setConn(conn, connInfo)

			// Notify TUI about reconnection
			cm.p.Send(reconnectedMsg{connInfo: connInfo})
			return true
		}

		// Exponential backoff
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
