// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/vescope/internal/config"
	"github.com/Thermoquad/vescope/pkg/vesc"
)

var (
	sendCAN  int
	sendWait time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <command> [args...]",
	Short: "Encode and send a single command",
	Long: `Encode one command and write it to the connection.

Commands:
  get_values                       Request all telemetry values
  get_values_selective FIELD...    Request only the named fields
  current AMPS                     Set motor current
  rpm RPM                          Set electrical RPM
  handbrake AMPS                   Set handbrake current

Use --can to forward the command over CAN to another controller. Requests for
values wait up to --wait for the reply and print it.

Fields: ` + fieldList(),
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().IntVar(&sendCAN, "can", config.NoCAN, "Forward the command to this CAN controller id")
	sendCmd.Flags().DurationVar(&sendWait, "wait", time.Second, "How long to wait for a values reply (0 to not wait)")
}

func runSend(cmd *cobra.Command, args []string) error {
	command, err := parseSendArgs(args)
	if err != nil {
		return err
	}
	command, err = wrapCAN(command, sendCAN)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Debug().Str("connection", connInfo).Msg("connected")

	wait := expectsReply(command) && sendWait > 0
	ctx, cancel := context.WithTimeout(cmd.Context(), sendWait)
	defer cancel()

	var (
		chunks <-chan linkChunk
		done   <-chan error
	)
	if wait {
		chunks, done = startReader(ctx, conn)
	}

	if err := sendCommand(conn, command); err != nil {
		return fmt.Errorf("send %s: %w", command.CommandID(), err)
	}
	fmt.Printf("Sent: %s\n", vesc.FormatCommand(command))

	if !wait {
		return nil
	}

	reply, at, ok := awaitReply(ctx, chunks, newDecoder(), nil)
	if ok {
		fmt.Print(vesc.FormatReply(reply, at))
		return nil
	}
	if ctx.Err() == nil {
		if err := <-done; err != nil {
			return fmt.Errorf("read reply: %w", err)
		}
	}
	return fmt.Errorf("no reply within %s", sendWait)
}

// parseSendArgs turns command line arguments into a command.
func parseSendArgs(args []string) (vesc.Command, error) {
	if len(args) == 0 {
		return nil, errors.New("missing command")
	}

	name, rest := args[0], args[1:]
	switch name {
	case "get_values":
		if len(rest) != 0 {
			return nil, fmt.Errorf("%s takes no arguments", name)
		}
		return vesc.GetValues{}, nil

	case "get_values_selective":
		if len(rest) == 0 {
			return nil, fmt.Errorf("%s needs at least one field", name)
		}
		mask, err := vesc.ParseFieldMask(rest...)
		if err != nil {
			return nil, err
		}
		return vesc.GetValuesSelective{Mask: mask}, nil

	case "current", "handbrake":
		if len(rest) != 1 {
			return nil, fmt.Errorf("%s takes exactly one argument (amps)", name)
		}
		amps, err := strconv.ParseFloat(rest[0], 32)
		if err != nil {
			return nil, fmt.Errorf("invalid current %q: %w", rest[0], err)
		}
		if name == "current" {
			return vesc.SetCurrent{Amps: float32(amps)}, nil
		}
		return vesc.SetHandbrake{Amps: float32(amps)}, nil

	case "rpm":
		if len(rest) != 1 {
			return nil, fmt.Errorf("%s takes exactly one argument", name)
		}
		rpm, err := strconv.ParseInt(rest[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid rpm %q: %w", rest[0], err)
		}
		return vesc.SetRPM{RPM: int32(rpm)}, nil

	default:
		return nil, fmt.Errorf("unknown command %q", name)
	}
}

// wrapCAN wraps cmd in ForwardCAN unless canID is config.NoCAN.
func wrapCAN(cmd vesc.Command, canID int) (vesc.Command, error) {
	if canID == config.NoCAN {
		return cmd, nil
	}
	if canID < 0 || canID > 255 {
		return nil, fmt.Errorf("CAN id %d out of range (0-255)", canID)
	}
	return vesc.ForwardCAN{TargetID: uint8(canID), Inner: cmd}, nil
}

// expectsReply reports whether the controller answers cmd.
func expectsReply(cmd vesc.Command) bool {
	for {
		switch c := cmd.(type) {
		case vesc.ForwardCAN:
			cmd = c.Inner
		case vesc.GetValues, vesc.GetValuesSelective:
			return true
		default:
			return false
		}
	}
}

func fieldList() string {
	return strings.Join(vesc.FieldNames(), ", ")
}
