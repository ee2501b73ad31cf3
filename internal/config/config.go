// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads vescope settings from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/vescope/pkg/vesc"
)

// NoCAN disables ForwardCAN wrapping of polled commands.
const NoCAN = -1

// Config holds all vescope configuration.
type Config struct {
	Connection ConnectionConfig `yaml:"connection" toml:"connection"`
	Poll       PollConfig       `yaml:"poll" toml:"poll"`
	Decoder    DecoderConfig    `yaml:"decoder" toml:"decoder"`
	Log        LogConfig        `yaml:"log" toml:"log"`
}

// ConnectionConfig selects a serial port or a WebSocket bridge.
type ConnectionConfig struct {
	Port        string `yaml:"port" toml:"port"`
	Baud        int    `yaml:"baud" toml:"baud"`
	URL         string `yaml:"url" toml:"url"`
	Username    string `yaml:"username" toml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify" toml:"no_ssl_verify"`
	Timeout     string `yaml:"timeout" toml:"timeout"` // read timeout, e.g. "100ms"
}

// PollConfig controls the request loop of the poll and dashboard commands.
type PollConfig struct {
	Interval string   `yaml:"interval" toml:"interval"` // e.g. "200ms"
	Fields   []string `yaml:"fields" toml:"fields"`     // empty requests full GetValues
	CANID    int      `yaml:"can_id" toml:"can_id"`     // -1 talks to the local controller
	Count    int      `yaml:"count" toml:"count"`       // 0 polls until interrupted
}

// DecoderConfig sizes the stream decoder and statistics window.
type DecoderConfig struct {
	BufferSize   int `yaml:"buffer_size" toml:"buffer_size"`
	SampleWindow int `yaml:"sample_window" toml:"sample_window"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
}

// Default returns a config with sensible defaults.
func Default() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Baud:    115200,
			Timeout: "100ms",
		},
		Poll: PollConfig{
			Interval: "200ms",
			CANID:    NoCAN,
		},
		Decoder: DecoderConfig{
			BufferSize:   vesc.DefaultStreamCapacity,
			SampleWindow: vesc.DefaultSampleWindow,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. The format is chosen by extension:
// .yaml and .yml use YAML, .toml uses TOML.
func Load(path string) (*Config, error) {
	cfg := Default()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("load config %s: unsupported format %q (expected .yaml, .yml or .toml)", path, ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Connection.Port != "" && c.Connection.URL != "" {
		errs = append(errs, errors.New("connection: port and url are mutually exclusive"))
	}
	if c.Connection.Baud <= 0 {
		errs = append(errs, fmt.Errorf("connection: invalid baud rate %d", c.Connection.Baud))
	}
	if _, err := c.ReadTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.PollInterval(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.PollMask(); err != nil {
		errs = append(errs, fmt.Errorf("poll: %w", err))
	}
	if c.Poll.CANID < NoCAN || c.Poll.CANID > 255 {
		errs = append(errs, fmt.Errorf("poll: can_id %d out of range (-1 to 255)", c.Poll.CANID))
	}
	if c.Poll.Count < 0 {
		errs = append(errs, fmt.Errorf("poll: negative count %d", c.Poll.Count))
	}
	if c.Decoder.BufferSize != 0 && c.Decoder.BufferSize < vesc.MaxFrameSize {
		errs = append(errs, fmt.Errorf("decoder: buffer_size %d cannot hold a %d byte frame", c.Decoder.BufferSize, vesc.MaxFrameSize))
	}

	return errors.Join(errs...)
}

// ReadTimeout returns the parsed connection read timeout.
func (c *Config) ReadTimeout() (time.Duration, error) {
	return parsePositiveDuration("connection.timeout", c.Connection.Timeout)
}

// PollInterval returns the parsed polling interval.
func (c *Config) PollInterval() (time.Duration, error) {
	return parsePositiveDuration("poll.interval", c.Poll.Interval)
}

// PollMask returns the field mask for selective polling. Zero means the
// full GetValues command should be used.
func (c *Config) PollMask() (vesc.FieldMask, error) {
	return vesc.ParseFieldMask(c.Poll.Fields...)
}

// PollCommand builds the request sent on every poll tick.
func (c *Config) PollCommand() (vesc.Command, error) {
	mask, err := c.PollMask()
	if err != nil {
		return nil, err
	}

	var cmd vesc.Command = vesc.GetValues{}
	if mask != 0 {
		cmd = vesc.GetValuesSelective{Mask: mask}
	}
	if c.Poll.CANID != NoCAN {
		cmd = vesc.ForwardCAN{TargetID: uint8(c.Poll.CANID), Inner: cmd}
	}
	return cmd, nil
}

func parsePositiveDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", name, value)
	}
	return d, nil
}
