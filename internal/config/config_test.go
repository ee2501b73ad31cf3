// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/vescope/pkg/vesc"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	interval, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, interval)

	cmd, err := cfg.PollCommand()
	require.NoError(t, err)
	assert.Equal(t, vesc.GetValues{}, cmd)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "vescope.yaml", `
connection:
  port: /dev/ttyACM0
  baud: 921600
poll:
  interval: 50ms
  fields: [rpm, voltage_in]
  can_id: 12
log:
  level: debug
  json: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Connection.Port)
	assert.Equal(t, 921600, cfg.Connection.Baud)
	assert.Equal(t, "100ms", cfg.Connection.Timeout, "unset keys keep their defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, vesc.DefaultStreamCapacity, cfg.Decoder.BufferSize)

	cmd, err := cfg.PollCommand()
	require.NoError(t, err)
	assert.Equal(t, vesc.ForwardCAN{
		TargetID: 12,
		Inner:    vesc.GetValuesSelective{Mask: vesc.FieldRPM | vesc.FieldVoltageIn},
	}, cmd)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "vescope.toml", `
[connection]
url = "wss://bridge.local/serial"
username = "admin"
no_ssl_verify = true

[poll]
interval = "1s"
count = 10

[decoder]
buffer_size = 1024
sample_window = 32
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://bridge.local/serial", cfg.Connection.URL)
	assert.Equal(t, "admin", cfg.Connection.Username)
	assert.True(t, cfg.Connection.NoSSLVerify)
	assert.Equal(t, 10, cfg.Poll.Count)
	assert.Equal(t, NoCAN, cfg.Poll.CANID)
	assert.Equal(t, 1024, cfg.Decoder.BufferSize)
	assert.Equal(t, 32, cfg.Decoder.SampleWindow)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unsupported extension", "vescope.json", "{}", "unsupported format"},
		{"bad yaml", "vescope.yaml", "connection: [", "load config"},
		{"bad toml", "vescope.toml", "[connection", "load config"},
		{"bad interval", "vescope.yaml", "poll:\n  interval: soon\n", "poll.interval"},
		{"zero interval", "vescope.yaml", "poll:\n  interval: 0s\n", "must be positive"},
		{"unknown field", "vescope.yaml", "poll:\n  fields: [torque]\n", "unknown field"},
		{"can id range", "vescope.toml", "[poll]\ncan_id = 300\n", "can_id"},
		{"both transports", "vescope.yaml", "connection:\n  port: /dev/ttyUSB0\n  url: ws://x\n", "mutually exclusive"},
		{"small buffer", "vescope.yaml", "decoder:\n  buffer_size: 64\n", "buffer_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
