package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plog "github.com/esphome-native/esphome-go/pkg/log"
	"github.com/esphome-native/esphome-go/pkg/noise"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenkey(t *testing.T) {
	out, err := execute(t, "genkey")
	require.NoError(t, err)

	key, err := noise.ParseKey(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Len(t, key, noise.KeySize)

	other, err := generateKey()
	require.NoError(t, err)
	assert.NotEqual(t, strings.TrimSpace(out), other)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "esphome-ctl dev")
}

func TestLogView(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")
	logger, err := plog.NewFileLogger(path)
	require.NoError(t, err)
	logger.Log(plog.Event{
		Timestamp:    time.Now(),
		ConnectionID: "0123456789",
		Device:       "kitchen",
		Layer:        plog.LayerWire,
		Category:     plog.CategoryControl,
		Message:      &plog.MessageEvent{Type: 8, Name: "PingResponse"},
	})
	require.NoError(t, logger.Close())

	out, err := execute(t, "log", "view", "--layer", "wire", path)
	require.NoError(t, err)
	assert.Contains(t, out, "[conn:01234567] kitchen IN  CTRL PingResponse")

	_, err = execute(t, "log", "stats", "--layer", "bogus", path)
	assert.ErrorContains(t, err, "invalid layer")
}

func TestRunMissingConfig(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	key, err := generateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "esphome.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
defaults:
  encryption_key: "`+key+`"
devices:
  - name: kitchen
    host: 127.0.0.1
    port: 1
`), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = run(ctx, runOptions{configPath: path, logLevel: "error"})
	assert.NoError(t, err)
}

func TestRedirectWriter(t *testing.T) {
	var a, b bytes.Buffer
	w := newRedirectWriter(&a)
	w.Write([]byte("one"))
	w.Set(&b)
	w.Write([]byte("two"))
	assert.Equal(t, "one", a.String())
	assert.Equal(t, "two", b.String())
}
