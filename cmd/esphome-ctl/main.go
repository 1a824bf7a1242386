// Command esphome-ctl runs and inspects ESPHome native API device connections.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "esphome-ctl",
		Short: "Connect to ESPHome devices over the native API",
		Long: `esphome-ctl keeps encrypted native API connections to a set of
ESPHome devices, mirrors their entities and states, and exposes them
over HTTP and NATS.

It can also browse the network for devices, generate encryption keys
and read protocol capture files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		discoverCmd(),
		logCmd(),
		genkeyCmd(),
		versionCmd(),
	)
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "esphome-ctl %s (%s)\n", version, commit)
		},
	}
}

// logOutput is where operational logs go. The interactive shell redirects
// it through readline.
var logOutput = newRedirectWriter(os.Stderr)

type redirectWriter struct {
	w atomic.Pointer[io.Writer]
}

func newRedirectWriter(w io.Writer) *redirectWriter {
	r := &redirectWriter{}
	r.Set(w)
	return r
}

func (r *redirectWriter) Set(w io.Writer) { r.w.Store(&w) }

func (r *redirectWriter) Write(p []byte) (int, error) {
	return (*r.w.Load()).Write(p)
}

// newLogger returns the operational logger for level ("debug", "info", ...).
func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: l})), nil
}
