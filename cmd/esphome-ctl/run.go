package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/esphome-native/esphome-go/cmd/esphome-ctl/api"
	"github.com/esphome-native/esphome-go/cmd/esphome-ctl/interactive"
	"github.com/esphome-native/esphome-go/pkg/bridge"
	"github.com/esphome-native/esphome-go/pkg/config"
	plog "github.com/esphome-native/esphome-go/pkg/log"
	"github.com/esphome-native/esphome-go/pkg/metrics"
	"github.com/esphome-native/esphome-go/pkg/service"
)

type runOptions struct {
	configPath  string
	interactive bool
	logLevel    string
	listen      string
	natsURL     string
	protocolLog string
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the configured devices and serve their state",
		Long: `Connect to every device in the configuration file and keep the
connections alive. Device state is served over HTTP when a listen
address is configured and published on NATS when a server URL is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "esphome.yaml", "Configuration file")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "Start the command shell")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&opts.listen, "listen", "", "HTTP listen address (overrides metrics_address)")
	f.StringVar(&opts.natsURL, "nats", "", "NATS server URL (overrides nats.url)")
	f.StringVar(&opts.protocolLog, "protocol-log", "", "Protocol capture file (overrides protocol_log)")
	return cmd
}

func run(ctx context.Context, opts runOptions) error {
	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.listen != "" {
		cfg.MetricsAddress = opts.listen
	}
	if opts.natsURL != "" {
		cfg.NATS.URL = opts.natsURL
	}
	if opts.protocolLog != "" {
		cfg.ProtocolLog = opts.protocolLog
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svcConfig := service.Config{
		DefaultEncryptionKey: cfg.Defaults.EncryptionKey,
		Logger:               logger,
		Metrics:              metrics.New(),
	}

	if cfg.ProtocolLog != "" {
		fileLogger, err := plog.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return fmt.Errorf("failed to open protocol log: %w", err)
		}
		defer fileLogger.Close()
		svcConfig.ProtocolLogger = fileLogger
		logger.Info("capturing protocol events", "path", cfg.ProtocolLog)
	}

	var b *bridge.Bridge
	if cfg.NATS.URL != "" {
		nc, err := connectNATS(cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		defer nc.Close()
		b = bridge.New(nc, cfg.NATSPrefix(), bridge.WithLogger(logger))
		defer b.Close()
		svcConfig.Collaborators = b.Device
	}

	ctrl := service.New(svcConfig)
	defer ctrl.Close()

	if b != nil {
		if err := b.SubscribeCommands(ctrl.Command); err != nil {
			return err
		}
		if err := b.SubscribeHostStates(ctrl.PublishState); err != nil {
			return err
		}
	}

	devices, err := cfg.ConnectionConfigs()
	if err != nil {
		return err
	}
	for _, dc := range devices {
		if err := ctrl.Add(dc); err != nil {
			return fmt.Errorf("add %s: %w", dc.Name, err)
		}
		logger.Info("device added", "device", dc.Name, "host", dc.Host, "port", dc.Port)
	}

	var srv *api.Server
	if cfg.MetricsAddress != "" {
		srv = api.NewServer(ctrl, api.WithLogger(logger))
		go func() {
			logger.Info("serving HTTP", "address", cfg.MetricsAddress)
			if err := srv.ListenAndServe(cfg.MetricsAddress); err != nil {
				logger.Error("HTTP server failed", "error", err)
				cancel()
			}
		}()
	}

	if opts.interactive {
		shell, err := interactive.New(ctrl)
		if err != nil {
			return err
		}
		logOutput.Set(shell.Stdout())
		defer logOutput.Set(os.Stderr)
		go shell.Run(ctx, cancel)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("HTTP shutdown failed", "error", err)
		}
	}
	return nil
}

func connectNATS(url string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("esphome-ctl"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

