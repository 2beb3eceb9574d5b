// go-ecp
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-ecp.
//
// go-ecp is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-ecp is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ecp; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Command ecpmon prints the frames seen on a Honeywell ECP keypad bus
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ecp "github.com/ZaparooProject/go-ecp"
	"github.com/ZaparooProject/go-ecp/detection"
	"github.com/ZaparooProject/go-ecp/internal/logging"
	"github.com/ZaparooProject/go-ecp/internal/metrics"
	"github.com/ZaparooProject/go-ecp/monitor"
	"github.com/ZaparooProject/go-ecp/transport/stream"
	"github.com/ZaparooProject/go-ecp/transport/uart"
	"go.uber.org/zap"
)

const (
	dialTimeout     = 5 * time.Second
	shutdownTimeout = 2 * time.Second
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ecpmon: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cfg, err := parseSettings(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	ecp.SetLogger(logger)

	if cfg.List {
		return printPorts(out, detectionOptions(cfg))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return monitorBus(ctx, cfg, logger, out)
}

func detectionOptions(cfg settings) detection.Options {
	opts := detection.DefaultOptions()
	opts.USBOnly = cfg.USBOnly
	opts.IgnorePaths = cfg.IgnorePaths
	return opts
}

func printPorts(out io.Writer, opts detection.Options) error {
	ports, err := detection.DetectSerialPorts(opts)
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(out, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		_, _ = fmt.Fprintln(out, p.String())
	}
	return nil
}

// newTransportFactory picks the byte source from the settings: a capture
// file, a TCP bridge, a named serial port, or the first detected port
func newTransportFactory(cfg settings, logger *zap.Logger) monitor.TransportFactory {
	switch {
	case cfg.Replay != "":
		return func() (ecp.Transport, error) {
			t, err := stream.Open(cfg.Replay)
			if err != nil {
				return nil, ecp.NewTransportError("open", cfg.Replay, err, ecp.ErrorTypePermanent)
			}
			return t, nil
		}
	case cfg.Address != "":
		return func() (ecp.Transport, error) {
			t, err := stream.Dial(cfg.Address, dialTimeout)
			if err != nil {
				return nil, err
			}
			return t, nil
		}
	default:
		return func() (ecp.Transport, error) {
			path := cfg.Device
			if path == "" {
				port, err := detection.FirstPort(detectionOptions(cfg))
				if err != nil {
					return nil, err
				}
				logger.Info("using detected serial port", zap.Stringer("port", port))
				path = port.Path
			}
			t, err := uart.New(path,
				uart.WithBaudRate(cfg.BaudRate),
				uart.WithReadTimeout(cfg.ReadTimeout))
			if err != nil {
				return nil, err
			}
			return t, nil
		}
	}
}

func monitorBus(ctx context.Context, cfg settings, logger *zap.Logger, out io.Writer) error {
	mcfg := monitor.DefaultConfig()
	mcfg.Logger = logger
	mcfg.MaxFrameLength = cfg.MaxFrameLength
	mcfg.ReconnectDelay = cfg.ReconnectDelay
	mcfg.MaxReconnects = cfg.MaxReconnects
	mcfg.IncludeRawData = cfg.Raw
	replaying := cfg.Replay != ""
	if replaying {
		mcfg.MaxReconnects = 0
	}

	m := monitor.New(newTransportFactory(cfg, logger), mcfg)
	attachPrinters(m, out, cfg.Raw)
	m.OnStateChanged = func(_, curr monitor.PanelState) {
		logger.Debug("panel state changed",
			zap.Bool("ready", curr.Ready),
			zap.Bool("armed", curr.Armed),
			zap.Bool("alarm", curr.Alarm),
			zap.Bool("ac_power", curr.ACPower))
	}

	if cfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(cfg.MetricsAddr, m, logger)
		defer stopMetrics()
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = m.Close()
		case <-done:
		}
	}()

	err := m.Run(ctx)
	stats := m.Stats()
	logger.Info("monitor stopped",
		zap.Int("display_messages", stats.DisplayMessages),
		zap.Int("status_changes", stats.StatusChanges),
		zap.Int("read_errors", stats.ReadErrors),
		zap.Int("reconnects", stats.Reconnects))

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case replaying && errors.Is(err, ecp.ErrShortRead):
		// End of capture
		return nil
	default:
		return err
	}
}

// serveMetrics exposes the monitor on addr until the returned func is called
func serveMetrics(addr string, m *monitor.Monitor, logger *zap.Logger) func() {
	reg := metrics.NewRegistry()
	reg.MustRegister(metrics.NewMonitorCollector(m))

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// attachPrinters writes display text and status records to out
func attachPrinters(m *monitor.Monitor, out io.Writer, raw bool) {
	m.OnDisplayMessage = func(msg *ecp.DisplayMessage) error {
		if raw {
			_, err := fmt.Fprintf(out, "%s  %s\n", msg.Text, hex.EncodeToString(msg.Raw))
			return err
		}
		_, err := fmt.Fprintln(out, msg.Text)
		return err
	}
	m.OnStatusChange = func(status *ecp.StatusChange) error {
		if raw {
			_, err := fmt.Fprintf(out, "%s  %s\n", status, hex.EncodeToString(status.Raw))
			return err
		}
		_, err := fmt.Fprintln(out, status.String())
		return err
	}
}
