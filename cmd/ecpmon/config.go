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

package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ZaparooProject/go-ecp/internal/frame"
	"github.com/ZaparooProject/go-ecp/internal/logging"
	"github.com/ZaparooProject/go-ecp/transport/uart"
)

type settings struct {
	Device         string
	Replay         string
	Address        string
	MetricsAddr    string
	IgnorePaths    []string
	Log            logging.Config
	BaudRate       int
	MaxFrameLength int
	MaxReconnects  int
	ReadTimeout    time.Duration
	ReconnectDelay time.Duration
	Raw            bool
	Debug          bool
	USBOnly        bool
	List           bool
}

func defaultSettings() settings {
	return settings{
		BaudRate:       uart.DefaultBaudRate,
		MaxFrameLength: frame.DefaultMaxLength,
		ReconnectDelay: 2 * time.Second,
		MaxReconnects:  -1,
		Log:            logging.DefaultConfig(),
	}
}

type fileConfig struct {
	Device         string         `toml:"device"`
	Replay         string         `toml:"replay"`
	Address        string         `toml:"address"`
	MetricsAddr    string         `toml:"metrics_addr"`
	ReadTimeout    string         `toml:"read_timeout"`
	ReconnectDelay string         `toml:"reconnect_delay"`
	IgnorePaths    []string       `toml:"ignore_paths"`
	Log            logging.Config `toml:"log"`
	BaudRate       int            `toml:"baud_rate"`
	MaxFrameLength int            `toml:"max_frame_length"`
	MaxReconnects  int            `toml:"max_reconnects"`
	Raw            bool           `toml:"raw"`
	Debug          bool           `toml:"debug"`
	USBOnly        bool           `toml:"usb_only"`
}

// loadSettings applies the keys present in the TOML file at path on top of cfg
func loadSettings(path string, cfg settings) (settings, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load ecpmon config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return settings{}, fmt.Errorf("load ecpmon config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("device") {
		cfg.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("replay") {
		cfg.Replay = strings.TrimSpace(raw.Replay)
	}
	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("baud_rate") {
		cfg.BaudRate = raw.BaudRate
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return settings{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}
	if meta.IsDefined("reconnect_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReconnectDelay))
		if err != nil {
			return settings{}, fmt.Errorf("parse reconnect_delay: %w", err)
		}
		cfg.ReconnectDelay = d
	}
	if meta.IsDefined("max_frame_length") {
		cfg.MaxFrameLength = raw.MaxFrameLength
	}
	if meta.IsDefined("max_reconnects") {
		cfg.MaxReconnects = raw.MaxReconnects
	}
	if meta.IsDefined("raw") {
		cfg.Raw = raw.Raw
	}
	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}
	if meta.IsDefined("usb_only") {
		cfg.USBOnly = raw.USBOnly
	}
	if meta.IsDefined("ignore_paths") {
		cfg.IgnorePaths = normalizePaths(raw.IgnorePaths)
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = raw.Log.Level
	}
	if meta.IsDefined("log", "format") {
		cfg.Log.Format = raw.Log.Format
	}
	if meta.IsDefined("log", "file") {
		cfg.Log.File = strings.TrimSpace(raw.Log.File)
	}
	if meta.IsDefined("log", "max_size_mb") {
		cfg.Log.MaxSizeMB = raw.Log.MaxSizeMB
	}
	if meta.IsDefined("log", "max_backups") {
		cfg.Log.MaxBackups = raw.Log.MaxBackups
	}
	if meta.IsDefined("log", "max_age_days") {
		cfg.Log.MaxAgeDays = raw.Log.MaxAgeDays
	}
	if meta.IsDefined("log", "compress") {
		cfg.Log.Compress = raw.Log.Compress
	}

	return cfg, nil
}

func normalizePaths(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// parseSettings reads the config file named by -config, if any, then lets
// explicitly set flags override it
func parseSettings(args []string) (settings, error) {
	fs := flag.NewFlagSet("ecpmon", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a TOML config file")
	device := fs.String("device", "",
		"Serial device path (e.g., /dev/ttyUSB0 or COM3). Leave empty for auto-detection.")
	replay := fs.String("replay", "", "Replay a captured byte stream from a file instead of a serial port")
	address := fs.String("tcp", "", "Read from a TCP serial bridge at host:port")
	raw := fs.Bool("raw", false, "Print raw frame bytes with each record")
	debug := fs.Bool("debug", false, "Enable debug output")
	list := fs.Bool("list", false, "List candidate serial ports and exit")
	metricsAddr := fs.String("metrics", "", "Serve Prometheus metrics on this address, e.g. :9102")
	logFile := fs.String("log-file", "", "Also write JSON logs to this file, rotated by size")
	if err := fs.Parse(args); err != nil {
		return settings{}, err
	}

	cfg := defaultSettings()
	if *configPath != "" {
		loaded, err := loadSettings(*configPath, cfg)
		if err != nil {
			return settings{}, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Device = *device
		case "replay":
			cfg.Replay = *replay
		case "tcp":
			cfg.Address = *address
		case "raw":
			cfg.Raw = *raw
		case "debug":
			cfg.Debug = *debug
		case "metrics":
			cfg.MetricsAddr = *metricsAddr
		case "log-file":
			cfg.Log.File = *logFile
		}
	})
	cfg.List = *list

	if cfg.Debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.validate(); err != nil {
		return settings{}, err
	}
	return cfg, nil
}

func (s settings) validate() error {
	sources := 0
	for _, v := range []string{s.Device, s.Replay, s.Address} {
		if v != "" {
			sources++
		}
	}
	if sources > 1 {
		return errors.New("only one of device, replay or tcp may be set")
	}
	if s.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", s.BaudRate)
	}
	if s.MaxFrameLength < frame.StatusHeaderLength || s.MaxFrameLength > frame.MaxStatusLength {
		return fmt.Errorf("max_frame_length must be between %d and %d",
			frame.StatusHeaderLength, frame.MaxStatusLength)
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		return err
	}
	return nil
}
