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

// Package metrics exports monitor counters and panel state to Prometheus
package metrics

import (
	"net/http"
	"strings"

	ecp "github.com/ZaparooProject/go-ecp"
	"github.com/ZaparooProject/go-ecp/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ecp"

// NewRegistry creates a registry with the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics in reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Source is satisfied by *monitor.Monitor
type Source interface {
	Stats() monitor.Stats
	State() monitor.PanelState
}

// MonitorCollector reads a snapshot from its source on every scrape
type MonitorCollector struct {
	src        Source
	frames     *prometheus.Desc
	skipped    *prometheus.Desc
	readErrors *prometheus.Desc
	reconnects *prometheus.Desc
	known      *prometheus.Desc
	flag       *prometheus.Desc
	lastUpdate *prometheus.Desc
}

// NewMonitorCollector creates a collector for src
func NewMonitorCollector(src Source) *MonitorCollector {
	return &MonitorCollector{
		src: src,
		frames: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "frames_total"),
			"Decoded frames by type.", []string{"type"}, nil),
		skipped: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "frames_skipped_total"),
			"Frames that produced no record, by reason.", []string{"reason"}, nil),
		readErrors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "read_errors_total"),
			"Failed frame reads, idle timeouts included.", nil, nil),
		reconnects: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "reconnects_total"),
			"Transport reopens after a read failure.", nil, nil),
		known: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "panel", "state_known"),
			"1 once a frame has been decoded since the transport opened.", nil, nil),
		flag: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "panel", "flag"),
			"Panel status flags, 1 when set.", []string{"flag"}, nil),
		lastUpdate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "panel", "last_update_timestamp_seconds"),
			"Unix time of the last decoded frame.", nil, nil),
	}
}

// Describe implements prometheus.Collector
func (c *MonitorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.frames
	ch <- c.skipped
	ch <- c.readErrors
	ch <- c.reconnects
	ch <- c.known
	ch <- c.flag
	ch <- c.lastUpdate
}

// Collect implements prometheus.Collector
func (c *MonitorCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.src.Stats()
	state := c.src.State()

	ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue,
		float64(stats.DisplayMessages), ecp.FrameDisplayMessage.String())
	ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue,
		float64(stats.StatusChanges), ecp.FrameStatusChange.String())

	for _, reason := range skipReasons {
		ch <- prometheus.MustNewConstMetric(c.skipped, prometheus.CounterValue,
			float64(stats.Skipped[reason]), reasonLabel(reason))
	}

	ch <- prometheus.MustNewConstMetric(c.readErrors, prometheus.CounterValue, float64(stats.ReadErrors))
	ch <- prometheus.MustNewConstMetric(c.reconnects, prometheus.CounterValue, float64(stats.Reconnects))
	ch <- prometheus.MustNewConstMetric(c.known, prometheus.GaugeValue, boolValue(state.Known))

	for _, f := range panelFlags(state) {
		ch <- prometheus.MustNewConstMetric(c.flag, prometheus.GaugeValue, boolValue(f.set), f.name)
	}

	var ts float64
	if !state.LastUpdate.IsZero() {
		ts = float64(state.LastUpdate.UnixNano()) / 1e9
	}
	ch <- prometheus.MustNewConstMetric(c.lastUpdate, prometheus.GaugeValue, ts)
}

var skipReasons = []ecp.SkipReason{
	ecp.SkipUnrecognized,
	ecp.SkipShortStatus,
	ecp.SkipFieldOutOfRange,
	ecp.SkipFrameTooLarge,
}

func reasonLabel(r ecp.SkipReason) string {
	return strings.ReplaceAll(r.String(), " ", "_")
}

type flagValue struct {
	name string
	set  bool
}

func panelFlags(s monitor.PanelState) []flagValue {
	return []flagValue{
		{"ready", s.Ready},
		{"armed", s.Armed},
		{"armed_stay", s.ArmedStay},
		{"armed_away", s.ArmedAway},
		{"alarm", s.Alarm},
		{"ac_power", s.ACPower},
		{"low_battery", s.LowBattery},
		{"chime", s.ChimeMode},
		{"bypass", s.Bypass},
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
