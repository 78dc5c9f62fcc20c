// Copyright (c) 2024 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
)

var (
	mDriveInfo = prometheus.NewDesc(
		"sed_opal_drive_info",
		"Info metric regarding the detected drives",
		[]string{"device", "model", "serial", "firmware", "protocol"}, nil,
	)
	mSupported = prometheus.NewDesc(
		"sed_opal_supported",
		"Boolean describing whether the kernel reports OPAL locking support for the drive",
		[]string{"device"}, nil,
	)
	mLockingEnabled = prometheus.NewDesc(
		"sed_opal_locking_enabled",
		"Boolean describing whether ownership has been taken and range locking is enabled",
		[]string{"device"}, nil,
	)
	mLocked = prometheus.NewDesc(
		"sed_opal_locked",
		"Boolean describing whether at least one locking range is locked",
		[]string{"device"}, nil,
	)
	mMBREnabled = prometheus.NewDesc(
		"sed_opal_mbr_shadow_enabled",
		"Boolean describing whether MBR shadowing is enabled",
		[]string{"device"}, nil,
	)
	mBlockSize = prometheus.NewDesc(
		"sed_opal_logical_block_size_bytes",
		"Logical block size used for locking range boundaries",
		[]string{"device"}, nil,
	)
	mScrapeErrors = prometheus.NewDesc(
		"sed_opal_scrape_error",
		"Boolean describing whether enumerating block devices failed",
		nil, nil,
	)
)

func bool2float(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func deviceMetrics(state Devices) []prometheus.Metric {
	var m []prometheus.Metric
	for _, s := range state {
		m = append(m,
			prometheus.MustNewConstMetric(mDriveInfo, prometheus.GaugeValue, 1,
				s.Device, s.Identity.Model, s.Identity.SerialNumber, s.Identity.Firmware, s.Identity.Protocol))

		cp := s.Capability
		m = append(m, prometheus.MustNewConstMetric(mSupported, prometheus.GaugeValue,
			bool2float(cp != nil && cp.Supported()), s.Device))

		// This is how far we can make it without OPAL support
		if cp == nil || !cp.Supported() {
			continue
		}

		m = append(m,
			prometheus.MustNewConstMetric(mLockingEnabled, prometheus.GaugeValue, bool2float(cp.Enabled()), s.Device),
			prometheus.MustNewConstMetric(mLocked, prometheus.GaugeValue, bool2float(cp.Locked()), s.Device),
			prometheus.MustNewConstMetric(mMBREnabled, prometheus.GaugeValue, bool2float(cp.MBREnabled()), s.Device),
		)
		if s.Geometry != nil {
			m = append(m, prometheus.MustNewConstMetric(mBlockSize, prometheus.GaugeValue, float64(s.Geometry.BlockSize), s.Device))
		}
	}
	return m
}

type metricCollector struct {
	m []prometheus.Metric
}

func (mc *metricCollector) Collect(c chan<- prometheus.Metric) {
	for _, m := range mc.m {
		c <- m
	}
}

func (mc *metricCollector) Describe(c chan<- *prometheus.Desc) {
}

// liveCollector rescans all drives on every scrape.
type liveCollector struct {
	s *scanner
}

func (lc *liveCollector) Describe(c chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{mDriveInfo, mSupported, mLockingEnabled, mLocked, mMBREnabled, mBlockSize, mScrapeErrors} {
		c <- d
	}
}

func (lc *liveCollector) Collect(c chan<- prometheus.Metric) {
	state, err := lc.s.scan()
	c <- prometheus.MustNewConstMetric(mScrapeErrors, prometheus.GaugeValue, bool2float(err != nil))
	if err != nil {
		lc.s.log.Errorf("scan failed: %v", err)
		return
	}
	for _, m := range deviceMetrics(state) {
		c <- m
	}
}

func outputMetrics(w io.Writer, state Devices) error {
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(&metricCollector{m: deviceMetrics(state)})

	mfs, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to serialize metrics: %v", err)
		}
	}
	return nil
}

func metricsHandler(s *scanner) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(&liveCollector{s: s})
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func serveMetrics(addr string, s *scanner, log *logrus.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler(s))
	log.Infof("serving metrics on %s/metrics", addr)
	return http.ListenAndServe(addr, mux)
}
