// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry exposes Prometheus collectors for the daemon's HTTP
// surface and its session population, and mounts /metrics for scraping.
package telemetry

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bureau-foundation/agentcore/lib/clock"
	"github.com/bureau-foundation/agentcore/sessioncore"
	"github.com/bureau-foundation/agentcore/sessionmanager"
)

// sessionLister is the slice of sessionmanager.Manager that WatchSessions
// needs. Kept narrow so tests can supply a fake without building a full
// Manager.
type sessionLister interface {
	List() []sessionmanager.Info
}

// Registry holds the process's Prometheus collectors and the ticker
// goroutine that keeps the session gauges current.
type Registry struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sessionsByState *prometheus.GaugeVec
	sessionsByAgent *prometheus.GaugeVec
	eventsTotal     prometheus.Gauge

	registry *prometheus.Registry
	clk      clock.Clock
	logger   *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRegistry constructs a Registry and registers its collectors with
// its own prometheus.Registry, not prometheus.DefaultRegisterer. clk drives the session-gauge poll loop
// started by WatchSessions; logger receives poll errors, if any occur.
func NewRegistry(clk clock.Clock, logger *slog.Logger) *Registry {
	r := &Registry{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentcore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by the daemon, by route and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentcore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		sessionsByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "agentcore",
			Subsystem: "sessions",
			Name:      "by_state",
			Help:      "Current sessions grouped by sessioncore.State.",
		}, []string{"state"}),
		sessionsByAgent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "agentcore",
			Subsystem: "sessions",
			Name:      "by_agent",
			Help:      "Current sessions grouped by agent kind.",
		}, []string{"agent"}),
		eventsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentcore",
			Subsystem: "sessions",
			Name:      "events_current_total",
			Help:      "Sum of eventCount across all current sessions, as of the last poll.",
		}),
		registry: prometheus.NewRegistry(),
		clk:      clk,
		logger:   logger,
		stop:     make(chan struct{}),
	}

	r.registry.MustRegister(r.requests, r.requestDuration, r.sessionsByState, r.sessionsByAgent, r.eventsTotal)

	return r
}

// Handler returns the /metrics scrape endpoint on its own, for callers
// that want it mounted without going through Wrap.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Wrap returns next wrapped in middleware that records request counts
// and latency for every call, with /metrics mounted alongside it for
// scraping. When next is a *http.ServeMux, the route label is the
// matched pattern's path, so path parameters like session ids don't
// explode the label cardinality. Any other handler, including the
// auth-wrapped mux that httpapi.NewRouter returns, is labeled by the
// raw request path.
func (r *Registry) Wrap(next http.Handler) http.Handler {
	mux, hasPatterns := next.(*http.ServeMux)

	instrumented := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		route := req.URL.Path
		if hasPatterns {
			if _, pattern := mux.Handler(req); pattern != "" {
				// Drop a "GET " style method prefix: the method has
				// its own label.
				if _, path, ok := strings.Cut(pattern, " "); ok {
					pattern = path
				}
				route = pattern
			}
		}

		started := r.clk.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, req)

		r.requests.WithLabelValues(route, req.Method, strconv.Itoa(recorder.status)).Inc()
		r.requestDuration.WithLabelValues(route, req.Method).Observe(r.clk.Now().Sub(started).Seconds())
	})

	outer := http.NewServeMux()
	outer.Handle("/metrics", r.Handler())
	outer.Handle("/", instrumented)
	return outer
}

// WatchSessions starts a background poll of manager.List, publishing the
// by-state and by-agent gauges and setting the events gauge to the sum of
// the current sessions' event counts.
// Call Stop to end the poll loop during shutdown.
func (r *Registry) WatchSessions(manager sessionLister) {
	ticker := r.clk.NewTicker(5 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.sample(manager)
			}
		}
	}()
}

// Stop ends the WatchSessions poll loop. Safe to call more than once or
// without a prior WatchSessions call.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *Registry) sample(manager sessionLister) {
	sessions := manager.List()

	byState := make(map[sessioncore.State]int)
	byAgent := make(map[string]int)
	var events int64
	for _, info := range sessions {
		byState[info.State]++
		byAgent[string(info.Agent)]++
		events += info.Metrics.EventCount
	}

	r.sessionsByState.Reset()
	for state, count := range byState {
		r.sessionsByState.WithLabelValues(string(state)).Set(float64(count))
	}
	r.sessionsByAgent.Reset()
	for agent, count := range byAgent {
		r.sessionsByAgent.WithLabelValues(agent).Set(float64(count))
	}
	r.eventsTotal.Set(float64(events))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
