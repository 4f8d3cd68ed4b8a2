// Package prom adapts the statsd.Sink metric interface onto Prometheus collectors.
package prom

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creatorhub/jobcore/internal/observability/statsd"
)

// Config configures a Sink.
type Config struct {
	// Namespace prefixes every metric name, e.g. "jobcore".
	Namespace string
	// ConstLabels are attached to every series.
	ConstLabels map[string]string
	// Buckets for timing histograms, in seconds. Defaults to prometheus.DefBuckets.
	Buckets []float64
	// Registry to register collectors with. A fresh registry is created when nil.
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

type vec[T any] struct {
	labels []string
	v      T
}

// Sink registers counter, gauge and histogram vectors on first use.
// The label set of a metric is fixed by the first observation; later tags
// not in that set are dropped and missing ones are recorded as "".
type Sink struct {
	namespace   string
	constLabels prometheus.Labels
	buckets     []float64
	registry    *prometheus.Registry
	logger      *slog.Logger

	mu         sync.Mutex
	counters   map[string]*vec[*prometheus.CounterVec]
	gauges     map[string]*vec[*prometheus.GaugeVec]
	histograms map[string]*vec[*prometheus.HistogramVec]
}

var _ statsd.Sink = (*Sink)(nil)

// NewSink creates a Sink with Go runtime and process collectors registered.
func NewSink(cfg Config) *Sink {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	return &Sink{
		namespace:   sanitizeName(cfg.Namespace),
		constLabels: prometheus.Labels(cfg.ConstLabels),
		buckets:     buckets,
		registry:    reg,
		logger:      logger.With("component", "prom_sink"),
		counters:    make(map[string]*vec[*prometheus.CounterVec]),
		gauges:      make(map[string]*vec[*prometheus.GaugeVec]),
		histograms:  make(map[string]*vec[*prometheus.HistogramVec]),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Registry returns the underlying registry.
func (s *Sink) Registry() *prometheus.Registry { return s.registry }

// Count adds value to the counter "<name>_total".
func (s *Sink) Count(name string, value int64, tags map[string]string) {
	if s == nil || value < 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sanitizeName(name) + "_total"
	c, ok := s.counters[key]
	if !ok {
		labels := labelNames(tags)
		cv := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.namespace, Name: key, Help: name + " counter", ConstLabels: s.constLabels,
		}, labels)
		if !s.register(key, cv) {
			return
		}
		c = &vec[*prometheus.CounterVec]{labels: labels, v: cv}
		s.counters[key] = c
	}
	c.v.WithLabelValues(labelValues(c.labels, tags)...).Add(float64(value))
}

// Gauge sets the gauge "<name>".
func (s *Sink) Gauge(name string, value float64, tags map[string]string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sanitizeName(name)
	g, ok := s.gauges[key]
	if !ok {
		labels := labelNames(tags)
		gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: s.namespace, Name: key, Help: name + " gauge", ConstLabels: s.constLabels,
		}, labels)
		if !s.register(key, gv) {
			return
		}
		g = &vec[*prometheus.GaugeVec]{labels: labels, v: gv}
		s.gauges[key] = g
	}
	g.v.WithLabelValues(labelValues(g.labels, tags)...).Set(value)
}

// Timing observes value in the histogram "<name>_seconds".
func (s *Sink) Timing(name string, value time.Duration, tags map[string]string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sanitizeName(name) + "_seconds"
	h, ok := s.histograms[key]
	if !ok {
		labels := labelNames(tags)
		hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: s.namespace, Name: key, Help: name + " duration", ConstLabels: s.constLabels,
			Buckets: s.buckets,
		}, labels)
		if !s.register(key, hv) {
			return
		}
		h = &vec[*prometheus.HistogramVec]{labels: labels, v: hv}
		s.histograms[key] = h
	}
	h.v.WithLabelValues(labelValues(h.labels, tags)...).Observe(value.Seconds())
}

func (s *Sink) register(name string, c prometheus.Collector) bool {
	if err := s.registry.Register(c); err != nil {
		s.logger.Warn("prometheus register failed", "metric", name, "error", err)
		return false
	}
	return true
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		if n := sanitizeName(k); n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

func labelValues(names []string, tags map[string]string) []string {
	byName := make(map[string]string, len(tags))
	for k, v := range tags {
		byName[sanitizeName(k)] = v
	}
	values := make([]string, len(names))
	for i, n := range names {
		values[i] = byName[n]
	}
	return values
}

// sanitizeName maps StatsD-style dotted names onto the Prometheus name charset.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
