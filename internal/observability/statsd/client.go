// Package statsd emits job queue metrics using the DogStatsD line protocol.
package statsd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Sink describes the minimal interface required to emit StatsD-style metrics.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

const (
	defaultFlushInterval = 200 * time.Millisecond
	// Fits a single Ethernet frame after IP and UDP headers.
	defaultMaxPacketSize = 1432
	defaultQueueSize     = 1024
)

// Config describes how to connect to a StatsD-compatible agent.
type Config struct {
	Enabled    bool
	Address    string
	Prefix     string
	Logger     *slog.Logger
	GlobalTags map[string]string

	// FlushInterval bounds how long a line waits in the buffer. Defaults to 200ms.
	FlushInterval time.Duration
	// MaxPacketSize caps a datagram; lines are newline-joined up to this size. Defaults to 1432.
	MaxPacketSize int
	// QueueSize is the number of lines held before new ones are dropped. Defaults to 1024.
	QueueSize int
}

// Client batches metric lines into UDP datagrams from a single background goroutine.
// Emitting never blocks: when the queue is full the line is dropped and counted.
type Client struct {
	prefix     string
	globalTags string
	maxPacket  int
	interval   time.Duration
	logger     *slog.Logger

	conn    net.Conn
	lines   chan string
	quit    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
	once    sync.Once
	dropped atomic.Int64
}

var _ Sink = (*Client)(nil)

// NewClient dials the configured agent and starts the flush loop. A disabled
// config, or one without an address, returns a client whose methods are no-ops.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		prefix:     strings.Trim(strings.TrimSpace(cfg.Prefix), "."),
		globalTags: formatTags(cfg.GlobalTags, nil),
		maxPacket:  cfg.MaxPacketSize,
		interval:   cfg.FlushInterval,
		logger:     logger.With("component", "statsd"),
	}
	if c.maxPacket <= 0 {
		c.maxPacket = defaultMaxPacketSize
	}
	if c.interval <= 0 {
		c.interval = defaultFlushInterval
	}

	address := strings.TrimSpace(cfg.Address)
	if !cfg.Enabled || address == "" {
		c.closed.Store(true)
		return c, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := (&net.Dialer{}).DialContext(ctx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("statsd dial %s: %w", address, err)
	}

	queue := cfg.QueueSize
	if queue <= 0 {
		queue = defaultQueueSize
	}
	c.conn = conn
	c.lines = make(chan string, queue)
	c.quit = make(chan struct{})
	c.stopped = make(chan struct{})
	go c.loop()
	return c, nil
}

// Enabled reports whether the client actively emits metrics.
func (c *Client) Enabled() bool {
	return c != nil && !c.closed.Load()
}

// Dropped returns how many lines were discarded because the queue was full.
func (c *Client) Dropped() int64 {
	if c == nil {
		return 0
	}
	return c.dropped.Load()
}

// Count increments a counter metric.
func (c *Client) Count(name string, value int64, tags map[string]string) {
	c.emit(name, strconv.FormatInt(value, 10), "c", tags)
}

// Gauge records the current value for a gauge metric.
func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	c.emit(name, formatFloat(value), "g", tags)
}

// Timing records a timing metric in milliseconds.
func (c *Client) Timing(name string, value time.Duration, tags map[string]string) {
	c.emit(name, formatFloat(float64(value)/float64(time.Millisecond)), "ms", tags)
}

// Close flushes buffered lines and releases the socket. It is safe to call more than once.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	var err error
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.quit)
		<-c.stopped
		err = c.conn.Close()
	})
	return err
}

func (c *Client) emit(name, value, kind string, tags map[string]string) {
	if !c.Enabled() {
		return
	}
	metric := c.metricName(name)
	if metric == "" {
		return
	}
	line := metric + ":" + value + "|" + kind + mergeTagSuffix(c.globalTags, formatTags(tags, nil))
	select {
	case c.lines <- line:
	default:
		c.dropped.Add(1)
	}
}

func (c *Client) loop() {
	defer close(c.stopped)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var buf bytes.Buffer
	add := func(line string) {
		if buf.Len() > 0 && buf.Len()+1+len(line) > c.maxPacket {
			c.flush(&buf)
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
	}

	for {
		select {
		case line := <-c.lines:
			add(line)
		case <-ticker.C:
			c.flush(&buf)
		case <-c.quit:
			for {
				select {
				case line := <-c.lines:
					add(line)
				default:
					c.flush(&buf)
					return
				}
			}
		}
	}
}

func (c *Client) flush(buf *bytes.Buffer) {
	if buf.Len() == 0 {
		return
	}
	if _, err := c.conn.Write(buf.Bytes()); err != nil {
		c.logger.Debug("statsd write failed", "error", err)
	}
	buf.Reset()
}

func (c *Client) metricName(name string) string {
	n := normalizeMetricName(name)
	switch {
	case n == "":
		return ""
	case c.prefix == "":
		return n
	default:
		return c.prefix + "." + n
	}
}

var metricNameReplacer = strings.NewReplacer(" ", "_", "/", "_", ":", "_", "|", "_", "@", "_")

func normalizeMetricName(name string) string {
	n := metricNameReplacer.Replace(strings.TrimSpace(name))
	for strings.Contains(n, "..") {
		n = strings.ReplaceAll(n, "..", ".")
	}
	return strings.Trim(n, ".")
}

// formatTags renders tags as "k:v,k:v" sorted by key. Keys in override win.
func formatTags(tags, override map[string]string) string {
	merged := make(map[string]string, len(tags)+len(override))
	for _, src := range []map[string]string{tags, override} {
		for k, v := range src {
			if key := strings.TrimSpace(k); key != "" {
				merged[key] = strings.TrimSpace(v)
			}
		}
	}
	if len(merged) == 0 {
		return ""
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + merged[k]
	}
	return strings.Join(parts, ",")
}

func mergeTagSuffix(global, local string) string {
	switch {
	case global == "" && local == "":
		return ""
	case global == "":
		return "|#" + local
	case local == "":
		return "|#" + global
	default:
		return "|#" + global + "," + local
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
