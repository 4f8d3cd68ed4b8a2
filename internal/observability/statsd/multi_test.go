package statsd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSink struct{ counts, gauges, timings int }

func (c *countingSink) Count(string, int64, map[string]string)          { c.counts++ }
func (c *countingSink) Gauge(string, float64, map[string]string)        { c.gauges++ }
func (c *countingSink) Timing(string, time.Duration, map[string]string) { c.timings++ }

func TestNewMultiSink(t *testing.T) {
	assert.Nil(t, NewMultiSink(nil, nil))

	one := &countingSink{}
	assert.Same(t, one, NewMultiSink(nil, one))

	a, b := &countingSink{}, &countingSink{}
	sink := NewMultiSink(a, nil, b)
	sink.Count("c", 1, nil)
	sink.Gauge("g", 1, nil)
	sink.Timing("t", time.Second, nil)

	for _, s := range []*countingSink{a, b} {
		assert.Equal(t, 1, s.counts)
		assert.Equal(t, 1, s.gauges)
		assert.Equal(t, 1, s.timings)
	}
}
