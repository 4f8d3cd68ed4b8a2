package statsd

import (
	"net"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" jobs/claimed ":  "jobs_claimed",
		"jobs..completed": "jobs.completed",
		"cache hit":       "cache_hit",
		".webhook.dup.":   "webhook.dup",
		"a:b|c@d":         "a_b_c_d",
	}
	for input, want := range tests {
		assert.Equal(t, want, normalizeMetricName(input), input)
	}
}

func TestFormatTagsSortsAndOverrides(t *testing.T) {
	t.Parallel()

	got := formatTags(
		map[string]string{"env": "prod", " kind ": " thumbnail "},
		map[string]string{"env": "stage", "": "ignored"},
	)
	assert.Equal(t, "env:stage,kind:thumbnail", got)
	assert.Empty(t, formatTags(nil, nil))
}

func TestMergeTagSuffix(t *testing.T) {
	t.Parallel()

	assert.Empty(t, mergeTagSuffix("", ""))
	assert.Equal(t, "|#a:1", mergeTagSuffix("a:1", ""))
	assert.Equal(t, "|#b:2", mergeTagSuffix("", "b:2"))
	assert.Equal(t, "|#a:1,b:2", mergeTagSuffix("a:1", "b:2"))
}

func TestDisabledClientIsNoop(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Enabled: false, Address: "127.0.0.1:8125"})
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	c.Count("jobs.created", 1, nil)
	assert.Zero(t, c.Dropped())
	require.NoError(t, c.Close())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	require.NoError(t, nilClient.Close())
}

func TestClientBatchesLinesIntoDatagrams(t *testing.T) {
	t.Parallel()

	conn := listenUDP(t)
	c, err := NewClient(Config{
		Enabled:       true,
		Address:       conn.LocalAddr().String(),
		Prefix:        " jobcore. ",
		GlobalTags:    map[string]string{"env": "test"},
		FlushInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	require.True(t, c.Enabled())

	c.Count("jobs.created", 2, map[string]string{"type": "render"})
	c.Gauge("jobs.queue_depth", 7.5, nil)
	c.Timing("jobs.duration", 1500*time.Microsecond, nil)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	lines := readLines(t, conn, 3)
	sort.Strings(lines)
	assert.Equal(t, []string{
		"jobcore.jobs.created:2|c|#env:test,type:render",
		"jobcore.jobs.duration:1.5|ms|#env:test",
		"jobcore.jobs.queue_depth:7.5|g|#env:test",
	}, lines)
	assert.False(t, c.Enabled())
}

func TestClientSplitsAtMaxPacketSize(t *testing.T) {
	t.Parallel()

	conn := listenUDP(t)
	c, err := NewClient(Config{
		Enabled:       true,
		Address:       conn.LocalAddr().String(),
		MaxPacketSize: 24,
		FlushInterval: time.Hour,
	})
	require.NoError(t, err)

	for range 4 {
		c.Count("sweeper.expired", 1, nil)
	}
	require.NoError(t, c.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 2048)
	packets := 0
	total := 0
	for total < 4 {
		n, _, err := conn.ReadFrom(buf)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, 24)
		packets++
		total += len(strings.Split(string(buf[:n]), "\n"))
	}
	assert.Equal(t, 4, total)
	assert.Greater(t, packets, 1)
}

func listenUDP(t *testing.T) net.PacketConn {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readLines(t *testing.T, conn net.PacketConn, want int) []string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 2048)
	var lines []string
	for len(lines) < want {
		n, _, err := conn.ReadFrom(buf)
		require.NoError(t, err)
		lines = append(lines, strings.Split(string(buf[:n]), "\n")...)
	}
	return lines
}
