package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorhub/jobcore/config"
	"github.com/creatorhub/jobcore/internal/domain/model"
	"github.com/creatorhub/jobcore/internal/service"
)

func TestPrintUsageListsEveryCommand(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))

	out := buf.String()
	assert.Contains(t, out, "Usage: jobcore-admin")
	for name := range commands() {
		assert.Contains(t, out, name)
	}
}

func TestParseMigrateFlags(t *testing.T) {
	opts, err := parseMigrateFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultMigrationTimeout, opts.Timeout)

	opts, err = parseMigrateFlags([]string{"--timeout", "30s"})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, opts.Timeout)

	_, err = parseMigrateFlags([]string{"--timeout", "0s"})
	require.Error(t, err)
}

func TestParseSweepFlags(t *testing.T) {
	opts, err := parseSweepFlags([]string{"--step", "purge-cache", "--json"})
	require.NoError(t, err)
	assert.Equal(t, "purge-cache", opts.Step)
	assert.True(t, opts.JSON)

	opts, err = parseSweepFlags(nil)
	require.NoError(t, err)
	assert.Empty(t, opts.Step)

	_, err = parseSweepFlags([]string{"--step", "vacuum"})
	require.Error(t, err)
}

func TestParseCacheInvalidateFlags(t *testing.T) {
	opts, err := parseCacheInvalidateFlags([]string{"--pattern", "customer:cus_1:*"})
	require.NoError(t, err)
	assert.Equal(t, model.CacheCategoryBilling, opts.Category)
	assert.Equal(t, "customer:cus_1:*", opts.Pattern)

	_, err = parseCacheInvalidateFlags(nil)
	require.ErrorContains(t, err, "--pattern")

	_, err = parseCacheInvalidateFlags([]string{"--category", "Bad Category", "--pattern", "x"})
	require.Error(t, err)
}

func TestPrintSweepResults(t *testing.T) {
	var buf bytes.Buffer
	err := printSweepResults(&buf, []service.SweepResult{
		{Step: service.SweepStepExpire, Affected: 3, Duration: 12 * time.Millisecond},
		{Step: service.SweepStepPurgeCache, Affected: 0},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "STEP")
	assert.Contains(t, out, "expire")
	assert.Contains(t, out, "12ms")
	assert.Contains(t, out, "purge_cache")
}

func TestHasRedisConfig(t *testing.T) {
	assert.False(t, hasRedisConfig(nil))
	assert.False(t, hasRedisConfig(&config.RedisConfig{}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{URI: "redis://localhost:6379"}))
	assert.False(t, hasRedisConfig(&config.RedisConfig{UseSentinel: true}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{UseSentinel: true, SentinelNodes: []string{"s1:26379"}}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{UseCluster: true, ClusterNodes: []string{"n1:6379"}}))
}
