package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCandidates lists addresses tried in order when REDIS_ADDR is unset.
var redisCandidates = []string{"localhost:56379", "redis:6379", "localhost:6379"}

// SetupTestRedis returns a client on a Redis database reserved for this test and
// flushed before use. The test is skipped when no server is reachable.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addrs := redisCandidates
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		addrs = []string{addr}
	}
	var (
		addr string
		err  error
	)
	for _, candidate := range addrs {
		if err = pingRedis(candidate); err == nil {
			addr = candidate
			break
		}
	}
	if addr == "" {
		skipOrFail(t, requireRedis(), "redis not available: %v", err)
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: reserveRedisDB(t, addr)})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		skipOrFail(t, requireRedis(), "redis flush at %s: %v", addr, err)
	}
	return client
}

func pingRedis(addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

// reserveRedisDB claims a database index in 1..15 via a SETNX lease held in DB 0,
// so packages running in parallel do not flush each other's data. TEST_REDIS_DB overrides.
func reserveRedisDB(t TestingTB, addr string) int {
	t.Helper()
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}

	meta := redis.NewClient(&redis.Options{Addr: addr})
	for db := 1; db <= 15; db++ {
		key := fmt.Sprintf("jobcore:testutil:db_lease:%d", db)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		ok, err := meta.SetNX(ctx, key, os.Getpid(), 30*time.Minute).Result()
		cancel()
		if err != nil || !ok {
			continue
		}
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = meta.Del(ctx, key).Err()
			_ = meta.Close()
		})
		return db
	}
	_ = meta.Close()
	t.Logf("no free redis db lease at %s, using db 1", addr)
	return 1
}
