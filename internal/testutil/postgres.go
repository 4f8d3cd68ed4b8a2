// Package testutil holds helpers for integration tests against Postgres and Redis.
//
// Integration tests skip when the backing service is unreachable. Set
// TEST_REQUIRE_INFRA (or TEST_REQUIRE_DB / TEST_REQUIRE_REDIS) to turn the skip into a failure.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/creatorhub/jobcore/internal/migrate"
)

// TestingTB is the subset of testing.TB the helpers need.
type TestingTB interface {
	Helper()
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
	Cleanup(func())
}

// TestDBConfig points at the integration database.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig reads TEST_DB_* with defaults matching the local compose profile (port 55432).
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     envOr("TEST_DB_PORT", "55432"),
		User:     envOr("TEST_DB_USER", "jobcore"),
		Password: envOr("TEST_DB_PASSWORD", "jobcore"),
		DBName:   envOr("TEST_DB_NAME", "jobcore"),
	}
}

// DSN renders the config as a postgres URL.
func (c TestDBConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", envOr("DB_SSL_MODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

// openTestDB opens a pool; a non-empty schema is placed first on search_path.
func openTestDB(cfg TestDBConfig, schema string) (*sql.DB, error) {
	connCfg, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	if schema != "" {
		connCfg.RuntimeParams["search_path"] = schema + ",public"
	}
	return stdlib.OpenDB(*connCfg), nil
}

func ping(db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return db.PingContext(ctx)
}

// SkipIfNoTestDB skips t unless the integration database answers a ping.
func SkipIfNoTestDB(t TestingTB) {
	t.Helper()
	db, err := openTestDB(DefaultTestDBConfig(), "")
	if err == nil {
		err = ping(db, 2*time.Second)
		_ = db.Close()
	}
	if err != nil {
		skipOrFail(t, requireDB(), "test database not available: %v", err)
	}
}

// WithAutoDB runs fn against a migrated database. With TEST_DB_EPHEMERAL set each
// call gets its own schema, dropped afterwards; otherwise the shared database is
// emptied before and after fn.
func WithAutoDB(t TestingTB, fn func(*sql.DB)) {
	t.Helper()
	SkipIfNoTestDB(t)
	if envBool("TEST_DB_EPHEMERAL") {
		fn(setupSchemaDB(t))
		return
	}
	db := setupSharedDB(t)
	defer func() {
		truncateAll(t, db)
		if err := db.Close(); err != nil {
			t.Logf("close test db: %v", err)
		}
	}()
	fn(db)
}

func setupSharedDB(t TestingTB) *sql.DB {
	t.Helper()
	db, err := openTestDB(DefaultTestDBConfig(), "")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	migrateDB(t, db)
	truncateAll(t, db)
	return db
}

func setupSchemaDB(t TestingTB) *sql.DB {
	t.Helper()
	cfg := DefaultTestDBConfig()
	admin, err := openTestDB(cfg, "")
	if err != nil {
		t.Fatalf("open admin db: %v", err)
	}

	schema := "t_" + randomSuffix()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err = admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		_ = admin.Close()
		t.Fatalf("create schema %s: %v", schema, err)
	}

	db, err := openTestDB(cfg, schema)
	if err != nil {
		_ = admin.Close()
		t.Fatalf("open schema db: %v", err)
	}
	db.SetMaxOpenConns(10)

	t.Cleanup(func() {
		_ = db.Close()
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dropCancel()
		if _, dropErr := admin.ExecContext(dropCtx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); dropErr != nil {
			t.Logf("drop schema %s: %v", schema, dropErr)
		}
		_ = admin.Close()
	})
	t.Logf("using ephemeral schema %s", schema)
	migrateDB(t, db)
	return db
}

func migrateDB(t TestingTB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := migrate.Run(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
}

// truncateAll empties every application table. job_logs cascades from jobs.
func truncateAll(t TestingTB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "TRUNCATE jobs, webhook_events, cache_entries CASCADE"); err != nil {
		t.Fatalf("truncate test tables: %v", err)
	}
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format("150405.0")))
	}
	return hex.EncodeToString(b)
}

func skipOrFail(t TestingTB, required bool, format string, args ...any) {
	t.Helper()
	if required {
		t.Fatalf(format, args...)
	}
	t.Skipf(format, args...)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
