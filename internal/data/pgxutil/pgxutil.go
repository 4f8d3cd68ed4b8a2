// Package pgxutil runs work in transactions and on raw pgx connections borrowed from a database/sql pool.
package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// SQLTxConfig describes a database/sql transaction body.
type SQLTxConfig struct {
	Opts *sql.TxOptions
	Fn   func(*sql.Tx) error
}

// TxConfig describes a pgx transaction body. Use it when the body needs pgx-only
// features such as CopyFrom or SendBatch.
type TxConfig struct {
	Opts *sql.TxOptions
	Fn   func(pgx.Tx) error
}

// WithSQLTx commits when cfg.Fn returns nil and rolls back otherwise.
func WithSQLTx(ctx context.Context, db *sql.DB, cfg SQLTxConfig) error {
	tx, err := db.BeginTx(ctx, cfg.Opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	return settle(cfg.Fn(tx), tx.Commit, tx.Rollback, sql.ErrTxDone)
}

// WithPgxTx is WithSQLTx for a pgx.Tx opened on a connection borrowed from db.
func WithPgxTx(ctx context.Context, db *sql.DB, cfg TxConfig) error {
	return WithPgxConn(ctx, db, func(conn *pgx.Conn) error {
		tx, err := conn.BeginTx(ctx, ToPgxTxOptions(cfg.Opts))
		if err != nil {
			return fmt.Errorf("begin pgx tx: %w", err)
		}
		// Rollback runs on a fresh context so a canceled ctx still releases the tx.
		rollback := func() error { return tx.Rollback(context.WithoutCancel(ctx)) }
		commit := func() error { return tx.Commit(ctx) }
		return settle(cfg.Fn(tx), commit, rollback, pgx.ErrTxClosed)
	})
}

// settle finishes a transaction: commit after a successful body, rollback otherwise.
// A rollback error equal to closed is ignored.
func settle(bodyErr error, commit, rollback func() error, closed error) error {
	if bodyErr == nil {
		if err := commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	}
	if err := rollback(); err != nil && !errors.Is(err, closed) {
		return errors.Join(bodyErr, fmt.Errorf("rollback: %w", err))
	}
	return bodyErr
}

var isoLevels = map[sql.IsolationLevel]pgx.TxIsoLevel{
	sql.LevelSerializable:    pgx.Serializable,
	sql.LevelLinearizable:    pgx.Serializable,
	sql.LevelRepeatableRead:  pgx.RepeatableRead,
	sql.LevelSnapshot:        pgx.RepeatableRead,
	sql.LevelReadCommitted:   pgx.ReadCommitted,
	sql.LevelWriteCommitted:  pgx.ReadCommitted,
	sql.LevelReadUncommitted: pgx.ReadUncommitted,
}

// ToPgxTxOptions translates database/sql options. Unknown isolation levels use the server default.
func ToPgxTxOptions(opts *sql.TxOptions) pgx.TxOptions {
	if opts == nil {
		return pgx.TxOptions{}
	}
	out := pgx.TxOptions{IsoLevel: isoLevels[opts.Isolation], AccessMode: pgx.ReadWrite}
	if opts.ReadOnly {
		out.AccessMode = pgx.ReadOnly
	}
	return out
}

// WithPgxConn pins one pool connection for fn and hands it over as a *pgx.Conn.
// The connection returns to the pool when fn returns.
func WithPgxConn(ctx context.Context, db *sql.DB, fn func(*pgx.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		std, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("driver connection is %T, want *stdlib.Conn", driverConn)
		}
		return fn(std.Conn())
	})
}

// TryAdvisoryXactLock takes the (major, minor) transaction-scoped advisory lock if it is free.
func TryAdvisoryXactLock(ctx context.Context, tx *sql.Tx, major, minor int32) (bool, error) {
	var locked bool
	err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1::integer, $2::integer)", major, minor).Scan(&locked)
	if err != nil {
		return false, fmt.Errorf("try advisory lock %d/%d: %w", major, minor, err)
	}
	return locked, nil
}

// AdvisoryXactLockText waits for the transaction-scoped lock on (major, hashtext(key)).
func AdvisoryXactLockText(ctx context.Context, tx *sql.Tx, major int32, key string) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1::integer, hashtext($2))", major, key); err != nil {
		return fmt.Errorf("advisory lock %d/%q: %w", major, key, err)
	}
	return nil
}
