package pgxutil

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToPgxTxOptions(t *testing.T) {
	assert.Equal(t, pgx.TxOptions{}, ToPgxTxOptions(nil))

	got := ToPgxTxOptions(&sql.TxOptions{Isolation: sql.LevelSerializable, ReadOnly: true})
	assert.Equal(t, pgx.Serializable, got.IsoLevel)
	assert.Equal(t, pgx.ReadOnly, got.AccessMode)

	got = ToPgxTxOptions(&sql.TxOptions{Isolation: sql.LevelSnapshot})
	assert.Equal(t, pgx.RepeatableRead, got.IsoLevel)
	assert.Equal(t, pgx.ReadWrite, got.AccessMode)

	got = ToPgxTxOptions(&sql.TxOptions{})
	assert.Equal(t, pgx.TxIsoLevel(""), got.IsoLevel)
}

func TestSettle(t *testing.T) {
	errBody := errors.New("body")
	errDone := errors.New("done")

	var committed, rolledBack bool
	commit := func() error { committed = true; return nil }
	rollback := func() error { rolledBack = true; return nil }

	require.NoError(t, settle(nil, commit, rollback, errDone))
	assert.True(t, committed)
	assert.False(t, rolledBack)

	committed = false
	require.ErrorIs(t, settle(errBody, commit, rollback, errDone), errBody)
	assert.False(t, committed)
	assert.True(t, rolledBack)

	err := settle(nil, func() error { return errors.New("serialization") }, rollback, errDone)
	require.ErrorContains(t, err, "commit: serialization")

	err = settle(errBody, commit, func() error { return errDone }, errDone)
	assert.Equal(t, errBody, err)

	err = settle(errBody, commit, func() error { return errors.New("conn lost") }, errDone)
	require.ErrorIs(t, err, errBody)
	assert.ErrorContains(t, err, "rollback: conn lost")
}
