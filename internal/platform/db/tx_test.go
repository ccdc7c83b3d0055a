package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type stubTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (s *stubTx) Commit(context.Context) error {
	s.committed = true
	return nil
}

func (s *stubTx) Rollback(context.Context) error {
	if !s.committed {
		s.rolledBack = true
	}
	return pgx.ErrTxClosed
}

type stubBeginner struct {
	opts pgx.TxOptions
	tx   *stubTx
}

func (s *stubBeginner) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	s.opts = opts
	s.tx = &stubTx{}
	return s.tx, nil
}

func TestWithTxUsesReadCommitted(t *testing.T) {
	beginner := &stubBeginner{}

	err := WithTx(context.Background(), beginner, func(pgx.Tx) error { return nil })
	require.NoError(t, err)
	require.Equal(t, pgx.ReadCommitted, beginner.opts.IsoLevel)
	require.True(t, beginner.tx.committed)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	beginner := &stubBeginner{}
	boom := errors.New("insert failed")

	err := WithTx(context.Background(), beginner, func(pgx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, beginner.tx.committed)
	require.True(t, beginner.tx.rolledBack)
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "40001"}))
	require.False(t, IsUniqueViolation(errors.New("plain")))
}
