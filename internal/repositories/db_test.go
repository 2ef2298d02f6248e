package repositories

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx_Commit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE subscriptions`).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err = NewStore(mock).WithTx(context.Background(), func(tx Store) error {
		_, execErr := tx.(*store).db.Exec(context.Background(), `UPDATE subscriptions SET status = 'active'`)
		return execErr
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	fnErr := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = NewStore(mock).WithTx(context.Background(), func(tx Store) error {
		return fnErr
	})
	assert.ErrorIs(t, err, fnErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	called := false
	err = NewStore(mock).WithTx(context.Background(), func(tx Store) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}
