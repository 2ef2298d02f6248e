package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type Database interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the repositories behind one connection so a caller can run
// them inside a single transaction.
type Store interface {
	Subscriptions() SubscriptionRepository
	Users() UserRepository
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db Database
}

func NewStore(db Database) Store {
	return &store{db: db}
}

func (s *store) Subscriptions() SubscriptionRepository {
	return NewSubscriptionRepo(s.db)
}

func (s *store) Users() UserRepository {
	return NewUserRepo(s.db)
}

// WithTx runs fn in a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (s *store) WithTx(ctx context.Context, fn func(tx Store) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&store{db: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
