package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	activeUserConstraint    = "uniq_active_user"
	transactionIDConstraint = "uniq_subscriptions_zotlo_subscription_id"
	subscriberIDConstraint  = "uniq_users_zotlo_subscriber_id"

	uniqueViolationCode = "23505"
)

var (
	ErrNotFound                 = errors.New("record not found")
	ErrActiveSubscriptionExists = errors.New("user already has an active subscription")
	ErrDuplicateTransactionID   = errors.New("zotlo subscription id already bound to another subscription")
	ErrDuplicateSubscriberID    = errors.New("zotlo subscriber id already assigned to another user")
)

// IsNotFoundError reports whether err is a missing row.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// mapWriteError translates unique violations on known constraints into the
// package sentinels. Other errors are returned unchanged.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return err
	}
	switch pgErr.ConstraintName {
	case activeUserConstraint:
		return fmt.Errorf("%w: %s", ErrActiveSubscriptionExists, pgErr.Message)
	case transactionIDConstraint:
		return fmt.Errorf("%w: %s", ErrDuplicateTransactionID, pgErr.Message)
	case subscriberIDConstraint:
		return fmt.Errorf("%w: %s", ErrDuplicateSubscriberID, pgErr.Message)
	}
	return err
}

func mapReadError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
