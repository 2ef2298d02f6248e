package repositories

import (
	"context"
	"errors"
	"fmt"

	"subsync/internal/models"

	"github.com/jackc/pgx/v5"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByZotloSubscriberID(ctx context.Context, subscriberID string) (*models.User, error)
	AssignZotloSubscriberID(ctx context.Context, userID int64, subscriberID string) (string, error)
}

type userRepo struct {
	db Database
}

func NewUserRepo(db Database) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, name, zotlo_subscriber_id, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Email, &user.Name, &user.ZotloSubscriberID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, mapReadError(err)
	}
	return user, nil
}

func (r *userRepo) GetByZotloSubscriberID(ctx context.Context, subscriberID string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, name, zotlo_subscriber_id, created_at, updated_at
		FROM users
		WHERE zotlo_subscriber_id = $1
	`
	err := r.db.QueryRow(ctx, query, subscriberID).Scan(&user.ID, &user.Email, &user.Name, &user.ZotloSubscriberID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, mapReadError(err)
	}
	return user, nil
}

// AssignZotloSubscriberID sets the subscriber id only when the user has none
// and returns the id the user ends up with. A concurrent assignment wins and
// its value is returned.
func (r *userRepo) AssignZotloSubscriberID(ctx context.Context, userID int64, subscriberID string) (string, error) {
	var assigned string
	query := `
		UPDATE users
		SET zotlo_subscriber_id = $2, updated_at = NOW()
		WHERE id = $1 AND zotlo_subscriber_id IS NULL
		RETURNING zotlo_subscriber_id
	`
	err := r.db.QueryRow(ctx, query, userID, subscriberID).Scan(&assigned)
	if err == nil {
		return assigned, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("failed to assign subscriber id to user %d: %w", userID, mapWriteError(err))
	}

	var existing *string
	err = r.db.QueryRow(ctx, `SELECT zotlo_subscriber_id FROM users WHERE id = $1`, userID).Scan(&existing)
	if err != nil {
		return "", mapReadError(err)
	}
	if existing == nil {
		return "", fmt.Errorf("subscriber id for user %d was not persisted", userID)
	}
	return *existing, nil
}
