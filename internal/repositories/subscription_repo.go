package repositories

import (
	"context"
	"fmt"
	"time"

	"subsync/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.Subscription) error
	Update(ctx context.Context, subscription *models.Subscription) error
	GetByID(ctx context.Context, id int64) (*models.Subscription, error)
	GetByZotloSubscriptionID(ctx context.Context, zotloSubscriptionID string) (*models.Subscription, error)
	GetLatestByUser(ctx context.Context, userID int64) (*models.Subscription, error)
	GetLatestActiveByUser(ctx context.Context, userID int64) (*models.Subscription, error)
	ListSyncable(ctx context.Context, afterID int64, limit int) ([]models.Subscription, error)
	DailyReport(ctx context.Context, from, to time.Time) ([]models.DailySubscriptionReport, error)
}

type subscriptionRepo struct {
	db Database
}

func NewSubscriptionRepo(db Database) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

const subscriptionColumns = `id, subscription_id, user_id, zotlo_subscription_id, status, package_name, expire_date, created_at, updated_at`

func scanSubscription(row pgx.Row, s *models.Subscription) error {
	return row.Scan(&s.ID, &s.SubscriptionID, &s.UserID, &s.ZotloSubscriptionID, &s.Status, &s.PackageName, &s.ExpireDate, &s.CreatedAt, &s.UpdatedAt)
}

func (r *subscriptionRepo) Create(ctx context.Context, subscription *models.Subscription) error {
	if subscription.SubscriptionID == uuid.Nil {
		subscription.SubscriptionID = uuid.New()
	}
	query := `
		INSERT INTO subscriptions (subscription_id, user_id, zotlo_subscription_id, status, package_name, expire_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, subscription.SubscriptionID, subscription.UserID, subscription.ZotloSubscriptionID, subscription.Status, subscription.PackageName, subscription.ExpireDate).
		Scan(&subscription.ID, &subscription.CreatedAt, &subscription.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", mapWriteError(err))
	}
	return nil
}

// Update writes every mutable column in one statement. subscription_id is
// never part of the column list.
func (r *subscriptionRepo) Update(ctx context.Context, subscription *models.Subscription) error {
	query := `
		UPDATE subscriptions
		SET user_id = $1, zotlo_subscription_id = $2, status = $3, package_name = $4, expire_date = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, subscription.UserID, subscription.ZotloSubscriptionID, subscription.Status, subscription.PackageName, subscription.ExpireDate, subscription.ID).
		Scan(&subscription.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update subscription %d: %w", subscription.ID, mapWriteError(mapReadError(err)))
	}
	return nil
}

func (r *subscriptionRepo) GetByID(ctx context.Context, id int64) (*models.Subscription, error) {
	subscription := &models.Subscription{}
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	if err := scanSubscription(r.db.QueryRow(ctx, query, id), subscription); err != nil {
		return nil, mapReadError(err)
	}
	return subscription, nil
}

func (r *subscriptionRepo) GetByZotloSubscriptionID(ctx context.Context, zotloSubscriptionID string) (*models.Subscription, error) {
	subscription := &models.Subscription{}
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE zotlo_subscription_id = $1`
	if err := scanSubscription(r.db.QueryRow(ctx, query, zotloSubscriptionID), subscription); err != nil {
		return nil, mapReadError(err)
	}
	return subscription, nil
}

func (r *subscriptionRepo) GetLatestByUser(ctx context.Context, userID int64) (*models.Subscription, error) {
	subscription := &models.Subscription{}
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	if err := scanSubscription(r.db.QueryRow(ctx, query, userID), subscription); err != nil {
		return nil, mapReadError(err)
	}
	return subscription, nil
}

func (r *subscriptionRepo) GetLatestActiveByUser(ctx context.Context, userID int64) (*models.Subscription, error) {
	subscription := &models.Subscription{}
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 AND status = 'active' ORDER BY created_at DESC, id DESC LIMIT 1`
	if err := scanSubscription(r.db.QueryRow(ctx, query, userID), subscription); err != nil {
		return nil, mapReadError(err)
	}
	return subscription, nil
}

// ListSyncable pages through subscriptions the poller should revisit, ordered
// by id. Pass the last id of the previous page as afterID.
func (r *subscriptionRepo) ListSyncable(ctx context.Context, afterID int64, limit int) ([]models.Subscription, error) {
	statuses := make([]string, 0, len(models.SyncableStatuses))
	for _, s := range models.SyncableStatuses {
		statuses = append(statuses, string(s))
	}
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE status = ANY($1) AND id > $2 ORDER BY id LIMIT $3`
	rows, err := r.db.Query(ctx, query, statuses, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list syncable subscriptions: %w", err)
	}
	defer rows.Close()

	var subscriptions []models.Subscription
	for rows.Next() {
		var subscription models.Subscription
		if err := scanSubscription(rows, &subscription); err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}
	return subscriptions, rows.Err()
}

// DailyReport aggregates subscriptions created in [from, to] by creation day.
func (r *subscriptionRepo) DailyReport(ctx context.Context, from, to time.Time) ([]models.DailySubscriptionReport, error) {
	query := `
		SELECT DATE(created_at) AS day,
			COUNT(*) AS new_count,
			COUNT(*) FILTER (WHERE status IN ('cancelled', 'expired') AND DATE(updated_at) = DATE(created_at)) AS ended_same_day,
			COUNT(*) FILTER (WHERE status IN ('cancelled', 'expired') AND DATE(updated_at) BETWEEN $1 AND $2) AS ended_total,
			COUNT(*) FILTER (WHERE status = 'active' AND DATE(updated_at) BETWEEN $1 AND $2 AND DATE(updated_at) <> DATE(created_at)) AS renewed_count
		FROM subscriptions
		WHERE DATE(created_at) BETWEEN $1 AND $2
		GROUP BY DATE(created_at)
		ORDER BY day
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to build subscription report: %w", err)
	}
	defer rows.Close()

	var report []models.DailySubscriptionReport
	for rows.Next() {
		var day models.DailySubscriptionReport
		if err := rows.Scan(&day.Day, &day.NewCount, &day.EndedSameDay, &day.EndedTotal, &day.RenewedCount); err != nil {
			return nil, err
		}
		report = append(report, day)
	}
	return report, rows.Err()
}
