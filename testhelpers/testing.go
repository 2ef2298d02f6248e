package testhelpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"subsync/internal/models"
	"subsync/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB connects to TEST_DATABASE_URL, applies migrations and empties
// the tables. The test is skipped when no database is configured.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.Migrate(ctx, pool, zap.NewNop()); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE subscriptions, users RESTART IDENTITY CASCADE`); err != nil {
		pool.Close()
		t.Fatalf("Failed to reset test database: %v", err)
	}

	return &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
}

// SetupTestUser inserts a user, optionally with a subscriber id.
func SetupTestUser(t *testing.T, db *TestDB, subscriberID string) models.User {
	t.Helper()

	user := models.User{
		Email: fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8]),
		Name:  "Test User",
	}
	if subscriberID != "" {
		user.ZotloSubscriberID = &subscriberID
	}
	query := `
		INSERT INTO users (email, name, zotlo_subscriber_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at
	`
	err := db.Pool.QueryRow(context.Background(), query, user.Email, user.Name, user.ZotloSubscriberID, time.Now()).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}
