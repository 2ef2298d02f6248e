package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"subsync/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type SubscriptionRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    SubscriptionRepository
	userID  int64
	now     time.Time
	context context.Context
}

func (suite *SubscriptionRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewSubscriptionRepo(mock)
	suite.userID = 42
	suite.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.context = context.Background()
}

func (suite *SubscriptionRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestSubscriptionRepoTestSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionRepoTestSuite))
}

func (suite *SubscriptionRepoTestSuite) newSubscription() *models.Subscription {
	return &models.Subscription{
		SubscriptionID:      uuid.New(),
		UserID:              int64Ptr(suite.userID),
		ZotloSubscriptionID: stringPtr("T1"),
		Status:              models.StatusActive,
		PackageName:         "premium_monthly",
	}
}

func (suite *SubscriptionRepoTestSuite) TestCreate_Success() {
	sub := suite.newSubscription()

	suite.mock.ExpectQuery(`INSERT INTO subscriptions`).
		WithArgs(sub.SubscriptionID, sub.UserID, sub.ZotloSubscriptionID, sub.Status, sub.PackageName, sub.ExpireDate).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), suite.now, suite.now))

	err := suite.repo.Create(suite.context, sub)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(7), sub.ID)
	assert.Equal(suite.T(), suite.now, sub.CreatedAt)
}

func (suite *SubscriptionRepoTestSuite) TestCreate_GeneratesSubscriptionID() {
	sub := suite.newSubscription()
	sub.SubscriptionID = uuid.Nil

	suite.mock.ExpectQuery(`INSERT INTO subscriptions`).
		WithArgs(pgxmock.AnyArg(), sub.UserID, sub.ZotloSubscriptionID, sub.Status, sub.PackageName, sub.ExpireDate).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(8), suite.now, suite.now))

	err := suite.repo.Create(suite.context, sub)
	assert.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), uuid.Nil, sub.SubscriptionID)
}

func (suite *SubscriptionRepoTestSuite) TestCreate_ActiveUniqueViolation() {
	sub := suite.newSubscription()

	suite.mock.ExpectQuery(`INSERT INTO subscriptions`).
		WithArgs(sub.SubscriptionID, sub.UserID, sub.ZotloSubscriptionID, sub.Status, sub.PackageName, sub.ExpireDate).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_active_user", Message: "duplicate key value"})

	err := suite.repo.Create(suite.context, sub)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), errors.Is(err, ErrActiveSubscriptionExists))
}

func (suite *SubscriptionRepoTestSuite) TestCreate_DuplicateTransactionID() {
	sub := suite.newSubscription()

	suite.mock.ExpectQuery(`INSERT INTO subscriptions`).
		WithArgs(sub.SubscriptionID, sub.UserID, sub.ZotloSubscriptionID, sub.Status, sub.PackageName, sub.ExpireDate).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_subscriptions_zotlo_subscription_id"})

	err := suite.repo.Create(suite.context, sub)
	assert.True(suite.T(), errors.Is(err, ErrDuplicateTransactionID))
	assert.False(suite.T(), errors.Is(err, ErrActiveSubscriptionExists))
}

func (suite *SubscriptionRepoTestSuite) TestCreate_OtherErrorPassesThrough() {
	sub := suite.newSubscription()
	dbErr := &pgconn.PgError{Code: "23503", ConstraintName: "subscriptions_user_id_fkey"}

	suite.mock.ExpectQuery(`INSERT INTO subscriptions`).
		WithArgs(sub.SubscriptionID, sub.UserID, sub.ZotloSubscriptionID, sub.Status, sub.PackageName, sub.ExpireDate).
		WillReturnError(dbErr)

	err := suite.repo.Create(suite.context, sub)
	assert.True(suite.T(), errors.Is(err, dbErr))
	assert.False(suite.T(), errors.Is(err, ErrActiveSubscriptionExists))
}

func (suite *SubscriptionRepoTestSuite) TestUpdate_WritesAllColumns() {
	sub := suite.newSubscription()
	sub.ID = 7
	sub.Status = models.StatusCancelled
	expire := suite.now.Add(24 * time.Hour)
	sub.ExpireDate = &expire

	suite.mock.ExpectQuery(`UPDATE subscriptions\s+SET user_id = \$1, zotlo_subscription_id = \$2, status = \$3, package_name = \$4, expire_date = \$5, updated_at = NOW\(\)\s+WHERE id = \$6`).
		WithArgs(sub.UserID, sub.ZotloSubscriptionID, sub.Status, sub.PackageName, sub.ExpireDate, sub.ID).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(suite.now))

	err := suite.repo.Update(suite.context, sub)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.now, sub.UpdatedAt)
}

func (suite *SubscriptionRepoTestSuite) TestUpdate_ActivationRace() {
	sub := suite.newSubscription()
	sub.ID = 9

	suite.mock.ExpectQuery(`UPDATE subscriptions`).
		WithArgs(sub.UserID, sub.ZotloSubscriptionID, sub.Status, sub.PackageName, sub.ExpireDate, sub.ID).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_active_user"})

	err := suite.repo.Update(suite.context, sub)
	assert.True(suite.T(), errors.Is(err, ErrActiveSubscriptionExists))
}

func (suite *SubscriptionRepoTestSuite) TestUpdate_MissingRow() {
	sub := suite.newSubscription()
	sub.ID = 10

	suite.mock.ExpectQuery(`UPDATE subscriptions`).
		WithArgs(sub.UserID, sub.ZotloSubscriptionID, sub.Status, sub.PackageName, sub.ExpireDate, sub.ID).
		WillReturnError(pgx.ErrNoRows)

	err := suite.repo.Update(suite.context, sub)
	assert.True(suite.T(), errors.Is(err, ErrNotFound))
}

func (suite *SubscriptionRepoTestSuite) TestGetLatestActiveByUser_Found() {
	id := uuid.New()
	suite.mock.ExpectQuery(`FROM subscriptions WHERE user_id = \$1 AND status = 'active'`).
		WithArgs(suite.userID).
		WillReturnRows(subscriptionRows().
			AddRow(int64(3), id, int64Ptr(suite.userID), stringPtr("T1"), models.StatusActive, "premium_monthly", (*time.Time)(nil), suite.now, suite.now))

	sub, err := suite.repo.GetLatestActiveByUser(suite.context, suite.userID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), sub.ID)
	assert.Equal(suite.T(), id, sub.SubscriptionID)
	assert.Equal(suite.T(), "T1", *sub.ZotloSubscriptionID)
	assert.Nil(suite.T(), sub.ExpireDate)
}

func (suite *SubscriptionRepoTestSuite) TestGetLatestActiveByUser_NotFound() {
	suite.mock.ExpectQuery(`FROM subscriptions WHERE user_id = \$1 AND status = 'active'`).
		WithArgs(suite.userID).
		WillReturnError(pgx.ErrNoRows)

	sub, err := suite.repo.GetLatestActiveByUser(suite.context, suite.userID)
	assert.Nil(suite.T(), sub)
	assert.True(suite.T(), errors.Is(err, ErrNotFound))
}

func (suite *SubscriptionRepoTestSuite) TestGetByZotloSubscriptionID() {
	suite.mock.ExpectQuery(`FROM subscriptions WHERE zotlo_subscription_id = \$1`).
		WithArgs("T1").
		WillReturnRows(subscriptionRows().
			AddRow(int64(5), uuid.New(), (*int64)(nil), stringPtr("T1"), models.StatusPending, "basic", (*time.Time)(nil), suite.now, suite.now))

	sub, err := suite.repo.GetByZotloSubscriptionID(suite.context, "T1")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), sub.UserID)
	assert.Equal(suite.T(), models.StatusPending, sub.Status)
}

func (suite *SubscriptionRepoTestSuite) TestListSyncable_KeysetPage() {
	suite.mock.ExpectQuery(`WHERE status = ANY\(\$1\) AND id > \$2 ORDER BY id LIMIT \$3`).
		WithArgs([]string{"active", "pending", "trial"}, int64(100), 2).
		WillReturnRows(subscriptionRows().
			AddRow(int64(101), uuid.New(), int64Ptr(1), stringPtr("A"), models.StatusActive, "basic", (*time.Time)(nil), suite.now, suite.now).
			AddRow(int64(104), uuid.New(), int64Ptr(2), (*string)(nil), models.StatusTrial, "basic", (*time.Time)(nil), suite.now, suite.now))

	subs, err := suite.repo.ListSyncable(suite.context, 100, 2)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), subs, 2)
	assert.Equal(suite.T(), int64(104), subs[1].ID)
	assert.Nil(suite.T(), subs[1].ZotloSubscriptionID)
}

func (suite *SubscriptionRepoTestSuite) TestDailyReport() {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)

	suite.mock.ExpectQuery(`GROUP BY DATE\(created_at\)`).
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"day", "new_count", "ended_same_day", "ended_total", "renewed_count"}).
			AddRow(from, int64(4), int64(1), int64(2), int64(1)))

	report, err := suite.repo.DailyReport(suite.context, from, to)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), report, 1)
	assert.Equal(suite.T(), int64(4), report[0].NewCount)
	assert.Equal(suite.T(), int64(1), report[0].RenewedCount)
}

func subscriptionRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "subscription_id", "user_id", "zotlo_subscription_id", "status", "package_name", "expire_date", "created_at", "updated_at"})
}

func stringPtr(s string) *string {
	return &s
}

func int64Ptr(i int64) *int64 {
	return &i
}
