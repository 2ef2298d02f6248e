package jobs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"subsync/internal/models"
	"subsync/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockReportStorage mocks the ReportStorage interface for testing
type MockReportStorage struct {
	mock.Mock
}

func (m *MockReportStorage) UploadReport(ctx context.Context, objectName string, data []byte, contentType string) error {
	args := m.Called(ctx, objectName, data, contentType)
	return args.Error(0)
}

func (m *MockReportStorage) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockReportStorage) EnsureBucketExists(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func day(d int) time.Time {
	return time.Date(2025, 3, d, 12, 0, 0, 0, time.UTC)
}

func seedReport(store *testhelpers.MemoryStore) {
	add := func(userID int64, status models.SubscriptionStatus, created, updated time.Time) {
		s := testhelpers.NewSubscription(userID, "", "premium", status)
		s.CreatedAt, s.UpdatedAt = created, updated
		store.AddSubscription(s)
	}
	add(1, models.StatusActive, day(1), day(1))
	add(2, models.StatusCancelled, day(1), day(1))
	add(3, models.StatusActive, day(1), day(2))
	add(4, models.StatusExpired, day(2), day(3))
	add(5, models.StatusActive, day(5), day(5))
}

func TestSubscriptionReportJob_RunAggregatesByCreationDay(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	seedReport(store)
	job := NewSubscriptionReportJob(store, nil, zap.NewNop())

	result, err := job.Run(context.Background(), ReportOptions{From: day(1), To: day(3)})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	first := result.Rows[0]
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), first.Day)
	assert.Equal(t, int64(3), first.NewCount)
	assert.Equal(t, int64(1), first.EndedSameDay)
	assert.Equal(t, int64(1), first.EndedTotal)
	assert.Equal(t, int64(1), first.RenewedCount)

	second := result.Rows[1]
	assert.Equal(t, int64(1), second.NewCount)
	assert.Equal(t, int64(0), second.EndedSameDay)
	assert.Equal(t, int64(1), second.EndedTotal)

	totals := result.Totals()
	assert.Equal(t, int64(4), totals.NewCount)
	assert.Equal(t, int64(2), totals.EndedTotal)
	assert.Empty(t, result.ObjectName)
}

func TestSubscriptionReportJob_RunArchivesCSV(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	seedReport(store)
	storage := new(MockReportStorage)
	storage.On("UploadReport", mock.Anything, "reports/subscriptions-2025-03-01_2025-03-05.csv",
		mock.MatchedBy(func(data []byte) bool {
			return strings.HasPrefix(string(data), "day,new,ended_same_day,ended_in_range,renewed\n2025-03-01,3,1,1,1\n")
		}), "text/csv").Return(nil).Once()
	job := NewSubscriptionReportJob(store, storage, zap.NewNop())

	result, err := job.Run(context.Background(), ReportOptions{From: day(1), To: day(5), Archive: true})

	require.NoError(t, err)
	assert.Equal(t, "reports/subscriptions-2025-03-01_2025-03-05.csv", result.ObjectName)
	storage.AssertExpectations(t)
}

func TestSubscriptionReportJob_ArchiveFailure(t *testing.T) {
	store := testhelpers.NewMemoryStore()
	storage := new(MockReportStorage)
	storage.On("UploadReport", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket missing"))
	job := NewSubscriptionReportJob(store, storage, zap.NewNop())

	_, err := job.Run(context.Background(), ReportOptions{From: day(1), To: day(2), Archive: true})

	assert.EqualError(t, err, "bucket missing")
}

func TestSubscriptionReportJob_InvalidRange(t *testing.T) {
	job := NewSubscriptionReportJob(testhelpers.NewMemoryStore(), nil, zap.NewNop())

	_, err := job.Run(context.Background(), ReportOptions{From: day(5), To: day(1)})

	assert.ErrorIs(t, err, ErrInvalidReportRange)
}

func TestRenderReportTable(t *testing.T) {
	result := &ReportResult{Rows: []models.DailySubscriptionReport{
		{Day: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), NewCount: 12, EndedSameDay: 1, EndedTotal: 2, RenewedCount: 3},
		{Day: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), NewCount: 4},
	}}
	var out bytes.Buffer

	RenderReportTable(&out, result)

	text := out.String()
	assert.Contains(t, text, "ended_in_range")
	assert.Contains(t, text, "2025-03-01")
	assert.Contains(t, text, "2025-03-02")
	assert.Contains(t, text, "total")
	assert.Contains(t, text, "16")
}

func TestRenderReportCSV(t *testing.T) {
	data, err := RenderReportCSV([]models.DailySubscriptionReport{
		{Day: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), NewCount: 3, EndedSameDay: 1, EndedTotal: 1, RenewedCount: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, "day,new,ended_same_day,ended_in_range,renewed\n2025-03-01,3,1,1,1\n", string(data))
}

func TestLastDaysAndParseReportDate(t *testing.T) {
	from, to := LastDays(time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC), 7)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), to)

	parsed, err := ParseReportDate("2025-02-28")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), parsed)

	_, err = ParseReportDate("28/02/2025")
	assert.Error(t, err)
}
