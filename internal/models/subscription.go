package models

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusPending   SubscriptionStatus = "pending"
	StatusTrial     SubscriptionStatus = "trial"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

// SyncableStatuses are the local statuses the poller revisits.
var SyncableStatuses = []SubscriptionStatus{StatusActive, StatusPending, StatusTrial}

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusTrial, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

type Subscription struct {
	ID                  int64              `json:"id" db:"id"`
	SubscriptionID      uuid.UUID          `json:"subscription_id" db:"subscription_id"`
	UserID              *int64             `json:"user_id" db:"user_id"`
	ZotloSubscriptionID *string            `json:"zotlo_subscription_id" db:"zotlo_subscription_id"`
	Status              SubscriptionStatus `json:"status" db:"status"`
	PackageName         string             `json:"package_name" db:"package_name"`
	ExpireDate          *time.Time         `json:"expire_date" db:"expire_date"`
	CreatedAt           time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at" db:"updated_at"`
}

// SubscriptionStatusView is what GET /v1/subscription/status returns.
type SubscriptionStatusView struct {
	Status     string     `json:"status"`
	Package    string     `json:"package,omitempty"`
	ExpireDate *time.Time `json:"expire_date,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// DailySubscriptionReport is one row of the subscription report, keyed by creation day.
type DailySubscriptionReport struct {
	Day          time.Time `json:"day" db:"day"`
	NewCount     int64     `json:"new_count" db:"new_count"`
	EndedSameDay int64     `json:"ended_same_day" db:"ended_same_day"`
	EndedTotal   int64     `json:"ended_total" db:"ended_total"`
	RenewedCount int64     `json:"renewed_count" db:"renewed_count"`
}
